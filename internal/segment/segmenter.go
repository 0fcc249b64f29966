package segment

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sectiond/internal/document"
)

// Config holds the segmentation tunables.
type Config struct {
	// GapMultiplier scales the median inter-block gap to produce the
	// section-break threshold. A gap larger than
	// GapMultiplier * median(gap) starts a new section.
	GapMultiplier float64 `koanf:"gap_multiplier"`

	// HeadingFontRatio is the factor by which a block's font size must
	// exceed the document's median body font size to count as a heading.
	HeadingFontRatio float64 `koanf:"heading_font_ratio"`

	// MaxTitleRunes caps derived titles (sections without a detected
	// heading take their leading words, truncated to this length).
	MaxTitleRunes int `koanf:"max_title_runes"`

	// MinBlockChars drops blocks shorter than this many runes before
	// segmentation. Page numbers and stray marks otherwise show up as
	// one-character sections. 0 disables the filter.
	MinBlockChars int `koanf:"min_block_chars"`
}

// ApplyDefaults sets default values for unset fields. The gap multiplier
// default of 2.5 line heights holds up well across report-style documents.
func (c *Config) ApplyDefaults() {
	if c.GapMultiplier == 0 {
		c.GapMultiplier = 2.5
	}
	if c.HeadingFontRatio == 0 {
		c.HeadingFontRatio = 1.2
	}
	if c.MaxTitleRunes == 0 {
		c.MaxTitleRunes = 80
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.GapMultiplier <= 0 {
		return fmt.Errorf("gap multiplier must be positive, got %v", c.GapMultiplier)
	}
	if c.HeadingFontRatio < 1 {
		return fmt.Errorf("heading font ratio must be >= 1, got %v", c.HeadingFontRatio)
	}
	if c.MaxTitleRunes < 1 {
		return fmt.Errorf("max title runes must be positive, got %d", c.MaxTitleRunes)
	}
	if c.MinBlockChars < 0 {
		return fmt.Errorf("min block chars must be non-negative, got %d", c.MinBlockChars)
	}
	return nil
}

// Segmenter groups consecutive text blocks into sections.
type Segmenter struct {
	config Config
	logger *zap.Logger
}

// NewSegmenter creates a segmenter with the given configuration.
func NewSegmenter(config Config, logger *zap.Logger) (*Segmenter, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Segmenter{config: config, logger: logger}, nil
}

// Segment partitions a document's blocks into sections.
//
// A section break starts where the vertical gap to the previous block
// exceeds the document's gap threshold, or where a heading-sized block
// begins. A section may continue across a page boundary when the new page
// opens with ordinary body text (no heading, so the last semantic unit of
// the previous page is still running).
//
// Segmentation is deterministic for a fixed configuration: identical input
// always yields identical sections.
func (s *Segmenter) Segment(doc *document.Document) []document.Section {
	if doc == nil {
		return nil
	}
	doc = s.filterBlocks(doc)

	gapThreshold := s.config.GapMultiplier * medianGap(doc)
	bodyFont := medianFontSize(doc)

	var sections []document.Section
	var cur *builder

	flush := func() {
		if cur != nil && cur.hasText() {
			sections = append(sections, cur.section(s.config.MaxTitleRunes, doc.Name))
		}
		cur = nil
	}

	for _, page := range doc.Pages {
		for i, block := range page.Blocks {
			heading := isHeading(block, bodyFont, s.config.HeadingFontRatio)

			breakHere := false
			switch {
			case cur == nil:
				breakHere = true
			case heading:
				// An oversized font starts a section even without a
				// large preceding gap.
				breakHere = true
			case i > 0:
				if gap := block.Y0 - page.Blocks[i-1].Y1; gap > gapThreshold {
					breakHere = true
				}
			case i == 0:
				// First block of a page: continue the running section
				// unless it is a heading (handled above). Page breaks
				// alone are not section boundaries.
			}

			if breakHere {
				flush()
				cur = newBuilder(block, heading)
				continue
			}
			cur.add(block)
		}
	}
	flush()

	s.logger.Debug("document segmented",
		zap.String("document", doc.Name),
		zap.Int("sections", len(sections)),
		zap.Float64("gap_threshold", gapThreshold),
		zap.Float64("body_font", bodyFont))

	return sections
}

// filterBlocks drops blocks below the minimum character count, so stray
// page furniture neither forms sections nor skews the gap statistics. The
// filter view leaves the input document untouched.
func (s *Segmenter) filterBlocks(doc *document.Document) *document.Document {
	if s.config.MinBlockChars <= 0 {
		return doc
	}

	filtered := &document.Document{Name: doc.Name}
	for _, page := range doc.Pages {
		out := page
		out.Blocks = nil
		for _, b := range page.Blocks {
			if len([]rune(strings.TrimSpace(b.Text))) < s.config.MinBlockChars {
				continue
			}
			out.Blocks = append(out.Blocks, b)
		}
		filtered.Pages = append(filtered.Pages, out)
	}
	return filtered
}

// builder accumulates one section's blocks.
type builder struct {
	first   document.TextBlock
	heading bool
	parts   []string
}

func newBuilder(first document.TextBlock, heading bool) *builder {
	return &builder{
		first:   first,
		heading: heading,
		parts:   []string{first.Text},
	}
}

func (b *builder) add(block document.TextBlock) {
	b.parts = append(b.parts, block.Text)
}

func (b *builder) hasText() bool {
	for _, p := range b.parts {
		if strings.TrimSpace(p) != "" {
			return true
		}
	}
	return false
}

func (b *builder) section(maxTitleRunes int, docName string) document.Section {
	text := strings.Join(b.parts, "\n")
	title := b.first.Text
	if !b.heading {
		title = truncateTitle(text, maxTitleRunes)
	}
	return document.Section{
		Document:  docName,
		PageIndex: b.first.Page,
		Title:     strings.TrimSpace(title),
		Text:      text,
		Heading:   b.heading,
	}
}

// isHeading reports whether a block's font size exceeds the body font by
// the configured margin.
func isHeading(block document.TextBlock, bodyFont, ratio float64) bool {
	if bodyFont <= 0 {
		return false
	}
	return block.FontSize >= bodyFont*ratio
}

// truncateTitle derives a title from a section's leading words.
func truncateTitle(text string, maxRunes int) string {
	line := text
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	line = strings.TrimSpace(line)
	runes := []rune(line)
	if len(runes) <= maxRunes {
		return line
	}
	truncated := strings.TrimSpace(string(runes[:maxRunes]))
	// Cut back to the last whole word.
	if idx := strings.LastIndexByte(truncated, ' '); idx > 0 {
		truncated = truncated[:idx]
	}
	return truncated + "..."
}

// medianGap computes the median vertical gap between consecutive blocks on
// the same page, across the whole document. Negative gaps (overlapping or
// re-ordered boxes) are ignored.
func medianGap(doc *document.Document) float64 {
	var gaps []float64
	for _, page := range doc.Pages {
		for i := 1; i < len(page.Blocks); i++ {
			gap := page.Blocks[i].Y0 - page.Blocks[i-1].Y1
			if gap >= 0 {
				gaps = append(gaps, gap)
			}
		}
	}
	if len(gaps) == 0 {
		// A document of single-block pages has no line spacing to
		// measure; fall back to a typical line height.
		return 12
	}
	return median(gaps)
}

// medianFontSize computes the document's median block font size, the
// baseline for heading detection.
func medianFontSize(doc *document.Document) float64 {
	var sizes []float64
	for _, page := range doc.Pages {
		for _, b := range page.Blocks {
			if b.FontSize > 0 {
				sizes = append(sizes, b.FontSize)
			}
		}
	}
	if len(sizes) == 0 {
		return 0
	}
	return median(sizes)
}

func median(vals []float64) float64 {
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
