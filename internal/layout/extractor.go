package layout

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sectiond/internal/document"
)

// ErrUnreadablePDF is returned for documents that are encrypted, corrupt,
// or contain no extractable text blocks (e.g. pure scanned images).
var ErrUnreadablePDF = errors.New("unreadable pdf")

// Fallback page dimensions (US Letter) when a page carries no MediaBox.
const (
	defaultPageWidth  = 612.0
	defaultPageHeight = 792.0
)

// Extractor turns raw PDF bytes into positioned text blocks.
type Extractor struct {
	logger *zap.Logger
}

// NewExtractor creates a layout extractor. A nil logger falls back to a
// no-op logger.
func NewExtractor(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger}
}

// Extract parses one PDF document's bytes into an ordered Page -> TextBlock
// structure. Reading order within a page is top-to-bottom, then
// left-to-right for blocks on the same baseline.
func (e *Extractor) Extract(ctx context.Context, name string, data []byte) (doc *document.Document, err error) {
	// The underlying PDF parser panics on some malformed content streams.
	// A panic here means the document is unreadable, not that the request
	// should crash.
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("pdf parser panic",
				zap.String("document", name),
				zap.Any("panic", r))
			doc = nil
			err = fmt.Errorf("%w: %s: malformed content", ErrUnreadablePDF, name)
		}
	}()

	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s: empty file", ErrUnreadablePDF, name)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadablePDF, name, err)
	}

	doc = &document.Document{Name: name}
	pageCount := reader.NumPage()

	for i := 1; i <= pageCount; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		p := reader.Page(i)
		if p.V.IsNull() {
			continue
		}

		width, height := pageSize(p)
		blocks := e.extractBlocks(p, i-1, height)

		doc.Pages = append(doc.Pages, document.Page{
			Index:  i - 1,
			Width:  width,
			Height: height,
			Blocks: blocks,
		})
	}

	if doc.BlockCount() == 0 {
		return nil, fmt.Errorf("%w: %s: no extractable text", ErrUnreadablePDF, name)
	}

	e.logger.Debug("document extracted",
		zap.String("document", name),
		zap.Int("pages", len(doc.Pages)),
		zap.Int("blocks", doc.BlockCount()))

	return doc, nil
}

// extractBlocks collects a page's text fragments, groups them into lines by
// baseline proximity, and converts each line into a TextBlock with a
// top-left-origin bounding box.
func (e *Extractor) extractBlocks(p pdf.Page, pageIndex int, pageHeight float64) []document.TextBlock {
	content := p.Content()

	frags := make([]pdf.Text, 0, len(content.Text))
	for _, t := range content.Text {
		if strings.TrimSpace(t.S) == "" && t.S != " " {
			continue
		}
		frags = append(frags, t)
	}
	if len(frags) == 0 {
		return nil
	}

	// Sort by baseline from top of page (PDF Y grows upward), then X.
	sort.SliceStable(frags, func(i, j int) bool {
		if frags[i].Y != frags[j].Y {
			return frags[i].Y > frags[j].Y
		}
		return frags[i].X < frags[j].X
	})

	var blocks []document.TextBlock
	var line []pdf.Text
	for _, t := range frags {
		if len(line) == 0 {
			line = append(line, t)
			continue
		}
		if sameBaseline(line[0], t) {
			line = append(line, t)
			continue
		}
		if b, ok := lineToBlock(line, pageIndex, pageHeight); ok {
			blocks = append(blocks, b)
		}
		line = line[:0]
		line = append(line, t)
	}
	if b, ok := lineToBlock(line, pageIndex, pageHeight); ok {
		blocks = append(blocks, b)
	}

	return blocks
}

// sameBaseline reports whether two fragments sit on the same text line.
// Tolerance scales with font size so tightly-set small text does not merge
// with its neighbours.
func sameBaseline(a, b pdf.Text) bool {
	tol := 0.3 * a.FontSize
	if tol < 2.0 {
		tol = 2.0
	}
	d := a.Y - b.Y
	if d < 0 {
		d = -d
	}
	return d <= tol
}

// lineToBlock merges one line's fragments into a TextBlock. Fragments are
// already X-sorted; a space is inserted where the glyph positions show a
// visible horizontal gap and neither side carries one.
func lineToBlock(line []pdf.Text, pageIndex int, pageHeight float64) (document.TextBlock, bool) {
	if len(line) == 0 {
		return document.TextBlock{}, false
	}

	sort.SliceStable(line, func(i, j int) bool { return line[i].X < line[j].X })

	var sb strings.Builder
	x0, x1 := line[0].X, line[0].X+line[0].W
	fontSize := line[0].FontSize
	baseline := line[0].Y

	prevEnd := line[0].X
	for i, t := range line {
		if i > 0 {
			gap := t.X - prevEnd
			if gap > 1.0 && !strings.HasSuffix(sb.String(), " ") && !strings.HasPrefix(t.S, " ") {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(t.S)
		if t.X < x0 {
			x0 = t.X
		}
		if end := t.X + t.W; end > x1 {
			x1 = end
		}
		if t.FontSize > fontSize {
			fontSize = t.FontSize
		}
		prevEnd = t.X + t.W
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return document.TextBlock{}, false
	}

	// Convert the baseline to a top-left-origin box. The ascender height is
	// approximated by the font size.
	y1 := pageHeight - baseline
	y0 := y1 - fontSize
	if y0 < 0 {
		y0 = 0
	}

	return document.TextBlock{
		Text:     text,
		X0:       x0,
		Y0:       y0,
		X1:       x1,
		Y1:       y1,
		FontSize: fontSize,
		Page:     pageIndex,
	}, true
}

// pageSize resolves the page MediaBox, walking the page tree for inherited
// values, and falls back to US Letter.
func pageSize(p pdf.Page) (width, height float64) {
	v := p.V
	for !v.IsNull() {
		if mb := v.Key("MediaBox"); !mb.IsNull() && mb.Len() == 4 {
			w := mb.Index(2).Float64() - mb.Index(0).Float64()
			h := mb.Index(3).Float64() - mb.Index(1).Float64()
			if w > 0 && h > 0 {
				return w, h
			}
		}
		v = v.Key("Parent")
	}
	return defaultPageWidth, defaultPageHeight
}
