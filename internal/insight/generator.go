package insight

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/sectiond/internal/document"
	"github.com/fyrsmithlabs/sectiond/internal/terms"
)

// Config holds the insight generation tunables.
type Config struct {
	// SummarySentences is the number of highest-scoring sentences kept in
	// the extractive summary.
	SummarySentences int `koanf:"summary_sentences"`

	// MaxSummaryChars caps the summary length in bytes; the summary is
	// cut back to a sentence boundary under this limit.
	MaxSummaryChars int `koanf:"max_summary_chars"`

	// MaxKeywords caps the keyword list length.
	MaxKeywords int `koanf:"max_keywords"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.SummarySentences == 0 {
		c.SummarySentences = 3
	}
	if c.MaxSummaryChars == 0 {
		c.MaxSummaryChars = 600
	}
	if c.MaxKeywords == 0 {
		c.MaxKeywords = 5
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.SummarySentences < 1 {
		return fmt.Errorf("summary sentences must be positive, got %d", c.SummarySentences)
	}
	if c.MaxSummaryChars < 1 {
		return fmt.Errorf("max summary chars must be positive, got %d", c.MaxSummaryChars)
	}
	if c.MaxKeywords < 1 {
		return fmt.Errorf("max keywords must be positive, got %d", c.MaxKeywords)
	}
	return nil
}

// Generator produces refined text and keywords for sections.
type Generator struct {
	config Config
}

// NewGenerator creates a generator with the given configuration.
func NewGenerator(config Config) (*Generator, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &Generator{config: config}, nil
}

// Enrich fills a section's RefinedText and Keywords in place.
func (g *Generator) Enrich(sec *document.Section) {
	sec.RefinedText = g.Summarize(sec.Text)
	sec.Keywords = g.Keywords(sec.Text)
}

// Summarize builds an extractive summary: the section's highest-scoring
// sentences by term frequency against the section's own vocabulary, in
// their original order, capped at the configured length.
func (g *Generator) Summarize(text string) string {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return ""
	}

	// Frequency of each significant stem across the whole section.
	freq := make(map[string]int)
	for _, tok := range terms.Significant(text) {
		freq[terms.Stem(tok)]++
	}

	type ranked struct {
		index int
		score float64
	}
	scores := make([]ranked, len(sentences))
	for i, sent := range sentences {
		toks := terms.Significant(sent)
		var total int
		for _, tok := range toks {
			total += freq[terms.Stem(tok)]
		}
		score := 0.0
		if len(toks) > 0 {
			// Average rather than sum, so long sentences do not win by
			// length alone.
			score = float64(total) / float64(len(toks))
		}
		scores[i] = ranked{index: i, score: score}
	}

	keep := g.config.SummarySentences
	if keep > len(scores) {
		keep = len(scores)
	}
	sort.SliceStable(scores, func(a, b int) bool { return scores[a].score > scores[b].score })
	top := scores[:keep]
	// Restore original sentence order.
	sort.Slice(top, func(a, b int) bool { return top[a].index < top[b].index })

	var sb strings.Builder
	for _, r := range top {
		sent := sentences[r.index]
		if sb.Len() > 0 {
			if sb.Len()+1+len(sent) > g.config.MaxSummaryChars {
				break
			}
			sb.WriteByte(' ')
		} else if len(sent) > g.config.MaxSummaryChars {
			return truncateRunes(sent, g.config.MaxSummaryChars)
		}
		sb.WriteString(sent)
	}
	return sb.String()
}

// Keywords extracts the section's top distinct significant terms by
// frequency, deduplicated and length-capped.
func (g *Generator) Keywords(text string) []string {
	freq := make(map[string]int)
	var order []string
	for _, tok := range terms.Significant(text) {
		if freq[tok] == 0 {
			order = append(order, tok)
		}
		freq[tok]++
	}
	if len(order) == 0 {
		return nil
	}

	// Stable: frequency descending, first appearance breaking ties.
	sort.SliceStable(order, func(a, b int) bool {
		return freq[order[a]] > freq[order[b]]
	})

	if len(order) > g.config.MaxKeywords {
		order = order[:g.config.MaxKeywords]
	}
	return order
}

// SplitSentences splits text into sentences on terminal punctuation
// followed by whitespace. Newlines between blocks also terminate a
// sentence, since extracted layout text often omits punctuation at block
// boundaries.
func SplitSentences(text string) []string {
	var sentences []string
	var cur strings.Builder

	flush := func() {
		s := strings.TrimSpace(cur.String())
		if s != "" {
			sentences = append(sentences, s)
		}
		cur.Reset()
	}

	runes := []rune(text)
	for i, r := range runes {
		if r == '\n' {
			flush()
			continue
		}
		cur.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if i+1 >= len(runes) || runes[i+1] == ' ' || runes[i+1] == '\t' || runes[i+1] == '\n' {
				flush()
			}
		}
	}
	flush()

	return sentences
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max]))
}
