package scoring

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sectiond/internal/document"
	"github.com/fyrsmithlabs/sectiond/internal/terms"
)

// scoreEpsilon is the floating-point tolerance within which two combined
// scores count as tied.
const scoreEpsilon = 1e-9

// Config holds the scoring weights.
type Config struct {
	// KeywordWeight scales the lexical overlap component.
	KeywordWeight float64 `koanf:"keyword_weight"`

	// SemanticWeight scales the embedding similarity component. The
	// semantic signal carries more of the ranking by default; keyword
	// overlap acts as a tie-sensitive baseline.
	SemanticWeight float64 `koanf:"semantic_weight"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.KeywordWeight == 0 && c.SemanticWeight == 0 {
		c.KeywordWeight = 0.4
		c.SemanticWeight = 0.6
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.KeywordWeight < 0 || c.SemanticWeight < 0 {
		return fmt.Errorf("weights must be non-negative, got keyword=%v semantic=%v", c.KeywordWeight, c.SemanticWeight)
	}
	if c.KeywordWeight+c.SemanticWeight == 0 {
		return fmt.Errorf("at least one weight must be positive")
	}
	return nil
}

// Candidate pairs a section with its embedding and ingestion order for
// scoring. Order is the position of the section's document in the upload
// sequence, used only for deterministic tie-breaking.
type Candidate struct {
	Section *document.Section
	Vector  []float32
	Order   int
}

// Scorer computes hybrid relevance scores.
type Scorer struct {
	config Config
	logger *zap.Logger
}

// NewScorer creates a scorer with the given weights.
func NewScorer(config Config, logger *zap.Logger) (*Scorer, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{config: config, logger: logger}, nil
}

// QueryTerms extracts the distinct stemmed focus terms of a query: the
// persona's stated focus areas plus the significant words of the job
// string.
func QueryTerms(q document.Query) map[string]struct{} {
	tokens := terms.Significant(q.Job)
	tokens = append(tokens, terms.Significant(q.Persona.FocusAreas)...)
	return terms.StemSet(tokens)
}

// Rank scores every candidate against the query and returns them in
// descending score order with ImportanceRank assigned 1..N across the
// whole corpus. An empty candidate set yields an empty (non-nil-error)
// result.
//
// Ties within floating-point tolerance are broken by higher keyword
// score, then document ingestion order, then lower starting page index.
func (s *Scorer) Rank(q document.Query, queryVec []float32, candidates []Candidate) []document.ScoredSection {
	if len(candidates) == 0 {
		return []document.ScoredSection{}
	}

	queryTerms := QueryTerms(q)

	scored := make([]document.ScoredSection, len(candidates))
	order := make([]int, len(candidates))
	for i, cand := range candidates {
		kw := s.KeywordScore(queryTerms, cand.Section.Text)
		sem := s.SemanticScore(queryVec, cand.Vector)
		scored[i] = document.ScoredSection{
			Section:       cand.Section,
			Score:         s.Combine(kw, sem),
			KeywordScore:  kw,
			SemanticScore: sem,
		}
		order[i] = cand.Order
	}

	idx := make([]int, len(scored))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		sa, sb := scored[idx[a]], scored[idx[b]]
		if d := sa.Score - sb.Score; d > scoreEpsilon || d < -scoreEpsilon {
			return sa.Score > sb.Score
		}
		if sa.KeywordScore != sb.KeywordScore {
			return sa.KeywordScore > sb.KeywordScore
		}
		if order[idx[a]] != order[idx[b]] {
			return order[idx[a]] < order[idx[b]]
		}
		return sa.Section.PageIndex < sb.Section.PageIndex
	})

	out := make([]document.ScoredSection, len(idx))
	for rank, i := range idx {
		out[rank] = scored[i]
		out[rank].Section.ImportanceRank = rank + 1
	}

	s.logger.Debug("corpus ranked",
		zap.Int("sections", len(out)),
		zap.Int("query_terms", len(queryTerms)))

	return out
}

// KeywordScore computes the normalized overlap between the query's focus
// terms and the section text: matched distinct terms over total distinct
// query terms, in [0,1]. Comparison is case-insensitive on stems.
func (s *Scorer) KeywordScore(queryTerms map[string]struct{}, text string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}
	sectionTerms := terms.StemSet(terms.Significant(text))
	matched := 0
	for term := range queryTerms {
		if _, ok := sectionTerms[term]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTerms))
}

// SemanticScore computes cosine similarity between the query and section
// embeddings, rescaled from [-1,1] to [0,1].
func (s *Scorer) SemanticScore(queryVec, sectionVec []float32) float64 {
	cos := Cosine(queryVec, sectionVec)
	score := (cos + 1) / 2
	return clamp01(score)
}

// Combine applies the configured weights, normalized so the result stays
// in [0,1] whatever the weights sum to.
func (s *Scorer) Combine(keyword, semantic float64) float64 {
	total := s.config.KeywordWeight + s.config.SemanticWeight
	return (s.config.KeywordWeight*keyword + s.config.SemanticWeight*semantic) / total
}

// Cosine computes cosine similarity between two vectors. Mismatched or
// zero-magnitude vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Guard against accumulated float error pushing past the bounds.
	if cos > 1 {
		cos = 1
	}
	if cos < -1 {
		cos = -1
	}
	return cos
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
