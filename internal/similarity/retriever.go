package similarity

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sectiond/internal/document"
	"github.com/fyrsmithlabs/sectiond/internal/scoring"
)

// Config holds the retrieval tunables.
type Config struct {
	// Floor is the minimum similarity score (on the rescaled [0,1]
	// cosine scale) a section must reach to be surfaced. An unrelated
	// corpus yields an empty result, not low-relevance noise.
	Floor float64 `koanf:"floor"`

	// MaxResults caps the result list length.
	MaxResults int `koanf:"max_results"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Floor == 0 {
		c.Floor = 0.35
	}
	if c.MaxResults == 0 {
		c.MaxResults = 10
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Floor < 0 || c.Floor > 1 {
		return fmt.Errorf("floor must be in [0,1], got %v", c.Floor)
	}
	if c.MaxResults < 1 {
		return fmt.Errorf("max results must be positive, got %d", c.MaxResults)
	}
	return nil
}

// Entry is one indexed section with its embedding.
type Entry struct {
	Section *document.Section
	Vector  []float32
}

// Retriever ranks corpus entries against a probe vector.
type Retriever struct {
	config Config
	logger *zap.Logger
}

// NewRetriever creates a retriever with the given configuration.
func NewRetriever(config Config, logger *zap.Logger) (*Retriever, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{config: config, logger: logger}, nil
}

// Retrieve returns the corpus entries semantically close to the seed,
// ordered by descending similarity. The section whose text body equals
// seedText is excluded so probing with an indexed section never returns
// the section itself. The result may be empty.
func (r *Retriever) Retrieve(seedText string, seedVec []float32, corpus []Entry) []document.SimilarSection {
	results := make([]document.SimilarSection, 0, len(corpus))
	for _, entry := range corpus {
		if entry.Section.Text == seedText {
			continue
		}
		score := (scoring.Cosine(seedVec, entry.Vector) + 1) / 2
		if score < r.config.Floor {
			continue
		}
		results = append(results, document.SimilarSection{
			Document:  entry.Section.Document,
			PageIndex: entry.Section.PageIndex,
			Title:     entry.Section.Title,
			Score:     score,
		})
	}

	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Score > results[b].Score
	})

	if len(results) > r.config.MaxResults {
		results = results[:r.config.MaxResults]
	}

	r.logger.Debug("similarity retrieval",
		zap.Int("corpus", len(corpus)),
		zap.Int("results", len(results)),
		zap.Float64("floor", r.config.Floor))

	return results
}
