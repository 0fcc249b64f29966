package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sectiond/internal/document"
	"github.com/fyrsmithlabs/sectiond/internal/embeddings"
	"github.com/fyrsmithlabs/sectiond/internal/insight"
	"github.com/fyrsmithlabs/sectiond/internal/layout"
	"github.com/fyrsmithlabs/sectiond/internal/scoring"
	"github.com/fyrsmithlabs/sectiond/internal/similarity"
)

// timeNow is a variable for testing purposes (allows mocking time).
var timeNow = time.Now

// Extractor turns one document's raw bytes into positioned pages.
// *layout.Extractor is the production implementation.
type Extractor interface {
	Extract(ctx context.Context, name string, data []byte) (*document.Document, error)
}

// Segmenter partitions an extracted document into sections.
// *segment.Segmenter is the production implementation.
type Segmenter interface {
	Segment(doc *document.Document) []document.Section
}

// Engine is the document-intelligence engine. It is stateless per request
// except for the shared embedding cache and the corpus index kept for
// FindSimilar.
type Engine struct {
	config    Config
	extractor Extractor
	segmenter Segmenter
	embedder  embeddings.Provider
	scorer    *scoring.Scorer
	insights  *insight.Generator
	retriever *similarity.Retriever
	logger    *zap.Logger

	// corpus is the index of the most recent successful Process call,
	// replaced atomically so FindSimilar always sees a complete corpus.
	mu     sync.RWMutex
	corpus []similarity.Entry
}

// New creates an engine from its collaborators. The embedder is injected
// so cache behavior is testable with a fake provider.
func New(
	config Config,
	extractor Extractor,
	segmenter Segmenter,
	embedder embeddings.Provider,
	scorer *scoring.Scorer,
	insights *insight.Generator,
	retriever *similarity.Retriever,
	logger *zap.Logger,
) (*Engine, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if extractor == nil || segmenter == nil || embedder == nil || scorer == nil || insights == nil || retriever == nil {
		return nil, fmt.Errorf("all engine collaborators are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		config:    config,
		extractor: extractor,
		segmenter: segmenter,
		embedder:  embedder,
		scorer:    scorer,
		insights:  insights,
		retriever: retriever,
		logger:    logger,
	}, nil
}

// docResult is the tagged per-document outcome: sections with their
// vectors, or a failure reason. Failures never cross document boundaries.
type docResult struct {
	order    int
	name     string
	sections []*document.Section
	vectors  [][]float32
	err      error
}

// Process ingests the documents, ranks all extracted sections against the
// persona/job query, and enriches each ranked section with a summary and
// keywords.
//
// Per-document failures (unreadable PDF, timeout) are reported as warnings
// and the remaining documents still rank: partial-corpus results are
// preferred over an all-or-nothing failure. Zero surviving sections is a
// valid outcome with an empty ranked list. Only an empty query is fatal.
func (e *Engine) Process(ctx context.Context, docs []DocumentInput, persona, job string) (*ProcessResult, error) {
	query := document.Query{
		Persona: document.ParsePersona(persona),
		Job:     job,
	}
	if query.Empty() {
		return nil, fmt.Errorf("%w: persona and job are both empty", ErrInvalidQuery)
	}

	started := timeNow()
	results := e.processDocuments(ctx, docs)

	var warnings []document.Warning
	var candidates []scoring.Candidate
	var corpus []similarity.Entry
	for _, res := range results {
		if res.err != nil {
			e.logger.Warn("document failed",
				zap.String("document", res.name),
				zap.Error(res.err))
			warnings = append(warnings, document.Warning{
				Document: res.name,
				Reason:   res.err.Error(),
			})
			continue
		}
		for i, sec := range res.sections {
			candidates = append(candidates, scoring.Candidate{
				Section: sec,
				Vector:  res.vectors[i],
				Order:   res.order,
			})
			corpus = append(corpus, similarity.Entry{
				Section: sec,
				Vector:  res.vectors[i],
			})
		}
	}

	queryVec := e.embedQuery(ctx, query)

	ranked := e.scorer.Rank(query, queryVec, candidates)
	for i := range ranked {
		e.insights.Enrich(ranked[i].Section)
	}

	// Publish the corpus for follow-on FindSimilar calls only once it is
	// complete.
	e.mu.Lock()
	e.corpus = corpus
	e.mu.Unlock()

	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = d.Name
	}

	e.logger.Info("request processed",
		zap.Int("documents", len(docs)),
		zap.Int("sections", len(ranked)),
		zap.Int("warnings", len(warnings)),
		zap.Duration("duration", time.Since(started)))

	return &ProcessResult{
		Metadata: Metadata{
			InputDocuments: names,
			Persona:        query.Persona,
			Job:            query.Job,
			ProcessedAt:    started,
		},
		Sections: ranked,
		Warnings: warnings,
	}, nil
}

// processDocuments runs per-document work in a bounded pool and collects
// tagged results in input order. Request cancellation stops scheduling
// further documents; already-started ones run to completion.
func (e *Engine) processDocuments(ctx context.Context, docs []DocumentInput) []docResult {
	results := make([]docResult, len(docs))
	sem := make(chan struct{}, e.config.Workers)
	var wg sync.WaitGroup

	for i, input := range docs {
		if ctx.Err() != nil {
			results[i] = docResult{order: i, name: input.Name, err: ctx.Err()}
			continue
		}
		select {
		case <-ctx.Done():
			results[i] = docResult{order: i, name: input.Name, err: ctx.Err()}
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(order int, input DocumentInput) {
			defer wg.Done()
			defer func() { <-sem }()
			results[order] = e.processOne(ctx, order, input)
		}(i, input)
	}
	wg.Wait()

	return results
}

// processOne extracts, segments, and embeds a single document under its
// timeout budget.
func (e *Engine) processOne(ctx context.Context, order int, input DocumentInput) docResult {
	ctx, cancel := context.WithTimeout(ctx, e.config.DocumentTimeout)
	defer cancel()

	res := docResult{order: order, name: input.Name}

	doc, err := e.extractor.Extract(ctx, input.Name, input.Data)
	if err != nil {
		res.err = classify(input.Name, err)
		return res
	}

	sections := e.segmenter.Segment(doc)
	if len(sections) == 0 {
		res.err = fmt.Errorf("%w: %s: no sections", layout.ErrUnreadablePDF, input.Name)
		return res
	}

	texts := make([]string, len(sections))
	ptrs := make([]*document.Section, len(sections))
	for i := range sections {
		sections[i].ID = uuid.NewString()
		texts[i] = sections[i].Text
		ptrs[i] = &sections[i]
	}

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		res.err = classify(input.Name, err)
		return res
	}
	if len(vectors) != len(texts) {
		res.err = fmt.Errorf("embedding %s: got %d vectors for %d sections", input.Name, len(vectors), len(texts))
		return res
	}

	res.sections = ptrs
	res.vectors = vectors
	return res
}

// embedQuery embeds the combined query text. On failure the ranking falls
// back to keyword-only ordering (a nil vector gives every section the same
// neutral semantic score), mirroring the partial-continuation policy.
func (e *Engine) embedQuery(ctx context.Context, q document.Query) []float32 {
	vec, err := e.embedder.EmbedQuery(ctx, q.Combined())
	if err != nil {
		e.logger.Warn("query embedding failed, ranking on keywords only", zap.Error(err))
		return nil
	}
	return vec
}

// FindSimilar resolves the seed text against the engine's indexed corpus
// and returns all sections semantically close to it, ranked by descending
// similarity. The seed section itself (matched by exact text-body
// equality) is never returned. An empty list is a valid answer.
func (e *Engine) FindSimilar(ctx context.Context, sourceText string) ([]document.SimilarSection, error) {
	if sourceText == "" {
		return nil, fmt.Errorf("%w: source text is empty", ErrInvalidQuery)
	}

	e.mu.RLock()
	corpus := e.corpus
	e.mu.RUnlock()
	if len(corpus) == 0 {
		return nil, ErrNoCorpus
	}

	// Embed the seed in document space: section-to-section comparison,
	// not query-to-document.
	vecs, err := e.embedder.EmbedDocuments(ctx, []string{sourceText})
	if err != nil {
		return nil, fmt.Errorf("embedding seed text: %w", err)
	}

	return e.retriever.Retrieve(sourceText, vecs[0], corpus), nil
}

// Corpus returns a snapshot of the indexed sections in rank order, for
// diagnostics.
func (e *Engine) Corpus() []*document.Section {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*document.Section, len(e.corpus))
	for i, entry := range e.corpus {
		out[i] = entry.Section
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].ImportanceRank < out[b].ImportanceRank
	})
	return out
}

// classify maps a per-document failure to the engine's error taxonomy.
func classify(name string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %s", ErrTimeout, name)
	case errors.Is(err, layout.ErrUnreadablePDF):
		return err
	default:
		return fmt.Errorf("processing %s: %w", name, err)
	}
}
