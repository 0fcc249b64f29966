package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sectiond/internal/document"
	"github.com/fyrsmithlabs/sectiond/internal/insight"
	"github.com/fyrsmithlabs/sectiond/internal/layout"
	"github.com/fyrsmithlabs/sectiond/internal/scoring"
	"github.com/fyrsmithlabs/sectiond/internal/similarity"
)

// fakeExtractor parses the test document format: each uploaded "PDF" is
// plain text whose lines become one block each on a single page.
// A document named unreadable* fails the way a corrupt PDF does.
type fakeExtractor struct{}

func (fakeExtractor) Extract(_ context.Context, name string, data []byte) (*document.Document, error) {
	if strings.HasPrefix(name, "unreadable") {
		return nil, fmt.Errorf("%w: %s", layout.ErrUnreadablePDF, name)
	}
	page := document.Page{Width: 612, Height: 792}
	y := 72.0
	for _, line := range strings.Split(string(data), "\n") {
		page.Blocks = append(page.Blocks, document.TextBlock{
			Text: line, Y0: y, Y1: y + 10, FontSize: 10,
		})
		y += 12
	}
	return &document.Document{Name: name, Pages: []document.Page{page}}, nil
}

// fakeSegmenter emits one section per non-empty block.
type fakeSegmenter struct{}

func (fakeSegmenter) Segment(doc *document.Document) []document.Section {
	if doc == nil {
		return nil
	}
	var sections []document.Section
	for _, page := range doc.Pages {
		for _, b := range page.Blocks {
			if strings.TrimSpace(b.Text) == "" {
				continue
			}
			sections = append(sections, document.Section{
				Document:  doc.Name,
				PageIndex: page.Index,
				Title:     b.Text,
				Text:      b.Text,
			})
		}
	}
	return sections
}

// fakeEmbedder maps text onto a 2-dim vector from a fixture table so
// tests control semantic geometry exactly. Unlisted text embeds to a
// fixed off-axis direction.
type fakeEmbedder struct {
	mu        sync.Mutex
	vectors   map[string][]float32
	docErr    error
	queryErr  error
	docCalls  int
	docTexts  []string
	queryText string
}

func (f *fakeEmbedder) vectorFor(text string) []float32 {
	if v, ok := f.vectors[text]; ok {
		return v
	}
	return []float32{0.3, 0.7}
}

func (f *fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.docErr != nil {
		return nil, f.docErr
	}
	f.docCalls++
	f.docTexts = append(f.docTexts, texts...)
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = f.vectorFor(text)
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	f.queryText = text
	return []float32{1, 0}, nil
}

func (f *fakeEmbedder) Dimension() int { return 2 }
func (f *fakeEmbedder) Close() error   { return nil }

func newTestEngine(t *testing.T, emb *fakeEmbedder) *Engine {
	t.Helper()

	scorer, err := scoring.NewScorer(scoring.Config{}, zap.NewNop())
	require.NoError(t, err)
	gen, err := insight.NewGenerator(insight.Config{})
	require.NoError(t, err)
	ret, err := similarity.NewRetriever(similarity.Config{}, zap.NewNop())
	require.NoError(t, err)

	eng, err := New(Config{Workers: 2}, fakeExtractor{}, fakeSegmenter{}, emb, scorer, gen, ret, zap.NewNop())
	require.NoError(t, err)
	return eng
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Config{}, nil, nil, nil, nil, nil, nil, zap.NewNop())
	assert.Error(t, err)
}

func TestProcess_EmptyQueryIsFatal(t *testing.T) {
	eng := newTestEngine(t, &fakeEmbedder{})

	_, err := eng.Process(context.Background(), nil, "", "   ")
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestProcess_RanksAcrossDocuments(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"Renewable energy storage options.": {1, 0},
		"Unrelated cooking recipe.":         {-1, 0},
		"Grid scale battery storage.":       {0.9, 0.1},
	}}
	eng := newTestEngine(t, emb)

	docs := []DocumentInput{
		{Name: "cooking.pdf", Data: []byte("Unrelated cooking recipe.")},
		{Name: "energy.pdf", Data: []byte("Renewable energy storage options.\nGrid scale battery storage.")},
	}

	res, err := eng.Process(context.Background(), docs, "Energy analyst", "evaluate renewable storage")
	require.NoError(t, err)
	require.Len(t, res.Sections, 3)
	assert.Empty(t, res.Warnings)

	// The storage sections outrank the recipe, and ranks are a total
	// order 1..N over the whole corpus.
	assert.Equal(t, "energy.pdf", res.Sections[0].Section.Document)
	assert.Equal(t, "cooking.pdf", res.Sections[2].Section.Document)
	for i, sec := range res.Sections {
		assert.Equal(t, i+1, sec.Section.ImportanceRank)
		assert.GreaterOrEqual(t, sec.Score, 0.0)
		assert.LessOrEqual(t, sec.Score, 1.0)
	}

	// Metadata reflects the request.
	assert.Equal(t, []string{"cooking.pdf", "energy.pdf"}, res.Metadata.InputDocuments)
	assert.Equal(t, "evaluate renewable storage", res.Metadata.Job)
	assert.False(t, res.Metadata.ProcessedAt.IsZero())
}

func TestProcess_EnrichesSections(t *testing.T) {
	eng := newTestEngine(t, &fakeEmbedder{})

	docs := []DocumentInput{
		{Name: "doc.pdf", Data: []byte("Battery recycling recovers lithium and cobalt from spent cells.")},
	}

	res, err := eng.Process(context.Background(), docs, "Analyst", "battery recycling")
	require.NoError(t, err)
	require.Len(t, res.Sections, 1)

	sec := res.Sections[0].Section
	assert.NotEmpty(t, sec.RefinedText)
	assert.NotEmpty(t, sec.Keywords)
	assert.NotEmpty(t, sec.ID)
}

func TestProcess_UnreadableDocumentBecomesWarning(t *testing.T) {
	eng := newTestEngine(t, &fakeEmbedder{})

	docs := []DocumentInput{
		{Name: "unreadable.pdf", Data: []byte("ignored")},
		{Name: "good.pdf", Data: []byte("Useful section content here.")},
	}

	res, err := eng.Process(context.Background(), docs, "Analyst", "useful content")
	require.NoError(t, err)

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "unreadable.pdf", res.Warnings[0].Document)
	require.Len(t, res.Sections, 1)
	assert.Equal(t, "good.pdf", res.Sections[0].Section.Document)
}

func TestProcess_AllDocumentsUnreadable(t *testing.T) {
	eng := newTestEngine(t, &fakeEmbedder{})

	docs := []DocumentInput{
		{Name: "unreadable-1.pdf"},
		{Name: "unreadable-2.pdf"},
	}

	res, err := eng.Process(context.Background(), docs, "Analyst", "anything")
	require.NoError(t, err)
	assert.Empty(t, res.Sections)
	assert.Len(t, res.Warnings, 2)
}

func TestProcess_NoDocumentsIsValid(t *testing.T) {
	eng := newTestEngine(t, &fakeEmbedder{})

	res, err := eng.Process(context.Background(), nil, "Analyst", "anything")
	require.NoError(t, err)
	assert.Empty(t, res.Sections)
	assert.Empty(t, res.Warnings)
}

func TestProcess_QueryEmbedFailureFallsBackToKeywords(t *testing.T) {
	emb := &fakeEmbedder{queryErr: fmt.Errorf("model offline")}
	eng := newTestEngine(t, emb)

	docs := []DocumentInput{
		{Name: "doc.pdf", Data: []byte("Hydrogen pipelines carry hydrogen.\nPure filler text elsewhere.")},
	}

	res, err := eng.Process(context.Background(), docs, "Analyst", "hydrogen pipelines")
	require.NoError(t, err)
	require.Len(t, res.Sections, 2)

	// Keyword overlap alone decides the order.
	assert.Contains(t, res.Sections[0].Section.Text, "Hydrogen")
	assert.Greater(t, res.Sections[0].KeywordScore, res.Sections[1].KeywordScore)
}

func TestProcess_EmbeddingFailureIsPerDocument(t *testing.T) {
	emb := &fakeEmbedder{docErr: fmt.Errorf("backend down")}
	eng := newTestEngine(t, emb)

	docs := []DocumentInput{
		{Name: "doc.pdf", Data: []byte("Some content.")},
	}

	res, err := eng.Process(context.Background(), docs, "Analyst", "content")
	require.NoError(t, err)
	assert.Empty(t, res.Sections)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "doc.pdf", res.Warnings[0].Document)
}

func TestProcess_Deterministic(t *testing.T) {
	docs := []DocumentInput{
		{Name: "a.pdf", Data: []byte("Solar capacity grows.\nWind capacity grows.")},
		{Name: "b.pdf", Data: []byte("Grid interconnection queues.")},
	}

	run := func() *ProcessResult {
		eng := newTestEngine(t, &fakeEmbedder{})
		res, err := eng.Process(context.Background(), docs, "Analyst", "capacity growth")
		require.NoError(t, err)
		return res
	}

	first, second := run(), run()
	require.Equal(t, len(first.Sections), len(second.Sections))
	for i := range first.Sections {
		assert.Equal(t, first.Sections[i].Section.Text, second.Sections[i].Section.Text)
		assert.Equal(t, first.Sections[i].Section.ImportanceRank, second.Sections[i].Section.ImportanceRank)
		assert.InDelta(t, first.Sections[i].Score, second.Sections[i].Score, 1e-12)
	}
}

func TestProcess_CancelledContext(t *testing.T) {
	eng := newTestEngine(t, &fakeEmbedder{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	docs := []DocumentInput{{Name: "doc.pdf", Data: []byte("content")}}
	res, err := eng.Process(ctx, docs, "Analyst", "content")
	require.NoError(t, err)
	assert.Empty(t, res.Sections)
	assert.Len(t, res.Warnings, 1)
}

func TestFindSimilar(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"Renewable energy storage options.": {1, 0},
		"Grid scale battery storage.":       {0.95, 0.05},
		"Unrelated cooking recipe.":         {-1, 0},
	}}
	eng := newTestEngine(t, emb)

	docs := []DocumentInput{
		{Name: "energy.pdf", Data: []byte("Renewable energy storage options.\nGrid scale battery storage.")},
		{Name: "cooking.pdf", Data: []byte("Unrelated cooking recipe.")},
	}
	_, err := eng.Process(context.Background(), docs, "Analyst", "storage")
	require.NoError(t, err)

	got, err := eng.FindSimilar(context.Background(), "Renewable energy storage options.")
	require.NoError(t, err)

	// The seed section is excluded; the cooking section is below the
	// similarity floor.
	require.Len(t, got, 1)
	assert.Equal(t, "Grid scale battery storage.", got[0].Title)
	assert.Equal(t, "energy.pdf", got[0].Document)
}

func TestFindSimilar_NoCorpus(t *testing.T) {
	eng := newTestEngine(t, &fakeEmbedder{})
	_, err := eng.FindSimilar(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrNoCorpus)
}

func TestFindSimilar_EmptySeed(t *testing.T) {
	eng := newTestEngine(t, &fakeEmbedder{})
	_, err := eng.FindSimilar(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestCorpus_SnapshotInRankOrder(t *testing.T) {
	eng := newTestEngine(t, &fakeEmbedder{vectors: map[string][]float32{
		"Highly relevant storage text.": {1, 0},
		"Off topic aside.":              {-1, 0},
	}})

	docs := []DocumentInput{
		{Name: "doc.pdf", Data: []byte("Off topic aside.\nHighly relevant storage text.")},
	}
	_, err := eng.Process(context.Background(), docs, "Analyst", "storage")
	require.NoError(t, err)

	corpus := eng.Corpus()
	require.Len(t, corpus, 2)
	assert.Equal(t, 1, corpus[0].ImportanceRank)
	assert.Equal(t, "Highly relevant storage text.", corpus[0].Text)
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	assert.NoError(t, cfg.Validate())

	bad := Config{Workers: -1}
	assert.Error(t, bad.Validate())
}
