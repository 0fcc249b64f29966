package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTEIServer(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := NewService(Config{BaseURL: srv.URL, Model: "test-model"})
	require.NoError(t, err)
	return svc
}

func TestNewService_RequiresBaseURL(t *testing.T) {
	_, err := NewService(Config{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestServiceEmbedDocuments(t *testing.T) {
	svc := newTEIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embed", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req teiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		inputs, ok := req.Inputs.([]any)
		require.True(t, ok)

		vectors := make([][]float32, len(inputs))
		for i := range inputs {
			vectors[i] = []float32{float32(i), 0.5}
		}
		require.NoError(t, json.NewEncoder(w).Encode(vectors))
	})

	got, err := svc.EmbedDocuments(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []float32{0, 0.5}, got[0])
	assert.Equal(t, []float32{1, 0.5}, got[1])
}

func TestServiceEmbedDocuments_Empty(t *testing.T) {
	svc := newTEIServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := svc.EmbedDocuments(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestServiceEmbedDocuments_CountMismatch(t *testing.T) {
	svc := newTEIServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode([][]float32{{1}}))
	})

	_, err := svc.EmbedDocuments(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
}

func TestServiceEmbedQuery(t *testing.T) {
	svc := newTEIServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req teiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_, isString := req.Inputs.(string)
		assert.True(t, isString, "query embeds send a single string input")

		require.NoError(t, json.NewEncoder(w).Encode([][]float32{{0.1, 0.2}}))
	})

	got, err := svc.EmbedQuery(context.Background(), "what changed")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, got)
}

func TestServiceEmbedQuery_Empty(t *testing.T) {
	svc := newTEIServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := svc.EmbedQuery(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestServiceEmbed_HTTPError(t *testing.T) {
	svc := newTEIServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	})

	_, err := svc.EmbedQuery(context.Background(), "probe")
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
	assert.Contains(t, err.Error(), "503")
}
