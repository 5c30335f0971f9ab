package openai

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedEmbedder satisfies the langchaingo embeddings.Embedder interface
// with canned responses.
type fixedEmbedder struct {
	vectors [][]float32
	err     error
}

func (f *fixedEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return f.vectors, f.err
}

func (f *fixedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if len(f.vectors) == 0 {
		return nil, f.err
	}
	return f.vectors[0], f.err
}

func newTestEmbedder(backend *fixedEmbedder) *Embedder {
	return &Embedder{
		embedder: backend,
		logger:   slog.Default().With("component", "openai-embedder"),
	}
}

func TestEmbedText(t *testing.T) {
	e := newTestEmbedder(&fixedEmbedder{vectors: [][]float32{{0.1, 0.2}}})

	vector, err := e.EmbedText(context.Background(), "some text")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, vector)
}

func TestEmbedText_NoVectorIsAnError(t *testing.T) {
	t.Run("empty response", func(t *testing.T) {
		e := newTestEmbedder(&fixedEmbedder{vectors: [][]float32{}})

		_, err := e.EmbedText(context.Background(), "some text")
		assert.ErrorIs(t, err, ErrNoEmbedding)
	})

	t.Run("zero-length vector", func(t *testing.T) {
		e := newTestEmbedder(&fixedEmbedder{vectors: [][]float32{{}}})

		_, err := e.EmbedText(context.Background(), "some text")
		assert.ErrorIs(t, err, ErrNoEmbedding)
	})
}

func TestEmbedTexts_PartialResultIsAnError(t *testing.T) {
	e := newTestEmbedder(&fixedEmbedder{vectors: [][]float32{{0.1}}})

	_, err := e.EmbedTexts(context.Background(), []string{"one", "two"})
	assert.ErrorIs(t, err, ErrNoEmbedding)
}

func TestEmbedTexts(t *testing.T) {
	e := newTestEmbedder(&fixedEmbedder{vectors: [][]float32{{0.1}, {0.2}}})

	vectors, err := e.EmbedTexts(context.Background(), []string{"one", "two"})
	require.NoError(t, err)
	assert.Len(t, vectors, 2)
}
