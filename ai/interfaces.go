package ai

import (
	"context"
	"io"
)

// Embedder generates vector embeddings from text for semantic similarity
// search. Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in
	// a batch. The returned slice contains embeddings in the same order
	// as the input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Segmenter splits prose into sentences.
// Implementations must be thread-safe for concurrent use.
type Segmenter interface {
	// Segment splits text into sentences in document order. Segmenters
	// may return empty strings for degenerate input; callers are
	// expected to drop them.
	Segment(ctx context.Context, text string) ([]string, error)
}

// Message is a single turn in a generation prompt.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Generator produces streaming completions from a message history.
// Implementations must be thread-safe for concurrent use.
type Generator interface {
	// Generate starts a completion for the given messages and returns
	// the raw event stream. The caller owns the stream and must close
	// it.
	Generate(ctx context.Context, messages []Message) (io.ReadCloser, error)
}

// Provider aggregates AI services for convenient initialization and
// lifecycle management.
type Provider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Generator returns the completion streaming service.
	Generator() Generator

	// Close releases resources held by the provider and its services.
	Close() error
}
