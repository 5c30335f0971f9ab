package pipeline

import "errors"

var (
	// ErrDocumentRepositoryRequired indicates a nil document repository.
	ErrDocumentRepositoryRequired = errors.New("document repository is required")

	// ErrSentenceRepositoryRequired indicates a nil sentence repository.
	ErrSentenceRepositoryRequired = errors.New("sentence repository is required")

	// ErrIndexRequired indicates a nil vector index.
	ErrIndexRequired = errors.New("vector index is required")

	// ErrEmbedderRequired indicates a nil embedder.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrSegmenterRequired indicates a nil segmenter.
	ErrSegmenterRequired = errors.New("segmenter is required")

	// ErrQueueRequired indicates a nil queue.
	ErrQueueRequired = errors.New("queue is required")
)
