package chat

import "errors"

var (
	// ErrChatRepositoryRequired indicates a nil chat repository.
	ErrChatRepositoryRequired = errors.New("chat repository is required")

	// ErrGeneratorRequired indicates a nil generator.
	ErrGeneratorRequired = errors.New("generator is required")

	// ErrQueueRequired indicates a nil queue.
	ErrQueueRequired = errors.New("queue is required")

	// ErrEmptyInput indicates a blank user message.
	ErrEmptyInput = errors.New("input must not be empty")
)
