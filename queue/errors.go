package queue

import "errors"

var (
	// ErrUnknownKind indicates a message whose kind has no registered
	// payload type.
	ErrUnknownKind = errors.New("unknown message kind")

	// ErrInvalidMessage indicates a payload that could not be encoded or
	// decoded.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrHandlerRequired indicates a queue constructed without a handler.
	ErrHandlerRequired = errors.New("handler is required")

	// ErrQueueClosed indicates a send on a closed queue.
	ErrQueueClosed = errors.New("queue is closed")
)
