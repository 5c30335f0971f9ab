package queue

import "context"

// Handler consumes a delivered message. Returning an error requests
// redelivery; the message is retried until the queue's attempt budget is
// exhausted.
type Handler func(ctx context.Context, msg Message) error

// DeadLetter receives a message that exhausted its delivery attempts,
// together with the final error.
type DeadLetter func(ctx context.Context, msg Message, err error)

// Queue delivers work items to a handler at least once.
type Queue interface {
	// Send enqueues a single message.
	Send(ctx context.Context, msg Message) error

	// SendBatch enqueues a batch of messages.
	SendBatch(ctx context.Context, msgs []Message) error

	// Close stops delivery and releases resources. Messages not yet
	// picked up by a worker are dropped.
	Close() error
}
