package queue

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
)

// MemoryQueue is an in-process Queue backed by a worker pool. Delivery is
// at least once: a failing handler is retried with exponential backoff,
// and a message that exhausts its attempts goes to the dead-letter hook.
//
// Duplicate sends of a message that is still pending or in flight are
// collapsed by fingerprint, which keeps reconciler sweeps from piling up
// redundant work.
type MemoryQueue struct {
	handler     Handler
	deadLetter  DeadLetter
	pool        *ants.Pool
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger

	mu      sync.Mutex
	pending map[uint64]struct{}
	closed  bool

	wg sync.WaitGroup
}

var _ Queue = (*MemoryQueue)(nil)

// Option configures a MemoryQueue.
type Option func(*MemoryQueue) error

// WithPoolSize sets the worker pool size for concurrent delivery.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(q *MemoryQueue) error {
		if size < 1 {
			size = 1
		}
		if q.pool != nil {
			q.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		q.pool = pool
		return nil
	}
}

// WithMaxAttempts sets the maximum delivery attempts per message.
// Default is 3.
func WithMaxAttempts(attempts int) Option {
	return func(q *MemoryQueue) error {
		if attempts < 1 {
			attempts = 1
		}
		q.maxAttempts = attempts
		return nil
	}
}

// WithBaseDelay sets the base backoff delay between delivery attempts.
// Default is 100ms.
func WithBaseDelay(delay time.Duration) Option {
	return func(q *MemoryQueue) error {
		q.baseDelay = delay
		return nil
	}
}

// WithDeadLetter sets the hook invoked when a message exhausts its
// attempts. Default is to log and drop.
func WithDeadLetter(hook DeadLetter) Option {
	return func(q *MemoryQueue) error {
		q.deadLetter = hook
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(q *MemoryQueue) error {
		if logger == nil {
			logger = slog.Default()
		}
		q.logger = logger.With("component", "memory-queue")
		return nil
	}
}

// NewMemoryQueue creates an in-process queue delivering to handler.
func NewMemoryQueue(handler Handler, opts ...Option) (*MemoryQueue, error) {
	if handler == nil {
		return nil, ErrHandlerRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	q := &MemoryQueue{
		handler:     handler,
		pool:        pool,
		maxAttempts: 3,
		baseDelay:   100 * time.Millisecond,
		logger:      slog.Default().With("component", "memory-queue"),
		pending:     make(map[uint64]struct{}),
	}

	for _, opt := range opts {
		if optErr := opt(q); optErr != nil {
			q.pool.Release()
			return nil, optErr
		}
	}
	return q, nil
}

// Send enqueues a single message. Submission to the pool happens off the
// caller's goroutine, so handlers and dead-letter hooks may safely send
// follow-up messages without deadlocking a saturated pool.
func (q *MemoryQueue) Send(ctx context.Context, msg Message) error {
	fp := msg.Fingerprint()

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	if _, exists := q.pending[fp]; exists {
		q.mu.Unlock()
		q.logger.Debug("collapsed duplicate message", "kind", msg.Kind)
		return nil
	}
	q.pending[fp] = struct{}{}
	q.wg.Add(1)
	q.mu.Unlock()

	go func() {
		err := q.pool.Submit(func() {
			defer q.wg.Done()
			defer q.release(fp)
			q.deliver(msg)
		})
		if err != nil {
			q.logger.Error("failed to submit message", "kind", msg.Kind, "error", err)
			q.wg.Done()
			q.release(fp)
		}
	}()
	return nil
}

// SendBatch enqueues a batch of messages.
func (q *MemoryQueue) SendBatch(ctx context.Context, msgs []Message) error {
	for _, msg := range msgs {
		if err := q.Send(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (q *MemoryQueue) release(fp uint64) {
	q.mu.Lock()
	delete(q.pending, fp)
	q.mu.Unlock()
}

// deliver runs the handler with exponential backoff between attempts.
func (q *MemoryQueue) deliver(msg Message) {
	ctx := context.Background()

	var lastErr error
	for attempt := 1; attempt <= q.maxAttempts; attempt++ {
		lastErr = q.handler(ctx, msg)
		if lastErr == nil {
			if attempt > 1 {
				q.logger.Debug("delivery succeeded after retry", "kind", msg.Kind, "attempt", attempt)
			}
			return
		}

		q.logger.Debug("delivery failed, will retry",
			"kind", msg.Kind, "attempt", attempt, "maxAttempts", q.maxAttempts, "error", lastErr)

		if attempt == q.maxAttempts {
			break
		}

		// Exponential backoff: baseDelay * 2^(attempt-1)
		delay := q.baseDelay
		for i := 1; i < attempt; i++ {
			delay *= 2
		}
		time.Sleep(delay)
	}

	q.logger.Error("message exhausted delivery attempts", "kind", msg.Kind, "error", lastErr)
	if q.deadLetter != nil {
		q.deadLetter(ctx, msg, lastErr)
	}
}

// Drain blocks until every in-flight and pending message has finished
// delivery. Intended for tests and graceful shutdown.
func (q *MemoryQueue) Drain() {
	q.wg.Wait()
}

// Close stops the queue. In-flight deliveries finish; pending messages
// not yet picked up are dropped by the pool release.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()

	q.wg.Wait()
	q.pool.Release()
	return nil
}
