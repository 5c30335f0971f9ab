// Copyright 2026 Tesserai
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package reconcile implements the periodic convergence sweep that nudges
// stalled documents forward. The sweep re-enqueues unanalyzed sentences
// whose document is still live and promotes segmented documents that have
// nothing left pending. It never transitions FAILED documents and never
// fabricates work: sweeps only re-enqueue sentences that already exist
// and re-run the same guarded promotion the pipeline uses, so a run
// always converges toward the state the workers would have reached.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tesserai/docpipe/core"
	"github.com/tesserai/docpipe/queue"
	"github.com/tesserai/docpipe/storage"
)

const (
	// defaultInterval between sweeps.
	defaultInterval = time.Minute

	// defaultSweepLimit bounds how many rows each job touches per run.
	defaultSweepLimit = 30
)

var (
	// ErrDocumentRepositoryRequired indicates a nil document repository.
	ErrDocumentRepositoryRequired = errors.New("document repository is required")

	// ErrSentenceRepositoryRequired indicates a nil sentence repository.
	ErrSentenceRepositoryRequired = errors.New("sentence repository is required")

	// ErrChatRepositoryRequired indicates a nil chat repository.
	ErrChatRepositoryRequired = errors.New("chat repository is required")

	// ErrQueueRequired indicates a nil queue.
	ErrQueueRequired = errors.New("queue is required")
)

// Reconciler runs bounded convergence jobs on a fixed interval.
type Reconciler struct {
	documents storage.DocumentRepository
	sentences storage.SentenceRepository
	chats     storage.ChatRepository
	queue     queue.Queue
	interval  time.Duration
	limit     int
	logger    *slog.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler) error

// WithInterval sets the sweep interval. Default is one minute.
func WithInterval(interval time.Duration) Option {
	return func(r *Reconciler) error {
		if interval <= 0 {
			interval = defaultInterval
		}
		r.interval = interval
		return nil
	}
}

// WithSweepLimit bounds the rows each job touches per run. Default is 30.
func WithSweepLimit(limit int) Option {
	return func(r *Reconciler) error {
		if limit < 1 {
			limit = 1
		}
		r.limit = limit
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger.With("component", "reconciler")
		return nil
	}
}

// NewReconciler creates a reconciler over the given repositories and
// queue.
func NewReconciler(
	documents storage.DocumentRepository,
	sentences storage.SentenceRepository,
	chats storage.ChatRepository,
	q queue.Queue,
	opts ...Option,
) (*Reconciler, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if sentences == nil {
		return nil, ErrSentenceRepositoryRequired
	}
	if chats == nil {
		return nil, ErrChatRepositoryRequired
	}
	if q == nil {
		return nil, ErrQueueRequired
	}

	r := &Reconciler{
		documents: documents,
		sentences: sentences,
		chats:     chats,
		queue:     q,
		interval:  defaultInterval,
		limit:     defaultSweepLimit,
		logger:    slog.Default().With("component", "reconciler"),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Start runs sweeps on the configured interval until the context is
// canceled. Errors from individual runs are logged, not fatal.
func (r *Reconciler) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reconciler started", "interval", r.interval, "limit", r.limit)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return
		case <-ticker.C:
			if err := r.RunOnce(ctx); err != nil {
				r.logger.Error("reconciliation run failed", "err", err)
			}
		}
	}
}

// RunOnce executes one sweep: re-enqueue stalled sentences, promote
// completed documents and report chats stuck mid-generation.
func (r *Reconciler) RunOnce(ctx context.Context) error {
	if err := r.requeueStalledSentences(ctx); err != nil {
		return err
	}
	if err := r.promoteCompletedDocuments(ctx); err != nil {
		return err
	}
	r.reportStuckGenerations(ctx)
	return nil
}

// requeueStalledSentences re-enqueues analysis for unanalyzed sentences.
// Sentences whose document is gone, deleted or FAILED are skipped; the
// at-least-once queue collapses duplicates of items already in flight.
func (r *Reconciler) requeueStalledSentences(ctx context.Context) error {
	pending, err := r.sentences.ListPendingSentences(ctx, r.limit)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	// The sweep is bounded, so per-document lookups stay cheap even
	// without caching across runs.
	statuses := make(map[string]core.DocumentStatus)
	requeued := 0
	for _, sentence := range pending {
		status, seen := statuses[sentence.DocumentID]
		if !seen {
			document, err := r.documents.GetDocument(ctx, sentence.DocumentID)
			if errors.Is(err, storage.ErrNotFound) {
				statuses[sentence.DocumentID] = core.DocumentStatusFailed
				continue
			}
			if err != nil {
				return err
			}
			status = document.Status
			statuses[sentence.DocumentID] = status
		}
		if status == core.DocumentStatusFailed {
			continue
		}

		msg, err := queue.NewMessage(queue.KindSentenceAnalyze, queue.SentenceAnalyze{
			TenantID:   sentence.TenantID,
			SentenceID: sentence.ID,
		})
		if err != nil {
			return err
		}
		if err := r.queue.Send(ctx, msg); err != nil {
			return err
		}
		requeued++
	}

	if requeued > 0 {
		r.logger.Info("re-enqueued stalled sentences", "count", requeued)
	}
	return nil
}

// promoteCompletedDocuments promotes SEGMENTED documents with zero
// pending sentences to ANALYZED.
func (r *Reconciler) promoteCompletedDocuments(ctx context.Context) error {
	documents, err := r.documents.ListDocumentsByStatus(ctx, core.DocumentStatusSegmented, r.limit)
	if err != nil {
		return err
	}

	promoted := 0
	for _, document := range documents {
		pending, err := r.sentences.CountPendingSentences(ctx, document.ID)
		if err != nil {
			return err
		}
		if pending > 0 {
			continue
		}

		applied, err := r.documents.TransitionDocumentStatus(ctx, document.ID,
			core.DocumentStatusSegmented, core.DocumentStatusAnalyzed)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if applied {
			promoted++
		}
	}

	if promoted > 0 {
		r.logger.Info("promoted completed documents", "count", promoted)
	}
	return nil
}

// reportStuckGenerations logs how many history entries sit in the
// generating state. The sweep deliberately does not repair them: a
// crashed generation worker leaves no marker to distinguish "stuck" from
// "slow", so repair is left to operators.
func (r *Reconciler) reportStuckGenerations(ctx context.Context) {
	count, err := r.chats.CountGeneratingHistories(ctx)
	if err != nil {
		r.logger.Error("failed to count generating histories", "err", err)
		return
	}
	if count > 0 {
		r.logger.Warn("histories still generating", "count", count)
	}
}
