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

package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/tesserai/docpipe/ai"
	"github.com/tesserai/docpipe/core"
	"github.com/tesserai/docpipe/index"
	"github.com/tesserai/docpipe/queue"
	"github.com/tesserai/docpipe/storage"
)

// defaultChunkSize bounds batch operations against the index and the
// queue so one large document cannot monopolize either.
const defaultChunkSize = 10

// Pipeline drives documents through the analysis state machine:
// CREATED -> SEGMENTED -> ANALYZED, with FAILED forced by an explicit
// failure signal. Every operation is safe to re-run; the queue may
// deliver any work item more than once.
type Pipeline struct {
	documents storage.DocumentRepository
	sentences storage.SentenceRepository
	idx       index.Index
	embedder  ai.Embedder
	segmenter ai.Segmenter
	queue     queue.Queue
	pool      *ants.Pool
	chunkSize int
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithChunkSize sets the batch chunk size for index deletes and queue
// fan-out. Default is 10.
func WithChunkSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		p.chunkSize = size
		return nil
	}
}

// WithPoolSize sets the worker pool size used for concurrent chunk
// operations. Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger.With("component", "pipeline")
		return nil
	}
}

// NewPipeline creates an analysis pipeline.
func NewPipeline(
	documents storage.DocumentRepository,
	sentences storage.SentenceRepository,
	idx index.Index,
	embedder ai.Embedder,
	segmenter ai.Segmenter,
	q queue.Queue,
	opts ...Option,
) (*Pipeline, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if sentences == nil {
		return nil, ErrSentenceRepositoryRequired
	}
	if idx == nil {
		return nil, ErrIndexRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if segmenter == nil {
		return nil, ErrSegmenterRequired
	}
	if q == nil {
		return nil, ErrQueueRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		documents: documents,
		sentences: sentences,
		idx:       idx,
		embedder:  embedder,
		segmenter: segmenter,
		queue:     q,
		pool:      pool,
		chunkSize: defaultChunkSize,
		logger:    slog.Default().With("component", "pipeline"),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	return p, nil
}

// Release releases the worker pool. The pipeline should not be used after
// calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// AnalyzeDocument handles a document-analyze work item: purge previous
// derived data, segment the content, persist sentence rows and fan out
// one sentence-analyze item per unit.
//
// A missing or deleted document is logged and dropped; the work item is
// stale and retrying cannot help.
func (p *Pipeline) AnalyzeDocument(ctx context.Context, documentID string) error {
	document, err := p.documents.GetDocument(ctx, documentID)
	if errors.Is(err, storage.ErrNotFound) {
		p.logger.Debug("dropping analyze for missing document", "documentId", documentID)
		return nil
	}
	if err != nil {
		return err
	}

	if err := p.PurgeSentences(ctx, document.TenantID, documentID); err != nil {
		return err
	}

	units, err := p.segmentDocument(ctx, document)
	if err != nil {
		return err
	}

	rows := make([]*core.Sentence, len(units))
	for i, unit := range units {
		rows[i] = &core.Sentence{
			ID:         core.SentenceID(documentID, unit.sequenceID),
			DocumentID: documentID,
			TenantID:   document.TenantID,
			SequenceID: unit.sequenceID,
			Content:    unit.content,
			CreatedBy:  document.CreatedBy,
		}
	}
	if len(rows) > 0 {
		if _, err := p.sentences.CreateSentences(ctx, rows...); err != nil {
			return err
		}
	}

	if err := p.documents.SetDocumentStatus(ctx, documentID, core.DocumentStatusSegmented); err != nil {
		return err
	}

	p.logger.Info("document segmented", "documentId", documentID, "sentences", len(rows))

	if len(rows) == 0 {
		// Nothing to analyze; the document is trivially complete.
		_, err := p.documents.TransitionDocumentStatus(ctx, documentID,
			core.DocumentStatusSegmented, core.DocumentStatusAnalyzed)
		return err
	}

	return p.enqueueSentences(ctx, document.TenantID, rows)
}

// unit is one segmentation output with its assigned sequence id.
type unit struct {
	sequenceID int
	content    string
}

// segmentDocument builds the ordered unit list: the title as the -1
// pseudo-sentence followed by the body sentences. Blank units are
// dropped without consuming a sequence id.
func (p *Pipeline) segmentDocument(ctx context.Context, document *core.Document) ([]unit, error) {
	var units []unit

	if title := strings.TrimSpace(document.Title); title != "" {
		units = append(units, unit{sequenceID: core.TitleSequenceID, content: title})
	}

	parts, err := p.segmenter.Segment(ctx, document.Content)
	if err != nil {
		return nil, err
	}

	seq := 0
	for _, part := range parts {
		content := strings.TrimSpace(part)
		if content == "" {
			continue
		}
		units = append(units, unit{sequenceID: seq, content: content})
		seq++
	}
	return units, nil
}

// enqueueSentences fans out one sentence-analyze item per row in chunks.
func (p *Pipeline) enqueueSentences(ctx context.Context, tenantID string, rows []*core.Sentence) error {
	for start := 0; start < len(rows); start += p.chunkSize {
		end := start + p.chunkSize
		if end > len(rows) {
			end = len(rows)
		}

		msgs := make([]queue.Message, 0, end-start)
		for _, row := range rows[start:end] {
			msg, err := queue.NewMessage(queue.KindSentenceAnalyze, queue.SentenceAnalyze{
				TenantID:   tenantID,
				SentenceID: row.ID,
			})
			if err != nil {
				return err
			}
			msgs = append(msgs, msg)
		}
		if err := p.queue.SendBatch(ctx, msgs); err != nil {
			return err
		}
	}
	return nil
}

// PurgeSentences removes a document's sentence rows and their vector
// entries. Index deletes run chunked and concurrent.
func (p *Pipeline) PurgeSentences(ctx context.Context, tenantID, documentID string) error {
	ids, err := p.sentences.DeleteSentencesByDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for start := 0; start < len(ids); start += p.chunkSize {
		end := start + p.chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()
			if err := p.idx.DeleteByIDs(ctx, tenantID, chunk...); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		})
		if submitErr != nil {
			wg.Done()
			return submitErr
		}
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}

	p.logger.Debug("purged sentences", "documentId", documentID, "count", len(ids))
	return nil
}

// AnalyzeSentence handles a sentence-analyze work item: embed the
// sentence, upsert its vector and mark it analyzed, then run the
// aggregation check. A missing sentence means the document was
// re-segmented since the item was enqueued; it is dropped.
//
// An already-analyzed sentence skips straight to the aggregation check,
// so redelivered items still converge the document.
func (p *Pipeline) AnalyzeSentence(ctx context.Context, tenantID, sentenceID string) error {
	sentence, err := p.sentences.GetSentence(ctx, sentenceID)
	if errors.Is(err, storage.ErrNotFound) {
		p.logger.Debug("dropping analyze for missing sentence", "sentenceId", sentenceID)
		return nil
	}
	if err != nil {
		return err
	}

	if !sentence.IsAnalyzed {
		vector, err := p.embedder.EmbedText(ctx, sentence.Content)
		if err != nil {
			return err
		}

		err = p.idx.Upsert(ctx, tenantID, index.Entry{
			ID:     sentence.ID,
			Vector: vector,
			Metadata: index.Metadata{
				DocumentID: sentence.DocumentID,
				SequenceID: sentence.SequenceID,
			},
		})
		if err != nil {
			return err
		}

		if err := p.sentences.MarkSentenceAnalyzed(ctx, sentence.ID); err != nil {
			return err
		}
	}

	return p.CheckDocumentComplete(ctx, sentence.DocumentID)
}

// CheckDocumentComplete promotes a SEGMENTED document to ANALYZED once no
// pending sentences remain. The guarded transition makes concurrent and
// repeated checks harmless.
func (p *Pipeline) CheckDocumentComplete(ctx context.Context, documentID string) error {
	pending, err := p.sentences.CountPendingSentences(ctx, documentID)
	if err != nil {
		return err
	}
	if pending > 0 {
		return nil
	}

	applied, err := p.documents.TransitionDocumentStatus(ctx, documentID,
		core.DocumentStatusSegmented, core.DocumentStatusAnalyzed)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if applied {
		p.logger.Info("document analyzed", "documentId", documentID)
	}
	return nil
}

// FailDocument forces a document to FAILED from any state. Invoked by the
// dead-letter path once a work item exhausts its delivery attempts.
func (p *Pipeline) FailDocument(ctx context.Context, documentID string) error {
	err := p.documents.SetDocumentStatus(ctx, documentID, core.DocumentStatusFailed)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	p.logger.Warn("document failed", "documentId", documentID)
	return nil
}
