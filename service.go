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

package docpipe

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/tesserai/docpipe/ai"
	"github.com/tesserai/docpipe/ai/openai"
	"github.com/tesserai/docpipe/ai/stanza"
	"github.com/tesserai/docpipe/chat"
	"github.com/tesserai/docpipe/core"
	"github.com/tesserai/docpipe/index"
	indexchromem "github.com/tesserai/docpipe/index/chromem"
	"github.com/tesserai/docpipe/pipeline"
	"github.com/tesserai/docpipe/queue"
	"github.com/tesserai/docpipe/reconcile"
	"github.com/tesserai/docpipe/retrieval"
	"github.com/tesserai/docpipe/storage"
	"github.com/tesserai/docpipe/storage/badger"
)

// Service wires storage, the vector index, the AI gateways, the queue
// and the domain components into one unit. It is the single entry point
// for embedding the pipeline into a process.
type Service struct {
	backend      *badger.Backend
	documents    storage.DocumentRepository
	sentences    storage.SentenceRepository
	chats        storage.ChatRepository
	idx          index.Index
	provider     ai.Provider
	segmenter    ai.Segmenter
	queue        *queue.MemoryQueue
	pipeline     *pipeline.Pipeline
	reconciler   *reconcile.Reconciler
	engine       *retrieval.Engine
	orchestrator *chat.Orchestrator
	logger       *slog.Logger

	stopReconciler context.CancelFunc
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	aiConfig  *ai.Config
	provider  ai.Provider
	segmenter ai.Segmenter
	inMemory            bool
	reconcileInterval   time.Duration
	reconcileSweepLimit int
	queueOpts           []queue.Option
}

// WithAIConfig sets the AI gateway configuration.
func WithAIConfig(config *ai.Config) ServiceOption {
	return func(o *serviceOptions) {
		o.aiConfig = config
	}
}

// WithProvider injects an AI provider, bypassing the OpenAI-compatible
// default. Intended for tests.
func WithProvider(provider ai.Provider) ServiceOption {
	return func(o *serviceOptions) {
		o.provider = provider
	}
}

// WithSegmenter injects a segmenter, bypassing the HTTP default.
// Intended for tests.
func WithSegmenter(segmenter ai.Segmenter) ServiceOption {
	return func(o *serviceOptions) {
		o.segmenter = segmenter
	}
}

// WithInMemory uses transient storage and a transient vector index.
// Intended for tests.
func WithInMemory() ServiceOption {
	return func(o *serviceOptions) {
		o.inMemory = true
	}
}

// WithReconcileInterval sets the reconciler sweep interval.
func WithReconcileInterval(interval time.Duration) ServiceOption {
	return func(o *serviceOptions) {
		o.reconcileInterval = interval
	}
}

// WithReconcileSweepLimit bounds the rows each reconciler job touches
// per run.
func WithReconcileSweepLimit(limit int) ServiceOption {
	return func(o *serviceOptions) {
		o.reconcileSweepLimit = limit
	}
}

// WithQueueOptions forwards options to the in-process queue.
func WithQueueOptions(opts ...queue.Option) ServiceOption {
	return func(o *serviceOptions) {
		o.queueOpts = append(o.queueOpts, opts...)
	}
}

// NewService opens the full pipeline stack rooted at dataDir.
func NewService(dataDir string, opts ...ServiceOption) (*Service, error) {
	options := &serviceOptions{
		aiConfig:          ai.DefaultConfig(),
		reconcileInterval: time.Minute,
	}
	for _, opt := range opts {
		opt(options)
	}

	storagePath := filepath.Join(dataDir, "storage")
	vectorPath := filepath.Join(dataDir, "vectors")
	if options.inMemory {
		storagePath = ""
	}

	backend, err := badger.OpenBackend(storagePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	s := &Service{
		backend: backend,
		logger:  slog.Default().With("component", "docpipe"),
	}
	cleanup := func() {
		if s.queue != nil {
			if err := s.queue.Close(); err != nil {
				s.logger.Error("error closing queue", "err", err)
			}
		}
		s.closeQuietly()
	}

	if s.documents, err = badger.NewDocumentRepository(backend); err != nil {
		cleanup()
		return nil, err
	}
	if s.sentences, err = badger.NewSentenceRepository(backend); err != nil {
		cleanup()
		return nil, err
	}
	if s.chats, err = badger.NewChatRepository(backend); err != nil {
		cleanup()
		return nil, err
	}

	if options.inMemory {
		s.idx = indexchromem.NewMemoryIndex()
	} else {
		if s.idx, err = indexchromem.NewPersistentIndex(vectorPath); err != nil {
			cleanup()
			return nil, err
		}
	}

	s.provider = options.provider
	if s.provider == nil {
		if s.provider, err = openai.NewProvider(options.aiConfig); err != nil {
			cleanup()
			return nil, err
		}
	}
	s.segmenter = options.segmenter
	if s.segmenter == nil {
		if s.segmenter, err = stanza.NewSegmenter(options.aiConfig); err != nil {
			cleanup()
			return nil, err
		}
	}

	queueOpts := append([]queue.Option{queue.WithDeadLetter(s.deadLetter)}, options.queueOpts...)
	if s.queue, err = queue.NewMemoryQueue(s.route, queueOpts...); err != nil {
		cleanup()
		return nil, err
	}

	if s.pipeline, err = pipeline.NewPipeline(
		s.documents, s.sentences, s.idx, s.provider.Embedder(), s.segmenter, s.queue,
	); err != nil {
		cleanup()
		return nil, err
	}

	reconcileOpts := []reconcile.Option{reconcile.WithInterval(options.reconcileInterval)}
	if options.reconcileSweepLimit > 0 {
		reconcileOpts = append(reconcileOpts, reconcile.WithSweepLimit(options.reconcileSweepLimit))
	}
	if s.reconciler, err = reconcile.NewReconciler(
		s.documents, s.sentences, s.chats, s.queue, reconcileOpts...,
	); err != nil {
		cleanup()
		return nil, err
	}

	if s.engine, err = retrieval.NewEngine(
		s.documents, s.sentences, s.idx, s.provider.Embedder(),
	); err != nil {
		cleanup()
		return nil, err
	}

	if s.orchestrator, err = chat.NewOrchestrator(
		s.chats, s.provider.Generator(), s.queue,
	); err != nil {
		cleanup()
		return nil, err
	}

	return s, nil
}

// route dispatches a queue message to its handler by kind.
func (s *Service) route(ctx context.Context, msg queue.Message) error {
	payload, err := queue.Decode(msg)
	if err != nil {
		// Undecodable messages are not retryable.
		s.logger.Error("rejecting message", "kind", msg.Kind, "err", err)
		return nil
	}

	switch msg.Kind {
	case queue.KindDocumentAnalyze:
		return s.pipeline.AnalyzeDocument(ctx, payload.(queue.DocumentAnalyze).DocumentID)
	case queue.KindDocumentFailed:
		return s.pipeline.FailDocument(ctx, payload.(queue.DocumentAnalyze).DocumentID)
	case queue.KindSentenceAnalyze:
		item := payload.(queue.SentenceAnalyze)
		return s.pipeline.AnalyzeSentence(ctx, item.TenantID, item.SentenceID)
	case queue.KindChatGenerate:
		return s.orchestrator.Generate(ctx, payload.(queue.ChatGenerate).HistoryID)
	case queue.KindChatGenerationFailed:
		return s.orchestrator.FailGeneration(ctx, payload.(queue.ChatGenerate).HistoryID)
	default:
		s.logger.Error("no handler for message kind", "kind", msg.Kind)
		return nil
	}
}

// deadLetter converts an exhausted work item into its failure signal.
// Failure signals that themselves exhaust are applied directly so the
// loop terminates.
func (s *Service) deadLetter(ctx context.Context, msg queue.Message, cause error) {
	payload, err := queue.Decode(msg)
	if err != nil {
		s.logger.Error("dropping undecodable dead letter", "kind", msg.Kind, "err", err)
		return
	}

	switch msg.Kind {
	case queue.KindDocumentAnalyze:
		s.sendFailure(ctx, queue.KindDocumentFailed, payload)
	case queue.KindSentenceAnalyze:
		documentID, _, err := core.SplitSentenceID(payload.(queue.SentenceAnalyze).SentenceID)
		if err != nil {
			s.logger.Error("dead letter with malformed sentence id", "err", err)
			return
		}
		s.sendFailure(ctx, queue.KindDocumentFailed, queue.DocumentAnalyze{DocumentID: documentID})
	case queue.KindChatGenerate:
		s.sendFailure(ctx, queue.KindChatGenerationFailed, queue.ChatGenerate{
			HistoryID: payload.(queue.ChatGenerate).HistoryID,
		})
	case queue.KindDocumentFailed:
		if err := s.pipeline.FailDocument(ctx, payload.(queue.DocumentAnalyze).DocumentID); err != nil {
			s.logger.Error("failed to force document failure", "err", err)
		}
	case queue.KindChatGenerationFailed:
		if err := s.orchestrator.FailGeneration(ctx, payload.(queue.ChatGenerate).HistoryID); err != nil {
			s.logger.Error("failed to force generation failure", "err", err)
		}
	}
}

func (s *Service) sendFailure(ctx context.Context, kind queue.Kind, payload any) {
	msg, err := queue.NewMessage(kind, payload)
	if err != nil {
		s.logger.Error("failed to build failure signal", "kind", kind, "err", err)
		return
	}
	if err := s.queue.Send(ctx, msg); err != nil {
		s.logger.Error("failed to send failure signal", "kind", kind, "err", err)
	}
}

// CreateDocument stores a document and schedules its analysis.
func (s *Service) CreateDocument(ctx context.Context, tenantID, createdBy, title, content string) (*core.Document, error) {
	document := &core.Document{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Title:     title,
		Content:   content,
		Status:    core.DocumentStatusCreated,
		CreatedBy: createdBy,
	}
	if err := core.ValidateDocument(document); err != nil {
		return nil, err
	}

	created, err := s.documents.CreateDocument(ctx, document)
	if err != nil {
		return nil, err
	}
	if err := s.enqueueAnalyze(ctx, created.ID); err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateDocument replaces a document's title and content, resets it to
// CREATED and schedules re-analysis.
func (s *Service) UpdateDocument(ctx context.Context, id, title, content string) (*core.Document, error) {
	document, err := s.documents.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	document.Title = title
	document.Content = content
	document.Status = core.DocumentStatusCreated
	if err := core.ValidateDocument(document); err != nil {
		return nil, err
	}

	updated, err := s.documents.UpdateDocument(ctx, document)
	if err != nil {
		return nil, err
	}
	if err := s.enqueueAnalyze(ctx, id); err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteDocument soft-deletes a document and purges its derived data.
func (s *Service) DeleteDocument(ctx context.Context, id string) error {
	document, err := s.documents.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	if err := s.documents.SoftDeleteDocument(ctx, id); err != nil {
		return err
	}
	return s.pipeline.PurgeSentences(ctx, document.TenantID, id)
}

// RetryDocument resets a document to CREATED and schedules re-analysis.
// Typically used on FAILED documents, but valid from any state.
func (s *Service) RetryDocument(ctx context.Context, id string) error {
	if err := s.documents.SetDocumentStatus(ctx, id, core.DocumentStatusCreated); err != nil {
		return err
	}
	return s.enqueueAnalyze(ctx, id)
}

func (s *Service) enqueueAnalyze(ctx context.Context, documentID string) error {
	msg, err := queue.NewMessage(queue.KindDocumentAnalyze, queue.DocumentAnalyze{DocumentID: documentID})
	if err != nil {
		return err
	}
	return s.queue.Send(ctx, msg)
}

// GetDocument retrieves a document.
func (s *Service) GetDocument(ctx context.Context, id string) (*core.Document, error) {
	return s.documents.GetDocument(ctx, id)
}

// ListDocuments pages through a tenant's documents, newest first, and
// returns the total count.
func (s *Service) ListDocuments(ctx context.Context, tenantID string, offset, limit int) ([]*core.Document, int, error) {
	documents, err := s.documents.ListDocuments(ctx, tenantID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.documents.CountDocuments(ctx, tenantID)
	if err != nil {
		return nil, 0, err
	}
	return documents, count, nil
}

// Search runs a semantic query scoped to a tenant.
func (s *Service) Search(ctx context.Context, tenantID, query string) ([]retrieval.DocumentContext, error) {
	return s.engine.Retrieve(ctx, tenantID, query)
}

// CreateChat starts a conversation and schedules the first generation.
func (s *Service) CreateChat(ctx context.Context, tenantID, userID, title, contextText, input string) (*core.Chat, error) {
	return s.orchestrator.CreateChat(ctx, tenantID, userID, title, contextText, input)
}

// ChatInput appends a user message and schedules its response.
func (s *Service) ChatInput(ctx context.Context, chatID, text string) (*core.History, error) {
	return s.orchestrator.Input(ctx, chatID, text)
}

// RegenerateHistory re-runs a finished generation.
func (s *Service) RegenerateHistory(ctx context.Context, historyID string) error {
	return s.orchestrator.Regenerate(ctx, historyID)
}

// ListChats pages through a user's chats, newest first, and returns the
// total count.
func (s *Service) ListChats(ctx context.Context, tenantID, userID string, offset, limit int) ([]*core.Chat, int, error) {
	chats, err := s.chats.ListChats(ctx, tenantID, userID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.chats.CountChats(ctx, tenantID, userID)
	if err != nil {
		return nil, 0, err
	}
	return chats, count, nil
}

// GetHistory retrieves a single history entry.
func (s *Service) GetHistory(ctx context.Context, id string) (*core.History, error) {
	return s.chats.GetHistory(ctx, id)
}

// ListHistories returns a chat's entries in conversation order.
func (s *Service) ListHistories(ctx context.Context, chatID string, beforeSeq int64, limit int) ([]*core.History, error) {
	return s.chats.ListHistories(ctx, chatID, beforeSeq, limit)
}

// DeleteChat soft-deletes a chat.
func (s *Service) DeleteChat(ctx context.Context, id string) error {
	return s.chats.SoftDeleteChat(ctx, id)
}

// Start launches the reconciler. Queue workers run from construction;
// Start only adds the periodic sweep.
func (s *Service) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.stopReconciler = cancel
	go s.reconciler.Start(ctx)
}

// Drain blocks until all in-flight queue work finishes. Intended for
// tests and graceful shutdown.
func (s *Service) Drain() {
	s.queue.Drain()
}

// Close stops background work and releases every resource.
func (s *Service) Close() error {
	if s.stopReconciler != nil {
		s.stopReconciler()
	}
	if s.queue != nil {
		if err := s.queue.Close(); err != nil {
			s.logger.Error("error closing queue", "err", err)
		}
	}
	if s.pipeline != nil {
		s.pipeline.Release()
	}
	s.closeQuietly()
	if s.backend != nil && !s.backend.IsClosed() {
		return fmt.Errorf("backend failed to close")
	}
	return nil
}

// closeQuietly releases provider, index, repositories and backend,
// logging rather than failing on individual errors. Used both by Close
// and by constructor error paths.
func (s *Service) closeQuietly() {
	if s.provider != nil {
		if err := s.provider.Close(); err != nil {
			s.logger.Error("error closing AI provider", "err", err)
		}
	}
	if s.idx != nil {
		if err := s.idx.Close(); err != nil {
			s.logger.Error("error closing vector index", "err", err)
		}
	}
	if s.documents != nil {
		if err := s.documents.Close(); err != nil {
			s.logger.Error("error closing document repository", "err", err)
		}
	}
	if s.sentences != nil {
		if err := s.sentences.Close(); err != nil {
			s.logger.Error("error closing sentence repository", "err", err)
		}
	}
	if s.chats != nil {
		if err := s.chats.Close(); err != nil {
			s.logger.Error("error closing chat repository", "err", err)
		}
	}
	if s.backend != nil && !s.backend.IsClosed() {
		if err := s.backend.Close(); err != nil {
			s.logger.Error("error closing backend storage", "err", err)
		}
	}
}
