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

package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/tesserai/docpipe/ai"
	"github.com/tesserai/docpipe/core"
	"github.com/tesserai/docpipe/queue"
	"github.com/tesserai/docpipe/storage"
)

// defaultHistoryLimit caps how many prior entries feed a generation
// prompt.
const defaultHistoryLimit = 20

// Orchestrator manages chat conversations and their generation work.
// User input appends a user entry plus a paired pending assistant entry
// in one atomic write, then hands the assistant entry to the queue; the
// generation worker streams the completion and stores the result.
type Orchestrator struct {
	chats        storage.ChatRepository
	generator    ai.Generator
	queue        queue.Queue
	historyLimit int
	logger       *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithHistoryLimit caps the prior entries included in a generation
// prompt. Default is 20.
func WithHistoryLimit(limit int) Option {
	return func(o *Orchestrator) error {
		if limit < 1 {
			limit = 1
		}
		o.historyLimit = limit
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger.With("component", "chat")
		return nil
	}
}

// NewOrchestrator creates a chat orchestrator.
func NewOrchestrator(
	chats storage.ChatRepository,
	generator ai.Generator,
	q queue.Queue,
	opts ...Option,
) (*Orchestrator, error) {
	if chats == nil {
		return nil, ErrChatRepositoryRequired
	}
	if generator == nil {
		return nil, ErrGeneratorRequired
	}
	if q == nil {
		return nil, ErrQueueRequired
	}

	o := &Orchestrator{
		chats:        chats,
		generator:    generator,
		queue:        q,
		historyLimit: defaultHistoryLimit,
		logger:       slog.Default().With("component", "chat"),
	}

	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// CreateChat starts a conversation. An optional context string becomes a
// system entry ahead of the first user message. The paired pending
// assistant entry is enqueued for generation.
func (o *Orchestrator) CreateChat(ctx context.Context, tenantID, userID, title, contextText, input string) (*core.Chat, error) {
	if strings.TrimSpace(input) == "" {
		return nil, ErrEmptyInput
	}

	chat, err := o.chats.CreateChat(ctx, &core.Chat{
		ID:       uuid.NewString(),
		TenantID: tenantID,
		UserID:   userID,
		Title:    title,
	})
	if err != nil {
		return nil, err
	}

	var entries []*core.History
	if strings.TrimSpace(contextText) != "" {
		entries = append(entries, &core.History{
			Role:    core.HistoryRoleSystem,
			Status:  core.HistoryStatusNone,
			Content: contextText,
		})
	}
	entries = append(entries,
		&core.History{Role: core.HistoryRoleUser, Status: core.HistoryStatusNone, Content: input},
		&core.History{Role: core.HistoryRoleAssistant, Status: core.HistoryStatusPending},
	)

	appended, err := o.chats.AppendHistories(ctx, chat.ID, entries...)
	if err != nil {
		return nil, err
	}

	assistant := appended[len(appended)-1]
	if err := o.enqueueGenerate(ctx, assistant.ID); err != nil {
		return nil, err
	}

	o.logger.Info("chat created", "chatId", chat.ID, "tenantId", tenantID)
	return chat, nil
}

// Input appends a user message and its paired pending assistant entry,
// then enqueues generation. Returns the assistant entry.
func (o *Orchestrator) Input(ctx context.Context, chatID, text string) (*core.History, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	appended, err := o.chats.AppendHistories(ctx, chatID,
		&core.History{Role: core.HistoryRoleUser, Status: core.HistoryStatusNone, Content: text},
		&core.History{Role: core.HistoryRoleAssistant, Status: core.HistoryStatusPending},
	)
	if err != nil {
		return nil, err
	}

	assistant := appended[1]
	if err := o.enqueueGenerate(ctx, assistant.ID); err != nil {
		return nil, err
	}
	return assistant, nil
}

func (o *Orchestrator) enqueueGenerate(ctx context.Context, historyID string) error {
	msg, err := queue.NewMessage(queue.KindChatGenerate, queue.ChatGenerate{HistoryID: historyID})
	if err != nil {
		return err
	}
	return o.queue.Send(ctx, msg)
}

// Generate handles a chat-generate work item: stream a completion for
// the target entry and store the accumulated text.
//
// A missing entry is dropped; an entry already generated is a redelivery
// no-op. Stream errors propagate so the queue redelivers.
func (o *Orchestrator) Generate(ctx context.Context, historyID string) error {
	target, err := o.chats.GetHistory(ctx, historyID)
	if errors.Is(err, storage.ErrNotFound) {
		o.logger.Debug("dropping generate for missing history", "historyId", historyID)
		return nil
	}
	if err != nil {
		return err
	}
	if target.Status == core.HistoryStatusGenerated {
		return nil
	}

	if err := o.chats.SetHistoryStatus(ctx, historyID, core.HistoryStatusGenerating); err != nil {
		return err
	}

	messages, err := o.promptMessages(ctx, target)
	if err != nil {
		return err
	}

	stream, err := o.generator.Generate(ctx, messages)
	if err != nil {
		return err
	}
	defer stream.Close()

	text, err := ParseEventStream(stream)
	if err != nil {
		return err
	}

	if err := o.chats.CompleteHistory(ctx, historyID, text); err != nil {
		return err
	}

	o.logger.Info("generation complete", "historyId", historyID, "length", len(text))
	return nil
}

// promptMessages builds the generation prompt from the entries preceding
// the target, bounded by the history limit, in conversation order.
// Entries without content (pending or failed generations) are skipped.
func (o *Orchestrator) promptMessages(ctx context.Context, target *core.History) ([]ai.Message, error) {
	prior, err := o.chats.ListHistories(ctx, target.ChatID, target.Seq, o.historyLimit)
	if err != nil {
		return nil, err
	}

	messages := make([]ai.Message, 0, len(prior))
	for _, entry := range prior {
		if entry.Content == "" {
			continue
		}
		messages = append(messages, ai.Message{
			Role:    string(entry.Role),
			Content: entry.Content,
		})
	}
	return messages, nil
}

// Regenerate re-runs a completed or failed generation. An entry already
// generating is left alone so concurrent regenerate calls cannot race a
// running worker.
func (o *Orchestrator) Regenerate(ctx context.Context, historyID string) error {
	target, err := o.chats.GetHistory(ctx, historyID)
	if err != nil {
		return err
	}
	if target.Status == core.HistoryStatusGenerating {
		o.logger.Debug("regenerate ignored, generation in progress", "historyId", historyID)
		return nil
	}

	if err := o.chats.SetHistoryStatus(ctx, historyID, core.HistoryStatusPending); err != nil {
		return err
	}
	return o.enqueueGenerate(ctx, historyID)
}

// FailGeneration marks an entry failed. Invoked by the dead-letter path
// once a generate item exhausts its delivery attempts.
func (o *Orchestrator) FailGeneration(ctx context.Context, historyID string) error {
	err := o.chats.SetHistoryStatus(ctx, historyID, core.HistoryStatusFailed)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	o.logger.Warn("generation failed", "historyId", historyID)
	return nil
}
