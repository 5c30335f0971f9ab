package docpipe

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tesserai/docpipe/ai/mock"
	"github.com/tesserai/docpipe/core"
	"github.com/tesserai/docpipe/queue"
	"github.com/tesserai/docpipe/storage"
)

type serviceFixture struct {
	service  *Service
	provider *mock.MockProvider
}

func newServiceFixture(t *testing.T, extra ...ServiceOption) *serviceFixture {
	t.Helper()

	provider := mock.NewMockProvider().(*mock.MockProvider)
	opts := append([]ServiceOption{
		WithInMemory(),
		WithProvider(provider),
		WithSegmenter(mock.NewMockSegmenter()),
		WithQueueOptions(queue.WithBaseDelay(time.Millisecond)),
	}, extra...)

	service, err := NewService(t.TempDir(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { service.Close() })

	return &serviceFixture{service: service, provider: provider}
}

func TestNewService(t *testing.T) {
	t.Run("create persistent service", func(t *testing.T) {
		service, err := NewService(filepath.Join(t.TempDir(), "data"),
			WithProvider(mock.NewMockProvider()),
			WithSegmenter(mock.NewMockSegmenter()),
		)
		require.NoError(t, err)
		require.NotNil(t, service)
		assert.NoError(t, service.Close())
	})

	t.Run("create in-memory service", func(t *testing.T) {
		f := newServiceFixture(t)
		require.NotNil(t, f.service.pipeline)
		require.NotNil(t, f.service.engine)
		require.NotNil(t, f.service.orchestrator)
	})
}

func TestService_DocumentLifecycle(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	document, err := f.service.CreateDocument(ctx, "tenant-a", "user-1",
		"Go Guide", "Go is a compiled language. It has goroutines.")
	require.NoError(t, err)
	assert.Equal(t, core.DocumentStatusCreated, document.Status)

	f.service.Drain()

	analyzed, err := f.service.GetDocument(ctx, document.ID)
	require.NoError(t, err)
	assert.Equal(t, core.DocumentStatusAnalyzed, analyzed.Status)

	documents, count, err := f.service.ListDocuments(ctx, "tenant-a", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, documents, 1)
}

func TestService_Search(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	document, err := f.service.CreateDocument(ctx, "tenant-a", "user-1",
		"Go Guide", "Go is a compiled language. It has goroutines.")
	require.NoError(t, err)
	f.service.Drain()

	// The deterministic embedder maps equal text to equal vectors, so an
	// exact sentence is a perfect match
	results, err := f.service.Search(ctx, "tenant-a", "Go is a compiled language.")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, document.ID, results[0].Document.ID)

	found := false
	for _, hit := range results[0].Sentences {
		if hit.Highlighted {
			found = true
			assert.Equal(t, "Go is a compiled language.", hit.Sentence.Content)
		}
	}
	assert.True(t, found)

	// Other tenants see nothing
	other, err := f.service.Search(ctx, "tenant-b", "Go is a compiled language.")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestService_UpdateDocument(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	document, err := f.service.CreateDocument(ctx, "tenant-a", "user-1",
		"Guide", "Old content here.")
	require.NoError(t, err)
	f.service.Drain()

	_, err = f.service.UpdateDocument(ctx, document.ID, "Guide", "New content entirely.")
	require.NoError(t, err)
	f.service.Drain()

	analyzed, err := f.service.GetDocument(ctx, document.ID)
	require.NoError(t, err)
	assert.Equal(t, core.DocumentStatusAnalyzed, analyzed.Status)

	results, err := f.service.Search(ctx, "tenant-a", "New content entirely.")
	require.NoError(t, err)
	require.Len(t, results, 1)

	// The replaced text no longer matches
	stale, err := f.service.Search(ctx, "tenant-a", "Old content here.")
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func TestService_DeleteDocument(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	document, err := f.service.CreateDocument(ctx, "tenant-a", "user-1",
		"Guide", "Searchable sentence.")
	require.NoError(t, err)
	f.service.Drain()

	require.NoError(t, f.service.DeleteDocument(ctx, document.ID))

	_, err = f.service.GetDocument(ctx, document.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	results, err := f.service.Search(ctx, "tenant-a", "Searchable sentence.")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestService_FailureAndRetry(t *testing.T) {
	f := newServiceFixture(t, WithQueueOptions(queue.WithMaxAttempts(1)))
	ctx := context.Background()

	embedder := f.provider.GetMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("embedding backend down")
	}

	document, err := f.service.CreateDocument(ctx, "tenant-a", "user-1",
		"Guide", "This will not embed.")
	require.NoError(t, err)
	f.service.Drain()

	failed, err := f.service.GetDocument(ctx, document.ID)
	require.NoError(t, err)
	assert.Equal(t, core.DocumentStatusFailed, failed.Status)

	// Backend recovers; a retry completes the document
	embedder.EmbedTextFunc = nil
	require.NoError(t, f.service.RetryDocument(ctx, document.ID))
	f.service.Drain()

	analyzed, err := f.service.GetDocument(ctx, document.ID)
	require.NoError(t, err)
	assert.Equal(t, core.DocumentStatusAnalyzed, analyzed.Status)
}

func TestService_ChatFlow(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	chat, err := f.service.CreateChat(ctx, "tenant-a", "user-1", "Questions",
		"Answer from the documents.", "What is Go?")
	require.NoError(t, err)
	f.service.Drain()

	entries, err := f.service.ListHistories(ctx, chat.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assistant := entries[2]
	assert.Equal(t, core.HistoryStatusGenerated, assistant.Status)
	assert.Equal(t, "This is a mock response.", assistant.Content)

	_, err = f.service.ChatInput(ctx, chat.ID, "Tell me more.")
	require.NoError(t, err)
	f.service.Drain()

	entries, err = f.service.ListHistories(ctx, chat.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 5)
	assert.Equal(t, core.HistoryStatusGenerated, entries[4].Status)

	chats, count, err := f.service.ListChats(ctx, "tenant-a", "user-1", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, chats, 1)

	require.NoError(t, f.service.DeleteChat(ctx, chat.ID))
	_, count, err = f.service.ListChats(ctx, "tenant-a", "user-1", 0, 10)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestService_RegenerateHistory(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	chat, err := f.service.CreateChat(ctx, "tenant-a", "user-1", "Chat", "", "Q")
	require.NoError(t, err)
	f.service.Drain()

	entries, err := f.service.ListHistories(ctx, chat.ID, 0, 0)
	require.NoError(t, err)
	assistant := entries[len(entries)-1]

	generator := f.provider.GetMockGenerator()
	generator.Response = "A different answer."

	require.NoError(t, f.service.RegenerateHistory(ctx, assistant.ID))
	f.service.Drain()

	stored, err := f.service.ListHistories(ctx, chat.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "A different answer.", stored[len(stored)-1].Content)
}

func TestService_ReconcileSweepLimit(t *testing.T) {
	f := newServiceFixture(t, WithReconcileSweepLimit(1))
	ctx := context.Background()

	// Two stalled documents: segmented rows exist but no work items were
	// ever enqueued
	for _, id := range []string{"doc-a", "doc-b"} {
		_, err := f.service.documents.CreateDocument(ctx, &core.Document{
			ID:        id,
			TenantID:  "tenant-a",
			Title:     "Guide",
			Content:   "A stalled sentence.",
			Status:    core.DocumentStatusSegmented,
			CreatedBy: "user-1",
		})
		require.NoError(t, err)

		_, err = f.service.sentences.CreateSentences(ctx, &core.Sentence{
			ID:         core.SentenceID(id, 0),
			DocumentID: id,
			TenantID:   "tenant-a",
			SequenceID: 0,
			Content:    "A stalled sentence.",
		})
		require.NoError(t, err)
	}

	countAnalyzed := func() int {
		analyzed := 0
		for _, id := range []string{"doc-a", "doc-b"} {
			document, err := f.service.GetDocument(ctx, id)
			require.NoError(t, err)
			if document.Status == core.DocumentStatusAnalyzed {
				analyzed++
			}
		}
		return analyzed
	}

	// A sweep bounded to one row requeues exactly one sentence
	require.NoError(t, f.service.reconciler.RunOnce(ctx))
	f.service.Drain()
	assert.Equal(t, 1, countAnalyzed())

	// The next sweep picks up the remaining document
	require.NoError(t, f.service.reconciler.RunOnce(ctx))
	f.service.Drain()
	assert.Equal(t, 2, countAnalyzed())
}

func TestService_Reconciler(t *testing.T) {
	f := newServiceFixture(t, WithReconcileInterval(10*time.Millisecond))
	ctx := context.Background()

	f.service.Start(ctx)

	document, err := f.service.CreateDocument(ctx, "tenant-a", "user-1",
		"Guide", "A sentence.")
	require.NoError(t, err)
	f.service.Drain()

	analyzed, err := f.service.GetDocument(ctx, document.ID)
	require.NoError(t, err)
	assert.Equal(t, core.DocumentStatusAnalyzed, analyzed.Status)
}
