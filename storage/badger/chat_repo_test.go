package badger

import (
	"context"
	"sync"
	"testing"

	"github.com/tesserai/docpipe/core"
	"github.com/tesserai/docpipe/storage"
)

func newTestChat(id string) *core.Chat {
	return &core.Chat{
		ID:       id,
		TenantID: "tenant-a",
		UserID:   "user-1",
		Title:    "Test Chat",
	}
}

func TestChatBasics(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()

	created, err := repos.Chats.CreateChat(ctx, newTestChat("chat-1"))
	if err != nil {
		t.Fatalf("Failed to create chat: %v", err)
	}
	if created.CreatedAt.IsZero() {
		t.Fatal("Expected CreatedAt to be set")
	}

	retrieved, err := repos.Chats.GetChat(ctx, "chat-1")
	if err != nil {
		t.Fatalf("Failed to get chat: %v", err)
	}
	if retrieved.Title != "Test Chat" {
		t.Fatalf("Expected 'Test Chat', got '%s'", retrieved.Title)
	}

	_, err = repos.Chats.CreateChat(ctx, newTestChat("chat-1"))
	if err != storage.ErrDuplicateKey {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestSoftDeleteChat(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()

	if _, err := repos.Chats.CreateChat(ctx, newTestChat("chat-1")); err != nil {
		t.Fatalf("Failed to create chat: %v", err)
	}
	if err := repos.Chats.SoftDeleteChat(ctx, "chat-1"); err != nil {
		t.Fatalf("Failed to delete chat: %v", err)
	}

	_, err = repos.Chats.GetChat(ctx, "chat-1")
	if err != storage.ErrNotFound {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	chats, err := repos.Chats.ListChats(ctx, "tenant-a", "user-1", 0, 0)
	if err != nil {
		t.Fatalf("Failed to list chats: %v", err)
	}
	if len(chats) != 0 {
		t.Fatalf("Expected 0 chats, got %d", len(chats))
	}
}

func TestAppendHistories_SeqMonotone(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()

	if _, err := repos.Chats.CreateChat(ctx, newTestChat("chat-1")); err != nil {
		t.Fatalf("Failed to create chat: %v", err)
	}

	first, err := repos.Chats.AppendHistories(ctx, "chat-1",
		&core.History{Role: core.HistoryRoleUser, Status: core.HistoryStatusNone, Content: "Hello"},
		&core.History{Role: core.HistoryRoleAssistant, Status: core.HistoryStatusPending},
	)
	if err != nil {
		t.Fatalf("Failed to append histories: %v", err)
	}
	if first[0].Seq != 1 || first[1].Seq != 2 {
		t.Fatalf("Expected seqs 1,2, got %d,%d", first[0].Seq, first[1].Seq)
	}
	if first[0].ID == "" || first[1].ID == "" {
		t.Fatal("Expected ids to be assigned")
	}

	second, err := repos.Chats.AppendHistories(ctx, "chat-1",
		&core.History{Role: core.HistoryRoleUser, Status: core.HistoryStatusNone, Content: "Again"},
	)
	if err != nil {
		t.Fatalf("Failed to append histories: %v", err)
	}
	if second[0].Seq != 3 {
		t.Fatalf("Expected seq 3, got %d", second[0].Seq)
	}

	_, err = repos.Chats.AppendHistories(ctx, "missing",
		&core.History{Role: core.HistoryRoleUser},
	)
	if err != storage.ErrNotFound {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestAppendHistories_ConcurrentPairsDoNotInterleave(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()

	if _, err := repos.Chats.CreateChat(ctx, newTestChat("chat-1")); err != nil {
		t.Fatalf("Failed to create chat: %v", err)
	}

	const writers = 8
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			// Conflicting appends retry; a pair always lands on
			// adjacent seqs.
			for {
				_, err := repos.Chats.AppendHistories(ctx, "chat-1",
					&core.History{Role: core.HistoryRoleUser, Content: "q"},
					&core.History{Role: core.HistoryRoleAssistant, Status: core.HistoryStatusPending},
				)
				if err == nil {
					return
				}
			}
		}()
	}
	wg.Wait()

	entries, err := repos.Chats.ListHistories(ctx, "chat-1", 0, 0)
	if err != nil {
		t.Fatalf("Failed to list histories: %v", err)
	}
	if len(entries) != writers*2 {
		t.Fatalf("Expected %d entries, got %d", writers*2, len(entries))
	}
	for i, entry := range entries {
		if entry.Seq != int64(i+1) {
			t.Fatalf("Expected seq %d at position %d, got %d", i+1, i, entry.Seq)
		}
	}
	// Every user entry is immediately followed by its assistant entry
	for i := 0; i < len(entries); i += 2 {
		if entries[i].Role != core.HistoryRoleUser || entries[i+1].Role != core.HistoryRoleAssistant {
			t.Fatalf("Expected user/assistant pair at %d, got %s/%s", i, entries[i].Role, entries[i+1].Role)
		}
	}
}

func TestListHistories_BeforeSeqAndLimit(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()

	if _, err := repos.Chats.CreateChat(ctx, newTestChat("chat-1")); err != nil {
		t.Fatalf("Failed to create chat: %v", err)
	}

	var all []*core.History
	for i := 0; i < 6; i++ {
		entries, err := repos.Chats.AppendHistories(ctx, "chat-1",
			&core.History{Role: core.HistoryRoleUser, Content: "msg"},
		)
		if err != nil {
			t.Fatalf("Failed to append: %v", err)
		}
		all = append(all, entries[0])
	}

	// beforeSeq bounds the scan exclusively
	before, err := repos.Chats.ListHistories(ctx, "chat-1", all[3].Seq, 0)
	if err != nil {
		t.Fatalf("Failed to list histories: %v", err)
	}
	if len(before) != 3 {
		t.Fatalf("Expected 3 entries before seq %d, got %d", all[3].Seq, len(before))
	}

	// limit keeps the most recent entries, still in ascending order
	recent, err := repos.Chats.ListHistories(ctx, "chat-1", 0, 2)
	if err != nil {
		t.Fatalf("Failed to list histories: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(recent))
	}
	if recent[0].Seq != all[4].Seq || recent[1].Seq != all[5].Seq {
		t.Fatalf("Expected seqs %d,%d, got %d,%d", all[4].Seq, all[5].Seq, recent[0].Seq, recent[1].Seq)
	}
}

func TestHistoryStatusLifecycle(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()

	if _, err := repos.Chats.CreateChat(ctx, newTestChat("chat-1")); err != nil {
		t.Fatalf("Failed to create chat: %v", err)
	}
	entries, err := repos.Chats.AppendHistories(ctx, "chat-1",
		&core.History{Role: core.HistoryRoleAssistant, Status: core.HistoryStatusPending},
	)
	if err != nil {
		t.Fatalf("Failed to append: %v", err)
	}
	id := entries[0].ID

	if err := repos.Chats.SetHistoryStatus(ctx, id, core.HistoryStatusGenerating); err != nil {
		t.Fatalf("Failed to set status: %v", err)
	}

	count, err := repos.Chats.CountGeneratingHistories(ctx)
	if err != nil {
		t.Fatalf("Failed to count generating: %v", err)
	}
	if count != 1 {
		t.Fatalf("Expected 1 generating, got %d", count)
	}

	if err := repos.Chats.CompleteHistory(ctx, id, "The answer."); err != nil {
		t.Fatalf("Failed to complete history: %v", err)
	}

	retrieved, err := repos.Chats.GetHistory(ctx, id)
	if err != nil {
		t.Fatalf("Failed to get history: %v", err)
	}
	if retrieved.Status != core.HistoryStatusGenerated {
		t.Fatalf("Expected Generated, got %s", retrieved.Status)
	}
	if retrieved.Content != "The answer." {
		t.Fatalf("Expected content, got '%s'", retrieved.Content)
	}

	count, err = repos.Chats.CountGeneratingHistories(ctx)
	if err != nil {
		t.Fatalf("Failed to count generating: %v", err)
	}
	if count != 0 {
		t.Fatalf("Expected 0 generating, got %d", count)
	}

	err = repos.Chats.SetHistoryStatus(ctx, "missing", core.HistoryStatusFailed)
	if err != storage.ErrNotFound {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}
