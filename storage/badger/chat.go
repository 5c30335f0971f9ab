package badger

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/tesserai/docpipe/core"
	"github.com/tesserai/docpipe/storage"
)

// ChatRepository implements storage.ChatRepository for BadgerDB.
type ChatRepository struct {
	backend *Backend
}

var _ storage.ChatRepository = (*ChatRepository)(nil)

// NewChatRepository creates a new ChatRepository.
func NewChatRepository(backend *Backend) (*ChatRepository, error) {
	return &ChatRepository{backend: backend}, nil
}

// Close releases repository resources.
func (r *ChatRepository) Close() error {
	return nil
}

// activeChat is the soft-delete predicate for chats.
func activeChat(chat *core.Chat) bool {
	return chat != nil && chat.DeletedAt == nil
}

func (r *ChatRepository) readChat(tx *badger.Txn, key []byte) (*core.Chat, error) {
	item, err := tx.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var chat *core.Chat
	err = item.Value(func(val []byte) error {
		chat, err = storage.UnmarshalChat(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return chat, nil
}

func (r *ChatRepository) readHistory(tx *badger.Txn, key []byte) (*core.History, error) {
	item, err := tx.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var history *core.History
	err = item.Value(func(val []byte) error {
		history, err = storage.UnmarshalHistory(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return history, nil
}

// CreateChat persists a new chat.
func (r *ChatRepository) CreateChat(ctx context.Context, chat *core.Chat) (*core.Chat, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeChatKey(chat.ID)

		existing, err := r.readChat(tx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			return storage.ErrDuplicateKey
		}

		if chat.CreatedAt.IsZero() {
			chat.CreatedAt = time.Now().UTC()
		}

		value, err := storage.MarshalChat(chat)
		if err != nil {
			return err
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}

		ownerKey := makeChatOwnerKey(chat.TenantID, chat.UserID, chat.CreatedAt, chat.ID)
		if err := tx.Set(ownerKey, []byte(chat.ID)); err != nil {
			return err
		}

		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return chat, nil
}

// GetChat retrieves an active chat by id.
func (r *ChatRepository) GetChat(ctx context.Context, id string) (*core.Chat, error) {
	var result *core.Chat
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		chat, err := r.readChat(tx, makeChatKey(id))
		if err != nil {
			return err
		}
		if !activeChat(chat) {
			return storage.ErrNotFound
		}
		result = chat
		return nil
	}, false)
	return result, err
}

// ListChats returns a user's active chats ordered by CreatedAt descending.
func (r *ChatRepository) ListChats(ctx context.Context, tenantID, userID string, offset, limit int) ([]*core.Chat, error) {
	if offset < 0 || limit < 0 {
		return nil, storage.ErrInvalidQuery
	}

	var results []*core.Chat
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makeChatOwnerPrefix(tenantID, userID)

		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix

		it := tx.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte{}, prefix...), 0xff)

		skipped := 0
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if skipped < offset {
				skipped++
				continue
			}
			if limit > 0 && len(results) >= limit {
				break
			}

			var id string
			if err := it.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return err
			}

			chat, err := r.readChat(tx, makeChatKey(id))
			if err != nil {
				return err
			}
			if activeChat(chat) {
				results = append(results, chat)
			}
		}
		return nil
	}, false)
	return results, err
}

// CountChats returns the number of a user's active chats.
func (r *ChatRepository) CountChats(ctx context.Context, tenantID, userID string) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makeChatOwnerPrefix(tenantID, userID)

		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix

		it := tx.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// SoftDeleteChat marks a chat deleted and removes its listing index entry.
func (r *ChatRepository) SoftDeleteChat(ctx context.Context, id string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		chat, err := r.readChat(tx, makeChatKey(id))
		if err != nil {
			return err
		}
		if !activeChat(chat) {
			return storage.ErrNotFound
		}

		now := time.Now().UTC()
		chat.DeletedAt = &now

		value, err := storage.MarshalChat(chat)
		if err != nil {
			return err
		}
		if err := tx.Set(makeChatKey(id), value); err != nil {
			return err
		}
		if err := tx.Delete(makeChatOwnerKey(chat.TenantID, chat.UserID, chat.CreatedAt, id)); err != nil {
			return err
		}

		return tx.Commit()
	}, true)
}

// nextSeq reads, increments and writes back a chat's sequence counter.
func (r *ChatRepository) nextSeq(tx *badger.Txn, chatID string) (int64, error) {
	key := makeHistorySeqKey(chatID)

	var current int64
	item, err := tx.Get(key)
	if err == nil {
		err = item.Value(func(val []byte) error {
			current = int64(binary.BigEndian.Uint64(val))
			return nil
		})
		if err != nil {
			return 0, err
		}
	} else if err != badger.ErrKeyNotFound {
		return 0, err
	}

	next := current + 1
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(next))
	if err := tx.Set(key, buf); err != nil {
		return 0, err
	}
	return next, nil
}

// AppendHistories atomically appends entries to a chat's history, assigning
// strictly increasing Seq values from the chat's counter. Concurrent
// appends to the same chat conflict at commit and retry, so two producers
// can never interleave their pairs.
func (r *ChatRepository) AppendHistories(ctx context.Context, chatID string, entries ...*core.History) ([]*core.History, error) {
	err := r.backend.withTxRetry(func(tx *badger.Txn) error {
		chat, err := r.readChat(tx, makeChatKey(chatID))
		if err != nil {
			return err
		}
		if !activeChat(chat) {
			return storage.ErrNotFound
		}

		now := time.Now().UTC()
		for _, entry := range entries {
			seq, err := r.nextSeq(tx, chatID)
			if err != nil {
				return err
			}

			entry.ChatID = chatID
			entry.Seq = seq
			if entry.ID == "" {
				entry.ID = uuid.NewString()
			}
			if entry.CreatedAt.IsZero() {
				entry.CreatedAt = now
			}

			value, err := storage.MarshalHistory(entry)
			if err != nil {
				return err
			}
			if err := tx.Set(makeHistoryKey(entry.ID), value); err != nil {
				return err
			}
			if err := tx.Set(makeHistoryChatKey(chatID, seq), []byte(entry.ID)); err != nil {
				return err
			}
			if err := r.updateGenMarker(tx, entry); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, statusRetryAttempts)

	if err != nil {
		return nil, err
	}
	return entries, nil
}

// GetHistory retrieves a single history entry by id.
func (r *ChatRepository) GetHistory(ctx context.Context, id string) (*core.History, error) {
	var result *core.History
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		history, err := r.readHistory(tx, makeHistoryKey(id))
		if err != nil {
			return err
		}
		if history == nil {
			return storage.ErrNotFound
		}
		result = history
		return nil
	}, false)
	return result, err
}

// ListHistories returns a chat's history entries with Seq < beforeSeq,
// ordered by Seq ascending. limit > 0 keeps only the most recent entries.
func (r *ChatRepository) ListHistories(ctx context.Context, chatID string, beforeSeq int64, limit int) ([]*core.History, error) {
	var results []*core.History
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makeHistoryChatPrefix(chatID)

		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := tx.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			seq := int64(binary.BigEndian.Uint64(key[len(prefix):]))
			if beforeSeq > 0 && seq >= beforeSeq {
				break
			}

			var id string
			if err := it.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return err
			}

			history, err := r.readHistory(tx, makeHistoryKey(id))
			if err != nil {
				return err
			}
			if history != nil {
				results = append(results, history)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(results) > limit {
		results = results[len(results)-limit:]
	}
	return results, nil
}

// updateGenMarker maintains the index of entries in Generating state.
func (r *ChatRepository) updateGenMarker(tx *badger.Txn, history *core.History) error {
	key := makeHistoryGenKey(history.ID)
	if history.Status == core.HistoryStatusGenerating {
		return tx.Set(key, []byte(history.ID))
	}
	return tx.Delete(key)
}

// SetHistoryStatus sets a history entry's status.
func (r *ChatRepository) SetHistoryStatus(ctx context.Context, id string, status core.HistoryStatus) error {
	return r.backend.withTxRetry(func(tx *badger.Txn) error {
		history, err := r.readHistory(tx, makeHistoryKey(id))
		if err != nil {
			return err
		}
		if history == nil {
			return storage.ErrNotFound
		}

		history.Status = status

		value, err := storage.MarshalHistory(history)
		if err != nil {
			return err
		}
		if err := tx.Set(makeHistoryKey(id), value); err != nil {
			return err
		}
		if err := r.updateGenMarker(tx, history); err != nil {
			return err
		}
		return tx.Commit()
	}, statusRetryAttempts)
}

// CompleteHistory writes generated content and sets status to Generated.
func (r *ChatRepository) CompleteHistory(ctx context.Context, id string, content string) error {
	return r.backend.withTxRetry(func(tx *badger.Txn) error {
		history, err := r.readHistory(tx, makeHistoryKey(id))
		if err != nil {
			return err
		}
		if history == nil {
			return storage.ErrNotFound
		}

		history.Content = content
		history.Status = core.HistoryStatusGenerated

		value, err := storage.MarshalHistory(history)
		if err != nil {
			return err
		}
		if err := tx.Set(makeHistoryKey(id), value); err != nil {
			return err
		}
		if err := r.updateGenMarker(tx, history); err != nil {
			return err
		}
		return tx.Commit()
	}, statusRetryAttempts)
}

// CountGeneratingHistories returns the number of entries stuck in
// Generating across all chats.
func (r *ChatRepository) CountGeneratingHistories(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := historyGenScanPrefix()

		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix

		it := tx.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}
