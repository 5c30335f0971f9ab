package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/tesserai/docpipe/core"
	"github.com/tesserai/docpipe/storage"
)

// SentenceRepository implements storage.SentenceRepository for BadgerDB.
type SentenceRepository struct {
	backend *Backend
}

var _ storage.SentenceRepository = (*SentenceRepository)(nil)

// NewSentenceRepository creates a new SentenceRepository.
func NewSentenceRepository(backend *Backend) (*SentenceRepository, error) {
	return &SentenceRepository{backend: backend}, nil
}

// Close releases repository resources.
func (r *SentenceRepository) Close() error {
	return nil
}

// readSentence reads and decodes a sentence inside a transaction.
// Returns nil without error if the key does not exist.
func (r *SentenceRepository) readSentence(tx *badger.Txn, key []byte) (*core.Sentence, error) {
	item, err := tx.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var sentence *core.Sentence
	err = item.Value(func(val []byte) error {
		sentence, err = storage.UnmarshalSentence(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sentence, nil
}

// writeSentence writes a sentence row and its index entries.
func (r *SentenceRepository) writeSentence(tx *badger.Txn, sentence *core.Sentence) error {
	value, err := storage.MarshalSentence(sentence)
	if err != nil {
		return err
	}
	if err := tx.Set(makeSentenceKey(sentence.ID), value); err != nil {
		return err
	}
	if err := tx.Set(makeSentenceDocKey(sentence.DocumentID, sentence.SequenceID), []byte(sentence.ID)); err != nil {
		return err
	}

	pendKey := makeSentencePendKey(sentence.DocumentID, sentence.SequenceID)
	if sentence.IsAnalyzed {
		return tx.Delete(pendKey)
	}
	return tx.Set(pendKey, []byte(sentence.ID))
}

// CreateSentences persists a batch of sentences. Existing ids are
// overwritten, so re-running segmentation yields the same rows.
func (r *SentenceRepository) CreateSentences(ctx context.Context, sentences ...*core.Sentence) ([]*core.Sentence, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for _, sentence := range sentences {
			if sentence.CreatedAt.IsZero() {
				sentence.CreatedAt = now
			}
			if err := r.writeSentence(tx, sentence); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return sentences, nil
}

// GetSentence retrieves a single sentence by id.
func (r *SentenceRepository) GetSentence(ctx context.Context, id string) (*core.Sentence, error) {
	var result *core.Sentence
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		sentence, err := r.readSentence(tx, makeSentenceKey(id))
		if err != nil {
			return err
		}
		if sentence == nil {
			return storage.ErrNotFound
		}
		result = sentence
		return nil
	}, false)
	return result, err
}

// ListSentencesByDocument returns all sentences of a document ordered by
// SequenceID ascending, the title pseudo-sentence first.
func (r *SentenceRepository) ListSentencesByDocument(ctx context.Context, documentID string) ([]*core.Sentence, error) {
	var results []*core.Sentence
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makeSentenceDocPrefix(documentID)

		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := tx.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var id string
			if err := it.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return err
			}

			sentence, err := r.readSentence(tx, makeSentenceKey(id))
			if err != nil {
				return err
			}
			if sentence != nil {
				results = append(results, sentence)
			}
		}
		return nil
	}, false)
	return results, err
}

// DeleteSentencesByDocument removes every sentence of a document and
// returns the removed ids.
func (r *SentenceRepository) DeleteSentencesByDocument(ctx context.Context, documentID string) ([]string, error) {
	var deleted []string
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		deleted = deleted[:0]

		prefix := makeSentenceDocPrefix(documentID)

		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := tx.NewIterator(opts)
		defer it.Close()

		var indexKeys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var id string
			if err := it.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return err
			}
			deleted = append(deleted, id)
			indexKeys = append(indexKeys, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, id := range deleted {
			if err := tx.Delete(makeSentenceKey(id)); err != nil {
				return err
			}
			_, seq, err := core.SplitSentenceID(id)
			if err != nil {
				return err
			}
			if err := tx.Delete(makeSentencePendKey(documentID, seq)); err != nil {
				return err
			}
		}
		for _, key := range indexKeys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}

		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// MarkSentenceAnalyzed sets IsAnalyzed to true. Marking an
// already-analyzed sentence is a no-op; the flag never goes backwards.
func (r *SentenceRepository) MarkSentenceAnalyzed(ctx context.Context, id string) error {
	return r.backend.withTxRetry(func(tx *badger.Txn) error {
		sentence, err := r.readSentence(tx, makeSentenceKey(id))
		if err != nil {
			return err
		}
		if sentence == nil {
			return storage.ErrNotFound
		}
		if sentence.IsAnalyzed {
			return nil
		}

		sentence.IsAnalyzed = true
		if err := r.writeSentence(tx, sentence); err != nil {
			return err
		}
		return tx.Commit()
	}, statusRetryAttempts)
}

// CountPendingSentences returns the number of a document's sentences with
// IsAnalyzed = false.
func (r *SentenceRepository) CountPendingSentences(ctx context.Context, documentID string) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makeSentencePendPrefix(documentID)

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

// ListPendingSentences returns up to limit unanalyzed sentences across all
// documents.
func (r *SentenceRepository) ListPendingSentences(ctx context.Context, limit int) ([]*core.Sentence, error) {
	var results []*core.Sentence
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := sentencePendScanPrefix()

		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := tx.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
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

			sentence, err := r.readSentence(tx, makeSentenceKey(id))
			if err != nil {
				return err
			}
			if sentence != nil && !sentence.IsAnalyzed {
				results = append(results, sentence)
			}
		}
		return nil
	}, false)
	return results, err
}
