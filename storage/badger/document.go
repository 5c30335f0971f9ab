package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/tesserai/docpipe/core"
	"github.com/tesserai/docpipe/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) (*DocumentRepository, error) {
	return &DocumentRepository{backend: backend}, nil
}

// Close releases repository resources.
func (r *DocumentRepository) Close() error {
	return nil
}

// activeDocument is the single soft-delete predicate applied by every read
// and query path.
func activeDocument(document *core.Document) bool {
	return document != nil && document.DeletedAt == nil
}

// readDocument reads and decodes a document inside a transaction.
// Returns nil without error if the key does not exist.
func (r *DocumentRepository) readDocument(tx *badger.Txn, key []byte) (*core.Document, error) {
	item, err := tx.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var document *core.Document
	err = item.Value(func(val []byte) error {
		document, err = storage.UnmarshalDocument(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return document, nil
}

// CreateDocument persists a new document.
func (r *DocumentRepository) CreateDocument(ctx context.Context, document *core.Document) (*core.Document, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(document.ID)

		existing, err := r.readDocument(tx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			return storage.ErrDuplicateKey
		}

		now := time.Now().UTC()
		if document.CreatedAt.IsZero() {
			document.CreatedAt = now
		}
		document.UpdatedAt = document.CreatedAt

		value, err := storage.MarshalDocument(document)
		if err != nil {
			return err
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}

		tenantKey := makeDocumentTenantKey(document.TenantID, document.CreatedAt, document.ID)
		if err := tx.Set(tenantKey, []byte(document.ID)); err != nil {
			return err
		}

		statusKey := makeDocumentStatusKey(int(document.Status), document.ID)
		if err := tx.Set(statusKey, []byte(document.ID)); err != nil {
			return err
		}

		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return document, nil
}

// GetDocument retrieves an active document by id.
func (r *DocumentRepository) GetDocument(ctx context.Context, id string) (*core.Document, error) {
	var result *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		document, err := r.readDocument(tx, makeDocumentKey(id))
		if err != nil {
			return err
		}
		if !activeDocument(document) {
			return storage.ErrNotFound
		}
		result = document
		return nil
	}, false)
	return result, err
}

// UpdateDocument updates an existing active document.
func (r *DocumentRepository) UpdateDocument(ctx context.Context, document *core.Document) (*core.Document, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(document.ID)

		old, err := r.readDocument(tx, key)
		if err != nil {
			return err
		}
		if !activeDocument(old) {
			return storage.ErrNotFound
		}

		// CreatedAt is immutable; the tenant index entry never moves.
		document.CreatedAt = old.CreatedAt
		document.UpdatedAt = time.Now().UTC()

		value, err := storage.MarshalDocument(document)
		if err != nil {
			return err
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}

		if old.Status != document.Status {
			if err := tx.Delete(makeDocumentStatusKey(int(old.Status), old.ID)); err != nil {
				return err
			}
			if err := tx.Set(makeDocumentStatusKey(int(document.Status), document.ID), []byte(document.ID)); err != nil {
				return err
			}
		}

		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return document, nil
}

// SetDocumentStatus unconditionally sets a document's status.
func (r *DocumentRepository) SetDocumentStatus(ctx context.Context, id string, status core.DocumentStatus) error {
	return r.backend.withTxRetry(func(tx *badger.Txn) error {
		document, err := r.readDocument(tx, makeDocumentKey(id))
		if err != nil {
			return err
		}
		if !activeDocument(document) {
			return storage.ErrNotFound
		}
		return r.writeStatus(tx, document, status)
	}, statusRetryAttempts)
}

// TransitionDocumentStatus sets status to `to` only if the current status
// is `from`. Returns false if the document is in any other state.
func (r *DocumentRepository) TransitionDocumentStatus(ctx context.Context, id string, from, to core.DocumentStatus) (bool, error) {
	var applied bool
	err := r.backend.withTxRetry(func(tx *badger.Txn) error {
		applied = false

		document, err := r.readDocument(tx, makeDocumentKey(id))
		if err != nil {
			return err
		}
		if !activeDocument(document) {
			return storage.ErrNotFound
		}
		if document.Status != from {
			return nil
		}
		if err := r.writeStatus(tx, document, to); err != nil {
			return err
		}
		applied = true
		return nil
	}, statusRetryAttempts)
	return applied, err
}

// statusRetryAttempts bounds conflict retries on status writes; the
// pipeline and reconciler may race on the same document.
const statusRetryAttempts = 3

// writeStatus rewrites a document with a new status and moves its status
// index entry. Commits the transaction.
func (r *DocumentRepository) writeStatus(tx *badger.Txn, document *core.Document, status core.DocumentStatus) error {
	old := document.Status
	document.Status = status
	document.UpdatedAt = time.Now().UTC()

	value, err := storage.MarshalDocument(document)
	if err != nil {
		return err
	}
	if err := tx.Set(makeDocumentKey(document.ID), value); err != nil {
		return err
	}

	if old != status {
		if err := tx.Delete(makeDocumentStatusKey(int(old), document.ID)); err != nil {
			return err
		}
		if err := tx.Set(makeDocumentStatusKey(int(status), document.ID), []byte(document.ID)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SoftDeleteDocument marks a document deleted. The primary row stays; the
// listing and status index entries are removed so queries and sweeps skip
// it without decoding.
func (r *DocumentRepository) SoftDeleteDocument(ctx context.Context, id string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		document, err := r.readDocument(tx, makeDocumentKey(id))
		if err != nil {
			return err
		}
		if !activeDocument(document) {
			return storage.ErrNotFound
		}

		now := time.Now().UTC()
		document.DeletedAt = &now
		document.UpdatedAt = now

		value, err := storage.MarshalDocument(document)
		if err != nil {
			return err
		}
		if err := tx.Set(makeDocumentKey(id), value); err != nil {
			return err
		}
		if err := tx.Delete(makeDocumentTenantKey(document.TenantID, document.CreatedAt, id)); err != nil {
			return err
		}
		if err := tx.Delete(makeDocumentStatusKey(int(document.Status), id)); err != nil {
			return err
		}

		return tx.Commit()
	}, true)
}

// ListDocuments returns a tenant's active documents ordered by CreatedAt
// descending.
func (r *DocumentRepository) ListDocuments(ctx context.Context, tenantID string, offset, limit int) ([]*core.Document, error) {
	if offset < 0 || limit < 0 {
		return nil, storage.ErrInvalidQuery
	}

	var results []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makeDocumentTenantPrefix(tenantID)

		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix

		it := tx.NewIterator(opts)
		defer it.Close()

		// Seek past the last possible key so reverse iteration starts at
		// the newest entry.
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

			document, err := r.readDocument(tx, makeDocumentKey(id))
			if err != nil {
				return err
			}
			if activeDocument(document) {
				results = append(results, document)
			}
		}
		return nil
	}, false)

	return results, err
}

// CountDocuments returns the number of a tenant's active documents.
func (r *DocumentRepository) CountDocuments(ctx context.Context, tenantID string) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makeDocumentTenantPrefix(tenantID)

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

// ListDocumentsByStatus returns up to limit active documents with the given
// status.
func (r *DocumentRepository) ListDocumentsByStatus(ctx context.Context, status core.DocumentStatus, limit int) ([]*core.Document, error) {
	var results []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makeDocumentStatusPrefix(int(status))

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

			document, err := r.readDocument(tx, makeDocumentKey(id))
			if err != nil {
				return err
			}
			if activeDocument(document) && document.Status == status {
				results = append(results, document)
			}
		}
		return nil
	}, false)
	return results, err
}
