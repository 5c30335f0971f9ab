// Package chromem implements the vector index on chromem-go, an embedded
// vector store. Each tenant maps to its own collection.
package chromem

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/tesserai/docpipe/index"
)

const (
	metadataDocumentID = "documentId"
	metadataSequenceID = "sequenceId"
)

// Index is a chromem-go backed vector index with one collection per
// tenant.
type Index struct {
	db     *chromem.DB
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

var _ index.Index = (*Index)(nil)

// NewPersistentIndex opens an index persisted under dirPath.
func NewPersistentIndex(dirPath string) (*Index, error) {
	db, err := chromem.NewPersistentDB(dirPath, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}
	return newIndex(db), nil
}

// NewMemoryIndex creates a transient in-memory index. Intended for tests.
func NewMemoryIndex() *Index {
	return newIndex(chromem.NewDB())
}

func newIndex(db *chromem.DB) *Index {
	return &Index{
		db:     db,
		logger: slog.Default().With("component", "chromem-index"),
	}
}

// Close marks the index closed. chromem-go holds no external resources
// beyond its data directory, so there is nothing to flush.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.closed = true
	return nil
}

func (x *Index) collection(tenantID string) (*chromem.Collection, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return nil, index.ErrIndexClosed
	}
	// Embeddings are always precomputed, so no embedding function is
	// registered with the collection.
	c, err := x.db.GetOrCreateCollection("tenant-"+tenantID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection for tenant %s: %w", tenantID, err)
	}
	return c, nil
}

// Upsert inserts or replaces entries in the tenant's collection.
func (x *Index) Upsert(ctx context.Context, tenantID string, entries ...index.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	docs := make([]chromem.Document, 0, len(entries))
	for _, entry := range entries {
		if entry.ID == "" || len(entry.Vector) == 0 {
			return index.ErrInvalidEntry
		}
		docs = append(docs, chromem.Document{
			ID:        entry.ID,
			Embedding: entry.Vector,
			Metadata: map[string]string{
				metadataDocumentID: entry.Metadata.DocumentID,
				metadataSequenceID: strconv.Itoa(entry.Metadata.SequenceID),
			},
			// chromem requires non-empty content; the id is enough,
			// retrieval rehydrates text from storage.
			Content: entry.ID,
		})
	}

	c, err := x.collection(tenantID)
	if err != nil {
		return err
	}
	if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to upsert %d entries: %w", len(docs), err)
	}
	return nil
}

// Query returns up to topK nearest entries from the tenant's collection.
func (x *Index) Query(ctx context.Context, tenantID string, vector []float32, topK int) ([]index.Match, error) {
	if len(vector) == 0 || topK <= 0 {
		return nil, index.ErrInvalidQuery
	}

	c, err := x.collection(tenantID)
	if err != nil {
		return nil, err
	}

	// chromem rejects nResults greater than the collection size.
	n := topK
	if count := c.Count(); count < n {
		n = count
	}
	if n == 0 {
		return nil, nil
	}

	results, err := c.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query tenant %s: %w", tenantID, err)
	}

	matches := make([]index.Match, 0, len(results))
	for _, result := range results {
		seq, err := strconv.Atoi(result.Metadata[metadataSequenceID])
		if err != nil {
			x.logger.Warn("skipping entry with malformed metadata", "id", result.ID)
			continue
		}
		matches = append(matches, index.Match{
			ID:    result.ID,
			Score: result.Similarity,
			Metadata: index.Metadata{
				DocumentID: result.Metadata[metadataDocumentID],
				SequenceID: seq,
			},
		})
	}
	return matches, nil
}

// DeleteByIDs removes entries from the tenant's collection. Ids that are
// not present are ignored.
func (x *Index) DeleteByIDs(ctx context.Context, tenantID string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	c, err := x.collection(tenantID)
	if err != nil {
		return err
	}

	// chromem returns an error for unknown ids; delete one at a time so
	// a missing entry does not abort the batch.
	for _, id := range ids {
		if err := c.Delete(ctx, nil, nil, id); err != nil {
			x.logger.Debug("delete skipped", "id", id, "error", err)
		}
	}
	return nil
}
