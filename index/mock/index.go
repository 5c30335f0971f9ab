// Package mock provides a test double for the vector index.
package mock

import (
	"context"
	"sync"

	"github.com/tesserai/docpipe/index"
)

// Index is an in-memory index with optional function overrides. The zero
// override behavior stores entries per tenant and answers queries by exact
// vector equality order of insertion, which is enough for pipeline tests
// that only care about what was upserted and deleted.
type Index struct {
	UpsertFunc      func(ctx context.Context, tenantID string, entries ...index.Entry) error
	QueryFunc       func(ctx context.Context, tenantID string, vector []float32, topK int) ([]index.Match, error)
	DeleteByIDsFunc func(ctx context.Context, tenantID string, ids ...string) error

	mu      sync.Mutex
	entries map[string]map[string]index.Entry
}

var _ index.Index = (*Index)(nil)

// NewIndex creates an empty mock index.
func NewIndex() *Index {
	return &Index{entries: make(map[string]map[string]index.Entry)}
}

// Upsert stores entries, or delegates to UpsertFunc if set.
func (x *Index) Upsert(ctx context.Context, tenantID string, entries ...index.Entry) error {
	if x.UpsertFunc != nil {
		return x.UpsertFunc(ctx, tenantID, entries...)
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	tenant := x.entries[tenantID]
	if tenant == nil {
		tenant = make(map[string]index.Entry)
		x.entries[tenantID] = tenant
	}
	for _, entry := range entries {
		tenant[entry.ID] = entry
	}
	return nil
}

// Query delegates to QueryFunc if set, otherwise returns up to topK stored
// entries with score 1.
func (x *Index) Query(ctx context.Context, tenantID string, vector []float32, topK int) ([]index.Match, error) {
	if x.QueryFunc != nil {
		return x.QueryFunc(ctx, tenantID, vector, topK)
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	var matches []index.Match
	for _, entry := range x.entries[tenantID] {
		if len(matches) >= topK {
			break
		}
		matches = append(matches, index.Match{ID: entry.ID, Score: 1, Metadata: entry.Metadata})
	}
	return matches, nil
}

// DeleteByIDs removes stored entries, or delegates to DeleteByIDsFunc.
func (x *Index) DeleteByIDs(ctx context.Context, tenantID string, ids ...string) error {
	if x.DeleteByIDsFunc != nil {
		return x.DeleteByIDsFunc(ctx, tenantID, ids...)
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, id := range ids {
		delete(x.entries[tenantID], id)
	}
	return nil
}

// Close is a no-op.
func (x *Index) Close() error {
	return nil
}

// Stored returns a snapshot of a tenant's entries keyed by id.
func (x *Index) Stored(tenantID string) map[string]index.Entry {
	x.mu.Lock()
	defer x.mu.Unlock()
	snapshot := make(map[string]index.Entry, len(x.entries[tenantID]))
	for id, entry := range x.entries[tenantID] {
		snapshot[id] = entry
	}
	return snapshot
}
