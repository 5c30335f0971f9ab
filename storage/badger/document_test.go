package badger

import (
	"context"
	"testing"
	"time"

	"github.com/tesserai/docpipe/core"
	"github.com/tesserai/docpipe/storage"
)

func newTestDocument(id, tenantID string) *core.Document {
	return &core.Document{
		ID:        id,
		TenantID:  tenantID,
		Title:     "Test Title",
		Content:   "Test content.",
		Status:    core.DocumentStatusCreated,
		CreatedBy: "tester",
	}
}

func TestDocumentBasics(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()

	created, err := repos.Documents.CreateDocument(ctx, newTestDocument("doc-1", "tenant-a"))
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}
	if created.CreatedAt.IsZero() {
		t.Fatal("Expected CreatedAt to be set")
	}
	if !created.UpdatedAt.Equal(created.CreatedAt) {
		t.Fatal("Expected UpdatedAt to equal CreatedAt on create")
	}

	retrieved, err := repos.Documents.GetDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Failed to get document: %v", err)
	}
	if retrieved.Title != "Test Title" {
		t.Fatalf("Expected 'Test Title', got '%s'", retrieved.Title)
	}

	// Duplicate ids are rejected
	_, err = repos.Documents.CreateDocument(ctx, newTestDocument("doc-1", "tenant-a"))
	if err != storage.ErrDuplicateKey {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	_, err = repos.Documents.GetDocument(context.Background(), "missing")
	if err != storage.ErrNotFound {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestUpdateDocument_PreservesCreatedAt(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()

	created, err := repos.Documents.CreateDocument(ctx, newTestDocument("doc-1", "tenant-a"))
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}

	updated := *created
	updated.Title = "New Title"
	updated.CreatedAt = time.Now().Add(24 * time.Hour)

	result, err := repos.Documents.UpdateDocument(ctx, &updated)
	if err != nil {
		t.Fatalf("Failed to update document: %v", err)
	}
	if !result.CreatedAt.Equal(created.CreatedAt) {
		t.Fatal("Expected CreatedAt to be immutable")
	}

	retrieved, err := repos.Documents.GetDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Failed to get document: %v", err)
	}
	if retrieved.Title != "New Title" {
		t.Fatalf("Expected 'New Title', got '%s'", retrieved.Title)
	}
}

func TestTransitionDocumentStatus(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()

	_, err = repos.Documents.CreateDocument(ctx, newTestDocument("doc-1", "tenant-a"))
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}

	// Created -> Segmented applies
	applied, err := repos.Documents.TransitionDocumentStatus(ctx, "doc-1", core.DocumentStatusCreated, core.DocumentStatusSegmented)
	if err != nil {
		t.Fatalf("Failed to transition status: %v", err)
	}
	if !applied {
		t.Fatal("Expected transition to apply")
	}

	// Created -> Segmented again is a guarded no-op
	applied, err = repos.Documents.TransitionDocumentStatus(ctx, "doc-1", core.DocumentStatusCreated, core.DocumentStatusSegmented)
	if err != nil {
		t.Fatalf("Failed to transition status: %v", err)
	}
	if applied {
		t.Fatal("Expected transition to be refused from wrong state")
	}

	retrieved, err := repos.Documents.GetDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Failed to get document: %v", err)
	}
	if retrieved.Status != core.DocumentStatusSegmented {
		t.Fatalf("Expected Segmented, got %s", retrieved.Status)
	}
}

func TestSoftDeleteDocument(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()

	_, err = repos.Documents.CreateDocument(ctx, newTestDocument("doc-1", "tenant-a"))
	if err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}

	if err := repos.Documents.SoftDeleteDocument(ctx, "doc-1"); err != nil {
		t.Fatalf("Failed to soft-delete document: %v", err)
	}

	// Reads treat the document as gone
	_, err = repos.Documents.GetDocument(ctx, "doc-1")
	if err != storage.ErrNotFound {
		t.Fatalf("Expected ErrNotFound after delete, got %v", err)
	}

	// Deleting twice fails the same way
	err = repos.Documents.SoftDeleteDocument(ctx, "doc-1")
	if err != storage.ErrNotFound {
		t.Fatalf("Expected ErrNotFound on second delete, got %v", err)
	}

	// Listings no longer include it
	docs, err := repos.Documents.ListDocuments(ctx, "tenant-a", 0, 0)
	if err != nil {
		t.Fatalf("Failed to list documents: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("Expected 0 documents, got %d", len(docs))
	}

	count, err := repos.Documents.CountDocuments(ctx, "tenant-a")
	if err != nil {
		t.Fatalf("Failed to count documents: %v", err)
	}
	if count != 0 {
		t.Fatalf("Expected count 0, got %d", count)
	}
}

func TestListDocuments_OrderAndPaging(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	ids := []string{"doc-1", "doc-2", "doc-3", "doc-4"}
	for i, id := range ids {
		doc := newTestDocument(id, "tenant-a")
		doc.CreatedAt = now.Add(time.Duration(i) * time.Minute)
		if _, err := repos.Documents.CreateDocument(ctx, doc); err != nil {
			t.Fatalf("Failed to create document %s: %v", id, err)
		}
	}
	// A different tenant's document must not leak into the listing
	other := newTestDocument("doc-other", "tenant-b")
	if _, err := repos.Documents.CreateDocument(ctx, other); err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}

	docs, err := repos.Documents.ListDocuments(ctx, "tenant-a", 0, 0)
	if err != nil {
		t.Fatalf("Failed to list documents: %v", err)
	}
	if len(docs) != 4 {
		t.Fatalf("Expected 4 documents, got %d", len(docs))
	}
	// Newest first
	if docs[0].ID != "doc-4" || docs[3].ID != "doc-1" {
		t.Fatalf("Expected newest-first order, got %s .. %s", docs[0].ID, docs[3].ID)
	}

	page, err := repos.Documents.ListDocuments(ctx, "tenant-a", 1, 2)
	if err != nil {
		t.Fatalf("Failed to list documents: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("Expected 2 documents, got %d", len(page))
	}
	if page[0].ID != "doc-3" || page[1].ID != "doc-2" {
		t.Fatalf("Expected doc-3, doc-2, got %s, %s", page[0].ID, page[1].ID)
	}

	_, err = repos.Documents.ListDocuments(ctx, "tenant-a", -1, 0)
	if err != storage.ErrInvalidQuery {
		t.Fatalf("Expected ErrInvalidQuery, got %v", err)
	}
}

func TestListDocumentsByStatus(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()

	for _, id := range []string{"doc-1", "doc-2", "doc-3"} {
		if _, err := repos.Documents.CreateDocument(ctx, newTestDocument(id, "tenant-a")); err != nil {
			t.Fatalf("Failed to create document %s: %v", id, err)
		}
	}
	if err := repos.Documents.SetDocumentStatus(ctx, "doc-2", core.DocumentStatusSegmented); err != nil {
		t.Fatalf("Failed to set status: %v", err)
	}

	segmented, err := repos.Documents.ListDocumentsByStatus(ctx, core.DocumentStatusSegmented, 0)
	if err != nil {
		t.Fatalf("Failed to list by status: %v", err)
	}
	if len(segmented) != 1 || segmented[0].ID != "doc-2" {
		t.Fatalf("Expected only doc-2 segmented, got %d entries", len(segmented))
	}

	created, err := repos.Documents.ListDocumentsByStatus(ctx, core.DocumentStatusCreated, 1)
	if err != nil {
		t.Fatalf("Failed to list by status: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("Expected limit to cap results at 1, got %d", len(created))
	}
}
