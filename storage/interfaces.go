package storage

import (
	"context"

	"github.com/tesserai/docpipe/core"
)

// DocumentRepository provides operations for managing documents.
// Implementations must be thread-safe, must apply the soft-delete predicate
// uniformly (a document with DeletedAt set is invisible to every read and
// query), and must support concurrent access.
type DocumentRepository interface {
	// CreateDocument persists a new document.
	// Sets CreatedAt/UpdatedAt timestamps if not already set.
	// Returns ErrDuplicateKey if the id already exists.
	CreateDocument(ctx context.Context, document *core.Document) (*core.Document, error)

	// GetDocument retrieves an active document by id.
	// Returns ErrNotFound if the document doesn't exist or is soft-deleted.
	GetDocument(ctx context.Context, id string) (*core.Document, error)

	// UpdateDocument updates an existing active document.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if the document doesn't exist or is soft-deleted.
	UpdateDocument(ctx context.Context, document *core.Document) (*core.Document, error)

	// SetDocumentStatus unconditionally sets a document's status.
	// Used by explicit signals (failure, retry) that override the normal
	// forward-only progression.
	SetDocumentStatus(ctx context.Context, id string, status core.DocumentStatus) error

	// TransitionDocumentStatus sets status to `to` only if the current
	// status is `from`. Returns false (and no error) if the document is in
	// any other state, which makes concurrent re-runs of the same
	// transition safe.
	TransitionDocumentStatus(ctx context.Context, id string, from, to core.DocumentStatus) (bool, error)

	// SoftDeleteDocument marks a document deleted without erasing it.
	// Returns ErrNotFound if the document doesn't exist or is already deleted.
	SoftDeleteDocument(ctx context.Context, id string) error

	// ListDocuments returns a tenant's active documents ordered by
	// CreatedAt descending, with offset/limit pagination.
	ListDocuments(ctx context.Context, tenantID string, offset, limit int) ([]*core.Document, error)

	// CountDocuments returns the number of a tenant's active documents.
	CountDocuments(ctx context.Context, tenantID string) (int, error)

	// ListDocumentsByStatus returns up to limit active documents with the
	// given status, in no particular order. Used by the reconciler.
	ListDocumentsByStatus(ctx context.Context, status core.DocumentStatus, limit int) ([]*core.Document, error)

	// Close releases repository resources.
	Close() error
}

// SentenceRepository provides operations for managing sentence units.
// Sentences are owned by their document: they are created and destroyed
// wholesale on (re)segmentation and never soft-deleted individually.
type SentenceRepository interface {
	// CreateSentences persists a batch of sentences.
	// Sets CreatedAt timestamps if not already set. Re-inserting an
	// existing id overwrites it, which keeps segmentation idempotent.
	CreateSentences(ctx context.Context, sentences ...*core.Sentence) ([]*core.Sentence, error)

	// GetSentence retrieves a single sentence by id.
	// Returns ErrNotFound if the sentence doesn't exist.
	GetSentence(ctx context.Context, id string) (*core.Sentence, error)

	// ListSentencesByDocument returns all sentences of a document ordered
	// by SequenceID ascending, the title pseudo-sentence first.
	ListSentencesByDocument(ctx context.Context, documentID string) ([]*core.Sentence, error)

	// DeleteSentencesByDocument removes every sentence of a document and
	// returns the ids that were removed.
	DeleteSentencesByDocument(ctx context.Context, documentID string) ([]string, error)

	// MarkSentenceAnalyzed sets IsAnalyzed to true. The flag only ever
	// advances: marking an already-analyzed sentence is a no-op, and
	// nothing clears the flag short of deleting the row.
	// Returns ErrNotFound if the sentence doesn't exist.
	MarkSentenceAnalyzed(ctx context.Context, id string) error

	// CountPendingSentences returns the number of a document's sentences
	// with IsAnalyzed = false.
	CountPendingSentences(ctx context.Context, documentID string) (int, error)

	// ListPendingSentences returns up to limit sentences with
	// IsAnalyzed = false across all documents. Used by the reconciler.
	ListPendingSentences(ctx context.Context, limit int) ([]*core.Sentence, error)

	// Close releases repository resources.
	Close() error
}

// ChatRepository provides operations for managing chats and their history
// entries.
type ChatRepository interface {
	// CreateChat persists a new chat.
	CreateChat(ctx context.Context, chat *core.Chat) (*core.Chat, error)

	// GetChat retrieves an active chat by id.
	// Returns ErrNotFound if the chat doesn't exist or is soft-deleted.
	GetChat(ctx context.Context, id string) (*core.Chat, error)

	// ListChats returns a user's active chats within a tenant ordered by
	// CreatedAt descending, with offset/limit pagination.
	ListChats(ctx context.Context, tenantID, userID string, offset, limit int) ([]*core.Chat, error)

	// CountChats returns the number of a user's active chats within a tenant.
	CountChats(ctx context.Context, tenantID, userID string) (int, error)

	// SoftDeleteChat marks a chat deleted without erasing it.
	SoftDeleteChat(ctx context.Context, id string) error

	// AppendHistories atomically appends entries to a chat's history,
	// assigning each a strictly increasing Seq from the chat's counter in
	// input order, plus ids and timestamps where unset. The counter, not
	// the wall clock, establishes the conversation's total order.
	AppendHistories(ctx context.Context, chatID string, entries ...*core.History) ([]*core.History, error)

	// GetHistory retrieves a single history entry by id.
	// Returns ErrNotFound if the entry doesn't exist.
	GetHistory(ctx context.Context, id string) (*core.History, error)

	// ListHistories returns a chat's history entries with Seq < beforeSeq,
	// ordered by Seq ascending. beforeSeq <= 0 means no upper bound.
	// limit > 0 keeps only the most recent limit entries, still ascending.
	ListHistories(ctx context.Context, chatID string, beforeSeq int64, limit int) ([]*core.History, error)

	// SetHistoryStatus sets a history entry's status.
	// Returns ErrNotFound if the entry doesn't exist.
	SetHistoryStatus(ctx context.Context, id string, status core.HistoryStatus) error

	// CompleteHistory writes the generated content and sets the status to
	// Generated in one step. This is the single content-filling mutation a
	// history entry receives.
	CompleteHistory(ctx context.Context, id string, content string) error

	// CountGeneratingHistories returns the number of history entries stuck
	// in Generating across all chats. Nothing repairs these; the count
	// exists so the reconciler can surface them.
	CountGeneratingHistories(ctx context.Context) (int, error)

	// Close releases repository resources.
	Close() error
}
