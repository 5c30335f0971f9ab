package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DocumentStatus tracks a document's progress through the analysis pipeline.
type DocumentStatus int

const (
	// DocumentStatusCreated is the initial state; content has not been segmented yet.
	DocumentStatusCreated DocumentStatus = iota + 1
	// DocumentStatusSegmented means sentences exist and are being analyzed.
	DocumentStatusSegmented
	// DocumentStatusAnalyzed means every sentence has been embedded and indexed.
	DocumentStatusAnalyzed
	// DocumentStatusFailed is terminal until an explicit retry.
	DocumentStatusFailed
)

// String returns a lowercase name for the status.
func (s DocumentStatus) String() string {
	switch s {
	case DocumentStatusCreated:
		return "created"
	case DocumentStatusSegmented:
		return "segmented"
	case DocumentStatusAnalyzed:
		return "analyzed"
	case DocumentStatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Document is a tenant-scoped unit of raw content.
// Status only advances Created -> Segmented -> Analyzed; an explicit edit or
// retry resets it to Created and a failure signal forces Failed.
type Document struct {
	ID        string
	TenantID  string
	Title     string
	Content   string
	Status    DocumentStatus
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time // soft delete; set records are invisible to reads
}

// Deleted reports whether the document has been soft-deleted.
func (d *Document) Deleted() bool {
	return d.DeletedAt != nil
}

// TitleSequenceID is the reserved sequence id for the pseudo-sentence that
// carries the document title. It sorts before all body sentences.
const TitleSequenceID = -1

// Sentence is one segmented unit of a document's text.
// The (DocumentID, SequenceID) pair is unique and sequence order is the
// canonical read order.
type Sentence struct {
	ID         string // "{documentID}#{sequenceID}"
	DocumentID string
	TenantID   string // denormalized from the document for query locality
	SequenceID int
	Content    string
	IsAnalyzed bool
	CreatedBy  string
	CreatedAt  time.Time
}

// SentenceID builds the deterministic id for a sentence of a document.
func SentenceID(documentID string, sequenceID int) string {
	return documentID + "#" + strconv.Itoa(sequenceID)
}

// SplitSentenceID decomposes a sentence id into its document id and sequence id.
func SplitSentenceID(id string) (documentID string, sequenceID int, err error) {
	i := strings.LastIndex(id, "#")
	if i < 0 {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidSentenceID, id)
	}
	seq, err := strconv.Atoi(id[i+1:])
	if err != nil {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidSentenceID, id)
	}
	return id[:i], seq, nil
}

// HistoryRole identifies the author of a history entry.
type HistoryRole string

const (
	HistoryRoleSystem    HistoryRole = "system"
	HistoryRoleUser      HistoryRole = "user"
	HistoryRoleAssistant HistoryRole = "assistant"
)

// HistoryStatus tracks generation progress of an assistant entry.
type HistoryStatus int

const (
	// HistoryStatusNone applies to entries that never generate (system, user).
	HistoryStatusNone HistoryStatus = iota + 1
	// HistoryStatusPending is an assistant placeholder awaiting generation.
	HistoryStatusPending
	// HistoryStatusGenerating means a worker is streaming the response.
	HistoryStatusGenerating
	// HistoryStatusGenerated means the content has been filled in.
	HistoryStatusGenerated
	// HistoryStatusFailed is set by an explicit failure signal.
	HistoryStatusFailed
)

// String returns a lowercase name for the status.
func (s HistoryStatus) String() string {
	switch s {
	case HistoryStatusNone:
		return "none"
	case HistoryStatusPending:
		return "pending"
	case HistoryStatusGenerating:
		return "generating"
	case HistoryStatusGenerated:
		return "generated"
	case HistoryStatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Chat is a conversation owned by one user within one tenant.
type Chat struct {
	ID        string
	TenantID  string
	UserID    string
	Title     string
	CreatedAt time.Time
	DeletedAt *time.Time
}

// Deleted reports whether the chat has been soft-deleted.
func (c *Chat) Deleted() bool {
	return c.DeletedAt != nil
}

// History is one entry of a chat's conversation log. Seq is an explicit
// per-chat monotone counter assigned by storage; it, not CreatedAt, is the
// total order used for model context assembly.
type History struct {
	ID        string
	ChatID    string
	Seq       int64
	Role      HistoryRole
	Status    HistoryStatus
	Content   string
	CreatedAt time.Time
}
