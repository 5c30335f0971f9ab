package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validDocument() *Document {
	return &Document{
		ID:       "doc-1",
		TenantID: "tenant-a",
		Title:    "Title",
		Content:  "Some content.",
	}
}

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Document)
		wantErr error
	}{
		{name: "valid", mutate: func(d *Document) {}},
		{name: "valid with status", mutate: func(d *Document) { d.Status = DocumentStatusSegmented }},
		{name: "missing tenant", mutate: func(d *Document) { d.TenantID = "" }, wantErr: ErrEmptyTenant},
		{name: "empty title", mutate: func(d *Document) { d.Title = "" }, wantErr: ErrEmptyTitle},
		{name: "whitespace title", mutate: func(d *Document) { d.Title = "   " }, wantErr: ErrEmptyTitle},
		{name: "empty content", mutate: func(d *Document) { d.Content = "" }, wantErr: ErrEmptyContent},
		{name: "whitespace content", mutate: func(d *Document) { d.Content = "\n\t" }, wantErr: ErrEmptyContent},
		{name: "unknown status", mutate: func(d *Document) { d.Status = 42 }, wantErr: ErrInvalidDocumentStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			document := validDocument()
			tt.mutate(document)

			err := ValidateDocument(document)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidDocument)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("nil document", func(t *testing.T) {
		assert.ErrorIs(t, ValidateDocument(nil), ErrInvalidDocument)
	})
}

func TestValidateSentence(t *testing.T) {
	valid := func() *Sentence {
		return &Sentence{
			ID:         SentenceID("doc-1", 0),
			DocumentID: "doc-1",
			TenantID:   "tenant-a",
			SequenceID: 0,
			Content:    "A sentence.",
		}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, ValidateSentence(valid()))
	})

	t.Run("valid title pseudo-sentence", func(t *testing.T) {
		sentence := valid()
		sentence.SequenceID = TitleSequenceID
		sentence.ID = SentenceID("doc-1", TitleSequenceID)
		assert.NoError(t, ValidateSentence(sentence))
	})

	t.Run("sequence below title", func(t *testing.T) {
		sentence := valid()
		sentence.SequenceID = -2
		sentence.ID = SentenceID("doc-1", -2)
		assert.ErrorIs(t, ValidateSentence(sentence), ErrInvalidSentence)
	})

	t.Run("mismatched id", func(t *testing.T) {
		sentence := valid()
		sentence.ID = "doc-1#5"
		assert.ErrorIs(t, ValidateSentence(sentence), ErrInvalidSentence)
	})

	t.Run("missing tenant", func(t *testing.T) {
		sentence := valid()
		sentence.TenantID = ""
		assert.ErrorIs(t, ValidateSentence(sentence), ErrEmptyTenant)
	})

	t.Run("blank content", func(t *testing.T) {
		sentence := valid()
		sentence.Content = "  "
		assert.ErrorIs(t, ValidateSentence(sentence), ErrEmptyContent)
	})
}

func TestValidateChat(t *testing.T) {
	assert.NoError(t, ValidateChat(&Chat{TenantID: "tenant-a", UserID: "user-1"}))
	assert.ErrorIs(t, ValidateChat(&Chat{UserID: "user-1"}), ErrEmptyTenant)
	assert.ErrorIs(t, ValidateChat(&Chat{TenantID: "tenant-a"}), ErrInvalidChat)
	assert.ErrorIs(t, ValidateChat(nil), ErrInvalidChat)
}

func TestValidateHistory(t *testing.T) {
	assert.NoError(t, ValidateHistory(&History{Role: HistoryRoleUser, Status: HistoryStatusNone}))
	assert.NoError(t, ValidateHistory(&History{Role: HistoryRoleAssistant, Status: HistoryStatusPending}))
	assert.ErrorIs(t, ValidateHistory(&History{Role: "bot", Status: HistoryStatusNone}), ErrInvalidHistoryRole)
	assert.ErrorIs(t, ValidateHistory(&History{Role: HistoryRoleUser, Status: 77}), ErrInvalidHistoryStatus)
	assert.ErrorIs(t, ValidateHistory(nil), ErrInvalidHistory)
}
