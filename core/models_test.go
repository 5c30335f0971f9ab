package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentenceID(t *testing.T) {
	assert.Equal(t, "doc-1#0", SentenceID("doc-1", 0))
	assert.Equal(t, "doc-1#-1", SentenceID("doc-1", TitleSequenceID))
	assert.Equal(t, "doc-1#42", SentenceID("doc-1", 42))
}

func TestSplitSentenceID(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		documentID string
		sequenceID int
		wantErr    bool
	}{
		{name: "body sentence", id: "doc-1#3", documentID: "doc-1", sequenceID: 3},
		{name: "title sentence", id: "doc-1#-1", documentID: "doc-1", sequenceID: -1},
		{name: "document id containing separator", id: "a#b#7", documentID: "a#b", sequenceID: 7},
		{name: "no separator", id: "doc-1", wantErr: true},
		{name: "non-numeric sequence", id: "doc-1#x", wantErr: true},
		{name: "empty", id: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			documentID, sequenceID, err := SplitSentenceID(tt.id)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSentenceID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.documentID, documentID)
			assert.Equal(t, tt.sequenceID, sequenceID)
		})
	}
}

func TestSentenceID_RoundTrip(t *testing.T) {
	for _, seq := range []int{TitleSequenceID, 0, 1, 999} {
		documentID, sequenceID, err := SplitSentenceID(SentenceID("doc-9", seq))
		require.NoError(t, err)
		assert.Equal(t, "doc-9", documentID)
		assert.Equal(t, seq, sequenceID)
	}
}

func TestDocumentStatus_String(t *testing.T) {
	assert.Equal(t, "created", DocumentStatusCreated.String())
	assert.Equal(t, "segmented", DocumentStatusSegmented.String())
	assert.Equal(t, "analyzed", DocumentStatusAnalyzed.String())
	assert.Equal(t, "failed", DocumentStatusFailed.String())
	assert.Equal(t, "unknown(99)", DocumentStatus(99).String())
}

func TestHistoryStatus_String(t *testing.T) {
	assert.Equal(t, "pending", HistoryStatusPending.String())
	assert.Equal(t, "generated", HistoryStatusGenerated.String())
	assert.Equal(t, "unknown(0)", HistoryStatus(0).String())
}

func TestDeleted(t *testing.T) {
	now := time.Now()

	document := &Document{}
	assert.False(t, document.Deleted())
	document.DeletedAt = &now
	assert.True(t, document.Deleted())

	chat := &Chat{}
	assert.False(t, chat.Deleted())
	chat.DeletedAt = &now
	assert.True(t, chat.Deleted())
}
