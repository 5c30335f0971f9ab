package queue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeKnownKinds(t *testing.T) {
	msg, err := NewMessage(KindSentenceAnalyze, SentenceAnalyze{TenantID: "tenant-a", SentenceID: "doc-1#0"})
	require.NoError(t, err)

	payload, err := Decode(msg)
	require.NoError(t, err)

	decoded, ok := payload.(SentenceAnalyze)
	require.True(t, ok)
	assert.Equal(t, "tenant-a", decoded.TenantID)
	assert.Equal(t, "doc-1#0", decoded.SentenceID)
}

func TestDecodeFailureKindsShareShapes(t *testing.T) {
	msg, err := NewMessage(KindDocumentFailed, DocumentAnalyze{DocumentID: "doc-1"})
	require.NoError(t, err)

	payload, err := Decode(msg)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", payload.(DocumentAnalyze).DocumentID)

	msg, err = NewMessage(KindChatGenerationFailed, ChatGenerate{HistoryID: "his-1"})
	require.NoError(t, err)

	payload, err = Decode(msg)
	require.NoError(t, err)
	assert.Equal(t, "his-1", payload.(ChatGenerate).HistoryID)
}

func TestDecodeUnknownKind(t *testing.T) {
	msg := Message{Kind: "mystery", Payload: json.RawMessage(`{}`)}

	_, err := Decode(msg)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestDecodeMalformedPayload(t *testing.T) {
	msg := Message{Kind: KindDocumentAnalyze, Payload: json.RawMessage(`not json`)}

	_, err := Decode(msg)
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestFingerprint(t *testing.T) {
	a, err := NewMessage(KindDocumentAnalyze, DocumentAnalyze{DocumentID: "doc-1"})
	require.NoError(t, err)
	b, err := NewMessage(KindDocumentAnalyze, DocumentAnalyze{DocumentID: "doc-1"})
	require.NoError(t, err)
	c, err := NewMessage(KindDocumentAnalyze, DocumentAnalyze{DocumentID: "doc-2"})
	require.NoError(t, err)
	d, err := NewMessage(KindDocumentFailed, DocumentAnalyze{DocumentID: "doc-1"})
	require.NoError(t, err)

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
	// Kind participates in the fingerprint even when payloads match
	assert.NotEqual(t, a.Fingerprint(), d.Fingerprint())
}
