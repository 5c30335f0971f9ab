package badger

import (
	"encoding/binary"
	"strconv"
	"time"
)

// Key prefixes for different data types
const (
	documentPrefix       = "doc"
	documentTenantPrefix = "doctn"
	documentStatusPrefix = "docst"
	sentencePrefix       = "sen"
	sentenceDocPrefix    = "sendoc"
	sentencePendPrefix   = "senpend"
	chatPrefix           = "cht"
	chatOwnerPrefix      = "chtow"
	historyPrefix        = "his"
	historyChatPrefix    = "hischt"
	historySeqPrefix     = "hisseq"
	historyGenPrefix     = "hisgen"
)

// makeDocumentKey generates a key for a document by id.
func makeDocumentKey(id string) []byte {
	return []byte(documentPrefix + ":" + id)
}

// makeDocumentTenantKey generates a composite key for the tenant listing
// index. Format: prefix:tenantID:timestamp+id, with the timestamp written
// BigEndian so lexicographic iteration yields CreatedAt order.
func makeDocumentTenantKey(tenantID string, createdAt time.Time, id string) []byte {
	prefix := []byte(documentTenantPrefix + ":" + tenantID + ":")
	buf := make([]byte, len(prefix)+8+len(id))
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(createdAt.UnixMicro()))
	copy(buf[offset+8:], id)
	return buf
}

// makeDocumentTenantPrefix generates the scan prefix for a tenant's documents.
func makeDocumentTenantPrefix(tenantID string) []byte {
	return []byte(documentTenantPrefix + ":" + tenantID + ":")
}

// makeDocumentStatusKey generates a key for the status index.
func makeDocumentStatusKey(status int, id string) []byte {
	return []byte(documentStatusPrefix + ":" + strconv.Itoa(status) + ":" + id)
}

// makeDocumentStatusPrefix generates the scan prefix for one status.
func makeDocumentStatusPrefix(status int) []byte {
	return []byte(documentStatusPrefix + ":" + strconv.Itoa(status) + ":")
}

// makeSentenceKey generates a key for a sentence by id.
func makeSentenceKey(id string) []byte {
	return []byte(sentencePrefix + ":" + id)
}

// sequenceKey encodes a sequence id so lexicographic byte order matches
// numeric order, with the title pseudo-sentence (-1) sorting first.
// Flipping the sign bit maps int64 order onto unsigned byte order.
func sequenceKey(sequenceID int) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(int64(sequenceID))^(1<<63))
	return buf
}

// makeSentenceDocKey generates a composite key for the per-document
// sentence index. Format: prefix:documentID:sequenceKey
func makeSentenceDocKey(documentID string, sequenceID int) []byte {
	prefix := []byte(sentenceDocPrefix + ":" + documentID + ":")
	return append(prefix, sequenceKey(sequenceID)...)
}

// makeSentenceDocPrefix generates the scan prefix for a document's sentences.
func makeSentenceDocPrefix(documentID string) []byte {
	return []byte(sentenceDocPrefix + ":" + documentID + ":")
}

// makeSentencePendKey generates a composite key for the pending
// (unanalyzed) index. Same layout as the document index.
func makeSentencePendKey(documentID string, sequenceID int) []byte {
	prefix := []byte(sentencePendPrefix + ":" + documentID + ":")
	return append(prefix, sequenceKey(sequenceID)...)
}

// makeSentencePendPrefix generates the scan prefix for a document's pending
// sentences.
func makeSentencePendPrefix(documentID string) []byte {
	return []byte(sentencePendPrefix + ":" + documentID + ":")
}

// sentencePendScanPrefix is the scan prefix for pending sentences across
// all documents.
func sentencePendScanPrefix() []byte {
	return []byte(sentencePendPrefix + ":")
}

// makeChatKey generates a key for a chat by id.
func makeChatKey(id string) []byte {
	return []byte(chatPrefix + ":" + id)
}

// makeChatOwnerKey generates a composite key for the tenant+user listing
// index, ordered by CreatedAt like the document tenant index.
func makeChatOwnerKey(tenantID, userID string, createdAt time.Time, id string) []byte {
	prefix := []byte(chatOwnerPrefix + ":" + tenantID + ":" + userID + ":")
	buf := make([]byte, len(prefix)+8+len(id))
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(createdAt.UnixMicro()))
	copy(buf[offset+8:], id)
	return buf
}

// makeChatOwnerPrefix generates the scan prefix for a user's chats.
func makeChatOwnerPrefix(tenantID, userID string) []byte {
	return []byte(chatOwnerPrefix + ":" + tenantID + ":" + userID + ":")
}

// makeHistoryKey generates a key for a history entry by id.
func makeHistoryKey(id string) []byte {
	return []byte(historyPrefix + ":" + id)
}

// makeHistoryChatKey generates a composite key for the per-chat history
// index. Format: prefix:chatID:seq, BigEndian so iteration yields Seq order.
func makeHistoryChatKey(chatID string, seq int64) []byte {
	prefix := []byte(historyChatPrefix + ":" + chatID + ":")
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(seq))
	return buf
}

// makeHistoryChatPrefix generates the scan prefix for a chat's history.
func makeHistoryChatPrefix(chatID string) []byte {
	return []byte(historyChatPrefix + ":" + chatID + ":")
}

// makeHistorySeqKey generates the key holding a chat's sequence counter.
func makeHistorySeqKey(chatID string) []byte {
	return []byte(historySeqPrefix + ":" + chatID)
}

// makeHistoryGenKey generates a marker key for an entry in Generating state.
func makeHistoryGenKey(id string) []byte {
	return []byte(historyGenPrefix + ":" + id)
}

// historyGenScanPrefix is the scan prefix for all Generating markers.
func historyGenScanPrefix() []byte {
	return []byte(historyGenPrefix + ":")
}
