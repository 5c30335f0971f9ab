// Copyright 2026 Tesserai
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package queue

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/go-crypt/x/blake2b"
)

// Kind discriminates work item variants on the wire.
type Kind string

const (
	// KindDocumentAnalyze requests segmentation of a document.
	KindDocumentAnalyze Kind = "document-analyze"

	// KindSentenceAnalyze requests embedding of a single sentence.
	KindSentenceAnalyze Kind = "sentence-analyze"

	// KindChatGenerate requests completion of a pending history entry.
	KindChatGenerate Kind = "chat-generate"

	// KindDocumentFailed marks a document failed after its work item
	// exhausted delivery attempts.
	KindDocumentFailed Kind = "document-failed"

	// KindChatGenerationFailed marks a history entry failed after its
	// work item exhausted delivery attempts.
	KindChatGenerationFailed Kind = "chat-generation-failed"
)

// DocumentAnalyze is the payload for KindDocumentAnalyze and
// KindDocumentFailed.
type DocumentAnalyze struct {
	DocumentID string `json:"documentId"`
}

// SentenceAnalyze is the payload for KindSentenceAnalyze.
type SentenceAnalyze struct {
	TenantID   string `json:"tenantId"`
	SentenceID string `json:"sentenceId"`
}

// ChatGenerate is the payload for KindChatGenerate and
// KindChatGenerationFailed.
type ChatGenerate struct {
	HistoryID string `json:"historyId"`
}

// Message is a queue work item: a kind tag plus its encoded payload.
type Message struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// NewMessage encodes a payload under the given kind.
func NewMessage(kind Kind, payload any) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	return Message{Kind: kind, Payload: raw}, nil
}

// Decode returns the typed payload for a message. Unknown kinds are
// rejected rather than silently dropped, so a misrouted or stale message
// surfaces as an error.
func Decode(msg Message) (any, error) {
	switch msg.Kind {
	case KindDocumentAnalyze, KindDocumentFailed:
		var payload DocumentAnalyze
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
		}
		return payload, nil
	case KindSentenceAnalyze:
		var payload SentenceAnalyze
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
		}
		return payload, nil
	case KindChatGenerate, KindChatGenerationFailed:
		var payload ChatGenerate
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
		}
		return payload, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, msg.Kind)
	}
}

// Fingerprint returns a deterministic 64-bit hash of the message, used to
// collapse duplicate deliveries of the same work item.
func (m Message) Fingerprint() uint64 {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(m.Kind))
	h.Write([]byte(":"))
	h.Write(m.Payload)
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum)
}
