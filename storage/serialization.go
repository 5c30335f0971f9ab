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


package storage

import (
	"encoding/json"
	"fmt"

	"github.com/tesserai/docpipe/core"
)

// MarshalDocument serializes a Document to bytes.
func MarshalDocument(document *core.Document) ([]byte, error) {
	bs, err := json.Marshal(document)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return bs, nil
}

// UnmarshalDocument deserializes a Document from bytes.
func UnmarshalDocument(data []byte) (*core.Document, error) {
	var document core.Document
	if err := json.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &document, nil
}

// MarshalSentence serializes a Sentence to bytes.
func MarshalSentence(sentence *core.Sentence) ([]byte, error) {
	bs, err := json.Marshal(sentence)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return bs, nil
}

// UnmarshalSentence deserializes a Sentence from bytes.
func UnmarshalSentence(data []byte) (*core.Sentence, error) {
	var sentence core.Sentence
	if err := json.Unmarshal(data, &sentence); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &sentence, nil
}

// MarshalChat serializes a Chat to bytes.
func MarshalChat(chat *core.Chat) ([]byte, error) {
	bs, err := json.Marshal(chat)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return bs, nil
}

// UnmarshalChat deserializes a Chat from bytes.
func UnmarshalChat(data []byte) (*core.Chat, error) {
	var chat core.Chat
	if err := json.Unmarshal(data, &chat); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &chat, nil
}

// MarshalHistory serializes a History entry to bytes.
func MarshalHistory(history *core.History) ([]byte, error) {
	bs, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return bs, nil
}

// UnmarshalHistory deserializes a History entry from bytes.
func UnmarshalHistory(data []byte) (*core.History, error) {
	var history core.History
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &history, nil
}
