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


package core

import (
	"fmt"
	"strings"
)

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - TenantID must not be empty
//   - Title must not be empty or whitespace-only
//   - Content must not be empty or whitespace-only
//   - Status, if set, must be a known value
//
// NOT validated (populated elsewhere):
//   - ID (assigned by the caller before persistence)
//   - timestamps (assigned by storage)
func ValidateDocument(document *Document) error {
	if document == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if document.TenantID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyTenant)
	}

	if strings.TrimSpace(document.Title) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyTitle)
	}

	if strings.TrimSpace(document.Content) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyContent)
	}

	if document.Status != 0 {
		if err := ValidateDocumentStatus(document.Status); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}
	}

	return nil
}

// ValidateDocumentStatus validates that a DocumentStatus has a known value.
func ValidateDocumentStatus(status DocumentStatus) error {
	switch status {
	case DocumentStatusCreated, DocumentStatusSegmented, DocumentStatusAnalyzed, DocumentStatusFailed:
		return nil
	default:
		return fmt.Errorf("%w: value %d", ErrInvalidDocumentStatus, status)
	}
}

// ValidateSentence validates a Sentence according to domain rules.
//
// Validation rules:
//   - ID must match SentenceID(DocumentID, SequenceID)
//   - TenantID must not be empty
//   - Content must not be empty or whitespace-only
//   - SequenceID must be TitleSequenceID or non-negative
func ValidateSentence(sentence *Sentence) error {
	if sentence == nil {
		return fmt.Errorf("%w: sentence is nil", ErrInvalidSentence)
	}

	if sentence.DocumentID == "" {
		return fmt.Errorf("%w: document id cannot be empty", ErrInvalidSentence)
	}

	if sentence.TenantID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSentence, ErrEmptyTenant)
	}

	if strings.TrimSpace(sentence.Content) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSentence, ErrEmptyContent)
	}

	if sentence.SequenceID < TitleSequenceID {
		return fmt.Errorf("%w: sequence id %d", ErrInvalidSentence, sentence.SequenceID)
	}

	if sentence.ID != SentenceID(sentence.DocumentID, sentence.SequenceID) {
		return fmt.Errorf("%w: id %q does not match document and sequence", ErrInvalidSentence, sentence.ID)
	}

	return nil
}

// ValidateChat validates a Chat according to domain rules.
func ValidateChat(chat *Chat) error {
	if chat == nil {
		return fmt.Errorf("%w: chat is nil", ErrInvalidChat)
	}

	if chat.TenantID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChat, ErrEmptyTenant)
	}

	if chat.UserID == "" {
		return fmt.Errorf("%w: user id cannot be empty", ErrInvalidChat)
	}

	return nil
}

// ValidateHistoryRole validates that a HistoryRole has a known value.
func ValidateHistoryRole(role HistoryRole) error {
	switch role {
	case HistoryRoleSystem, HistoryRoleUser, HistoryRoleAssistant:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidHistoryRole, role)
	}
}

// ValidateHistory validates a History entry according to domain rules.
// Content is not validated: assistant placeholders are created empty.
func ValidateHistory(history *History) error {
	if history == nil {
		return fmt.Errorf("%w: history is nil", ErrInvalidHistory)
	}

	if err := ValidateHistoryRole(history.Role); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidHistory, err)
	}

	switch history.Status {
	case HistoryStatusNone, HistoryStatusPending, HistoryStatusGenerating, HistoryStatusGenerated, HistoryStatusFailed:
		return nil
	default:
		return fmt.Errorf("%w: %w: value %d", ErrInvalidHistory, ErrInvalidHistoryStatus, history.Status)
	}
}
