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

import "errors"

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidSentence indicates a Sentence failed validation.
	ErrInvalidSentence = errors.New("invalid sentence")

	// ErrInvalidChat indicates a Chat failed validation.
	ErrInvalidChat = errors.New("invalid chat")

	// ErrInvalidHistory indicates a History entry failed validation.
	ErrInvalidHistory = errors.New("invalid history entry")

	// ErrInvalidSentenceID indicates a sentence id is not of the
	// "{documentID}#{sequenceID}" form.
	ErrInvalidSentenceID = errors.New("invalid sentence id")

	// ErrEmptyTenant indicates a missing tenant id.
	ErrEmptyTenant = errors.New("tenant id cannot be empty")

	// ErrEmptyTitle indicates the Title field is empty.
	ErrEmptyTitle = errors.New("title cannot be empty")

	// ErrEmptyContent indicates the Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidDocumentStatus indicates an invalid DocumentStatus value.
	ErrInvalidDocumentStatus = errors.New("invalid document status")

	// ErrInvalidHistoryRole indicates an invalid HistoryRole value.
	ErrInvalidHistoryRole = errors.New("invalid history role")

	// ErrInvalidHistoryStatus indicates an invalid HistoryStatus value.
	ErrInvalidHistoryStatus = errors.New("invalid history status")
)
