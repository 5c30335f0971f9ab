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


// Package storage provides the storage abstraction layer for docpipe.
//
// This package defines repository interfaces that decouple storage
// implementation from pipeline and chat logic, allowing different backends
// (BadgerDB, in-memory, etc.) to be used interchangeably.
//
// # Constructor Return Type Pattern
//
// Public backend constructors follow a "return interface" pattern:
//
//	repo, err := badger.NewDocumentRepository(backend) // storage.DocumentRepository
//
// This keeps consumers decoupled from BadgerDB specifics and lets tests
// substitute in-memory implementations without modification.
//
// # Soft Delete
//
// Documents and chats are soft-deleted: the row stays in storage with
// DeletedAt set, and every read and query applies one shared active-record
// predicate. No call site checks DeletedAt ad hoc.
//
// # Thread Safety
//
// All repository implementations must be thread-safe. The pipeline and the
// reconciler run concurrently against the same repositories and rely on
// monotone updates (the sentence IsAnalyzed flag only advances, guarded
// status transitions only fire from their expected state) instead of locks.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation and
// timeout support.
package storage
