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

// Package index defines the vector index abstraction used by the analysis
// pipeline and the retrieval engine. Entries are namespaced by tenant so
// one tenant's vectors are never visible to another's queries.
package index

import "context"

// Metadata identifies the sentence an index entry was derived from.
type Metadata struct {
	DocumentID string
	SequenceID int
}

// Entry is a vector plus its identifying metadata.
type Entry struct {
	ID       string
	Vector   []float32
	Metadata Metadata
}

// Match is a query hit with its similarity score in [0, 1].
type Match struct {
	ID       string
	Score    float32
	Metadata Metadata
}

// Index stores sentence vectors and answers nearest-neighbor queries.
// All operations are scoped to a tenant namespace.
type Index interface {
	// Upsert inserts or replaces entries. Re-upserting an existing id
	// overwrites its vector and metadata.
	Upsert(ctx context.Context, tenantID string, entries ...Entry) error

	// Query returns up to topK entries nearest to the given vector,
	// ordered by descending score.
	Query(ctx context.Context, tenantID string, vector []float32, topK int) ([]Match, error)

	// DeleteByIDs removes entries by id. Unknown ids are ignored.
	DeleteByIDs(ctx context.Context, tenantID string, ids ...string) error

	Close() error
}
