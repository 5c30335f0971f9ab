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

// Package retrieval implements semantic search over analyzed documents.
// A query is embedded, matched against the tenant's vector namespace and
// expanded into per-document context windows around each hit.
package retrieval

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/tesserai/docpipe/ai"
	"github.com/tesserai/docpipe/core"
	"github.com/tesserai/docpipe/index"
	"github.com/tesserai/docpipe/storage"
)

const (
	// DefaultTopK is the number of nearest neighbors fetched per query.
	DefaultTopK = 5

	// DefaultScoreCutoff drops matches below this similarity.
	DefaultScoreCutoff = 0.75

	// DefaultContextWindow pulls in sentences within this distance of a
	// match, on both sides.
	DefaultContextWindow = 2
)

var (
	// ErrDocumentRepositoryRequired indicates a nil document repository.
	ErrDocumentRepositoryRequired = errors.New("document repository is required")

	// ErrSentenceRepositoryRequired indicates a nil sentence repository.
	ErrSentenceRepositoryRequired = errors.New("sentence repository is required")

	// ErrIndexRequired indicates a nil vector index.
	ErrIndexRequired = errors.New("vector index is required")

	// ErrEmbedderRequired indicates a nil embedder.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrEmptyQuery indicates a blank search query.
	ErrEmptyQuery = errors.New("query must not be empty")
)

// SentenceHit is one sentence in a result context. Highlighted marks the
// sentences the index actually matched, as opposed to window neighbors.
type SentenceHit struct {
	Sentence    *core.Sentence
	Highlighted bool
}

// DocumentContext groups a document with the matched sentences and their
// surrounding context, in sequence order.
type DocumentContext struct {
	Document  *core.Document
	Sentences []SentenceHit
	BestScore float32
}

// Engine answers semantic queries. It is read-only: retrieval never
// mutates documents, sentences or the index.
type Engine struct {
	documents storage.DocumentRepository
	sentences storage.SentenceRepository
	idx       index.Index
	embedder  ai.Embedder
	topK      int
	cutoff    float32
	window    int
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithTopK sets the nearest-neighbor fetch size. Default is 5.
func WithTopK(topK int) Option {
	return func(e *Engine) error {
		if topK < 1 {
			topK = 1
		}
		e.topK = topK
		return nil
	}
}

// WithScoreCutoff sets the minimum similarity for a match. Default 0.75.
func WithScoreCutoff(cutoff float32) Option {
	return func(e *Engine) error {
		e.cutoff = cutoff
		return nil
	}
}

// WithContextWindow sets the neighbor distance pulled in around each
// match. Default is 2.
func WithContextWindow(window int) Option {
	return func(e *Engine) error {
		if window < 0 {
			window = 0
		}
		e.window = window
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger.With("component", "retrieval")
		return nil
	}
}

// NewEngine creates a retrieval engine.
func NewEngine(
	documents storage.DocumentRepository,
	sentences storage.SentenceRepository,
	idx index.Index,
	embedder ai.Embedder,
	opts ...Option,
) (*Engine, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if sentences == nil {
		return nil, ErrSentenceRepositoryRequired
	}
	if idx == nil {
		return nil, ErrIndexRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	e := &Engine{
		documents: documents,
		sentences: sentences,
		idx:       idx,
		embedder:  embedder,
		topK:      DefaultTopK,
		cutoff:    DefaultScoreCutoff,
		window:    DefaultContextWindow,
		logger:    slog.Default().With("component", "retrieval"),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// matchGroup accumulates index hits for one document.
type matchGroup struct {
	documentID string
	sequences  map[int]struct{}
	bestScore  float32
}

// Retrieve runs a semantic query scoped to a tenant. An empty result
// means nothing cleared the score cutoff.
func (e *Engine) Retrieve(ctx context.Context, tenantID, query string) ([]DocumentContext, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}

	vector, err := e.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, err
	}

	matches, err := e.idx.Query(ctx, tenantID, vector, e.topK)
	if err != nil {
		return nil, err
	}

	groups := make(map[string]*matchGroup)
	for _, match := range matches {
		if match.Score < e.cutoff {
			continue
		}
		group := groups[match.Metadata.DocumentID]
		if group == nil {
			group = &matchGroup{
				documentID: match.Metadata.DocumentID,
				sequences:  make(map[int]struct{}),
			}
			groups[match.Metadata.DocumentID] = group
		}
		group.sequences[match.Metadata.SequenceID] = struct{}{}
		if match.Score > group.bestScore {
			group.bestScore = match.Score
		}
	}

	var results []DocumentContext
	for _, group := range groups {
		result, err := e.buildContext(ctx, group)
		if err != nil {
			return nil, err
		}
		if result != nil {
			results = append(results, *result)
		}
	}

	// Best score first; document id breaks ties deterministically.
	sort.Slice(results, func(i, j int) bool {
		if results[i].BestScore != results[j].BestScore {
			return results[i].BestScore > results[j].BestScore
		}
		return results[i].Document.ID < results[j].Document.ID
	})

	e.logger.Debug("retrieval complete",
		"tenantId", tenantID, "matches", len(matches), "documents", len(results))
	return results, nil
}

// buildContext expands a match group into the document's window of
// sentences. A document deleted since indexing yields nil.
func (e *Engine) buildContext(ctx context.Context, group *matchGroup) (*DocumentContext, error) {
	document, err := e.documents.GetDocument(ctx, group.documentID)
	if errors.Is(err, storage.ErrNotFound) {
		// Vector entries can outlive a soft-deleted document briefly;
		// its hits are simply not shown.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := e.sentences.ListSentencesByDocument(ctx, group.documentID)
	if err != nil {
		return nil, err
	}

	var hits []SentenceHit
	for _, row := range rows {
		if !e.inWindow(row.SequenceID, group.sequences) {
			continue
		}
		_, highlighted := group.sequences[row.SequenceID]
		hits = append(hits, SentenceHit{Sentence: row, Highlighted: highlighted})
	}
	if len(hits) == 0 {
		return nil, nil
	}

	return &DocumentContext{
		Document:  document,
		Sentences: hits,
		BestScore: group.bestScore,
	}, nil
}

// inWindow reports whether a sequence id lies within the context window
// of any matched sequence.
func (e *Engine) inWindow(sequenceID int, matched map[int]struct{}) bool {
	for seq := range matched {
		if sequenceID >= seq-e.window && sequenceID <= seq+e.window {
			return true
		}
	}
	return false
}
