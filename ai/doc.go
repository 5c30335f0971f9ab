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

// Package ai provides abstractions for the AI services used by the
// document pipeline.
//
// The package defines interfaces for text embedding, sentence
// segmentation and streaming chat completion, so the pipeline and the
// chat orchestrator depend on abstractions rather than on concrete
// service clients.
//
// # Interfaces
//
//   - Embedder: generates vector embeddings from text
//   - Segmenter: splits prose into sentences
//   - Generator: streams chat completions
//   - Provider: aggregates services for initialization and lifecycle
//
// # Implementation Packages
//
//   - ai/openai: production implementation using OpenAI-compatible APIs
//   - ai/stanza: sentence segmentation against a Stanza-style HTTP service
//   - ai/mock: test doubles for unit testing without external services
//
// Public constructors in ai/openai return interface types to enforce
// abstraction; the mock constructors return concrete types so tests can
// inject behavior and make assertions.
package ai
