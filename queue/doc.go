// Package queue provides the asynchronous work-item plumbing between the
// API surface and the analysis pipeline.
//
// Work items are tagged messages with JSON payloads. Delivery is at least
// once: every consumer must tolerate duplicate and out-of-order messages.
// The in-process MemoryQueue is the default transport; it retries failing
// handlers with exponential backoff and hands exhausted messages to a
// dead-letter hook so the pipeline can mark the underlying document or
// generation as failed.
package queue
