package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tesserai/docpipe/ai"
)

// Generator implements ai.Generator against the OpenAI-compatible
// /chat/completions endpoint with stream enabled.
type Generator struct {
	host   string
	model  string
	client *http.Client
	logger *slog.Logger
}

type completionRequest struct {
	Model    string       `json:"model"`
	Messages []ai.Message `json:"messages"`
	Stream   bool         `json:"stream"`
}

// newGenerator is an internal constructor that returns the concrete type.
func newGenerator(config *ai.Config) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Generator{
		host:  config.GenerationHost,
		model: config.GenerationModel,
		// No overall timeout: streams stay open for the duration of
		// the generation. Cancellation comes from the context.
		client: &http.Client{Timeout: 0},
		logger: slog.Default().With("component", "openai-generator"),
	}, nil
}

// NewGenerator creates a new streaming completion client.
//
// Returns ai.Generator interface to enforce abstraction.
func NewGenerator(config *ai.Config) (ai.Generator, error) {
	return newGenerator(config)
}

// Generate starts a streaming completion and returns the raw SSE body.
// The caller must close the returned stream.
func (g *Generator) Generate(ctx context.Context, messages []ai.Message) (io.ReadCloser, error) {
	body, err := json.Marshal(completionRequest{
		Model:    g.model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.host+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Error("completion request failed", "err", err)
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("completion request returned %d: %s", resp.StatusCode, payload)
	}

	g.logger.Debug("completion stream opened",
		"messages", len(messages),
		"latency", time.Since(start))
	return resp.Body, nil
}
