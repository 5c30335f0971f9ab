// Package stanza implements sentence segmentation against a Stanza-style
// HTTP tokenization service.
package stanza

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

// Segmenter implements ai.Segmenter over HTTP. The service accepts
// {"text": ...} and answers {"sentences": [...]} in document order.
type Segmenter struct {
	host   string
	key    string
	client *http.Client
	logger *slog.Logger
}

var _ ai.Segmenter = (*Segmenter)(nil)

type segmentRequest struct {
	Text string `json:"text"`
}

type segmentResponse struct {
	Sentences []string `json:"sentences"`
}

// NewSegmenter creates a segmentation client from the AI configuration.
func NewSegmenter(config *ai.Config) (*Segmenter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Segmenter{
		host:   config.SegmentationHost,
		key:    config.SegmentationKey,
		client: &http.Client{Timeout: 60 * time.Second},
		logger: slog.Default().With("component", "stanza-segmenter"),
	}, nil
}

// Segment splits text into sentences.
func (s *Segmenter) Segment(ctx context.Context, text string) ([]string, error) {
	body, err := json.Marshal(segmentRequest{Text: text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.host+"/segment", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.key != "" {
		req.Header.Set("Authorization", "Bearer "+s.key)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("segmentation request failed", "err", err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("segmentation request returned %d: %s", resp.StatusCode, payload)
	}

	var decoded segmentResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode segmentation response: %w", err)
	}

	s.logger.Debug("segmented text", "length", len(text), "sentences", len(decoded.Sentences))
	return decoded.Sentences, nil
}
