package mock

import (
	"context"
	"strings"
)

// MockSegmenter is a test double for ai.Segmenter. The default behavior
// splits on sentence-ending punctuation, which is close enough to a real
// tokenizer for pipeline tests.
type MockSegmenter struct {
	// SegmentFunc is called by Segment if set.
	SegmentFunc func(ctx context.Context, text string) ([]string, error)

	callCount int
}

// NewMockSegmenter creates a mock segmenter with default naive splitting.
func NewMockSegmenter() *MockSegmenter {
	return &MockSegmenter{}
}

// Segment splits text into sentences.
func (m *MockSegmenter) Segment(ctx context.Context, text string) ([]string, error) {
	m.callCount++

	if m.SegmentFunc != nil {
		return m.SegmentFunc(ctx, text)
	}

	return naiveSplit(text), nil
}

// CallCount returns the number of times Segment was called.
func (m *MockSegmenter) CallCount() int {
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *MockSegmenter) Reset() {
	m.callCount = 0
	m.SegmentFunc = nil
}

// naiveSplit breaks text on '.', '!' and '?', keeping the terminator
// attached to its sentence.
func naiveSplit(text string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			sentence := strings.TrimSpace(current.String())
			if sentence != "" {
				sentences = append(sentences, sentence)
			}
			current.Reset()
		}
	}

	if tail := strings.TrimSpace(current.String()); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}
