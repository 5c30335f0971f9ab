package mock

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/tesserai/docpipe/ai"
)

// MockGenerator is a test double for ai.Generator. The default behavior
// streams the configured Response one word per event in the same
// server-sent-event shape the production service uses.
type MockGenerator struct {
	// GenerateFunc is called by Generate if set.
	GenerateFunc func(ctx context.Context, messages []ai.Message) (io.ReadCloser, error)

	// Response is the text streamed by the default behavior.
	Response string

	callCount int
}

// NewMockGenerator creates a mock generator streaming the given response.
func NewMockGenerator(response string) *MockGenerator {
	return &MockGenerator{Response: response}
}

// Generate returns a canned event stream.
func (m *MockGenerator) Generate(ctx context.Context, messages []ai.Message) (io.ReadCloser, error) {
	m.callCount++

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, messages)
	}

	return io.NopCloser(strings.NewReader(EventStream(m.Response))), nil
}

// CallCount returns the number of times Generate was called.
func (m *MockGenerator) CallCount() int {
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *MockGenerator) Reset() {
	m.callCount = 0
	m.GenerateFunc = nil
}

// EventStream renders text as a server-sent-event token stream, one word
// per event, terminated by [DONE].
func EventStream(text string) string {
	var b strings.Builder
	words := strings.Fields(text)
	for i, word := range words {
		token := word
		if i < len(words)-1 {
			token += " "
		}
		payload, _ := json.Marshal(map[string]string{"response": token})
		b.WriteString("data: ")
		b.Write(payload)
		b.WriteString("\n\n")
	}
	b.WriteString("data: [DONE]\n\n")
	return b.String()
}
