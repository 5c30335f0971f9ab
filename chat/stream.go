package chat

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// streamEvent is the payload shape of one generation event.
type streamEvent struct {
	Response string `json:"response"`
}

// doneSentinel terminates an event stream.
const doneSentinel = "[DONE]"

// ParseEventStream accumulates the generated text from a server-sent
// event stream. Only lines with a `data:` prefix carrying a well-formed
// JSON object contribute; anything else (comments, keep-alives, partial
// lines from a flaky upstream) is skipped silently. The [DONE] sentinel
// ends the stream.
func ParseEventStream(r io.Reader) (string, error) {
	var text strings.Builder

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}

		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == doneSentinel {
			break
		}
		if !strings.HasPrefix(payload, "{") || !strings.HasSuffix(payload, "}") {
			continue
		}

		var event streamEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			continue
		}
		text.WriteString(event.Response)
	}

	if err := scanner.Err(); err != nil {
		return "", err
	}
	return text.String(), nil
}
