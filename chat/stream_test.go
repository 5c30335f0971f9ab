package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEventStream_Accumulates(t *testing.T) {
	stream := strings.Join([]string{
		`data: {"response": "Hello"}`,
		``,
		`data: {"response": ", "}`,
		``,
		`data: {"response": "world."}`,
		``,
		`data: [DONE]`,
		``,
	}, "\n")

	text, err := ParseEventStream(strings.NewReader(stream))
	require.NoError(t, err)
	assert.Equal(t, "Hello, world.", text)
}

func TestParseEventStream_SkipsNonDataLines(t *testing.T) {
	stream := strings.Join([]string{
		`: keep-alive comment`,
		`event: message`,
		`data: {"response": "A"}`,
		`id: 42`,
		`data: {"response": "B"}`,
		`data: [DONE]`,
	}, "\n")

	text, err := ParseEventStream(strings.NewReader(stream))
	require.NoError(t, err)
	assert.Equal(t, "AB", text)
}

func TestParseEventStream_SkipsMalformedPayloads(t *testing.T) {
	stream := strings.Join([]string{
		`data: {"response": "good"}`,
		`data: not json at all`,
		`data: {"response": "truncated`,
		`data: {"broken": }`,
		`data: {"response": " still good"}`,
		`data: [DONE]`,
	}, "\n")

	text, err := ParseEventStream(strings.NewReader(stream))
	require.NoError(t, err)
	assert.Equal(t, "good still good", text)
}

func TestParseEventStream_StopsAtDone(t *testing.T) {
	stream := strings.Join([]string{
		`data: {"response": "before"}`,
		`data: [DONE]`,
		`data: {"response": "after"}`,
	}, "\n")

	text, err := ParseEventStream(strings.NewReader(stream))
	require.NoError(t, err)
	assert.Equal(t, "before", text)
}

func TestParseEventStream_MissingResponseField(t *testing.T) {
	stream := strings.Join([]string{
		`data: {"other": "field"}`,
		`data: {"response": "x"}`,
		`data: [DONE]`,
	}, "\n")

	text, err := ParseEventStream(strings.NewReader(stream))
	require.NoError(t, err)
	assert.Equal(t, "x", text)
}

func TestParseEventStream_EmptyStream(t *testing.T) {
	text, err := ParseEventStream(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, "", text)
}
