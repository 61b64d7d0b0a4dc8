package node

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObject(t *testing.T) {
	tests := []struct {
		name  string
		input string
		key   string
		want  any
	}{
		{name: "plain", input: `{"title":"Sky"}`, key: "title", want: "Sky"},
		{name: "bom and zero width", input: "\ufeff{\"title\":\"Sky\u200b\"}", key: "title", want: "Sky"},
		{name: "double encoded", input: `"{\"title\":\"Sky\"}"`, key: "title", want: "Sky"},
		{name: "fenced", input: "Here you go:\n```json\n{\"title\": \"Sky\"}\n```\nEnjoy!", key: "title", want: "Sky"},
		{name: "surrounding prose", input: `Sure! {"title": "Sky"} Hope it helps.`, key: "title", want: "Sky"},
		{name: "trailing commas", input: "```\n{\"panels\": [1, 2,], \"title\": \"Sky\",}\n```", key: "title", want: "Sky"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseObject(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got[tt.key])
		})
	}
}

func TestParseObject_KeepsNumbers(t *testing.T) {
	got, err := ParseObject(`{"panel_id": 3}`)
	require.NoError(t, err)
	assert.Equal(t, "3", got["panel_id"].(interface{ String() string }).String())
}

func TestParseStageObject_Errors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		reason string
	}{
		{name: "empty", input: "   ", reason: "empty output"},
		{name: "garbage", input: "I cannot help with that.", reason: "invalid json"},
		{name: "array", input: `[{"a":1}]`, reason: "expected object, got array"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStageObject("story", tt.input)
			require.Error(t, err)

			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, "story", pe.Stage)
			assert.Equal(t, tt.reason, pe.Reason)
			assert.Contains(t, err.Error(), "malformed story output")
		})
	}
}

func TestTruncateByRunes(t *testing.T) {
	assert.Equal(t, "", TruncateByRunes("abc", 0))
	assert.Equal(t, "abc", TruncateByRunes("abc", 5))
	assert.Equal(t, "하늘", TruncateByRunes("하늘은 파래요", 2))
}

func TestNormalizeTopic(t *testing.T) {
	assert.Equal(t, "why is the sky blue?", NormalizeTopic("  Why is   the Sky\tBlue?  "))
}

func TestErrorClassifiers(t *testing.T) {
	assert.True(t, IsResponseFormatUnsupportedError(errors.New("400: unknown parameter response_format")))
	assert.False(t, IsResponseFormatUnsupportedError(errors.New("connection reset")))
	assert.False(t, IsResponseFormatUnsupportedError(nil))

	assert.True(t, IsRateLimitError(errors.New("status 429: Too Many Requests")))
	assert.True(t, IsRateLimitError(errors.New("RESOURCE_EXHAUSTED")))
	assert.False(t, IsRateLimitError(errors.New("bad gateway")))
}

func TestCompactJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, CompactJSON(map[string]int{"a": 1}))
	assert.Equal(t, "null", CompactJSON(func() {}))
}
