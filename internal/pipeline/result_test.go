package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractResult(t *testing.T) {
	t.Parallel()

	t.Run("empty payload", func(t *testing.T) {
		t.Parallel()

		content, ok := ExtractResult(nil)
		assert.False(t, ok)
		assert.Empty(t, content)
	})

	t.Run("bare string payload", func(t *testing.T) {
		t.Parallel()

		content, ok := ExtractResult(json.RawMessage(`"final article text"`))
		assert.True(t, ok)
		assert.Equal(t, "final article text", content)
	})

	t.Run("primary result field", func(t *testing.T) {
		t.Parallel()

		content, ok := ExtractResult(json.RawMessage(`{"result": "the article"}`))
		assert.True(t, ok)
		assert.Equal(t, "the article", content)
	})

	t.Run("candidate order is respected", func(t *testing.T) {
		t.Parallel()

		raw := json.RawMessage(`{"text": "last resort", "article": "preferred"}`)
		content, ok := ExtractResult(raw)
		assert.True(t, ok)
		assert.Equal(t, "preferred", content)
	})

	t.Run("later stage field names", func(t *testing.T) {
		t.Parallel()

		for _, field := range []string{"article", "content", "output", "text"} {
			raw := json.RawMessage(`{"` + field + `": "body"}`)
			content, ok := ExtractResult(raw)
			assert.True(t, ok, "field %s", field)
			assert.Equal(t, "body", content, "field %s", field)
		}
	})

	t.Run("nested JSON-encoded content is unwrapped", func(t *testing.T) {
		t.Parallel()

		raw := json.RawMessage(`{"result": "{\"content\": \"inner article\", \"meta\": 1}"}`)
		content, ok := ExtractResult(raw)
		assert.True(t, ok)
		assert.Equal(t, "inner article", content)
	})

	t.Run("unparseable nested string falls back to raw string", func(t *testing.T) {
		t.Parallel()

		raw := json.RawMessage(`{"result": "{not valid json"}`)
		content, ok := ExtractResult(raw)
		assert.True(t, ok)
		assert.Equal(t, "{not valid json", content)
	})

	t.Run("nested object without content field keeps original string", func(t *testing.T) {
		t.Parallel()

		raw := json.RawMessage(`{"result": "{\"meta\": 1}"}`)
		content, ok := ExtractResult(raw)
		assert.True(t, ok)
		assert.Equal(t, `{"meta": 1}`, content)
	})

	t.Run("no candidate field present", func(t *testing.T) {
		t.Parallel()

		content, ok := ExtractResult(json.RawMessage(`{"unrelated": "x"}`))
		assert.False(t, ok)
		assert.Empty(t, content)
	})

	t.Run("empty string result is present but empty", func(t *testing.T) {
		t.Parallel()

		content, ok := ExtractResult(json.RawMessage(`{"result": ""}`))
		assert.True(t, ok)
		assert.Empty(t, content)
	})

	t.Run("non-string candidate kept verbatim", func(t *testing.T) {
		t.Parallel()

		raw := json.RawMessage(`{"result": {"sections": ["a", "b"]}}`)
		content, ok := ExtractResult(raw)
		assert.True(t, ok)
		assert.JSONEq(t, `{"sections": ["a", "b"]}`, content)
	})
}
