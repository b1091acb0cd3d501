package pipeline

import (
	"encoding/json"
	"strings"
)

// resultFieldCandidates is the ordered list of field names the result
// payload is probed for. Which one the backend uses depends on the pipeline
// stage that produced the final document.
var resultFieldCandidates = []string{"result", "article", "content", "output", "text"}

// nestedContentFields are probed when a candidate field holds a JSON-encoded
// string that itself embeds the content.
var nestedContentFields = []string{"content", "text"}

// ExtractResult pulls the generated content out of an opaque result payload.
// It probes the candidate fields in order; a candidate holding a
// JSON-encoded object string is unwrapped to its nested content field,
// falling back to the raw string when unwrapping fails. The second return
// value reports whether any candidate was present; an empty extracted string
// with ok=true means the job completed with empty content.
func ExtractResult(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}

	// The payload may be a bare JSON string rather than an object.
	var bare string
	if err := json.Unmarshal(raw, &bare); err == nil {
		return unwrapNested(bare), true
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		// Not a string, not an object: keep the raw bytes verbatim.
		return strings.TrimSpace(string(raw)), true
	}

	for _, field := range resultFieldCandidates {
		value, ok := obj[field]
		if !ok || len(value) == 0 {
			continue
		}

		var s string
		if err := json.Unmarshal(value, &s); err == nil {
			return unwrapNested(s), true
		}
		// Non-string candidate (nested object, array): keep it verbatim.
		return string(value), true
	}

	return "", false
}

// unwrapNested handles the case where a result field carries a JSON-encoded
// object string embedding the real content, e.g. `"{\"content\": \"...\"}"`.
// On any parse failure the original string is returned unchanged.
func unwrapNested(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "{") {
		return s
	}

	var nested map[string]any
	if err := json.Unmarshal([]byte(trimmed), &nested); err != nil {
		return s
	}

	for _, field := range nestedContentFields {
		if content, ok := nested[field].(string); ok {
			return content
		}
	}
	return s
}
