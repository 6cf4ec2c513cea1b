package llm

import (
	"encoding/json"
	"strings"
)

// textKeys are the object fields inference endpoints use for generated text.
var textKeys = []string{"generated_text", "text", "content", "output", "response"}

// NormalizeText reduces a backend payload to plain text. It understands a
// bare JSON string, a single object carrying one of textKeys, an array of
// candidate objects (first wins), an OpenAI-style chat wrapper, and a
// Gemini-style candidates wrapper. Anything else, including plain text and
// JSON documents the model itself produced, is returned as-is. The result
// is always whitespace-trimmed.
func NormalizeText(raw []byte) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return ""
	}

	var v any
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return trimmed
	}
	if text, ok := textFrom(v); ok {
		return strings.TrimSpace(text)
	}
	return trimmed
}

func textFrom(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case []any:
		if len(t) == 0 {
			return "", false
		}
		return textFrom(t[0])
	case map[string]any:
		if choices, ok := t["choices"].([]any); ok && len(choices) > 0 {
			return choiceText(choices[0])
		}
		if cands, ok := t["candidates"].([]any); ok && len(cands) > 0 {
			return candidateText(cands[0])
		}
		if msg, ok := t["message"].(map[string]any); ok {
			if s, ok := msg["content"].(string); ok {
				return s, true
			}
		}
		for _, k := range textKeys {
			if s, ok := t[k].(string); ok {
				return s, true
			}
		}
	}
	return "", false
}

func choiceText(v any) (string, bool) {
	choice, ok := v.(map[string]any)
	if !ok {
		return "", false
	}
	if msg, ok := choice["message"].(map[string]any); ok {
		if s, ok := msg["content"].(string); ok {
			return s, true
		}
	}
	if s, ok := choice["text"].(string); ok {
		return s, true
	}
	return "", false
}

func candidateText(v any) (string, bool) {
	cand, ok := v.(map[string]any)
	if !ok {
		return "", false
	}
	content, ok := cand["content"].(map[string]any)
	if !ok {
		return textFrom(cand)
	}
	parts, ok := content["parts"].([]any)
	if !ok {
		return "", false
	}
	var b strings.Builder
	for _, p := range parts {
		if part, ok := p.(map[string]any); ok {
			if s, ok := part["text"].(string); ok {
				b.WriteString(s)
			}
		}
	}
	return b.String(), b.Len() > 0
}
