package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrExtractionFallback reports that model output held no usable plan
	// and a template was substituted.
	ErrExtractionFallback = errors.New("plan extraction fell back to template")

	// ErrInvalidInput reports a malformed caller-supplied value.
	ErrInvalidInput = errors.New("invalid input")

	errNoObject = errors.New("no JSON object in text")
)

// Extract recovers a plan from free-form model output. It decodes the span
// from the first '{' to the last '}' and validates it against the plan
// schema.
func Extract(raw string) (Plan, error) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end < start {
		return Plan{}, errNoObject
	}
	span := []byte(raw[start : end+1])

	var doc any
	if err := json.Unmarshal(span, &doc); err != nil {
		return Plan{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := validate(doc); err != nil {
		return Plan{}, err
	}

	var p Plan
	if err := json.Unmarshal(span, &p); err != nil {
		return Plan{}, fmt.Errorf("decode plan: %w", err)
	}
	return p.Clone(), nil
}

// ExtractOrFallback returns the extracted plan, or Fallback(topic) and true
// when extraction fails. It never fails.
func ExtractOrFallback(raw, topic string) (Plan, bool) {
	p, err := Extract(raw)
	if err != nil {
		return Fallback(topic), true
	}
	return p, false
}
