package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUpstreamUnavailable is logged when every probe candidate failed and
	// the prober fell back to its last-resort backend.
	ErrUpstreamUnavailable = errors.New("all backend candidates unavailable")

	// ErrGenerationDegraded is logged when a generation call exhausted its
	// retries and the caller received the apology text.
	ErrGenerationDegraded = errors.New("generation degraded")
)

// ErrRateLimit indicates the provider returned a rate limit error (429).
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrModelLoading indicates the backend is warming up (HTTP 503 or an
// explicit "loading" payload). EstimatedTime is the backend's hint, if any.
type ErrModelLoading struct {
	EstimatedTime time.Duration
	Err           error
}

func (e *ErrModelLoading) Error() string {
	if e.EstimatedTime > 0 {
		return fmt.Sprintf("model loading (estimated %s): %v", e.EstimatedTime, e.Err)
	}
	return fmt.Sprintf("model loading: %v", e.Err)
}

func (e *ErrModelLoading) Unwrap() error { return e.Err }

// ErrInvalidResponse indicates the backend returned a payload that could
// not be turned into text.
type ErrInvalidResponse struct {
	Content json.RawMessage
	Err     error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("invalid LLM response: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// ErrProviderUnavailable indicates the provider is down or unreachable.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("LLM provider unavailable: %v", e.Err)
	}
	return "LLM provider unavailable"
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrMaxTokensExceeded indicates the response was truncated because it
// hit the MaxTokens limit.
type ErrMaxTokensExceeded struct {
	Content json.RawMessage
}

func (e *ErrMaxTokensExceeded) Error() string {
	return "LLM response truncated: max tokens exceeded"
}

// IsLoading reports whether err signals a warming-up backend.
func IsLoading(err error) bool {
	var loading *ErrModelLoading
	return errors.As(err, &loading)
}
