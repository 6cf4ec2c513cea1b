package session

import "time"

// Config holds tutoring and retention settings.
type Config struct {
	// Window is the number of most recent turns sent to the model.
	Window int

	MaxTokens   int
	Temperature float64
	TopP        float64

	// Retention is how long a closed session is kept.
	Retention time.Duration

	// IdleTTL is how long an open session may go without a turn.
	IdleTTL time.Duration
}

// DefaultConfig returns sensible defaults for tutoring.
func DefaultConfig() Config {
	return Config{
		Window:      5,
		MaxTokens:   500,
		Temperature: 0.7,
		TopP:        0.9,
		Retention:   24 * time.Hour,
		IdleTTL:     24 * time.Hour,
	}
}
