package llm

import (
	"fmt"
	"strings"
	"time"
)

// Config holds all backend configuration.
type Config struct {
	// Candidates are backend identifiers ("<provider>:<model>") in
	// preference order. The prober activates the first usable one.
	Candidates []string

	// Fallback is the last-resort candidate used when every probe fails.
	Fallback string

	Anthropic   AnthropicConfig
	OpenAI      OpenAIConfig
	Gemini      GeminiConfig
	OpenRouter  OpenRouterConfig
	HuggingFace HuggingFaceConfig
	Retry       RetryConfig
	Probe       ProbeConfig

	// ReprobeAfter is the number of consecutive exhausted generations after
	// which the client asks the prober to select a new backend. Zero
	// disables re-probing.
	ReprobeAfter int
}

// AnthropicConfig holds Anthropic-specific configuration.
type AnthropicConfig struct {
	APIKey  string
	BaseURL string // Optional. Used by tests and proxies.
}

// OpenAIConfig holds OpenAI-specific configuration.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // Optional. Override for compatible APIs.
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	APIKey string
}

// OpenRouterConfig holds OpenRouter-specific configuration.
type OpenRouterConfig struct {
	APIKey  string
	BaseURL string // Default: "https://openrouter.ai/api/v1"
}

// HuggingFaceConfig holds configuration for text-generation inference
// endpoints.
type HuggingFaceConfig struct {
	Token   string
	BaseURL string // Default: "https://api-inference.huggingface.co/models"
}

// RetryConfig configures retry behavior for failed generations.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64

	// Timeout bounds a single upstream attempt. Exceeding it is a
	// retryable failure.
	Timeout time.Duration
}

// ProbeConfig configures backend selection.
type ProbeConfig struct {
	Candidates []string
	Fallback   string

	// Timeout bounds a single probe request.
	Timeout time.Duration

	// LoadingRetries is how many extra probes a warming-up candidate gets
	// before the prober moves on.
	LoadingRetries int
	LoadingDelay   time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Candidates: []string{
			"gemini:gemini-1.5-flash",
			"hf:HuggingFaceH4/zephyr-7b-beta",
			"openai:gpt-4o-mini",
		},
		Fallback: "gemini:gemini-1.5-flash",
		OpenRouter: OpenRouterConfig{
			BaseURL: defaultOpenRouterBaseURL,
		},
		HuggingFace: HuggingFaceConfig{
			BaseURL: defaultHuggingFaceBaseURL,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 1 * time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
			Timeout:     30 * time.Second,
		},
		Probe: ProbeConfig{
			Timeout:        10 * time.Second,
			LoadingRetries: 3,
			LoadingDelay:   5 * time.Second,
		},
		ReprobeAfter: 2,
	}
}

// ProbeSettings returns the probe configuration with the candidate list
// and fallback filled in from the top-level fields.
func (c Config) ProbeSettings() ProbeConfig {
	p := c.Probe
	if len(p.Candidates) == 0 {
		p.Candidates = c.Candidates
	}
	if p.Fallback == "" {
		p.Fallback = c.Fallback
	}
	return p
}

// Validate checks that every candidate names a known provider.
func (c Config) Validate() error {
	if len(c.Candidates) == 0 && c.Fallback == "" {
		return fmt.Errorf("at least one backend candidate or a fallback is required")
	}
	for _, id := range append(append([]string{}, c.Candidates...), c.Fallback) {
		if id == "" {
			continue
		}
		provider, model, err := ParseCandidate(id)
		if err != nil {
			return err
		}
		if provider != "mock" && model == "" {
			return fmt.Errorf("candidate %q has no model", id)
		}
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	return nil
}

// ParseCandidate splits "<provider>:<model>" into its parts.
func ParseCandidate(id string) (provider, model string, err error) {
	provider, model, _ = strings.Cut(strings.TrimSpace(id), ":")
	switch provider {
	case "anthropic", "openai", "gemini", "openrouter", "hf", "mock":
		return provider, model, nil
	default:
		return "", "", fmt.Errorf("unknown LLM provider in candidate %q", id)
	}
}
