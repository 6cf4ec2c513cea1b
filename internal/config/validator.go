package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/abhisek/lessonforge/internal/llm"
	"github.com/abhisek/lessonforge/internal/session"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config key (e.g., "session.window")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidLogFormats returns the list of valid log handler formats
func ValidLogFormats() []string {
	return []string{"json", "text"}
}

// ValidDatabaseDrivers returns the list of valid storage drivers
func ValidDatabaseDrivers() []string {
	return []string{"sqlite", "memory"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateDatabase()...)
	errs = append(errs, c.validateLLM()...)
	errs = append(errs, c.validateGeneration()...)
	errs = append(errs, c.validateSession()...)
	errs = append(errs, c.validateLog()...)

	return errs
}

func (c *Config) validateServer() []ValidationError {
	var errs []ValidationError

	if c.Server.Addr == "" {
		errs = append(errs, ValidationError{Field: "server.addr", Value: c.Server.Addr, Message: "must not be empty"})
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, ValidationError{Field: "server.read_timeout", Value: c.Server.ReadTimeout, Message: "must be positive"})
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, ValidationError{Field: "server.shutdown_timeout", Value: c.Server.ShutdownTimeout, Message: "must be positive"})
	}

	return errs
}

func (c *Config) validateDatabase() []ValidationError {
	if slices.Contains(ValidDatabaseDrivers(), c.Database.Driver) {
		return nil
	}
	return []ValidationError{{
		Field:   "database.driver",
		Value:   c.Database.Driver,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidDatabaseDrivers(), ", ")),
	}}
}

func (c *Config) validateLLM() []ValidationError {
	var errs []ValidationError

	if len(c.LLM.Candidates) == 0 && c.LLM.Fallback == "" {
		errs = append(errs, ValidationError{
			Field:   "llm.candidates",
			Value:   c.LLM.Candidates,
			Message: "at least one candidate or a fallback is required",
		})
	}
	for _, id := range c.LLM.Candidates {
		if _, _, err := llm.ParseCandidate(id); err != nil {
			errs = append(errs, ValidationError{Field: "llm.candidates", Value: id, Message: "unknown provider"})
		}
	}
	if c.LLM.Fallback != "" {
		if _, _, err := llm.ParseCandidate(c.LLM.Fallback); err != nil {
			errs = append(errs, ValidationError{Field: "llm.fallback", Value: c.LLM.Fallback, Message: "unknown provider"})
		}
	}

	if c.LLM.Retries < 1 {
		errs = append(errs, ValidationError{Field: "llm.retries", Value: c.LLM.Retries, Message: "must be at least 1"})
	}
	if c.LLM.Backoff < 0 {
		errs = append(errs, ValidationError{Field: "llm.backoff", Value: c.LLM.Backoff, Message: "must be non-negative"})
	}
	if c.LLM.MaxBackoff < c.LLM.Backoff {
		errs = append(errs, ValidationError{Field: "llm.max_backoff", Value: c.LLM.MaxBackoff, Message: "must not be less than llm.backoff"})
	}
	if c.LLM.Timeout <= 0 {
		errs = append(errs, ValidationError{Field: "llm.timeout", Value: c.LLM.Timeout, Message: "must be positive"})
	}
	if c.LLM.ReprobeAfter < 0 {
		errs = append(errs, ValidationError{Field: "llm.reprobe_after", Value: c.LLM.ReprobeAfter, Message: "must be non-negative"})
	}
	if c.LLM.Probe.Timeout <= 0 {
		errs = append(errs, ValidationError{Field: "llm.probe.timeout", Value: c.LLM.Probe.Timeout, Message: "must be positive"})
	}
	if c.LLM.Probe.LoadingRetries < 0 {
		errs = append(errs, ValidationError{Field: "llm.probe.loading_retries", Value: c.LLM.Probe.LoadingRetries, Message: "must be non-negative"})
	}

	return errs
}

func (c *Config) validateGeneration() []ValidationError {
	var errs []ValidationError

	if c.Plan.MaxTokens < 1 {
		errs = append(errs, ValidationError{Field: "plan.max_tokens", Value: c.Plan.MaxTokens, Message: "must be at least 1"})
	}
	if c.Plan.Temperature < 0 || c.Plan.Temperature > 2 {
		errs = append(errs, ValidationError{Field: "plan.temperature", Value: c.Plan.Temperature, Message: "must be between 0 and 2"})
	}
	if c.Tutor.MaxTokens < 1 {
		errs = append(errs, ValidationError{Field: "tutor.max_tokens", Value: c.Tutor.MaxTokens, Message: "must be at least 1"})
	}
	if c.Tutor.Temperature < 0 || c.Tutor.Temperature > 2 {
		errs = append(errs, ValidationError{Field: "tutor.temperature", Value: c.Tutor.Temperature, Message: "must be between 0 and 2"})
	}
	if c.Tutor.TopP <= 0 || c.Tutor.TopP > 1 {
		errs = append(errs, ValidationError{Field: "tutor.top_p", Value: c.Tutor.TopP, Message: "must be in (0, 1]"})
	}

	return errs
}

func (c *Config) validateSession() []ValidationError {
	var errs []ValidationError

	if c.Session.Window < 1 {
		errs = append(errs, ValidationError{Field: "session.window", Value: c.Session.Window, Message: "must be at least 1"})
	}
	if c.Session.Retention <= 0 {
		errs = append(errs, ValidationError{Field: "session.retention", Value: c.Session.Retention, Message: "must be positive"})
	}
	if c.Session.IdleTTL <= 0 {
		errs = append(errs, ValidationError{Field: "session.idle_ttl", Value: c.Session.IdleTTL, Message: "must be positive"})
	}
	if c.Session.PurgeInterval <= 0 {
		errs = append(errs, ValidationError{Field: "session.purge_interval", Value: c.Session.PurgeInterval, Message: "must be positive"})
	}
	if _, ok := session.ClassifierByName(c.Session.Classifier); !ok {
		errs = append(errs, ValidationError{Field: "session.classifier", Value: c.Session.Classifier, Message: "must be one of: substring, tag"})
	}

	return errs
}

func (c *Config) validateLog() []ValidationError {
	var errs []ValidationError

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Log.Level)) {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Value:   c.Log.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	if !slices.Contains(ValidLogFormats(), strings.ToLower(c.Log.Format)) {
		errs = append(errs, ValidationError{
			Field:   "log.format",
			Value:   c.Log.Format,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogFormats(), ", ")),
		})
	}

	return errs
}
