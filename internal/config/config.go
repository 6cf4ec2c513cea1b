// Package config loads lessonforge settings from defaults, an optional YAML
// file, a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/abhisek/lessonforge/internal/llm"
	"github.com/abhisek/lessonforge/internal/plan"
	"github.com/abhisek/lessonforge/internal/session"
)

// EnvPrefix is prepended to every environment override,
// e.g. LESSONFORGE_SERVER_ADDR for server.addr.
const EnvPrefix = "LESSONFORGE"

// Config is the top-level configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Plan     PlanConfig     `mapstructure:"plan"`
	Tutor    TutorConfig    `mapstructure:"tutor"`
	Session  SessionConfig  `mapstructure:"session"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig selects where lessons, sessions and events live.
type DatabaseConfig struct {
	// Driver is "sqlite" or "memory".
	Driver string `mapstructure:"driver"`
	// Path is the SQLite file. Empty means the XDG data directory.
	Path string `mapstructure:"path"`
}

// LLMConfig controls backend selection and retries.
type LLMConfig struct {
	Candidates   []string      `mapstructure:"candidates"`
	Fallback     string        `mapstructure:"fallback"`
	Retries      int           `mapstructure:"retries"`
	Backoff      time.Duration `mapstructure:"backoff"`
	MaxBackoff   time.Duration `mapstructure:"max_backoff"`
	Timeout      time.Duration `mapstructure:"timeout"`
	ReprobeAfter int           `mapstructure:"reprobe_after"`
	Probe        ProbeConfig   `mapstructure:"probe"`

	GeminiAPIKey     string `mapstructure:"gemini_api_key"`
	OpenAIAPIKey     string `mapstructure:"openai_api_key"`
	OpenAIBaseURL    string `mapstructure:"openai_base_url"`
	AnthropicAPIKey  string `mapstructure:"anthropic_api_key"`
	OpenRouterAPIKey string `mapstructure:"openrouter_api_key"`
	HFAPIKey         string `mapstructure:"hf_api_key"`
	HFBaseURL        string `mapstructure:"hf_base_url"`
}

// ProbeConfig controls start-up backend probing.
type ProbeConfig struct {
	Timeout        time.Duration `mapstructure:"timeout"`
	LoadingRetries int           `mapstructure:"loading_retries"`
	LoadingDelay   time.Duration `mapstructure:"loading_delay"`
}

// PlanConfig controls plan drafting requests.
type PlanConfig struct {
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// TutorConfig controls tutoring requests.
type TutorConfig struct {
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
}

// SessionConfig controls the tutoring flow and session retention.
type SessionConfig struct {
	Window        int           `mapstructure:"window"`
	Retention     time.Duration `mapstructure:"retention"`
	IdleTTL       time.Duration `mapstructure:"idle_ttl"`
	PurgeInterval time.Duration `mapstructure:"purge_interval"`
	// Classifier is "substring" or "tag".
	Classifier string `mapstructure:"classifier"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns a Config with default values.
func Default() *Config {
	llmDefaults := llm.DefaultConfig()
	planDefaults := plan.DefaultConfig()
	sessionDefaults := session.DefaultConfig()

	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
		},
		LLM: LLMConfig{
			Candidates:   llmDefaults.Candidates,
			Fallback:     llmDefaults.Fallback,
			Retries:      llmDefaults.Retry.MaxAttempts,
			Backoff:      llmDefaults.Retry.InitialWait,
			MaxBackoff:   llmDefaults.Retry.MaxWait,
			Timeout:      llmDefaults.Retry.Timeout,
			ReprobeAfter: llmDefaults.ReprobeAfter,
			Probe: ProbeConfig{
				Timeout:        llmDefaults.Probe.Timeout,
				LoadingRetries: llmDefaults.Probe.LoadingRetries,
				LoadingDelay:   llmDefaults.Probe.LoadingDelay,
			},
			HFBaseURL: llmDefaults.HuggingFace.BaseURL,
		},
		Plan: PlanConfig{
			MaxTokens:   planDefaults.MaxTokens,
			Temperature: planDefaults.Temperature,
		},
		Tutor: TutorConfig{
			MaxTokens:   sessionDefaults.MaxTokens,
			Temperature: sessionDefaults.Temperature,
			TopP:        sessionDefaults.TopP,
		},
		Session: SessionConfig{
			Window:        sessionDefaults.Window,
			Retention:     sessionDefaults.Retention,
			IdleTTL:       sessionDefaults.IdleTTL,
			PurgeInterval: 10 * time.Minute,
			Classifier:    "substring",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// SetDefaults registers every default with v so that env overrides and
// config file values have keys to bind to.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.path", d.Database.Path)

	v.SetDefault("llm.candidates", d.LLM.Candidates)
	v.SetDefault("llm.fallback", d.LLM.Fallback)
	v.SetDefault("llm.retries", d.LLM.Retries)
	v.SetDefault("llm.backoff", d.LLM.Backoff)
	v.SetDefault("llm.max_backoff", d.LLM.MaxBackoff)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("llm.reprobe_after", d.LLM.ReprobeAfter)
	v.SetDefault("llm.probe.timeout", d.LLM.Probe.Timeout)
	v.SetDefault("llm.probe.loading_retries", d.LLM.Probe.LoadingRetries)
	v.SetDefault("llm.probe.loading_delay", d.LLM.Probe.LoadingDelay)
	v.SetDefault("llm.openai_base_url", "")
	v.SetDefault("llm.hf_base_url", d.LLM.HFBaseURL)

	v.SetDefault("plan.max_tokens", d.Plan.MaxTokens)
	v.SetDefault("plan.temperature", d.Plan.Temperature)

	v.SetDefault("tutor.max_tokens", d.Tutor.MaxTokens)
	v.SetDefault("tutor.temperature", d.Tutor.Temperature)
	v.SetDefault("tutor.top_p", d.Tutor.TopP)

	v.SetDefault("session.window", d.Session.Window)
	v.SetDefault("session.retention", d.Session.Retention)
	v.SetDefault("session.idle_ttl", d.Session.IdleTTL)
	v.SetDefault("session.purge_interval", d.Session.PurgeInterval)
	v.SetDefault("session.classifier", d.Session.Classifier)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// apiKeyEnv maps key settings to the bare variable names providers
// document, checked after the prefixed form.
var apiKeyEnv = map[string]string{
	"llm.gemini_api_key":     "GEMINI_API_KEY",
	"llm.openai_api_key":     "OPENAI_API_KEY",
	"llm.anthropic_api_key":  "ANTHROPIC_API_KEY",
	"llm.openrouter_api_key": "OPENROUTER_API_KEY",
	"llm.hf_api_key":         "HF_API_TOKEN",
}

// Init prepares v: defaults, environment binding and the config file.
// cfgFile may be empty, in which case ./config.yaml and the user config
// directory are searched. A missing file is not an error.
func Init(v *viper.Viper, cfgFile string) error {
	// Only fills variables that are not already set.
	_ = godotenv.Load()

	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, bare := range apiKeyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, bare); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(Dir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Dir returns the user's lessonforge config directory.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "lessonforge")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "lessonforge")
}

// LLMSettings builds the backend configuration.
func (c *Config) LLMSettings() llm.Config {
	out := llm.DefaultConfig()
	out.Candidates = append([]string{}, c.LLM.Candidates...)
	out.Fallback = c.LLM.Fallback
	out.Retry.MaxAttempts = c.LLM.Retries
	out.Retry.InitialWait = c.LLM.Backoff
	out.Retry.MaxWait = c.LLM.MaxBackoff
	out.Retry.Timeout = c.LLM.Timeout
	out.ReprobeAfter = c.LLM.ReprobeAfter
	out.Probe.Timeout = c.LLM.Probe.Timeout
	out.Probe.LoadingRetries = c.LLM.Probe.LoadingRetries
	out.Probe.LoadingDelay = c.LLM.Probe.LoadingDelay

	out.Gemini.APIKey = c.LLM.GeminiAPIKey
	out.OpenAI.APIKey = c.LLM.OpenAIAPIKey
	out.OpenAI.BaseURL = c.LLM.OpenAIBaseURL
	out.Anthropic.APIKey = c.LLM.AnthropicAPIKey
	out.OpenRouter.APIKey = c.LLM.OpenRouterAPIKey
	out.HuggingFace.Token = c.LLM.HFAPIKey
	if c.LLM.HFBaseURL != "" {
		out.HuggingFace.BaseURL = c.LLM.HFBaseURL
	}
	return out
}

// PlanSettings builds the plan drafting configuration.
func (c *Config) PlanSettings() plan.Config {
	return plan.Config{
		MaxTokens:   c.Plan.MaxTokens,
		Temperature: c.Plan.Temperature,
	}
}

// SessionSettings builds the tutoring configuration.
func (c *Config) SessionSettings() session.Config {
	return session.Config{
		Window:      c.Session.Window,
		MaxTokens:   c.Tutor.MaxTokens,
		Temperature: c.Tutor.Temperature,
		TopP:        c.Tutor.TopP,
		Retention:   c.Session.Retention,
		IdleTTL:     c.Session.IdleTTL,
	}
}
