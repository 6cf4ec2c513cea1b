package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Session.Window != 5 {
		t.Errorf("Session.Window = %d, want 5", cfg.Session.Window)
	}
	if cfg.LLM.Retries != 3 {
		t.Errorf("LLM.Retries = %d, want 3", cfg.LLM.Retries)
	}
	if cfg.LLM.Backoff != time.Second {
		t.Errorf("LLM.Backoff = %v, want 1s", cfg.LLM.Backoff)
	}
	if cfg.LLM.ReprobeAfter != 2 {
		t.Errorf("LLM.ReprobeAfter = %d, want 2", cfg.LLM.ReprobeAfter)
	}
	if cfg.Session.Retention != 24*time.Hour {
		t.Errorf("Session.Retention = %v, want 24h", cfg.Session.Retention)
	}
	if cfg.Session.Classifier != "substring" {
		t.Errorf("Session.Classifier = %q, want substring", cfg.Session.Classifier)
	}
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("default config should validate, got %v", errs)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	var empty ValidationErrors
	if empty.Error() != "" {
		t.Errorf("Error() for empty = %q, want empty string", empty.Error())
	}

	single := ValidationErrors{{Field: "session.window", Value: 0, Message: "must be at least 1"}}
	if want := "session.window: must be at least 1 (got: 0)"; single.Error() != want {
		t.Errorf("Error() = %q, want %q", single.Error(), want)
	}

	multi := ValidationErrors{
		{Field: "a", Value: 1, Message: "bad"},
		{Field: "b", Value: 2, Message: "bad"},
	}
	if !strings.Contains(multi.Error(), "2 validation errors") {
		t.Errorf("Error() should count errors: %s", multi.Error())
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
		{"bad driver", func(c *Config) { c.Database.Driver = "postgres" }, "database.driver"},
		{"no candidates", func(c *Config) { c.LLM.Candidates = nil; c.LLM.Fallback = "" }, "llm.candidates"},
		{"unknown provider", func(c *Config) { c.LLM.Candidates = []string{"cohere:command"} }, "llm.candidates"},
		{"bad fallback", func(c *Config) { c.LLM.Fallback = "nope:x" }, "llm.fallback"},
		{"zero retries", func(c *Config) { c.LLM.Retries = 0 }, "llm.retries"},
		{"max below backoff", func(c *Config) { c.LLM.MaxBackoff = time.Millisecond }, "llm.max_backoff"},
		{"zero timeout", func(c *Config) { c.LLM.Timeout = 0 }, "llm.timeout"},
		{"negative reprobe", func(c *Config) { c.LLM.ReprobeAfter = -1 }, "llm.reprobe_after"},
		{"plan temperature", func(c *Config) { c.Plan.Temperature = 3 }, "plan.temperature"},
		{"tutor top_p", func(c *Config) { c.Tutor.TopP = 0 }, "tutor.top_p"},
		{"zero window", func(c *Config) { c.Session.Window = 0 }, "session.window"},
		{"zero idle ttl", func(c *Config) { c.Session.IdleTTL = 0 }, "session.idle_ttl"},
		{"bad classifier", func(c *Config) { c.Session.Classifier = "regex" }, "session.classifier"},
		{"bad level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			errs := cfg.Validate()
			found := false
			for _, e := range errs {
				if e.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("expected an error for %s, got %v", tt.field, errs)
			}
		})
	}
}

func TestInitAndLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	v := viper.New()
	if err := Init(v, ""); err != nil {
		t.Fatalf("Init: %v", err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.Session.PurgeInterval != 10*time.Minute {
		t.Errorf("Session.PurgeInterval = %v, want 10m", cfg.Session.PurgeInterval)
	}
}

func TestInitAndLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "lessonforge.yaml")
	content := `
server:
  addr: ":9090"
session:
  window: 8
  classifier: tag
llm:
  candidates: ["openai:gpt-4o-mini"]
  backoff: 2s
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("LESSONFORGE_SESSION_WINDOW", "3")
	t.Setenv("GEMINI_API_KEY", "bare-key")
	t.Setenv("LESSONFORGE_LLM_OPENAI_API_KEY", "prefixed-key")
	t.Setenv("OPENAI_API_KEY", "bare-openai")

	v := viper.New()
	if err := Init(v, path); err != nil {
		t.Fatalf("Init: %v", err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Errorf("Server.Addr = %q, want :9090", cfg.Server.Addr)
	}
	if cfg.Session.Window != 3 {
		t.Errorf("Session.Window = %d, want env override 3", cfg.Session.Window)
	}
	if cfg.Session.Classifier != "tag" {
		t.Errorf("Session.Classifier = %q, want tag", cfg.Session.Classifier)
	}
	if cfg.LLM.Backoff != 2*time.Second {
		t.Errorf("LLM.Backoff = %v, want 2s", cfg.LLM.Backoff)
	}
	if cfg.LLM.GeminiAPIKey != "bare-key" {
		t.Errorf("GeminiAPIKey = %q, want bare-key", cfg.LLM.GeminiAPIKey)
	}
	if cfg.LLM.OpenAIAPIKey != "prefixed-key" {
		t.Errorf("OpenAIAPIKey = %q, want prefixed-key", cfg.LLM.OpenAIAPIKey)
	}
	if len(cfg.LLM.Candidates) != 1 || cfg.LLM.Candidates[0] != "openai:gpt-4o-mini" {
		t.Errorf("Candidates = %v", cfg.LLM.Candidates)
	}
}

func TestLoad_InvalidReturnsValidationErrors(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("LESSONFORGE_SESSION_WINDOW", "0")
	t.Setenv("LESSONFORGE_LOG_LEVEL", "loud")

	v := viper.New()
	if err := Init(v, ""); err != nil {
		t.Fatalf("Init: %v", err)
	}
	_, err := Load(v)
	verrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("Load error = %T %v, want ValidationErrors", err, err)
	}
	if len(verrs) != 2 {
		t.Errorf("got %d errors, want 2: %v", len(verrs), verrs)
	}
}

func TestSettingsBuilders(t *testing.T) {
	cfg := Default()
	cfg.LLM.HFAPIKey = "hf"
	cfg.LLM.Retries = 5
	cfg.Tutor.TopP = 0.5
	cfg.Session.Window = 7

	l := cfg.LLMSettings()
	if l.HuggingFace.Token != "hf" || l.Retry.MaxAttempts != 5 {
		t.Errorf("LLMSettings = %+v", l)
	}
	if l.HuggingFace.BaseURL == "" {
		t.Error("LLMSettings should keep the HF base URL")
	}
	if err := l.Validate(); err != nil {
		t.Errorf("LLMSettings().Validate() = %v", err)
	}

	s := cfg.SessionSettings()
	if s.Window != 7 || s.TopP != 0.5 || s.MaxTokens != 500 {
		t.Errorf("SessionSettings = %+v", s)
	}

	p := cfg.PlanSettings()
	if p.MaxTokens != 1500 {
		t.Errorf("PlanSettings.MaxTokens = %d, want 1500", p.MaxTokens)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)

	logger.Info("hidden")
	logger.Warn("shown", "session_id", "s1")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record should be filtered: %s", out)
	}
	if !strings.Contains(out, `"session_id":"s1"`) {
		t.Errorf("expected JSON output, got %s", out)
	}
}
