package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// ApologyText is returned in place of generated text once retries are
// exhausted.
const ApologyText = "I'm having trouble responding right now. Please try again."

// ClientConfig configures the resilient client.
type ClientConfig struct {
	Retry RetryConfig

	// ReprobeAfter consecutive exhausted calls trigger a re-selection.
	// Zero disables re-probing.
	ReprobeAfter int
}

// Result is the outcome of a generation. Text is never empty.
type Result struct {
	Text  string
	Model string

	// Degraded is true when Text is the apology rather than model output.
	Degraded bool
}

// Client issues generations against the prober's active backend. It never
// returns an error: upstream failures are retried and, when exhausted,
// turned into ApologyText.
type Client struct {
	prober *Prober
	cfg    ClientConfig
	logger *slog.Logger

	mu        sync.Mutex
	provider  Provider
	candidate string
	failures  int

	reprobeMu sync.Mutex
}

// NewClient creates a Client, running the initial selection if the prober
// has none yet.
func NewClient(ctx context.Context, prober *Prober, cfg ClientConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{prober: prober, cfg: cfg, logger: logger}

	sel, ok := prober.Active()
	if !ok {
		sel = prober.Select(ctx)
	}
	c.install(sel)
	return c
}

// Generate sends req to the active backend and returns normalized text.
func (c *Client) Generate(ctx context.Context, req Request) Result {
	provider, candidate := c.current()

	resp, err := provider.Generate(ctx, req)
	if err == nil {
		c.mu.Lock()
		c.failures = 0
		c.mu.Unlock()
		return Result{Text: string(resp.Content), Model: resp.Model}
	}

	c.logger.Warn("generation exhausted retries",
		"candidate", candidate, "purpose", PurposeFrom(ctx),
		"error", fmt.Errorf("%w: %w", ErrGenerationDegraded, err))

	c.mu.Lock()
	c.failures++
	reprobe := c.cfg.ReprobeAfter > 0 && c.failures >= c.cfg.ReprobeAfter
	c.mu.Unlock()

	if reprobe {
		c.reprobe(ctx)
	}

	return Result{Text: ApologyText, Model: provider.ModelID(), Degraded: true}
}

// Active returns the active candidate identifier.
func (c *Client) Active() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.candidate
}

func (c *Client) current() (Provider, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.provider, c.candidate
}

// install wraps the selected provider as retry -> normalize -> provider.
func (c *Client) install(sel Selection) {
	p := WithRetry(normalizing{sel.Provider}, c.cfg.Retry)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.provider = p
	c.candidate = sel.Candidate
	c.failures = 0
}

// reprobe asks the prober for a new backend. Concurrent callers that hit
// the threshold together re-probe once.
func (c *Client) reprobe(ctx context.Context) {
	c.reprobeMu.Lock()
	defer c.reprobeMu.Unlock()

	c.mu.Lock()
	due := c.cfg.ReprobeAfter > 0 && c.failures >= c.cfg.ReprobeAfter
	previous := c.candidate
	c.mu.Unlock()
	if !due {
		return
	}

	sel := c.prober.Reselect(context.WithoutCancel(ctx))
	c.install(sel)
	c.logger.Info("backend re-selected", "previous", previous, "candidate", sel.Candidate, "fallback", sel.Fallback)
}

// normalizing reduces every response to trimmed plain text and treats an
// empty result as a failed attempt.
type normalizing struct {
	inner Provider
}

func (n normalizing) Generate(ctx context.Context, req Request) (*Response, error) {
	resp, err := n.inner.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	text := NormalizeText(resp.Content)
	if text == "" {
		return nil, &ErrInvalidResponse{Content: resp.Content, Err: fmt.Errorf("empty text from %s", n.inner.ModelID())}
	}
	out := *resp
	out.Content = []byte(text)
	return &out, nil
}

func (n normalizing) ModelID() string { return n.inner.ModelID() }
