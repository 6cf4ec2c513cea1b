package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// probeRequest is the minimal synthetic generation used to test a backend.
var probeRequest = Request{
	Messages:  []Message{{Role: RoleUser, Content: "ping"}},
	MaxTokens: 8,
}

// Selection is the outcome of probing.
type Selection struct {
	Candidate string
	Provider  Provider

	// Fallback is true when no candidate answered and the last-resort
	// candidate was activated without a successful probe.
	Fallback bool
}

// Prober tests candidate backends in preference order and keeps the
// active selection.
type Prober struct {
	cfg     ProbeConfig
	factory Factory
	logger  *slog.Logger

	mu     sync.RWMutex
	active *Selection
}

// NewProber creates a Prober. It does not probe until Select is called.
func NewProber(cfg ProbeConfig, factory Factory, logger *slog.Logger) *Prober {
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{cfg: cfg, factory: factory, logger: logger}
}

// Select probes the candidates in order and activates the first one that
// answers. When all fail it activates the fallback candidate and logs
// ErrUpstreamUnavailable.
func (p *Prober) Select(ctx context.Context) Selection {
	return p.selectFrom(ctx, p.cfg.Candidates)
}

// Reselect probes again, trying the currently active candidate last.
func (p *Prober) Reselect(ctx context.Context) Selection {
	current, ok := p.Active()
	if !ok {
		return p.Select(ctx)
	}

	order := make([]string, 0, len(p.cfg.Candidates))
	var tail []string
	for _, c := range p.cfg.Candidates {
		if c == current.Candidate {
			tail = append(tail, c)
			continue
		}
		order = append(order, c)
	}
	return p.selectFrom(ctx, append(order, tail...))
}

// Active returns the current selection, if any.
func (p *Prober) Active() (Selection, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.active == nil {
		return Selection{}, false
	}
	return *p.active, true
}

func (p *Prober) selectFrom(ctx context.Context, candidates []string) Selection {
	ctx = WithPurpose(ctx, PurposeProbe)

	for _, candidate := range candidates {
		provider, err := p.probe(ctx, candidate)
		if err != nil {
			p.logger.Info("backend candidate unavailable", "candidate", candidate, "error", err)
			continue
		}
		p.logger.Info("backend selected", "candidate", candidate)
		return p.activate(Selection{Candidate: candidate, Provider: provider})
	}

	p.logger.Warn("falling back to last-resort backend",
		"candidate", p.cfg.Fallback, "error", ErrUpstreamUnavailable)

	provider, err := p.factory(ctx, p.cfg.Fallback)
	if err != nil {
		p.logger.Error("fallback backend could not be built", "candidate", p.cfg.Fallback, "error", err)
		provider = unavailableProvider{model: p.cfg.Fallback, err: err}
	}
	return p.activate(Selection{Candidate: p.cfg.Fallback, Provider: provider, Fallback: true})
}

func (p *Prober) activate(sel Selection) Selection {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = &sel
	return sel
}

// probe builds the candidate and sends the synthetic request. A loading
// signal is retried on the same candidate up to LoadingRetries times.
func (p *Prober) probe(ctx context.Context, candidate string) (Provider, error) {
	provider, err := p.factory(ctx, candidate)
	if err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		err = p.ping(ctx, provider)
		if err == nil {
			return provider, nil
		}
		if !IsLoading(err) || attempt >= p.cfg.LoadingRetries {
			return nil, err
		}

		p.logger.Debug("backend loading, waiting",
			"candidate", candidate, "attempt", attempt+1, "delay", p.cfg.LoadingDelay)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.cfg.LoadingDelay):
		}
	}
}

func (p *Prober) ping(ctx context.Context, provider Provider) error {
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}
	_, err := provider.Generate(ctx, probeRequest)
	return err
}

// unavailableProvider stands in for a fallback that could not be built.
type unavailableProvider struct {
	model string
	err   error
}

func (u unavailableProvider) Generate(context.Context, Request) (*Response, error) {
	return nil, &ErrProviderUnavailable{Err: fmt.Errorf("backend %q not configured: %w", u.model, u.err)}
}

func (u unavailableProvider) ModelID() string { return u.model }
