package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapFactory(providers map[string]Provider) Factory {
	return func(_ context.Context, candidate string) (Provider, error) {
		p, ok := providers[candidate]
		if !ok {
			return nil, fmt.Errorf("no provider for %q", candidate)
		}
		return p, nil
	}
}

func loading() MockResponse {
	return MockResponse{Err: &ErrModelLoading{Err: errors.New("503 service unavailable")}}
}

func probeConfig(candidates ...string) ProbeConfig {
	return ProbeConfig{
		Candidates:     candidates,
		Fallback:       "fallback",
		Timeout:        time.Second,
		LoadingRetries: 2,
		LoadingDelay:   time.Millisecond,
	}
}

func TestProber_SkipsLoadingCandidate(t *testing.T) {
	a := NewNamedMockProvider("a", loading(), loading(), loading(), loading())
	b := NewNamedMockProvider("b", MockText("pong"))

	p := NewProber(probeConfig("A", "B"), mapFactory(map[string]Provider{"A": a, "B": b}), nil)
	sel := p.Select(context.Background())

	assert.Equal(t, "B", sel.Candidate)
	assert.False(t, sel.Fallback)
	assert.Equal(t, 3, a.CallCount(), "one probe plus two loading retries")
	assert.Equal(t, 1, b.CallCount())

	active, ok := p.Active()
	require.True(t, ok)
	assert.Equal(t, "B", active.Candidate)
}

func TestProber_LoadingThenReady(t *testing.T) {
	a := NewNamedMockProvider("a", loading(), MockText("pong"))
	b := NewNamedMockProvider("b", MockText("pong"))

	p := NewProber(probeConfig("A", "B"), mapFactory(map[string]Provider{"A": a, "B": b}), nil)
	sel := p.Select(context.Background())

	assert.Equal(t, "A", sel.Candidate)
	assert.Equal(t, 0, b.CallCount())
}

func TestProber_NonLoadingErrorMovesOn(t *testing.T) {
	a := NewNamedMockProvider("a", MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("401")}}, MockText("pong"))
	b := NewNamedMockProvider("b", MockText("pong"))

	p := NewProber(probeConfig("A", "B"), mapFactory(map[string]Provider{"A": a, "B": b}), nil)
	sel := p.Select(context.Background())

	assert.Equal(t, "B", sel.Candidate)
	assert.Equal(t, 1, a.CallCount())
}

func TestProber_UnbuildableCandidateSkipped(t *testing.T) {
	b := NewNamedMockProvider("b", MockText("pong"))

	p := NewProber(probeConfig("missing", "B"), mapFactory(map[string]Provider{"B": b}), nil)
	assert.Equal(t, "B", p.Select(context.Background()).Candidate)
}

func TestProber_FallbackWhenAllFail(t *testing.T) {
	a := NewNamedMockProvider("a")
	fb := NewNamedMockProvider("fb", MockText("late answer"))

	p := NewProber(probeConfig("A"), mapFactory(map[string]Provider{"A": a, "fallback": fb}), nil)
	sel := p.Select(context.Background())

	assert.True(t, sel.Fallback)
	assert.Equal(t, "fallback", sel.Candidate)
	assert.Equal(t, 0, fb.CallCount(), "fallback is activated without a probe")
}

func TestProber_UnbuildableFallbackDegrades(t *testing.T) {
	p := NewProber(probeConfig(), mapFactory(map[string]Provider{}), nil)
	sel := p.Select(context.Background())

	require.True(t, sel.Fallback)
	_, err := sel.Provider.Generate(context.Background(), Request{})
	var unavail *ErrProviderUnavailable
	assert.ErrorAs(t, err, &unavail)
	assert.Equal(t, "fallback", sel.Provider.ModelID())
}

func TestProber_ReselectTriesActiveLast(t *testing.T) {
	a := NewNamedMockProvider("a", MockText("pong"), MockText("pong"))
	b := NewNamedMockProvider("b", MockText("pong"))

	p := NewProber(probeConfig("A", "B"), mapFactory(map[string]Provider{"A": a, "B": b}), nil)
	require.Equal(t, "A", p.Select(context.Background()).Candidate)

	sel := p.Reselect(context.Background())
	assert.Equal(t, "B", sel.Candidate)
	assert.Equal(t, 1, a.CallCount())
}

func TestProber_ProbeTimeout(t *testing.T) {
	cfg := probeConfig("A", "B")
	cfg.Timeout = 5 * time.Millisecond
	a := NewNamedMockProvider("a", MockResponse{Delay: time.Second})
	b := NewNamedMockProvider("b", MockText("pong"))

	p := NewProber(cfg, mapFactory(map[string]Provider{"A": a, "B": b}), nil)
	assert.Equal(t, "B", p.Select(context.Background()).Candidate)
}
