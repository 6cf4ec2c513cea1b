package plan

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/abhisek/lessonforge/internal/llm"
)

// Generator produces text for a request. *llm.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, req llm.Request) llm.Result
}

// Planner drafts and revises lesson plans.
type Planner struct {
	gen    Generator
	cfg    Config
	logger *slog.Logger
}

// NewPlanner creates a Planner.
func NewPlanner(gen Generator, cfg Config, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{gen: gen, cfg: cfg, logger: logger}
}

// Draft generates a plan for topic. When the reply cannot be extracted the
// template plan is returned with fellBack set. The only error is
// ErrInvalidInput for a blank topic.
func (p *Planner) Draft(ctx context.Context, topic string) (Plan, bool, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Plan{}, false, fmt.Errorf("%w: topic is empty", ErrInvalidInput)
	}

	ctx = llm.WithPurpose(ctx, llm.PurposePlan)
	res := p.gen.Generate(ctx, p.request(buildDraftMessage(topic)))

	out, err := Extract(res.Text)
	if err != nil {
		p.logger.Warn("lesson plan extraction failed",
			"topic", topic, "degraded", res.Degraded, "raw", res.Text,
			"error", fmt.Errorf("%w: %w", ErrExtractionFallback, err))
		return Fallback(topic), true, nil
	}
	return out, false, nil
}

// Revise asks the model to rework current according to feedback. The
// returned plan is current, unchanged, when revised is false.
func (p *Planner) Revise(ctx context.Context, current Plan, feedback string) (Plan, bool) {
	ctx = llm.WithPurpose(ctx, llm.PurposeRevise)
	res := p.gen.Generate(ctx, p.request(buildRevisionMessage(current, feedback)))

	out, err := Extract(res.Text)
	if err != nil {
		p.logger.Warn("lesson plan revision discarded",
			"degraded", res.Degraded, "raw", res.Text,
			"error", fmt.Errorf("%w: %w", ErrExtractionFallback, err))
		return current, false
	}
	return out, true
}

func (p *Planner) request(msg string) llm.Request {
	req := llm.UserPrompt(systemPrompt, msg)
	req.MaxTokens = p.cfg.MaxTokens
	req.Temperature = p.cfg.Temperature
	return req
}
