package lessons

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/lessonforge/internal/keylock"
	"github.com/abhisek/lessonforge/internal/plan"
)

// Planner drafts and revises plans. *plan.Planner satisfies it.
type Planner interface {
	Draft(ctx context.Context, topic string) (plan.Plan, bool, error)
	Revise(ctx context.Context, current plan.Plan, feedback string) (plan.Plan, bool)
}

// Registry owns drafts and finalized lessons. Drafts live in memory until
// finalized; lessons are written through to the Store.
type Registry struct {
	store   Store
	planner Planner
	logger  *slog.Logger
	locks   *keylock.Map
	now     func() time.Time

	mu     sync.Mutex
	drafts map[string]*Draft
}

// NewRegistry creates a Registry.
func NewRegistry(store Store, planner Planner, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		store:   store,
		planner: planner,
		logger:  logger,
		locks:   keylock.New(),
		now:     time.Now,
		drafts:  make(map[string]*Draft),
	}
}

// Create drafts a plan for topic and registers it.
func (r *Registry) Create(ctx context.Context, topic string) (*Draft, error) {
	p, fellBack, err := r.planner.Draft(ctx, topic)
	if err != nil {
		return nil, err
	}

	now := r.now()
	d := &Draft{
		ID:        uuid.NewString(),
		Topic:     strings.TrimSpace(topic),
		Plan:      p,
		CreatedAt: now,
		UpdatedAt: now,
		FellBack:  fellBack,
	}

	r.mu.Lock()
	r.drafts[d.ID] = d
	r.mu.Unlock()

	r.logger.Info("draft created", "draft_id", d.ID, "topic", d.Topic, "fell_back", fellBack)
	return d.clone(), nil
}

// Draft returns a copy of the draft.
func (r *Registry) Draft(_ context.Context, id string) (*Draft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.drafts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDraftNotFound, id)
	}
	return d.clone(), nil
}

// Finalize snapshots the draft into a lesson under a fresh token and
// removes the draft. It waits for any revision of the draft in flight.
func (r *Registry) Finalize(ctx context.Context, draftID string) (string, error) {
	unlock := r.locks.Lock(draftKey(draftID))
	defer unlock()
	return r.finalize(ctx, draftID)
}

// finalize requires the draft's key lock.
func (r *Registry) finalize(ctx context.Context, draftID string) (string, error) {
	r.mu.Lock()
	d, ok := r.drafts[draftID]
	if ok {
		delete(r.drafts, draftID)
	}
	r.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrDraftNotFound, draftID)
	}

	lesson := &Lesson{
		Token:     uuid.NewString(),
		Topic:     d.Topic,
		Plan:      d.Plan.Clone(),
		CreatedAt: r.now(),
		Summaries: []SessionSummary{},
	}
	if err := r.store.Put(ctx, lesson); err != nil {
		r.mu.Lock()
		r.drafts[draftID] = d
		r.mu.Unlock()
		return "", fmt.Errorf("store lesson: %w", err)
	}

	r.logger.Info("lesson finalized", "draft_id", draftID, "token", lesson.Token)
	return lesson.Token, nil
}

func draftKey(id string) string { return "draft:" + id }

// Get returns the lesson for token, or ErrInvalidToken.
func (r *Registry) Get(ctx context.Context, token string) (*Lesson, error) {
	return r.store.Get(ctx, token)
}

// AppendSessionSummary records a closed session under the lesson. A summary
// with the same SessionID replaces the earlier one, so a retried close is
// recorded once.
func (r *Registry) AppendSessionSummary(ctx context.Context, token string, summary SessionSummary) error {
	unlock := r.locks.Lock(token)
	defer unlock()

	l, err := r.store.Get(ctx, token)
	if err != nil {
		return err
	}
	replaced := false
	for i := range l.Summaries {
		if l.Summaries[i].SessionID == summary.SessionID {
			l.Summaries[i] = summary
			replaced = true
			break
		}
	}
	if !replaced {
		l.Summaries = append(l.Summaries, summary)
	}
	if err := r.store.Put(ctx, l); err != nil {
		return fmt.Errorf("store summary: %w", err)
	}
	return nil
}
