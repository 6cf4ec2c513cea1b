package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/lessonforge/internal/keylock"
	"github.com/abhisek/lessonforge/internal/lessons"
	"github.com/abhisek/lessonforge/internal/llm"
)

// LessonSource resolves lessons and records closed sessions. Appending a
// summary whose SessionID is already recorded replaces it.
// *lessons.Registry satisfies it.
type LessonSource interface {
	Get(ctx context.Context, token string) (*lessons.Lesson, error)
	AppendSessionSummary(ctx context.Context, token string, summary lessons.SessionSummary) error
}

// Generator produces tutor replies. *llm.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, req llm.Request) llm.Result
}

// TurnResult is the outcome of a chat turn.
type TurnResult struct {
	Session  *Session `json:"session"`
	Reply    string   `json:"reply"`
	State    State    `json:"state"`
	Degraded bool     `json:"degraded"`
}

// Manager runs tutoring sessions.
type Manager struct {
	store      Store
	lessons    LessonSource
	gen        Generator
	classifier PhaseClassifier
	cfg        Config
	logger     *slog.Logger
	now        func() time.Time

	// state guards read-modify-write of a record; turns serializes whole
	// turns, including the generation call.
	state *keylock.Map
	turns *keylock.Map

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a Manager. A nil classifier means SubstringClassifier.
func NewManager(store Store, src LessonSource, gen Generator, classifier PhaseClassifier, cfg Config, logger *slog.Logger) *Manager {
	if classifier == nil {
		classifier = SubstringClassifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:      store,
		lessons:    src,
		gen:        gen,
		classifier: classifier,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
		state:      keylock.New(),
		turns:      keylock.New(),
	}
}

// Start opens a session on the lesson behind token and appends the
// welcome turn. An unknown token yields lessons.ErrInvalidToken.
func (m *Manager) Start(ctx context.Context, token string) (*Session, error) {
	lesson, err := m.lessons.Get(ctx, token)
	if err != nil {
		return nil, err
	}

	now := m.now()
	s := &Session{
		ID:          uuid.NewString(),
		LessonToken: token,
		StartTime:   now,
		WorkflowLen: len(lesson.Plan.Workflow),
		Turns: []Turn{
			{Speaker: SpeakerTutor, Text: welcomeMessage(lesson.Plan), At: now},
		},
		QuizResponses: []string{},
		UpdatedAt:     now,
	}
	if err := m.store.Put(ctx, s); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	m.logger.Info("session started", "session_id", s.ID, "token", token)
	return s.Clone(), nil
}

// Get returns a copy of the session.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	return m.store.Get(ctx, id)
}

// Turn records the student's message, asks the tutor for a reply and
// advances the step. The caller's cancellation does not interrupt a turn
// once it has started.
func (m *Manager) Turn(ctx context.Context, id, message string) (TurnResult, error) {
	ctx = context.WithoutCancel(ctx)

	message = strings.TrimSpace(message)
	if message == "" {
		return TurnResult{}, fmt.Errorf("%w: message is empty", lessons.ErrInvalidInput)
	}

	unlock := m.turns.Lock(id)
	defer unlock()

	// Resolve the lesson before the student turn is stored, so a failed
	// read leaves no unanswered turn behind.
	current, err := m.store.Get(ctx, id)
	if err != nil {
		return TurnResult{}, err
	}
	if current.Closed {
		return TurnResult{}, ErrSessionClosed
	}
	lesson, err := m.lessons.Get(ctx, current.LessonToken)
	if err != nil {
		return TurnResult{}, fmt.Errorf("load lesson: %w", err)
	}

	s, err := m.update(ctx, id, func(s *Session) error {
		if s.Closed {
			return ErrSessionClosed
		}
		s.Turns = append(s.Turns, Turn{Speaker: SpeakerStudent, Text: message, At: m.now()})
		if s.Step == QuizStep {
			s.QuizResponses = append(s.QuizResponses, message)
		}
		return nil
	})
	if err != nil {
		return TurnResult{}, err
	}

	req := llm.UserPrompt(
		buildSystem(lesson.Plan, s.Step, m.classifier.Instructions()),
		buildTranscript(s.Turns, m.cfg.Window),
	)
	req.MaxTokens = m.cfg.MaxTokens
	req.Temperature = m.cfg.Temperature
	req.TopP = m.cfg.TopP

	res := m.gen.Generate(llm.WithPurpose(ctx, llm.PurposeTutor), req)
	tr := m.classifier.Classify(res.Text, s.WorkflowLen)

	s, err = m.update(ctx, id, func(s *Session) error {
		s.Turns = append(s.Turns, Turn{Speaker: SpeakerTutor, Text: tr.Reply, At: m.now()})
		if tr.Changed {
			s.Step = tr.Step
		}
		return nil
	})
	if err != nil {
		return TurnResult{}, err
	}

	if tr.Changed {
		m.logger.Info("session step changed", "session_id", id, "step", s.Step, "state", s.State())
	}
	return TurnResult{Session: s, Reply: tr.Reply, State: s.State(), Degraded: res.Degraded}, nil
}

// Complete closes the session with rating and appends its summary to the
// lesson. It waits for an in-flight turn to finish. The summary is recorded
// before the session is stored closed; a retry after a failed store
// replaces it rather than adding a second one.
func (m *Manager) Complete(ctx context.Context, id string, rating lessons.Rating) (*lessons.SessionSummary, error) {
	ctx = context.WithoutCancel(ctx)

	unlockTurn := m.turns.Lock(id)
	defer unlockTurn()

	var summary lessons.SessionSummary
	_, err := m.update(ctx, id, func(s *Session) error {
		if s.Closed {
			return ErrSessionClosed
		}

		end := m.now()
		duration := int(end.Sub(s.StartTime) / time.Minute)
		if duration < 0 {
			duration = 0
		}
		summary = lessons.SessionSummary{
			SessionID:       s.ID,
			StartTime:       s.StartTime,
			DurationMinutes: duration,
			Rating:          rating,
			Score:           s.Score,
		}
		if err := m.lessons.AppendSessionSummary(ctx, s.LessonToken, summary); err != nil {
			return fmt.Errorf("append summary: %w", err)
		}

		s.Closed = true
		s.EndTime = &end
		s.Rating = &rating
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("session completed", "session_id", id, "duration_minutes", summary.DurationMinutes, "rating", rating.String())
	return &summary, nil
}

// RecordScore sets the assessment score, from 0 to 100.
func (m *Manager) RecordScore(ctx context.Context, id string, score float64) (*Session, error) {
	if score < 0 || score > 100 {
		return nil, fmt.Errorf("%w: score %v out of range 0-100", lessons.ErrInvalidInput, score)
	}
	return m.update(ctx, id, func(s *Session) error {
		if s.Closed {
			return ErrSessionClosed
		}
		s.Score = &score
		return nil
	})
}

// SetStep moves the progress cursor directly. It lets a teacher recover a
// session whose reply classification went wrong.
func (m *Manager) SetStep(ctx context.Context, id string, step int) (*Session, error) {
	return m.update(ctx, id, func(s *Session) error {
		if s.Closed {
			return ErrSessionClosed
		}
		if step < QuizStep || step > s.WorkflowLen {
			return fmt.Errorf("%w: step %d out of range %d-%d", lessons.ErrInvalidInput, step, QuizStep, s.WorkflowLen)
		}
		s.Step = step
		return nil
	})
}

// update applies fn to the stored session under its state lock. The
// session is written back only when fn succeeds.
func (m *Manager) update(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	unlock := m.state.Lock(id)
	defer unlock()

	s, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(s); err != nil {
		return nil, err
	}
	s.UpdatedAt = m.now()
	if err := m.store.Put(ctx, s); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return s.Clone(), nil
}
