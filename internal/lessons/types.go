package lessons

import (
	"time"

	"github.com/abhisek/lessonforge/internal/plan"
)

// Draft is a lesson plan that can still be revised.
type Draft struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Plan      plan.Plan `json:"plan"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Revisions int       `json:"revisions"`

	// FellBack is true when the current plan is the template rather than
	// model output.
	FellBack bool `json:"fell_back"`
}

// Lesson is a finalized plan reachable by its access token.
type Lesson struct {
	Token     string           `json:"token" yaml:"token"`
	Topic     string           `json:"topic" yaml:"topic"`
	Plan      plan.Plan        `json:"plan" yaml:"plan"`
	CreatedAt time.Time        `json:"created_at" yaml:"created_at"`
	Summaries []SessionSummary `json:"sessions" yaml:"sessions"`
}

// SessionSummary is the record a closed tutoring session leaves behind.
type SessionSummary struct {
	SessionID       string    `json:"session_id" yaml:"session_id"`
	StartTime       time.Time `json:"start_time" yaml:"start_time"`
	DurationMinutes int       `json:"duration" yaml:"duration"`
	Rating          Rating    `json:"rating" yaml:"rating"`

	// Score is nil when no assessment score was recorded.
	Score *float64 `json:"score" yaml:"score"`
}

func (d *Draft) clone() *Draft {
	c := *d
	c.Plan = d.Plan.Clone()
	return &c
}

// Clone returns a deep copy.
func (l *Lesson) Clone() *Lesson {
	c := *l
	c.Plan = l.Plan.Clone()
	c.Summaries = make([]SessionSummary, len(l.Summaries))
	for i, s := range l.Summaries {
		if s.Score != nil {
			v := *s.Score
			s.Score = &v
		}
		c.Summaries[i] = s
	}
	return &c
}
