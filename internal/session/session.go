package session

import (
	"errors"
	"time"

	"github.com/abhisek/lessonforge/internal/lessons"
)

var (
	// ErrNotFound is returned for an unknown session id.
	ErrNotFound = errors.New("session not found")

	// ErrSessionClosed is returned when a completed session is mutated.
	ErrSessionClosed = errors.New("session closed")
)

// QuizStep is the step value that marks the practice quiz phase.
const QuizStep = -1

// Speaker identifies who produced a turn.
type Speaker string

const (
	SpeakerTutor   Speaker = "tutor"
	SpeakerStudent Speaker = "student"
)

// Turn is one entry in the conversation log.
type Turn struct {
	Speaker Speaker   `json:"speaker"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

// State is the session's position in the tutoring flow.
type State string

const (
	StateAwaitingStart      State = "AWAITING_START"
	StateInDialogue         State = "IN_DIALOGUE"
	StateQuizPhase          State = "QUIZ_PHASE"
	StateAssessmentComplete State = "ASSESSMENT_COMPLETE"
	StateClosed             State = "CLOSED"
)

// Session is one student's run through a lesson.
type Session struct {
	ID          string     `json:"id"`
	LessonToken string     `json:"lesson_token"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty"`

	// Step is the progress cursor: QuizStep, a workflow index, or
	// WorkflowLen once the assessment is complete.
	Step        int `json:"step"`
	WorkflowLen int `json:"workflow_len"`

	Turns []Turn `json:"turns"`

	// QuizResponses holds student messages sent during the quiz phase.
	QuizResponses []string `json:"quiz_responses"`

	Score     *float64        `json:"score,omitempty"`
	Rating    *lessons.Rating `json:"rating,omitempty"`
	Closed    bool            `json:"closed"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// State derives the flow state from the record.
func (s *Session) State() State {
	switch {
	case s.Closed:
		return StateClosed
	case s.Step == QuizStep:
		return StateQuizPhase
	case s.Step >= s.WorkflowLen:
		return StateAssessmentComplete
	case !s.hasStudentTurn():
		return StateAwaitingStart
	default:
		return StateInDialogue
	}
}

func (s *Session) hasStudentTurn() bool {
	for _, t := range s.Turns {
		if t.Speaker == SpeakerStudent {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	c := *s
	c.Turns = append([]Turn{}, s.Turns...)
	c.QuizResponses = append([]string{}, s.QuizResponses...)
	if s.EndTime != nil {
		t := *s.EndTime
		c.EndTime = &t
	}
	if s.Score != nil {
		v := *s.Score
		c.Score = &v
	}
	if s.Rating != nil {
		r := *s.Rating
		c.Rating = &r
	}
	return &c
}
