// Package analytics summarizes the closed sessions of a lesson.
package analytics

import (
	"context"
	"fmt"
	"strconv"

	"github.com/abhisek/lessonforge/internal/lessons"
)

const (
	dateLayout  = "2006-01-02 15:04"
	noScore     = "N/A"
	idPrefixLen = 8
)

// Row is one closed session, formatted for display.
type Row struct {
	SessionID string `json:"session_id" yaml:"session_id"`
	Date      string `json:"date" yaml:"date"`
	Duration  string `json:"duration" yaml:"duration"`
	Rating    string `json:"rating" yaml:"rating"`
	Score     string `json:"score" yaml:"score"`
}

// Report is the analytics view of a lesson.
type Report struct {
	Token         string  `json:"token" yaml:"token"`
	Topic         string  `json:"topic" yaml:"topic"`
	Sessions      []Row   `json:"sessions" yaml:"sessions"`
	TotalSessions int     `json:"total_sessions" yaml:"total_sessions"`
	AvgRating     float64 `json:"avg_rating" yaml:"avg_rating"`
}

// Aggregate builds the report for lesson. The average covers numeric
// ratings only and is zero when there are none.
func Aggregate(lesson *lessons.Lesson) Report {
	r := Report{
		Token:         lesson.Token,
		Topic:         lesson.Plan.Topic(),
		Sessions:      make([]Row, 0, len(lesson.Summaries)),
		TotalSessions: len(lesson.Summaries),
	}

	var sum, rated int
	for _, s := range lesson.Summaries {
		r.Sessions = append(r.Sessions, row(s))
		if v, ok := s.Rating.Value(); ok {
			sum += v
			rated++
		}
	}
	if rated > 0 {
		r.AvgRating = float64(sum) / float64(rated)
	}
	return r
}

func row(s lessons.SessionSummary) Row {
	score := noScore
	if s.Score != nil {
		score = strconv.FormatFloat(*s.Score, 'f', -1, 64)
	}
	return Row{
		SessionID: shortID(s.SessionID),
		Date:      s.StartTime.Format(dateLayout),
		Duration:  fmt.Sprintf("%d mins", s.DurationMinutes),
		Rating:    s.Rating.String(),
		Score:     score,
	}
}

func shortID(id string) string {
	if len(id) > idPrefixLen {
		id = id[:idPrefixLen]
	}
	return id + "..."
}

// LessonGetter resolves lessons by token.
type LessonGetter interface {
	Get(ctx context.Context, token string) (*lessons.Lesson, error)
}

// Service serves reports for stored lessons.
type Service struct {
	lessons LessonGetter
}

// NewService creates a Service.
func NewService(lessons LessonGetter) *Service {
	return &Service{lessons: lessons}
}

// Report returns the analytics for token, or lessons.ErrInvalidToken.
func (s *Service) Report(ctx context.Context, token string) (Report, error) {
	l, err := s.lessons.Get(ctx, token)
	if err != nil {
		return Report{}, err
	}
	return Aggregate(l), nil
}
