package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/abhisek/lessonforge/internal/session"
)

// SessionRepo stores tutoring sessions.
type SessionRepo struct {
	db *sql.DB
}

var sessionColumns = []string{
	"id", "lesson_token", "start_time", "end_time", "step", "workflow_len",
	"turns", "quiz_responses", "score", "rating", "closed", "updated_at",
}

// Get returns the session, or session.ErrNotFound.
func (r *SessionRepo) Get(ctx context.Context, id string) (*session.Session, error) {
	query, args, err := qb.Select(sessionColumns...).
		From("sessions").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var (
		s                   session.Session
		start, updated      int64
		end                 sql.NullInt64
		turnsJSON, quizJSON string
		score               sql.NullFloat64
		rating              sql.NullInt64
	)
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&s.ID, &s.LessonToken, &start, &end, &s.Step, &s.WorkflowLen,
		&turnsJSON, &quizJSON, &score, &rating, &s.Closed, &updated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", session.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}

	s.StartTime = fromUnix(start)
	s.UpdatedAt = fromUnix(updated)
	if end.Valid {
		t := fromUnix(end.Int64)
		s.EndTime = &t
	}
	if score.Valid {
		v := score.Float64
		s.Score = &v
	}
	if rating.Valid {
		rt := ratingFromInt(int(rating.Int64))
		s.Rating = &rt
	}
	if err := json.Unmarshal([]byte(turnsJSON), &s.Turns); err != nil {
		return nil, fmt.Errorf("decode turns: %w", err)
	}
	if err := json.Unmarshal([]byte(quizJSON), &s.QuizResponses); err != nil {
		return nil, fmt.Errorf("decode quiz responses: %w", err)
	}
	return &s, nil
}

// Put creates or replaces the session.
func (r *SessionRepo) Put(ctx context.Context, s *session.Session) error {
	c := s.Clone()
	turnsJSON, err := json.Marshal(c.Turns)
	if err != nil {
		return fmt.Errorf("encode turns: %w", err)
	}
	quizJSON, err := json.Marshal(c.QuizResponses)
	if err != nil {
		return fmt.Errorf("encode quiz responses: %w", err)
	}

	var end sql.NullInt64
	if s.EndTime != nil {
		end = sql.NullInt64{Int64: toUnix(*s.EndTime), Valid: true}
	}
	var rating sql.NullInt64
	if s.Rating != nil {
		n, _ := s.Rating.Value()
		rating = sql.NullInt64{Int64: int64(n), Valid: true}
	}

	query, args, err := qb.Insert("sessions").
		Options("OR REPLACE").
		Columns(sessionColumns...).
		Values(
			s.ID, s.LessonToken, toUnix(s.StartTime), end, s.Step, s.WorkflowLen,
			string(turnsJSON), string(quizJSON), nullFloat(s.Score), rating, s.Closed, toUnix(s.UpdatedAt),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Delete removes the session.
func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	query, args, err := qb.Delete("sessions").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Expired lists sessions closed before closedBefore and open sessions last
// updated before idleBefore.
func (r *SessionRepo) Expired(ctx context.Context, closedBefore, idleBefore time.Time) ([]string, error) {
	query, args, err := qb.Select("id").
		From("sessions").
		Where(sq.Or{
			sq.And{sq.Eq{"closed": true}, sq.Lt{"end_time": toUnix(closedBefore)}},
			sq.And{sq.Eq{"closed": false}, sq.Lt{"updated_at": toUnix(idleBefore)}},
		}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query expired sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Verify interface compliance.
var _ session.Store = (*SessionRepo)(nil)
