package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/abhisek/lessonforge/internal/lessons"
	"github.com/abhisek/lessonforge/internal/plan"
)

// LessonRepo stores finalized lessons and their session summaries.
type LessonRepo struct {
	db *sql.DB
}

var summaryColumns = []string{
	"position", "session_id", "start_time", "duration_minutes", "rating", "score",
}

// Get returns the lesson for token, or lessons.ErrInvalidToken.
func (r *LessonRepo) Get(ctx context.Context, token string) (*lessons.Lesson, error) {
	query, args, err := qb.Select("token", "topic", "plan", "created_at").
		From("lessons").
		Where(sq.Eq{"token": token}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var (
		l         lessons.Lesson
		planJSON  string
		createdAt int64
	)
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&l.Token, &l.Topic, &planJSON, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", lessons.ErrInvalidToken, token)
	}
	if err != nil {
		return nil, fmt.Errorf("query lesson: %w", err)
	}
	l.CreatedAt = fromUnix(createdAt)

	var p plan.Plan
	if err := json.Unmarshal([]byte(planJSON), &p); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	l.Plan = p.Clone()

	l.Summaries, err = r.summaries(ctx, token)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *LessonRepo) summaries(ctx context.Context, token string) ([]lessons.SessionSummary, error) {
	query, args, err := qb.Select(summaryColumns...).
		From("lesson_summaries").
		Where(sq.Eq{"token": token}).
		OrderBy("position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []lessons.SessionSummary{}
	for rows.Next() {
		var (
			s        lessons.SessionSummary
			position int
			start    int64
			rating   int
			score    sql.NullFloat64
		)
		if err := rows.Scan(&position, &s.SessionID, &start, &s.DurationMinutes, &rating, &score); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		s.StartTime = fromUnix(start)
		s.Rating = ratingFromInt(rating)
		if score.Valid {
			v := score.Float64
			s.Score = &v
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summaries: %w", err)
	}
	return out, nil
}

// Put writes the lesson and replaces its summaries in one transaction.
func (r *LessonRepo) Put(ctx context.Context, l *lessons.Lesson) error {
	upsert, upsertArgs, err := qb.Insert("lessons").
		Columns("token", "topic", "plan", "created_at").
		Values(l.Token, l.Topic, string(l.Plan.JSON()), toUnix(l.CreatedAt)).
		Suffix("ON CONFLICT(token) DO UPDATE SET topic = excluded.topic, plan = excluded.plan, created_at = excluded.created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	del, delArgs, err := qb.Delete("lesson_summaries").Where(sq.Eq{"token": l.Token}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, upsert, upsertArgs...); err != nil {
		return fmt.Errorf("upsert lesson: %w", err)
	}
	if _, err := tx.ExecContext(ctx, del, delArgs...); err != nil {
		return fmt.Errorf("clear summaries: %w", err)
	}

	if len(l.Summaries) > 0 {
		ins := qb.Insert("lesson_summaries").Columns(append([]string{"token"}, summaryColumns...)...)
		for i, s := range l.Summaries {
			rating, _ := s.Rating.Value()
			ins = ins.Values(l.Token, i, s.SessionID, toUnix(s.StartTime), s.DurationMinutes, rating, nullFloat(s.Score))
		}
		query, args, err := ins.ToSql()
		if err != nil {
			return fmt.Errorf("build summary insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert summaries: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func ratingFromInt(n int) lessons.Rating {
	r, err := lessons.NewRating(n)
	if err != nil {
		return lessons.NotRated
	}
	return r
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

// Verify interface compliance.
var _ lessons.Store = (*LessonRepo)(nil)
