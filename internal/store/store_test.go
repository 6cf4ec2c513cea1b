package store

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/lessonforge/internal/lessons"
	"github.com/abhisek/lessonforge/internal/llm"
	"github.com/abhisek/lessonforge/internal/plan"
	"github.com/abhisek/lessonforge/internal/session"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL mode falls back to "memory" for in-memory databases.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		if err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got); err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func testLesson() *lessons.Lesson {
	four, _ := lessons.NewRating(4)
	score := 92.5
	return &lessons.Lesson{
		Token:     "5d1c7a2e-0000-4000-8000-000000000001",
		Topic:     "Photosynthesis",
		Plan:      plan.Fallback("Photosynthesis"),
		CreatedAt: time.Date(2026, 3, 1, 9, 30, 0, 123456789, time.UTC),
		Summaries: []lessons.SessionSummary{
			{
				SessionID:       "sess-1",
				StartTime:       time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
				DurationMinutes: 14,
				Rating:          four,
				Score:           &score,
			},
			{
				SessionID: "sess-2",
				StartTime: time.Date(2026, 3, 3, 11, 0, 0, 0, time.UTC),
				Rating:    lessons.NotRated,
			},
		},
	}
}

func TestLessonRepo_RoundTrip(t *testing.T) {
	repo := openTestStore(t).LessonRepo()
	ctx := context.Background()

	want := testLesson()
	require.NoError(t, repo.Put(ctx, want))

	got, err := repo.Get(ctx, want.Token)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLessonRepo_PutReplacesSummaries(t *testing.T) {
	repo := openTestStore(t).LessonRepo()
	ctx := context.Background()

	l := testLesson()
	require.NoError(t, repo.Put(ctx, l))

	l.Summaries = append(l.Summaries, lessons.SessionSummary{
		SessionID: "sess-3",
		StartTime: time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC),
		Rating:    lessons.NotRated,
	})
	require.NoError(t, repo.Put(ctx, l))

	got, err := repo.Get(ctx, l.Token)
	require.NoError(t, err)
	require.Len(t, got.Summaries, 3)
	assert.Equal(t, "sess-3", got.Summaries[2].SessionID)
}

func TestLessonRepo_UnknownToken(t *testing.T) {
	repo := openTestStore(t).LessonRepo()
	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, lessons.ErrInvalidToken)
}

func TestLessonRepo_BacksRegistry(t *testing.T) {
	repo := openTestStore(t).LessonRepo()
	ctx := context.Background()

	l := testLesson()
	l.Summaries = []lessons.SessionSummary{}
	require.NoError(t, repo.Put(ctx, l))

	reg := lessons.NewRegistry(repo, nil, nil)
	require.NoError(t, reg.AppendSessionSummary(ctx, l.Token, lessons.SessionSummary{SessionID: "s", Rating: lessons.NotRated}))

	got, err := reg.Get(ctx, l.Token)
	require.NoError(t, err)
	require.Len(t, got.Summaries, 1)
}

func testSession() *session.Session {
	end := time.Date(2026, 3, 2, 10, 20, 0, 0, time.UTC)
	score := 70.0
	three, _ := lessons.NewRating(3)
	return &session.Session{
		ID:          "sess-1",
		LessonToken: "tok",
		StartTime:   time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		EndTime:     &end,
		Step:        session.QuizStep,
		WorkflowLen: 5,
		Turns: []session.Turn{
			{Speaker: session.SpeakerTutor, Text: "Welcome!", At: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)},
			{Speaker: session.SpeakerStudent, Text: "hi", At: time.Date(2026, 3, 2, 10, 1, 0, 0, time.UTC)},
		},
		QuizResponses: []string{"chlorophyll"},
		Score:         &score,
		Rating:        &three,
		Closed:        true,
		UpdatedAt:     end,
	}
}

func TestSessionRepo_RoundTrip(t *testing.T) {
	repo := openTestStore(t).SessionRepo()
	ctx := context.Background()

	want := testSession()
	require.NoError(t, repo.Put(ctx, want))

	got, err := repo.Get(ctx, want.ID)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	open := &session.Session{
		ID:          "sess-open",
		LessonToken: "tok",
		StartTime:   time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		WorkflowLen: 3,
		UpdatedAt:   time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Put(ctx, open))
	got, err = repo.Get(ctx, open.ID)
	require.NoError(t, err)
	assert.Nil(t, got.EndTime)
	assert.Nil(t, got.Score)
	assert.Nil(t, got.Rating)
	assert.Empty(t, got.Turns)
}

func TestSessionRepo_NotFoundAndDelete(t *testing.T) {
	repo := openTestStore(t).SessionRepo()
	ctx := context.Background()

	_, err := repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, session.ErrNotFound)

	require.NoError(t, repo.Put(ctx, testSession()))
	require.NoError(t, repo.Delete(ctx, "sess-1"))
	_, err = repo.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, session.ErrNotFound)
	assert.NoError(t, repo.Delete(ctx, "sess-1"))
}

func TestSessionRepo_Expired(t *testing.T) {
	repo := openTestStore(t).SessionRepo()
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	closedOld := testSession()
	closedOld.ID = "closed-old"
	end := base
	closedOld.EndTime = &end

	closedNew := testSession()
	closedNew.ID = "closed-new"
	later := base.Add(10 * time.Hour)
	closedNew.EndTime = &later

	idle := &session.Session{ID: "idle", StartTime: base, UpdatedAt: base}
	active := &session.Session{ID: "active", StartTime: base, UpdatedAt: base.Add(10 * time.Hour)}

	for _, s := range []*session.Session{closedOld, closedNew, idle, active} {
		require.NoError(t, repo.Put(ctx, s))
	}

	ids, err := repo.Expired(ctx, base.Add(time.Hour), base.Add(time.Hour))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"closed-old", "idle"}, ids)
}

func TestSessionRepo_BacksManager(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	lessonRepo := s.LessonRepo()
	l := testLesson()
	require.NoError(t, lessonRepo.Put(ctx, l))

	reg := lessons.NewRegistry(lessonRepo, nil, nil)
	gen := generatorFunc(func(context.Context, llm.Request) llm.Result {
		return llm.Result{Text: "Here's a practice quiz!"}
	})
	mgr := session.NewManager(s.SessionRepo(), reg, gen, nil, session.DefaultConfig(), nil)

	sess, err := mgr.Start(ctx, l.Token)
	require.NoError(t, err)

	res, err := mgr.Turn(ctx, sess.ID, "ready")
	require.NoError(t, err)
	assert.Equal(t, session.StateQuizPhase, res.State)

	_, err = mgr.Complete(ctx, sess.ID, lessons.NotRated)
	require.NoError(t, err)

	got, err := reg.Get(ctx, l.Token)
	require.NoError(t, err)
	assert.Len(t, got.Summaries, 3)
}

type generatorFunc func(context.Context, llm.Request) llm.Result

func (f generatorFunc) Generate(ctx context.Context, req llm.Request) llm.Result { return f(ctx, req) }

func TestEventRepo_AppendAndQuery(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	events := []llm.RequestEvent{
		{Provider: "gemini", Model: "gemini-1.5-flash", Purpose: llm.PurposePlan, InputTokens: 100, OutputTokens: 400, LatencyMs: 900, Success: true, RequestBody: "[user]\nTopic: Tides", ResponseBody: "{}"},
		{Provider: "gemini", Model: "gemini-1.5-flash", Purpose: llm.PurposeTutor, InputTokens: 50, OutputTokens: 30, LatencyMs: 300, Success: true},
		{Provider: "hf", Model: "zephyr", Purpose: llm.PurposeTutor, LatencyMs: 100, Success: false, ErrorMessage: "503"},
	}
	for _, e := range events {
		require.NoError(t, repo.AppendLLMRequest(ctx, e))
	}

	all, err := repo.QueryLLMEvents(ctx, QueryOpts{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "zephyr", all[0].Model, "newest first")

	tutor, err := repo.QueryLLMEvents(ctx, QueryOpts{Purpose: llm.PurposeTutor, Limit: 1})
	require.NoError(t, err)
	require.Len(t, tutor, 1)
	assert.False(t, tutor[0].Success)

	first, err := repo.GetLLMEvent(ctx, all[2].ID)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, events[0], first.RequestEvent)

	missing, err := repo.GetLLMEvent(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	byPurpose, err := repo.LLMUsageByPurpose(ctx)
	require.NoError(t, err)
	require.Len(t, byPurpose, 2)
	assert.Equal(t, PurposeUsage{Purpose: llm.PurposePlan, Calls: 1, InputTokens: 100, OutputTokens: 400, AvgLatencyMs: 900}, byPurpose[0])
	assert.Equal(t, PurposeUsage{Purpose: llm.PurposeTutor, Calls: 2, InputTokens: 50, OutputTokens: 30, AvgLatencyMs: 200}, byPurpose[1])

	byModel, err := repo.LLMUsageByModel(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ModelUsage{{Model: "gemini-1.5-flash", Calls: 2, InputTokens: 150, OutputTokens: 430}}, byModel)
}

func TestEventRepo_RecordsThroughLoggingProvider(t *testing.T) {
	repo := openTestStore(t).EventRepo()
	p := llm.WithLogging(llm.NewMockProvider(llm.MockText("ok")), "mock", repo, nil)

	_, err := p.Generate(llm.WithPurpose(context.Background(), llm.PurposeProbe), llm.UserPrompt("", "ping"))
	require.NoError(t, err)

	events, err := repo.QueryLLMEvents(context.Background(), QueryOpts{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, llm.PurposeProbe, events[0].Purpose)
	assert.Equal(t, "ok", events[0].ResponseBody)
}
