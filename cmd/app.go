package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/abhisek/lessonforge/internal/analytics"
	"github.com/abhisek/lessonforge/internal/lessons"
	"github.com/abhisek/lessonforge/internal/llm"
	"github.com/abhisek/lessonforge/internal/plan"
	"github.com/abhisek/lessonforge/internal/session"
	"github.com/abhisek/lessonforge/internal/store"
)

// app holds the wired components shared by the commands.
type app struct {
	store    *store.Store // nil with the memory driver
	recorder llm.EventRecorder

	prober   *llm.Prober
	client   *llm.Client
	registry *lessons.Registry
	manager  *session.Manager
	reports  *analytics.Service
}

// openApp opens storage and builds the core components. The generation
// client is built and probed only when withLLM is set.
func openApp(ctx context.Context, withLLM bool) (*app, error) {
	a := &app{}

	var (
		lessonStore  lessons.Store
		sessionStore session.Store
	)
	switch cfg.Database.Driver {
	case "memory":
		lessonStore = lessons.NewMemoryStore()
		sessionStore = session.NewMemoryStore()
	default:
		dbPath, err := resolveDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve DB path: %w", err)
		}
		st, err := store.Open(dbPath)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.store = st
		a.recorder = st.EventRepo()
		lessonStore = st.LessonRepo()
		sessionStore = st.SessionRepo()
	}

	var (
		planner lessons.Planner
		gen     session.Generator
	)
	if withLLM {
		llmCfg := cfg.LLMSettings()
		a.prober = llm.NewProber(llmCfg.ProbeSettings(), llm.NewFactory(llmCfg, a.recorder, logger), logger)
		a.client = llm.NewClient(ctx, a.prober, llm.ClientConfig{
			Retry:        llmCfg.Retry,
			ReprobeAfter: llmCfg.ReprobeAfter,
		}, logger)
		planner = plan.NewPlanner(a.client, cfg.PlanSettings(), logger)
		gen = a.client
	}

	classifier, _ := session.ClassifierByName(cfg.Session.Classifier)

	a.registry = lessons.NewRegistry(lessonStore, planner, logger)
	a.manager = session.NewManager(sessionStore, a.registry, gen, classifier, cfg.SessionSettings(), logger)
	a.reports = analytics.NewService(a.registry)
	return a, nil
}

// requireStore fails for commands that only make sense with SQLite.
func (a *app) requireStore() error {
	if a.store == nil {
		return errors.New("this command needs the sqlite database driver")
	}
	return nil
}

func (a *app) Close() error {
	err := a.manager.Close()
	if a.store != nil {
		err = errors.Join(err, a.store.Close())
	}
	return err
}
