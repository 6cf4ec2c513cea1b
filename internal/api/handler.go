// Package api provides the JSON HTTP adapter over lessons, sessions and
// analytics.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/abhisek/lessonforge/internal/analytics"
	"github.com/abhisek/lessonforge/internal/lessons"
	"github.com/abhisek/lessonforge/internal/session"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Handler serves the /api routes.
type Handler struct {
	registry  *lessons.Registry
	sessions  *session.Manager
	analytics *analytics.Service
	logger    *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(registry *lessons.Registry, sessions *session.Manager, reports *analytics.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		registry:  registry,
		sessions:  sessions,
		analytics: reports,
		logger:    logger,
	}
}

// NewRouter returns a chi router with the standard middleware stack, the
// /health heartbeat and the /api routes.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes registers the /api routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/drafts", h.CreateDraft)
		r.Get("/drafts/{id}", h.GetDraft)
		r.Post("/drafts/{id}/feedback", h.Feedback)
		r.Post("/drafts/{id}/finalize", h.Finalize)

		r.Get("/lessons/{token}", h.GetLesson)
		r.Get("/lessons/{token}/analytics", h.Analytics)

		r.Post("/sessions", h.StartSession)
		r.Get("/sessions/{id}", h.GetSession)
		r.Post("/sessions/{id}/turns", h.Turn)
		r.Post("/sessions/{id}/score", h.RecordScore)
		r.Put("/sessions/{id}/step", h.SetStep)
		r.Post("/sessions/{id}/complete", h.Complete)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// statusFor maps core errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, lessons.ErrInvalidToken),
		errors.Is(err, lessons.ErrDraftNotFound),
		errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, lessons.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrSessionClosed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status. Internal errors are logged and
// their detail withheld from the client.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			"method", r.Method, "path", r.URL.Path,
			"request_id", chiMiddleware.GetReqID(r.Context()), "error", err)
		Error(w, status, "internal error")
		return
	}
	Error(w, status, err.Error())
}

// decode reads a JSON body into v. Malformed bodies are invalid input.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", lessons.ErrInvalidInput, err)
	}
	return nil
}
