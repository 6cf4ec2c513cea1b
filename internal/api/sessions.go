package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/abhisek/lessonforge/internal/lessons"
	"github.com/abhisek/lessonforge/internal/session"
)

type startSessionRequest struct {
	Token string `json:"token"`
}

type turnRequest struct {
	Message string `json:"message"`
}

type scoreRequest struct {
	Score *float64 `json:"score"`
}

type stepRequest struct {
	Step *int `json:"step"`
}

type completeRequest struct {
	Rating *lessons.Rating `json:"rating"`
}

// sessionView adds the derived flow state to a session.
type sessionView struct {
	*session.Session
	State session.State `json:"state"`
}

func viewOf(s *session.Session) sessionView {
	return sessionView{Session: s, State: s.State()}
}

type turnResponse struct {
	Reply    string        `json:"reply"`
	State    session.State `json:"state"`
	Step     int           `json:"step"`
	Degraded bool          `json:"degraded"`
}

// StartSession opens a tutoring session on a lesson token.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	s, err := h.sessions.Start(r.Context(), req.Token)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, viewOf(s))
}

// GetSession returns a session.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, viewOf(s))
}

// Turn sends a student message and returns the tutor's reply.
func (h *Handler) Turn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.sessions.Turn(r.Context(), chi.URLParam(r, "id"), req.Message)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, turnResponse{
		Reply:    res.Reply,
		State:    res.State,
		Step:     res.Session.Step,
		Degraded: res.Degraded,
	})
}

// RecordScore stores the assessment score.
func (h *Handler) RecordScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Score == nil {
		Error(w, http.StatusBadRequest, "score is required")
		return
	}

	s, err := h.sessions.RecordScore(r.Context(), chi.URLParam(r, "id"), *req.Score)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, viewOf(s))
}

// SetStep moves the session's progress cursor.
func (h *Handler) SetStep(w http.ResponseWriter, r *http.Request) {
	var req stepRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Step == nil {
		Error(w, http.StatusBadRequest, "step is required")
		return
	}

	s, err := h.sessions.SetStep(r.Context(), chi.URLParam(r, "id"), *req.Step)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, viewOf(s))
}

// Complete closes the session with the student's rating.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	if req.Rating == nil {
		Error(w, http.StatusBadRequest, `rating is required: 1-5 or "not rated"`)
		return
	}

	summary, err := h.sessions.Complete(r.Context(), chi.URLParam(r, "id"), *req.Rating)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, summary)
}
