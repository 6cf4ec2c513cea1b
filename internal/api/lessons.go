package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type createDraftRequest struct {
	Topic string `json:"topic"`
}

type feedbackRequest struct {
	Feedback string `json:"feedback"`
}

// CreateDraft drafts a lesson plan for a topic.
func (h *Handler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	var req createDraftRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	d, err := h.registry.Create(r.Context(), req.Topic)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, d)
}

// GetDraft returns a draft.
func (h *Handler) GetDraft(w http.ResponseWriter, r *http.Request) {
	d, err := h.registry.Draft(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, d)
}

// Feedback revises or finalizes a draft.
func (h *Handler) Feedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.registry.ApplyFeedback(r.Context(), chi.URLParam(r, "id"), req.Feedback)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, res)
}

// Finalize publishes a draft and returns its access token.
func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	token, err := h.registry.Finalize(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"token": token})
}

// GetLesson returns a finalized lesson.
func (h *Handler) GetLesson(w http.ResponseWriter, r *http.Request) {
	l, err := h.registry.Get(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, l)
}

// Analytics returns the per-lesson session report.
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	report, err := h.analytics.Report(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, report)
}
