package lessons

import (
	"context"
	"fmt"
	"strings"
)

// FinalizeCommand is the feedback text that finalizes a draft.
const FinalizeCommand = "finalize"

// FeedbackResult is the outcome of ApplyFeedback.
type FeedbackResult struct {
	// Draft is the draft after feedback. Nil once finalized.
	Draft *Draft `json:"draft,omitempty"`

	// Token is set when the feedback finalized the draft.
	Token     string `json:"token,omitempty"`
	Finalized bool   `json:"finalized"`

	// Revised is false when the model's revision could not be extracted
	// and the draft was left as it was.
	Revised bool `json:"revised"`
}

// IsFinalizeCommand reports whether feedback asks for finalization.
func IsFinalizeCommand(feedback string) bool {
	return strings.EqualFold(strings.TrimSpace(feedback), FinalizeCommand)
}

// ApplyFeedback finalizes the draft or revises it according to feedback.
// Blank feedback leaves the draft unchanged. Feedback on the same draft is
// applied one call at a time, each revision starting from the previous one.
func (r *Registry) ApplyFeedback(ctx context.Context, draftID, feedback string) (FeedbackResult, error) {
	unlock := r.locks.Lock(draftKey(draftID))
	defer unlock()

	if IsFinalizeCommand(feedback) {
		token, err := r.finalize(ctx, draftID)
		if err != nil {
			return FeedbackResult{}, err
		}
		return FeedbackResult{Token: token, Finalized: true}, nil
	}

	current, err := r.Draft(ctx, draftID)
	if err != nil {
		return FeedbackResult{}, err
	}
	if strings.TrimSpace(feedback) == "" {
		return FeedbackResult{Draft: current}, nil
	}

	revised, ok := r.planner.Revise(ctx, current.Plan, feedback)
	if !ok {
		r.logger.Warn("feedback left draft unchanged", "draft_id", draftID)
		return FeedbackResult{Draft: current}, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	d, exists := r.drafts[draftID]
	if !exists {
		return FeedbackResult{}, fmt.Errorf("%w: %s", ErrDraftNotFound, draftID)
	}
	d.Plan = revised.Clone()
	d.Revisions++
	d.UpdatedAt = r.now()
	d.FellBack = false

	r.logger.Info("draft revised", "draft_id", draftID, "revisions", d.Revisions)
	return FeedbackResult{Draft: d.clone(), Revised: true}, nil
}
