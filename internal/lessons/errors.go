package lessons

import (
	"errors"

	"github.com/abhisek/lessonforge/internal/plan"
)

var (
	// ErrInvalidToken is returned for an unknown lesson token.
	ErrInvalidToken = errors.New("invalid lesson token")

	// ErrDraftNotFound is returned for an unknown or already finalized draft.
	ErrDraftNotFound = errors.New("draft not found")

	// ErrInvalidInput reports a malformed rating, topic or other value.
	ErrInvalidInput = plan.ErrInvalidInput
)
