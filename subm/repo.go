package subm

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("submission not found")
var ErrAlreadyExists = errors.New("submission already exists")

// Repo persists submission records. Every mutation touches one record.
type Repo interface {
	Create(ctx context.Context, s Submission) error
	// Get returns ErrNotFound for unknown ids.
	Get(ctx context.Context, id string) (Submission, error)
	List(ctx context.Context, f Filter) ([]Submission, error)
	// SetChecked returns the updated record or ErrNotFound.
	SetChecked(ctx context.Context, id string, checked bool) (Submission, error)
	// Delete returns ErrNotFound for unknown ids.
	Delete(ctx context.Context, id string) error
}
