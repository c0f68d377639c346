package resumes

import "context"

// Repo defines persistence operations for resume records. Every method is
// scoped to userID.
type Repo interface {
	Create(ctx context.Context, rec Record) error
	ListByUser(ctx context.Context, userID string) ([]Record, error)
	Delete(ctx context.Context, userID, id string) error
	DeleteAllForUser(ctx context.Context, userID string) (int64, error)
}
