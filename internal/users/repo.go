package users

import (
	"context"
	"time"
)

// Repo persists profiles. Every method is scoped to a single user id.
type Repo interface {
	// Ensure returns the profile, creating an empty one if none exists.
	Ensure(ctx context.Context, userID string, now time.Time) (Profile, error)
	Get(ctx context.Context, userID string) (Profile, error)
	UpdateName(ctx context.Context, userID, name string, now time.Time) error
	UpdateProfileURL(ctx context.Context, userID, url string, now time.Time) error
	Delete(ctx context.Context, userID string) error
}
