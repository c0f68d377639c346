// Package handoff carries the outcome of a tailoring job from the loading
// view to the result view. Values are scoped by a browser-session id.
package handoff

import (
	"context"
	"errors"
)

// Keys written per browser session.
const (
	KeyJobID       = "tailor_job_id"
	KeyResult      = "tailoredResult"
	KeyError       = "resultError"
	KeyOriginalURL = "original_resume_url"
	KeyInProgress  = "tailorInProgress"
)

// ErrNotFound is returned by Get for absent keys.
var ErrNotFound = errors.New("handoff key not found")

// Store is a string key/value store partitioned by session id.
type Store interface {
	Get(ctx context.Context, sessionID, key string) (string, error)
	Set(ctx context.Context, sessionID, key, value string) error
	Delete(ctx context.Context, sessionID string, keys ...string) error
}
