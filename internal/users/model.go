package users

import (
	"io"
	"time"
)

// Profile is the per-user record backing the profile page. ID is the
// identity provider's user id.
type Profile struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	ProfileURL string    `json:"profile_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// View is the payload returned by GET /profile.
type View struct {
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	ProfilePicture *string `json:"profilePicture"`
}

// Avatar is an uploaded profile image before validation.
type Avatar struct {
	FileName     string
	DeclaredType string
	Size         int64
	Body         io.Reader
}
