// Package identity talks to the hosted identity provider and turns its
// tokens into request sessions.
package identity

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoSession means the request carries no usable session.
	ErrNoSession = errors.New("no session")
	// ErrInvalidCredentials is returned when email/password sign-in fails.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned for malformed, forged or revoked tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned for well-formed access tokens past their expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrNotConfigured is returned when an operation needs credentials the server was not given.
	ErrNotConfigured = errors.New("identity provider not configured")
	// ErrUserNotFound is returned by admin operations on unknown users.
	ErrUserNotFound = errors.New("user not found")
)

// User is the identity as the provider reports it.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is a signed-in user plus the provider tokens backing it.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         User
}

// Provider is the hosted identity service. DeleteUser uses the server-only
// service credential; every other call acts on behalf of the user.
type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) (Session, error)
	ExchangeCode(ctx context.Context, code, verifier string) (Session, error)
	Refresh(ctx context.Context, refreshToken string) (Session, error)
	GetUser(ctx context.Context, accessToken string) (User, error)
	UpdatePassword(ctx context.Context, accessToken, newPassword string) error
	SignOut(ctx context.Context, accessToken string) error
	DeleteUser(ctx context.Context, userID string) error
	// AuthorizeURL returns the third-party sign-in URL, or "" when the
	// provider has no browser flow.
	AuthorizeURL(oauthProvider, state, verifier string) string
}
