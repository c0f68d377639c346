package identity

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Resolver turns the token pair carried by a request into a Session.
// With JWTSecret set, access tokens are verified locally; otherwise the
// provider is asked.
type Resolver struct {
	Provider  Provider
	JWTSecret []byte
	Now       func() time.Time
}

// Resolve validates access, falling back to a refresh when the access token
// is missing, expired or rejected. refreshed reports whether the returned
// session carries a new token pair that must be written back to the client.
func (r *Resolver) Resolve(ctx context.Context, access, refresh string) (Session, bool, error) {
	access = strings.TrimSpace(access)
	refresh = strings.TrimSpace(refresh)
	if access == "" && refresh == "" {
		return Session{}, false, ErrNoSession
	}

	if access != "" {
		user, expiresAt, err := r.verify(ctx, access)
		if err == nil {
			return Session{AccessToken: access, RefreshToken: refresh, ExpiresAt: expiresAt, User: user}, false, nil
		}
		if !errors.Is(err, ErrTokenExpired) && !errors.Is(err, ErrInvalidToken) {
			return Session{}, false, err
		}
	}

	if refresh == "" || r.Provider == nil {
		return Session{}, false, ErrNoSession
	}
	sess, err := r.Provider.Refresh(ctx, refresh)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrNoSession) {
			return Session{}, false, ErrNoSession
		}
		return Session{}, false, err
	}
	return sess, true, nil
}

func (r *Resolver) verify(ctx context.Context, access string) (User, time.Time, error) {
	if len(r.JWTSecret) > 0 {
		claims, err := ParseAccessToken(access, r.JWTSecret, r.Now)
		if err != nil {
			return User{}, time.Time{}, err
		}
		var exp time.Time
		if claims.ExpiresAt != nil {
			exp = claims.ExpiresAt.Time
		}
		return claims.user(), exp, nil
	}
	if r.Provider == nil {
		return User{}, time.Time{}, ErrNotConfigured
	}
	user, err := r.Provider.GetUser(ctx, access)
	return user, time.Time{}, err
}
