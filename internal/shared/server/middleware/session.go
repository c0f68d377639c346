package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-tailor/internal/identity"
	"resume-tailor/internal/shared/server/respond"
	"resume-tailor/internal/shared/telemetry"
)

const (
	userIDKey    = "userId"
	userEmailKey = "userEmail"
	sessionKey   = "session"

	landingPath   = "/"
	dashboardPath = "/dashboard"
)

// SessionResolver resolves the cookie token pair into a session.
type SessionResolver interface {
	Resolve(ctx context.Context, access, refresh string) (identity.Session, bool, error)
}

// SessionGate resolves the session from cookies on every request and applies
// the landing/dashboard redirect policy. Rotated tokens are written back
// before the handler runs. Resolution errors are treated as no session.
func SessionGate(resolver SessionResolver, secureCookies bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if c.Request.Method == http.MethodOptions || path == "/auth" || strings.HasPrefix(path, "/auth/") {
			c.Next()
			return
		}

		sess, ok := resolveSession(c, resolver, secureCookies)

		switch {
		case ok && path == landingPath:
			c.Redirect(http.StatusFound, dashboardPath)
			c.Abort()
			return
		case !ok && isDashboardPath(path):
			c.Redirect(http.StatusFound, landingPath)
			c.Abort()
			return
		}

		if ok {
			c.Set(sessionKey, sess)
			c.Set(userIDKey, sess.User.ID)
			c.Set(userEmailKey, sess.User.Email)
		}
		c.Next()
	}
}

func resolveSession(c *gin.Context, resolver SessionResolver, secure bool) (identity.Session, bool) {
	if resolver == nil {
		return identity.Session{}, false
	}
	access, refresh := identity.ReadCookies(c)
	if access == "" && refresh == "" {
		return identity.Session{}, false
	}
	sess, refreshed, err := resolver.Resolve(c.Request.Context(), access, refresh)
	if err != nil {
		if !errors.Is(err, identity.ErrNoSession) {
			telemetry.Warn("session.resolve_failed", map[string]any{
				"request_id": RequestIDFromContext(c),
				"error":      err,
			})
		}
		return identity.Session{}, false
	}
	if refreshed {
		identity.WriteCookies(c, sess, secure)
	}
	return sess, true
}

func isDashboardPath(path string) bool {
	return path == dashboardPath || strings.HasPrefix(path, dashboardPath+"/")
}

// RequireSession rejects requests the gate did not attach a session to.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		if _, ok := SessionFromContext(c); !ok {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid session", nil)
			return
		}
		c.Next()
	}
}

// SessionFromContext returns the session resolved by SessionGate.
func SessionFromContext(c *gin.Context) (identity.Session, bool) {
	if c == nil {
		return identity.Session{}, false
	}
	val, ok := c.Get(sessionKey)
	if !ok {
		return identity.Session{}, false
	}
	sess, ok := val.(identity.Session)
	return sess, ok && sess.User.ID != ""
}

// UserIDFromContext fetches the user ID set by the session gate.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userIDKey)
}

// UserEmailFromContext fetches the user email set by the session gate.
func UserEmailFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userEmailKey)
}
