package identity

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	AccessCookie  = "sb-access-token"
	RefreshCookie = "sb-refresh-token"

	refreshCookieMaxAge = 60 * 60 * 24 * 30
)

// ReadCookies returns the access and refresh tokens carried by the request.
func ReadCookies(c *gin.Context) (access, refresh string) {
	access, _ = c.Cookie(AccessCookie)
	refresh, _ = c.Cookie(RefreshCookie)
	return access, refresh
}

// WriteCookies stores the session's token pair as HttpOnly cookies.
func WriteCookies(c *gin.Context, s Session, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	accessAge := 3600
	if !s.ExpiresAt.IsZero() {
		if d := int(time.Until(s.ExpiresAt).Seconds()); d > 0 {
			accessAge = d
		}
	}
	c.SetCookie(AccessCookie, s.AccessToken, accessAge, "/", "", secure, true)
	if s.RefreshToken != "" {
		c.SetCookie(RefreshCookie, s.RefreshToken, refreshCookieMaxAge, "/", "", secure, true)
	}
}

// ClearCookies expires both session cookies.
func ClearCookies(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AccessCookie, "", -1, "/", "", secure, true)
	c.SetCookie(RefreshCookie, "", -1, "/", "", secure, true)
}
