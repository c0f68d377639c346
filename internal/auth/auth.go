// Package auth serves the browser sign-in flows. Tokens come from the
// identity provider and live only in HttpOnly cookies.
package auth

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"resume-tailor/internal/identity"
	"resume-tailor/internal/shared/server/respond"
	"resume-tailor/internal/shared/telemetry"
)

const (
	stateCookie    = "tailor_oauth_state"
	verifierCookie = "tailor_oauth_verifier"
	flowCookiePath = "/auth"
	flowCookieAge  = 600

	defaultOAuthProvider = "google"
	dashboardPath        = "/dashboard"
	landingPath          = "/"
)

var providerName = regexp.MustCompile(`^[a-z0-9_-]{1,32}$`)

// Service handles sign-in, the OAuth callback and sign-out.
type Service struct {
	Identity        identity.Provider
	SecureCookies   bool
	// DefaultProvider is used when /auth/sign-in has no provider query.
	DefaultProvider string
}

func NewService(idp identity.Provider, secureCookies bool) *Service {
	return &Service{Identity: idp, SecureCookies: secureCookies}
}

// RegisterRoutes attaches the /auth routes. They run without a session.
func (s *Service) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/auth/sign-in", s.signIn)
	rg.GET("/auth/callback", s.callback)
	rg.POST("/auth/password", s.passwordSignIn)
}

// RegisterAPIRoutes attaches the logout route under /api.
func (s *Service) RegisterAPIRoutes(rg *gin.RouterGroup) {
	rg.POST("/logout", s.logout)
}

func (s *Service) signIn(c *gin.Context) {
	fallback := s.DefaultProvider
	if fallback == "" {
		fallback = defaultOAuthProvider
	}
	provider := strings.ToLower(strings.TrimSpace(c.DefaultQuery("provider", fallback)))
	if !providerName.MatchString(provider) {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid provider", nil)
		return
	}

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	target := s.Identity.AuthorizeURL(provider, state, verifier)
	if target == "" {
		respond.Error(c, http.StatusNotImplemented, "auth_not_configured", "OAuth sign-in not configured", nil)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, flowCookieAge, flowCookiePath, "", s.SecureCookies, true)
	c.SetCookie(verifierCookie, verifier, flowCookieAge, flowCookiePath, "", s.SecureCookies, true)
	c.Redirect(http.StatusFound, target)
}

func (s *Service) callback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.Redirect(http.StatusFound, landingPath)
		return
	}

	wantState, _ := c.Cookie(stateCookie)
	verifier, _ := c.Cookie(verifierCookie)
	s.clearFlowCookies(c)

	if wantState == "" || c.Query("state") != wantState {
		telemetry.Warn("oauth state mismatch", map[string]any{"request_id": c.GetString("requestId")})
		c.Redirect(http.StatusFound, landingPath)
		return
	}

	sess, err := s.Identity.ExchangeCode(c.Request.Context(), code, verifier)
	if err != nil {
		telemetry.Warn("oauth code exchange failed", map[string]any{
			"request_id": c.GetString("requestId"),
			"error":      err.Error(),
		})
		c.Redirect(http.StatusFound, landingPath)
		return
	}

	identity.WriteCookies(c, sess, s.SecureCookies)
	c.Redirect(http.StatusFound, dashboardPath)
}

type passwordRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Service) passwordSignIn(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid json body", nil)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Email and password are required", nil)
		return
	}

	sess, err := s.Identity.SignInWithPassword(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Invalid email or password", nil)
			return
		}
		telemetry.Error("password sign-in failed", map[string]any{"error": err.Error()})
		respond.Error(c, http.StatusBadGateway, "upstream_error", "Sign-in failed", nil)
		return
	}

	identity.WriteCookies(c, sess, s.SecureCookies)
	respond.OK(c, gin.H{"user": sess.User, "redirect": dashboardPath})
}

// logout revokes the session at the provider when possible, then always
// clears the cookies.
func (s *Service) logout(c *gin.Context) {
	access, _ := identity.ReadCookies(c)
	if access != "" {
		if err := s.Identity.SignOut(c.Request.Context(), access); err != nil {
			telemetry.Warn("provider sign-out failed", map[string]any{
				"request_id": c.GetString("requestId"),
				"error":      err.Error(),
			})
		}
	}
	identity.ClearCookies(c, s.SecureCookies)
	c.Redirect(http.StatusSeeOther, landingPath)
}

func (s *Service) clearFlowCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, "", -1, flowCookiePath, "", s.SecureCookies, true)
	c.SetCookie(verifierCookie, "", -1, flowCookiePath, "", s.SecureCookies, true)
}
