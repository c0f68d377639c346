package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-tailor/internal/account"
	"resume-tailor/internal/auth"
	"resume-tailor/internal/dashboard"
	"resume-tailor/internal/documents"
	"resume-tailor/internal/jobs"
	"resume-tailor/internal/resumes"
	"resume-tailor/internal/services/health"
	"resume-tailor/internal/shared/config"
	"resume-tailor/internal/shared/metrics"
	"resume-tailor/internal/shared/server/middleware"
	"resume-tailor/internal/shared/server/respond"
	"resume-tailor/internal/uploads"
	"resume-tailor/internal/users"
)

// RouterDeps carries everything NewRouter mounts. Nil handlers are skipped.
type RouterDeps struct {
	Config      config.Config
	Sessions    middleware.SessionResolver
	RateLimiter *middleware.RateLimiter
	Health      *health.Service
	Auth        *auth.Service
	Jobs        *jobs.Handler
	Resumes     *resumes.Handler
	Users       *users.Handler
	Account     *account.Handler
	Documents   *documents.Handler
	Uploads     *uploads.Handler
	Dashboard   *dashboard.Handler
}

var rateLimitRules = map[string]middleware.RateLimitRule{
	"DEFAULT":               {Rate: 10, Burst: 30},
	middleware.PollingGroup: {Rate: 2, Burst: 10},
}

var rateLimitGroups = map[string]string{
	"GET /api/job-status": middleware.PollingGroup,
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	secure := deps.Config.SecureCookies()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)
	if deps.Sessions != nil {
		r.Use(middleware.SessionGate(deps.Sessions, secure))
	}
	r.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Rules:    rateLimitRules,
		GroupFor: middleware.RouteGroups(rateLimitGroups),
		Limiter:  deps.RateLimiter,
	}))

	r.GET("/", landing)
	r.GET("/metrics", metrics.Handler())
	if deps.Config.ObjectStoreType == "local" && deps.Config.LocalStoreDir != "" {
		r.Static("/files", deps.Config.LocalStoreDir)
	}

	root := r.Group("")
	if deps.Auth != nil {
		deps.Auth.RegisterRoutes(root)
	}
	if deps.Dashboard != nil {
		deps.Dashboard.RegisterRoutes(root.Group("", middleware.RequireSession()))
	}

	api := r.Group("/api")
	if deps.Health != nil {
		api.GET("/health", deps.Health.Handler())
	} else {
		api.GET("/health", func(c *gin.Context) {
			respond.JSON(c, http.StatusOK, gin.H{"ok": true})
		})
	}
	if deps.Auth != nil {
		deps.Auth.RegisterAPIRoutes(api)
	}

	protected := api.Group("", middleware.RequireSession())
	if deps.Jobs != nil {
		deps.Jobs.RegisterRoutes(protected)
	}
	if deps.Resumes != nil {
		deps.Resumes.RegisterRoutes(protected)
	}
	if deps.Users != nil {
		deps.Users.RegisterRoutes(protected)
	}
	if deps.Account != nil {
		deps.Account.RegisterRoutes(protected)
	}
	if deps.Documents != nil {
		deps.Documents.RegisterRoutes(protected)
	}
	if deps.Uploads != nil {
		deps.Uploads.RegisterRoutes(protected)
	}

	return r
}

func landing(c *gin.Context) {
	respond.OK(c, gin.H{
		"app":      "resume-tailor",
		"signIn":   "/auth/sign-in",
		"password": "/auth/password",
	})
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
