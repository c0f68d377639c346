package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"resume-tailor/internal/account"
	"resume-tailor/internal/auth"
	"resume-tailor/internal/dashboard"
	"resume-tailor/internal/documents"
	"resume-tailor/internal/handoff"
	"resume-tailor/internal/identity"
	"resume-tailor/internal/jobs"
	"resume-tailor/internal/poller"
	"resume-tailor/internal/resumes"
	"resume-tailor/internal/services/health"
	"resume-tailor/internal/shared/config"
	"resume-tailor/internal/shared/server"
	"resume-tailor/internal/shared/server/middleware"
	"resume-tailor/internal/shared/storage/db"
	"resume-tailor/internal/shared/storage/object"
	localstore "resume-tailor/internal/shared/storage/object/local"
	miniostore "resume-tailor/internal/shared/storage/object/minio"
	s3store "resume-tailor/internal/shared/storage/object/s3"
	"resume-tailor/internal/uploads"
	"resume-tailor/internal/users"
)

const devJWTSecret = "resume-tailor-dev-secret"

// App holds shared dependencies and the wired router.
type App struct {
	Config   config.Config
	Router   *gin.Engine
	DB       *sql.DB
	Store    object.ObjectStore
	Identity identity.Provider
	Handoff  *handoff.MemoryStore
	Jobs     *jobs.Client
	Poller   *poller.Poller

	ResumesService *resumes.Service
	UsersService   *users.Service
	AccountService *account.Service
}

// Build prepares every dependency and wires the routes.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	idp, jwtSecret, err := buildIdentity(cfg)
	if err != nil {
		return nil, err
	}

	jobClient := jobs.NewClient(cfg.JobBackend.URL, cfg.JobBackend.Timeout, nil)
	app := &App{
		Config:   cfg,
		DB:       sqlDB,
		Store:    store,
		Identity: idp,
		Handoff:  handoff.NewMemoryStore(handoff.DefaultIdleTTL, nil),
		Jobs:     jobClient,
		Poller:   poller.New(jobClient, poller.Options{}),
	}

	var resumeRepo resumes.Repo
	var userRepo users.Repo
	if sqlDB != nil {
		resumeRepo = &resumes.PGRepo{DB: sqlDB}
		userRepo = &users.PGRepo{DB: sqlDB}
	} else {
		resumeRepo = resumes.NewMemoryRepo()
		userRepo = users.NewMemoryRepo()
	}
	app.ResumesService = &resumes.Service{Repo: resumeRepo}
	app.UsersService = users.NewService(userRepo, idp, store)
	app.AccountService = account.NewService(app.ResumesService, app.UsersService, idp)

	secure := cfg.SecureCookies()
	docSvc := documents.NewService(store)
	authSvc := auth.NewService(idp, secure)
	authSvc.DefaultProvider = cfg.Identity.OAuthProvider
	app.Router = server.NewRouter(server.RouterDeps{
		Config:    cfg,
		Sessions:  &identity.Resolver{Provider: idp, JWTSecret: jwtSecret},
		Health:    health.NewService(sqlDB, cfg.JobBackend.URL),
		Auth:      authSvc,
		Jobs:      jobs.NewHandler(jobClient),
		Resumes:   resumes.NewHandler(app.ResumesService, resumes.NewDownloader(cfg.JobBackend.Timeout, cfg.PublicStoreBaseURL, cfg.JobBackend.URL)),
		Users:     users.NewHandler(app.UsersService, secure),
		Account:   account.NewHandler(app.AccountService, secure),
		Documents: documents.NewHandler(docSvc),
		Uploads:   uploads.NewHandler(store),
		Dashboard: dashboard.NewHandler(jobClient, app.Poller, app.Handoff, secure),
	})
	if app.Router == nil {
		return nil, errors.New("failed to initialize router")
	}
	return app, nil
}

// SweepHandoff drops idle handoff sessions every interval until ctx is done.
func (a *App) SweepHandoff(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Handoff.Sweep()
		}
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if cfg.IsDevLike() {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.AWSRegion) == "" || strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires AWS_REGION and S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID, cfg.PublicStoreBaseURL)
	case "minio":
		return miniostore.New(ctx, miniostore.Options{
			Endpoint:   cfg.Minio.Endpoint,
			AccessKey:  cfg.Minio.AccessKey,
			SecretKey:  cfg.Minio.SecretKey,
			Bucket:     cfg.Minio.Bucket,
			UseSSL:     cfg.Minio.UseSSL,
			PublicBase: cfg.PublicStoreBaseURL,
		})
	default:
		return localstore.New(cfg.LocalStoreDir, cfg.PublicStoreBaseURL), nil
	}
}

// buildIdentity returns the hosted provider, or the in-memory one in dev when
// no provider URL is configured. The returned secret verifies access tokens
// locally; nil means every token is checked remotely.
func buildIdentity(cfg config.Config) (identity.Provider, []byte, error) {
	if strings.TrimSpace(cfg.Identity.URL) == "" {
		if !cfg.IsDevLike() {
			return nil, nil, fmt.Errorf("IDP_URL is required")
		}
		secret := []byte(cfg.Identity.JWTSecret)
		if len(secret) == 0 {
			secret = []byte(devJWTSecret)
		}
		mem := identity.NewMemoryProvider(secret, nil)
		if cfg.Identity.DevUserEmail != "" && cfg.Identity.DevUserPass != "" {
			if _, err := mem.CreateUser(cfg.Identity.DevUserEmail, cfg.Identity.DevUserPass); err != nil {
				return nil, nil, fmt.Errorf("seed dev user: %w", err)
			}
		}
		log.Printf("bootstrap: IDP_URL empty; using in-memory identity provider")
		return mem, secret, nil
	}

	provider, err := identity.NewHTTPProvider(identity.HTTPOptions{
		BaseURL:        cfg.Identity.URL,
		AnonKey:        cfg.Identity.AnonKey,
		ServiceRoleKey: cfg.Identity.ServiceRoleKey,
		RedirectURL:    cfg.PublicBaseURL + "/auth/callback",
	})
	if err != nil {
		return nil, nil, err
	}
	var secret []byte
	if cfg.Identity.JWTSecret != "" {
		secret = []byte(cfg.Identity.JWTSecret)
	}
	return provider, secret, nil
}

var _ middleware.SessionResolver = (*identity.Resolver)(nil)
