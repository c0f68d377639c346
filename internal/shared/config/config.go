package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds application configuration.
type Config struct {
	Port            string   `env:"PORT" envDefault:"8080"`
	Env             string   `env:"ENV" envDefault:"dev"`
	CORSAllowOrigin []string `env:"CORS_ALLOW_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
	PublicBaseURL   string   `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
	DatabaseURL     string   `env:"DATABASE_URL"`

	JobBackend JobBackend `envPrefix:"JOB_BACKEND_"`
	Identity   Identity   `envPrefix:"IDP_"`

	ObjectStoreType    string `env:"OBJECT_STORE" envDefault:"local"`
	LocalStoreDir      string `env:"LOCAL_STORE_DIR" envDefault:"./data"`
	PublicStoreBaseURL string `env:"PUBLIC_STORE_BASE_URL"`
	AWSRegion          string `env:"AWS_REGION"`
	S3Bucket           string `env:"S3_BUCKET"`
	S3Prefix           string `env:"S3_PREFIX"`
	SSEKMSKeyID        string `env:"SSE_KMS_KEY_ID"`
	Minio              Minio  `envPrefix:"MINIO_"`
}

// JobBackend points at the external tailoring service.
type JobBackend struct {
	URL     string        `env:"URL" envDefault:"http://localhost:5000"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

// Identity configures the hosted identity provider. ServiceRoleKey is
// server-only and must never be rendered into a response.
type Identity struct {
	URL            string `env:"URL"`
	AnonKey        string `env:"ANON_KEY"`
	JWTSecret      string `env:"JWT_SECRET"`
	ServiceRoleKey string `env:"SERVICE_ROLE_KEY"`
	OAuthProvider  string `env:"OAUTH_PROVIDER" envDefault:"google"`
	DevUserEmail   string `env:"DEV_USER_EMAIL"`
	DevUserPass    string `env:"DEV_USER_PASSWORD"`
}

// Minio holds MinIO connection parameters.
type Minio struct {
	Endpoint  string `env:"ENDPOINT" envDefault:"localhost:9000"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Bucket    string `env:"BUCKET_NAME" envDefault:"resume-tailor"`
	UseSSL    bool   `env:"USE_SSL" envDefault:"false"`
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.Env = normalizeEnv(cfg.Env)
	cfg.ObjectStoreType = normalizeStoreType(cfg.ObjectStoreType)
	cfg.CORSAllowOrigin = trimAll(cfg.CORSAllowOrigin)
	cfg.PublicBaseURL = strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")
	if cfg.PublicStoreBaseURL == "" && cfg.ObjectStoreType == "local" {
		cfg.PublicStoreBaseURL = cfg.PublicBaseURL + "/files"
	}

	if cfg.Env == "production" {
		if cfg.DatabaseURL == "" {
			log.Printf("DATABASE_URL is required in production")
		}
		if cfg.Identity.URL == "" {
			return Config{}, fmt.Errorf("IDP_URL is required in production")
		}
	}
	return cfg, nil
}

// IsDevLike reports whether the environment allows in-memory fallbacks.
func (c Config) IsDevLike() bool {
	switch c.Env {
	case "dev", "local":
		return true
	default:
		return false
	}
}

// SecureCookies reports whether session cookies must carry the Secure flag.
func (c Config) SecureCookies() bool {
	return c.Env == "production" || c.Env == "staging"
}

func trimAll(values []string) []string {
	var out []string
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "minio":
		return "minio"
	default:
		return "local"
	}
}
