package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver

	"resume-tailor/internal/shared/telemetry"
)

// Options controls the connection pool shared by the users and resumes repos.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

var openDB = sql.Open

// DefaultServerOptions suits the API process. Every request holds at most one
// connection for the length of its user-scoped transaction.
func DefaultServerOptions() Options {
	return Options{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxIdleTime: 2 * time.Minute,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     5 * time.Second,
	}
}

// DefaultMigrateOptions suits cmd/migrate, which needs a single connection.
func DefaultMigrateOptions() Options {
	opts := DefaultServerOptions()
	opts.MaxOpenConns = 1
	opts.MaxIdleConns = 1
	return opts
}

// poolEnv holds the optional DB_* overrides. Unset variables stay nil.
type poolEnv struct {
	MaxOpenConns    *int           `env:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns    *int           `env:"DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime *time.Duration `env:"DB_CONN_MAX_LIFETIME"`
	ConnMaxIdleTime *time.Duration `env:"DB_CONN_MAX_IDLE_TIME"`
	PingTimeout     *time.Duration `env:"DB_PING_TIMEOUT"`
}

// OptionsFromEnv overrides defaults with DB_* env vars if present. A malformed
// value is logged and the defaults are kept.
func OptionsFromEnv(defaults Options) Options {
	var over poolEnv
	if err := env.Parse(&over); err != nil {
		telemetry.Warn("db.pool_env_invalid", map[string]any{"error": err.Error()})
		return defaults
	}
	opts := defaults
	if over.MaxOpenConns != nil {
		opts.MaxOpenConns = *over.MaxOpenConns
	}
	if over.MaxIdleConns != nil {
		opts.MaxIdleConns = *over.MaxIdleConns
	}
	if over.ConnMaxLifetime != nil {
		opts.ConnMaxLifetime = *over.ConnMaxLifetime
	}
	if over.ConnMaxIdleTime != nil {
		opts.ConnMaxIdleTime = *over.ConnMaxIdleTime
	}
	if over.PingTimeout != nil {
		opts.PingTimeout = *over.PingTimeout
	}
	return opts
}

// Connect opens a *sql.DB on the pgx driver and verifies connectivity.
func Connect(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := openDB("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	applyOptions(db, opts)

	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if err := Ping(ctx, db, timeout); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	stats := db.Stats()
	telemetry.Info("db.connected", map[string]any{
		"max_open": stats.MaxOpenConnections,
		"open":     stats.OpenConnections,
		"idle":     stats.Idle,
	})
	return db, nil
}

// Ping reports whether the database answers within timeout.
func Ping(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	if db == nil {
		return fmt.Errorf("database not configured")
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return db.PingContext(pingCtx)
}

func applyOptions(db *sql.DB, opts Options) {
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 10
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 5
	}
	if opts.ConnMaxLifetime <= 0 {
		opts.ConnMaxLifetime = time.Hour
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	if opts.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}
}
