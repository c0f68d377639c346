package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrMissingUser is returned when a user-scoped transaction has no user id.
var ErrMissingUser = errors.New("user id required for scoped query")

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithUserScope runs fn inside a transaction where app.user_id is set to
// userID, so row-level security policies only expose that user's rows.
// The setting is transaction-local and disappears on commit or rollback.
func WithUserScope(ctx context.Context, database *sql.DB, userID string, fn func(q Querier) error) error {
	if strings.TrimSpace(userID) == "" {
		return ErrMissingUser
	}
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin scoped tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT set_config('app.user_id', $1, true)`, userID); err != nil {
		return fmt.Errorf("set user scope: %w", err)
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit scoped tx: %w", err)
	}
	return nil
}
