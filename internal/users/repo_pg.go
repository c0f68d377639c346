package users

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"resume-tailor/internal/shared/storage/db"
)

// PGRepo implements Repo on the users table. Statements run inside a
// user-scoped transaction so the users_owner policy applies.
type PGRepo struct {
	DB *sql.DB
}

const selectProfile = `
SELECT id, name, profile_url, created_at, updated_at
FROM users
WHERE id = $1`

func (r *PGRepo) Ensure(ctx context.Context, userID string, now time.Time) (Profile, error) {
	const insert = `
INSERT INTO users (id, name, created_at, updated_at)
VALUES ($1, '', $2, $2)
ON CONFLICT (id) DO NOTHING`
	var p Profile
	err := db.WithUserScope(ctx, r.DB, userID, func(q db.Querier) error {
		if _, err := q.ExecContext(ctx, insert, userID, now); err != nil {
			return err
		}
		var err error
		p, err = scanProfile(q.QueryRowContext(ctx, selectProfile, userID))
		return err
	})
	return p, err
}

func (r *PGRepo) Get(ctx context.Context, userID string) (Profile, error) {
	var p Profile
	err := db.WithUserScope(ctx, r.DB, userID, func(q db.Querier) error {
		var err error
		p, err = scanProfile(q.QueryRowContext(ctx, selectProfile, userID))
		return err
	})
	return p, err
}

func (r *PGRepo) UpdateName(ctx context.Context, userID, name string, now time.Time) error {
	const query = `
INSERT INTO users (id, name, created_at, updated_at)
VALUES ($1, $2, $3, $3)
ON CONFLICT (id) DO UPDATE SET
  name = EXCLUDED.name,
  updated_at = EXCLUDED.updated_at`
	return db.WithUserScope(ctx, r.DB, userID, func(q db.Querier) error {
		_, err := q.ExecContext(ctx, query, userID, name, now)
		return err
	})
}

func (r *PGRepo) UpdateProfileURL(ctx context.Context, userID, url string, now time.Time) error {
	const query = `
INSERT INTO users (id, name, profile_url, created_at, updated_at)
VALUES ($1, '', $2, $3, $3)
ON CONFLICT (id) DO UPDATE SET
  profile_url = EXCLUDED.profile_url,
  updated_at = EXCLUDED.updated_at`
	return db.WithUserScope(ctx, r.DB, userID, func(q db.Querier) error {
		_, err := q.ExecContext(ctx, query, userID, nullableString(url), now)
		return err
	})
}

func (r *PGRepo) Delete(ctx context.Context, userID string) error {
	const query = `DELETE FROM users WHERE id = $1`
	return db.WithUserScope(ctx, r.DB, userID, func(q db.Querier) error {
		res, err := q.ExecContext(ctx, query, userID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func scanProfile(row *sql.Row) (Profile, error) {
	var p Profile
	var profileURL sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &profileURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}
	if profileURL.Valid {
		p.ProfileURL = profileURL.String
	}
	return p, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

var _ Repo = (*PGRepo)(nil)
