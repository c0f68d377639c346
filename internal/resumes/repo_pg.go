package resumes

import (
	"context"
	"database/sql"

	"resume-tailor/internal/shared/storage/db"
)

// PGRepo implements Repo using Postgres. Each statement runs in a user-scoped
// transaction so the row-level security policy applies on top of the
// explicit user_id filter.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a record.
func (r *PGRepo) Create(ctx context.Context, rec Record) error {
	const query = `
INSERT INTO resumes (
    id, user_id, resume_name, original_pdf_url, tailored_pdf_url, tailored_tex_url, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	return db.WithUserScope(ctx, r.DB, rec.UserID, func(q db.Querier) error {
		_, err := q.ExecContext(ctx, query,
			rec.ID,
			rec.UserID,
			rec.ResumeName,
			nullString(rec.OriginalPDFURL),
			rec.TailoredPDFURL,
			rec.TailoredTexURL,
			rec.CreatedAt,
		)
		return err
	})
}

// ListByUser lists the user's records ordered newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string) ([]Record, error) {
	const query = `
SELECT id, user_id, resume_name, original_pdf_url, tailored_pdf_url, tailored_tex_url, created_at
FROM resumes
WHERE user_id = $1
ORDER BY created_at DESC`

	out := make([]Record, 0)
	err := db.WithUserScope(ctx, r.DB, userID, func(q db.Querier) error {
		rows, err := q.QueryContext(ctx, query, userID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var rec Record
			var original sql.NullString
			if err := rows.Scan(
				&rec.ID,
				&rec.UserID,
				&rec.ResumeName,
				&original,
				&rec.TailoredPDFURL,
				&rec.TailoredTexURL,
				&rec.CreatedAt,
			); err != nil {
				return err
			}
			if original.Valid {
				v := original.String
				rec.OriginalPDFURL = &v
			}
			out = append(out, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a record by id and owner. Zero affected rows means the
// record does not exist or belongs to someone else.
func (r *PGRepo) Delete(ctx context.Context, userID, id string) error {
	const query = `DELETE FROM resumes WHERE id = $1 AND user_id = $2`
	return db.WithUserScope(ctx, r.DB, userID, func(q db.Querier) error {
		res, err := q.ExecContext(ctx, query, id, userID)
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

// DeleteAllForUser removes every record owned by userID.
func (r *PGRepo) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	const query = `DELETE FROM resumes WHERE user_id = $1`
	var n int64
	err := db.WithUserScope(ctx, r.DB, userID, func(q db.Querier) error {
		res, err := q.ExecContext(ctx, query, userID)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	return n, err
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

var _ Repo = (*PGRepo)(nil)
