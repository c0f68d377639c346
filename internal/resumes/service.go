package resumes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service contains business logic for resume records.
type Service struct {
	Repo Repo
	Now  func() time.Time
}

// Create validates input and stores a new record for userID.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (Record, error) {
	if userID == "" {
		return Record{}, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	in.ResumeName = strings.TrimSpace(in.ResumeName)
	in.TailoredPDFURL = strings.TrimSpace(in.TailoredPDFURL)
	in.TailoredTexURL = strings.TrimSpace(in.TailoredTexURL)
	if in.ResumeName == "" || in.TailoredPDFURL == "" || in.TailoredTexURL == "" {
		return Record{}, fmt.Errorf("%w: missing required fields", ErrInvalidInput)
	}
	if in.OriginalPDFURL != nil && strings.TrimSpace(*in.OriginalPDFURL) == "" {
		in.OriginalPDFURL = nil
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	rec := Record{
		ID:             uuid.NewString(),
		UserID:         userID,
		ResumeName:     in.ResumeName,
		OriginalPDFURL: in.OriginalPDFURL,
		TailoredPDFURL: in.TailoredPDFURL,
		TailoredTexURL: in.TailoredTexURL,
		CreatedAt:      now().UTC(),
	}
	if err := s.Repo.Create(ctx, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// List returns the user's records newest-first.
func (s *Service) List(ctx context.Context, userID string) ([]Record, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	return s.Repo.ListByUser(ctx, userID)
}

// Delete removes a record the user owns.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if userID == "" || strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: id required", ErrInvalidInput)
	}
	return s.Repo.Delete(ctx, userID, id)
}

// DeleteAll removes every record the user owns.
func (s *Service) DeleteAll(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	return s.Repo.DeleteAllForUser(ctx, userID)
}
