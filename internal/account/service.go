package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"resume-tailor/internal/identity"
	"resume-tailor/internal/shared/telemetry"
)

// RecordDeleter removes every saved resume record the user owns.
type RecordDeleter interface {
	DeleteAll(ctx context.Context, userID string) (int64, error)
}

// ProfileDeleter removes the profile row and its avatar.
type ProfileDeleter interface {
	Delete(ctx context.Context, userID string) error
}

// IdentityDeleter removes the user at the identity provider with the
// server-only service credential.
type IdentityDeleter interface {
	DeleteUser(ctx context.Context, userID string) error
}

type Service struct {
	Records  RecordDeleter
	Profiles ProfileDeleter
	Identity IdentityDeleter
}

type DeleteResult struct {
	DeletedResumes int64 `json:"deletedResumes"`
}

func NewService(records RecordDeleter, profiles ProfileDeleter, idp IdentityDeleter) *Service {
	return &Service{Records: records, Profiles: profiles, Identity: idp}
}

// Delete removes the user's data first and the identity last. Every step is
// idempotent, so a failed identity deletion can be retried by calling Delete
// again.
func (s *Service) Delete(ctx context.Context, userID string) (DeleteResult, error) {
	if strings.TrimSpace(userID) == "" {
		return DeleteResult{}, errors.New("user id is required")
	}
	if s.Records == nil || s.Profiles == nil || s.Identity == nil {
		return DeleteResult{}, errors.New("account service not configured")
	}

	n, err := s.Records.DeleteAll(ctx, userID)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("delete resumes: %w", err)
	}
	if err := s.Profiles.Delete(ctx, userID); err != nil {
		return DeleteResult{}, fmt.Errorf("delete profile: %w", err)
	}
	if err := s.Identity.DeleteUser(ctx, userID); err != nil && !errors.Is(err, identity.ErrUserNotFound) {
		return DeleteResult{}, fmt.Errorf("delete identity: %w", err)
	}

	telemetry.Info("account deleted", map[string]any{"user_id": userID, "deleted_resumes": n})
	return DeleteResult{DeletedResumes: n}, nil
}
