package users

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"resume-tailor/internal/identity"
	"resume-tailor/internal/shared/storage/object"
	"resume-tailor/internal/shared/telemetry"
)

const (
	MaxAvatarBytes    = 2 << 20
	MinNameLength     = 2
	MaxNameLength     = 100
	MinPasswordLength = 8
)

var avatarExtensions = map[string]string{
	"image/png":                "png",
	"image/jpeg":               "jpg",
	"image/gif":                "gif",
	"image/webp":               "webp",
	"image/bmp":                "bmp",
	"image/x-icon":             "ico",
	"image/vnd.microsoft.icon": "ico",
}

// Service owns profile reads and writes for the signed-in user.
type Service struct {
	Repo     Repo
	Identity identity.Provider
	Store    object.ObjectStore
	Now      func() time.Time
}

func NewService(repo Repo, idp identity.Provider, store object.ObjectStore) *Service {
	return &Service{Repo: repo, Identity: idp, Store: store}
}

// Get returns the user's profile, creating an empty row on first access.
func (s *Service) Get(ctx context.Context, userID string) (Profile, error) {
	if s == nil || s.Repo == nil {
		return Profile{}, errors.New("users service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return Profile{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.Repo.Ensure(ctx, userID, s.now())
}

// Rename validates and stores a new display name.
func (s *Service) Rename(ctx context.Context, userID, name string) (string, error) {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	switch {
	case n == 0:
		return "", fmt.Errorf("%w: Name is required", ErrInvalidInput)
	case n < MinNameLength:
		return "", fmt.Errorf("%w: Name must be at least %d characters", ErrInvalidInput, MinNameLength)
	case n > MaxNameLength:
		return "", fmt.Errorf("%w: Name must be at most %d characters", ErrInvalidInput, MaxNameLength)
	}
	if err := s.Repo.UpdateName(ctx, userID, name, s.now()); err != nil {
		return "", err
	}
	return name, nil
}

// SetAvatar validates the image fully before writing it to the store, so a
// rejected upload never touches storage. The stored URL carries a version
// query so browsers drop the cached image after an overwrite.
func (s *Service) SetAvatar(ctx context.Context, userID string, a Avatar) (string, error) {
	if a.Size > MaxAvatarBytes {
		return "", ErrAvatarTooLarge
	}
	if !strings.HasPrefix(strings.ToLower(a.DeclaredType), "image/") {
		return "", ErrNotImage
	}
	data, err := io.ReadAll(io.LimitReader(a.Body, MaxAvatarBytes+1))
	if err != nil {
		return "", fmt.Errorf("read avatar: %w", err)
	}
	if len(data) > MaxAvatarBytes {
		return "", ErrAvatarTooLarge
	}
	sniffed := http.DetectContentType(data)
	if !strings.HasPrefix(sniffed, "image/") {
		return "", ErrNotImage
	}

	key := AvatarKey(userID, avatarExtension(sniffed, a.FileName))
	if _, err := s.Store.Put(ctx, key, sniffed, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("store avatar: %w", err)
	}
	now := s.now()
	url := s.Store.PublicURL(key) + "?v=" + strconv.FormatInt(now.UnixNano(), 10)
	if err := s.Repo.UpdateProfileURL(ctx, userID, url, now); err != nil {
		return "", err
	}
	return url, nil
}

// ChangePassword re-authenticates with the current password and sets the new
// one with the access token from that fresh sign-in. The fresh session is
// returned so the caller can rotate its cookies.
func (s *Service) ChangePassword(ctx context.Context, email, current, next string) (identity.Session, error) {
	if current == "" || next == "" {
		return identity.Session{}, fmt.Errorf("%w: Current password and new password are required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(next) < MinPasswordLength {
		return identity.Session{}, fmt.Errorf("%w: New password must be at least %d characters", ErrInvalidInput, MinPasswordLength)
	}
	if s.Identity == nil {
		return identity.Session{}, identity.ErrNotConfigured
	}
	fresh, err := s.Identity.SignInWithPassword(ctx, email, current)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return identity.Session{}, ErrWrongPassword
		}
		return identity.Session{}, fmt.Errorf("re-authenticate: %w", err)
	}
	if err := s.Identity.UpdatePassword(ctx, fresh.AccessToken, next); err != nil {
		return identity.Session{}, fmt.Errorf("update password: %w", err)
	}
	return fresh, nil
}

// Delete removes the profile row and any stored avatar. Avatar removal is
// best effort.
func (s *Service) Delete(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if s.Store != nil {
		for _, ext := range uniqueExtensions() {
			err := s.Store.Delete(ctx, AvatarKey(userID, ext))
			if err != nil && !errors.Is(err, object.ErrNotFound) {
				telemetry.Warn("avatar delete failed", map[string]any{"user_id": userID, "error": err.Error()})
			}
		}
	}
	if err := s.Repo.Delete(ctx, userID); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// AvatarKey is the object key for a user's avatar. Uploads overwrite it.
func AvatarKey(userID, ext string) string {
	return "avatars/" + userID + "/avatar." + ext
}

func avatarExtension(contentType, fileName string) string {
	if ext, ok := avatarExtensions[contentType]; ok {
		return ext
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	if ext == "" || strings.ContainsAny(ext, `/\`) {
		return "img"
	}
	return ext
}

func uniqueExtensions() []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(avatarExtensions))
	for _, ext := range avatarExtensions {
		if !seen[ext] {
			seen[ext] = true
			out = append(out, ext)
		}
	}
	return out
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
