package documents

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"resume-tailor/internal/shared/storage/object"
	"resume-tailor/internal/shared/util"
)

const (
	MaxUploadBytes = 10 << 20
	pdfContentType = "application/pdf"
)

// Service stores source PDFs the tailoring job reads from.
type Service struct {
	Store object.ObjectStore
}

func NewService(store object.ObjectStore) *Service {
	return &Service{Store: store}
}

// Upload validates the PDF and writes it to object storage. Nothing is
// written unless the file parses with at least one page.
func (s *Service) Upload(ctx context.Context, userID, fileName string, r io.Reader) (Document, error) {
	if strings.TrimSpace(userID) == "" {
		return Document{}, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	sanitized, err := util.SanitizeFileName(fileName)
	if err != nil {
		return Document{}, fmt.Errorf("%w: invalid file name", ErrInvalidInput)
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return Document{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return Document{}, ErrTooLarge
	}
	pages, err := countPages(data)
	if err != nil {
		return Document{}, err
	}

	key := Key(userID, sanitized)
	size, err := s.Store.Put(ctx, key, pdfContentType, bytes.NewReader(data))
	if err != nil {
		return Document{}, fmt.Errorf("store document key=%s: %w", key, err)
	}
	return Document{
		URL:       s.Store.PublicURL(key),
		Key:       key,
		FileName:  sanitized,
		SizeBytes: size,
		Pages:     pages,
	}, nil
}

// Key builds the object key for a new upload. The user id is hashed so keys
// in public URLs do not reveal it.
func Key(userID, sanitizedName string) string {
	return "documents/" + util.HashUserKey(userID) + "/" + uuid.NewString() + "_" + sanitizedName
}
