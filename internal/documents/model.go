package documents

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrTooLarge     = errors.New("document too large")
	ErrNotPDF       = errors.New("document is not a readable pdf")
)

// Document describes a stored source PDF.
type Document struct {
	URL       string `json:"document_url"`
	Key       string `json:"-"`
	FileName  string `json:"fileName"`
	SizeBytes int64  `json:"sizeBytes"`
	Pages     int    `json:"pages"`
}
