package documents

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// countPages opens data as a PDF and returns its page count. The reader
// panics on some malformed inputs, so those are reported as ErrNotPDF too.
func countPages(data []byte) (pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = 0, fmt.Errorf("%w: %v", ErrNotPDF, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	n := reader.NumPage()
	if n < 1 {
		return 0, fmt.Errorf("%w: no pages", ErrNotPDF)
	}
	return n, nil
}
