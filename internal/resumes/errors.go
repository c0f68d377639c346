package resumes

import "errors"

var (
	// ErrNotFound indicates the record does not exist for the caller.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates validation or bad input.
	ErrInvalidInput = errors.New("invalid input")
)
