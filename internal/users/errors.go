package users

import "errors"

var (
	// ErrNotFound is returned when no profile row exists for the user.
	ErrNotFound = errors.New("profile not found")
	// ErrInvalidInput wraps validation failures; the wrapped text is shown to the caller.
	ErrInvalidInput   = errors.New("invalid input")
	ErrAvatarTooLarge = errors.New("avatar too large")
	ErrNotImage       = errors.New("avatar is not an image")
	// ErrWrongPassword is returned when re-authentication with the current password fails.
	ErrWrongPassword = errors.New("current password is incorrect")
)
