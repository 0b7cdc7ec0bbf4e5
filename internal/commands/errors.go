package commands

import (
	"errors"

	"crafthub/internal/editor"
	"crafthub/internal/project"
)

// inputError marks an error caused by the caller's arguments without
// changing its message.
type inputError struct{ err error }

func (e *inputError) Error() string { return e.err.Error() }
func (e *inputError) Unwrap() error { return e.err }

// IsInvalidInput reports whether err was caused by bad arguments rather
// than by the environment.
func IsInvalidInput(err error) bool {
	var ie *inputError
	return errors.As(err, &ie) ||
		errors.Is(err, project.ErrInvalidName) ||
		errors.Is(err, project.ErrInvalidTemplate) ||
		errors.Is(err, ErrInvalidURL) ||
		errors.Is(err, ErrNoEditor) ||
		errors.Is(err, editor.ErrProjectNotFound)
}
