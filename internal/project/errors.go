package project

import "errors"

// Error kinds. Every error returned by this package matches at most one of
// these with errors.Is; its Error() text is the message shown to users.
var (
	ErrInvalidName     = errors.New("invalid project name")
	ErrInvalidTemplate = errors.New("invalid template")
	ErrAlreadyExists   = errors.New("project already exists")
	ErrToolUnavailable = errors.New("external tool unavailable")
	ErrToolFailed      = errors.New("external tool failed")
	ErrPartial         = errors.New("project partially created")
)

// kindError tags a descriptive error with one of the kinds above without
// changing its message.
type kindError struct {
	kind error
	err  error
}

func (e *kindError) Error() string   { return e.err.Error() }
func (e *kindError) Unwrap() []error { return []error{e.kind, e.err} }

func withKind(kind, err error) error {
	return &kindError{kind: kind, err: err}
}
