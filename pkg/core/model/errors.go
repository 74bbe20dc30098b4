package model

import "errors"

// Error kinds surfaced to callers. Wrap them with fmt.Errorf("...: %w") and
// test with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrIllegalState      = errors.New("illegal state")
	ErrIllegalTransition = errors.New("illegal transition")
	ErrConflict          = errors.New("conflict")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidReference  = errors.New("invalid reference")
	ErrInvalidPriority   = errors.New("invalid priority")
	ErrEmptyInput        = errors.New("empty input")
	ErrInUse             = errors.New("in use")
	ErrInvalidInput      = errors.New("invalid input")
)
