// Package apperr holds the sentinel errors shared by the service layers.
package apperr

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrAlreadyExists  = errors.New("already exists")
	ErrInvalidMessage = errors.New("invalid message")
	ErrUnsupported    = errors.New("unsupported page format")
)
