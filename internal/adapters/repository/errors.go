package repository

import "errors"

// Sentinel kinds for document store errors.
var (
	ErrNotFound       = errors.New("document not found")
	ErrClosed         = errors.New("document store closed")
	ErrUnknownDriver  = errors.New("unknown store driver")
	ErrInvalidRequest = errors.New("invalid store request")
)
