package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrEmptyPatch = errors.New("patch sets no field")
	ErrNoFiles    = errors.New("no files uploaded")
)
