package repository

import "errors"

// Sentinel kinds for job store errors.
var (
	ErrNotFound   = errors.New("job not found")
	ErrStoreFull  = errors.New("job store full")
	ErrTransition = errors.New("invalid job transition")
)
