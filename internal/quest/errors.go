package quest

import "errors"

// Caller errors: surfaced immediately, never retried.
var (
	ErrInvalidPOI         = errors.New("invalid poi")
	ErrInvalidScene       = errors.New("invalid scene")
	ErrInvalidContent     = errors.New("invalid poi content")
	ErrInvalidInteraction = errors.New("invalid interaction")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrTourClosed         = errors.New("tour is closed")
	ErrNotFound           = errors.New("not found")
)

// Store errors.
var (
	ErrStoreUnavailable = errors.New("progress store unavailable")
	ErrAlreadyResolved  = errors.New("poi already resolved")
)
