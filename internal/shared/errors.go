package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrStoreUnavailable indicates the record store rejected or dropped a call.
	ErrStoreUnavailable = errors.New("store unavailable")
)
