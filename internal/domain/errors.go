package domain

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrLockHeld = errors.New("lock held by another holder")
	// ErrInvalidKey rejects storage keys outside the caller's namespace.
	ErrInvalidKey = errors.New("invalid key")

	// Upstream read failures. The snapshot service degrades all three to an
	// empty snapshot; they stay distinct for logging and health reporting.
	ErrUpstreamTransport = errors.New("upstream transport failure")
	ErrUpstreamStatus    = errors.New("upstream non-success status")
	ErrUpstreamMalformed = errors.New("upstream malformed body")
)
