package domain

import "errors"

var (
	// ErrValidation signals bad caller input; never retried.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound signals a missing seeker, listing, or embedding.
	ErrNotFound = errors.New("not found")
	// ErrUpstreamUnavailable signals a transient embedding provider failure (network, 5xx, 429).
	ErrUpstreamUnavailable = errors.New("embedding provider unavailable")
	// ErrUpstreamRejected signals a permanent provider-side rejection (4xx).
	ErrUpstreamRejected = errors.New("embedding provider rejected request")
	// ErrUpstreamMalformed signals a 200 response with a missing or invalid vector.
	ErrUpstreamMalformed = errors.New("embedding provider returned malformed response")
	// ErrPersistence signals a store read/write failure.
	ErrPersistence = errors.New("persistence failure")
)
