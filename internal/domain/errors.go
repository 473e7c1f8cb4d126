package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")

	// Verification guards. Neither mutates the request.
	ErrAlreadyUsed = errors.New("already used")
	ErrExpired     = errors.New("expired")

	// ErrGrantAPI marks any failure of the external grant call (timeout, non-2xx, bad payload).
	ErrGrantAPI = errors.New("grant api error")
	// ErrLookup marks a failed nickname/region enrichment. Callers fall back instead of failing.
	ErrLookup = errors.New("lookup failed")
)
