package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrNoSession occurs when a request carries no session token.
	ErrNoSession = errors.New("session missing")
	// ErrSessionUnknown occurs when the token does not resolve to an owner.
	ErrSessionUnknown = errors.New("session unknown or expired")
)
