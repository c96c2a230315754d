package shared

import "errors"

var (
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSessionNotFound indicates an unknown or expired bearer token.
	ErrSessionNotFound = errors.New("session not found")
)
