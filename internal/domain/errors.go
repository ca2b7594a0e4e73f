package domain

import "errors"

// Sentinel errors for the domain layer.
var (
	ErrNotFound       = errors.New("domain: not found")
	ErrNoSession      = errors.New("domain: no active session")
	ErrSessionChanged = errors.New("domain: session changed")
	ErrExhausted      = errors.New("domain: reconnect budget exhausted")
)
