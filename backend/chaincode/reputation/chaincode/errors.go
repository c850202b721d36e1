package chaincode

import "errors"

// Error kinds surfaced by the reputation contract. Callers match with
// errors.Is to distinguish retryable input problems from invariant breaches.
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrAlreadyInitialized = errors.New("already initialized")
	ErrNotInitialized     = errors.New("not initialized")
)
