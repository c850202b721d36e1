package chaincode

import "errors"

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrAlreadyInitialized = errors.New("already initialized")
	ErrNotInitialized     = errors.New("not initialized")
	ErrAlreadyExists      = errors.New("merchant already registered")
	ErrNotFound           = errors.New("merchant not found")
	ErrInvalidInput       = errors.New("invalid input")
)
