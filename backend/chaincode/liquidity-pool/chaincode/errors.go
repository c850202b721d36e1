package chaincode

import "errors"

var (
	ErrUnauthorized          = errors.New("unauthorized")
	ErrAlreadyInitialized    = errors.New("already initialized")
	ErrNotInitialized        = errors.New("not initialized")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInsufficientShares    = errors.New("insufficient shares")
	ErrInsufficientLiquidity = errors.New("insufficient available liquidity")
	ErrBelowMinimumShare     = errors.New("deposit too small to issue a share")
	ErrInvariantViolation    = errors.New("pool invariant violation")
)
