package chaincode

import "errors"

// Error kinds surfaced by the creditline contract. Callers match with
// errors.Is.
var (
	ErrUnauthorized          = errors.New("unauthorized")
	ErrAlreadyInitialized    = errors.New("already initialized")
	ErrNotInitialized        = errors.New("not initialized")
	ErrInvalidInput          = errors.New("invalid input")
	ErrInsufficientGuarantee = errors.New("insufficient guarantee")
	ErrMerchantInactive      = errors.New("merchant inactive")
	ErrReputationTooLow      = errors.New("reputation too low")
	ErrLoanNotFound          = errors.New("loan not found")
	ErrNotBorrower           = errors.New("not the borrower")
	ErrLoanNotActive         = errors.New("loan not active")
	ErrOverpayment           = errors.New("overpayment")
	ErrNotYetOverdue         = errors.New("not yet overdue")
)
