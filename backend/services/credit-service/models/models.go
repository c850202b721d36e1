package models

import "time"

// Loan mirrors the on-chain loan record into the local cache. The chain is
// the source of truth; the cache exists for indexed querying.
type Loan struct {
	ID              uint64    `json:"id"`
	Borrower        string    `json:"borrower"`
	Merchant        string    `json:"merchant"`
	Principal       int64     `json:"principal"`
	InterestRateBps int64     `json:"interest_rate_bps"`
	Guarantee       int64     `json:"guarantee"`
	DueDate         int64     `json:"due_date"`
	CreatedAt       int64     `json:"created_at"`
	RepaidAmount    int64     `json:"repaid_amount"`
	Status          string    `json:"status"`
	SyncedAt        time.Time `json:"synced_at,omitempty"`
}

type CreateLoanRequest struct {
	Borrower  string `json:"borrower" validate:"required"`
	Merchant  string `json:"merchant" validate:"required"`
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	Guarantee int64  `json:"guarantee" validate:"required,gt=0"`
	DueDate   int64  `json:"due_date" validate:"required,gt=0"`
}

type CreateLoanResponse struct {
	LoanID uint64 `json:"loan_id"`
	Status string `json:"status"`
}

type RepayRequest struct {
	Borrower string `json:"borrower" validate:"required"`
	Amount   int64  `json:"amount" validate:"required,gt=0"`
}

type RepayResponse struct {
	LoanID    uint64 `json:"loan_id"`
	Remaining int64  `json:"remaining"`
	Status    string `json:"status"`
}

type DefaultResponse struct {
	LoanID uint64 `json:"loan_id"`
	Status string `json:"status"`
}
