package models

import "time"

// Movement is the local record of a provider deposit or withdrawal. The pool
// chaincode is the source of truth; rows here power history queries.
type Movement struct {
	ID        string    `json:"id"`
	Provider  string    `json:"provider"`
	Kind      string    `json:"kind"` // DEPOSIT or WITHDRAWAL
	Amount    int64     `json:"amount"`
	Shares    int64     `json:"shares"`
	Status    string    `json:"status"` // Pending, Confirmed, Failed
	CreatedAt time.Time `json:"created_at"`
}

type DepositRequest struct {
	Provider string `json:"provider" validate:"required"`
	Amount   int64  `json:"amount" validate:"required,gt=0"`
}

type DepositResponse struct {
	MovementID string `json:"movement_id"`
	Shares     int64  `json:"shares"`
}

type WithdrawRequest struct {
	Provider string `json:"provider" validate:"required"`
	Shares   int64  `json:"shares" validate:"required,gt=0"`
}

type WithdrawResponse struct {
	MovementID string `json:"movement_id"`
	Amount     int64  `json:"amount"`
}

// PoolStats mirrors the chaincode's GetPoolStats payload.
type PoolStats struct {
	TotalLiquidity     int64 `json:"total_liquidity"`
	LockedLiquidity    int64 `json:"locked_liquidity"`
	AvailableLiquidity int64 `json:"available_liquidity"`
	TotalShares        int64 `json:"total_shares"`
	SharePriceBps      int64 `json:"share_price_bps"`
}

type ProviderShares struct {
	Provider string `json:"provider"`
	Shares   int64  `json:"shares"`
}
