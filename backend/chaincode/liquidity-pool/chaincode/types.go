package chaincode

// Interest fee split, in basis points. The LP portion stays in the pool and
// raises the share price; the rest is paid out to protocol accounts.
const (
	LPFeeBps       int64 = 8500 // 85% to liquidity providers
	ProtocolFeeBps int64 = 1000 // 10% to protocol treasury
	MerchantFeeBps int64 = 500  // 5% to merchant incentive fund
	TotalBps       int64 = 10000
)

// PoolStats is the aggregate pool state returned by GetPoolStats.
type PoolStats struct {
	TotalLiquidity     int64 `json:"total_liquidity"`
	LockedLiquidity    int64 `json:"locked_liquidity"`
	AvailableLiquidity int64 `json:"available_liquidity"`
	TotalShares        int64 `json:"total_shares"`
	// SharePriceBps is total_liquidity/total_shares expressed in basis
	// points (10000 = 1.00).
	SharePriceBps int64 `json:"share_price_bps"`
}

// Event names.
const (
	DepositEvent             = "LiquidityDepositedEvent"
	WithdrawEvent            = "LiquidityWithdrawnEvent"
	LoanFundedEvent          = "LoanFundedEvent"
	RepaymentReceivedEvent   = "RepaymentReceivedEvent"
	GuaranteeReceivedEvent   = "GuaranteeReceivedEvent"
	InterestDistributedEvent = "InterestDistributedEvent"
)

type depositPayload struct {
	Provider     string `json:"provider"`
	Amount       int64  `json:"amount"`
	SharesIssued int64  `json:"shares_issued"`
}

type withdrawPayload struct {
	Provider       string `json:"provider"`
	SharesBurned   int64  `json:"shares_burned"`
	AmountReturned int64  `json:"amount_returned"`
}

type loanFundedPayload struct {
	Merchant string `json:"merchant"`
	Amount   int64  `json:"amount"`
}

type repaymentPayload struct {
	Principal int64 `json:"principal"`
	Interest  int64 `json:"interest"`
}

type guaranteePayload struct {
	Guarantee     int64 `json:"guarantee"`
	PrincipalLost int64 `json:"principal_lost"`
}

type interestPayload struct {
	Total          int64 `json:"total"`
	LPAmount       int64 `json:"lp_amount"`
	ProtocolAmount int64 `json:"protocol_amount"`
	MerchantAmount int64 `json:"merchant_amount"`
}
