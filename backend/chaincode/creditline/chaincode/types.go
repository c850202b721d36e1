package chaincode

// Loan status values. The machine is terminal and one-directional:
// Active → Repaid or Active → Defaulted, never out of a terminal state.
const (
	StatusActive    = "ACTIVE"
	StatusRepaid    = "REPAID"
	StatusDefaulted = "DEFAULTED"
)

// Underwriting parameters.
const (
	// MinScore is the lowest reputation score that qualifies for a loan.
	MinScore uint32 = 40
	// GuaranteeBps is the minimum borrower guarantee, 20% of principal.
	GuaranteeBps int64 = 2000
	// RepayReward is the reputation reward for fully repaying a loan.
	RepayReward uint32 = 5
	// EarlyRepayBonus is added to RepayReward when the final repayment
	// lands strictly before the due date.
	EarlyRepayBonus uint32 = 2
	// DefaultPenalty is the reputation penalty on default, deliberately
	// larger than the repayment reward.
	DefaultPenalty uint32 = 10
)

// Interest rate tiers in basis points, keyed by reputation score band.
const (
	RateLowBps  int64 = 1000 // score 40-59
	RateMidBps  int64 = 700  // score 60-79
	RateHighBps int64 = 400  // score 80-100
)

const bpsDenominator int64 = 10000

// Loan is the per-loan ledger record. Records are never deleted; terminal
// loans stay readable for audit.
type Loan struct {
	ID              uint64 `json:"id"`
	Borrower        string `json:"borrower"`
	Merchant        string `json:"merchant"`
	Principal       int64  `json:"principal"`
	InterestRateBps int64  `json:"interest_rate_bps"`
	Guarantee       int64  `json:"guarantee"`
	DueDate         int64  `json:"due_date"`
	CreatedAt       int64  `json:"created_at"`
	RepaidAmount    int64  `json:"repaid_amount"`
	Status          string `json:"status"`
}

// Event names.
const (
	LoanCreatedEvent   = "LoanCreatedEvent"
	LoanRepaymentEvent = "LoanRepaymentEvent"
	LoanRepaidEvent    = "LoanRepaidEvent"
	LoanDefaultedEvent = "LoanDefaultedEvent"
)

type loanCreatedPayload struct {
	LoanID    uint64 `json:"loan_id"`
	Borrower  string `json:"borrower"`
	Merchant  string `json:"merchant"`
	Principal int64  `json:"principal"`
	RateBps   int64  `json:"rate_bps"`
	Guarantee int64  `json:"guarantee"`
	DueDate   int64  `json:"due_date"`
}

type repaymentPayload struct {
	LoanID    uint64 `json:"loan_id"`
	Amount    int64  `json:"amount"`
	Remaining int64  `json:"remaining"`
}

type loanRepaidPayload struct {
	LoanID   uint64 `json:"loan_id"`
	Borrower string `json:"borrower"`
	Early    bool   `json:"early"`
}

type loanDefaultedPayload struct {
	LoanID        uint64 `json:"loan_id"`
	Borrower      string `json:"borrower"`
	Guarantee     int64  `json:"guarantee"`
	PrincipalLost int64  `json:"principal_lost"`
}

// rateForScore maps a reputation score to its interest tier. Callers have
// already rejected scores below MinScore.
func rateForScore(score uint32) int64 {
	switch {
	case score >= 80:
		return RateHighBps
	case score >= 60:
		return RateMidBps
	default:
		return RateLowBps
	}
}
