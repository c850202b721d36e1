package chaincode

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/trustup-app/trustup/backend/pkg/ledgerapi"
	"github.com/trustup-app/trustup/backend/pkg/safemath"
)

// State keys. Loan records use loanPrefix + decimal id; per-borrower loan id
// indexes use userLoansPrefix + borrower.
const (
	adminKey        = "admin"
	escrowKey       = "escrow_account"
	reputationCCKey = "reputation_cc"
	merchantCCKey   = "merchant_cc"
	poolCCKey       = "pool_cc"
	tokenCCKey      = "token_cc"
	loanCounterKey  = "loan_counter"
	loanPrefix      = "loan_"
	userLoansPrefix = "user_loans_"
)

// Engine orchestrates the loan lifecycle across the reputation, merchant and
// pool contracts. Every mutating operation runs check → external call →
// commit: authorization and input validation first, then all cross-contract
// calls, and only after every call has succeeded are loan records written.
// Once a loan is persisted as Repaid or Defaulted no mutating path can
// re-enter the Active branch.
type Engine struct {
	state     ledgerapi.State
	events    ledgerapi.EventSink
	clock     ledgerapi.Clock
	scores    ScoreOracle
	merchants MerchantValidator
	pool      LiquidityFunder
	token     TokenMover
}

func NewEngine(state ledgerapi.State, events ledgerapi.EventSink, clock ledgerapi.Clock,
	scores ScoreOracle, merchants MerchantValidator, pool LiquidityFunder, token TokenMover) *Engine {
	return &Engine{
		state:     state,
		events:    events,
		clock:     clock,
		scores:    scores,
		merchants: merchants,
		pool:      pool,
		token:     token,
	}
}

// Initialize wires the admin, the escrow account that holds guarantees, and
// the four collaborating chaincode names. It can only be called once.
func (e *Engine) Initialize(admin, escrowAccount, reputationCC, merchantCC, poolCC, tokenCC string) error {
	existing, err := e.state.Get(adminKey)
	if err != nil {
		return fmt.Errorf("failed to read admin: %w", err)
	}
	if existing != nil {
		return ErrAlreadyInitialized
	}
	puts := map[string]string{
		adminKey:        admin,
		escrowKey:       escrowAccount,
		reputationCCKey: reputationCC,
		merchantCCKey:   merchantCC,
		poolCCKey:       poolCC,
		tokenCCKey:      tokenCC,
	}
	for k, v := range puts {
		if err := e.state.Put(k, []byte(v)); err != nil {
			return fmt.Errorf("failed to store %s: %w", k, err)
		}
	}
	return nil
}

func (e *Engine) GetAdmin() (string, error) {
	raw, err := e.state.Get(adminKey)
	if err != nil {
		return "", fmt.Errorf("failed to read admin: %w", err)
	}
	if raw == nil {
		return "", ErrNotInitialized
	}
	return string(raw), nil
}

// SetAdmin transfers the admin role atomically.
func (e *Engine) SetAdmin(caller, newAdmin string) error {
	return e.setConfig(caller, adminKey, newAdmin)
}

func (e *Engine) SetEscrowAccount(caller, escrowAccount string) error {
	return e.setConfig(caller, escrowKey, escrowAccount)
}

func (e *Engine) SetReputationChaincode(caller, name string) error {
	return e.setConfig(caller, reputationCCKey, name)
}

func (e *Engine) SetMerchantChaincode(caller, name string) error {
	return e.setConfig(caller, merchantCCKey, name)
}

func (e *Engine) SetPoolChaincode(caller, name string) error {
	return e.setConfig(caller, poolCCKey, name)
}

func (e *Engine) SetTokenChaincode(caller, name string) error {
	return e.setConfig(caller, tokenCCKey, name)
}

// CreateLoan underwrites and funds a new loan for the borrower at the named
// merchant. The guarantee is escrowed from the borrower before the pool pays
// the merchant; if any external step fails no loan record exists afterwards.
func (e *Engine) CreateLoan(borrower, merchant string, amount, guarantee, dueDate int64) (uint64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: principal must be positive", ErrInvalidInput)
	}
	now, err := e.clock.Now()
	if err != nil {
		return 0, fmt.Errorf("failed to read ledger time: %w", err)
	}
	if dueDate <= now {
		return 0, fmt.Errorf("%w: due date must be in the future", ErrInvalidInput)
	}
	minGuarantee, err := safemath.MulDiv(amount, GuaranteeBps, bpsDenominator)
	if err != nil {
		return 0, fmt.Errorf("guarantee floor: %w", err)
	}
	if guarantee < minGuarantee {
		return 0, fmt.Errorf("%w: need at least %d, got %d", ErrInsufficientGuarantee, minGuarantee, guarantee)
	}

	active, err := e.merchants.IsActive(merchant)
	if err != nil {
		return 0, fmt.Errorf("merchant check: %w", err)
	}
	if !active {
		return 0, fmt.Errorf("%w: %s", ErrMerchantInactive, merchant)
	}
	score, err := e.scores.GetScore(borrower)
	if err != nil {
		return 0, fmt.Errorf("reputation check: %w", err)
	}
	if score < MinScore {
		return 0, fmt.Errorf("%w: score %d below minimum %d", ErrReputationTooLow, score, MinScore)
	}
	rate := rateForScore(score)

	escrow, err := e.escrowAccount()
	if err != nil {
		return 0, err
	}
	if err := e.token.Transfer(borrower, escrow, guarantee); err != nil {
		return 0, fmt.Errorf("guarantee escrow: %w", err)
	}
	if err := e.pool.FundLoan(merchant, amount); err != nil {
		return 0, fmt.Errorf("pool funding: %w", err)
	}
	if err := e.merchants.RecordSale(merchant, amount); err != nil {
		return 0, fmt.Errorf("sale booking: %w", err)
	}

	id, err := e.nextLoanID()
	if err != nil {
		return 0, err
	}
	loan := Loan{
		ID:              id,
		Borrower:        borrower,
		Merchant:        merchant,
		Principal:       amount,
		InterestRateBps: rate,
		Guarantee:       guarantee,
		DueDate:         dueDate,
		CreatedAt:       now,
		RepaidAmount:    0,
		Status:          StatusActive,
	}
	if err := e.putLoan(&loan); err != nil {
		return 0, err
	}
	if err := e.appendUserLoan(borrower, id); err != nil {
		return 0, err
	}
	if err := e.emit(LoanCreatedEvent, loanCreatedPayload{
		LoanID:    id,
		Borrower:  borrower,
		Merchant:  merchant,
		Principal: amount,
		RateBps:   rate,
		Guarantee: guarantee,
		DueDate:   dueDate,
	}); err != nil {
		return 0, err
	}
	return id, nil
}

// RepayLoan forwards a repayment installment to the pool and returns the
// remaining balance. An amount beyond the remaining balance fails with
// Overpayment rather than being silently capped; callers query the exact
// balance first. Full repayment releases the guarantee and rewards the
// borrower's reputation, with an extra bonus strictly before the due date.
func (e *Engine) RepayLoan(borrower string, loanID uint64, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: repayment must be positive", ErrInvalidInput)
	}
	loan, err := e.GetLoan(loanID)
	if err != nil {
		return 0, err
	}
	if loan.Borrower != borrower {
		return 0, fmt.Errorf("%w: loan %d belongs to %s", ErrNotBorrower, loanID, loan.Borrower)
	}
	if loan.Status != StatusActive {
		return 0, fmt.Errorf("%w: loan %d is %s", ErrLoanNotActive, loanID, loan.Status)
	}
	owed, err := e.totalOwed(loan)
	if err != nil {
		return 0, err
	}
	remaining := owed - loan.RepaidAmount
	if amount > remaining {
		return 0, fmt.Errorf("%w: remaining balance is %d, got %d", ErrOverpayment, remaining, amount)
	}

	// Principal-first allocation: the pool's locked capital unwinds before
	// any interest is distributed.
	principalOutstanding := loan.Principal - loan.RepaidAmount
	if principalOutstanding < 0 {
		principalOutstanding = 0
	}
	principalPart := amount
	if principalPart > principalOutstanding {
		principalPart = principalOutstanding
	}
	interestPart := amount - principalPart

	now, err := e.clock.Now()
	if err != nil {
		return 0, fmt.Errorf("failed to read ledger time: %w", err)
	}
	full := amount == remaining
	early := full && now < loan.DueDate

	escrow, err := e.escrowAccount()
	if err != nil {
		return 0, err
	}
	if err := e.token.Transfer(borrower, escrow, amount); err != nil {
		return 0, fmt.Errorf("repayment transfer: %w", err)
	}
	if err := e.pool.ReceiveRepayment(principalPart, interestPart); err != nil {
		return 0, fmt.Errorf("pool repayment: %w", err)
	}
	if full {
		if err := e.token.Transfer(escrow, borrower, loan.Guarantee); err != nil {
			return 0, fmt.Errorf("guarantee release: %w", err)
		}
		reward := RepayReward
		if early {
			reward += EarlyRepayBonus
		}
		if err := e.scores.IncreaseScore(borrower, reward, "loan repaid"); err != nil {
			return 0, fmt.Errorf("reputation reward: %w", err)
		}
	}

	loan.RepaidAmount += amount
	if full {
		loan.Status = StatusRepaid
	}
	if err := e.putLoan(loan); err != nil {
		return 0, err
	}
	remaining -= amount
	if err := e.emit(LoanRepaymentEvent, repaymentPayload{LoanID: loanID, Amount: amount, Remaining: remaining}); err != nil {
		return 0, err
	}
	if full {
		if err := e.emit(LoanRepaidEvent, loanRepaidPayload{LoanID: loanID, Borrower: borrower, Early: early}); err != nil {
			return 0, err
		}
	}
	return remaining, nil
}

// MarkDefaulted moves an overdue active loan to Defaulted: the escrowed
// guarantee is forfeited to the pool, the outstanding principal is written
// off, and the borrower's reputation takes the penalty. Anyone may call it;
// default marking is incentive-neutral maintenance.
func (e *Engine) MarkDefaulted(loanID uint64) error {
	loan, err := e.GetLoan(loanID)
	if err != nil {
		return err
	}
	if loan.Status != StatusActive {
		return fmt.Errorf("%w: loan %d is %s", ErrLoanNotActive, loanID, loan.Status)
	}
	now, err := e.clock.Now()
	if err != nil {
		return fmt.Errorf("failed to read ledger time: %w", err)
	}
	if now <= loan.DueDate {
		return fmt.Errorf("%w: loan %d due at %d, now %d", ErrNotYetOverdue, loanID, loan.DueDate, now)
	}

	principalLost := loan.Principal - loan.RepaidAmount
	if principalLost < 0 {
		principalLost = 0
	}
	if err := e.pool.ReceiveGuarantee(loan.Guarantee, principalLost); err != nil {
		return fmt.Errorf("guarantee forfeit: %w", err)
	}
	if err := e.scores.DecreaseScore(loan.Borrower, DefaultPenalty, "loan default"); err != nil {
		return fmt.Errorf("reputation penalty: %w", err)
	}

	loan.Status = StatusDefaulted
	if err := e.putLoan(loan); err != nil {
		return err
	}
	return e.emit(LoanDefaultedEvent, loanDefaultedPayload{
		LoanID:        loanID,
		Borrower:      loan.Borrower,
		Guarantee:     loan.Guarantee,
		PrincipalLost: principalLost,
	})
}

// GetLoan returns the loan record for an id.
func (e *Engine) GetLoan(loanID uint64) (*Loan, error) {
	raw, err := e.state.Get(loanKey(loanID))
	if err != nil {
		return nil, fmt.Errorf("failed to read loan: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: %d", ErrLoanNotFound, loanID)
	}
	var loan Loan
	if err := json.Unmarshal(raw, &loan); err != nil {
		return nil, err
	}
	return &loan, nil
}

// GetUserLoans returns all loans ever created for a borrower, oldest first.
// A borrower with no loans gets an empty slice.
func (e *Engine) GetUserLoans(borrower string) ([]*Loan, error) {
	ids, err := e.userLoanIDs(borrower)
	if err != nil {
		return nil, err
	}
	loans := make([]*Loan, 0, len(ids))
	for _, id := range ids {
		loan, err := e.GetLoan(id)
		if err != nil {
			return nil, err
		}
		loans = append(loans, loan)
	}
	return loans, nil
}

// GetRemainingBalance returns principal+interest minus repayments so far.
func (e *Engine) GetRemainingBalance(loanID uint64) (int64, error) {
	loan, err := e.GetLoan(loanID)
	if err != nil {
		return 0, err
	}
	owed, err := e.totalOwed(loan)
	if err != nil {
		return 0, err
	}
	return owed - loan.RepaidAmount, nil
}

// --- storage helpers ---

func loanKey(id uint64) string {
	return loanPrefix + strconv.FormatUint(id, 10)
}

func (e *Engine) totalOwed(loan *Loan) (int64, error) {
	interest, err := safemath.MulDiv(loan.Principal, loan.InterestRateBps, bpsDenominator)
	if err != nil {
		return 0, fmt.Errorf("interest for loan %d: %w", loan.ID, err)
	}
	return safemath.Add(loan.Principal, interest)
}

// nextLoanID allocates the next id from the monotonic counter. Ids start at 1
// and are never reused.
func (e *Engine) nextLoanID() (uint64, error) {
	raw, err := e.state.Get(loanCounterKey)
	if err != nil {
		return 0, fmt.Errorf("failed to read loan counter: %w", err)
	}
	var counter uint64
	if raw != nil {
		counter, err = strconv.ParseUint(string(raw), 10, 64)
		if err != nil {
			return 0, err
		}
	}
	counter++
	if err := e.state.Put(loanCounterKey, []byte(strconv.FormatUint(counter, 10))); err != nil {
		return 0, fmt.Errorf("failed to store loan counter: %w", err)
	}
	return counter, nil
}

func (e *Engine) putLoan(loan *Loan) error {
	raw, err := json.Marshal(loan)
	if err != nil {
		return err
	}
	return e.state.Put(loanKey(loan.ID), raw)
}

func (e *Engine) userLoanIDs(borrower string) ([]uint64, error) {
	raw, err := e.state.Get(userLoansPrefix + borrower)
	if err != nil {
		return nil, fmt.Errorf("failed to read loan index: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	var ids []uint64
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (e *Engine) appendUserLoan(borrower string, id uint64) error {
	ids, err := e.userLoanIDs(borrower)
	if err != nil {
		return err
	}
	ids = append(ids, id)
	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return e.state.Put(userLoansPrefix+borrower, raw)
}

func (e *Engine) escrowAccount() (string, error) {
	raw, err := e.state.Get(escrowKey)
	if err != nil {
		return "", fmt.Errorf("failed to read escrow account: %w", err)
	}
	if raw == nil {
		return "", ErrNotInitialized
	}
	return string(raw), nil
}

func (e *Engine) setConfig(caller, key, value string) error {
	admin, err := e.GetAdmin()
	if err != nil {
		return err
	}
	if caller != admin {
		return fmt.Errorf("%w: %s is not the admin", ErrUnauthorized, caller)
	}
	return e.state.Put(key, []byte(value))
}

func (e *Engine) emit(name string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return e.events.Emit(name, raw)
}
