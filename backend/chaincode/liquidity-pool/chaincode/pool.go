package chaincode

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/trustup-app/trustup/backend/pkg/ledgerapi"
	"github.com/trustup-app/trustup/backend/pkg/safemath"
)

// State keys. Per-provider share balances use sharesPrefix + provider.
const (
	adminKey        = "admin"
	tokenKey        = "token"
	poolAccountKey  = "pool_account"
	treasuryKey     = "treasury"
	merchantFundKey = "merchant_fund"
	creditLineKey   = "creditline"
	totalSharesKey  = "total_shares"
	totalLiqKey     = "total_liquidity"
	lockedLiqKey    = "locked_liquidity"
	sharesPrefix    = "shares_"
)

// TokenMover is the external value-transfer primitive. A transfer is atomic:
// on failure no balance changes anywhere.
type TokenMover interface {
	Transfer(from, to string, amount int64) error
}

// Pool is the share-based liquidity ledger. Providers deposit capital for
// proportional shares; the CreditLine engine draws that capital to fund loans
// and returns it through repayments and forfeited guarantees.
//
// Every operation follows check → external call → commit: token transfers run
// only after all validation, and no pool state is written until every
// transfer has succeeded.
type Pool struct {
	state  ledgerapi.State
	events ledgerapi.EventSink
	token  TokenMover
}

func NewPool(state ledgerapi.State, events ledgerapi.EventSink, token TokenMover) *Pool {
	return &Pool{state: state, events: events, token: token}
}

// Initialize wires the pool's admin, token and its own settlement account.
// Treasury and merchant fund may be empty; their fee portions then stay in
// the pool. Can only be called once.
func (p *Pool) Initialize(admin, tokenChaincode, poolAccount, treasury, merchantFund string) error {
	existing, err := p.state.Get(adminKey)
	if err != nil {
		return fmt.Errorf("failed to read admin: %w", err)
	}
	if existing != nil {
		return ErrAlreadyInitialized
	}
	puts := map[string]string{
		adminKey:        admin,
		tokenKey:        tokenChaincode,
		poolAccountKey:  poolAccount,
		treasuryKey:     treasury,
		merchantFundKey: merchantFund,
	}
	for k, v := range puts {
		if err := p.state.Put(k, []byte(v)); err != nil {
			return fmt.Errorf("failed to store %s: %w", k, err)
		}
	}
	return nil
}

func (p *Pool) GetAdmin() (string, error) {
	raw, err := p.state.Get(adminKey)
	if err != nil {
		return "", fmt.Errorf("failed to read admin: %w", err)
	}
	if raw == nil {
		return "", ErrNotInitialized
	}
	return string(raw), nil
}

// SetAdmin transfers the admin role atomically.
func (p *Pool) SetAdmin(caller, newAdmin string) error {
	if err := p.requireAdmin(caller); err != nil {
		return err
	}
	return p.state.Put(adminKey, []byte(newAdmin))
}

// SetCreditLine records the only identity allowed to move pool capital.
func (p *Pool) SetCreditLine(caller, creditLine string) error {
	if err := p.requireAdmin(caller); err != nil {
		return err
	}
	return p.state.Put(creditLineKey, []byte(creditLine))
}

func (p *Pool) SetTreasury(caller, treasury string) error {
	if err := p.requireAdmin(caller); err != nil {
		return err
	}
	return p.state.Put(treasuryKey, []byte(treasury))
}

func (p *Pool) SetMerchantFund(caller, merchantFund string) error {
	if err := p.requireAdmin(caller); err != nil {
		return err
	}
	return p.state.Put(merchantFundKey, []byte(merchantFund))
}

// Deposit accepts capital from a provider and issues proportional shares.
// The first deposit prices shares 1:1; later deposits are priced against the
// current pool value with truncating integer division. A deposit so small
// that it would issue zero shares is rejected, never silently accepted.
func (p *Pool) Deposit(provider string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: deposit must be positive", ErrInvalidAmount)
	}
	totalShares, totalLiq, _, err := p.totals()
	if err != nil {
		return 0, err
	}

	var shares int64
	if totalShares == 0 || totalLiq == 0 {
		shares = amount
	} else {
		shares, err = safemath.MulDiv(amount, totalShares, totalLiq)
		if err != nil {
			return 0, fmt.Errorf("share calculation: %w", err)
		}
	}
	if shares <= 0 {
		return 0, fmt.Errorf("%w: %d would issue zero shares", ErrBelowMinimumShare, amount)
	}

	poolAccount, err := p.mustGet(poolAccountKey)
	if err != nil {
		return 0, err
	}
	if err := p.token.Transfer(provider, poolAccount, amount); err != nil {
		return 0, fmt.Errorf("deposit transfer: %w", err)
	}

	providerShares, err := p.providerShares(provider)
	if err != nil {
		return 0, err
	}
	newProviderShares, err := safemath.Add(providerShares, shares)
	if err != nil {
		return 0, err
	}
	newTotalShares, err := safemath.Add(totalShares, shares)
	if err != nil {
		return 0, err
	}
	newTotalLiq, err := safemath.Add(totalLiq, amount)
	if err != nil {
		return 0, err
	}
	if err := p.putShares(provider, newProviderShares); err != nil {
		return 0, err
	}
	if err := p.putAmount(totalSharesKey, newTotalShares); err != nil {
		return 0, err
	}
	if err := p.putAmount(totalLiqKey, newTotalLiq); err != nil {
		return 0, err
	}
	if err := p.emit(DepositEvent, depositPayload{Provider: provider, Amount: amount, SharesIssued: shares}); err != nil {
		return 0, err
	}
	return shares, nil
}

// Withdraw burns shares and returns the proportional amount of unlocked
// capital to the provider.
func (p *Pool) Withdraw(provider string, shares int64) (int64, error) {
	if shares <= 0 {
		return 0, fmt.Errorf("%w: shares must be positive", ErrInvalidAmount)
	}
	providerShares, err := p.providerShares(provider)
	if err != nil {
		return 0, err
	}
	if shares > providerShares {
		return 0, fmt.Errorf("%w: have %d, want %d", ErrInsufficientShares, providerShares, shares)
	}
	totalShares, totalLiq, locked, err := p.totals()
	if err != nil {
		return 0, err
	}

	amount, err := safemath.MulDiv(shares, totalLiq, totalShares)
	if err != nil {
		return 0, fmt.Errorf("withdrawal calculation: %w", err)
	}
	available := totalLiq - locked
	if amount > available {
		return 0, fmt.Errorf("%w: %d available, %d requested", ErrInsufficientLiquidity, available, amount)
	}

	poolAccount, err := p.mustGet(poolAccountKey)
	if err != nil {
		return 0, err
	}
	if err := p.token.Transfer(poolAccount, provider, amount); err != nil {
		return 0, fmt.Errorf("withdrawal transfer: %w", err)
	}

	remaining := providerShares - shares
	if remaining == 0 {
		if err := p.state.Delete(sharesPrefix + provider); err != nil {
			return 0, err
		}
	} else if err := p.putShares(provider, remaining); err != nil {
		return 0, err
	}
	if err := p.putAmount(totalSharesKey, totalShares-shares); err != nil {
		return 0, err
	}
	if err := p.putAmount(totalLiqKey, totalLiq-amount); err != nil {
		return 0, err
	}
	if err := p.emit(WithdrawEvent, withdrawPayload{Provider: provider, SharesBurned: shares, AmountReturned: amount}); err != nil {
		return 0, err
	}
	return amount, nil
}

// FundLoan moves unlocked pool capital to a merchant on behalf of a new loan
// and locks that amount. Only the configured CreditLine identity may call it.
func (p *Pool) FundLoan(caller, merchant string, amount int64) error {
	if err := p.requireCreditLine(caller); err != nil {
		return err
	}
	if amount <= 0 {
		return fmt.Errorf("%w: funding must be positive", ErrInvalidAmount)
	}
	_, totalLiq, locked, err := p.totals()
	if err != nil {
		return err
	}
	available := totalLiq - locked
	if amount > available {
		return fmt.Errorf("%w: %d available, %d requested", ErrInsufficientLiquidity, available, amount)
	}

	poolAccount, err := p.mustGet(poolAccountKey)
	if err != nil {
		return err
	}
	if err := p.token.Transfer(poolAccount, merchant, amount); err != nil {
		return fmt.Errorf("loan funding transfer: %w", err)
	}

	newLocked, err := safemath.Add(locked, amount)
	if err != nil {
		return err
	}
	if err := p.putAmount(lockedLiqKey, newLocked); err != nil {
		return err
	}
	return p.emit(LoanFundedEvent, loanFundedPayload{Merchant: merchant, Amount: amount})
}

// ReceiveRepayment accepts principal+interest from the CreditLine escrow.
// Principal unlocks loaned-out capital; interest is split between the pool
// (raising the share price), the treasury and the merchant incentive fund.
func (p *Pool) ReceiveRepayment(caller string, principal, interest int64) error {
	if err := p.requireCreditLine(caller); err != nil {
		return err
	}
	if principal < 0 || interest < 0 {
		return fmt.Errorf("%w: negative repayment", ErrInvalidAmount)
	}
	total, err := safemath.Add(principal, interest)
	if err != nil {
		return err
	}
	if total <= 0 {
		return fmt.Errorf("%w: empty repayment", ErrInvalidAmount)
	}
	_, totalLiq, locked, err := p.totals()
	if err != nil {
		return err
	}
	newLocked := locked - principal
	if newLocked < 0 {
		return fmt.Errorf("%w: repaid principal %d exceeds locked liquidity %d", ErrInvariantViolation, principal, locked)
	}

	// Fee split. The remainder trick keeps rounding dust with the merchant
	// fund portion so the three parts always sum to the interest exactly.
	var lpAmount, protocolAmount, merchantAmount int64
	if interest > 0 {
		lpAmount, err = safemath.MulDiv(interest, LPFeeBps, TotalBps)
		if err != nil {
			return err
		}
		protocolAmount, err = safemath.MulDiv(interest, ProtocolFeeBps, TotalBps)
		if err != nil {
			return err
		}
		merchantAmount = interest - lpAmount - protocolAmount
	}

	poolAccount, err := p.mustGet(poolAccountKey)
	if err != nil {
		return err
	}
	if err := p.token.Transfer(caller, poolAccount, total); err != nil {
		return fmt.Errorf("repayment transfer: %w", err)
	}

	treasury, _ := p.optGet(treasuryKey)
	merchantFund, _ := p.optGet(merchantFundKey)
	stays := lpAmount
	if protocolAmount > 0 {
		if treasury != "" {
			if err := p.token.Transfer(poolAccount, treasury, protocolAmount); err != nil {
				return fmt.Errorf("treasury fee transfer: %w", err)
			}
		} else {
			stays += protocolAmount
		}
	}
	if merchantAmount > 0 {
		if merchantFund != "" {
			if err := p.token.Transfer(poolAccount, merchantFund, merchantAmount); err != nil {
				return fmt.Errorf("merchant fund fee transfer: %w", err)
			}
		} else {
			stays += merchantAmount
		}
	}

	// Funded principal never left total_liquidity (it is carried as a loan
	// receivable), so repaying it only unlocks; the pool's interest share is
	// the sole addition.
	newTotalLiq, err := safemath.Add(totalLiq, stays)
	if err != nil {
		return err
	}
	if err := p.putAmount(lockedLiqKey, newLocked); err != nil {
		return err
	}
	if err := p.putAmount(totalLiqKey, newTotalLiq); err != nil {
		return err
	}
	if err := p.emit(RepaymentReceivedEvent, repaymentPayload{Principal: principal, Interest: interest}); err != nil {
		return err
	}
	if interest > 0 {
		return p.emit(InterestDistributedEvent, interestPayload{
			Total:          interest,
			LPAmount:       lpAmount,
			ProtocolAmount: protocolAmount,
			MerchantAmount: merchantAmount,
		})
	}
	return nil
}

// ReceiveGuarantee books a defaulted loan: the forfeited guarantee comes in
// as pool income while the lost principal is written off the locked balance.
// The pool's net position worsens whenever guarantee < principalLost; that is
// the accepted economic risk, not an error.
func (p *Pool) ReceiveGuarantee(caller string, guarantee, principalLost int64) error {
	if err := p.requireCreditLine(caller); err != nil {
		return err
	}
	if guarantee <= 0 {
		return fmt.Errorf("%w: guarantee must be positive", ErrInvalidAmount)
	}
	if principalLost < 0 {
		return fmt.Errorf("%w: negative principal", ErrInvalidAmount)
	}
	_, totalLiq, locked, err := p.totals()
	if err != nil {
		return err
	}
	newLocked := locked - principalLost
	if newLocked < 0 {
		return fmt.Errorf("%w: written-off principal %d exceeds locked liquidity %d", ErrInvariantViolation, principalLost, locked)
	}
	newTotalLiq, err := safemath.Sub(totalLiq, principalLost)
	if err != nil {
		return err
	}
	newTotalLiq, err = safemath.Add(newTotalLiq, guarantee)
	if err != nil {
		return err
	}
	if newTotalLiq < newLocked {
		return fmt.Errorf("%w: total liquidity %d below locked %d", ErrInvariantViolation, newTotalLiq, newLocked)
	}

	poolAccount, err := p.mustGet(poolAccountKey)
	if err != nil {
		return err
	}
	if err := p.token.Transfer(caller, poolAccount, guarantee); err != nil {
		return fmt.Errorf("guarantee transfer: %w", err)
	}

	if err := p.putAmount(lockedLiqKey, newLocked); err != nil {
		return err
	}
	if err := p.putAmount(totalLiqKey, newTotalLiq); err != nil {
		return err
	}
	return p.emit(GuaranteeReceivedEvent, guaranteePayload{Guarantee: guarantee, PrincipalLost: principalLost})
}

// GetPoolStats returns the aggregate pool state.
func (p *Pool) GetPoolStats() (*PoolStats, error) {
	totalShares, totalLiq, locked, err := p.totals()
	if err != nil {
		return nil, err
	}
	price := TotalBps
	if totalShares > 0 {
		price, err = safemath.MulDiv(totalLiq, TotalBps, totalShares)
		if err != nil {
			return nil, err
		}
	}
	return &PoolStats{
		TotalLiquidity:     totalLiq,
		LockedLiquidity:    locked,
		AvailableLiquidity: totalLiq - locked,
		TotalShares:        totalShares,
		SharePriceBps:      price,
	}, nil
}

// GetProviderShares returns the share balance of a provider (0 if none).
func (p *Pool) GetProviderShares(provider string) (int64, error) {
	return p.providerShares(provider)
}

// CalculateWithdrawal prices the given shares at the current share price.
func (p *Pool) CalculateWithdrawal(shares int64) (int64, error) {
	totalShares, totalLiq, _, err := p.totals()
	if err != nil {
		return 0, err
	}
	if totalShares == 0 {
		return 0, nil
	}
	return safemath.MulDiv(shares, totalLiq, totalShares)
}

// --- storage helpers ---

func (p *Pool) totals() (totalShares, totalLiq, locked int64, err error) {
	if totalShares, err = p.amount(totalSharesKey); err != nil {
		return
	}
	if totalLiq, err = p.amount(totalLiqKey); err != nil {
		return
	}
	locked, err = p.amount(lockedLiqKey)
	return
}

func (p *Pool) amount(key string) (int64, error) {
	raw, err := p.state.Get(key)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if raw == nil {
		return 0, nil
	}
	return strconv.ParseInt(string(raw), 10, 64)
}

func (p *Pool) putAmount(key string, v int64) error {
	return p.state.Put(key, []byte(strconv.FormatInt(v, 10)))
}

func (p *Pool) providerShares(provider string) (int64, error) {
	return p.amount(sharesPrefix + provider)
}

func (p *Pool) putShares(provider string, v int64) error {
	return p.putAmount(sharesPrefix+provider, v)
}

func (p *Pool) mustGet(key string) (string, error) {
	raw, err := p.state.Get(key)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	if raw == nil {
		return "", ErrNotInitialized
	}
	return string(raw), nil
}

func (p *Pool) optGet(key string) (string, error) {
	raw, err := p.state.Get(key)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (p *Pool) requireAdmin(caller string) error {
	admin, err := p.GetAdmin()
	if err != nil {
		return err
	}
	if caller != admin {
		return fmt.Errorf("%w: %s is not the admin", ErrUnauthorized, caller)
	}
	return nil
}

func (p *Pool) requireCreditLine(caller string) error {
	raw, err := p.state.Get(creditLineKey)
	if err != nil {
		return fmt.Errorf("failed to read creditline identity: %w", err)
	}
	if raw == nil || caller != string(raw) {
		return fmt.Errorf("%w: %s is not the creditline contract", ErrUnauthorized, caller)
	}
	return nil
}

func (p *Pool) emit(name string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.events.Emit(name, raw)
}
