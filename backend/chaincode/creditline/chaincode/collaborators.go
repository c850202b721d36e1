package chaincode

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/trustup-app/trustup/backend/pkg/ledgerapi"
)

// The engine reaches the other contracts only through these capabilities.
// Production wiring invokes the configured chaincodes; tests plug in fakes.

// ScoreOracle reads and adjusts borrower reputation.
type ScoreOracle interface {
	GetScore(user string) (uint32, error)
	IncreaseScore(user string, amount uint32, reason string) error
	DecreaseScore(user string, amount uint32, reason string) error
}

// MerchantValidator answers the activity check and books completed sales.
type MerchantValidator interface {
	IsActive(merchant string) (bool, error)
	RecordSale(merchant string, amount int64) error
}

// LiquidityFunder draws and returns pool capital.
type LiquidityFunder interface {
	FundLoan(merchant string, amount int64) error
	ReceiveRepayment(principal, interest int64) error
	ReceiveGuarantee(guarantee, principalLost int64) error
}

// TokenMover is the external value-transfer primitive, used for guarantee
// escrow and release.
type TokenMover interface {
	Transfer(from, to string, amount int64) error
}

// --- chaincode-backed implementations ---
//
// Each one resolves its target chaincode name from contract state at call
// time and presents the engine's escrow identity as the caller argument.
// A non-OK invoke response surfaces as an error before any engine state is
// written, aborting the enclosing transaction.

type chainCollaborators struct {
	inv   ledgerapi.Invoker
	state ledgerapi.State
}

func newChainCollaborators(inv ledgerapi.Invoker, state ledgerapi.State) *chainCollaborators {
	return &chainCollaborators{inv: inv, state: state}
}

func (c *chainCollaborators) target(key string) (string, error) {
	raw, err := c.state.Get(key)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	if raw == nil {
		return "", ErrNotInitialized
	}
	return string(raw), nil
}

func (c *chainCollaborators) identity() (string, error) {
	return c.target(escrowKey)
}

func (c *chainCollaborators) GetScore(user string) (uint32, error) {
	cc, err := c.target(reputationCCKey)
	if err != nil {
		return 0, err
	}
	payload, err := c.inv.Invoke(cc, "GetScore", user)
	if err != nil {
		return 0, err
	}
	score, err := strconv.ParseUint(strings.TrimSpace(string(payload)), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("malformed score %q: %w", payload, err)
	}
	return uint32(score), nil
}

func (c *chainCollaborators) IncreaseScore(user string, amount uint32, reason string) error {
	return c.adjustScore("IncreaseScore", user, amount, reason)
}

func (c *chainCollaborators) DecreaseScore(user string, amount uint32, reason string) error {
	return c.adjustScore("DecreaseScore", user, amount, reason)
}

func (c *chainCollaborators) adjustScore(fn, user string, amount uint32, reason string) error {
	cc, err := c.target(reputationCCKey)
	if err != nil {
		return err
	}
	caller, err := c.identity()
	if err != nil {
		return err
	}
	_, err = c.inv.Invoke(cc, fn, caller, user, strconv.FormatUint(uint64(amount), 10), reason)
	return err
}

func (c *chainCollaborators) IsActive(merchant string) (bool, error) {
	cc, err := c.target(merchantCCKey)
	if err != nil {
		return false, err
	}
	payload, err := c.inv.Invoke(cc, "IsActive", merchant)
	if err != nil {
		return false, err
	}
	active, err := strconv.ParseBool(strings.TrimSpace(string(payload)))
	if err != nil {
		return false, fmt.Errorf("malformed activity flag %q: %w", payload, err)
	}
	return active, nil
}

func (c *chainCollaborators) RecordSale(merchant string, amount int64) error {
	cc, err := c.target(merchantCCKey)
	if err != nil {
		return err
	}
	caller, err := c.identity()
	if err != nil {
		return err
	}
	_, err = c.inv.Invoke(cc, "RecordSale", caller, merchant, strconv.FormatInt(amount, 10))
	return err
}

func (c *chainCollaborators) FundLoan(merchant string, amount int64) error {
	cc, err := c.target(poolCCKey)
	if err != nil {
		return err
	}
	caller, err := c.identity()
	if err != nil {
		return err
	}
	_, err = c.inv.Invoke(cc, "FundLoan", caller, merchant, strconv.FormatInt(amount, 10))
	return err
}

func (c *chainCollaborators) ReceiveRepayment(principal, interest int64) error {
	cc, err := c.target(poolCCKey)
	if err != nil {
		return err
	}
	caller, err := c.identity()
	if err != nil {
		return err
	}
	_, err = c.inv.Invoke(cc, "ReceiveRepayment", caller,
		strconv.FormatInt(principal, 10), strconv.FormatInt(interest, 10))
	return err
}

func (c *chainCollaborators) ReceiveGuarantee(guarantee, principalLost int64) error {
	cc, err := c.target(poolCCKey)
	if err != nil {
		return err
	}
	caller, err := c.identity()
	if err != nil {
		return err
	}
	_, err = c.inv.Invoke(cc, "ReceiveGuarantee", caller,
		strconv.FormatInt(guarantee, 10), strconv.FormatInt(principalLost, 10))
	return err
}

func (c *chainCollaborators) Transfer(from, to string, amount int64) error {
	cc, err := c.target(tokenCCKey)
	if err != nil {
		return err
	}
	_, err = c.inv.Invoke(cc, "Transfer", from, to, strconv.FormatInt(amount, 10))
	return err
}
