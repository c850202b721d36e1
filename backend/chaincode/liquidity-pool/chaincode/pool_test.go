package chaincode

import (
	"errors"
	"fmt"
	"testing"

	"github.com/trustup-app/trustup/backend/pkg/ledgerapi"
)

// fakeTokenMover records transfers and can be told to fail, mirroring the
// external token contract without a ledger host.
type fakeTokenMover struct {
	transfers []string
	failNext  error
}

func (f *fakeTokenMover) Transfer(from, to string, amount int64) error {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	f.transfers = append(f.transfers, fmt.Sprintf("%s->%s:%d", from, to, amount))
	return nil
}

func newTestPool(t *testing.T) (*Pool, *ledgerapi.MemLedger, *fakeTokenMover) {
	t.Helper()
	led := ledgerapi.NewMemLedger()
	token := &fakeTokenMover{}
	pool := NewPool(led, led, token)
	if err := pool.Initialize("admin-1", "token-cc", "pool-account", "treasury", "merchant-fund"); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := pool.SetCreditLine("admin-1", "creditline-cc"); err != nil {
		t.Fatalf("set creditline: %v", err)
	}
	return pool, led, token
}

func assertInvariants(t *testing.T, pool *Pool, providers []string) {
	t.Helper()
	stats, err := pool.GetPoolStats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalLiquidity < stats.LockedLiquidity {
		t.Fatalf("liquidity invariant broken: total %d < locked %d", stats.TotalLiquidity, stats.LockedLiquidity)
	}
	var sum int64
	for _, p := range providers {
		s, err := pool.GetProviderShares(p)
		if err != nil {
			t.Fatalf("shares %s: %v", p, err)
		}
		sum += s
	}
	if sum != stats.TotalShares {
		t.Fatalf("share conservation broken: sum %d != total %d", sum, stats.TotalShares)
	}
}

func TestFirstDepositPricesSharesOneToOne(t *testing.T) {
	pool, _, token := newTestPool(t)

	shares, err := pool.Deposit("lp-1", 1000)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if shares != 1000 {
		t.Fatalf("expected 1000 shares, got %d", shares)
	}
	if len(token.transfers) != 1 || token.transfers[0] != "lp-1->pool-account:1000" {
		t.Fatalf("unexpected transfers %v", token.transfers)
	}

	// Second provider at unchanged price 1.0.
	shares, err = pool.Deposit("lp-2", 500)
	if err != nil {
		t.Fatalf("second deposit: %v", err)
	}
	if shares != 500 {
		t.Fatalf("expected 500 shares, got %d", shares)
	}
	assertInvariants(t, pool, []string{"lp-1", "lp-2"})
}

func TestDepositRejectsNonPositiveAmount(t *testing.T) {
	pool, _, _ := newTestPool(t)
	if _, err := pool.Deposit("lp-1", 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := pool.Deposit("lp-1", -5); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestDepositTooSmallToIssueShareFails(t *testing.T) {
	pool, _, _ := newTestPool(t)
	if _, err := pool.Deposit("lp-1", 1000); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	// Inflate the share price: interest with no new shares.
	fundAndRepay(t, pool, 100, 2000)

	// Price is now > 1; a 1-unit deposit truncates to zero shares.
	_, err := pool.Deposit("lp-2", 1)
	if !errors.Is(err, ErrBelowMinimumShare) {
		t.Fatalf("expected ErrBelowMinimumShare, got %v", err)
	}
	assertInvariants(t, pool, []string{"lp-1", "lp-2"})
}

func TestWithdraw(t *testing.T) {
	pool, led, token := newTestPool(t)
	if _, err := pool.Deposit("lp-1", 1000); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	amount, err := pool.Withdraw("lp-1", 400)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if amount != 400 {
		t.Fatalf("expected 400 back at price 1.0, got %d", amount)
	}
	if token.transfers[len(token.transfers)-1] != "pool-account->lp-1:400" {
		t.Fatalf("unexpected transfers %v", token.transfers)
	}
	if len(led.EventsNamed(WithdrawEvent)) != 1 {
		t.Fatal("expected WithdrawEvent")
	}
	assertInvariants(t, pool, []string{"lp-1"})
}

func TestWithdrawAllRemovesShareEntry(t *testing.T) {
	pool, _, _ := newTestPool(t)
	if _, err := pool.Deposit("lp-1", 1000); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := pool.Withdraw("lp-1", 1000); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	shares, err := pool.GetProviderShares("lp-1")
	if err != nil || shares != 0 {
		t.Fatalf("expected zero shares, got %d, %v", shares, err)
	}
	assertInvariants(t, pool, []string{"lp-1"})
}

func TestWithdrawMoreThanOwnedFails(t *testing.T) {
	pool, _, _ := newTestPool(t)
	if _, err := pool.Deposit("lp-1", 1000); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := pool.Withdraw("lp-1", 1001); !errors.Is(err, ErrInsufficientShares) {
		t.Fatalf("expected ErrInsufficientShares, got %v", err)
	}
}

func TestWithdrawLockedCapitalFails(t *testing.T) {
	pool, _, _ := newTestPool(t)
	if _, err := pool.Deposit("lp-1", 1000); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := pool.FundLoan("creditline-cc", "merchant-1", 800); err != nil {
		t.Fatalf("fund: %v", err)
	}

	// 800 of 1000 is out on loan; withdrawing all shares needs 1000.
	if _, err := pool.Withdraw("lp-1", 1000); !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity, got %v", err)
	}
	// A partial withdrawal inside the available window still works.
	if _, err := pool.Withdraw("lp-1", 200); err != nil {
		t.Fatalf("partial withdraw: %v", err)
	}
	assertInvariants(t, pool, []string{"lp-1"})
}

func TestFundLoanRestrictedToCreditLine(t *testing.T) {
	pool, _, _ := newTestPool(t)
	if _, err := pool.Deposit("lp-1", 1000); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := pool.FundLoan("intruder", "merchant-1", 100); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := pool.ReceiveRepayment("intruder", 100, 0); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := pool.ReceiveGuarantee("intruder", 100, 0); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestFundLoanBeyondAvailableFails(t *testing.T) {
	pool, _, _ := newTestPool(t)
	if _, err := pool.Deposit("lp-1", 1000); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := pool.FundLoan("creditline-cc", "merchant-1", 1001); !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity, got %v", err)
	}
	if err := pool.FundLoan("creditline-cc", "merchant-1", 600); err != nil {
		t.Fatalf("fund: %v", err)
	}
	if err := pool.FundLoan("creditline-cc", "merchant-2", 500); !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity on locked remainder, got %v", err)
	}
	assertInvariants(t, pool, []string{"lp-1"})
}

// fundAndRepay pushes a principal+interest round trip through the pool.
func fundAndRepay(t *testing.T, pool *Pool, principal, interest int64) {
	t.Helper()
	if err := pool.FundLoan("creditline-cc", "merchant-1", principal); err != nil {
		t.Fatalf("fund: %v", err)
	}
	if err := pool.ReceiveRepayment("creditline-cc", principal, interest); err != nil {
		t.Fatalf("repay: %v", err)
	}
}

func TestRepaymentInterestRaisesSharePrice(t *testing.T) {
	pool, led, token := newTestPool(t)
	if _, err := pool.Deposit("lp-1", 10_000); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	before, _ := pool.GetPoolStats()
	fundAndRepay(t, pool, 1000, 1000)
	after, _ := pool.GetPoolStats()

	if after.SharePriceBps <= before.SharePriceBps {
		t.Fatalf("share price did not appreciate: %d -> %d", before.SharePriceBps, after.SharePriceBps)
	}
	// 85% of 1000 stays, 10% to treasury, 5% to merchant fund.
	if after.TotalLiquidity != 10_850 {
		t.Fatalf("expected total liquidity 10850, got %d", after.TotalLiquidity)
	}
	if after.LockedLiquidity != 0 {
		t.Fatalf("expected locked 0, got %d", after.LockedLiquidity)
	}
	found := map[string]bool{}
	for _, tr := range token.transfers {
		found[tr] = true
	}
	if !found["pool-account->treasury:100"] || !found["pool-account->merchant-fund:50"] {
		t.Fatalf("fee transfers missing: %v", token.transfers)
	}
	if len(led.EventsNamed(InterestDistributedEvent)) != 1 {
		t.Fatal("expected InterestDistributedEvent")
	}
	assertInvariants(t, pool, []string{"lp-1"})
}

func TestRepaymentWithoutFeeAccountsKeepsInterestInPool(t *testing.T) {
	led := ledgerapi.NewMemLedger()
	token := &fakeTokenMover{}
	pool := NewPool(led, led, token)
	if err := pool.Initialize("admin-1", "token-cc", "pool-account", "", ""); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := pool.SetCreditLine("admin-1", "creditline-cc"); err != nil {
		t.Fatalf("set creditline: %v", err)
	}
	if _, err := pool.Deposit("lp-1", 10_000); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	fundAndRepay(t, pool, 1000, 1000)
	stats, _ := pool.GetPoolStats()
	if stats.TotalLiquidity != 11_000 {
		t.Fatalf("expected all interest retained, total 11000, got %d", stats.TotalLiquidity)
	}
}

func TestRepaymentExceedingLockedFails(t *testing.T) {
	pool, _, _ := newTestPool(t)
	if _, err := pool.Deposit("lp-1", 1000); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := pool.FundLoan("creditline-cc", "merchant-1", 100); err != nil {
		t.Fatalf("fund: %v", err)
	}
	if err := pool.ReceiveRepayment("creditline-cc", 101, 0); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("expected ErrInvariantViolation, got %v", err)
	}
}

func TestGuaranteeAbsorbsDefaultLoss(t *testing.T) {
	pool, led, _ := newTestPool(t)
	if _, err := pool.Deposit("lp-1", 1000); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := pool.FundLoan("creditline-cc", "merchant-1", 500); err != nil {
		t.Fatalf("fund: %v", err)
	}

	// Guarantee 100 against principal 500: pool eats a 400 net loss.
	if err := pool.ReceiveGuarantee("creditline-cc", 100, 500); err != nil {
		t.Fatalf("receive guarantee: %v", err)
	}
	stats, _ := pool.GetPoolStats()
	if stats.TotalLiquidity != 600 {
		t.Fatalf("expected total 600 after loss, got %d", stats.TotalLiquidity)
	}
	if stats.LockedLiquidity != 0 {
		t.Fatalf("expected locked released, got %d", stats.LockedLiquidity)
	}
	if len(led.EventsNamed(GuaranteeReceivedEvent)) != 1 {
		t.Fatal("expected GuaranteeReceivedEvent")
	}
	assertInvariants(t, pool, []string{"lp-1"})
}

func TestFailedTokenTransferLeavesStateUntouched(t *testing.T) {
	pool, _, token := newTestPool(t)
	if _, err := pool.Deposit("lp-1", 1000); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	token.failNext = errors.New("token transfer rejected")
	if _, err := pool.Deposit("lp-2", 500); err == nil {
		t.Fatal("expected deposit to fail")
	}
	stats, _ := pool.GetPoolStats()
	if stats.TotalLiquidity != 1000 || stats.TotalShares != 1000 {
		t.Fatalf("state mutated after failed transfer: %+v", stats)
	}
	shares, _ := pool.GetProviderShares("lp-2")
	if shares != 0 {
		t.Fatalf("expected no shares for lp-2, got %d", shares)
	}
}

func TestShareConservationUnderMixedTraffic(t *testing.T) {
	pool, _, _ := newTestPool(t)
	providers := []string{"lp-1", "lp-2", "lp-3"}

	steps := []func() error{
		func() error { _, err := pool.Deposit("lp-1", 1000); return err },
		func() error { _, err := pool.Deposit("lp-2", 2500); return err },
		func() error { return pool.FundLoan("creditline-cc", "merchant-1", 2000) },
		func() error { _, err := pool.Deposit("lp-3", 700); return err },
		func() error { return pool.ReceiveRepayment("creditline-cc", 2000, 200) },
		func() error { _, err := pool.Withdraw("lp-2", 1300); return err },
		func() error { _, err := pool.Deposit("lp-1", 40); return err },
		func() error { _, err := pool.Withdraw("lp-3", 700); return err },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		assertInvariants(t, pool, providers)
	}
}

func TestInitializeTwiceFailsPool(t *testing.T) {
	pool, _, _ := newTestPool(t)
	err := pool.Initialize("admin-2", "token-cc", "pool-account", "", "")
	if !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}
}

func TestAdminTransferLocksOutOldAdmin(t *testing.T) {
	pool, _, _ := newTestPool(t)
	if err := pool.SetAdmin("admin-1", "admin-2"); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if err := pool.SetTreasury("admin-1", "x"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected old admin locked out, got %v", err)
	}
	if err := pool.SetTreasury("admin-2", "x"); err != nil {
		t.Fatalf("new admin should succeed: %v", err)
	}
}
