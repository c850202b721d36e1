package chaincode

import (
	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/trustup-app/trustup/backend/pkg/ledgerapi"
)

// LiquidityPoolContract exposes the Pool as Fabric chaincode.
type LiquidityPoolContract struct {
	contractapi.Contract
}

func poolFrom(ctx contractapi.TransactionContextInterface) *Pool {
	stub := ctx.GetStub()
	led := ledgerapi.NewStubLedger(stub)
	token := newChainTokenMover(ledgerapi.NewStubInvoker(stub), led)
	return NewPool(led, led, token)
}

func (c *LiquidityPoolContract) Initialize(ctx contractapi.TransactionContextInterface, admin, tokenChaincode, poolAccount, treasury, merchantFund string) error {
	return poolFrom(ctx).Initialize(admin, tokenChaincode, poolAccount, treasury, merchantFund)
}

func (c *LiquidityPoolContract) GetAdmin(ctx contractapi.TransactionContextInterface) (string, error) {
	return poolFrom(ctx).GetAdmin()
}

func (c *LiquidityPoolContract) SetAdmin(ctx contractapi.TransactionContextInterface, caller, newAdmin string) error {
	return poolFrom(ctx).SetAdmin(caller, newAdmin)
}

func (c *LiquidityPoolContract) SetCreditLine(ctx contractapi.TransactionContextInterface, caller, creditLine string) error {
	return poolFrom(ctx).SetCreditLine(caller, creditLine)
}

func (c *LiquidityPoolContract) SetTreasury(ctx contractapi.TransactionContextInterface, caller, treasury string) error {
	return poolFrom(ctx).SetTreasury(caller, treasury)
}

func (c *LiquidityPoolContract) SetMerchantFund(ctx contractapi.TransactionContextInterface, caller, merchantFund string) error {
	return poolFrom(ctx).SetMerchantFund(caller, merchantFund)
}

func (c *LiquidityPoolContract) Deposit(ctx contractapi.TransactionContextInterface, provider string, amount int64) (int64, error) {
	return poolFrom(ctx).Deposit(provider, amount)
}

func (c *LiquidityPoolContract) Withdraw(ctx contractapi.TransactionContextInterface, provider string, shares int64) (int64, error) {
	return poolFrom(ctx).Withdraw(provider, shares)
}

func (c *LiquidityPoolContract) FundLoan(ctx contractapi.TransactionContextInterface, caller, merchant string, amount int64) error {
	return poolFrom(ctx).FundLoan(caller, merchant, amount)
}

func (c *LiquidityPoolContract) ReceiveRepayment(ctx contractapi.TransactionContextInterface, caller string, principal, interest int64) error {
	return poolFrom(ctx).ReceiveRepayment(caller, principal, interest)
}

func (c *LiquidityPoolContract) ReceiveGuarantee(ctx contractapi.TransactionContextInterface, caller string, guarantee, principalLost int64) error {
	return poolFrom(ctx).ReceiveGuarantee(caller, guarantee, principalLost)
}

func (c *LiquidityPoolContract) GetPoolStats(ctx contractapi.TransactionContextInterface) (*PoolStats, error) {
	return poolFrom(ctx).GetPoolStats()
}

func (c *LiquidityPoolContract) GetProviderShares(ctx contractapi.TransactionContextInterface, provider string) (int64, error) {
	return poolFrom(ctx).GetProviderShares(provider)
}

func (c *LiquidityPoolContract) CalculateWithdrawal(ctx contractapi.TransactionContextInterface, shares int64) (int64, error) {
	return poolFrom(ctx).CalculateWithdrawal(shares)
}
