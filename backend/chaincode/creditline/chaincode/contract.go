package chaincode

import (
	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/trustup-app/trustup/backend/pkg/ledgerapi"
)

// CreditLineContract exposes the Engine as Fabric chaincode.
type CreditLineContract struct {
	contractapi.Contract
}

func engineFrom(ctx contractapi.TransactionContextInterface) *Engine {
	stub := ctx.GetStub()
	led := ledgerapi.NewStubLedger(stub)
	collab := newChainCollaborators(ledgerapi.NewStubInvoker(stub), led)
	return NewEngine(led, led, led, collab, collab, collab, collab)
}

func (c *CreditLineContract) Initialize(ctx contractapi.TransactionContextInterface, admin, escrowAccount, reputationCC, merchantCC, poolCC, tokenCC string) error {
	return engineFrom(ctx).Initialize(admin, escrowAccount, reputationCC, merchantCC, poolCC, tokenCC)
}

func (c *CreditLineContract) GetAdmin(ctx contractapi.TransactionContextInterface) (string, error) {
	return engineFrom(ctx).GetAdmin()
}

func (c *CreditLineContract) SetAdmin(ctx contractapi.TransactionContextInterface, caller, newAdmin string) error {
	return engineFrom(ctx).SetAdmin(caller, newAdmin)
}

func (c *CreditLineContract) SetEscrowAccount(ctx contractapi.TransactionContextInterface, caller, escrowAccount string) error {
	return engineFrom(ctx).SetEscrowAccount(caller, escrowAccount)
}

func (c *CreditLineContract) SetReputationChaincode(ctx contractapi.TransactionContextInterface, caller, name string) error {
	return engineFrom(ctx).SetReputationChaincode(caller, name)
}

func (c *CreditLineContract) SetMerchantChaincode(ctx contractapi.TransactionContextInterface, caller, name string) error {
	return engineFrom(ctx).SetMerchantChaincode(caller, name)
}

func (c *CreditLineContract) SetPoolChaincode(ctx contractapi.TransactionContextInterface, caller, name string) error {
	return engineFrom(ctx).SetPoolChaincode(caller, name)
}

func (c *CreditLineContract) SetTokenChaincode(ctx contractapi.TransactionContextInterface, caller, name string) error {
	return engineFrom(ctx).SetTokenChaincode(caller, name)
}

func (c *CreditLineContract) CreateLoan(ctx contractapi.TransactionContextInterface, borrower, merchant string, amount, guarantee, dueDate int64) (uint64, error) {
	return engineFrom(ctx).CreateLoan(borrower, merchant, amount, guarantee, dueDate)
}

func (c *CreditLineContract) RepayLoan(ctx contractapi.TransactionContextInterface, borrower string, loanID uint64, amount int64) (int64, error) {
	return engineFrom(ctx).RepayLoan(borrower, loanID, amount)
}

func (c *CreditLineContract) MarkDefaulted(ctx contractapi.TransactionContextInterface, loanID uint64) error {
	return engineFrom(ctx).MarkDefaulted(loanID)
}

func (c *CreditLineContract) GetLoan(ctx contractapi.TransactionContextInterface, loanID uint64) (*Loan, error) {
	return engineFrom(ctx).GetLoan(loanID)
}

func (c *CreditLineContract) GetUserLoans(ctx contractapi.TransactionContextInterface, borrower string) ([]*Loan, error) {
	return engineFrom(ctx).GetUserLoans(borrower)
}

func (c *CreditLineContract) GetRemainingBalance(ctx contractapi.TransactionContextInterface, loanID uint64) (int64, error) {
	return engineFrom(ctx).GetRemainingBalance(loanID)
}
