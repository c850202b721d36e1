package chaincode

import (
	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/trustup-app/trustup/backend/pkg/ledgerapi"
)

// ReputationContract exposes the reputation Store as Fabric chaincode.
// Caller identities arrive as arguments; the surrounding platform has already
// authenticated them, the contract only checks role membership.
type ReputationContract struct {
	contractapi.Contract
}

func storeFrom(ctx contractapi.TransactionContextInterface) *Store {
	led := ledgerapi.NewStubLedger(ctx.GetStub())
	return NewStore(led, led)
}

func (c *ReputationContract) Initialize(ctx contractapi.TransactionContextInterface, admin string) error {
	return storeFrom(ctx).Initialize(admin)
}

func (c *ReputationContract) GetAdmin(ctx contractapi.TransactionContextInterface) (string, error) {
	return storeFrom(ctx).GetAdmin()
}

func (c *ReputationContract) SetAdmin(ctx contractapi.TransactionContextInterface, caller, newAdmin string) error {
	return storeFrom(ctx).SetAdmin(caller, newAdmin)
}

func (c *ReputationContract) SetUpdater(ctx contractapi.TransactionContextInterface, caller, updater string, allowed bool) error {
	return storeFrom(ctx).SetUpdater(caller, updater, allowed)
}

func (c *ReputationContract) IsUpdater(ctx contractapi.TransactionContextInterface, addr string) (bool, error) {
	return storeFrom(ctx).IsUpdater(addr)
}

func (c *ReputationContract) GetScore(ctx contractapi.TransactionContextInterface, user string) (uint32, error) {
	return storeFrom(ctx).GetScore(user)
}

func (c *ReputationContract) IncreaseScore(ctx contractapi.TransactionContextInterface, caller, user string, amount uint32, reason string) error {
	return storeFrom(ctx).IncreaseScore(caller, user, amount, reason)
}

func (c *ReputationContract) DecreaseScore(ctx contractapi.TransactionContextInterface, caller, user string, amount uint32, reason string) error {
	return storeFrom(ctx).DecreaseScore(caller, user, amount, reason)
}
