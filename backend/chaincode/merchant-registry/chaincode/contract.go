package chaincode

import (
	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/trustup-app/trustup/backend/pkg/ledgerapi"
)

// MerchantRegistryContract exposes the merchant Directory as Fabric chaincode.
type MerchantRegistryContract struct {
	contractapi.Contract
}

func directoryFrom(ctx contractapi.TransactionContextInterface) *Directory {
	led := ledgerapi.NewStubLedger(ctx.GetStub())
	return NewDirectory(led, led, led)
}

func (c *MerchantRegistryContract) Initialize(ctx contractapi.TransactionContextInterface, admin string) error {
	return directoryFrom(ctx).Initialize(admin)
}

func (c *MerchantRegistryContract) SetCreditLine(ctx contractapi.TransactionContextInterface, caller, creditLine string) error {
	return directoryFrom(ctx).SetCreditLine(caller, creditLine)
}

func (c *MerchantRegistryContract) RegisterMerchant(ctx contractapi.TransactionContextInterface, caller, merchant, name string) error {
	return directoryFrom(ctx).RegisterMerchant(caller, merchant, name)
}

func (c *MerchantRegistryContract) ActivateMerchant(ctx contractapi.TransactionContextInterface, caller, merchant string) error {
	return directoryFrom(ctx).ActivateMerchant(caller, merchant)
}

func (c *MerchantRegistryContract) DeactivateMerchant(ctx contractapi.TransactionContextInterface, caller, merchant string) error {
	return directoryFrom(ctx).DeactivateMerchant(caller, merchant)
}

func (c *MerchantRegistryContract) IsActive(ctx contractapi.TransactionContextInterface, merchant string) (bool, error) {
	return directoryFrom(ctx).IsActive(merchant)
}

func (c *MerchantRegistryContract) GetMerchant(ctx contractapi.TransactionContextInterface, merchant string) (*MerchantRecord, error) {
	return directoryFrom(ctx).GetMerchant(merchant)
}

func (c *MerchantRegistryContract) GetMerchantCount(ctx contractapi.TransactionContextInterface) (uint64, error) {
	return directoryFrom(ctx).GetMerchantCount()
}

func (c *MerchantRegistryContract) RecordSale(ctx contractapi.TransactionContextInterface, caller, merchant string, amount int64) error {
	return directoryFrom(ctx).RecordSale(caller, merchant, amount)
}
