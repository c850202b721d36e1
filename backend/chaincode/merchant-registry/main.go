package main

import (
	"log"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/trustup-app/trustup/backend/chaincode/merchant-registry/chaincode"
)

func main() {
	registryChaincode, err := contractapi.NewChaincode(&chaincode.MerchantRegistryContract{})
	if err != nil {
		log.Panicf("Error creating merchant registry chaincode: %v", err)
	}

	if err := registryChaincode.Start(); err != nil {
		log.Panicf("Error starting merchant registry chaincode: %v", err)
	}
}
