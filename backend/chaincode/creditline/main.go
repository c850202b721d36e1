package main

import (
	"log"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/trustup-app/trustup/backend/chaincode/creditline/chaincode"
)

func main() {
	creditChaincode, err := contractapi.NewChaincode(&chaincode.CreditLineContract{})
	if err != nil {
		log.Panicf("Error creating creditline chaincode: %v", err)
	}

	if err := creditChaincode.Start(); err != nil {
		log.Panicf("Error starting creditline chaincode: %v", err)
	}
}
