package main

import (
	"log"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/trustup-app/trustup/backend/chaincode/reputation/chaincode"
)

func main() {
	reputationChaincode, err := contractapi.NewChaincode(&chaincode.ReputationContract{})
	if err != nil {
		log.Panicf("Error creating reputation chaincode: %v", err)
	}

	if err := reputationChaincode.Start(); err != nil {
		log.Panicf("Error starting reputation chaincode: %v", err)
	}
}
