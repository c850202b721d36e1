package main

import (
	"log"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/trustup-app/trustup/backend/chaincode/liquidity-pool/chaincode"
)

func main() {
	poolChaincode, err := contractapi.NewChaincode(&chaincode.LiquidityPoolContract{})
	if err != nil {
		log.Panicf("Error creating liquidity pool chaincode: %v", err)
	}

	if err := poolChaincode.Start(); err != nil {
		log.Panicf("Error starting liquidity pool chaincode: %v", err)
	}
}
