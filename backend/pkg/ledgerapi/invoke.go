package ledgerapi

import (
	"fmt"

	"github.com/hyperledger/fabric-chaincode-go/shim"
)

// Invoker submits a function call to another chaincode on the same channel.
// The invoked transaction joins the caller's read/write set, so a failure on
// either side aborts both — cross-contract calls are all-or-nothing.
type Invoker interface {
	Invoke(chaincodeName, fn string, args ...string) ([]byte, error)
}

// StubInvoker implements Invoker over a chaincode stub.
type StubInvoker struct {
	stub shim.ChaincodeStubInterface
}

func NewStubInvoker(stub shim.ChaincodeStubInterface) *StubInvoker {
	return &StubInvoker{stub: stub}
}

func (i *StubInvoker) Invoke(chaincodeName, fn string, args ...string) ([]byte, error) {
	ccArgs := make([][]byte, 0, len(args)+1)
	ccArgs = append(ccArgs, []byte(fn))
	for _, a := range args {
		ccArgs = append(ccArgs, []byte(a))
	}
	resp := i.stub.InvokeChaincode(chaincodeName, ccArgs, "")
	if resp.Status != shim.OK {
		return nil, fmt.Errorf("invoke %s.%s failed: %s", chaincodeName, fn, resp.Message)
	}
	return resp.Payload, nil
}
