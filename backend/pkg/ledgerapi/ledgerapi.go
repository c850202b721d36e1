// Package ledgerapi abstracts the pieces of the Fabric transaction context the
// contracts actually use: keyed world-state access, event emission, and the
// ledger timestamp. Contract engines are written against these interfaces so
// their business rules can be exercised with the in-memory ledger in tests,
// without a running Fabric host.
package ledgerapi

import (
	"github.com/hyperledger/fabric-chaincode-go/shim"
)

// State is keyed access to a contract's world-state namespace. Get returns
// (nil, nil) when the key is absent.
type State interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Delete(key string) error
}

// EventSink publishes a named event with a JSON payload. Events are emitted
// for every state mutation so off-chain auditors can reconstruct history.
type EventSink interface {
	Emit(name string, payload []byte) error
}

// Clock reads the ledger timestamp (unix seconds) for the executing
// transaction.
type Clock interface {
	Now() (int64, error)
}

// StubLedger adapts a chaincode stub to State, EventSink and Clock.
type StubLedger struct {
	stub shim.ChaincodeStubInterface
}

func NewStubLedger(stub shim.ChaincodeStubInterface) *StubLedger {
	return &StubLedger{stub: stub}
}

func (l *StubLedger) Get(key string) ([]byte, error) {
	return l.stub.GetState(key)
}

func (l *StubLedger) Put(key string, value []byte) error {
	return l.stub.PutState(key, value)
}

func (l *StubLedger) Delete(key string) error {
	return l.stub.DelState(key)
}

func (l *StubLedger) Emit(name string, payload []byte) error {
	return l.stub.SetEvent(name, payload)
}

// Now returns the timestamp of the transaction proposal, which is identical
// on every endorsing peer (time.Now would not be).
func (l *StubLedger) Now() (int64, error) {
	ts, err := l.stub.GetTxTimestamp()
	if err != nil {
		return 0, err
	}
	return ts.Seconds, nil
}
