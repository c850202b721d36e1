package chaincode

import (
	"fmt"
	"strconv"

	"github.com/trustup-app/trustup/backend/pkg/ledgerapi"
)

// chainTokenMover moves value by invoking the configured token chaincode.
// The token contract's Transfer is atomic: a failed invoke leaves no partial
// balance change and aborts the enclosing pool transaction.
type chainTokenMover struct {
	inv   ledgerapi.Invoker
	state ledgerapi.State
}

func newChainTokenMover(inv ledgerapi.Invoker, state ledgerapi.State) *chainTokenMover {
	return &chainTokenMover{inv: inv, state: state}
}

func (m *chainTokenMover) Transfer(from, to string, amount int64) error {
	raw, err := m.state.Get(tokenKey)
	if err != nil {
		return fmt.Errorf("failed to read token chaincode name: %w", err)
	}
	if raw == nil {
		return ErrNotInitialized
	}
	_, err = m.inv.Invoke(string(raw), "Transfer", from, to, strconv.FormatInt(amount, 10))
	return err
}
