package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/payengine/internal/model"
)

// DisputeState is the lifecycle state of an indexed deposit.
type DisputeState string

const (
	StateNormal      DisputeState = "normal"
	StateDisputed    DisputeState = "disputed"
	StateChargedBack DisputeState = "charged-back"
)

// allowedTransitions lists the states each state may move to. A resolve
// returns a deposit to normal; charged-back is terminal.
var allowedTransitions = map[DisputeState][]DisputeState{
	StateNormal:      {StateDisputed},
	StateDisputed:    {StateNormal, StateChargedBack},
	StateChargedBack: {},
}

func canTransition(from, to DisputeState) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type indexEntry struct {
	client model.ClientID
	amount decimal.Decimal
	state  DisputeState
}

// disputeIndex maps deposit IDs to their owner, amount and state.
type disputeIndex map[model.TxID]*indexEntry

// lookup returns the entry for tx if it belongs to client and may move to
// next. ok is false otherwise.
func (idx disputeIndex) lookup(tx model.TxID, client model.ClientID, next DisputeState) (entry *indexEntry, ok bool) {
	entry, found := idx[tx]
	if !found || entry.client != client {
		return nil, false
	}
	if !canTransition(entry.state, next) {
		return entry, false
	}
	return entry, true
}
