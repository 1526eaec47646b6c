package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/payengine/internal/model"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func deposit(tx, client int, amount string) model.Deposit {
	return model.Deposit{Tx: model.TxID(tx), Client: model.ClientID(client), Amount: dec(amount)}
}

func withdrawal(tx, client int, amount string) model.Withdrawal {
	return model.Withdrawal{Tx: model.TxID(tx), Client: model.ClientID(client), Amount: dec(amount)}
}

func dispute(tx, client int) model.Dispute {
	return model.Dispute{Tx: model.TxID(tx), Client: model.ClientID(client)}
}

func resolve(tx, client int) model.Resolve {
	return model.Resolve{Tx: model.TxID(tx), Client: model.ClientID(client)}
}

func chargeback(tx, client int) model.Chargeback {
	return model.Chargeback{Tx: model.TxID(tx), Client: model.ClientID(client)}
}

func mustAccount(t *testing.T, e *Engine, client int) model.Account {
	t.Helper()
	a, ok := e.Account(model.ClientID(client))
	require.True(t, ok, "account %d should exist", client)
	return a
}

func assertBalances(t *testing.T, a model.Account, available, held string, locked bool) {
	t.Helper()
	assert.True(t, a.Available.Equal(dec(available)), "available: got %s, want %s", a.Available, available)
	assert.True(t, a.Held.Equal(dec(held)), "held: got %s, want %s", a.Held, held)
	assert.True(t, a.Total().Equal(a.Available.Add(a.Held)))
	assert.Equal(t, locked, a.Locked, "locked")
}

func TestEngine_DepositWithdrawDisputeResolve(t *testing.T) {
	e := New()

	require.NoError(t, e.Apply(deposit(1, 1, "10")))
	assertBalances(t, mustAccount(t, e, 1), "10", "0", false)

	require.NoError(t, e.Apply(withdrawal(2, 1, "5")))
	assertBalances(t, mustAccount(t, e, 1), "5", "0", false)

	err := e.Apply(withdrawal(3, 1, "100"))
	assert.ErrorIs(t, err, ErrInsufficientFundsOrLocked)
	assertBalances(t, mustAccount(t, e, 1), "5", "0", false)

	// The deposit was partly withdrawn, so the dispute drives available negative.
	require.NoError(t, e.Apply(dispute(1, 1)))
	a := mustAccount(t, e, 1)
	assertBalances(t, a, "-5", "10", false)
	assert.True(t, a.Total().Equal(dec("5")))

	require.NoError(t, e.Apply(resolve(1, 1)))
	assertBalances(t, mustAccount(t, e, 1), "5", "0", false)
}

func TestEngine_ChargebackLocksAccount(t *testing.T) {
	e := New()

	require.NoError(t, e.Apply(deposit(4, 2, "20")))
	require.NoError(t, e.Apply(dispute(4, 2)))
	assertBalances(t, mustAccount(t, e, 2), "0", "20", false)

	require.NoError(t, e.Apply(chargeback(4, 2)))
	assertBalances(t, mustAccount(t, e, 2), "0", "0", true)

	err := e.Apply(deposit(5, 2, "50"))
	assert.ErrorIs(t, err, ErrAccountLocked)
	assertBalances(t, mustAccount(t, e, 2), "0", "0", true)

	err = e.Apply(withdrawal(6, 2, "1"))
	assert.ErrorIs(t, err, ErrInsufficientFundsOrLocked)
	assertBalances(t, mustAccount(t, e, 2), "0", "0", true)
}

func TestEngine_RepeatedDisputeIsNoop(t *testing.T) {
	e := New()
	require.NoError(t, e.Apply(deposit(1, 1, "3")))
	require.NoError(t, e.Apply(dispute(1, 1)))

	err := e.Apply(dispute(1, 1))
	assert.ErrorIs(t, err, ErrUnknownOrForeignReference)
	assertBalances(t, mustAccount(t, e, 1), "0", "3", false)
}

func TestEngine_UnknownReferences(t *testing.T) {
	e := New()
	require.NoError(t, e.Apply(deposit(1, 1, "3")))

	for _, tx := range []model.Transaction{dispute(99, 1), resolve(99, 1), chargeback(99, 1)} {
		err := e.Apply(tx)
		var w *Warning
		require.ErrorAs(t, err, &w, "%v", tx)
		assert.Equal(t, KindUnknownOrForeignReference, w.Kind)
		assert.Equal(t, model.TxID(99), w.Tx)
	}
	assertBalances(t, mustAccount(t, e, 1), "3", "0", false)
}

func TestEngine_ForeignReference(t *testing.T) {
	e := New()
	require.NoError(t, e.Apply(deposit(1, 1, "3")))

	err := e.Apply(dispute(1, 2))
	assert.ErrorIs(t, err, ErrUnknownOrForeignReference)
	assertBalances(t, mustAccount(t, e, 1), "3", "0", false)
	assertBalances(t, mustAccount(t, e, 2), "0", "0", false)

	require.NoError(t, e.Apply(dispute(1, 1)))
	assert.ErrorIs(t, e.Apply(resolve(1, 2)), ErrUnknownOrForeignReference)
	assert.ErrorIs(t, e.Apply(chargeback(1, 2)), ErrUnknownOrForeignReference)
	assertBalances(t, mustAccount(t, e, 1), "0", "3", false)
}

func TestEngine_ResolveAndChargebackRequireDispute(t *testing.T) {
	e := New()
	require.NoError(t, e.Apply(deposit(1, 1, "3")))

	assert.ErrorIs(t, e.Apply(resolve(1, 1)), ErrUnknownOrForeignReference)
	assert.ErrorIs(t, e.Apply(chargeback(1, 1)), ErrUnknownOrForeignReference)
	assertBalances(t, mustAccount(t, e, 1), "3", "0", false)
}

func TestEngine_WithdrawalIsNotDisputable(t *testing.T) {
	e := New()
	require.NoError(t, e.Apply(deposit(1, 1, "10")))
	require.NoError(t, e.Apply(withdrawal(2, 1, "4")))

	assert.ErrorIs(t, e.Apply(dispute(2, 1)), ErrUnknownOrForeignReference)
	assertBalances(t, mustAccount(t, e, 1), "6", "0", false)
}

func TestEngine_DuplicateDeposit(t *testing.T) {
	e := New()
	require.NoError(t, e.Apply(deposit(1, 1, "10")))

	err := e.Apply(deposit(1, 1, "10"))
	assert.ErrorIs(t, err, ErrDuplicateTransactionID)

	// Same ID for another client is also a duplicate.
	err = e.Apply(deposit(1, 2, "7"))
	assert.ErrorIs(t, err, ErrDuplicateTransactionID)

	assertBalances(t, mustAccount(t, e, 1), "10", "0", false)
	assertBalances(t, mustAccount(t, e, 2), "0", "0", false)

	// The original deposit still disputes with its own amount.
	require.NoError(t, e.Apply(dispute(1, 1)))
	assertBalances(t, mustAccount(t, e, 1), "0", "10", false)
}

func TestEngine_ChargedBackIsTerminal(t *testing.T) {
	e := New()
	require.NoError(t, e.Apply(deposit(1, 1, "10")))
	require.NoError(t, e.Apply(dispute(1, 1)))
	require.NoError(t, e.Apply(chargeback(1, 1)))

	assert.ErrorIs(t, e.Apply(dispute(1, 1)), ErrUnknownOrForeignReference)
	assert.ErrorIs(t, e.Apply(resolve(1, 1)), ErrUnknownOrForeignReference)
	assert.ErrorIs(t, e.Apply(chargeback(1, 1)), ErrUnknownOrForeignReference)
	assertBalances(t, mustAccount(t, e, 1), "0", "0", true)
}

func TestEngine_ExactWithdrawalLeavesZero(t *testing.T) {
	e := New()
	require.NoError(t, e.Apply(deposit(1, 1, "1.2345")))
	require.NoError(t, e.Apply(withdrawal(2, 1, "1.2345")))
	assertBalances(t, mustAccount(t, e, 1), "0", "0", false)
}

func TestEngine_DecimalPrecision(t *testing.T) {
	e := New()
	require.NoError(t, e.Apply(deposit(1, 1, "0.1")))
	require.NoError(t, e.Apply(deposit(2, 1, "0.2")))
	assertBalances(t, mustAccount(t, e, 1), "0.3", "0", false)
}

func TestEngine_LockFundingAllowsOtherDisputes(t *testing.T) {
	e := New()
	require.Equal(t, LockFunding, e.LockPolicy())

	require.NoError(t, e.Apply(deposit(1, 1, "10")))
	require.NoError(t, e.Apply(deposit(2, 1, "5")))
	require.NoError(t, e.Apply(dispute(2, 1)))
	require.NoError(t, e.Apply(dispute(1, 1)))
	require.NoError(t, e.Apply(chargeback(1, 1)))
	assertBalances(t, mustAccount(t, e, 1), "0", "5", true)

	require.NoError(t, e.Apply(resolve(2, 1)))
	assertBalances(t, mustAccount(t, e, 1), "5", "0", true)
}

func TestEngine_LockFreezeBlocksDisputes(t *testing.T) {
	e := New(WithLockPolicy(LockFreeze))

	require.NoError(t, e.Apply(deposit(1, 1, "10")))
	require.NoError(t, e.Apply(deposit(2, 1, "5")))
	require.NoError(t, e.Apply(dispute(2, 1)))
	require.NoError(t, e.Apply(dispute(1, 1)))
	require.NoError(t, e.Apply(chargeback(1, 1)))

	assert.ErrorIs(t, e.Apply(resolve(2, 1)), ErrAccountLocked)
	assert.ErrorIs(t, e.Apply(chargeback(2, 1)), ErrAccountLocked)
	assertBalances(t, mustAccount(t, e, 1), "0", "5", true)
}

func TestEngine_LazyAccountCreation(t *testing.T) {
	e := New()
	_, ok := e.Account(7)
	assert.False(t, ok)

	assert.Error(t, e.Apply(dispute(1, 7)))
	assertBalances(t, mustAccount(t, e, 7), "0", "0", false)
	assert.Equal(t, 1, e.Len())
}

func TestEngine_SnapshotSortedByClient(t *testing.T) {
	e := New()
	for _, c := range []int{42, 3, 65535, 1, 17} {
		require.NoError(t, e.Apply(deposit(c, c, "1")))
	}

	snap := e.Snapshot()
	require.Len(t, snap, 5)
	var clients []model.ClientID
	for _, a := range snap {
		clients = append(clients, a.Client)
	}
	assert.Equal(t, []model.ClientID{1, 3, 17, 42, 65535}, clients)
}

func TestEngine_SnapshotIsACopy(t *testing.T) {
	e := New()
	require.NoError(t, e.Apply(deposit(1, 1, "10")))
	snap := e.Snapshot()

	require.NoError(t, e.Apply(deposit(2, 1, "10")))
	assert.True(t, snap[0].Available.Equal(dec("10")))
	assertBalances(t, mustAccount(t, e, 1), "20", "0", false)
}

// TestEngine_Invariants replays a mixed stream and checks after every step
// that totals derive from their parts and withdrawals never overdraw.
func TestEngine_Invariants(t *testing.T) {
	e := New()
	stream := []model.Transaction{
		deposit(1, 1, "10"), deposit(2, 2, "3.5"), withdrawal(3, 1, "4"),
		dispute(1, 1), withdrawal(4, 1, "1"), resolve(1, 1), withdrawal(5, 1, "6"),
		dispute(2, 2), chargeback(2, 2), deposit(6, 2, "1"), deposit(7, 3, "2"),
		dispute(7, 3), dispute(7, 3), resolve(8, 3), chargeback(7, 3), withdrawal(9, 3, "1"),
	}
	for i, tx := range stream {
		before, _ := e.Account(tx.ClientID())
		err := e.Apply(tx)
		after := mustAccount(t, e, int(tx.ClientID()))

		assert.True(t, after.Total().Equal(after.Available.Add(after.Held)), "step %d", i)
		if _, ok := tx.(model.Withdrawal); ok && err == nil {
			assert.False(t, after.Available.IsNegative(), "step %d: withdrawal overdrew", i)
		}
		if err != nil {
			assert.True(t, before.Available.Equal(after.Available), "step %d: warning changed available", i)
			assert.True(t, before.Held.Equal(after.Held), "step %d: warning changed held", i)
			assert.Equal(t, before.Locked, after.Locked, "step %d: warning changed lock", i)
		}
	}

	assertBalances(t, mustAccount(t, e, 1), "0", "0", false)
	assertBalances(t, mustAccount(t, e, 2), "0", "0", true)
	assertBalances(t, mustAccount(t, e, 3), "0", "0", true)
}

func TestParseLockPolicy(t *testing.T) {
	p, err := ParseLockPolicy("freeze")
	require.NoError(t, err)
	assert.Equal(t, LockFreeze, p)

	_, err = ParseLockPolicy("nope")
	assert.Error(t, err)
}

func TestWarning_Error(t *testing.T) {
	err := New().Apply(resolve(5, 9))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown_or_foreign_reference [client 9, tx 5]")
	assert.NotErrorIs(t, err, ErrAccountLocked)
}

func TestEngine_NilTransaction(t *testing.T) {
	e := New()
	assert.ErrorIs(t, e.Apply(nil), model.ErrMalformedRecord)
	assert.Equal(t, 0, e.Len())
}
