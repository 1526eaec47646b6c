package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ClientID identifies a client account.
type ClientID uint16

// TxID identifies a transaction. Deposits and withdrawals carry unique IDs;
// disputes, resolves and chargebacks reuse the ID of the deposit they refer to.
type TxID uint32

// Kind names a transaction variant as it appears in input files.
type Kind string

const (
	KindDeposit    Kind = "deposit"
	KindWithdrawal Kind = "withdrawal"
	KindDispute    Kind = "dispute"
	KindResolve    Kind = "resolve"
	KindChargeback Kind = "chargeback"
)

// Transaction is one of Deposit, Withdrawal, Dispute, Resolve or Chargeback.
// The set is closed: only this package can add variants.
type Transaction interface {
	Kind() Kind
	TxID() TxID
	ClientID() ClientID
	isTransaction()
}

// Deposit credits a client's available funds.
type Deposit struct {
	Tx     TxID
	Client ClientID
	Amount decimal.Decimal
}

// Withdrawal debits a client's available funds.
type Withdrawal struct {
	Tx     TxID
	Client ClientID
	Amount decimal.Decimal
}

// Dispute claims that an earlier deposit was erroneous and holds its funds.
type Dispute struct {
	Tx     TxID
	Client ClientID
}

// Resolve closes a dispute and releases the held funds.
type Resolve struct {
	Tx     TxID
	Client ClientID
}

// Chargeback closes a dispute by reversing the deposit and locks the account.
type Chargeback struct {
	Tx     TxID
	Client ClientID
}

func (Deposit) Kind() Kind    { return KindDeposit }
func (Withdrawal) Kind() Kind { return KindWithdrawal }
func (Dispute) Kind() Kind    { return KindDispute }
func (Resolve) Kind() Kind    { return KindResolve }
func (Chargeback) Kind() Kind { return KindChargeback }

func (d Deposit) TxID() TxID    { return d.Tx }
func (w Withdrawal) TxID() TxID { return w.Tx }
func (d Dispute) TxID() TxID    { return d.Tx }
func (r Resolve) TxID() TxID    { return r.Tx }
func (c Chargeback) TxID() TxID { return c.Tx }

func (d Deposit) ClientID() ClientID    { return d.Client }
func (w Withdrawal) ClientID() ClientID { return w.Client }
func (d Dispute) ClientID() ClientID    { return d.Client }
func (r Resolve) ClientID() ClientID    { return r.Client }
func (c Chargeback) ClientID() ClientID { return c.Client }

func (Deposit) isTransaction()    {}
func (Withdrawal) isTransaction() {}
func (Dispute) isTransaction()    {}
func (Resolve) isTransaction()    {}
func (Chargeback) isTransaction() {}

func (d Deposit) String() string {
	return fmt.Sprintf("deposit(tx=%d, client=%d, amount=%s)", d.Tx, d.Client, d.Amount)
}

func (w Withdrawal) String() string {
	return fmt.Sprintf("withdrawal(tx=%d, client=%d, amount=%s)", w.Tx, w.Client, w.Amount)
}

func (d Dispute) String() string {
	return fmt.Sprintf("dispute(tx=%d, client=%d)", d.Tx, d.Client)
}

func (r Resolve) String() string {
	return fmt.Sprintf("resolve(tx=%d, client=%d)", r.Tx, r.Client)
}

func (c Chargeback) String() string {
	return fmt.Sprintf("chargeback(tx=%d, client=%d)", c.Tx, c.Client)
}
