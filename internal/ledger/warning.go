package ledger

import (
	"errors"
	"fmt"

	"github.com/cleared-dev/payengine/internal/model"
)

// WarningKind classifies a record that was skipped.
type WarningKind string

const (
	KindMalformedRecord           WarningKind = "malformed_record"
	KindAccountLocked             WarningKind = "account_locked"
	KindDuplicateTransactionID    WarningKind = "duplicate_transaction_id"
	KindInsufficientFundsOrLocked WarningKind = "insufficient_funds_or_locked"
	KindUnknownOrForeignReference WarningKind = "unknown_or_foreign_reference"
)

// Kinds lists every warning kind in a stable order.
var Kinds = []WarningKind{
	KindMalformedRecord,
	KindAccountLocked,
	KindDuplicateTransactionID,
	KindInsufficientFundsOrLocked,
	KindUnknownOrForeignReference,
}

var (
	ErrAccountLocked             = errors.New("account locked")
	ErrDuplicateTransactionID    = errors.New("duplicate transaction id")
	ErrInsufficientFundsOrLocked = errors.New("insufficient funds or account locked")
	ErrUnknownOrForeignReference = errors.New("unknown or foreign transaction reference")
)

var sentinels = map[WarningKind]error{
	KindMalformedRecord:           model.ErrMalformedRecord,
	KindAccountLocked:             ErrAccountLocked,
	KindDuplicateTransactionID:    ErrDuplicateTransactionID,
	KindInsufficientFundsOrLocked: ErrInsufficientFundsOrLocked,
	KindUnknownOrForeignReference: ErrUnknownOrForeignReference,
}

// Warning reports a transaction that was not applied. The engine state is
// unchanged when Apply returns one.
type Warning struct {
	Kind   WarningKind
	Client model.ClientID
	Tx     model.TxID
	Detail string
}

func (w *Warning) Error() string {
	msg := fmt.Sprintf("%s [client %d, tx %d]", w.Kind, w.Client, w.Tx)
	if w.Detail != "" {
		msg += ": " + w.Detail
	}
	return msg
}

// Is matches the sentinel error for the warning's kind.
func (w *Warning) Is(target error) bool {
	return sentinels[w.Kind] == target
}

func warn(kind WarningKind, tx model.Transaction, format string, args ...any) *Warning {
	return &Warning{
		Kind:   kind,
		Client: tx.ClientID(),
		Tx:     tx.TxID(),
		Detail: fmt.Sprintf(format, args...),
	}
}
