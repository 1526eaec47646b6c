package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// MaxAmountScale is the number of decimal places an amount may carry.
	MaxAmountScale = 4
	// MaxAmountIntegerDigits bounds the digits before the decimal point.
	MaxAmountIntegerDigits = 24
)

// ErrMalformedRecord matches every *MalformedRecordError.
var ErrMalformedRecord = errors.New("malformed record")

// RawRecord is an untyped row before validation. Empty strings mean the
// field was absent.
type RawRecord struct {
	Line   int // 1-based source line, 0 if unknown
	Kind   string
	Client string
	Tx     string
	Amount string
}

// MalformedRecordError describes why a RawRecord could not become a Transaction.
type MalformedRecordError struct {
	Line   int
	Field  string
	Value  string
	Reason string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	msg := fmt.Sprintf("malformed record: %s", e.Reason)
	if e.Field != "" {
		msg = fmt.Sprintf("malformed record: %s %q: %s", e.Field, e.Value, e.Reason)
	}
	if e.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrMalformedRecord) match.
func (e *MalformedRecordError) Is(target error) bool { return target == ErrMalformedRecord }

// ParseRecord validates raw and builds the matching Transaction variant.
// Amounts on dispute, resolve and chargeback rows are ignored.
func ParseRecord(raw RawRecord) (Transaction, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(raw.Kind)))
	if kind == "" {
		return nil, malformed(raw, "type", "", "missing", nil)
	}

	client, err := parseClient(raw)
	if err != nil {
		return nil, err
	}
	tx, err := parseTx(raw)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindDeposit:
		amount, err := parseAmount(raw)
		if err != nil {
			return nil, err
		}
		return Deposit{Tx: tx, Client: client, Amount: amount}, nil
	case KindWithdrawal:
		amount, err := parseAmount(raw)
		if err != nil {
			return nil, err
		}
		return Withdrawal{Tx: tx, Client: client, Amount: amount}, nil
	case KindDispute:
		return Dispute{Tx: tx, Client: client}, nil
	case KindResolve:
		return Resolve{Tx: tx, Client: client}, nil
	case KindChargeback:
		return Chargeback{Tx: tx, Client: client}, nil
	default:
		return nil, malformed(raw, "type", raw.Kind, "unknown transaction kind", nil)
	}
}

func parseClient(raw RawRecord) (ClientID, error) {
	s := strings.TrimSpace(raw.Client)
	if s == "" {
		return 0, malformed(raw, "client", "", "missing", nil)
	}
	v, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, malformed(raw, "client", s, "not a valid client id", err)
	}
	return ClientID(v), nil
}

func parseTx(raw RawRecord) (TxID, error) {
	s := strings.TrimSpace(raw.Tx)
	if s == "" {
		return 0, malformed(raw, "tx", "", "missing", nil)
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, malformed(raw, "tx", s, "not a valid transaction id", err)
	}
	return TxID(v), nil
}

func parseAmount(raw RawRecord) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw.Amount)
	if s == "" {
		return decimal.Zero, malformed(raw, "amount", "", "missing", nil)
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, malformed(raw, "amount", s, "not a decimal", err)
	}
	if !amount.IsPositive() {
		return decimal.Zero, malformed(raw, "amount", s, "must be positive", nil)
	}
	// Exponent notation can name values whose expansion is unbounded.
	if intDigits := int64(amount.NumDigits()) + int64(amount.Exponent()); intDigits > MaxAmountIntegerDigits {
		return decimal.Zero, malformed(raw, "amount", s, "out of range", nil)
	}
	if !amount.Shift(MaxAmountScale).IsInteger() {
		return decimal.Zero, malformed(raw, "amount", s, fmt.Sprintf("more than %d decimal places", MaxAmountScale), nil)
	}
	return amount, nil
}

func malformed(raw RawRecord, field, value, reason string, err error) *MalformedRecordError {
	return &MalformedRecordError{Line: raw.Line, Field: field, Value: value, Reason: reason, Err: err}
}
