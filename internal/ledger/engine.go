package ledger

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/payengine/internal/model"
)

// LockPolicy decides what a locked account still accepts.
type LockPolicy string

const (
	// LockFunding blocks new deposits and withdrawals only. Disputes,
	// resolves and chargebacks against earlier deposits still apply.
	LockFunding LockPolicy = "funding"
	// LockFreeze blocks every transaction on a locked account.
	LockFreeze LockPolicy = "freeze"
)

// ParseLockPolicy accepts "funding" or "freeze".
func ParseLockPolicy(s string) (LockPolicy, error) {
	switch p := LockPolicy(s); p {
	case LockFunding, LockFreeze:
		return p, nil
	}
	return "", fmt.Errorf("unknown lock policy %q (want %q or %q)", s, LockFunding, LockFreeze)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLockPolicy sets the lock policy. The default is LockFunding.
func WithLockPolicy(p LockPolicy) Option {
	return func(e *Engine) { e.lockPolicy = p }
}

type account struct {
	available decimal.Decimal
	held      decimal.Decimal
	locked    bool
}

// Engine folds transactions into account balances. It owns the account
// table and the dispute index and is not safe for concurrent use.
type Engine struct {
	accounts   map[model.ClientID]*account
	index      disputeIndex
	lockPolicy LockPolicy
}

// New creates an empty Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		accounts:   make(map[model.ClientID]*account),
		index:      make(disputeIndex),
		lockPolicy: LockFunding,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// LockPolicy returns the policy the engine was built with.
func (e *Engine) LockPolicy() LockPolicy { return e.lockPolicy }

// Apply applies one transaction. It returns nil or a *Warning; on a warning
// no balance, lock flag or dispute state has changed.
func (e *Engine) Apply(tx model.Transaction) error {
	if tx == nil {
		return &Warning{Kind: KindMalformedRecord, Detail: "nil transaction"}
	}
	acct := e.account(tx.ClientID())

	switch t := tx.(type) {
	case model.Deposit:
		return e.deposit(acct, t)
	case model.Withdrawal:
		return e.withdraw(acct, t)
	case model.Dispute:
		return e.dispute(acct, t)
	case model.Resolve:
		return e.resolve(acct, t)
	case model.Chargeback:
		return e.chargeback(acct, t)
	default:
		return &Warning{Kind: KindMalformedRecord, Client: tx.ClientID(), Tx: tx.TxID(), Detail: fmt.Sprintf("unsupported transaction %T", tx)}
	}
}

func (e *Engine) deposit(acct *account, t model.Deposit) error {
	if acct.locked {
		return warn(KindAccountLocked, t, "deposit of %s refused", t.Amount)
	}
	if _, seen := e.index[t.Tx]; seen {
		return warn(KindDuplicateTransactionID, t, "deposit already recorded")
	}
	acct.available = acct.available.Add(t.Amount)
	e.index[t.Tx] = &indexEntry{client: t.Client, amount: t.Amount, state: StateNormal}
	return nil
}

func (e *Engine) withdraw(acct *account, t model.Withdrawal) error {
	if acct.locked {
		return warn(KindInsufficientFundsOrLocked, t, "account locked")
	}
	if acct.available.LessThan(t.Amount) {
		return warn(KindInsufficientFundsOrLocked, t, "available %s < %s", acct.available, t.Amount)
	}
	acct.available = acct.available.Sub(t.Amount)
	return nil
}

func (e *Engine) dispute(acct *account, t model.Dispute) error {
	if err := e.checkFrozen(acct, t); err != nil {
		return err
	}
	entry, ok := e.index.lookup(t.Tx, t.Client, StateDisputed)
	if !ok {
		return e.unknownReference(t, entry)
	}
	// Available may go negative when the deposit has already been withdrawn.
	acct.available = acct.available.Sub(entry.amount)
	acct.held = acct.held.Add(entry.amount)
	entry.state = StateDisputed
	return nil
}

func (e *Engine) resolve(acct *account, t model.Resolve) error {
	if err := e.checkFrozen(acct, t); err != nil {
		return err
	}
	entry, ok := e.index.lookup(t.Tx, t.Client, StateNormal)
	if !ok {
		return e.unknownReference(t, entry)
	}
	acct.held = acct.held.Sub(entry.amount)
	acct.available = acct.available.Add(entry.amount)
	entry.state = StateNormal
	return nil
}

func (e *Engine) chargeback(acct *account, t model.Chargeback) error {
	if err := e.checkFrozen(acct, t); err != nil {
		return err
	}
	entry, ok := e.index.lookup(t.Tx, t.Client, StateChargedBack)
	if !ok {
		return e.unknownReference(t, entry)
	}
	acct.held = acct.held.Sub(entry.amount)
	acct.locked = true
	entry.state = StateChargedBack
	return nil
}

func (e *Engine) checkFrozen(acct *account, t model.Transaction) error {
	if acct.locked && e.lockPolicy == LockFreeze {
		return warn(KindAccountLocked, t, "%s refused on frozen account", t.Kind())
	}
	return nil
}

func (e *Engine) unknownReference(t model.Transaction, entry *indexEntry) error {
	if entry == nil {
		return warn(KindUnknownOrForeignReference, t, "%s references no deposit of this client", t.Kind())
	}
	return warn(KindUnknownOrForeignReference, t, "%s not allowed while deposit is %s", t.Kind(), entry.state)
}

// account returns the account for client, creating an empty one on first use.
func (e *Engine) account(client model.ClientID) *account {
	acct, ok := e.accounts[client]
	if !ok {
		acct = &account{}
		e.accounts[client] = acct
	}
	return acct
}

// Account returns the current state of one client's account.
func (e *Engine) Account(client model.ClientID) (model.Account, bool) {
	acct, ok := e.accounts[client]
	if !ok {
		return model.Account{}, false
	}
	return acct.view(client), true
}

// Snapshot returns every account sorted by client ID.
func (e *Engine) Snapshot() []model.Account {
	out := make([]model.Account, 0, len(e.accounts))
	for client, acct := range e.accounts {
		out = append(out, acct.view(client))
	}
	slices.SortFunc(out, func(a, b model.Account) int {
		return int(a.Client) - int(b.Client)
	})
	return out
}

// Len returns the number of accounts.
func (e *Engine) Len() int { return len(e.accounts) }

func (a *account) view(client model.ClientID) model.Account {
	return model.Account{
		Client:    client,
		Available: a.available,
		Held:      a.held,
		Locked:    a.locked,
	}
}
