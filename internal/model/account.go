package model

import "github.com/shopspring/decimal"

// Account is a point-in-time view of one client's balances.
type Account struct {
	Client    ClientID
	Available decimal.Decimal
	Held      decimal.Decimal
	Locked    bool
}

// Total returns available + held. It is always derived, never stored.
func (a Account) Total() decimal.Decimal {
	return a.Available.Add(a.Held)
}
