// Package savings models member savings accounts as seen by the credit
// system: a total balance with a frozen portion held as guarantee
// collateral. Freezing reserves part of the available balance; releasing
// returns it; liquidation removes the frozen amount from the account
// entirely (write-off collection).
package savings

import (
	"errors"
	"fmt"

	"github.com/coopfin/credit-engine/engine"
)

var (
	// ErrInsufficientAvailable is returned when a freeze exceeds the
	// member's unfrozen balance.
	ErrInsufficientAvailable = errors.New("insufficient available savings")

	// ErrInsufficientFrozen is returned when a release or liquidation
	// exceeds the frozen portion.
	ErrInsufficientFrozen = errors.New("insufficient frozen savings")
)

// Account is a member's savings position. Available() is always
// Balance - Frozen; the two stored fields never go negative.
type Account struct {
	MemberID string
	Balance  engine.Money // total savings held
	Frozen   engine.Money // portion reserved as guarantee collateral
}

func NewAccount(memberID string, balance engine.Money) *Account {
	return &Account{MemberID: memberID, Balance: balance, Frozen: engine.ZeroMoney()}
}

// Available returns the unfrozen portion of the balance.
func (a *Account) Available() engine.Money {
	return a.Balance.Sub(a.Frozen)
}

// Freeze reserves amount from the available balance as collateral.
func (a *Account) Freeze(amount engine.Money) error {
	if amount.IsNegative() {
		return fmt.Errorf("freeze amount %s: %w", amount, ErrInsufficientAvailable)
	}
	if a.Available().LessThan(amount) {
		return fmt.Errorf("freeze %s with %s available: %w", amount, a.Available(), ErrInsufficientAvailable)
	}
	a.Frozen = a.Frozen.Add(amount)
	return nil
}

// Release returns a frozen amount to the available balance.
func (a *Account) Release(amount engine.Money) error {
	if amount.IsNegative() || a.Frozen.LessThan(amount) {
		return fmt.Errorf("release %s with %s frozen: %w", amount, a.Frozen, ErrInsufficientFrozen)
	}
	a.Frozen = a.Frozen.Sub(amount)
	return nil
}

// Liquidate removes a frozen amount from the account: both the frozen
// portion and the total balance decrease. Used by guarantee execution.
func (a *Account) Liquidate(amount engine.Money) error {
	if amount.IsNegative() || a.Frozen.LessThan(amount) {
		return fmt.Errorf("liquidate %s with %s frozen: %w", amount, a.Frozen, ErrInsufficientFrozen)
	}
	a.Frozen = a.Frozen.Sub(amount)
	a.Balance = a.Balance.Sub(amount)
	return nil
}
