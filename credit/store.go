/*
store.go - Persistence interface for the credit domain

PURPOSE:
  Defines the boundary between domain logic and the database. The
  Service reads and writes exclusively through this interface; SQLite
  and in-memory implementations exist.

TRANSACTIONAL BOUNDARY:
  Operations that must be all-or-nothing (disbursement writing the
  credit plus its full installment batch, guarantee execution debiting
  two guarantor accounts) run inside WithTx. A partial guarantee
  execution would leave the credit under-collateralized, so the pair is
  applied together or not at all.

IMPLEMENTATIONS:
  - store/sqlite:        production store
  - credit/store.Memory: in-memory store for tests and dev
*/
package credit

import (
	"context"
	"errors"

	"github.com/coopfin/credit-engine/savings"
)

// =============================================================================
// STORE ERRORS
// =============================================================================

var (
	ErrCreditNotFound      = errors.New("credit not found")
	ErrInstallmentNotFound = errors.New("installment not found")
	ErrGuaranteeNotFound   = errors.New("guarantee not found")
	ErrAccountNotFound     = errors.New("savings account not found")
)

// =============================================================================
// STORE INTERFACE
// =============================================================================

// Store persists credits, installments, guarantees, payments, and the
// savings accounts guarantee execution debits.
type Store interface {
	CreateCredit(ctx context.Context, c *Credit) error
	GetCredit(ctx context.Context, id CreditID) (*Credit, error)
	UpdateCredit(ctx context.Context, c *Credit) error
	ListCreditsByState(ctx context.Context, state CreditState) ([]*Credit, error)

	// CreateInstallments persists a schedule batch atomically.
	CreateInstallments(ctx context.Context, installments []Installment) error
	// InstallmentsByCredit returns all installments ordered by sequence.
	InstallmentsByCredit(ctx context.Context, id CreditID) ([]Installment, error)
	UpdateInstallment(ctx context.Context, inst *Installment) error

	CreatePayment(ctx context.Context, p *Payment) error
	PaymentsByCredit(ctx context.Context, id CreditID) ([]*Payment, error)

	CreateGuarantees(ctx context.Context, gs []Guarantee) error
	GuaranteesByCredit(ctx context.Context, id CreditID) ([]Guarantee, error)
	GetGuarantee(ctx context.Context, id GuaranteeID) (*Guarantee, error)
	UpdateGuarantee(ctx context.Context, g *Guarantee) error
	// CountActiveGuaranteesByGuarantor backs the simultaneous-guarantee limit.
	CountActiveGuaranteesByGuarantor(ctx context.Context, guarantor MemberID) (int, error)

	GetSavingsAccount(ctx context.Context, member MemberID) (*savings.Account, error)
	PutSavingsAccount(ctx context.Context, a *savings.Account) error
}

// TxStore is a Store that can scope a sequence of operations to one
// atomic transaction. If fn returns an error the transaction rolls back.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}
