/*
Package credit implements the lending cooperative's credit domain over
the pure financial engine: credit lifecycle, installment state, payment
application, delinquency passes, and guarantee constitution/execution.

The engine computes; this package owns state transitions and talks to a
Store. All operations that read-modify-write a credit go through the
store's transactional boundary, and the caller is expected to serialize
operations per credit (single-writer discipline): two concurrent
payments against the same credit must not interleave.
*/
package credit

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/coopfin/credit-engine/engine"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type CreditID string
type MemberID string
type GuaranteeID string
type PaymentID string
type InstallmentID string

// =============================================================================
// CREDIT
// =============================================================================

// CreditState is the lifecycle state of a credit.
type CreditState string

const (
	StateRequested  CreditState = "requested"
	StateApproved   CreditState = "approved"
	StateRejected   CreditState = "rejected"
	StateDisbursed  CreditState = "disbursed"
	StateCompleted  CreditState = "completed"
	StateWrittenOff CreditState = "written_off"
)

// Credit is a member's loan through its whole lifecycle.
type Credit struct {
	ID        CreditID
	MemberID  MemberID
	ProductID string // catalog product the terms came from, empty for ad hoc credits

	// Terms
	Principal         engine.Money // amount requested
	InsurancePremium  engine.Money // one-time premium financed into the credit
	TotalFinanced     engine.Money // principal + premium; the amount amortized
	TermMonths        int
	Method            engine.Method
	AnnualRatePercent decimal.Decimal

	// State
	State                CreditState
	DisbursementDate     engine.Date  // zero until disbursed
	OutstandingPrincipal engine.Money // remaining financed balance

	// Delinquency rollup, refreshed by each evaluation pass
	DelinquentDays int
	Tier           engine.Tier

	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// INSTALLMENT
// =============================================================================

// InstallmentStatus tracks one installment's payment state.
type InstallmentStatus string

const (
	InstallmentPending   InstallmentStatus = "pending"
	InstallmentPaid      InstallmentStatus = "paid"
	InstallmentOverdue   InstallmentStatus = "overdue"
	InstallmentCancelled InstallmentStatus = "cancelled" // schedule replaced by refinancing
)

// Installment is one row of a credit's amortization schedule plus its
// mutable payment and delinquency state. The schedule skeleton
// (sequence, due date, scheduled amounts) is immutable after disbursement.
type Installment struct {
	ID       InstallmentID
	CreditID CreditID
	Sequence int // 1..N, ordering significant

	DueDate            engine.Date
	ScheduledPrincipal engine.Money
	ScheduledInterest  engine.Money
	ScheduledTotal     engine.Money

	PaidPrincipal engine.Money
	PaidInterest  engine.Money
	PaidPenalty   engine.Money

	Penalty     engine.Money // accrued, recomputed each evaluation pass
	ElapsedDays int
	Tier        engine.Tier
	Status      InstallmentStatus
}

// OutstandingPrincipal returns the unpaid scheduled principal.
func (i *Installment) OutstandingPrincipal() engine.Money {
	return i.ScheduledPrincipal.Sub(i.PaidPrincipal).ClampZero()
}

// OutstandingInterest returns the unpaid scheduled interest.
func (i *Installment) OutstandingInterest() engine.Money {
	return i.ScheduledInterest.Sub(i.PaidInterest).ClampZero()
}

// OutstandingPenalty returns the accrued penalty not yet covered.
func (i *Installment) OutstandingPenalty() engine.Money {
	return i.Penalty.Sub(i.PaidPenalty).ClampZero()
}

// OutstandingTotal is everything still owed on this installment.
func (i *Installment) OutstandingTotal() engine.Money {
	return i.OutstandingPenalty().Add(i.OutstandingInterest()).Add(i.OutstandingPrincipal())
}

// Unpaid reports whether the installment still expects money.
func (i *Installment) Unpaid() bool {
	return i.Status == InstallmentPending || i.Status == InstallmentOverdue
}

// =============================================================================
// PAYMENT
// =============================================================================

// PaymentMethod records how a payment arrived.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentPayroll  PaymentMethod = "payroll"
)

// Allocation is how much of a payment landed on one installment.
type Allocation struct {
	InstallmentSequence int
	Penalty             engine.Money
	Interest            engine.Money
	Principal           engine.Money
}

// Payment is an immutable record of one payment and its distribution.
type Payment struct {
	ID       PaymentID
	CreditID CreditID
	Amount   engine.Money
	Date     engine.Date
	Method   PaymentMethod

	Allocations          []Allocation
	InstallmentsAffected int
	Surplus              engine.Money // left over after every installment was settled

	CreatedAt time.Time
}

// =============================================================================
// GUARANTEE
// =============================================================================

// Guarantee links a guarantor's frozen savings to a credit.
type Guarantee struct {
	ID           GuaranteeID
	CreditID     CreditID
	GuarantorID  MemberID
	FrozenAmount engine.Money
	State        engine.GuaranteeState
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Stake converts to the engine's execution view.
func (g *Guarantee) Stake() engine.GuaranteeStake {
	return engine.GuaranteeStake{
		ID:           string(g.ID),
		State:        g.State,
		FrozenAmount: g.FrozenAmount,
	}
}

// =============================================================================
// REPORTS
// =============================================================================

// DelinquencyReport is the outcome of one evaluation pass over a credit.
type DelinquencyReport struct {
	CreditID     CreditID
	AsOf         engine.Date
	ElapsedDays  int // oldest unpaid installment
	Tier         engine.Tier
	TotalPenalty engine.Money
	WrittenOff   bool // true when this pass performed the write-off transition
	Installments []engine.Assessment
}
