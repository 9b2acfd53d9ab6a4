/*
service.go - Credit lifecycle orchestration

PURPOSE:
  Wires the pure engine to persisted state: disbursement generates and
  stores the installment schedule, payments are distributed across
  installments oldest-first, scheduled evaluation passes refresh
  delinquency state and perform the write-off transition, and guarantee
  execution liquidates guarantor savings.

CONFIGURATION:
  Financial parameters (daily penalty rate, freeze percentage, premium
  rate, guarantee limits) arrive as an explicit Params value resolved by
  the caller once per operation - the engine and this service never read
  a settings store mid-computation.

CONCURRENCY:
  Operations on one credit must be serialized by the caller. Each
  read-modify-write sequence here runs inside Store.WithTx so partial
  state never persists, but the service holds no locks of its own.
*/
package credit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coopfin/credit-engine/engine"
)

// =============================================================================
// PARAMETERS
// =============================================================================

// Params carries the financial configuration for one operation.
type Params struct {
	DailyPenaltyRatePercent      decimal.Decimal
	GuaranteeFreezePercent       decimal.Decimal
	InsurancePremiumRatePercent  decimal.Decimal
	MaxActiveGuaranteesPerMember int
}

// Service errors.
var (
	// ErrCreditNotPayable is returned when a payment or evaluation targets
	// a credit that is not disbursed.
	ErrCreditNotPayable = errors.New("credit not in a payable state")

	// ErrCreditNotWrittenOff is returned when guarantee execution is
	// attempted before the write-off transition is set.
	ErrCreditNotWrittenOff = errors.New("credit not written off")

	// ErrGuaranteesExist is returned when constitution is attempted on a
	// credit that already has active guarantees.
	ErrGuaranteesExist = errors.New("credit already has active guarantees")

	// ErrRefinanceBlocked is returned when refinancing is attempted while
	// an installment still carries unpaid penalty.
	ErrRefinanceBlocked = errors.New("refinance blocked by outstanding penalty")
)

// Service orchestrates the credit domain over a transactional store.
type Service struct {
	store TxStore
	now   func() time.Time
}

func NewService(store TxStore) *Service {
	return &Service{store: store, now: time.Now}
}

// =============================================================================
// ORIGINATION
// =============================================================================

// RequestInput are the terms a member asks for.
type RequestInput struct {
	MemberID          MemberID
	ProductID         string
	Principal         engine.Money
	TermMonths        int
	Method            engine.Method
	AnnualRatePercent decimal.Decimal
}

// RequestCredit registers a new credit in the requested state. The
// one-time insurance premium is computed here and financed into the
// total; terms are validated by a dry-run of the schedule generator so
// bad input never reaches the approved state.
func (s *Service) RequestCredit(ctx context.Context, in RequestInput, p Params) (*Credit, error) {
	premium := in.Principal.Mul(engine.PercentFraction(p.InsurancePremiumRatePercent)).Round()
	total := in.Principal.Add(premium)

	// Validate terms up front with the same preconditions disbursement
	// will apply.
	if _, err := engine.GenerateSchedule(engine.ScheduleInput{
		Principal:         total,
		AnnualRatePercent: in.AnnualRatePercent,
		TermMonths:        in.TermMonths,
		Method:            in.Method,
		DisbursementDate:  engine.NewDate(2000, time.January, 1), // placeholder, dates unused here
	}); err != nil {
		return nil, err
	}

	now := s.now()
	c := &Credit{
		ID:                   CreditID(uuid.NewString()),
		MemberID:             in.MemberID,
		ProductID:            in.ProductID,
		Principal:            in.Principal,
		InsurancePremium:     premium,
		TotalFinanced:        total,
		TermMonths:           in.TermMonths,
		Method:               in.Method,
		AnnualRatePercent:    in.AnnualRatePercent,
		State:                StateRequested,
		OutstandingPrincipal: engine.ZeroMoney(),
		Tier:                 engine.TierCurrent,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.store.CreateCredit(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Approve moves a requested credit to approved.
func (s *Service) Approve(ctx context.Context, id CreditID) (*Credit, error) {
	return s.transition(ctx, id, (*Credit).Approve)
}

// Reject declines a requested or approved credit.
func (s *Service) Reject(ctx context.Context, id CreditID) (*Credit, error) {
	return s.transition(ctx, id, (*Credit).Reject)
}

func (s *Service) transition(ctx context.Context, id CreditID, move func(*Credit) error) (*Credit, error) {
	var out *Credit
	err := s.store.WithTx(ctx, func(st Store) error {
		c, err := st.GetCredit(ctx, id)
		if err != nil {
			return err
		}
		if err := move(c); err != nil {
			return err
		}
		c.UpdatedAt = s.now()
		if err := st.UpdateCredit(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}

// Disburse transitions an approved credit to disbursed, generates the
// amortization schedule over the total financed amount, and persists the
// full installment batch atomically with the credit update.
func (s *Service) Disburse(ctx context.Context, id CreditID, date engine.Date) (*engine.Schedule, error) {
	var schedule *engine.Schedule
	err := s.store.WithTx(ctx, func(st Store) error {
		c, err := st.GetCredit(ctx, id)
		if err != nil {
			return err
		}

		sched, err := engine.GenerateSchedule(engine.ScheduleInput{
			Principal:         c.TotalFinanced,
			AnnualRatePercent: c.AnnualRatePercent,
			TermMonths:        c.TermMonths,
			Method:            c.Method,
			DisbursementDate:  date,
		})
		if err != nil {
			return err
		}

		if err := c.MarkDisbursed(); err != nil {
			return err
		}
		c.DisbursementDate = date
		c.OutstandingPrincipal = c.TotalFinanced
		c.UpdatedAt = s.now()

		if err := st.CreateInstallments(ctx, installmentsFromSchedule(c.ID, sched)); err != nil {
			return err
		}
		if err := st.UpdateCredit(ctx, c); err != nil {
			return err
		}
		schedule = sched
		return nil
	})
	return schedule, err
}

func installmentsFromSchedule(id CreditID, sched *engine.Schedule) []Installment {
	out := make([]Installment, 0, len(sched.Entries))
	for _, e := range sched.Entries {
		out = append(out, Installment{
			ID:                 InstallmentID(uuid.NewString()),
			CreditID:           id,
			Sequence:           e.Sequence,
			DueDate:            e.DueDate,
			ScheduledPrincipal: e.Principal,
			ScheduledInterest:  e.Interest,
			ScheduledTotal:     e.Total,
			Tier:               engine.TierCurrent,
			Status:             InstallmentPending,
		})
	}
	return out
}

// =============================================================================
// GUARANTEE CONSTITUTION
// =============================================================================

// AttachGuarantees constitutes the two-guarantor pair for a credit before
// disbursement, freezing each guarantor's savings stake. The whole
// operation is atomic: both freezes and both guarantee rows, or nothing.
func (s *Service) AttachGuarantees(ctx context.Context, id CreditID, guarantors []MemberID, p Params) ([]Guarantee, error) {
	var out []Guarantee
	err := s.store.WithTx(ctx, func(st Store) error {
		c, err := st.GetCredit(ctx, id)
		if err != nil {
			return err
		}
		if c.State != StateRequested && c.State != StateApproved {
			return &StateTransitionError{From: c.State, To: StateApproved}
		}

		existing, err := st.GuaranteesByCredit(ctx, id)
		if err != nil {
			return err
		}
		for _, g := range existing {
			if g.State == engine.GuaranteeActive {
				return ErrGuaranteesExist
			}
		}

		for _, member := range guarantors {
			count, err := st.CountActiveGuaranteesByGuarantor(ctx, member)
			if err != nil {
				return err
			}
			if p.MaxActiveGuaranteesPerMember > 0 && count >= p.MaxActiveGuaranteesPerMember {
				return fmt.Errorf("guarantor %s backs %d credits: %w", member, count, ErrGuarantorOverCommitted)
			}
		}

		gs, err := ConstituteGuarantees(c, guarantors, p.GuaranteeFreezePercent, s.now())
		if err != nil {
			return err
		}

		for _, g := range gs {
			account, err := st.GetSavingsAccount(ctx, g.GuarantorID)
			if err != nil {
				return err
			}
			if err := account.Freeze(g.FrozenAmount); err != nil {
				return err
			}
			if err := st.PutSavingsAccount(ctx, account); err != nil {
				return err
			}
		}
		if err := st.CreateGuarantees(ctx, gs); err != nil {
			return err
		}
		out = gs
		return nil
	})
	return out, err
}

// =============================================================================
// PAYMENT APPLICATION
// =============================================================================

// ApplyPayment distributes a payment across the credit's unpaid
// installments, oldest first, until the amount is exhausted. Each
// installment is re-assessed as of the payment date before distribution,
// so the penalty charged is current. Whatever survives the last unpaid
// installment is recorded as surplus on the payment.
func (s *Service) ApplyPayment(ctx context.Context, id CreditID, amount engine.Money, date engine.Date, method PaymentMethod, p Params) (*Payment, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("payment of %s: %w", amount, engine.ErrInvalidPaymentAmount)
	}

	var payment *Payment
	err := s.store.WithTx(ctx, func(st Store) error {
		c, err := st.GetCredit(ctx, id)
		if err != nil {
			return err
		}
		if c.State != StateDisbursed {
			return fmt.Errorf("credit %s is %s: %w", c.ID, c.State, ErrCreditNotPayable)
		}

		installments, err := st.InstallmentsByCredit(ctx, id)
		if err != nil {
			return err
		}

		remaining := amount
		var allocations []Allocation
		for idx := range installments {
			inst := &installments[idx]
			if !inst.Unpaid() {
				continue
			}
			if remaining.IsZero() {
				break
			}

			s.assess(inst, date, p)

			dist, err := engine.Distribute(remaining,
				inst.OutstandingPenalty(), inst.OutstandingInterest(), inst.OutstandingPrincipal())
			if err != nil {
				return err
			}

			inst.PaidPenalty = inst.PaidPenalty.Add(dist.AppliedPenalty)
			inst.PaidInterest = inst.PaidInterest.Add(dist.AppliedInterest)
			inst.PaidPrincipal = inst.PaidPrincipal.Add(dist.AppliedPrincipal)

			// Scheduled principal fully covered -> paid.
			if inst.OutstandingPrincipal().IsZero() {
				inst.Status = InstallmentPaid
			}

			c.OutstandingPrincipal = c.OutstandingPrincipal.Sub(dist.AppliedPrincipal).ClampZero()

			applied := dist.AppliedPenalty.Add(dist.AppliedInterest).Add(dist.AppliedPrincipal)
			if applied.IsPositive() {
				allocations = append(allocations, Allocation{
					InstallmentSequence: inst.Sequence,
					Penalty:             dist.AppliedPenalty,
					Interest:            dist.AppliedInterest,
					Principal:           dist.AppliedPrincipal,
				})
			}

			if err := st.UpdateInstallment(ctx, inst); err != nil {
				return err
			}
			remaining = dist.Surplus
		}

		// All installments settled: the credit completes.
		if allPaid(installments) {
			if err := c.Complete(); err != nil {
				return err
			}
			c.OutstandingPrincipal = engine.ZeroMoney()
			c.DelinquentDays = 0
			c.Tier = engine.TierCurrent
		}

		c.UpdatedAt = s.now()
		if err := st.UpdateCredit(ctx, c); err != nil {
			return err
		}

		payment = &Payment{
			ID:                   PaymentID(uuid.NewString()),
			CreditID:             id,
			Amount:               amount,
			Date:                 date,
			Method:               method,
			Allocations:          allocations,
			InstallmentsAffected: len(allocations),
			Surplus:              remaining,
			CreatedAt:            s.now(),
		}
		return st.CreatePayment(ctx, payment)
	})
	return payment, err
}

// assess refreshes one installment's delinquency fields as of a date.
// The penalty base is the unpaid scheduled amount (principal + interest);
// the penalty itself does not compound.
func (s *Service) assess(inst *Installment, asOf engine.Date, p Params) {
	base := inst.OutstandingPrincipal().Add(inst.OutstandingInterest())
	a := engine.EvaluateDelinquency(base, inst.DueDate, asOf, p.DailyPenaltyRatePercent)
	inst.Penalty = a.Penalty
	inst.ElapsedDays = a.ElapsedDays
	inst.Tier = a.Tier
	if a.ElapsedDays > 0 && inst.Status == InstallmentPending {
		inst.Status = InstallmentOverdue
	}
}

func allPaid(installments []Installment) bool {
	for i := range installments {
		if installments[i].Unpaid() {
			return false
		}
	}
	return true
}

// =============================================================================
// DELINQUENCY PASS
// =============================================================================

// Reevaluate runs the scheduled delinquency pass over one credit: every
// unpaid installment's penalty, elapsed days, and tier are recomputed
// idempotently as of the given date, the credit-level rollup is refreshed
// from the oldest unpaid installment, and a rollup at 90+ days performs
// the irreversible write-off transition.
func (s *Service) Reevaluate(ctx context.Context, id CreditID, asOf engine.Date, p Params) (*DelinquencyReport, error) {
	var report *DelinquencyReport
	err := s.store.WithTx(ctx, func(st Store) error {
		c, err := st.GetCredit(ctx, id)
		if err != nil {
			return err
		}
		if c.State != StateDisbursed && c.State != StateWrittenOff {
			return fmt.Errorf("credit %s is %s: %w", c.ID, c.State, ErrCreditNotPayable)
		}

		installments, err := st.InstallmentsByCredit(ctx, id)
		if err != nil {
			return err
		}

		rep := &DelinquencyReport{CreditID: id, AsOf: asOf, TotalPenalty: engine.ZeroMoney()}
		var dues []engine.InstallmentDue
		for idx := range installments {
			inst := &installments[idx]
			if !inst.Unpaid() {
				continue
			}
			s.assess(inst, asOf, p)
			if err := st.UpdateInstallment(ctx, inst); err != nil {
				return err
			}
			rep.Installments = append(rep.Installments, engine.Assessment{
				Penalty:     inst.Penalty,
				ElapsedDays: inst.ElapsedDays,
				Tier:        inst.Tier,
			})
			rep.TotalPenalty = rep.TotalPenalty.Add(inst.OutstandingPenalty())
			dues = append(dues, engine.InstallmentDue{
				DueDate:     inst.DueDate,
				Outstanding: inst.OutstandingTotal(),
			})
		}

		rep.ElapsedDays, rep.Tier = engine.RollupDelinquency(dues, asOf)
		c.DelinquentDays = rep.ElapsedDays
		c.Tier = rep.Tier

		if rep.Tier == engine.TierWrittenOff && c.State == StateDisbursed {
			if err := c.WriteOff(); err != nil {
				return err
			}
			rep.WrittenOff = true
		}

		c.UpdatedAt = s.now()
		if err := st.UpdateCredit(ctx, c); err != nil {
			return err
		}
		report = rep
		return nil
	})
	return report, err
}

// =============================================================================
// GUARANTEE EXECUTION
// =============================================================================

// ExecuteGuarantees liquidates the guarantor stakes of a written-off
// credit. The check runs strictly after the write-off transition is set
// (the day-91 convention): a credit in any other state is refused. Both
// guarantor debits commit together or not at all.
func (s *Service) ExecuteGuarantees(ctx context.Context, id CreditID) (*engine.Execution, error) {
	var out *engine.Execution
	err := s.store.WithTx(ctx, func(st Store) error {
		c, err := st.GetCredit(ctx, id)
		if err != nil {
			return err
		}
		if c.State != StateWrittenOff {
			return fmt.Errorf("credit %s is %s: %w", c.ID, c.State, ErrCreditNotWrittenOff)
		}

		gs, err := st.GuaranteesByCredit(ctx, id)
		if err != nil {
			return err
		}
		if err := ValidateGuaranteeSet(gs); err != nil {
			return err
		}

		stakes := make([]engine.GuaranteeStake, 0, len(gs))
		for i := range gs {
			stakes = append(stakes, gs[i].Stake())
		}

		exec, err := engine.ExecuteGuarantees(engine.TierWrittenOff, c.OutstandingPrincipal, stakes)
		if err != nil {
			return err
		}

		if exec.Executed {
			for i := range gs {
				g := &gs[i]
				newState, ok := exec.UpdatedStates[string(g.ID)]
				if !ok {
					continue
				}
				g.State = newState
				g.UpdatedAt = s.now()
				if err := st.UpdateGuarantee(ctx, g); err != nil {
					return err
				}

				account, err := st.GetSavingsAccount(ctx, g.GuarantorID)
				if err != nil {
					return err
				}
				if err := account.Liquidate(g.FrozenAmount); err != nil {
					return err
				}
				if err := st.PutSavingsAccount(ctx, account); err != nil {
					return err
				}
			}

			c.OutstandingPrincipal = exec.RemainingBalance
			c.UpdatedAt = s.now()
			if err := st.UpdateCredit(ctx, c); err != nil {
				return err
			}
		}

		out = &exec
		return nil
	})
	return out, err
}

// =============================================================================
// GUARANTEE RELEASE
// =============================================================================

// RequestGuaranteeRelease starts the release workflow for one guarantee.
// Only allowed while the owning credit is fully current.
func (s *Service) RequestGuaranteeRelease(ctx context.Context, id GuaranteeID) (*Guarantee, error) {
	return s.updateGuarantee(ctx, id, func(g *Guarantee, tier engine.Tier) error {
		return RequestRelease(g, tier)
	})
}

// ApproveGuaranteeRelease finalizes a pending release and unfreezes the
// guarantor's savings stake.
func (s *Service) ApproveGuaranteeRelease(ctx context.Context, id GuaranteeID) (*Guarantee, error) {
	var out *Guarantee
	err := s.store.WithTx(ctx, func(st Store) error {
		g, err := st.GetGuarantee(ctx, id)
		if err != nil {
			return err
		}
		if err := ApproveRelease(g); err != nil {
			return err
		}

		account, err := st.GetSavingsAccount(ctx, g.GuarantorID)
		if err != nil {
			return err
		}
		if err := account.Release(g.FrozenAmount); err != nil {
			return err
		}
		if err := st.PutSavingsAccount(ctx, account); err != nil {
			return err
		}

		g.UpdatedAt = s.now()
		if err := st.UpdateGuarantee(ctx, g); err != nil {
			return err
		}
		out = g
		return nil
	})
	return out, err
}

// DenyGuaranteeRelease returns a pending release to active.
func (s *Service) DenyGuaranteeRelease(ctx context.Context, id GuaranteeID) (*Guarantee, error) {
	return s.updateGuarantee(ctx, id, func(g *Guarantee, _ engine.Tier) error {
		return DenyRelease(g)
	})
}

func (s *Service) updateGuarantee(ctx context.Context, id GuaranteeID, move func(*Guarantee, engine.Tier) error) (*Guarantee, error) {
	var out *Guarantee
	err := s.store.WithTx(ctx, func(st Store) error {
		g, err := st.GetGuarantee(ctx, id)
		if err != nil {
			return err
		}
		c, err := st.GetCredit(ctx, g.CreditID)
		if err != nil {
			return err
		}
		if err := move(g, c.Tier); err != nil {
			return err
		}
		g.UpdatedAt = s.now()
		if err := st.UpdateGuarantee(ctx, g); err != nil {
			return err
		}
		out = g
		return nil
	})
	return out, err
}

// =============================================================================
// REFINANCING
// =============================================================================

// Refinance cancels a disbursed credit's remaining unpaid installments
// and regenerates the schedule over the outstanding principal, anchored
// at the refinance date. Accrued unpaid penalties must be settled first;
// refinancing refuses while any penalty is outstanding.
func (s *Service) Refinance(ctx context.Context, id CreditID, termMonths int, method engine.Method, date engine.Date) (*engine.Schedule, error) {
	var schedule *engine.Schedule
	err := s.store.WithTx(ctx, func(st Store) error {
		c, err := st.GetCredit(ctx, id)
		if err != nil {
			return err
		}
		if c.State != StateDisbursed {
			return fmt.Errorf("credit %s is %s: %w", c.ID, c.State, ErrCreditNotPayable)
		}

		installments, err := st.InstallmentsByCredit(ctx, id)
		if err != nil {
			return err
		}
		for idx := range installments {
			inst := &installments[idx]
			if !inst.Unpaid() {
				continue
			}
			if inst.OutstandingPenalty().IsPositive() {
				return fmt.Errorf("installment %d carries unpaid penalty %s: %w",
					inst.Sequence, inst.OutstandingPenalty(), ErrRefinanceBlocked)
			}
			inst.Status = InstallmentCancelled
			if err := st.UpdateInstallment(ctx, inst); err != nil {
				return err
			}
		}

		sched, err := engine.GenerateSchedule(engine.ScheduleInput{
			Principal:         c.OutstandingPrincipal,
			AnnualRatePercent: c.AnnualRatePercent,
			TermMonths:        termMonths,
			Method:            method,
			DisbursementDate:  date,
		})
		if err != nil {
			return err
		}
		if err := st.CreateInstallments(ctx, installmentsFromSchedule(c.ID, sched)); err != nil {
			return err
		}

		c.TermMonths = termMonths
		c.Method = method
		c.DelinquentDays = 0
		c.Tier = engine.TierCurrent
		c.UpdatedAt = s.now()
		if err := st.UpdateCredit(ctx, c); err != nil {
			return err
		}
		schedule = sched
		return nil
	})
	return schedule, err
}
