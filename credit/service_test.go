package credit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coopfin/credit-engine/credit"
	"github.com/coopfin/credit-engine/credit/store"
	"github.com/coopfin/credit-engine/engine"
	"github.com/coopfin/credit-engine/savings"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func testParams() credit.Params {
	return credit.Params{
		DailyPenaltyRatePercent:      pct("0.1"),
		GuaranteeFreezePercent:       pct("10"),
		InsurancePremiumRatePercent:  pct("2"),
		MaxActiveGuaranteesPerMember: 5,
	}
}

func date(year int, month time.Month, day int) engine.Date {
	return engine.NewDate(year, month, day)
}

func newFixture(t *testing.T) (*credit.Service, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	return credit.NewService(st), st
}

func seedAccount(t *testing.T, st *store.Memory, member credit.MemberID, balance string) {
	t.Helper()
	require.NoError(t, st.PutSavingsAccount(context.Background(), savings.NewAccount(string(member), money(balance))))
}

// disbursedCredit requests 1000 at 18% over 12 months (fixed installment,
// 2% premium -> 1020 financed) and walks it to disbursed on 2025-01-15.
// Installment totals are 93.51 (78.21 principal + 15.30 interest first).
func disbursedCredit(t *testing.T, svc *credit.Service) *credit.Credit {
	t.Helper()
	ctx := context.Background()

	c, err := svc.RequestCredit(ctx, credit.RequestInput{
		MemberID:          "m-1",
		Principal:         money("1000"),
		TermMonths:        12,
		Method:            engine.MethodFixedInstallment,
		AnnualRatePercent: pct("18"),
	}, testParams())
	require.NoError(t, err)

	_, err = svc.Approve(ctx, c.ID)
	require.NoError(t, err)
	_, err = svc.Disburse(ctx, c.ID, date(2025, time.January, 15))
	require.NoError(t, err)
	return c
}

// =============================================================================
// ORIGINATION
// =============================================================================

func TestRequestCredit_FinancesPremium(t *testing.T) {
	svc, _ := newFixture(t)

	c, err := svc.RequestCredit(context.Background(), credit.RequestInput{
		MemberID:          "m-1",
		Principal:         money("1000"),
		TermMonths:        12,
		Method:            engine.MethodFixedInstallment,
		AnnualRatePercent: pct("18"),
	}, testParams())
	require.NoError(t, err)

	assert.Equal(t, credit.StateRequested, c.State)
	assert.True(t, c.InsurancePremium.Equal(money("20")), "premium %s", c.InsurancePremium)
	assert.True(t, c.TotalFinanced.Equal(money("1020")), "total %s", c.TotalFinanced)
}

func TestRequestCredit_RejectsBadTerms(t *testing.T) {
	svc, _ := newFixture(t)

	_, err := svc.RequestCredit(context.Background(), credit.RequestInput{
		MemberID:          "m-1",
		Principal:         money("1000"),
		TermMonths:        3, // below minimum
		Method:            engine.MethodFixedInstallment,
		AnnualRatePercent: pct("18"),
	}, testParams())
	assert.ErrorIs(t, err, engine.ErrInvalidAmortizationInput)
}

func TestDisburse_CreatesFullScheduleAtomically(t *testing.T) {
	svc, st := newFixture(t)
	ctx := context.Background()

	c := disbursedCredit(t, svc)

	stored, err := st.GetCredit(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, credit.StateDisbursed, stored.State)
	assert.True(t, stored.OutstandingPrincipal.Equal(money("1020")))

	installments, err := st.InstallmentsByCredit(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, installments, 12)
	assert.Equal(t, 1, installments[0].Sequence)
	assert.True(t, installments[0].DueDate.Equal(date(2025, time.February, 15)))
	assert.Equal(t, credit.InstallmentPending, installments[0].Status)
	assert.True(t, installments[0].ScheduledTotal.Equal(money("93.51")))
}

func TestDisburse_RequiresApproval(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()

	c, err := svc.RequestCredit(ctx, credit.RequestInput{
		MemberID:          "m-1",
		Principal:         money("1000"),
		TermMonths:        12,
		Method:            engine.MethodFixedInstallment,
		AnnualRatePercent: pct("18"),
	}, testParams())
	require.NoError(t, err)

	_, err = svc.Disburse(ctx, c.ID, date(2025, time.January, 15))
	assert.ErrorIs(t, err, credit.ErrInvalidTransition)
}

// =============================================================================
// PAYMENTS
// =============================================================================

func TestApplyPayment_SettlesInstallmentOnTime(t *testing.T) {
	svc, st := newFixture(t)
	ctx := context.Background()
	c := disbursedCredit(t, svc)

	p, err := svc.ApplyPayment(ctx, c.ID, money("93.51"), date(2025, time.February, 15), credit.PaymentCash, testParams())
	require.NoError(t, err)

	require.Len(t, p.Allocations, 1)
	alloc := p.Allocations[0]
	assert.True(t, alloc.Penalty.IsZero(), "penalty %s", alloc.Penalty)
	assert.True(t, alloc.Interest.Equal(money("15.30")))
	assert.True(t, alloc.Principal.Equal(money("78.21")))
	assert.True(t, p.Surplus.IsZero())

	installments, err := st.InstallmentsByCredit(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, credit.InstallmentPaid, installments[0].Status)
	assert.Equal(t, credit.InstallmentPending, installments[1].Status)

	stored, err := st.GetCredit(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, stored.OutstandingPrincipal.Equal(money("941.79")), "outstanding %s", stored.OutstandingPrincipal)
}

func TestApplyPayment_LatePaymentChargesPenaltyFirst(t *testing.T) {
	svc, st := newFixture(t)
	ctx := context.Background()
	c := disbursedCredit(t, svc)

	// 10 days late: penalty = 93.51 * 0.1% * 10 = 0.94, charged before
	// interest and principal.
	p, err := svc.ApplyPayment(ctx, c.ID, money("94.45"), date(2025, time.February, 25), credit.PaymentTransfer, testParams())
	require.NoError(t, err)

	require.Len(t, p.Allocations, 1)
	alloc := p.Allocations[0]
	assert.True(t, alloc.Penalty.Equal(money("0.94")), "penalty %s", alloc.Penalty)
	assert.True(t, alloc.Interest.Equal(money("15.30")))
	assert.True(t, alloc.Principal.Equal(money("78.21")))

	installments, err := st.InstallmentsByCredit(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, credit.InstallmentPaid, installments[0].Status)
}

func TestApplyPayment_PartialLeavesInstallmentOverdue(t *testing.T) {
	svc, st := newFixture(t)
	ctx := context.Background()
	c := disbursedCredit(t, svc)

	_, err := svc.ApplyPayment(ctx, c.ID, money("10"), date(2025, time.February, 25), credit.PaymentCash, testParams())
	require.NoError(t, err)

	installments, err := st.InstallmentsByCredit(ctx, c.ID)
	require.NoError(t, err)
	first := installments[0]
	assert.Equal(t, credit.InstallmentOverdue, first.Status)
	// Penalty (0.94) then interest absorbed the 10.
	assert.True(t, first.PaidPenalty.Equal(money("0.94")), "paid penalty %s", first.PaidPenalty)
	assert.True(t, first.PaidInterest.Equal(money("9.06")), "paid interest %s", first.PaidInterest)
	assert.True(t, first.PaidPrincipal.IsZero())
}

func TestApplyPayment_CascadesAcrossInstallments(t *testing.T) {
	svc, st := newFixture(t)
	ctx := context.Background()
	c := disbursedCredit(t, svc)

	// Two installment totals at once, on the first due date: the first
	// settles and the remainder flows into the second oldest-first.
	p, err := svc.ApplyPayment(ctx, c.ID, money("187.02"), date(2025, time.February, 15), credit.PaymentCash, testParams())
	require.NoError(t, err)

	require.Len(t, p.Allocations, 2)
	assert.Equal(t, 1, p.Allocations[0].InstallmentSequence)
	assert.Equal(t, 2, p.Allocations[1].InstallmentSequence)
	assert.Equal(t, 2, p.InstallmentsAffected)

	// Conservation across the whole payment.
	sum := p.Surplus
	for _, a := range p.Allocations {
		sum = sum.Add(a.Penalty).Add(a.Interest).Add(a.Principal)
	}
	assert.True(t, sum.Equal(p.Amount), "allocated %s of %s", sum, p.Amount)

	installments, err := st.InstallmentsByCredit(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, credit.InstallmentPaid, installments[0].Status)
	assert.True(t, installments[1].PaidInterest.Equal(money("14.13")), "second interest %s", installments[1].PaidInterest)
	assert.True(t, installments[1].PaidPrincipal.Equal(money("79.38")), "second principal %s", installments[1].PaidPrincipal)
	assert.Equal(t, credit.InstallmentPaid, installments[1].Status)
}

func TestApplyPayment_FullPayoffCompletesCredit(t *testing.T) {
	svc, st := newFixture(t)
	ctx := context.Background()
	c := disbursedCredit(t, svc)

	// Total payable is 1020 + 102.18 interest; pay more and the rest is
	// recorded as surplus.
	p, err := svc.ApplyPayment(ctx, c.ID, money("1200"), date(2025, time.February, 15), credit.PaymentTransfer, testParams())
	require.NoError(t, err)

	assert.Equal(t, 12, p.InstallmentsAffected)
	assert.True(t, p.Surplus.Equal(money("77.82")), "surplus %s", p.Surplus)

	stored, err := st.GetCredit(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, credit.StateCompleted, stored.State)
	assert.True(t, stored.OutstandingPrincipal.IsZero())
}

func TestApplyPayment_RejectsNonPositiveAmounts(t *testing.T) {
	svc, _ := newFixture(t)
	c := disbursedCredit(t, svc)

	for _, amount := range []string{"0", "-5"} {
		_, err := svc.ApplyPayment(context.Background(), c.ID, money(amount), date(2025, time.February, 15), credit.PaymentCash, testParams())
		assert.ErrorIs(t, err, engine.ErrInvalidPaymentAmount, "amount %s", amount)
	}
}

func TestApplyPayment_RequiresDisbursedCredit(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()

	c, err := svc.RequestCredit(ctx, credit.RequestInput{
		MemberID:          "m-1",
		Principal:         money("1000"),
		TermMonths:        12,
		Method:            engine.MethodFixedInstallment,
		AnnualRatePercent: pct("18"),
	}, testParams())
	require.NoError(t, err)

	_, err = svc.ApplyPayment(ctx, c.ID, money("100"), date(2025, time.February, 15), credit.PaymentCash, testParams())
	assert.ErrorIs(t, err, credit.ErrCreditNotPayable)
}

// =============================================================================
// DELINQUENCY PASS
// =============================================================================

func TestReevaluate_MarksOverdueAndRollsUp(t *testing.T) {
	svc, st := newFixture(t)
	ctx := context.Background()
	c := disbursedCredit(t, svc)

	// 20 days after the first due date: one overdue installment.
	rep, err := svc.Reevaluate(ctx, c.ID, date(2025, time.March, 7), testParams())
	require.NoError(t, err)

	assert.Equal(t, 20, rep.ElapsedDays)
	assert.Equal(t, engine.TierModerate, rep.Tier)
	assert.False(t, rep.WrittenOff)

	installments, err := st.InstallmentsByCredit(ctx, c.ID)
	require.NoError(t, err)
	first := installments[0]
	assert.Equal(t, credit.InstallmentOverdue, first.Status)
	assert.Equal(t, 20, first.ElapsedDays)
	assert.True(t, first.Penalty.Equal(money("1.87")), "penalty %s", first.Penalty) // 93.51*0.001*20

	stored, err := st.GetCredit(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, engine.TierModerate, stored.Tier)
	assert.Equal(t, 20, stored.DelinquentDays)
}

func TestReevaluate_IsIdempotent(t *testing.T) {
	svc, st := newFixture(t)
	ctx := context.Background()
	c := disbursedCredit(t, svc)

	asOf := date(2025, time.March, 7)
	_, err := svc.Reevaluate(ctx, c.ID, asOf, testParams())
	require.NoError(t, err)
	_, err = svc.Reevaluate(ctx, c.ID, asOf, testParams())
	require.NoError(t, err)

	installments, err := st.InstallmentsByCredit(ctx, c.ID)
	require.NoError(t, err)
	// Penalty recomputed, not accumulated.
	assert.True(t, installments[0].Penalty.Equal(money("1.87")), "penalty %s", installments[0].Penalty)
}

func TestReevaluate_WritesOffAtNinetyDays(t *testing.T) {
	svc, st := newFixture(t)
	ctx := context.Background()
	c := disbursedCredit(t, svc)

	// Oldest unpaid installment due 2025-02-15; 91 days later.
	rep, err := svc.Reevaluate(ctx, c.ID, date(2025, time.May, 17), testParams())
	require.NoError(t, err)

	assert.Equal(t, 91, rep.ElapsedDays)
	assert.Equal(t, engine.TierWrittenOff, rep.Tier)
	assert.True(t, rep.WrittenOff)

	stored, err := st.GetCredit(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, credit.StateWrittenOff, stored.State)

	// A later pass reports the tier but does not re-transition.
	rep2, err := svc.Reevaluate(ctx, c.ID, date(2025, time.May, 18), testParams())
	require.NoError(t, err)
	assert.False(t, rep2.WrittenOff)
}

func TestReevaluate_RollupUsesOldestUnpaid(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()
	c := disbursedCredit(t, svc)

	// Settle the first installment; the rollup must then track the second.
	_, err := svc.ApplyPayment(ctx, c.ID, money("93.51"), date(2025, time.February, 15), credit.PaymentCash, testParams())
	require.NoError(t, err)

	rep, err := svc.Reevaluate(ctx, c.ID, date(2025, time.March, 20), testParams())
	require.NoError(t, err)
	// Second installment due 2025-03-15 -> 5 days.
	assert.Equal(t, 5, rep.ElapsedDays)
	assert.Equal(t, engine.TierMild, rep.Tier)
}

// =============================================================================
// GUARANTEES
// =============================================================================

func attachGuarantees(t *testing.T, svc *credit.Service, st *store.Memory, c *credit.Credit) []credit.Guarantee {
	t.Helper()
	seedAccount(t, st, "g-1", "1000")
	seedAccount(t, st, "g-2", "1000")
	gs, err := svc.AttachGuarantees(context.Background(), c.ID, []credit.MemberID{"g-1", "g-2"}, testParams())
	require.NoError(t, err)
	return gs
}

func guaranteedWrittenOffCredit(t *testing.T, svc *credit.Service, st *store.Memory) *credit.Credit {
	t.Helper()
	ctx := context.Background()

	c, err := svc.RequestCredit(ctx, credit.RequestInput{
		MemberID:          "m-1",
		Principal:         money("1000"),
		TermMonths:        12,
		Method:            engine.MethodFixedInstallment,
		AnnualRatePercent: pct("18"),
	}, testParams())
	require.NoError(t, err)

	attachGuarantees(t, svc, st, c)

	_, err = svc.Approve(ctx, c.ID)
	require.NoError(t, err)
	_, err = svc.Disburse(ctx, c.ID, date(2025, time.January, 15))
	require.NoError(t, err)
	_, err = svc.Reevaluate(ctx, c.ID, date(2025, time.May, 17), testParams())
	require.NoError(t, err)
	return c
}

func TestAttachGuarantees_FreezesSavings(t *testing.T) {
	svc, st := newFixture(t)
	ctx := context.Background()

	c, err := svc.RequestCredit(ctx, credit.RequestInput{
		MemberID:          "m-1",
		Principal:         money("1000"),
		TermMonths:        12,
		Method:            engine.MethodFixedInstallment,
		AnnualRatePercent: pct("18"),
	}, testParams())
	require.NoError(t, err)

	gs := attachGuarantees(t, svc, st, c)
	require.Len(t, gs, 2)

	// 10% of 1020 split two ways.
	for _, g := range gs {
		assert.True(t, g.FrozenAmount.Equal(money("51")), "stake %s", g.FrozenAmount)
	}

	account, err := st.GetSavingsAccount(ctx, "g-1")
	require.NoError(t, err)
	assert.True(t, account.Frozen.Equal(money("51")))
	assert.True(t, account.Available().Equal(money("949")))
}

func TestAttachGuarantees_BothOrNeither(t *testing.T) {
	svc, st := newFixture(t)
	ctx := context.Background()

	c, err := svc.RequestCredit(ctx, credit.RequestInput{
		MemberID:          "m-1",
		Principal:         money("1000"),
		TermMonths:        12,
		Method:            engine.MethodFixedInstallment,
		AnnualRatePercent: pct("18"),
	}, testParams())
	require.NoError(t, err)

	seedAccount(t, st, "g-1", "1000")
	seedAccount(t, st, "g-2", "10") // cannot cover the 51 stake

	_, err = svc.AttachGuarantees(ctx, c.ID, []credit.MemberID{"g-1", "g-2"}, testParams())
	require.ErrorIs(t, err, savings.ErrInsufficientAvailable)

	// The first guarantor's freeze rolled back with the transaction.
	account, err := st.GetSavingsAccount(ctx, "g-1")
	require.NoError(t, err)
	assert.True(t, account.Frozen.IsZero(), "frozen %s after rollback", account.Frozen)

	gs, err := st.GuaranteesByCredit(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, gs)
}

func TestAttachGuarantees_EnforcesGuarantorLimit(t *testing.T) {
	svc, st := newFixture(t)
	ctx := context.Background()

	p := testParams()
	p.MaxActiveGuaranteesPerMember = 1

	first, err := svc.RequestCredit(ctx, credit.RequestInput{
		MemberID: "m-1", Principal: money("1000"), TermMonths: 12,
		Method: engine.MethodFixedInstallment, AnnualRatePercent: pct("18"),
	}, p)
	require.NoError(t, err)
	seedAccount(t, st, "g-1", "1000")
	seedAccount(t, st, "g-2", "1000")
	_, err = svc.AttachGuarantees(ctx, first.ID, []credit.MemberID{"g-1", "g-2"}, p)
	require.NoError(t, err)

	second, err := svc.RequestCredit(ctx, credit.RequestInput{
		MemberID: "m-2", Principal: money("1000"), TermMonths: 12,
		Method: engine.MethodFixedInstallment, AnnualRatePercent: pct("18"),
	}, p)
	require.NoError(t, err)
	seedAccount(t, st, "g-3", "1000")

	_, err = svc.AttachGuarantees(ctx, second.ID, []credit.MemberID{"g-1", "g-3"}, p)
	assert.ErrorIs(t, err, credit.ErrGuarantorOverCommitted)
}

func TestExecuteGuarantees_LiquidatesAndDebitsSavings(t *testing.T) {
	svc, st := newFixture(t)
	ctx := context.Background()
	c := guaranteedWrittenOffCredit(t, svc, st)

	exec, err := svc.ExecuteGuarantees(ctx, c.ID)
	require.NoError(t, err)

	assert.True(t, exec.Executed)
	assert.True(t, exec.AmountLiquidated.Equal(money("102")), "liquidated %s", exec.AmountLiquidated)
	assert.True(t, exec.RemainingBalance.Equal(money("918")), "remaining %s", exec.RemainingBalance)

	for _, member := range []credit.MemberID{"g-1", "g-2"} {
		account, err := st.GetSavingsAccount(ctx, member)
		require.NoError(t, err)
		assert.True(t, account.Balance.Equal(money("949")), "%s balance %s", member, account.Balance)
		assert.True(t, account.Frozen.IsZero(), "%s frozen %s", member, account.Frozen)
	}

	gs, err := st.GuaranteesByCredit(ctx, c.ID)
	require.NoError(t, err)
	for _, g := range gs {
		assert.Equal(t, engine.GuaranteeExecuted, g.State)
	}

	stored, err := st.GetCredit(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, stored.OutstandingPrincipal.Equal(money("918")))
}

func TestExecuteGuarantees_SecondRunIsNoop(t *testing.T) {
	svc, st := newFixture(t)
	ctx := context.Background()
	c := guaranteedWrittenOffCredit(t, svc, st)

	_, err := svc.ExecuteGuarantees(ctx, c.ID)
	require.NoError(t, err)

	exec, err := svc.ExecuteGuarantees(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, exec.Executed)
	assert.True(t, exec.AmountLiquidated.IsZero())

	account, err := st.GetSavingsAccount(ctx, "g-1")
	require.NoError(t, err)
	assert.True(t, account.Balance.Equal(money("949")), "balance changed on idempotent re-run: %s", account.Balance)
}

func TestExecuteGuarantees_RefusedBeforeWriteOff(t *testing.T) {
	svc, _ := newFixture(t)
	c := disbursedCredit(t, svc)

	_, err := svc.ExecuteGuarantees(context.Background(), c.ID)
	assert.ErrorIs(t, err, credit.ErrCreditNotWrittenOff)
}

func TestGuaranteeRelease_UnfreezesSavings(t *testing.T) {
	svc, st := newFixture(t)
	ctx := context.Background()

	c, err := svc.RequestCredit(ctx, credit.RequestInput{
		MemberID: "m-1", Principal: money("1000"), TermMonths: 12,
		Method: engine.MethodFixedInstallment, AnnualRatePercent: pct("18"),
	}, testParams())
	require.NoError(t, err)
	gs := attachGuarantees(t, svc, st, c)

	g, err := svc.RequestGuaranteeRelease(ctx, gs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, engine.GuaranteeInRelease, g.State)

	g, err = svc.ApproveGuaranteeRelease(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, engine.GuaranteeReleased, g.State)

	account, err := st.GetSavingsAccount(ctx, g.GuarantorID)
	require.NoError(t, err)
	assert.True(t, account.Frozen.IsZero())
	assert.True(t, account.Available().Equal(money("1000")))
}

// =============================================================================
// REFINANCING
// =============================================================================

func TestRefinance_CancelsAndRegenerates(t *testing.T) {
	svc, st := newFixture(t)
	ctx := context.Background()
	c := disbursedCredit(t, svc)

	// Pay the first installment, then refinance the rest over 24 months.
	_, err := svc.ApplyPayment(ctx, c.ID, money("93.51"), date(2025, time.February, 15), credit.PaymentCash, testParams())
	require.NoError(t, err)

	sched, err := svc.Refinance(ctx, c.ID, 24, engine.MethodFixedPrincipal, date(2025, time.March, 1))
	require.NoError(t, err)
	require.Len(t, sched.Entries, 24)
	assert.True(t, sched.Summary.TotalPrincipal.Equal(money("941.79")), "refinanced principal %s", sched.Summary.TotalPrincipal)

	installments, err := st.InstallmentsByCredit(ctx, c.ID)
	require.NoError(t, err)

	var paid, cancelled, pending int
	for _, inst := range installments {
		switch inst.Status {
		case credit.InstallmentPaid:
			paid++
		case credit.InstallmentCancelled:
			cancelled++
		case credit.InstallmentPending:
			pending++
		}
	}
	assert.Equal(t, 1, paid)
	assert.Equal(t, 11, cancelled)
	assert.Equal(t, 24, pending)

	stored, err := st.GetCredit(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 24, stored.TermMonths)
	assert.Equal(t, engine.MethodFixedPrincipal, stored.Method)
	assert.Equal(t, engine.TierCurrent, stored.Tier)
}

func TestRefinance_BlockedByOutstandingPenalty(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()
	c := disbursedCredit(t, svc)

	// Accrue penalty on the overdue first installment.
	_, err := svc.Reevaluate(ctx, c.ID, date(2025, time.March, 7), testParams())
	require.NoError(t, err)

	_, err = svc.Refinance(ctx, c.ID, 24, engine.MethodFixedInstallment, date(2025, time.March, 7))
	assert.ErrorIs(t, err, credit.ErrRefinanceBlocked)
}

func TestServiceErrors_UnknownCredit(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()

	_, err := svc.Approve(ctx, "missing")
	assert.True(t, errors.Is(err, credit.ErrCreditNotFound))
	_, err = svc.ApplyPayment(ctx, "missing", money("10"), date(2025, time.February, 15), credit.PaymentCash, testParams())
	assert.True(t, errors.Is(err, credit.ErrCreditNotFound))
}
