/*
delinquency.go - Penalty accrual and delinquency classification

PURPOSE:
  Measures how far past due an installment is, accrues the daily penalty
  on its outstanding amount, and maps elapsed days into one of six tiers.

IDEMPOTENCE:
  The penalty is RECOMPUTED from scratch on every evaluation, never
  incrementally accumulated. Running the evaluation twice with the same
  inputs yields the same penalty; there is no double-accrual path.

TIERS:
  current      0 days
  mild         1-15
  moderate     16-30
  severe       31-60
  persistent   61-89
  written_off  90+     (terminal: the owning credit is written off)

  Boundaries are inclusive on both ends and contiguous.

ROLLUP:
  A credit's delinquency signal is its OLDEST unpaid installment's
  elapsed days, not the most recent: the oldest gap determines risk.
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// TIERS
// =============================================================================

// Tier is the delinquency classification of an installment or credit.
// Always derived from elapsed days, never independent truth.
type Tier string

const (
	TierCurrent    Tier = "current"
	TierMild       Tier = "mild"
	TierModerate   Tier = "moderate"
	TierSevere     Tier = "severe"
	TierPersistent Tier = "persistent"
	TierWrittenOff Tier = "written_off"
)

// Tier day boundaries (inclusive upper bounds).
const (
	mildMaxDays       = 15
	moderateMaxDays   = 30
	severeMaxDays     = 60
	persistentMaxDays = 89
	// WriteOffDays is the elapsed-day threshold at which a credit is
	// written off and guarantee execution becomes eligible.
	WriteOffDays = 90
)

// ClassifyElapsedDays maps elapsed delinquent days to a tier. The mapping
// is a contiguous, non-overlapping partition of [0, inf).
func ClassifyElapsedDays(days int) Tier {
	switch {
	case days <= 0:
		return TierCurrent
	case days <= mildMaxDays:
		return TierMild
	case days <= moderateMaxDays:
		return TierModerate
	case days <= severeMaxDays:
		return TierSevere
	case days <= persistentMaxDays:
		return TierPersistent
	default:
		return TierWrittenOff
	}
}

// =============================================================================
// EVALUATION
// =============================================================================

// Assessment is the result of evaluating one installment as of a date.
type Assessment struct {
	Penalty     Money `json:"penalty"`
	ElapsedDays int   `json:"elapsed_days"`
	Tier        Tier  `json:"tier"`
}

// EvaluateDelinquency computes the accrued penalty and tier for an
// installment with the given outstanding amount and due date, as of a
// date. Elapsed days are floored at zero for not-yet-due installments.
// Penalty accrues only while elapsed days are positive and something is
// still owed:
//
//	penalty = outstanding * dailyRate * elapsedDays
//
// rounded to the minor unit once, at the end.
func EvaluateDelinquency(outstanding Money, dueDate, asOf Date, dailyPenaltyRatePercent decimal.Decimal) Assessment {
	days := DaysBetween(dueDate, asOf)
	if days < 0 {
		days = 0
	}

	penalty := ZeroMoney()
	if days > 0 && outstanding.IsPositive() {
		rate := PercentFraction(dailyPenaltyRatePercent)
		penalty = outstanding.Mul(rate).Mul(decimal.NewFromInt(int64(days))).Round()
	}

	return Assessment{
		Penalty:     penalty,
		ElapsedDays: days,
		Tier:        ClassifyElapsedDays(days),
	}
}

// =============================================================================
// CREDIT-LEVEL ROLLUP
// =============================================================================

// InstallmentDue is the minimal view of an installment the rollup needs.
type InstallmentDue struct {
	DueDate     Date
	Outstanding Money
	Paid        bool
}

// RollupDelinquency returns the credit-level delinquency signal: the
// elapsed days and tier of the oldest unpaid installment. A credit with
// no unpaid installments is current.
func RollupDelinquency(installments []InstallmentDue, asOf Date) (int, Tier) {
	var oldest *InstallmentDue
	for idx := range installments {
		inst := &installments[idx]
		if inst.Paid || !inst.Outstanding.IsPositive() {
			continue
		}
		if oldest == nil || inst.DueDate.Before(oldest.DueDate) {
			oldest = inst
		}
	}
	if oldest == nil {
		return 0, TierCurrent
	}
	days := DaysBetween(oldest.DueDate, asOf)
	if days < 0 {
		days = 0
	}
	return days, ClassifyElapsedDays(days)
}
