/*
amortization.go - Installment schedule generation

PURPOSE:
  Generates the full installment schedule for a credit at disbursement
  time, under one of two methods:

  Fixed installment ("cuota fija"):
    Constant total payment. installment = P * i(1+i)^n / ((1+i)^n - 1).
    Interest each period on the outstanding balance; the principal
    portion is the remainder.

  Fixed principal ("capital fijo"):
    Constant principal portion P/n. Interest on the outstanding balance,
    so the total payment strictly shrinks as the balance does.

ROUNDING DRIFT:
  Every amount is rounded to 2 decimals as it is produced, so the
  per-period figures drift from the closed formula by fractions of a
  cent. The FINAL installment's principal portion is forced to the exact
  remaining balance, which guarantees:
    - sum(principal portions) == principal, exactly
    - the schedule's ending balance == 0, exactly
  The residue lands on the last installment's total (at most a cent or
  two either way).

DUE DATES:
  Due date of installment k = disbursement date + k months, preserving
  the day of month and clamping at month end (see Date.AddMonths).
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// METHODS
// =============================================================================

// Method selects the amortization system.
type Method string

const (
	MethodFixedInstallment Method = "fixed_installment"
	MethodFixedPrincipal   Method = "fixed_principal"
)

func (m Method) Valid() bool {
	return m == MethodFixedInstallment || m == MethodFixedPrincipal
}

// Term bounds for cooperative credits.
const (
	MinTermMonths = 6
	MaxTermMonths = 60
)

// =============================================================================
// INPUT / OUTPUT SHAPES
// =============================================================================

// ScheduleInput is everything schedule generation needs. Configuration is
// resolved by the caller; the generator reads nothing else.
type ScheduleInput struct {
	Principal         Money
	AnnualRatePercent decimal.Decimal
	TermMonths        int
	Method            Method
	DisbursementDate  Date
}

// ScheduleEntry is one installment of the generated schedule.
type ScheduleEntry struct {
	Sequence         int   `json:"sequence"`
	DueDate          Date  `json:"due_date"`
	Principal        Money `json:"principal"`
	Interest         Money `json:"interest"`
	Total            Money `json:"total"`
	RemainingBalance Money `json:"remaining_balance"`
}

// ScheduleSummary aggregates the schedule.
type ScheduleSummary struct {
	TotalPrincipal Money `json:"total_principal"`
	TotalInterest  Money `json:"total_interest"`
	TotalPayable   Money `json:"total_payable"`
}

// Schedule is the ordered installment plan produced at disbursement.
type Schedule struct {
	Method  Method          `json:"method"`
	Entries []ScheduleEntry `json:"entries"`
	Summary ScheduleSummary `json:"summary"`
}

// =============================================================================
// GENERATION
// =============================================================================

// GenerateSchedule produces the installment schedule for the given terms.
// Preconditions: principal > 0, 0 <= rate <= 100, 6 <= term <= 60.
// Violations fail with ErrInvalidAmortizationInput before any computation.
func GenerateSchedule(in ScheduleInput) (*Schedule, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	i := MonthlyRate(in.AnnualRatePercent)

	var entries []ScheduleEntry
	switch in.Method {
	case MethodFixedInstallment:
		entries = fixedInstallmentEntries(in, i)
	case MethodFixedPrincipal:
		entries = fixedPrincipalEntries(in, i)
	}

	return &Schedule{
		Method:  in.Method,
		Entries: entries,
		Summary: summarize(entries),
	}, nil
}

func validateInput(in ScheduleInput) error {
	if !in.Principal.IsPositive() {
		return &AmortizationInputError{Field: "principal", Value: in.Principal.String(), Reason: "must be positive"}
	}
	if in.AnnualRatePercent.IsNegative() || in.AnnualRatePercent.GreaterThan(hundred) {
		return &AmortizationInputError{Field: "annual_rate", Value: in.AnnualRatePercent.String(), Reason: "must be between 0 and 100"}
	}
	if in.TermMonths < MinTermMonths || in.TermMonths > MaxTermMonths {
		return &AmortizationInputError{Field: "term_months", Value: decimal.NewFromInt(int64(in.TermMonths)).String(), Reason: "must be between 6 and 60"}
	}
	if !in.Method.Valid() {
		return &AmortizationInputError{Field: "method", Value: string(in.Method), Reason: "unknown amortization method"}
	}
	return nil
}

func fixedInstallmentEntries(in ScheduleInput, i decimal.Decimal) []ScheduleEntry {
	n := in.TermMonths
	installment := fixedInstallmentAmount(in.Principal, i, n)

	entries := make([]ScheduleEntry, 0, n)
	balance := in.Principal
	for k := 1; k <= n; k++ {
		interest := balance.Mul(i).Round()

		var principal Money
		if k < n {
			principal = installment.Sub(interest)
		} else {
			// Final installment absorbs cumulative rounding drift:
			// principal portion is the exact remaining balance.
			principal = balance
		}

		balance = balance.Sub(principal)
		entries = append(entries, ScheduleEntry{
			Sequence:         k,
			DueDate:          in.DisbursementDate.AddMonths(k),
			Principal:        principal,
			Interest:         interest,
			Total:            principal.Add(interest),
			RemainingBalance: balance,
		})
	}
	return entries
}

// fixedInstallmentAmount computes the constant payment, rounded to the
// minor unit. With a zero rate the payment degenerates to P/n exactly.
func fixedInstallmentAmount(principal Money, i decimal.Decimal, n int) Money {
	nDec := decimal.NewFromInt(int64(n))
	if i.IsZero() {
		return principal.Div(nDec).Round()
	}
	compound := one.Add(i).Pow(nDec)
	numerator := i.Mul(compound)
	denominator := compound.Sub(one)
	return principal.Mul(numerator.Div(denominator)).Round()
}

func fixedPrincipalEntries(in ScheduleInput, i decimal.Decimal) []ScheduleEntry {
	n := in.TermMonths
	base := in.Principal.Div(decimal.NewFromInt(int64(n))).Round()

	entries := make([]ScheduleEntry, 0, n)
	balance := in.Principal
	for k := 1; k <= n; k++ {
		interest := balance.Mul(i).Round()

		principal := base
		if k == n {
			// Same forcing rule as the fixed-installment method.
			principal = balance
		}

		balance = balance.Sub(principal)
		entries = append(entries, ScheduleEntry{
			Sequence:         k,
			DueDate:          in.DisbursementDate.AddMonths(k),
			Principal:        principal,
			Interest:         interest,
			Total:            principal.Add(interest),
			RemainingBalance: balance,
		})
	}
	return entries
}

func summarize(entries []ScheduleEntry) ScheduleSummary {
	totalPrincipal := ZeroMoney()
	totalInterest := ZeroMoney()
	for _, e := range entries {
		totalPrincipal = totalPrincipal.Add(e.Principal)
		totalInterest = totalInterest.Add(e.Interest)
	}
	return ScheduleSummary{
		TotalPrincipal: totalPrincipal,
		TotalInterest:  totalInterest,
		TotalPayable:   totalPrincipal.Add(totalInterest),
	}
}

// =============================================================================
// METHOD COMPARISON
// =============================================================================

// materialityThreshold is the total-interest delta below which neither
// method is recommended over the other.
var materialityThreshold = NewMoneyFromInt(1)

// MethodComparison reports how the two amortization methods differ over
// identical terms.
type MethodComparison struct {
	FixedInstallment ScheduleSummary `json:"fixed_installment"`
	FixedPrincipal   ScheduleSummary `json:"fixed_principal"`

	// Deltas are fixed-installment minus fixed-principal.
	TotalInterestDelta    Money `json:"total_interest_delta"`
	FirstInstallmentDelta Money `json:"first_installment_delta"`
	LastInstallmentDelta  Money `json:"last_installment_delta"`

	// Recommended is the method with the lower total interest when the
	// delta is material, empty otherwise.
	Recommended Method `json:"recommended,omitempty"`
}

// CompareMethods runs both methods over the same input and reports the
// differences. The method is ignored on the input.
func CompareMethods(in ScheduleInput) (*MethodComparison, error) {
	in.Method = MethodFixedInstallment
	fi, err := GenerateSchedule(in)
	if err != nil {
		return nil, err
	}
	in.Method = MethodFixedPrincipal
	fp, err := GenerateSchedule(in)
	if err != nil {
		return nil, err
	}

	cmp := &MethodComparison{
		FixedInstallment:      fi.Summary,
		FixedPrincipal:        fp.Summary,
		TotalInterestDelta:    fi.Summary.TotalInterest.Sub(fp.Summary.TotalInterest),
		FirstInstallmentDelta: fi.Entries[0].Total.Sub(fp.Entries[0].Total),
		LastInstallmentDelta:  fi.Entries[len(fi.Entries)-1].Total.Sub(fp.Entries[len(fp.Entries)-1].Total),
	}

	delta := cmp.TotalInterestDelta
	if delta.IsNegative() {
		delta = delta.Neg()
	}
	if delta.GreaterThan(materialityThreshold) {
		if fi.Summary.TotalInterest.LessThan(fp.Summary.TotalInterest) {
			cmp.Recommended = MethodFixedInstallment
		} else {
			cmp.Recommended = MethodFixedPrincipal
		}
	}
	return cmp, nil
}
