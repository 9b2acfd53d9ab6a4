/*
distribution.go - Payment allocation across due buckets

PURPOSE:
  Splits a payment across an installment's outstanding penalty, interest,
  and principal in strict priority order. Whatever is left after all
  three buckets is surplus, which the caller rolls forward as principal
  prepayment on the next unpaid installment.

CONSERVATION INVARIANT:
  appliedPenalty + appliedInterest + appliedPrincipal + surplus == payment

  holds EXACTLY in every branch. The allocation is min/subtract
  arithmetic on already-rounded amounts, so no new rounding happens here
  and nothing can leak.
*/
package engine

// Distribution is the allocation of one payment against one installment.
type Distribution struct {
	AppliedPenalty   Money `json:"applied_penalty"`
	AppliedInterest  Money `json:"applied_interest"`
	AppliedPrincipal Money `json:"applied_principal"`
	Surplus          Money `json:"surplus"`
}

// Total returns the sum of all applied parts plus surplus. Always equals
// the payment amount that produced the distribution.
func (d Distribution) Total() Money {
	return d.AppliedPenalty.Add(d.AppliedInterest).Add(d.AppliedPrincipal).Add(d.Surplus)
}

// Distribute allocates a payment across penalty, interest, and principal
// dues, in that strict priority order. All inputs must be non-negative;
// a negative anywhere fails with ErrInvalidPaymentAmount and nothing is
// allocated. A zero payment is valid and allocates nothing.
func Distribute(payment, penaltyDue, interestDue, principalDue Money) (Distribution, error) {
	if payment.IsNegative() || penaltyDue.IsNegative() || interestDue.IsNegative() || principalDue.IsNegative() {
		return Distribution{}, ErrInvalidPaymentAmount
	}

	appliedPenalty := payment.Min(penaltyDue)
	remaining := payment.Sub(appliedPenalty)

	appliedInterest := remaining.Min(interestDue)
	remaining = remaining.Sub(appliedInterest)

	appliedPrincipal := remaining.Min(principalDue)
	surplus := remaining.Sub(appliedPrincipal)

	return Distribution{
		AppliedPenalty:   appliedPenalty,
		AppliedInterest:  appliedInterest,
		AppliedPrincipal: appliedPrincipal,
		Surplus:          surplus,
	}, nil
}
