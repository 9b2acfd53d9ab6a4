package engine_test

import (
	"errors"
	"testing"

	"github.com/coopfin/credit-engine/engine"
)

func mustDistribute(t *testing.T, payment, penalty, interest, principal string) engine.Distribution {
	t.Helper()
	d, err := engine.Distribute(money(payment), money(penalty), money(interest), money(principal))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return d
}

// =============================================================================
// PRIORITY ORDER AND CONSERVATION
// =============================================================================

func TestDistribute_ReferenceScenario(t *testing.T) {
	// Penalty 50, interest 75, principal 175 due; payment of 200
	// -> applied (50, 75, 75), surplus 0.
	d := mustDistribute(t, "200", "50", "75", "175")

	assertMoney(t, d.AppliedPenalty, "50", "applied penalty")
	assertMoney(t, d.AppliedInterest, "75", "applied interest")
	assertMoney(t, d.AppliedPrincipal, "75", "applied principal")
	assertMoney(t, d.Surplus, "0", "surplus")
}

func TestDistribute_ConservationInEveryBranch(t *testing.T) {
	cases := []struct {
		name                                  string
		payment, penalty, interest, principal string
	}{
		{"smaller than penalty", "10", "50", "75", "175"},
		{"exactly penalty", "50", "50", "75", "175"},
		{"into interest", "80", "50", "75", "175"},
		{"exactly penalty+interest", "125", "50", "75", "175"},
		{"into principal", "200", "50", "75", "175"},
		{"exactly all dues", "300", "50", "75", "175"},
		{"exceeds all dues", "500", "50", "75", "175"},
		{"no penalty due", "100", "0", "75", "175"},
		{"no dues at all", "100", "0", "0", "0"},
		{"zero payment", "0", "50", "75", "175"},
		{"cents", "91.68", "1.23", "15.00", "76.68"},
		{"tiny payment", "0.01", "50", "75", "175"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := mustDistribute(t, tc.payment, tc.penalty, tc.interest, tc.principal)

			// appliedPenalty + appliedInterest + appliedPrincipal + surplus == payment
			if !d.Total().Equal(money(tc.payment)) {
				t.Errorf("conservation broken: parts sum %s, payment %s", d.Total(), tc.payment)
			}

			// Priority: interest is only touched once penalty is exhausted,
			// principal only once interest is.
			if d.AppliedInterest.IsPositive() && !d.AppliedPenalty.Equal(money(tc.penalty)) {
				t.Errorf("interest applied before penalty exhausted: %+v", d)
			}
			if d.AppliedPrincipal.IsPositive() && !d.AppliedInterest.Equal(money(tc.interest)) {
				t.Errorf("principal applied before interest exhausted: %+v", d)
			}
			if d.Surplus.IsPositive() && !d.AppliedPrincipal.Equal(money(tc.principal)) {
				t.Errorf("surplus left before principal exhausted: %+v", d)
			}

			// No bucket exceeds its due and nothing is negative.
			if d.AppliedPenalty.GreaterThan(money(tc.penalty)) ||
				d.AppliedInterest.GreaterThan(money(tc.interest)) ||
				d.AppliedPrincipal.GreaterThan(money(tc.principal)) {
				t.Errorf("bucket over-applied: %+v", d)
			}
			if d.AppliedPenalty.IsNegative() || d.AppliedInterest.IsNegative() ||
				d.AppliedPrincipal.IsNegative() || d.Surplus.IsNegative() {
				t.Errorf("negative allocation: %+v", d)
			}
		})
	}
}

func TestDistribute_SurplusWhenOverpaid(t *testing.T) {
	d := mustDistribute(t, "500", "50", "75", "175")
	assertMoney(t, d.Surplus, "200", "surplus on overpayment")
}

func TestDistribute_RejectsNegativeInputs(t *testing.T) {
	negatives := [][4]string{
		{"-1", "0", "0", "0"},
		{"10", "-1", "0", "0"},
		{"10", "0", "-1", "0"},
		{"10", "0", "0", "-1"},
	}
	for _, n := range negatives {
		_, err := engine.Distribute(money(n[0]), money(n[1]), money(n[2]), money(n[3]))
		if !errors.Is(err, engine.ErrInvalidPaymentAmount) {
			t.Errorf("Distribute(%v) err = %v, want ErrInvalidPaymentAmount", n, err)
		}
	}
}
