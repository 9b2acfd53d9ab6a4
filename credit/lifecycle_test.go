package credit_test

import (
	"errors"
	"testing"

	"github.com/coopfin/credit-engine/credit"
)

func TestLifecycle_AllowedTransitions(t *testing.T) {
	cases := []struct {
		from, to credit.CreditState
		allowed  bool
	}{
		{credit.StateRequested, credit.StateApproved, true},
		{credit.StateRequested, credit.StateRejected, true},
		{credit.StateApproved, credit.StateDisbursed, true},
		{credit.StateApproved, credit.StateRejected, true},
		{credit.StateDisbursed, credit.StateCompleted, true},
		{credit.StateDisbursed, credit.StateWrittenOff, true},

		{credit.StateRequested, credit.StateDisbursed, false},
		{credit.StateRequested, credit.StateCompleted, false},
		{credit.StateDisbursed, credit.StateRejected, false},
		{credit.StateCompleted, credit.StateDisbursed, false},
		{credit.StateWrittenOff, credit.StateDisbursed, false},
		{credit.StateWrittenOff, credit.StateCompleted, false},
		{credit.StateRejected, credit.StateApproved, false},
	}

	for _, tc := range cases {
		if got := credit.CanTransition(tc.from, tc.to); got != tc.allowed {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestLifecycle_WriteOffIsTerminal(t *testing.T) {
	c := &credit.Credit{State: credit.StateDisbursed}
	if err := c.WriteOff(); err != nil {
		t.Fatalf("write-off from disbursed: %v", err)
	}
	if err := c.Complete(); !errors.Is(err, credit.ErrInvalidTransition) {
		t.Errorf("complete after write-off: err = %v, want ErrInvalidTransition", err)
	}

	var transErr *credit.StateTransitionError
	err := c.Approve()
	if !errors.As(err, &transErr) {
		t.Fatalf("expected StateTransitionError, got %v", err)
	}
	if transErr.From != credit.StateWrittenOff || transErr.To != credit.StateApproved {
		t.Errorf("unexpected transition detail: %+v", transErr)
	}
}
