package credit

import (
	"errors"
	"fmt"
)

// =============================================================================
// CREDIT LIFECYCLE - explicit transition table
// =============================================================================

// ErrInvalidTransition is returned for any lifecycle move the table does
// not allow. Write-off and completion are terminal; rejection is terminal.
var ErrInvalidTransition = errors.New("invalid credit state transition")

// StateTransitionError reports a disallowed lifecycle move.
type StateTransitionError struct {
	From CreditState
	To   CreditState
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("cannot transition credit from %s to %s", e.From, e.To)
}

func (e *StateTransitionError) Unwrap() error { return ErrInvalidTransition }

// allowedTransitions is the whole lifecycle:
// requested -> approved -> disbursed -> {completed | written_off}
// with rejected reachable from requested and approved.
var allowedTransitions = map[CreditState][]CreditState{
	StateRequested: {StateApproved, StateRejected},
	StateApproved:  {StateDisbursed, StateRejected},
	StateDisbursed: {StateCompleted, StateWrittenOff},
	// completed, written_off, rejected: terminal
}

// CanTransition reports whether the lifecycle allows from -> to.
func CanTransition(from, to CreditState) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (c *Credit) transitionTo(to CreditState) error {
	if !CanTransition(c.State, to) {
		return &StateTransitionError{From: c.State, To: to}
	}
	c.State = to
	return nil
}

func (c *Credit) Approve() error  { return c.transitionTo(StateApproved) }
func (c *Credit) Reject() error   { return c.transitionTo(StateRejected) }
func (c *Credit) Complete() error { return c.transitionTo(StateCompleted) }

// WriteOff performs the irreversible terminal transition at 90+ delinquent
// days. No further payments are expected after this; only guarantee
// execution and collections follow.
func (c *Credit) WriteOff() error { return c.transitionTo(StateWrittenOff) }

// MarkDisbursed transitions to disbursed. The caller sets the
// disbursement date and outstanding balance alongside.
func (c *Credit) MarkDisbursed() error { return c.transitionTo(StateDisbursed) }
