/*
guarantee.go - Guarantee execution trigger

PURPOSE:
  Decides whether guarantor-frozen savings are liquidated against a
  written-off credit, and by how much. Fires only when the credit's
  delinquency rollup has reached written_off (the execution check runs
  strictly after the write-off transition is already set - day 91 in the
  domain's convention).

IDEMPOTENCE:
  Only guarantees in the active state are liquidated. Released or
  already-executed guarantees are skipped, so running execution twice
  over an already-executed set changes nothing and reports
  executed=false.

OVER-COVERAGE:
  When the liquidated total exceeds the credit's outstanding balance the
  remaining balance clamps to zero. The excess is a collections concern
  outside this engine; nothing is refunded here.
*/
package engine

// =============================================================================
// GUARANTEE STATES
// =============================================================================

// GuaranteeState is the lifecycle state of a guarantee.
type GuaranteeState string

const (
	GuaranteeActive    GuaranteeState = "active"
	GuaranteeInRelease GuaranteeState = "in_release"
	GuaranteeReleased  GuaranteeState = "released"
	GuaranteeExecuted  GuaranteeState = "executed"
)

// GuaranteeStake is the engine's view of one guarantee: its identity,
// state, and the guarantor savings frozen behind it.
type GuaranteeStake struct {
	ID           string         `json:"id"`
	State        GuaranteeState `json:"state"`
	FrozenAmount Money          `json:"frozen_amount"`
}

// =============================================================================
// EXECUTION
// =============================================================================

// Execution is the outcome of a guarantee execution evaluation.
type Execution struct {
	Executed         bool                      `json:"executed"`
	AmountLiquidated Money                     `json:"amount_liquidated"`
	RemainingBalance Money                     `json:"remaining_balance"`
	UpdatedStates    map[string]GuaranteeState `json:"updated_guarantee_states"`
}

// ExecuteGuarantees evaluates guarantee execution for a credit with the
// given delinquency tier and outstanding principal. Each active stake is
// liquidated in full and transitions to executed; non-active stakes are
// skipped. A set with exactly one active guarantee fails with
// ErrGuaranteeCountViolation - that invariant is the caller's to enforce
// and the engine refuses to act on a malformed set.
func ExecuteGuarantees(tier Tier, outstanding Money, stakes []GuaranteeStake) (Execution, error) {
	active := 0
	for _, s := range stakes {
		if s.State == GuaranteeActive {
			active++
		}
	}
	if active == 1 {
		return Execution{}, &GuaranteeCountError{ActiveCount: active}
	}

	if tier != TierWrittenOff || active == 0 {
		return Execution{
			Executed:         false,
			AmountLiquidated: ZeroMoney(),
			RemainingBalance: outstanding,
			UpdatedStates:    map[string]GuaranteeState{},
		}, nil
	}

	liquidated := ZeroMoney()
	updated := make(map[string]GuaranteeState, active)
	for _, s := range stakes {
		if s.State != GuaranteeActive {
			continue
		}
		liquidated = liquidated.Add(s.FrozenAmount)
		updated[s.ID] = GuaranteeExecuted
	}

	return Execution{
		Executed:         true,
		AmountLiquidated: liquidated,
		RemainingBalance: outstanding.Sub(liquidated).ClampZero(),
		UpdatedStates:    updated,
	}, nil
}
