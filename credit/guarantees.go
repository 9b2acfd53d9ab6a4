package credit

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coopfin/credit-engine/engine"
)

// =============================================================================
// GUARANTEE CONSTITUTION
// =============================================================================

// RequiredGuarantors is how many guarantors back a guaranteed credit.
// A credit has either zero or exactly this many active guarantees.
const RequiredGuarantors = 2

var (
	// ErrGuarantorCount is returned when constitution is attempted with
	// anything other than exactly two distinct guarantors.
	ErrGuarantorCount = errors.New("a credit requires exactly two guarantors")

	// ErrGuarantorIsBorrower is returned when a member tries to guarantee
	// their own credit.
	ErrGuarantorIsBorrower = errors.New("borrower cannot guarantee own credit")

	// ErrGuarantorOverCommitted is returned when a guarantor already backs
	// the maximum number of simultaneous credits.
	ErrGuarantorOverCommitted = errors.New("guarantor exceeds simultaneous guarantee limit")

	// ErrGuaranteeNotReleasable is returned when a release is requested
	// while the credit is delinquent or the guarantee is not active.
	ErrGuaranteeNotReleasable = errors.New("guarantee not releasable")
)

// FreezeAmountPerGuarantor computes each guarantor's frozen stake: the
// configured fraction of the credit's total financed amount, split evenly
// between the two guarantors, rounded to the minor unit.
func FreezeAmountPerGuarantor(totalFinanced engine.Money, freezePercent decimal.Decimal) engine.Money {
	total := totalFinanced.Mul(engine.PercentFraction(freezePercent))
	return total.Div(decimal.NewFromInt(RequiredGuarantors)).Round()
}

// ConstituteGuarantees builds the guarantee pair for a credit. Validation
// only; freezing savings and persistence are the Service's job.
func ConstituteGuarantees(c *Credit, guarantors []MemberID, freezePercent decimal.Decimal, now time.Time) ([]Guarantee, error) {
	if len(guarantors) != RequiredGuarantors {
		return nil, fmt.Errorf("%d guarantors given: %w", len(guarantors), ErrGuarantorCount)
	}
	if guarantors[0] == guarantors[1] {
		return nil, fmt.Errorf("duplicate guarantor %s: %w", guarantors[0], ErrGuarantorCount)
	}
	for _, g := range guarantors {
		if g == c.MemberID {
			return nil, ErrGuarantorIsBorrower
		}
	}

	stake := FreezeAmountPerGuarantor(c.TotalFinanced, freezePercent)
	out := make([]Guarantee, 0, RequiredGuarantors)
	for _, g := range guarantors {
		out = append(out, Guarantee{
			ID:           GuaranteeID(uuid.NewString()),
			CreditID:     c.ID,
			GuarantorID:  g,
			FrozenAmount: stake,
			State:        engine.GuaranteeActive,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	return out, nil
}

// ValidateGuaranteeSet enforces the zero-or-exactly-two invariant on a
// credit's active guarantees.
func ValidateGuaranteeSet(gs []Guarantee) error {
	active := 0
	for _, g := range gs {
		if g.State == engine.GuaranteeActive {
			active++
		}
	}
	if active != 0 && active != RequiredGuarantors {
		return &engine.GuaranteeCountError{ActiveCount: active}
	}
	return nil
}

// =============================================================================
// RELEASE FLOW: active -> in_release -> {released | active}
// =============================================================================

// RequestRelease moves an active guarantee into the release workflow.
// Only allowed while the owning credit is not delinquent.
func RequestRelease(g *Guarantee, creditTier engine.Tier) error {
	if g.State != engine.GuaranteeActive {
		return fmt.Errorf("guarantee %s in state %s: %w", g.ID, g.State, ErrGuaranteeNotReleasable)
	}
	if creditTier != engine.TierCurrent {
		return fmt.Errorf("credit tier %s: %w", creditTier, ErrGuaranteeNotReleasable)
	}
	g.State = engine.GuaranteeInRelease
	return nil
}

// ApproveRelease finalizes a pending release.
func ApproveRelease(g *Guarantee) error {
	if g.State != engine.GuaranteeInRelease {
		return fmt.Errorf("guarantee %s in state %s: %w", g.ID, g.State, ErrGuaranteeNotReleasable)
	}
	g.State = engine.GuaranteeReleased
	return nil
}

// DenyRelease returns a pending release to active.
func DenyRelease(g *Guarantee) error {
	if g.State != engine.GuaranteeInRelease {
		return fmt.Errorf("guarantee %s in state %s: %w", g.ID, g.State, ErrGuaranteeNotReleasable)
	}
	g.State = engine.GuaranteeActive
	return nil
}
