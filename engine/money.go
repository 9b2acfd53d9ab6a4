/*
Package engine implements the credit financial engine: amortization
schedule generation, delinquency assessment, payment distribution, and
guarantee execution.

PURPOSE:
  This package contains the pure numerical core of the credit system.
  Every function here is a stateless computation over the data it is
  handed: no I/O, no clocks, no configuration lookups. Callers resolve
  configuration (penalty rates, freeze percentages) once per operation
  and pass it in explicitly.

KEY CONCEPTS IN THIS FILE (money.go):
  - Money: A monetary amount backed by decimal.Decimal
  - RoundMoney: The single rounding rule (2 decimal places, half up)

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal everywhere, never float64 accumulation
  2. Boundary rounding: every computed amount is rounded to the currency's
     minor unit at the point it is produced, so exact-sum invariants hold
  3. Determinism: same inputs always produce the same outputs

SEE ALSO:
  - amortization.go: Schedule generation
  - distribution.go: Payment allocation
  - delinquency.go: Penalty and tier assessment
  - guarantee.go: Guarantee liquidation
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Monetary amount with fixed-point semantics
// =============================================================================

// Money is a monetary amount in the cooperative's single currency.
// The zero value is zero money and ready to use.
type Money struct {
	Value decimal.Decimal
}

// minorUnits is the number of decimal places in the currency's minor unit.
const minorUnits = 2

func NewMoney(value float64) Money {
	return Money{Value: decimal.NewFromFloat(value)}
}

func NewMoneyFromInt(value int64) Money {
	return Money{Value: decimal.NewFromInt(value)}
}

// ParseMoney parses a decimal string. Amounts crossing system boundaries
// travel as strings, never floats.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Value: d}, nil
}

// MustParseMoney parses a decimal string, returning zero money on error.
// Intended for literals in configuration and tests.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		return Money{}
	}
	return m
}

func ZeroMoney() Money { return Money{Value: decimal.Zero} }

func (m Money) Add(o Money) Money             { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money             { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Mul(f decimal.Decimal) Money   { return Money{Value: m.Value.Mul(f)} }
func (m Money) Div(f decimal.Decimal) Money   { return Money{Value: m.Value.Div(f)} }
func (m Money) Neg() Money                    { return Money{Value: m.Value.Neg()} }
func (m Money) IsZero() bool                  { return m.Value.IsZero() }
func (m Money) IsNegative() bool              { return m.Value.IsNegative() }
func (m Money) IsPositive() bool              { return m.Value.IsPositive() }
func (m Money) Equal(o Money) bool            { return m.Value.Equal(o.Value) }
func (m Money) GreaterThan(o Money) bool      { return m.Value.GreaterThan(o.Value) }
func (m Money) LessThan(o Money) bool         { return m.Value.LessThan(o.Value) }
func (m Money) GreaterOrEqual(o Money) bool   { return !m.LessThan(o) }
func (m Money) LessOrEqual(o Money) bool      { return !m.GreaterThan(o) }

func (m Money) Min(o Money) Money {
	if m.LessThan(o) {
		return m
	}
	return o
}

func (m Money) Max(o Money) Money {
	if m.GreaterThan(o) {
		return m
	}
	return o
}

// Round rounds to the currency's minor unit (half away from zero).
// This is THE rounding boundary: every computed amount passes through
// here before it is stored, summed, or compared.
func (m Money) Round() Money {
	return Money{Value: m.Value.Round(minorUnits)}
}

// ClampZero returns zero when the amount is negative, the amount otherwise.
func (m Money) ClampZero() Money {
	if m.IsNegative() {
		return ZeroMoney()
	}
	return m
}

// String renders with exactly two decimal places.
func (m Money) String() string {
	return m.Value.StringFixed(minorUnits)
}

// MarshalJSON / UnmarshalJSON keep the wire format a plain decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	m.Value = d
	return nil
}

// =============================================================================
// RATES - Percentages handled as raw decimals
// =============================================================================

var (
	hundred      = decimal.NewFromInt(100)
	twelve       = decimal.NewFromInt(12)
	one          = decimal.NewFromInt(1)
)

// MonthlyRate converts a nominal annual percentage (e.g. 18) into a
// periodic monthly rate (0.015).
func MonthlyRate(annualRatePercent decimal.Decimal) decimal.Decimal {
	return annualRatePercent.Div(twelve).Div(hundred)
}

// PercentFraction converts a percentage (e.g. 0.1) into a fraction (0.001).
func PercentFraction(percent decimal.Decimal) decimal.Decimal {
	return percent.Div(hundred)
}
