/*
Package product provides JSON to Go credit product conversion.

PURPOSE:
  Converts JSON product definitions into validated Product values. This
  enables product configuration without code changes - the cooperative's
  credit committee can define products in JSON, and the catalog produces
  the financial parameters the engine consumes.

JSON SCHEMA:
  {
    "id": "consumer-standard",
    "name": "Standard Consumer Credit",
    "method": "fixed_installment",
    "annual_rate_percent": "18",
    "min_principal": "100",
    "max_principal": "10000",
    "min_term_months": 6,
    "max_term_months": 36,
    "daily_penalty_rate_percent": "0.1",
    "guarantee_freeze_percent": "10",
    "insurance_premium_rate_percent": "2",
    "max_active_guarantees_per_member": 5
  }

KEY FEATURES:
  - Validates structure and ranges on load, not at use time
  - Sets sensible defaults for omitted financial parameters
  - Rate fields are decimal strings, never floats
  - Resolves to an explicit credit.Params per operation

USAGE:
  catalog := product.NewCatalog()
  if err := catalog.Load(jsonString); err != nil { ... }

  p, err := catalog.Get("consumer-standard")
  if err := p.ValidateRequest(amount, termMonths); err != nil { ... }
  svc.RequestCredit(ctx, input, p.Params())

SEE ALSO:
  - credit/service.go: Params consumer
  - engine/amortization.go: term bounds the validation defers to
*/
package product

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/coopfin/credit-engine/credit"
	"github.com/coopfin/credit-engine/engine"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ProductJSON is the JSON representation of a credit product. Monetary
// and rate fields are decimal strings.
type ProductJSON struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Method string `json:"method"`

	AnnualRatePercent string `json:"annual_rate_percent"`
	MinPrincipal      string `json:"min_principal"`
	MaxPrincipal      string `json:"max_principal"`
	MinTermMonths     int    `json:"min_term_months,omitempty"`
	MaxTermMonths     int    `json:"max_term_months,omitempty"`

	DailyPenaltyRatePercent      string `json:"daily_penalty_rate_percent,omitempty"`
	GuaranteeFreezePercent       string `json:"guarantee_freeze_percent,omitempty"`
	InsurancePremiumRatePercent  string `json:"insurance_premium_rate_percent,omitempty"`
	MaxActiveGuaranteesPerMember int    `json:"max_active_guarantees_per_member,omitempty"`
}

// =============================================================================
// PRODUCT
// =============================================================================

var (
	ErrUnknownProduct    = errors.New("unknown product")
	ErrInvalidProduct    = errors.New("invalid product definition")
	ErrAmountOutOfRange  = errors.New("requested amount outside product range")
	ErrTermOutOfRange    = errors.New("requested term outside product range")
	ErrDuplicateProduct  = errors.New("duplicate product id")
)

// Defaults applied when a product definition omits a financial parameter.
var (
	defaultDailyPenaltyRate = decimal.RequireFromString("0.1")
	defaultFreezePercent    = decimal.RequireFromString("10")
	defaultPremiumRate      = decimal.RequireFromString("2")
)

const defaultMaxActiveGuarantees = 5

// Product is a validated credit product ready for origination.
type Product struct {
	ID     string
	Name   string
	Method engine.Method

	AnnualRatePercent decimal.Decimal
	MinPrincipal      engine.Money
	MaxPrincipal      engine.Money
	MinTermMonths     int
	MaxTermMonths     int

	DailyPenaltyRatePercent      decimal.Decimal
	GuaranteeFreezePercent       decimal.Decimal
	InsurancePremiumRatePercent  decimal.Decimal
	MaxActiveGuaranteesPerMember int
}

// Params resolves the product's financial configuration for one
// service operation.
func (p *Product) Params() credit.Params {
	return credit.Params{
		DailyPenaltyRatePercent:      p.DailyPenaltyRatePercent,
		GuaranteeFreezePercent:       p.GuaranteeFreezePercent,
		InsurancePremiumRatePercent:  p.InsurancePremiumRatePercent,
		MaxActiveGuaranteesPerMember: p.MaxActiveGuaranteesPerMember,
	}
}

// ValidateRequest checks a member's requested terms against the product.
func (p *Product) ValidateRequest(amount engine.Money, termMonths int) error {
	if amount.LessThan(p.MinPrincipal) || amount.GreaterThan(p.MaxPrincipal) {
		return fmt.Errorf("%s not in [%s, %s]: %w",
			amount, p.MinPrincipal, p.MaxPrincipal, ErrAmountOutOfRange)
	}
	if termMonths < p.MinTermMonths || termMonths > p.MaxTermMonths {
		return fmt.Errorf("%d months not in [%d, %d]: %w",
			termMonths, p.MinTermMonths, p.MaxTermMonths, ErrTermOutOfRange)
	}
	return nil
}

// =============================================================================
// CATALOG
// =============================================================================

// Catalog holds the loaded products by ID.
type Catalog struct {
	products map[string]*Product
}

func NewCatalog() *Catalog {
	return &Catalog{products: make(map[string]*Product)}
}

// Load parses one JSON product definition and registers it.
func (c *Catalog) Load(jsonStr string) error {
	var pj ProductJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return fmt.Errorf("failed to parse product JSON: %w", err)
	}

	p, err := FromJSON(pj)
	if err != nil {
		return err
	}
	if _, exists := c.products[p.ID]; exists {
		return fmt.Errorf("product %q: %w", p.ID, ErrDuplicateProduct)
	}
	c.products[p.ID] = p
	return nil
}

// LoadAll registers a batch of definitions; the catalog is unchanged when
// any of them fails.
func (c *Catalog) LoadAll(jsonStrs []string) error {
	staged := NewCatalog()
	for k, v := range c.products {
		staged.products[k] = v
	}
	for _, s := range jsonStrs {
		if err := staged.Load(s); err != nil {
			return err
		}
	}
	c.products = staged.products
	return nil
}

// Get returns a product by ID.
func (c *Catalog) Get(id string) (*Product, error) {
	p, ok := c.products[id]
	if !ok {
		return nil, fmt.Errorf("product %q: %w", id, ErrUnknownProduct)
	}
	return p, nil
}

// IDs lists the registered product IDs.
func (c *Catalog) IDs() []string {
	out := make([]string, 0, len(c.products))
	for id := range c.products {
		out = append(out, id)
	}
	return out
}

// =============================================================================
// PARSING
// =============================================================================

// FromJSON converts ProductJSON into a validated Product, applying
// defaults for omitted financial parameters.
func FromJSON(pj ProductJSON) (*Product, error) {
	if pj.ID == "" || pj.Name == "" {
		return nil, fmt.Errorf("id and name are required: %w", ErrInvalidProduct)
	}

	method, err := parseMethod(pj.Method)
	if err != nil {
		return nil, err
	}

	rate, err := parseRate("annual_rate_percent", pj.AnnualRatePercent)
	if err != nil {
		return nil, err
	}
	minPrincipal, err := parseMoney("min_principal", pj.MinPrincipal)
	if err != nil {
		return nil, err
	}
	maxPrincipal, err := parseMoney("max_principal", pj.MaxPrincipal)
	if err != nil {
		return nil, err
	}
	if maxPrincipal.LessThan(minPrincipal) {
		return nil, fmt.Errorf("max_principal %s below min_principal %s: %w",
			maxPrincipal, minPrincipal, ErrInvalidProduct)
	}

	p := &Product{
		ID:                           pj.ID,
		Name:                         pj.Name,
		Method:                       method,
		AnnualRatePercent:            rate,
		MinPrincipal:                 minPrincipal,
		MaxPrincipal:                 maxPrincipal,
		MinTermMonths:                pj.MinTermMonths,
		MaxTermMonths:                pj.MaxTermMonths,
		DailyPenaltyRatePercent:      defaultDailyPenaltyRate,
		GuaranteeFreezePercent:       defaultFreezePercent,
		InsurancePremiumRatePercent:  defaultPremiumRate,
		MaxActiveGuaranteesPerMember: defaultMaxActiveGuarantees,
	}

	// Term bounds default to the engine's and may only narrow them.
	if p.MinTermMonths == 0 {
		p.MinTermMonths = engine.MinTermMonths
	}
	if p.MaxTermMonths == 0 {
		p.MaxTermMonths = engine.MaxTermMonths
	}
	if p.MinTermMonths < engine.MinTermMonths || p.MaxTermMonths > engine.MaxTermMonths ||
		p.MinTermMonths > p.MaxTermMonths {
		return nil, fmt.Errorf("term range [%d, %d] outside [%d, %d]: %w",
			p.MinTermMonths, p.MaxTermMonths, engine.MinTermMonths, engine.MaxTermMonths, ErrInvalidProduct)
	}

	if pj.DailyPenaltyRatePercent != "" {
		if p.DailyPenaltyRatePercent, err = parseRate("daily_penalty_rate_percent", pj.DailyPenaltyRatePercent); err != nil {
			return nil, err
		}
	}
	if pj.GuaranteeFreezePercent != "" {
		if p.GuaranteeFreezePercent, err = parseRate("guarantee_freeze_percent", pj.GuaranteeFreezePercent); err != nil {
			return nil, err
		}
	}
	if pj.InsurancePremiumRatePercent != "" {
		if p.InsurancePremiumRatePercent, err = parseRate("insurance_premium_rate_percent", pj.InsurancePremiumRatePercent); err != nil {
			return nil, err
		}
	}
	if pj.MaxActiveGuaranteesPerMember > 0 {
		p.MaxActiveGuaranteesPerMember = pj.MaxActiveGuaranteesPerMember
	}

	return p, nil
}

// ToJSON converts a Product back to its JSON representation.
func ToJSON(p *Product) ProductJSON {
	return ProductJSON{
		ID:                           p.ID,
		Name:                         p.Name,
		Method:                       string(p.Method),
		AnnualRatePercent:            p.AnnualRatePercent.String(),
		MinPrincipal:                 p.MinPrincipal.String(),
		MaxPrincipal:                 p.MaxPrincipal.String(),
		MinTermMonths:                p.MinTermMonths,
		MaxTermMonths:                p.MaxTermMonths,
		DailyPenaltyRatePercent:      p.DailyPenaltyRatePercent.String(),
		GuaranteeFreezePercent:       p.GuaranteeFreezePercent.String(),
		InsurancePremiumRatePercent:  p.InsurancePremiumRatePercent.String(),
		MaxActiveGuaranteesPerMember: p.MaxActiveGuaranteesPerMember,
	}
}

func parseMethod(s string) (engine.Method, error) {
	switch s {
	case string(engine.MethodFixedInstallment), "":
		return engine.MethodFixedInstallment, nil
	case string(engine.MethodFixedPrincipal):
		return engine.MethodFixedPrincipal, nil
	default:
		return "", fmt.Errorf("unknown method %q: %w", s, ErrInvalidProduct)
	}
}

func parseRate(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%s %q: %w", field, s, ErrInvalidProduct)
	}
	if d.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("%s is negative: %w", field, ErrInvalidProduct)
	}
	return d, nil
}

func parseMoney(field, s string) (engine.Money, error) {
	m, err := engine.ParseMoney(s)
	if err != nil {
		return engine.Money{}, fmt.Errorf("%s %q: %w", field, s, ErrInvalidProduct)
	}
	if m.IsNegative() {
		return engine.Money{}, fmt.Errorf("%s is negative: %w", field, ErrInvalidProduct)
	}
	return m, nil
}
