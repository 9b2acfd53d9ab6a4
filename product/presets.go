package product

import "fmt"

// Preset product definitions the cooperative starts from. Each returns a
// JSON string suitable for Catalog.Load, so the presets exercise the same
// path as committee-authored definitions.

// StandardConsumerJSON is the default consumer credit product.
func StandardConsumerJSON(id, name string, annualRatePercent string, maxPrincipal string) string {
	return fmt.Sprintf(`{
		"id": %q,
		"name": %q,
		"method": "fixed_installment",
		"annual_rate_percent": %q,
		"min_principal": "100",
		"max_principal": %q,
		"min_term_months": 6,
		"max_term_months": 36
	}`, id, name, annualRatePercent, maxPrincipal)
}

// EmergencyCreditJSON is a short-term product with a higher rate, lighter
// guarantee freeze, and no premium.
func EmergencyCreditJSON(id, name string) string {
	return fmt.Sprintf(`{
		"id": %q,
		"name": %q,
		"method": "fixed_principal",
		"annual_rate_percent": "24",
		"min_principal": "50",
		"max_principal": "2000",
		"min_term_months": 6,
		"max_term_months": 12,
		"guarantee_freeze_percent": "5",
		"insurance_premium_rate_percent": "0"
	}`, id, name)
}

// ProductiveCreditJSON is a long-term product for productive investment,
// declining-payment by default.
func ProductiveCreditJSON(id, name string, maxPrincipal string) string {
	return fmt.Sprintf(`{
		"id": %q,
		"name": %q,
		"method": "fixed_principal",
		"annual_rate_percent": "14.5",
		"min_principal": "1000",
		"max_principal": %q,
		"min_term_months": 12,
		"max_term_months": 60,
		"guarantee_freeze_percent": "15",
		"max_active_guarantees_per_member": 3
	}`, id, name, maxPrincipal)
}
