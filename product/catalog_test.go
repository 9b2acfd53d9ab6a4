package product_test

import (
	"errors"
	"testing"

	"github.com/coopfin/credit-engine/engine"
	"github.com/coopfin/credit-engine/product"
)

func money(s string) engine.Money { return engine.MustParseMoney(s) }

func TestCatalog_LoadAndResolve(t *testing.T) {
	c := product.NewCatalog()
	err := c.Load(product.StandardConsumerJSON("consumer-standard", "Standard Consumer Credit", "18", "10000"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	p, err := c.Get("consumer-standard")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.Method != engine.MethodFixedInstallment {
		t.Errorf("method = %s", p.Method)
	}
	if p.AnnualRatePercent.String() != "18" {
		t.Errorf("rate = %s", p.AnnualRatePercent)
	}

	// Omitted financial parameters fall back to defaults.
	params := p.Params()
	if params.DailyPenaltyRatePercent.String() != "0.1" {
		t.Errorf("penalty rate = %s, want 0.1", params.DailyPenaltyRatePercent)
	}
	if params.GuaranteeFreezePercent.String() != "10" {
		t.Errorf("freeze = %s, want 10", params.GuaranteeFreezePercent)
	}
	if params.InsurancePremiumRatePercent.String() != "2" {
		t.Errorf("premium = %s, want 2", params.InsurancePremiumRatePercent)
	}
	if params.MaxActiveGuaranteesPerMember != 5 {
		t.Errorf("max guarantees = %d, want 5", params.MaxActiveGuaranteesPerMember)
	}

	if _, err := c.Get("missing"); !errors.Is(err, product.ErrUnknownProduct) {
		t.Errorf("missing product: err = %v", err)
	}
}

func TestCatalog_ExplicitParametersOverrideDefaults(t *testing.T) {
	c := product.NewCatalog()
	if err := c.Load(product.EmergencyCreditJSON("emergency", "Emergency Credit")); err != nil {
		t.Fatalf("load: %v", err)
	}

	p, err := c.Get("emergency")
	if err != nil {
		t.Fatal(err)
	}
	if p.GuaranteeFreezePercent.String() != "5" {
		t.Errorf("freeze = %s, want 5", p.GuaranteeFreezePercent)
	}
	if !p.InsurancePremiumRatePercent.IsZero() {
		t.Errorf("premium = %s, want 0", p.InsurancePremiumRatePercent)
	}
	if p.Method != engine.MethodFixedPrincipal {
		t.Errorf("method = %s", p.Method)
	}
}

func TestValidateRequest(t *testing.T) {
	p, err := product.FromJSON(product.ProductJSON{
		ID: "p", Name: "P", Method: "fixed_installment",
		AnnualRatePercent: "18",
		MinPrincipal:      "100", MaxPrincipal: "5000",
		MinTermMonths: 6, MaxTermMonths: 24,
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := p.ValidateRequest(money("1000"), 12); err != nil {
		t.Errorf("in-range request: %v", err)
	}
	if err := p.ValidateRequest(money("100"), 6); err != nil {
		t.Errorf("lower boundary: %v", err)
	}
	if err := p.ValidateRequest(money("5000"), 24); err != nil {
		t.Errorf("upper boundary: %v", err)
	}

	if err := p.ValidateRequest(money("99.99"), 12); !errors.Is(err, product.ErrAmountOutOfRange) {
		t.Errorf("below min amount: err = %v", err)
	}
	if err := p.ValidateRequest(money("5000.01"), 12); !errors.Is(err, product.ErrAmountOutOfRange) {
		t.Errorf("above max amount: err = %v", err)
	}
	if err := p.ValidateRequest(money("1000"), 5); !errors.Is(err, product.ErrTermOutOfRange) {
		t.Errorf("below min term: err = %v", err)
	}
	if err := p.ValidateRequest(money("1000"), 25); !errors.Is(err, product.ErrTermOutOfRange) {
		t.Errorf("above max term: err = %v", err)
	}
}

func TestFromJSON_RejectsBadDefinitions(t *testing.T) {
	cases := []struct {
		name string
		pj   product.ProductJSON
	}{
		{"missing id", product.ProductJSON{Name: "P", AnnualRatePercent: "18", MinPrincipal: "1", MaxPrincipal: "2"}},
		{"bad method", product.ProductJSON{ID: "p", Name: "P", Method: "balloon", AnnualRatePercent: "18", MinPrincipal: "1", MaxPrincipal: "2"}},
		{"bad rate", product.ProductJSON{ID: "p", Name: "P", AnnualRatePercent: "eighteen", MinPrincipal: "1", MaxPrincipal: "2"}},
		{"negative rate", product.ProductJSON{ID: "p", Name: "P", AnnualRatePercent: "-1", MinPrincipal: "1", MaxPrincipal: "2"}},
		{"inverted principal range", product.ProductJSON{ID: "p", Name: "P", AnnualRatePercent: "18", MinPrincipal: "500", MaxPrincipal: "100"}},
		{"term below engine floor", product.ProductJSON{ID: "p", Name: "P", AnnualRatePercent: "18", MinPrincipal: "1", MaxPrincipal: "2", MinTermMonths: 3, MaxTermMonths: 12}},
		{"term above engine ceiling", product.ProductJSON{ID: "p", Name: "P", AnnualRatePercent: "18", MinPrincipal: "1", MaxPrincipal: "2", MinTermMonths: 6, MaxTermMonths: 72}},
	}
	for _, tc := range cases {
		if _, err := product.FromJSON(tc.pj); !errors.Is(err, product.ErrInvalidProduct) {
			t.Errorf("%s: err = %v, want ErrInvalidProduct", tc.name, err)
		}
	}
}

func TestCatalog_LoadAllIsAtomic(t *testing.T) {
	c := product.NewCatalog()
	err := c.LoadAll([]string{
		product.StandardConsumerJSON("a", "A", "18", "1000"),
		`{"id": "b"}`, // invalid: missing name and terms
	})
	if err == nil {
		t.Fatal("expected error from invalid batch")
	}
	if _, err := c.Get("a"); !errors.Is(err, product.ErrUnknownProduct) {
		t.Errorf("partial batch leaked into catalog: %v", err)
	}
}

func TestCatalog_RejectsDuplicateIDs(t *testing.T) {
	c := product.NewCatalog()
	def := product.StandardConsumerJSON("a", "A", "18", "1000")
	if err := c.Load(def); err != nil {
		t.Fatal(err)
	}
	if err := c.Load(def); !errors.Is(err, product.ErrDuplicateProduct) {
		t.Errorf("duplicate load: err = %v", err)
	}
}

func TestToJSON_Roundtrip(t *testing.T) {
	p, err := product.FromJSON(product.ProductJSON{
		ID: "p", Name: "P", Method: "fixed_principal",
		AnnualRatePercent: "14.5",
		MinPrincipal:      "1000", MaxPrincipal: "50000",
		MinTermMonths: 12, MaxTermMonths: 60,
		GuaranteeFreezePercent: "15",
	})
	if err != nil {
		t.Fatal(err)
	}

	pj := product.ToJSON(p)
	back, err := product.FromJSON(pj)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if back.AnnualRatePercent.String() != "14.5" || back.GuaranteeFreezePercent.String() != "15" {
		t.Errorf("roundtrip lost rates: %+v", back)
	}
	if back.MaxTermMonths != 60 {
		t.Errorf("roundtrip lost term: %d", back.MaxTermMonths)
	}
}
