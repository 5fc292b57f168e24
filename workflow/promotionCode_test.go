package workflow

import (
	"testing"

	"github.com/shopspring/decimal"

	"bitbucket.org/agasretail/erpsync_backend/models"
)

func TestShortenPromotionCode(t *testing.T) {
	cases := []struct{ in, want string }{
		{"KM2024_SUMMER", "KM2024"},
		{"KM2024_A_B", "KM2024"},
		{"KM2024", "KM2024"},
		{"  KM2024_X  ", "KM2024"},
		{"", ""},
	}
	for _, c := range cases {
		if got := ShortenPromotionCode(c.in); got != c.want {
			t.Fatalf("ShortenPromotionCode(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestResolvePromotionCodes_PointExchange(t *testing.T) {
	line := &models.SaleLine{
		DepartmentCode: "D03",
		PromotionCode:  "KM2024_SUMMER", // ignored on point exchanges
		ProductType:    "I",
	}
	promo, gift := ResolvePromotionCodes(line, OrderCategoryFlags{PointExchange: true}, true, false)
	if promo != "" {
		t.Fatalf("promo = %q, want empty on point exchange", promo)
	}
	if gift != "KMDD03" {
		t.Fatalf("gift = %q, want the department code KMDD03", gift)
	}

	line.DepartmentCode = "D99"
	_, gift = ResolvePromotionCodes(line, OrderCategoryFlags{PointExchange: true}, true, false)
	if gift != "KMDD00" {
		t.Fatalf("gift = %q, want the shared default KMDD00", gift)
	}
}

func TestResolvePromotionCodes_GiftLines(t *testing.T) {
	line := &models.SaleLine{PromotionCode: "QT01.I_XYZ", ProductType: "I"}

	// Investment giveaways take the flat literal.
	_, gift := ResolvePromotionCodes(line, OrderCategoryFlags{Investment: true}, true, false)
	if gift != "KMDT" {
		t.Fatalf("gift = %q, want KMDT", gift)
	}

	// Normal-order gifts keep the shortened code, minus the type suffix.
	_, gift = ResolvePromotionCodes(line, OrderCategoryFlags{Normal: true}, true, false)
	if gift != "QT01" {
		t.Fatalf("gift = %q, want QT01", gift)
	}

	// Categories outside the gift-code convention leave it empty.
	promo, gift := ResolvePromotionCodes(line, OrderCategoryFlags{Service: true}, true, false)
	if promo != "" || gift != "" {
		t.Fatalf("promo = %q gift = %q, want both empty on a service gift", promo, gift)
	}
}

func TestResolvePromotionCodes_RegularLines(t *testing.T) {
	line := &models.SaleLine{PromotionCode: "KM2024_SUMMER", ProductType: "I"}
	promo, gift := ResolvePromotionCodes(line, OrderCategoryFlags{Normal: true}, false, false)
	if promo != "KM2024.I" {
		t.Fatalf("promo = %q, want KM2024.I", promo)
	}
	if gift != "" {
		t.Fatalf("gift = %q, want empty on a paid line", gift)
	}

	// Already-suffixed codes are not suffixed again.
	line.PromotionCode = "KM2024.I"
	promo, _ = ResolvePromotionCodes(line, OrderCategoryFlags{Normal: true}, false, false)
	if promo != "KM2024.I" {
		t.Fatalf("promo = %q, want KM2024.I unchanged", promo)
	}

	// No code, no suffix.
	line.PromotionCode = ""
	promo, _ = ResolvePromotionCodes(line, OrderCategoryFlags{Normal: true}, false, false)
	if promo != "" {
		t.Fatalf("promo = %q, want empty for an empty raw code", promo)
	}
}

func TestResolvePromotionCodes_LegacyPrefixRewrite(t *testing.T) {
	// PRMN codes predate the suffix convention: rewritten verbatim, no
	// shortening, no suffix.
	line := &models.SaleLine{PromotionCode: "PRMN0123_ABC", ProductType: "I"}
	promo, _ := ResolvePromotionCodes(line, OrderCategoryFlags{Normal: true}, false, false)
	if promo != "RMN0123_ABC" {
		t.Fatalf("promo = %q, want RMN0123_ABC", promo)
	}
}

func TestResolvePromotionCodes_EmployeeOnPlatform(t *testing.T) {
	line := &models.SaleLine{
		PromotionCode:          "KM2024_SUMMER",
		ProductType:            "I",
		EmployeeDiscountAmount: decimal.NewFromInt(50000),
	}
	promo, gift := ResolvePromotionCodes(line, OrderCategoryFlags{ECommerce: true}, false, true)
	if promo != "CKNV" {
		t.Fatalf("promo = %q, want the employee code CKNV", promo)
	}
	if gift != "" {
		t.Fatalf("gift = %q, want empty", gift)
	}

	// Without an employee discount the line books like any other.
	line.EmployeeDiscountAmount = decimal.Zero
	promo, _ = ResolvePromotionCodes(line, OrderCategoryFlags{ECommerce: true}, false, true)
	if promo != "KM2024.I" {
		t.Fatalf("promo = %q, want KM2024.I", promo)
	}

	// Same for non-employees.
	line.EmployeeDiscountAmount = decimal.NewFromInt(50000)
	promo, _ = ResolvePromotionCodes(line, OrderCategoryFlags{ECommerce: true}, false, false)
	if promo != "KM2024.I" {
		t.Fatalf("promo = %q, want KM2024.I", promo)
	}
}
