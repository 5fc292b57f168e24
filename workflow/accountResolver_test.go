package workflow

import (
	"testing"

	"github.com/shopspring/decimal"

	"bitbucket.org/agasretail/erpsync_backend/models"
)

func storedAccountsLine() *models.SaleLine {
	return &models.SaleLine{
		ProductType:     "I",
		DiscountAccount: "5111",
		ExpenseAccount:  "6421",
		FeeCode:         "FEE99",
	}
}

func TestResolveAccounts_NoRulePassesStoredThrough(t *testing.T) {
	got := ResolveAccounts(AccountRuleInput{Line: storedAccountsLine()})
	if got.DiscountAccount != "5111" || got.ExpenseAccount != "6421" || got.FeeCode != "FEE99" {
		t.Fatalf("stored accounts must pass through untouched, got %+v", got)
	}
}

func TestResolveAccounts_ExchangeAndInvestment(t *testing.T) {
	for _, flags := range []OrderCategoryFlags{
		{PointExchange: true},
		{BottleExchange: true},
		{Investment: true},
	} {
		got := ResolveAccounts(AccountRuleInput{Line: storedAccountsLine(), Flags: flags})
		if got.ExpenseAccount != "64181" || got.FeeCode != "CPKM01" {
			t.Fatalf("flags %+v: got %+v, want expense 64181 fee CPKM01", flags, got)
		}
		if got.DiscountAccount != "5111" {
			t.Fatalf("flags %+v: discount = %q, want the stored account kept", flags, got.DiscountAccount)
		}
	}
}

func TestResolveAccounts_BirthdayGift(t *testing.T) {
	got := ResolveAccounts(AccountRuleInput{Line: storedAccountsLine(), Flags: OrderCategoryFlags{BirthdayGift: true}})
	if got.ExpenseAccount != "64188" || got.FeeCode != "CPKM02" {
		t.Fatalf("got %+v, want expense 64188 fee CPKM02", got)
	}

	// Exchange categories outrank the birthday rule.
	got = ResolveAccounts(AccountRuleInput{
		Line:  storedAccountsLine(),
		Flags: OrderCategoryFlags{PointExchange: true, BirthdayGift: true},
	})
	if got.ExpenseAccount != "64181" || got.FeeCode != "CPKM01" {
		t.Fatalf("got %+v, want the exchange rule to win", got)
	}
}

func TestResolveAccounts_GiftWithPromotion(t *testing.T) {
	got := ResolveAccounts(AccountRuleInput{
		Line:        storedAccountsLine(),
		Flags:       OrderCategoryFlags{Normal: true},
		IsGift:      true,
		HasGiftCode: true,
	})
	if got.ExpenseAccount != "64181" || got.FeeCode != "CPKM01" {
		t.Fatalf("got %+v, want expense 64181 fee CPKM01", got)
	}

	// A gift without any resolved code books on the stored accounts.
	got = ResolveAccounts(AccountRuleInput{
		Line:   storedAccountsLine(),
		Flags:  OrderCategoryFlags{Normal: true},
		IsGift: true,
	})
	if got.ExpenseAccount != "6421" || got.FeeCode != "FEE99" {
		t.Fatalf("got %+v, want the stored accounts", got)
	}
}

func TestResolveAccounts_DiscountAccountByProductType(t *testing.T) {
	vip := func(productType string) AccountRuleInput {
		line := storedAccountsLine()
		line.ProductType = productType
		line.VipDiscountAmount = decimal.NewFromInt(10000)
		return AccountRuleInput{Line: line, Flags: OrderCategoryFlags{Normal: true}}
	}

	if got := ResolveAccounts(vip("I")); got.DiscountAccount != "5211" {
		t.Fatalf("goods vip discount = %q, want 5211", got.DiscountAccount)
	}
	if got := ResolveAccounts(vip("s")); got.DiscountAccount != "5213" {
		t.Fatalf("service vip discount = %q, want 5213", got.DiscountAccount)
	}
	// Export lines are neither goods nor services: no rule matches.
	if got := ResolveAccounts(vip("V")); got.DiscountAccount != "5111" {
		t.Fatalf("export vip discount = %q, want the stored account", got.DiscountAccount)
	}
}

func TestResolveAccounts_VoucherRules(t *testing.T) {
	line := storedAccountsLine()
	line.ProductType = "S"
	line.VoucherAmount = decimal.NewFromInt(20000)

	// Vouchers on e-code items always book on the goods account, even
	// when the line is typed as a service.
	ecode := &models.Product{MaterialType: models.MaterialTypeECode}
	got := ResolveAccounts(AccountRuleInput{Line: line, Product: ecode, Flags: OrderCategoryFlags{Normal: true}})
	if got.DiscountAccount != "5211" {
		t.Fatalf("e-code voucher discount = %q, want 5211", got.DiscountAccount)
	}

	// Without the e-code the type decides; a nil product is a plain
	// catalog miss, not an error.
	got = ResolveAccounts(AccountRuleInput{Line: line, Flags: OrderCategoryFlags{Normal: true}})
	if got.DiscountAccount != "5213" {
		t.Fatalf("service voucher discount = %q, want 5213", got.DiscountAccount)
	}

	// VIP outranks both voucher rules.
	line.VipDiscountAmount = decimal.NewFromInt(5000)
	got = ResolveAccounts(AccountRuleInput{Line: line, Product: ecode, Flags: OrderCategoryFlags{Normal: true}})
	if got.DiscountAccount != "5213" {
		t.Fatalf("vip+voucher discount = %q, want the vip rule's 5213", got.DiscountAccount)
	}
}

func TestResolveAccounts_PolicyDiscount(t *testing.T) {
	policy := func(productType string, flags OrderCategoryFlags) AccountRuleInput {
		line := storedAccountsLine()
		line.ProductType = productType
		line.PolicyDiscountAmount = decimal.NewFromInt(30000)
		return AccountRuleInput{Line: line, Flags: flags}
	}

	if got := ResolveAccounts(policy("S", OrderCategoryFlags{ECommerce: true})); got.DiscountAccount != "5213" {
		t.Fatalf("service policy discount = %q, want 5213 on any category", got.DiscountAccount)
	}
	if got := ResolveAccounts(policy("I", OrderCategoryFlags{Normal: true})); got.DiscountAccount != "5211" {
		t.Fatalf("normal goods policy discount = %q, want 5211", got.DiscountAccount)
	}
	// Goods outside normal orders keep the stored account.
	if got := ResolveAccounts(policy("I", OrderCategoryFlags{ECommerce: true})); got.DiscountAccount != "5111" {
		t.Fatalf("platform goods policy discount = %q, want the stored account", got.DiscountAccount)
	}
}

func TestResolveAccounts_NormalWithPromotion(t *testing.T) {
	in := AccountRuleInput{
		Line:             storedAccountsLine(),
		Flags:            OrderCategoryFlags{Normal: true},
		HasPromotionCode: true,
	}
	if got := ResolveAccounts(in); got.DiscountAccount != "5211" {
		t.Fatalf("promoted normal line discount = %q, want 5211", got.DiscountAccount)
	}

	// The same line as a gift lands on the gift rule instead.
	in.IsGift = true
	got := ResolveAccounts(in)
	if got.ExpenseAccount != "64181" || got.DiscountAccount != "5111" {
		t.Fatalf("gift lines must hit the gift rule, got %+v", got)
	}
}
