package workflow

import (
	"bitbucket.org/agasretail/erpsync_backend/models"
)

// Ledger accounts and fee codes used by the decision table. Discount
// accounts split by product type: goods reduce revenue on 5211,
// services on 5213. Promotion giveaways post to selling expense.
const (
	acctDiscountGoods   = "5211"
	acctDiscountService = "5213"

	acctExpensePromotion = "64181"
	acctExpenseBirthday  = "64188"

	feePromotionStandard = "CPKM01"
	feePromotionBirthday = "CPKM02"
)

// AccountDecision is the resolver output. Fields left untouched by the
// matching rule keep the line's stored values.
type AccountDecision struct {
	DiscountAccount string
	ExpenseAccount  string
	FeeCode         string
}

// AccountRuleInput bundles everything the decision table reads.
type AccountRuleInput struct {
	Line    *models.SaleLine
	Product *models.Product // nil on catalog miss
	Flags   OrderCategoryFlags
	// IsGift: price and amount both resolved to zero.
	IsGift bool
	// HasPromotionCode / HasGiftCode reflect the resolved codes, not the
	// raw POS field.
	HasPromotionCode bool
	HasGiftCode      bool
}

func (in AccountRuleInput) typeTag() models.ProductType {
	return in.Line.TypeTag()
}

func (in AccountRuleInput) typeDiscountAccount() string {
	switch in.typeTag() {
	case models.ProductTypeItem:
		return acctDiscountGoods
	case models.ProductTypeService:
		return acctDiscountService
	}
	return ""
}

func (in AccountRuleInput) isGoodsOrService() bool {
	t := in.typeTag()
	return t == models.ProductTypeItem || t == models.ProductTypeService
}

type accountRule struct {
	name string
	when func(AccountRuleInput) bool
	then func(AccountRuleInput, *AccountDecision)
}

// accountRules is evaluated top to bottom; the first matching rule is
// applied and evaluation stops. Keep the order: precedence is the
// contract, several predicates overlap on purpose.
var accountRules = []accountRule{
	{
		name: "exchange-or-investment",
		when: func(in AccountRuleInput) bool {
			return in.Flags.PointExchange || in.Flags.BottleExchange || in.Flags.Investment
		},
		then: func(in AccountRuleInput, out *AccountDecision) {
			out.ExpenseAccount = acctExpensePromotion
			out.FeeCode = feePromotionStandard
		},
	},
	{
		name: "birthday-gift",
		when: func(in AccountRuleInput) bool { return in.Flags.BirthdayGift },
		then: func(in AccountRuleInput, out *AccountDecision) {
			out.ExpenseAccount = acctExpenseBirthday
			out.FeeCode = feePromotionBirthday
		},
	},
	{
		name: "gift-with-promotion",
		when: func(in AccountRuleInput) bool {
			return in.IsGift && (in.HasPromotionCode || in.HasGiftCode)
		},
		then: func(in AccountRuleInput, out *AccountDecision) {
			out.ExpenseAccount = acctExpensePromotion
			out.FeeCode = feePromotionStandard
			out.DiscountAccount = in.Line.DiscountAccount
		},
	},
	{
		name: "vip-discount",
		when: func(in AccountRuleInput) bool {
			return !in.Line.VipDiscountAmount.IsZero() && in.isGoodsOrService()
		},
		then: func(in AccountRuleInput, out *AccountDecision) {
			out.DiscountAccount = in.typeDiscountAccount()
		},
	},
	{
		name: "voucher-on-ecode",
		when: func(in AccountRuleInput) bool {
			return !in.Line.VoucherAmount.IsZero() && in.Product.IsECode()
		},
		then: func(in AccountRuleInput, out *AccountDecision) {
			out.DiscountAccount = acctDiscountGoods
		},
	},
	{
		name: "voucher",
		when: func(in AccountRuleInput) bool {
			return !in.Line.VoucherAmount.IsZero() && in.isGoodsOrService()
		},
		then: func(in AccountRuleInput, out *AccountDecision) {
			out.DiscountAccount = in.typeDiscountAccount()
		},
	},
	{
		name: "policy-discount",
		when: func(in AccountRuleInput) bool {
			if in.Line.PolicyDiscountAmount.IsZero() {
				return false
			}
			t := in.typeTag()
			return t == models.ProductTypeService || (in.Flags.Normal && t == models.ProductTypeItem)
		},
		then: func(in AccountRuleInput, out *AccountDecision) {
			out.DiscountAccount = in.typeDiscountAccount()
		},
	},
	{
		name: "normal-with-promotion",
		when: func(in AccountRuleInput) bool {
			return in.Flags.Normal && in.HasPromotionCode && !in.IsGift && in.isGoodsOrService()
		},
		then: func(in AccountRuleInput, out *AccountDecision) {
			out.DiscountAccount = in.typeDiscountAccount()
		},
	},
}

// ResolveAccounts walks the decision table. With no matching rule the
// line's stored accounts pass through untouched.
func ResolveAccounts(in AccountRuleInput) AccountDecision {
	out := AccountDecision{
		DiscountAccount: in.Line.DiscountAccount,
		ExpenseAccount:  in.Line.ExpenseAccount,
		FeeCode:         in.Line.FeeCode,
	}
	for _, rule := range accountRules {
		if rule.when(in) {
			rule.then(in, &out)
			break
		}
	}
	return out
}
