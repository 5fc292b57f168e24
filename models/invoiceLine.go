package models

import (
	"github.com/shopspring/decimal"
)

// AmountVector is the canonical discount vector on an invoice line:
// 22 numbered buckets plus tax and subsidy. Bucket meanings are fixed
// by the accounting interface (ck01 coupon, ck02 policy, ck03 VIP,
// ck04 voucher, ck05 wallet, ck06 points, ck07 birthday, ck08
// wholesale, ck09 employee, ck10 platform subsidy, ck11 flash sale,
// ck12-ck14 reserved, ck15-ck22 brand-sponsored).
type AmountVector struct {
	Ck01 decimal.Decimal `json:"ck01"`
	Ck02 decimal.Decimal `json:"ck02"`
	Ck03 decimal.Decimal `json:"ck03"`
	Ck04 decimal.Decimal `json:"ck04"`
	Ck05 decimal.Decimal `json:"ck05"`
	Ck06 decimal.Decimal `json:"ck06"`
	Ck07 decimal.Decimal `json:"ck07"`
	Ck08 decimal.Decimal `json:"ck08"`
	Ck09 decimal.Decimal `json:"ck09"`
	Ck10 decimal.Decimal `json:"ck10"`
	Ck11 decimal.Decimal `json:"ck11"`
	Ck12 decimal.Decimal `json:"ck12"`
	Ck13 decimal.Decimal `json:"ck13"`
	Ck14 decimal.Decimal `json:"ck14"`
	Ck15 decimal.Decimal `json:"ck15"`
	Ck16 decimal.Decimal `json:"ck16"`
	Ck17 decimal.Decimal `json:"ck17"`
	Ck18 decimal.Decimal `json:"ck18"`
	Ck19 decimal.Decimal `json:"ck19"`
	Ck20 decimal.Decimal `json:"ck20"`
	Ck21 decimal.Decimal `json:"ck21"`
	Ck22 decimal.Decimal `json:"ck22"`

	Tax     decimal.Decimal `json:"tax"`
	Subsidy decimal.Decimal `json:"subsidy"`
}

// Scale returns a copy with every bucket, tax and subsidy multiplied by
// ratio. Callers apply it exactly once per explosion.
func (v AmountVector) Scale(ratio decimal.Decimal) AmountVector {
	return AmountVector{
		Ck01: v.Ck01.Mul(ratio),
		Ck02: v.Ck02.Mul(ratio),
		Ck03: v.Ck03.Mul(ratio),
		Ck04: v.Ck04.Mul(ratio),
		Ck05: v.Ck05.Mul(ratio),
		Ck06: v.Ck06.Mul(ratio),
		Ck07: v.Ck07.Mul(ratio),
		Ck08: v.Ck08.Mul(ratio),
		Ck09: v.Ck09.Mul(ratio),
		Ck10: v.Ck10.Mul(ratio),
		Ck11: v.Ck11.Mul(ratio),
		Ck12: v.Ck12.Mul(ratio),
		Ck13: v.Ck13.Mul(ratio),
		Ck14: v.Ck14.Mul(ratio),
		Ck15: v.Ck15.Mul(ratio),
		Ck16: v.Ck16.Mul(ratio),
		Ck17: v.Ck17.Mul(ratio),
		Ck18: v.Ck18.Mul(ratio),
		Ck19: v.Ck19.Mul(ratio),
		Ck20: v.Ck20.Mul(ratio),
		Ck21: v.Ck21.Mul(ratio),
		Ck22: v.Ck22.Mul(ratio),

		Tax:     v.Tax.Mul(ratio),
		Subsidy: v.Subsidy.Mul(ratio),
	}
}

// Total sums the 22 numbered buckets. Tax and subsidy are carried
// separately on the wire and are not part of the discount total.
func (v AmountVector) Total() decimal.Decimal {
	total := decimal.Zero
	for _, b := range []decimal.Decimal{
		v.Ck01, v.Ck02, v.Ck03, v.Ck04, v.Ck05, v.Ck06, v.Ck07, v.Ck08,
		v.Ck09, v.Ck10, v.Ck11, v.Ck12, v.Ck13, v.Ck14, v.Ck15, v.Ck16,
		v.Ck17, v.Ck18, v.Ck19, v.Ck20, v.Ck21, v.Ck22,
	} {
		total = total.Add(b)
	}
	return total
}

// InvoiceLine is one finalized line of the reconciled order: the
// engine's output. It is built per run and handed to the submitter or
// the preview endpoint; it is never persisted here.
type InvoiceLine struct {
	OrderCode    string `json:"order_code"`
	DocCode      string `json:"doc_code"`
	ItemCode     string `json:"item_code"`
	MaterialCode string `json:"material_code"`
	ItemName     string `json:"item_name"`

	Qty            decimal.Decimal `json:"qty"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Amount         decimal.Decimal `json:"amount"`
	OriginalAmount decimal.Decimal `json:"original_amount"`

	WarehouseCode string `json:"warehouse_code"`
	// Lot and Serial are mutually exclusive; at most one is non-empty.
	Lot    string `json:"lot"`
	Serial string `json:"serial"`

	PromotionCode     string `json:"promotion_code"`
	GiftPromotionCode string `json:"gift_promotion_code"`

	DiscountAccount string `json:"discount_account"`
	ExpenseAccount  string `json:"expense_account"`
	FeeCode         string `json:"fee_code"`

	ProductType     ProductType     `json:"product_type"`
	AllocationRatio decimal.Decimal `json:"allocation_ratio"`

	Amounts AmountVector `json:"amounts"`

	Provenance LineProvenance `json:"provenance"`
}
