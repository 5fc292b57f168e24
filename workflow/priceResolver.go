package workflow

import (
	"bitbucket.org/agasretail/erpsync_backend/models"
	"github.com/shopspring/decimal"
)

var decimalOne = decimal.NewFromInt(1)

// ResolvedPrice is the money triple of one invoice line: unit price,
// net amount, gross ("original") amount. Amounts are already scaled by
// the allocation ratio.
type ResolvedPrice struct {
	UnitPrice      decimal.Decimal
	Amount         decimal.Decimal
	OriginalAmount decimal.Decimal
}

// ResolvePriceAndAmounts derives the money triple for one line.
// confirmedQty is the stock-confirmed quantity of the matched movement;
// zero when the line passed through unmatched.
//
// Point-exchange lines are always worth zero, whatever the POS stored.
// Special (non-normal) categories with a zero stored price gross the
// price back up from the known discount buckets. The default path
// back-computes a missing price from amount and quantity. A non-zero
// stored price is never overwritten.
func ResolvePriceAndAmounts(line *models.SaleLine, flags OrderCategoryFlags, ratio decimal.Decimal, confirmedQty decimal.Decimal) ResolvedPrice {
	if flags.PointExchange {
		return ResolvedPrice{
			UnitPrice:      decimal.Zero,
			Amount:         decimal.Zero,
			OriginalAmount: decimal.Zero,
		}
	}

	price := line.UnitPrice
	if flags.Special() {
		if price.IsZero() && line.Qty.IsPositive() {
			gross := line.LineAmount.
				Add(line.CouponAmount).
				Add(line.PolicyDiscountAmount).
				Add(line.VipDiscountAmount).
				Add(line.VoucherAmount)
			price = gross.Div(line.Qty)
		}
	} else if price.IsZero() && !line.LineAmount.IsZero() && !line.Qty.IsZero() {
		price = line.LineAmount.Div(line.Qty.Abs())
	}

	amount := line.LineAmount.Mul(ratio)

	original := line.LineAmount.Mul(ratio)
	if flags.Normal && !ratio.Equal(decimalOne) && confirmedQty.IsPositive() && price.IsPositive() {
		original = confirmedQty.Mul(price)
	}

	return ResolvedPrice{
		UnitPrice:      price,
		Amount:         amount,
		OriginalAmount: original,
	}
}
