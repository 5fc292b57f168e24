package workflow

import (
	"bitbucket.org/agasretail/erpsync_backend/models"
)

// CollectAmountVector maps one sale line's discount bucket fields into
// the canonical vector. Two buckets alias a dedicated and a legacy POS
// field; the dedicated field wins whenever it is populated.
func CollectAmountVector(line *models.SaleLine) models.AmountVector {
	v := models.AmountVector{
		Ck01: line.CouponAmount,
		Ck02: line.PolicyDiscountAmount,
		Ck03: line.VipDiscountAmount,
		Ck04: line.VoucherAmount,
		Ck05: line.WalletAmount,
		Ck06: line.PointDiscountAmount,
		Ck07: line.BirthdayDiscountAmount,
		Ck08: line.WholesaleDiscountAmount,
		Ck09: line.EmployeeDiscountAmount,
		Ck10: line.PlatformSubsidyAmount,
		Ck11: line.FlashSaleAmount,
		Ck12: line.Reserved1Amount,
		Ck13: line.Reserved2Amount,
		Ck14: line.Reserved3Amount,
		Ck15: line.BrandSponsor1Amount,
		Ck16: line.BrandSponsor2Amount,
		Ck17: line.BrandSponsor3Amount,
		Ck18: line.BrandSponsor4Amount,
		Ck19: line.BrandSponsor5Amount,
		Ck20: line.BrandSponsor6Amount,
		Ck21: line.BrandSponsor7Amount,
		Ck22: line.BrandSponsor8Amount,

		Tax:     line.TaxAmount,
		Subsidy: line.SubsidyAmount,
	}

	if v.Ck08.IsZero() {
		v.Ck08 = line.TradeDiscountAmount
	}
	if v.Ck10.IsZero() {
		v.Ck10 = line.PlatformSupportAmount
	}
	return v
}
