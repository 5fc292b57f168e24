package workflow

import (
	"strings"

	"bitbucket.org/agasretail/erpsync_backend/models"
)

const (
	// investmentGiftCode tags free goods handed out under investment
	// agreements with partners.
	investmentGiftCode = "KMDT"
	// employeeDiscountCode is the flat code for employee purchases on
	// e-commerce platform orders. It never carries a type suffix.
	employeeDiscountCode = "CKNV"

	legacyPromoPrefix    = "PRMN"
	canonicalPromoPrefix = "RMN"
)

// pointExchangeGiftCodes maps a department to its point-exchange gift
// code. Departments outside the table settle on the shared default.
var pointExchangeGiftCodes = map[string]string{
	"D01": "KMDD01",
	"D02": "KMDD02",
	"D03": "KMDD03",
	"D04": "KMDD04",
	"D05": "KMDD05",
	"D06": "KMDD06",
}

const defaultPointExchangeGiftCode = "KMDD00"

func pointExchangeGiftCode(departmentCode string) string {
	if code, ok := pointExchangeGiftCodes[strings.TrimSpace(departmentCode)]; ok {
		return code
	}
	return defaultPointExchangeGiftCode
}

// ShortenPromotionCode keeps the segment before the first "_". POS
// promotion codes append campaign qualifiers after the separator; the
// accounting system only knows the base code.
func ShortenPromotionCode(raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.Index(raw, "_"); i >= 0 {
		return raw[:i]
	}
	return raw
}

// appendTypeSuffix adds "."+productType once. Codes that already carry
// the suffix are returned unchanged, so re-running the resolver never
// doubles it.
func appendTypeSuffix(code string, productType models.ProductType) string {
	if code == "" || productType == "" {
		return code
	}
	suffix := "." + string(productType)
	if strings.HasSuffix(code, suffix) {
		return code
	}
	return code + suffix
}

// ResolvePromotionCodes derives the primary promotion code and the
// gift-promotion code for one line.
//
// Point-exchange lines take their gift code from the department table
// and clear the primary code. Other gift lines keep the shortened raw
// code, minus any type suffix (gift codes never carry one), or the
// investment literal. Everything else shortens and suffixes the raw
// code, except codes on the legacy "PRMN" prefix: those are rewritten
// to "RMN" verbatim and skip both the shortening and the suffix. The
// two paths look unifiable but are kept separate deliberately; RMN
// codes predate the suffix convention and the ERP matches them as-is.
func ResolvePromotionCodes(line *models.SaleLine, flags OrderCategoryFlags, isGift bool, partnerIsEmployee bool) (promoCode, giftCode string) {
	raw := strings.TrimSpace(line.PromotionCode)
	productType := line.TypeTag()

	switch {
	case flags.PointExchange:
		giftCode = pointExchangeGiftCode(line.DepartmentCode)
		promoCode = ""

	case isGift:
		if flags.Investment {
			giftCode = investmentGiftCode
		} else if flags.Normal || flags.AccountSale || flags.ECommerce {
			giftCode = strings.TrimSuffix(ShortenPromotionCode(raw), "."+string(productType))
		}

	default:
		if flags.ECommerce && partnerIsEmployee && !line.EmployeeDiscountAmount.IsZero() {
			promoCode = employeeDiscountCode
			return promoCode, giftCode
		}
		if strings.HasPrefix(raw, legacyPromoPrefix) {
			promoCode = canonicalPromoPrefix + strings.TrimPrefix(raw, legacyPromoPrefix)
		} else {
			promoCode = appendTypeSuffix(ShortenPromotionCode(raw), productType)
		}
	}
	return promoCode, giftCode
}
