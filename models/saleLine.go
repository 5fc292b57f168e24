package models

import (
	"context"
	"strings"
	"time"

	"bitbucket.org/agasretail/erpsync_backend/config"
	"github.com/shopspring/decimal"
)

// SaleLine is one purchased item within an order, as synced from the POS.
// Rows are immutable once synced; reconciliation never writes them back.
// Explosion produces new InvoiceLine values instead of mutating these.
type SaleLine struct {
	ID             int    `gorm:"primary_key" json:"id"`
	OrderCode      string `gorm:"size:64;index;not null" json:"order_code" binding:"required"`
	DepartmentCode string `gorm:"size:32;index" json:"department_code"`
	PartnerCode    string `gorm:"size:64" json:"partner_code"`
	Brand          string `gorm:"size:32" json:"brand"`
	SaleChannel    string `gorm:"size:32" json:"sale_channel"`

	ItemCode     string          `gorm:"size:64;index;not null" json:"item_code" binding:"required"`
	MaterialCode string          `gorm:"size:64;index" json:"material_code"`
	ItemName     string          `gorm:"size:255" json:"item_name"`
	Qty          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"qty"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	LineAmount   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"line_amount"`

	// OrderTypeLabel is POS free text ("01. Bình thường", "03. Đổi điểm", ...).
	// Category flags are recomputed per line from this label.
	OrderTypeLabel string `gorm:"size:255" json:"order_type_label"`
	// ProductType as stored by the POS; may arrive lower-cased. Use TypeTag().
	ProductType string `gorm:"size:4" json:"product_type"`

	PromotionCode string `gorm:"size:100" json:"promotion_code"`
	StockCode     string `gorm:"size:32" json:"stock_code"`

	// Stored ledger defaults; the account resolver passes these through
	// when no rule matches.
	DiscountAccount string `gorm:"size:20" json:"discount_account"`
	ExpenseAccount  string `gorm:"size:20" json:"expense_account"`
	FeeCode         string `gorm:"size:20" json:"fee_code"`

	CouponAmount           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"coupon_amount"`
	PolicyDiscountAmount   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"policy_discount_amount"`
	VipDiscountAmount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"vip_discount_amount"`
	VoucherAmount          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"voucher_amount"`
	WalletAmount           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"wallet_amount"`
	PointDiscountAmount    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"point_discount_amount"`
	BirthdayDiscountAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"birthday_discount_amount"`
	EmployeeDiscountAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"employee_discount_amount"`

	// Wholesale policy discount: dedicated field preferred, legacy
	// trade-discount field kept for rows synced before the split.
	WholesaleDiscountAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"wholesale_discount_amount"`
	TradeDiscountAmount     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"trade_discount_amount"`

	// Platform subsidy: same dedicated/legacy pairing.
	PlatformSubsidyAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"platform_subsidy_amount"`
	PlatformSupportAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"platform_support_amount"`

	FlashSaleAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"flash_sale_amount"`

	Reserved1Amount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"reserved1_amount"`
	Reserved2Amount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"reserved2_amount"`
	Reserved3Amount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"reserved3_amount"`

	BrandSponsor1Amount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"brand_sponsor1_amount"`
	BrandSponsor2Amount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"brand_sponsor2_amount"`
	BrandSponsor3Amount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"brand_sponsor3_amount"`
	BrandSponsor4Amount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"brand_sponsor4_amount"`
	BrandSponsor5Amount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"brand_sponsor5_amount"`
	BrandSponsor6Amount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"brand_sponsor6_amount"`
	BrandSponsor7Amount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"brand_sponsor7_amount"`
	BrandSponsor8Amount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"brand_sponsor8_amount"`

	TaxAmount     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_amount"`
	SubsidyAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"subsidy_amount"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TypeTag returns the upper-cased product type tag.
func (l *SaleLine) TypeTag() ProductType {
	return ProductType(strings.ToUpper(strings.TrimSpace(l.ProductType)))
}

// GetSaleLinesByOrderCode loads the order's sale lines in stable input
// order (ascending id).
func GetSaleLinesByOrderCode(ctx context.Context, orderCode string) ([]*SaleLine, error) {
	db := config.GetDB()
	var results []*SaleLine
	err := db.WithContext(ctx).
		Where("order_code = ?", orderCode).
		Order("id").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ListOrderCodesByDateRange returns distinct order codes with sale lines
// created in [from, to). Used by the replay tool.
func ListOrderCodesByDateRange(ctx context.Context, from, to time.Time) ([]string, error) {
	db := config.GetDB()
	var codes []string
	err := db.WithContext(ctx).Model(&SaleLine{}).
		Where("created_at >= ? AND created_at < ?", from, to).
		Distinct().
		Order("order_code").
		Pluck("order_code", &codes).Error
	if err != nil {
		return nil, err
	}
	return codes, nil
}
