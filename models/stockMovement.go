package models

import (
	"context"
	"regexp"
	"strings"
	"time"

	"bitbucket.org/agasretail/erpsync_backend/config"
	"github.com/shopspring/decimal"
)

// StockMovement is one warehouse-ledger record synced from the stock
// system. Read-only once fetched; ordered by creation time to express a
// FIFO queue per item.
type StockMovement struct {
	ID           int             `gorm:"primary_key" json:"id"`
	DocType      DocType         `gorm:"size:8;index" json:"doc_type"`
	DocCode      string          `gorm:"size:64;index" json:"doc_code"`
	OrderCode    string          `gorm:"size:64;index;not null" json:"order_code"`
	ItemCode     string          `gorm:"size:64;index" json:"item_code"`
	MaterialCode string          `gorm:"size:64;index" json:"material_code"`
	ItemName     string          `gorm:"size:255" json:"item_name"`
	Qty          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"qty"`
	StockCode    string          `gorm:"size:32" json:"stock_code"`
	// Tracking carries the lot or serial string; which one it is depends
	// on the item's catalog tracking flags.
	Tracking  string    `gorm:"size:100" json:"tracking"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsStockOutDirection reports whether the movement takes stock out of a
// warehouse: negative quantity, or an explicit stock-out document.
func (m *StockMovement) IsStockOutDirection() bool {
	return m.Qty.IsNegative() || m.DocType == DocTypeStockOut
}

var returnSuffixRe = regexp.MustCompile(`_\d+$`)

// OriginOrderCode maps a return order code to the code its movements
// were originally filed under: "RT..." becomes "SO...", with any
// trailing "_<n>" retry suffix stripped. Non-return codes map to
// themselves.
func OriginOrderCode(orderCode string) string {
	code := strings.TrimSpace(orderCode)
	if !strings.HasPrefix(code, "RT") {
		return code
	}
	code = "SO" + strings.TrimPrefix(code, "RT")
	return returnSuffixRe.ReplaceAllString(code, "")
}

// GetStockMovementsForOrder loads the order's movements oldest first.
// For return orders it also pulls movements filed under the originating
// order code.
func GetStockMovementsForOrder(ctx context.Context, orderCode string) ([]*StockMovement, error) {
	db := config.GetDB()

	codes := []string{orderCode}
	if origin := OriginOrderCode(orderCode); origin != orderCode {
		codes = append(codes, origin)
	}

	var results []*StockMovement
	err := db.WithContext(ctx).
		Where("order_code IN ?", codes).
		Order("created_at, id").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
