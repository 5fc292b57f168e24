package models

import (
	"context"
	"strings"
	"time"

	"bitbucket.org/agasretail/erpsync_backend/config"
	"bitbucket.org/agasretail/erpsync_backend/utils"
)

const productCacheTTL = 10 * time.Minute

// Product is the catalog record for one sellable item, fed by the
// external catalog sync. Reconciliation only reads the tracking flags,
// the type tags and the canonical material code.
type Product struct {
	ID            int    `gorm:"primary_key" json:"id"`
	MaterialCode  string `gorm:"size:64;uniqueIndex;not null" json:"material_code" binding:"required"`
	ItemCode      string `gorm:"size:64;index" json:"item_code"`
	Name          string `gorm:"size:255" json:"name"`
	LotTracked    *bool  `gorm:"not null;default:false" json:"lot_tracked"`
	SerialTracked *bool  `gorm:"not null;default:false" json:"serial_tracked"`
	ProductType   string `gorm:"size:4" json:"product_type"`
	// MaterialType is a two-digit catalog class; "94" marks e-code items.
	MaterialType string    `gorm:"size:4" json:"material_type"`
	IsActive     *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Product) IsECode() bool {
	return p != nil && p.MaterialType == MaterialTypeECode
}

func (p *Product) IsLotTracked() bool {
	return p != nil && utils.DereferencePtr(p.LotTracked)
}

func (p *Product) IsSerialTracked() bool {
	return p != nil && utils.DereferencePtr(p.SerialTracked)
}

// GetProductsByCodes batch-loads active catalog products whose material
// code or pre-alias item code is in codes. Backing query for the
// catalog dataloader; per-code results are cached in redis with a short
// TTL so repeated reconciliations of hot items skip the database.
func GetProductsByCodes(ctx context.Context, codes []string) (map[string]*Product, error) {
	found := make(map[string]*Product, len(codes))

	missing := make([]string, 0, len(codes))
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		var cached Product
		exists, err := config.GetRedisObject(productCacheKey(code), &cached)
		if err != nil {
			return nil, err
		}
		if exists {
			p := cached
			found[code] = &p
			continue
		}
		missing = append(missing, code)
	}
	if len(missing) == 0 {
		return found, nil
	}

	db := config.GetDB()
	var results []*Product
	err := db.WithContext(ctx).
		Where("(material_code IN ? OR item_code IN ?) AND is_active = true", missing, missing).
		Find(&results).Error
	if err != nil {
		return nil, err
	}

	byCode := make(map[string]*Product, len(results))
	for _, p := range results {
		byCode[p.MaterialCode] = p
		if p.ItemCode != "" {
			byCode[p.ItemCode] = p
		}
	}
	for _, code := range missing {
		p, ok := byCode[code]
		if !ok {
			// Absent catalog entries stay absent; callers fall back to
			// line/movement data. Misses are not negative-cached so a
			// late catalog sync becomes visible immediately.
			continue
		}
		found[code] = p
		if err := config.SetRedisObject(productCacheKey(code), p, productCacheTTL); err != nil {
			return nil, err
		}
	}
	return found, nil
}
