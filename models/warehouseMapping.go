package models

import (
	"context"
	"time"

	"bitbucket.org/agasretail/erpsync_backend/config"
)

const warehouseMapCacheTTL = 10 * time.Minute

// WarehouseMapping translates legacy stock codes coming off movements
// into the canonical codes the accounting system knows. Inactive rows
// are retired mappings and never applied.
type WarehouseMapping struct {
	ID            int       `gorm:"primary_key" json:"id"`
	LegacyCode    string    `gorm:"size:32;uniqueIndex;not null" json:"legacy_code" binding:"required"`
	CanonicalCode string    `gorm:"size:32;not null" json:"canonical_code" binding:"required"`
	IsActive      *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// GetActiveWarehouseMap returns legacy code -> canonical code for all
// active mappings, redis-cached with a short TTL.
func GetActiveWarehouseMap(ctx context.Context) (map[string]string, error) {
	warehouseMap := make(map[string]string)
	exists, err := config.GetRedisObject(warehouseMapCacheKey, &warehouseMap)
	if err != nil {
		return nil, err
	}
	if exists {
		return warehouseMap, nil
	}

	db := config.GetDB()
	var mappings []*WarehouseMapping
	if err := db.WithContext(ctx).Where("is_active = true").Find(&mappings).Error; err != nil {
		return nil, err
	}
	for _, m := range mappings {
		warehouseMap[m.LegacyCode] = m.CanonicalCode
	}
	if err := config.SetRedisObject(warehouseMapCacheKey, &warehouseMap, warehouseMapCacheTTL); err != nil {
		return nil, err
	}
	return warehouseMap, nil
}
