package models

import (
	"bitbucket.org/agasretail/erpsync_backend/config"
)

// Cache invalidation for synced reference data. Ops flush these after
// an out-of-band catalog or mapping fix so the next run reloads.

const warehouseMapCacheKey = "warehouse:canonicalMap"

func productCacheKey(code string) string {
	return "catalog:product:" + code
}

type RedisCleaner interface {
	RemoveInstanceRedis() error
}

func (p Product) RemoveInstanceRedis() error {
	return FlushProductCache(p.MaterialCode, p.ItemCode)
}

func (w WarehouseMapping) RemoveInstanceRedis() error {
	return FlushWarehouseMapCache()
}

// FlushProductCache removes the cached catalog records for the codes.
func FlushProductCache(codes ...string) error {
	keys := make([]string, 0, len(codes))
	for _, code := range codes {
		if code != "" {
			keys = append(keys, productCacheKey(code))
		}
	}
	if len(keys) == 0 {
		return nil
	}
	return config.RemoveRedisKey(keys...)
}

// FlushWarehouseMapCache removes the cached canonical warehouse map.
func FlushWarehouseMapCache() error {
	return config.RemoveRedisKey(warehouseMapCacheKey)
}
