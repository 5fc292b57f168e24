// Package hrdir looks up partner employee status against the HR card
// service. Reconciliation needs exactly one bit per order: is this
// partner an active employee of the brand.
package hrdir

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/agasretail/erpsync_backend/config"
)

const statusCacheTTL = 4 * time.Hour

type Directory struct {
	client *hrClient
}

// NewDirectory builds the HTTP-backed directory. Errors when the HR env
// vars are not configured; callers then pass a nil directory and every
// partner counts as a non-employee.
func NewDirectory() (*Directory, error) {
	client, err := newHrClient()
	if err != nil {
		return nil, err
	}
	return &Directory{client: client}, nil
}

func statusCacheKey(partnerCode, brand string) string {
	return fmt.Sprintf("hr:employee:%s:%s", brand, partnerCode)
}

// IsActiveEmployee reports whether the partner is an active employee of
// the brand. Results are cached in redis; HR changes take effect within
// the TTL.
func (d *Directory) IsActiveEmployee(ctx context.Context, partnerCode, brand string) (bool, error) {
	var cached employeeStatus
	exists, err := config.GetRedisObject(statusCacheKey(partnerCode, brand), &cached)
	if err == nil && exists {
		return cached.Active, nil
	}

	status, err := d.client.getEmployeeStatus(ctx, partnerCode, brand)
	if err != nil {
		return false, err
	}
	_ = config.SetRedisObject(statusCacheKey(partnerCode, brand), status, statusCacheTTL)
	return status.Active, nil
}
