package workflow

import (
	"fmt"

	"gorm.io/gorm"
)

// AcquireOrderReconcileLock serializes reconciliation per order across instances using MySQL advisory locks.
// NOTE: GET_LOCK is connection-scoped, so this must be called on the same *gorm.DB the run will use.
func AcquireOrderReconcileLock(tx *gorm.DB, orderCode string) error {
	lockName := fmt.Sprintf("reconcile:%s", orderCode)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire reconcile lock for order_code=%s", orderCode)
	}
	return nil
}

func ReleaseOrderReconcileLock(tx *gorm.DB, orderCode string) {
	lockName := fmt.Sprintf("reconcile:%s", orderCode)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}
