package workflow

import (
	"strings"

	"bitbucket.org/agasretail/erpsync_backend/models"
)

// cardSeparationStockPrefix + department is the fixed warehouse code
// for card-separation orders; they never ship from a real location.
const cardSeparationStockPrefix = "KTT"

// keepStockPrefix marks virtual "keep" locations. Movements parked
// there are reservations, not shipments, and are never reconciled.
const keepStockPrefix = "KEEP"

// ResolveLotSerial assigns the movement's tracking string to exactly
// one of lot or serial. Lot applies only to lot-tracked items that are
// not serial-tracked and not e-codes; every other combination defaults
// to serial. An empty tracking string yields neither.
func ResolveLotSerial(product *models.Product, tracking string) (lot, serial string) {
	tracking = strings.TrimSpace(tracking)
	if tracking == "" {
		return "", ""
	}
	if product.IsLotTracked() && !product.IsSerialTracked() && !product.IsECode() {
		return tracking, ""
	}
	return "", tracking
}

// ResolveWarehouseCode picks the line's warehouse code: movement code
// over the sale line's stored code over empty, then translated through
// the canonical mapping (a miss keeps the pre-lookup value).
// Card-separation orders ignore all of that and bill against the fixed
// card-desk code of their department.
func ResolveWarehouseCode(flags OrderCategoryFlags, departmentCode, movementCode, lineCode string, warehouseMap map[string]string) string {
	if flags.CardSeparation {
		return cardSeparationStockPrefix + strings.TrimSpace(departmentCode)
	}

	code := strings.TrimSpace(movementCode)
	if code == "" {
		code = strings.TrimSpace(lineCode)
	}
	if code == "" {
		return ""
	}
	if canonical, ok := warehouseMap[code]; ok && canonical != "" {
		return canonical
	}
	return code
}
