package workflow

import (
	"context"

	"bitbucket.org/agasretail/erpsync_backend/config"
	"bitbucket.org/agasretail/erpsync_backend/models"
	"bitbucket.org/agasretail/erpsync_backend/utils"
)

// EmployeeDirectory reports whether a partner is an active employee of
// a brand. The HTTP implementation belongs to the card/HR service;
// reconciliation only consumes the boolean.
type EmployeeDirectory interface {
	IsActiveEmployee(ctx context.Context, partnerCode, brand string) (bool, error)
}

// ReconcileContext is the immutable per-order context handed to the
// per-line resolvers. Catalog products and warehouse mappings are
// prefetched here, in batch, so per-line resolution never blocks.
type ReconcileContext struct {
	OrderCode         string
	DepartmentCode    string
	Channel           string
	PartnerIsEmployee bool

	// Products is keyed by both canonical material code and pre-alias
	// item code.
	Products map[string]*models.Product
	// WarehouseMap translates legacy stock codes to canonical ones.
	WarehouseMap map[string]string
}

// ProductFor resolves the catalog record of a line or movement,
// preferring the canonical material code. Nil on a catalog miss.
func (rc *ReconcileContext) ProductFor(itemCode, materialCode string) *models.Product {
	if p, ok := rc.Products[materialCode]; ok && p != nil {
		return p
	}
	if p, ok := rc.Products[itemCode]; ok && p != nil {
		return p
	}
	return nil
}

// BuildReconcileContext prefetches everything external the per-line
// resolvers need. employees may be nil; the employee flag then stays
// false, which only suppresses the e-commerce employee-discount code.
func BuildReconcileContext(ctx context.Context, orderCode string, lines []*models.SaleLine, movements []*models.StockMovement, employees EmployeeDirectory) (*ReconcileContext, error) {
	logger := config.GetLogger()

	codes := make([]string, 0, 2*(len(lines)+len(movements)))
	for _, line := range lines {
		codes = append(codes, line.ItemCode, line.MaterialCode)
	}
	for _, m := range movements {
		codes = append(codes, m.ItemCode, m.MaterialCode)
	}
	codes = utils.UniqueSlice(codes)

	loader := models.NewProductLoader()
	results, errs := loader.LoadMany(ctx, codes)()
	for _, err := range errs {
		if err != nil {
			config.LogError(logger, "ReconcileContext.go", "BuildReconcileContext", "LoadProducts", orderCode, err)
			return nil, err
		}
	}
	products := make(map[string]*models.Product, len(codes))
	for i, code := range codes {
		if i < len(results) && results[i] != nil {
			products[code] = results[i]
		}
	}

	warehouseMap, err := models.GetActiveWarehouseMap(ctx)
	if err != nil {
		config.LogError(logger, "ReconcileContext.go", "BuildReconcileContext", "GetActiveWarehouseMap", orderCode, err)
		return nil, err
	}

	rc := &ReconcileContext{
		OrderCode:    orderCode,
		Products:     products,
		WarehouseMap: warehouseMap,
	}
	if len(lines) > 0 {
		rc.DepartmentCode = lines[0].DepartmentCode
		rc.Channel = lines[0].SaleChannel

		partnerCode := lines[0].PartnerCode
		if employees != nil && partnerCode != "" {
			isEmployee, err := employees.IsActiveEmployee(ctx, partnerCode, lines[0].Brand)
			if err != nil {
				// Employee status is best-effort: on lookup failure the
				// line keeps its regular promotion code.
				config.LogError(logger, "ReconcileContext.go", "BuildReconcileContext", "IsActiveEmployee", partnerCode, err)
				isEmployee = false
			}
			rc.PartnerIsEmployee = isEmployee
		}
	}
	return rc, nil
}
