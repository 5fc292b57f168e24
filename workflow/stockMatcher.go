package workflow

import (
	"sort"
	"strings"

	"bitbucket.org/agasretail/erpsync_backend/models"
	"github.com/shopspring/decimal"
)

// saleCandidate tracks one sale line's consumption state during
// matching. Consumption is monotonic: once matched, never unmatched.
type saleCandidate struct {
	line     *models.SaleLine
	consumed bool
}

// ExplodeOrder reconciles one order's sale lines against its warehouse
// movements and returns the finished invoice lines: one per matched
// movement (sale line scaled by the allocation ratio), one synthetic
// line per movement nothing sold, and one pass-through line per sale
// line no movement confirmed. Output order is movements oldest first,
// then leftovers in input order. The function only reads its inputs,
// so rerunning it on the same snapshots returns identical output.
func ExplodeOrder(rc *ReconcileContext, lines []*models.SaleLine, movements []*models.StockMovement) []*models.InvoiceLine {
	qualifying := qualifyingMovements(movements)

	candidates := make([]*saleCandidate, 0, len(lines))
	queues := make(map[string][]*saleCandidate, len(lines))
	for _, line := range lines {
		cand := &saleCandidate{line: line}
		candidates = append(candidates, cand)
		queues[line.ItemCode] = append(queues[line.ItemCode], cand)
	}

	out := make([]*models.InvoiceLine, 0, len(qualifying)+len(lines))

	for _, m := range qualifying {
		queue := queues[m.ItemCode]
		if len(queue) == 0 {
			// Catalog aliasing: the sale line may carry the canonical
			// material code while the movement still has the pre-alias
			// item code.
			queue = queues[m.MaterialCode]
		}
		if len(queue) == 0 {
			out = append(out, synthesizeLine(rc, m))
			continue
		}

		cand := firstUnconsumed(queue)
		if cand == nil {
			// Every candidate already matched: reuse the first. One sale
			// line legitimately feeds several movements (partial picks),
			// so this fallback is load-bearing. Do not tighten it to a
			// one-to-one invariant.
			cand = queue[0]
		}
		cand.consumed = true

		ratio := allocationRatio(m.Qty, cand.line.Qty)
		out = append(out, buildInvoiceLine(rc, cand.line, m, ratio, models.ProvenanceMatched))
	}

	for _, cand := range candidates {
		if !cand.consumed {
			out = append(out, buildInvoiceLine(rc, cand.line, nil, decimalOne, models.ProvenancePassThrough))
		}
	}
	return out
}

// qualifyingMovements keeps stock-out-direction movements off real
// locations, oldest first. Movements parked on virtual keep locations
// are reservations and are dropped entirely.
func qualifyingMovements(movements []*models.StockMovement) []*models.StockMovement {
	qualifying := make([]*models.StockMovement, 0, len(movements))
	for _, m := range movements {
		if !m.IsStockOutDirection() {
			continue
		}
		if strings.HasPrefix(m.StockCode, keepStockPrefix) {
			continue
		}
		qualifying = append(qualifying, m)
	}
	sort.SliceStable(qualifying, func(i, j int) bool {
		if qualifying[i].CreatedAt.Equal(qualifying[j].CreatedAt) {
			return qualifying[i].ID < qualifying[j].ID
		}
		return qualifying[i].CreatedAt.Before(qualifying[j].CreatedAt)
	})
	return qualifying
}

func firstUnconsumed(queue []*saleCandidate) *saleCandidate {
	for _, cand := range queue {
		if !cand.consumed {
			return cand
		}
	}
	return nil
}

// allocationRatio is abs(movement qty) over the sale quantity, with the
// denominator clamped to at least one. Zero and negative sale
// quantities divide by one, never by zero.
func allocationRatio(movementQty, saleQty decimal.Decimal) decimal.Decimal {
	denom := saleQty
	if denom.LessThan(decimalOne) {
		denom = decimalOne
	}
	return movementQty.Abs().Div(denom)
}

// buildInvoiceLine runs the per-line resolvers for one pairing.
// m is nil for pass-through lines; the stored quantity then stands and
// the ratio is one.
func buildInvoiceLine(rc *ReconcileContext, line *models.SaleLine, m *models.StockMovement, ratio decimal.Decimal, provenance models.LineProvenance) *models.InvoiceLine {
	flags := ClassifyOrderLabel(line.OrderTypeLabel)
	product := rc.ProductFor(line.ItemCode, line.MaterialCode)

	qty := line.Qty
	confirmedQty := decimal.Zero
	docCode := ""
	movementStock := ""
	tracking := ""
	if m != nil {
		qty = m.Qty.Abs()
		confirmedQty = qty
		docCode = m.DocCode
		movementStock = m.StockCode
		tracking = m.Tracking
	}

	price := ResolvePriceAndAmounts(line, flags, ratio, confirmedQty)
	amounts := CollectAmountVector(line).Scale(ratio)

	isGift := price.UnitPrice.IsZero() && price.Amount.IsZero()
	promoCode, giftCode := ResolvePromotionCodes(line, flags, isGift, rc.PartnerIsEmployee)

	accounts := ResolveAccounts(AccountRuleInput{
		Line:             line,
		Product:          product,
		Flags:            flags,
		IsGift:           isGift,
		HasPromotionCode: promoCode != "",
		HasGiftCode:      giftCode != "",
	})

	lot, serial := ResolveLotSerial(product, tracking)
	warehouse := ResolveWarehouseCode(flags, rc.DepartmentCode, movementStock, line.StockCode, rc.WarehouseMap)

	return &models.InvoiceLine{
		OrderCode:    line.OrderCode,
		DocCode:      docCode,
		ItemCode:     line.ItemCode,
		MaterialCode: line.MaterialCode,
		ItemName:     line.ItemName,

		Qty:            qty,
		UnitPrice:      price.UnitPrice,
		Amount:         price.Amount,
		OriginalAmount: price.OriginalAmount,

		WarehouseCode: warehouse,
		Lot:           lot,
		Serial:        serial,

		PromotionCode:     promoCode,
		GiftPromotionCode: giftCode,

		DiscountAccount: accounts.DiscountAccount,
		ExpenseAccount:  accounts.ExpenseAccount,
		FeeCode:         accounts.FeeCode,

		ProductType:     line.TypeTag(),
		AllocationRatio: ratio,
		Amounts:         amounts,
		Provenance:      provenance,
	}
}

// synthesizeLine builds the minimal line for a movement nothing sold:
// the movement's own identity, zero money, resolved location and
// tracking only.
func synthesizeLine(rc *ReconcileContext, m *models.StockMovement) *models.InvoiceLine {
	product := rc.ProductFor(m.ItemCode, m.MaterialCode)
	lot, serial := ResolveLotSerial(product, m.Tracking)
	warehouse := ResolveWarehouseCode(OrderCategoryFlags{}, rc.DepartmentCode, m.StockCode, "", rc.WarehouseMap)

	var productType models.ProductType
	if product != nil {
		productType = models.ProductType(strings.ToUpper(strings.TrimSpace(product.ProductType)))
	}

	return &models.InvoiceLine{
		OrderCode:    m.OrderCode,
		DocCode:      m.DocCode,
		ItemCode:     m.ItemCode,
		MaterialCode: m.MaterialCode,
		ItemName:     m.ItemName,

		Qty:             m.Qty.Abs(),
		AllocationRatio: decimalOne,

		WarehouseCode: warehouse,
		Lot:           lot,
		Serial:        serial,

		ProductType: productType,
		Provenance:  models.ProvenanceSynthetic,
	}
}
