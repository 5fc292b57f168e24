package workflow

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bitbucket.org/agasretail/erpsync_backend/models"
	"bitbucket.org/agasretail/erpsync_backend/utils"
)

func matcherContext() *ReconcileContext {
	return &ReconcileContext{
		OrderCode:      "SO202409001",
		DepartmentCode: "D01",
		Products:       map[string]*models.Product{},
		WarehouseMap:   map[string]string{"HCM01": "WH-HCM-01"},
	}
}

func matcherSaleLine(id int, itemCode string, qty, unitPrice, amount int64) *models.SaleLine {
	return &models.SaleLine{
		ID:             id,
		OrderCode:      "SO202409001",
		DepartmentCode: "D01",
		ItemCode:       itemCode,
		ItemName:       itemCode,
		Qty:            decimal.NewFromInt(qty),
		UnitPrice:      decimal.NewFromInt(unitPrice),
		LineAmount:     decimal.NewFromInt(amount),
		OrderTypeLabel: "01. Bình thường",
	}
}

func matcherMovement(id int, docCode, itemCode string, qty int64, stockCode string, at time.Time) *models.StockMovement {
	return &models.StockMovement{
		ID:        id,
		DocType:   models.DocTypeStockOut,
		DocCode:   docCode,
		OrderCode: "SO202409001",
		ItemCode:  itemCode,
		ItemName:  itemCode,
		Qty:       decimal.NewFromInt(qty),
		StockCode: stockCode,
		CreatedAt: at,
	}
}

// matcherServiceLine returns a service line that never ships.
func matcherServiceLine(id int) *models.SaleLine {
	line := matcherSaleLine(id, "SVC-B", 1, 50000, 50000)
	line.ProductType = "S"
	return line
}

func TestExplodeOrder_MatchedAndPassThrough(t *testing.T) {
	rc := matcherContext()
	lines := []*models.SaleLine{
		matcherSaleLine(1, "ITEM-A", 2, 100000, 200000),
		matcherServiceLine(2),
	}
	movements := []*models.StockMovement{
		matcherMovement(1, "XK001", "ITEM-A", -2, "HCM01", time.Now()),
	}

	out := ExplodeOrder(rc, lines, movements)
	if len(out) != 2 {
		t.Fatalf("got %d lines, want 2", len(out))
	}

	matched := out[0]
	if matched.Provenance != models.ProvenanceMatched {
		t.Fatalf("first line provenance = %q, want matched", matched.Provenance)
	}
	if matched.DocCode != "XK001" {
		t.Fatalf("doc code = %q, want XK001", matched.DocCode)
	}
	if !matched.Qty.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("qty = %s, want the confirmed 2", matched.Qty)
	}
	if !matched.AllocationRatio.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("ratio = %s, want 1", matched.AllocationRatio)
	}
	if !matched.Amount.Equal(decimal.NewFromInt(200000)) {
		t.Fatalf("amount = %s, want 200000", matched.Amount)
	}
	if matched.WarehouseCode != "WH-HCM-01" {
		t.Fatalf("warehouse = %q, want the canonical WH-HCM-01", matched.WarehouseCode)
	}

	passThrough := out[1]
	if passThrough.Provenance != models.ProvenancePassThrough {
		t.Fatalf("second line provenance = %q, want pass_through", passThrough.Provenance)
	}
	if passThrough.ItemCode != "SVC-B" {
		t.Fatalf("pass-through item = %q, want SVC-B", passThrough.ItemCode)
	}
	if passThrough.DocCode != "" {
		t.Fatalf("pass-through doc code = %q, want empty", passThrough.DocCode)
	}
	if !passThrough.AllocationRatio.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("pass-through ratio = %s, want 1", passThrough.AllocationRatio)
	}
}

func TestExplodeOrder_PartialAllocationScalesAmounts(t *testing.T) {
	rc := matcherContext()
	line := matcherSaleLine(1, "ITEM-A", 2, 100000, 200000)
	line.CouponAmount = decimal.NewFromInt(20000)
	movements := []*models.StockMovement{
		matcherMovement(1, "XK001", "ITEM-A", -1, "HCM01", time.Now()),
	}

	out := ExplodeOrder(rc, []*models.SaleLine{line}, movements)
	if len(out) != 1 {
		t.Fatalf("got %d lines, want 1", len(out))
	}
	got := out[0]
	if !got.AllocationRatio.Equal(decimal.NewFromFloat(0.5)) {
		t.Fatalf("ratio = %s, want 0.5", got.AllocationRatio)
	}
	if !got.Qty.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("qty = %s, want the confirmed 1", got.Qty)
	}
	if !got.Amount.Equal(decimal.NewFromInt(100000)) {
		t.Fatalf("amount = %s, want 100000", got.Amount)
	}
	if !got.Amounts.Ck01.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("ck01 = %s, want the scaled 10000", got.Amounts.Ck01)
	}
	// Normal order at a partial ratio: gross recomputed from the
	// confirmed quantity.
	if !got.OriginalAmount.Equal(decimal.NewFromInt(100000)) {
		t.Fatalf("original = %s, want 100000", got.OriginalAmount)
	}
}

func TestExplodeOrder_SplitsLineAcrossMovements(t *testing.T) {
	rc := matcherContext()
	line := matcherSaleLine(1, "ITEM-X", 10, 100000, 1000000)
	t0 := time.Now()
	movements := []*models.StockMovement{
		matcherMovement(1, "XK001", "ITEM-X", -6, "HCM01", t0),
		matcherMovement(2, "XK002", "ITEM-X", -4, "HCM01", t0.Add(time.Minute)),
	}

	out := ExplodeOrder(rc, []*models.SaleLine{line}, movements)
	if len(out) != 2 {
		t.Fatalf("got %d lines, want one per movement", len(out))
	}

	wantQty := []int64{6, 4}
	wantAmount := []int64{600000, 400000}
	qtyTotal := decimal.Zero
	amountTotal := decimal.Zero
	for i, l := range out {
		if l.Provenance != models.ProvenanceMatched {
			t.Fatalf("out[%d] provenance = %q, want matched", i, l.Provenance)
		}
		if !l.Qty.Equal(decimal.NewFromInt(wantQty[i])) {
			t.Fatalf("out[%d] qty = %s, want %d", i, l.Qty, wantQty[i])
		}
		if !l.Amount.Equal(decimal.NewFromInt(wantAmount[i])) {
			t.Fatalf("out[%d] amount = %s, want %d", i, l.Amount, wantAmount[i])
		}
		qtyTotal = qtyTotal.Add(l.Qty)
		amountTotal = amountTotal.Add(l.Amount)
	}
	// Splitting never creates or loses quantity or money.
	if !qtyTotal.Equal(line.Qty) {
		t.Fatalf("summed qty = %s, want the stored %s", qtyTotal, line.Qty)
	}
	if !amountTotal.Equal(line.LineAmount) {
		t.Fatalf("summed amount = %s, want the stored %s", amountTotal, line.LineAmount)
	}
}

func TestExplodeOrder_PointExchangeOrder(t *testing.T) {
	rc := matcherContext()
	line := matcherSaleLine(1, "ITEM-A", 1, 50000, 150000)
	line.OrderTypeLabel = "03. Đổi điểm"
	line.DepartmentCode = "D02"
	line.PromotionCode = "KM2024_SUMMER"
	line.VipDiscountAmount = decimal.NewFromInt(30000)
	movements := []*models.StockMovement{
		matcherMovement(1, "XK001", "ITEM-A", -1, "HCM01", time.Now()),
	}

	out := ExplodeOrder(rc, []*models.SaleLine{line}, movements)
	if len(out) != 1 {
		t.Fatalf("got %d lines, want 1", len(out))
	}
	got := out[0]
	// Point exchanges are worth zero no matter what the POS stored.
	if !got.UnitPrice.IsZero() || !got.Amount.IsZero() || !got.OriginalAmount.IsZero() {
		t.Fatalf("money = price=%s amount=%s original=%s, want all zero", got.UnitPrice, got.Amount, got.OriginalAmount)
	}
	if got.PromotionCode != "" {
		t.Fatalf("promo = %q, want cleared", got.PromotionCode)
	}
	if got.GiftPromotionCode != "KMDD02" {
		t.Fatalf("gift = %q, want the department's KMDD02", got.GiftPromotionCode)
	}
	if got.ExpenseAccount != "64181" || got.FeeCode != "CPKM01" {
		t.Fatalf("accounts = %q/%q, want 64181/CPKM01", got.ExpenseAccount, got.FeeCode)
	}
}

func TestExplodeOrder_SyntheticLineForUnmatchedMovement(t *testing.T) {
	rc := matcherContext()
	rc.Products["ITEM-Z"] = &models.Product{
		MaterialCode: "ITEM-Z",
		ProductType:  "i",
	}
	movements := []*models.StockMovement{
		matcherMovement(1, "XK009", "ITEM-Z", -3, "HCM01", time.Now()),
	}

	out := ExplodeOrder(rc, nil, movements)
	if len(out) != 1 {
		t.Fatalf("got %d lines, want 1", len(out))
	}
	got := out[0]
	if got.Provenance != models.ProvenanceSynthetic {
		t.Fatalf("provenance = %q, want synthetic", got.Provenance)
	}
	if got.ItemCode != "ITEM-Z" || got.ItemName != "ITEM-Z" {
		t.Fatalf("identity = %q/%q, want the movement's own ITEM-Z", got.ItemCode, got.ItemName)
	}
	if !got.Qty.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("qty = %s, want the absolute 3", got.Qty)
	}
	if !got.UnitPrice.IsZero() || !got.Amount.IsZero() {
		t.Fatalf("synthetic lines carry no money, got price=%s amount=%s", got.UnitPrice, got.Amount)
	}
	if got.WarehouseCode != "WH-HCM-01" {
		t.Fatalf("warehouse = %q, want WH-HCM-01", got.WarehouseCode)
	}
	if got.ProductType != models.ProductTypeItem {
		t.Fatalf("product type = %q, want the catalog's I", got.ProductType)
	}
}

func TestExplodeOrder_MaterialCodeFallback(t *testing.T) {
	rc := matcherContext()
	// The sale line already carries the canonical code; the movement
	// still arrives with the pre-alias item code.
	line := matcherSaleLine(1, "MAT-A", 1, 100000, 100000)
	m := matcherMovement(1, "XK001", "OLD-A", -1, "HCM01", time.Now())
	m.MaterialCode = "MAT-A"

	out := ExplodeOrder(rc, []*models.SaleLine{line}, []*models.StockMovement{m})
	if len(out) != 1 {
		t.Fatalf("got %d lines, want 1", len(out))
	}
	if out[0].Provenance != models.ProvenanceMatched {
		t.Fatalf("provenance = %q, want matched via the material code", out[0].Provenance)
	}
	if out[0].ItemCode != "MAT-A" {
		t.Fatalf("item = %q, want the sale line's MAT-A", out[0].ItemCode)
	}
}

func TestExplodeOrder_SkipsKeepAndInboundMovements(t *testing.T) {
	rc := matcherContext()
	line := matcherSaleLine(1, "ITEM-A", 1, 100000, 100000)

	keep := matcherMovement(1, "XK001", "ITEM-A", -1, "KEEP01", time.Now())
	inbound := matcherMovement(2, "TL001", "ITEM-A", 1, "HCM01", time.Now())
	inbound.DocType = models.DocTypeReturn

	out := ExplodeOrder(rc, []*models.SaleLine{line}, []*models.StockMovement{keep, inbound})
	if len(out) != 1 {
		t.Fatalf("got %d lines, want 1", len(out))
	}
	if out[0].Provenance != models.ProvenancePassThrough {
		t.Fatalf("provenance = %q, want pass_through: neither movement qualifies", out[0].Provenance)
	}
}

func TestExplodeOrder_MovementsProcessedOldestFirst(t *testing.T) {
	rc := matcherContext()
	lines := []*models.SaleLine{
		matcherSaleLine(1, "ITEM-A", 1, 100000, 100000),
		matcherSaleLine(2, "ITEM-A", 1, 100000, 100000),
	}
	t0 := time.Now()
	// Input deliberately newest first; same-timestamp ties fall back to id.
	movements := []*models.StockMovement{
		matcherMovement(7, "XK-NEW", "ITEM-A", -1, "HCM01", t0.Add(time.Hour)),
		matcherMovement(5, "XK-TIE-B", "ITEM-A", -1, "HCM01", t0),
		matcherMovement(3, "XK-TIE-A", "ITEM-A", -1, "HCM01", t0),
	}

	out := ExplodeOrder(rc, lines, movements)
	if len(out) != 3 {
		t.Fatalf("got %d lines, want 3", len(out))
	}
	wantDocs := []string{"XK-TIE-A", "XK-TIE-B", "XK-NEW"}
	for i, want := range wantDocs {
		if out[i].DocCode != want {
			t.Fatalf("out[%d].DocCode = %q, want %q", i, out[i].DocCode, want)
		}
	}
}

func TestExplodeOrder_NoQualifyingMovements(t *testing.T) {
	rc := matcherContext()
	lines := []*models.SaleLine{
		matcherSaleLine(1, "ITEM-A", 1, 100000, 100000),
		matcherSaleLine(2, "ITEM-B", 2, 50000, 100000),
	}

	out := ExplodeOrder(rc, lines, nil)
	if len(out) != 2 {
		t.Fatalf("got %d lines, want 2", len(out))
	}
	for i, l := range out {
		if l.Provenance != models.ProvenancePassThrough {
			t.Fatalf("out[%d] provenance = %q, want pass_through", i, l.Provenance)
		}
		if l.ItemCode != lines[i].ItemCode {
			t.Fatalf("out[%d] item = %q, want input order kept", i, l.ItemCode)
		}
		// Unmatched lines carry their stored quantity and amount as is.
		if !l.Qty.Equal(lines[i].Qty) || !l.Amount.Equal(lines[i].LineAmount) {
			t.Fatalf("out[%d] qty=%s amount=%s, want the stored %s/%s",
				i, l.Qty, l.Amount, lines[i].Qty, lines[i].LineAmount)
		}
	}
}

func TestExplodeOrder_Deterministic(t *testing.T) {
	rc := matcherContext()
	rc.Products["ITEM-A"] = &models.Product{
		MaterialCode: "ITEM-A",
		ProductType:  "I",
		LotTracked:   utils.NewTrue(),
	}
	rc.Products["ITEM-Z"] = &models.Product{MaterialCode: "ITEM-Z", ProductType: "I"}
	lines := []*models.SaleLine{
		matcherSaleLine(1, "ITEM-A", 2, 100000, 200000),
		matcherSaleLine(2, "ITEM-B", 1, 50000, 50000),
	}
	t0 := time.Now()
	movements := []*models.StockMovement{
		matcherMovement(1, "XK001", "ITEM-A", -1, "HCM01", t0),
		matcherMovement(2, "XK002", "ITEM-A", -1, "HCM01", t0.Add(time.Second)),
		matcherMovement(3, "XK003", "ITEM-Z", -1, "HCM01", t0.Add(2*time.Second)),
	}
	movements[0].Tracking = "L2024-01"
	movements[2].Tracking = "SN-42"

	first := ExplodeOrder(rc, lines, movements)
	second := ExplodeOrder(rc, lines, movements)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("rerun on the same snapshots diverged:\nfirst:  %+v\nsecond: %+v", first, second)
	}

	for i, l := range first {
		if l.Lot != "" && l.Serial != "" {
			t.Fatalf("out[%d] carries both lot %q and serial %q", i, l.Lot, l.Serial)
		}
	}
	if first[0].Lot != "L2024-01" {
		t.Fatalf("out[0] lot = %q, want the movement's L2024-01", first[0].Lot)
	}
	if first[2].Serial != "SN-42" {
		t.Fatalf("out[2] serial = %q, want SN-42 for the untracked item", first[2].Serial)
	}
}

func TestAllocationRatio_ClampsDenominator(t *testing.T) {
	// Zero-quantity rows exist (fee corrections); the ratio divides by
	// one instead of crashing.
	got := allocationRatio(decimal.NewFromInt(-3), decimal.Zero)
	if !got.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("ratio = %s, want 3", got)
	}
	got = allocationRatio(decimal.NewFromInt(-2), decimal.NewFromInt(4))
	if !got.Equal(decimal.NewFromFloat(0.5)) {
		t.Fatalf("ratio = %s, want 0.5", got)
	}
}
