package models

// DocType classifies a warehouse document.
type DocType string

const (
	DocTypeStockOut DocType = "XK" // hàng xuất kho
	DocTypeReturn   DocType = "TL" // hàng trả lại
	DocTypeTransfer DocType = "DC" // điều chuyển nội bộ
)

// ProductType is the sale-line / catalog type tag. It doubles as the
// promotion-code suffix (".I", ".S", ".V").
type ProductType string

const (
	ProductTypeItem    ProductType = "I"
	ProductTypeService ProductType = "S"
	ProductTypeExport  ProductType = "V"
)

// MaterialTypeECode marks voucher/electronic-code style items. They are
// always serial-tracked and resolve to the item discount account.
const MaterialTypeECode = "94"

// LineProvenance records how an invoice line came to exist.
type LineProvenance string

const (
	// ProvenanceMatched: a sale line paired with a stock movement.
	ProvenanceMatched LineProvenance = "matched"
	// ProvenanceSynthetic: a stock movement with no matching sale line.
	ProvenanceSynthetic LineProvenance = "synthetic"
	// ProvenancePassThrough: a sale line with no stock movement (service
	// lines, or orders with no qualifying movements at all).
	ProvenancePassThrough LineProvenance = "pass_through"
)
