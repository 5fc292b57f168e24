package workflow

import (
	"strings"

	"bitbucket.org/agasretail/erpsync_backend/utils"
)

// OrderCategoryFlags are derived from one sale line's free-text order
// type label. Flags are related but not mutually exclusive; different
// lines of one order may carry different labels, so flags are
// recomputed per line and never cached on the order.
type OrderCategoryFlags struct {
	Normal         bool
	Service        bool
	PointExchange  bool
	BottleExchange bool
	Investment     bool
	BirthdayGift   bool
	DVExchange     bool
	CardSeparation bool
	AccountSale    bool
	ECommerce      bool
}

// Special reports whether any category besides Normal matched. Lines
// whose label matches nothing take the default (normal-like) path in
// every resolver.
func (f OrderCategoryFlags) Special() bool {
	return f.Service || f.PointExchange || f.BottleExchange || f.Investment ||
		f.BirthdayGift || f.DVExchange || f.CardSeparation || f.AccountSale || f.ECommerce
}

type labelMatchMode int

const (
	// matchFolded compares against the lower-cased, diacritic-folded,
	// whitespace-collapsed label.
	matchFolded labelMatchMode = iota
	// matchExact compares against the trimmed original, keeping
	// diacritics and numbered prefixes ("08. Tách thẻ").
	matchExact
)

type labelRule struct {
	keyword string
	mode    labelMatchMode
	set     func(*OrderCategoryFlags)
}

// labelRules is evaluated in order against a single normalized copy of
// the label. The POS emits both numbered labels ("03. Đổi điểm") and
// free-form variants with inconsistent spacing and casing; folded rules
// absorb that, while DV-exchange and card-separation labels are only
// ever emitted in one spelling and stay exact on purpose.
var labelRules = []labelRule{
	{"binh thuong", matchFolded, func(f *OrderCategoryFlags) { f.Normal = true }},
	{"dich vu", matchFolded, func(f *OrderCategoryFlags) { f.Service = true }},
	{"doi diem", matchFolded, func(f *OrderCategoryFlags) { f.PointExchange = true }},
	{"doi vo", matchFolded, func(f *OrderCategoryFlags) { f.BottleExchange = true }},
	{"dau tu", matchFolded, func(f *OrderCategoryFlags) { f.Investment = true }},
	{"sinh nhat", matchFolded, func(f *OrderCategoryFlags) { f.BirthdayGift = true }},
	{"Đổi DV", matchExact, func(f *OrderCategoryFlags) { f.DVExchange = true }},
	{"08. Tách thẻ", matchExact, func(f *OrderCategoryFlags) { f.CardSeparation = true }},
	{"ban tai khoan", matchFolded, func(f *OrderCategoryFlags) { f.AccountSale = true }},
	{"san tmdt", matchFolded, func(f *OrderCategoryFlags) { f.ECommerce = true }},
}

// ClassifyOrderLabel turns one order-type label into category flags.
// A label matching no keyword yields the zero value.
func ClassifyOrderLabel(label string) OrderCategoryFlags {
	var flags OrderCategoryFlags

	trimmed := strings.TrimSpace(label)
	folded := utils.FoldVietnamese(label)

	for _, rule := range labelRules {
		switch rule.mode {
		case matchFolded:
			if strings.Contains(folded, rule.keyword) {
				rule.set(&flags)
			}
		case matchExact:
			if strings.Contains(trimmed, rule.keyword) {
				rule.set(&flags)
			}
		}
	}
	return flags
}
