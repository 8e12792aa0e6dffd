package draft

import (
	"fmt"
	"strings"

	"orderdesk/internal/catalog"
)

// MissingField names one incomplete spot in a draft. ItemIndex is -1 for
// order-level problems.
type MissingField struct {
	ItemIndex int    `json:"item_index"`
	Field     string `json:"field"`
	Reason    string `json:"reason"`
}

// IncompleteDraftError blocks a commit and carries enough detail to route the
// user back into clarification instead of just failing.
type IncompleteDraftError struct {
	Missing []MissingField
}

func (e *IncompleteDraftError) Error() string {
	parts := make([]string, 0, len(e.Missing))
	for _, m := range e.Missing {
		if m.ItemIndex < 0 {
			parts = append(parts, m.Field)
		} else {
			parts = append(parts, fmt.Sprintf("items[%d].%s", m.ItemIndex, m.Field))
		}
	}
	return "draft: incomplete, missing " + strings.Join(parts, ", ")
}

// Validate returns every completeness violation in the draft. The closed
// world check against the supplier's price rows runs only when a snapshot is
// supplied; passing a zero Snapshot skips it.
func Validate(d DraftOrder, snap catalog.Snapshot) []MissingField {
	var missing []MissingField
	if strings.TrimSpace(d.SupplierName) == "" {
		missing = append(missing, MissingField{ItemIndex: -1, Field: "supplier_name", Reason: "supplier is unresolved"})
	}
	if len(d.Items) == 0 {
		missing = append(missing, MissingField{ItemIndex: -1, Field: "items", Reason: "order has no line items"})
	}

	supplier, supplierKnown := snap.SupplierByName(d.SupplierName)

	for i, it := range d.Items {
		sku := strings.TrimSpace(it.SKU)
		if sku == "" {
			missing = append(missing, MissingField{ItemIndex: i, Field: "sku", Reason: "sku is empty"})
		} else if supplierKnown && !snap.HasSKU(supplier.ID, sku) {
			missing = append(missing, MissingField{ItemIndex: i, Field: "sku", Reason: "sku is not in the supplier's price list"})
		}
		if it.Quantity <= 0 {
			missing = append(missing, MissingField{ItemIndex: i, Field: "quantity", Reason: "quantity must be positive"})
		}
		if it.UnitPrice == nil {
			missing = append(missing, MissingField{ItemIndex: i, Field: "unit_price", Reason: "unit price is unresolved"})
		} else if *it.UnitPrice <= 0 {
			missing = append(missing, MissingField{ItemIndex: i, Field: "unit_price", Reason: "unit price must be positive"})
		}
	}
	return missing
}

// CanCommit is the pure completeness predicate: non-empty supplier, at least
// one item, and every item with a non-empty trimmed SKU, positive quantity,
// and a positive unit price.
func CanCommit(d DraftOrder) bool {
	return len(Validate(d, catalog.Snapshot{})) == 0
}

// Finalize recomputes every line total from quantity and unit price,
// ignoring whatever stale totals the draft carried. Call only after
// Validate passes.
func Finalize(d DraftOrder) DraftOrder {
	out := d.Clone()
	for i := range out.Items {
		it := &out.Items[i]
		total := Round2(float64(it.Quantity) * *it.UnitPrice)
		it.LineTotal = &total
	}
	return out
}
