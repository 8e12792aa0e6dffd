// Package orders persists committed purchase orders. Drafts never touch this
// package; only a draft that passed validation is handed over.
package orders

import (
	"fmt"
	"strings"
	"time"

	"orderdesk/internal/catalog"
	"orderdesk/internal/draft"
)

const StatusCommitted = "committed"

// PoItem is one committed line. Unlike a draft line nothing here is optional:
// prices and totals are plain values.
type PoItem struct {
	SKU         string  `json:"sku"`
	ProductName string  `json:"product_name"`
	UnitType    string  `json:"unit_type"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Currency    string  `json:"currency"`
	LineTotal   float64 `json:"line_total"`
	PriceSource string  `json:"price_source"`
	Notes       string  `json:"notes,omitempty"`
}

// PurchaseOrder is the immutable committed record.
type PurchaseOrder struct {
	ID                    string    `json:"id"`
	SupplierName          string    `json:"supplier_name"`
	Status                string    `json:"status"`
	Items                 []PoItem  `json:"items"`
	Subtotal              float64   `json:"subtotal"`
	Currency              string    `json:"currency"`
	ExtraNotesForSupplier string    `json:"extra_notes_for_supplier,omitempty"`
	DeliveryInstructions  string    `json:"delivery_instructions,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
}

// FromDraft converts a validated, finalized draft into a purchase order.
// Line totals and the subtotal are recomputed here; the draft's derived
// numbers are never trusted.
func FromDraft(d draft.DraftOrder) (PurchaseOrder, error) {
	if missing := draft.Validate(d, catalog.Snapshot{}); len(missing) > 0 {
		return PurchaseOrder{}, &draft.IncompleteDraftError{Missing: missing}
	}
	po := PurchaseOrder{
		SupplierName:          strings.TrimSpace(d.SupplierName),
		Status:                StatusCommitted,
		Items:                 make([]PoItem, 0, len(d.Items)),
		ExtraNotesForSupplier: d.ExtraNotesForSupplier,
		DeliveryInstructions:  d.DeliveryInstructions,
	}
	for i, it := range d.Items {
		if it.UnitPrice == nil {
			return PurchaseOrder{}, fmt.Errorf("orders: item %d has no unit price", i)
		}
		line := draft.Round2(float64(it.Quantity) * *it.UnitPrice)
		po.Items = append(po.Items, PoItem{
			SKU:         strings.TrimSpace(it.SKU),
			ProductName: it.ProductName,
			UnitType:    it.UnitType,
			Quantity:    it.Quantity,
			UnitPrice:   *it.UnitPrice,
			Currency:    it.Currency,
			LineTotal:   line,
			PriceSource: it.PriceSource,
			Notes:       it.Notes,
		})
		po.Subtotal = draft.Round2(po.Subtotal + line)
		if po.Currency == "" {
			po.Currency = it.Currency
		}
	}
	return po, nil
}
