package catalog

import "strings"

// Supplier is a vendor that price rows belong to.
type Supplier struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// PriceRow is one price-list entry. Multiple rows may share a SKU with
// different unit type / quantity break combinations (price tiers).
type PriceRow struct {
	ID          string  `json:"id"`
	SupplierID  string  `json:"supplier_id"`
	SKU         string  `json:"sku"`
	ProductName string  `json:"product_name"`
	UnitType    string  `json:"unit_type"`
	MinQty      *int    `json:"min_qty,omitempty"`
	MaxQty      *int    `json:"max_qty,omitempty"`
	UnitPrice   float64 `json:"unit_price"`
	Currency    string  `json:"currency"`
	Notes       string  `json:"notes,omitempty"`
}

// BusinessRule is a flat string key/value configuration entry
// (tax rate, default currency, fitting rate, free-form notes).
type BusinessRule struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Snapshot is an immutable-for-the-session view of the catalog. A single
// generation or merge call must consult exactly one Snapshot.
type Snapshot struct {
	Suppliers     []Supplier     `json:"suppliers"`
	PriceRows     []PriceRow     `json:"price_rows"`
	BusinessRules []BusinessRule `json:"business_rules"`
}

// SupplierByName returns the supplier with the given name, case-insensitive.
func (s Snapshot) SupplierByName(name string) (Supplier, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Supplier{}, false
	}
	for _, sup := range s.Suppliers {
		if strings.EqualFold(strings.TrimSpace(sup.Name), name) {
			return sup, true
		}
	}
	return Supplier{}, false
}

// RowsForSupplier returns every price row belonging to the supplier.
func (s Snapshot) RowsForSupplier(supplierID string) []PriceRow {
	var rows []PriceRow
	for _, r := range s.PriceRows {
		if r.SupplierID == supplierID {
			rows = append(rows, r)
		}
	}
	return rows
}

// RowsForSKU returns every tier of the given SKU for the supplier.
func (s Snapshot) RowsForSKU(supplierID, sku string) []PriceRow {
	sku = strings.TrimSpace(sku)
	var rows []PriceRow
	for _, r := range s.PriceRows {
		if r.SupplierID == supplierID && strings.EqualFold(r.SKU, sku) {
			rows = append(rows, r)
		}
	}
	return rows
}

// HasSKU reports whether the supplier's price list carries the SKU at all.
func (s Snapshot) HasSKU(supplierID, sku string) bool {
	return len(s.RowsForSKU(supplierID, sku)) > 0
}

// Rule returns the business rule value for key, or fallback when absent.
func (s Snapshot) Rule(key, fallback string) string {
	for _, r := range s.BusinessRules {
		if r.Key == key {
			return r.Value
		}
	}
	return fallback
}

// TierCovers reports whether qty falls inside the row's quantity break.
func TierCovers(r PriceRow, qty int) bool {
	if r.MinQty != nil && qty < *r.MinQty {
		return false
	}
	if r.MaxQty != nil && qty > *r.MaxQty {
		return false
	}
	return true
}
