// Package document renders committed purchase orders into plain-text
// documents and persists them for download or hand-off to a PDF pipeline.
package document

import (
	"fmt"
	"strings"

	"orderdesk/internal/orders"
)

// Render produces the deterministic plain-text form of a committed order.
// The same order always renders to the same bytes, so stored documents can
// be compared and re-rendering is safe.
func Render(po orders.PurchaseOrder) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "PURCHASE ORDER %s\n", po.ID)
	fmt.Fprintf(&b, "Supplier: %s\n", po.SupplierName)
	fmt.Fprintf(&b, "Date: %s\n", po.CreatedAt.UTC().Format("2006-01-02"))
	b.WriteString("\n")

	for i, it := range po.Items {
		fmt.Fprintf(&b, "%2d. %s", i+1, it.ProductName)
		if it.SKU != "" {
			fmt.Fprintf(&b, " [%s]", it.SKU)
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "    %d x %.2f %s", it.Quantity, it.UnitPrice, it.Currency)
		if it.UnitType != "" {
			fmt.Fprintf(&b, " per %s", it.UnitType)
		}
		fmt.Fprintf(&b, " = %.2f %s\n", it.LineTotal, it.Currency)
		if it.Notes != "" {
			fmt.Fprintf(&b, "    note: %s\n", it.Notes)
		}
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "Subtotal: %.2f %s\n", po.Subtotal, po.Currency)
	if po.DeliveryInstructions != "" {
		fmt.Fprintf(&b, "Delivery: %s\n", po.DeliveryInstructions)
	}
	if po.ExtraNotesForSupplier != "" {
		fmt.Fprintf(&b, "Notes: %s\n", po.ExtraNotesForSupplier)
	}
	return []byte(b.String())
}

// DefaultPath is the storage path of the rendered order within its po id.
const DefaultPath = "order.txt"
