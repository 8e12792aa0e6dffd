package draft

import (
	"errors"
	"testing"
)

func completeDraft() DraftOrder {
	stale := 1.00
	return DraftOrder{
		SupplierName: "EverFloor Supplies",
		Status:       StatusDraft,
		Items: []DraftItem{{
			SKU:         "HYDRO-301",
			ProductName: "HydroLoc Grey Herringbone",
			UnitType:    "pallet",
			Quantity:    50,
			UnitPrice:   f64Ptr(17.50),
			Currency:    "GBP",
			LineTotal:   &stale,
			Confidence:  0.95,
		}},
	}
}

func TestCanCommit_CompleteDraft(t *testing.T) {
	if !CanCommit(completeDraft()) {
		t.Fatalf("complete draft should be committable")
	}
}

func TestCanCommit_RejectsIncompleteDrafts(t *testing.T) {
	// Scenario C: each completeness rule blocks the commit on its own.
	cases := []struct {
		name  string
		bend  func(*DraftOrder)
		field string
	}{
		{"no supplier", func(d *DraftOrder) { d.SupplierName = "  " }, "supplier_name"},
		{"no items", func(d *DraftOrder) { d.Items = nil }, "items"},
		{"empty sku", func(d *DraftOrder) { d.Items[0].SKU = " " }, "sku"},
		{"zero quantity", func(d *DraftOrder) { d.Items[0].Quantity = 0 }, "quantity"},
		{"nil price", func(d *DraftOrder) { d.Items[0].UnitPrice = nil }, "unit_price"},
		{"non-positive price", func(d *DraftOrder) { d.Items[0].UnitPrice = f64Ptr(0) }, "unit_price"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := completeDraft()
			tc.bend(&d)
			if CanCommit(d) {
				t.Fatalf("draft should not be committable")
			}
			missing := Validate(d, testSnapshot())
			found := false
			for _, m := range missing {
				if m.Field == tc.field {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected %q among missing fields, got %+v", tc.field, missing)
			}
		})
	}
}

func TestValidate_ClosedWorldSKURecheck(t *testing.T) {
	// A sku that is complete in shape but absent from the supplier's price
	// list must fail validation when a snapshot is available.
	d := completeDraft()
	d.Items[0].SKU = "HYDRO-999"

	if !CanCommit(d) {
		t.Fatalf("shape-only predicate should still pass: %+v", Validate(d, testSnapshot()))
	}
	missing := Validate(d, testSnapshot())
	if len(missing) != 1 || missing[0].Field != "sku" || missing[0].ItemIndex != 0 {
		t.Fatalf("expected a single sku violation, got %+v", missing)
	}
}

func TestFinalize_RecomputesLineTotals(t *testing.T) {
	// The stale line total carried by the draft is ignored; totals come
	// from quantity times unit price only.
	got := Finalize(completeDraft())
	it := got.Items[0]
	if it.LineTotal == nil || *it.LineTotal != 875.00 {
		t.Fatalf("line total = %v", it.LineTotal)
	}
}

func TestIncompleteDraftError_Message(t *testing.T) {
	d := completeDraft()
	d.SupplierName = ""
	d.Items[0].UnitPrice = nil

	err := error(&IncompleteDraftError{Missing: Validate(d, testSnapshot())})
	var inc *IncompleteDraftError
	if !errors.As(err, &inc) {
		t.Fatalf("errors.As failed")
	}
	want := "draft: incomplete, missing supplier_name, items[0].unit_price"
	if err.Error() != want {
		t.Fatalf("message = %q", err.Error())
	}
}
