package orders

import (
	"context"
	"errors"
	"testing"

	"orderdesk/internal/draft"
)

func f64Ptr(v float64) *float64 { return &v }

func committableDraft() draft.DraftOrder {
	return draft.DraftOrder{
		SupplierName: "EverFloor Supplies",
		Status:       draft.StatusDraft,
		Items: []draft.DraftItem{
			{SKU: "HYDRO-301", ProductName: "HydroLoc Grey Herringbone", UnitType: "pallet",
				Quantity: 50, UnitPrice: f64Ptr(17.50), Currency: "GBP", Confidence: 0.95},
			{SKU: "OAK-114", ProductName: "Oak Classic Plank", UnitType: "box",
				Quantity: 3, UnitPrice: f64Ptr(24.00), Currency: "GBP", Confidence: 0.9},
		},
		DeliveryInstructions: "rear entrance",
	}
}

func TestFromDraft_RecomputesTotals(t *testing.T) {
	po, err := FromDraft(committableDraft())
	if err != nil {
		t.Fatalf("FromDraft error: %v", err)
	}
	if po.Status != StatusCommitted {
		t.Fatalf("status = %q", po.Status)
	}
	if po.Items[0].LineTotal != 875.00 || po.Items[1].LineTotal != 72.00 {
		t.Fatalf("line totals = %v, %v", po.Items[0].LineTotal, po.Items[1].LineTotal)
	}
	if po.Subtotal != 947.00 {
		t.Fatalf("subtotal = %v", po.Subtotal)
	}
	if po.Currency != "GBP" {
		t.Fatalf("currency = %q", po.Currency)
	}
	if po.DeliveryInstructions != "rear entrance" {
		t.Fatalf("delivery instructions lost")
	}
}

func TestFromDraft_RejectsIncompleteDraft(t *testing.T) {
	d := committableDraft()
	d.Items[1].UnitPrice = nil

	_, err := FromDraft(d)
	var inc *draft.IncompleteDraftError
	if !errors.As(err, &inc) {
		t.Fatalf("expected IncompleteDraftError, got %v", err)
	}
	if len(inc.Missing) != 1 || inc.Missing[0].ItemIndex != 1 || inc.Missing[0].Field != "unit_price" {
		t.Fatalf("unexpected missing set: %+v", inc.Missing)
	}
}

func TestMemoryStore_CommitAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	po, err := FromDraft(committableDraft())
	if err != nil {
		t.Fatalf("FromDraft error: %v", err)
	}
	saved, err := store.Commit(ctx, po)
	if err != nil {
		t.Fatalf("Commit error: %v", err)
	}
	if saved.ID == "" {
		t.Fatalf("no id assigned")
	}
	if saved.CreatedAt.IsZero() {
		t.Fatalf("no created_at assigned")
	}

	got, err := store.Get(ctx, saved.ID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if len(got.Items) != 2 || got.Subtotal != 947.00 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestMemoryStore_CommitIsImmutable(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	po, _ := FromDraft(committableDraft())
	saved, err := store.Commit(ctx, po)
	if err != nil {
		t.Fatalf("Commit error: %v", err)
	}
	if _, err := store.Commit(ctx, saved); err == nil {
		t.Fatalf("double commit of the same id should fail")
	}

	// Mutating the returned value must not touch the stored record.
	saved.Items[0].Quantity = 1
	got, _ := store.Get(ctx, saved.ID)
	if got.Items[0].Quantity != 50 {
		t.Fatalf("stored record was mutated: %+v", got.Items[0])
	}
}

func TestMemoryStore_GetMissing(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Get(context.Background(), "po-none"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_EmptyOrderRejected(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Commit(context.Background(), PurchaseOrder{SupplierName: "EverFloor Supplies"})
	if err == nil {
		t.Fatalf("expected an error for an order without items")
	}
}
