package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func seedStore(t *testing.T) (*MemoryStore, Supplier) {
	t.Helper()
	ctx := context.Background()
	store := NewMemoryStore()
	sup, err := store.CreateSupplier(ctx, Supplier{Name: "EverFloor Supplies", Email: "orders@everfloor.example"})
	require.NoError(t, err)
	_, err = store.CreatePriceRow(ctx, PriceRow{
		SupplierID: sup.ID, SKU: "HYDRO-301", ProductName: "HydroLoc Grey Herringbone",
		UnitType: "box", MinQty: intPtr(1), MaxQty: intPtr(49), UnitPrice: 18.99, Currency: "GBP",
	})
	require.NoError(t, err)
	_, err = store.CreatePriceRow(ctx, PriceRow{
		SupplierID: sup.ID, SKU: "HYDRO-301", ProductName: "HydroLoc Grey Herringbone",
		UnitType: "pallet", MinQty: intPtr(50), UnitPrice: 17.50, Currency: "GBP",
	})
	require.NoError(t, err)
	require.NoError(t, store.PutBusinessRule(ctx, BusinessRule{Key: "default_currency", Value: "GBP"}))
	return store, sup
}

func TestMemoryStore_SnapshotIsConsistent(t *testing.T) {
	store, sup := seedStore(t)
	ctx := context.Background()

	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Suppliers, 1)
	require.Len(t, snap.PriceRows, 2)
	require.Equal(t, "GBP", snap.Rule("default_currency", "USD"))

	// Later writes do not leak into the taken snapshot.
	_, err = store.CreatePriceRow(ctx, PriceRow{SupplierID: sup.ID, SKU: "OAK-114", UnitPrice: 24})
	require.NoError(t, err)
	require.Len(t, snap.PriceRows, 2)
}

func TestMemoryStore_CreateValidation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.CreateSupplier(ctx, Supplier{Name: "   "})
	require.Error(t, err)

	_, err = store.CreatePriceRow(ctx, PriceRow{SupplierID: "sup-ghost", SKU: "X-1", UnitPrice: 1})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Delete(t *testing.T) {
	store, sup := seedStore(t)
	ctx := context.Background()

	rows, err := store.ListPriceRows(ctx)
	require.NoError(t, err)
	require.NoError(t, store.DeletePriceRow(ctx, rows[0].ID))
	require.ErrorIs(t, store.DeletePriceRow(ctx, rows[0].ID), ErrNotFound)

	require.NoError(t, store.DeleteSupplier(ctx, sup.ID))
	require.ErrorIs(t, store.DeleteSupplier(ctx, sup.ID), ErrNotFound)
}

func TestSnapshot_Lookups(t *testing.T) {
	store, sup := seedStore(t)
	snap, err := store.Snapshot(context.Background())
	require.NoError(t, err)

	got, ok := snap.SupplierByName("everfloor supplies")
	require.True(t, ok)
	require.Equal(t, sup.ID, got.ID)

	_, ok = snap.SupplierByName("Nobody")
	require.False(t, ok)

	rows := snap.RowsForSKU(sup.ID, "hydro-301")
	require.Len(t, rows, 2)
	require.True(t, snap.HasSKU(sup.ID, "HYDRO-301"))
	require.False(t, snap.HasSKU(sup.ID, "HYDRO-999"))
}

func TestTierCovers(t *testing.T) {
	box := PriceRow{MinQty: intPtr(1), MaxQty: intPtr(49)}
	pallet := PriceRow{MinQty: intPtr(50)}

	require.True(t, TierCovers(box, 1))
	require.True(t, TierCovers(box, 49))
	require.False(t, TierCovers(box, 50))
	require.True(t, TierCovers(pallet, 50))
	require.False(t, TierCovers(pallet, 49))
	require.True(t, TierCovers(PriceRow{}, 7))
}
