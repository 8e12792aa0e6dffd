package extract

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"orderdesk/internal/catalog"
	llmclient "orderdesk/internal/llmClient"
)

type fakeLLM struct {
	raw string
	err error
}

func (f *fakeLLM) Name() string { return "fake" }
func (f *fakeLLM) Close() error { return nil }

func (f *fakeLLM) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.raw), nil
}

func TestExtract_FlagsIncompleteRows(t *testing.T) {
	llm := &fakeLLM{raw: `{"rows": [
		{"sku": "HYDRO-301", "product_name": "HydroLoc Grey Herringbone", "unit_type": "box",
		 "min_qty": 1, "max_qty": 49, "unit_price": 18.99, "currency": "GBP",
		 "confidence": 0.95, "source_line": "HYDRO-301 box 1-49 18.99"},
		{"sku": "", "product_name": "Something smudged", "unit_price": null,
		 "confidence": 0.3, "source_line": "???"}
	]}`}
	e := &Extractor{LLM: llm}

	rows, err := e.Extract(context.Background(), "pricelist.txt", "HYDRO-301 box 1-49 18.99\n???")
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].NeedsReview() {
		t.Fatalf("clean row flagged for review: %+v", rows[0])
	}
	if !rows[1].NeedsReview() {
		t.Fatalf("garbled row not flagged: %+v", rows[1])
	}
	if !hasUncertain(rows[1], "sku") || !hasUncertain(rows[1], "unit_price") {
		t.Fatalf("missing uncertain fields: %+v", rows[1].UncertainFields)
	}
}

func TestExtract_EmptyDocumentRejected(t *testing.T) {
	e := &Extractor{LLM: &fakeLLM{raw: `{"rows": []}`}}
	if _, err := e.Extract(context.Background(), "x.txt", "   "); err == nil {
		t.Fatalf("expected an error for an empty document")
	}
}

func TestExtract_EngineErrorClassified(t *testing.T) {
	e := &Extractor{LLM: &fakeLLM{err: llmclient.ErrUpstreamRateLimited}}
	_, err := e.Extract(context.Background(), "x.txt", "content")
	if !errors.Is(err, llmclient.ErrUpstreamRateLimited) {
		t.Fatalf("expected rate-limit error, got %v", err)
	}
}

func TestConfirm_WritesReviewedRows(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewMemoryStore()
	sup, err := store.CreateSupplier(ctx, catalog.Supplier{Name: "EverFloor Supplies"})
	if err != nil {
		t.Fatalf("CreateSupplier: %v", err)
	}

	price := 18.99
	rows := []ExtractedRow{{
		SKU: "HYDRO-301", ProductName: "HydroLoc Grey Herringbone", UnitType: "box",
		UnitPrice: &price, Currency: "GBP", Confidence: 0.95,
		SourceLine: "HYDRO-301 box 18.99",
	}}
	n, err := Confirm(ctx, store, sup.ID, rows)
	if err != nil {
		t.Fatalf("Confirm error: %v", err)
	}
	if n != 1 {
		t.Fatalf("confirmed %d rows", n)
	}
	got, err := store.ListPriceRows(ctx)
	if err != nil || len(got) != 1 {
		t.Fatalf("price rows = %+v, err %v", got, err)
	}
	if got[0].SKU != "HYDRO-301" || got[0].UnitPrice != 18.99 {
		t.Fatalf("row mismatch: %+v", got[0])
	}
}

func TestConfirm_RefusesUnreviewedRows(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewMemoryStore()
	sup, _ := store.CreateSupplier(ctx, catalog.Supplier{Name: "EverFloor Supplies"})

	rows := []ExtractedRow{{SKU: "HYDRO-301", Confidence: 0.4}}
	if _, err := Confirm(ctx, store, sup.ID, rows); err == nil {
		t.Fatalf("unreviewed row should not be importable")
	}
	got, _ := store.ListPriceRows(ctx)
	if len(got) != 0 {
		t.Fatalf("nothing should have been written, got %+v", got)
	}
}

func hasUncertain(r ExtractedRow, field string) bool {
	for _, f := range r.UncertainFields {
		if f == field {
			return true
		}
	}
	return false
}
