package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"orderdesk/internal/catalog"
	"orderdesk/internal/chat"
	"orderdesk/internal/draft"
	"orderdesk/internal/extract"
	"orderdesk/internal/gateway/repository/document"
	llmclient "orderdesk/internal/llmClient"
	"orderdesk/internal/orders"
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

func intPtr(v int) *int { return &v }

func newTestService(t *testing.T, llm llmclient.LLMClient) *Service {
	t.Helper()
	ctx := context.Background()
	cat := catalog.NewMemoryStore()
	sup, err := cat.CreateSupplier(ctx, catalog.Supplier{Name: "EverFloor Supplies"})
	if err != nil {
		t.Fatalf("seed supplier: %v", err)
	}
	rows := []catalog.PriceRow{
		{SupplierID: sup.ID, SKU: "HYDRO-301", ProductName: "HydroLoc Grey Herringbone",
			UnitType: "box", MinQty: intPtr(1), MaxQty: intPtr(49), UnitPrice: 18.99, Currency: "GBP"},
		{SupplierID: sup.ID, SKU: "HYDRO-301", ProductName: "HydroLoc Grey Herringbone",
			UnitType: "pallet", MinQty: intPtr(50), UnitPrice: 17.50, Currency: "GBP"},
	}
	for _, r := range rows {
		if _, err := cat.CreatePriceRow(ctx, r); err != nil {
			t.Fatalf("seed price row: %v", err)
		}
	}
	g := &draft.Generator{LLM: llm}
	ord := orders.NewMemoryStore()
	return NewService(g, &extract.Extractor{LLM: llm}, cat, ord,
		chat.NewManager(g, cat, ord), document.NewMemoryStore(), nil)
}

func serve(svc *Service, method, path string, body any) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	svc.Register(mux)
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandleGenerate_ReturnsDraftAndQuestions(t *testing.T) {
	svc := newTestService(t, &fakeLLM{raw: `{
		"draft": {
			"supplier_name": "EverFloor Supplies",
			"items": [{"sku": "HYDRO-301", "quantity": 50, "confidence": 0.85}]
		},
		"questions": [],
		"reasoning_summary": {}
	}`})

	rec := serve(svc, http.MethodPost, "/api/v1/drafts/generate", map[string]string{"request": "50 boxes of HydroLoc"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Draft     draft.DraftOrder              `json:"draft"`
		Questions []draft.ClarificationQuestion `json:"questions"`
		CanCommit bool                          `json:"can_commit"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Questions) == 0 {
		t.Fatalf("expected the tier question, got %s", rec.Body.String())
	}
	if resp.CanCommit {
		t.Fatalf("an ambiguous draft must not be committable")
	}
}

func TestHandleGenerate_RateLimitMapsTo429(t *testing.T) {
	svc := newTestService(t, &fakeLLM{err: llmclient.ErrUpstreamRateLimited})

	rec := serve(svc, http.MethodPost, "/api/v1/drafts/generate", map[string]string{"request": "anything"})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
}

func TestHandleMerge_UnknownAnswerMapsTo400(t *testing.T) {
	svc := newTestService(t, &fakeLLM{})

	rec := serve(svc, http.MethodPost, "/api/v1/drafts/merge", map[string]any{
		"draft":     draft.DraftOrder{Status: draft.StatusDraft},
		"questions": []draft.ClarificationQuestion{},
		"answers":   map[string]any{"q-ghost": "x"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var body errorBody
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if len(body.Unknown) != 1 || body.Unknown[0] != "q-ghost" {
		t.Fatalf("unexpected error body: %s", rec.Body.String())
	}
}

func TestHandleMerge_RejectedAnswerMapsTo400(t *testing.T) {
	svc := newTestService(t, &fakeLLM{})

	d := draft.DraftOrder{
		SupplierName: "EverFloor Supplies",
		Status:       draft.StatusDraft,
		Items: []draft.DraftItem{{
			SKU: "HYDRO-301", ProductName: "HydroLoc Grey Herringbone", Quantity: 50,
			Currency: "GBP", Confidence: 0.85, UncertainFields: []string{"price"},
		}},
	}
	qs := []draft.ClarificationQuestion{{
		ID:                 "q-item0-price",
		Kind:               draft.KindSelection,
		Question:           "Which price tier should apply to HydroLoc Grey Herringbone (HYDRO-301)?",
		RelatedItemIndexes: []int{0},
	}}
	rec := serve(svc, http.MethodPost, "/api/v1/drafts/merge", map[string]any{
		"draft":     d,
		"questions": qs,
		"answers":   map[string]any{"q-item0-price": "not sure yet"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var body errorBody
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if _, ok := body.Rejected["q-item0-price"]; !ok {
		t.Fatalf("expected a rejection reason for q-item0-price in %s", rec.Body.String())
	}
}

func TestHandleCommit_GateAndDocument(t *testing.T) {
	svc := newTestService(t, &fakeLLM{})
	price := 17.50

	incomplete := draft.DraftOrder{
		SupplierName: "EverFloor Supplies",
		Status:       draft.StatusDraft,
		Items:        []draft.DraftItem{{SKU: "HYDRO-301", Quantity: 50, Currency: "GBP"}},
	}
	rec := serve(svc, http.MethodPost, "/api/v1/orders/commit", map[string]any{"draft": incomplete})
	if rec.Code != http.StatusConflict {
		t.Fatalf("incomplete commit status = %d, body %s", rec.Code, rec.Body.String())
	}
	var body errorBody
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if len(body.Missing) == 0 {
		t.Fatalf("expected missing fields in %s", rec.Body.String())
	}

	complete := incomplete
	complete.Items = []draft.DraftItem{{
		SKU: "HYDRO-301", ProductName: "HydroLoc Grey Herringbone", UnitType: "pallet",
		Quantity: 50, UnitPrice: &price, Currency: "GBP", Confidence: 0.95,
	}}
	rec = serve(svc, http.MethodPost, "/api/v1/orders/commit", map[string]any{"draft": complete})
	if rec.Code != http.StatusCreated {
		t.Fatalf("commit status = %d, body %s", rec.Code, rec.Body.String())
	}
	var po orders.PurchaseOrder
	if err := json.Unmarshal(rec.Body.Bytes(), &po); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if po.Subtotal != 875.00 {
		t.Fatalf("subtotal = %v", po.Subtotal)
	}

	rec = serve(svc, http.MethodGet, "/api/v1/orders/"+po.ID+"/document", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("document status = %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("PURCHASE ORDER "+po.ID)) {
		t.Fatalf("document body: %s", rec.Body.String())
	}
}

func TestHandleCommit_FabricatedSKURejected(t *testing.T) {
	svc := newTestService(t, &fakeLLM{})
	price := 9.99
	d := draft.DraftOrder{
		SupplierName: "EverFloor Supplies",
		Status:       draft.StatusDraft,
		Items: []draft.DraftItem{{
			SKU: "HYDRO-999", Quantity: 5, UnitPrice: &price, Currency: "GBP",
		}},
	}
	rec := serve(svc, http.MethodPost, "/api/v1/orders/commit", map[string]any{"draft": d})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestCatalogCRUD(t *testing.T) {
	svc := newTestService(t, &fakeLLM{})

	rec := serve(svc, http.MethodPost, "/api/v1/catalog/suppliers", catalog.Supplier{Name: "TileWorld"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create supplier status = %d", rec.Code)
	}
	var sup catalog.Supplier
	_ = json.Unmarshal(rec.Body.Bytes(), &sup)

	rec = serve(svc, http.MethodGet, "/api/v1/catalog/suppliers", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list suppliers status = %d", rec.Code)
	}

	rec = serve(svc, http.MethodDelete, "/api/v1/catalog/suppliers/"+sup.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete supplier status = %d", rec.Code)
	}
	rec = serve(svc, http.MethodDelete, "/api/v1/catalog/suppliers/"+sup.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("delete missing supplier status = %d", rec.Code)
	}
}

func TestHandleExtract_RoundTrip(t *testing.T) {
	svc := newTestService(t, &fakeLLM{raw: `{"rows": [
		{"sku": "OAK-114", "product_name": "Oak Classic Plank", "unit_type": "box",
		 "unit_price": 24.00, "currency": "GBP", "confidence": 0.9, "source_line": "OAK-114 box 24.00"}
	]}`})

	rec := serve(svc, http.MethodPost, "/api/v1/extract", map[string]string{
		"filename": "list.txt", "content": "OAK-114 box 24.00",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("extract status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp extractResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Rows) != 1 || resp.NeedsReview != 0 {
		t.Fatalf("unexpected extract response: %+v", resp)
	}

	sups, _ := svc.Catalog.ListSuppliers(context.Background())
	rec = serve(svc, http.MethodPost, "/api/v1/extract/confirm", map[string]any{
		"supplier_id": sups[0].ID,
		"rows":        resp.Rows,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestHandleChatMessage(t *testing.T) {
	svc := newTestService(t, &fakeLLM{raw: `{
		"draft": {"supplier_name": "EverFloor Supplies", "items": []},
		"questions": [{"question": "How many boxes do you need?"}],
		"reasoning_summary": {}
	}`})

	rec := serve(svc, http.MethodPost, "/api/v1/chat/conv-1", chat.Message{Text: "some flooring"})
	if rec.Code != http.StatusOK {
		t.Fatalf("chat status = %d, body %s", rec.Code, rec.Body.String())
	}
	var turn chat.Turn
	if err := json.Unmarshal(rec.Body.Bytes(), &turn); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if turn.Role != "assistant" {
		t.Fatalf("role = %q", turn.Role)
	}

	rec = serve(svc, http.MethodGet, "/api/v1/chat/conv-1/transcript", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("transcript status = %d", rec.Code)
	}
	var transcript []chat.Turn
	if err := json.Unmarshal(rec.Body.Bytes(), &transcript); err != nil {
		t.Fatalf("decode transcript: %v", err)
	}
	if len(transcript) != 2 {
		t.Fatalf("transcript length = %d", len(transcript))
	}
}
