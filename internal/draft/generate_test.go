package draft

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	llmclient "orderdesk/internal/llmClient"
)

type fakeLLM struct {
	raw  string
	err  error
	last string
}

func (f *fakeLLM) Name() string { return "fake" }
func (f *fakeLLM) Close() error { return nil }

func (f *fakeLLM) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	f.last = prompt
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.raw), nil
}

func TestGenerate_NormalizesEngineRound(t *testing.T) {
	llm := &fakeLLM{raw: `{
		"draft": {
			"supplier_name": "EverFloor Supplies",
			"items": [{
				"sku": "HYDRO-301",
				"product_name": "HydroLoc Grey Herringbone",
				"requested_quantity_raw": "50 boxes",
				"quantity": 50,
				"unit_price": 17.50,
				"confidence": 0.85
			}]
		},
		"questions": [],
		"reasoning_summary": {"overall_decision": "drafted", "global_confidence": 0.85}
	}`}
	g := &Generator{LLM: llm}

	res, err := g.Generate(context.Background(), "50 boxes of HydroLoc please", testSnapshot())
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if res.Draft.Status != StatusDraft {
		t.Fatalf("status = %q", res.Draft.Status)
	}
	// The silently picked tier must come back as an open question.
	if !res.Draft.Items[0].IsUncertain("price") {
		t.Fatalf("price not flagged uncertain: %+v", res.Draft.Items[0])
	}
	if len(res.Questions) == 0 {
		t.Fatalf("expected a tier question")
	}
	if res.Draft.Items[0].Currency != "GBP" {
		t.Fatalf("default currency not applied: %q", res.Draft.Items[0].Currency)
	}
	if res.Summary.OverallDecision != "drafted" {
		t.Fatalf("summary lost: %+v", res.Summary)
	}
}

func TestGenerate_FencedOutputStillParses(t *testing.T) {
	llm := &fakeLLM{raw: "```json\n" + `{"draft":{"supplier_name":"TileWorld","items":[]},"questions":[],"reasoning_summary":{}}` + "\n```"}
	g := &Generator{LLM: llm}

	res, err := g.Generate(context.Background(), "something from TileWorld", testSnapshot())
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if res.Draft.SupplierName != "TileWorld" {
		t.Fatalf("supplier = %q", res.Draft.SupplierName)
	}
}

func TestGenerate_UnresolvableRequestIsStillWellFormed(t *testing.T) {
	// The engine gave up entirely; the caller still gets a valid empty
	// draft plus a way forward, never an error.
	llm := &fakeLLM{raw: `{"draft":{}, "questions":[{"question":"What would you like to order?"}], "reasoning_summary":{}}`}
	g := &Generator{LLM: llm}

	res, err := g.Generate(context.Background(), "qwzx", testSnapshot())
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if res.Draft.Items == nil {
		t.Fatalf("items must be an empty slice, not nil")
	}
	if res.Draft.Status != StatusDraft {
		t.Fatalf("status = %q", res.Draft.Status)
	}
	if len(res.Questions) == 0 {
		t.Fatalf("expected at least one question")
	}
	for _, q := range res.Questions {
		if q.ID == "" || q.Kind == "" {
			t.Fatalf("question missing id or kind: %+v", q)
		}
	}
}

func TestGenerate_EngineErrorIsClassified(t *testing.T) {
	// Scenario D: the upstream limit surfaces as the rate-limit sentinel so
	// the transport can answer 429 instead of a generic failure.
	llm := &fakeLLM{err: llmclient.ErrUpstreamRateLimited}
	g := &Generator{LLM: llm}

	_, err := g.Generate(context.Background(), "anything", testSnapshot())
	if !errors.Is(err, llmclient.ErrUpstreamRateLimited) {
		t.Fatalf("expected rate-limit error, got %v", err)
	}
}

func TestGenerate_GarbageOutputFailsCleanly(t *testing.T) {
	llm := &fakeLLM{raw: "the supplier is probably EverFloor"}
	g := &Generator{LLM: llm}

	_, err := g.Generate(context.Background(), "anything", testSnapshot())
	if !errors.Is(err, llmclient.ErrUnparsableResponse) {
		t.Fatalf("expected unparsable-response error, got %v", err)
	}
}

func TestGenerate_PromptCarriesCatalogRules(t *testing.T) {
	llm := &fakeLLM{raw: `{"draft":{},"questions":[],"reasoning_summary":{}}`}
	g := &Generator{LLM: llm}

	if _, err := g.Generate(context.Background(), "x", testSnapshot()); err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if llm.last == "" {
		t.Fatalf("prompt never rendered")
	}
	for _, want := range []string{"[PURPOSE]", "[CONSTRAINTS]", "uncertain_fields"} {
		if !strings.Contains(llm.last, want) {
			t.Fatalf("prompt missing %q:\n%s", want, llm.last)
		}
	}
}
