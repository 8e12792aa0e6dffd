package draft

import (
	"context"
	"fmt"
	"strings"

	"orderdesk/internal/catalog"
	llmclient "orderdesk/internal/llmClient"
	"orderdesk/internal/llmtool"
)

// Generator wraps a single reasoning-engine call under the draft contract.
// It performs no retries; retry policy belongs to the caller.
type Generator struct {
	LLM llmclient.LLMClient
}

// Result is one engine round after defensive normalization.
type Result struct {
	Draft     DraftOrder              `json:"draft"`
	Questions []ClarificationQuestion `json:"questions"`
	Summary   ReasoningSummary        `json:"reasoning_summary"`
}

// enginePayload is the JSON shape the engine is asked to produce.
type enginePayload struct {
	Draft     DraftOrder              `json:"draft"`
	Questions []ClarificationQuestion `json:"questions"`
	Summary   ReasoningSummary        `json:"reasoning_summary"`
}

type generateInput struct {
	Request string           `json:"request"`
	Catalog catalog.Snapshot `json:"catalog"`
}

var draftPromptSpec = llmtool.ApplyPresets(llmtool.StructuredPromptSpec{
	Purpose: "Turn a free-text purchase request into a structured draft purchase order " +
		"against the supplier catalog, with per-line confidence and open clarification questions.",
	Background: "The catalog lists every supplier, price row (SKU, unit type, quantity breaks, " +
		"unit price, currency) and business rule available. Nothing outside it exists.",
	OutputFields: []llmtool.PromptField{
		{Name: "draft", Type: "DraftOrder", Required: true, Description: "the draft order; use empty or null fields for anything unresolved"},
		{Name: "questions", Type: "[]ClarificationQuestion", Required: true, Description: "open questions with related_item_indexes and suggested_options"},
		{Name: "reasoning_summary", Type: "ReasoningSummary", Required: true, Description: "overall_decision, considerations, alternatives, global_confidence"},
	},
	Constraints: []string{
		"Every sku must come from the catalog rows of the resolved supplier.",
		"When several price rows match a SKU under different quantity breaks, never pick one; raise a question listing the tiers as suggested_options.",
		"Any line field you are less than 0.8 confident about must appear in that line's uncertain_fields with a matching question.",
		"Even an unresolvable request must produce a well-formed draft with empty fields plus helpful questions, never an error.",
	},
	Rules: []string{
		"Keep the user's quantity phrase verbatim in requested_quantity_raw.",
		"line_total is quantity times unit_price rounded to 2 decimals, or null when unit_price is null.",
		"Question ids must stay stable for unresolved questions across rounds and must never be reused once answered.",
	},
	OutputFormat: "JSON only.",
	Language:     "English",
}, llmtool.PresetStrictJSON(), llmtool.PresetClosedCatalog(), llmtool.PresetCautious())

// Generate produces a normalized draft round from a free-text request and a
// consistent catalog snapshot.
func (g *Generator) Generate(ctx context.Context, request string, snap catalog.Snapshot) (Result, error) {
	if g == nil || g.LLM == nil {
		return Result{}, fmt.Errorf("draft: generator has no reasoning engine")
	}
	prompt, err := llmtool.Render(draftPromptSpec)
	if err != nil {
		return Result{}, err
	}
	raw, err := g.LLM.GenerateJSON(ctx, prompt, generateInput{
		Request: strings.TrimSpace(request),
		Catalog: snap,
	})
	if err != nil {
		return Result{}, llmclient.Classify(err)
	}
	var payload enginePayload
	if err := llmtool.DecodeJSON(raw, &payload); err != nil {
		return Result{}, err
	}
	d, qs := Normalize(payload.Draft, payload.Questions, snap)
	return Result{Draft: d, Questions: qs, Summary: payload.Summary}, nil
}
