// Package extract turns pasted or uploaded price-list text into reviewable
// catalog rows. Unlike the draft loop this is a single shot: uncertain rows
// are flagged for human review instead of spawning a clarification round.
package extract

import (
	"context"
	"fmt"
	"strings"

	llmclient "orderdesk/internal/llmClient"
	"orderdesk/internal/llmtool"

	"orderdesk/internal/catalog"
)

// uncertainty below this threshold flags the row for review.
const confidenceThreshold = 0.8

// ExtractedRow is one candidate price row pulled from the document. It
// stays a candidate until a reviewer confirms it into the catalog.
type ExtractedRow struct {
	SKU             string   `json:"sku"`
	ProductName     string   `json:"product_name"`
	UnitType        string   `json:"unit_type" prompt_desc:"unit the price applies to, e.g. box or pallet"`
	MinQty          *int     `json:"min_qty" prompt_desc:"lower bound of the quantity break, null when absent"`
	MaxQty          *int     `json:"max_qty" prompt_desc:"upper bound of the quantity break, null when open-ended"`
	UnitPrice       *float64 `json:"unit_price" prompt_desc:"null when the document shows no usable price"`
	Currency        string   `json:"currency"`
	Confidence      float64  `json:"confidence" prompt_desc:"0..1 trust in this row"`
	UncertainFields []string `json:"uncertain_fields" prompt_desc:"row field names that need review"`
	SourceLine      string   `json:"source_line" prompt_desc:"verbatim document line this row came from"`
}

// NeedsReview reports whether a reviewer must look at the row before it may
// be confirmed into the catalog.
func (r ExtractedRow) NeedsReview() bool {
	return r.Confidence < confidenceThreshold || len(r.UncertainFields) > 0 ||
		strings.TrimSpace(r.SKU) == "" || r.UnitPrice == nil
}

type extractInput struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

type enginePayload struct {
	Rows []ExtractedRow `json:"rows"`
}

var extractPromptSpec = llmtool.ApplyPresets(llmtool.StructuredPromptSpec{
	Purpose: "Extract supplier price-list rows from a raw document so they can be " +
		"reviewed and imported into the catalog.",
	Background: "The document is free text: a pasted email, a CSV dump, or OCR output. " +
		"Rows may be incomplete or garbled.",
	OutputFields: []llmtool.PromptField{
		{Name: "rows", Type: "[]ExtractedRow", Required: true,
			Description: "every price row found; fields per row:\n" +
				llmtool.MustRenderFields(ExtractedRow{})},
	},
	Constraints: []string{
		"Extract only what the document states; never infer prices or SKUs from outside knowledge.",
	},
	Rules: []string{
		"Keep the verbatim document line in source_line.",
		"Any row field you are less than 0.8 confident about must appear in uncertain_fields.",
	},
	OutputFormat: "JSON only.",
	Language:     "English",
}, llmtool.PresetStrictJSON(), llmtool.PresetCautious())

// Extractor wraps the one-shot extraction call.
type Extractor struct {
	LLM llmclient.LLMClient
}

// Extract parses a document into candidate rows. Output rows are normalized
// the same way draft rounds are: trimmed, clamped, and flagged, never
// rejected wholesale.
func (e *Extractor) Extract(ctx context.Context, filename, content string) ([]ExtractedRow, error) {
	if e == nil || e.LLM == nil {
		return nil, fmt.Errorf("extract: extractor has no reasoning engine")
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("extract: document is empty")
	}
	prompt, err := llmtool.Render(extractPromptSpec)
	if err != nil {
		return nil, err
	}
	raw, err := e.LLM.GenerateJSON(ctx, prompt, extractInput{
		Filename: strings.TrimSpace(filename),
		Content:  content,
	})
	if err != nil {
		return nil, llmclient.Classify(err)
	}
	var payload enginePayload
	if err := llmtool.DecodeJSON(raw, &payload); err != nil {
		return nil, err
	}
	rows := payload.Rows
	for i := range rows {
		normalizeRow(&rows[i])
	}
	return rows, nil
}

func normalizeRow(r *ExtractedRow) {
	r.SKU = strings.TrimSpace(r.SKU)
	r.ProductName = strings.TrimSpace(r.ProductName)
	r.UnitType = strings.TrimSpace(r.UnitType)
	r.Currency = strings.TrimSpace(r.Currency)
	if r.Confidence < 0 {
		r.Confidence = 0
	}
	if r.Confidence > 1 {
		r.Confidence = 1
	}
	if r.UnitPrice != nil && *r.UnitPrice <= 0 {
		r.UnitPrice = nil
	}
	if r.SKU == "" {
		markUncertain(r, "sku")
	}
	if r.UnitPrice == nil {
		markUncertain(r, "unit_price")
	}
}

func markUncertain(r *ExtractedRow, field string) {
	for _, f := range r.UncertainFields {
		if strings.EqualFold(strings.TrimSpace(f), field) {
			return
		}
	}
	r.UncertainFields = append(r.UncertainFields, field)
}

// ToPriceRow converts a confirmed row into a catalog price row for the given
// supplier. Rows that still need review are rejected.
func ToPriceRow(r ExtractedRow, supplierID string) (catalog.PriceRow, error) {
	if r.NeedsReview() {
		return catalog.PriceRow{}, fmt.Errorf("extract: row %q still needs review", r.SKU)
	}
	currency := r.Currency
	if currency == "" {
		currency = "GBP"
	}
	return catalog.PriceRow{
		SupplierID:  strings.TrimSpace(supplierID),
		SKU:         r.SKU,
		ProductName: r.ProductName,
		UnitType:    r.UnitType,
		MinQty:      r.MinQty,
		MaxQty:      r.MaxQty,
		UnitPrice:   *r.UnitPrice,
		Currency:    currency,
		Notes:       strings.TrimSpace(r.SourceLine),
	}, nil
}

// Confirm bulk-imports reviewed rows into the catalog store. It stops on the
// first failure and reports how many rows were written.
func Confirm(ctx context.Context, store catalog.Store, supplierID string, rows []ExtractedRow) (int, error) {
	for i, r := range rows {
		pr, err := ToPriceRow(r, supplierID)
		if err != nil {
			return i, err
		}
		if _, err := store.CreatePriceRow(ctx, pr); err != nil {
			return i, fmt.Errorf("extract: row %d (%s): %w", i, r.SKU, err)
		}
	}
	return len(rows), nil
}
