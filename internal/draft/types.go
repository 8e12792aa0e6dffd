// Package draft implements the clarification-driven refinement loop that
// turns free-text ordering requests into committable purchase orders.
package draft

import (
	"math"
	"strings"
)

// StatusDraft is the only status a DraftOrder carries before commit.
const StatusDraft = "draft"

// uncertainty below this threshold must surface as uncertain fields plus a
// clarification question.
const confidenceThreshold = 0.8

// resolvedConfidence is the floor applied to an item once one of its fields
// is resolved by an answer.
const resolvedConfidence = 0.9

// DraftItem is one requested line of a draft order.
type DraftItem struct {
	SKU                  string   `json:"sku" prompt_desc:"catalog SKU, empty when unresolved"`
	ProductName          string   `json:"product_name"`
	UnitType             string   `json:"unit_type" prompt_desc:"unit the price applies to, e.g. box or pallet"`
	RequestedQuantityRaw string   `json:"requested_quantity_raw" prompt_desc:"verbatim user phrase, e.g. 'a pallet'"`
	Quantity             int      `json:"quantity"`
	UnitPrice            *float64 `json:"unit_price" prompt_desc:"null when no trustworthy price is known"`
	Currency             string   `json:"currency"`
	LineTotal            *float64 `json:"line_total" prompt_desc:"derived, never authoritative until commit"`
	PriceSource          string   `json:"price_source" prompt_desc:"provenance, e.g. 'price list row X' or 'manual entry'"`
	Confidence           float64  `json:"confidence" prompt_desc:"0..1 trust in this line"`
	UncertainFields      []string `json:"uncertain_fields" prompt_desc:"item field names that are not yet trustworthy"`
	Notes                string   `json:"notes" prompt:"optional"`
}

// ProfitabilityHint is advisory output attached to a draft.
type ProfitabilityHint struct {
	Message              string   `json:"message"`
	EstimatedSavings     *float64 `json:"estimated_savings,omitempty"`
	AppliesToItemIndexes []int    `json:"applies_to_item_indexes"`
}

// DraftOrder is the central mutable entity of the refinement loop. Each
// clarification round produces a new value; nothing is shared between rounds.
type DraftOrder struct {
	SupplierName          string              `json:"supplier_name" prompt_desc:"empty when the supplier is unresolved"`
	Status                string              `json:"status"`
	Items                 []DraftItem         `json:"items"`
	ExtraNotesForSupplier string              `json:"extra_notes_for_supplier" prompt:"optional"`
	DeliveryInstructions  string              `json:"delivery_instructions" prompt:"optional"`
	ProfitabilityHints    []ProfitabilityHint `json:"profitability_hints" prompt:"optional"`
}

// QuestionKind tags the semantic type of a clarification question. It is
// assigned once at normalization time and carried as data, so consumers
// dispatch over the tag instead of re-matching strings.
type QuestionKind string

const (
	KindSKU       QuestionKind = "sku"
	KindPrice     QuestionKind = "price"
	KindQuantity  QuestionKind = "quantity"
	KindSelection QuestionKind = "selection"
	KindFreeText  QuestionKind = "freetext"
)

// ClarificationQuestion is an open question attached to a draft round.
// IDs are stable across rounds while the question stays unresolved and are
// never reused for a different underlying uncertainty once answered.
type ClarificationQuestion struct {
	ID                 string       `json:"id"`
	Kind               QuestionKind `json:"kind" prompt:"-"`
	Question           string       `json:"question"`
	Reason             string       `json:"reason"`
	RelatedItemIndexes []int        `json:"related_item_indexes"`
	SuggestedOptions   []string     `json:"suggested_options" prompt_desc:"empty means a free-text answer is expected"`
}

// ReasoningSummary is advisory only and never consulted for control flow.
type ReasoningSummary struct {
	OverallDecision  string   `json:"overall_decision"`
	Considerations   []string `json:"considerations"`
	Alternatives     []string `json:"alternatives"`
	GlobalConfidence float64  `json:"global_confidence"`
}

// Round2 rounds to two decimal places, the money precision used everywhere.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// IsUncertain reports whether the item flags the field as untrustworthy.
func (it DraftItem) IsUncertain(field string) bool {
	for _, f := range it.UncertainFields {
		if strings.EqualFold(strings.TrimSpace(f), field) {
			return true
		}
	}
	return false
}

func (it *DraftItem) markUncertain(field string) {
	if it.IsUncertain(field) {
		return
	}
	it.UncertainFields = append(it.UncertainFields, field)
}

func (it *DraftItem) clearUncertain(fields ...string) {
	if len(it.UncertainFields) == 0 {
		return
	}
	kept := it.UncertainFields[:0]
	for _, f := range it.UncertainFields {
		drop := false
		for _, target := range fields {
			if strings.EqualFold(strings.TrimSpace(f), target) {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, f)
		}
	}
	it.UncertainFields = kept
}

// raiseConfidence applies the monotonic non-decrease rule: max(old, new).
func (it *DraftItem) raiseConfidence(to float64) {
	if to > it.Confidence {
		it.Confidence = to
	}
}

func (it *DraftItem) recomputeLineTotal() {
	if it.UnitPrice == nil || it.Quantity <= 0 {
		it.LineTotal = nil
		return
	}
	total := Round2(float64(it.Quantity) * *it.UnitPrice)
	it.LineTotal = &total
}

// priceBearing reports whether the uncertain-field name refers to pricing
// identity (invariant: such entries require a covering question).
func priceBearing(field string) bool {
	switch strings.ToLower(strings.TrimSpace(field)) {
	case "sku", "unit_price", "unitprice", "price":
		return true
	}
	return false
}

// Clone returns a deep copy so merge rounds never alias prior state.
func (d DraftOrder) Clone() DraftOrder {
	out := d
	out.Items = make([]DraftItem, len(d.Items))
	for i, it := range d.Items {
		cp := it
		if it.UnitPrice != nil {
			v := *it.UnitPrice
			cp.UnitPrice = &v
		}
		if it.LineTotal != nil {
			v := *it.LineTotal
			cp.LineTotal = &v
		}
		cp.UncertainFields = append([]string(nil), it.UncertainFields...)
		out.Items[i] = cp
	}
	out.ProfitabilityHints = make([]ProfitabilityHint, len(d.ProfitabilityHints))
	for i, h := range d.ProfitabilityHints {
		cp := h
		if h.EstimatedSavings != nil {
			v := *h.EstimatedSavings
			cp.EstimatedSavings = &v
		}
		cp.AppliesToItemIndexes = append([]int(nil), h.AppliesToItemIndexes...)
		out.ProfitabilityHints[i] = cp
	}
	return out
}

func cloneQuestions(qs []ClarificationQuestion) []ClarificationQuestion {
	out := make([]ClarificationQuestion, len(qs))
	for i, q := range qs {
		cp := q
		cp.RelatedItemIndexes = append([]int(nil), q.RelatedItemIndexes...)
		cp.SuggestedOptions = append([]string(nil), q.SuggestedOptions...)
		out[i] = cp
	}
	return out
}
