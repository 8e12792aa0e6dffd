package draft

import (
	"fmt"
	"strings"

	"orderdesk/internal/catalog"
)

// Normalize repairs an engine round so it honors the business rules the
// external engine cannot be trusted to obey: well-formed shape, closed-world
// SKUs, the confidence/uncertainty/question coupling, and no silently picked
// price tier. It is deterministic and safe to run on every round.
func Normalize(d DraftOrder, qs []ClarificationQuestion, snap catalog.Snapshot) (DraftOrder, []ClarificationQuestion) {
	d = d.Clone()
	qs = cloneQuestions(qs)

	d.Status = StatusDraft
	d.SupplierName = strings.TrimSpace(d.SupplierName)
	if d.Items == nil {
		d.Items = []DraftItem{}
	}
	defaultCurrency := snap.Rule("default_currency", "GBP")

	for i := range d.Items {
		it := &d.Items[i]
		it.SKU = strings.TrimSpace(it.SKU)
		it.ProductName = strings.TrimSpace(it.ProductName)
		it.UnitType = strings.TrimSpace(it.UnitType)
		if strings.TrimSpace(it.Currency) == "" {
			it.Currency = defaultCurrency
		}
		if it.Confidence < 0 {
			it.Confidence = 0
		}
		if it.Confidence > 1 {
			it.Confidence = 1
		}
		it.recomputeLineTotal()
	}

	qs = normalizeQuestions(qs, len(d.Items))

	supplier, supplierKnown := snap.SupplierByName(d.SupplierName)

	for i := range d.Items {
		it := &d.Items[i]

		if supplierKnown && it.SKU != "" && !snap.HasSKU(supplier.ID, it.SKU) {
			// Fabricated SKU: keep the value for context but never accept
			// it silently.
			it.markUncertain("sku")
			if it.Confidence > 0.5 {
				it.Confidence = 0.5
			}
		}

		if supplierKnown && it.SKU != "" {
			qs = ensureTierChoice(qs, d.Items, i, snap.RowsForSKU(supplier.ID, it.SKU))
		}

		if it.Confidence < confidenceThreshold && len(it.UncertainFields) == 0 {
			if it.SKU == "" {
				it.markUncertain("sku")
			}
			if it.UnitPrice == nil {
				it.markUncertain("price")
			}
			if it.Quantity <= 0 {
				it.markUncertain("quantity")
			}
		}
	}

	qs = ensureQuestionCoverage(d, qs)
	qs = ensureSupplierQuestion(d, qs, snap)
	return d, qs
}

// normalizeQuestions trims question text, drops empty questions, clamps item
// indexes to the draft, assigns kinds once, and fills missing ids with
// deterministic ones so unresolved questions keep the same id across rounds.
func normalizeQuestions(qs []ClarificationQuestion, itemCount int) []ClarificationQuestion {
	out := qs[:0]
	used := make(map[string]bool, len(qs))
	for _, q := range qs {
		q.Question = strings.TrimSpace(q.Question)
		if q.Question == "" {
			continue
		}
		q.ID = strings.TrimSpace(q.ID)
		q.Reason = strings.TrimSpace(q.Reason)
		var related []int
		for _, idx := range q.RelatedItemIndexes {
			if idx >= 0 && idx < itemCount {
				related = append(related, idx)
			}
		}
		q.RelatedItemIndexes = related
		if q.Kind == "" {
			q.Kind = ClassifyQuestion(q.Question)
		}
		if q.ID == "" {
			q.ID = deterministicQuestionID(q)
		}
		// Two distinct questions must never share an id; answers are keyed
		// by id, so a collision would make one of them unanswerable.
		id := q.ID
		for n := 2; used[id]; n++ {
			id = fmt.Sprintf("%s-%d", q.ID, n)
		}
		q.ID = id
		used[id] = true
		out = append(out, q)
	}
	return out
}

func deterministicQuestionID(q ClarificationQuestion) string {
	if len(q.RelatedItemIndexes) > 0 {
		return fmt.Sprintf("q-item%d-%s", q.RelatedItemIndexes[0], q.Kind)
	}
	return "q-general-" + string(q.Kind)
}

// ensureTierChoice raises a selection question when more than one price row
// matches the item's SKU at different prices. The cheapest tier must never be
// picked silently, even when the engine already filled in a unit price.
func ensureTierChoice(qs []ClarificationQuestion, items []DraftItem, itemIdx int, rows []catalog.PriceRow) []ClarificationQuestion {
	if len(rows) < 2 || !tierPricesDiffer(rows) {
		return qs
	}
	it := &items[itemIdx]
	// Already resolved by an earlier answer; do not reopen.
	if it.UnitPrice != nil && !it.IsUncertain("price") && it.Confidence >= resolvedConfidence {
		return qs
	}
	it.markUncertain("price")
	if hasQuestionFor(qs, itemIdx, KindSelection) || hasQuestionFor(qs, itemIdx, KindPrice) {
		return qs
	}
	options := make([]string, 0, len(rows))
	for _, r := range rows {
		options = append(options, FormatTierOption(r))
	}
	return append(qs, ClarificationQuestion{
		ID:                 fmt.Sprintf("q-item%d-price", itemIdx),
		Kind:               KindSelection,
		Question:           fmt.Sprintf("Which price tier should apply to %s (%s)?", displayName(*it), it.SKU),
		Reason:             "more than one quantity break matches this SKU",
		RelatedItemIndexes: []int{itemIdx},
		SuggestedOptions:   options,
	})
}

// ensureQuestionCoverage upholds the invariant that a price-bearing uncertain
// field has at least one open question referencing the item. Missing
// questions are synthesized rather than dropping the uncertainty silently.
func ensureQuestionCoverage(d DraftOrder, qs []ClarificationQuestion) []ClarificationQuestion {
	for i, it := range d.Items {
		for _, field := range []string{"sku", "price"} {
			if !it.IsUncertain(field) || !priceBearing(field) {
				continue
			}
			if hasQuestionReferencing(qs, i) {
				continue
			}
			kind := KindPrice
			question := fmt.Sprintf("What unit price should apply to %s?", displayName(it))
			if field == "sku" {
				kind = KindSKU
				question = fmt.Sprintf("Which SKU should be used for %s?", displayName(it))
			}
			qs = append(qs, ClarificationQuestion{
				ID:                 fmt.Sprintf("q-item%d-%s", i, field),
				Kind:               kind,
				Question:           question,
				Reason:             fmt.Sprintf("the %s for this line is not trustworthy yet", field),
				RelatedItemIndexes: []int{i},
			})
		}
	}
	return qs
}

func ensureSupplierQuestion(d DraftOrder, qs []ClarificationQuestion, snap catalog.Snapshot) []ClarificationQuestion {
	if d.SupplierName != "" {
		return qs
	}
	for _, q := range qs {
		if len(q.RelatedItemIndexes) == 0 && strings.Contains(strings.ToLower(q.Question), "supplier") {
			return qs
		}
	}
	options := make([]string, 0, len(snap.Suppliers))
	for _, s := range snap.Suppliers {
		options = append(options, s.Name)
	}
	return append(qs, ClarificationQuestion{
		ID:               "q-supplier",
		Kind:             KindSelection,
		Question:         "Which supplier should this order go to?",
		Reason:           "no supplier could be resolved from the request",
		SuggestedOptions: options,
	})
}

func hasQuestionFor(qs []ClarificationQuestion, itemIdx int, kind QuestionKind) bool {
	for _, q := range qs {
		if q.Kind != kind {
			continue
		}
		for _, idx := range q.RelatedItemIndexes {
			if idx == itemIdx {
				return true
			}
		}
	}
	return false
}

func hasQuestionReferencing(qs []ClarificationQuestion, itemIdx int) bool {
	for _, q := range qs {
		for _, idx := range q.RelatedItemIndexes {
			if idx == itemIdx {
				return true
			}
		}
	}
	return false
}

func tierPricesDiffer(rows []catalog.PriceRow) bool {
	for _, r := range rows[1:] {
		if r.UnitPrice != rows[0].UnitPrice {
			return true
		}
	}
	return false
}

// FormatTierOption renders a price row as a selectable option string.
// MatchTierOption parses the same shape back, so the two must stay in sync.
func FormatTierOption(r catalog.PriceRow) string {
	return fmt.Sprintf("%s %s @ %.2f %s", r.UnitType, tierRange(r), r.UnitPrice, r.Currency)
}

func tierRange(r catalog.PriceRow) string {
	switch {
	case r.MinQty != nil && r.MaxQty != nil:
		return fmt.Sprintf("(%d-%d)", *r.MinQty, *r.MaxQty)
	case r.MinQty != nil:
		return fmt.Sprintf("(%d+)", *r.MinQty)
	case r.MaxQty != nil:
		return fmt.Sprintf("(up to %d)", *r.MaxQty)
	default:
		return "(any qty)"
	}
}

func displayName(it DraftItem) string {
	if it.ProductName != "" {
		return it.ProductName
	}
	if it.SKU != "" {
		return it.SKU
	}
	return "this line"
}
