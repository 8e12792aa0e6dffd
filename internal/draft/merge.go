package draft

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"orderdesk/internal/catalog"
)

// UnknownQuestionError reports answer keys that reference no open question.
// It is rejected before any state is touched.
type UnknownQuestionError struct {
	IDs []string
}

func (e *UnknownQuestionError) Error() string {
	return fmt.Sprintf("draft: answers reference unknown question ids: %s", strings.Join(e.IDs, ", "))
}

// RejectedAnswerError reports answers whose values cannot satisfy the
// question they target, keyed by question id. The whole batch is rejected
// and no draft state changes; the questions stay open.
type RejectedAnswerError struct {
	Reasons map[string]string
}

func (e *RejectedAnswerError) Error() string {
	ids := make([]string, 0, len(e.Reasons))
	for id := range e.Reasons {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, id+": "+e.Reasons[id])
	}
	return "draft: answers rejected: " + strings.Join(parts, "; ")
}

// Merge folds user answers into a prior draft round. It preserves everything
// the answers do not touch, applies each answer to every item the question
// references, removes answered questions from the round (even out-of-band
// answers arrive through the same map), and keeps the uncertainty/question
// coupling intact. Answers that cannot satisfy their question reject the
// whole batch with a RejectedAnswerError and leave the round untouched.
// The whole step is deterministic: merging the same inputs twice yields the
// same draft.
func Merge(prior DraftOrder, priorQuestions []ClarificationQuestion, answers map[string]AnswerValue, snap catalog.Snapshot) (DraftOrder, []ClarificationQuestion, error) {
	byID := make(map[string]ClarificationQuestion, len(priorQuestions))
	for _, q := range priorQuestions {
		byID[q.ID] = q
	}
	var unknown []string
	for id := range answers {
		if _, ok := byID[id]; !ok {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return DraftOrder{}, nil, &UnknownQuestionError{IDs: unknown}
	}

	d := prior.Clone()
	d.Status = StatusDraft

	// Apply in prior-question order so the result does not depend on map
	// iteration. A value that cannot satisfy its question rejects the whole
	// batch: consuming it anyway would drop the question while the field it
	// covers stays uncertain, dead-ending the refinement loop.
	var rejected map[string]string
	for _, q := range priorQuestions {
		value, answered := answers[q.ID]
		if !answered {
			continue
		}
		if err := applyAnswer(&d, q, value, snap); err != nil {
			if rejected == nil {
				rejected = make(map[string]string)
			}
			rejected[q.ID] = err.Error()
		}
	}
	if len(rejected) > 0 {
		return DraftOrder{}, nil, &RejectedAnswerError{Reasons: rejected}
	}

	for i := range d.Items {
		d.Items[i].recomputeLineTotal()
	}

	remaining := make([]ClarificationQuestion, 0, len(priorQuestions))
	for _, q := range cloneQuestions(priorQuestions) {
		if _, answered := answers[q.ID]; answered {
			continue
		}
		if resolvedOutOfBand(d, q) {
			continue
		}
		remaining = append(remaining, q)
	}

	remaining = ensureQuestionCoverage(d, remaining)

	// Mandatory post-filter: an answered id must never reappear, no matter
	// what the steps above produced.
	filtered := remaining[:0]
	for _, q := range remaining {
		if _, answered := answers[q.ID]; answered {
			continue
		}
		filtered = append(filtered, q)
	}
	return d, filtered, nil
}

// applyAnswer coerces the value per the question's kind and writes it to
// every item the question references. Confidence only ever goes up. A value
// that cannot be coerced returns an error; it is never swallowed into notes.
func applyAnswer(d *DraftOrder, q ClarificationQuestion, value AnswerValue, snap catalog.Snapshot) error {
	if len(q.RelatedItemIndexes) == 0 {
		return applyOrderLevelAnswer(d, q, value)
	}

	supplier, supplierKnown := snap.SupplierByName(d.SupplierName)

	for _, idx := range q.RelatedItemIndexes {
		if idx < 0 || idx >= len(d.Items) {
			continue
		}
		it := &d.Items[idx]
		switch q.Kind {
		case KindSKU:
			sku := strings.TrimSpace(value.AsText())
			if sku == "" {
				return fmt.Errorf("a SKU is required")
			}
			it.SKU = sku
			if supplierKnown {
				if rows := snap.RowsForSKU(supplier.ID, sku); len(rows) > 0 {
					it.ProductName = rows[0].ProductName
					it.UnitType = rows[0].UnitType
				}
			}
			it.clearUncertain("sku")
			it.raiseConfidence(resolvedConfidence)

		case KindPrice:
			n, ok := value.AsNumber()
			if !ok || n <= 0 {
				return fmt.Errorf("a positive unit price is required, got %q", value.AsText())
			}
			price := Round2(n)
			it.UnitPrice = &price
			it.PriceSource = "clarification answer"
			it.clearUncertain("price", "unit_price", "unitprice")
			it.raiseConfidence(resolvedConfidence)

		case KindQuantity:
			n, ok := value.AsNumber()
			if !ok || n <= 0 {
				return fmt.Errorf("a positive quantity is required, got %q", value.AsText())
			}
			if n != math.Trunc(n) {
				return fmt.Errorf("a whole-number quantity is required, got %q", value.AsText())
			}
			it.Quantity = int(n)
			it.clearUncertain("quantity")
			it.raiseConfidence(resolvedConfidence)

		case KindSelection:
			if err := applySelection(it, value, supplierKnown, supplier, snap); err != nil {
				return err
			}

		case KindFreeText:
			text := strings.TrimSpace(value.AsText())
			if text == "" {
				return fmt.Errorf("an empty answer cannot be recorded")
			}
			if it.Notes == "" {
				it.Notes = text
			} else {
				it.Notes = it.Notes + "; " + text
			}
		}
	}
	return nil
}

// applySelection resolves a tier or price choice. A textual answer is
// matched against the item's catalog tiers first; a numeric answer is taken
// as the chosen unit price. Anything else fails the answer.
func applySelection(it *DraftItem, value AnswerValue, supplierKnown bool, supplier catalog.Supplier, snap catalog.Snapshot) error {
	if supplierKnown && it.SKU != "" {
		if row, ok := MatchTierOption(value.AsText(), snap.RowsForSKU(supplier.ID, it.SKU)); ok {
			price := Round2(row.UnitPrice)
			it.UnitPrice = &price
			it.UnitType = row.UnitType
			it.Currency = row.Currency
			it.PriceSource = "price list row " + row.ID
			it.clearUncertain("price", "unit_price", "unitprice")
			it.raiseConfidence(resolvedConfidence)
			return nil
		}
	}
	if n, ok := value.AsNumber(); ok && n > 0 {
		price := Round2(n)
		it.UnitPrice = &price
		it.PriceSource = "clarification answer"
		it.clearUncertain("price", "unit_price", "unitprice")
		it.raiseConfidence(resolvedConfidence)
		return nil
	}
	return fmt.Errorf("%q matches none of the offered options for %s; pick a listed tier or give a unit price", value.AsText(), displayName(*it))
}

// applyOrderLevelAnswer handles questions that reference no item: supplier
// resolution, delivery instructions, and general notes.
func applyOrderLevelAnswer(d *DraftOrder, q ClarificationQuestion, value AnswerValue) error {
	text := strings.TrimSpace(value.AsText())
	if text == "" {
		return fmt.Errorf("an empty answer cannot be recorded")
	}
	lower := strings.ToLower(q.Question)
	switch {
	case strings.Contains(lower, "supplier"):
		d.SupplierName = text
	case strings.Contains(lower, "delivery"):
		d.DeliveryInstructions = text
	default:
		if d.ExtraNotesForSupplier == "" {
			d.ExtraNotesForSupplier = text
		} else {
			d.ExtraNotesForSupplier = d.ExtraNotesForSupplier + "; " + text
		}
	}
	return nil
}

// MatchTierOption matches a textual answer against the option strings
// produced by FormatTierOption, falling back to a bare unit-type match.
func MatchTierOption(text string, rows []catalog.PriceRow) (catalog.PriceRow, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return catalog.PriceRow{}, false
	}
	for _, r := range rows {
		if strings.EqualFold(text, FormatTierOption(r)) {
			return r, true
		}
	}
	for _, r := range rows {
		if strings.EqualFold(text, r.UnitType) {
			return r, true
		}
	}
	return catalog.PriceRow{}, false
}

// resolvedOutOfBand reports whether an unanswered question became moot this
// round, e.g. a supplier was named or every referenced field got resolved by
// a side action. Free-text questions are never auto-dropped.
func resolvedOutOfBand(d DraftOrder, q ClarificationQuestion) bool {
	if len(q.RelatedItemIndexes) == 0 {
		if strings.Contains(strings.ToLower(q.Question), "supplier") {
			return d.SupplierName != ""
		}
		return false
	}
	for _, idx := range q.RelatedItemIndexes {
		if idx < 0 || idx >= len(d.Items) {
			continue
		}
		it := d.Items[idx]
		switch q.Kind {
		case KindSKU:
			if it.SKU == "" || it.IsUncertain("sku") {
				return false
			}
		case KindPrice, KindSelection:
			if it.UnitPrice == nil || it.IsUncertain("price") {
				return false
			}
		case KindQuantity:
			if it.Quantity <= 0 || it.IsUncertain("quantity") {
				return false
			}
		default:
			return false
		}
	}
	return true
}
