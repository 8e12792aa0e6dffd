package draft

import "strings"

// ClassifyQuestion infers the semantic kind of a question from its text.
// The check order is fixed so the same text always classifies the same way;
// the result is assigned once at normalization time and carried on the
// question, never re-derived by consumers.
func ClassifyQuestion(text string) QuestionKind {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "sku") || strings.Contains(t, "product code"):
		return KindSKU
	case strings.Contains(t, "price") || strings.Contains(t, "cost"):
		return KindPrice
	case strings.Contains(t, "quantity") || strings.Contains(t, "how many"):
		return KindQuantity
	case strings.Contains(t, "which") || strings.Contains(t, "select") || strings.Contains(t, "choose"):
		return KindSelection
	default:
		return KindFreeText
	}
}
