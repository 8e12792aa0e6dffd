package draft

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// AnswerKind discriminates the AnswerValue sum type.
type AnswerKind string

const (
	AnswerText   AnswerKind = "text"
	AnswerNumber AnswerKind = "number"
	AnswerChoice AnswerKind = "choice"
)

// AnswerValue is a typed user answer keyed by question id. Using a closed
// set of cases keeps the merge engine's coerce-and-apply step total instead
// of runtime type-sniffing an untyped map.
type AnswerValue struct {
	Kind   AnswerKind
	Text   string
	Number float64
}

func TextAnswer(s string) AnswerValue {
	return AnswerValue{Kind: AnswerText, Text: strings.TrimSpace(s)}
}

func NumberAnswer(n float64) AnswerValue {
	return AnswerValue{Kind: AnswerNumber, Number: n}
}

func ChoiceAnswer(s string) AnswerValue {
	return AnswerValue{Kind: AnswerChoice, Text: strings.TrimSpace(s)}
}

// AsNumber coerces the answer to a number when possible.
func (a AnswerValue) AsNumber() (float64, bool) {
	switch a.Kind {
	case AnswerNumber:
		return a.Number, true
	case AnswerText, AnswerChoice:
		n, err := strconv.ParseFloat(strings.TrimSpace(a.Text), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// AsText returns the textual form of the answer.
func (a AnswerValue) AsText() string {
	switch a.Kind {
	case AnswerNumber:
		return strconv.FormatFloat(a.Number, 'f', -1, 64)
	default:
		return a.Text
	}
}

// UnmarshalJSON accepts the wire forms clients send: a bare JSON string,
// number, or bool. Bools collapse to their textual form.
func (a *AnswerValue) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return fmt.Errorf("draft: answer value is empty")
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = TextAnswer(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*a = NumberAnswer(n)
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*a = TextAnswer(strconv.FormatBool(b))
		return nil
	}
	return fmt.Errorf("draft: unsupported answer value %s", trimmed)
}

// MarshalJSON emits the same wire forms UnmarshalJSON accepts.
func (a AnswerValue) MarshalJSON() ([]byte, error) {
	if a.Kind == AnswerNumber {
		return json.Marshal(a.Number)
	}
	return json.Marshal(a.Text)
}
