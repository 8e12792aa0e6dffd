package draft

import (
	"encoding/json"
	"testing"
)

func TestAnswerValue_WireForms(t *testing.T) {
	var m map[string]AnswerValue
	payload := `{"q-1": "pallet", "q-2": 17.5, "q-3": true}`
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["q-1"].AsText() != "pallet" {
		t.Fatalf("q-1 = %+v", m["q-1"])
	}
	if n, ok := m["q-2"].AsNumber(); !ok || n != 17.5 {
		t.Fatalf("q-2 = %+v", m["q-2"])
	}
	if m["q-3"].AsText() != "true" {
		t.Fatalf("q-3 = %+v", m["q-3"])
	}
}

func TestAnswerValue_TextCoercesToNumber(t *testing.T) {
	if n, ok := TextAnswer(" 42 ").AsNumber(); !ok || n != 42 {
		t.Fatalf("got %v %v", n, ok)
	}
	if _, ok := TextAnswer("a pallet").AsNumber(); ok {
		t.Fatalf("prose should not coerce to a number")
	}
}

func TestAnswerValue_NullRejected(t *testing.T) {
	var a AnswerValue
	if err := a.UnmarshalJSON([]byte("null")); err == nil {
		t.Fatalf("null should be rejected")
	}
}
