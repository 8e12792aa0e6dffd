package llmtool

import (
	"encoding/json"
	"fmt"
	"strings"

	llmclient "orderdesk/internal/llmClient"
)

// DecodeJSON decodes raw model output into v. Strict parse first; if the
// output is wrapped in prose or code fences, fall back to extracting the
// outermost {...} span; otherwise fail as unparsable. No further leniency:
// over-tolerant recovery would mask upstream contract violations.
func DecodeJSON(raw json.RawMessage, v any) error {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return llmclient.ErrEmptyResponse
	}
	if err := json.Unmarshal([]byte(trimmed), v); err == nil {
		return nil
	}
	span, ok := outermostObject(trimmed)
	if !ok {
		return fmt.Errorf("%w: no JSON object found", llmclient.ErrUnparsableResponse)
	}
	if err := json.Unmarshal([]byte(span), v); err != nil {
		return fmt.Errorf("%w: %v", llmclient.ErrUnparsableResponse, err)
	}
	return nil
}

// outermostObject returns the first balanced top-level {...} span in s,
// honoring JSON string literals and escapes.
func outermostObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
