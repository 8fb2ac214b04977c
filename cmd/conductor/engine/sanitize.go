package engine

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Redacted replaces values under credential-looking keys
const Redacted = "[REDACTED]"

var sensitiveKey = regexp.MustCompile(`(?i)password|secret|token|key|credential`)

// SanitizeParams returns a copy safe for logging: values under
// credential-looking keys are redacted, non-serializable values are
// replaced with their type name. Nested maps and slices are walked.
func SanitizeParams(params map[string]interface{}) map[string]interface{} {
	if params == nil {
		return nil
	}
	out := make(map[string]interface{}, len(params))
	for k, v := range params {
		if sensitiveKey.MatchString(k) {
			out[k] = Redacted
			continue
		}
		out[k] = sanitizeValue(v)
	}
	return out
}

func sanitizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return SanitizeParams(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = sanitizeValue(item)
		}
		return out
	default:
		if _, err := json.Marshal(v); err != nil {
			return fmt.Sprintf("%T", v)
		}
		return v
	}
}

// InputSummary renders a concise one-line view of node inputs: at most
// three parameters, strings truncated to 30 characters, containers as
// type(N), the remainder as +K more.
func InputSummary(params map[string]interface{}) string {
	if len(params) == 0 {
		return "no inputs"
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	shown := keys
	if len(shown) > 3 {
		shown = shown[:3]
	}

	parts := make([]string, 0, len(shown)+1)
	for _, k := range shown {
		v := params[k]
		if sensitiveKey.MatchString(k) {
			v = Redacted
		}
		parts = append(parts, fmt.Sprintf("%s=%s", k, summarizeValue(v)))
	}
	if rest := len(keys) - len(shown); rest > 0 {
		parts = append(parts, fmt.Sprintf("+%d more", rest))
	}
	return strings.Join(parts, ", ")
}

func summarizeValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		if len(val) > 30 {
			return val[:30] + "..."
		}
		return val
	case map[string]interface{}:
		return fmt.Sprintf("map(%d)", len(val))
	case []interface{}:
		return fmt.Sprintf("list(%d)", len(val))
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%v", val)
	}
}
