// internal/rules/operators.go
package rules

import (
	"strings"

	"github.com/hirepilot/hirepilot/internal/types"
)

/*
 * Operator comparison logic.
 *
 * Implements the eight condition operators with kind-aware comparison rules.
 * Field values arrive pre-typed from lookupField; condition values arrive as
 * decoded JSON (float64/string/[]any) and are coerced here.
 *
 * Operators by kind:
 *   - numeric: > < = >= <= !=
 *   - enum/string: = != (case-insensitive equality), contains/not_contains
 *     (case-insensitive substring)
 *   - set: contains (every element of the condition list present in the
 *     candidate's set), not_contains (none present)
 *
 * Why function-based: eight operators via switch statements are cleaner than
 * eight interface implementations with minimal behavior variation.
 */

// compareNumeric applies a comparison operator to a numeric field value.
// Returns false when the condition value is not numeric.
func compareNumeric(op types.Operator, value float64, target any) bool {
	t, ok := toFloat64(target)
	if !ok {
		return false
	}
	switch op {
	case types.OpGt:
		return value > t
	case types.OpLt:
		return value < t
	case types.OpEq:
		return value == t
	case types.OpGte:
		return value >= t
	case types.OpLte:
		return value <= t
	case types.OpNeq:
		return value != t
	default:
		return false
	}
}

// compareString applies equality/substring operators to a string field value.
// All comparisons are case-insensitive.
func compareString(op types.Operator, value string, target any) bool {
	t, ok := toString(target)
	if !ok {
		return false
	}
	v := strings.ToLower(value)
	t = strings.ToLower(t)
	switch op {
	case types.OpEq:
		return v == t
	case types.OpNeq:
		return v != t
	case types.OpContains:
		return strings.Contains(v, t)
	case types.OpNotContains:
		return !strings.Contains(v, t)
	default:
		return false
	}
}

// compareSet applies membership operators to a string-set field value.
// contains with a list requires every listed element present in the set;
// not_contains requires none present. Membership is case-insensitive.
func compareSet(op types.Operator, values []string, target any) bool {
	wanted, ok := toStringList(target)
	if !ok || len(wanted) == 0 {
		return false
	}

	have := make(map[string]bool, len(values))
	for _, v := range values {
		have[strings.ToLower(v)] = true
	}

	switch op {
	case types.OpContains:
		for _, w := range wanted {
			if !have[strings.ToLower(w)] {
				return false
			}
		}
		return true
	case types.OpNotContains:
		for _, w := range wanted {
			if have[strings.ToLower(w)] {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// toFloat64 converts a condition value to float64 if it is a numeric type.
// Handles float64 from JSON unmarshaling plus int/int64 from Go callers.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// toString converts a condition value to string if it is string-typed.
func toString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case types.Availability:
		return string(s), true
	default:
		return "", false
	}
}

// toStringList normalizes a condition value to a list of strings.
// Accepts a single string, []string, or []any of strings (JSON decoding).
func toStringList(v any) ([]string, bool) {
	switch l := v.(type) {
	case string:
		return []string{l}, true
	case []string:
		return l, true
	case []any:
		out := make([]string, 0, len(l))
		for _, e := range l {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
