// Package cell coerces loosely typed table cells (as decoded from JSON) into
// the primitive types definition builders ask for. Every function reports
// success instead of failing; nil never coerces to a zero value.
package cell

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ListSeparators split multi-value cells authored as a single string.
const ListSeparators = ",;，"

func String(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return "", false
	}
}

// Int truncates fractional numbers toward zero. Strings must hold an integer literal.
func Int(v any) (int, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case int:
		return x, true
	case int64:
		return int(x), true
	case int32:
		return int(x), true
	case float64:
		return truncate(x)
	case float32:
		return truncate(float64(x))
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return int(n), true
		}
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		return truncate(f)
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func truncate(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

func Float(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func Float32(v any) (float32, bool) {
	if x, ok := v.(float32); ok {
		return x, true
	}
	f, ok := Float(v)
	if !ok {
		return 0, false
	}
	return float32(f), true
}

// Bool accepts 1/true/yes and 0/false/no in any case; numbers are true when non-zero.
func Bool(v any) (bool, bool) {
	switch x := v.(type) {
	case nil:
		return false, false
	case bool:
		return x, true
	case string:
		return parseBool(x)
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f != 0, true
		}
		return parseBool(x.String())
	}
	if f, ok := Float(v); ok {
		return f != 0, true
	}
	return false, false
}

func parseBool(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes":
		return true, true
	case "0", "false", "no":
		return false, true
	default:
		return false, false
	}
}

// List returns the elements of a native array, the parts of a delimiter-joined
// string, or a one-element list for any other scalar.
func List(v any) ([]any, bool) {
	switch x := v.(type) {
	case nil:
		return nil, false
	case []any:
		return x, true
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out, true
	case []int:
		out := make([]any, len(x))
		for i, n := range x {
			out[i] = n
		}
		return out, true
	case []float64:
		out := make([]any, len(x))
		for i, f := range x {
			out[i] = f
		}
		return out, true
	case string:
		parts := Split(x)
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = p
		}
		return out, true
	default:
		return []any{v}, true
	}
}

// Split breaks a multi-value string on any of ListSeparators, trimming parts and
// dropping empties.
func Split(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return strings.ContainsRune(ListSeparators, r)
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		out = append(out, f)
	}
	return out
}

func Strings(v any) []string {
	list, ok := List(v)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := String(item); ok {
			out = append(out, s)
		}
	}
	return out
}

func Ints(v any) []int {
	list, ok := List(v)
	if !ok {
		return nil
	}
	out := make([]int, 0, len(list))
	for _, item := range list {
		if n, ok := Int(item); ok {
			out = append(out, n)
		}
	}
	return out
}

func Floats(v any) []float64 {
	list, ok := List(v)
	if !ok {
		return nil
	}
	out := make([]float64, 0, len(list))
	for _, item := range list {
		if f, ok := Float(item); ok {
			out = append(out, f)
		}
	}
	return out
}

// IsEmpty reports whether a cell carries no authored value: nil, blank
// string, or an empty array.
func IsEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []any:
		return len(x) == 0
	case []string:
		return len(x) == 0
	default:
		return false
	}
}
