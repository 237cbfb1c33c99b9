// Package config holds the value coercion shared by the configuration stores.
package config

import (
	"maps"
	"slices"
	"strconv"
)

// Values is a flat map of dot-notation keys to decoded values.
// TOML decodes integers as int64 and JSON as float64, so getters accept
// any numeric type.
type Values map[string]any

// String returns a string value, or "" if absent or not a string.
func (v Values) String(key string) string {
	s, _ := v[key].(string)
	return s
}

// Int returns an integer value. Numeric strings are accepted.
func (v Values) Int(key string) int {
	switch x := v[key].(type) {
	case int:
		return x
	case int64:
		return int(x)
	case float64:
		return int(x)
	case string:
		n, _ := strconv.Atoi(x)
		return n
	default:
		return 0
	}
}

// Float returns a floating point value. Integers are widened.
func (v Values) Float(key string) float64 {
	switch x := v[key].(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case string:
		f, _ := strconv.ParseFloat(x, 64)
		return f
	default:
		return 0
	}
}

// Bool returns a boolean value. "true"/"false" strings are accepted.
func (v Values) Bool(key string) bool {
	switch x := v[key].(type) {
	case bool:
		return x
	case string:
		b, _ := strconv.ParseBool(x)
		return b
	default:
		return false
	}
}

// StringSlice returns a string slice value.
// TOML arrays are parsed as []any; non-string items are dropped.
func (v Values) StringSlice(key string) []string {
	switch x := v[key].(type) {
	case []string:
		return x
	case []any:
		result := make([]string, 0, len(x))
		for _, item := range x {
			if str, ok := item.(string); ok {
				result = append(result, str)
			}
		}
		return result
	default:
		return nil
	}
}

// Keys returns all keys, sorted.
func (v Values) Keys() []string {
	return slices.Sorted(maps.Keys(v))
}

// Flatten converts nested maps to dot-notation keys.
// E.g., {"a": {"b": 1}} becomes {"a.b": 1}.
func Flatten(m map[string]any, prefix string) Values {
	result := make(Values)

	for key, value := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		if nested, ok := value.(map[string]any); ok {
			maps.Copy(result, Flatten(nested, fullKey))
		} else {
			result[fullKey] = value
		}
	}

	return result
}
