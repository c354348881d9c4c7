package gate

import (
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"
)

// toFloat coerces a value to float64 the way comparison locks require:
// numbers convert directly, numeric strings parse, booleans count as 0/1.
func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// isNumber reports whether the value is a numeric type (strings and
// booleans are not numbers even though toFloat accepts them).
func isNumber(value any) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}

// valueEquals compares two values with cross-type numeric tolerance, so an
// int decoded from YAML equals the float decoded from JSON.
func valueEquals(a, b any) bool {
	if isNumber(a) && isNumber(b) {
		fa, _ := toFloat(a)
		fb, _ := toFloat(b)
		return fa == fb
	}
	return reflect.DeepEqual(a, b)
}

// containsValue implements the contains lock: substring for string/string,
// element membership for sequences, key membership for maps. Anything else
// fails.
func containsValue(value, expected any) bool {
	switch v := value.(type) {
	case string:
		s, ok := expected.(string)
		if !ok {
			return false
		}
		return strings.Contains(v, s)
	case []any:
		for _, item := range v {
			if valueEquals(item, expected) {
				return true
			}
		}
		return false
	case map[string]any:
		key, ok := expected.(string)
		if !ok {
			return false
		}
		_, present := v[key]
		return present
	default:
		return false
	}
}

// inList reports membership of value in an expected list.
// A non-list expected value fails rather than erroring.
func inList(value, expected any) bool {
	list, ok := expected.([]any)
	if !ok {
		return false
	}
	for _, item := range list {
		if valueEquals(value, item) {
			return true
		}
	}
	return false
}

// matchesTypeName checks a value against one of the fixed type name strings
// accepted by type_check locks.
func matchesTypeName(value any, name string) bool {
	switch strings.ToLower(name) {
	case "str", "string":
		_, ok := value.(string)
		return ok
	case "int", "integer":
		switch value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return true
		}
		return false
	case "float", "number":
		switch value.(type) {
		case float32, float64:
			return true
		}
		return false
	case "bool", "boolean":
		_, ok := value.(bool)
		return ok
	case "list", "array":
		_, ok := value.([]any)
		return ok
	case "dict", "map", "object":
		_, ok := value.(map[string]any)
		return ok
	default:
		return false
	}
}

// typeName reports the canonical type name of a value for failure messages.
func typeName(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float32, float64:
		return "float"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "integer"
	case []any:
		return "list"
	case map[string]any:
		return "dict"
	default:
		return reflect.TypeOf(value).String()
	}
}

// rangeBounds extracts the inclusive [min, max] pair of a range lock.
func rangeBounds(expected any) (float64, float64, bool) {
	pair, ok := expected.([]any)
	if !ok || len(pair) != 2 {
		return 0, 0, false
	}
	min, ok1 := toFloat(pair[0])
	max, ok2 := toFloat(pair[1])
	if !ok1 || !ok2 {
		return 0, 0, false
	}
	return min, max, true
}

// lengthOf measures strings (in runes), sequences, and maps.
func lengthOf(value any) (int, bool) {
	switch v := value.(type) {
	case string:
		return utf8.RuneCountInString(v), true
	case []any:
		return len(v), true
	case map[string]any:
		return len(v), true
	default:
		return 0, false
	}
}

// matchesLength checks a measured length against an exact count, a
// [min, max] pair, or a {min, max} map with either bound optional.
func matchesLength(length int, expected any) bool {
	switch e := expected.(type) {
	case int:
		return length == e
	case int64:
		return int64(length) == e
	case float64:
		return float64(length) == e
	case map[string]any:
		if min, ok := e["min"]; ok {
			bound, valid := toFloat(min)
			if !valid || float64(length) < bound {
				return false
			}
		}
		if max, ok := e["max"]; ok {
			bound, valid := toFloat(max)
			if !valid || float64(length) > bound {
				return false
			}
		}
		return true
	case []any:
		if len(e) != 2 {
			return false
		}
		min, ok1 := toFloat(e[0])
		max, ok2 := toFloat(e[1])
		return ok1 && ok2 && float64(length) >= min && float64(length) <= max
	default:
		return false
	}
}
