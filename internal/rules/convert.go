package rules

import (
	"math"
	"reflect"
	"strconv"
	"strings"
)

// isEmpty reports whether a value counts as empty for the required atoms:
// nil, empty string, zero number, or empty collection.
func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case bool:
		return false
	default:
		if n, ok := toFloat(value); ok {
			return n == 0
		}
		if items, ok := toSlice(value); ok {
			return len(items) == 0
		}
		rv := reflect.ValueOf(value)
		if rv.Kind() == reflect.Map {
			return rv.Len() == 0
		}
		return false
	}
}

// stringify renders a scalar for equality checks in conditional atoms.
func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return trimFloat(v)
	case float32:
		return trimFloat(float64(v))
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		if n, ok := toFloat(value); ok {
			return trimFloat(n)
		}
		return ""
	}
}

// toFloat coerces numbers and numeric strings to float64.
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
	case uint64:
		return float64(v), true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// toInt coerces integers, integral floats, and integer strings to int64.
func toInt(value any) (int64, bool) {
	n, ok := toFloat(value)
	if !ok {
		return 0, false
	}
	if n != math.Trunc(n) {
		return 0, false
	}
	return int64(n), true
}

// toSlice coerces any slice or array value to []any.
func toSlice(value any) ([]any, bool) {
	if value == nil {
		return nil, false
	}
	if items, ok := value.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

func isArray(value any) bool {
	_, ok := toSlice(value)
	return ok
}

// trimFloat formats a float without a trailing ".0" for whole numbers.
func trimFloat(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
