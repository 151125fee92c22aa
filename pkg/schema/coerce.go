package schema

import (
	"encoding/json"
	"maps"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// JSON type names.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeArray   = "array"
	TypeObject  = "object"
)

// jsonType returns the JSON type name for a value
func jsonType(value any) string {
	if value == nil {
		return "null"
	}

	switch value.(type) {
	case string:
		return TypeString
	case float64, float32, int, int32, int64, json.Number:
		return TypeNumber
	case bool:
		return TypeBoolean
	case []any:
		return TypeArray
	case map[string]any:
		return TypeObject
	}

	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.String:
		return TypeString
	case reflect.Float32, reflect.Float64, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return TypeNumber
	case reflect.Bool:
		return TypeBoolean
	case reflect.Slice, reflect.Array:
		return TypeArray
	case reflect.Map, reflect.Struct:
		return TypeObject
	default:
		return "unknown"
	}
}

// toFloat64 attempts to convert a numeric value to float64
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// parseNumber converts a number or a numeric string.
func parseNumber(v any) (float64, bool) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return toFloat64(v)
}

// parseBool converts a boolean or "true"/"false" in any case.
func parseBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

func isWhole(f float64) bool {
	return f == math.Trunc(f)
}

// coerceTypes converts string leaves to the first declared type they can be
// read as. Values that already match a declared type, and values no declared
// type can read, are returned unchanged.
func coerceTypes(types []string, v any) any {
	if len(types) == 0 {
		return v
	}
	actual := jsonType(v)
	for _, t := range types {
		if t == actual || (t == TypeInteger && actual == TypeNumber) {
			return v
		}
	}
	for _, t := range types {
		switch t {
		case TypeNumber:
			if f, ok := parseNumber(v); ok {
				return f
			}
		case TypeInteger:
			if f, ok := parseNumber(v); ok && isWhole(f) {
				return f
			}
		case TypeBoolean:
			if b, ok := parseBool(v); ok {
				return b
			}
		case TypeArray:
			if v != nil {
				return []any{v}
			}
		}
	}
	return v
}

// valuesEqual compares two values for equality (handles type coercion for numbers)
func valuesEqual(a, b any) bool {
	aNum, aIsNum := toFloat64(a)
	bNum, bIsNum := toFloat64(b)
	if aIsNum && bIsNum {
		return aNum == bNum
	}
	if as, ok := a.(string); ok {
		bs, ok := b.(string)
		return ok && as == bs
	}
	aJSON, _ := json.Marshal(a)
	bJSON, _ := json.Marshal(b)
	return string(aJSON) == string(bJSON)
}

// jsonValue converts a value decoded from YAML or built in Go (ints,
// map[string]string, ...) to the shapes encoding/json produces. The result
// never shares maps or slices with v.
func jsonValue(v any) any {
	switch t := v.(type) {
	case nil, string, bool, float64:
		return v
	case map[string]any, []any:
		return normalizeTree(t)
	}
	if n, ok := toFloat64(v); ok {
		return n
	}
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

// normalizeTree applies jsonValue to the leaves of a map or slice.
func normalizeTree(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = jsonValue(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = jsonValue(item)
		}
		return out
	}
	return jsonValue(v)
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
