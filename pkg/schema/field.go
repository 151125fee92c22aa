package schema

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ohler55/ojg/jp"
)

// Unknown controls what happens to object keys that have no Field.
type Unknown string

// Unknown key policies.
const (
	UnknownAllow  Unknown = "allow"  // keep them (default)
	UnknownStrip  Unknown = "strip"  // drop them from the output
	UnknownForbid Unknown = "forbid" // reject the value
)

// Field defines validation rules for a single value.
// It supports type checking and coercion, defaults, string/number
// constraints, array validation, enum values, and nested objects.
type Field struct {
	// Type specifies the expected JSON type: string, number, integer, boolean, array, object.
	// Strings are coerced to number, integer and boolean; a single value is
	// wrapped for array.
	Type string `json:"type,omitempty" yaml:"type,omitempty"`

	// Required indicates the field must be present
	Required bool `json:"required,omitempty" yaml:"required,omitempty"`

	// Nullable allows null values even when type is specified
	Nullable bool `json:"nullable,omitempty" yaml:"nullable,omitempty"`

	// Default is used when the field is absent
	Default any `json:"default,omitempty" yaml:"default,omitempty"`

	// String validations
	MinLength *int   `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength *int   `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Pattern   string `json:"pattern,omitempty" yaml:"pattern,omitempty"` // Regex pattern
	Format    string `json:"format,omitempty" yaml:"format,omitempty"`   // email, uuid, date, date-time, uri, ipv4, ipv6, hostname, jwt

	// Number validations (applies to number and integer types)
	Min          *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max          *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	ExclusiveMin *float64 `json:"exclusiveMin,omitempty" yaml:"exclusiveMin,omitempty"`
	ExclusiveMax *float64 `json:"exclusiveMax,omitempty" yaml:"exclusiveMax,omitempty"`

	// Array validations
	MinItems    *int   `json:"minItems,omitempty" yaml:"minItems,omitempty"`
	MaxItems    *int   `json:"maxItems,omitempty" yaml:"maxItems,omitempty"`
	UniqueItems bool   `json:"uniqueItems,omitempty" yaml:"uniqueItems,omitempty"`
	Items       *Field `json:"items,omitempty" yaml:"items,omitempty"`

	// Enum validation - value must be one of these
	Enum []any `json:"enum,omitempty" yaml:"enum,omitempty"`

	// Nested object validation
	Properties map[string]*Field `json:"properties,omitempty" yaml:"properties,omitempty"`
	Unknown    Unknown           `json:"unknown,omitempty" yaml:"unknown,omitempty"`

	// Custom error message (overrides default)
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// Ptr returns a pointer to v, for the optional Field constraints.
func Ptr[T any](v T) *T {
	return &v
}

// walker validates a value in place and collects failures.
type walker struct {
	prog *program
	errs *Error
}

func (w *walker) fail(p jp.Expr, f *Field, code, format string, args ...any) {
	d := detail(p, code, format, args...)
	if f != nil && f.Message != "" {
		d.Message = f.Message
	}
	w.errs.add(d)
}

// object applies fields to m, which is modified in place.
func (w *walker) object(p jp.Expr, fields map[string]*Field, unknown Unknown, m map[string]any) {
	for _, name := range sortedKeys(fields) {
		f := fields[name]
		if f == nil {
			continue
		}
		fp := child(p, name)
		v, ok := m[name]
		if !ok {
			switch {
			case f.Default != nil:
				m[name] = jsonValue(f.Default)
			case f.Required:
				w.fail(fp, f, CodeRequired, "is required")
			}
			continue
		}
		m[name] = w.value(fp, f, v)
	}

	if unknown == "" || unknown == UnknownAllow {
		return
	}
	for _, key := range sortedKeys(m) {
		if _, known := fields[key]; known {
			continue
		}
		if unknown == UnknownStrip {
			delete(m, key)
			continue
		}
		w.errs.add(detail(child(p, key), CodeUnknownField, "is not allowed"))
	}
}

// value validates a present value and returns its coerced form.
func (w *walker) value(p jp.Expr, f *Field, v any) any {
	if v == nil {
		switch {
		case f.Nullable:
		case f.Required:
			w.fail(p, f, CodeRequired, "is required")
		case f.Type != "":
			w.fail(p, f, CodeType, "%s", typeMessage(f.Type))
		}
		return nil
	}

	v, ok := w.coerce(p, f, v)
	if !ok {
		return v
	}

	switch t := v.(type) {
	case string:
		w.checkString(p, f, t)
	case float64:
		w.checkNumber(p, f, t)
	case []any:
		w.checkArray(p, f, t)
	case map[string]any:
		if f.Properties != nil || f.Unknown != "" {
			w.object(p, f.Properties, f.Unknown, t)
		}
	}

	if len(f.Enum) > 0 {
		w.checkEnum(p, f, v)
	}
	return v
}

func typeMessage(typ string) string {
	switch typ {
	case TypeInteger:
		return "must be an integer"
	case TypeArray:
		return "must be an array"
	case TypeObject:
		return "must be of type object"
	default:
		return "must be a " + typ
	}
}

// coerce converts v to f.Type. The second result is false when v cannot be
// read as that type.
func (w *walker) coerce(p jp.Expr, f *Field, v any) (any, bool) {
	switch f.Type {
	case TypeString:
		if _, ok := v.(string); ok {
			return v, true
		}
	case TypeNumber:
		if n, ok := parseNumber(v); ok {
			return n, true
		}
	case TypeInteger:
		n, ok := parseNumber(v)
		if !ok {
			w.fail(p, f, CodeType, "%s", typeMessage(TypeNumber))
			return v, false
		}
		if isWhole(n) {
			return n, true
		}
	case TypeBoolean:
		if b, ok := parseBool(v); ok {
			return b, true
		}
	case TypeArray:
		if _, ok := v.([]any); ok {
			return v, true
		}
		return []any{v}, true
	case TypeObject:
		if _, ok := v.(map[string]any); ok {
			return v, true
		}
	default:
		if n, ok := toFloat64(v); ok {
			return n, true
		}
		return v, true
	}
	w.fail(p, f, CodeType, "%s", typeMessage(f.Type))
	return v, false
}

func (w *walker) checkString(p jp.Expr, f *Field, s string) {
	n := utf8.RuneCountInString(s)
	if f.MinLength != nil && n < *f.MinLength {
		w.fail(p, f, CodeMinLength, "length must be at least %d characters long", *f.MinLength)
	}
	if f.MaxLength != nil && n > *f.MaxLength {
		w.fail(p, f, CodeMaxLength, "length must be less than or equal to %d characters long", *f.MaxLength)
	}
	if f.Pattern != "" {
		if re := w.prog.pattern(f.Pattern); re != nil && !re.MatchString(s) {
			w.fail(p, f, CodePattern, "with value %q fails to match the required pattern: /%s/", s, f.Pattern)
		}
	}
	if f.Format != "" && !ValidateFormat(f.Format, s) {
		w.fail(p, f, CodeFormat, "must be a valid %s", f.Format)
	}
}

func (w *walker) checkNumber(p jp.Expr, f *Field, n float64) {
	if f.Min != nil && n < *f.Min {
		w.fail(p, f, CodeMin, "must be greater than or equal to %s", formatNumber(*f.Min))
	}
	if f.Max != nil && n > *f.Max {
		w.fail(p, f, CodeMax, "must be less than or equal to %s", formatNumber(*f.Max))
	}
	if f.ExclusiveMin != nil && n <= *f.ExclusiveMin {
		if *f.ExclusiveMin == 0 {
			w.fail(p, f, CodeExclusiveMin, "must be a positive number")
		} else {
			w.fail(p, f, CodeExclusiveMin, "must be greater than %s", formatNumber(*f.ExclusiveMin))
		}
	}
	if f.ExclusiveMax != nil && n >= *f.ExclusiveMax {
		if *f.ExclusiveMax == 0 {
			w.fail(p, f, CodeExclusiveMax, "must be a negative number")
		} else {
			w.fail(p, f, CodeExclusiveMax, "must be less than %s", formatNumber(*f.ExclusiveMax))
		}
	}
}

func (w *walker) checkArray(p jp.Expr, f *Field, items []any) {
	if f.MinItems != nil && len(items) < *f.MinItems {
		w.fail(p, f, CodeMinItems, "must contain at least %d items", *f.MinItems)
	}
	if f.MaxItems != nil && len(items) > *f.MaxItems {
		w.fail(p, f, CodeMaxItems, "must contain less than or equal to %d items", *f.MaxItems)
	}

	if f.Items != nil {
		for i, item := range items {
			items[i] = w.value(index(p, i), f.Items, item)
		}
	}

	if f.UniqueItems && len(items) > 1 {
		seen := make(map[string]bool, len(items))
		for i, item := range items {
			key, _ := json.Marshal(item)
			if seen[string(key)] {
				w.fail(index(p, i), f, CodeUniqueItems, "contains a duplicate value")
				break
			}
			seen[string(key)] = true
		}
	}
}

func (w *walker) checkEnum(p jp.Expr, f *Field, v any) {
	for _, allowed := range f.Enum {
		if valuesEqual(v, jsonValue(allowed)) {
			return
		}
	}
	names := make([]string, len(f.Enum))
	for i, allowed := range f.Enum {
		names[i] = fmt.Sprint(allowed)
	}
	w.fail(p, f, CodeEnum, "must be one of [%s]", strings.Join(names, ", "))
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// compileField checks a field tree and caches its patterns.
func (prog *program) compileField(name string, f *Field) error {
	if f == nil {
		return nil
	}
	switch f.Type {
	case "", TypeString, TypeNumber, TypeInteger, TypeBoolean, TypeArray, TypeObject:
	default:
		return fmt.Errorf("field %q: unknown type %q", name, f.Type)
	}
	if err := checkUnknown(f.Unknown); err != nil {
		return fmt.Errorf("field %q: %w", name, err)
	}
	if f.Pattern != "" {
		if _, ok := prog.patterns[f.Pattern]; !ok {
			re, err := regexp.Compile(f.Pattern)
			if err != nil {
				return fmt.Errorf("field %q: invalid pattern: %w", name, err)
			}
			prog.patterns[f.Pattern] = re
		}
	}
	if err := prog.compileField(name+"[]", f.Items); err != nil {
		return err
	}
	for _, key := range sortedKeys(f.Properties) {
		if err := prog.compileField(name+"."+key, f.Properties[key]); err != nil {
			return err
		}
	}
	return nil
}

func checkUnknown(u Unknown) error {
	switch u {
	case "", UnknownAllow, UnknownStrip, UnknownForbid:
		return nil
	}
	return fmt.Errorf("unknown key policy %q (want allow, strip or forbid)", u)
}
