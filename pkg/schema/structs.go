package schema

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/ohler55/ojg/jp"
)

var (
	structValidatorOnce sync.Once
	structValidator     *validator.Validate
)

// validate returns the shared validator. Field names in errors are the
// json names.
func validate() *validator.Validate {
	structValidatorOnce.Do(func() {
		structValidator = validator.New(validator.WithRequiredStructEnabled())
		structValidator.RegisterTagNameFunc(jsonName)
	})
	return structValidator
}

func jsonName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return fld.Name
	}
	return name
}

// Struct validates a map by decoding it into a T and running the
// `validate` tags of T. Strings are converted to the kind of the field they
// land in, and fields tagged `default:"..."` are set when absent. The
// validated value is the decoded T.
//
//	type listQuery struct {
//	    Limit  int `json:"limit" default:"20" validate:"gte=1,lte=100"`
//	    Offset int `json:"offset" default:"0" validate:"gte=0"`
//	}
//	cfg := &validation.Config{Query: schema.NewStruct[listQuery]()}
type Struct[T any] struct {
	fields []structField
	err    error
}

// structField is the decode plan for one exported field, computed once.
type structField struct {
	index  int
	name   string
	typ    reflect.Type
	def    *string
	nested []structField
}

// NewStruct returns an engine for T, which must be a struct type.
func NewStruct[T any]() *Struct[T] {
	s := &Struct[T]{}
	typ := reflect.TypeFor[T]()
	if typ.Kind() != reflect.Struct {
		s.err = fmt.Errorf("%s is not a struct type", typ)
		return s
	}
	s.fields = planStruct(typ, 0)
	return s
}

// Compile reports whether T could be planned.
func (s *Struct[T]) Compile() error {
	return s.err
}

func planStruct(typ reflect.Type, depth int) []structField {
	var plan []structField
	for i := range typ.NumField() {
		fld := typ.Field(i)
		if !fld.IsExported() {
			continue
		}
		name := jsonName(fld)
		if name == "" {
			continue
		}
		sf := structField{index: i, name: name, typ: fld.Type}
		if d, ok := fld.Tag.Lookup("default"); ok {
			sf.def = &d
		}
		if fld.Type.Kind() == reflect.Struct && depth < maxSchemaDepth {
			sf.nested = planStruct(fld.Type, depth+1)
		}
		plan = append(plan, sf)
	}
	return plan
}

// Validate decodes value into a T and validates it.
func (s *Struct[T]) Validate(ctx context.Context, value any) (any, error) {
	var out T
	if s.err != nil {
		return out, brokenSchema(s.err)
	}

	m, ok := jsonValue(value).(map[string]any)
	if !ok {
		return out, &Error{Details: []Detail{detail(root(), CodeType, "%s", typeMessage(TypeObject))}}
	}

	result := &Error{}
	decodeStruct(reflect.ValueOf(&out).Elem(), s.fields, m, root(), result)
	if err := result.err(); err != nil {
		return out, err
	}

	if err := validate().StructCtx(ctx, &out); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return out, brokenSchema(err)
		}
		for _, fe := range verrs {
			result.add(structDetail(fe))
		}
		return out, result
	}
	return out, nil
}

func decodeStruct(dst reflect.Value, plan []structField, m map[string]any, p jp.Expr, result *Error) {
	for _, sf := range plan {
		fp := child(p, sf.name)
		field := dst.Field(sf.index)
		v, ok := m[sf.name]
		if !ok {
			if sf.nested != nil && sf.def == nil {
				decodeStruct(field, sf.nested, map[string]any{}, fp, result)
				continue
			}
			if sf.def != nil {
				if err := setString(field, *sf.def); err != nil {
					result.add(Detail{Path: fp.String(), Field: label(fp), Code: CodeSchema,
						Message: fmt.Sprintf("invalid default for %q: %v", label(fp), err)})
				}
			}
			continue
		}
		if nested, isMap := v.(map[string]any); isMap && sf.nested != nil {
			decodeStruct(field, sf.nested, nested, fp, result)
			continue
		}
		if err := setValue(field, v); err != nil {
			result.add(detail(fp, CodeType, "%s", kindMessage(sf.typ)))
		}
	}
}

// setValue stores a decoded JSON value into field.
func setValue(field reflect.Value, v any) error {
	if v == nil {
		field.SetZero()
		return nil
	}
	if s, ok := v.(string); ok && field.Kind() != reflect.String {
		return setString(field, s)
	}
	if field.Kind() == reflect.Slice {
		items, ok := v.([]any)
		if !ok {
			items = []any{v}
		}
		out := reflect.MakeSlice(field.Type(), len(items), len(items))
		for i, item := range items {
			if err := setValue(out.Index(i), item); err != nil {
				return err
			}
		}
		field.Set(out)
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, field.Addr().Interface())
}

// setString converts s to the kind of field.
func setString(field reflect.Value, s string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(s)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(strings.TrimSpace(s), 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Pointer:
		elem := reflect.New(field.Type().Elem())
		if err := setString(elem.Elem(), s); err != nil {
			return err
		}
		field.Set(elem)
	case reflect.Slice:
		return setValue(field, []any{s})
	default:
		return json.Unmarshal([]byte(s), field.Addr().Interface())
	}
	return nil
}

func kindMessage(typ reflect.Type) string {
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	switch typ.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return typeMessage(TypeInteger)
	case reflect.Float32, reflect.Float64:
		return typeMessage(TypeNumber)
	case reflect.Bool:
		return typeMessage(TypeBoolean)
	case reflect.String:
		return typeMessage(TypeString)
	case reflect.Slice, reflect.Array:
		return typeMessage(TypeArray)
	default:
		return typeMessage(TypeObject)
	}
}

// structDetail renders a validator error in the same style as Object.
func structDetail(fe validator.FieldError) Detail {
	// Namespace is "T.address.city"; the type name is dropped.
	parts := strings.Split(fe.Namespace(), ".")
	p := root()
	for _, part := range parts[1:] {
		name, rest, indexed := strings.Cut(part, "[")
		p = child(p, name)
		if indexed {
			if n, err := strconv.Atoi(strings.TrimSuffix(rest, "]")); err == nil {
				p = index(p, n)
			}
		}
	}

	param := fe.Param()
	switch fe.Tag() {
	case "required", "required_if", "required_unless", "required_with", "required_without":
		return detail(p, CodeRequired, "is required")
	case "min", "gte":
		if isLengthKind(fe.Kind()) {
			return detail(p, CodeMinLength, "length must be at least %s", param)
		}
		return detail(p, CodeMin, "must be greater than or equal to %s", param)
	case "max", "lte":
		if isLengthKind(fe.Kind()) {
			return detail(p, CodeMaxLength, "length must be less than or equal to %s", param)
		}
		return detail(p, CodeMax, "must be less than or equal to %s", param)
	case "gt":
		if param == "0" {
			return detail(p, CodeExclusiveMin, "must be a positive number")
		}
		return detail(p, CodeExclusiveMin, "must be greater than %s", param)
	case "lt":
		return detail(p, CodeExclusiveMax, "must be less than %s", param)
	case "oneof":
		return detail(p, CodeEnum, "must be one of [%s]", strings.Join(strings.Fields(param), ", "))
	case "email", "uuid", "uuid4", "url", "uri", "ip", "ipv4", "ipv6", "hostname", "jwt", "datetime":
		return detail(p, CodeFormat, "must be a valid %s", fe.Tag())
	}
	return detail(p, fe.Tag(), "failed on the %q rule", fe.Tag())
}

func isLengthKind(k reflect.Kind) bool {
	switch k {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return true
	}
	return false
}
