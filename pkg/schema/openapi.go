package schema

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

// OpenAPI validates values against an OpenAPI 3 schema object.
//
// Defaults are applied and string leaves are coerced to their declared
// types before the schema is visited, as for JSONSchema.
type OpenAPI struct {
	Schema *openapi3.Schema

	// Response selects response visiting: readOnly properties are allowed
	// and writeOnly properties rejected, instead of the reverse.
	Response bool

	once sync.Once
	err  error
}

// NewOpenAPI returns a request-side engine for s.
func NewOpenAPI(s *openapi3.Schema) *OpenAPI {
	return &OpenAPI{Schema: s}
}

// NewOpenAPIResponse returns a response-side engine for s.
func NewOpenAPIResponse(s *openapi3.Schema) *OpenAPI {
	return &OpenAPI{Schema: s, Response: true}
}

// Compile checks that the schema itself is valid.
func (o *OpenAPI) Compile() error {
	o.once.Do(func() {
		if o.Schema == nil {
			o.err = errors.New("no OpenAPI schema")
			return
		}
		o.err = o.Schema.Validate(context.Background())
	})
	return o.err
}

// Validate checks value and returns a coerced copy with defaults applied.
func (o *OpenAPI) Validate(_ context.Context, value any) (any, error) {
	if err := o.Compile(); err != nil {
		return nil, brokenSchema(err)
	}

	out := prepareOpenAPI(o.Schema, jsonValue(value), 0)

	opts := []openapi3.SchemaValidationOption{
		openapi3.MultiErrors(),
		openapi3.DefaultsSet(func() {}),
	}
	if o.Response {
		opts = append(opts, openapi3.VisitAsResponse())
	} else {
		opts = append(opts, openapi3.VisitAsRequest())
	}

	if err := o.Schema.VisitJSON(out, opts...); err != nil {
		result := &Error{}
		collectOpenAPIErrors(err, result)
		return nil, result
	}
	return out, nil
}

func typesOf(s *openapi3.Schema) []string {
	if s.Type == nil {
		return nil
	}
	return s.Type.Slice()
}

func refValue(ref *openapi3.SchemaRef) *openapi3.Schema {
	if ref == nil {
		return nil
	}
	return ref.Value
}

// prepareOpenAPI applies defaults and type coercion to v, which it may
// modify.
func prepareOpenAPI(s *openapi3.Schema, v any, depth int) any {
	if s == nil || depth > maxSchemaDepth {
		return v
	}
	for _, sub := range s.AllOf {
		v = prepareOpenAPI(refValue(sub), v, depth+1)
	}

	v = coerceTypes(typesOf(s), v)

	switch t := v.(type) {
	case map[string]any:
		for name, ref := range s.Properties {
			prop := refValue(ref)
			if prop == nil {
				continue
			}
			if cur, ok := t[name]; ok {
				t[name] = prepareOpenAPI(prop, cur, depth+1)
				continue
			}
			if prop.Default != nil {
				t[name] = jsonValue(prop.Default)
			}
		}
	case []any:
		items := refValue(s.Items)
		for i, item := range t {
			t[i] = prepareOpenAPI(items, item, depth+1)
		}
	}
	return v
}

// collectOpenAPIErrors converts kin-openapi errors to Details.
func collectOpenAPIErrors(err error, result *Error) {
	var multi openapi3.MultiError
	if errors.As(err, &multi) {
		for _, e := range multi {
			collectOpenAPIErrors(e, result)
		}
		return
	}

	var schemaErr *openapi3.SchemaError
	if errors.As(err, &schemaErr) {
		p := fromPointer(schemaErr.JSONPointer())
		code := schemaErr.SchemaField
		if code == "" {
			code = CodeSchema
		}
		reason := strings.TrimPrefix(schemaErr.Reason, "value ")
		result.add(detail(p, code, "%s", reason))
		return
	}

	result.add(detail(root(), CodeSchema, "%s", err.Error()))
}
