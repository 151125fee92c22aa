package schema

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// maxSchemaDepth bounds how far defaults and coercion follow $ref chains
// that do not descend into the value.
const maxSchemaDepth = 64

// JSONSchema validates values against a JSON Schema document (draft 2020-12
// unless the document declares another $schema).
//
// Before validation, absent properties that declare a "default" are filled
// in and string leaves are converted to the number, integer or boolean type
// the schema declares for them, so query strings and headers can be checked
// against typed schemas.
type JSONSchema struct {
	// Document is the inline schema: a decoded JSON value or raw JSON bytes.
	Document any

	// File is the path of a schema file, used when Document is nil.
	File string

	once     sync.Once
	compiled *jsonschema.Schema
	err      error
}

// NewJSONSchema returns an engine for an inline schema document.
func NewJSONSchema(document any) *JSONSchema {
	return &JSONSchema{Document: document}
}

// JSONSchemaFile returns an engine for the schema stored at path.
func JSONSchemaFile(path string) *JSONSchema {
	return &JSONSchema{File: path}
}

// Compile loads and compiles the schema.
func (s *JSONSchema) Compile() error {
	s.once.Do(func() {
		s.compiled, s.err = s.compile()
	})
	return s.err
}

func (s *JSONSchema) compile() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.ExtractAnnotations = true

	var data []byte
	url := "schema.json"
	switch doc := s.Document.(type) {
	case nil:
		if s.File == "" {
			return nil, errors.New("no schema document or file")
		}
		raw, err := os.ReadFile(s.File)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema file: %w", err)
		}
		data = raw
		if abs, err := filepath.Abs(s.File); err == nil {
			url = "file://" + filepath.ToSlash(abs)
		}
	case []byte:
		data = doc
	case json.RawMessage:
		data = doc
	case string:
		data = []byte(doc)
	default:
		raw, err := json.Marshal(jsonValue(doc))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal schema: %w", err)
		}
		data = raw
	}

	if err := compiler.AddResource(url, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	return compiler.Compile(url)
}

// Validate checks value and returns a coerced copy with defaults applied.
func (s *JSONSchema) Validate(_ context.Context, value any) (any, error) {
	if err := s.Compile(); err != nil {
		return nil, brokenSchema(err)
	}

	out := prepare(s.compiled, jsonValue(value), 0)
	if err := s.compiled.Validate(out); err != nil {
		var verr *jsonschema.ValidationError
		if !errors.As(err, &verr) {
			return nil, brokenSchema(err)
		}
		result := &Error{}
		collectSchemaErrors(verr, result)
		if len(result.Details) == 0 {
			result.add(detail(root(), CodeSchema, "%s", verr.Message))
		}
		return nil, result
	}
	return out, nil
}

// prepare applies defaults and type coercion to v, which it may modify.
func prepare(s *jsonschema.Schema, v any, depth int) any {
	if s == nil || depth > maxSchemaDepth {
		return v
	}
	if s.Ref != nil {
		v = prepare(s.Ref, v, depth+1)
	}
	for _, sub := range s.AllOf {
		v = prepare(sub, v, depth+1)
	}

	v = coerceTypes(s.Types, v)

	switch t := v.(type) {
	case map[string]any:
		for name, prop := range s.Properties {
			if cur, ok := t[name]; ok {
				t[name] = prepare(prop, cur, depth+1)
				continue
			}
			if d := schemaDefault(prop); d != nil {
				t[name] = jsonValue(d)
			}
		}
	case []any:
		items := itemsSchema(s)
		for i, item := range t {
			if i < len(s.PrefixItems) {
				t[i] = prepare(s.PrefixItems[i], item, depth+1)
				continue
			}
			t[i] = prepare(items, item, depth+1)
		}
	}
	return v
}

func schemaDefault(s *jsonschema.Schema) any {
	for i := 0; s != nil && i < maxSchemaDepth; i++ {
		if s.Default != nil {
			return s.Default
		}
		s = s.Ref
	}
	return nil
}

func itemsSchema(s *jsonschema.Schema) *jsonschema.Schema {
	if s.Items2020 != nil {
		return s.Items2020
	}
	if items, ok := s.Items.(*jsonschema.Schema); ok {
		return items
	}
	return nil
}

// collectSchemaErrors flattens the leaf causes of a validation error.
func collectSchemaErrors(err *jsonschema.ValidationError, result *Error) {
	if len(err.Causes) == 0 {
		p := fromPointer(parsePointer(err.InstanceLocation))
		result.add(detail(p, CodeSchema, "%s", err.Message))
		return
	}
	for _, cause := range err.Causes {
		collectSchemaErrors(cause, result)
	}
}
