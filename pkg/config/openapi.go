package config

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"slices"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/getmockd/routeval/pkg/schema"
	"github.com/getmockd/routeval/pkg/validation"
)

// LoadSpec loads an OpenAPI spec from a file path
func LoadSpec(path string) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true

	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load spec from file %s: %w", path, err)
	}

	return doc, nil
}

// LoadSpecFromURL loads an OpenAPI spec from a URL
func LoadSpecFromURL(specURL string) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true

	parsedURL, err := url.Parse(specURL)
	if err != nil {
		return nil, fmt.Errorf("invalid spec URL: %w", err)
	}

	doc, err := loader.LoadFromURI(parsedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to load spec from URL %s: %w", specURL, err)
	}

	return doc, nil
}

// LoadSpecFromString loads an OpenAPI spec from a string
func LoadSpecFromString(spec string) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true

	doc, err := loader.LoadFromData([]byte(spec))
	if err != nil {
		return nil, fmt.Errorf("failed to load spec from string: %w", err)
	}

	return doc, nil
}

// RoutesFromOpenAPI derives a validation.Config for every operation of doc,
// keyed by ServeMux pattern ("GET /users/{id}"):
//
//   - path, query and header parameters become object schemas for params,
//     query and headers (header names lower-cased);
//   - the JSON request body schema validates the body;
//   - the JSON schema of the lowest 2xx response validates the response.
func RoutesFromOpenAPI(doc *openapi3.T) (map[string]*validation.Config, error) {
	if doc == nil {
		return nil, fmt.Errorf("no OpenAPI document")
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI spec: %w", err)
	}
	if doc.Paths == nil || doc.Paths.Len() == 0 {
		return nil, ErrNoRoutes
	}

	routes := make(map[string]*validation.Config)
	for _, path := range doc.Paths.InMatchingOrder() {
		item := doc.Paths.Value(path)
		muxPath, err := toMuxPath(path)
		if err != nil {
			return nil, err
		}
		for method, op := range item.Operations() {
			pattern := method + " " + muxPath
			cfg, err := operationConfig(item.Parameters, op)
			if err != nil {
				return nil, fmt.Errorf("%s %s: %w", method, path, err)
			}
			routes[pattern] = cfg
		}
	}
	return routes, nil
}

// toMuxPath converts an OpenAPI path template to a ServeMux path. Template
// variables must span a whole segment.
func toMuxPath(path string) (string, error) {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if !strings.ContainsAny(seg, "{}") {
			continue
		}
		if !strings.HasPrefix(seg, "{") || !strings.HasSuffix(seg, "}") || strings.Count(seg, "{") != 1 {
			return "", fmt.Errorf("path %s: parameter must span a whole segment", path)
		}
		segments[i] = "{" + wildcardName(seg[1:len(seg)-1]) + "}"
	}
	return strings.Join(segments, "/"), nil
}

// wildcardName maps a parameter name to a valid ServeMux wildcard name.
func wildcardName(name string) string {
	var sb strings.Builder
	for i, r := range name {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			sb.WriteRune(r)
		case r >= '0' && r <= '9' && i > 0:
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

func operationConfig(shared openapi3.Parameters, op *openapi3.Operation) (*validation.Config, error) {
	params := map[string]*openapi3.Schema{}
	byLocation := map[string]map[string]*openapi3.Parameter{
		openapi3.ParameterInPath:   {},
		openapi3.ParameterInQuery:  {},
		openapi3.ParameterInHeader: {},
	}
	// Operation parameters override path-level ones with the same name and location.
	for _, list := range []openapi3.Parameters{shared, op.Parameters} {
		for _, ref := range list {
			if ref == nil || ref.Value == nil {
				continue
			}
			p := ref.Value
			group, ok := byLocation[p.In]
			if !ok {
				continue
			}
			name := p.Name
			switch p.In {
			case openapi3.ParameterInPath:
				name = wildcardName(name)
			case openapi3.ParameterInHeader:
				name = strings.ToLower(name)
			}
			group[name] = p
		}
	}
	for in, group := range byLocation {
		if len(group) > 0 {
			params[in] = parameterSchema(group)
		}
	}

	cfg := &validation.Config{}
	if s, ok := params[openapi3.ParameterInPath]; ok {
		cfg.Params = schema.NewOpenAPI(s)
	}
	if s, ok := params[openapi3.ParameterInQuery]; ok {
		cfg.Query = schema.NewOpenAPI(s)
	}
	if s, ok := params[openapi3.ParameterInHeader]; ok {
		cfg.Headers = schema.NewOpenAPI(s)
	}

	if op.RequestBody != nil && op.RequestBody.Value != nil {
		if s := jsonSchema(op.RequestBody.Value.Content); s != nil {
			cfg.Body = schema.NewOpenAPI(s)
		}
	}
	if s := successSchema(op.Responses); s != nil {
		cfg.Response = schema.NewOpenAPIResponse(s)
	}

	for _, t := range cfg.Targets() {
		if c, ok := cfg.Schema(t).(*schema.OpenAPI); ok {
			if err := c.Compile(); err != nil {
				return nil, &targetError{target: t, err: err}
			}
		}
	}
	return cfg, nil
}

// parameterSchema builds an object schema whose properties are the
// parameters' schemas.
func parameterSchema(group map[string]*openapi3.Parameter) *openapi3.Schema {
	s := openapi3.NewObjectSchema()
	s.Properties = openapi3.Schemas{}
	for _, name := range sortedNames(group) {
		p := group[name]
		if p.Schema != nil {
			s.Properties[name] = p.Schema
		} else {
			s.Properties[name] = openapi3.NewStringSchema().NewRef()
		}
		if p.Required {
			s.Required = append(s.Required, name)
		}
	}
	return s
}

func sortedNames(group map[string]*openapi3.Parameter) []string {
	names := make([]string, 0, len(group))
	for name := range group {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// jsonSchema returns the schema of the first JSON media type in content.
func jsonSchema(content openapi3.Content) *openapi3.Schema {
	types := make([]string, 0, len(content))
	for mt := range content {
		types = append(types, mt)
	}
	slices.Sort(types)
	for _, mt := range types {
		media := content[mt]
		if media == nil || media.Schema == nil || media.Schema.Value == nil {
			continue
		}
		base, _, err := mime.ParseMediaType(mt)
		if err != nil {
			continue
		}
		if base == "application/json" || strings.HasSuffix(base, "+json") {
			return media.Schema.Value
		}
	}
	return nil
}

// successSchema returns the JSON schema of the lowest 2xx response.
func successSchema(responses *openapi3.Responses) *openapi3.Schema {
	if responses == nil {
		return nil
	}
	codes := make([]string, 0, responses.Len())
	for code := range responses.Map() {
		if strings.HasPrefix(code, "2") {
			codes = append(codes, code)
		}
	}
	slices.Sort(codes)
	for _, code := range codes {
		ref := responses.Value(code)
		if ref == nil || ref.Value == nil {
			continue
		}
		if s := jsonSchema(ref.Value.Content); s != nil {
			return s
		}
	}
	return nil
}
