package config

import (
	"fmt"
	"maps"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"github.com/getmockd/routeval/pkg/schema"
	"github.com/getmockd/routeval/pkg/validation"
)

// ValidationError represents a single route file problem.
type ValidationError struct {
	Path    string // e.g. routes[GET /users].query
	Message string
}

func (e ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationResult contains all problems found in a RouteFile.
type ValidationResult struct {
	Errors []ValidationError
}

// IsValid returns true if there are no validation errors.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// Error returns a combined error message.
func (r *ValidationResult) Error() string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

// AddError adds a validation error.
func (r *ValidationResult) AddError(path, message string) {
	r.Errors = append(r.Errors, ValidationError{Path: path, Message: message})
}

var allTargets = []validation.Target{
	validation.TargetParams,
	validation.TargetQuery,
	validation.TargetBody,
	validation.TargetHeaders,
	validation.TargetResponse,
}

// Patterns returns the route patterns in sorted order.
func (f *RouteFile) Patterns() []string {
	return slices.Sorted(maps.Keys(f.Routes))
}

// Validate checks the version, the route patterns and that each target has
// at most one schema source. It does not compile the schemas; Build does.
func (f *RouteFile) Validate() error {
	result := &ValidationResult{}

	if f.Version != "" && f.Version != "1" {
		result.AddError("version", fmt.Sprintf("unsupported version %q, expected \"1\"", f.Version))
	}
	if len(f.Routes) == 0 {
		result.AddError("routes", ErrNoRoutes.Error())
	}

	mux := http.NewServeMux()
	for _, pattern := range f.Patterns() {
		path := fmt.Sprintf("routes[%s]", pattern)
		if err := registerPattern(mux, pattern); err != nil {
			result.AddError(path, err.Error())
		}

		route := f.Routes[pattern]
		if route == nil {
			continue
		}
		for _, t := range allTargets {
			spec := route.Target(t)
			if spec == nil {
				continue
			}
			if sources := spec.sources(); len(sources) > 1 {
				result.AddError(path+"."+string(t),
					fmt.Sprintf("only one of fields, jsonSchema, schemaRef, value may be set (got %s)", strings.Join(sources, ", ")))
			}
		}
	}

	if !result.IsValid() {
		return result
	}
	return nil
}

// registerPattern reports invalid or conflicting ServeMux patterns, which
// http.ServeMux.Handle reports by panicking.
func registerPattern(mux *http.ServeMux, pattern string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid pattern: %v", r)
		}
	}()
	mux.Handle(pattern, http.NotFoundHandler())
	return nil
}

// Build turns every route into a validation.Config and compiles its
// engines.
func (f *RouteFile) Build() (map[string]*validation.Config, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	routes := make(map[string]*validation.Config, len(f.Routes))
	for _, pattern := range f.Patterns() {
		cfg, err := f.buildRoute(f.Routes[pattern])
		if err != nil {
			return nil, fmt.Errorf("routes[%s].%w", pattern, err)
		}
		routes[pattern] = cfg
	}
	return routes, nil
}

func (f *RouteFile) buildRoute(route *Route) (*validation.Config, error) {
	cfg := &validation.Config{}
	for _, t := range allTargets {
		spec := route.Target(t)
		if spec == nil {
			continue
		}
		engine, err := f.buildTarget(t, spec)
		if err != nil {
			return nil, &targetError{target: t, err: err}
		}
		setSchema(cfg, t, engine)
	}
	return cfg, nil
}

type targetError struct {
	target validation.Target
	err    error
}

func (e *targetError) Error() string { return fmt.Sprintf("%s: %v", e.target, e.err) }
func (e *targetError) Unwrap() error { return e.err }

// compiler is implemented by every engine in package schema.
type compiler interface {
	validation.Schema
	Compile() error
}

func (f *RouteFile) buildTarget(t validation.Target, spec *TargetSpec) (validation.Schema, error) {
	var engine compiler
	switch {
	case spec.Schema != nil:
		engine = schema.NewJSONSchema(spec.Schema)
	case spec.SchemaRef != "":
		ref := spec.SchemaRef
		if !filepath.IsAbs(ref) {
			ref = filepath.Join(f.dir, ref)
		}
		engine = schema.JSONSchemaFile(ref)
	case spec.Value != nil:
		engine = schema.Value(spec.Value)
	default:
		fields := spec.Fields
		if t == validation.TargetHeaders {
			fields = lowerKeys(fields)
		}
		engine = &schema.Object{Fields: fields, Unknown: spec.Unknown, Rules: spec.Rules}
	}

	if err := engine.Compile(); err != nil {
		return nil, err
	}
	return engine, nil
}

// lowerKeys matches header field names to the lower-case names the
// middleware collects.
func lowerKeys(fields map[string]*schema.Field) map[string]*schema.Field {
	out := make(map[string]*schema.Field, len(fields))
	for name, f := range fields {
		out[strings.ToLower(name)] = f
	}
	return out
}

func setSchema(cfg *validation.Config, t validation.Target, s validation.Schema) {
	switch t {
	case validation.TargetParams:
		cfg.Params = s
	case validation.TargetQuery:
		cfg.Query = s
	case validation.TargetBody:
		cfg.Body = s
	case validation.TargetHeaders:
		cfg.Headers = s
	case validation.TargetResponse:
		cfg.Response = s
	}
}
