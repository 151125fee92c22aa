package config

import (
	"github.com/getmockd/routeval/pkg/schema"
	"github.com/getmockd/routeval/pkg/validation"
)

// RouteFile is the top-level structure of a route file.
type RouteFile struct {
	// Version is the file format version. Optional; "1" when set.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// Routes maps ServeMux patterns ("GET /users/{id}") to their schemas.
	Routes map[string]*Route `json:"routes" yaml:"routes"`

	// dir is the directory schemaRef paths are resolved against.
	dir string
}

// Route holds the schemas of one route. A nil target is not validated.
type Route struct {
	Params   *TargetSpec `json:"params,omitempty" yaml:"params,omitempty"`
	Query    *TargetSpec `json:"query,omitempty" yaml:"query,omitempty"`
	Body     *TargetSpec `json:"body,omitempty" yaml:"body,omitempty"`
	Headers  *TargetSpec `json:"headers,omitempty" yaml:"headers,omitempty"`
	Response *TargetSpec `json:"response,omitempty" yaml:"response,omitempty"`
}

// Target returns the spec for t.
func (r *Route) Target(t validation.Target) *TargetSpec {
	if r == nil {
		return nil
	}
	switch t {
	case validation.TargetParams:
		return r.Params
	case validation.TargetQuery:
		return r.Query
	case validation.TargetBody:
		return r.Body
	case validation.TargetHeaders:
		return r.Headers
	case validation.TargetResponse:
		return r.Response
	}
	return nil
}

// TargetSpec describes the schema of one target.
type TargetSpec struct {
	// Fields defines per-field rules for object values
	Fields map[string]*schema.Field `json:"fields,omitempty" yaml:"fields,omitempty"`

	// Unknown is the policy for keys without a field: allow, strip, forbid
	Unknown schema.Unknown `json:"unknown,omitempty" yaml:"unknown,omitempty"`

	// Rules are cross-field expressions checked after the fields
	Rules []schema.Rule `json:"rules,omitempty" yaml:"rules,omitempty"`

	// Schema is an inline JSON Schema
	Schema any `json:"jsonSchema,omitempty" yaml:"jsonSchema,omitempty"`

	// SchemaRef is a file path to an external JSON Schema
	SchemaRef string `json:"schemaRef,omitempty" yaml:"schemaRef,omitempty"`

	// Value is a single rule for values that are not objects
	Value *schema.Field `json:"value,omitempty" yaml:"value,omitempty"`
}

// sources lists the schema sources set on s.
func (s *TargetSpec) sources() []string {
	var out []string
	if len(s.Fields) > 0 || s.Unknown != "" || len(s.Rules) > 0 {
		out = append(out, "fields")
	}
	if s.Schema != nil {
		out = append(out, "jsonSchema")
	}
	if s.SchemaRef != "" {
		out = append(out, "schemaRef")
	}
	if s.Value != nil {
		out = append(out, "value")
	}
	return out
}
