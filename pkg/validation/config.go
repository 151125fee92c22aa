package validation

import "context"

// Target names one validation surface of a request/response pair.
type Target string

// Validation targets.
const (
	TargetParams   Target = "params"
	TargetQuery    Target = "query"
	TargetBody     Target = "body"
	TargetHeaders  Target = "headers"
	TargetResponse Target = "response"
)

// requestTargets is the order in which request-side targets are checked.
var requestTargets = []Target{TargetParams, TargetQuery, TargetBody, TargetHeaders}

// applyOrder is the order in which validated values are written back.
var applyOrder = []Target{TargetParams, TargetQuery, TargetHeaders, TargetBody}

// IsRequest reports whether the target is part of the incoming request.
func (t Target) IsRequest() bool {
	switch t {
	case TargetParams, TargetQuery, TargetBody, TargetHeaders:
		return true
	}
	return false
}

// Schema validates a value and returns its coerced form.
//
// Implementations must not mutate value. An error may implement
// StatusCode() int to classify the failure itself; otherwise request
// failures are reported as 400 and response failures as 500.
type Schema interface {
	Validate(ctx context.Context, value any) (any, error)
}

// SchemaFunc adapts a function to the Schema interface.
type SchemaFunc func(ctx context.Context, value any) (any, error)

// Validate calls f(ctx, value).
func (f SchemaFunc) Validate(ctx context.Context, value any) (any, error) {
	return f(ctx, value)
}

// Config holds the schemas for a single route. A nil field means the target
// is not validated.
//
// Headers are collected with lower-case names. Schemas that expose
// FieldNames() []string, such as schema.Object, may declare them in any
// case.
type Config struct {
	Params   Schema
	Query    Schema
	Body     Schema
	Headers  Schema
	Response Schema
}

// IsEmpty returns true if no target is configured.
func (c *Config) IsEmpty() bool {
	if c == nil {
		return true
	}
	return c.Params == nil &&
		c.Query == nil &&
		c.Body == nil &&
		c.Headers == nil &&
		c.Response == nil
}

// Schema returns the schema configured for t, or nil.
func (c *Config) Schema(t Target) Schema {
	if c == nil {
		return nil
	}
	switch t {
	case TargetParams:
		return c.Params
	case TargetQuery:
		return c.Query
	case TargetBody:
		return c.Body
	case TargetHeaders:
		return c.Headers
	case TargetResponse:
		return c.Response
	}
	return nil
}

// Targets lists the configured targets in check order, with the response
// last.
func (c *Config) Targets() []Target {
	var targets []Target
	for _, t := range requestTargets {
		if c.Schema(t) != nil {
			targets = append(targets, t)
		}
	}
	if c.Schema(TargetResponse) != nil {
		targets = append(targets, TargetResponse)
	}
	return targets
}
