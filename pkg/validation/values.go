package validation

import (
	"context"
	"net/http"
)

// Values holds the coerced output of every validated request target.
// Targets that were not validated are nil.
type Values struct {
	Params  any
	Query   any
	Body    any
	Headers any
}

// Get returns the value for t.
func (v *Values) Get(t Target) any {
	if v == nil {
		return nil
	}
	switch t {
	case TargetParams:
		return v.Params
	case TargetQuery:
		return v.Query
	case TargetBody:
		return v.Body
	case TargetHeaders:
		return v.Headers
	}
	return nil
}

func (v *Values) set(t Target, value any) {
	switch t {
	case TargetParams:
		v.Params = value
	case TargetQuery:
		v.Query = value
	case TargetBody:
		v.Body = value
	case TargetHeaders:
		v.Headers = value
	}
}

type valuesKey struct{}

// WithValues returns a copy of ctx carrying v.
func WithValues(ctx context.Context, v *Values) context.Context {
	return context.WithValue(ctx, valuesKey{}, v)
}

// ValuesFrom returns the validated values stored in ctx, or nil when the
// request did not pass through the middleware.
func ValuesFrom(ctx context.Context) *Values {
	v, _ := ctx.Value(valuesKey{}).(*Values)
	return v
}

// Get returns the validated value of target t as a T. The second result is
// false when the target was not validated or holds another type.
//
//	q, ok := validation.Get[map[string]any](r, validation.TargetQuery)
func Get[T any](r *http.Request, t Target) (T, bool) {
	v, ok := ValuesFrom(r.Context()).Get(t).(T)
	return v, ok
}
