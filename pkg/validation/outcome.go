package validation

import (
	"context"
	"errors"
	"net/http"
)

// Outcome is the result of validating one target. It is one of Passed,
// ClientInvalid or ServerInvalid; the HTTP status is a property of the
// variant.
type Outcome interface {
	// Status is the HTTP status the outcome maps to.
	Status() int
	// Err returns the error to propagate, or nil for Passed.
	Err() *Error

	outcome()
}

// Passed carries the coerced value of a successful validation.
type Passed struct {
	Value any
}

// ClientInvalid is a request-side failure. The client must correct the
// request.
type ClientInvalid struct {
	Target Target
	Cause  error
}

// ServerInvalid is a failure the client cannot fix: a response that breaks
// its contract, or a schema that cannot be evaluated.
type ServerInvalid struct {
	Target Target
	Cause  error
}

func (Passed) outcome()        {}
func (ClientInvalid) outcome() {}
func (ServerInvalid) outcome() {}

// Status returns 200.
func (Passed) Status() int { return http.StatusOK }

// Err returns nil.
func (Passed) Err() *Error { return nil }

// Status returns the engine's own 4xx classification, or 400.
func (o ClientInvalid) Status() int {
	if code, ok := statusOf(o.Cause); ok && code >= 400 && code < 500 {
		return code
	}
	return http.StatusBadRequest
}

// Err returns the failure as an *Error.
func (o ClientInvalid) Err() *Error {
	return &Error{Target: o.Target, Status: o.Status(), Err: o.Cause}
}

// Status returns the engine's own 5xx classification, or 500.
func (o ServerInvalid) Status() int {
	if code, ok := statusOf(o.Cause); ok && code >= 500 && code < 600 {
		return code
	}
	return http.StatusInternalServerError
}

// Err returns the failure as an *Error.
func (o ServerInvalid) Err() *Error {
	return &Error{Target: o.Target, Status: o.Status(), Err: o.Cause}
}

// Check validates value against s and classifies the result for target t.
// Response failures are always server-side; request failures are
// client-side unless the engine reports a 5xx itself.
func Check(ctx context.Context, t Target, s Schema, value any) Outcome {
	out, err := s.Validate(ctx, value)
	if err == nil {
		return Passed{Value: out}
	}
	return invalid(t, err)
}

func invalid(t Target, err error) Outcome {
	if !t.IsRequest() {
		return ServerInvalid{Target: t, Cause: err}
	}
	if code, ok := statusOf(err); ok && code >= 500 {
		return ServerInvalid{Target: t, Cause: err}
	}
	return ClientInvalid{Target: t, Cause: err}
}

// statusOf extracts a status classification from err.
func statusOf(err error) (int, bool) {
	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) {
		if code := sc.StatusCode(); code != 0 {
			return code, true
		}
	}
	return 0, false
}
