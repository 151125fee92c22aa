package validation

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusError struct {
	code int
}

func (e statusError) Error() string   { return http.StatusText(e.code) }
func (e statusError) StatusCode() int { return e.code }

func failWith(err error) Schema {
	return SchemaFunc(func(context.Context, any) (any, error) {
		return nil, err
	})
}

func TestCheck(t *testing.T) {
	plain := errors.New("bad value")

	tests := []struct {
		name       string
		target     Target
		schema     Schema
		wantType   Outcome
		wantStatus int
	}{
		{
			name:   "passed",
			target: TargetQuery,
			schema: SchemaFunc(func(_ context.Context, v any) (any, error) {
				return "coerced", nil
			}),
			wantType:   Passed{},
			wantStatus: http.StatusOK,
		},
		{"request failure", TargetBody, failWith(plain), ClientInvalid{}, http.StatusBadRequest},
		{"engine 422", TargetBody, failWith(statusError{http.StatusUnprocessableEntity}), ClientInvalid{}, http.StatusUnprocessableEntity},
		{"engine 5xx on request", TargetQuery, failWith(statusError{http.StatusServiceUnavailable}), ServerInvalid{}, http.StatusServiceUnavailable},
		{"response failure", TargetResponse, failWith(plain), ServerInvalid{}, http.StatusInternalServerError},
		{"response failure with 4xx code", TargetResponse, failWith(statusError{http.StatusBadRequest}), ServerInvalid{}, http.StatusInternalServerError},
		{"engine 3xx on request", TargetParams, failWith(statusError{http.StatusFound}), ClientInvalid{}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Check(context.Background(), tt.target, tt.schema, "raw")
			assert.IsType(t, tt.wantType, got)
			assert.Equal(t, tt.wantStatus, got.Status())

			verr := got.Err()
			if _, ok := got.(Passed); ok {
				assert.Nil(t, verr)
				assert.Equal(t, "coerced", got.(Passed).Value)
				return
			}
			require.NotNil(t, verr)
			assert.Equal(t, tt.target, verr.Target)
			assert.Equal(t, tt.wantStatus, verr.StatusCode())
		})
	}
}

func TestError_KeepsEngineError(t *testing.T) {
	cause := statusError{http.StatusTeapot}
	verr := ClientInvalid{Target: TargetHeaders, Cause: cause}.Err()

	var se statusError
	require.ErrorAs(t, verr, &se)
	assert.Equal(t, cause, se)
	assert.Equal(t, "I'm a teapot", verr.Error())
	assert.True(t, verr.IsClientError())

	empty := &Error{Status: http.StatusInternalServerError}
	assert.Equal(t, "Internal Server Error", empty.Error())
	assert.Nil(t, empty.Details())
}

func TestTarget_IsRequest(t *testing.T) {
	for _, target := range []Target{TargetParams, TargetQuery, TargetBody, TargetHeaders} {
		assert.True(t, target.IsRequest(), target)
	}
	assert.False(t, TargetResponse.IsRequest())
	assert.False(t, Target("cookies").IsRequest())
}

func TestConfig(t *testing.T) {
	var nilCfg *Config
	assert.True(t, nilCfg.IsEmpty())
	assert.Nil(t, nilCfg.Schema(TargetQuery))
	assert.Empty(t, nilCfg.Targets())

	s := failWith(errors.New("x"))
	cfg := &Config{Response: s, Headers: s, Params: s}
	assert.False(t, cfg.IsEmpty())
	assert.Equal(t, []Target{TargetParams, TargetHeaders, TargetResponse}, cfg.Targets())
	assert.Nil(t, cfg.Schema(TargetBody))
	assert.Nil(t, cfg.Schema(Target("cookies")))
}
