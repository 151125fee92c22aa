package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type detailedError struct{}

func (detailedError) Error() string          { return `"name" is required` }
func (detailedError) ValidationDetails() any { return []string{"name"} }

func TestNewErrorBody(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorBody
	}{
		{
			name: "client error with details",
			err:  ClientInvalid{Target: TargetBody, Cause: detailedError{}}.Err(),
			want: ErrorBody{
				StatusCode: 400,
				Error:      "Bad Request",
				Message:    `"name" is required`,
				Target:     TargetBody,
				Details:    []string{"name"},
			},
		},
		{
			name: "server error hides the cause",
			err:  ServerInvalid{Target: TargetResponse, Cause: detailedError{}}.Err(),
			want: ErrorBody{
				StatusCode: 500,
				Error:      "Internal Server Error",
				Message:    internalErrorMessage,
				Target:     TargetResponse,
			},
		},
		{
			name: "foreign error",
			err:  errors.New("boom"),
			want: ErrorBody{
				StatusCode: 500,
				Error:      "Internal Server Error",
				Message:    internalErrorMessage,
			},
		},
		{
			name: "zero status",
			err:  &Error{Target: TargetQuery, Err: errors.New("x")},
			want: ErrorBody{
				StatusCode: 500,
				Error:      "Internal Server Error",
				Message:    internalErrorMessage,
				Target:     TargetQuery,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewErrorBody(tt.err))
		})
	}
}

func TestNewErrorHandler_Logs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	handle := NewErrorHandler(logger)
	req := httptest.NewRequest(http.MethodGet, "/users", nil)

	rec := httptest.NewRecorder()
	handle(rec, req, ClientInvalid{Target: TargetQuery, Cause: errors.New("bad")}.Err())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, buf.String(), `"level":"DEBUG"`)
	assert.Contains(t, buf.String(), `"msg":"validation: request rejected"`)

	buf.Reset()
	rec = httptest.NewRecorder()
	handle(rec, req, ServerInvalid{Target: TargetResponse, Cause: errors.New("secret")}.Err())
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
	assert.Contains(t, buf.String(), "secret")
	assert.NotContains(t, rec.Body.String(), "secret")
}

func TestNewProblemErrorHandler(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantTitle string
		wantCode  int
	}{
		{"request", ClientInvalid{Target: TargetQuery, Cause: detailedError{}}.Err(), "Request Validation Failed", 400},
		{"response", ServerInvalid{Target: TargetResponse, Cause: detailedError{}}.Err(), "Response Validation Failed", 500},
		{"broken request schema", ServerInvalid{Target: TargetBody, Cause: errors.New("x")}.Err(), "Validation Error", 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewProblemErrorHandler(nil)(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

			var problem map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			assert.Equal(t, tt.wantTitle, problem["title"])
			assert.Equal(t, "validation_error", problem["type"])
			assert.Equal(t, float64(tt.wantCode), problem["status"])
			assert.NotEmpty(t, problem["target"])
			if tt.wantCode == 400 {
				assert.Equal(t, []any{"name"}, problem["errors"])
			} else {
				assert.NotContains(t, problem, "errors")
			}
		})
	}
}
