package validation

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/routeval/pkg/schema"
)

func userResponse() *Config {
	return &Config{Response: &schema.Object{Fields: map[string]*schema.Field{
		"id": {Type: schema.TypeNumber, Required: true},
	}}}
}

type user struct {
	ID   any    `json:"id"`
	Name string `json:"name,omitempty"`
}

func TestSend_ValidatesResponse(t *testing.T) {
	tests := []struct {
		name     string
		payload  any
		wantCode int
		wantBody string
	}{
		{"valid map", map[string]any{"id": 1}, http.StatusOK, `{"id":1}`},
		{"valid struct", user{ID: 7, Name: "ada"}, http.StatusOK, `{"id":7,"name":"ada"}`},
		{"coerced", map[string]any{"id": "3"}, http.StatusOK, `{"id":3}`},
		{"wrong type", map[string]any{"id": "none"}, http.StatusInternalServerError, ""},
		{"missing field", map[string]any{}, http.StatusInternalServerError, ""},
		{"not an object", "none", http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &capture{}
			var sendErr error
			h := route("GET /users/{id}", userResponse(), func(w http.ResponseWriter, r *http.Request) {
				sendErr = Send(w, http.StatusOK, tt.payload)
			}, WithErrorHandler(c.handler()))

			rec := do(h, httptest.NewRequest(http.MethodGet, "/users/1", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusOK {
				require.NoError(t, sendErr)
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
				assert.Nil(t, c.err)
				return
			}
			require.Error(t, sendErr)
			require.NotNil(t, c.err)
			assert.Equal(t, TargetResponse, c.err.Target)
			assert.Equal(t, http.StatusInternalServerError, c.err.Status)
			assert.NotContains(t, rec.Body.String(), "none")
			assert.Contains(t, rec.Body.String(), internalErrorMessage)
		})
	}
}

func TestSend_AtMostOnce(t *testing.T) {
	var first, second error
	var writeErr error
	h := route("GET /users/{id}", userResponse(), func(w http.ResponseWriter, r *http.Request) {
		first = Send(w, http.StatusCreated, map[string]any{"id": 1})
		second = Send(w, http.StatusOK, map[string]any{"id": 2})
		_, writeErr = w.Write([]byte(`{"id":3}`))
	})

	rec := do(h, httptest.NewRequest(http.MethodGet, "/users/1", nil))

	require.NoError(t, first)
	assert.ErrorIs(t, second, ErrAlreadySent)
	assert.ErrorIs(t, writeErr, ErrAlreadySent)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":1}`, rec.Body.String())
}

func TestSend_AfterFailureIsRefused(t *testing.T) {
	var second error
	h := route("GET /users/{id}", userResponse(), func(w http.ResponseWriter, r *http.Request) {
		_ = Send(w, http.StatusOK, map[string]any{"id": "bad"})
		second = Send(w, http.StatusOK, map[string]any{"id": 1})
	})

	rec := do(h, httptest.NewRequest(http.MethodGet, "/users/1", nil))
	assert.ErrorIs(t, second, ErrAlreadySent)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestResponder_BuffersRawWrites(t *testing.T) {
	tests := []struct {
		name     string
		write    func(w http.ResponseWriter)
		wantCode int
		wantBody string
	}{
		{
			name: "valid JSON with status",
			write: func(w http.ResponseWriter) {
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(`{"id":`))
				_, _ = w.Write([]byte(`"2"}`))
			},
			wantCode: http.StatusCreated,
			wantBody: `{"id":2}`,
		},
		{
			name: "invalid JSON payload",
			write: func(w http.ResponseWriter) {
				_, _ = w.Write([]byte(`{"id":"none"}`))
			},
			wantCode: http.StatusInternalServerError,
		},
		{
			name: "not JSON",
			write: func(w http.ResponseWriter) {
				_, _ = w.Write([]byte(`none`))
			},
			wantCode: http.StatusInternalServerError,
		},
		{
			name: "status only",
			write: func(w http.ResponseWriter) {
				w.WriteHeader(http.StatusNoContent)
			},
			wantCode: http.StatusNoContent,
		},
		{
			name:     "nothing written",
			write:    func(w http.ResponseWriter) {},
			wantCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := route("GET /users/{id}", userResponse(), func(w http.ResponseWriter, r *http.Request) {
				tt.write(w)
			})

			rec := do(h, httptest.NewRequest(http.MethodGet, "/users/1", nil))
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
			}
			assert.NotContains(t, rec.Body.String(), "none")
		})
	}
}

func TestResponder_FlushWaitsForValidation(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantCode int
		wantBody string
	}{
		{"invalid payload", `{"id":"none"}`, http.StatusInternalServerError, ""},
		{"valid payload", `{"id":"4"}`, http.StatusOK, `{"id":4}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := route("GET /users/{id}", userResponse(), func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.payload))
				assert.NoError(t, http.NewResponseController(w).Flush())
			})
			srv := httptest.NewServer(h)
			defer srv.Close()

			resp, err := srv.Client().Get(srv.URL + "/users/1")
			require.NoError(t, err)
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)

			assert.Equal(t, tt.wantCode, resp.StatusCode)
			assert.NotContains(t, string(body), "none")
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, string(body))
			}
		})
	}
}

func TestResponder_FlushAfterSend(t *testing.T) {
	var flushErr error
	h := route("GET /users/{id}", userResponse(), func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, Send(w, http.StatusOK, map[string]any{"id": 1}))
		flushErr = http.NewResponseController(w).Flush()
	})

	rec := do(h, httptest.NewRequest(http.MethodGet, "/users/1", nil))
	require.NoError(t, flushErr)
	assert.True(t, rec.Flushed)
	assert.JSONEq(t, `{"id":1}`, rec.Body.String())
}

// wrapped mimics a logging middleware between the validator and the handler.
type wrapped struct {
	http.ResponseWriter
}

func (w *wrapped) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func TestSend_FindsResponderThroughWrappers(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = Send(w, http.StatusOK, map[string]any{"id": "none"})
	})
	wrap := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(&wrapped{w}, r)
		})
	}

	mux := http.NewServeMux()
	mux.Handle("GET /users/{id}", Middleware(userResponse())(wrap(inner)))

	rec := do(mux, httptest.NewRequest(http.MethodGet, "/users/1", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSend_WithoutResponseSchema(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, Send(rec, 0, map[string]any{"id": "anything"}))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":"anything"}`, rec.Body.String())

	// a route with only request schemas does not install the capability
	h := route("GET /users", &Config{Query: listQuery()}, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, Send(w, http.StatusOK, map[string]any{"id": "x"}))
		assert.NoError(t, Send(w, http.StatusOK, map[string]any{"id": "y"}))
	})
	rec = do(h, httptest.NewRequest(http.MethodGet, "/users", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSend_UnserializablePayload(t *testing.T) {
	c := &capture{}
	h := route("GET /users/{id}", userResponse(), func(w http.ResponseWriter, r *http.Request) {
		assert.Error(t, Send(w, http.StatusOK, map[string]any{"id": func() {}}))
	}, WithErrorHandler(c.handler()))

	rec := do(h, httptest.NewRequest(http.MethodGet, "/users/1", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotNil(t, c.err)
	assert.Equal(t, TargetResponse, c.err.Target)
}
