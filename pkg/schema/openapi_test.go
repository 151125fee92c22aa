package schema

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadOpenAPISchema(t *testing.T, doc string) *openapi3.Schema {
	t.Helper()
	var s openapi3.Schema
	require.NoError(t, json.Unmarshal([]byte(doc), &s))
	return &s
}

func TestOpenAPI_Validate(t *testing.T) {
	t.Parallel()

	s := NewOpenAPI(loadOpenAPISchema(t, `{
		"type": "object",
		"required": ["id"],
		"properties": {
			"id": {"type": "integer", "minimum": 1},
			"limit": {"type": "number", "default": 20},
			"verbose": {"type": "boolean"},
			"ids": {"type": "array", "items": {"type": "integer"}}
		}
	}`))
	require.NoError(t, s.Compile())

	t.Run("coercion and defaults", func(t *testing.T) {
		t.Parallel()
		input := map[string]any{"id": "7", "verbose": "false", "ids": "3"}
		out, err := s.Validate(context.Background(), input)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"id":      float64(7),
			"limit":   float64(20),
			"verbose": false,
			"ids":     []any{float64(3)},
		}, out)
		assert.Equal(t, "7", input["id"])
	})

	t.Run("type mismatch", func(t *testing.T) {
		t.Parallel()
		_, err := s.Validate(context.Background(), map[string]any{"id": "seven"})
		serr := validationError(t, err)
		require.NotEmpty(t, serr.Details)
		assert.Equal(t, "$.id", serr.Details[0].Path)
		assert.Equal(t, "type", serr.Details[0].Code)
		assert.Contains(t, serr.Error(), `"id"`)
	})

	t.Run("minimum", func(t *testing.T) {
		t.Parallel()
		_, err := s.Validate(context.Background(), map[string]any{"id": "0"})
		serr := validationError(t, err)
		require.NotEmpty(t, serr.Details)
		assert.Equal(t, "minimum", serr.Details[0].Code)
	})

	t.Run("required", func(t *testing.T) {
		t.Parallel()
		_, err := s.Validate(context.Background(), map[string]any{})
		serr := validationError(t, err)
		require.NotEmpty(t, serr.Details)
		assert.Equal(t, "required", serr.Details[0].Code)
		assert.Contains(t, serr.Error(), "id")
	})
}

func TestOpenAPI_Response(t *testing.T) {
	t.Parallel()

	doc := `{
		"type": "object",
		"required": ["id"],
		"properties": {
			"id": {"type": "number", "minimum": 1, "readOnly": true}
		}
	}`

	resp := NewOpenAPIResponse(loadOpenAPISchema(t, doc))
	out, err := resp.Validate(context.Background(), map[string]any{"id": float64(1)})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": float64(1)}, out)

	_, err = resp.Validate(context.Background(), map[string]any{"id": "none"})
	assert.Error(t, err)

	_, err = resp.Validate(context.Background(), map[string]any{})
	assert.Error(t, err)
}

func TestOpenAPI_Broken(t *testing.T) {
	t.Parallel()

	for name, s := range map[string]*OpenAPI{
		"nil schema":   NewOpenAPI(nil),
		"invalid type": NewOpenAPI(loadOpenAPISchema(t, `{"type": "nonsense"}`)),
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			require.Error(t, s.Compile())
			_, err := s.Validate(context.Background(), map[string]any{})
			assert.Equal(t, http.StatusInternalServerError, validationError(t, err).StatusCode())
		})
	}
}
