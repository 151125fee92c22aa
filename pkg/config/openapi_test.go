package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/routeval/pkg/validation"
)

const usersOpenAPI = `openapi: 3.0.3
info:
  title: Users
  version: "1.0"
paths:
  /users:
    get:
      parameters:
        - name: limit
          in: query
          schema: {type: integer, default: 20, minimum: 1}
        - name: X-Request-ID
          in: header
          required: true
          schema: {type: string}
      responses:
        "200":
          description: users
          content:
            application/json:
              schema:
                type: array
                items: {$ref: "#/components/schemas/User"}
    post:
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              required: [name]
              properties:
                name: {type: string, minLength: 1}
      responses:
        "201":
          description: created
          content:
            application/json:
              schema: {$ref: "#/components/schemas/User"}
        "400":
          description: bad request
  /users/{user-id}:
    parameters:
      - name: user-id
        in: path
        required: true
        schema: {type: integer}
    delete:
      responses:
        "204":
          description: deleted
components:
  schemas:
    User:
      type: object
      required: [id]
      properties:
        id: {type: number, minimum: 1}
        name: {type: string}
`

func TestRoutesFromOpenAPI(t *testing.T) {
	doc, err := LoadSpecFromString(usersOpenAPI)
	require.NoError(t, err)

	routes, err := RoutesFromOpenAPI(doc)
	require.NoError(t, err)
	require.Len(t, routes, 3)
	ctx := context.Background()

	list := routes["GET /users"]
	require.NotNil(t, list)
	assert.Equal(t, []validation.Target{
		validation.TargetQuery, validation.TargetHeaders, validation.TargetResponse,
	}, list.Targets())

	out, err := list.Query.Validate(ctx, map[string]any{"limit": "5"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"limit": float64(5)}, out)

	out, err = list.Query.Validate(ctx, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"limit": float64(20)}, out)

	_, err = list.Headers.Validate(ctx, map[string]any{"accept": "*/*"})
	assert.Error(t, err, "x-request-id is required")
	_, err = list.Headers.Validate(ctx, map[string]any{"x-request-id": "abc"})
	assert.NoError(t, err)

	_, err = list.Response.Validate(ctx, []any{map[string]any{"id": float64(0)}})
	assert.Error(t, err)

	create := routes["POST /users"]
	require.NotNil(t, create)
	_, err = create.Body.Validate(ctx, map[string]any{})
	assert.Error(t, err)
	_, err = create.Response.Validate(ctx, map[string]any{"id": float64(1), "name": "Ada"})
	assert.NoError(t, err)

	del := routes["DELETE /users/{user_id}"]
	require.NotNil(t, del)
	assert.Nil(t, del.Response)
	out, err = del.Params.Validate(ctx, map[string]any{"user_id": "42"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"user_id": float64(42)}, out)
}

func TestRoutesFromOpenAPI_Errors(t *testing.T) {
	_, err := RoutesFromOpenAPI(nil)
	assert.Error(t, err)

	doc, err := LoadSpecFromString(`openapi: 3.0.3
info: {title: Empty, version: "1"}
paths: {}
`)
	require.NoError(t, err)
	_, err = RoutesFromOpenAPI(doc)
	assert.ErrorIs(t, err, ErrNoRoutes)

	doc, err = LoadSpecFromString(`openapi: 3.0.3
info: {title: Files, version: "1"}
paths:
  /files/{name}.json:
    get:
      parameters:
        - {name: name, in: path, required: true, schema: {type: string}}
      responses:
        "200": {description: ok}
`)
	require.NoError(t, err)
	_, err = RoutesFromOpenAPI(doc)
	assert.ErrorContains(t, err, "whole segment")
}

func TestToMuxPath(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"/users", "/users"},
		{"/users/{id}", "/users/{id}"},
		{"/orgs/{org-id}/repos/{repo.name}", "/orgs/{org_id}/repos/{repo_name}"},
	}
	for _, tt := range tests {
		got, err := toMuxPath(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.out, got)
	}
}

func TestLoad_DetectsOpenAPI(t *testing.T) {
	path := writeFile(t, t.TempDir(), "openapi.yaml", usersOpenAPI)

	routes, err := Load(path)
	require.NoError(t, err)
	assert.Contains(t, routes, "POST /users")
}
