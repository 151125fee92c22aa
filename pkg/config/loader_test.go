package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/routeval/pkg/schema"
	"github.com/getmockd/routeval/pkg/validation"
)

const usersYAML = `version: "1"
routes:
  "GET /users":
    query:
      fields:
        limit: {type: number, default: 20}
        offset: {type: number, default: 20}
  "GET /users/{id}":
    params:
      fields:
        id: {type: number, required: true}
    headers:
      fields:
        Authorization: {type: string, required: true}
    response:
      schemaRef: user.schema.json
  "POST /users":
    body:
      fields:
        name: {type: string, required: true}
      unknown: forbid
      rules:
        - expr: 'len(name) <= 40'
          message: name is too long
`

const userSchemaJSON = `{
  "type": "object",
  "properties": {"id": {"type": "number", "exclusiveMinimum": 0}},
  "required": ["id"]
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFromFile_ValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "routes.yaml", usersYAML)

	file, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"GET /users", "GET /users/{id}", "POST /users"}, file.Patterns())
	assert.Equal(t, 20, file.Routes["GET /users"].Query.Fields["limit"].Default)
	assert.Contains(t, file.Routes["GET /users/{id}"].Headers.Fields, "Authorization")
	assert.Equal(t, schema.UnknownForbid, file.Routes["POST /users"].Body.Unknown)
}

func TestLoadFromFile_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"missing", filepath.Join(dir, "missing.yaml"), ErrFileNotFound},
		{"empty", writeFile(t, dir, "empty.yaml", "  \n"), ErrEmptyFile},
		{"invalid JSON", writeFile(t, dir, "bad.json", "{ invalid json }"), ErrInvalidJSON},
		{"invalid YAML", writeFile(t, dir, "bad.yaml", "routes: [unclosed"), ErrInvalidYAML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, err := LoadFromFile(tt.path)
			assert.Nil(t, file)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("directory", func(t *testing.T) {
		_, err := LoadFromFile(dir)
		assert.ErrorContains(t, err, "directory")
	})
}

func TestRouteFile_Validate(t *testing.T) {
	tests := []struct {
		name    string
		file    RouteFile
		message string
	}{
		{
			name:    "no routes",
			file:    RouteFile{},
			message: "routes: no routes defined",
		},
		{
			name:    "bad version",
			file:    RouteFile{Version: "2", Routes: map[string]*Route{"/": {}}},
			message: `version: unsupported version "2", expected "1"`,
		},
		{
			name:    "invalid pattern",
			file:    RouteFile{Routes: map[string]*Route{"GET /users/{id": {}}},
			message: "routes[GET /users/{id]: invalid pattern",
		},
		{
			name: "conflicting patterns",
			file: RouteFile{Routes: map[string]*Route{
				"GET /users/{id}":   {},
				"GET /users/{name}": {},
			}},
			message: "routes[GET /users/{name}]: invalid pattern",
		},
		{
			name: "two sources",
			file: RouteFile{Routes: map[string]*Route{"GET /users": {Query: &TargetSpec{
				Fields:    map[string]*schema.Field{"limit": {Type: "number"}},
				SchemaRef: "query.json",
			}}}},
			message: "routes[GET /users].query: only one of fields, jsonSchema, schemaRef, value may be set (got fields, schemaRef)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.file.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)

			var result *ValidationResult
			assert.ErrorAs(t, err, &result)
		})
	}
}

func TestLoad_RouteFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "user.schema.json", userSchemaJSON)
	path := writeFile(t, dir, "routes.yaml", usersYAML)

	routes, err := Load(path)
	require.NoError(t, err)
	require.Len(t, routes, 3)
	ctx := context.Background()

	list := routes["GET /users"]
	require.NotNil(t, list.Query)
	assert.Nil(t, list.Body)
	out, err := list.Query.Validate(ctx, map[string]any{"limit": "10"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"limit": float64(10), "offset": float64(20)}, out)

	get := routes["GET /users/{id}"]
	assert.Equal(t, []validation.Target{
		validation.TargetParams, validation.TargetHeaders, validation.TargetResponse,
	}, get.Targets())

	_, err = get.Headers.Validate(ctx, map[string]any{"authorization": "Bearer x", "accept": "*/*"})
	require.NoError(t, err, "header field names are matched lower-case")

	_, err = get.Response.Validate(ctx, map[string]any{"id": "none"})
	assert.Error(t, err)
	_, err = get.Response.Validate(ctx, map[string]any{"id": float64(1)})
	assert.NoError(t, err)

	create := routes["POST /users"]
	_, err = create.Body.Validate(ctx, map[string]any{"name": "Ada", "admin": true})
	assert.EqualError(t, err, `"admin" is not allowed`)
}

func TestLoad_JSONRouteFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "routes.json", `{
		"routes": {
			"GET /items/{id}": {
				"params": {"jsonSchema": {"type": "object", "properties": {"id": {"type": "integer"}}}},
				"response": {"value": {"type": "array", "maxItems": 2}}
			}
		}
	}`)

	routes, err := Load(path)
	require.NoError(t, err)

	cfg := routes["GET /items/{id}"]
	out, err := cfg.Params.Validate(context.Background(), map[string]any{"id": "3"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": float64(3)}, out)

	_, err = cfg.Response.Validate(context.Background(), []any{"a", "b", "c"})
	assert.Error(t, err)
}

func TestLoad_BrokenSchemas(t *testing.T) {
	tests := map[string]string{
		"bad pattern": `routes:
  "GET /a":
    query:
      fields:
        q: {type: string, pattern: "("}
`,
		"bad rule": `routes:
  "GET /a":
    query:
      rules:
        - expr: "limit <"
`,
		"missing schema file": `routes:
  "GET /a":
    response:
      schemaRef: nowhere.json
`,
		"unknown type": `routes:
  "GET /a":
    body:
      fields:
        a: {type: text}
`,
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "routes.yml", content)
			routes, err := Load(path)
			assert.Nil(t, routes)
			assert.ErrorContains(t, err, "routes[GET /a].")
		})
	}
}
