// Package schema provides the validation engines used by routeval routes.
//
// Every engine implements the validation.Schema contract: Validate takes a
// decoded value (a map for params, query, headers and object bodies) and
// returns a coerced copy of it, or an *Error describing what is wrong. The
// input is never mutated.
//
// Engines:
//
//   - Object: field rules with coercion of strings to numbers and booleans,
//     defaults, unknown-key policies and expression rules.
//   - JSONSchema: a JSON Schema document (draft 2020-12) with defaults and
//     type coercion applied before validation.
//   - OpenAPI: an OpenAPI 3 schema object, as found in a document's
//     parameters, request bodies and responses.
//   - Struct: a Go struct type validated with `validate` tags.
//
// Error messages follow the familiar `"limit" must be a number` form, and
// each Detail carries a JSONPath to the offending value.
package schema
