package schema

import (
	"fmt"
	"net/http"
	"strings"
)

// Error codes for machine-readable identification.
const (
	CodeRequired     = "required"
	CodeType         = "type"
	CodeMinLength    = "min_length"
	CodeMaxLength    = "max_length"
	CodePattern      = "pattern"
	CodeFormat       = "format"
	CodeMin          = "min"
	CodeMax          = "max"
	CodeExclusiveMin = "exclusive_min"
	CodeExclusiveMax = "exclusive_max"
	CodeMinItems     = "min_items"
	CodeMaxItems     = "max_items"
	CodeUniqueItems  = "unique_items"
	CodeEnum         = "enum"
	CodeUnknownField = "unknown_field"
	CodeRule         = "rule"
	CodeSchema       = "schema"
)

// Detail describes a single validation failure.
type Detail struct {
	// Path is a JSONPath to the value, e.g. $.items[0].name
	Path string `json:"path"`

	// Field is the display name used in Message, e.g. items[0].name
	Field string `json:"field,omitempty"`

	// Code is a machine-readable error code
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`
}

// Error is returned by every engine when a value does not match.
type Error struct {
	Details []Detail

	// Status classifies the failure. Zero leaves the classification to the
	// caller; engines set 500 when the schema itself is broken.
	Status int
}

// Error joins the detail messages.
func (e *Error) Error() string {
	if len(e.Details) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e.Details))
	for i, d := range e.Details {
		msgs[i] = d.Message
	}
	return strings.Join(msgs, ". ")
}

// StatusCode returns the engine's status classification, or 0.
func (e *Error) StatusCode() int {
	return e.Status
}

// ValidationDetails exposes the details to error renderers.
func (e *Error) ValidationDetails() any {
	if len(e.Details) == 0 {
		return nil
	}
	return e.Details
}

func (e *Error) add(d Detail) {
	e.Details = append(e.Details, d)
}

func (e *Error) err() error {
	if e == nil || len(e.Details) == 0 {
		return nil
	}
	return e
}

// brokenSchema reports a schema that cannot be evaluated.
func brokenSchema(err error) *Error {
	return &Error{
		Status: http.StatusInternalServerError,
		Details: []Detail{{
			Path:    "$",
			Code:    CodeSchema,
			Message: fmt.Sprintf("invalid schema: %v", err),
		}},
	}
}
