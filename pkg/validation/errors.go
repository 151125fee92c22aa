package validation

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/getmockd/routeval/pkg/httputil"
)

// ErrAlreadySent is returned by Send when a response was already sent for
// the request.
var ErrAlreadySent = errors.New("validation: response already sent")

// Error is a validation failure handed to the ErrorHandler. It carries the
// engine's original error unchanged.
type Error struct {
	// Target is the surface that failed validation.
	Target Target

	// Status is the HTTP status classification: 4xx for request targets,
	// 5xx for the response or for schemas that cannot be evaluated.
	Status int

	// Err is the validation engine's error.
	Err error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err == nil {
		return http.StatusText(e.Status)
	}
	return e.Err.Error()
}

// Unwrap returns the engine's error.
func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status classification.
func (e *Error) StatusCode() int {
	return e.Status
}

// IsClientError reports whether the failure is the client's to fix.
func (e *Error) IsClientError() bool {
	return e.Status >= 400 && e.Status < 500
}

// Details returns the engine's structured details, if it exposes any
// through a ValidationDetails() method.
func (e *Error) Details() any {
	var d interface{ ValidationDetails() any }
	if errors.As(e.Err, &d) {
		return d.ValidationDetails()
	}
	return nil
}

// ErrorHandler renders a validation failure. It plays the role of the host
// framework's centralized error stage.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// ErrorBody is the JSON body written by the default ErrorHandler.
type ErrorBody struct {
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
	Target     Target `json:"target,omitempty"`
	Details    any    `json:"details,omitempty"`
}

const internalErrorMessage = "An internal server error occurred"

// NewErrorBody builds the body for err. Errors that are not an *Error are
// treated as internal server errors. Server-side failures get a generic
// message and no details.
func NewErrorBody(err error) ErrorBody {
	var verr *Error
	if !errors.As(err, &verr) {
		verr = &Error{Status: http.StatusInternalServerError, Err: err}
	}
	status := verr.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	body := ErrorBody{
		StatusCode: status,
		Error:      http.StatusText(status),
		Target:     verr.Target,
	}
	if status >= 500 {
		body.Message = internalErrorMessage
		return body
	}
	body.Message = verr.Error()
	body.Details = verr.Details()
	return body
}

// NewErrorHandler returns the default ErrorHandler. Client failures are
// logged at debug level, server failures at error level with their cause.
func NewErrorHandler(logger *slog.Logger) ErrorHandler {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		body := NewErrorBody(err)
		logFailure(logger, r, body, err)
		httputil.WriteJSON(w, body.StatusCode, body)
	}
}

// NewProblemErrorHandler returns an ErrorHandler that renders RFC 7807
// Problem Details instead of the default body.
func NewProblemErrorHandler(logger *slog.Logger) ErrorHandler {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		body := NewErrorBody(err)
		logFailure(logger, r, body, err)

		title := "Request Validation Failed"
		switch {
		case body.Target == TargetResponse:
			title = "Response Validation Failed"
		case body.StatusCode >= 500:
			title = "Validation Error"
		}
		problem := &httputil.Problem{
			Type:       "validation_error",
			Title:      title,
			Status:     body.StatusCode,
			Detail:     body.Message,
			Extensions: map[string]any{},
		}
		if body.Target != "" {
			problem.Extensions["target"] = body.Target
		}
		if body.Details != nil {
			problem.Extensions["errors"] = body.Details
		}
		httputil.WriteProblem(w, problem)
	}
}

func logFailure(logger *slog.Logger, r *http.Request, body ErrorBody, err error) {
	if logger == nil {
		return
	}
	if body.StatusCode >= 500 {
		logger.Error("validation: server error",
			"method", r.Method, "path", r.URL.Path,
			"target", body.Target, "status", body.StatusCode, "error", err)
		return
	}
	logger.Debug("validation: request rejected",
		"method", r.Method, "path", r.URL.Path,
		"target", body.Target, "status", body.StatusCode, "error", err)
}
