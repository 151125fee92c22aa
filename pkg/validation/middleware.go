package validation

import (
	"log/slog"
	"net/http"

	"github.com/getmockd/routeval/pkg/logging"
)

// Validator applies a route's Config to requests. It is immutable after
// construction and safe for concurrent use.
type Validator struct {
	config  *Config
	onError ErrorHandler
	logger  *slog.Logger
	maxBody int64
}

// Option configures a Validator.
type Option func(*Validator)

// WithErrorHandler sets the handler that renders validation failures.
func WithErrorHandler(h ErrorHandler) Option {
	return func(v *Validator) {
		v.onError = h
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithMaxBodyBytes limits how much of a request body is read for
// validation. Larger bodies are rejected with 413.
func WithMaxBodyBytes(n int64) Option {
	return func(v *Validator) {
		if n > 0 {
			v.maxBody = n
		}
	}
}

// New creates a Validator for cfg. A nil or empty cfg validates nothing.
func New(cfg *Config, opts ...Option) *Validator {
	v := &Validator{
		config:  cfg,
		logger:  logging.Nop(),
		maxBody: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.onError == nil {
		v.onError = NewErrorHandler(v.logger)
	}
	return v
}

// Middleware returns a middleware validating requests, and optionally
// responses, against cfg.
//
//	mux.Handle("GET /users/{id}", validation.Middleware(cfg)(getUser))
func Middleware(cfg *Config, opts ...Option) func(http.Handler) http.Handler {
	return New(cfg, opts...).Wrap
}

// Config returns the route configuration.
func (v *Validator) Config() *Config {
	return v.config
}

// Wrap returns next guarded by the validator.
func (v *Validator) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if v.config.IsEmpty() {
			next.ServeHTTP(w, r)
			return
		}

		r, err := v.Validate(r)
		if err != nil {
			v.onError(w, r, err)
			return
		}

		if v.config.Response == nil {
			next.ServeHTTP(w, r)
			return
		}

		rw := newResponder(w, r, v.config.Response, v.onError)
		next.ServeHTTP(rw, r)
		rw.finish()
	})
}

// Validate checks the request targets of r in order params, query, body,
// headers and stops at the first failure, returning it as an *Error and
// leaving r untouched. Once every target has passed, the coerced values are
// written back onto r and the returned request carries them in its context
// (see ValuesFrom).
//
// Validate can be called directly from handlers that do not use the
// middleware.
func (v *Validator) Validate(r *http.Request) (*http.Request, error) {
	if v.config.IsEmpty() {
		return r, nil
	}

	ctx := r.Context()
	values := &Values{}
	for _, t := range requestTargets {
		s := v.config.Schema(t)
		if s == nil {
			continue
		}

		raw, err := collect(r, t, v.maxBody)
		if err != nil {
			return r, invalid(t, err).Err()
		}
		if t == TargetHeaders {
			raw = matchHeaderNames(raw, s)
		}

		outcome := Check(ctx, t, s, raw)
		if verr := outcome.Err(); verr != nil {
			return r, verr
		}
		values.set(t, outcome.(Passed).Value)
	}

	// The body is applied last: it updates the rebuilt Content-Length header.
	for _, t := range applyOrder {
		if v.config.Schema(t) == nil {
			continue
		}
		if err := apply(r, t, values.Get(t)); err != nil {
			return r, ServerInvalid{Target: t, Cause: err}.Err()
		}
	}

	v.logger.Debug("validation: request accepted",
		"method", r.Method, "path", r.URL.Path, "targets", len(v.config.Targets()))
	return r.WithContext(WithValues(ctx, values)), nil
}
