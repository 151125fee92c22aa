package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/getmockd/routeval/pkg/httputil"
)

// responder is the ResponseWriter handed to handlers of routes with a
// response schema. It is the send capability: nothing reaches the client
// until the payload has been validated.
type responder struct {
	http.ResponseWriter
	r      *http.Request
	schema Schema
	fail   ErrorHandler

	mu     sync.Mutex
	status int
	buf    bytes.Buffer
	sent   bool
}

func newResponder(w http.ResponseWriter, r *http.Request, s Schema, fail ErrorHandler) *responder {
	return &responder{ResponseWriter: w, r: r, schema: s, fail: fail}
}

// WriteHeader records the status; it is written with the validated body.
func (rw *responder) WriteHeader(code int) {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if !rw.sent {
		rw.status = code
	}
}

// Write buffers raw body bytes until the handler returns.
func (rw *responder) Write(b []byte) (int, error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.sent {
		return 0, ErrAlreadySent
	}
	return rw.buf.Write(b)
}

// Unwrap returns the underlying ResponseWriter.
func (rw *responder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// FlushError flushes the underlying writer once the response has been
// sent. Before that the body is still buffered and nothing is flushed.
func (rw *responder) FlushError() error {
	rw.mu.Lock()
	sent := rw.sent
	rw.mu.Unlock()
	if !sent {
		return nil
	}
	return http.NewResponseController(rw.ResponseWriter).Flush()
}

// Flush implements http.Flusher.
func (rw *responder) Flush() {
	_ = rw.FlushError()
}

// send validates payload and transmits the coerced value. It succeeds at
// most once per request.
func (rw *responder) send(status int, payload any) error {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.sent {
		return ErrAlreadySent
	}
	rw.sent = true
	if status == 0 {
		status = rw.status
	}
	return rw.transmit(status, payload)
}

// finish validates whatever the handler wrote directly. It runs after the
// handler returns and does nothing if Send was used or nothing was written.
func (rw *responder) finish() {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.sent {
		return
	}
	rw.sent = true

	if rw.buf.Len() == 0 {
		if rw.status != 0 {
			rw.ResponseWriter.WriteHeader(rw.status)
		}
		return
	}

	var payload any
	if err := json.Unmarshal(rw.buf.Bytes(), &payload); err != nil {
		verr := ServerInvalid{Target: TargetResponse, Cause: fmt.Errorf("response body is not JSON: %w", err)}.Err()
		rw.fail(rw.ResponseWriter, rw.r, verr)
		return
	}
	_ = rw.transmit(rw.status, payload)
}

func (rw *responder) transmit(status int, payload any) error {
	normalized, err := normalize(payload)
	if err != nil {
		verr := ServerInvalid{Target: TargetResponse, Cause: err}.Err()
		rw.fail(rw.ResponseWriter, rw.r, verr)
		return verr
	}

	outcome := Check(rw.r.Context(), TargetResponse, rw.schema, normalized)
	if verr := outcome.Err(); verr != nil {
		rw.fail(rw.ResponseWriter, rw.r, verr)
		return verr
	}

	if status == 0 {
		status = http.StatusOK
	}
	httputil.WriteJSON(rw.ResponseWriter, status, outcome.(Passed).Value)
	return nil
}

// normalize converts a payload to plain JSON types so every engine sees the
// same shapes whether the handler sent a struct or a map.
func normalize(payload any) (any, error) {
	switch payload.(type) {
	case nil, string, bool, float64:
		return payload, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("response payload is not serializable: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Send writes payload as the JSON response with the given status (0 means
// 200). On routes with a response schema the payload is validated first:
// the coerced value is written on success; on failure nothing of the
// payload is written, the ErrorHandler receives a 500 *Error, and Send
// returns it. A second call returns ErrAlreadySent.
//
// Without a response schema the payload is written verbatim.
func Send(w http.ResponseWriter, status int, payload any) error {
	if rw := findResponder(w); rw != nil {
		return rw.send(status, payload)
	}
	if status == 0 {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, payload)
	return nil
}

// findResponder walks the Unwrap chain of w looking for the capability
// installed by the middleware.
func findResponder(w http.ResponseWriter) *responder {
	for w != nil {
		switch t := w.(type) {
		case *responder:
			return t
		case interface{ Unwrap() http.ResponseWriter }:
			w = t.Unwrap()
		default:
			return nil
		}
	}
	return nil
}
