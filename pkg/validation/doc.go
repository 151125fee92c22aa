// Package validation provides per-route request and response validation
// middleware for net/http.
//
// A route is described by a Config naming a Schema for each surface that
// should be checked:
//   - Params: the wildcards of the route pattern ("GET /users/{id}")
//   - Query: the URL query string
//   - Body: the decoded request body (JSON or form encoded)
//   - Headers: the request headers, keyed by lower-case name
//   - Response: the payload the handler sends back
//
// Targets without a schema are not validated, and a nil Config turns the
// middleware into a passthrough.
//
// # Basic Usage
//
//	cfg := &validation.Config{
//	    Query: &schema.Object{Fields: map[string]*schema.Field{
//	        "limit":  {Type: "number", Default: 20},
//	        "offset": {Type: "number", Default: 0},
//	    }},
//	}
//	mux.Handle("GET /users", validation.Middleware(cfg)(listUsers))
//
// Request targets are checked in the order params, query, body, headers. The
// first failure stops the chain and is handed to the ErrorHandler as an
// *Error with a 400-class status. On success the coerced values replace the
// request's own: path values, URL.RawQuery, headers and body are rewritten,
// and the typed values are available from ValuesFrom and Get.
//
// # Response Validation
//
// When Config.Response is set, the handler should send its payload with Send:
//
//	func getUser(w http.ResponseWriter, r *http.Request) {
//	    user := lookup(r.PathValue("id"))
//	    _ = validation.Send(w, http.StatusOK, user)
//	}
//
// The payload is validated before anything is written. A violation is a
// server-side bug, so it is reported with status 500 and the payload is never
// transmitted. Handlers that write JSON to the ResponseWriter directly are
// buffered and validated the same way once they return.
//
// # Errors
//
// Every failure reaches the ErrorHandler as an *Error carrying the Target,
// the HTTP status and the engine's original error. The default handler
// renders a JSON body:
//
//	{"statusCode":400,"error":"Bad Request","message":"\"limit\" must be a number","target":"query"}
//
// Server-side failures are rendered with a generic message and logged.
package validation
