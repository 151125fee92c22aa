package server

import (
	"net/http"

	"github.com/getmockd/routeval/pkg/validation"
)

var echoTargets = []validation.Target{
	validation.TargetParams,
	validation.TargetQuery,
	validation.TargetHeaders,
	validation.TargetBody,
}

// Echo responds with the request as the handler sees it:
//
//	{"params": {...}, "query": {...}, "headers": {...}, "body": ...}
//
// Validated targets show their coerced values, the others their raw
// collections. The payload goes through validation.Send, so a route's
// response schema applies to it.
func Echo(w http.ResponseWriter, r *http.Request) {
	values := validation.ValuesFrom(r.Context())
	payload := make(map[string]any, len(echoTargets))
	for _, t := range echoTargets {
		v := values.Get(t)
		if v == nil {
			v, _ = validation.Collect(r, t)
		}
		payload[string(t)] = v
	}
	_ = validation.Send(w, http.StatusOK, payload)
}

// Reply returns a handler that sends payload with status on every request,
// subject to the route's response schema.
func Reply(status int, payload any) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = validation.Send(w, status, payload)
	})
}
