package transport

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/rhuss/prefectauth/pkg/debug"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLen bounds client-supplied IDs so they cannot bloat logs.
const maxRequestIDLen = 128

// RequestID returns middleware that assigns a unique request ID to each
// request. If the incoming request carries an X-Request-ID header, that
// value is used. Otherwise, a new UUID is generated.
//
// The ID is stored in the context (see RequestIDFromContext), set on the
// request forwarded upstream, and echoed in the response.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" || len(id) > maxRequestIDLen {
				if id != "" {
					debug.Log("transport", "replacing oversized request id", "length", len(id))
				}
				id = uuid.NewString()
				r.Header.Set(RequestIDHeader, id)
			}
			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(ContextWithRequestID(r.Context(), id)))
		})
	}
}
