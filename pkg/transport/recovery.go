package transport

import (
	"log/slog"
	"net/http"
	rtdebug "runtime/debug"

	"github.com/rhuss/prefectauth/pkg/debug"
)

// Recovery returns middleware that catches panics in the handler and
// converts them to 500 responses. The server continues to accept new
// requests after a panic is recovered.
//
// http.ErrAbortHandler is re-panicked so net/http can abort the connection
// silently, as httputil.ReverseProxy expects.
func Recovery(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					debug.Log("transport", "handler aborted", "path", r.URL.Path,
						"request_id", RequestIDFromContext(r.Context()))
					panic(rec)
				}
				logger.ErrorContext(r.Context(), "panic recovered",
					slog.String("request_id", RequestIDFromContext(r.Context())),
					slog.String("path", r.URL.Path),
					slog.Any("panic", rec),
					slog.String("stack", string(rtdebug.Stack())),
				)
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
