package transport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rhuss/prefectauth/pkg/observability"
)

// Logging returns middleware that emits a structured access log entry for
// each request: method, path, status, bytes, duration and request ID.
//
// Responses with a 5xx status are logged at ERROR. Requests to quietPaths
// (liveness probes) are logged at DEBUG so they do not flood the log.
func Logging(logger *slog.Logger, quietPaths ...string) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	quiet := make(map[string]bool, len(quietPaths))
	for _, p := range quietPaths {
		quiet[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := observability.NewStatusWriter(w)

			next.ServeHTTP(sw, r)

			attrs := []slog.Attr{
				slog.String("request_id", RequestIDFromContext(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", sw.Status()),
				slog.Int("bytes", sw.Bytes()),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote_addr", r.RemoteAddr),
			}

			switch {
			case sw.Status() >= http.StatusInternalServerError:
				logger.LogAttrs(r.Context(), slog.LevelError, "request failed", attrs...)
			case quiet[r.URL.Path]:
				logger.LogAttrs(r.Context(), slog.LevelDebug, "request completed", attrs...)
			default:
				logger.LogAttrs(r.Context(), slog.LevelInfo, "request completed", attrs...)
			}
		})
	}
}
