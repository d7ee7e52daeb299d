package observability

import (
	"net/http"
	"strconv"
	"time"
)

// MetricsMiddleware wraps an HTTP handler to record request metrics.
//
// It captures:
//   - prefectauth_requests_total (counter): per request with method and status class labels
//   - prefectauth_request_duration_seconds (histogram): request duration with method label
//   - prefectauth_requests_in_flight (gauge): incremented while a request is being served
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		InFlightRequests.Inc()
		defer InFlightRequests.Dec()

		sw := NewStatusWriter(w)
		next.ServeHTTP(sw, r)

		// Build a status class label like "2xx", "4xx", "5xx".
		statusStr := strconv.Itoa(sw.Status()/100) + "xx"

		RequestsTotal.WithLabelValues(r.Method, statusStr).Inc()
		RequestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}

// StatusWriter wraps http.ResponseWriter to capture the status code and the
// number of body bytes written.
type StatusWriter struct {
	http.ResponseWriter
	status  int
	bytes   int
	written bool
}

// NewStatusWriter wraps w. The status defaults to 200 until WriteHeader is called.
func NewStatusWriter(w http.ResponseWriter) *StatusWriter {
	if sw, ok := w.(*StatusWriter); ok {
		return sw
	}
	return &StatusWriter{ResponseWriter: w, status: http.StatusOK}
}

// Status returns the captured status code.
func (w *StatusWriter) Status() int { return w.status }

// Bytes returns the number of body bytes written.
func (w *StatusWriter) Bytes() int { return w.bytes }

// WriteHeader captures the status code and delegates to the underlying writer.
// Informational 1xx headers, which the proxy relays before the final
// response, are not recorded.
func (w *StatusWriter) WriteHeader(status int) {
	if !w.written && status >= http.StatusOK {
		w.status = status
		w.written = true
	}
	w.ResponseWriter.WriteHeader(status)
}

// Write delegates to the underlying writer and marks the status as written.
func (w *StatusWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.written = true
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Flush delegates to the underlying writer if it implements http.Flusher.
// Prefect streams logs and events, so proxied responses must flush through.
func (w *StatusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter, enabling http.ResponseController
// (used by httputil.ReverseProxy for websocket hijacking) to reach the original writer.
func (w *StatusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
