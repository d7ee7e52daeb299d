package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns a mux that serves the default Prometheus registry at path.
// It is meant for a dedicated listener, separate from the authenticated one.
func Handler(path string) http.Handler {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle("GET "+path, promhttp.Handler())
	return mux
}
