// Package upstream builds the reverse proxy that forwards authenticated
// traffic to the Prefect server.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/rhuss/prefectauth/pkg/config"
	"github.com/rhuss/prefectauth/pkg/debug"
	"github.com/rhuss/prefectauth/pkg/observability"
)

// New creates a reverse proxy to cfg.URL.
//
// The Authorization header is forwarded unchanged. Upgrade requests
// (websockets) are proxied by httputil.ReverseProxy through the hijacker of
// the underlying response writer.
func New(cfg config.UpstreamConfig) (*httputil.ReverseProxy, error) {
	target, err := config.ParseUpstreamURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("upstream url %w", err)
	}

	rewriteHost := cfg.RewriteHost
	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			if !rewriteHost {
				pr.Out.Host = pr.In.Host
			}
			pr.SetXForwarded()

			debug.Log("proxy", "forwarding request",
				"method", pr.In.Method,
				"path", pr.In.URL.Path,
				"target", pr.Out.URL.String(),
			)
			if debug.TraceIsEnabled("proxy") {
				debug.Trace("proxy", "upstream request headers",
					"request_id", pr.Out.Header.Get("X-Request-ID"),
					"headers", RedactHeaders(pr.Out.Header),
				)
			}
		},
		Transport:     newTransport(cfg),
		FlushInterval: cfg.FlushInterval,
		ErrorLog:      slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
		ErrorHandler:  errorHandler(target),
	}

	return proxy, nil
}

// NewFactory returns a factory that builds a fresh proxy on every call.
// The URL is checked eagerly so misconfiguration fails at startup.
func NewFactory(cfg config.UpstreamConfig) (func() (http.Handler, error), error) {
	if _, err := config.ParseUpstreamURL(cfg.URL); err != nil {
		return nil, fmt.Errorf("upstream url %w", err)
	}
	return func() (http.Handler, error) {
		return New(cfg)
	}, nil
}

// redactedHeaders are replaced by RedactHeaders.
var redactedHeaders = []string{"Authorization", "Proxy-Authorization", "Cookie"}

// RedactHeaders returns a copy of h with credential-bearing values masked,
// keeping the auth scheme so logs still show which credential was used.
func RedactHeaders(h http.Header) http.Header {
	out := h.Clone()
	for _, name := range redactedHeaders {
		values := out.Values(name)
		if len(values) == 0 {
			continue
		}
		masked := make([]string, len(values))
		for i, v := range values {
			scheme, _, found := strings.Cut(v, " ")
			if found && name != "Cookie" {
				masked[i] = scheme + " [REDACTED]"
			} else {
				masked[i] = "[REDACTED]"
			}
		}
		out[http.CanonicalHeaderKey(name)] = masked
	}
	return out
}

func newTransport(cfg config.UpstreamConfig) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: 30 * time.Second,
	}
	t.DialContext = dialer.DialContext
	t.ResponseHeaderTimeout = cfg.ResponseHeaderTimeout
	return t
}

func errorHandler(target *url.URL) func(http.ResponseWriter, *http.Request, error) {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		if errors.Is(err, context.Canceled) {
			// Client went away; nothing to report upstream-side.
			debug.Log("proxy", "client canceled request", "path", r.URL.Path)
			w.WriteHeader(http.StatusBadGateway)
			return
		}

		observability.UpstreamErrorsTotal.Inc()
		slog.Error("upstream request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("upstream", target.Host),
			slog.String("error", err.Error()),
		)
		w.WriteHeader(http.StatusBadGateway)
	}
}
