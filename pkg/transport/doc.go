// Package transport provides the HTTP middleware pipeline that runs ahead of
// the authentication gate.
//
// A Middleware is a func(http.Handler) http.Handler. Chain composes them so
// that the first one listed is the outermost wrapper. The built-in stages are
// panic recovery, request ID assignment (X-Request-ID), and structured access
// logging via log/slog.
//
// The server lifecycle (listen, graceful shutdown) lives in the http
// subpackage.
package transport
