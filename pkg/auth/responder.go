package auth

import (
	"fmt"
	"net/http"
)

// ErrorHandler answers a rejected request. err is the rejection reason.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Unauthorized is the default ErrorHandler. It writes a plain-text 401 with a
// Basic challenge whose realm carries the rejection reason, so browsers
// prompt for the user credentials.
func Unauthorized(w http.ResponseWriter, _ *http.Request, err error) {
	w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Basic realm="Unauthorized: %s"`, err))
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte("Login required"))
}
