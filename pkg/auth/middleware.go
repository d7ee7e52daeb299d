package auth

import (
	"log/slog"
	"net/http"

	"github.com/rhuss/prefectauth/pkg/debug"
	"github.com/rhuss/prefectauth/pkg/observability"
)

// Middleware creates HTTP middleware from a Gate. Admitted requests reach
// next with their identity in the context, bypassed requests reach next
// untouched, and rejected requests are answered by onError (Unauthorized
// when nil) without reaching next.
func Middleware(gate *Gate, onError ErrorHandler) func(http.Handler) http.Handler {
	if onError == nil {
		onError = Unauthorized
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			outcome := gate.Authenticate(r.Context(), r)

			switch outcome.Verdict {
			case Bypassed:
				observability.AuthDecisionsTotal.WithLabelValues(outcome.Verdict.String(), "", "").Inc()
				next.ServeHTTP(w, r)

			case Admitted:
				observability.AuthDecisionsTotal.WithLabelValues(outcome.Verdict.String(), outcome.Identity.Subject, "").Inc()
				debug.Log("auth", "authentication succeeded",
					"subject", outcome.Identity.Subject,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)
				next.ServeHTTP(w, r.WithContext(SetIdentity(r.Context(), outcome.Identity)))

			default:
				err := outcome.Err
				if err == nil {
					err = ErrInvalidToken
				}
				observability.AuthDecisionsTotal.WithLabelValues(Rejected.String(), "", err.Error()).Inc()
				slog.Warn("authentication failed",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"error", err,
				)
				onError(w, r, err)
			}
		})
	}
}
