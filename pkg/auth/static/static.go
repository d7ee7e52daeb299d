// Package static provides an authenticator that matches the whole
// Authorization header value against a single configured token.
package static

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/rhuss/prefectauth/pkg/auth"
)

// Authenticator admits requests whose Authorization header equals token.
type Authenticator struct {
	token        string
	identity     auth.Identity
	constantTime bool
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithConstantTime compares tokens with crypto/subtle instead of ==.
// Outcomes are identical; only the timing profile changes.
func WithConstantTime() Option {
	return func(a *Authenticator) { a.constantTime = true }
}

// New creates an authenticator for one header value. token includes the
// scheme prefix, e.g. "Bearer abc".
func New(token string, identity auth.Identity, opts ...Option) *Authenticator {
	a := &Authenticator{token: token, identity: identity}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// FromCredentials returns the API key and basic-auth authenticators, in that
// order, tagged with the "api" and "user" identities.
func FromCredentials(creds *auth.Credentials, opts ...Option) []auth.Authenticator {
	return []auth.Authenticator{
		New(creds.APIKeyToken(), auth.Identity{Subject: auth.SubjectAPI, Scopes: []string{auth.ScopeAuth}}, opts...),
		New(creds.BasicAuthToken(), auth.Identity{Subject: auth.SubjectUser, Scopes: []string{auth.ScopeAuth}}, opts...),
	}
}

// Authenticate returns Yes when the header matches and Abstain otherwise,
// leaving the final rejection to the chain.
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.AuthResult {
	header := r.Header.Get("Authorization")
	if !a.matches(header) {
		return auth.AuthResult{Decision: auth.Abstain}
	}

	// Copy identity to avoid shared state.
	id := a.identity
	id.Scopes = append([]string(nil), a.identity.Scopes...)
	return auth.AuthResult{Decision: auth.Yes, Identity: &id}
}

func (a *Authenticator) matches(header string) bool {
	if a.constantTime {
		return subtle.ConstantTimeCompare([]byte(header), []byte(a.token)) == 1
	}
	return header == a.token
}
