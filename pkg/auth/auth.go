package auth

import (
	"context"
	"errors"
	"net/http"
)

// AuthDecision represents the three possible votes of an authenticator.
type AuthDecision int

const (
	// Yes means credentials are valid. The chain stops and the identity is used.
	Yes AuthDecision = iota

	// No means credentials are present but invalid. The chain stops and the
	// request is rejected.
	No

	// Abstain means this authenticator does not recognise the credentials.
	// The chain continues to the next authenticator.
	Abstain
)

// AuthResult carries the outcome of an authentication attempt.
type AuthResult struct {
	Decision AuthDecision
	Identity *Identity // populated only when Decision == Yes
	Err      error     // populated only when Decision == No
}

// Identity labels and scope attached to admitted requests.
const (
	SubjectAPI  = "api"
	SubjectUser = "user"
	ScopeAuth   = "auth"
)

// Identity represents an authenticated caller.
type Identity struct {
	// Subject is the caller label, SubjectAPI or SubjectUser.
	Subject string

	// Scopes lists the authorization scopes granted.
	Scopes []string
}

// HasScope reports whether the identity was granted scope.
func (id *Identity) HasScope(scope string) bool {
	if id == nil {
		return false
	}
	for _, s := range id.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Authenticator examines request credentials and returns a three-outcome vote.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) AuthResult
}

// Sentinel errors. Their messages are the rejection reasons reported in the
// WWW-Authenticate realm.
var (
	ErrNoToken      = errors.New("no token")
	ErrInvalidToken = errors.New("invalid token")
)

// AuthChain evaluates authenticators in order using three-outcome voting.
type AuthChain struct {
	// Authenticators are evaluated left to right.
	Authenticators []Authenticator
}

// Authenticate runs the chain. Stops on the first Yes or No.
// If all abstain, the credentials matched nothing and the chain votes No.
func (c *AuthChain) Authenticate(ctx context.Context, r *http.Request) AuthResult {
	for _, authn := range c.Authenticators {
		result := authn.Authenticate(ctx, r)
		if result.Decision != Abstain {
			return result
		}
	}

	return AuthResult{
		Decision: No,
		Err:      ErrInvalidToken,
	}
}
