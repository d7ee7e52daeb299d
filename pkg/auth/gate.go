package auth

import (
	"context"
	"net/http"
)

// HealthPath is the liveness endpoint that never requires credentials.
const HealthPath = "/api/health"

// Verdict is the gate's per-request decision.
type Verdict int

const (
	// Admitted means the request carried a valid token and has an identity.
	Admitted Verdict = iota

	// Rejected means the token was missing or invalid.
	Rejected

	// Bypassed means the path is exempt; the request proceeds without identity.
	Bypassed
)

// String returns the lower-case verdict name used in logs and metrics.
func (v Verdict) String() string {
	switch v {
	case Admitted:
		return "admitted"
	case Rejected:
		return "rejected"
	case Bypassed:
		return "bypassed"
	default:
		return "unknown"
	}
}

// Outcome is the result of Gate.Authenticate.
type Outcome struct {
	Verdict  Verdict
	Identity *Identity // set only when Verdict == Admitted
	Err      error     // ErrNoToken or ErrInvalidToken when Verdict == Rejected
}

// Gate decides whether a request may reach the wrapped application.
// It holds no mutable state and is safe for concurrent use.
type Gate struct {
	chain *AuthChain
}

// NewGate creates a gate that matches Authorization headers with chain.
func NewGate(chain *AuthChain) *Gate {
	if chain == nil {
		chain = &AuthChain{}
	}
	return &Gate{chain: chain}
}

// Authenticate inspects the request path and Authorization header.
//
// The health path is bypassed regardless of headers. A request without an
// Authorization header is rejected with ErrNoToken. Otherwise the header is
// handed to the chain, which admits it or rejects it with ErrInvalidToken.
func (g *Gate) Authenticate(ctx context.Context, r *http.Request) Outcome {
	if r.URL.Path == HealthPath {
		return Outcome{Verdict: Bypassed}
	}

	if len(r.Header.Values("Authorization")) == 0 {
		return Outcome{Verdict: Rejected, Err: ErrNoToken}
	}

	result := g.chain.Authenticate(ctx, r)
	if result.Decision == Yes && result.Identity != nil {
		return Outcome{Verdict: Admitted, Identity: result.Identity}
	}

	err := result.Err
	if err == nil {
		err = ErrInvalidToken
	}
	return Outcome{Verdict: Rejected, Err: err}
}
