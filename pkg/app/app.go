// Package app composes the wrapped Prefect application with the
// authentication gate and the request pipeline.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/rhuss/prefectauth/pkg/auth"
	"github.com/rhuss/prefectauth/pkg/auth/static"
	"github.com/rhuss/prefectauth/pkg/config"
	"github.com/rhuss/prefectauth/pkg/observability"
	"github.com/rhuss/prefectauth/pkg/transport"
)

// Factory builds the application that receives admitted requests.
type Factory func() (http.Handler, error)

// Option configures Compose.
type Option func(*options)

type options struct {
	onError auth.ErrorHandler
}

// WithErrorHandler replaces the response written for rejected requests.
func WithErrorHandler(h auth.ErrorHandler) Option {
	return func(o *options) { o.onError = h }
}

// Compose calls factory once and wraps the result with the gate. Every
// call builds a new application; nothing is cached.
func Compose(factory Factory, gate *auth.Gate, opts ...Option) (http.Handler, error) {
	if factory == nil {
		return nil, errors.New("app factory is nil")
	}
	if gate == nil {
		return nil, errors.New("auth gate is nil")
	}

	o := options{onError: auth.Unauthorized}
	for _, opt := range opts {
		opt(&o)
	}

	inner, err := factory()
	if err != nil {
		return nil, fmt.Errorf("building wrapped application: %w", err)
	}
	if inner == nil {
		return nil, errors.New("app factory returned a nil handler")
	}

	return auth.Middleware(gate, o.onError)(inner), nil
}

// NewGate builds the gate for the credentials in cfg.
func NewGate(cfg config.AuthConfig) (*auth.Gate, error) {
	creds, err := auth.NewCredentials(cfg.APIKey, cfg.BasicAuth)
	if err != nil {
		return nil, err
	}

	var opts []static.Option
	if cfg.ConstantTimeCompare {
		opts = append(opts, static.WithConstantTime())
	}

	return auth.NewGate(&auth.AuthChain{
		Authenticators: static.FromCredentials(creds, opts...),
	}), nil
}

// New builds the complete handler served on the authenticated listener:
// recovery, request ID, access log and metrics around the gated
// application.
func New(cfg *config.Config, factory Factory, opts ...Option) (http.Handler, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	gate, err := NewGate(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("building auth gate: %w", err)
	}

	gated, err := Compose(factory, gate, opts...)
	if err != nil {
		return nil, err
	}

	logger := slog.Default()
	pipeline := transport.Chain(
		transport.Recovery(logger),
		transport.RequestID(),
		transport.Logging(logger, auth.HealthPath),
		observability.MetricsMiddleware,
	)

	return pipeline(gated), nil
}
