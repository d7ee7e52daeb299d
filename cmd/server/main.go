// Command server runs the prefectauth proxy in front of a Prefect server.
//
// Configuration is read from an optional YAML file (-config, or
// PREFECTAUTH_CONFIG) and environment variables:
//
//	PREFECT_API_KEY           - accepted as "Authorization: Bearer <key>" (required)
//	PREFECT_BASIC_AUTH        - accepted as "Authorization: Basic <value>" (required)
//	PREFECT_SERVER_API_HOST   - listen host (default: 127.0.0.1)
//	PREFECT_SERVER_API_PORT   - listen port (default: 4200)
//	PREFECTAUTH_UPSTREAM_URL  - Prefect server to forward to (required)
//	PREFECTAUTH_LOG_LEVEL     - TRACE, DEBUG, INFO, WARN or ERROR
//	PREFECTAUTH_DEBUG         - debug categories (auth, proxy, transport, config, all)
//	PREFECTAUTH_METRICS_ADDR  - enables the metrics listener on this address
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rhuss/prefectauth/pkg/app"
	"github.com/rhuss/prefectauth/pkg/config"
	"github.com/rhuss/prefectauth/pkg/debug"
	"github.com/rhuss/prefectauth/pkg/observability"
	transporthttp "github.com/rhuss/prefectauth/pkg/transport/http"
	"github.com/rhuss/prefectauth/pkg/upstream"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	debug.Init(cfg.Logging.Debug, cfg.Logging.Level)
	logger := slog.Default()
	if cats := debug.Categories(); len(cats) > 0 {
		logger.Info("debug categories enabled", "categories", cats)
	}

	factory, err := upstream.NewFactory(cfg.Upstream)
	if err != nil {
		return fmt.Errorf("configuring upstream: %w", err)
	}

	handler, err := app.New(cfg, factory)
	if err != nil {
		return fmt.Errorf("composing app: %w", err)
	}

	servers := []*transporthttp.Server{
		transporthttp.NewServer(handler,
			transporthttp.WithName("server"),
			transporthttp.WithAddr(cfg.Server.Addr()),
			transporthttp.WithReadHeaderTimeout(cfg.Server.ReadHeaderTimeout),
			transporthttp.WithIdleTimeout(cfg.Server.IdleTimeout),
			transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
			transporthttp.WithLogger(logger),
		),
	}

	metrics := cfg.Observability.Metrics
	if metrics.Enabled {
		servers = append(servers, transporthttp.NewServer(observability.Handler(metrics.Path),
			transporthttp.WithName("metrics server"),
			transporthttp.WithAddr(metrics.Addr),
			transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
			transporthttp.WithLogger(logger),
		))
	}

	logger.Info("proxying Prefect server",
		"listen", cfg.Server.Addr(),
		"upstream", cfg.Upstream.URL,
		"metrics", metrics.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A failing server stops the others.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func() {
			err := srv.Run(ctx)
			if err != nil {
				err = fmt.Errorf("%s: %w", srv.Addr(), err)
			}
			cancel()
			errCh <- err
		}()
	}

	var firstErr error
	for range servers {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
