package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	// Both credentials are required; the proxy must not start without them.
	if c.Auth.APIKey == "" {
		errs = append(errs, fmt.Errorf("auth.api_key is required (PREFECT_API_KEY or auth.api_key_file)"))
	}
	if c.Auth.BasicAuth == "" {
		errs = append(errs, fmt.Errorf("auth.basic_auth is required (PREFECT_BASIC_AUTH or auth.basic_auth_file)"))
	}

	if u, err := ParseUpstreamURL(c.Upstream.URL); err != nil {
		errs = append(errs, fmt.Errorf("upstream.url %w", err))
	} else if pointsAtListener(u, c.Server.Host, c.Server.Port) {
		errs = append(errs, fmt.Errorf("upstream.url %q points at the proxy's own address %s", c.Upstream.URL, c.Server.Addr()))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.shutdown_timeout must be > 0, got %s", c.Server.ShutdownTimeout))
	}

	if m := c.Observability.Metrics; m.Enabled {
		if m.Addr == "" {
			errs = append(errs, fmt.Errorf("observability.metrics.addr is required when metrics are enabled"))
		} else if m.Addr == c.Server.Addr() {
			errs = append(errs, fmt.Errorf("observability.metrics.addr must differ from the server address %q", m.Addr))
		}
		if !strings.HasPrefix(m.Path, "/") {
			errs = append(errs, fmt.Errorf("observability.metrics.path must start with \"/\", got %q", m.Path))
		}
	}

	return errors.Join(errs...)
}
