package config

import (
	"bytes"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rhuss/prefectauth/pkg/debug"
)

// clearEnv blanks every variable the loader reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PREFECT_API_KEY",
		"PREFECT_BASIC_AUTH",
		"PREFECT_SERVER_API_HOST",
		"PREFECT_SERVER_API_PORT",
		"PREFECTAUTH_CONFIG",
		"PREFECTAUTH_UPSTREAM_URL",
		"PREFECTAUTH_METRICS_ADDR",
	} {
		t.Setenv(k, "")
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("default server.host = %q, want \"127.0.0.1\"", cfg.Server.Host)
	}
	if cfg.Server.Port != 4200 {
		t.Errorf("default server.port = %d, want 4200", cfg.Server.Port)
	}
	if cfg.Server.Addr() != "127.0.0.1:4200" {
		t.Errorf("default server addr = %q, want \"127.0.0.1:4200\"", cfg.Server.Addr())
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("default server.shutdown_timeout = %v, want 30s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Upstream.FlushInterval != -1 {
		t.Errorf("default upstream.flush_interval = %v, want -1", cfg.Upstream.FlushInterval)
	}
	if cfg.Upstream.DialTimeout != 10*time.Second {
		t.Errorf("default upstream.dial_timeout = %v, want 10s", cfg.Upstream.DialTimeout)
	}
	if cfg.Auth.ConstantTimeCompare {
		t.Error("default auth.constant_time_compare = true, want false")
	}
	if cfg.Observability.Metrics.Enabled {
		t.Error("default observability.metrics.enabled = true, want false")
	}
	if cfg.Observability.Metrics.Path != "/metrics" {
		t.Errorf("default observability.metrics.path = %q, want \"/metrics\"", cfg.Observability.Metrics.Path)
	}
}

func TestLoadFromYAML(t *testing.T) {
	clearEnv(t)

	yamlContent := `
server:
  host: 0.0.0.0
  port: 8443
  read_header_timeout: 5s
  shutdown_timeout: 15s
upstream:
  url: http://prefect:4200
  dial_timeout: 3s
  response_header_timeout: 1m
  flush_interval: 100ms
  rewrite_host: true
auth:
  api_key: abc
  basic_auth: dXNlcjpwYXNz
  constant_time_compare: true
logging:
  level: debug
  debug: auth,proxy
observability:
  metrics:
    enabled: true
    addr: ":9100"
    path: /prom
`
	cfg, err := Load(writeTemp(t, "config-*.yaml", yamlContent))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Addr() != "0.0.0.0:8443" {
		t.Errorf("server addr = %q, want \"0.0.0.0:8443\"", cfg.Server.Addr())
	}
	if cfg.Server.ReadHeaderTimeout != 5*time.Second {
		t.Errorf("server.read_header_timeout = %v, want 5s", cfg.Server.ReadHeaderTimeout)
	}
	if cfg.Server.ShutdownTimeout != 15*time.Second {
		t.Errorf("server.shutdown_timeout = %v, want 15s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Upstream.URL != "http://prefect:4200" {
		t.Errorf("upstream.url = %q, want \"http://prefect:4200\"", cfg.Upstream.URL)
	}
	if cfg.Upstream.DialTimeout != 3*time.Second {
		t.Errorf("upstream.dial_timeout = %v, want 3s", cfg.Upstream.DialTimeout)
	}
	if cfg.Upstream.ResponseHeaderTimeout != time.Minute {
		t.Errorf("upstream.response_header_timeout = %v, want 1m", cfg.Upstream.ResponseHeaderTimeout)
	}
	if cfg.Upstream.FlushInterval != 100*time.Millisecond {
		t.Errorf("upstream.flush_interval = %v, want 100ms", cfg.Upstream.FlushInterval)
	}
	if !cfg.Upstream.RewriteHost {
		t.Error("upstream.rewrite_host = false, want true")
	}
	if cfg.Auth.APIKey != "abc" {
		t.Errorf("auth.api_key = %q, want \"abc\"", cfg.Auth.APIKey)
	}
	if cfg.Auth.BasicAuth != "dXNlcjpwYXNz" {
		t.Errorf("auth.basic_auth = %q, want \"dXNlcjpwYXNz\"", cfg.Auth.BasicAuth)
	}
	if !cfg.Auth.ConstantTimeCompare {
		t.Error("auth.constant_time_compare = false, want true")
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Debug != "auth,proxy" {
		t.Errorf("logging = %+v, want level debug, categories auth,proxy", cfg.Logging)
	}
	if !cfg.Observability.Metrics.Enabled || cfg.Observability.Metrics.Addr != ":9100" || cfg.Observability.Metrics.Path != "/prom" {
		t.Errorf("observability.metrics = %+v, want enabled on :9100 at /prom", cfg.Observability.Metrics)
	}
}

func TestEnvOverride(t *testing.T) {
	clearEnv(t)

	yamlContent := `
server:
  host: 0.0.0.0
  port: 9090
upstream:
  url: http://from-yaml:4200
auth:
  api_key: yaml-key
  basic_auth: yaml-basic
`
	tmpFile := writeTemp(t, "config-*.yaml", yamlContent)

	t.Setenv("PREFECT_API_KEY", "env-key")
	t.Setenv("PREFECT_BASIC_AUTH", "env-basic")
	t.Setenv("PREFECT_SERVER_API_HOST", "10.0.0.1")
	t.Setenv("PREFECT_SERVER_API_PORT", "7070")
	t.Setenv("PREFECTAUTH_UPSTREAM_URL", "http://from-env:4200")
	t.Setenv("PREFECTAUTH_METRICS_ADDR", ":9200")

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Auth.APIKey != "env-key" {
		t.Errorf("auth.api_key = %q, want env override", cfg.Auth.APIKey)
	}
	if cfg.Auth.BasicAuth != "env-basic" {
		t.Errorf("auth.basic_auth = %q, want env override", cfg.Auth.BasicAuth)
	}
	if cfg.Server.Addr() != "10.0.0.1:7070" {
		t.Errorf("server addr = %q, want env override 10.0.0.1:7070", cfg.Server.Addr())
	}
	if cfg.Upstream.URL != "http://from-env:4200" {
		t.Errorf("upstream.url = %q, want env override", cfg.Upstream.URL)
	}
	if !cfg.Observability.Metrics.Enabled || cfg.Observability.Metrics.Addr != ":9200" {
		t.Errorf("observability.metrics = %+v, want enabled on :9200", cfg.Observability.Metrics)
	}
}

func TestEnvOnly(t *testing.T) {
	clearEnv(t)
	t.Setenv("PREFECT_API_KEY", "abc")
	t.Setenv("PREFECT_BASIC_AUTH", "dXNlcjpwYXNz")
	t.Setenv("PREFECTAUTH_UPSTREAM_URL", "http://127.0.0.1:4201")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Auth.APIKey != "abc" || cfg.Auth.BasicAuth != "dXNlcjpwYXNz" {
		t.Errorf("auth = %+v, want credentials from env", cfg.Auth)
	}
	if cfg.Server.Addr() != "127.0.0.1:4200" {
		t.Errorf("server addr = %q, want default", cfg.Server.Addr())
	}
}

func TestInvalidPortEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PREFECT_API_KEY", "abc")
	t.Setenv("PREFECT_BASIC_AUTH", "dXNlcjpwYXNz")
	t.Setenv("PREFECTAUTH_UPSTREAM_URL", "http://127.0.0.1:4201")
	t.Setenv("PREFECT_SERVER_API_PORT", "forty-two")

	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "PREFECT_SERVER_API_PORT") {
		t.Errorf("Load() error = %v, want PREFECT_SERVER_API_PORT error", err)
	}
}

func TestMissingCredentialsFailFast(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr []string
	}{
		{
			name:    "no api key",
			env:     map[string]string{"PREFECT_BASIC_AUTH": "dXNlcjpwYXNz"},
			wantErr: []string{"auth.api_key is required"},
		},
		{
			name:    "no basic auth",
			env:     map[string]string{"PREFECT_API_KEY": "abc"},
			wantErr: []string{"auth.basic_auth is required"},
		},
		{
			name:    "neither",
			env:     map[string]string{},
			wantErr: []string{"auth.api_key is required", "auth.basic_auth is required"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("PREFECTAUTH_UPSTREAM_URL", "http://127.0.0.1:4201")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load("")
			if err == nil {
				t.Fatalf("Load() = %+v, want error", cfg)
			}
			for _, want := range tt.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("Load() error = %q, want it to contain %q", err, want)
				}
			}
		})
	}
}

func TestFileReference(t *testing.T) {
	clearEnv(t)

	keyFile := writeTemp(t, "apikey-*.txt", "  abc-from-file  \n")
	basicFile := writeTemp(t, "basic-*.txt", "dXNlcjpwYXNz\n")

	yamlContent := `
upstream:
  url: http://localhost:4201
auth:
  api_key_file: ` + keyFile + `
  basic_auth_file: ` + basicFile + `
`
	cfg, err := Load(writeTemp(t, "config-*.yaml", yamlContent))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Auth.APIKey != "abc-from-file" {
		t.Errorf("auth.api_key = %q, want \"abc-from-file\" (from file, trimmed)", cfg.Auth.APIKey)
	}
	if cfg.Auth.BasicAuth != "dXNlcjpwYXNz" {
		t.Errorf("auth.basic_auth = %q, want value from file", cfg.Auth.BasicAuth)
	}
}

func TestFileReferenceDoesNotOverrideExplicitValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("PREFECT_API_KEY", "from-env")

	keyFile := writeTemp(t, "apikey-*.txt", "from-file")
	yamlContent := `
upstream:
  url: http://localhost:4201
auth:
  api_key_file: ` + keyFile + `
  basic_auth: dXNlcjpwYXNz
`
	cfg, err := Load(writeTemp(t, "config-*.yaml", yamlContent))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Auth.APIKey != "from-env" {
		t.Errorf("auth.api_key = %q, want explicit env value to win over file", cfg.Auth.APIKey)
	}
}

func TestFileReferenceMissingFile(t *testing.T) {
	clearEnv(t)
	yamlContent := `
upstream:
  url: http://localhost:4201
auth:
  api_key: abc
  basic_auth_file: /nonexistent/basic-auth
`
	_, err := Load(writeTemp(t, "config-*.yaml", yamlContent))
	if err == nil || !strings.Contains(err.Error(), "auth.basic_auth_file") {
		t.Errorf("Load() error = %v, want auth.basic_auth_file error", err)
	}
}

func TestFileDiscovery(t *testing.T) {
	clearEnv(t)
	t.Setenv("PREFECT_API_KEY", "abc")
	t.Setenv("PREFECT_BASIC_AUTH", "dXNlcjpwYXNz")

	// Explicit path.
	tmpFile := writeTemp(t, "config-*.yaml", "upstream:\n  url: http://explicit:4200\n")
	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load(explicit) error: %v", err)
	}
	if cfg.Upstream.URL != "http://explicit:4200" {
		t.Errorf("explicit path: upstream.url = %q, want explicit value", cfg.Upstream.URL)
	}

	// PREFECTAUTH_CONFIG env var.
	envFile := writeTemp(t, "envconfig-*.yaml", "upstream:\n  url: http://env-config:4200\n")
	t.Setenv("PREFECTAUTH_CONFIG", envFile)

	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Load(PREFECTAUTH_CONFIG) error: %v", err)
	}
	if cfg.Upstream.URL != "http://env-config:4200" {
		t.Errorf("PREFECTAUTH_CONFIG: upstream.url = %q, want env config value", cfg.Upstream.URL)
	}
}

func TestUnknownYAMLKeyRejected(t *testing.T) {
	clearEnv(t)
	yamlContent := `
upstream:
  url: http://localhost:4201
auth:
  apikey: abc
  basic_auth: dXNlcjpwYXNz
`
	if _, err := Load(writeTemp(t, "config-*.yaml", yamlContent)); err == nil {
		t.Error("Load() with misspelled auth.apikey succeeded, want error")
	}
}

func TestEmptyYAMLFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("PREFECT_API_KEY", "abc")
	t.Setenv("PREFECT_BASIC_AUTH", "dXNlcjpwYXNz")
	t.Setenv("PREFECTAUTH_UPSTREAM_URL", "http://localhost:4201")

	cfg, err := Load(writeTemp(t, "config-*.yaml", ""))
	if err != nil {
		t.Fatalf("Load(empty file) error: %v", err)
	}
	if cfg.Server.Port != 4200 {
		t.Errorf("server.port = %d, want default 4200", cfg.Server.Port)
	}
}

func TestYAMLDefaultsMerge(t *testing.T) {
	clearEnv(t)
	yamlContent := `
upstream:
  url: http://localhost:4201
auth:
  api_key: abc
  basic_auth: dXNlcjpwYXNz
`
	cfg, err := Load(writeTemp(t, "config-*.yaml", yamlContent))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 4200 {
		t.Errorf("server.port = %d, want default 4200", cfg.Server.Port)
	}
	if cfg.Upstream.FlushInterval != -1 {
		t.Errorf("upstream.flush_interval = %v, want default -1", cfg.Upstream.FlushInterval)
	}
	if cfg.Observability.Metrics.Path != "/metrics" {
		t.Errorf("observability.metrics.path = %q, want default", cfg.Observability.Metrics.Path)
	}
}

func TestValidation(t *testing.T) {
	valid := func(c *Config) {
		c.Auth.APIKey = "abc"
		c.Auth.BasicAuth = "dXNlcjpwYXNz"
		c.Upstream.URL = "http://localhost:4201"
	}

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:    "missing upstream url",
			modify:  func(c *Config) { valid(c); c.Upstream.URL = "" },
			wantErr: "upstream.url is required",
		},
		{
			name:    "relative upstream url",
			modify:  func(c *Config) { valid(c); c.Upstream.URL = "/prefect" },
			wantErr: "upstream.url must be an absolute http(s) URL",
		},
		{
			name:    "unsupported upstream scheme",
			modify:  func(c *Config) { valid(c); c.Upstream.URL = "ftp://prefect:21" },
			wantErr: "upstream.url must be an absolute http(s) URL",
		},
		{
			name:    "invalid port",
			modify:  func(c *Config) { valid(c); c.Server.Port = 0 },
			wantErr: "server.port must be between 1 and 65535",
		},
		{
			name:    "port too large",
			modify:  func(c *Config) { valid(c); c.Server.Port = 70000 },
			wantErr: "server.port must be between 1 and 65535",
		},
		{
			name:    "zero shutdown timeout",
			modify:  func(c *Config) { valid(c); c.Server.ShutdownTimeout = 0 },
			wantErr: "server.shutdown_timeout must be > 0",
		},
		{
			name: "metrics without addr",
			modify: func(c *Config) {
				valid(c)
				c.Observability.Metrics.Enabled = true
				c.Observability.Metrics.Addr = ""
			},
			wantErr: "observability.metrics.addr is required",
		},
		{
			name: "metrics on the server address",
			modify: func(c *Config) {
				valid(c)
				c.Observability.Metrics.Enabled = true
				c.Observability.Metrics.Addr = c.Server.Addr()
			},
			wantErr: "observability.metrics.addr must differ",
		},
		{
			name: "metrics path without slash",
			modify: func(c *Config) {
				valid(c)
				c.Observability.Metrics.Enabled = true
				c.Observability.Metrics.Path = "metrics"
			},
			wantErr: "observability.metrics.path must start with",
		},
		{
			name:    "upstream is the proxy itself",
			modify:  func(c *Config) { valid(c); c.Upstream.URL = "http://127.0.0.1:4200" },
			wantErr: "points at the proxy's own address",
		},
		{
			name: "upstream shares the prefect host and port",
			modify: func(c *Config) {
				valid(c)
				c.Server.Host = "0.0.0.0"
				c.Upstream.URL = "http://localhost:4200/api"
			},
			wantErr: "points at the proxy's own address",
		},
		{
			name: "upstream on default http port",
			modify: func(c *Config) {
				valid(c)
				c.Server.Port = 80
				c.Upstream.URL = "http://127.0.0.1"
			},
			wantErr: "points at the proxy's own address",
		},
		{
			name:    "upstream on another port",
			modify:  func(c *Config) { valid(c); c.Upstream.URL = "http://127.0.0.1:4201" },
			wantErr: "",
		},
		{
			name:    "upstream on another host",
			modify:  func(c *Config) { valid(c); c.Upstream.URL = "http://prefect-server:4200" },
			wantErr: "",
		},
		{
			name:    "valid config",
			modify:  valid,
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			err := cfg.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}

			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestParseUpstreamURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{name: "http", raw: "http://127.0.0.1:4201"},
		{name: "https with path", raw: "https://prefect.internal/base"},
		{name: "empty", raw: "", wantErr: "is required"},
		{name: "bad scheme", raw: "ftp://host", wantErr: "absolute http(s) URL"},
		{name: "no host", raw: "http://", wantErr: "absolute http(s) URL"},
		{name: "port only", raw: "http://:4200", wantErr: "absolute http(s) URL"},
		{name: "relative", raw: "/prefect", wantErr: "absolute http(s) URL"},
		{name: "unparseable", raw: "http://[::1", wantErr: "is not a valid URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseUpstreamURL(tt.raw)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadLogsConfigFileUnderConfigCategory(t *testing.T) {
	clearEnv(t)
	t.Setenv("PREFECTAUTH_DEBUG", "")
	t.Setenv("PREFECT_API_KEY", "abc")
	t.Setenv("PREFECT_BASIC_AUTH", "dXNlcjpwYXNz")

	var buf bytes.Buffer
	prev := slog.Default()
	debug.Init("config", "DEBUG")
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() {
		debug.Init("", "")
		slog.SetDefault(prev)
	})

	path := writeTemp(t, "config-*.yaml", "upstream:\n  url: http://prefect:4200\n")
	if _, err := Load(path); err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "loaded config file") || !strings.Contains(out, path) {
		t.Errorf("missing config debug line: %s", out)
	}
}

func TestEmptySecretEnvTreatedAsMissing(t *testing.T) {
	clearEnv(t)
	t.Setenv("PREFECTAUTH_UPSTREAM_URL", "http://127.0.0.1:4201")
	t.Setenv("PREFECT_API_KEY", "")
	t.Setenv("PREFECT_BASIC_AUTH", "dXNlcjpwYXNz")

	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "auth.api_key is required") {
		t.Errorf("Load() error = %v, want missing api key", err)
	}
}

// writeTemp creates a temporary file with the given content and returns its path.
// The file is automatically cleaned up when the test finishes.
func writeTemp(t *testing.T, pattern, content string) string {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), pattern)
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}

	if _, err := f.WriteString(content); err != nil {
		f.Close()
		t.Fatalf("writing temp file: %v", err)
	}
	f.Close()

	return f.Name()
}
