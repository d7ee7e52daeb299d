// Package config provides unified configuration for the prefectauth proxy.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (Prefect names plus PREFECTAUTH_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
//
// The credentials are read once here and never reloaded.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all configuration for the prefectauth proxy.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Upstream      UpstreamConfig      `yaml:"upstream"`
	Auth          AuthConfig          `yaml:"auth"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds the authenticated listener settings.
type ServerConfig struct {
	Host              string        `yaml:"host"`                // default: "127.0.0.1"
	Port              int           `yaml:"port"`                // default: 4200
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"` // default: 10s
	IdleTimeout       time.Duration `yaml:"idle_timeout"`        // default: 120s
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`    // default: 30s
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// UpstreamConfig describes the Prefect server requests are forwarded to.
type UpstreamConfig struct {
	URL                   string        `yaml:"url"`                     // required
	DialTimeout           time.Duration `yaml:"dial_timeout"`            // default: 10s
	ResponseHeaderTimeout time.Duration `yaml:"response_header_timeout"` // default: 0 (none)
	FlushInterval         time.Duration `yaml:"flush_interval"`          // default: -1 (flush every write)
	RewriteHost           bool          `yaml:"rewrite_host"`            // default: false (keep inbound Host)
}

// AuthConfig holds the two accepted credentials.
type AuthConfig struct {
	APIKey              string `yaml:"api_key"`               // required
	APIKeyFile          string `yaml:"api_key_file"`          // _file variant for api_key
	BasicAuth           string `yaml:"basic_auth"`            // required, base64 "user:password"
	BasicAuthFile       string `yaml:"basic_auth_file"`       // _file variant for basic_auth
	ConstantTimeCompare bool   `yaml:"constant_time_compare"` // default: false
}

// LoggingConfig holds log level and debug category settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // default: "INFO"
	Debug string `yaml:"debug"` // comma-separated categories
}

// ObservabilityConfig holds monitoring settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds the Prometheus endpoint settings. Metrics are served on
// their own listener so the authenticated listener exposes nothing extra.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: false
	Addr    string `yaml:"addr"`    // default: ":9464"
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:              "127.0.0.1",
			Port:              4200,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
		Upstream: UpstreamConfig{
			DialTimeout:   10 * time.Second,
			FlushInterval: -1,
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Addr: ":9464",
				Path: "/metrics",
			},
		},
	}
}
