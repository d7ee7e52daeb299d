package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rhuss/prefectauth/pkg/debug"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, PREFECTAUTH_CONFIG env, ./config.yaml, /etc/prefectauth/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
//
// A missing credential fails validation, so the process cannot start without both.
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
		debug.Log("config", "loaded config file", "path", filePath)
	} else {
		debug.Log("config", "no config file found, using defaults and environment")
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. PREFECTAUTH_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/prefectauth/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("PREFECTAUTH_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"config.yaml",
		"/etc/prefectauth/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
// Unknown keys are rejected so a misspelled credential key fails loudly.
func loadYAMLFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnvOverrides maps environment variables to config fields.
// The Prefect variable names are honoured so the proxy can share the
// environment of the server it fronts.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("PREFECT_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("PREFECT_BASIC_AUTH"); v != "" {
		cfg.Auth.BasicAuth = v
	}
	if v := os.Getenv("PREFECT_SERVER_API_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PREFECT_SERVER_API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PREFECT_SERVER_API_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("PREFECTAUTH_UPSTREAM_URL"); v != "" {
		cfg.Upstream.URL = v
	}
	if v := os.Getenv("PREFECTAUTH_METRICS_ADDR"); v != "" {
		cfg.Observability.Metrics.Enabled = true
		cfg.Observability.Metrics.Addr = v
	}
	return nil
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	// auth.api_key_file -> auth.api_key
	if cfg.Auth.APIKeyFile != "" && cfg.Auth.APIKey == "" {
		val, err := readSecretFile(cfg.Auth.APIKeyFile)
		if err != nil {
			return fmt.Errorf("auth.api_key_file: %w", err)
		}
		cfg.Auth.APIKey = val
	}

	// auth.basic_auth_file -> auth.basic_auth
	if cfg.Auth.BasicAuthFile != "" && cfg.Auth.BasicAuth == "" {
		val, err := readSecretFile(cfg.Auth.BasicAuthFile)
		if err != nil {
			return fmt.Errorf("auth.basic_auth_file: %w", err)
		}
		cfg.Auth.BasicAuth = val
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
