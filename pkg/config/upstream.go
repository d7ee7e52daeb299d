package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// ParseUpstreamURL parses an upstream base URL and checks that it is an
// absolute http or https URL with a host.
func ParseUpstreamURL(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, errors.New("is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("is not a valid URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return nil, fmt.Errorf("must be an absolute http(s) URL, got %q", raw)
	}
	return u, nil
}

// upstreamPort returns the explicit port of u or the scheme default.
func upstreamPort(u *url.URL) int {
	if p := u.Port(); p != "" {
		n, _ := strconv.Atoi(p)
		return n
	}
	if u.Scheme == "https" {
		return 443
	}
	return 80
}

// pointsAtListener reports whether u would be served by a listener bound to
// host:port, i.e. the proxy would forward requests to itself.
func pointsAtListener(u *url.URL, host string, port int) bool {
	if upstreamPort(u) != port {
		return false
	}
	target := u.Hostname()
	if target == host {
		return true
	}
	if !isLocal(target) {
		return false
	}
	// A wildcard listener answers every loopback address; "localhost"
	// resolves to the loopback listener.
	if isUnspecified(host) {
		return true
	}
	return isLocal(host) && (target == "localhost" || host == "localhost")
}

func isLocal(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func isUnspecified(host string) bool {
	if host == "" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsUnspecified()
}
