package auth

import "errors"

// Authorization header scheme prefixes.
const (
	BearerPrefix = "Bearer "
	BasicPrefix  = "Basic "
)

// Credentials holds the two accepted Authorization header values.
// It is built once at startup and never changes afterwards.
type Credentials struct {
	apiKeyToken    string
	basicAuthToken string
}

// NewCredentials builds the accepted header values from the raw API key and
// the pre-encoded basic-auth secret. Both must be non-empty: an empty secret
// is treated as absent on purpose, so a bare "Bearer " header can never be
// admitted.
func NewCredentials(apiKey, basicAuth string) (*Credentials, error) {
	var errs []error
	if apiKey == "" {
		errs = append(errs, errors.New("api key is required"))
	}
	if basicAuth == "" {
		errs = append(errs, errors.New("basic auth secret is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return &Credentials{
		apiKeyToken:    BearerPrefix + apiKey,
		basicAuthToken: BasicPrefix + basicAuth,
	}, nil
}

// APIKeyToken returns the full header value expected for API key access.
func (c *Credentials) APIKeyToken() string { return c.apiKeyToken }

// BasicAuthToken returns the full header value expected for user access.
func (c *Credentials) BasicAuthToken() string { return c.basicAuthToken }
