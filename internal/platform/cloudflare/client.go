// Package cloudflare verifies the Cloudflare credentials cert-manager uses
// to solve DNS01 challenges.
package cloudflare

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	cf "github.com/cloudflare/cloudflare-go"
)

// ErrInvalidCredentials is returned when Cloudflare rejects the key.
var ErrInvalidCredentials = errors.New("cloudflare rejected the credentials")

// Client wraps the Cloudflare API, authenticating with a global API key,
// the credential cert-manager's Cloudflare solver is given.
type Client struct {
	email string
	api   *cf.API
	err   error
}

// User is the account the credentials belong to.
type User struct {
	ID    string
	Email string
}

type settings struct {
	baseURL    string
	httpClient *http.Client
	retries    int
}

// Option configures a Client.
type Option func(*settings)

// WithBaseURL points the client at another API root.
func WithBaseURL(u string) Option {
	return func(s *settings) { s.baseURL = u }
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *settings) { s.httpClient = hc }
}

// WithRetries sets how often a rate limited or failed request is retried.
func WithRetries(n int) Option {
	return func(s *settings) { s.retries = n }
}

// NewClient creates a new Cloudflare API client. Invalid credentials are
// reported by VerifyCredentials.
func NewClient(email, apiKey string, opts ...Option) *Client {
	s := settings{retries: 3}
	for _, opt := range opts {
		opt(&s)
	}

	apiOpts := []cf.Option{cf.UsingRetryPolicy(s.retries, 1, 5)}
	if s.baseURL != "" {
		apiOpts = append(apiOpts, cf.BaseURL(s.baseURL))
	}
	if s.httpClient != nil {
		apiOpts = append(apiOpts, cf.HTTPClient(s.httpClient))
	}

	api, err := cf.New(apiKey, email, apiOpts...)
	return &Client{email: email, api: api, err: err}
}

// VerifyCredentials fetches the user the key belongs to and checks that
// it matches the configured email.
func (c *Client) VerifyCredentials(ctx context.Context) (*User, error) {
	if c.err != nil {
		return nil, fmt.Errorf("create client: %w", c.err)
	}

	details, err := c.api.UserDetails(ctx)
	if err != nil {
		var authn *cf.AuthenticationError
		var authz *cf.AuthorizationError
		if errors.As(err, &authn) || errors.As(err, &authz) {
			return nil, fmt.Errorf("verify credentials: %w: %w", ErrInvalidCredentials, err)
		}
		return nil, fmt.Errorf("verify credentials: %w", err)
	}
	if details.Email != c.email {
		return nil, fmt.Errorf("API key belongs to %s, not %s", details.Email, c.email)
	}
	return &User{ID: details.ID, Email: details.Email}, nil
}
