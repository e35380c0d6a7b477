// Package auth injects credentials into requests sent to the pack API.
package auth

import (
	"context"
	"net/http"
	"strings"
)

// Provider decorates outgoing requests with credentials.
type Provider interface {
	// InjectHeader sets the credential header on the request.
	InjectHeader(ctx context.Context, req *http.Request) error

	// Close releases any resources held by the provider.
	Close() error
}

// New returns a provider for the configured token, or nil when no token is set.
// An empty header means the standard Authorization header with a Bearer scheme.
func New(token, header string) Provider {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	header = strings.TrimSpace(header)
	if header == "" || strings.EqualFold(header, "Authorization") {
		return NewStaticTokenProvider(token)
	}
	return NewHeaderProvider(header, token)
}
