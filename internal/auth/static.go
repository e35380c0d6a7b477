package auth

import (
	"context"
	"net/http"
)

// StaticTokenProvider sends a pre-issued bearer token with every request.
type StaticTokenProvider struct {
	token string
}

// NewStaticTokenProvider creates a new static token provider with the given token.
func NewStaticTokenProvider(token string) *StaticTokenProvider {
	return &StaticTokenProvider{token: token}
}

// InjectHeader sets "Authorization: Bearer <token>".
func (p *StaticTokenProvider) InjectHeader(_ context.Context, req *http.Request) error {
	req.Header.Set("Authorization", "Bearer "+p.token)
	return nil
}

// Close is a no-op for static token providers.
func (p *StaticTokenProvider) Close() error {
	return nil
}

// HeaderProvider sends a raw value in a custom header, e.g. an API key.
type HeaderProvider struct {
	header string
	value  string
}

// NewHeaderProvider creates a provider that sets header to value.
func NewHeaderProvider(header, value string) *HeaderProvider {
	return &HeaderProvider{header: http.CanonicalHeaderKey(header), value: value}
}

// InjectHeader sets the configured header.
func (p *HeaderProvider) InjectHeader(_ context.Context, req *http.Request) error {
	req.Header.Set(p.header, p.value)
	return nil
}

// Close is a no-op.
func (p *HeaderProvider) Close() error {
	return nil
}
