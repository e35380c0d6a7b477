// Package apiclient is a thin, instrumented client for the pack tracking API.
//
// Every method returns a Response instead of an error so callers can record
// latency and check status codes uniformly. Nothing is retried.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/torosent/packstorm/internal/auth"
	"github.com/torosent/packstorm/internal/tracing"
)

// Operation names. The recorded latency metric is the name plus "_duration".
const (
	OpCreatePack   = "create_pack"
	OpCreateEvent  = "create_event"
	OpUpdateStatus = "update_pack_status"
	OpCancelPack   = "cancel_pack"
)

// MetricName returns the latency series name for an operation.
func MetricName(op string) string {
	return op + "_duration"
}

const maxBodyReadSize = 1024 * 1024

type Client struct {
	base   *url.URL
	http   *http.Client
	auth   auth.Provider
	tracer *tracing.Provider
}

type Option func(*Client)

// WithAuth injects credentials into every request. A nil provider is ignored.
func WithAuth(p auth.Provider) Option {
	return func(c *Client) { c.auth = p }
}

// WithTracing opens a client span per call and propagates trace context when
// the provider allows it.
func WithTracing(p *tracing.Provider) Option {
	return func(c *Client) { c.tracer = p }
}

func New(baseURL string, httpClient *http.Client, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{base: base, http: httpClient}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CreatePack posts a new pack; the API answers 201 with the pack JSON.
func (c *Client) CreatePack(ctx context.Context, p PackPayload) Response {
	return c.send(ctx, OpCreatePack, http.MethodPost, "/packs", p)
}

// CreateEvent records a tracking event; the API answers 204.
func (c *Client) CreateEvent(ctx context.Context, e EventPayload) Response {
	return c.send(ctx, OpCreateEvent, http.MethodPost, "/pack_events", e)
}

// PatchStatus moves a pack to status; the API answers 200.
func (c *Client) PatchStatus(ctx context.Context, id string, status Status) Response {
	return c.send(ctx, OpUpdateStatus, http.MethodPatch, "/packs/"+url.PathEscape(id), statusPayload{Status: status})
}

// CancelPack cancels a pack that has not shipped; the API answers 200.
func (c *Client) CancelPack(ctx context.Context, id string) Response {
	return c.send(ctx, OpCancelPack, http.MethodPost, "/packs/"+url.PathEscape(id)+"/cancel", nil)
}

func (c *Client) send(ctx context.Context, op, method, path string, payload any) Response {
	res := Response{Operation: op}

	var body io.Reader = http.NoBody
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			res.Err = fmt.Errorf("%s: encode body: %w", op, err)
			return res
		}
		body = bytes.NewReader(raw)
	}

	ctx, span := tracing.StartRequestSpan(ctx, c.tracer.Tracer(), method, op)
	defer func() {
		tracing.EndSpan(span, res.Err, attribute.Int("http.response.status_code", res.StatusCode))
	}()

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		res.Err = fmt.Errorf("%s: build request: %w", op, err)
		return res
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.auth != nil {
		if err := c.auth.InjectHeader(ctx, req); err != nil {
			res.Err = fmt.Errorf("%s: auth: %w", op, err)
			return res
		}
	}
	if c.tracer.ShouldPropagate() {
		tracing.InjectHTTPHeaders(ctx, req.Header)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		res.Elapsed = time.Since(start)
		res.Err = fmt.Errorf("%s: %w", op, err)
		return res
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyReadSize))
	res.Elapsed = time.Since(start)
	res.StatusCode = resp.StatusCode
	res.Body = raw
	if readErr != nil && !errors.Is(readErr, io.EOF) {
		res.Err = fmt.Errorf("%s: read body: %w", op, readErr)
	}
	return res
}
