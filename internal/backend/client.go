// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package backend is the console's client for the retail REST backend.

Requests made through a client bound to a session ([Client.WithSession]) carry
the session's bearer token and recover from expired tokens transparently. The
refresh exchange itself ([Client.Exchange]) always goes out on the unbound
transport, so it never recurses into the refresh protocol.

Non-2xx answers surface as [*apperr.APIError].
*/
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/taibuivan/storeconsole/internal/platform/apperr"
	"github.com/taibuivan/storeconsole/internal/platform/constants"
	"github.com/taibuivan/storeconsole/internal/session"
)

// maxResponseSize bounds how much of a response body is read.
const maxResponseSize = 8 << 20

// Options configures a [Client].
type Options struct {
	// BaseURL is the API root, e.g. http://localhost:3000/api.
	BaseURL string

	// Timeout bounds every call, the refresh exchange included. Zero means none.
	Timeout time.Duration

	// RateLimitRPS caps outgoing requests per second. Zero disables the limit.
	RateLimitRPS float64

	// Transport is the innermost transport. Defaults to [http.DefaultTransport].
	Transport http.RoundTripper

	Logger *slog.Logger
}

// Client calls the backend.
type Client struct {
	baseURL string
	http    *http.Client
	plain   *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates a client without a session.
func New(opts Options) (*Client, error) {
	if _, err := url.ParseRequestURI(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("backend: invalid base URL %q: %w", opts.BaseURL, err)
	}

	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	plain := &http.Client{
		Timeout:   opts.Timeout,
		Transport: otelhttp.NewTransport(base),
	}

	var limiter *rate.Limiter
	if opts.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), max(1, int(opts.RateLimitRPS)))
	}

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    plain,
		plain:   plain,
		limiter: limiter,
		logger:  logger,
	}, nil
}

// WithSession returns a copy of c whose calls go through manager's transport.
func (c *Client) WithSession(manager *session.Manager) *Client {
	bound := *c
	bound.http = &http.Client{
		Timeout:   c.plain.Timeout,
		Transport: session.NewTransport(manager, c.plain.Transport),
	}
	return &bound
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// # Request plumbing

type call struct {
	method string
	path   string
	query  url.Values
	body   any
	bearer string
	plain  bool
}

// do performs a JSON call and decodes a 2xx body into out when non-nil.
// It returns the response status.
func (c *Client) do(ctx context.Context, req call, out any) (int, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, fmt.Errorf("backend: rate limit: %w", err)
		}
	}

	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		raw, err := json.Marshal(req.body)
		if err != nil {
			return 0, fmt.Errorf("backend: encode %s %s: %w", req.method, req.path, err)
		}
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return 0, fmt.Errorf("backend: build %s %s: %w", req.method, req.path, err)
	}
	httpReq.Header.Set("Accept", constants.ContentTypeJSON)
	if body != nil {
		httpReq.Header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	}
	if req.bearer != "" {
		httpReq.Header.Set(constants.HeaderAuthorization, constants.BearerPrefix+req.bearer)
	}

	client := c.http
	if req.plain {
		client = c.plain
	}

	started := time.Now()
	resp, err := client.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("backend: %s %s: %w", req.method, req.path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("backend: read %s %s: %w", req.method, req.path, err)
	}

	c.logger.DebugContext(ctx, "backend call",
		slog.String("method", req.method),
		slog.String("path", req.path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(started)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, apperr.ParseAPIError(req.method, req.path, resp.StatusCode, raw)
	}

	if out != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("backend: decode %s %s: %w", req.method, req.path, err)
		}
	}

	return resp.StatusCode, nil
}
