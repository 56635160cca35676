// Package client implements the authenticated request executor for the tunedeck backend.
//
// Every call attaches the stored bearer token. A 401 triggers at most one token refresh
// (shared between concurrent callers) followed by a single retry. When the refresh is
// impossible the token store is cleared and the session-expired hook fires.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunedeck/internal/shared"
	"github.com/desertthunder/tunedeck/internal/tokens"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL   = "http://localhost:8000"
	defaultUserAgent = "tunedeck/0.1"
	refreshTimeout   = 30 * time.Second
)

// Requester issues backend-relative requests. [*Client] is the production implementation.
type Requester interface {
	Request(ctx context.Context, path string, opts *RequestOptions) (*Response, error)
}

// Options configures a [Client]. Zero values select defaults.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Store      tokens.Store
	Logger     *log.Logger
	// Limiter paces outbound requests, refreshes included. Nil disables pacing.
	Limiter   *rate.Limiter
	UserAgent string
	// OnSessionExpired runs once per failed refresh, after the store is cleared.
	OnSessionExpired func(error)
}

// RequestOptions describes a single call.
type RequestOptions struct {
	Method string
	Header http.Header
	Query  url.Values
	// Body is sent as-is when it is []byte, string or an io.Reader and JSON-encoded otherwise.
	Body any
	// SkipAuth sends no bearer token and disables the refresh-and-retry path.
	SkipAuth bool
}

// Response is a completed exchange with its parsed body.
type Response struct {
	Status    int
	Header    http.Header
	Body      []byte
	Data      any
	IsJSON    bool
	RequestID string
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Decode unmarshals the raw body into dest.
func (r *Response) Decode(dest any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return fmt.Errorf("failed to decode response: empty body")
	}
	if err := json.Unmarshal(r.Body, dest); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Client is the authenticated request executor.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	store      tokens.Store
	logger     *log.Logger
	limiter    *rate.Limiter
	userAgent  string
	onExpired  func(error)
	refreshes  singleflight.Group
}

// New creates a Client. A nil store falls back to an in-memory store.
func New(opts Options) (*Client, error) {
	raw := opts.BaseURL
	if raw == "" {
		raw = defaultBaseURL
	}
	base, err := url.Parse(raw)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: base url %q", shared.ErrInvalidConfig, raw)
	}

	c := &Client{
		baseURL:    base,
		httpClient: opts.HTTPClient,
		store:      opts.Store,
		logger:     opts.Logger,
		limiter:    opts.Limiter,
		userAgent:  opts.UserAgent,
		onExpired:  opts.OnSessionExpired,
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	if c.store == nil {
		c.store = tokens.NewMemoryStore()
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}
	if c.userAgent == "" {
		c.userAgent = defaultUserAgent
	}
	return c, nil
}

// Store returns the token store the client reads credentials from.
func (c *Client) Store() tokens.Store {
	return c.store
}

// Get performs an authenticated GET.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Request(ctx, path, &RequestOptions{Method: http.MethodGet, Query: query})
}

// Post performs an authenticated POST with body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Request(ctx, path, &RequestOptions{Method: http.MethodPost, Body: body})
}

// Request sends an authenticated request to path and returns the parsed response.
//
// Non-2xx final responses are returned as *[APIError].
func (c *Client) Request(ctx context.Context, path string, opts *RequestOptions) (*Response, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}

	body, err := encodeBody(opts.Body)
	if err != nil {
		return nil, err
	}

	sent, resp, err := c.send(ctx, path, opts, body)
	if err != nil {
		return nil, err
	}

	if resp.Status == http.StatusUnauthorized && !opts.SkipAuth {
		resp, err = c.retryUnauthorized(ctx, path, opts, body, sent, resp)
		if err != nil {
			return nil, err
		}
	}

	if !resp.OK() {
		return nil, newAPIError(resp)
	}
	return resp, nil
}

// retryUnauthorized refreshes the token the rejected request carried, then re-sends once.
func (c *Client) retryUnauthorized(ctx context.Context, path string, opts *RequestOptions, body []byte, sent string, rejected *Response) (*Response, error) {
	if _, err := c.refresh(ctx, sent, false); err != nil {
		if IsSessionExpired(err) {
			apiErr := newAPIError(rejected)
			apiErr.err = err
			return nil, apiErr
		}
		return nil, err
	}

	_, resp, err := c.send(ctx, path, opts, body)
	return resp, err
}

// send performs one HTTP exchange and reports which access token it carried.
func (c *Client) send(ctx context.Context, path string, opts *RequestOptions, body []byte) (string, *Response, error) {
	target, err := c.resolve(path, opts.Query)
	if err != nil {
		return "", nil, err
	}

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, values := range opts.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	req.Header.Set("User-Agent", c.userAgent)
	requestID := shared.GenerateID()
	req.Header.Set("X-Request-ID", requestID)

	var sent string
	if !opts.SkipAuth {
		tok, err := tokens.OAuth2Token(c.store)
		if err != nil {
			return "", nil, fmt.Errorf("failed to read access token: %w", err)
		}
		if tok != nil {
			tok.SetAuthHeader(req)
			sent = tok.AccessToken
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	start := time.Now()
	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("request",
		"method", method,
		"path", req.URL.Path,
		"status", res.StatusCode,
		"request_id", requestID,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	data, isJSON := parseBody(raw)
	return sent, &Response{
		Status:    res.StatusCode,
		Header:    res.Header,
		Body:      raw,
		Data:      data,
		IsJSON:    isJSON,
		RequestID: requestID,
	}, nil
}

// resolve joins a backend-relative path (which may carry a query string) onto the base URL.
func (c *Client) resolve(path string, query url.Values) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: empty request path", shared.ErrInvalidArgument)
	}

	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("%w: request path %q: %v", shared.ErrInvalidArgument, path, err)
	}
	// credentials must never be sent to another host
	if ref.IsAbs() || ref.Host != "" {
		return "", fmt.Errorf("%w: request path %q must be relative to the base url", shared.ErrInvalidArgument, path)
	}

	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(ref.Path, "/")
	u.RawPath = strings.TrimRight(c.baseURL.EscapedPath(), "/") + "/" + strings.TrimLeft(ref.EscapedPath(), "/")

	q := ref.Query()
	for key, values := range query {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	u.RawQuery = q.Encode()
	u.Fragment = ""
	return u.String(), nil
}

func encodeBody(body any) ([]byte, error) {
	switch v := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	case string:
		return []byte(v), nil
	case io.Reader:
		data, err := io.ReadAll(v)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		return data, nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		return data, nil
	}
}

// parseBody decodes the body as JSON whatever the Content-Type says and falls back to text.
//
// An empty body yields nil. Proxies often serve JSON error bodies as text/plain, so the header
// is not trusted.
func parseBody(body []byte) (any, bool) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, false
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return string(body), false
	}
	return data, true
}
