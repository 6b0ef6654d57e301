// internal/adapters/frappe/client.go
package frappe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ammerola/stockscan/internal/core/domain"
	"github.com/ammerola/stockscan/internal/core/ports"
)

const maxErrorBody = 64 << 10

// TokenSource supplies the bearer token for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Config holds client configuration
type Config struct {
	BaseURL string
	// Timeout bounds each request; zero leaves list fetches unbounded.
	Timeout     time.Duration
	PingTimeout time.Duration
	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64
	Burst     int
	UserAgent string
}

// Client talks to the Frappe REST API.
type Client struct {
	baseURL     *url.URL
	http        *http.Client
	tokens      TokenSource
	limiter     *rate.Limiter
	pingTimeout time.Duration
	userAgent   string
	logger      *slog.Logger
}

// Statically assert that *Client implements the Backend interface.
var _ ports.Backend = (*Client)(nil)

// NewClient creates a new Frappe client. tokens may be nil for
// unauthenticated calls.
func NewClient(cfg Config, tokens TokenSource, logger *slog.Logger) (*Client, error) {
	base, err := parseBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = 5 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "stockscan"
	}

	return &Client{
		baseURL:     base,
		http:        &http.Client{Timeout: cfg.Timeout},
		tokens:      tokens,
		limiter:     limiter,
		pingTimeout: cfg.PingTimeout,
		userAgent:   cfg.UserAgent,
		logger:      logger.With(slog.String("component", "frappe_client")),
	}, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, errors.New("base URL is required")
	}
	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("base URL has no host")
	}
	return u, nil
}

// BaseURL returns the backend root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// endpoint joins escaped path segments onto the base URL.
func (c *Client) endpoint(segments ...string) *url.URL {
	u := *c.baseURL
	raw := strings.TrimRight(c.baseURL.EscapedPath(), "/")
	plain := strings.TrimRight(c.baseURL.Path, "/")
	for _, s := range segments {
		raw += "/" + url.PathEscape(s)
		plain += "/" + s
	}
	u.Path = plain
	u.RawPath = raw
	return &u
}

func resourcePath(doctype string, name ...string) []string {
	return append([]string{"api", "resource", doctype}, name...)
}

func methodPath(method string) []string {
	return []string{"api", "method", method}
}

// do sends one authenticated request and decodes the JSON envelope into out.
func (c *Client) do(ctx context.Context, method string, u *url.URL, body any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := c.authorize(ctx, req); err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &NetworkError{Method: method, Path: u.Path, Err: err}
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "backend request",
		slog.String("method", method),
		slog.String("path", u.Path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)))

	if resp.StatusCode >= http.StatusBadRequest {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return newHTTPError(method, u.Path, resp.StatusCode, b)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, u.Path, err)
	}
	return nil
}

func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	if c.tokens == nil {
		return nil
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to get access token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}

// List fetches one page of records.
func (c *Client) List(ctx context.Context, doctype string, q domain.Query) ([]domain.Record, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	params := url.Values{}
	if len(q.Fields) > 0 {
		if err := setJSON(params, "fields", q.Fields); err != nil {
			return nil, err
		}
	}
	if len(q.Filters) > 0 {
		if err := setJSON(params, "filters", q.Filters); err != nil {
			return nil, err
		}
	}
	if len(q.OrFilters) > 0 {
		if err := setJSON(params, "or_filters", q.OrFilters); err != nil {
			return nil, err
		}
	}
	if order := q.Sort.String(); order != "" {
		params.Set("order_by", order)
	}
	params.Set("limit_start", strconv.Itoa(q.Offset))
	params.Set("limit_page_length", strconv.Itoa(q.Limit))

	u := c.endpoint(resourcePath(doctype)...)
	u.RawQuery = params.Encode()

	var env struct {
		Data []domain.Record `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, u, nil, &env); err != nil {
		return nil, err
	}
	if env.Data == nil {
		env.Data = []domain.Record{}
	}
	return env.Data, nil
}

// Get fetches one record.
func (c *Client) Get(ctx context.Context, doctype, name string) (domain.Record, error) {
	if name == "" {
		return nil, fmt.Errorf("%s name is required", doctype)
	}
	var env struct {
		Data domain.Record `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, c.endpoint(resourcePath(doctype, name)...), nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// Create inserts a record.
func (c *Client) Create(ctx context.Context, doctype string, fields map[string]any) (domain.Record, error) {
	var env struct {
		Data domain.Record `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, c.endpoint(resourcePath(doctype)...), fields, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// Update writes fields to an existing record.
func (c *Client) Update(ctx context.Context, doctype, name string, fields map[string]any) (domain.Record, error) {
	if name == "" {
		return nil, fmt.Errorf("%s name is required", doctype)
	}
	var env struct {
		Data domain.Record `json:"data"`
	}
	if err := c.do(ctx, http.MethodPut, c.endpoint(resourcePath(doctype, name)...), fields, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// Count returns the number of records matching filters.
func (c *Client) Count(ctx context.Context, doctype string, filters []domain.Filter) (int, error) {
	params := url.Values{}
	params.Set("doctype", doctype)
	if len(filters) > 0 {
		if err := setJSON(params, "filters", filters); err != nil {
			return 0, err
		}
	}
	raw, err := c.Call(ctx, "frappe.client.get_count", flatten(params))
	if err != nil {
		return 0, err
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("failed to decode count: %w", err)
	}
	v, err := n.Int64()
	if err != nil {
		return 0, fmt.Errorf("invalid count %q: %w", n, err)
	}
	return int(v), nil
}

// Call invokes a whitelisted method and returns its "message".
func (c *Client) Call(ctx context.Context, method string, params map[string]string) (json.RawMessage, error) {
	u := c.endpoint(methodPath(method)...)
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	u.RawQuery = values.Encode()

	var env struct {
		Message json.RawMessage `json:"message"`
	}
	if err := c.do(ctx, http.MethodGet, u, nil, &env); err != nil {
		return nil, err
	}
	return env.Message, nil
}

// Ping checks that the backend host answers at all. Any HTTP response
// counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.pingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to build ping request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrCannotConnect, c.baseURL.Host, err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
	return nil
}

func setJSON(params url.Values, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	params.Set(key, string(b))
	return nil
}

func flatten(values url.Values) map[string]string {
	out := make(map[string]string, len(values))
	for k := range values {
		out[k] = values.Get(k)
	}
	return out
}
