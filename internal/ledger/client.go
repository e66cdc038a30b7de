package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TokenSource supplies the bearer token attached to authenticated requests.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token() string { return string(t) }

// Client talks to the time bank REST API.
type Client struct {
	baseURL     *url.URL
	http        *http.Client
	userAgent   string
	tokens      TokenSource
	retryDelays []time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

const (
	defaultBaseURL   = "http://localhost:8080/api/v1"
	defaultUserAgent = "timebank/0.1"
	requestTimeout   = 10 * time.Second
	maxBodyBytes     = 4 << 20
)

// DefaultRetryDelays is the GET backoff schedule applied on NetworkError.
var DefaultRetryDelays = []time.Duration{100 * time.Millisecond, 400 * time.Millisecond}

// Option customizes a Client.
type Option func(*Client)

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRetryDelays overrides the GET retry schedule. An empty schedule disables retries.
func WithRetryDelays(delays ...time.Duration) Option {
	return func(c *Client) { c.retryDelays = append([]time.Duration(nil), delays...) }
}

// WithClock overrides the time source used for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient builds a Client rooted at baseURL (for example http://host:8080/api/v1).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent:   defaultUserAgent,
		tokens:      StaticToken(""),
		retryDelays: DefaultRetryDelays,
		logger:      slog.New(slog.DiscardHandler),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Get performs an authenticated GET and decodes the envelope data into T.
func Get[T any](ctx context.Context, c *Client, path string, params url.Values) (T, error) {
	var out T
	err := c.do(ctx, request{method: http.MethodGet, path: path, params: params, auth: true}, &out)
	return out, err
}

// Post performs an authenticated POST with a JSON body and decodes the envelope data into T.
func Post[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	var out T
	err := c.do(ctx, request{method: http.MethodPost, path: path, body: body, auth: true}, &out)
	return out, err
}

// Put performs an authenticated PUT with a JSON body and decodes the envelope data into T.
func Put[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	var out T
	err := c.do(ctx, request{method: http.MethodPut, path: path, body: body, auth: true}, &out)
	return out, err
}

type request struct {
	method string
	path   string
	params url.Values
	body   any
	auth   bool
}

func (c *Client) do(ctx context.Context, req request, dest any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	var token string
	if req.auth {
		tok, err := c.bearer()
		if err != nil {
			return err
		}
		token = tok
	}

	var payload []byte
	if req.body != nil {
		encoded, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = encoded
	}

	attempts := 1
	if req.method == http.MethodGet {
		attempts += len(c.retryDelays)
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := c.retryDelays[attempt-1]
			c.logger.Debug("retrying request",
				"method", req.method,
				"path", req.path,
				"attempt", attempt,
				"delay", delay,
			)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return lastErr
			case <-timer.C:
			}
		}
		lastErr = c.once(ctx, req, token, payload, dest)
		if lastErr == nil {
			return nil
		}
		if !IsNetwork(lastErr) || ctx.Err() != nil {
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) once(ctx context.Context, req request, token string, payload []byte, dest any) error {
	rel := &url.URL{Path: req.path}
	if len(req.params) > 0 {
		rel.RawQuery = req.params.Encode()
	}
	reqURL := c.resolve(rel)
	requestID := uuid.NewString()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, reqURL.String(), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	started := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return &NetworkError{Method: req.method, Path: req.path, RequestID: requestID, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &NetworkError{Method: req.method, Path: req.path, RequestID: requestID, Err: fmt.Errorf("read body: %w", err)}
	}

	c.logger.Debug("api request",
		"method", req.method,
		"path", req.path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"elapsed", time.Since(started),
	)

	return decodeResponse(resp.StatusCode, requestID, raw, dest)
}

func decodeResponse(status int, requestID string, raw []byte, dest any) error {
	var env Envelope
	structured := len(bytes.TrimSpace(raw)) > 0 && json.Unmarshal(raw, &env) == nil

	switch {
	case status == http.StatusUnauthorized:
		return &AuthError{RequestID: requestID, Message: firstNonEmpty(env.Message, env.Error)}
	case status >= 500:
		msg := firstNonEmpty(env.Message, env.Error)
		if !structured {
			msg = strings.TrimSpace(string(raw))
		}
		return &ServerError{Status: status, Message: msg, RequestID: requestID}
	case status >= 400:
		verr := &ValidationError{Status: status, RequestID: requestID}
		if structured {
			verr.Message = env.Message
			verr.Detail = env.Error
			verr.Fields = fieldErrors(env.Errors)
		}
		return verr
	}

	if !structured {
		return &ServerError{Status: status, RequestID: requestID, Err: fmt.Errorf("decode response: not an api envelope")}
	}
	if !env.Success {
		return &ValidationError{
			Status:    status,
			Message:   env.Message,
			Detail:    env.Error,
			Fields:    fieldErrors(env.Errors),
			RequestID: requestID,
		}
	}
	if dest == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, dest); err != nil {
		return &ServerError{Status: status, RequestID: requestID, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func fieldErrors(m map[string]string) []FieldError {
	if len(m) == 0 {
		return nil
	}
	out := make([]FieldError, 0, len(m))
	for field, msg := range m {
		out = append(out, FieldError{Field: field, Message: msg})
	}
	slices.SortFunc(out, func(a, b FieldError) int { return strings.Compare(a.Field, b.Field) })
	return out
}

func (c *Client) bearer() (string, error) {
	token := ""
	if c.tokens != nil {
		token = strings.TrimSpace(c.tokens.Token())
	}
	if token == "" {
		return "", &AuthError{Err: ErrNoToken}
	}
	claims, err := ParseClaims(token)
	if err != nil {
		// opaque tokens are accepted as-is; the server decides
		return token, nil
	}
	if !claims.ExpiresAt.IsZero() && !c.now().Before(claims.ExpiresAt) {
		return "", &AuthError{Err: ErrTokenExpired}
	}
	return token, nil
}

func (c *Client) resolve(rel *url.URL) *url.URL {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(c.baseURL.Path, "/") + "/" + strings.TrimPrefix(rel.Path, "/")
	u.RawQuery = rel.RawQuery
	return &u
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api url %q: missing host", raw)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
