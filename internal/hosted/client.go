// Package hosted talks to the hosted backend: its PostgREST-style table API
// under /rest/v1 and its object storage under /storage/v1.
package hosted

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

	"go.uber.org/zap"

	"github.com/HerbHall/atelier/internal/collection"
	"github.com/HerbHall/atelier/internal/version"
)

// Configuration errors.
var (
	ErrMissingURL = errors.New("hosted backend URL is not set")
	ErrMissingKey = errors.New("hosted backend API key is not set")
	ErrInvalidURL = errors.New("hosted backend URL is invalid")
)

// NormalizeURL trims raw, strips trailing slashes and defaults the scheme to
// https. The result must be an absolute URL with a host.
func NormalizeURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimRight(s, "/")
	if s == "" {
		return "", ErrMissingURL
	}
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidURL, raw, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: %q has no host", ErrInvalidURL, raw)
	}
	return s, nil
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("hosted: %d %s: %s", e.Status, e.Code, msg)
	}
	return fmt.Sprintf("hosted: %d: %s", e.Status, msg)
}

// Unwrap maps request rejections to collection.ErrValidation.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return collection.ErrValidation
	}
	return nil
}

type tokenKey struct{}

// WithToken returns a context carrying the signed-in user's access token.
// Requests made with it are authorised as that user rather than with the
// API key alone.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func tokenFrom(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey{}).(string)
	return t
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the client logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// Client is a hosted backend connection.
type Client struct {
	base   string
	key    string
	http   *http.Client
	logger *zap.Logger
}

// New returns a client for the backend at rawURL using the public API key.
func New(rawURL, key string, opts ...Option) (*Client, error) {
	base, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(key) == "" {
		return nil, ErrMissingKey
	}
	c := &Client{
		base:   base,
		key:    strings.TrimSpace(key),
		http:   &http.Client{Timeout: 15 * time.Second},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalised backend URL.
func (c *Client) BaseURL() string { return c.base }

type request struct {
	method  string
	path    string
	query   url.Values
	body    io.Reader
	headers map[string]string
}

// do sends req and returns the response body of a 2xx response.
func (c *Client) do(ctx context.Context, req request) ([]byte, error) {
	u := c.base + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}
	hr, err := http.NewRequestWithContext(ctx, req.method, u, req.body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", req.method, req.path, err)
	}
	token := tokenFrom(ctx)
	if token == "" {
		token = c.key
	}
	hr.Header.Set("apikey", c.key)
	hr.Header.Set("Authorization", "Bearer "+token)
	hr.Header.Set("Accept", "application/json")
	hr.Header.Set("User-Agent", version.UserAgent())
	for k, v := range req.headers {
		hr.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(hr)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.method, req.path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", req.method, req.path, err)
	}
	c.logger.Debug("hosted request",
		zap.String("method", req.method),
		zap.String("path", req.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if len(body) > 0 && json.Unmarshal(body, apiErr) != nil {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		if apiErr.Message == "" {
			// Storage errors use {"error": "...", "message": "..."} or {"error": "..."}.
			var alt struct {
				Error string `json:"error"`
			}
			if json.Unmarshal(body, &alt) == nil {
				apiErr.Message = alt.Error
			}
		}
		return nil, apiErr
	}
	return body, nil
}

func (c *Client) doJSON(ctx context.Context, req request, payload any) ([]byte, error) {
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", req.path, err)
		}
		req.body = bytes.NewReader(b)
		if req.headers == nil {
			req.headers = map[string]string{}
		}
		req.headers["Content-Type"] = "application/json"
	}
	return c.do(ctx, req)
}
