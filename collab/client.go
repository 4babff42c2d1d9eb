package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
)

// DefaultTimeout bounds every request of a Client.
const DefaultTimeout = 30 * time.Second

// maxClaimSize caps the body of a claimed document.
const maxClaimSize = 64 << 20

// Client talks to the document service over HTTP. It implements
// Persister, Claimer and Quota.
//
//	POST {base}/documents        store an artifact (body: file bytes)
//	GET  {base}/claims/{code}    fetch a stored document
//	GET  {base}/quota            {"remaining": n}
type Client struct {
	base   *url.URL
	apiKey string
	http   *http.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sends key as a bearer token.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger sets the logger; nil keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if !govalidator.IsURL(baseURL) {
		return nil, fmt.Errorf("collab: invalid base URL %q", baseURL)
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("collab: %w", err)
	}
	c := &Client{
		base:   u,
		http:   &http.Client{Timeout: DefaultTimeout},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// StatusError is a non-success response from the service.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: non success response (%d)", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: non success response (%d): %s", e.Op, e.Status, e.Body)
}

func (c *Client) endpoint(elem ...string) string {
	return c.base.JoinPath(elem...).String()
}

func (c *Client) do(ctx context.Context, method, target string, body io.Reader, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	for k, v := range header {
		req.Header[k] = v
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return c.http.Do(req)
}

func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

// Persist uploads an exported artifact.
func (c *Client) Persist(ctx context.Context, a Artifact) error {
	h := http.Header{}
	h.Set("Content-Type", a.MIME)
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Name}))

	resp, err := c.do(ctx, http.MethodPost, c.endpoint("documents"), bytes.NewReader(a.Data), h)
	if err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError("persist", resp)
	}
	c.logger.Debug("artifact persisted", slog.String("name", a.Name), slog.Int("size", len(a.Data)))
	return nil
}

// Claim fetches the document stored under code.
func (c *Client) Claim(ctx context.Context, code string) (Artifact, error) {
	if err := ValidateCode(code); err != nil {
		return Artifact{}, err
	}
	resp, err := c.do(ctx, http.MethodGet, c.endpoint("claims", code), nil, nil)
	if err != nil {
		return Artifact{}, fmt.Errorf("claim: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Artifact{}, fmt.Errorf("claim %s: %w", code, ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return Artifact{}, statusError("claim", resp)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxClaimSize+1))
	if err != nil {
		return Artifact{}, fmt.Errorf("claim: read body: %w", err)
	}
	if len(data) > maxClaimSize {
		return Artifact{}, errors.New("claim: document too large")
	}

	a := Artifact{Name: code, MIME: resp.Header.Get("Content-Type"), Data: data}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		a.Name = params["filename"]
	}
	return a, nil
}

// Remaining returns the number of documents the user may still open.
func (c *Client) Remaining(ctx context.Context) (int, error) {
	h := http.Header{}
	h.Set("Accept", "application/json")
	resp, err := c.do(ctx, http.MethodGet, c.endpoint("quota"), nil, h)
	if err != nil {
		return 0, fmt.Errorf("quota: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, statusError("quota", resp)
	}
	var body struct {
		Remaining *int `json:"remaining"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("quota: decode: %w", err)
	}
	if body.Remaining == nil {
		return 0, errors.New("quota: response has no remaining count")
	}
	return *body.Remaining, nil
}
