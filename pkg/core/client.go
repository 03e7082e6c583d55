// Package core is the HTTP client for the remote Core API, the system of
// record the gateway mirrors every write to.
//
// Paths are relative to the configured base URL: "Cliente" lists customers,
// "Cliente/7" addresses one of them. Request and response bodies are JSON.
// Field names are matched case-insensitively on decode, so a Core that
// answers with PascalCase properties decodes into the same models.
//
// # Error Model
//
// Callers branch on two categories only:
//
//   - Transport failures match [ErrUnavailable] with errors.Is. Network errors,
//     timeouts and every non-2xx status fall in this group. Non-2xx answers are
//     returned as [*StatusError] so the status code stays inspectable.
//   - Everything else, such as a body that cannot be encoded or decoded, is an
//     unexpected error and does not match ErrUnavailable.
//
// # Typed and Fire-and-Forget Calls
//
// [Client.Get], [Client.Post], [Client.Put] and [Client.Delete] decode the
// response into a caller-supplied value and serve the interactive request
// path. [Client.Create], [Client.Update] and [Client.Remove] only report
// success or failure and are used when replaying queued writes, where no caller
// waits for a body.
//
// A Client is safe for concurrent use. Request handlers and the sync worker
// share one instance and therefore one connection pool.
package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTimeout bounds every call to Core.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of a failed response is kept for diagnostics.
const maxErrorBody = 4 << 10

// ErrUnavailable marks transport-level failures: the remote could not be
// reached or did not answer with a 2xx status.
var ErrUnavailable = errors.New("core unavailable")

// StatusError is returned when Core answers with a non-2xx status.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("core: %s %s: status=%d, body=%s", e.Method, e.Path, e.Code, e.Body)
}

// Is makes every StatusError match ErrUnavailable.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnavailable
}

// IsNotFound reports whether err is a 404 answer from Core.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// Client calls the Core API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient creates a Core client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the URL every path is resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		var data []byte
		switch b := body.(type) {
		case json.RawMessage:
			data = b
		default:
			var err error
			data, err = json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("core: failed to encode %s %s request: %w", method, path, err)
			}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+strings.TrimLeft(path, "/"), reqBody)
	if err != nil {
		return nil, fmt.Errorf("core: failed to build %s %s request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("method", method).Str("path", path).Msg("core request failed")
		return nil, fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("core request")
	return resp, nil
}

func (c *Client) decodeResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method: resp.Request.Method,
			Path:   strings.TrimPrefix(resp.Request.URL.String(), c.baseURL),
			Code:   resp.StatusCode,
			Body:   string(body),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrUnavailable, err)
	}
	if target == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("core: failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	return c.decodeResponse(resp, out)
}

// Get fetches path and decodes the body into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.call(ctx, http.MethodGet, path, nil, out)
}

// Post sends body to path and decodes the answer into out, which may be nil.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, http.MethodPost, path, body, out)
}

// Put sends body to path and decodes the answer into out, which may be nil.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, http.MethodPut, path, body, out)
}

// Delete removes the resource at path.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.call(ctx, http.MethodDelete, path, nil, nil)
}

// Create posts an already-encoded payload and discards the answer.
func (c *Client) Create(ctx context.Context, path string, payload json.RawMessage) error {
	return c.call(ctx, http.MethodPost, path, payload, nil)
}

// Update puts an already-encoded payload and discards the answer.
func (c *Client) Update(ctx context.Context, path string, payload json.RawMessage) error {
	return c.call(ctx, http.MethodPut, path, payload, nil)
}

// Remove deletes the resource at path.
func (c *Client) Remove(ctx context.Context, path string) error {
	return c.call(ctx, http.MethodDelete, path, nil, nil)
}
