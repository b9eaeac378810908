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

	"go.uber.org/zap"

	"github.com/atinyakov/CampusPortal/internal/client/credstore"
)

// maxErrorBody caps how much of a failed response is kept in an APIError.
const maxErrorBody = 4 << 10

// Options configures a Client.
type Options struct {
	// BaseURL is the API root, e.g. "https://api.campus.edu/api/v1".
	BaseURL string
	// Creds is the persisted credential shared with the session store.
	Creds credstore.Store
	// Log receives transport logs.
	Log *zap.Logger
	// Timeout bounds each request. Zero means no client-side timeout.
	Timeout time.Duration
	// CAFile optionally adds a PEM bundle to the trusted roots.
	CAFile string
	// Base overrides the underlying round tripper, mostly for tests.
	Base http.RoundTripper
}

// Client issues JSON requests against the campus API.
type Client struct {
	baseURL   string
	http      *http.Client
	transport *Transport
}

// APIError is returned for any non-2xx response.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// StatusOf extracts the HTTP status from err if it wraps an *APIError.
func StatusOf(err error) (int, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status, true
	}
	return 0, false
}

// IsStatus reports whether err wraps an *APIError with the given status.
func IsStatus(err error, status int) bool {
	got, ok := StatusOf(err)
	return ok && got == status
}

// New builds a Client and its credential-injecting transport.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("base url is required")
	}
	if _, err := url.ParseRequestURI(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if opts.Creds == nil {
		return nil, errors.New("credential store is required")
	}

	base := opts.Base
	if base == nil {
		tr, err := newBaseTransport(opts.CAFile)
		if err != nil {
			return nil, err
		}
		base = tr
	}

	t := &Transport{Base: base, Creds: opts.Creds, Log: opts.Log}
	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		http:      &http.Client{Transport: t, Timeout: opts.Timeout},
		transport: t,
	}, nil
}

// Install registers the session layer's reaction to a 401 on a request that
// carried a token. It is meant to be called once during bootstrap; further
// calls keep the first hook and return a no-op disposer. The returned
// disposer detaches the hook.
func (c *Client) Install(onUnauthorized func()) (dispose func()) {
	gen, ok := c.transport.setHook(onUnauthorized)
	if !ok {
		return func() {}
	}
	return func() { c.transport.clearHook(gen) }
}

// HTTPClient exposes the underlying client for callers that need raw access.
func (c *Client) HTTPClient() *http.Client { return c.http }

// Get issues a GET and decodes the JSON response into out (may be nil).
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, nil, body, out)
}

// Patch issues a PATCH with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, path, nil, body, out)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// Do performs one request. Non-2xx responses become *APIError; transport
// failures are wrapped with the method and path.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(b)
	}

	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			Method: method,
			Path:   path,
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(data)),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}
