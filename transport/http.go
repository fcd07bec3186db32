package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HTTP sends GraphQL operations as JSON POST requests.
type HTTP struct {
	client *http.Client
	url    string
	auth   string
}

var _ Transport = (*HTTP)(nil)

// HTTPOption configures an HTTP binding.
type HTTPOption func(*HTTP)

// WithHTTPURL overrides the endpoint. A missing /graphql suffix is appended.
func WithHTTPURL(url string) HTTPOption { return func(h *HTTP) { h.url = normalizeURL(url) } }

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(c *http.Client) HTTPOption { return func(h *HTTP) { h.client = c } }

// WithHTTPAuth sets the Authorization header to "<scheme> <token>". The
// dclist.net HTTP endpoint expects the Bearer scheme. An empty token sends no
// header.
func WithHTTPAuth(scheme, token string) HTTPOption {
	return func(h *HTTP) { h.auth = authHeader(scheme, token) }
}

// NewHTTP returns an HTTP binding for DefaultHTTPURL. No timeout is set on
// the default client; callers bound calls through the context.
func NewHTTP(opts ...HTTPOption) *HTTP {
	h := &HTTP{
		client: &http.Client{},
		url:    DefaultHTTPURL,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// normalizeURL trims any trailing slash from rawURL and appends /graphql if
// the path does not already end with that suffix.
func normalizeURL(rawURL string) string {
	u := strings.TrimRight(rawURL, "/")
	if !strings.HasSuffix(u, "/graphql") {
		u += "/graphql"
	}
	return u
}

func authHeader(scheme, token string) string {
	if token == "" {
		return ""
	}
	if scheme == "" {
		return token
	}
	return scheme + " " + token
}

// Execute posts req and returns the raw response body. Any non-2xx status is
// returned as *Error with the body attached so GraphQL error envelopes sent
// with 4xx/5xx codes are not lost.
func (h *HTTP) Execute(ctx context.Context, req Request) ([]byte, error) {
	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("transport: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("transport: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if h.auth != "" {
		httpReq.Header.Set("Authorization", h.auth)
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("transport: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("transport: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{StatusCode: resp.StatusCode, Body: body}
	}
	return body, nil
}

// Subscribe always fails; use the WebSocket binding for subscriptions.
func (h *HTTP) Subscribe(context.Context, Request) (Stream, error) {
	return nil, ErrSubscriptionsUnsupported
}
