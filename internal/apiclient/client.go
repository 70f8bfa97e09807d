// Package apiclient is the JSON-over-HTTP client for the storefront API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Request describes one API call.
type Request struct {
	Method string
	// Path is appended to the base URL unless it is already absolute.
	Path string
	// Body is JSON encoded when non-nil.
	Body any
	// AccessToken is sent as a bearer credential when set.
	AccessToken string
	Headers     http.Header
}

// Client sends JSON requests to the storefront API. The cookie jar keeps
// the refresh cookie set by the auth endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a client for baseURL.
func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) (*Client, error) {
	return NewClientWithTransport(baseURL, timeout, nil, logger)
}

// NewClientWithTransport creates a client over a custom transport. A nil
// transport uses http.DefaultTransport.
func NewClientWithTransport(baseURL string, timeout time.Duration, transport http.RoundTripper, logger zerolog.Logger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	logger = logger.With().Str("component", "apiclient").Logger()
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Jar:       jar,
			Transport: newLoggingTransport(transport, logger),
		},
		logger: logger,
	}, nil
}

// Do sends req and decodes a JSON response into out. A 204 response or
// an empty body leaves out untouched. Non-2xx responses return *APIError.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.url(req.Path), body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	for key, values := range req.Headers {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if httpReq.Header.Get(RequestIDHeader) == "" {
		httpReq.Header.Set(RequestIDHeader, uuid.NewString())
	}
	if req.AccessToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.AccessToken)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send %s %s: %w", method, req.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", req.Path, err)
	}
	return nil
}

func (c *Client) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + path
}
