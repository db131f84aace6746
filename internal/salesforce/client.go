// Package salesforce provides a client for the Salesforce REST API
// (query, describe and composite sobjects).
package salesforce

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

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pricing-engine/internal/interfaces"
	"golang.org/x/time/rate"
)

const (
	// DefaultAPIVersion is the REST API version used when none is configured.
	DefaultAPIVersion = "v62.0"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 2 * time.Minute
)

// Client is an authorized Salesforce REST API connection.
// It holds no per-call state and is safe for concurrent use.
type Client struct {
	instanceURL string
	sessionID   string
	apiVersion  string
	httpClient  *http.Client
	logger      arbor.ILogger
	limiter     *rate.Limiter
}

var _ interfaces.RecordStore = (*Client)(nil)

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithAPIVersion sets the REST API version, e.g. "v62.0".
func WithAPIVersion(version string) ClientOption {
	return func(c *Client) {
		if version != "" {
			c.apiVersion = version
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the HTTP timeout of the default client.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit caps requests per second. Zero disables limiting.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// NewClient creates a client for an instance URL and session id.
// No request is made; an invalid URL or empty session is rejected up front.
func NewClient(instanceURL, sessionID string, opts ...ClientOption) (*Client, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, errors.New("session id is required")
	}

	parsed, err := url.Parse(strings.TrimSpace(instanceURL))
	if err != nil {
		return nil, fmt.Errorf("invalid instance URL: %w", err)
	}
	if (parsed.Scheme != "https" && parsed.Scheme != "http") || parsed.Host == "" {
		return nil, fmt.Errorf("invalid instance URL %q: scheme and host are required", instanceURL)
	}

	c := &Client{
		instanceURL: parsed.Scheme + "://" + parsed.Host,
		sessionID:   sessionID,
		apiVersion:  DefaultAPIVersion,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// InstanceURL returns the scheme and host requests are sent to.
func (c *Client) InstanceURL() string {
	return c.instanceURL
}

// dataPath builds a path under /services/data/{version}.
func (c *Client) dataPath(suffix string) string {
	return "/services/data/" + c.apiVersion + suffix
}

// do performs one request. path is relative to the instance URL; result may be nil.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body any, result any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	reqURL := c.instanceURL + path
	if len(params) > 0 {
		reqURL = reqURL + "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.sessionID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.logger != nil {
		c.logger.Debug().
			Str("method", method).
			Str("path", path).
			Msg("Salesforce API request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp, path)
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// newAPIError reads an error response. The API returns a JSON array of
// {errorCode, message}; anything else is kept as raw text.
func newAPIError(resp *http.Response, path string) *APIError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(data)),
		Endpoint:   path,
	}

	var bodies []apiErrorBody
	if err := json.Unmarshal(data, &bodies); err == nil && len(bodies) > 0 {
		apiErr.Code = bodies[0].ErrorCode
		apiErr.Message = bodies[0].Message
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}

	return apiErr
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
