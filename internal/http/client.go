// Package http is the retryablehttp-backed transport used by the client.
package http

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
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/fivetwenty-io/gdapi/internal/constants"
	"github.com/fivetwenty-io/gdapi/pkg/gdapi"
)

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Client performs HTTP requests relative to a base URL.
type Client struct {
	httpClient   *retryablehttp.Client
	logger       Logger
	debug        bool
	userAgent    string
	headers      map[string]string
	interceptors *gdapi.InterceptorChain

	mu       sync.Mutex
	baseURL  string
	username string
	password string
	meta     *gdapi.RequestMeta
}

// Option configures a Client.
type Option func(*Client)

// Request is one call.
type Request struct {
	Method string
	// Path is joined to the base URL unless it is already absolute.
	Path        string
	Query       url.Values
	Body        interface{}
	Headers     map[string]string
	ContentType string
}

// Response is a received response, whatever its status.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// ResponseError is returned alongside the Response for non-2xx statuses.
type ResponseError struct {
	StatusCode int
	Body       []byte
}

// Error implements the error interface.
func (e *ResponseError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, strings.TrimSpace(string(e.Body)))
}

// NewClient creates a new HTTP client.
func NewClient(baseURL string, opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil
	retryClient.RetryMax = 0
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	client := &Client{
		httpClient: retryClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		userAgent:  "gdapi-go/" + constants.Version,
		headers:    map[string]string{"Accept": constants.MIMETypeJSON},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// WithLogger sets the logger.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables request/response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithRetryConfig enables retries of 5xx, 429 and connection errors.
func WithRetryConfig(maxRetries int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.httpClient.RetryMax = maxRetries
		c.httpClient.RetryWaitMin = waitMin
		c.httpClient.RetryWaitMax = waitMax
	}
}

// WithHTTPClient sets the underlying net/http client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient = httpClient
	}
}

// WithHeaders adds headers sent with every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		for key, value := range headers {
			c.headers[key] = value
		}
	}
}

// WithBasicAuth sets credentials sent with every request.
func WithBasicAuth(username, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithInterceptors installs an interceptor chain.
func WithInterceptors(chain *gdapi.InterceptorChain) Option {
	return func(c *Client) {
		c.interceptors = chain
	}
}

// SetAuth replaces the basic auth credentials.
func (c *Client) SetAuth(username, password string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.username = username
	c.password = password
}

// SetBaseURL changes the URL relative paths are joined to.
func (c *Client) SetBaseURL(baseURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.baseURL = strings.TrimSuffix(baseURL, "/")
}

// BaseURL returns the current base URL.
func (c *Client) BaseURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.baseURL
}

// Meta returns metadata about the last request.
func (c *Client) Meta() *gdapi.RequestMeta {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.meta == nil {
		return nil
	}

	meta := *c.meta

	return &meta
}

// Do performs a request. A transport failure returns a nil Response; a non-2xx
// status returns the Response together with a *ResponseError.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	body, contentType, err := encodeBody(req.Body, req.ContentType)
	if err != nil {
		return nil, err
	}

	intercepted := &gdapi.InterceptedRequest{
		Method:  req.Method,
		URL:     c.buildURL(req.Path, req.Query),
		Headers: c.buildHeaders(req.Headers, contentType, body != nil),
		Body:    body,
	}

	if c.interceptors != nil {
		err = c.interceptors.ExecuteRequestInterceptors(ctx, intercepted)
		if err != nil {
			return nil, err
		}
	}

	c.logDebug("HTTP Request", map[string]interface{}{
		"method": intercepted.Method,
		"url":    intercepted.URL,
	})

	started := time.Now()
	resp, err := c.send(ctx, intercepted)
	c.recordMeta(intercepted, resp, started)

	if c.interceptors != nil {
		seen := &gdapi.InterceptedResponse{Error: err}
		if resp != nil {
			seen.StatusCode = resp.StatusCode
			seen.Headers = resp.Headers
			seen.Body = resp.Body
		}

		interceptErr := c.interceptors.ExecuteResponseInterceptors(ctx, intercepted, seen)
		if interceptErr != nil && err == nil {
			return resp, interceptErr
		}
	}

	if err != nil {
		c.logError("HTTP Request Failed", map[string]interface{}{
			"method": intercepted.Method,
			"url":    intercepted.URL,
			"error":  err.Error(),
		})

		return nil, err
	}

	c.logDebug("HTTP Response", map[string]interface{}{
		"status_code": resp.StatusCode,
		"duration":    time.Since(started).String(),
	})

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, &ResponseError{StatusCode: resp.StatusCode, Body: resp.Body}
	}

	return resp, nil
}

func (c *Client) send(ctx context.Context, intercepted *gdapi.InterceptedRequest) (*Response, error) {
	var rawBody interface{}
	if intercepted.Body != nil {
		rawBody = intercepted.Body
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, intercepted.Method, intercepted.URL, rawBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header = intercepted.Headers

	c.mu.Lock()
	username, password := c.username, c.password
	c.mu.Unlock()

	if username != "" || password != "" {
		httpReq.SetBasicAuth(username, password)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       respBody,
	}, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put performs a PUT request.
func (c *Client) Put(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: body})
}

// Patch performs a PATCH request.
func (c *Client) Patch(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPatch, Path: path, Body: body})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path})
}

// IsResponseError reports whether err carries a non-2xx status.
func IsResponseError(err error) bool {
	respErr := &ResponseError{}

	return errors.As(err, &respErr)
}

func (c *Client) buildURL(path string, query url.Values) string {
	target := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		target = c.BaseURL() + "/" + strings.TrimPrefix(path, "/")
	}

	if len(query) == 0 {
		return target
	}

	separator := "?"
	if strings.Contains(target, "?") {
		separator = "&"
	}

	return target + separator + query.Encode()
}

func (c *Client) buildHeaders(extra map[string]string, contentType string, hasBody bool) http.Header {
	headers := make(http.Header)
	for key, value := range c.headers {
		headers.Set(key, value)
	}

	if c.userAgent != "" {
		headers.Set("User-Agent", c.userAgent)
	}

	if hasBody {
		headers.Set("Content-Type", contentType)
	}

	for key, value := range extra {
		headers.Set(key, value)
	}

	return headers
}

func (c *Client) recordMeta(req *gdapi.InterceptedRequest, resp *Response, started time.Time) {
	meta := &gdapi.RequestMeta{
		RequestID:      req.Headers.Get(gdapi.RequestIDHeader),
		Method:         req.Method,
		URL:            req.URL,
		RequestHeaders: req.Headers.Clone(),
		StartedAt:      started,
		Duration:       time.Since(started),
	}

	if resp != nil {
		meta.StatusCode = resp.StatusCode
		meta.ResponseHeaders = resp.Headers
	}

	meta.RequestHeaders.Del("Authorization")

	c.mu.Lock()
	c.meta = meta
	c.mu.Unlock()
}

func (c *Client) logDebug(msg string, fields map[string]interface{}) {
	if c.debug && c.logger != nil {
		c.logger.Debug(msg, fields)
	}
}

func (c *Client) logError(msg string, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.Error(msg, fields)
	}
}

// encodeBody turns a request body into bytes. Byte slices, strings and
// readers are sent as-is; anything else is encoded as JSON.
func encodeBody(body interface{}, contentType string) ([]byte, string, error) {
	if body == nil {
		return nil, contentType, nil
	}

	if contentType == "" {
		contentType = constants.MIMETypeJSON
	}

	switch value := body.(type) {
	case []byte:
		return value, contentType, nil
	case string:
		return []byte(value), contentType, nil
	case io.Reader:
		data, err := io.ReadAll(value)
		if err != nil {
			return nil, "", fmt.Errorf("reading request body: %w", err)
		}

		return data, contentType, nil
	default:
		var buf bytes.Buffer

		err := json.NewEncoder(&buf).Encode(value)
		if err != nil {
			return nil, "", fmt.Errorf("encoding request body: %w", err)
		}

		return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), contentType, nil
	}
}
