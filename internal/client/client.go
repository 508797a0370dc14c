package client

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/fivetwenty-io/gdapi/internal/constants"
	"github.com/fivetwenty-io/gdapi/pkg/gdapi"
)

// Client implements the gdapi.Client interface.
type Client struct {
	id        string
	options   *gdapi.Options
	requestor gdapi.Requestor
	logger    gdapi.Logger
	registry  *gdapi.ClientRegistry

	mu      sync.RWMutex
	baseURL string
	types   map[string]*gdapi.Type
}

// Config carries what New needs besides the options.
type Config struct {
	BaseURL   string
	AccessKey gdapi.Credential
	SecretKey gdapi.Credential
	Options   *gdapi.Options
	// Registry receives the client once its schema is loaded. Defaults to
	// gdapi.DefaultRegistry.
	Registry *gdapi.ClientRegistry
}

// New resolves the credentials, builds the transport, loads the schema and
// registers the client under its identity. Any schema failure aborts
// construction.
func New(ctx context.Context, config *Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, gdapi.ErrBaseURLRequired
	}

	options := config.Options
	if options == nil {
		options = gdapi.DefaultOptions()
	}

	err := options.Err()
	if err != nil {
		return nil, err
	}

	options = options.Clone()

	accessKey, err := gdapi.ResolveCredential(config.AccessKey)
	if err != nil {
		return nil, fmt.Errorf("resolving access key: %w", err)
	}

	secretKey, err := gdapi.ResolveCredential(config.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("resolving secret key: %w", err)
	}

	logger := options.Logger
	if logger == nil {
		logger = gdapi.NopLogger{}
	}

	registry := config.Registry
	if registry == nil {
		registry = gdapi.DefaultRegistry
	}

	requestor, err := gdapi.NewRequestor(config.BaseURL, options)
	if err != nil {
		return nil, fmt.Errorf("creating requestor: %w", err)
	}

	if accessKey != "" || secretKey != "" {
		requestor.SetAuth(accessKey, secretKey)
	}

	client := &Client{
		id:        gdapi.Identity(config.BaseURL, accessKey, secretKey),
		options:   options,
		requestor: requestor,
		logger:    logger,
		registry:  registry,
		baseURL:   strings.TrimSuffix(config.BaseURL, "/"),
		types:     map[string]*gdapi.Type{},
	}

	err = client.loadSchema(ctx, constants.SchemaRootPath)
	if err != nil {
		return nil, err
	}

	registry.Register(client.id, client)

	return client, nil
}

// ID implements gdapi.Client.
func (c *Client) ID() string {
	return c.id
}

// BaseURL implements gdapi.Client.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.baseURL
}

func (c *Client) setBaseURL(baseURL string) {
	c.mu.Lock()
	c.baseURL = strings.TrimSuffix(baseURL, "/")
	c.mu.Unlock()

	c.requestor.SetBaseURL(baseURL)
}

// Options implements gdapi.Client. The returned copy may be modified freely.
func (c *Client) Options() *gdapi.Options {
	return c.options.Clone()
}

// Meta implements gdapi.Client.
func (c *Client) Meta() *gdapi.RequestMeta {
	return c.requestor.Meta()
}

// Type implements gdapi.Client.
func (c *Client) Type(name string) (*gdapi.Type, error) {
	c.mu.RLock()
	typ, ok := c.types[name]
	c.mu.RUnlock()

	if ok {
		return typ, nil
	}

	_, err := c.Signal(fmt.Sprintf("There is no type for %q defined in the schema", name), "type", nil)

	return nil, err
}

// Types implements gdapi.Client.
func (c *Client) Types() map[string]*gdapi.Type {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return maps.Clone(c.types)
}

// Request implements gdapi.Client. Transport failures are returned as errors.
// A non-2xx status is signaled with the classified body as details.
func (c *Client) Request(
	ctx context.Context,
	method, path string,
	query url.Values,
	body any,
	contentType string,
) (any, error) {
	resp, err := c.requestor.Request(ctx, &gdapi.RequestSpec{
		Method:      method,
		Path:        path,
		Query:       query,
		Body:        body,
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	raw, err := decodeJSON(resp.Body, c.options.JSONDepthLimit)
	if err != nil {
		return nil, fmt.Errorf("parsing %s %s response: %w", method, path, err)
	}

	value := c.Classify(raw)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.Signal(errorMessage(value, resp.StatusCode), resp.StatusCode, value)
	}

	return value, nil
}

// Close implements gdapi.Client. Only the registry slot still holding this
// instance is cleared.
func (c *Client) Close() {
	c.registry.Unregister(c.id, c)
}

// errorMessage prefers the message carried by an error body.
func errorMessage(value any, status int) string {
	if res := gdapi.AsResource(value); res != nil {
		for _, attr := range []string{"message", "detail", "code"} {
			if msg := res.String(attr); msg != "" {
				return msg
			}
		}
	}

	if text := http.StatusText(status); text != "" {
		return text
	}

	return fmt.Sprintf("HTTP %d", status)
}
