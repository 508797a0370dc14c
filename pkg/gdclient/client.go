// Package gdclient provides the main entry point for creating schema-driven API clients
package gdclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/fivetwenty-io/gdapi/internal/client"
	"github.com/fivetwenty-io/gdapi/pkg/gdapi"
)

// New creates a client for baseURL. The schema is loaded before New returns;
// the client is then reachable through Get under its identity until Close.
func New(ctx context.Context, baseURL string, accessKey, secretKey gdapi.Credential, opts ...gdapi.Option) (gdapi.Client, error) {
	if baseURL == "" {
		return nil, gdapi.ErrBaseURLRequired
	}

	// Normalize the endpoint
	baseURL = strings.TrimSuffix(baseURL, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}

	c, err := client.New(ctx, &client.Config{
		BaseURL:   baseURL,
		AccessKey: accessKey,
		SecretKey: secretKey,
		Options:   gdapi.NewOptions(opts...),
		Registry:  gdapi.DefaultRegistry,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return c, nil
}

// NewWithKeys creates a client from literal access and secret keys.
func NewWithKeys(ctx context.Context, baseURL, accessKey, secretKey string, opts ...gdapi.Option) (gdapi.Client, error) {
	return New(ctx, baseURL, gdapi.Literal(accessKey), gdapi.Literal(secretKey), opts...)
}

// NewWithConfig creates a client from a configuration map keyed by option
// names such as "throw_exceptions" or "cache_namespace".
func NewWithConfig(ctx context.Context, baseURL, accessKey, secretKey string, config map[string]any) (gdapi.Client, error) {
	return NewWithKeys(ctx, baseURL, accessKey, secretKey, gdapi.WithOverrides(config))
}

// SetCache installs the process-wide schema cache used by clients that do not
// set their own. Pass nil to disable caching.
func SetCache(cache gdapi.Cache) {
	gdapi.SetCache(cache)
}

// Get returns the live client registered under identity.
func Get(identity string) (gdapi.Client, bool) {
	return gdapi.DefaultRegistry.Lookup(identity)
}

// Identity returns the identity New assigns for the given endpoint and keys.
func Identity(baseURL, accessKey, secretKey string) string {
	baseURL = strings.TrimSuffix(baseURL, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}

	return gdapi.Identity(baseURL, accessKey, secretKey)
}
