package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/fivetwenty-io/gdapi/internal/constants"
	"github.com/fivetwenty-io/gdapi/pkg/gdapi"
)

// maxSchemaHops bounds how many apiversion documents are followed.
const maxSchemaHops = 8

// schemaFetches coalesces concurrent bootstraps of the same cache key.
var schemaFetches singleflight.Group

type schemaDocument struct {
	data   []byte
	source string
}

// cacheKey is the key a schema document for path is stored under.
func (c *Client) cacheKey(path string) string {
	key := constants.CacheKeyPrefix
	if ns := c.options.CacheNamespace; ns != "" {
		key += ns + "_"
	}

	return key + c.id + "_" + path
}

// cache returns the client's own cache, else the process-wide one.
func (c *Client) cache() gdapi.Cache {
	if c.options.Cache != nil {
		return c.options.Cache
	}

	return gdapi.DefaultCache()
}

// loadSchema populates the type registry from the document at path,
// following apiversion documents to their schemas link.
func (c *Client) loadSchema(ctx context.Context, path string) error {
	for hop := 0; hop < maxSchemaHops; hop++ {
		next, err := c.loadSchemaDocument(ctx, path)
		if err != nil {
			return err
		}

		if next == "" {
			return nil
		}

		c.logger.Debug("Following schemas link", map[string]interface{}{
			"from": path,
			"to":   next,
		})

		path = next
	}

	return c.schemaFailure(gdapi.ErrSchemaLoad, "Too many API version redirects while loading the schema")
}

// loadSchemaDocument handles one document. A non-empty return is the schemas
// link of an apiversion document that must be loaded next.
func (c *Client) loadSchemaDocument(ctx context.Context, path string) (string, error) {
	key := c.cacheKey(path)

	doc, err := c.fetchSchema(ctx, path, key)
	if err != nil {
		return "", err
	}

	raw, err := decodeJSON(doc.data, c.options.JSONDepthLimit)
	if err != nil {
		return "", c.schemaFailure(err, "Unable to parse API schema")
	}

	if raw == nil {
		return "", c.schemaFailure(gdapi.ErrSchemaEmpty, "Unable to load API schema")
	}

	value := c.Classify(raw)
	res := gdapi.AsResource(value)

	if res == nil {
		return "", c.schemaFailure(gdapi.ErrSchemaShape,
			fmt.Sprintf("The base URL %q does not look like an API version", c.BaseURL()+path))
	}

	if res.Type() == constants.TypeAPIVersion {
		if link, ok := res.Link(constants.LinkSchemas); ok && link != "" {
			return link, nil
		}
	}

	coll := gdapi.AsCollection(value)
	if coll == nil {
		return "", c.schemaFailure(gdapi.ErrSchemaShape,
			fmt.Sprintf("The base URL %q does not look like an API version", c.BaseURL()+path))
	}

	resourceTypes := coll.ResourceTypes()

	switch {
	case resourceTypes[constants.TypeAPIVersion]:
		return "", c.schemaFailure(gdapi.ErrVersionRequired,
			fmt.Sprintf("The base URL %q does not specify an API version to use", c.BaseURL()+path))
	case resourceTypes[constants.TypeSchema]:
		count := c.installSchema(coll)
		c.options.Metrics.RecordSchemaLoad(doc.source, count)
		c.storeSchema(ctx, key, doc)

		return "", nil
	default:
		return "", c.schemaFailure(gdapi.ErrSchemaShape,
			fmt.Sprintf("The base URL %q does not look like an API version", c.BaseURL()+path))
	}
}

// fetchSchema obtains the raw document: schema file, then cache, then network.
func (c *Client) fetchSchema(ctx context.Context, path, key string) (*schemaDocument, error) {
	if file := c.options.SchemaFile; file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, c.schemaFailure(err, fmt.Sprintf("Unable to read schema file %s", file))
		}

		return &schemaDocument{data: data, source: gdapi.SchemaSourceFile}, nil
	}

	// The shared fetch outlives any one caller; each caller still stops
	// waiting when its own context ends. The transport timeouts bound it.
	fetch := schemaFetches.DoChan(key, func() (interface{}, error) {
		return c.fetchSchemaUncoalesced(context.WithoutCancel(ctx), path, key)
	})

	select {
	case <-ctx.Done():
		return nil, c.schemaFailure(ctx.Err(), "Unable to load API schema")
	case result := <-fetch:
		if result.Err != nil {
			return nil, result.Err
		}

		if result.Shared {
			c.logger.Debug("Schema fetch shared with a concurrent bootstrap", map[string]interface{}{
				"key": key,
			})
		}

		doc, _ := result.Val.(*schemaDocument)

		return doc, nil
	}
}

func (c *Client) fetchSchemaUncoalesced(ctx context.Context, path, key string) (*schemaDocument, error) {
	if cache := c.cache(); cache != nil {
		entry, err := cache.Get(ctx, key)

		switch {
		case err == nil && entry != nil && len(entry.Data) > 0:
			c.logger.Debug("Schema cache hit", map[string]interface{}{"key": key})

			return &schemaDocument{data: entry.Data, source: gdapi.SchemaSourceCache}, nil
		case err != nil && !isCacheMiss(err):
			c.logger.Warn("Schema cache lookup failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
	}

	resp, err := c.requestor.Request(ctx, &gdapi.RequestSpec{Method: http.MethodGet, Path: path})
	if err != nil {
		return nil, c.schemaFailure(err, "Unable to load API schema")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.schemaFailure(gdapi.ErrSchemaLoad,
			fmt.Sprintf("Unable to load API schema: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
	}

	return &schemaDocument{data: resp.Body, source: gdapi.SchemaSourceNetwork}, nil
}

// installSchema rebases to the root link and replaces the type registry.
func (c *Client) installSchema(coll *gdapi.Collection) int {
	if root, ok := coll.Link(constants.LinkRoot); ok && root != "" {
		c.setBaseURL(root)
	}

	types := make(map[string]*gdapi.Type, coll.Len())

	for _, schema := range coll.Resources() {
		typ := gdapi.NewType(c, schema)
		types[typ.ID] = typ
	}

	c.mu.Lock()
	c.types = types
	c.mu.Unlock()

	c.logger.Info("Schema loaded", map[string]interface{}{
		"types":    len(types),
		"base_url": c.BaseURL(),
	})

	return len(types)
}

// storeSchema writes a freshly obtained document to the cache.
func (c *Client) storeSchema(ctx context.Context, key string, doc *schemaDocument) {
	cache := c.cache()
	if cache == nil || doc.source == gdapi.SchemaSourceCache {
		return
	}

	err := cache.Set(ctx, key, &gdapi.CacheEntry{Data: doc.data, ExpiresAt: time.Time{}})
	if err != nil {
		c.logger.Warn("Schema cache store failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}

// schemaFailure funnels a bootstrap failure through Signal. Construction
// cannot continue without types, so an error is returned in both modes.
func (c *Client) schemaFailure(cause error, message string) error {
	_, err := c.Signal(message, "schema", cause)
	if err == nil {
		err = gdapi.NewAPIError(message, "schema", cause)
	}

	return fmt.Errorf("%w: %w", err, cause)
}

func isCacheMiss(err error) bool {
	return errors.Is(err, gdapi.ErrKeyNotFound) ||
		errors.Is(err, gdapi.ErrEntryExpired) ||
		errors.Is(err, gdapi.ErrCacheDisabled) ||
		errors.Is(err, gdapi.ErrKeyNotFoundInAnyCache)
}
