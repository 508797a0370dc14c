package gdapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/fivetwenty-io/gdapi/internal/constants"
)

// Type describes one resource type discovered from the schema.
type Type struct {
	// ID is the type name used for lookups.
	ID                string
	PluralName        string
	Links             map[string]string
	ResourceFields    map[string]any
	CollectionMethods []string
	ResourceMethods   []string
	ResourceActions   map[string]any
	CollectionActions map[string]any
	CollectionFilters map[string]any

	schema *Resource
	client Client
}

// NewType builds a descriptor from one classified schema element. client is
// used by the type operations; it may be nil for a detached descriptor.
func NewType(client Client, schema *Resource) *Type {
	fields := schema.Fields()

	return &Type{
		ID:                schema.ID(),
		PluralName:        schema.String("pluralName"),
		Links:             schema.Links(),
		ResourceFields:    asMap(fields["resourceFields"]),
		CollectionMethods: asStrings(fields["collectionMethods"]),
		ResourceMethods:   asStrings(fields["resourceMethods"]),
		ResourceActions:   asMap(fields["resourceActions"]),
		CollectionActions: asMap(fields["collectionActions"]),
		CollectionFilters: asMap(fields["collectionFilters"]),
		schema:            schema,
		client:            client,
	}
}

// Schema returns the schema element the descriptor was built from.
func (t *Type) Schema() *Resource {
	return t.schema
}

// HasField reports whether the schema declares a resource field.
func (t *Type) HasField(name string) bool {
	_, ok := t.ResourceFields[name]

	return ok
}

// CanCollection reports whether method is allowed on the collection. A schema
// that lists no collection methods at all restricts nothing.
func (t *Type) CanCollection(method string) bool {
	return t.CollectionMethods == nil || containsFold(t.CollectionMethods, method)
}

// CanResource reports whether method is allowed on a single resource.
func (t *Type) CanResource(method string) bool {
	return t.ResourceMethods == nil || containsFold(t.ResourceMethods, method)
}

// CollectionPath returns the collection URL of the type.
func (t *Type) CollectionPath() string {
	if href, ok := t.Links[constants.LinkCollection]; ok && href != "" {
		return href
	}

	plural := t.PluralName
	if plural == "" {
		plural = t.ID + "s"
	}

	return "/" + plural
}

// ResourcePath returns the URL of a single resource of the type.
func (t *Type) ResourcePath(id string) string {
	return strings.TrimSuffix(t.CollectionPath(), "/") + "/" + url.PathEscape(id)
}

// List fetches the collection, optionally filtered.
func (t *Type) List(ctx context.Context, filters url.Values) (any, error) {
	if !t.CanCollection(http.MethodGet) {
		return t.notAllowed(http.MethodGet, "collection")
	}

	return t.request(ctx, http.MethodGet, t.CollectionPath(), filters, nil, "")
}

// Get fetches one resource by id.
func (t *Type) Get(ctx context.Context, id string) (any, error) {
	if !t.CanResource(http.MethodGet) {
		return t.notAllowed(http.MethodGet, "resource")
	}

	return t.request(ctx, http.MethodGet, t.ResourcePath(id), nil, nil, "")
}

// Create posts a new resource to the collection.
func (t *Type) Create(ctx context.Context, body any) (any, error) {
	if !t.CanCollection(http.MethodPost) {
		return t.notAllowed(http.MethodPost, "collection")
	}

	return t.request(ctx, http.MethodPost, t.CollectionPath(), nil, body, "")
}

// Update replaces attributes of one resource.
func (t *Type) Update(ctx context.Context, id string, body any) (any, error) {
	if !t.CanResource(http.MethodPut) {
		return t.notAllowed(http.MethodPut, "resource")
	}

	return t.request(ctx, http.MethodPut, t.ResourcePath(id), nil, body, "")
}

// Remove deletes one resource.
func (t *Type) Remove(ctx context.Context, id string) (any, error) {
	if !t.CanResource(http.MethodDelete) {
		return t.notAllowed(http.MethodDelete, "resource")
	}

	return t.request(ctx, http.MethodDelete, t.ResourcePath(id), nil, nil, "")
}

// Action invokes a resource action declared in the schema.
func (t *Type) Action(ctx context.Context, id, action string, body any) (any, error) {
	if _, ok := t.ResourceActions[action]; !ok {
		return t.notAllowed(action, "resource action")
	}

	query := url.Values{"action": []string{action}}

	return t.request(ctx, http.MethodPost, t.ResourcePath(id), query, body, "")
}

func (t *Type) notAllowed(method, target string) (any, error) {
	message := fmt.Sprintf("%s is not allowed on %s of type %q", method, target, t.ID)
	if t.client == nil {
		return nil, NewAPIError(message, "method", nil)
	}

	return t.client.Signal(message, "method", nil)
}

func asMap(value any) map[string]any {
	m, ok := value.(map[string]any)
	if !ok {
		return map[string]any{}
	}

	return m
}

func asStrings(value any) []string {
	items, ok := value.([]any)
	if !ok {
		return nil
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}

	return out
}

func containsFold(values []string, want string) bool {
	return slices.ContainsFunc(values, func(v string) bool {
		return strings.EqualFold(v, want)
	})
}

func (t *Type) request(ctx context.Context, method, path string, query url.Values, body any, contentType string) (any, error) {
	if t.client == nil {
		return nil, ErrClientNotFound
	}

	return t.client.Request(ctx, method, path, query, body, contentType)
}
