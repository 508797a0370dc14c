package gdapi

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strconv"
)

// Value is a classified object. Every object-shaped part of a response is
// turned into exactly one Value.
type Value interface {
	// ClientID is the identity of the client that produced the value.
	ClientID() string
	// Type is the discriminator the value was classified from, if any.
	Type() string
	// Fields returns the attributes, with arrays and typed objects already
	// classified.
	Fields() map[string]any
}

// Resource is the default class: a bag of attributes plus links and actions.
type Resource struct {
	clientID string
	typeAttr string
	fields   map[string]any
}

// NewResource builds a Resource. The fields map is owned by the Resource.
func NewResource(clientID string, fields map[string]any) *Resource {
	if fields == nil {
		fields = map[string]any{}
	}

	return &Resource{
		clientID: clientID,
		typeAttr: "type",
		fields:   fields,
	}
}

// ClientID implements Value.
func (r *Resource) ClientID() string {
	return r.clientID
}

// Type implements Value.
func (r *Resource) Type() string {
	return r.String(r.typeAttr)
}

// SetTypeAttr changes which field Type reads. The classifier sets it from
// the client's type_attr option.
func (r *Resource) SetTypeAttr(attr string) {
	if attr != "" {
		r.typeAttr = attr
	}
}

// Fields implements Value.
func (r *Resource) Fields() map[string]any {
	return r.fields
}

// ID returns the "id" attribute as a string.
func (r *Resource) ID() string {
	return r.String("id")
}

// Get returns an attribute by name.
func (r *Resource) Get(attr string) (any, bool) {
	value, ok := r.fields[attr]

	return value, ok
}

// String returns an attribute rendered as a string, or "" if absent.
func (r *Resource) String(attr string) string {
	value, ok := r.fields[attr]
	if !ok || value == nil {
		return ""
	}

	return stringify(value)
}

// Int returns a numeric attribute, or 0 if absent or not a number.
func (r *Resource) Int(attr string) int {
	n, _ := toInt(r.fields[attr])

	return n
}

// MetaIsSet reports whether key is present at all, even if null.
func (r *Resource) MetaIsSet(key string) bool {
	_, ok := r.fields[key]

	return ok
}

// Links returns name -> href for every link of the resource.
func (r *Resource) Links() map[string]string {
	return hrefMap(r.fields["links"])
}

// Link resolves a link by name.
func (r *Resource) Link(name string) (string, bool) {
	href, ok := r.Links()[name]

	return href, ok && href != ""
}

// Actions returns name -> href for the actions the resource advertises.
func (r *Resource) Actions() map[string]string {
	return hrefMap(r.fields["actions"])
}

// ResourceTypes returns the set of resource types a document advertises.
// Both the "resourceTypes" map/list form and the single "resourceType" form
// are understood.
func (r *Resource) ResourceTypes() map[string]bool {
	types := map[string]bool{}

	switch value := r.fields["resourceTypes"].(type) {
	case map[string]any:
		for name := range value {
			types[name] = true
		}
	case []any:
		for _, name := range value {
			if s, ok := name.(string); ok {
				types[s] = true
			}
		}
	}

	if single, ok := r.fields["resourceType"].(string); ok && single != "" {
		types[single] = true
	}

	return types
}

// Follow fetches a link through the client that produced this resource. The
// client is looked up in DefaultRegistry; resources from a client registered
// elsewhere use FollowIn.
func (r *Resource) Follow(ctx context.Context, link string) (any, error) {
	return r.FollowIn(ctx, DefaultRegistry, link)
}

// FollowIn is Follow with the producing client looked up in registry.
func (r *Resource) FollowIn(ctx context.Context, registry *ClientRegistry, link string) (any, error) {
	href, ok := r.Link(link)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLinkNotFound, link)
	}

	if registry == nil {
		return nil, ErrClientNotFound
	}

	client, ok := registry.Lookup(r.clientID)
	if !ok {
		return nil, ErrClientNotFound
	}

	return client.Request(ctx, http.MethodGet, href, nil, nil, "")
}

// MarshalJSON renders the attributes, with nested values rendered the same way.
func (r *Resource) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.fields)
}

// Collection is a list response. Its "data" elements are classified.
type Collection struct {
	*Resource
}

// NewCollection builds a Collection.
func NewCollection(clientID string, fields map[string]any) *Collection {
	return &Collection{Resource: NewResource(clientID, fields)}
}

// Items returns the classified elements.
func (c *Collection) Items() []any {
	items, _ := c.fields["data"].([]any)

	return items
}

// Len returns the number of elements.
func (c *Collection) Len() int {
	return len(c.Items())
}

// At returns the element at index i, or nil when out of range.
func (c *Collection) At(i int) any {
	items := c.Items()
	if i < 0 || i >= len(items) {
		return nil
	}

	return items[i]
}

// Resources returns the elements that are Resources or embed one.
func (c *Collection) Resources() []*Resource {
	var out []*Resource

	for _, item := range c.Items() {
		if res := AsResource(item); res != nil {
			out = append(out, res)
		}
	}

	return out
}

// ResourceType returns the declared element type.
func (c *Collection) ResourceType() string {
	return c.String("resourceType")
}

// Pagination returns the raw pagination block, if any.
func (c *Collection) Pagination() map[string]any {
	pagination, _ := c.fields["pagination"].(map[string]any)

	return pagination
}

// ErrorValue is the class for error-shaped responses.
type ErrorValue struct {
	*Resource
}

// NewErrorValue builds an ErrorValue.
func NewErrorValue(clientID string, fields map[string]any) *ErrorValue {
	return &ErrorValue{Resource: NewResource(clientID, fields)}
}

// Status returns the HTTP status recorded in the body.
func (e *ErrorValue) Status() int {
	return e.Int("status")
}

// Code returns the error code.
func (e *ErrorValue) Code() string {
	return e.String("code")
}

// Message returns the human readable message.
func (e *ErrorValue) Message() string {
	return e.String("message")
}

// Detail returns additional detail.
func (e *ErrorValue) Detail() string {
	return e.String("detail")
}

// Error makes an ErrorValue usable as an error.
func (e *ErrorValue) Error() string {
	msg := e.Message()
	if msg == "" {
		msg = e.Code()
	}

	if detail := e.Detail(); detail != "" {
		return fmt.Sprintf("%s: %s (status: %d)", msg, detail, e.Status())
	}

	return fmt.Sprintf("%s (status: %d)", msg, e.Status())
}

// resourceHolder is implemented by every value class built on Resource.
type resourceHolder interface {
	base() *Resource
}

func (r *Resource) base() *Resource {
	return r
}

// AsResource returns the Resource underneath a classified value, or nil.
func AsResource(value any) *Resource {
	holder, ok := value.(resourceHolder)
	if !ok {
		return nil
	}

	return holder.base()
}

// AsCollection returns value as a Collection, or nil.
func AsCollection(value any) *Collection {
	holder, ok := value.(interface{ collection() *Collection })
	if !ok {
		return nil
	}

	return holder.collection()
}

func (c *Collection) collection() *Collection {
	return c
}

func hrefMap(raw any) map[string]string {
	links := map[string]string{}

	entries, ok := raw.(map[string]any)
	if !ok {
		return links
	}

	for name, value := range entries {
		switch href := value.(type) {
		case string:
			links[name] = href
		case map[string]any:
			if s, ok := href["href"].(string); ok {
				links[name] = s
			}
		}
	}

	return links
}

// SortedKeys returns the keys of m in order; handy for stable output.
func SortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

func toInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}

		return int(n), true
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}

		return n, true
	default:
		return 0, false
	}
}
