package gdapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/gdapi/pkg/gdapi"
)

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestResource(t *testing.T) {
	t.Parallel()

	res := gdapi.NewResource("client-1", map[string]any{
		"id":      "42",
		"type":    "widget",
		"kind":    "gizmo",
		"name":    "sprocket",
		"count":   json.Number("7"),
		"ratio":   1.5,
		"enabled": true,
		"nothing": nil,
		"links": map[string]any{
			"self":   "https://api.example.com/v1/widgets/42",
			"parent": map[string]any{"href": "https://api.example.com/v1/parents/1"},
			"broken": 12,
		},
		"actions": map[string]any{
			"activate": "https://api.example.com/v1/widgets/42?action=activate",
		},
	})

	t.Run("accessors", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "client-1", res.ClientID())
		assert.Equal(t, "42", res.ID())
		assert.Equal(t, "widget", res.Type())
		assert.Equal(t, "sprocket", res.String("name"))
		assert.Equal(t, "7", res.String("count"))
		assert.Equal(t, "1.5", res.String("ratio"))
		assert.Equal(t, "true", res.String("enabled"))
		assert.Empty(t, res.String("nothing"))
		assert.Empty(t, res.String("absent"))
		assert.Equal(t, 7, res.Int("count"))
		assert.Equal(t, 1, res.Int("ratio"))
		assert.Zero(t, res.Int("name"))

		value, ok := res.Get("name")
		assert.True(t, ok)
		assert.Equal(t, "sprocket", value)
	})

	t.Run("meta is set", func(t *testing.T) {
		t.Parallel()

		assert.True(t, res.MetaIsSet("nothing"))
		assert.False(t, res.MetaIsSet("absent"))
	})

	t.Run("links", func(t *testing.T) {
		t.Parallel()

		links := res.Links()
		assert.Len(t, links, 2)
		assert.Equal(t, "https://api.example.com/v1/parents/1", links["parent"])

		href, ok := res.Link("self")
		assert.True(t, ok)
		assert.Equal(t, "https://api.example.com/v1/widgets/42", href)

		_, ok = res.Link("broken")
		assert.False(t, ok)
	})

	t.Run("actions", func(t *testing.T) {
		t.Parallel()

		assert.Contains(t, res.Actions(), "activate")
	})

	t.Run("type attr", func(t *testing.T) {
		t.Parallel()

		other := gdapi.NewResource("c", map[string]any{"type": "widget", "kind": "gizmo"})
		other.SetTypeAttr("kind")
		assert.Equal(t, "gizmo", other.Type())

		other.SetTypeAttr("")
		assert.Equal(t, "gizmo", other.Type(), "empty attr leaves the setting alone")
	})

	t.Run("marshal", func(t *testing.T) {
		t.Parallel()

		small := gdapi.NewResource("c", map[string]any{"id": "1", "nested": gdapi.NewResource("c", map[string]any{"a": 1})})

		data, err := json.Marshal(small)
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":"1","nested":{"a":1}}`, string(data))
	})

	t.Run("nil fields", func(t *testing.T) {
		t.Parallel()

		empty := gdapi.NewResource("c", nil)
		assert.NotNil(t, empty.Fields())
		assert.Empty(t, empty.Links())
		assert.Empty(t, empty.ID())
	})
}

func TestResource_ResourceTypes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		fields map[string]any
		want   map[string]bool
	}{
		{"map form", map[string]any{"resourceTypes": map[string]any{"schema": "x", "apiversion": "y"}}, map[string]bool{"schema": true, "apiversion": true}},
		{"list form", map[string]any{"resourceTypes": []any{"schema", 3}}, map[string]bool{"schema": true}},
		{"single", map[string]any{"resourceType": "schema"}, map[string]bool{"schema": true}},
		{"both", map[string]any{"resourceType": "a", "resourceTypes": []any{"b"}}, map[string]bool{"a": true, "b": true}},
		{"none", map[string]any{}, map[string]bool{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, gdapi.NewResource("c", tt.fields).ResourceTypes())
		})
	}
}

func TestCollection(t *testing.T) {
	t.Parallel()

	first := gdapi.NewResource("c", map[string]any{"id": "1"})
	second := gdapi.NewErrorValue("c", map[string]any{"id": "2"})

	coll := gdapi.NewCollection("c", map[string]any{
		"type":         "collection",
		"resourceType": "widget",
		"data":         []any{first, "scalar", second},
		"pagination":   map[string]any{"limit": json.Number("100")},
	})

	assert.Equal(t, 3, coll.Len())
	assert.Same(t, first, coll.At(0))
	assert.Nil(t, coll.At(-1))
	assert.Nil(t, coll.At(3))
	assert.Equal(t, "widget", coll.ResourceType())
	assert.Equal(t, json.Number("100"), coll.Pagination()["limit"])

	resources := coll.Resources()
	require.Len(t, resources, 2)
	assert.Equal(t, "1", resources[0].ID())
	assert.Equal(t, "2", resources[1].ID())

	empty := gdapi.NewCollection("c", map[string]any{})
	assert.Zero(t, empty.Len())
	assert.Nil(t, empty.Pagination())
}

func TestErrorValue(t *testing.T) {
	t.Parallel()

	withDetail := gdapi.NewErrorValue("c", map[string]any{
		"type":    "error",
		"status":  json.Number("422"),
		"code":    "InvalidName",
		"message": "Name is invalid",
		"detail":  "must not be empty",
	})

	assert.Equal(t, 422, withDetail.Status())
	assert.Equal(t, "InvalidName", withDetail.Code())
	assert.Equal(t, "Name is invalid: must not be empty (status: 422)", withDetail.Error())

	codeOnly := gdapi.NewErrorValue("c", map[string]any{"status": 404, "code": "NotFound"})
	assert.Equal(t, "NotFound (status: 404)", codeOnly.Error())

	var err error = codeOnly
	assert.Error(t, err)
}

func TestAsResourceAndCollection(t *testing.T) {
	t.Parallel()

	res := gdapi.NewResource("c", nil)
	coll := gdapi.NewCollection("c", nil)
	errValue := gdapi.NewErrorValue("c", nil)

	assert.Same(t, res, gdapi.AsResource(res))
	assert.Same(t, coll.Resource, gdapi.AsResource(coll))
	assert.Same(t, errValue.Resource, gdapi.AsResource(errValue))
	assert.Nil(t, gdapi.AsResource("string"))
	assert.Nil(t, gdapi.AsResource(nil))

	assert.Same(t, coll, gdapi.AsCollection(coll))
	assert.Nil(t, gdapi.AsCollection(res))
	assert.Nil(t, gdapi.AsCollection(errValue))
}

//nolint:paralleltest // uses the process-wide registry
func TestResource_Follow(t *testing.T) {
	client := newFakeClient("follow-values-test", true)

	gdapi.DefaultRegistry.Register(client.ID(), client)
	defer gdapi.DefaultRegistry.Unregister(client.ID(), client)

	res := gdapi.NewResource(client.ID(), map[string]any{
		"links": map[string]any{"children": "https://api.example.com/v1/children"},
	})

	result, err := res.Follow(context.Background(), "children")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1/children", gdapi.AsResource(result).String("path"))
	assert.Equal(t, http.MethodGet, client.lastCall().Method)

	_, err = res.Follow(context.Background(), "missing")
	require.ErrorIs(t, err, gdapi.ErrLinkNotFound)

	orphan := gdapi.NewResource("no-such-client", map[string]any{
		"links": map[string]any{"children": "/children"},
	})

	_, err = orphan.Follow(context.Background(), "children")
	require.ErrorIs(t, err, gdapi.ErrClientNotFound)
}

func TestResource_FollowIn(t *testing.T) {
	t.Parallel()

	client := newFakeClient("follow-in-values-test", true)

	registry := gdapi.NewClientRegistry(nil)
	registry.Register(client.ID(), client)

	res := gdapi.NewResource(client.ID(), map[string]any{
		"links": map[string]any{"parent": map[string]any{"href": "https://api.example.com/v1/parent"}},
	})

	result, err := res.FollowIn(context.Background(), registry, "parent")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1/parent", gdapi.AsResource(result).String("path"))

	_, err = res.FollowIn(context.Background(), gdapi.NewClientRegistry(nil), "parent")
	require.ErrorIs(t, err, gdapi.ErrClientNotFound)

	_, err = res.FollowIn(context.Background(), nil, "parent")
	require.ErrorIs(t, err, gdapi.ErrClientNotFound)
}

func TestSortedKeys(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"a", "b", "c"}, gdapi.SortedKeys(map[string]int{"c": 1, "a": 2, "b": 3}))
	assert.Empty(t, gdapi.SortedKeys(map[string]int{}))
}
