package client_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	. "github.com/fivetwenty-io/gdapi/internal/client"
	"github.com/fivetwenty-io/gdapi/pkg/gdapi"
)

// fakeAPI serves a small versioned API with widget and gadget types.
type fakeAPI struct {
	server      *httptest.Server
	rootHits    atomic.Int32
	schemaHits  atomic.Int32
	requestHits atomic.Int32
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()

	api := &fakeAPI{}
	api.server = httptest.NewServer(http.HandlerFunc(api.handle))
	t.Cleanup(api.server.Close)

	return api
}

func (a *fakeAPI) URL() string {
	return a.server.URL
}

func (a *fakeAPI) schemaDocument() map[string]any {
	base := a.server.URL + "/v1"

	return map[string]any{
		"type":         "collection",
		"resourceType": "schema",
		"links": map[string]any{
			"self": base + "/schemas",
			"root": base,
		},
		"data": []any{
			map[string]any{
				"id":         "widget",
				"type":       "schema",
				"pluralName": "widgets",
				"links": map[string]any{
					"self":       base + "/schemas/widget",
					"collection": base + "/widgets",
				},
				"resourceFields":    map[string]any{"name": map[string]any{"type": "string"}},
				"collectionMethods": []any{"GET", "POST"},
				"resourceMethods":   []any{"GET", "PUT", "DELETE"},
				"resourceActions":   map[string]any{"activate": map[string]any{}},
				"collectionFilters": map[string]any{"name": map[string]any{}},
			},
			map[string]any{
				"id":                "gadget",
				"type":              "schema",
				"links":             map[string]any{"self": base + "/schemas/gadget"},
				"collectionMethods": []any{"GET"},
				"resourceMethods":   []any{"GET"},
			},
		},
	}
}

func (a *fakeAPI) widget(id string) map[string]any {
	return map[string]any{
		"id":   id,
		"type": "widget",
		"name": "widget-" + id,
		"links": map[string]any{
			"self": a.server.URL + "/v1/widgets/" + id,
		},
		"parts": []any{
			map[string]any{"id": "p1", "type": "gadget"},
			"loose",
		},
	}
}

func (a *fakeAPI) handle(writer http.ResponseWriter, request *http.Request) {
	switch request.URL.Path {
	case "/":
		a.rootHits.Add(1)
		writeJSON(writer, http.StatusOK, map[string]any{
			"type":         "collection",
			"resourceType": "apiversion",
			"data":         []any{map[string]any{"id": "v1", "type": "apiversion"}},
		})
	case "/v1/":
		a.rootHits.Add(1)
		writeJSON(writer, http.StatusOK, map[string]any{
			"id":   "v1",
			"type": "apiversion",
			"links": map[string]any{
				"self":    a.server.URL + "/v1",
				"schemas": a.server.URL + "/v1/schemas",
			},
		})
	case "/v1/schemas":
		a.schemaHits.Add(1)
		writeJSON(writer, http.StatusOK, a.schemaDocument())
	case "/v1/widgets":
		a.requestHits.Add(1)
		a.handleWidgets(writer, request)
	case "/v1/widgets/1":
		a.requestHits.Add(1)
		a.handleWidget(writer, request)
	case "/v1/deep":
		writer.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(writer, strings.Repeat("[", 10)+strings.Repeat("]", 10))
	case "/odd/":
		writeJSON(writer, http.StatusOK, map[string]any{"id": "x", "type": "widget"})
	case "/v1/empty":
		writer.WriteHeader(http.StatusNoContent)
	default:
		writeJSON(writer, http.StatusNotFound, map[string]any{
			"type":    "error",
			"status":  404,
			"code":    "NotFound",
			"message": "Not found: " + request.URL.Path,
		})
	}
}

func (a *fakeAPI) handleWidgets(writer http.ResponseWriter, request *http.Request) {
	switch request.Method {
	case http.MethodGet:
		data := []any{a.widget("1"), a.widget("2")}
		if name := request.URL.Query().Get("name"); name != "" {
			data = []any{a.widget("1")}
		}

		writeJSON(writer, http.StatusOK, map[string]any{
			"type":         "collection",
			"resourceType": "widget",
			"data":         data,
		})
	case http.MethodPost:
		var body map[string]any

		_ = json.NewDecoder(request.Body).Decode(&body)
		body["id"] = "3"
		body["type"] = "widget"
		writeJSON(writer, http.StatusCreated, body)
	default:
		writer.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (a *fakeAPI) handleWidget(writer http.ResponseWriter, request *http.Request) {
	widget := a.widget("1")

	switch {
	case request.Method == http.MethodPost && request.URL.Query().Get("action") == "activate":
		widget["state"] = "active"
		writeJSON(writer, http.StatusOK, widget)
	case request.Method == http.MethodPut:
		var body map[string]any

		_ = json.NewDecoder(request.Body).Decode(&body)
		widget["name"] = body["name"]
		writeJSON(writer, http.StatusOK, widget)
	case request.Method == http.MethodDelete:
		writer.WriteHeader(http.StatusNoContent)
	default:
		writeJSON(writer, http.StatusOK, widget)
	}
}

func writeJSON(writer http.ResponseWriter, status int, body any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(body)
}

// newTestClient builds a client against the fake API with its own registry.
func newTestClient(t *testing.T, api *fakeAPI, opts ...gdapi.Option) (*Client, *gdapi.ClientRegistry) {
	t.Helper()

	registry := gdapi.NewClientRegistry(nil)

	client, err := New(context.Background(), &Config{
		BaseURL:   api.URL() + "/v1",
		AccessKey: gdapi.Literal("access"),
		SecretKey: gdapi.Literal("secret"),
		Options:   gdapi.NewOptions(opts...),
		Registry:  registry,
	})
	require.NoError(t, err)

	return client, registry
}
