package gdapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// Client is a schema-driven API client. Every response is classified into
// Values according to the discriminator field of each object.
type Client interface {
	// ID returns the client identity.
	ID() string
	// BaseURL returns the effective base URL, which may have been rebased to
	// the schema collection's root link.
	BaseURL() string
	// Request performs a call and returns the classified body.
	Request(ctx context.Context, method, path string, query url.Values, body any, contentType string) (any, error)
	// Type returns the descriptor of a discovered type.
	Type(name string) (*Type, error)
	// Types returns a snapshot of every discovered type.
	Types() map[string]*Type
	// Classify converts raw decoded JSON into Values.
	Classify(data any) any
	// Signal reports a condition according to ThrowExceptions: either an
	// *APIError, or details handed back with a nil error.
	Signal(message string, status any, details any) (any, error)
	// Meta returns metadata about the last request and response.
	Meta() *RequestMeta
	// Options returns the client's configuration.
	Options() *Options
	// Close unregisters the client from the process-wide registry.
	Close()
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, map[string]interface{}) {}
func (NopLogger) Info(string, map[string]interface{})  {}
func (NopLogger) Warn(string, map[string]interface{})  {}
func (NopLogger) Error(string, map[string]interface{}) {}

// RequestSpec describes one call made through a Requestor.
type RequestSpec struct {
	Method string
	// Path is relative to the base URL, or an absolute URL.
	Path        string
	Query       url.Values
	Body        any
	ContentType string
}

// RawResponse is what a Requestor hands back: the status and unparsed body.
type RawResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// RequestMeta describes the last request and response.
type RequestMeta struct {
	RequestID       string
	Method          string
	URL             string
	RequestHeaders  http.Header
	StatusCode      int
	ResponseHeaders http.Header
	StartedAt       time.Time
	Duration        time.Duration
}

// Requestor performs HTTP calls for a client. Transport failures are returned
// as errors; any response that arrives, whatever its status, is returned.
type Requestor interface {
	Request(ctx context.Context, spec *RequestSpec) (*RawResponse, error)
	SetAuth(user, pass string)
	SetBaseURL(baseURL string)
	Meta() *RequestMeta
}

// RequestorFactory builds a Requestor for a base URL.
type RequestorFactory func(baseURL string, options *Options) (Requestor, error)

// RequestClassHTTP names the built-in retryablehttp transport.
const RequestClassHTTP = "http"

var (
	requestorMu sync.RWMutex
	requestors  = map[string]RequestorFactory{}
)

// RegisterRequestor makes a transport selectable through Options.RequestClass.
func RegisterRequestor(name string, factory RequestorFactory) {
	requestorMu.Lock()
	defer requestorMu.Unlock()

	requestors[name] = factory
}

// NewRequestor builds the transport named by options.RequestClass.
func NewRequestor(baseURL string, options *Options) (Requestor, error) {
	requestorMu.RLock()
	factory, ok := requestors[options.RequestClass]
	requestorMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRequestClass, options.RequestClass)
	}

	return factory(baseURL, options)
}

var (
	cacheMu      sync.RWMutex
	defaultCache Cache
)

// SetCache installs the process-wide schema cache. Pass nil to disable it.
func SetCache(cache Cache) {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	defaultCache = cache
}

// DefaultCache returns the process-wide schema cache, if any.
func DefaultCache() Cache {
	cacheMu.RLock()
	defer cacheMu.RUnlock()

	return defaultCache
}
