package gdapi

import (
	"fmt"
	"maps"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"github.com/fivetwenty-io/gdapi/internal/constants"
)

// Options configures a client. A client copies its Options at construction
// and never mutates them afterwards.
type Options struct {
	// Classmap maps discriminator values to registered class names. Anything
	// not mapped is looked up as a class name itself, then falls back to
	// DefaultClass.
	Classmap map[string]string `mapstructure:"classmap"`
	// ThrowExceptions selects the signal behavior: when true every signaled
	// condition is returned as an *APIError; when false the details value is
	// returned instead, with a nil error.
	ThrowExceptions bool `mapstructure:"throw_exceptions"`
	// CacheNamespace is an optional prefix for schema cache keys.
	CacheNamespace string `mapstructure:"cache_namespace"`
	// DefaultClass is the class used for objects whose discriminator does not
	// resolve to a registered class.
	DefaultClass string `mapstructure:"default_class"`
	// RequestClass selects the Requestor implementation registered with
	// RegisterRequestor.
	RequestClass string `mapstructure:"request_class"`
	// SchemaFile, if set, is parsed as the schema document instead of asking
	// the cache or the network.
	SchemaFile string `mapstructure:"schema_file"`

	// TLS settings.
	VerifySSL      bool       `mapstructure:"verify_ssl"`
	CACert         string     `mapstructure:"ca_cert"`
	CAPath         string     `mapstructure:"ca_path"`
	ClientCert     string     `mapstructure:"client_cert"`
	ClientCertKey  string     `mapstructure:"client_cert_key"`
	ClientCertPass Credential `mapstructure:"client_cert_pass"`

	// Connection settings. Map input accepts numeric seconds or duration strings.
	ConnectTimeout  time.Duration     `mapstructure:"connect_timeout"`
	ResponseTimeout time.Duration     `mapstructure:"response_timeout"`
	KeepAlive       time.Duration     `mapstructure:"keep_alive"`
	Compress        bool              `mapstructure:"compress"`
	Interface       string            `mapstructure:"interface"`
	Headers         map[string]string `mapstructure:"headers"`
	FollowRedirects bool              `mapstructure:"follow_redirects"`
	MaxRedirects    int               `mapstructure:"max_redirects"`
	UserAgent       string            `mapstructure:"user_agent"`

	// RetryMax is the number of transport-level retries for 5xx, 429 and
	// connection errors. Zero disables retries.
	RetryMax     int           `mapstructure:"retry_max"`
	RetryWaitMin time.Duration `mapstructure:"retry_wait_min"`
	RetryWaitMax time.Duration `mapstructure:"retry_wait_max"`

	// TypeAttr names the discriminator field.
	TypeAttr string `mapstructure:"type_attr"`
	// JSONDepthLimit bounds nesting while response bodies are parsed.
	JSONDepthLimit int `mapstructure:"json_depth_limit"`
	// Debug enables "HTTP Request"/"HTTP Response" logging in the transport.
	Debug bool `mapstructure:"debug"`

	// Extra holds map keys no field recognizes. The client never reads them.
	Extra map[string]any `mapstructure:"-"`

	// Collaborators that cannot come from a config map.
	Cache        Cache             `mapstructure:"-"`
	Logger       Logger            `mapstructure:"-"`
	Metrics      *MetricsCollector `mapstructure:"-"`
	Interceptors *InterceptorChain `mapstructure:"-"`
}

// Option overrides a single setting.
type Option func(*Options)

// DefaultOptions returns a fresh copy of the defaults.
func DefaultOptions() *Options {
	return &Options{
		Classmap: map[string]string{
			constants.TypeCollection: ClassCollection,
			constants.TypeError:      ClassError,
		},
		ThrowExceptions: true,
		DefaultClass:    ClassResource,
		RequestClass:    RequestClassHTTP,
		VerifySSL:       true,
		ConnectTimeout:  constants.DefaultConnectTimeout,
		ResponseTimeout: constants.DefaultResponseTimeout,
		KeepAlive:       constants.DefaultKeepAlive,
		Compress:        true,
		Headers: map[string]string{
			"Accept": constants.MIMETypeJSON,
		},
		FollowRedirects: true,
		MaxRedirects:    constants.DefaultMaxRedirects,
		RetryWaitMin:    constants.DefaultRetryWaitMin,
		RetryWaitMax:    constants.DefaultRetryWaitMax,
		TypeAttr:        constants.DefaultTypeAttr,
		JSONDepthLimit:  constants.DefaultJSONDepthLimit,
		Extra:           map[string]any{},
	}
}

// NewOptions applies opts on top of the defaults.
func NewOptions(opts ...Option) *Options {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// Clone returns a deep copy of the map-valued settings; collaborators are shared.
func (o *Options) Clone() *Options {
	clone := *o
	clone.Classmap = maps.Clone(o.Classmap)
	clone.Headers = maps.Clone(o.Headers)
	clone.Extra = maps.Clone(o.Extra)

	if clone.Classmap == nil {
		clone.Classmap = map[string]string{}
	}

	if clone.Headers == nil {
		clone.Headers = map[string]string{}
	}

	if clone.Extra == nil {
		clone.Extra = map[string]any{}
	}

	return &clone
}

// Merge decodes overrides, keyed by the snake_case option names, into a copy
// of o. Classmap and headers entries are merged key by key; everything else
// replaces the current value. Unrecognized keys are kept in Extra.
func (o *Options) Merge(overrides map[string]any) (*Options, error) {
	merged := o.Clone()
	if len(overrides) == 0 {
		return merged, nil
	}

	rest := make(map[string]any, len(overrides))

	for key, value := range overrides {
		switch key {
		case "classmap":
			err := mergeStringMap(merged.Classmap, key, value)
			if err != nil {
				return nil, err
			}
		case "headers":
			err := mergeStringMap(merged.Headers, key, value)
			if err != nil {
				return nil, err
			}
		default:
			rest[key] = value
		}
	}

	var meta mapstructure.Metadata

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			secondsToDurationHook,
			mapstructure.StringToTimeDurationHookFunc(),
			credentialHook,
		),
		WeaklyTypedInput: true,
		Metadata:         &meta,
		Result:           merged,
	})
	if err != nil {
		return nil, fmt.Errorf("creating options decoder: %w", err)
	}

	err = decoder.Decode(rest)
	if err != nil {
		return nil, fmt.Errorf("decoding options: %w", err)
	}

	for _, key := range meta.Unused {
		merged.Extra[key] = rest[key]
	}

	return merged, nil
}

func mergeStringMap(dst map[string]string, key string, value any) error {
	var decoded map[string]string

	err := mapstructure.WeakDecode(value, &decoded)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", key, err)
	}

	maps.Copy(dst, decoded)

	return nil
}

var (
	durationType   = reflect.TypeOf(time.Duration(0))
	credentialType = reflect.TypeOf((*Credential)(nil)).Elem()
)

// secondsToDurationHook reads bare numbers as seconds, like the timeouts of
// the original configuration format.
func secondsToDurationHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != durationType {
		return data, nil
	}

	switch value := data.(type) {
	case int:
		return time.Duration(value) * time.Second, nil
	case int64:
		return time.Duration(value) * time.Second, nil
	case float64:
		return time.Duration(value * float64(time.Second)), nil
	default:
		return data, nil
	}
}

func credentialHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != credentialType {
		return data, nil
	}

	switch value := data.(type) {
	case string:
		return Literal(value), nil
	case func() (string, error):
		return Provider(value), nil
	case func() string:
		return Provider(func() (string, error) { return value(), nil }), nil
	default:
		return data, nil
	}
}

// WithClassmap adds discriminator -> class name entries.
func WithClassmap(classmap map[string]string) Option {
	return func(o *Options) {
		maps.Copy(o.Classmap, classmap)
	}
}

// WithThrowExceptions selects whether signaled conditions are returned as errors.
func WithThrowExceptions(enabled bool) Option {
	return func(o *Options) {
		o.ThrowExceptions = enabled
	}
}

// WithCacheNamespace sets the schema cache key prefix.
func WithCacheNamespace(namespace string) Option {
	return func(o *Options) {
		o.CacheNamespace = namespace
	}
}

// WithDefaultClass sets the fallback class.
func WithDefaultClass(class string) Option {
	return func(o *Options) {
		o.DefaultClass = class
	}
}

// WithRequestClass selects a registered Requestor.
func WithRequestClass(name string) Option {
	return func(o *Options) {
		o.RequestClass = name
	}
}

// WithSchemaFile loads the schema from a local file.
func WithSchemaFile(path string) Option {
	return func(o *Options) {
		o.SchemaFile = path
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(o *Options) {
		o.Headers[key] = value
	}
}

// WithTypeAttr sets the discriminator field name.
func WithTypeAttr(attr string) Option {
	return func(o *Options) {
		o.TypeAttr = attr
	}
}

// WithJSONDepthLimit bounds response nesting.
func WithJSONDepthLimit(limit int) Option {
	return func(o *Options) {
		o.JSONDepthLimit = limit
	}
}

// WithTimeouts sets the connect and response timeouts.
func WithTimeouts(connect, response time.Duration) Option {
	return func(o *Options) {
		o.ConnectTimeout = connect
		o.ResponseTimeout = response
	}
}

// WithTLS configures certificate verification.
func WithTLS(verify bool, caCert, caPath string) Option {
	return func(o *Options) {
		o.VerifySSL = verify
		o.CACert = caCert
		o.CAPath = caPath
	}
}

// WithClientCert configures a client certificate.
func WithClientCert(cert, key string, pass Credential) Option {
	return func(o *Options) {
		o.ClientCert = cert
		o.ClientCertKey = key
		o.ClientCertPass = pass
	}
}

// WithRetry enables transport retries.
func WithRetry(maxRetries int, waitMin, waitMax time.Duration) Option {
	return func(o *Options) {
		o.RetryMax = maxRetries
		o.RetryWaitMin = waitMin
		o.RetryWaitMax = waitMax
	}
}

// WithCache sets a schema cache for this client only, overriding the
// process-wide cache.
func WithCache(cache Cache) Option {
	return func(o *Options) {
		o.Cache = cache
	}
}

// WithLogger sets the logger.
func WithLogger(logger Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithMetrics records request and schema metrics into collector.
func WithMetrics(collector *MetricsCollector) Option {
	return func(o *Options) {
		o.Metrics = collector
	}
}

// WithInterceptors installs an interceptor chain on the transport.
func WithInterceptors(chain *InterceptorChain) Option {
	return func(o *Options) {
		o.Interceptors = chain
	}
}

// WithDebug enables transport debug logging.
func WithDebug(enabled bool) Option {
	return func(o *Options) {
		o.Debug = enabled
	}
}

// WithOverrides merges a configuration map. Decoding errors are reported by
// the constructor through Options.Err.
func WithOverrides(overrides map[string]any) Option {
	return func(o *Options) {
		merged, err := o.Merge(overrides)
		if err != nil {
			o.Extra[optionsErrorKey] = err

			return
		}

		*o = *merged
	}
}

const optionsErrorKey = "__options_error"

// Err reports a decoding failure recorded by WithOverrides.
func (o *Options) Err() error {
	if err, ok := o.Extra[optionsErrorKey].(error); ok {
		return err
	}

	return nil
}
