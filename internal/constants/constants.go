package constants

import "time"

// Version is reported in the default User-Agent and by the CLI.
const Version = "1.0.4"

// ConfigDirPerm is the permission for the CLI configuration directory.
const ConfigDirPerm = 0750

// MIME types.
const (
	// MIMETypeJSON is the content type of request and response bodies.
	MIMETypeJSON = "application/json"
)

// HTTP and network timeouts.
const (
	// DefaultConnectTimeout bounds establishing a connection.
	DefaultConnectTimeout = 5 * time.Second

	// DefaultResponseTimeout bounds a whole request.
	DefaultResponseTimeout = 300 * time.Second

	// DefaultKeepAlive is how long idle connections stay open.
	DefaultKeepAlive = 120 * time.Second

	// DefaultMaxRedirects limits redirect chains.
	DefaultMaxRedirects = 10
)

// Retry limits. Retries are off unless RetryMax is set.
const (
	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 30 * time.Second
)

// Classification defaults.
const (
	// DefaultTypeAttr is the discriminator field name.
	DefaultTypeAttr = "type"

	// DefaultJSONDepthLimit bounds nesting of parsed bodies.
	DefaultJSONDepthLimit = 50
)

// Schema bootstrap.
const (
	// SchemaRootPath is where bootstrapping starts, relative to the base URL.
	SchemaRootPath = "/"

	// CacheKeyPrefix starts every schema cache key.
	CacheKeyPrefix = "restclient_"

	// TypeAPIVersion is the discriminator of a version root.
	TypeAPIVersion = "apiversion"

	// TypeSchema is the resource type of schema collection elements.
	TypeSchema = "schema"

	// TypeCollection is the discriminator of collections.
	TypeCollection = "collection"

	// TypeError is the discriminator of error bodies.
	TypeError = "error"

	// LinkSchemas points from a version root to its schema collection.
	LinkSchemas = "schemas"

	// LinkRoot is the canonical root of an API version.
	LinkRoot = "root"

	// LinkCollection is the collection URL of a type.
	LinkCollection = "collection"
)

// Cache sizes.
const (
	// DefaultCacheSize is the number of entries kept by the memory cache.
	DefaultCacheSize = 1000

	// DefaultSchemaTTL is how long cached schema documents stay valid.
	DefaultSchemaTTL = 24 * time.Hour
)

// Format constants.
const (
	// FormatJSON selects JSON output.
	FormatJSON = "json"

	// FormatYAML selects YAML output.
	FormatYAML = "yaml"

	// FormatTable selects table output.
	FormatTable = "table"
)

// NotAvailable is printed for missing values.
const NotAvailable = "N/A"
