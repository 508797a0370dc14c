package constants

import "errors"

// Configuration errors.
var (
	ErrNoAPIConfigured     = errors.New("no API endpoint configured, use --api or set api in the config file")
	ErrInvalidOutputFormat = errors.New("invalid output format")
	ErrInvalidQueryParam   = errors.New("query parameters must look like key=value")
	ErrInvalidMethod       = errors.New("invalid HTTP method")
)

// Cache errors.
var (
	ErrKeyNotFound   = errors.New("key not found")
	ErrEntryExpired  = errors.New("entry expired")
	ErrCacheDisabled = errors.New("cache disabled")
)
