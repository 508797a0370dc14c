package gdapi

import (
	"errors"
	"fmt"
	"sync"
)

// StatusUnknown is the status carried by an APIError whose status was not an
// integer HTTP status (for example the "schema" or "type" categories).
const StatusUnknown = -1

// Error kinds. An APIError unwraps to exactly one of these.
var (
	ErrAPI                = errors.New("api error")
	ErrSchema             = errors.New("schema error")
	ErrType               = errors.New("type error")
	ErrMethodNotAllowed   = errors.New("method not allowed")
	ErrBadRequest         = errors.New("bad request")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrUnprocessable      = errors.New("unprocessable entity")
	ErrTooManyRequests    = errors.New("too many requests")
	ErrServerError        = errors.New("server error")
	ErrServiceUnavailable = errors.New("service unavailable")
)

// Static errors for err113 compliance.
var (
	ErrVersionRequired     = errors.New("base URL does not specify an API version")
	ErrSchemaShape         = errors.New("response does not look like an API version")
	ErrSchemaEmpty         = errors.New("unable to load API schema")
	ErrSchemaLoad          = errors.New("schema load failed")
	ErrClientNotFound      = errors.New("no live client for identity")
	ErrLinkNotFound        = errors.New("link not found")
	ErrUnknownRequestClass = errors.New("unknown request class")
	ErrCredentialProvider  = errors.New("credential provider returned an error")
	ErrJSONDepthExceeded   = errors.New("JSON nesting exceeds depth limit")
	ErrBaseURLRequired     = errors.New("base URL is required")
	ErrClassNameRequired   = errors.New("class name is required")
	ErrNilFactory          = errors.New("class factory must not be nil")
)

// APIError is raised by a client whose ThrowExceptions option is enabled.
type APIError struct {
	Message string
	// Status is the HTTP status, or StatusUnknown for non-HTTP categories.
	Status int
	// Body carries the details handed to the signal, usually the classified
	// error response.
	Body any
	// Kind is the sentinel this error unwraps to.
	Kind error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Status == StatusUnknown {
		return fmt.Sprintf("%s: %s", e.kind(), e.Message)
	}

	return fmt.Sprintf("%s: %s (status: %d)", e.kind(), e.Message, e.Status)
}

// Unwrap returns the error kind so errors.Is(err, gdapi.ErrNotFound) works.
func (e *APIError) Unwrap() error {
	return e.kind()
}

func (e *APIError) kind() error {
	if e.Kind == nil {
		return ErrAPI
	}

	return e.Kind
}

var (
	statusMu  sync.RWMutex
	statusMap = map[any]error{
		"schema": ErrSchema,
		"type":   ErrType,
		"method": ErrMethodNotAllowed,
		400:      ErrBadRequest,
		401:      ErrUnauthorized,
		403:      ErrForbidden,
		404:      ErrNotFound,
		409:      ErrConflict,
		422:      ErrUnprocessable,
		429:      ErrTooManyRequests,
		500:      ErrServerError,
		503:      ErrServiceUnavailable,
	}
)

// RegisterStatusKind maps an HTTP status (int) or error category (string) to
// the kind an APIError will unwrap to. Later registrations replace earlier ones.
func RegisterStatusKind(status any, kind error) {
	statusMu.Lock()
	defer statusMu.Unlock()

	statusMap[status] = kind
}

// StatusKind returns the kind registered for status, or ErrAPI.
func StatusKind(status any) error {
	statusMu.RLock()
	defer statusMu.RUnlock()

	if status == nil {
		return ErrAPI
	}

	kind, ok := statusMap[status]
	if !ok {
		return ErrAPI
	}

	return kind
}

// NewAPIError builds the error for a signal. Non-integer statuses are
// normalized to StatusUnknown after the kind has been resolved.
func NewAPIError(message string, status any, body any) *APIError {
	kind := StatusKind(status)

	code, ok := status.(int)
	if !ok {
		code = StatusUnknown
	}

	return &APIError{
		Message: message,
		Status:  code,
		Body:    body,
		Kind:    kind,
	}
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnauthorized checks if the error is an unauthorized error.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsForbidden checks if the error is a forbidden error.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// StatusOf returns the status of an APIError in err's chain, or StatusUnknown.
func StatusOf(err error) int {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}

	return StatusUnknown
}
