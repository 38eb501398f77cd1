package tyrell

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
// These can be checked with errors.Is().
var (
	// ErrMissingField indicates a required request field was never set on the builder.
	ErrMissingField = errors.New("tyrell: missing required field")

	// ErrInvalidRequest indicates the request parameters are invalid.
	ErrInvalidRequest = errors.New("tyrell: invalid request")

	// ErrInvalidModel indicates the model identifier is not one of the known models.
	ErrInvalidModel = errors.New("tyrell: invalid or unsupported model")

	// ErrInvalidRole indicates a message role other than "user" or "assistant".
	// The system prompt is a top-level request field, not a role.
	ErrInvalidRole = errors.New("tyrell: invalid role")

	// ErrUnsupportedType indicates a Go type that cannot be described as a tool input schema.
	ErrUnsupportedType = errors.New("tyrell: unsupported type for schema derivation")

	// ErrUnknownContentType indicates a content block whose "type" tag is not recognized.
	ErrUnknownContentType = errors.New("tyrell: unknown content block type")

	// ErrUnknownStopReason indicates a stop_reason value that is not recognized.
	ErrUnknownStopReason = errors.New("tyrell: unknown stop reason")

	// ErrSchemaMismatch indicates a tool_use input that does not fit the caller's type.
	ErrSchemaMismatch = errors.New("tyrell: tool input does not match schema")

	// ErrInvalidUsage indicates a response whose usage counts are negative.
	ErrInvalidUsage = errors.New("tyrell: invalid usage counts")

	// ErrToolUseNotFound indicates the response has no tool_use block for the requested tool.
	ErrToolUseNotFound = errors.New("tyrell: tool_use block not found")

	// ErrInvalidAPIKey indicates the API key is missing, malformed, or unauthorized.
	ErrInvalidAPIKey = errors.New("tyrell: invalid API key")

	// ErrNetwork indicates the transport could not complete the exchange (no HTTP status).
	ErrNetwork = errors.New("tyrell: network failure")

	// ErrHTTPStatus indicates the API answered with a non-2xx status.
	ErrHTTPStatus = errors.New("tyrell: non-2xx response")

	// ErrRateLimited indicates the provider's rate limit has been exceeded.
	ErrRateLimited = errors.New("tyrell: rate limit exceeded")

	// ErrProviderUnavailable indicates the provider service is down or overloaded.
	ErrProviderUnavailable = errors.New("tyrell: provider unavailable")
)

// ModelError represents an error related to model identification.
type ModelError struct {
	Model  string // The model string that was supplied
	Reason string // Human-readable explanation
	Err    error  // Wrapped error (usually ErrInvalidModel)
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model '%s': %s (%v)", e.Model, e.Reason, e.Err)
	}
	return fmt.Sprintf("model '%s': %s", e.Model, e.Reason)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// ValidationError represents an error in request construction.
// Build() returns one per failed invariant; Field names the offending wire field.
type ValidationError struct {
	Field  string // The request field that failed validation
	Value  any    // The invalid value (nil when the field is missing)
	Reason string // Human-readable explanation
	Err    error  // Wrapped error (ErrMissingField or ErrInvalidRequest)
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("validation failed for '%s': %s (%v)", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("validation failed for '%s' (value: %v): %s (%v)", e.Field, e.Value, e.Reason, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// SchemaError represents a Go type that cannot be turned into a tool input schema.
type SchemaError struct {
	Type   string // The Go type being derived
	Field  string // Dotted path of the offending field (empty for the top-level type)
	Reason string
	Err    error // Wrapped error (usually ErrUnsupportedType)
}

func (e *SchemaError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("schema for %s: field '%s': %s", e.Type, e.Field, e.Reason)
	}
	return fmt.Sprintf("schema for %s: %s", e.Type, e.Reason)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// DecodeError represents a wire payload that could not be mapped onto the content model
// or onto the caller's tool input type.
type DecodeError struct {
	Path   string // Location in the payload (e.g. "content[2]", "stop_reason", "input.year")
	Reason string
	Err    error // Wrapped sentinel (ErrUnknownContentType, ErrSchemaMismatch, ...)
}

func (e *DecodeError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("decode %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("decode: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// TransportError represents a failed exchange with the API.
// Err is ErrNetwork when no response was received, ErrHTTPStatus otherwise.
type TransportError struct {
	Transport  string // The transport name
	StatusCode int    // HTTP status code (0 for network failures)
	Body       string // Raw response body, kept for diagnostics
	Retryable  bool   // Whether this error is potentially retryable
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("transport '%s' error (status %d): %s", e.Transport, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("transport '%s' error: %v", e.Transport, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is lets status-derived sentinels match without being the wrapped error.
func (e *TransportError) Is(target error) bool {
	switch target {
	case ErrInvalidAPIKey:
		return e.StatusCode == 401 || e.StatusCode == 403
	case ErrRateLimited:
		return e.StatusCode == 429
	case ErrProviderUnavailable:
		return e.StatusCode == 529 || e.StatusCode == 503
	}
	return false
}

// NewStatusError builds the TransportError for a non-2xx response.
func NewStatusError(transport string, statusCode int, body string) *TransportError {
	return &TransportError{
		Transport:  transport,
		StatusCode: statusCode,
		Body:       body,
		Retryable:  statusCode == 408 || statusCode == 429 || statusCode >= 500,
		Err:        ErrHTTPStatus,
	}
}

// NewNetworkError wraps a failure that produced no HTTP response.
func NewNetworkError(transport string, cause error) *TransportError {
	return &TransportError{
		Transport: transport,
		Retryable: true,
		Err:       fmt.Errorf("%w: %w", ErrNetwork, cause),
	}
}

// MissingField reports the name of the missing request field when err is a
// build failure caused by an unset required field.
func MissingField(err error) (string, bool) {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) && errors.Is(validationErr.Err, ErrMissingField) {
		return validationErr.Field, true
	}
	return "", false
}

// IsRetryable checks if an error is potentially retryable.
// The library never retries on its own; this only informs the caller.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Retryable
	}

	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrProviderUnavailable)
}

// IsInvalidRequest checks if an error indicates invalid request construction.
// These errors are not retryable and require request changes.
func IsInvalidRequest(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrInvalidRequest) || errors.Is(err, ErrMissingField) {
		return true
	}

	if errors.Is(err, ErrInvalidModel) || errors.Is(err, ErrInvalidRole) {
		return true
	}

	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// IsDecodeError checks if an error came from decoding a response or a tool input.
func IsDecodeError(err error) bool {
	var decodeErr *DecodeError
	return errors.As(err, &decodeErr)
}

// IsAuthError checks if an error is related to authentication.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrInvalidAPIKey)
}
