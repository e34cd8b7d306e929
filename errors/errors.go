package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// MaxExcerpt is the largest body excerpt attached to an error.
const MaxExcerpt = 1024

// Error is the unified protocol client error.
type Error struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable is advisory only; nothing in this module retries.
	Retryable bool `json:"retryable"`
	// Endpoint is the target URL of the failed operation.
	Endpoint string `json:"endpoint,omitempty"`
	// Method is the HTTP method of the failed operation.
	Method string `json:"method,omitempty"`
	// StatusCode is the HTTP status, 0 when no response was received.
	StatusCode int `json:"status,omitempty"`
	// ContentType is the declared response content type, if relevant.
	ContentType string `json:"content_type,omitempty"`
	// Body is an excerpt of the response body, at most MaxExcerpt bytes.
	Body string `json:"body,omitempty"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Method != "" || e.Endpoint != "" {
		fmt.Fprintf(&b, " [%s %s]", e.Method, e.Endpoint)
	}
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.StatusCode)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, " (cause: %v)", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying cause of the error.
func (e *Error) Unwrap() error { return e.Cause }

// Is matches another *Error by code, so errors.Is(err, &Error{Code: X}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.StatusCode == 0 || t.StatusCode == e.StatusCode)
}

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRequest records the endpoint and method and returns the receiver.
// Values already set are kept.
func (e *Error) WithRequest(method, endpoint string) *Error {
	if e.Method == "" {
		e.Method = method
	}
	if e.Endpoint == "" {
		e.Endpoint = endpoint
	}
	return e
}

// WithBody attaches an excerpt of body and returns the receiver.
func (e *Error) WithBody(body []byte) *Error {
	e.Body = Excerpt(body)
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new Error with automatic retryable detection.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// --- Constructors ---

// MalformedKey creates an error for an override registry key that was rejected.
func MalformedKey(key, reason string) *Error {
	return New(ErrCodeMalformedKey, fmt.Sprintf("override key %q: %s", key, reason)).
		WithDetail("key", key)
}

// InvalidRequest creates an error for a request or configuration that failed validation.
func InvalidRequest(message string) *Error {
	return New(ErrCodeInvalidRequest, message)
}

// ClosedExecution creates an error for an execution used after Close.
func ClosedExecution(operation string) *Error {
	return New(ErrCodeClosedExecution, fmt.Sprintf("%s called on a closed execution", operation))
}

// Negotiation creates an error for a response format with no decoder for kind.
func Negotiation(kind, contentType string) *Error {
	e := New(ErrCodeNegotiation, fmt.Sprintf("no decoder for %q in a %s response", contentType, kind))
	e.ContentType = contentType
	return e.WithDetail("kind", kind)
}

// Redirect creates an error for a 3xx status that reached the classifier.
func Redirect(status int, location string) *Error {
	e := New(ErrCodeRedirect, fmt.Sprintf("redirect not followed (%s)", http.StatusText(status)))
	e.StatusCode = status
	if location != "" {
		e.WithDetail("location", location)
	}
	return e
}

// Client creates an error for a 4xx status.
func Client(status int, body []byte) *Error {
	e := New(ErrCodeClient, statusMessage(status))
	e.StatusCode = status
	e.Retryable = status == http.StatusTooManyRequests
	return e.WithBody(body)
}

// Server creates an error for a 5xx status.
func Server(status int, body []byte) *Error {
	e := New(ErrCodeServer, statusMessage(status))
	e.StatusCode = status
	e.Retryable = status == http.StatusServiceUnavailable
	return e.WithBody(body)
}

// ProtocolViolation creates an error for a status code outside 100-599.
func ProtocolViolation(status int) *Error {
	e := New(ErrCodeProtocolViolation, fmt.Sprintf("status code %d is outside 100-599", status))
	e.StatusCode = status
	return e
}

// UnsupportedEncoding creates an error for an unknown Content-Encoding.
func UnsupportedEncoding(encoding string) *Error {
	return New(ErrCodeUnsupportedEncoding, fmt.Sprintf("unsupported content encoding %q", encoding)).
		WithDetail("encoding", encoding)
}

// Decode creates an error for a body that could not be decoded.
func Decode(contentType string, cause error) *Error {
	e := New(ErrCodeDecode, fmt.Sprintf("decode %s response", contentType))
	e.ContentType = contentType
	return e.WithCause(cause)
}

// Transport creates an error for a connection-level failure.
func Transport(cause error) *Error {
	return New(ErrCodeTransport, "transport failure").WithCause(cause)
}

// Timeout creates an error for a connect or read timeout.
func Timeout(cause error) *Error {
	return New(ErrCodeTimeout, "request timed out").WithCause(cause)
}

// CircuitOpen creates an error for a call refused by the circuit breaker.
func CircuitOpen(name string) *Error {
	return New(ErrCodeCircuitOpen, fmt.Sprintf("circuit %q is open", name))
}

// RateLimited creates an error for a call refused by the rate limiter.
func RateLimited(cause error) *Error {
	return New(ErrCodeRateLimited, "client rate limit exceeded").WithCause(cause)
}

// --- Inspection ---

// AsError converts an error to an *Error if possible.
func AsError(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// HasCode reports whether err is an *Error with the given code.
func HasCode(err error, code ErrorCode) bool {
	e, ok := AsError(err)
	return ok && e.Code == code
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	if e, ok := AsError(err); ok {
		return e.StatusCode
	}
	return 0
}

// IsMalformedKey checks for ErrCodeMalformedKey.
func IsMalformedKey(err error) bool { return HasCode(err, ErrCodeMalformedKey) }

// IsNegotiation checks for ErrCodeNegotiation.
func IsNegotiation(err error) bool { return HasCode(err, ErrCodeNegotiation) }

// IsRedirect checks for ErrCodeRedirect.
func IsRedirect(err error) bool { return HasCode(err, ErrCodeRedirect) }

// IsClient checks for ErrCodeClient.
func IsClient(err error) bool { return HasCode(err, ErrCodeClient) }

// IsServer checks for ErrCodeServer.
func IsServer(err error) bool { return HasCode(err, ErrCodeServer) }

// IsUnsupportedEncoding checks for ErrCodeUnsupportedEncoding.
func IsUnsupportedEncoding(err error) bool { return HasCode(err, ErrCodeUnsupportedEncoding) }

// IsClosedExecution checks for ErrCodeClosedExecution.
func IsClosedExecution(err error) bool { return HasCode(err, ErrCodeClosedExecution) }

// IsProtocolViolation checks for ErrCodeProtocolViolation.
func IsProtocolViolation(err error) bool { return HasCode(err, ErrCodeProtocolViolation) }

// IsTransport reports transport failures, timeouts included.
func IsTransport(err error) bool {
	return HasCode(err, ErrCodeTransport) || HasCode(err, ErrCodeTimeout)
}

// IsTimeout checks for ErrCodeTimeout.
func IsTimeout(err error) bool { return HasCode(err, ErrCodeTimeout) }

// IsAuth reports a 401 or 403 client error.
func IsAuth(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code == ErrCodeClient &&
		(e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden)
}

// Excerpt returns at most MaxExcerpt bytes of body, cut on a rune boundary.
func Excerpt(body []byte) string {
	if len(body) <= MaxExcerpt {
		return string(body)
	}
	cut := MaxExcerpt
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return string(body[:cut]) + "..."
}

func statusMessage(status int) string {
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", status)
}
