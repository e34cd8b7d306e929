package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Local misuse.
const (
	// ErrCodeMalformedKey indicates an override registry key was rejected.
	ErrCodeMalformedKey ErrorCode = "MALFORMED_KEY"
	// ErrCodeInvalidRequest indicates the request or configuration failed validation.
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	// ErrCodeClosedExecution indicates an execution was used after Close.
	ErrCodeClosedExecution ErrorCode = "CLOSED_EXECUTION"
)

// Response errors.
const (
	// ErrCodeNegotiation indicates the response format has no decoder.
	ErrCodeNegotiation ErrorCode = "NEGOTIATION_FAILED"
	// ErrCodeRedirect indicates a 3xx status reached the classifier.
	ErrCodeRedirect ErrorCode = "REDIRECT_REJECTED"
	// ErrCodeClient indicates a 4xx status.
	ErrCodeClient ErrorCode = "CLIENT_ERROR"
	// ErrCodeServer indicates a 5xx status.
	ErrCodeServer ErrorCode = "SERVER_ERROR"
	// ErrCodeProtocolViolation indicates a status outside 100-599.
	ErrCodeProtocolViolation ErrorCode = "PROTOCOL_VIOLATION"
	// ErrCodeUnsupportedEncoding indicates an unknown Content-Encoding.
	ErrCodeUnsupportedEncoding ErrorCode = "UNSUPPORTED_ENCODING"
	// ErrCodeDecode indicates a body could not be decoded in the negotiated format.
	ErrCodeDecode ErrorCode = "DECODE_FAILED"
)

// Transport errors.
const (
	// ErrCodeTransport indicates a connection-level failure.
	ErrCodeTransport ErrorCode = "TRANSPORT_ERROR"
	// ErrCodeTimeout indicates a connect or read timeout.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeCircuitOpen indicates the client's circuit breaker refused the call.
	ErrCodeCircuitOpen ErrorCode = "CIRCUIT_OPEN"
	// ErrCodeRateLimited indicates the client-side rate limiter refused the call.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
)

// advisory marks codes a caller may reasonably retry. The client itself
// never retries.
var advisory = map[ErrorCode]bool{
	ErrCodeTransport:   true,
	ErrCodeTimeout:     true,
	ErrCodeCircuitOpen: true,
	ErrCodeRateLimited: true,
}

// IsRetryableCode reports whether callers may retry an error with this code.
func IsRetryableCode(code ErrorCode) bool {
	return advisory[code]
}
