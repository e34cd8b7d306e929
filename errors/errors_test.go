package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestError_Constructors_Table(t *testing.T) {
	tests := []struct {
		name      string
		err       *Error
		code      ErrorCode
		status    int
		retryable bool
	}{
		{"MalformedKey", MalformedKey("http://h", "prefix keys must end in /"), ErrCodeMalformedKey, 0, false},
		{"InvalidRequest", InvalidRequest("bad"), ErrCodeInvalidRequest, 0, false},
		{"ClosedExecution", ClosedExecution("Select"), ErrCodeClosedExecution, 0, false},
		{"Negotiation", Negotiation("select", "text/html"), ErrCodeNegotiation, 0, false},
		{"Redirect", Redirect(http.StatusFound, "http://elsewhere/"), ErrCodeRedirect, 302, false},
		{"Client401", Client(http.StatusUnauthorized, nil), ErrCodeClient, 401, false},
		{"Client429", Client(http.StatusTooManyRequests, nil), ErrCodeClient, 429, true},
		{"Server500", Server(http.StatusInternalServerError, nil), ErrCodeServer, 500, false},
		{"Server503", Server(http.StatusServiceUnavailable, nil), ErrCodeServer, 503, true},
		{"ProtocolViolation", ProtocolViolation(42), ErrCodeProtocolViolation, 42, false},
		{"UnsupportedEncoding", UnsupportedEncoding("br"), ErrCodeUnsupportedEncoding, 0, false},
		{"Transport", Transport(fmt.Errorf("refused")), ErrCodeTransport, 0, true},
		{"Timeout", Timeout(fmt.Errorf("deadline")), ErrCodeTimeout, 0, true},
		{"CircuitOpen", CircuitOpen("dbpedia"), ErrCodeCircuitOpen, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, tt.err.Code)
			}
			if tt.err.StatusCode != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, tt.err.StatusCode)
			}
			if tt.err.Retryable != tt.retryable {
				t.Errorf("expected retryable=%v, got %v", tt.retryable, tt.err.Retryable)
			}
		})
	}
}

func TestError_Error_Format(t *testing.T) {
	err := Client(http.StatusUnauthorized, []byte("denied")).
		WithRequest(http.MethodGet, "http://example.org/sparql")
	s := err.Error()
	for _, want := range []string{"CLIENT_ERROR", "GET http://example.org/sparql", "HTTP 401", "Unauthorized"} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %q in %q", want, s)
		}
	}
	if err.Body != "denied" {
		t.Errorf("expected body excerpt 'denied', got %q", err.Body)
	}
}

func TestError_WithRequest_KeepsExisting(t *testing.T) {
	err := Transport(nil).WithRequest("POST", "http://a/")
	err.WithRequest("GET", "http://b/")
	if err.Method != "POST" || err.Endpoint != "http://a/" {
		t.Errorf("expected first request to win, got %s %s", err.Method, err.Endpoint)
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Transport(cause)
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should reach the cause")
	}
	wrapped := fmt.Errorf("outer: %w", err)
	got, ok := AsError(wrapped)
	if !ok || got != err {
		t.Fatal("AsError should find the wrapped *Error")
	}
	if !IsTransport(wrapped) {
		t.Error("expected IsTransport on wrapped error")
	}
}

func TestError_Is_ByCodeAndStatus(t *testing.T) {
	err := Client(http.StatusForbidden, nil)
	if !stderrors.Is(err, &Error{Code: ErrCodeClient}) {
		t.Error("expected match on code only")
	}
	if !stderrors.Is(err, &Error{Code: ErrCodeClient, StatusCode: 403}) {
		t.Error("expected match on code and status")
	}
	if stderrors.Is(err, &Error{Code: ErrCodeClient, StatusCode: 401}) {
		t.Error("expected no match on a different status")
	}
}

func TestIsAuth(t *testing.T) {
	if !IsAuth(Client(401, nil)) || !IsAuth(Client(403, nil)) {
		t.Error("401 and 403 are auth failures")
	}
	if IsAuth(Client(404, nil)) || IsAuth(Server(500, nil)) {
		t.Error("404 and 500 are not auth failures")
	}
}

func TestIsTransport_IncludesTimeout(t *testing.T) {
	if !IsTransport(Timeout(nil)) {
		t.Error("timeouts are transport errors")
	}
	if IsTimeout(Transport(nil)) {
		t.Error("a plain transport error is not a timeout")
	}
}

func TestStatusCode(t *testing.T) {
	if got := StatusCode(Server(502, nil)); got != 502 {
		t.Errorf("expected 502, got %d", got)
	}
	if got := StatusCode(fmt.Errorf("plain")); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}

func TestExcerpt(t *testing.T) {
	short := []byte("short body")
	if got := Excerpt(short); got != "short body" {
		t.Errorf("expected unchanged short body, got %q", got)
	}

	long := []byte(strings.Repeat("é", MaxExcerpt))
	got := Excerpt(long)
	if !strings.HasSuffix(got, "...") {
		t.Error("expected truncated body to end with ...")
	}
	trimmed := strings.TrimSuffix(got, "...")
	if len(trimmed) > MaxExcerpt {
		t.Errorf("excerpt longer than %d bytes: %d", MaxExcerpt, len(trimmed))
	}
	if strings.ContainsRune(trimmed, '�') {
		t.Error("excerpt was cut inside a rune")
	}
}

func TestWithDetail_NilMap(t *testing.T) {
	err := &Error{}
	err.WithDetail("key", "value")
	if err.Details["key"] != "value" {
		t.Errorf("expected key=value, got %v", err.Details["key"])
	}
}
