package httpclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/kbukum/sparqlkit/errors"
	"github.com/kbukum/sparqlkit/resilience"
)

func newAdapter(t *testing.T, cfg Config, opts ...Option) *Adapter {
	t.Helper()
	a, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func TestAdapter_Do_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/sparql-results+json" {
			t.Errorf("unexpected Accept %q", r.Header.Get("Accept"))
		}
		if r.Header.Get("Accept-Encoding") != DefaultAcceptEncoding {
			t.Errorf("unexpected Accept-Encoding %q", r.Header.Get("Accept-Encoding"))
		}
		if r.Header.Get("User-Agent") != "sparqlkit" {
			t.Errorf("unexpected User-Agent %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "application/sparql-results+json")
		_, _ = w.Write([]byte(`{"boolean":true}`))
	}))
	defer srv.Close()

	a := newAdapter(t, Config{})
	resp, err := a.Do(context.Background(), Request{
		Method:  http.MethodGet,
		URL:     srv.URL + "?query=ASK%7B%7D",
		Headers: NewHeaders().Set("Accept", "application/sparql-results+json"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 || resp.ContentType != "application/sparql-results+json" {
		t.Errorf("unexpected response %d %q", resp.StatusCode, resp.ContentType)
	}
	data, _ := io.ReadAll(resp.Body)
	if string(data) != `{"boolean":true}` {
		t.Errorf("unexpected body %q", data)
	}
}

func TestAdapter_Do_GzipResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		zw := gzip.NewWriter(w)
		_, _ = zw.Write([]byte(payload))
		_ = zw.Close()
	}))
	defer srv.Close()

	a := newAdapter(t, Config{})
	resp, err := a.Do(context.Background(), Request{Method: http.MethodGet, URL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, _ := io.ReadAll(resp.Body)
	if string(data) != payload {
		t.Errorf("expected decoded payload, got %q", data)
	}
	if !resp.Body.Consumed() {
		t.Error("expected consumed body")
	}
}

func TestAdapter_Do_ClientErrorCapturesBodyWithoutRetry(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("bad credentials"))
	}))
	defer srv.Close()

	a := newAdapter(t, Config{Auth: BearerAuth("expired")})
	_, err := a.Do(context.Background(), Request{Method: http.MethodPost, URL: srv.URL + "/update?x=1"})
	e, ok := errors.AsError(err)
	if !ok {
		t.Fatalf("expected *errors.Error, got %v", err)
	}
	if e.Code != errors.ErrCodeClient || e.StatusCode != 401 || e.Body != "bad credentials" {
		t.Errorf("unexpected error %+v", e)
	}
	if e.Method != http.MethodPost || e.Endpoint != srv.URL+"/update" {
		t.Errorf("expected method and endpoint without query, got %s %s", e.Method, e.Endpoint)
	}
	if e.ContentType != "text/plain" {
		t.Errorf("expected content type on error, got %q", e.ContentType)
	}
	if hits.Load() != 1 {
		t.Errorf("expected exactly one request, got %d", hits.Load())
	}
}

func TestAdapter_Do_RedirectNotFollowed(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("redirect target must not be contacted")
	}))
	defer target.Close()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL, http.StatusFound)
	}))
	defer srv.Close()

	a := newAdapter(t, Config{})
	_, err := a.Do(context.Background(), Request{Method: http.MethodGet, URL: srv.URL})
	if !errors.IsRedirect(err) || errors.StatusCode(err) != http.StatusFound {
		t.Fatalf("expected redirect error, got %v", err)
	}
	e, _ := errors.AsError(err)
	if e.Details["location"] != target.URL {
		t.Errorf("expected location detail, got %v", e.Details["location"])
	}
}

func TestAdapter_Do_RedirectFollowedWhenEnabled(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer target.Close()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL, http.StatusMovedPermanently)
	}))
	defer srv.Close()

	a := newAdapter(t, Config{FollowRedirects: true})
	resp, err := a.Do(context.Background(), Request{Method: http.MethodGet, URL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = resp.Body.Close()
}

func TestAdapter_Do_ServerErrorTripsCircuit(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	a := newAdapter(t, Config{
		Name:           "flaky",
		CircuitBreaker: &resilience.CircuitBreakerConfig{MaxFailures: 2, Timeout: time.Minute},
	})
	for i := 0; i < 2; i++ {
		if _, err := a.Do(context.Background(), Request{Method: http.MethodGet, URL: srv.URL}); !errors.IsServer(err) {
			t.Fatalf("call %d: expected server error, got %v", i, err)
		}
	}
	_, err := a.Do(context.Background(), Request{Method: http.MethodGet, URL: srv.URL})
	if !errors.HasCode(err, errors.ErrCodeCircuitOpen) {
		t.Fatalf("expected CIRCUIT_OPEN, got %v", err)
	}
	if a.IsAvailable(context.Background()) || a.CircuitState() != resilience.StateOpen {
		t.Error("adapter should report unavailable while open")
	}
	if hits.Load() != 2 {
		t.Errorf("expected 2 requests to reach the server, got %d", hits.Load())
	}
}

func TestAdapter_Do_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	a := newAdapter(t, Config{})
	_, err := a.Do(context.Background(), Request{Method: http.MethodGet, URL: srv.URL, Timeout: 20 * time.Millisecond})
	if !errors.IsTimeout(err) || !errors.IsTransport(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestAdapter_Do_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	a := newAdapter(t, Config{})
	_, err := a.Do(context.Background(), Request{Method: http.MethodGet, URL: url})
	if !errors.IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if e, _ := errors.AsError(err); e.Endpoint != url || e.Method != http.MethodGet {
		t.Errorf("expected request on error, got %s %s", e.Method, e.Endpoint)
	}
}

func TestAdapter_Do_PostBodyAndHeadersOverrideAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if string(body) != "INSERT DATA {}" {
			t.Errorf("unexpected body %q", body)
		}
		if r.Header.Get("Content-Type") != "application/sparql-update" {
			t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("Authorization") != "Bearer from-override" {
			t.Errorf("expected override header to win, got %q", r.Header.Get("Authorization"))
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	a := newAdapter(t, Config{Auth: BearerAuth("default")})
	payload := []byte("INSERT DATA {}")
	resp, err := a.Do(context.Background(), Request{
		Method: http.MethodPost,
		URL:    srv.URL,
		Headers: NewHeaders().
			Set("Content-Type", "application/sparql-update").
			Set("Authorization", "Bearer from-override"),
		Body:          bytes.NewReader(payload),
		ContentLength: int64(len(payload)),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = resp.Body.Close()
}

type recordingTransport struct {
	calls atomic.Int32
}

func (rt *recordingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	rt.calls.Add(1)
	return &http.Response{
		StatusCode: 200,
		Header:     http.Header{"Content-Type": {"text/plain"}},
		Body:       io.NopCloser(strings.NewReader("via override")),
		Request:    r,
	}, nil
}

func TestAdapter_Do_PerRequestTransport(t *testing.T) {
	rt := &recordingTransport{}
	a := newAdapter(t, Config{})
	resp, err := a.Do(context.Background(), Request{Method: http.MethodGet, URL: "http://override.invalid/sparql", Transport: rt})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, _ := io.ReadAll(resp.Body)
	if string(data) != "via override" || rt.calls.Load() != 1 {
		t.Errorf("expected the override transport to serve the request, got %q", data)
	}
}

func TestAdapter_Do_RateLimiterHonoursContext(t *testing.T) {
	a := newAdapter(t, Config{RateLimiter: &resilience.RateLimiterConfig{Rate: 0.01, Burst: 1}},
		WithTransport(&recordingTransport{}))
	resp, err := a.Do(context.Background(), Request{Method: http.MethodGet, URL: "http://h/sparql"})
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	_ = resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = a.Do(ctx, Request{Method: http.MethodGet, URL: "http://h/sparql"})
	if !errors.HasCode(err, errors.ErrCodeRateLimited) {
		t.Fatalf("expected RATE_LIMITED, got %v", err)
	}
}

func TestAdapter_Do_DrainObserver(t *testing.T) {
	var drained atomic.Int64
	a := newAdapter(t, Config{}, WithTransport(&recordingTransport{}), WithDrainObserver(func(n int64) { drained.Add(n) }))
	resp, err := a.Do(context.Background(), Request{Method: http.MethodGet, URL: "http://h/sparql"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = resp.Body.Close()
	if drained.Load() != int64(len("via override")) {
		t.Errorf("expected drained bytes reported, got %d", drained.Load())
	}
}

func TestAdapter_HTTP2Config(t *testing.T) {
	a := newAdapter(t, Config{HTTP2: &HTTP2Config{ReadIdleTimeout: time.Second, PingTimeout: time.Second}})
	tr, ok := a.Unwrap().Transport.(*http.Transport)
	if !ok {
		t.Fatalf("expected *http.Transport, got %T", a.Unwrap().Transport)
	}
	if _, ok := tr.TLSNextProto["h2"]; !ok {
		t.Error("expected h2 to be registered on the transport")
	}
	if !tr.DisableCompression {
		t.Error("transport decompression must stay disabled")
	}
}
