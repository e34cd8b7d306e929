package httpclient

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"

	"github.com/kbukum/sparqlkit/errors"
	"github.com/kbukum/sparqlkit/logger"
)

const payload = "<http://example.org/s> <http://example.org/p> \"o\" .\n"

func response(encoding string, body []byte) (*http.Response, *trackingBody) {
	tb := &trackingBody{Reader: bytes.NewReader(body)}
	h := http.Header{}
	if encoding != "" {
		h.Set("Content-Encoding", encoding)
	}
	return &http.Response{StatusCode: 200, Header: h, Body: tb}, tb
}

func compress(t *testing.T, encoding string, data string) []byte {
	t.Helper()
	var buf bytes.Buffer
	var w io.WriteCloser
	switch encoding {
	case "gzip":
		w = gzip.NewWriter(&buf)
	case "zlib":
		w = zlib.NewWriter(&buf)
	case "flate":
		fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
		if err != nil {
			t.Fatalf("flate writer: %v", err)
		}
		w = fw
	case "zstd":
		zw, err := zstd.NewWriter(&buf)
		if err != nil {
			t.Fatalf("zstd writer: %v", err)
		}
		w = zw
	}
	if _, err := io.WriteString(w, data); err != nil {
		t.Fatalf("compress: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("compress close: %v", err)
	}
	return buf.Bytes()
}

func TestWrap_Decodes(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		encoding string
	}{
		{"identity", "", ""},
		{"explicit identity", "identity", ""},
		{"gzip", "gzip", "gzip"},
		{"x-gzip", "x-gzip", "gzip"},
		{"deflate zlib", "deflate", "zlib"},
		{"deflate raw", "deflate", "flate"},
		{"zstd", "zstd", "zstd"},
		{"upper case", "GZIP", "gzip"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := []byte(payload)
			if tt.encoding != "" {
				data = compress(t, tt.encoding, payload)
			}
			resp, raw := response(tt.header, data)
			b, err := Wrap(resp)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got, err := io.ReadAll(b)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if string(got) != payload {
				t.Errorf("expected %q, got %q", payload, got)
			}
			if !b.Consumed() || !raw.closed {
				t.Error("reading to EOF must consume the body and close the stream")
			}
		})
	}
}

func TestWrap_UnsupportedEncoding(t *testing.T) {
	resp, raw := response("br", []byte("compressed"))
	b, err := Wrap(resp)
	if b != nil {
		t.Error("expected no body")
	}
	if !errors.IsUnsupportedEncoding(err) {
		t.Fatalf("expected UNSUPPORTED_ENCODING, got %v", err)
	}
	if !raw.closed {
		t.Error("stream must be closed when wrapping fails")
	}
	if raw.Reader.(*bytes.Reader).Len() != 0 {
		t.Error("stream must be drained when wrapping fails")
	}
}

func TestWrap_EmptyCompressedBody(t *testing.T) {
	resp, _ := response("gzip", nil)
	b, err := Wrap(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := io.ReadAll(b)
	if err != nil || len(got) != 0 {
		t.Errorf("expected empty body, got %q (%v)", got, err)
	}
}

func TestBody_CloseIsIdempotent(t *testing.T) {
	var out bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "warn", Format: "json"}, "test", &out)

	var drained []int64
	resp, raw := response("", []byte(strings.Repeat("x", 100)))
	b, err := Wrap(resp, WithLogger(log), WithDrainHook(func(n int64) { drained = append(drained, n) }))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	buf := make([]byte, 10)
	if _, err := b.Read(buf); err != nil {
		t.Fatalf("read: %v", err)
	}

	if err := b.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if b.State() != StateClosed || b.Consumed() {
		t.Errorf("expected closed, got %s", b.State())
	}
	if !raw.closed {
		t.Error("stream not closed")
	}
	if len(drained) != 1 || drained[0] != 90 {
		t.Errorf("expected one drain of 90 bytes, got %v", drained)
	}
	if !strings.Contains(out.String(), `"level":"warn"`) || !strings.Contains(out.String(), `"drained_bytes":90`) {
		t.Errorf("expected a drain warning, got %q", out.String())
	}
	if n, err := b.Read(buf); n != 0 || err != io.EOF {
		t.Errorf("read after close should be EOF, got %d %v", n, err)
	}
}

func TestBody_CloseAfterConsumeIsSilent(t *testing.T) {
	var out bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "warn", Format: "json"}, "test", &out)
	resp, _ := response("", []byte(payload))
	b, _ := Wrap(resp, WithLogger(log))
	if _, err := io.ReadAll(b); err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Errorf("close after consume must not fail: %v", err)
	}
	if b.State() != StateConsumed {
		t.Errorf("expected consumed to stay terminal, got %s", b.State())
	}
	if out.Len() != 0 {
		t.Errorf("expected no warning, got %q", out.String())
	}
}

func TestBody_DrainLimit(t *testing.T) {
	resp, raw := response("", []byte(strings.Repeat("x", 1000)))
	b, _ := Wrap(resp, WithDrainLimit(100), WithLogger(logger.Nop()))
	_ = b.Close()
	if remaining := raw.Reader.(*bytes.Reader).Len(); remaining != 900 {
		t.Errorf("expected 900 bytes left undrained, got %d", remaining)
	}
}

func TestBody_CancelRunsOnRelease(t *testing.T) {
	cancelled := 0
	resp, _ := response("", []byte(payload))
	b, _ := Wrap(resp, WithCancel(func() { cancelled++ }))
	_, _ = io.ReadAll(b)
	_ = b.Close()
	if cancelled != 1 {
		t.Errorf("expected cancel once, got %d", cancelled)
	}
}

type failingReader struct{ err error }

func (f failingReader) Read([]byte) (int, error) { return 0, f.err }

func TestBody_ReadErrorIsTransport(t *testing.T) {
	tb := &trackingBody{Reader: failingReader{stderrors.New("connection reset")}}
	b, _ := Wrap(&http.Response{StatusCode: 200, Header: http.Header{}, Body: tb})
	_, err := b.Read(make([]byte, 8))
	if !errors.IsTransport(err) || errors.IsTimeout(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if b.State() != StateClosed || !tb.closed {
		t.Error("a failed read must close the body")
	}
}

func TestBody_CorruptGzipIsDecodeError(t *testing.T) {
	resp, _ := response("gzip", []byte("not gzip at all"))
	b, err := Wrap(resp)
	if err != nil {
		t.Fatalf("unexpected wrap error: %v", err)
	}
	_, err = io.ReadAll(b)
	if !errors.HasCode(err, errors.ErrCodeDecode) {
		t.Errorf("expected DECODE_FAILED, got %v", err)
	}
}

func TestState_String(t *testing.T) {
	if StateOpen.String() != "open" || StateConsumed.String() != "consumed" || StateClosed.String() != "closed" {
		t.Error("unexpected state names")
	}
}

// stallingBody returns one chunk, then blocks until unblock is closed.
type stallingBody struct {
	chunk   string
	sent    bool
	started chan struct{}
	unblock chan struct{}
	err     error
	closed  bool
}

func (s *stallingBody) Read(p []byte) (int, error) {
	if !s.sent {
		s.sent = true
		return copy(p, s.chunk), nil
	}
	close(s.started)
	<-s.unblock
	return 0, s.err
}

func (s *stallingBody) Close() error { s.closed = true; return nil }

func TestBody_CloseWhileReading(t *testing.T) {
	raw := &stallingBody{
		chunk:   "?s\n",
		started: make(chan struct{}),
		unblock: make(chan struct{}),
		err:     context.Canceled,
	}
	var once sync.Once
	abort := func() { once.Do(func() { close(raw.unblock) }) }
	b, err := Wrap(&http.Response{StatusCode: 200, Header: http.Header{}, Body: raw}, WithCancel(abort))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := io.ReadAll(b)
		done <- err
	}()
	<-raw.started

	if err := b.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := <-done; !errors.IsTransport(err) {
		t.Errorf("expected the blocked read to fail as transport, got %v", err)
	}
	if b.State() != StateClosed || !raw.closed {
		t.Errorf("expected closed body and stream, got %s closed=%v", b.State(), raw.closed)
	}
	if err := b.Close(); err != nil {
		t.Errorf("second close: unexpected error: %v", err)
	}
}

func TestBody_ReadPastDeadlineIsTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	raw := &stallingBody{
		chunk:   "?s\n",
		started: make(chan struct{}),
		unblock: make(chan struct{}),
		err:     stderrors.New("connection closed"),
	}
	go func() {
		<-ctx.Done()
		close(raw.unblock)
	}()
	b, err := Wrap(&http.Response{StatusCode: 200, Header: http.Header{}, Body: raw}, WithContext(ctx), WithCancel(cancel))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := io.ReadAll(b)
	if string(got) != "?s\n" {
		t.Errorf("expected the partial chunk, got %q", got)
	}
	if !errors.IsTimeout(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if b.State() != StateClosed || !raw.closed {
		t.Errorf("expected released stream, got %s closed=%v", b.State(), raw.closed)
	}
}
