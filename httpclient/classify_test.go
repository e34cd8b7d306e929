package httpclient

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/kbukum/sparqlkit/errors"
)

func countingFetcher(body string) (BodyFetcher, *int, *int) {
	var calls, drains int
	return func(drain bool) []byte {
		calls++
		if drain {
			drains++
			return nil
		}
		return []byte(body)
	}, &calls, &drains
}

func TestClassify_SuccessNeverFetches(t *testing.T) {
	for status := 200; status <= 299; status++ {
		fetch, calls, _ := countingFetcher("x")
		o := Classify(status, fetch)
		if o.Class != ClassSuccess || o.Err() != nil {
			t.Fatalf("%d: expected success, got %s", status, o.Class)
		}
		if *calls != 0 {
			t.Fatalf("%d: fetcher invoked %d times", status, *calls)
		}
	}
}

func TestClassify_ErrorsFetchExactlyOnce(t *testing.T) {
	for status := 400; status <= 599; status++ {
		fetch, calls, drains := countingFetcher("problem")
		o := Classify(status, fetch)
		if *calls != 1 || *drains != 0 {
			t.Fatalf("%d: expected one capturing fetch, got calls=%d drains=%d", status, *calls, *drains)
		}
		e, ok := errors.AsError(o.Err())
		if !ok {
			t.Fatalf("%d: expected *errors.Error", status)
		}
		if e.StatusCode != status || e.Body != "problem" {
			t.Fatalf("%d: expected status and body on error, got %d %q", status, e.StatusCode, e.Body)
		}
		wantCode := errors.ErrCodeClient
		if status >= 500 {
			wantCode = errors.ErrCodeServer
		}
		if e.Code != wantCode {
			t.Fatalf("%d: expected %s, got %s", status, wantCode, e.Code)
		}
	}
}

func TestClassify_RedirectDrains(t *testing.T) {
	for status := 300; status <= 399; status++ {
		fetch, calls, drains := countingFetcher("moved")
		o := Classify(status, fetch)
		if o.Class != ClassRedirect || *calls != 1 || *drains != 1 {
			t.Fatalf("%d: expected drained redirect, got %s calls=%d drains=%d", status, o.Class, *calls, *drains)
		}
		if !errors.IsRedirect(o.Err()) {
			t.Fatalf("%d: expected redirect error", status)
		}
		if e, _ := errors.AsError(o.Err()); e.Body != "" {
			t.Fatalf("%d: redirect body must not be surfaced", status)
		}
	}
}

func TestClassify_InformationalAndViolations(t *testing.T) {
	fetch, calls, _ := countingFetcher("")
	if o := Classify(100, fetch); o.Class != ClassInformational || o.Err() != nil || *calls != 0 {
		t.Errorf("expected informational pass-through, got %s", o.Class)
	}
	for _, status := range []int{0, 42, 99, 600, 999} {
		fetch, calls, drains := countingFetcher("")
		o := Classify(status, fetch)
		if o.Class != ClassProtocolViolation || !errors.IsProtocolViolation(o.Err()) {
			t.Errorf("%d: expected protocol violation, got %s", status, o.Class)
		}
		if *calls != 1 || *drains != 1 {
			t.Errorf("%d: expected body drained once", status)
		}
	}
}

func TestClassify_NilFetcher(t *testing.T) {
	o := Classify(500, nil)
	if o.Class != ClassServerError || o.Body != nil {
		t.Errorf("unexpected outcome %+v", o)
	}
}

type trackingBody struct {
	io.Reader
	closed bool
}

func (b *trackingBody) Close() error { b.closed = true; return nil }

func TestClassifyResponse_ReleasesErrorBodies(t *testing.T) {
	tests := []struct {
		status   int
		location string
		wantBody string
	}{
		{http.StatusUnauthorized, "", "denied"},
		{http.StatusBadGateway, "", "denied"},
		{http.StatusFound, "http://elsewhere/sparql", ""},
	}
	for _, tt := range tests {
		body := &trackingBody{Reader: strings.NewReader("denied")}
		resp := &http.Response{StatusCode: tt.status, Header: http.Header{}, Body: body}
		if tt.location != "" {
			resp.Header.Set("Location", tt.location)
		}
		o := ClassifyResponse(resp, DefaultDrainLimit)
		if !body.closed {
			t.Errorf("%d: body not closed", tt.status)
		}
		if string(o.Body) != tt.wantBody {
			t.Errorf("%d: expected body %q, got %q", tt.status, tt.wantBody, o.Body)
		}
		if o.Location != tt.location {
			t.Errorf("%d: expected location %q, got %q", tt.status, tt.location, o.Location)
		}
	}
}

func TestClassifyResponse_KeepsSuccessBodyOpen(t *testing.T) {
	body := &trackingBody{Reader: strings.NewReader("rows")}
	o := ClassifyResponse(&http.Response{StatusCode: 200, Header: http.Header{}, Body: body}, DefaultDrainLimit)
	if !o.KeepsBody() || body.closed {
		t.Error("success must leave the body open for the caller")
	}
}

func TestClass_String(t *testing.T) {
	if ClassClientError.String() != "client_error" || Class(99).String() != "protocol_violation" {
		t.Error("unexpected class names")
	}
}
