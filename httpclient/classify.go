package httpclient

import (
	"io"
	"net/http"

	"github.com/kbukum/sparqlkit/errors"
)

// Class is the category a status code falls into.
type Class int

const (
	ClassProtocolViolation Class = iota
	ClassInformational
	ClassSuccess
	ClassRedirect
	ClassClientError
	ClassServerError
)

// String returns the class name.
func (c Class) String() string {
	switch c {
	case ClassInformational:
		return "informational"
	case ClassSuccess:
		return "success"
	case ClassRedirect:
		return "redirect"
	case ClassClientError:
		return "client_error"
	case ClassServerError:
		return "server_error"
	default:
		return "protocol_violation"
	}
}

// BodyFetcher reads what is left of a response body. With drain set the
// content is discarded and nil returned; otherwise up to an excerpt's worth
// is returned. Either way the body is released afterwards.
type BodyFetcher func(drain bool) []byte

// Outcome is the result of classifying a status code. Only ClassSuccess and
// ClassInformational leave the body with the caller.
type Outcome struct {
	Class      Class
	StatusCode int
	// Body holds the fetched excerpt for 4xx and 5xx.
	Body []byte
	// Location is the redirect target when known.
	Location string
}

// Classify maps status to an Outcome. fetch is never called for 1xx and 2xx,
// called once in drain mode for 3xx and out-of-range codes, and called once
// to capture the body for 4xx and 5xx.
func Classify(status int, fetch BodyFetcher) Outcome {
	o := Outcome{StatusCode: status}
	switch {
	case status >= 100 && status <= 199:
		o.Class = ClassInformational
	case status >= 200 && status <= 299:
		o.Class = ClassSuccess
	case status >= 300 && status <= 399:
		o.Class = ClassRedirect
		fetchBody(fetch, true)
	case status >= 400 && status <= 499:
		o.Class = ClassClientError
		o.Body = fetchBody(fetch, false)
	case status >= 500 && status <= 599:
		o.Class = ClassServerError
		o.Body = fetchBody(fetch, false)
	default:
		o.Class = ClassProtocolViolation
		fetchBody(fetch, true)
	}
	return o
}

// Err converts the outcome to an error, nil for success and informational.
func (o Outcome) Err() error {
	switch o.Class {
	case ClassSuccess, ClassInformational:
		return nil
	case ClassRedirect:
		return errors.Redirect(o.StatusCode, o.Location)
	case ClassClientError:
		return errors.Client(o.StatusCode, o.Body)
	case ClassServerError:
		return errors.Server(o.StatusCode, o.Body)
	default:
		return errors.ProtocolViolation(o.StatusCode)
	}
}

// KeepsBody reports whether the response body stays open for the caller.
func (o Outcome) KeepsBody() bool {
	return o.Class == ClassSuccess || o.Class == ClassInformational
}

func fetchBody(fetch BodyFetcher, drain bool) []byte {
	if fetch == nil {
		return nil
	}
	return fetch(drain)
}

// excerptLimit caps how much of an error body is buffered.
const excerptLimit = 64 << 10

// ResponseFetcher returns a BodyFetcher over resp.Body. Captured excerpts are
// decompressed when the coding is known. After fetching, the remainder is
// drained up to drainLimit bytes and the body closed.
func ResponseFetcher(resp *http.Response, drainLimit int64) BodyFetcher {
	return func(drain bool) []byte {
		if resp.Body == nil {
			return nil
		}
		defer func() {
			_, _ = io.CopyN(io.Discard, resp.Body, drainLimit)
			_ = resp.Body.Close()
		}()
		if drain {
			return nil
		}
		var src io.Reader = resp.Body
		if codings, err := parseEncodings(resp.Header.Get("Content-Encoding")); err == nil && len(codings) > 0 {
			lr := &lazyReader{src: resp.Body, codings: codings}
			defer lr.close()
			src = lr
		}
		data, _ := io.ReadAll(io.LimitReader(src, excerptLimit))
		return data
	}
}

// ClassifyResponse classifies resp, releasing its body on every path that
// does not hand it to the caller.
func ClassifyResponse(resp *http.Response, drainLimit int64) Outcome {
	o := Classify(resp.StatusCode, ResponseFetcher(resp, drainLimit))
	if o.Class == ClassRedirect {
		o.Location = resp.Header.Get("Location")
	}
	return o
}
