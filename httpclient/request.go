package httpclient

import (
	"io"
	"net/http"
	"net/textproto"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Params is an ordered multimap of request parameters. Encode preserves
// insertion order, which fixes both the serialized query string and the
// size of a form body.
type Params struct {
	pairs []param
}

type param struct {
	name  string
	value string
}

// NewParams creates an empty parameter set.
func NewParams() *Params {
	return &Params{}
}

// Add appends a value for name.
func (p *Params) Add(name, value string) *Params {
	p.pairs = append(p.pairs, param{name, value})
	return p
}

// Set replaces all values of name with value. The first existing position
// of name is kept; a new name is appended.
func (p *Params) Set(name, value string) *Params {
	out := p.pairs[:0]
	placed := false
	for _, kv := range p.pairs {
		if kv.name != name {
			out = append(out, kv)
			continue
		}
		if !placed {
			out = append(out, param{name, value})
			placed = true
		}
	}
	p.pairs = out
	if !placed {
		p.pairs = append(p.pairs, param{name, value})
	}
	return p
}

// Get returns the first value of name, or "".
func (p *Params) Get(name string) string {
	for _, kv := range p.pairs {
		if kv.name == name {
			return kv.value
		}
	}
	return ""
}

// Values returns all values of name in insertion order.
func (p *Params) Values(name string) []string {
	var vals []string
	for _, kv := range p.pairs {
		if kv.name == name {
			vals = append(vals, kv.value)
		}
	}
	return vals
}

// Has reports whether name has at least one value.
func (p *Params) Has(name string) bool {
	for _, kv := range p.pairs {
		if kv.name == name {
			return true
		}
	}
	return false
}

// Del removes every value of name.
func (p *Params) Del(name string) *Params {
	out := p.pairs[:0]
	for _, kv := range p.pairs {
		if kv.name != name {
			out = append(out, kv)
		}
	}
	p.pairs = out
	return p
}

// Len returns the number of name/value pairs.
func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.pairs)
}

// Each calls fn for every pair in insertion order.
func (p *Params) Each(fn func(name, value string)) {
	if p == nil {
		return
	}
	for _, kv := range p.pairs {
		fn(kv.name, kv.value)
	}
}

// Without returns a copy of p with every value of the named parameters removed.
func (p *Params) Without(names ...string) *Params {
	out := NewParams()
	p.Each(func(name, value string) {
		for _, n := range names {
			if n == name {
				return
			}
		}
		out.Add(name, value)
	})
	return out
}

// Clone returns an independent copy.
func (p *Params) Clone() *Params {
	if p == nil {
		return NewParams()
	}
	return &Params{pairs: append([]param(nil), p.pairs...)}
}

// Encode returns the form-encoded representation in insertion order.
func (p *Params) Encode() string {
	if p.Len() == 0 {
		return ""
	}
	var b strings.Builder
	for i, kv := range p.pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(kv.name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(kv.value))
	}
	return b.String()
}

// Headers is a case-insensitive header set where the last write wins. It is
// mutable until Freeze; writes to a frozen set are ignored.
type Headers struct {
	values map[string]string
	frozen bool
}

// NewHeaders creates an empty header set.
func NewHeaders() *Headers {
	return &Headers{values: make(map[string]string)}
}

// HeadersFrom copies a plain map into a new header set.
func HeadersFrom(m map[string]string) *Headers {
	h := NewHeaders()
	for k, v := range m {
		h.Set(k, v)
	}
	return h
}

// Set stores value under the canonical form of name.
func (h *Headers) Set(name, value string) *Headers {
	if h.frozen {
		return h
	}
	h.values[textproto.CanonicalMIMEHeaderKey(name)] = value
	return h
}

// SetDefault stores value only when name is not set yet.
func (h *Headers) SetDefault(name, value string) *Headers {
	if !h.Has(name) {
		h.Set(name, value)
	}
	return h
}

// Get returns the value of name, or "".
func (h *Headers) Get(name string) string {
	if h == nil {
		return ""
	}
	return h.values[textproto.CanonicalMIMEHeaderKey(name)]
}

// Has reports whether name is set.
func (h *Headers) Has(name string) bool {
	if h == nil {
		return false
	}
	_, ok := h.values[textproto.CanonicalMIMEHeaderKey(name)]
	return ok
}

// Del removes name.
func (h *Headers) Del(name string) *Headers {
	if h.frozen {
		return h
	}
	delete(h.values, textproto.CanonicalMIMEHeaderKey(name))
	return h
}

// Len returns the number of headers.
func (h *Headers) Len() int {
	if h == nil {
		return 0
	}
	return len(h.values)
}

// Names returns the canonical header names in sorted order.
func (h *Headers) Names() []string {
	if h == nil {
		return nil
	}
	names := make([]string, 0, len(h.values))
	for k := range h.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Freeze makes the set immutable.
func (h *Headers) Freeze() { h.frozen = true }

// Frozen reports whether Freeze was called.
func (h *Headers) Frozen() bool { return h.frozen }

// Clone returns a mutable copy, also when h is frozen.
func (h *Headers) Clone() *Headers {
	c := NewHeaders()
	if h == nil {
		return c
	}
	for k, v := range h.values {
		c.values[k] = v
	}
	return c
}

// Apply writes every header onto dst, replacing existing values.
func (h *Headers) Apply(dst http.Header) {
	if h == nil {
		return
	}
	for k, v := range h.values {
		dst.Set(k, v)
	}
}

// Request describes one outbound protocol request, fully assembled.
type Request struct {
	// Method is the HTTP method.
	Method string
	// URL is the absolute request URL including any query string.
	URL string
	// Headers are sent as-is; Accept, Content-Type and Authorization included.
	Headers *Headers
	// Body is the request payload, nil for GET and DELETE.
	Body io.Reader
	// ContentLength is the payload size when known, -1 otherwise.
	ContentLength int64
	// Auth overrides the client-level auth for this request.
	Auth *AuthConfig
	// Transport replaces the client's transport for this request.
	Transport http.RoundTripper
	// Timeout bounds the whole exchange, body reads included. Zero uses
	// the client timeout.
	Timeout time.Duration
}

// Response is a classified response whose body is still open.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Header holds the response headers.
	Header http.Header
	// ContentType is the declared Content-Type, possibly empty.
	ContentType string
	// Body is the decoded response stream. The caller must read it to EOF
	// or Close it.
	Body *Body
}

// IsSuccess returns true if the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
