package sparql

import (
	"net/url"
	"time"

	"github.com/kbukum/sparqlkit/negotiation"
)

// RequestConfig holds per-call settings. Zero fields fall back to the client
// configuration.
type RequestConfig struct {
	Mode         SendMode
	MaxGetLength int
	// Accept replaces the negotiated Accept header entirely.
	Accept  string
	Headers map[string]string
	Timeout time.Duration

	DefaultGraphURIs    []string
	NamedGraphURIs      []string
	UsingGraphURIs      []string
	UsingNamedGraphURIs []string

	// Params are extra protocol parameters, sent after the standard ones.
	Params [][2]string

	// Format is the payload format of Graph Store writes.
	Format negotiation.Format
}

// Option configures a single call.
type Option func(*RequestConfig)

// WithMode sets the send mode.
func WithMode(m SendMode) Option {
	return func(c *RequestConfig) { c.Mode = m }
}

// WithMaxGetLength sets the GetWithLimit URL length limit.
func WithMaxGetLength(n int) Option {
	return func(c *RequestConfig) { c.MaxGetLength = n }
}

// WithAccept replaces the Accept header.
func WithAccept(accept string) Option {
	return func(c *RequestConfig) { c.Accept = accept }
}

// WithHeader sets a request header.
func WithHeader(name, value string) Option {
	return func(c *RequestConfig) {
		if c.Headers == nil {
			c.Headers = make(map[string]string)
		}
		c.Headers[name] = value
	}
}

// WithTimeout bounds the whole call, body reads included.
func WithTimeout(d time.Duration) Option {
	return func(c *RequestConfig) { c.Timeout = d }
}

// WithDefaultGraph adds a default-graph-uri parameter.
func WithDefaultGraph(uri string) Option {
	return func(c *RequestConfig) { c.DefaultGraphURIs = append(c.DefaultGraphURIs, uri) }
}

// WithNamedGraph adds a named-graph-uri parameter.
func WithNamedGraph(uri string) Option {
	return func(c *RequestConfig) { c.NamedGraphURIs = append(c.NamedGraphURIs, uri) }
}

// WithUsingGraph adds a using-graph-uri parameter to an update.
func WithUsingGraph(uri string) Option {
	return func(c *RequestConfig) { c.UsingGraphURIs = append(c.UsingGraphURIs, uri) }
}

// WithUsingNamedGraph adds a using-named-graph-uri parameter to an update.
func WithUsingNamedGraph(uri string) Option {
	return func(c *RequestConfig) { c.UsingNamedGraphURIs = append(c.UsingNamedGraphURIs, uri) }
}

// WithParam adds an extra request parameter.
func WithParam(name, value string) Option {
	return func(c *RequestConfig) { c.Params = append(c.Params, [2]string{name, value}) }
}

// WithFormat sets the payload format of a Graph Store write.
func WithFormat(f negotiation.Format) Option {
	return func(c *RequestConfig) { c.Format = f }
}

func newRequestConfig(opts []Option) *RequestConfig {
	rc := &RequestConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(rc)
		}
	}
	return rc
}

// Target selects what a Graph Store operation acts on. The zero Target
// selects nothing and is rejected by every operation.
type Target struct {
	graph string
	kind  targetKind
}

type targetKind int

const (
	targetNone targetKind = iota
	targetDataset
	targetDefault
	targetNamed
)

// Default targets the default graph (?default).
func Default() Target { return Target{kind: targetDefault} }

// Named targets the graph named uri (?graph=uri).
func Named(uri string) Target { return Target{kind: targetNamed, graph: uri} }

// Dataset targets the whole dataset; no selector is sent.
func Dataset() Target { return Target{kind: targetDataset} }

// Graph returns the graph IRI of a named target, or "".
func (t Target) Graph() string { return t.graph }

// IsDataset reports whether t targets the whole dataset.
func (t Target) IsDataset() bool { return t.kind == targetDataset }

// IsGraph reports whether t selects a single graph: the default graph or a
// named graph with a non-empty IRI.
func (t Target) IsGraph() bool {
	return t.kind == targetDefault || (t.kind == targetNamed && t.graph != "")
}

// String renders the target as its query string suffix without the '?'.
func (t Target) String() string {
	switch t.kind {
	case targetDefault:
		return ParamDefault
	case targetNamed:
		return ParamGraph + "=" + url.QueryEscape(t.graph)
	}
	return ""
}

// URL appends the target selector to endpoint.
func (t Target) URL(endpoint string) string {
	return withQuery(endpoint, t.String())
}
