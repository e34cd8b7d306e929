package rdfio

import (
	"io"
	"sort"
	"sync"

	"github.com/piprate/json-gold/ld"

	"github.com/kbukum/sparqlkit/errors"
	"github.com/kbukum/sparqlkit/negotiation"
)

// Registry maps formats to codecs. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	codecs map[negotiation.Format]Codec
}

// NewRegistry creates a registry holding codecs.
func NewRegistry(codecs ...Codec) *Registry {
	r := &Registry{codecs: make(map[negotiation.Format]Codec)}
	for _, c := range codecs {
		r.Register(c)
	}
	return r
}

var defaultRegistry = NewRegistry(NTriples{}, NQuads{}, JSONLD{})

// Default returns the process-wide registry with the built-in codecs.
func Default() *Registry {
	return defaultRegistry
}

// Register adds or replaces the codec for c.Format().
func (r *Registry) Register(c Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[c.Format()] = c
}

// Get returns the codec for format.
func (r *Registry) Get(format negotiation.Format) (Codec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.codecs[format]
	return c, ok
}

// Formats returns the registered formats, sorted.
func (r *Registry) Formats() []negotiation.Format {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]negotiation.Format, 0, len(r.codecs))
	for f := range r.codecs {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CanDecode reports whether a response of kind in format can be read.
// Graph kinds need a codec; dataset kinds need one that carries named graphs.
func (r *Registry) CanDecode(kind negotiation.Kind, format negotiation.Format) bool {
	c, ok := r.Get(format)
	if !ok {
		return false
	}
	switch {
	case kind.ReturnsGraph():
		return true
	case kind.ReturnsDataset():
		return c.Datasets()
	}
	return false
}

// CanEncode reports whether a payload in format can be written for kind.
func (r *Registry) CanEncode(kind negotiation.Kind, format negotiation.Format) bool {
	c, ok := r.Get(format)
	if !ok {
		return false
	}
	switch kind {
	case negotiation.KindGraphPost, negotiation.KindGraphPut:
		return true
	case negotiation.KindDatasetPost, negotiation.KindDatasetPut:
		return c.Datasets()
	}
	return false
}

// Decode reads a graph or dataset in format from r.
func (r *Registry) Decode(format negotiation.Format, rd io.Reader) (*ld.RDFDataset, error) {
	c, ok := r.Get(format)
	if !ok {
		return nil, errors.Negotiation("graph", format.MediaType())
	}
	return c.Decode(rd)
}

// Encode writes ds in format to w.
func (r *Registry) Encode(format negotiation.Format, w io.Writer, ds *ld.RDFDataset) error {
	c, ok := r.Get(format)
	if !ok {
		return errors.InvalidRequest("rdfio: no encoder for " + string(format))
	}
	return c.Encode(w, ds)
}
