package rdfio

import (
	"io"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/piprate/json-gold/ld"

	"github.com/kbukum/sparqlkit/errors"
	"github.com/kbukum/sparqlkit/negotiation"
)

// DefaultGraph is the json-gold key of the default graph.
const DefaultGraph = "@default"

const nquadsFormat = "application/n-quads"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Codec converts between a wire format and an ld.RDFDataset.
type Codec interface {
	// Format is the format tag this codec serves.
	Format() negotiation.Format
	// Datasets reports whether the format can carry named graphs.
	Datasets() bool
	Decode(r io.Reader) (*ld.RDFDataset, error)
	Encode(w io.Writer, ds *ld.RDFDataset) error
}

// NTriples reads and writes application/n-triples. Encoding flattens named
// graphs into the default graph.
type NTriples struct{}

func (NTriples) Format() negotiation.Format { return negotiation.FormatNTriples }
func (NTriples) Datasets() bool             { return false }

func (NTriples) Decode(r io.Reader) (*ld.RDFDataset, error) {
	ds, err := parseNQuads(r)
	if err != nil {
		return nil, errors.Decode(negotiation.MediaNTriples, err)
	}
	if len(ds.Graphs) > 1 || (len(ds.Graphs) == 1 && ds.Graphs[DefaultGraph] == nil) {
		return nil, errors.Decode(negotiation.MediaNTriples, errNamedGraph)
	}
	return ds, nil
}

func (NTriples) Encode(w io.Writer, ds *ld.RDFDataset) error {
	return writeNQuads(w, DefaultGraphOf(ds))
}

// NQuads reads and writes application/n-quads.
type NQuads struct{}

func (NQuads) Format() negotiation.Format { return negotiation.FormatNQuads }
func (NQuads) Datasets() bool             { return true }

func (NQuads) Decode(r io.Reader) (*ld.RDFDataset, error) {
	ds, err := parseNQuads(r)
	if err != nil {
		return nil, errors.Decode(negotiation.MediaNQuads, err)
	}
	return ds, nil
}

func (NQuads) Encode(w io.Writer, ds *ld.RDFDataset) error {
	return writeNQuads(w, ds)
}

// JSONLD reads and writes application/ld+json through the json-gold
// processor. Remote contexts are resolved by the json-gold default loader.
type JSONLD struct {
	// Base resolves relative IRIs in documents.
	Base string
}

func (JSONLD) Format() negotiation.Format { return negotiation.FormatJSONLD }
func (JSONLD) Datasets() bool             { return true }

func (c JSONLD) Decode(r io.Reader) (*ld.RDFDataset, error) {
	var doc any
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Decode(negotiation.MediaJSONLD, err)
	}
	out, err := ld.NewJsonLdProcessor().ToRDF(doc, ld.NewJsonLdOptions(c.Base))
	if err != nil {
		return nil, errors.Decode(negotiation.MediaJSONLD, err)
	}
	ds, ok := out.(*ld.RDFDataset)
	if !ok {
		return nil, errors.Decode(negotiation.MediaJSONLD, errUnexpectedResult)
	}
	return ds, nil
}

func (c JSONLD) Encode(w io.Writer, ds *ld.RDFDataset) error {
	nq, err := serializeNQuads(ds)
	if err != nil {
		return err
	}
	opts := ld.NewJsonLdOptions(c.Base)
	opts.Format = nquadsFormat
	doc, err := ld.NewJsonLdProcessor().FromRDF(nq, opts)
	if err != nil {
		return errors.InvalidRequest("rdfio: encode json-ld").WithCause(err)
	}
	return json.NewEncoder(w).Encode(doc)
}

func parseNQuads(r io.Reader) (*ld.RDFDataset, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	serializer := &ld.NQuadRDFSerializer{}
	return serializer.Parse(string(b))
}

func writeNQuads(w io.Writer, ds *ld.RDFDataset) error {
	s, err := serializeNQuads(ds)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, s)
	return err
}

// serializeNQuads renders ds as N-Quads with lines sorted, so equal
// datasets produce equal payloads.
func serializeNQuads(ds *ld.RDFDataset) (string, error) {
	if ds == nil {
		ds = ld.NewRDFDataset()
	}
	serializer := &ld.NQuadRDFSerializer{}
	out, err := serializer.Serialize(ds)
	if err != nil {
		return "", errors.InvalidRequest("rdfio: serialize n-quads").WithCause(err)
	}
	s, ok := out.(string)
	if !ok {
		return "", errors.InvalidRequest("rdfio: serialize n-quads").WithCause(errUnexpectedResult)
	}
	lines := strings.SplitAfter(s, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	sort.Strings(lines)
	return strings.Join(lines, ""), nil
}
