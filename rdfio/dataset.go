package rdfio

import (
	stderrors "errors"
	"sort"

	"github.com/piprate/json-gold/ld"
)

var (
	errNamedGraph       = stderrors.New("n-triples document contains a named graph")
	errUnexpectedResult = stderrors.New("unexpected json-gold result type")
)

// NewGraph returns an empty graph.
func NewGraph() *ld.RDFDataset {
	return ld.NewRDFDataset()
}

// Add appends the triple s p o to graph in ds. An empty graph name means
// the default graph.
func Add(ds *ld.RDFDataset, s, p, o ld.Node, graph string) {
	if graph == "" {
		graph = DefaultGraph
	}
	ds.Graphs[graph] = append(ds.Graphs[graph], ld.NewQuad(s, p, o, graph))
}

// Len counts the quads in ds across all graphs.
func Len(ds *ld.RDFDataset) int {
	if ds == nil {
		return 0
	}
	n := 0
	for _, quads := range ds.Graphs {
		n += len(quads)
	}
	return n
}

// GraphNames returns the named graphs of ds, sorted. The default graph is
// not included.
func GraphNames(ds *ld.RDFDataset) []string {
	var names []string
	for name, quads := range ds.Graphs {
		if name != DefaultGraph && len(quads) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Graph returns the triples of one graph of ds as a new graph. An empty
// name selects the default graph.
func Graph(ds *ld.RDFDataset, name string) *ld.RDFDataset {
	if name == "" {
		name = DefaultGraph
	}
	g := NewGraph()
	for _, q := range ds.Graphs[name] {
		Add(g, q.Subject, q.Predicate, q.Object, "")
	}
	return g
}

// DefaultGraphOf merges every graph of ds into the default graph of a new
// dataset.
func DefaultGraphOf(ds *ld.RDFDataset) *ld.RDFDataset {
	g := NewGraph()
	if ds == nil {
		return g
	}
	for _, quads := range ds.Graphs {
		for _, q := range quads {
			Add(g, q.Subject, q.Predicate, q.Object, "")
		}
	}
	return g
}

// Merge adds every quad of src to dst, keeping graph names.
func Merge(dst, src *ld.RDFDataset) {
	for name, quads := range src.Graphs {
		for _, q := range quads {
			Add(dst, q.Subject, q.Predicate, q.Object, name)
		}
	}
}
