// Package rdfio reads and writes RDF graphs and datasets for Construct,
// Describe and Graph Store operations.
//
// Graphs and datasets are json-gold ld.RDFDataset values; a graph is a
// dataset whose triples live in the default graph. Codecs are looked up by
// negotiation.Format in a Registry. The default registry knows N-Triples,
// N-Quads and JSON-LD; Turtle, TriG and RDF/XML are negotiated only when a
// codec for them is registered.
package rdfio
