// Package sparqltest provides an in-process SPARQL endpoint for tests.
//
// The server holds an RDF dataset and understands just enough of SPARQL to
// exercise a protocol client: SELECT returns every triple of the default
// graph bound to ?s ?p ?o, ASK matches a ground triple pattern, CONSTRUCT and
// DESCRIBE return the default graph, and updates support INSERT DATA,
// DELETE DATA, CLEAR and DROP. The Graph Store endpoint serves ?default,
// ?graph=<iri> and the whole dataset.
//
//	srv := sparqltest.New(t)
//	client.Select(ctx, srv.QueryURL(), "SELECT * { ?s ?p ?o }")
//
// Hooks force a status, a Content-Type or a Content-Encoding on every
// response, and every request is recorded for inspection.
package sparqltest
