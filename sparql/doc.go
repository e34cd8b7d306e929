// Package sparql is a client for the SPARQL 1.1 Query, Update and Graph
// Store HTTP protocols.
//
// A Client is built once from a Config and is safe for concurrent use. Each
// call assembles a fresh request: parameters and headers are copied from the
// client defaults, the send mode picks GET or POST, the Accept header comes
// from the per-kind negotiation tables, and the override registered for the
// endpoint runs last. Nothing is retried; a failed call returns one coded
// error carrying the endpoint, method, status and a body excerpt.
//
//	client, err := sparql.New(sparql.Config{})
//	rows, err := client.Select(ctx, "https://dbpedia.org/sparql", "SELECT * { ?s ?p ?o } LIMIT 10")
//	if err != nil {
//		return err
//	}
//	defer rows.Close()
//	for rows.Next() {
//		fmt.Println(rows.Row())
//	}
//
// Query returns an Execution, which follows the states Idle, Dispatched,
// AwaitingStatus, Success or Failed, and Closed. A closed execution rejects
// every further call with a CLOSED_EXECUTION error.
package sparql
