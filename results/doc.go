// Package results decodes SPARQL query results.
//
// Select results are streamed through Rows, one solution at a time, from the
// JSON, XML, CSV and TSV result formats. Ask results are read with
// DecodeBoolean. Bound values are json-gold nodes (IRIs, blank nodes and
// literals) so they can be fed straight into an ld.RDFDataset.
//
//	rows, err := results.DecodeRows(negotiation.FormatResultsJSON, body)
//	if err != nil {
//		return err
//	}
//	defer rows.Close()
//	for rows.Next() {
//		fmt.Println(results.Term(rows.Row()["s"]))
//	}
//	return rows.Err()
package results
