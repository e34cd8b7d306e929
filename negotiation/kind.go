package negotiation

// Kind identifies a protocol operation. It selects the default Accept list,
// the request Content-Type and the response decoding strategy.
type Kind int

const (
	KindSelect Kind = iota
	KindAsk
	KindConstruct
	KindDescribe
	KindJSONQuery
	KindUpdate
	KindGraphGet
	KindGraphPost
	KindGraphPut
	KindGraphDelete
	KindDatasetGet
	KindDatasetPost
	KindDatasetPut
)

var kindNames = [...]string{
	KindSelect:      "select",
	KindAsk:         "ask",
	KindConstruct:   "construct",
	KindDescribe:    "describe",
	KindJSONQuery:   "json",
	KindUpdate:      "update",
	KindGraphGet:    "graph-get",
	KindGraphPost:   "graph-post",
	KindGraphPut:    "graph-put",
	KindGraphDelete: "graph-delete",
	KindDatasetGet:  "dataset-get",
	KindDatasetPost: "dataset-post",
	KindDatasetPut:  "dataset-put",
}

// String returns the kind name.
func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsQuery reports whether the kind is sent through the SPARQL Query protocol.
func (k Kind) IsQuery() bool {
	return k >= KindSelect && k <= KindJSONQuery
}

// IsGraphStore reports whether the kind is a Graph Store Protocol operation.
func (k Kind) IsGraphStore() bool {
	return k >= KindGraphGet && k <= KindDatasetPut
}

// ReturnsResults reports whether the kind yields SPARQL results (rows or a boolean).
func (k Kind) ReturnsResults() bool {
	return k == KindSelect || k == KindAsk
}

// ReturnsGraph reports whether the kind yields a single RDF graph.
func (k Kind) ReturnsGraph() bool {
	return k == KindConstruct || k == KindDescribe || k == KindGraphGet
}

// ReturnsDataset reports whether the kind yields an RDF dataset.
func (k Kind) ReturnsDataset() bool {
	return k == KindDatasetGet
}

// HasResponseBody reports whether a successful response carries a payload
// the client decodes.
func (k Kind) HasResponseBody() bool {
	return k.ReturnsResults() || k.ReturnsGraph() || k.ReturnsDataset() || k == KindJSONQuery
}
