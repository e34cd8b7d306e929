package sparql

import "github.com/kbukum/sparqlkit/negotiation"

// Kind identifies a protocol operation.
type Kind = negotiation.Kind

const (
	Select      = negotiation.KindSelect
	Ask         = negotiation.KindAsk
	Construct   = negotiation.KindConstruct
	Describe    = negotiation.KindDescribe
	JSONQuery   = negotiation.KindJSONQuery
	Update      = negotiation.KindUpdate
	GraphGet    = negotiation.KindGraphGet
	GraphPost   = negotiation.KindGraphPost
	GraphPut    = negotiation.KindGraphPut
	GraphDelete = negotiation.KindGraphDelete
	DatasetGet  = negotiation.KindDatasetGet
	DatasetPost = negotiation.KindDatasetPost
	DatasetPut  = negotiation.KindDatasetPut
)

// Protocol parameter names.
const (
	ParamQuery              = "query"
	ParamUpdate             = "update"
	ParamDefaultGraphURI    = "default-graph-uri"
	ParamNamedGraphURI      = "named-graph-uri"
	ParamUsingGraphURI      = "using-graph-uri"
	ParamUsingNamedGraphURI = "using-named-graph-uri"
	ParamGraph              = "graph"
	ParamDefault            = "default"
)

// HeaderRequestID carries the execution ID unless the caller sets it.
const HeaderRequestID = "X-Request-ID"
