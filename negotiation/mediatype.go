package negotiation

import "strings"

// Format is the internal tag for a decodable response or request payload format.
type Format string

const (
	FormatNone        Format = ""
	FormatResultsJSON Format = "sparql-results+json"
	FormatResultsXML  Format = "sparql-results+xml"
	FormatResultsTSV  Format = "sparql-results+tsv"
	FormatResultsCSV  Format = "sparql-results+csv"
	FormatJSON        Format = "json"
	FormatNTriples    Format = "n-triples"
	FormatTurtle      Format = "turtle"
	FormatRDFXML      Format = "rdf+xml"
	FormatJSONLD      Format = "json-ld"
	FormatNQuads      Format = "n-quads"
	FormatTriG        Format = "trig"
)

// Media types recognized by the client.
const (
	MediaResultsJSON = "application/sparql-results+json"
	MediaResultsXML  = "application/sparql-results+xml"
	MediaTSV         = "text/tab-separated-values"
	MediaCSV         = "text/csv"
	MediaJSON        = "application/json"
	MediaXML         = "application/xml"
	MediaTextXML     = "text/xml"
	MediaNTriples    = "application/n-triples"
	MediaTurtle      = "text/turtle"
	MediaRDFXML      = "application/rdf+xml"
	MediaJSONLD      = "application/ld+json"
	MediaNQuads      = "application/n-quads"
	MediaTriG        = "application/trig"
	MediaAny         = "*/*"

	MediaSPARQLQuery  = "application/sparql-query"
	MediaSPARQLUpdate = "application/sparql-update"
	MediaForm         = "application/x-www-form-urlencoded"
)

// byMediaType maps media types, including common legacy aliases, to formats.
var byMediaType = map[string]Format{
	MediaResultsJSON:       FormatResultsJSON,
	MediaResultsXML:        FormatResultsXML,
	MediaTSV:               FormatResultsTSV,
	MediaCSV:               FormatResultsCSV,
	MediaJSON:              FormatJSON,
	MediaNTriples:          FormatNTriples,
	MediaTurtle:            FormatTurtle,
	"application/x-turtle": FormatTurtle,
	MediaRDFXML:            FormatRDFXML,
	MediaJSONLD:            FormatJSONLD,
	MediaNQuads:            FormatNQuads,
	"text/x-nquads":        FormatNQuads,
	MediaTriG:              FormatTriG,
	"application/x-trig":   FormatTriG,
}

// canonical is the media type written for a format.
var canonical = map[Format]string{
	FormatResultsJSON: MediaResultsJSON,
	FormatResultsXML:  MediaResultsXML,
	FormatResultsTSV:  MediaTSV,
	FormatResultsCSV:  MediaCSV,
	FormatJSON:        MediaJSON,
	FormatNTriples:    MediaNTriples,
	FormatTurtle:      MediaTurtle,
	FormatRDFXML:      MediaRDFXML,
	FormatJSONLD:      MediaJSONLD,
	FormatNQuads:      MediaNQuads,
	FormatTriG:        MediaTriG,
}

// MediaType returns the canonical media type of f, or "" for unknown formats.
func (f Format) MediaType() string {
	return canonical[f]
}

// FormatOf returns the format registered for a media type. Parameters such
// as charset are ignored.
func FormatOf(contentType string) (Format, bool) {
	f, ok := byMediaType[BaseType(contentType)]
	return f, ok
}

// BaseType strips parameters from a Content-Type value and lowercases it.
//
//	BaseType("application/sparql-results+json; charset=utf-8") == "application/sparql-results+json"
func BaseType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
