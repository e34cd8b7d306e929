package negotiation

import (
	"strconv"
	"strings"
)

// MediaRange is one weighted entry of an Accept header.
type MediaRange struct {
	Type string
	Q    float64
}

// String renders the range as it appears in an Accept header. Full weight
// is written as q=1.0; a range without a weight is written bare.
func (r MediaRange) String() string {
	switch {
	case r.Q <= 0:
		return r.Type
	case r.Q >= 1:
		return r.Type + ";q=1.0"
	}
	return r.Type + ";q=" + strconv.FormatFloat(r.Q, 'f', -1, 64)
}

var (
	resultsAccept = []MediaRange{
		{MediaResultsJSON, 1.0},
		{MediaResultsXML, 0.9},
		{MediaTSV, 0.7},
		{MediaCSV, 0.5},
		{MediaJSON, 0.2},
		{MediaXML, 0.2},
		{MediaAny, 0.1},
	}
	booleanAccept = []MediaRange{
		{MediaResultsJSON, 1.0},
		{MediaResultsXML, 0.9},
		{MediaJSON, 0.2},
		{MediaXML, 0.2},
		{MediaAny, 0.1},
	}
	graphAccept = []MediaRange{
		{MediaNTriples, 1.0},
		{MediaTurtle, 0.9},
		{MediaJSONLD, 0.8},
		{MediaRDFXML, 0.7},
		{MediaAny, 0.1},
	}
	datasetAccept = []MediaRange{
		{MediaNQuads, 1.0},
		{MediaTriG, 0.9},
		{MediaJSONLD, 0.8},
		{MediaAny, 0.1},
	}
	jsonAccept = []MediaRange{
		{MediaJSON, 1.0},
		{MediaAny, 0.1},
	}
	anyAccept = []MediaRange{{MediaAny, 1.0}}
)

// DefaultAccept returns the weighted default Accept list for kind, most
// preferred first. The returned slice is a copy.
func DefaultAccept(kind Kind) []MediaRange {
	var table []MediaRange
	switch kind {
	case KindSelect:
		table = resultsAccept
	case KindAsk:
		table = booleanAccept
	case KindConstruct, KindDescribe, KindGraphGet:
		table = graphAccept
	case KindDatasetGet:
		table = datasetAccept
	case KindJSONQuery:
		table = jsonAccept
	default:
		table = anyAccept
	}
	return append([]MediaRange(nil), table...)
}

// AcceptFor returns the Accept header for kind. A non-empty override is
// returned unchanged; it replaces the default list and is never merged.
func AcceptFor(kind Kind, override string) string {
	return acceptFor(kind, override, nil)
}

func acceptFor(kind Kind, override string, dec Decoders) string {
	if override = strings.TrimSpace(override); override != "" {
		return override
	}
	table := DefaultAccept(kind)
	parts := make([]string, 0, len(table))
	for _, r := range table {
		if dec != nil && !acceptable(kind, r.Type, dec) {
			continue
		}
		parts = append(parts, r.String())
	}
	return strings.Join(parts, ", ")
}

// acceptable keeps wildcards and types whose format has a decoder for kind.
func acceptable(kind Kind, mediaType string, dec Decoders) bool {
	if mediaType == MediaAny {
		return true
	}
	f, ok := formatFor(kind, mediaType)
	return ok && dec.CanDecode(kind, f)
}

// Preferred returns the first concrete media type of an Accept header, or ""
// when the header only holds wildcards.
func Preferred(accept string) string {
	for _, part := range strings.Split(accept, ",") {
		mt := BaseType(part)
		if mt == "" || strings.HasSuffix(mt, "/*") {
			continue
		}
		return mt
	}
	return ""
}
