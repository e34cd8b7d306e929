package negotiation

import (
	"github.com/kbukum/sparqlkit/errors"
)

// Decoders reports which formats can be decoded for an operation kind.
type Decoders interface {
	CanDecode(kind Kind, format Format) bool
}

// DecoderFunc adapts a function to the Decoders interface.
type DecoderFunc func(kind Kind, format Format) bool

// CanDecode calls f(kind, format).
func (f DecoderFunc) CanDecode(kind Kind, format Format) bool { return f(kind, format) }

// Negotiator binds the static tables to a set of available decoders.
type Negotiator struct {
	decoders Decoders
}

// New creates a Negotiator. A nil Decoders accepts every known format.
func New(dec Decoders) *Negotiator {
	return &Negotiator{decoders: dec}
}

// Accept returns the Accept header for kind. Without an override, entries
// whose format has no decoder are left out.
func (n *Negotiator) Accept(kind Kind, override string) string {
	return acceptFor(kind, override, n.decoders)
}

// Resolve maps the response Content-Type to a format tag. See Resolve.
func (n *Negotiator) Resolve(kind Kind, declared, sentAccept string) (Format, error) {
	return Resolve(kind, declared, Preferred(sentAccept), n.decoders)
}

// Resolve maps a declared Content-Type to a format decodable for kind.
// Parameters on the declared type are ignored. An empty declared type falls
// back to fallback, normally the preferred type of the Accept header sent.
// A type with no decoder for kind yields a negotiation error.
func Resolve(kind Kind, declared, fallback string, dec Decoders) (Format, error) {
	mt := BaseType(declared)
	if mt == "" {
		mt = BaseType(fallback)
	}
	if mt == "" {
		if f, ok := defaultFormat(kind); ok {
			return f, nil
		}
		return FormatNone, errors.Negotiation(kind.String(), declared)
	}
	f, ok := formatFor(kind, mt)
	if !ok || (dec != nil && !dec.CanDecode(kind, f)) {
		return FormatNone, errors.Negotiation(kind.String(), mt)
	}
	return f, nil
}

// formatFor resolves a bare media type in the context of kind. Generic JSON
// and XML are read as SPARQL results for Select and Ask only.
func formatFor(kind Kind, mediaType string) (Format, bool) {
	if kind.ReturnsResults() {
		switch mediaType {
		case MediaJSON:
			return FormatResultsJSON, true
		case MediaXML, MediaTextXML:
			return FormatResultsXML, true
		}
	}
	f, ok := byMediaType[mediaType]
	if !ok {
		return FormatNone, false
	}
	if f == FormatJSON && kind != KindJSONQuery {
		return FormatNone, false
	}
	return f, true
}

// defaultFormat is the most preferred format for kind, used when neither the
// response nor the request names a concrete type.
func defaultFormat(kind Kind) (Format, bool) {
	for _, r := range DefaultAccept(kind) {
		if f, ok := formatFor(kind, r.Type); ok {
			return f, true
		}
	}
	return FormatNone, false
}
