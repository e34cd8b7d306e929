package results

import (
	"io"

	"github.com/kbukum/sparqlkit/errors"
	"github.com/kbukum/sparqlkit/negotiation"
)

// DecodeBoolean reads an Ask result in format from r.
func DecodeBoolean(format negotiation.Format, r io.Reader) (bool, error) {
	var (
		b   bool
		err error
	)
	switch format {
	case negotiation.FormatResultsJSON:
		b, err = decodeJSONBoolean(r)
	case negotiation.FormatResultsXML:
		b, err = decodeXMLBoolean(r)
	default:
		return false, errors.Negotiation(negotiation.KindAsk.String(), format.MediaType())
	}
	if err != nil {
		return false, decodeError(format, err)
	}
	return b, nil
}
