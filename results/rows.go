package results

import (
	"io"

	"github.com/piprate/json-gold/ld"

	"github.com/kbukum/sparqlkit/errors"
	"github.com/kbukum/sparqlkit/negotiation"
)

// Row is one solution: variable name to bound term. Unbound variables are
// absent from the map.
type Row map[string]ld.Node

// source yields solutions until io.EOF.
type source interface {
	vars() []string
	next() (Row, error)
}

// Rows iterates over Select solutions streamed from a response body.
// It is not safe for concurrent use.
//
//	for rows.Next() {
//		row := rows.Row()
//	}
//	if err := rows.Err(); err != nil { ... }
type Rows struct {
	format negotiation.Format
	src    source
	body   io.ReadCloser
	row    Row
	err    error
	done   bool
}

// DecodeRows starts decoding Select results in format from body. The head of
// the document is read eagerly so Vars is available before the first Next.
// Rows owns body from here on, also on error.
func DecodeRows(format negotiation.Format, body io.ReadCloser) (*Rows, error) {
	var (
		src source
		err error
	)
	switch format {
	case negotiation.FormatResultsJSON:
		src, err = newJSONSource(body)
	case negotiation.FormatResultsXML:
		src, err = newXMLSource(body)
	case negotiation.FormatResultsCSV:
		src, err = newCSVSource(body)
	case negotiation.FormatResultsTSV:
		src, err = newTSVSource(body)
	default:
		_ = body.Close()
		return nil, errors.Negotiation(negotiation.KindSelect.String(), format.MediaType())
	}
	if err != nil {
		_ = body.Close()
		return nil, decodeError(format, err)
	}
	return &Rows{format: format, src: src, body: body}, nil
}

// Vars returns the projected variable names in result order.
func (r *Rows) Vars() []string {
	return r.src.vars()
}

// Next advances to the next solution. It returns false at the end of the
// results or on error; the body is released in both cases.
func (r *Rows) Next() bool {
	if r.done {
		return false
	}
	row, err := r.src.next()
	if err == io.EOF {
		r.finish(true)
		return false
	}
	if err != nil {
		r.err = decodeError(r.format, err)
		r.finish(false)
		return false
	}
	r.row = row
	return true
}

// Row returns the current solution.
func (r *Rows) Row() Row {
	return r.row
}

// Err returns the error that stopped iteration, if any.
func (r *Rows) Err() error {
	return r.err
}

// Close releases the body. Unread solutions are discarded.
func (r *Rows) Close() error {
	if r.done {
		return nil
	}
	r.finish(false)
	return nil
}

// All reads the remaining solutions and closes the iterator.
func (r *Rows) All() ([]Row, error) {
	var out []Row
	for r.Next() {
		out = append(out, r.row)
	}
	return out, r.Err()
}

// finish ends iteration. After a clean end the few trailing bytes of the
// document are read so the body is released as consumed, not drained.
func (r *Rows) finish(clean bool) {
	r.done = true
	r.row = nil
	if clean {
		_, _ = io.Copy(io.Discard, r.body)
	}
	_ = r.body.Close()
}

func decodeError(format negotiation.Format, err error) error {
	if _, ok := errors.AsError(err); ok {
		return err
	}
	return errors.Decode(format.MediaType(), err)
}

// CanDecode reports whether results of kind can be decoded from format.
func CanDecode(kind negotiation.Kind, format negotiation.Format) bool {
	switch kind {
	case negotiation.KindSelect:
		switch format {
		case negotiation.FormatResultsJSON, negotiation.FormatResultsXML,
			negotiation.FormatResultsCSV, negotiation.FormatResultsTSV:
			return true
		}
	case negotiation.KindAsk:
		return format == negotiation.FormatResultsJSON || format == negotiation.FormatResultsXML
	case negotiation.KindJSONQuery:
		return format == negotiation.FormatJSON
	}
	return false
}
