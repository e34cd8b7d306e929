package results

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/piprate/json-gold/ld"
)

// xmlSource streams <result> elements from an
// application/sparql-results+xml document.
type xmlSource struct {
	dec      *xml.Decoder
	varNames []string
	inResult bool
	boolean  *bool
}

type xmlResult struct {
	Bindings []xmlBinding `xml:"binding"`
}

type xmlBinding struct {
	Name    string      `xml:"name,attr"`
	URI     *string     `xml:"uri"`
	BNode   *string     `xml:"bnode"`
	Literal *xmlLiteral `xml:"literal"`
}

type xmlLiteral struct {
	Value    string `xml:",chardata"`
	Lang     string `xml:"http://www.w3.org/XML/1998/namespace lang,attr"`
	Datatype string `xml:"datatype,attr"`
}

func newXMLSource(r io.Reader) (*xmlSource, error) {
	s := &xmlSource{dec: xml.NewDecoder(r), varNames: []string{}}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

// open reads the head and stops inside <results> or after <boolean>.
func (s *xmlSource) open() error {
	sawRoot := false
	for {
		tok, err := s.dec.Token()
		if err == io.EOF {
			if !sawRoot {
				return fmt.Errorf("results document has no sparql element")
			}
			return nil
		}
		if err != nil {
			return err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "sparql", "head":
			sawRoot = true
		case "variable":
			for _, a := range start.Attr {
				if a.Name.Local == "name" {
					s.varNames = append(s.varNames, a.Value)
				}
			}
		case "results":
			s.inResult = true
			return nil
		case "boolean":
			var v string
			if err := s.dec.DecodeElement(&v, &start); err != nil {
				return err
			}
			b, err := parseBoolean(v)
			if err != nil {
				return err
			}
			s.boolean = &b
			return nil
		default:
			if err := s.dec.Skip(); err != nil {
				return err
			}
		}
	}
}

func (s *xmlSource) vars() []string { return s.varNames }

func (s *xmlSource) next() (Row, error) {
	if !s.inResult {
		return nil, io.EOF
	}
	for {
		tok, err := s.dec.Token()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "result" {
				if err := s.dec.Skip(); err != nil {
					return nil, err
				}
				continue
			}
			var res xmlResult
			if err := s.dec.DecodeElement(&res, &t); err != nil {
				return nil, err
			}
			return res.row()
		case xml.EndElement:
			if t.Name.Local == "results" {
				s.inResult = false
				return nil, io.EOF
			}
		}
	}
}

func (r xmlResult) row() (Row, error) {
	row := make(Row, len(r.Bindings))
	for _, b := range r.Bindings {
		term, err := b.term()
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", b.Name, err)
		}
		row[b.Name] = term
	}
	return row, nil
}

func (b xmlBinding) term() (ld.Node, error) {
	switch {
	case b.URI != nil:
		return IRI(strings.TrimSpace(*b.URI)), nil
	case b.BNode != nil:
		return BlankNode(strings.TrimSpace(*b.BNode)), nil
	case b.Literal != nil:
		return Literal(b.Literal.Value, b.Literal.Datatype, b.Literal.Lang), nil
	}
	return nil, fmt.Errorf("binding has no term")
}

func decodeXMLBoolean(r io.Reader) (bool, error) {
	s := &xmlSource{dec: xml.NewDecoder(r)}
	if err := s.open(); err != nil {
		return false, err
	}
	if s.boolean == nil {
		return false, fmt.Errorf("results document has no boolean")
	}
	return *s.boolean, nil
}

func parseBoolean(v string) (bool, error) {
	switch strings.TrimSpace(v) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", v)
}
