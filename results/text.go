package results

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/piprate/json-gold/ld"
)

// csvSource reads text/csv results. CSV drops term types, so values are
// classified by shape: "_:" labels are blank nodes, absolute IRIs are IRIs
// and everything else is a plain literal. Empty fields are unbound.
type csvSource struct {
	r        *csv.Reader
	varNames []string
}

func newCSVSource(r io.Reader) (*csvSource, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("results document has no header row")
	}
	if err != nil {
		return nil, err
	}
	return &csvSource{r: cr, varNames: header}, nil
}

func (s *csvSource) vars() []string { return s.varNames }

func (s *csvSource) next() (Row, error) {
	rec, err := s.r.Read()
	if err != nil {
		return nil, err
	}
	row := make(Row, len(rec))
	for i, v := range rec {
		if v == "" {
			continue
		}
		row[s.varNames[i]] = csvTerm(v)
	}
	return row, nil
}

func csvTerm(v string) ld.Node {
	if strings.HasPrefix(v, "_:") {
		return BlankNode(v)
	}
	if looksLikeIRI(v) {
		return IRI(v)
	}
	return Literal(v, "", "")
}

func looksLikeIRI(v string) bool {
	if strings.ContainsAny(v, " \t\n<>\"") {
		return false
	}
	u, err := url.Parse(v)
	return err == nil && u.Scheme != "" && (u.Host != "" || u.Opaque != "")
}

// tsvSource reads text/tab-separated-values results. Header names carry a
// leading "?" and values are RDF terms in Turtle syntax.
type tsvSource struct {
	r        *bufio.Reader
	varNames []string
	line     int
}

func newTSVSource(r io.Reader) (*tsvSource, error) {
	s := &tsvSource{r: bufio.NewReader(r)}
	header, err := s.readLine()
	if err == io.EOF {
		return nil, fmt.Errorf("results document has no header row")
	}
	if err != nil {
		return nil, err
	}
	for _, name := range strings.Split(header, "\t") {
		name = strings.TrimSpace(name)
		name = strings.TrimLeft(name, "?$")
		s.varNames = append(s.varNames, name)
	}
	return s, nil
}

func (s *tsvSource) vars() []string { return s.varNames }

func (s *tsvSource) next() (Row, error) {
	var line string
	for {
		l, err := s.readLine()
		if err != nil {
			return nil, err
		}
		if l != "" {
			line = l
			break
		}
	}
	fields := strings.Split(line, "\t")
	if len(fields) != len(s.varNames) {
		return nil, fmt.Errorf("line %d: %d fields, header has %d", s.line, len(fields), len(s.varNames))
	}
	row := make(Row, len(fields))
	for i, f := range fields {
		term, err := ParseTerm(f)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", s.line, err)
		}
		if term != nil {
			row[s.varNames[i]] = term
		}
	}
	return row, nil
}

// readLine returns the next line without its terminator. A final line
// without a newline is returned before io.EOF.
func (s *tsvSource) readLine() (string, error) {
	l, err := s.r.ReadString('\n')
	if err == io.EOF && l != "" {
		err = nil
	}
	if err != nil {
		return "", err
	}
	s.line++
	return strings.TrimRight(l, "\r\n"), nil
}
