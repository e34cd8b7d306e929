package results

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/piprate/json-gold/ld"

	"github.com/kbukum/sparqlkit/errors"
	"github.com/kbukum/sparqlkit/negotiation"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const iterBufferSize = 4096

// jsonSource streams bindings from an application/sparql-results+json
// document. When "results" precedes "head" the bindings are buffered so the
// variable list is known before the first row is returned.
type jsonSource struct {
	iter      *jsoniter.Iterator
	varNames  []string
	buffered  []Row
	streaming bool
}

func newJSONSource(r io.Reader) (*jsonSource, error) {
	s := &jsonSource{iter: jsoniter.Parse(json, r, iterBufferSize)}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

// open reads top-level members up to the start of the bindings array.
func (s *jsonSource) open() error {
	iter := s.iter
	if iter.WhatIsNext() != jsoniter.ObjectValue {
		return fmt.Errorf("results document is not a JSON object")
	}
	headSeen := false
	for field := iter.ReadObject(); field != ""; field = iter.ReadObject() {
		switch field {
		case "head":
			s.varNames = readHead(iter)
			headSeen = true
		case "results":
			if !s.enterBindings() {
				continue
			}
			if headSeen {
				s.streaming = true
				return iter.Error
			}
			if err := s.bufferBindings(); err != nil {
				return err
			}
		default:
			iter.Skip()
		}
		if iter.Error != nil {
			return iter.Error
		}
	}
	if iter.Error != nil && iter.Error != io.EOF {
		return iter.Error
	}
	if !headSeen {
		return fmt.Errorf("results document has no head")
	}
	return nil
}

func readHead(iter *jsoniter.Iterator) []string {
	vars := []string{}
	for field := iter.ReadObject(); field != ""; field = iter.ReadObject() {
		if field != "vars" {
			iter.Skip()
			continue
		}
		for iter.ReadArray() {
			vars = append(vars, iter.ReadString())
		}
	}
	return vars
}

// enterBindings positions the iterator inside the bindings array. It
// returns false when the results object has no bindings member.
func (s *jsonSource) enterBindings() bool {
	iter := s.iter
	for field := iter.ReadObject(); field != ""; field = iter.ReadObject() {
		if field == "bindings" {
			return true
		}
		iter.Skip()
	}
	return false
}

func (s *jsonSource) bufferBindings() error {
	for {
		row, err := s.readBinding()
		if err == io.EOF {
			return s.leaveResults()
		}
		if err != nil {
			return err
		}
		s.buffered = append(s.buffered, row)
	}
}

// leaveResults skips members that follow bindings inside "results".
func (s *jsonSource) leaveResults() error {
	for field := s.iter.ReadObject(); field != ""; field = s.iter.ReadObject() {
		s.iter.Skip()
	}
	return s.iter.Error
}

func (s *jsonSource) vars() []string { return s.varNames }

func (s *jsonSource) next() (Row, error) {
	if len(s.buffered) > 0 {
		row := s.buffered[0]
		s.buffered = s.buffered[1:]
		return row, nil
	}
	if !s.streaming {
		return nil, io.EOF
	}
	row, err := s.readBinding()
	if err == io.EOF {
		s.streaming = false
	}
	return row, err
}

// readBinding reads one element of the bindings array, io.EOF at its end.
func (s *jsonSource) readBinding() (Row, error) {
	iter := s.iter
	if !iter.ReadArray() {
		if iter.Error != nil && iter.Error != io.EOF {
			return nil, iter.Error
		}
		return nil, io.EOF
	}
	row := Row{}
	for name := iter.ReadObject(); name != ""; name = iter.ReadObject() {
		term, err := readJSONTerm(iter)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", name, err)
		}
		row[name] = term
	}
	if iter.Error != nil && iter.Error != io.EOF {
		return nil, iter.Error
	}
	return row, nil
}

type jsonTerm struct {
	kind, value, datatype, lang string
}

func readJSONTerm(iter *jsoniter.Iterator) (ld.Node, error) {
	var t jsonTerm
	for field := iter.ReadObject(); field != ""; field = iter.ReadObject() {
		switch field {
		case "type":
			t.kind = iter.ReadString()
		case "value":
			t.value = iter.ReadString()
		case "datatype":
			t.datatype = iter.ReadString()
		case "xml:lang":
			t.lang = iter.ReadString()
		default:
			iter.Skip()
		}
	}
	if iter.Error != nil && iter.Error != io.EOF {
		return nil, iter.Error
	}
	switch t.kind {
	case "uri":
		return IRI(t.value), nil
	case "bnode":
		return BlankNode(t.value), nil
	case "literal", "typed-literal":
		return Literal(t.value, t.datatype, t.lang), nil
	}
	return nil, fmt.Errorf("unsupported term type %q", t.kind)
}

func decodeJSONBoolean(r io.Reader) (bool, error) {
	iter := jsoniter.Parse(json, r, iterBufferSize)
	for field := iter.ReadObject(); field != ""; field = iter.ReadObject() {
		if field == "boolean" {
			return iter.ReadBool(), iter.Error
		}
		iter.Skip()
	}
	if iter.Error != nil && iter.Error != io.EOF {
		return false, iter.Error
	}
	return false, fmt.Errorf("results document has no boolean")
}

// DecodeJSON decodes a plain JSON response. A top-level array is returned
// as is; any other value becomes a one-element slice.
func DecodeJSON(r io.Reader) ([]any, error) {
	var v any
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		return nil, errors.Decode(negotiation.MediaJSON, err)
	}
	if arr, ok := v.([]any); ok {
		return arr, nil
	}
	return []any{v}, nil
}
