package sparqltest

import (
	"fmt"
	"strings"
	"sync"

	"github.com/piprate/json-gold/ld"

	"github.com/kbukum/sparqlkit/rdfio"
	"github.com/kbukum/sparqlkit/results"
)

// store is the server's dataset.
type store struct {
	mu sync.RWMutex
	ds *ld.RDFDataset
}

func newStore() *store {
	return &store{ds: rdfio.NewGraph()}
}

func (s *store) snapshot() *ld.RDFDataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := rdfio.NewGraph()
	rdfio.Merge(out, s.ds)
	return out
}

// graph returns a copy of one graph and whether it exists. The default graph
// always exists.
func (s *store) graph(name string) (*ld.RDFDataset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if name != rdfio.DefaultGraph {
		if _, ok := s.ds.Graphs[name]; !ok {
			return nil, false
		}
	}
	return rdfio.Graph(s.ds, name), true
}

func (s *store) insert(quads []quad) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range quads {
		if !contains(s.ds.Graphs[q.graph], q) {
			rdfio.Add(s.ds, q.s, q.p, q.o, q.graph)
		}
	}
}

func (s *store) delete(quads []quad) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range quads {
		kept := s.ds.Graphs[q.graph][:0]
		for _, have := range s.ds.Graphs[q.graph] {
			if !q.matches(have) {
				kept = append(kept, have)
			}
		}
		s.ds.Graphs[q.graph] = kept
	}
}

// ask reports whether every pattern matches some stored triple.
func (s *store) ask(patterns []quad) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range patterns {
		if !contains(s.ds.Graphs[p.graph], p) {
			return false
		}
	}
	return true
}

// clear empties graph name; with all set every graph is emptied. Named
// graphs are removed when drop is set.
func (s *store) clear(name string, all, drop bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if all {
		s.ds = rdfio.NewGraph()
		return true
	}
	if _, ok := s.ds.Graphs[name]; !ok && name != rdfio.DefaultGraph {
		return false
	}
	if drop && name != rdfio.DefaultGraph {
		delete(s.ds.Graphs, name)
	} else {
		s.ds.Graphs[name] = nil
	}
	return true
}

// replace sets graph name to the triples of g, or the whole dataset when
// name is empty.
func (s *store) replace(name string, g *ld.RDFDataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name == "" {
		s.ds = rdfio.NewGraph()
		rdfio.Merge(s.ds, g)
		return
	}
	s.ds.Graphs[name] = []*ld.Quad{}
	s.merge(name, g)
}

// add merges the triples of g into graph name, or the quads of g into the
// dataset when name is empty.
func (s *store) add(name string, g *ld.RDFDataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name == "" {
		for graph, quads := range g.Graphs {
			for _, q := range quads {
				s.insertLocked(quad{s: q.Subject, p: q.Predicate, o: q.Object, graph: graph})
			}
		}
		return
	}
	s.merge(name, g)
}

func (s *store) merge(name string, g *ld.RDFDataset) {
	for _, quads := range g.Graphs {
		for _, q := range quads {
			s.insertLocked(quad{s: q.Subject, p: q.Predicate, o: q.Object, graph: name})
		}
	}
}

func (s *store) insertLocked(q quad) {
	if !contains(s.ds.Graphs[q.graph], q) {
		rdfio.Add(s.ds, q.s, q.p, q.o, q.graph)
	}
}

// quad is a triple pattern in a graph. A nil term is a variable.
type quad struct {
	s, p, o ld.Node
	graph   string
}

func (q quad) matches(have *ld.Quad) bool {
	return termMatches(q.s, have.Subject) &&
		termMatches(q.p, have.Predicate) &&
		termMatches(q.o, have.Object)
}

func termMatches(pattern, have ld.Node) bool {
	return pattern == nil || results.Term(pattern) == results.Term(have)
}

func contains(quads []*ld.Quad, q quad) bool {
	for _, have := range quads {
		if q.matches(have) {
			return true
		}
	}
	return false
}

// tokenize splits SPARQL text into IRIs, literals, punctuation and words.
func tokenize(text string) ([]string, error) {
	var toks []string
	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '#':
			for i < len(text) && text[i] != '\n' {
				i++
			}
		case c == '{' || c == '}' || c == '.' || c == ';':
			toks = append(toks, string(c))
			i++
		case c == '<':
			end := strings.IndexByte(text[i:], '>')
			if end < 0 {
				return nil, fmt.Errorf("unterminated IRI at offset %d", i)
			}
			toks = append(toks, text[i:i+end+1])
			i += end + 1
		case c == '"' || c == '\'':
			end, err := literalEnd(text, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, text[i:end])
			i = end
		default:
			start := i
			for i < len(text) && !strings.ContainsRune(" \t\r\n{};", rune(text[i])) {
				i++
			}
			word := text[start:i]
			if len(word) > 1 && strings.HasSuffix(word, ".") {
				toks = append(toks, word[:len(word)-1], ".")
				continue
			}
			toks = append(toks, word)
		}
	}
	return toks, nil
}

// literalEnd returns the offset just past the quoted literal starting at i,
// including a language tag or datatype.
func literalEnd(text string, i int) (int, error) {
	q := text[i]
	j := i + 1
	for ; j < len(text); j++ {
		if text[j] == '\\' {
			j++
			continue
		}
		if text[j] == q {
			break
		}
	}
	if j >= len(text) {
		return 0, fmt.Errorf("unterminated literal at offset %d", i)
	}
	j++
	switch {
	case j < len(text) && text[j] == '@':
		j++
		for j < len(text) && (isAlnum(text[j]) || text[j] == '-') {
			j++
		}
	case strings.HasPrefix(text[j:], "^^<"):
		end := strings.IndexByte(text[j:], '>')
		if end < 0 {
			return 0, fmt.Errorf("unterminated datatype at offset %d", j)
		}
		j += end + 1
	}
	return j, nil
}

func isAlnum(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// parseTerm reads a ground term or, when vars is set, a variable.
func parseTerm(tok string, vars bool) (ld.Node, error) {
	if tok == "a" {
		return ld.NewIRI("http://www.w3.org/1999/02/22-rdf-syntax-ns#type"), nil
	}
	if strings.HasPrefix(tok, "?") || strings.HasPrefix(tok, "$") {
		if !vars {
			return nil, fmt.Errorf("variable %s not allowed in data", tok)
		}
		return nil, nil
	}
	n, err := results.ParseTerm(tok)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, fmt.Errorf("empty term")
	}
	return n, nil
}

// parseBlock reads the triples of a { ... } block starting at toks[0] and
// returns them with the remaining tokens. GRAPH <g> { ... } nests once.
func parseBlock(toks []string, graph string, vars bool) ([]quad, []string, error) {
	if len(toks) == 0 || toks[0] != "{" {
		return nil, nil, fmt.Errorf("expected '{'")
	}
	toks = toks[1:]
	var (
		out   []quad
		terms []ld.Node
	)
	for len(toks) > 0 {
		tok := toks[0]
		switch {
		case tok == "}":
			if len(terms) != 0 {
				return nil, nil, fmt.Errorf("incomplete triple")
			}
			return out, toks[1:], nil
		case tok == ".":
			toks = toks[1:]
			continue
		case strings.EqualFold(tok, "GRAPH") && len(terms) == 0:
			if len(toks) < 2 {
				return nil, nil, fmt.Errorf("expected graph name")
			}
			name, err := parseTerm(toks[1], false)
			if err != nil || !results.IsIRI(name) {
				return nil, nil, fmt.Errorf("invalid graph name %q", toks[1])
			}
			inner, rest, err := parseBlock(toks[2:], name.GetValue(), vars)
			if err != nil {
				return nil, nil, err
			}
			out = append(out, inner...)
			toks = rest
			continue
		}
		n, err := parseTerm(tok, vars)
		if err != nil {
			return nil, nil, err
		}
		terms = append(terms, n)
		if len(terms) == 3 {
			out = append(out, quad{s: terms[0], p: terms[1], o: terms[2], graph: graph})
			terms = terms[:0]
		}
		toks = toks[1:]
	}
	return nil, nil, fmt.Errorf("expected '}'")
}

// form returns the first query or update keyword of text, upper-cased, and
// the tokens after it.
func form(toks []string) (string, []string) {
	for i, tok := range toks {
		switch kw := strings.ToUpper(tok); kw {
		case "SELECT", "ASK", "CONSTRUCT", "DESCRIBE", "INSERT", "DELETE", "CLEAR", "DROP":
			return kw, toks[i+1:]
		}
	}
	return "", nil
}

// runUpdate applies one update operation to the store.
func (s *store) runUpdate(text string) error {
	toks, err := tokenize(text)
	if err != nil {
		return err
	}
	kw, rest := form(toks)
	switch kw {
	case "INSERT", "DELETE":
		if len(rest) == 0 || !strings.EqualFold(rest[0], "DATA") {
			return fmt.Errorf("only %s DATA is supported", kw)
		}
		quads, _, err := parseBlock(rest[1:], rdfio.DefaultGraph, false)
		if err != nil {
			return err
		}
		if kw == "INSERT" {
			s.insert(quads)
		} else {
			s.delete(quads)
		}
		return nil
	case "CLEAR", "DROP":
		if len(rest) > 0 && strings.EqualFold(rest[0], "SILENT") {
			rest = rest[1:]
		}
		if len(rest) == 0 {
			return fmt.Errorf("%s needs a target", kw)
		}
		drop := kw == "DROP"
		switch strings.ToUpper(rest[0]) {
		case "ALL", "NAMED":
			s.clear("", true, drop)
		case "DEFAULT":
			s.clear(rdfio.DefaultGraph, false, drop)
		case "GRAPH":
			if len(rest) < 2 {
				return fmt.Errorf("expected graph name")
			}
			name, err := parseTerm(rest[1], false)
			if err != nil {
				return err
			}
			s.clear(name.GetValue(), false, drop)
		default:
			return fmt.Errorf("unknown %s target %q", kw, rest[0])
		}
		return nil
	}
	return fmt.Errorf("unsupported update")
}
