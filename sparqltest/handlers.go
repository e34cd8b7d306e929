package sparqltest

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/piprate/json-gold/ld"

	"github.com/kbukum/sparqlkit/negotiation"
	"github.com/kbukum/sparqlkit/rdfio"
)

// handleQuery serves GET queries. A GET carrying update is rejected.
func (s *Server) handleQuery(c *gin.Context) {
	r := requestOf(c)
	if r.Query.Has("update") {
		c.Data(http.StatusMethodNotAllowed, "text/plain", []byte("updates must use POST"))
		return
	}
	s.query(c, r.Query.Get("query"))
}

// handleProtocol serves POST queries and updates in form or direct body
// encoding.
func (s *Server) handleProtocol(c *gin.Context) {
	r := requestOf(c)
	switch r.ContentType {
	case negotiation.MediaSPARQLQuery:
		s.query(c, r.Body)
	case negotiation.MediaSPARQLUpdate:
		s.update(c, r.Body)
	case negotiation.MediaForm:
		if r.Form.Has("update") {
			s.update(c, r.Form.Get("update"))
			return
		}
		s.query(c, r.Form.Get("query"))
	default:
		s.badRequest(c, fmt.Errorf("unsupported content type %q", r.ContentType))
	}
}

func (s *Server) query(c *gin.Context, text string) {
	if strings.TrimSpace(text) == "" {
		s.badRequest(c, fmt.Errorf("missing query"))
		return
	}
	toks, err := tokenize(text)
	if err != nil {
		s.badRequest(c, err)
		return
	}
	accept := c.GetHeader("Accept")
	kw, rest := form(toks)
	switch kw {
	case "SELECT":
		ct, payload, err := writeRows(accept, s.store.snapshot())
		if err != nil {
			s.badRequest(c, err)
			return
		}
		s.respond(c, http.StatusOK, ct, payload)
	case "ASK":
		patterns, _, err := parseBlock(skipWhere(rest), rdfio.DefaultGraph, true)
		if err != nil {
			s.badRequest(c, err)
			return
		}
		ct, payload := writeBoolean(accept, s.store.ask(patterns))
		s.respond(c, http.StatusOK, ct, payload)
	case "CONSTRUCT", "DESCRIBE":
		g, _ := s.store.graph(rdfio.DefaultGraph)
		s.writeGraph(c, http.StatusOK, negotiation.KindConstruct, accept, g)
	default:
		s.badRequest(c, fmt.Errorf("unsupported query form"))
	}
}

func skipWhere(toks []string) []string {
	if len(toks) > 0 && strings.EqualFold(toks[0], "WHERE") {
		return toks[1:]
	}
	return toks
}

func (s *Server) update(c *gin.Context, text string) {
	if strings.TrimSpace(text) == "" {
		s.badRequest(c, fmt.Errorf("missing update"))
		return
	}
	if err := s.store.runUpdate(text); err != nil {
		s.badRequest(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleGraphStore serves the Graph Store protocol. ?default selects the
// default graph, ?graph=<iri> a named graph, and no selector the dataset.
func (s *Server) handleGraphStore(c *gin.Context) {
	r := requestOf(c)
	name := ""
	switch {
	case r.Query.Has("default"):
		name = rdfio.DefaultGraph
	case r.Query.Get("graph") != "":
		name = r.Query.Get("graph")
	}

	switch r.Method {
	case http.MethodGet:
		if name == "" {
			s.writeGraph(c, http.StatusOK, negotiation.KindDatasetGet, c.GetHeader("Accept"), s.store.snapshot())
			return
		}
		g, ok := s.store.graph(name)
		if !ok {
			c.Data(http.StatusNotFound, "text/plain", []byte("no such graph"))
			return
		}
		s.writeGraph(c, http.StatusOK, negotiation.KindGraphGet, c.GetHeader("Accept"), g)
	case http.MethodPut, http.MethodPost:
		g, err := readGraph(r.ContentType, strings.NewReader(r.Body))
		if err != nil {
			s.badRequest(c, err)
			return
		}
		if r.Method == http.MethodPut {
			s.store.replace(name, g)
		} else {
			s.store.add(name, g)
		}
		c.Status(http.StatusNoContent)
	case http.MethodDelete:
		if name == "" {
			s.store.clear("", true, true)
		} else if !s.store.clear(name, false, true) {
			c.Data(http.StatusNotFound, "text/plain", []byte("no such graph"))
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// readGraph decodes a request payload with the default codecs.
func readGraph(contentType string, r io.Reader) (*ld.RDFDataset, error) {
	f, ok := negotiation.FormatOf(contentType)
	if !ok {
		return nil, fmt.Errorf("unsupported content type %q", contentType)
	}
	return rdfio.Default().Decode(f, r)
}

// writeGraph answers with g in the first format of accept the default
// codecs can write for kind.
func (s *Server) writeGraph(c *gin.Context, status int, kind negotiation.Kind, accept string, g *ld.RDFDataset) {
	f := graphFormat(kind, accept)
	var buf bytes.Buffer
	if err := rdfio.Default().Encode(f, &buf, g); err != nil {
		c.Data(http.StatusInternalServerError, "text/plain", []byte(err.Error()))
		return
	}
	s.respond(c, status, f.MediaType(), buf.Bytes())
}

func graphFormat(kind negotiation.Kind, accept string) negotiation.Format {
	codecs := rdfio.Default()
	for _, part := range strings.Split(accept, ",") {
		f, ok := negotiation.FormatOf(part)
		if ok && codecs.CanDecode(kind, f) {
			return f
		}
	}
	if kind.ReturnsDataset() {
		return negotiation.FormatNQuads
	}
	return negotiation.FormatNTriples
}
