package sparqltest

import (
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"io"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/piprate/json-gold/ld"

	"github.com/kbukum/sparqlkit/negotiation"
	"github.com/kbukum/sparqlkit/rdfio"
	"github.com/kbukum/sparqlkit/results"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var rowVars = []string{"s", "p", "o"}

type jsonResults struct {
	Head    jsonHead      `json:"head"`
	Results *jsonBindings `json:"results,omitempty"`
	Boolean *bool         `json:"boolean,omitempty"`
}

type jsonHead struct {
	Vars []string `json:"vars,omitempty"`
}

type jsonBindings struct {
	Bindings []map[string]jsonTerm `json:"bindings"`
}

type jsonTerm struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Lang     string `json:"xml:lang,omitempty"`
	Datatype string `json:"datatype,omitempty"`
}

// resultsFormat picks the results format from accept and the media type to
// declare for it.
func resultsFormat(accept string, allowText bool) (negotiation.Format, string) {
	for _, part := range strings.Split(accept, ",") {
		switch mt := negotiation.BaseType(part); mt {
		case negotiation.MediaResultsJSON, negotiation.MediaJSON:
			return negotiation.FormatResultsJSON, mt
		case negotiation.MediaResultsXML, negotiation.MediaXML, negotiation.MediaTextXML:
			return negotiation.FormatResultsXML, mt
		case negotiation.MediaTSV:
			if allowText {
				return negotiation.FormatResultsTSV, mt
			}
		case negotiation.MediaCSV:
			if allowText {
				return negotiation.FormatResultsCSV, mt
			}
		case negotiation.MediaAny:
			return negotiation.FormatResultsJSON, negotiation.MediaResultsJSON
		}
	}
	return negotiation.FormatResultsJSON, negotiation.MediaResultsJSON
}

// writeRows renders the default graph of ds as ?s ?p ?o solutions.
func writeRows(accept string, ds *ld.RDFDataset) (string, []byte, error) {
	quads := ds.Graphs[rdfio.DefaultGraph]
	format, ct := resultsFormat(accept, true)
	var buf bytes.Buffer
	switch format {
	case negotiation.FormatResultsXML:
		writeXMLRows(&buf, quads)
	case negotiation.FormatResultsTSV:
		buf.WriteString("?s\t?p\t?o\n")
		for _, q := range quads {
			buf.WriteString(results.Term(q.Subject) + "\t" + results.Term(q.Predicate) + "\t" + results.Term(q.Object) + "\n")
		}
	case negotiation.FormatResultsCSV:
		w := csv.NewWriter(&buf)
		_ = w.Write(rowVars)
		for _, q := range quads {
			_ = w.Write([]string{q.Subject.GetValue(), q.Predicate.GetValue(), q.Object.GetValue()})
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return "", nil, err
		}
	default:
		out := jsonResults{Head: jsonHead{Vars: rowVars}, Results: &jsonBindings{Bindings: []map[string]jsonTerm{}}}
		for _, q := range quads {
			out.Results.Bindings = append(out.Results.Bindings, map[string]jsonTerm{
				"s": toJSONTerm(q.Subject),
				"p": toJSONTerm(q.Predicate),
				"o": toJSONTerm(q.Object),
			})
		}
		if err := json.NewEncoder(&buf).Encode(out); err != nil {
			return "", nil, err
		}
	}
	return ct, buf.Bytes(), nil
}

// writeBoolean renders an ASK result.
func writeBoolean(accept string, v bool) (string, []byte) {
	format, ct := resultsFormat(accept, false)
	if format == negotiation.FormatResultsXML {
		s := `<?xml version="1.0"?>` + "\n" +
			`<sparql xmlns="http://www.w3.org/2005/sparql-results#"><head/><boolean>`
		if v {
			s += "true"
		} else {
			s += "false"
		}
		return ct, []byte(s + "</boolean></sparql>\n")
	}
	b, _ := json.Marshal(jsonResults{Boolean: &v})
	return ct, b
}

func toJSONTerm(n ld.Node) jsonTerm {
	switch {
	case results.IsIRI(n):
		return jsonTerm{Type: "uri", Value: n.GetValue()}
	case results.IsBlank(n):
		return jsonTerm{Type: "bnode", Value: strings.TrimPrefix(n.GetValue(), "_:")}
	}
	value, datatype, lang, _ := results.LiteralParts(n)
	t := jsonTerm{Type: "literal", Value: value, Lang: lang}
	if lang == "" && datatype != ld.XSDString {
		t.Datatype = datatype
	}
	return t
}

func writeXMLRows(buf *bytes.Buffer, quads []*ld.Quad) {
	buf.WriteString(`<?xml version="1.0"?>` + "\n")
	buf.WriteString(`<sparql xmlns="http://www.w3.org/2005/sparql-results#"><head>`)
	for _, v := range rowVars {
		buf.WriteString(`<variable name="` + v + `"/>`)
	}
	buf.WriteString("</head><results>")
	for _, q := range quads {
		buf.WriteString("<result>")
		for i, n := range []ld.Node{q.Subject, q.Predicate, q.Object} {
			buf.WriteString(`<binding name="` + rowVars[i] + `">`)
			writeXMLTerm(buf, n)
			buf.WriteString("</binding>")
		}
		buf.WriteString("</result>")
	}
	buf.WriteString("</results></sparql>\n")
}

func writeXMLTerm(buf *bytes.Buffer, n ld.Node) {
	switch {
	case results.IsIRI(n):
		buf.WriteString("<uri>")
		_ = xml.EscapeText(buf, []byte(n.GetValue()))
		buf.WriteString("</uri>")
		return
	case results.IsBlank(n):
		buf.WriteString("<bnode>")
		_ = xml.EscapeText(buf, []byte(strings.TrimPrefix(n.GetValue(), "_:")))
		buf.WriteString("</bnode>")
		return
	}
	value, datatype, lang, _ := results.LiteralParts(n)
	switch {
	case lang != "":
		buf.WriteString(`<literal xml:lang="` + lang + `">`)
	case datatype != "" && datatype != ld.XSDString:
		buf.WriteString(`<literal datatype="`)
		_ = xml.EscapeText(buf, []byte(datatype))
		buf.WriteString(`">`)
	default:
		buf.WriteString("<literal>")
	}
	_ = xml.EscapeText(buf, []byte(value))
	buf.WriteString("</literal>")
}

// encode compresses payload with enc. Unknown codings are declared but not
// applied.
func encode(enc string, payload []byte) ([]byte, error) {
	var (
		buf bytes.Buffer
		w   io.WriteCloser
		err error
	)
	switch enc {
	case "gzip", "x-gzip":
		w = gzip.NewWriter(&buf)
	case "deflate":
		w = zlib.NewWriter(&buf)
	case "zstd":
		w, err = zstd.NewWriter(&buf)
		if err != nil {
			return nil, err
		}
	default:
		return payload, nil
	}
	if _, err := w.Write(payload); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
