package results

import (
	"io"
	"strings"
	"testing"

	"github.com/kbukum/sparqlkit/errors"
	"github.com/kbukum/sparqlkit/negotiation"
)

type closeTracker struct {
	io.Reader
	closed int
}

func (c *closeTracker) Close() error {
	c.closed++
	return nil
}

func body(s string) *closeTracker {
	return &closeTracker{Reader: strings.NewReader(s)}
}

const selectJSON = `{
  "head": {"vars": ["s", "label", "b"]},
  "results": {"bindings": [
    {"s": {"type": "uri", "value": "http://example.org/a"},
     "label": {"type": "literal", "value": "chat", "xml:lang": "FR"}},
    {"s": {"type": "uri", "value": "http://example.org/b"},
     "label": {"type": "literal", "value": "42", "datatype": "http://www.w3.org/2001/XMLSchema#integer"},
     "b": {"type": "bnode", "value": "n1"}}
  ]}
}`

const selectXML = `<?xml version="1.0"?>
<sparql xmlns="http://www.w3.org/2005/sparql-results#">
  <head><variable name="s"/><variable name="label"/><variable name="b"/><link href="meta"/></head>
  <results>
    <result>
      <binding name="s"><uri>http://example.org/a</uri></binding>
      <binding name="label"><literal xml:lang="fr">chat</literal></binding>
    </result>
    <result>
      <binding name="s"><uri>http://example.org/b</uri></binding>
      <binding name="label"><literal datatype="http://www.w3.org/2001/XMLSchema#integer">42</literal></binding>
      <binding name="b"><bnode>n1</bnode></binding>
    </result>
  </results>
</sparql>`

const selectTSV = "?s\t?label\t?b\n" +
	"<http://example.org/a>\t\"chat\"@fr\t\n" +
	"<http://example.org/b>\t42\t_:n1\n"

const selectCSV = "s,label,b\r\n" +
	"http://example.org/a,chat,\r\n" +
	"http://example.org/b,42,_:n1\r\n"

func TestDecodeRows_Formats(t *testing.T) {
	tests := []struct {
		name   string
		format negotiation.Format
		doc    string
		label0 string
		label1 string
	}{
		{"json", negotiation.FormatResultsJSON, selectJSON, `"chat"@fr`, `"42"^^<http://www.w3.org/2001/XMLSchema#integer>`},
		{"xml", negotiation.FormatResultsXML, selectXML, `"chat"@fr`, `"42"^^<http://www.w3.org/2001/XMLSchema#integer>`},
		{"tsv", negotiation.FormatResultsTSV, selectTSV, `"chat"@fr`, `"42"^^<http://www.w3.org/2001/XMLSchema#integer>`},
		{"csv", negotiation.FormatResultsCSV, selectCSV, `"chat"`, `"42"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := body(tt.doc)
			rows, err := DecodeRows(tt.format, b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := strings.Join(rows.Vars(), ","); got != "s,label,b" {
				t.Errorf("expected vars s,label,b, got %s", got)
			}
			all, err := rows.All()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(all) != 2 {
				t.Fatalf("expected 2 rows, got %d", len(all))
			}
			if got := Term(all[0]["s"]); got != "<http://example.org/a>" {
				t.Errorf("expected <http://example.org/a>, got %s", got)
			}
			if got := Term(all[0]["label"]); got != tt.label0 {
				t.Errorf("expected %s, got %s", tt.label0, got)
			}
			if _, ok := all[0]["b"]; ok {
				t.Error("expected b unbound in the first row")
			}
			if got := Term(all[1]["label"]); got != tt.label1 {
				t.Errorf("expected %s, got %s", tt.label1, got)
			}
			if !IsBlank(all[1]["b"]) || Term(all[1]["b"]) != "_:n1" {
				t.Errorf("expected blank node _:n1, got %s", Term(all[1]["b"]))
			}
			if b.closed != 1 {
				t.Errorf("expected body closed once, got %d", b.closed)
			}
		})
	}
}

func TestDecodeRows_JSONResultsBeforeHead(t *testing.T) {
	doc := `{"results": {"bindings": [{"x": {"type": "uri", "value": "http://e/1"}}]},
	         "head": {"vars": ["x"]}}`
	rows, err := DecodeRows(negotiation.FormatResultsJSON, body(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows.Vars()) != 1 || rows.Vars()[0] != "x" {
		t.Errorf("expected vars [x], got %v", rows.Vars())
	}
	all, err := rows.All()
	if err != nil || len(all) != 1 {
		t.Fatalf("expected 1 row, got %d (%v)", len(all), err)
	}
}

func TestDecodeRows_Empty(t *testing.T) {
	rows, err := DecodeRows(negotiation.FormatResultsJSON, body(`{"head":{"vars":["x"]},"results":{"bindings":[]}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows.Next() {
		t.Error("expected no rows")
	}
	if rows.Err() != nil {
		t.Errorf("unexpected error: %v", rows.Err())
	}
}

func TestDecodeRows_MalformedRow(t *testing.T) {
	doc := `{"head":{"vars":["x"]},"results":{"bindings":[{"x":{"type":"triple","value":"?"}}]}}`
	b := body(doc)
	rows, err := DecodeRows(negotiation.FormatResultsJSON, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows.Next() {
		t.Fatal("expected Next to fail")
	}
	if !errors.HasCode(rows.Err(), errors.ErrCodeDecode) {
		t.Errorf("expected decode error, got %v", rows.Err())
	}
	if b.closed != 1 {
		t.Errorf("expected body closed after error, got %d", b.closed)
	}
}

func TestDecodeRows_BadHeadClosesBody(t *testing.T) {
	b := body(`[1,2,3]`)
	if _, err := DecodeRows(negotiation.FormatResultsJSON, b); !errors.HasCode(err, errors.ErrCodeDecode) {
		t.Errorf("expected decode error, got %v", err)
	}
	if b.closed != 1 {
		t.Errorf("expected body closed, got %d", b.closed)
	}
}

func TestDecodeRows_UnknownFormat(t *testing.T) {
	b := body("")
	_, err := DecodeRows(negotiation.FormatTurtle, b)
	if !errors.IsNegotiation(err) {
		t.Errorf("expected negotiation error, got %v", err)
	}
	if b.closed != 1 {
		t.Errorf("expected body closed, got %d", b.closed)
	}
}

func TestRows_CloseEarly(t *testing.T) {
	b := body(selectJSON)
	rows, err := DecodeRows(negotiation.FormatResultsJSON, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rows.Next() {
		t.Fatal("expected a first row")
	}
	_ = rows.Close()
	_ = rows.Close()
	if rows.Next() {
		t.Error("expected Next false after Close")
	}
	if b.closed != 1 {
		t.Errorf("expected body closed once, got %d", b.closed)
	}
}

func TestDecodeBoolean(t *testing.T) {
	tests := []struct {
		name   string
		format negotiation.Format
		doc    string
		want   bool
	}{
		{"json true", negotiation.FormatResultsJSON, `{"head":{},"boolean":true}`, true},
		{"json false", negotiation.FormatResultsJSON, `{"head":{"link":[]},"boolean":false}`, false},
		{"xml true", negotiation.FormatResultsXML, `<sparql xmlns="http://www.w3.org/2005/sparql-results#"><head/><boolean>true</boolean></sparql>`, true},
		{"xml false", negotiation.FormatResultsXML, `<sparql><head></head><boolean> false </boolean></sparql>`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeBoolean(tt.format, strings.NewReader(tt.doc))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestDecodeBoolean_Errors(t *testing.T) {
	if _, err := DecodeBoolean(negotiation.FormatResultsJSON, strings.NewReader(`{"head":{}}`)); !errors.HasCode(err, errors.ErrCodeDecode) {
		t.Errorf("expected decode error for a missing boolean, got %v", err)
	}
	if _, err := DecodeBoolean(negotiation.FormatResultsCSV, strings.NewReader("")); !errors.IsNegotiation(err) {
		t.Errorf("expected negotiation error for csv, got %v", err)
	}
}

func TestDecodeJSON(t *testing.T) {
	got, err := DecodeJSON(strings.NewReader(`[{"a":1},{"a":2}]`))
	if err != nil || len(got) != 2 {
		t.Fatalf("expected 2 values, got %v (%v)", got, err)
	}
	got, err = DecodeJSON(strings.NewReader(`{"a":1}`))
	if err != nil || len(got) != 1 {
		t.Fatalf("expected a single value, got %v (%v)", got, err)
	}
	if _, err := DecodeJSON(strings.NewReader(`{`)); !errors.HasCode(err, errors.ErrCodeDecode) {
		t.Errorf("expected decode error, got %v", err)
	}
}

func TestCanDecode(t *testing.T) {
	tests := []struct {
		kind   negotiation.Kind
		format negotiation.Format
		want   bool
	}{
		{negotiation.KindSelect, negotiation.FormatResultsTSV, true},
		{negotiation.KindSelect, negotiation.FormatJSON, false},
		{negotiation.KindAsk, negotiation.FormatResultsXML, true},
		{negotiation.KindAsk, negotiation.FormatResultsCSV, false},
		{negotiation.KindJSONQuery, negotiation.FormatJSON, true},
		{negotiation.KindConstruct, negotiation.FormatResultsJSON, false},
	}
	for _, tt := range tests {
		if got := CanDecode(tt.kind, tt.format); got != tt.want {
			t.Errorf("CanDecode(%s, %s): expected %v, got %v", tt.kind, tt.format, tt.want, got)
		}
	}
}

func TestParseTerm(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"<http://e/x>", "<http://e/x>"},
		{"_:b0", "_:b0"},
		{`"plain"`, `"plain"`},
		{`"esc\"aped\n"`, `"esc\"aped\n"`},
		{`"café"`, `"café"`},
		{`'single'@EN`, `"single"@en`},
		{`"""long "quoted" text"""`, `"long \"quoted\" text"`},
		{`"1"^^<http://www.w3.org/2001/XMLSchema#int>`, `"1"^^<http://www.w3.org/2001/XMLSchema#int>`},
		{"-7", `"-7"^^<http://www.w3.org/2001/XMLSchema#integer>`},
		{"3.14", `"3.14"^^<http://www.w3.org/2001/XMLSchema#decimal>`},
		{"1.0e6", `"1.0e6"^^<http://www.w3.org/2001/XMLSchema#double>`},
		{"true", `"true"^^<http://www.w3.org/2001/XMLSchema#boolean>`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			n, err := ParseTerm(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := Term(n); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestParseTerm_Invalid(t *testing.T) {
	for _, in := range []string{"<http://e/x", `"open`, "bare", `"x"junk`, `"\q"`, "1e"} {
		if _, err := ParseTerm(in); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
}

func TestParseTerm_EmptyIsUnbound(t *testing.T) {
	n, err := ParseTerm("  ")
	if err != nil || n != nil {
		t.Errorf("expected nil node, got %v (%v)", n, err)
	}
}
