package results

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/piprate/json-gold/ld"
)

const (
	xsd        = "http://www.w3.org/2001/XMLSchema#"
	xsdInteger = xsd + "integer"
	xsdDecimal = xsd + "decimal"
	xsdDouble  = xsd + "double"
	xsdBoolean = xsd + "boolean"
)

// IRI returns an IRI node.
func IRI(v string) ld.Node { return ld.NewIRI(v) }

// BlankNode returns a blank node. The "_:" prefix is added when missing.
func BlankNode(label string) ld.Node {
	if !strings.HasPrefix(label, "_:") {
		label = "_:" + label
	}
	return ld.NewBlankNode(label)
}

// Literal returns a literal node. A language tag forces rdf:langString and
// an empty datatype means xsd:string.
func Literal(value, datatype, lang string) ld.Node {
	if lang != "" {
		return ld.NewLiteral(value, ld.RDFLangString, strings.ToLower(lang))
	}
	if datatype == "" {
		datatype = ld.XSDString
	}
	return ld.NewLiteral(value, datatype, "")
}

// LiteralParts returns the lexical form, datatype and language of a literal
// node. ok is false for IRIs and blank nodes.
func LiteralParts(n ld.Node) (value, datatype, lang string, ok bool) {
	switch v := n.(type) {
	case *ld.Literal:
		return v.Value, v.Datatype, v.Language, true
	case ld.Literal:
		return v.Value, v.Datatype, v.Language, true
	}
	return "", "", "", false
}

// IsIRI reports whether n is an IRI node.
func IsIRI(n ld.Node) bool {
	switch n.(type) {
	case *ld.IRI, ld.IRI:
		return true
	}
	return false
}

// IsBlank reports whether n is a blank node.
func IsBlank(n ld.Node) bool {
	switch n.(type) {
	case *ld.BlankNode, ld.BlankNode:
		return true
	}
	return false
}

// Term renders n in N-Triples term syntax. A nil node renders as "".
func Term(n ld.Node) string {
	if n == nil {
		return ""
	}
	if IsIRI(n) {
		return "<" + n.GetValue() + ">"
	}
	if IsBlank(n) {
		return n.GetValue()
	}
	value, datatype, lang, ok := LiteralParts(n)
	if !ok {
		return n.GetValue()
	}
	s := `"` + escapeLiteral(value) + `"`
	switch {
	case lang != "":
		return s + "@" + lang
	case datatype != "" && datatype != ld.XSDString:
		return s + "^^<" + datatype + ">"
	}
	return s
}

var literalEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

func escapeLiteral(s string) string { return literalEscaper.Replace(s) }

// ParseTerm reads one RDF term in N-Triples/Turtle term syntax as used by the
// TSV results format. Bare numbers and booleans get their XSD datatype.
func ParseTerm(s string) (ld.Node, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	switch {
	case s[0] == '<':
		if !strings.HasSuffix(s, ">") {
			return nil, fmt.Errorf("unterminated IRI %q", s)
		}
		v, err := unescape(s[1 : len(s)-1])
		if err != nil {
			return nil, err
		}
		return IRI(v), nil
	case strings.HasPrefix(s, "_:"):
		return BlankNode(s), nil
	case s[0] == '"' || s[0] == '\'':
		return parseQuoted(s)
	case s == "true" || s == "false":
		return Literal(s, xsdBoolean, ""), nil
	}
	if dt := numericType(s); dt != "" {
		return Literal(s, dt, ""), nil
	}
	return nil, fmt.Errorf("unrecognized term %q", s)
}

func parseQuoted(s string) (ld.Node, error) {
	q := s[0]
	long := len(s) >= 6 && s[1] == q && s[2] == q
	open := 1
	if long {
		open = 3
	}
	end := -1
	for i := open; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			continue
		}
		if s[i] != q {
			continue
		}
		if !long {
			end = i
			break
		}
		if i+2 < len(s) && s[i+1] == q && s[i+2] == q {
			end = i
			break
		}
	}
	if end < 0 {
		return nil, fmt.Errorf("unterminated literal %q", s)
	}
	value, err := unescape(s[open:end])
	if err != nil {
		return nil, err
	}
	rest := s[end+open:]
	switch {
	case rest == "":
		return Literal(value, "", ""), nil
	case strings.HasPrefix(rest, "@"):
		return Literal(value, "", rest[1:]), nil
	case strings.HasPrefix(rest, "^^<") && strings.HasSuffix(rest, ">"):
		return Literal(value, rest[3:len(rest)-1], ""), nil
	}
	return nil, fmt.Errorf("unexpected %q after literal", rest)
}

// unescape resolves the ECHAR and UCHAR escapes of N-Triples.
func unescape(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			return "", fmt.Errorf("dangling escape in %q", s)
		}
		switch s[i] {
		case 't':
			b.WriteByte('\t')
		case 'b':
			b.WriteByte('\b')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 'f':
			b.WriteByte('\f')
		case '"', '\'', '\\':
			b.WriteByte(s[i])
		case 'u', 'U':
			width := 4
			if s[i] == 'U' {
				width = 8
			}
			if i+1+width > len(s) {
				return "", fmt.Errorf("short unicode escape in %q", s)
			}
			r, err := strconv.ParseUint(s[i+1:i+1+width], 16, 32)
			if err != nil {
				return "", fmt.Errorf("bad unicode escape in %q", s)
			}
			b.WriteRune(rune(r))
			i += width
		default:
			return "", fmt.Errorf("unknown escape \\%c", s[i])
		}
	}
	return b.String(), nil
}

// numericType returns the XSD datatype of a bare Turtle number, or "".
func numericType(s string) string {
	i := 0
	if s[0] == '+' || s[0] == '-' {
		i++
	}
	digits, dot, exp := 0, false, false
	for ; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c == '.' && !dot && !exp:
			dot = true
		case (c == 'e' || c == 'E') && !exp && digits > 0:
			exp = true
			if i+1 < len(s) && (s[i+1] == '+' || s[i+1] == '-') {
				i++
			}
			digits = 0
		default:
			return ""
		}
	}
	switch {
	case digits == 0:
		return ""
	case exp:
		return xsdDouble
	case dot:
		return xsdDecimal
	}
	return xsdInteger
}
