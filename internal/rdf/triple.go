package rdf

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedLine is returned when a line cannot be parsed as an
// N-Triples statement. Callers (the stream decoder) skip and count such
// lines rather than aborting the whole conversion.
var ErrMalformedLine = errors.New("malformed triple line")

// TermKind distinguishes the three RDF term kinds.
type TermKind int

const (
	// TermIRI is an IRI reference, e.g. <http://www.wikidata.org/entity/Q42>.
	TermIRI TermKind = iota
	// TermBlank is a blank node, e.g. _:b0.
	TermBlank
	// TermLiteral is a literal with optional language tag or datatype.
	TermLiteral
)

// Term is one RDF term.
type Term struct {
	// Kind selects the term kind.
	Kind TermKind

	// Value is the IRI (without angle brackets), the blank node label
	// (without the _: prefix), or the literal's lexical form (unescaped).
	Value string

	// Language is the language tag of a language-tagged literal, empty
	// otherwise.
	Language string

	// Datatype is the datatype IRI of a typed literal, empty otherwise.
	Datatype string
}

// IRI constructs an IRI term.
func IRI(value string) Term {
	return Term{Kind: TermIRI, Value: value}
}

// Blank constructs a blank node term.
func Blank(label string) Term {
	return Term{Kind: TermBlank, Value: label}
}

// Literal constructs a plain literal term.
func Literal(value string) Term {
	return Term{Kind: TermLiteral, Value: value}
}

// LangLiteral constructs a language-tagged literal term.
func LangLiteral(value, lang string) Term {
	return Term{Kind: TermLiteral, Value: value, Language: lang}
}

// TypedLiteral constructs a datatyped literal term.
func TypedLiteral(value, datatype string) Term {
	return Term{Kind: TermLiteral, Value: value, Datatype: datatype}
}

// NTriples returns the canonical N-Triples serialization of the term.
func (t Term) NTriples() string {
	switch t.Kind {
	case TermIRI:
		return "<" + t.Value + ">"
	case TermBlank:
		return "_:" + t.Value
	default:
		s := `"` + escapeLiteral(t.Value) + `"`
		if t.Language != "" {
			return s + "@" + t.Language
		}
		if t.Datatype != "" {
			return s + "^^<" + t.Datatype + ">"
		}
		return s
	}
}

// Key returns a string uniquely identifying the term, used for map
// indexing in the Graph. The N-Triples form is already injective.
func (t Term) Key() string {
	return t.NTriples()
}

// Triple is one RDF statement.
type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
}

// NTriples returns the canonical N-Triples serialization of the statement.
func (t Triple) NTriples() string {
	return t.Subject.NTriples() + " " + t.Predicate.NTriples() + " " + t.Object.NTriples() + " ."
}

// escapeLiteral escapes a literal's lexical form for serialization.
func escapeLiteral(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// lineParser is a cursor over one input line.
type lineParser struct {
	s   string
	pos int
}

// ParseLine parses a single N-Triples statement line.
// Empty lines and comment lines are malformed from this function's point
// of view; the stream decoder filters them out before calling here.
//
// Design decision: We parse line by line with a hand-written cursor
// rather than using a full RDF parser library because:
//  1. A single malformed line must not abort the whole conversion
//  2. The query service emits plain N-Triples, one statement per line
//  3. The subset we need (IRI, blank node, literal) is small and stable
func ParseLine(line string) (Triple, error) {
	p := &lineParser{s: line}

	subject, err := p.parseTerm()
	if err != nil {
		return Triple{}, fmt.Errorf("%w: subject: %s", ErrMalformedLine, err)
	}
	if subject.Kind == TermLiteral {
		return Triple{}, fmt.Errorf("%w: literal subject", ErrMalformedLine)
	}

	predicate, err := p.parseTerm()
	if err != nil {
		return Triple{}, fmt.Errorf("%w: predicate: %s", ErrMalformedLine, err)
	}
	if predicate.Kind != TermIRI {
		return Triple{}, fmt.Errorf("%w: predicate must be an IRI", ErrMalformedLine)
	}

	object, err := p.parseTerm()
	if err != nil {
		return Triple{}, fmt.Errorf("%w: object: %s", ErrMalformedLine, err)
	}

	p.skipSpace()
	if p.pos >= len(p.s) || p.s[p.pos] != '.' {
		return Triple{}, fmt.Errorf("%w: missing statement terminator", ErrMalformedLine)
	}
	p.pos++
	p.skipSpace()
	if p.pos < len(p.s) && p.s[p.pos] != '#' {
		return Triple{}, fmt.Errorf("%w: trailing content after terminator", ErrMalformedLine)
	}

	return Triple{Subject: subject, Predicate: predicate, Object: object}, nil
}

// skipSpace advances past spaces and tabs.
func (p *lineParser) skipSpace() {
	for p.pos < len(p.s) && (p.s[p.pos] == ' ' || p.s[p.pos] == '\t') {
		p.pos++
	}
}

// parseTerm parses the next term at the cursor.
func (p *lineParser) parseTerm() (Term, error) {
	p.skipSpace()
	if p.pos >= len(p.s) {
		return Term{}, errors.New("unexpected end of line")
	}

	switch p.s[p.pos] {
	case '<':
		return p.parseIRI()
	case '_':
		return p.parseBlank()
	case '"':
		return p.parseLiteral()
	default:
		return Term{}, fmt.Errorf("unexpected character %q", p.s[p.pos])
	}
}

// parseIRI parses an IRI reference in angle brackets.
func (p *lineParser) parseIRI() (Term, error) {
	end := strings.IndexByte(p.s[p.pos:], '>')
	if end < 0 {
		return Term{}, errors.New("unterminated IRI")
	}
	iri := p.s[p.pos+1 : p.pos+end]
	if iri == "" {
		return Term{}, errors.New("empty IRI")
	}
	p.pos += end + 1
	return IRI(iri), nil
}

// parseBlank parses a blank node label.
func (p *lineParser) parseBlank() (Term, error) {
	if p.pos+1 >= len(p.s) || p.s[p.pos+1] != ':' {
		return Term{}, errors.New("invalid blank node prefix")
	}
	start := p.pos + 2
	end := start
	for end < len(p.s) && p.s[end] != ' ' && p.s[end] != '\t' {
		end++
	}
	if end == start {
		return Term{}, errors.New("empty blank node label")
	}
	p.pos = end
	return Blank(p.s[start:end]), nil
}

// parseLiteral parses a quoted literal with optional language tag or
// datatype annotation.
func (p *lineParser) parseLiteral() (Term, error) {
	var b strings.Builder
	i := p.pos + 1
	closed := false
	for i < len(p.s) {
		c := p.s[i]
		if c == '"' {
			closed = true
			i++
			break
		}
		if c == '\\' {
			value, next, err := unescapeAt(p.s, i)
			if err != nil {
				return Term{}, err
			}
			b.WriteString(value)
			i = next
			continue
		}
		b.WriteByte(c)
		i++
	}
	if !closed {
		return Term{}, errors.New("unterminated literal")
	}

	term := Literal(b.String())

	// Optional language tag or datatype
	if i < len(p.s) && p.s[i] == '@' {
		start := i + 1
		end := start
		for end < len(p.s) && (isAlphaNum(p.s[end]) || p.s[end] == '-') {
			end++
		}
		if end == start {
			return Term{}, errors.New("empty language tag")
		}
		term.Language = p.s[start:end]
		i = end
	} else if strings.HasPrefix(p.s[i:], "^^") {
		p.pos = i + 2
		dt, err := p.parseIRI()
		if err != nil {
			return Term{}, fmt.Errorf("datatype: %s", err)
		}
		term.Datatype = dt.Value
		return term, nil
	}

	p.pos = i
	return term, nil
}

// unescapeAt decodes the escape sequence starting at s[i] (a backslash).
// Returns the decoded string and the index after the sequence.
func unescapeAt(s string, i int) (string, int, error) {
	if i+1 >= len(s) {
		return "", 0, errors.New("dangling escape")
	}
	switch s[i+1] {
	case 't':
		return "\t", i + 2, nil
	case 'n':
		return "\n", i + 2, nil
	case 'r':
		return "\r", i + 2, nil
	case '"':
		return `"`, i + 2, nil
	case '\\':
		return `\`, i + 2, nil
	case 'u':
		return unescapeUnicode(s, i+2, 4)
	case 'U':
		return unescapeUnicode(s, i+2, 8)
	default:
		return "", 0, fmt.Errorf("unknown escape \\%c", s[i+1])
	}
}

// unescapeUnicode decodes a \uXXXX or \UXXXXXXXX sequence.
func unescapeUnicode(s string, start, width int) (string, int, error) {
	if start+width > len(s) {
		return "", 0, errors.New("truncated unicode escape")
	}
	code, err := strconv.ParseUint(s[start:start+width], 16, 32)
	if err != nil {
		return "", 0, fmt.Errorf("invalid unicode escape: %s", err)
	}
	return string(rune(code)), start + width, nil
}

// isAlphaNum reports whether c is an ASCII letter or digit.
func isAlphaNum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
