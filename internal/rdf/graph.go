package rdf

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// maxLineSize bounds the scanner buffer for decoding. Wikidata literals
// (long abstracts, monolingual text) can exceed the bufio default.
const maxLineSize = 1 << 20

// prefixes is the namespace table used for Turtle output, in emission
// order. Only IRIs under these namespaces are compacted; everything else
// stays a full IRI reference.
var prefixes = []struct {
	prefix string
	iri    string
}{
	{"rdf", "http://www.w3.org/1999/02/22-rdf-syntax-ns#"},
	{"rdfs", "http://www.w3.org/2000/01/rdf-schema#"},
	{"xsd", "http://www.w3.org/2001/XMLSchema#"},
	{"schema", "http://schema.org/"},
	{"skos", "http://www.w3.org/2004/02/skos/core#"},
	{"wikibase", "http://wikiba.se/ontology#"},
	{"wd", "http://www.wikidata.org/entity/"},
	{"wdt", "http://www.wikidata.org/prop/direct/"},
}

// rdfTypeIRI is shortened to the Turtle keyword "a" in predicate position.
const rdfTypeIRI = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

// predicateNode groups the objects of one predicate under a subject.
type predicateNode struct {
	term    Term
	objects []Term
	seen    map[string]struct{}
}

// subjectNode groups the predicates of one subject.
type subjectNode struct {
	term  Term
	order []string
	preds map[string]*predicateNode
}

// Graph is an in-memory triple store that preserves first-seen ordering
// of subjects and, within a subject, of predicates. Duplicate statements
// are stored once.
//
// Ordering by first appearance rather than lexicographically keeps the
// Turtle output aligned with crawl order: hop 0 items come first, then
// their neighbors, which makes the output diffable across runs of the
// same configuration.
type Graph struct {
	order    []string
	subjects map[string]*subjectNode
	size     int
}

// NewGraph creates an empty Graph.
func NewGraph() *Graph {
	return &Graph{subjects: make(map[string]*subjectNode)}
}

// Add inserts a statement. Duplicates are ignored.
func (g *Graph) Add(t Triple) {
	skey := t.Subject.Key()
	sn, ok := g.subjects[skey]
	if !ok {
		sn = &subjectNode{term: t.Subject, preds: make(map[string]*predicateNode)}
		g.subjects[skey] = sn
		g.order = append(g.order, skey)
	}

	pkey := t.Predicate.Key()
	pn, ok := sn.preds[pkey]
	if !ok {
		pn = &predicateNode{term: t.Predicate, seen: make(map[string]struct{})}
		sn.preds[pkey] = pn
		sn.order = append(sn.order, pkey)
	}

	okey := t.Object.Key()
	if _, dup := pn.seen[okey]; dup {
		return
	}
	pn.seen[okey] = struct{}{}
	pn.objects = append(pn.objects, t.Object)
	g.size++
}

// Len returns the number of distinct statements.
func (g *Graph) Len() int {
	return g.size
}

// Triples returns all statements in deterministic order: subjects by
// first appearance, predicates by first appearance within the subject,
// objects in insertion order.
func (g *Graph) Triples() []Triple {
	out := make([]Triple, 0, g.size)
	for _, skey := range g.order {
		sn := g.subjects[skey]
		for _, pkey := range sn.order {
			pn := sn.preds[pkey]
			for _, obj := range pn.objects {
				out = append(out, Triple{Subject: sn.term, Predicate: pn.term, Object: obj})
			}
		}
	}
	return out
}

// Subjects returns the distinct subject terms in first-seen order.
func (g *Graph) Subjects() []Term {
	out := make([]Term, 0, len(g.order))
	for _, skey := range g.order {
		out = append(out, g.subjects[skey].term)
	}
	return out
}

// WriteTurtle serializes the graph as Turtle: a prefix block, then one
// paragraph per subject with predicate-object lists.
func (g *Graph) WriteTurtle(w io.Writer) error {
	bw := bufio.NewWriter(w)

	used := g.usedPrefixes()
	for _, p := range prefixes {
		if _, ok := used[p.prefix]; !ok {
			continue
		}
		fmt.Fprintf(bw, "@prefix %s: <%s> .\n", p.prefix, p.iri)
	}
	if len(used) > 0 {
		bw.WriteByte('\n')
	}

	for i, skey := range g.order {
		if i > 0 {
			bw.WriteByte('\n')
		}
		sn := g.subjects[skey]
		bw.WriteString(turtleTerm(sn.term, false))
		for pi, pkey := range sn.order {
			pn := sn.preds[pkey]
			if pi == 0 {
				bw.WriteByte(' ')
			} else {
				bw.WriteString(" ;\n\t")
			}
			bw.WriteString(turtleTerm(pn.term, true))
			bw.WriteByte(' ')
			for oi, obj := range pn.objects {
				if oi > 0 {
					bw.WriteString(", ")
				}
				bw.WriteString(turtleTerm(obj, false))
			}
		}
		bw.WriteString(" .\n")
	}

	return bw.Flush()
}

// WriteNTriples serializes the graph as canonical N-Triples in the same
// deterministic order as Triples.
func (g *Graph) WriteNTriples(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, t := range g.Triples() {
		bw.WriteString(t.NTriples())
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// usedPrefixes returns the prefix names actually needed by the graph's
// terms, so the header does not declare unused namespaces.
func (g *Graph) usedPrefixes() map[string]struct{} {
	used := make(map[string]struct{})
	mark := func(t Term) {
		switch t.Kind {
		case TermIRI:
			if t.Value == rdfTypeIRI {
				return
			}
			if p, _, ok := splitIRI(t.Value); ok {
				used[p] = struct{}{}
			}
		case TermLiteral:
			if t.Datatype != "" {
				if p, _, ok := splitIRI(t.Datatype); ok {
					used[p] = struct{}{}
				}
			}
		}
	}
	for _, skey := range g.order {
		sn := g.subjects[skey]
		mark(sn.term)
		for _, pkey := range sn.order {
			pn := sn.preds[pkey]
			mark(pn.term)
			for _, obj := range pn.objects {
				mark(obj)
			}
		}
	}
	return used
}

// splitIRI compacts an IRI against the prefix table. The local part must
// be a plain name (no slash or hash) to be representable in Turtle.
func splitIRI(iri string) (prefix, local string, ok bool) {
	for _, p := range prefixes {
		if rest, found := strings.CutPrefix(iri, p.iri); found {
			if rest == "" || strings.ContainsAny(rest, "/#:") {
				return "", "", false
			}
			return p.prefix, rest, true
		}
	}
	return "", "", false
}

// turtleTerm serializes a term for Turtle output, compacting IRIs where
// the prefix table allows.
func turtleTerm(t Term, predicate bool) string {
	switch t.Kind {
	case TermIRI:
		if predicate && t.Value == rdfTypeIRI {
			return "a"
		}
		if p, local, ok := splitIRI(t.Value); ok {
			return p + ":" + local
		}
		return "<" + t.Value + ">"
	case TermBlank:
		return "_:" + t.Value
	default:
		s := `"` + escapeLiteral(t.Value) + `"`
		if t.Language != "" {
			return s + "@" + t.Language
		}
		if t.Datatype != "" {
			if p, local, ok := splitIRI(t.Datatype); ok {
				return s + "^^" + p + ":" + local
			}
			return s + "^^<" + t.Datatype + ">"
		}
		return s
	}
}

// DecodeResult reports what a decode pass consumed.
type DecodeResult struct {
	// Graph holds the successfully parsed statements.
	Graph *Graph

	// Parsed is the number of statements added to the graph, duplicates
	// included.
	Parsed int

	// Skipped is the number of malformed lines that were dropped.
	Skipped int
}

// Decode reads newline-delimited N-Triples statements from r. Empty
// lines and comment lines are ignored; malformed lines are counted and
// skipped rather than failing the decode.
func Decode(r io.Reader) (*DecodeResult, error) {
	res := &DecodeResult{Graph: NewGraph()}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		t, err := ParseLine(line)
		if err != nil {
			res.Skipped++
			continue
		}
		res.Graph.Add(t)
		res.Parsed++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read triple stream: %w", err)
	}

	return res, nil
}

// DecodeFile decodes the N-Triples file at path.
func DecodeFile(path string) (*DecodeResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open triple stream: %w", err)
	}
	defer f.Close() //nolint:errcheck // Read-only file

	return Decode(f)
}

// PredicateCounts returns the number of statements per predicate IRI,
// sorted by descending count then IRI. Used in crawl reports.
func (g *Graph) PredicateCounts() []PredicateCount {
	counts := make(map[string]int)
	for _, skey := range g.order {
		sn := g.subjects[skey]
		for _, pkey := range sn.order {
			pn := sn.preds[pkey]
			if pn.term.Kind == TermIRI {
				counts[pn.term.Value] += len(pn.objects)
			}
		}
	}

	out := make([]PredicateCount, 0, len(counts))
	for iri, n := range counts {
		out = append(out, PredicateCount{IRI: iri, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].IRI < out[j].IRI
	})
	return out
}

// PredicateCount is the statement count for one predicate.
type PredicateCount struct {
	IRI   string
	Count int
}
