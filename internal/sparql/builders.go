package sparql

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nao1215/wdcrawl/internal/model"
)

// prefixHeader declares the namespaces used by all generated queries.
// It is emitted verbatim at the top of every query so the query text is
// self-contained and reproducible.
const prefixHeader = `PREFIX wd: <http://www.wikidata.org/entity/>
PREFIX wdt: <http://www.wikidata.org/prop/direct/>
PREFIX wikibase: <http://wikiba.se/ontology#>
PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>
PREFIX schema: <http://schema.org/>
PREFIX skos: <http://www.w3.org/2004/02/skos/core#>
`

// languagePattern matches a safe BCP 47 language tag for embedding in a
// FILTER expression. Anything else falls back to the default language.
var languagePattern = regexp.MustCompile(`^[A-Za-z]{2,8}(-[A-Za-z0-9]{1,8})*$`)

// sanitizeLanguage returns lang if it is a safe language tag, "en" otherwise.
// EntityIDs are validated at construction; the language tag is the only
// other caller-controlled string embedded in query text.
func sanitizeLanguage(lang string) string {
	if languagePattern.MatchString(lang) {
		return lang
	}
	return "en"
}

// writeValues appends a VALUES clause binding variable to the batch of
// identifiers, each in the wd: entity namespace.
func writeValues(b *strings.Builder, variable string, batch []model.EntityID) {
	b.WriteString("  VALUES ")
	b.WriteString(variable)
	b.WriteString(" {")
	for _, id := range batch {
		b.WriteString(" wd:")
		b.WriteString(id.String())
	}
	b.WriteString(" }\n")
}

// EdgeBatchQuery builds the CONSTRUCT query retrieving all truthy outgoing
// edges for a batch of subject identifiers, plus the type assertion and
// labels for subjects, values, and types in the requested language.
//
// The query restricts predicates to the wdt: (prop/direct) namespace,
// which is the flattened statement form without qualifiers or provenance.
// Reified statements are deliberately excluded; they multiply the result
// size by an order of magnitude without adding edges to the graph.
//
// The builder is a pure function: the same batch and language always yield
// byte-identical query text.
func EdgeBatchQuery(batch []model.EntityID, lang string) string {
	lang = sanitizeLanguage(lang)

	var b strings.Builder
	b.WriteString(prefixHeader)
	b.WriteString("CONSTRUCT {\n")
	b.WriteString("  ?item ?prop ?value .\n")
	b.WriteString("  ?item rdfs:label ?itemLabel .\n")
	b.WriteString("  ?value rdfs:label ?valueLabel .\n")
	b.WriteString("  ?item wdt:P31 ?type .\n")
	b.WriteString("  ?type rdfs:label ?typeLabel .\n")
	b.WriteString("} WHERE {\n")
	writeValues(&b, "?item", batch)
	b.WriteString("  ?item ?prop ?value .\n")
	b.WriteString("  FILTER(STRSTARTS(STR(?prop), STR(wdt:)))\n")
	fmt.Fprintf(&b, "  OPTIONAL { ?item rdfs:label ?itemLabel . FILTER(LANG(?itemLabel) = %q) }\n", lang)
	fmt.Fprintf(&b, "  OPTIONAL { ?value rdfs:label ?valueLabel . FILTER(LANG(?valueLabel) = %q) }\n", lang)
	b.WriteString("  OPTIONAL {\n")
	b.WriteString("    ?item wdt:P31 ?type .\n")
	fmt.Fprintf(&b, "    OPTIONAL { ?type rdfs:label ?typeLabel . FILTER(LANG(?typeLabel) = %q) }\n", lang)
	b.WriteString("  }\n")
	b.WriteString("}\n")
	return b.String()
}

// CountEstimateQuery builds the SELECT query returning a per-identifier
// count of truthy outgoing edges for a small sample of identifiers. The
// caller extrapolates a total-triple estimate by linear scaling.
func CountEstimateQuery(sample []model.EntityID) string {
	var b strings.Builder
	b.WriteString(prefixHeader)
	b.WriteString("SELECT ?item (COUNT(?value) AS ?count) WHERE {\n")
	writeValues(&b, "?item", sample)
	b.WriteString("  ?item ?prop ?value .\n")
	b.WriteString("  FILTER(STRSTARTS(STR(?prop), STR(wdt:)))\n")
	b.WriteString("} GROUP BY ?item\n")
	return b.String()
}

// PropertyMetadataQuery builds the CONSTRUCT query retrieving labels,
// descriptions, alternate labels, and the canonical/direct-form linkage
// for a batch of property identifiers. Used by the post-crawl enrichment
// pass so that predicates appearing in the output are self-describing.
func PropertyMetadataQuery(props []model.EntityID, lang string) string {
	lang = sanitizeLanguage(lang)

	var b strings.Builder
	b.WriteString(prefixHeader)
	b.WriteString("CONSTRUCT {\n")
	b.WriteString("  ?prop rdfs:label ?label .\n")
	b.WriteString("  ?prop schema:description ?description .\n")
	b.WriteString("  ?prop skos:altLabel ?altLabel .\n")
	b.WriteString("  ?prop wikibase:directClaim ?claim .\n")
	b.WriteString("} WHERE {\n")
	writeValues(&b, "?prop", props)
	fmt.Fprintf(&b, "  OPTIONAL { ?prop rdfs:label ?label . FILTER(LANG(?label) = %q) }\n", lang)
	fmt.Fprintf(&b, "  OPTIONAL { ?prop schema:description ?description . FILTER(LANG(?description) = %q) }\n", lang)
	fmt.Fprintf(&b, "  OPTIONAL { ?prop skos:altLabel ?altLabel . FILTER(LANG(?altLabel) = %q) }\n", lang)
	b.WriteString("  OPTIONAL { ?prop wikibase:directClaim ?claim . }\n")
	b.WriteString("}\n")
	return b.String()
}

// SubclassClosureQuery builds the SELECT query expanding a class into the
// set of all its transitive subclasses (including the class itself) via
// the P279 (subclass of) property path, bounded by limit.
func SubclassClosureQuery(class model.EntityID, limit int) string {
	var b strings.Builder
	b.WriteString(prefixHeader)
	b.WriteString("SELECT DISTINCT ?class WHERE {\n")
	fmt.Fprintf(&b, "  ?class wdt:P279* wd:%s .\n", class.String())
	b.WriteString("}\n")
	fmt.Fprintf(&b, "LIMIT %d\n", limit)
	return b.String()
}
