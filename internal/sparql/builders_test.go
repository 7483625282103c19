package sparql

import (
	"strings"
	"testing"

	"github.com/nao1215/wdcrawl/internal/model"
)

// batch returns a small identifier batch for builder tests.
func batch(ids ...string) []model.EntityID {
	out := make([]model.EntityID, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.MustNewEntityID(id))
	}
	return out
}

// TestEdgeBatchQuery tests the shape of the hop-loop CONSTRUCT query.
func TestEdgeBatchQuery(t *testing.T) {
	t.Parallel()

	q := EdgeBatchQuery(batch("Q42", "Q5"), "de")

	for _, want := range []string{
		"CONSTRUCT {",
		"VALUES ?item { wd:Q42 wd:Q5 }",
		`FILTER(STRSTARTS(STR(?prop), STR(wdt:)))`,
		"?item wdt:P31 ?type .",
		`FILTER(LANG(?itemLabel) = "de")`,
		`FILTER(LANG(?valueLabel) = "de")`,
		"PREFIX wd: <http://www.wikidata.org/entity/>",
	} {
		if !strings.Contains(q, want) {
			t.Errorf("query missing %q:\n%s", want, q)
		}
	}
}

// TestEdgeBatchQueryIdempotent tests that identical inputs yield
// byte-identical query text.
func TestEdgeBatchQueryIdempotent(t *testing.T) {
	t.Parallel()

	b := batch("Q1", "Q2", "Q3")
	first := EdgeBatchQuery(b, "en")
	second := EdgeBatchQuery(b, "en")
	if first != second {
		t.Error("EdgeBatchQuery is not deterministic for identical inputs")
	}
}

// TestEdgeBatchQueryOrderSensitive tests that batch order is reflected in
// the VALUES clause, not silently re-sorted.
func TestEdgeBatchQueryOrderSensitive(t *testing.T) {
	t.Parallel()

	q := EdgeBatchQuery(batch("Q2", "Q1"), "en")
	if !strings.Contains(q, "wd:Q2 wd:Q1") {
		t.Errorf("VALUES clause should preserve batch order:\n%s", q)
	}
}

// TestSanitizeLanguage tests the language-tag fallback.
func TestSanitizeLanguage(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		input    string
		expected string
	}{
		{"en", "en"},
		{"pt-BR", "pt-BR"},
		{"zh-Hans", "zh-Hans"},
		{`en") } INSERT`, "en"},
		{"", "en"},
		{"x", "en"},
	}

	for _, tc := range testCases {
		if got := sanitizeLanguage(tc.input); got != tc.expected {
			t.Errorf("sanitizeLanguage(%q) = %q, expected %q", tc.input, got, tc.expected)
		}
	}
}

// TestCountEstimateQuery tests the shape of the estimation query.
func TestCountEstimateQuery(t *testing.T) {
	t.Parallel()

	q := CountEstimateQuery(batch("Q42"))

	for _, want := range []string{
		"SELECT ?item (COUNT(?value) AS ?count)",
		"VALUES ?item { wd:Q42 }",
		"GROUP BY ?item",
	} {
		if !strings.Contains(q, want) {
			t.Errorf("query missing %q:\n%s", want, q)
		}
	}
}

// TestPropertyMetadataQuery tests the shape of the enrichment query.
func TestPropertyMetadataQuery(t *testing.T) {
	t.Parallel()

	q := PropertyMetadataQuery(batch("P31", "P279"), "en")

	for _, want := range []string{
		"VALUES ?prop { wd:P31 wd:P279 }",
		"?prop rdfs:label ?label .",
		"?prop schema:description ?description .",
		"?prop skos:altLabel ?altLabel .",
		"?prop wikibase:directClaim ?claim .",
	} {
		if !strings.Contains(q, want) {
			t.Errorf("query missing %q:\n%s", want, q)
		}
	}
}

// TestSubclassClosureQuery tests the shape of the transitive-closure query.
func TestSubclassClosureQuery(t *testing.T) {
	t.Parallel()

	q := SubclassClosureQuery(model.MustNewEntityID("Q5"), 1000)

	for _, want := range []string{
		"SELECT DISTINCT ?class",
		"?class wdt:P279* wd:Q5 .",
		"LIMIT 1000",
	} {
		if !strings.Contains(q, want) {
			t.Errorf("query missing %q:\n%s", want, q)
		}
	}
}
