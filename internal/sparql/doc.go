// Package sparql provides pure query-text builders for the Wikidata query
// service.
//
// All builders are side-effect-free functions of (identifier batch,
// language) returning deterministic query text: the same inputs always
// yield byte-identical output. Identifiers are embedded through VALUES
// clauses and are validated model.EntityID values, never raw caller
// strings, which closes the query-injection path by construction. The
// language tag is the only other embedded input and is pattern-checked
// before use.
package sparql
