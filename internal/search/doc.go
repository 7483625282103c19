// Package search provides instance enumeration against the MediaWiki
// search API.
//
// The crawl's seed set is "all instances of class C (capped)". Resolving
// that through SPARQL would need OFFSET pagination, which the query
// service executes by re-evaluating and discarding the prefix, so page
// cost grows with the offset. The search index's haswbstatement predicate
// answers the same membership question behind an opaque continuation
// cursor with flat per-page cost, which is why enumeration lives on this
// separate endpoint with its own courtesy rate limit.
package search
