// Package rdf implements the minimal RDF machinery the crawler needs:
// a tolerant line-oriented N-Triples decoder, an in-memory graph with
// deterministic first-seen ordering, and Turtle serialization against a
// fixed Wikidata prefix table.
//
// The crawl's primary artifact is an append-only N-Triples stream; this
// package turns that stream into the prettier Turtle artifact at the end
// of a run. Malformed stream lines are skipped and counted, never fatal,
// so a partially corrupted stream still converts.
package rdf
