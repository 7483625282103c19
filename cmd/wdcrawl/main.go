// Package main provides the entry point for the wdcrawl CLI.
//
// wdcrawl is a bounded, polite crawler for the Wikidata knowledge graph.
// It collects the neighborhood of a class of entities as RDF triples,
// within a configurable hop radius, and writes N-Triples and Turtle
// artifacts for offline use.
//
// Usage:
//
//	wdcrawl crawl Q5
//	wdcrawl history
//
// See --help for all available options.
package main

// main is the entry point for wdcrawl.
func main() {
	Execute()
}
