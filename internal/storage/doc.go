// Package storage manages on-disk crawl artifacts: a per-job directory
// holding the append-only N-Triples stream, the converted Turtle file,
// and a JSON metadata record.
//
// The stream file is the durable source of truth for a crawl. It is
// opened append-only and response bodies are written verbatim, so an
// interrupted run leaves a valid, resumable prefix on disk.
package storage
