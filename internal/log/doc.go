// Package log provides logging utilities for wdcrawl.
//
// The package wraps the standard log/slog with a TruncateHandler that caps
// oversized attribute values. Crawl code logs full SPARQL query texts and
// response bodies at debug level; without the cap a single log line could
// run to hundreds of kilobytes.
package log
