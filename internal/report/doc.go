// Package report renders crawl job summaries in multiple formats:
// plain text for terminals, JSON for tool integration, and Markdown for
// documentation and sharing.
package report
