// Package database provides SQLite-based persistence for crawl job
// history. Records mirror the per-job metadata side-files so past
// crawls can be listed, inspected, and pruned without walking the
// artifact tree.
package database
