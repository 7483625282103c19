// Package job manages crawl job lifecycles: identifier allocation,
// bounded concurrent execution, progress fan-out to observers, and
// terminal-state bookkeeping.
//
// The package is deliberately ignorant of how a crawl works; it drives
// any Runner implementation. That keeps abort semantics, concurrency
// limiting, and metadata persistence testable without network access.
package job
