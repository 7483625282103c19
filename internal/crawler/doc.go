// Package crawler implements the bounded-radius crawl orchestrator: a
// strictly sequential phase machine that expands target classes,
// enumerates seed instances, walks the graph hop by hop through the
// rate-limited transport, optionally enriches predicate metadata, and
// converts the raw stream into the Turtle artifact.
//
// One crawl job is one sequential task. All network calls within a job
// are issued one at a time because the transport's rate limiter is a
// shared process-wide resource; concurrency inside a job would buy no
// throughput and would blur error attribution. Concurrency across jobs
// is the job manager's concern.
package crawler
