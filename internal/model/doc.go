// Package model defines the core data structures used throughout wdcrawl.
//
// This package contains the following main types:
//   - EntityID: Validated Wikidata item/property identifier value object
//   - CrawlConfig: Immutable per-job crawl configuration
//   - Phase: Closed enum of crawl job stages
//   - Progress: Immutable progress snapshot published by the orchestrator
//   - JobRecord: Persistent record of one crawl job
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (crawler, wdqs, search, job, report) need to
// use these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for the metadata
// side-file and database storage.
package model
