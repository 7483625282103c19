// Package wdqs provides the rate-limited transport for the Wikidata query
// service.
//
// # Rate limiting
//
// Every request start waits on a rate.Limiter enforcing a minimum
// inter-request interval. The limiter is shared state: all clients (and
// all concurrently running crawl jobs) that hold the same limiter respect
// one global interval together. Waits are cooperative context-aware
// suspensions, never busy loops.
//
// # Retry behavior
//
//   - Per-attempt hard timeout via context deadline
//   - HTTP 429: sleeps exactly the Retry-After directive (seconds or
//     HTTP-date form, 5s when absent), then retries
//   - HTTP 503 and any other non-2xx status: retryable
//   - Exponential backoff between retries, bounded attempt budget
//   - Exhaustion surfaces the last failure as *RequestError
//
// Every outbound request carries the configured User-Agent; the client
// cannot be constructed without one.
package wdqs
