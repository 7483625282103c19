package wdqs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Default transport behavior. These mirror the application defaults in
// internal/config; the client carries its own copies so it is usable
// standalone (e.g. in tests) without pulling in the config package.
const (
	defaultMinInterval        = 200 * time.Millisecond
	defaultTimeout            = 55 * time.Second
	defaultMaxAttempts        = 5
	defaultRetryBaseDelay     = 1 * time.Second
	defaultRetryAfterFallback = 5 * time.Second
)

// ResultFormat selects the response serialization requested from the
// query service via the Accept header.
type ResultFormat int

const (
	// FormatNTriples requests a line-based triple stream, used for
	// CONSTRUCT queries in the hop loop and enrichment pass.
	FormatNTriples ResultFormat = iota
	// FormatJSON requests the SPARQL JSON results envelope, used for
	// SELECT queries (counting, subclass closure).
	FormatJSON
)

// accept returns the Accept header value for the format.
func (f ResultFormat) accept() string {
	if f == FormatJSON {
		return "application/sparql-results+json"
	}
	return "application/n-triples"
}

// NewLimiter creates a rate limiter enforcing the given minimum interval
// between request starts, with no bursting. One limiter instance is shared
// by every client talking to the same endpoint; it is the single point of
// rate-limit enforcement across all concurrent jobs.
func NewLimiter(minInterval time.Duration) *rate.Limiter {
	return rate.NewLimiter(rate.Every(minInterval), 1)
}

// Client issues SPARQL queries against a query service endpoint with
// rate limiting, per-attempt timeouts, and exponential-backoff retry.
//
// Design decision: The limiter is an explicit constructed object rather
// than package-level state because:
//  1. Tests can inject independent limiters for isolation
//  2. Multiple jobs share one limiter by sharing one value, visibly
//  3. Nothing in this package needs to be global
type Client struct {
	// httpClient performs the HTTP requests. No timeout is set on it;
	// per-attempt timeouts come from the request context.
	httpClient *http.Client

	// endpoint is the SPARQL endpoint URL.
	endpoint string

	// userAgent identifies this client in every request.
	userAgent string

	// limiter enforces the minimum inter-request interval. Waiting on it
	// is a cooperative suspension point, never a busy wait.
	limiter *rate.Limiter

	// timeout is the hard per-attempt deadline.
	timeout time.Duration

	// maxAttempts is the total attempt budget per query.
	maxAttempts int

	// baseDelay is the base of the exponential retry backoff.
	baseDelay time.Duration

	// retryAfterFallback is the wait applied after a 429 response that
	// carries no Retry-After header.
	retryAfterFallback time.Duration

	// logger is used for structured logging of retries and failures.
	logger *slog.Logger

	// sleep waits for a duration or until the context is cancelled.
	// Overridable in tests to avoid real delays.
	sleep func(ctx context.Context, d time.Duration) error

	// now returns the current time, overridable in tests for the
	// HTTP-date form of Retry-After.
	now func() time.Time
}

// Option is a function that configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLimiter sets a shared rate limiter. Passing the same limiter to
// several clients (or several jobs) makes them respect one global
// minimum-interval invariant together.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithMinInterval sets the minimum interval between request starts by
// constructing a private limiter. Ignored if WithLimiter is also given.
func WithMinInterval(d time.Duration) Option {
	return func(c *Client) {
		c.limiter = NewLimiter(d)
	}
}

// WithTimeout sets the per-attempt request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithMaxAttempts sets the total attempt budget per query.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		c.maxAttempts = n
	}
}

// WithRetryBaseDelay sets the base of the exponential retry backoff.
func WithRetryBaseDelay(d time.Duration) Option {
	return func(c *Client) {
		c.baseDelay = d
	}
}

// WithRetryAfterFallback sets the wait applied after a 429 response
// without a Retry-After header.
func WithRetryAfterFallback(d time.Duration) Option {
	return func(c *Client) {
		c.retryAfterFallback = d
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new query service client.
// The endpoint and userAgent are required: the Wikimedia User-Agent policy
// makes client identification an invariant of every request, so the
// constructor refuses to build a client that could violate it.
func NewClient(endpoint, userAgent string, opts ...Option) (*Client, error) {
	if endpoint == "" {
		return nil, ErrNoEndpoint
	}
	if userAgent == "" {
		return nil, ErrNoUserAgent
	}

	c := &Client{
		httpClient:         &http.Client{},
		endpoint:           endpoint,
		userAgent:          userAgent,
		timeout:            defaultTimeout,
		maxAttempts:        defaultMaxAttempts,
		baseDelay:          defaultRetryBaseDelay,
		retryAfterFallback: defaultRetryAfterFallback,
		sleep:              sleepContext,
		now:                time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.limiter == nil {
		c.limiter = NewLimiter(defaultMinInterval)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c, nil
}

// Query executes a SPARQL query and returns the raw response body.
//
// Every attempt first waits on the shared rate limiter, then runs under
// the per-attempt timeout. Transient failures (timeout, 429, 503, any
// non-2xx, network errors) are retried with exponential backoff
// (baseDelay × 2^attempt); a 429 response instead sleeps exactly the
// Retry-After duration before the next attempt. Exhausting the attempt
// budget surfaces the last failure as a *RequestError.
//
// Cancellation of ctx aborts immediately, during waits included, and
// returns the context's error rather than a RequestError.
func (c *Client) Query(ctx context.Context, query string, format ResultFormat) ([]byte, error) {
	var last *RequestError
	var wait time.Duration

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if wait > 0 {
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		// The limiter wait is the single point of rate-limit
		// enforcement shared across all jobs using this client.
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, attemptErr := c.attempt(ctx, query, format)
		if attemptErr == nil {
			return body, nil
		}

		// Outer cancellation wins over retry classification.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		last = &RequestError{
			Kind:     attemptErr.kind,
			Status:   attemptErr.status,
			Attempts: attempt,
			Err:      attemptErr.err,
		}

		if attemptErr.kind == KindRateLimited {
			// Honor the upstream directive exactly instead of our
			// own backoff schedule.
			wait = attemptErr.retryAfter
		} else {
			wait = c.baseDelay << (attempt - 1)
		}

		c.logger.Warn("query attempt failed",
			"kind", attemptErr.kind.String(),
			"status", attemptErr.status,
			"attempt", attempt,
			"maxAttempts", c.maxAttempts,
			"nextRetryIn", wait,
			"error", attemptErr.err,
		)
	}

	return nil, last
}

// attemptError classifies a single failed attempt. retryAfter is only
// meaningful for KindRateLimited.
type attemptError struct {
	kind       ErrorKind
	status     int
	retryAfter time.Duration
	err        error
}

// attempt performs one HTTP round trip under the per-attempt timeout.
func (c *Client) attempt(ctx context.Context, query string, format ResultFormat) ([]byte, *attemptError) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	form := url.Values{"query": {query}}
	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &attemptError{kind: KindNetwork, err: err}
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", format.accept())
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &attemptError{kind: classifyNetworkError(ctx, err), err: err}
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort cleanup

	if resp.StatusCode == http.StatusTooManyRequests {
		_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // Drain for connection reuse
		return nil, &attemptError{
			kind:       KindRateLimited,
			status:     resp.StatusCode,
			retryAfter: c.parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // Drain for connection reuse
		return nil, &attemptError{
			kind:   KindServer,
			status: resp.StatusCode,
			err:    fmt.Errorf("unexpected status: %s", resp.Status),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &attemptError{kind: classifyNetworkError(ctx, err), err: err}
	}

	return body, nil
}

// classifyNetworkError distinguishes a per-attempt timeout from other
// connection failures. A deadline that fired while the outer context is
// still live is our own attempt timeout.
func classifyNetworkError(outer context.Context, err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) && outer.Err() == nil {
		return KindTimeout
	}
	return KindNetwork
}

// parseRetryAfter interprets a Retry-After header value, which may be a
// delay in seconds or an HTTP-date. Absent or unparseable values fall
// back to the configured default.
func (c *Client) parseRetryAfter(header string) time.Duration {
	if header == "" {
		return c.retryAfterFallback
	}

	if secs, err := strconv.Atoi(header); err == nil {
		if secs < 0 {
			return c.retryAfterFallback
		}
		return time.Duration(secs) * time.Second
	}

	if when, err := http.ParseTime(header); err == nil {
		d := when.Sub(c.now())
		if d < 0 {
			return 0
		}
		return d
	}

	return c.retryAfterFallback
}

// sleepContext waits for d or until ctx is cancelled, whichever is first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
