package wdqs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/wdcrawl/internal/model"
)

// testUserAgent is used by all client tests.
const testUserAgent = "wdcrawl-test/0.0 (+https://example.invalid)"

// newTestClient creates a client against the given server with fast
// retry timing and a recorded sleep function so tests stay quick.
func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) (*Client, *[]time.Duration) {
	t.Helper()

	var mu sync.Mutex
	sleeps := make([]time.Duration, 0)

	base := []Option{
		WithMinInterval(time.Millisecond),
		WithRetryBaseDelay(10 * time.Millisecond),
	}
	c, err := NewClient(srv.URL, testUserAgent, append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	c.sleep = func(_ context.Context, d time.Duration) error {
		mu.Lock()
		defer mu.Unlock()
		sleeps = append(sleeps, d)
		return nil
	}
	return c, &sleeps
}

// TestNewClientValidation tests constructor invariants.
func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewClient("", testUserAgent); !errors.Is(err, ErrNoEndpoint) {
		t.Errorf("got %v, expected ErrNoEndpoint", err)
	}
	if _, err := NewClient("https://example.invalid/sparql", ""); !errors.Is(err, ErrNoUserAgent) {
		t.Errorf("got %v, expected ErrNoUserAgent", err)
	}
}

// TestQuerySendsIdentificationHeaders tests that every request carries
// the User-Agent and the format-specific Accept header.
func TestQuerySendsIdentificationHeaders(t *testing.T) {
	t.Parallel()

	var gotUA, gotAccept, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		gotQuery = r.FormValue("query")
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv)
	body, err := c.Query(context.Background(), "SELECT * WHERE {}", FormatNTriples)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	if string(body) != "ok" {
		t.Errorf("body = %q, expected %q", body, "ok")
	}
	if gotUA != testUserAgent {
		t.Errorf("User-Agent = %q, expected %q", gotUA, testUserAgent)
	}
	if gotAccept != "application/n-triples" {
		t.Errorf("Accept = %q, expected n-triples", gotAccept)
	}
	if gotQuery != "SELECT * WHERE {}" {
		t.Errorf("query = %q, expected the posted query text", gotQuery)
	}
}

// TestQueryRateLimiterSpacing tests that consecutive request starts are
// separated by at least the configured minimum interval.
func TestQueryRateLimiterSpacing(t *testing.T) {
	t.Parallel()

	const interval = 50 * time.Millisecond

	var mu sync.Mutex
	var starts []time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv, WithMinInterval(interval))

	for range 3 {
		if _, err := c.Query(context.Background(), "q", FormatNTriples); err != nil {
			t.Fatalf("Query failed: %v", err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(starts) != 3 {
		t.Fatalf("expected 3 requests, got %d", len(starts))
	}
	for i := 1; i < len(starts); i++ {
		// Small tolerance for timer granularity
		if gap := starts[i].Sub(starts[i-1]); gap < interval-5*time.Millisecond {
			t.Errorf("gap between request %d and %d = %v, expected >= %v", i-1, i, gap, interval)
		}
	}
}

// TestQueryHonorsRetryAfter tests that a 429 response sleeps exactly the
// Retry-After duration before the next attempt.
func TestQueryHonorsRetryAfter(t *testing.T) {
	t.Parallel()

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c, sleeps := newTestClient(t, srv)
	if _, err := c.Query(context.Background(), "q", FormatNTriples); err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
	if len(*sleeps) != 1 || (*sleeps)[0] != 3*time.Second {
		t.Errorf("sleeps = %v, expected exactly [3s]", *sleeps)
	}
}

// TestQueryRetryAfterFallback tests the default wait when a 429 carries
// no Retry-After header.
func TestQueryRetryAfterFallback(t *testing.T) {
	t.Parallel()

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c, sleeps := newTestClient(t, srv, WithRetryAfterFallback(5*time.Second))
	if _, err := c.Query(context.Background(), "q", FormatNTriples); err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(*sleeps) != 1 || (*sleeps)[0] != 5*time.Second {
		t.Errorf("sleeps = %v, expected [5s] fallback", *sleeps)
	}
}

// TestQueryRetriesServerErrors tests exponential backoff on 503.
func TestQueryRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c, sleeps := newTestClient(t, srv, WithRetryBaseDelay(10*time.Millisecond))
	if _, err := c.Query(context.Background(), "q", FormatNTriples); err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	// base × 2^0, base × 2^1
	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}
	if len(*sleeps) != len(want) {
		t.Fatalf("sleeps = %v, expected %v", *sleeps, want)
	}
	for i, d := range want {
		if (*sleeps)[i] != d {
			t.Errorf("sleep %d = %v, expected %v", i, (*sleeps)[i], d)
		}
	}
}

// TestQueryExhaustsRetries tests that the last error surfaces after the
// attempt budget is spent.
func TestQueryExhaustsRetries(t *testing.T) {
	t.Parallel()

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv, WithMaxAttempts(3))
	_, err := c.Query(context.Background(), "q", FormatNTriples)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}

	var re *RequestError
	if !errors.As(err, &re) {
		t.Fatalf("expected *RequestError, got %T: %v", err, err)
	}
	if re.Kind != KindServer {
		t.Errorf("Kind = %v, expected KindServer", re.Kind)
	}
	if re.Status != http.StatusInternalServerError {
		t.Errorf("Status = %d, expected 500", re.Status)
	}
	if re.Attempts != 3 || calls != 3 {
		t.Errorf("attempts = %d (calls %d), expected 3", re.Attempts, calls)
	}
}

// TestQueryTimeoutIsRetryable tests that a per-attempt timeout is
// classified as KindTimeout.
func TestQueryTimeoutIsRetryable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv, WithTimeout(30*time.Millisecond), WithMaxAttempts(1))
	_, err := c.Query(context.Background(), "q", FormatNTriples)

	var re *RequestError
	if !errors.As(err, &re) {
		t.Fatalf("expected *RequestError, got %v", err)
	}
	if re.Kind != KindTimeout {
		t.Errorf("Kind = %v, expected KindTimeout", re.Kind)
	}
}

// TestQueryCancellation tests that cancelling the context aborts the
// retry loop with the context error, not a RequestError.
func TestQueryCancellation(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv)
	ctx, cancel := context.WithCancel(context.Background())
	c.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := c.Query(ctx, "q", FormatNTriples)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, expected context.Canceled", err)
	}
}

// TestParseRetryAfter tests both header forms and the fallback.
func TestParseRetryAfter(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := &Client{retryAfterFallback: 5 * time.Second, now: func() time.Time { return now }}

	testCases := []struct {
		name     string
		header   string
		expected time.Duration
	}{
		{"seconds", "3", 3 * time.Second},
		{"zero seconds", "0", 0},
		{"negative seconds", "-1", 5 * time.Second},
		{"http date", now.Add(90 * time.Second).Format(http.TimeFormat), 90 * time.Second},
		{"past http date", now.Add(-time.Minute).Format(http.TimeFormat), 0},
		{"absent", "", 5 * time.Second},
		{"garbage", "soon", 5 * time.Second},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := c.parseRetryAfter(tc.header); got != tc.expected {
				t.Errorf("parseRetryAfter(%q) = %v, expected %v", tc.header, got, tc.expected)
			}
		})
	}
}

// TestSubclasses tests decoding of the subclass closure SELECT result.
func TestSubclasses(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"results": {"bindings": [
				{"class": {"type": "uri", "value": "http://www.wikidata.org/entity/Q5"}},
				{"class": {"type": "uri", "value": "http://www.wikidata.org/entity/Q22828631"}},
				{"class": {"type": "uri", "value": "http://example.org/not-an-entity"}}
			]}
		}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv)
	classes, err := c.Subclasses(context.Background(), model.MustNewEntityID("Q5"), 1000)
	if err != nil {
		t.Fatalf("Subclasses failed: %v", err)
	}

	// Q5 appears once even though it is both the input and a binding;
	// the foreign-namespace URI is dropped.
	want := []string{"Q5", "Q22828631"}
	if len(classes) != len(want) {
		t.Fatalf("classes = %v, expected %v", classes, want)
	}
	for i, w := range want {
		if classes[i].String() != w {
			t.Errorf("classes[%d] = %v, expected %s", i, classes[i], w)
		}
	}
}

// TestInstanceCounts tests decoding of the estimation SELECT result.
func TestInstanceCounts(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"results": {"bindings": [
				{"item": {"type": "uri", "value": "http://www.wikidata.org/entity/Q1"},
				 "count": {"type": "literal", "value": "12"}},
				{"item": {"type": "uri", "value": "http://www.wikidata.org/entity/Q2"},
				 "count": {"type": "literal", "value": "7"}}
			]}
		}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv)
	counts, err := c.InstanceCounts(context.Background(), batchIDs("Q1", "Q2"))
	if err != nil {
		t.Fatalf("InstanceCounts failed: %v", err)
	}

	if counts[model.MustNewEntityID("Q1")] != 12 {
		t.Errorf("Q1 count = %d, expected 12", counts[model.MustNewEntityID("Q1")])
	}
	if counts[model.MustNewEntityID("Q2")] != 7 {
		t.Errorf("Q2 count = %d, expected 7", counts[model.MustNewEntityID("Q2")])
	}
}

// batchIDs builds an identifier slice for tests.
func batchIDs(ids ...string) []model.EntityID {
	out := make([]model.EntityID, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.MustNewEntityID(id))
	}
	return out
}
