package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/wdcrawl/internal/model"
)

// Enumeration defaults. These mirror internal/config so the enumerator is
// usable standalone in tests.
const (
	defaultPageSize = 50
	defaultDelay    = 250 * time.Millisecond
)

// Enumerator produces the finite sequence of entity identifiers that are
// direct instances of a set of classes, up to a caller-supplied cap.
//
// Classes are iterated sequentially, not interleaved; the cap is a running
// total across all classes, checked before each yielded identifier, so
// enumeration can stop mid-class once the cap is hit.
type Enumerator struct {
	// client fetches search pages.
	client *Client

	// pageSize is the number of hits requested per page.
	pageSize int

	// delay is the courtesy pause between page requests. The search
	// endpoint has its own limits, independent of the SPARQL limiter.
	delay time.Duration

	// logger is used for structured logging.
	logger *slog.Logger

	// sleep waits for a duration or until the context is cancelled.
	// Overridable in tests to avoid real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// EnumeratorOption configures an Enumerator.
type EnumeratorOption func(*Enumerator)

// WithPageSize sets the search page size.
func WithPageSize(n int) EnumeratorOption {
	return func(e *Enumerator) {
		e.pageSize = n
	}
}

// WithDelay sets the courtesy delay between page requests.
func WithDelay(d time.Duration) EnumeratorOption {
	return func(e *Enumerator) {
		e.delay = d
	}
}

// WithLogger sets a custom logger for the enumerator.
func WithLogger(logger *slog.Logger) EnumeratorOption {
	return func(e *Enumerator) {
		e.logger = logger
	}
}

// NewEnumerator creates a new Enumerator over the given search client.
func NewEnumerator(client *Client, opts ...EnumeratorOption) *Enumerator {
	e := &Enumerator{
		client:   client,
		pageSize: defaultPageSize,
		delay:    defaultDelay,
		sleep:    sleepContext,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = slog.Default()
	}

	return e
}

// Enumerate collects up to max identifiers that are direct instances of
// any of the given classes. Identifiers appearing under several classes
// are yielded once. The order is deterministic: classes in argument
// order, identifiers in upstream index order within each class.
//
// A transport or decode failure is fatal to the enumeration: the seed set
// is required for crawl correctness, so there is no partial fallback here.
func (e *Enumerator) Enumerate(ctx context.Context, classes []model.EntityID, max int) ([]model.EntityID, error) {
	ids := make([]model.EntityID, 0, max)
	seen := make(map[model.EntityID]struct{}, max)

	for _, class := range classes {
		if len(ids) >= max {
			break
		}

		cursor := ""
		for {
			// Check for cancellation before starting new work
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}

			page, err := e.client.SearchPage(ctx, class, cursor, e.pageSize)
			if err != nil {
				return nil, fmt.Errorf("enumerating instances of %s: %w", class, err)
			}

			e.logger.Debug("search page fetched",
				"class", class.String(),
				"hits", len(page.IDs),
				"totalHits", page.TotalHits,
				"cursor", cursor,
			)

			for _, id := range page.IDs {
				// Cap checked before each yield so enumeration can
				// stop mid-page and mid-class.
				if len(ids) >= max {
					return ids, nil
				}
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
				ids = append(ids, id)
			}

			if page.Next == "" {
				break
			}
			cursor = page.Next

			if e.delay > 0 {
				if err := e.sleep(ctx, e.delay); err != nil {
					return nil, err
				}
			}
		}
	}

	return ids, nil
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
