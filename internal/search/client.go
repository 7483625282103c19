package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/nao1215/wdcrawl/internal/model"
)

// Search client construction errors.
var (
	// ErrNoUserAgent is returned when a client is constructed without a
	// User-Agent. The Wikimedia policy applies to the API endpoint too.
	ErrNoUserAgent = errors.New("user agent is required for search API requests")

	// ErrNoEndpoint is returned when a client is constructed without an
	// endpoint URL.
	ErrNoEndpoint = errors.New("search endpoint URL cannot be empty")
)

// Page is one page of enumeration results.
type Page struct {
	// IDs are the entity identifiers on this page, in index order.
	IDs []model.EntityID

	// TotalHits is the upstream's total match count for the predicate.
	TotalHits int

	// Next is the opaque continuation cursor for the following page.
	// Empty means the result set is exhausted.
	Next string
}

// Client performs statement-presence searches against the MediaWiki API.
//
// Design decision: Instance enumeration uses the search index
// (haswbstatement) instead of SPARQL because cursor-based search
// pagination stays fast at any offset, while OFFSET-based SPARQL
// pagination degrades linearly and times out on large classes.
type Client struct {
	// httpClient performs the HTTP requests.
	httpClient *http.Client

	// endpoint is the MediaWiki API URL (w/api.php).
	endpoint string

	// userAgent identifies this client in every request.
	userAgent string

	// logger is used for structured logging.
	logger *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithClientLogger sets a custom logger for the client.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new search API client.
func NewClient(endpoint, userAgent string, opts ...ClientOption) (*Client, error) {
	if endpoint == "" {
		return nil, ErrNoEndpoint
	}
	if userAgent == "" {
		return nil, ErrNoUserAgent
	}

	c := &Client{
		httpClient: &http.Client{},
		endpoint:   endpoint,
		userAgent:  userAgent,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c, nil
}

// searchResponse mirrors the MediaWiki API response envelope.
// Only the fields we read are declared.
type searchResponse struct {
	Continue struct {
		Offset json.Number `json:"sroffset"`
	} `json:"continue"`
	Query struct {
		SearchInfo struct {
			TotalHits int `json:"totalhits"`
		} `json:"searchinfo"`
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

// SearchPage fetches one page of entities that are direct instances
// (P31) of the given class. The cursor is the opaque continuation value
// returned by the previous page, empty for the first page.
func (c *Client) SearchPage(ctx context.Context, class model.EntityID, cursor string, limit int) (*Page, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("format", "json")
	params.Set("srsearch", "haswbstatement:P31="+class.String())
	params.Set("srnamespace", "0")
	params.Set("srlimit", strconv.Itoa(limit))
	params.Set("srprop", "")
	if cursor != "" {
		params.Set("sroffset", cursor)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort cleanup

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // Drain for connection reuse
		return nil, fmt.Errorf("search request failed: unexpected status %s", resp.Status)
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	page := &Page{
		IDs:       make([]model.EntityID, 0, len(decoded.Query.Search)),
		TotalHits: decoded.Query.SearchInfo.TotalHits,
		Next:      decoded.Continue.Offset.String(),
	}
	for _, hit := range decoded.Query.Search {
		id, err := model.NewEntityID(hit.Title)
		if err != nil {
			// Namespace-0 search can still surface non-entity pages;
			// skip them rather than failing the whole page.
			c.logger.Debug("skipping non-entity search hit", "title", hit.Title)
			continue
		}
		page.IDs = append(page.IDs, id)
	}

	return page, nil
}
