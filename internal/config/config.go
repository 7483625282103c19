package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/wdcrawl/internal/model"
)

// Default configuration values.
// These values follow the Wikidata query service usage policy where
// applicable: a descriptive User-Agent, conservative request pacing, and a
// per-request timeout just under the service's own 60 second limit.
const (
	// DefaultSPARQLEndpoint is the public Wikidata query service endpoint.
	DefaultSPARQLEndpoint = "https://query.wikidata.org/sparql"

	// DefaultSearchEndpoint is the MediaWiki API endpoint used for
	// instance enumeration. The search index supports cursor-based
	// pagination, which scales far better than OFFSET in SPARQL.
	DefaultSearchEndpoint = "https://www.wikidata.org/w/api.php"

	// DefaultMinRequestInterval is the minimum gap between the start of
	// two consecutive SPARQL requests. 200ms keeps a single crawler well
	// under the query service's rate limits.
	DefaultMinRequestInterval = 200 * time.Millisecond

	// DefaultRequestTimeout is the per-attempt timeout for SPARQL
	// requests. The query service kills queries after 60 seconds, so 55
	// seconds lets us observe its timeout response instead of racing it.
	DefaultRequestTimeout = 55 * time.Second

	// DefaultMaxAttempts is how many times a failing request is tried
	// before the error is surfaced to the caller.
	DefaultMaxAttempts = 5

	// DefaultRetryBaseDelay is the base of the exponential backoff
	// between retries (base × 2^attempt).
	DefaultRetryBaseDelay = 1 * time.Second

	// DefaultRetryAfterFallback is the wait applied after an HTTP 429
	// response that carries no Retry-After header.
	DefaultRetryAfterFallback = 5 * time.Second

	// DefaultRadius is the default hop radius. One hop retrieves the
	// seed instances' direct neighborhood, which is what most datasets need.
	DefaultRadius = 1

	// DefaultMaxInstances caps the seed instance enumeration.
	// Kept low by default because the output grows roughly linearly with
	// it and each hop multiplies the frontier.
	DefaultMaxInstances = 100

	// DefaultEdgeBatchSize is the number of subjects per CONSTRUCT query
	// in the hop loop. 200 identifiers keeps the VALUES clause well under
	// the query service's query length limit.
	DefaultEdgeBatchSize = 200

	// DefaultPropertyBatchSize is the number of predicates per metadata
	// query during enrichment. Property sets are small, so smaller
	// batches keep individual queries cheap.
	DefaultPropertyBatchSize = 50

	// DefaultEstimateSampleSize is how many seed instances are sampled
	// for the triple-count estimate.
	DefaultEstimateSampleSize = 100

	// DefaultTriplesPerInstanceGuess is the per-instance triple count
	// assumed when the estimation query itself fails.
	DefaultTriplesPerInstanceGuess = 50

	// DefaultSearchPageSize is the page size for search-API enumeration.
	DefaultSearchPageSize = 50

	// DefaultSearchDelay is the courtesy delay between search page
	// requests. The search API sits on a separate endpoint with its own
	// limits, independent of the SPARQL limiter.
	DefaultSearchDelay = 250 * time.Millisecond

	// DefaultLanguage is the label language requested from the endpoint.
	DefaultLanguage = "en"

	// DefaultSubclassLimit bounds the transitive subclass closure query.
	// Classes with more subclasses than this are crawled partially.
	DefaultSubclassLimit = 1000

	// DefaultConcurrentJobs is how many crawl jobs may run at once.
	// Jobs share one rate-limited transport, so more concurrency does not
	// mean more throughput; it only lets small jobs finish alongside big ones.
	DefaultConcurrentJobs = 2

	// DefaultUserAgent identifies wdcrawl in requests to Wikimedia
	// services. The Wikimedia User-Agent policy requires a descriptive
	// agent with contact information; requests without one may be blocked.
	DefaultUserAgent = "wdcrawl/1.0 (+https://github.com/nao1215/wdcrawl)"

	// AppName is the application name used for XDG directory paths.
	AppName = "wdcrawl"
)

// Config holds all configuration options for wdcrawl.
// This struct is designed to be populated from CLI flags and passed through
// the application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., TransportConfig, SearchConfig) for simplicity. The number of
// options is manageable, and nesting would add complexity without
// significant benefit.
type Config struct {
	// SPARQLEndpoint is the URL of the SPARQL query service.
	SPARQLEndpoint string

	// SearchEndpoint is the URL of the MediaWiki API used for instance
	// enumeration.
	SearchEndpoint string

	// UserAgent is sent with every outbound request. Required; the
	// Wikimedia User-Agent policy makes this non-negotiable.
	UserAgent string

	// MinRequestInterval is the minimum gap between SPARQL request
	// starts, shared across all concurrent jobs.
	MinRequestInterval time.Duration

	// RequestTimeout is the per-attempt timeout for SPARQL requests.
	RequestTimeout time.Duration

	// MaxAttempts is the retry budget per SPARQL request.
	MaxAttempts int

	// Radius is the hop radius for crawls started from the CLI.
	Radius int

	// MaxInstances caps the seed instance enumeration per crawl.
	MaxInstances int

	// Language is the BCP 47 label language tag.
	Language string

	// ExpandSubclasses resolves target classes to their transitive
	// subclass closure before enumeration.
	ExpandSubclasses bool

	// FetchProperties enables the post-crawl property metadata pass.
	FetchProperties bool

	// EdgeBatchSize is the number of subjects per hop-loop query.
	EdgeBatchSize int

	// PropertyBatchSize is the number of predicates per enrichment query.
	PropertyBatchSize int

	// SearchPageSize is the page size for search-API enumeration.
	SearchPageSize int

	// SearchDelay is the courtesy delay between search page requests.
	SearchDelay time.Duration

	// OutputDir is the root directory under which per-job artifact
	// directories are created. Defaults to the XDG data directory.
	OutputDir string

	// DBDir is the directory holding the job history database.
	// Defaults to the XDG data directory.
	DBDir string

	// SaveToDB indicates whether finished jobs are recorded in the
	// history database.
	SaveToDB bool

	// ConcurrentJobs is the maximum number of crawl jobs running at once.
	ConcurrentJobs int

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// JSONReport enables JSON report output instead of the human-readable
	// format. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of the
	// human-readable format. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// PresetFilePath is the path to the preset configuration file.
	// If empty, the tool searches for .wdcrawl in the current directory
	// and then in the user's home directory.
	PresetFilePath string

	// Presets holds named crawl presets loaded from the preset file.
	Presets *File

	// Targets is the list of target class identifiers to crawl, one job
	// per identifier. Ignored when a preset is selected.
	Targets []string
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeouts, batch
// sizes). This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		SPARQLEndpoint:     DefaultSPARQLEndpoint,
		SearchEndpoint:     DefaultSearchEndpoint,
		UserAgent:          DefaultUserAgent,
		MinRequestInterval: DefaultMinRequestInterval,
		RequestTimeout:     DefaultRequestTimeout,
		MaxAttempts:        DefaultMaxAttempts,
		Radius:             DefaultRadius,
		MaxInstances:       DefaultMaxInstances,
		Language:           DefaultLanguage,
		ExpandSubclasses:   true,
		EdgeBatchSize:      DefaultEdgeBatchSize,
		PropertyBatchSize:  DefaultPropertyBatchSize,
		SearchPageSize:     DefaultSearchPageSize,
		SearchDelay:        DefaultSearchDelay,
		ConcurrentJobs:     DefaultConcurrentJobs,
	}
}

// XDGDataDir returns the XDG data directory for wdcrawl.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/wdcrawl
// On macOS: ~/Library/Application Support/wdcrawl
// On Windows: %LOCALAPPDATA%\wdcrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for wdcrawl.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DefaultOutputRoot returns the default root for per-job artifact
// directories (a "crawls" directory under the XDG data directory).
func DefaultOutputRoot() string {
	return filepath.Join(XDGDataDir(), "crawls")
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any crawling begins.
//
// We chose to return the first error found rather than collecting all
// errors because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	// We must have at least one target class or a selected preset
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}

	// The Wikimedia User-Agent policy requires identification
	if c.UserAgent == "" {
		return ErrNoUserAgent
	}

	// A zero interval would hammer the shared endpoint
	if c.MinRequestInterval <= 0 {
		return ErrInvalidInterval
	}

	// Timeout must be positive; zero timeout would fail every request
	if c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}

	if c.Radius < 1 || c.Radius > model.MaxRadius {
		return model.ErrInvalidRadius
	}

	if c.MaxInstances < 1 {
		return model.ErrInvalidMaxInstances
	}

	if c.EdgeBatchSize < 1 || c.PropertyBatchSize < 1 {
		return ErrInvalidBatchSize
	}

	if c.ConcurrentJobs < 1 {
		return ErrInvalidConcurrency
	}

	// JSONReport and MarkdownReport are mutually exclusive
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}

// CrawlConfigFor builds the immutable per-job crawl configuration for one
// target class. The returned config still needs Validate() before use;
// identifier parsing errors surface there via model.NewEntityID.
func (c *Config) CrawlConfigFor(classes []model.EntityID) model.CrawlConfig {
	return model.CrawlConfig{
		TargetClasses:    classes,
		Radius:           c.Radius,
		MaxInstances:     c.MaxInstances,
		Language:         c.Language,
		ExpandSubclasses: c.ExpandSubclasses,
		FetchProperties:  c.FetchProperties,
	}
}
