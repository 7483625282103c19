package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages. Using errors.New() here rather than fmt.Errorf()
// because we don't need to include dynamic values in these messages.
var (
	// ErrNoTarget is returned when no target class or preset is specified.
	ErrNoTarget = errors.New("no target specified: provide a class identifier (e.g. Q5) or use --preset")

	// ErrNoUserAgent is returned when the User-Agent is empty.
	// The Wikimedia User-Agent policy requires every client to identify
	// itself; anonymous requests may be throttled or blocked.
	ErrNoUserAgent = errors.New("no user agent: a descriptive User-Agent is required by the Wikimedia policy")

	// ErrInvalidInterval is returned when the minimum request interval is
	// not positive. A zero interval would disable rate limiting entirely.
	ErrInvalidInterval = errors.New("invalid request interval: must be positive")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	// A timeout of zero or negative would cause immediate request failures.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxAttempts is returned when the retry budget is below one.
	// At least one attempt is needed to issue the request at all.
	ErrInvalidMaxAttempts = errors.New("invalid max attempts: must be at least 1")

	// ErrInvalidBatchSize is returned when a batch size is not positive.
	// A batch size of zero would produce queries with empty VALUES clauses.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidConcurrency is returned when the concurrent job limit is
	// not positive. A limit of zero would mean no job could ever start.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrPresetNotFound is returned when the requested preset name does
	// not exist in the preset file.
	ErrPresetNotFound = errors.New("preset not found in configuration file")
)
