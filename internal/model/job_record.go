package model

import "time"

// JobStatus represents the lifecycle state of a crawl job record.
type JobStatus int

const (
	// StatusRunning indicates the job is still executing.
	StatusRunning JobStatus = iota
	// StatusCompleted indicates the job finished successfully.
	StatusCompleted
	// StatusFailed indicates the job terminated with an error.
	StatusFailed
	// StatusAborted indicates the job was cancelled by the user.
	StatusAborted
)

// statusStrings maps statuses to their wire/database representation.
var statusStrings = map[JobStatus]string{
	StatusRunning:   "running",
	StatusCompleted: "completed",
	StatusFailed:    "failed",
	StatusAborted:   "aborted",
}

// String returns the string representation of the JobStatus.
func (s JobStatus) String() string {
	if str, ok := statusStrings[s]; ok {
		return str
	}
	return "unknown"
}

// ParseJobStatus converts a string representation back into a JobStatus.
// Unknown strings map to StatusFailed, the safest interpretation for a
// record whose status field has been corrupted.
func ParseJobStatus(s string) JobStatus {
	for status, str := range statusStrings {
		if str == s {
			return status
		}
	}
	return StatusFailed
}

// Terminal returns true if the status is a terminal state.
func (s JobStatus) Terminal() bool {
	return s != StatusRunning
}

// MarshalJSON implements json.Marshaler, encoding the string form.
func (s JobStatus) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *JobStatus) UnmarshalJSON(data []byte) error {
	str := string(data)
	if len(str) >= 2 && str[0] == '"' && str[len(str)-1] == '"' {
		str = str[1 : len(str)-1]
	}
	*s = ParseJobStatus(str)
	return nil
}

// Artifact file names within a job's output directory.
const (
	// StreamFileName is the raw N-Triples stream appended during the crawl.
	StreamFileName = "graph.nt"
	// TurtleFileName is the compact Turtle serialization written after
	// the crawl completes.
	TurtleFileName = "graph.ttl"
	// MetadataFileName is the metadata side-file written at job start
	// and again at job end.
	MetadataFileName = "job.json"
)

// JobRecord is the persistent record of one crawl job. It is written to
// the metadata side-file at job start and end, and stored in the history
// database. The record is serializable to JSON.
type JobRecord struct {
	// ID is the unique job identifier, also the artifact directory name.
	ID string `json:"id"`

	// Config is the immutable crawl configuration for this job.
	Config CrawlConfig `json:"config"`

	// Status is the job's lifecycle state.
	Status JobStatus `json:"status"`

	// Error holds the human-readable failure message when Status is
	// StatusFailed, empty otherwise.
	Error string `json:"error,omitempty"`

	// VisitedCount is the total number of entity identifiers queued for
	// batch queries across all hops.
	VisitedCount int `json:"visitedCount"`

	// TripleCount is the number of non-empty lines in the output stream.
	TripleCount int `json:"tripleCount"`

	// SkippedLines is the number of malformed lines skipped during the
	// Turtle conversion.
	SkippedLines int `json:"skippedLines"`

	// PropertyCount is the number of distinct predicates enriched with
	// metadata, zero when enrichment was disabled.
	PropertyCount int `json:"propertyCount"`

	// StartedAt is when the job was created.
	StartedAt time.Time `json:"startedAt"`

	// FinishedAt is when the job reached a terminal state.
	// Zero while the job is running.
	FinishedAt time.Time `json:"finishedAt,omitzero"`

	// OutputDir is the absolute path of the job's artifact directory.
	OutputDir string `json:"outputDir"`
}

// Elapsed returns the job's wall-clock duration. For running jobs it
// reports the time since start.
func (r JobRecord) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
