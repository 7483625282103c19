package model

// Progress is an immutable snapshot of a job's state, published whole by
// the orchestrator after each meaningful unit of work.
//
// Design decision: Progress is a value type that is copied on publish
// rather than a shared mutable record because:
//  1. Observers never see torn reads of compound state
//  2. No locking is needed on the orchestrator's hot path
//  3. Subscribers can buffer snapshots without aliasing concerns
type Progress struct {
	// Phase is the stage the job is currently in.
	Phase Phase `json:"phase"`

	// Hop is the current hop number within the fetching phase (1-based).
	// Zero outside the fetching phase.
	Hop int `json:"hop,omitempty"`

	// Radius is the configured hop radius, for "hop 2/3" style display.
	Radius int `json:"radius,omitempty"`

	// ItemsSeen is the cumulative number of entity identifiers queued
	// for batch queries across all hops so far.
	ItemsSeen int `json:"itemsSeen"`

	// TriplesWritten is the cumulative count of non-empty lines appended
	// to the output stream. This is a line count, not a parsed-triple
	// count, so it slightly overstates the true statement count when the
	// endpoint emits comment lines.
	TriplesWritten int `json:"triplesWritten"`

	// InstanceTotal is the number of seed instances enumerated for the
	// crawl. Zero until enumeration completes.
	InstanceTotal int `json:"instanceTotal,omitempty"`

	// EstimatedTriples is the extrapolated total triple count.
	// Zero until estimation completes.
	EstimatedTriples int `json:"estimatedTriples,omitempty"`

	// Message is an optional human-readable note about the current work.
	Message string `json:"message,omitempty"`

	// ETA is an optional human-readable estimate of remaining time.
	ETA string `json:"eta,omitempty"`
}

// Percent returns a display-only completion approximation in 0..100.
// Before the fetching phase it reports small fixed values per phase; during
// fetching it scales written triples against the estimate, capped at 99
// until the job actually completes.
func (p Progress) Percent() int {
	switch p.Phase {
	case PhaseInitializing:
		return 0
	case PhaseExpandingSubclasses:
		return 2
	case PhaseEnumeratingInstances:
		return 5
	case PhaseEstimatingTriples:
		return 8
	case PhaseCompleted:
		return 100
	case PhaseFailed, PhaseAborted:
		return 0
	case PhaseEnrichingProperties, PhaseConverting:
		return 95
	case PhaseFetching:
		if p.EstimatedTriples <= 0 {
			return 10
		}
		pct := 10 + p.TriplesWritten*85/p.EstimatedTriples
		if pct > 99 {
			return 99
		}
		return pct
	default:
		return 0
	}
}
