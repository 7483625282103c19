package model

// Phase represents the current stage of a crawl job.
// Phases advance strictly forward; a job never returns to an earlier phase.
type Phase int

const (
	// PhaseInitializing indicates the job has been created but no work
	// has started yet.
	PhaseInitializing Phase = iota
	// PhaseExpandingSubclasses indicates the transitive subclass closure
	// of the target classes is being resolved.
	PhaseExpandingSubclasses
	// PhaseEnumeratingInstances indicates seed instances are being
	// collected from the search index.
	PhaseEnumeratingInstances
	// PhaseEstimatingTriples indicates the triple-count estimate is being
	// computed from a sample of the seed instances.
	PhaseEstimatingTriples
	// PhaseFetching indicates the breadth-first hop loop is running.
	PhaseFetching
	// PhaseEnrichingProperties indicates property metadata is being
	// fetched for predicates observed in the output stream.
	PhaseEnrichingProperties
	// PhaseConverting indicates the triple stream is being re-serialized
	// into the compact Turtle form.
	PhaseConverting
	// PhaseCompleted indicates the job finished successfully.
	PhaseCompleted
	// PhaseFailed indicates the job terminated with an error.
	PhaseFailed
	// PhaseAborted indicates the job was cancelled by the user.
	PhaseAborted
)

// phaseStrings maps phases to their wire/database representation.
var phaseStrings = map[Phase]string{
	PhaseInitializing:         "initializing",
	PhaseExpandingSubclasses:  "expanding-subclasses",
	PhaseEnumeratingInstances: "enumerating-instances",
	PhaseEstimatingTriples:    "estimating-triples",
	PhaseFetching:             "fetching",
	PhaseEnrichingProperties:  "enriching-properties",
	PhaseConverting:           "converting-output",
	PhaseCompleted:            "completed",
	PhaseFailed:               "failed",
	PhaseAborted:              "aborted",
}

// String returns the string representation of the Phase.
// This form is used in progress output and the metadata side-file.
func (p Phase) String() string {
	if s, ok := phaseStrings[p]; ok {
		return s
	}
	return "unknown"
}

// ParsePhase converts a string representation back into a Phase.
// Unknown strings map to PhaseInitializing.
func ParsePhase(s string) Phase {
	for p, str := range phaseStrings {
		if str == s {
			return p
		}
	}
	return PhaseInitializing
}

// Terminal returns true if the phase is a terminal state.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed || p == PhaseAborted
}
