package report

import (
	"github.com/nao1215/wdcrawl/internal/model"
	"github.com/nao1215/wdcrawl/internal/rdf"
	"github.com/nao1215/wdcrawl/internal/storage"
)

// maxTopPredicates bounds the predicate breakdown in reports.
const maxTopPredicates = 10

// Report is the renderable summary of one crawl job: the terminal job
// record plus aggregates computed from the output artifacts.
type Report struct {
	// Record is the job's terminal record.
	Record *model.JobRecord `json:"record"`

	// Statements is the number of distinct parsed statements in the
	// output, zero when the artifact could not be read.
	Statements int `json:"statements"`

	// Subjects is the number of distinct subjects in the output.
	Subjects int `json:"subjects"`

	// TopPredicates is the most frequent predicates in the output,
	// capped at a fixed display limit.
	TopPredicates []rdf.PredicateCount `json:"topPredicates,omitempty"`
}

// FromRecord builds a Report for a terminal job record. Aggregates are
// best-effort: a missing or unreadable artifact leaves them zero rather
// than failing, so reports work for failed and aborted jobs too.
func FromRecord(rec *model.JobRecord) *Report {
	r := &Report{Record: rec}

	dir, err := storage.OpenJobDir(rec.OutputDir)
	if err != nil {
		return r
	}
	res, err := rdf.DecodeFile(dir.StreamPath())
	if err != nil {
		return r
	}

	r.Statements = res.Graph.Len()
	r.Subjects = len(res.Graph.Subjects())
	r.TopPredicates = res.Graph.PredicateCounts()
	if len(r.TopPredicates) > maxTopPredicates {
		r.TopPredicates = r.TopPredicates[:maxTopPredicates]
	}
	return r
}

// classStrings renders the configured target classes for display.
func (r *Report) classStrings() []string {
	return model.EntityIDStrings(r.Record.Config.TargetClasses)
}
