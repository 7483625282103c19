package report

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// verbose enables the predicate breakdown section.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *Report) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeCounts(&sb, report)
	if w.verbose {
		w.writePredicates(&sb, report)
	}
	w.writeFooter(&sb, report)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with job information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *Report) {
	rec := report.Record

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         WDCRAWL REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Job ID:         %s\n", rec.ID))
	sb.WriteString(fmt.Sprintf("Target Classes: %s\n", strings.Join(report.classStrings(), ", ")))
	sb.WriteString(fmt.Sprintf("Radius:         %d\n", rec.Config.Radius))
	sb.WriteString(fmt.Sprintf("Max Instances:  %d\n", rec.Config.MaxInstances))
	sb.WriteString(fmt.Sprintf("Language:       %s\n", rec.Config.Language))
	sb.WriteString(fmt.Sprintf("Started:        %s\n", rec.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Elapsed:        %s\n", rec.Elapsed().Round(time.Millisecond)))

	if rec.Error != "" {
		sb.WriteString(fmt.Sprintf("Status:         %s - %s\n", strings.ToUpper(rec.Status.String()), rec.Error))
	} else {
		sb.WriteString(fmt.Sprintf("Status:         %s\n", strings.ToUpper(rec.Status.String())))
	}

	sb.WriteString("\n")
}

// writeCounts writes the crawl count summary section.
func (w *SimpleWriter) writeCounts(sb *strings.Builder, report *Report) {
	rec := report.Record

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("CRAWL SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  Items visited:      %d\n", rec.VisitedCount))
	sb.WriteString(fmt.Sprintf("  Stream lines:       %d\n", rec.TripleCount))
	sb.WriteString(fmt.Sprintf("  Parsed statements:  %d\n", report.Statements))
	sb.WriteString(fmt.Sprintf("  Distinct subjects:  %d\n", report.Subjects))
	sb.WriteString(fmt.Sprintf("  Malformed skipped:  %d\n", rec.SkippedLines))
	if rec.PropertyCount > 0 {
		sb.WriteString(fmt.Sprintf("  Properties enriched: %d\n", rec.PropertyCount))
	}
	sb.WriteString("\n")
}

// writePredicates writes the top-predicate breakdown.
func (w *SimpleWriter) writePredicates(sb *strings.Builder, report *Report) {
	if len(report.TopPredicates) == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("TOP PREDICATES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, p := range report.TopPredicates {
		sb.WriteString(fmt.Sprintf("  %7d  %s\n", p.Count, p.IRI))
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder, report *Report) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Artifacts: %s\n", report.Record.OutputDir))
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
