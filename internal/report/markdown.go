package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/wdcrawl/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *Report) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeCounts(md, report)
	w.writePredicates(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with job information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *Report) {
	rec := report.Record

	md.H1("Crawl Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Job ID", "`" + rec.ID + "`"},
			{"Target Classes", "`" + strings.Join(report.classStrings(), "`, `") + "`"},
			{"Radius", strconv.Itoa(rec.Config.Radius)},
			{"Max Instances", strconv.Itoa(rec.Config.MaxInstances)},
			{"Language", rec.Config.Language},
			{"Started", rec.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Elapsed", rec.Elapsed().Round(time.Millisecond).String()},
			{"Status", w.statusText(rec)},
		},
	})
	md.PlainText("")

	w.writeAlert(md, rec)
}

// statusText returns the status cell based on the record state.
func (w *MarkdownWriter) statusText(rec *model.JobRecord) string {
	switch rec.Status {
	case model.StatusCompleted:
		return "✅ Completed"
	case model.StatusAborted:
		return "⚠️ Aborted (partial output)"
	case model.StatusFailed:
		return "❌ Failed - " + rec.Error
	default:
		return "⏳ Running"
	}
}

// writeAlert writes an alert appropriate to the terminal state.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, rec *model.JobRecord) {
	switch {
	case rec.Status == model.StatusFailed:
		md.Cautionf("Crawl failed: %s. Artifacts may be incomplete.", rec.Error)
	case rec.Status == model.StatusAborted:
		md.Warningf("Crawl was aborted after %d triples. The stream holds a valid partial graph.", rec.TripleCount)
	case rec.SkippedLines > 0:
		md.Importantf("%d malformed stream lines were skipped during conversion.", rec.SkippedLines)
	default:
		md.Tip("All stream lines converted cleanly.")
	}
	md.PlainText("")
}

// writeCounts writes the crawl count summary section.
func (w *MarkdownWriter) writeCounts(md *markdown.Markdown, report *Report) {
	rec := report.Record

	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Items visited", strconv.Itoa(rec.VisitedCount)},
			{"Stream lines", strconv.Itoa(rec.TripleCount)},
			{"Parsed statements", strconv.Itoa(report.Statements)},
			{"Distinct subjects", strconv.Itoa(report.Subjects)},
			{"Malformed skipped", strconv.Itoa(rec.SkippedLines)},
			{"Properties enriched", strconv.Itoa(rec.PropertyCount)},
		},
	})
	md.PlainText("")
}

// writePredicates writes the predicate breakdown with a distribution
// chart when there is anything to show.
func (w *MarkdownWriter) writePredicates(md *markdown.Markdown, report *Report) {
	md.H2("Top Predicates")
	md.PlainText("")

	if len(report.TopPredicates) == 0 {
		md.PlainText("No statements in the output.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(report.TopPredicates))
	for _, p := range report.TopPredicates {
		rows = append(rows, []string{"`" + p.IRI + "`", strconv.Itoa(p.Count)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Predicate", "Statements"},
		Rows:   rows,
	})

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Statement Distribution by Predicate"),
		piechart.WithShowData(true),
	)
	for _, p := range report.TopPredicates {
		chart.LabelAndIntValue(predicateLabel(p.IRI), uint64(p.Count))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// predicateLabel shortens a predicate IRI to its local name for chart
// labels.
func predicateLabel(iri string) string {
	if i := strings.LastIndexAny(iri, "/#"); i >= 0 && i < len(iri)-1 {
		return iri[i+1:]
	}
	return iri
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [wdcrawl](https://github.com/nao1215/wdcrawl)*")
}
