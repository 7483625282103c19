package crawler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/nao1215/wdcrawl/internal/model"
	"github.com/nao1215/wdcrawl/internal/storage"
	"github.com/nao1215/wdcrawl/internal/wdqs"
)

// fakeService is a scriptable queryService.
type fakeService struct {
	// query is invoked for CONSTRUCT queries (edge batches, enrichment).
	query func(query string, format wdqs.ResultFormat) ([]byte, error)

	// subclasses is invoked for class expansion; nil means identity.
	subclasses func(class model.EntityID) ([]model.EntityID, error)

	// counts is invoked for estimation; nil means failure.
	counts func(sample []model.EntityID) (map[model.EntityID]int, error)

	queries []string
}

func (f *fakeService) Query(_ context.Context, query string, format wdqs.ResultFormat) ([]byte, error) {
	f.queries = append(f.queries, query)
	if f.query == nil {
		return nil, errors.New("no query handler")
	}
	return f.query(query, format)
}

func (f *fakeService) Subclasses(_ context.Context, class model.EntityID, _ int) ([]model.EntityID, error) {
	if f.subclasses == nil {
		return []model.EntityID{class}, nil
	}
	return f.subclasses(class)
}

func (f *fakeService) InstanceCounts(_ context.Context, sample []model.EntityID) (map[model.EntityID]int, error) {
	if f.counts == nil {
		return nil, errors.New("no counts handler")
	}
	return f.counts(sample)
}

// fakeEnumerator yields a fixed seed set.
type fakeEnumerator struct {
	ids []model.EntityID
	err error
}

func (f *fakeEnumerator) Enumerate(_ context.Context, _ []model.EntityID, max int) ([]model.EntityID, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.ids) > max {
		return f.ids[:max], nil
	}
	return f.ids, nil
}

// ids converts identifier strings for test fixtures.
func ids(ss ...string) []model.EntityID {
	out := make([]model.EntityID, 0, len(ss))
	for _, s := range ss {
		out = append(out, model.MustNewEntityID(s))
	}
	return out
}

// statementLines fabricates n label statements for subject id, none of
// which reference another entity in object position.
func statementLines(id string, n int) []byte {
	var b strings.Builder
	for i := range n {
		fmt.Fprintf(&b, "<http://www.wikidata.org/entity/%s> <http://www.w3.org/2000/01/rdf-schema#label> \"label %d\"@en .\n", id, i)
	}
	return []byte(b.String())
}

// edgeLine fabricates one entity-valued statement.
func edgeLine(subject, prop, object string) string {
	return fmt.Sprintf("<http://www.wikidata.org/entity/%s> <http://www.wikidata.org/prop/direct/%s> <http://www.wikidata.org/entity/%s> .\n",
		subject, prop, object)
}

// newTestJob prepares a job record with an artifact directory.
func newTestJob(t *testing.T, cfg model.CrawlConfig) *model.JobRecord {
	t.Helper()

	store, err := storage.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	dir, err := store.CreateJobDir("job-under-test")
	if err != nil {
		t.Fatalf("CreateJobDir failed: %v", err)
	}
	return &model.JobRecord{
		ID:        "job-under-test",
		Config:    cfg,
		Status:    model.StatusRunning,
		OutputDir: dir.Path(),
	}
}

// runCrawl executes a crawl and collects published snapshots.
func runCrawl(t *testing.T, c *Crawler, rec *model.JobRecord) ([]model.Progress, error) {
	t.Helper()

	var snapshots []model.Progress
	err := c.Run(context.Background(), rec, func(p model.Progress) {
		snapshots = append(snapshots, p)
	})
	return snapshots, err
}

// streamLines reads the job's stream file as trimmed non-empty lines.
func streamLines(t *testing.T, rec *model.JobRecord) []string {
	t.Helper()

	dir, err := storage.OpenJobDir(rec.OutputDir)
	if err != nil {
		t.Fatalf("OpenJobDir failed: %v", err)
	}
	data, err := os.ReadFile(dir.StreamPath())
	if err != nil {
		t.Fatalf("reading stream failed: %v", err)
	}
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// TestRunSingleHop tests the baseline scenario: radius 1, two seeds,
// five label triples per batch, no entity-valued objects. The stream
// must contain exactly ten lines and no second hop may be attempted.
func TestRunSingleHop(t *testing.T) {
	t.Parallel()

	service := &fakeService{
		query: func(query string, _ wdqs.ResultFormat) ([]byte, error) {
			for _, id := range []string{"Q1", "Q2"} {
				if strings.Contains(query, "wd:"+id+" ") || strings.HasSuffix(query, "wd:"+id+" }\n") || strings.Contains(query, " wd:"+id+" }") {
					return statementLines(id, 5), nil
				}
			}
			return nil, fmt.Errorf("unexpected query:\n%s", query)
		},
		counts: func(sample []model.EntityID) (map[model.EntityID]int, error) {
			counts := make(map[model.EntityID]int, len(sample))
			for _, id := range sample {
				counts[id] = 5
			}
			return counts, nil
		},
	}
	c := New(service, &fakeEnumerator{ids: ids("Q1", "Q2")}, WithEdgeBatchSize(1))

	rec := newTestJob(t, model.CrawlConfig{
		TargetClasses: ids("Q5"),
		Radius:        1,
		MaxInstances:  100,
		Language:      "en",
	})
	if _, err := runCrawl(t, c, rec); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := streamLines(t, rec); len(got) != 10 {
		t.Errorf("stream has %d lines, expected 10", len(got))
	}
	if rec.TripleCount != 10 {
		t.Errorf("TripleCount = %d, expected 10", rec.TripleCount)
	}
	if rec.VisitedCount != 2 {
		t.Errorf("VisitedCount = %d, expected 2", rec.VisitedCount)
	}

	// One estimation-free check: only the two edge batches hit the
	// transport's Query method, so an empty hop-2 frontier means no
	// further CONSTRUCT queries.
	if len(service.queries) != 2 {
		t.Errorf("transport saw %d queries, expected 2 edge batches", len(service.queries))
	}
}

// TestRunNeighborExpansion tests that entity-valued objects seed the
// next hop and that already-visited identifiers are never re-fetched.
func TestRunNeighborExpansion(t *testing.T) {
	t.Parallel()

	fetched := make([]string, 0, 4)
	service := &fakeService{
		query: func(query string, _ wdqs.ResultFormat) ([]byte, error) {
			switch {
			case strings.Contains(query, "wd:Q1 "):
				fetched = append(fetched, "Q1")
				// References Q10 (new) and Q1 (itself, already visited).
				return []byte(edgeLine("Q1", "P361", "Q10") + edgeLine("Q1", "P361", "Q1")), nil
			case strings.Contains(query, "wd:Q10 "):
				fetched = append(fetched, "Q10")
				return statementLines("Q10", 1), nil
			default:
				return nil, fmt.Errorf("unexpected query:\n%s", query)
			}
		},
		counts: func([]model.EntityID) (map[model.EntityID]int, error) {
			return map[model.EntityID]int{}, nil
		},
	}
	c := New(service, &fakeEnumerator{ids: ids("Q1")})

	rec := newTestJob(t, model.CrawlConfig{
		TargetClasses: ids("Q5"),
		Radius:        2,
		MaxInstances:  100,
		Language:      "en",
	})
	if _, err := runCrawl(t, c, rec); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(fetched) != 2 || fetched[0] != "Q1" || fetched[1] != "Q10" {
		t.Errorf("fetched %v, expected [Q1 Q10]", fetched)
	}
	if rec.VisitedCount != 2 {
		t.Errorf("VisitedCount = %d, expected 2", rec.VisitedCount)
	}
}

// TestRunExpansionFallback tests that a failing subclass expansion
// degrades to the original class and the job still completes.
func TestRunExpansionFallback(t *testing.T) {
	t.Parallel()

	var enumeratedClasses []model.EntityID
	service := &fakeService{
		subclasses: func(model.EntityID) ([]model.EntityID, error) {
			return nil, errors.New("query service unavailable")
		},
		query: func(string, wdqs.ResultFormat) ([]byte, error) {
			return statementLines("Q1", 1), nil
		},
		counts: func([]model.EntityID) (map[model.EntityID]int, error) {
			return map[model.EntityID]int{}, nil
		},
	}
	enumerator := &classRecordingEnumerator{record: &enumeratedClasses, ids: ids("Q1")}
	c := New(service, enumerator)

	rec := newTestJob(t, model.CrawlConfig{
		TargetClasses:    ids("Q5"),
		Radius:           1,
		MaxInstances:     100,
		Language:         "en",
		ExpandSubclasses: true,
	})
	if _, err := runCrawl(t, c, rec); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(enumeratedClasses) != 1 || enumeratedClasses[0].String() != "Q5" {
		t.Errorf("enumerated classes = %v, expected fallback to [Q5]", enumeratedClasses)
	}
}

// classRecordingEnumerator captures the class list it is asked about.
type classRecordingEnumerator struct {
	record *[]model.EntityID
	ids    []model.EntityID
}

func (f *classRecordingEnumerator) Enumerate(_ context.Context, classes []model.EntityID, _ int) ([]model.EntityID, error) {
	*f.record = append(*f.record, classes...)
	return f.ids, nil
}

// TestRunEstimationFallback tests the heuristic estimate when the sample
// query fails.
func TestRunEstimationFallback(t *testing.T) {
	t.Parallel()

	service := &fakeService{
		query: func(string, wdqs.ResultFormat) ([]byte, error) {
			return statementLines("Q1", 1), nil
		},
		// counts nil: estimation query fails
	}
	c := New(service, &fakeEnumerator{ids: ids("Q1", "Q2", "Q3")})

	rec := newTestJob(t, model.CrawlConfig{
		TargetClasses: ids("Q5"),
		Radius:        1,
		MaxInstances:  100,
		Language:      "en",
	})
	snapshots, err := runCrawl(t, c, rec)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Fallback: fixed guess per instance times the seed count.
	want := defaultTriplesPerGuess * 3
	found := false
	for _, p := range snapshots {
		if p.EstimatedTriples == want {
			found = true
		}
	}
	if !found {
		t.Errorf("no snapshot carried the fallback estimate %d", want)
	}
}

// TestRunEnumerationFailureIsFatal tests that a failing enumeration
// fails the whole job.
func TestRunEnumerationFailureIsFatal(t *testing.T) {
	t.Parallel()

	c := New(&fakeService{}, &fakeEnumerator{err: errors.New("search endpoint down")})

	rec := newTestJob(t, model.CrawlConfig{
		TargetClasses: ids("Q5"),
		Radius:        1,
		MaxInstances:  100,
		Language:      "en",
	})
	if _, err := runCrawl(t, c, rec); err == nil {
		t.Error("expected fatal error from failed enumeration")
	}
}

// TestRunPropertyEnrichment tests that distinct predicates are batched,
// queried, and counted, and that a failed batch is skipped non-fatally.
func TestRunPropertyEnrichment(t *testing.T) {
	t.Parallel()

	service := &fakeService{
		query: func(query string, _ wdqs.ResultFormat) ([]byte, error) {
			if strings.Contains(query, "?prop rdfs:label ?label") {
				// Property metadata: fail the batch containing P361.
				if strings.Contains(query, "wd:P361") {
					return nil, errors.New("metadata batch failed")
				}
				return []byte(`<http://www.wikidata.org/prop/direct/P31> <http://www.w3.org/2000/01/rdf-schema#label> "instance of"@en .` + "\n"), nil
			}
			return []byte(edgeLine("Q1", "P31", "Q5") + edgeLine("Q1", "P361", "Q10")), nil
		},
		counts: func([]model.EntityID) (map[model.EntityID]int, error) {
			return map[model.EntityID]int{}, nil
		},
	}
	c := New(service, &fakeEnumerator{ids: ids("Q1")}, WithPropertyBatchSize(1))

	rec := newTestJob(t, model.CrawlConfig{
		TargetClasses:   ids("Q5"),
		Radius:          1,
		MaxInstances:    100,
		Language:        "en",
		FetchProperties: true,
	})
	if _, err := runCrawl(t, c, rec); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// P31 enriched, P361's batch failed and was skipped.
	if rec.PropertyCount != 1 {
		t.Errorf("PropertyCount = %d, expected 1", rec.PropertyCount)
	}
	lines := streamLines(t, rec)
	found := false
	for _, line := range lines {
		if strings.Contains(line, `"instance of"@en`) {
			found = true
		}
	}
	if !found {
		t.Errorf("enrichment metadata missing from stream:\n%s", strings.Join(lines, "\n"))
	}
}

// TestRunConversionCountsSkippedLines tests that malformed upstream
// lines survive into the skipped-line count without failing the job.
func TestRunConversionCountsSkippedLines(t *testing.T) {
	t.Parallel()

	service := &fakeService{
		query: func(string, wdqs.ResultFormat) ([]byte, error) {
			body := edgeLine("Q1", "P31", "Q5") + "not a triple at all\n" + string(statementLines("Q1", 1))
			return []byte(body), nil
		},
		counts: func([]model.EntityID) (map[model.EntityID]int, error) {
			return map[model.EntityID]int{}, nil
		},
	}
	c := New(service, &fakeEnumerator{ids: ids("Q1")})

	rec := newTestJob(t, model.CrawlConfig{
		TargetClasses: ids("Q5"),
		Radius:        1,
		MaxInstances:  100,
		Language:      "en",
	})
	if _, err := runCrawl(t, c, rec); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if rec.SkippedLines != 1 {
		t.Errorf("SkippedLines = %d, expected 1", rec.SkippedLines)
	}

	// The Turtle artifact must exist and contain the parsed statements.
	dir, err := storage.OpenJobDir(rec.OutputDir)
	if err != nil {
		t.Fatalf("OpenJobDir failed: %v", err)
	}
	ttl, err := os.ReadFile(dir.TurtlePath())
	if err != nil {
		t.Fatalf("reading turtle artifact failed: %v", err)
	}
	if !strings.Contains(string(ttl), "wd:Q1 wdt:P31 wd:Q5") {
		t.Errorf("turtle artifact missing expected statement:\n%s", ttl)
	}
}

// TestRunCancellation tests that a cancelled context aborts the crawl
// with the context's error.
func TestRunCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	service := &fakeService{
		query: func(string, wdqs.ResultFormat) ([]byte, error) {
			cancel()
			return statementLines("Q1", 1), nil
		},
		counts: func([]model.EntityID) (map[model.EntityID]int, error) {
			return map[model.EntityID]int{}, nil
		},
	}
	c := New(service, &fakeEnumerator{ids: ids("Q1", "Q2")}, WithEdgeBatchSize(1))

	rec := newTestJob(t, model.CrawlConfig{
		TargetClasses: ids("Q5"),
		Radius:        1,
		MaxInstances:  100,
		Language:      "en",
	})
	err := c.Run(ctx, rec, func(model.Progress) {})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, expected context.Canceled", err)
	}
}

// TestRunPhaseOrder tests that published phases follow the strict
// sequential order.
func TestRunPhaseOrder(t *testing.T) {
	t.Parallel()

	service := &fakeService{
		query: func(string, wdqs.ResultFormat) ([]byte, error) {
			return statementLines("Q1", 1), nil
		},
		counts: func([]model.EntityID) (map[model.EntityID]int, error) {
			return map[model.EntityID]int{}, nil
		},
	}
	c := New(service, &fakeEnumerator{ids: ids("Q1")})

	rec := newTestJob(t, model.CrawlConfig{
		TargetClasses:    ids("Q5"),
		Radius:           1,
		MaxInstances:     100,
		Language:         "en",
		ExpandSubclasses: true,
	})
	snapshots, err := runCrawl(t, c, rec)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []model.Phase{
		model.PhaseExpandingSubclasses,
		model.PhaseEnumeratingInstances,
		model.PhaseEstimatingTriples,
		model.PhaseFetching,
		model.PhaseConverting,
		model.PhaseCompleted,
	}
	got := make([]model.Phase, 0, len(want))
	var last model.Phase = -1
	for _, p := range snapshots {
		if p.Phase != last {
			got = append(got, p.Phase)
			last = p.Phase
		}
	}
	if len(got) != len(want) {
		t.Fatalf("phase sequence = %v, expected %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("phase[%d] = %v, expected %v", i, got[i], want[i])
		}
	}
}
