package crawler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/wdcrawl/internal/model"
	"github.com/nao1215/wdcrawl/internal/storage"
	"github.com/nao1215/wdcrawl/internal/wdqs"
)

// Orchestration defaults. These mirror internal/config so a Crawler is
// usable standalone in tests.
const (
	defaultEdgeBatchSize      = 200
	defaultPropertyBatchSize  = 50
	defaultEstimateSampleSize = 100
	defaultTriplesPerGuess    = 50
	defaultSubclassLimit      = 1000
)

// queryService is the slice of the SPARQL transport the orchestrator
// needs. *wdqs.Client satisfies it; tests substitute fakes.
type queryService interface {
	Query(ctx context.Context, query string, format wdqs.ResultFormat) ([]byte, error)
	Subclasses(ctx context.Context, class model.EntityID, limit int) ([]model.EntityID, error)
	InstanceCounts(ctx context.Context, sample []model.EntityID) (map[model.EntityID]int, error)
}

// instanceEnumerator yields the seed instance set for a class list.
// *search.Enumerator satisfies it.
type instanceEnumerator interface {
	Enumerate(ctx context.Context, classes []model.EntityID, max int) ([]model.EntityID, error)
}

// Crawler executes bounded-radius crawls. It implements job.Runner; one
// Crawler instance is safe to share across jobs because all per-job
// state lives in the crawl struct created by Run.
type Crawler struct {
	service    queryService
	enumerator instanceEnumerator
	logger     *slog.Logger

	edgeBatchSize      int
	propertyBatchSize  int
	estimateSampleSize int
	triplesPerGuess    int
	subclassLimit      int
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithEdgeBatchSize sets the identifiers-per-query batch size for the
// hop-fetching phase.
func WithEdgeBatchSize(n int) Option {
	return func(c *Crawler) {
		c.edgeBatchSize = n
	}
}

// WithPropertyBatchSize sets the batch size for property enrichment.
func WithPropertyBatchSize(n int) Option {
	return func(c *Crawler) {
		c.propertyBatchSize = n
	}
}

// WithEstimateSampleSize sets the sample size for triple estimation.
func WithEstimateSampleSize(n int) Option {
	return func(c *Crawler) {
		c.estimateSampleSize = n
	}
}

// WithSubclassLimit bounds the subclass closure expansion.
func WithSubclassLimit(n int) Option {
	return func(c *Crawler) {
		c.subclassLimit = n
	}
}

// WithLogger sets a custom logger for the crawler.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		c.logger = logger
	}
}

// New creates a Crawler over the given transport and enumerator.
func New(service queryService, enumerator instanceEnumerator, opts ...Option) *Crawler {
	c := &Crawler{
		service:            service,
		enumerator:         enumerator,
		edgeBatchSize:      defaultEdgeBatchSize,
		propertyBatchSize:  defaultPropertyBatchSize,
		estimateSampleSize: defaultEstimateSampleSize,
		triplesPerGuess:    defaultTriplesPerGuess,
		subclassLimit:      defaultSubclassLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// phase is one stage of a crawl. Required phases fail the job on error;
// best-effort phases log, degrade, and let the crawl continue.
type phase struct {
	name       string
	kind       model.Phase
	bestEffort bool
	run        func(ctx context.Context) error
}

// crawl is the per-job state. It is exclusively owned by the single
// sequential task running the job, so none of its fields need locking.
type crawl struct {
	*Crawler

	cfg     model.CrawlConfig
	rec     *model.JobRecord
	publish func(model.Progress)

	dir    *storage.JobDir
	stream *storage.StreamWriter

	// classes is the expanded target class set.
	classes []model.EntityID

	// instances is the enumerated seed set.
	instances []model.EntityID

	// visited holds every identifier ever queued for a batch query.
	// Marked before fetch so a failed batch is never retried for the
	// same identifiers at a later hop.
	visited map[model.EntityID]struct{}

	// frontier is the set to fetch at the current hop.
	frontier []model.EntityID

	// progress accumulates the published snapshot fields.
	progress model.Progress
}

// Run executes one crawl job to completion. It satisfies job.Runner.
func (c *Crawler) Run(ctx context.Context, rec *model.JobRecord, publish func(model.Progress)) error {
	dir, err := storage.OpenJobDir(rec.OutputDir)
	if err != nil {
		return err
	}
	stream, err := dir.NewStreamWriter()
	if err != nil {
		return err
	}

	cr := &crawl{
		Crawler: c,
		cfg:     rec.Config,
		rec:     rec,
		publish: publish,
		dir:     dir,
		stream:  stream,
		visited: make(map[model.EntityID]struct{}),
		progress: model.Progress{
			Phase:  model.PhaseInitializing,
			Radius: rec.Config.Radius,
		},
	}

	err = cr.runPhases(ctx, cr.phases())
	if cerr := stream.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// phases returns the job's phase sequence. Transitions are strictly
// sequential; a required phase's failure terminates the walk.
func (cr *crawl) phases() []phase {
	out := []phase{
		{name: "expand subclasses", kind: model.PhaseExpandingSubclasses, bestEffort: true, run: cr.expandSubclasses},
		{name: "enumerate instances", kind: model.PhaseEnumeratingInstances, run: cr.enumerateInstances},
		{name: "estimate triples", kind: model.PhaseEstimatingTriples, bestEffort: true, run: cr.estimateTriples},
		{name: "fetch hops", kind: model.PhaseFetching, run: cr.fetchHops},
	}
	if cr.cfg.FetchProperties {
		out = append(out, phase{name: "enrich properties", kind: model.PhaseEnrichingProperties, bestEffort: true, run: cr.enrichProperties})
	}
	out = append(out, phase{name: "convert output", kind: model.PhaseConverting, run: cr.convertOutput})
	return out
}

// runPhases walks the phase sequence, checking for cancellation before
// each phase. Cancellation is never swallowed by a best-effort phase.
func (cr *crawl) runPhases(ctx context.Context, phases []phase) error {
	for _, p := range phases {
		if err := ctx.Err(); err != nil {
			return err
		}

		cr.progress.Phase = p.kind
		cr.progress.Message = ""
		cr.publishSnapshot()

		cr.logger.Debug("phase started", "jobID", cr.rec.ID, "phase", p.kind.String())
		if err := p.run(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !p.bestEffort {
				return fmt.Errorf("%s: %w", p.name, err)
			}
			cr.logger.Warn("best-effort phase degraded", "jobID", cr.rec.ID, "phase", p.kind.String(), "error", err)
		}
	}

	cr.progress.Phase = model.PhaseCompleted
	cr.publishSnapshot()
	return nil
}

// publishSnapshot copies the accumulated progress out to observers.
func (cr *crawl) publishSnapshot() {
	cr.publish(cr.progress)
}
