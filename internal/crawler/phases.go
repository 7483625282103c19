package crawler

import (
	"context"
	"fmt"
	"sort"

	"github.com/nao1215/wdcrawl/internal/model"
	"github.com/nao1215/wdcrawl/internal/rdf"
	"github.com/nao1215/wdcrawl/internal/sparql"
	"github.com/nao1215/wdcrawl/internal/wdqs"
)

// expandSubclasses resolves each target class into its transitive
// subclass closure. A failed expansion degrades to the class itself so
// the crawl still covers the user's explicit request.
func (cr *crawl) expandSubclasses(ctx context.Context) error {
	if !cr.cfg.ExpandSubclasses {
		cr.classes = cr.cfg.TargetClasses
		return nil
	}

	seen := make(map[model.EntityID]struct{})
	for _, class := range cr.cfg.TargetClasses {
		expanded, err := cr.service.Subclasses(ctx, class, cr.subclassLimit)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			cr.logger.Warn("subclass expansion failed, using class as-is",
				"jobID", cr.rec.ID, "class", class.String(), "error", err)
			expanded = []model.EntityID{class}
		}
		for _, id := range expanded {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			cr.classes = append(cr.classes, id)
		}
	}

	cr.logger.Info("class set expanded",
		"jobID", cr.rec.ID,
		"targets", len(cr.cfg.TargetClasses),
		"classes", len(cr.classes),
	)
	return nil
}

// enumerateInstances resolves the seed instance set. This phase is
// required: without seeds the crawl has nothing correct to output.
func (cr *crawl) enumerateInstances(ctx context.Context) error {
	instances, err := cr.enumerator.Enumerate(ctx, cr.classes, cr.cfg.MaxInstances)
	if err != nil {
		return err
	}
	cr.instances = instances
	cr.frontier = instances

	cr.progress.InstanceTotal = len(instances)
	cr.progress.Message = fmt.Sprintf("%d seed instances", len(instances))
	cr.publishSnapshot()
	return nil
}

// estimateTriples extrapolates the expected output size from a prefix
// sample of the seed set. A failed sample query degrades to a fixed
// per-instance guess; the estimate only drives progress display.
func (cr *crawl) estimateTriples(ctx context.Context) error {
	total := len(cr.instances)
	if total == 0 {
		return nil
	}

	sample := cr.instances
	if len(sample) > cr.estimateSampleSize {
		sample = sample[:cr.estimateSampleSize]
	}

	estimate := 0
	counts, err := cr.service.InstanceCounts(ctx, sample)
	if err == nil {
		sum := 0
		for _, id := range sample {
			sum += counts[id]
		}
		estimate = sum * total / len(sample)
	}
	if err != nil || estimate == 0 {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			cr.logger.Warn("triple estimation failed, using heuristic",
				"jobID", cr.rec.ID, "error", err)
		}
		estimate = cr.triplesPerGuess * total
	}

	cr.progress.EstimatedTriples = estimate
	cr.publishSnapshot()
	return nil
}

// enrichProperties appends label/description metadata for every distinct
// predicate found in the written stream. A failed batch leaves its
// metadata out of the output; nothing here fails the job.
func (cr *crawl) enrichProperties(ctx context.Context) error {
	props, err := cr.streamProperties()
	if err != nil {
		return err
	}
	if len(props) == 0 {
		return nil
	}

	enriched := 0
	for batch := range batches(props, cr.propertyBatchSize) {
		if err := ctx.Err(); err != nil {
			return err
		}

		body, err := cr.service.Query(ctx, sparql.PropertyMetadataQuery(batch, cr.cfg.Language), wdqs.FormatNTriples)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			cr.logger.Warn("property metadata batch failed, skipping",
				"jobID", cr.rec.ID, "batchSize", len(batch), "error", err)
			continue
		}
		lines, err := cr.stream.Append(body)
		if err != nil {
			return err
		}
		enriched += len(batch)

		cr.rec.TripleCount += lines
		cr.progress.TriplesWritten = cr.rec.TripleCount
		cr.progress.Message = fmt.Sprintf("%d/%d properties enriched", enriched, len(props))
		cr.publishSnapshot()
	}

	cr.rec.PropertyCount = enriched
	return nil
}

// streamProperties scans the written stream for distinct direct-property
// identifiers, sorted numerically for deterministic batching.
func (cr *crawl) streamProperties() ([]model.EntityID, error) {
	seen := make(map[model.EntityID]struct{})
	err := scanStreamLines(cr.dir.StreamPath(), func(line string) {
		for _, m := range directPropertyPattern.FindAllStringSubmatch(line, -1) {
			id, err := model.NewEntityID(m[1])
			if err != nil {
				continue
			}
			seen[id] = struct{}{}
		}
	})
	if err != nil {
		return nil, err
	}

	props := make([]model.EntityID, 0, len(seen))
	for id := range seen {
		props = append(props, id)
	}
	sort.Slice(props, func(i, j int) bool { return props[i].Number() < props[j].Number() })
	return props, nil
}

// convertOutput decodes the completed stream and writes the compact
// Turtle artifact. Malformed lines are counted on the record, never
// fatal. This is the one phase that loads the whole dataset into
// memory, bounded in practice by the instance cap.
func (cr *crawl) convertOutput(ctx context.Context) error {
	if err := cr.stream.Sync(); err != nil {
		return err
	}

	res, err := rdf.DecodeFile(cr.dir.StreamPath())
	if err != nil {
		return err
	}
	cr.rec.SkippedLines = res.Skipped
	if res.Skipped > 0 {
		cr.logger.Warn("skipped malformed stream lines",
			"jobID", cr.rec.ID, "skipped", res.Skipped, "parsed", res.Parsed)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := createFile(cr.dir.TurtlePath())
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck // Double close on the success path is harmless

	if err := res.Graph.WriteTurtle(f); err != nil {
		return fmt.Errorf("failed to write turtle artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write turtle artifact: %w", err)
	}

	cr.progress.Message = fmt.Sprintf("%d statements, %d lines skipped", res.Graph.Len(), res.Skipped)
	cr.publishSnapshot()
	return nil
}
