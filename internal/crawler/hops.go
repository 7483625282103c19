package crawler

import (
	"bufio"
	"context"
	"fmt"
	"iter"
	"os"
	"regexp"
	"strings"

	"github.com/nao1215/wdcrawl/internal/model"
	"github.com/nao1215/wdcrawl/internal/sparql"
	"github.com/nao1215/wdcrawl/internal/wdqs"
)

// objectEntityPattern matches a statement line whose object is an item
// reference. Only object-position matches seed the next hop's frontier;
// subjects are by construction already visited.
var objectEntityPattern = regexp.MustCompile(`<http://www\.wikidata\.org/entity/(Q[1-9][0-9]*)> \.$`)

// directPropertyPattern matches direct-property references anywhere in a
// statement line, used by the enrichment scan.
var directPropertyPattern = regexp.MustCompile(`<http://www\.wikidata\.org/prop/direct/(P[1-9][0-9]*)>`)

// fetchHops runs the breadth-first hop loop, radius times or until the
// frontier drains. Each hop marks its frontier visited before fetching,
// partitions it into fixed batches, and appends each batch's response
// verbatim to the stream.
func (cr *crawl) fetchHops(ctx context.Context) error {
	for hop := 1; hop <= cr.cfg.Radius; hop++ {
		// Filter out identifiers visited at an earlier hop. An empty
		// filtered set ends the loop: later frontiers derive only from
		// this hop's output, so nothing new can appear.
		next := cr.frontier[:0:0]
		for _, id := range cr.frontier {
			if _, dup := cr.visited[id]; dup {
				continue
			}
			next = append(next, id)
		}
		if len(next) == 0 {
			cr.logger.Debug("frontier drained", "jobID", cr.rec.ID, "hop", hop)
			return nil
		}

		// Mark before fetch so a failed batch is never re-queued for
		// the same identifiers later.
		for _, id := range next {
			cr.visited[id] = struct{}{}
		}
		cr.rec.VisitedCount = len(cr.visited)

		cr.progress.Hop = hop
		cr.progress.ItemsSeen = cr.rec.VisitedCount
		cr.publishSnapshot()

		lastHop := hop == cr.cfg.Radius
		var frontier []model.EntityID
		for batch := range batches(next, cr.edgeBatchSize) {
			if err := ctx.Err(); err != nil {
				return err
			}

			body, err := cr.service.Query(ctx, sparql.EdgeBatchQuery(batch, cr.cfg.Language), wdqs.FormatNTriples)
			if err != nil {
				return fmt.Errorf("hop %d batch of %d failed: %w", hop, len(batch), err)
			}

			lines, err := cr.stream.Append(body)
			if err != nil {
				return err
			}
			cr.rec.TripleCount += lines

			if !lastHop {
				frontier = cr.appendNeighbors(frontier, body)
			}

			cr.progress.TriplesWritten = cr.rec.TripleCount
			cr.progress.Message = fmt.Sprintf("hop %d/%d", hop, cr.cfg.Radius)
			cr.publishSnapshot()
		}

		cr.frontier = frontier
	}
	return nil
}

// appendNeighbors extracts unvisited entity identifiers from object
// positions in a batch response and accumulates them for the next hop.
func (cr *crawl) appendNeighbors(frontier []model.EntityID, body []byte) []model.EntityID {
	seen := make(map[model.EntityID]struct{}, len(frontier))
	for _, id := range frontier {
		seen[id] = struct{}{}
	}

	for line := range strings.Lines(string(body)) {
		m := objectEntityPattern.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		id, err := model.NewEntityID(m[1])
		if err != nil {
			continue
		}
		if _, dup := cr.visited[id]; dup {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		frontier = append(frontier, id)
	}
	return frontier
}

// batches yields fixed-size slices of ids in order. The final batch may
// be short.
func batches(ids []model.EntityID, size int) iter.Seq[[]model.EntityID] {
	return func(yield func([]model.EntityID) bool) {
		for start := 0; start < len(ids); start += size {
			end := min(start+size, len(ids))
			if !yield(ids[start:end]) {
				return
			}
		}
	}
}

// scanStreamLines calls fn for every non-empty line of the file at path.
func scanStreamLines(path string, fn func(line string)) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open triple stream: %w", err)
	}
	defer f.Close() //nolint:errcheck // Read-only file

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fn(line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to scan triple stream: %w", err)
	}
	return nil
}

// createFile creates or truncates the file at path.
func createFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return f, nil
}
