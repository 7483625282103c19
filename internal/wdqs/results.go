package wdqs

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/nao1215/wdcrawl/internal/model"
	"github.com/nao1215/wdcrawl/internal/sparql"
)

// selectResult is the SPARQL JSON results envelope for SELECT queries.
// Only the fields we read are declared.
type selectResult struct {
	Results struct {
		Bindings []map[string]binding `json:"bindings"`
	} `json:"results"`
}

// binding is a single variable binding in a SELECT result row.
type binding struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Subclasses expands a class identifier into the set of all its transitive
// subclasses (the class itself included), bounded by limit.
//
// Expansion is best-effort at the orchestrator level; this method itself
// reports errors normally and leaves the fallback decision to the caller.
func (c *Client) Subclasses(ctx context.Context, class model.EntityID, limit int) ([]model.EntityID, error) {
	body, err := c.Query(ctx, sparql.SubclassClosureQuery(class, limit), FormatJSON)
	if err != nil {
		return nil, err
	}

	var result selectResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode subclass result: %w", err)
	}

	seen := map[model.EntityID]struct{}{class: {}}
	classes := []model.EntityID{class}
	for _, row := range result.Results.Bindings {
		b, ok := row["class"]
		if !ok {
			continue
		}
		id, ok := model.ParseEntityIDFromURI(b.Value)
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		classes = append(classes, id)
	}

	return classes, nil
}

// InstanceCounts returns the per-identifier count of truthy outgoing edges
// for a sample of identifiers. Identifiers with no edges are absent from
// the result map; callers should treat absence as zero.
func (c *Client) InstanceCounts(ctx context.Context, sample []model.EntityID) (map[model.EntityID]int, error) {
	body, err := c.Query(ctx, sparql.CountEstimateQuery(sample), FormatJSON)
	if err != nil {
		return nil, err
	}

	var result selectResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode count result: %w", err)
	}

	counts := make(map[model.EntityID]int, len(result.Results.Bindings))
	for _, row := range result.Results.Bindings {
		item, okItem := row["item"]
		count, okCount := row["count"]
		if !okItem || !okCount {
			continue
		}
		id, ok := model.ParseEntityIDFromURI(item.Value)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(count.Value)
		if err != nil {
			continue
		}
		counts[id] = n
	}

	return counts, nil
}
