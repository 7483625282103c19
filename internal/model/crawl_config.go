package model

import (
	"errors"

	"golang.org/x/text/language"
)

// Crawl configuration limits.
const (
	// MaxRadius is the largest allowed hop radius. Each additional hop
	// multiplies the frontier size, so the ceiling is deliberately low;
	// radius 6 already reaches most of the connected graph around a seed.
	MaxRadius = 6
)

// CrawlConfig validation errors.
var (
	// ErrNoTargetClass is returned when no target class is specified.
	ErrNoTargetClass = errors.New("no target class specified: provide at least one item identifier (e.g. Q5)")

	// ErrTargetNotItem is returned when a target class is a property
	// identifier. Only items can be crawled as classes.
	ErrTargetNotItem = errors.New("target class must be an item identifier (Q prefix)")

	// ErrInvalidRadius is returned when the hop radius is outside 1..MaxRadius.
	ErrInvalidRadius = errors.New("invalid radius: must be between 1 and 6")

	// ErrInvalidMaxInstances is returned when the instance cap is not positive.
	// A cap of zero would mean an empty crawl.
	ErrInvalidMaxInstances = errors.New("invalid max instances: must be positive")

	// ErrInvalidLanguage is returned when the label language tag does not
	// parse as a BCP 47 language tag.
	ErrInvalidLanguage = errors.New("invalid language: must be a BCP 47 language tag (e.g. en, de, ja)")
)

// CrawlConfig is the immutable input describing one crawl job.
// It is validated once before the job starts; the orchestrator treats it
// as read-only for the lifetime of the job.
type CrawlConfig struct {
	// TargetClasses are the item identifiers whose instances seed the
	// crawl. Must contain at least one item.
	TargetClasses []EntityID `json:"targetClasses"`

	// Radius is the number of breadth-first hops outward from the seed
	// instance set. Must be between 1 and MaxRadius.
	Radius int `json:"radius"`

	// MaxInstances caps the number of seed instances enumerated for the
	// first hop. The crawl is best-effort beyond this cap.
	MaxInstances int `json:"maxInstances"`

	// Language is the BCP 47 language tag used when retrieving labels,
	// descriptions, and aliases (e.g. "en").
	Language string `json:"language"`

	// ExpandSubclasses enables resolving each target class to its full
	// transitive subclass closure before enumerating instances.
	ExpandSubclasses bool `json:"expandSubclasses"`

	// FetchProperties enables the post-crawl enrichment pass that fetches
	// metadata for every predicate observed in the output stream.
	FetchProperties bool `json:"fetchProperties"`
}

// Validate checks if the crawl configuration is valid.
// It returns a specific sentinel error describing the first problem found.
func (c CrawlConfig) Validate() error {
	if len(c.TargetClasses) == 0 {
		return ErrNoTargetClass
	}

	for _, class := range c.TargetClasses {
		if !class.IsItem() {
			return ErrTargetNotItem
		}
	}

	if c.Radius < 1 || c.Radius > MaxRadius {
		return ErrInvalidRadius
	}

	if c.MaxInstances < 1 {
		return ErrInvalidMaxInstances
	}

	if _, err := language.Parse(c.Language); err != nil {
		return ErrInvalidLanguage
	}

	return nil
}
