package model

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// EntityID errors.
var (
	// ErrEmptyEntityID is returned when the identifier is empty.
	ErrEmptyEntityID = errors.New("entity identifier cannot be empty")
	// ErrInvalidEntityID is returned when the identifier format is invalid.
	ErrInvalidEntityID = errors.New("invalid entity identifier format")
)

// Wikidata RDF namespace URIs. These are the only namespaces the crawler
// emits identifiers into, and the only ones it extracts identifiers from.
const (
	// EntityURIPrefix is the namespace of items and properties as entities.
	EntityURIPrefix = "http://www.wikidata.org/entity/"
	// DirectPropertyURIPrefix is the namespace of truthy (direct) claim
	// predicates, the flattened statement form without qualifiers.
	DirectPropertyURIPrefix = "http://www.wikidata.org/prop/direct/"
)

// entityIDPattern matches a well-formed Wikidata identifier: an item (Q42)
// or a property (P31). Leading zeros are not valid.
var entityIDPattern = regexp.MustCompile(`^[QP][1-9][0-9]*$`)

// EntityID is an immutable value object representing a Wikidata entity
// identifier (item Qn or property Pn). It validates the identifier format
// on construction so that downstream query builders can embed it in query
// text without further escaping.
//
// Design decision: We validate at construction rather than at the point of
// query building because:
//  1. Invalid identifiers fail fast with a clear error
//  2. Builders can stay pure string assembly with no error path
//  3. A validated EntityID is safe against query injection by definition
type EntityID struct {
	id string // Normalized identifier, e.g. "Q42" or "P31"
}

// NewEntityID creates a new EntityID from a string.
// The input is trimmed and upper-cased before validation.
// Returns an error if the identifier does not match the expected format.
func NewEntityID(id string) (EntityID, error) {
	if id == "" {
		return EntityID{}, ErrEmptyEntityID
	}

	normalized := strings.ToUpper(strings.TrimSpace(id))
	if !entityIDPattern.MatchString(normalized) {
		return EntityID{}, ErrInvalidEntityID
	}

	return EntityID{id: normalized}, nil
}

// MustNewEntityID creates a new EntityID or panics if invalid.
// Use only for known-valid identifiers in tests or initialization.
func MustNewEntityID(id string) EntityID {
	e, err := NewEntityID(id)
	if err != nil {
		panic(err)
	}
	return e
}

// String returns the identifier in its canonical form (e.g. "Q42").
func (e EntityID) String() string {
	return e.id
}

// IsItem returns true if this is an item identifier (Q prefix).
func (e EntityID) IsItem() bool {
	return strings.HasPrefix(e.id, "Q")
}

// IsProperty returns true if this is a property identifier (P prefix).
func (e EntityID) IsProperty() bool {
	return strings.HasPrefix(e.id, "P")
}

// Number returns the numeric portion of the identifier.
// Returns 0 for the zero value.
func (e EntityID) Number() int {
	if e.id == "" {
		return 0
	}
	n, err := strconv.Atoi(e.id[1:])
	if err != nil {
		return 0
	}
	return n
}

// URI returns the full entity URI (http://www.wikidata.org/entity/Q42).
func (e EntityID) URI() string {
	return EntityURIPrefix + e.id
}

// DirectPropertyURI returns the truthy-claim predicate URI for a property
// (http://www.wikidata.org/prop/direct/P31). Only meaningful for properties.
func (e EntityID) DirectPropertyURI() string {
	return DirectPropertyURIPrefix + e.id
}

// IsZero returns true if this is a zero value (empty) EntityID.
func (e EntityID) IsZero() bool {
	return e.id == ""
}

// MarshalJSON implements json.Marshaler, encoding the canonical form.
func (e EntityID) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(e.id)), nil
}

// UnmarshalJSON implements json.Unmarshaler, validating the identifier.
func (e *EntityID) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return err
	}
	parsed, err := NewEntityID(s)
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// ParseEntityIDFromURI extracts an EntityID from an entity-namespace URI.
// Returns the EntityID and true if the URI is in the entity namespace and
// carries a well-formed identifier, or zero value and false otherwise.
func ParseEntityIDFromURI(uri string) (EntityID, bool) {
	local, ok := strings.CutPrefix(uri, EntityURIPrefix)
	if !ok {
		local, ok = strings.CutPrefix(uri, DirectPropertyURIPrefix)
		if !ok {
			return EntityID{}, false
		}
	}

	e, err := NewEntityID(local)
	if err != nil {
		return EntityID{}, false
	}
	return e, true
}

// EntityIDStrings converts a slice of EntityIDs to their canonical string
// forms, preserving order.
func EntityIDStrings(ids []EntityID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
