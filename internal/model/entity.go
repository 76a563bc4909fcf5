package model

// EntityType classifies an extracted entity
type EntityType string

const (
	EntityMoney        EntityType = "MONEY"        // Currency amounts
	EntityDate         EntityType = "DATE"         // Calendar dates
	EntityOrganization EntityType = "ORGANIZATION" // Companies and other parties
	EntityObligation   EntityType = "OBLIGATION"   // Modal-verb duties ("shall deliver ...")
)

// Span is a half-open byte range [Start, End) into the source text
type Span struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Len returns the span length in bytes
func (s Span) Len() int {
	return s.End - s.Start
}

// Overlaps reports whether two spans share at least one byte
func (s Span) Overlaps(other Span) bool {
	return s.Start < other.End && other.Start < s.End
}

// Entity is a typed, confidence-scored span of document text
type Entity struct {
	Type       EntityType `json:"type"`
	Span       Span       `json:"span"`
	RawText    string     `json:"raw_text"`
	Normalized string     `json:"normalized_value"`
	Confidence float64    `json:"confidence"`
	Pattern    string     `json:"pattern,omitempty"` // Name of the rule that matched
}

// EntitySet is the extractor output for one document version
type EntitySet struct {
	Entities []Entity           `json:"entities"` // Sorted by span start
	Counts   map[EntityType]int `json:"counts"`
}

// OfType returns the entities of a single type, preserving order
func (s EntitySet) OfType(t EntityType) []Entity {
	var out []Entity
	for _, e := range s.Entities {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// EntityTypes lists the supported entity types in report order
var EntityTypes = []EntityType{EntityMoney, EntityDate, EntityOrganization, EntityObligation}

// IsEntityType reports whether t is a supported entity type
func IsEntityType(t EntityType) bool {
	for _, known := range EntityTypes {
		if t == known {
			return true
		}
	}
	return false
}
