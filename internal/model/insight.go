package model

// InsightType tags the variant carried by an Insight
type InsightType string

const (
	InsightEntityChange  InsightType = "entity_change"
	InsightClauseChange  InsightType = "clause_change"
	InsightSemanticShift InsightType = "semantic_shift"
)

// ClauseChangeKind describes how a clause category moved between versions
type ClauseChangeKind string

const (
	ClauseAdded   ClauseChangeKind = "added"
	ClauseRemoved ClauseChangeKind = "removed"
	ClauseChanged ClauseChangeKind = "changed"
)

// Insight describes one detected change between two document versions.
// Exactly one of Entity, Clause or Shift is set, matching Type.
type Insight struct {
	Type        InsightType `json:"insight_type"`
	Confidence  float64     `json:"confidence"`
	Description string      `json:"description"`
	Evidence    []string    `json:"evidence"`

	Entity *EntityChange  `json:"entity,omitempty"`
	Clause *ClauseChange  `json:"clause,omitempty"`
	Shift  *SemanticShift `json:"shift,omitempty"`
}

// EntityChange is the payload of an entity_change insight
type EntityChange struct {
	EntityType EntityType `json:"entity_type"`
	Added      []string   `json:"added"`   // Raw text of entities only in the after version
	Removed    []string   `json:"removed"` // Raw text of entities only in the before version
}

// ClauseChange is the payload of a clause_change insight
type ClauseChange struct {
	Category   string           `json:"category"`
	Kind       ClauseChangeKind `json:"kind"`
	RiskLevel  RiskLevel        `json:"risk_level"` // Highest risk among the affected clauses
	Clauses    int              `json:"clauses"`    // Number of affected clauses
	HighRisk   int              `json:"high_risk"`  // Affected after-version clauses rated HIGH
	Similarity float64          `json:"similarity,omitempty"`
}

// SemanticShift is the payload of a semantic_shift insight
type SemanticShift struct {
	TextSimilarity float64  `json:"text_similarity"`
	AddedTerms     []string `json:"added_terms"`
	RemovedTerms   []string `json:"removed_terms"`
}

// NewEntityChangeInsight builds an entity_change insight
func NewEntityChangeInsight(confidence float64, description string, evidence []string, change EntityChange) Insight {
	return Insight{
		Type:        InsightEntityChange,
		Confidence:  confidence,
		Description: description,
		Evidence:    evidence,
		Entity:      &change,
	}
}

// NewClauseChangeInsight builds a clause_change insight
func NewClauseChangeInsight(confidence float64, description string, evidence []string, change ClauseChange) Insight {
	return Insight{
		Type:        InsightClauseChange,
		Confidence:  confidence,
		Description: description,
		Evidence:    evidence,
		Clause:      &change,
	}
}

// NewSemanticShiftInsight builds a semantic_shift insight
func NewSemanticShiftInsight(confidence float64, description string, evidence []string, shift SemanticShift) Insight {
	return Insight{
		Type:        InsightSemanticShift,
		Confidence:  confidence,
		Description: description,
		Evidence:    evidence,
		Shift:       &shift,
	}
}
