package model

// DocumentAnalysis holds the leaf outputs for one document version
type DocumentAnalysis struct {
	Entities EntitySet `json:"entities"`
	Clauses  ClauseSet `json:"clauses"`
}

// AnalysisResult is the assembled comparison of two document versions.
// The top-level field names form the contract read by report generators;
// entity_counts, clause_counts, missing_clauses and risk_summary describe the after version.
type AnalysisResult struct {
	SimilarityScore  float64                  `json:"similarity_score"`
	ImpactScore      float64                  `json:"impact_score"`
	Insights         []Insight                `json:"insights"`
	EntityCounts     map[EntityType]int       `json:"entity_counts"`
	ClauseCounts     map[string]int           `json:"clause_counts"`
	MissingClauses   []string                 `json:"missing_clauses"`
	RiskSummary      RiskSummary              `json:"risk_summary"`
	RiskScores       map[RiskCategory]float64 `json:"risk_scores"`
	OverallRiskLevel RiskLevel                `json:"overall_risk_level"`
	Recommendations  []string                 `json:"recommendations"`

	Degraded    bool         `json:"analysis_degraded"`
	Diagnostics []string     `json:"diagnostics,omitempty"`
	RiskSignals []RiskSignal `json:"risk_signals,omitempty"`

	Before DocumentAnalysis `json:"before"`
	After  DocumentAnalysis `json:"after"`
}
