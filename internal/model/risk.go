package model

// RiskCategory is one axis of the risk profile
type RiskCategory string

const (
	RiskFinancial   RiskCategory = "financial"
	RiskLegal       RiskCategory = "legal"
	RiskOperational RiskCategory = "operational"
	RiskCompliance  RiskCategory = "compliance"
)

// RiskCategories lists the profile axes in report order
var RiskCategories = []RiskCategory{RiskFinancial, RiskLegal, RiskOperational, RiskCompliance}

// IsRiskCategory reports whether c is one of the four profile axes
func IsRiskCategory(c RiskCategory) bool {
	for _, known := range RiskCategories {
		if c == known {
			return true
		}
	}
	return false
}

// LevelForScore maps a category score onto the three-step scale.
// 0.7 and 0.4 are inclusive lower bounds for HIGH and MEDIUM.
func LevelForScore(score float64) RiskLevel {
	switch {
	case score >= 0.7:
		return RiskHigh
	case score >= 0.4:
		return RiskMedium
	default:
		return RiskLow
	}
}

// RiskProfile is the multi-category risk assessment of the after version
type RiskProfile struct {
	Scores          map[RiskCategory]float64 `json:"scores"`
	OverallLevel    RiskLevel                `json:"overall_level"`
	Recommendations []string                 `json:"recommendations"`
	Signals         []RiskSignal             `json:"signals"`
}

// RiskSignal records how one category score was composed
type RiskSignal struct {
	Category         RiskCategory           `json:"category"`
	Score            float64                `json:"score"`
	Level            RiskLevel              `json:"level"`
	ClauseComponent  float64                `json:"clause_component"`
	InsightComponent float64                `json:"insight_component"`
	MissingComponent float64                `json:"missing_component"`
	Triggers         []string               `json:"triggers,omitempty"` // Clause categories or entity:TYPE keys that contributed
	Data             map[string]interface{} `json:"data,omitempty"`     // Transparent scoring data (weights, formula)
}
