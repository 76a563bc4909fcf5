package model

import "strings"

// Uncategorized is assigned to clauses that match no taxonomy category strongly enough
const Uncategorized = "UNCATEGORIZED"

// RiskLevel is the three-step risk scale shared by clauses and risk profiles
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Rank orders risk levels (LOW < MEDIUM < HIGH); unknown levels rank below LOW
func (l RiskLevel) Rank() int {
	switch l {
	case RiskHigh:
		return 3
	case RiskMedium:
		return 2
	case RiskLow:
		return 1
	default:
		return 0
	}
}

// ParseRiskLevel parses a case-insensitive level name
func ParseRiskLevel(s string) (RiskLevel, bool) {
	switch RiskLevel(strings.ToUpper(strings.TrimSpace(s))) {
	case RiskHigh:
		return RiskHigh, true
	case RiskMedium:
		return RiskMedium, true
	case RiskLow:
		return RiskLow, true
	}
	return "", false
}

// MaxRisk returns the higher of two levels
func MaxRisk(a, b RiskLevel) RiskLevel {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Clause is one classified segment of a document version
type Clause struct {
	Index       int       `json:"index"`
	Category    string    `json:"category"`
	Span        Span      `json:"span"`
	Heading     string    `json:"heading,omitempty"`
	Text        string    `json:"text"`
	RiskLevel   RiskLevel `json:"risk_level"`
	Confidence  float64   `json:"confidence"`
	RiskReasons []string  `json:"risk_reasons,omitempty"`
}

// RiskSummary aggregates clause risk for one document version
type RiskSummary struct {
	OverallRisk RiskLevel `json:"overall_risk"`
	High        int       `json:"high"`
	Medium      int       `json:"medium"`
	Low         int       `json:"low"`
}

// ComplianceDeviation flags a category whose clauses drift from the template wording
type ComplianceDeviation struct {
	Category   string  `json:"category"`
	Similarity float64 `json:"similarity"`
	Floor      float64 `json:"floor"`
}

// ClauseSet is the classifier output for one document version
type ClauseSet struct {
	Clauses        []Clause              `json:"clauses"`
	Counts         map[string]int        `json:"clause_counts"`
	MissingClauses []string              `json:"missing_clauses"`
	RiskSummary    RiskSummary           `json:"risk_summary"`
	Deviations     []ComplianceDeviation `json:"deviations,omitempty"`
}

// Categories returns the distinct categories present, in first-seen order
func (s ClauseSet) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range s.Clauses {
		if !seen[c.Category] {
			seen[c.Category] = true
			out = append(out, c.Category)
		}
	}
	return out
}

// ByCategory returns the clauses of one category, preserving order
func (s ClauseSet) ByCategory(category string) []Clause {
	var out []Clause
	for _, c := range s.Clauses {
		if c.Category == category {
			out = append(out, c)
		}
	}
	return out
}

// SummarizeRisk computes the aggregate risk summary:
// HIGH if any clause is HIGH, MEDIUM if at least two clauses are MEDIUM, LOW otherwise.
func SummarizeRisk(clauses []Clause) RiskSummary {
	var summary RiskSummary
	for _, c := range clauses {
		switch c.RiskLevel {
		case RiskHigh:
			summary.High++
		case RiskMedium:
			summary.Medium++
		default:
			summary.Low++
		}
	}

	switch {
	case summary.High > 0:
		summary.OverallRisk = RiskHigh
	case summary.Medium >= 2:
		summary.OverallRisk = RiskMedium
	default:
		summary.OverallRisk = RiskLow
	}
	return summary
}
