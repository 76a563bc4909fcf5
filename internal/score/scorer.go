package score

import (
	"fmt"

	"github.com/cptntrps/contract-v2-sub001/internal/model"
	"github.com/cptntrps/contract-v2-sub001/internal/rules"
	"github.com/cptntrps/contract-v2-sub001/internal/util"
)

// RiskAnalyzer scores the after version across the four risk categories
type RiskAnalyzer struct {
	rules *rules.Set
}

// NewRiskAnalyzer creates a new risk analyzer
func NewRiskAnalyzer(set *rules.Set) *RiskAnalyzer {
	if set == nil {
		set = rules.Default()
	}
	return &RiskAnalyzer{rules: set}
}

// contribution is one input to a category score
type contribution struct {
	severity float64
	trigger  string
}

// Analyze builds the risk profile from the after-version clauses and the change insights.
// An empty clause set still yields a profile from the insights alone, with a diagnostic.
// Missing required clauses appear in the signals and recommendations but do not change any score.
func (s *RiskAnalyzer) Analyze(clauses model.ClauseSet, insights []model.Insight) (model.RiskProfile, []string) {
	var diagnostics []string
	if len(clauses.Clauses) == 0 {
		diagnostics = append(diagnostics, "risk: after version has no clauses, scores reflect insights only")
	}

	cfg := s.rules.Config.Risk
	profile := model.RiskProfile{
		Scores:          make(map[model.RiskCategory]float64, len(model.RiskCategories)),
		OverallLevel:    model.RiskLow,
		Recommendations: []string{},
	}

	// 1. Clause risk levels through the category mapping table
	clauseParts := s.clauseComponents(clauses.Clauses)

	// 2. Insight severities through the same tables
	insightParts := s.insightContributions(insights)

	// 3. Missing required clauses, informational only
	missing := util.Clamp01(float64(len(clauses.MissingClauses)) * cfg.MissingScore)

	maxScore := 0.0
	for _, rc := range model.RiskCategories {
		cp := clauseParts[rc]

		insightPart := 0.0
		for _, c := range insightParts[rc] {
			insightPart = max(insightPart, c.severity)
		}

		missingPart := 0.0
		if containsCategory(cfg.MissingTargets, rc) {
			missingPart = missing
		}

		score := util.Round(util.Clamp01(cfg.ClauseWeight*cp.value+cfg.InsightWeight*insightPart), 4)
		profile.Scores[rc] = score
		maxScore = max(maxScore, score)

		triggers := append([]string{}, cp.triggers...)
		for _, c := range insightParts[rc] {
			triggers = appendUnique(triggers, c.trigger)
		}
		if missingPart > 0 {
			triggers = appendUnique(triggers, "missing")
		}

		profile.Signals = append(profile.Signals, model.RiskSignal{
			Category:         rc,
			Score:            score,
			Level:            model.LevelForScore(score),
			ClauseComponent:  cp.value,
			InsightComponent: util.Round(insightPart, 4),
			MissingComponent: util.Round(missingPart, 4),
			Triggers:         triggers,
			Data: map[string]interface{}{
				"clause_weight":  cfg.ClauseWeight,
				"insight_weight": cfg.InsightWeight,
				"formula":        "clamp01(clause_weight*clause + insight_weight*max(insight))",
			},
		})
	}

	// 4. Overall level from the worst category
	profile.OverallLevel = model.LevelForScore(maxScore)

	// 5. Recommendations
	profile.Recommendations = s.recommend(profile.Signals)

	return profile, diagnostics
}

type clausePart struct {
	value    float64
	triggers []string
}

// clauseComponents maps each clause onto risk categories and scores each category:
// high_score if any mapped clause is HIGH, medium_score for two or more MEDIUM,
// single_medium_score for exactly one MEDIUM, else 0
func (s *RiskAnalyzer) clauseComponents(clauses []model.Clause) map[model.RiskCategory]clausePart {
	cfg := s.rules.Config.Risk
	high := make(map[model.RiskCategory]bool)
	medium := make(map[model.RiskCategory]int)
	triggers := make(map[model.RiskCategory][]string)

	for _, c := range clauses {
		if c.RiskLevel != model.RiskHigh && c.RiskLevel != model.RiskMedium {
			continue
		}
		for _, rc := range s.targetsForClause(c.Category) {
			if c.RiskLevel == model.RiskHigh {
				high[rc] = true
			} else {
				medium[rc]++
			}
			triggers[rc] = appendUnique(triggers[rc], c.Category)
		}
	}

	parts := make(map[model.RiskCategory]clausePart, len(model.RiskCategories))
	for _, rc := range model.RiskCategories {
		var value float64
		switch {
		case high[rc]:
			value = cfg.HighScore
		case medium[rc] >= 2:
			value = cfg.MediumScore
		case medium[rc] == 1:
			value = cfg.SingleMediumScore
		}
		parts[rc] = clausePart{value: value, triggers: triggers[rc]}
	}
	return parts
}

// insightContributions converts each insight into a severity for every category it maps to
func (s *RiskAnalyzer) insightContributions(insights []model.Insight) map[model.RiskCategory][]contribution {
	cfg := s.rules.Config.Risk
	out := make(map[model.RiskCategory][]contribution)

	for _, in := range insights {
		var (
			targets []model.RiskCategory
			factor  float64
			trigger string
		)
		switch {
		case in.Entity != nil:
			targets = cfg.EntityMap[in.Entity.EntityType]
			factor = cfg.Severity.EntityDefault
			if f, ok := cfg.Severity.Entity[in.Entity.EntityType]; ok {
				factor = f
			}
			trigger = "entity:" + string(in.Entity.EntityType)
		case in.Clause != nil:
			targets = s.targetsForClause(in.Clause.Category)
			factor = cfg.Severity.ClauseLevels[in.Clause.RiskLevel]
			if in.Clause.Kind == model.ClauseRemoved {
				factor = cfg.Severity.ClauseRemoved
			}
			trigger = in.Clause.Category
		case in.Shift != nil:
			targets = cfg.ShiftTargets
			factor = cfg.Severity.Shift
			trigger = string(model.InsightSemanticShift)
		default:
			continue
		}

		severity := util.Clamp01(in.Confidence * factor)
		if severity == 0 {
			continue
		}
		for _, rc := range targets {
			out[rc] = append(out[rc], contribution{severity: severity, trigger: trigger})
		}
	}
	return out
}

// targetsForClause looks up the mapping table; unmapped categories count as legal
func (s *RiskAnalyzer) targetsForClause(category string) []model.RiskCategory {
	if targets, ok := s.rules.Config.Risk.CategoryMap[category]; ok {
		return targets
	}
	return []model.RiskCategory{model.RiskLegal}
}

// recommend emits catalog entries for every category above the trigger threshold.
// Entries keyed by a matching trigger win; otherwise the category's "*" entries apply.
// "missing" entries fire whenever a required clause is absent, whatever the score.
func (s *RiskAnalyzer) recommend(signals []model.RiskSignal) []string {
	cfg := s.rules.Config.Risk
	recommendations := []string{}
	seen := make(map[string]bool)
	add := func(text string) {
		if !seen[text] {
			seen[text] = true
			recommendations = append(recommendations, text)
		}
	}

	for _, sig := range signals {
		if sig.Score <= cfg.Trigger {
			if sig.MissingComponent > 0 {
				for _, rec := range cfg.Recommendations {
					if rec.Category == sig.Category && rec.Trigger == "missing" {
						add(rec.Text)
					}
				}
			}
			continue
		}

		matched := false
		for _, trigger := range sig.Triggers {
			for _, rec := range cfg.Recommendations {
				if rec.Category == sig.Category && rec.Trigger == trigger {
					add(rec.Text)
					matched = true
				}
			}
		}
		if matched {
			continue
		}
		for _, rec := range cfg.Recommendations {
			if rec.Category == sig.Category && rec.Trigger == "*" {
				add(rec.Text)
			}
		}
	}
	return recommendations
}

// Describe renders a one-line summary of a signal for logs and reports
func Describe(sig model.RiskSignal) string {
	return fmt.Sprintf("%s %.2f (%s): clause %.2f, insight %.2f, missing %.2f",
		sig.Category, sig.Score, sig.Level, sig.ClauseComponent, sig.InsightComponent, sig.MissingComponent)
}

func containsCategory(list []model.RiskCategory, rc model.RiskCategory) bool {
	for _, c := range list {
		if c == rc {
			return true
		}
	}
	return false
}

func appendUnique(list []string, item string) []string {
	for _, existing := range list {
		if existing == item {
			return list
		}
	}
	return append(list, item)
}
