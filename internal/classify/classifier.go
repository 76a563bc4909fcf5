package classify

import (
	"math"

	"github.com/cptntrps/contract-v2-sub001/internal/model"
	"github.com/cptntrps/contract-v2-sub001/internal/rules"
	"github.com/cptntrps/contract-v2-sub001/internal/util"
)

// ClauseClassifier segments one document version and classifies each clause
type ClauseClassifier struct {
	rules *rules.Set
}

// NewClauseClassifier creates a classifier over a compiled rule set
func NewClauseClassifier(set *rules.Set) *ClauseClassifier {
	if set == nil {
		set = rules.Default()
	}
	return &ClauseClassifier{rules: set}
}

// Classify splits text into clauses, assigns categories and risk levels,
// and derives missing clauses, the risk summary and compliance deviations
func (c *ClauseClassifier) Classify(text string) (model.ClauseSet, error) {
	if err := c.rules.CheckText("text", text); err != nil {
		return model.ClauseSet{}, err
	}

	segments := Split(text)
	clauses := make([]model.Clause, 0, len(segments))
	for i, seg := range segments {
		clause := model.Clause{
			Index:     i,
			Span:      seg.Span,
			Heading:   seg.Heading,
			Text:      text[seg.Span.Start:seg.Span.End],
			RiskLevel: model.RiskLow,
		}
		clause.Category, clause.Confidence = c.categorize(seg)
		if cat, ok := c.rules.Category(clause.Category); ok {
			clause.RiskLevel, clause.RiskReasons = assessRisk(cat, clause.Text)
		}
		clauses = append(clauses, clause)
	}

	return c.assemble(clauses), nil
}

// assemble derives the set-level fields from classified clauses
func (c *ClauseClassifier) assemble(clauses []model.Clause) model.ClauseSet {
	set := model.ClauseSet{
		Clauses:     clauses,
		Counts:      make(map[string]int),
		RiskSummary: model.SummarizeRisk(clauses),
	}
	for _, cl := range clauses {
		set.Counts[cl.Category]++
	}
	set.MissingClauses = MissingClauses(c.rules.Required, set.Counts)

	if c.rules.Config.Taxonomy.ComplianceCheck {
		set.Deviations = c.checkCompliance(set)
	}
	return set
}

// categorize scores the segment against every category. Each keyword hit halves
// the remaining doubt (score = 1 - 0.5^hits) and heading hits count double.
// Ties go to the category listed first in the taxonomy.
func (c *ClauseClassifier) categorize(seg Segment) (string, float64) {
	best, bestScore := "", 0.0
	for _, cat := range c.rules.Categories {
		hits := 0
		for _, kw := range cat.Keywords {
			hits += len(kw.FindAllStringIndex(seg.Body, -1))
			hits += 2 * len(kw.FindAllStringIndex(seg.Heading, -1))
		}
		if hits == 0 {
			continue
		}
		score := 1 - math.Pow(0.5, float64(hits))
		if score > bestScore {
			best, bestScore = cat.Name, score
		}
	}

	if best == "" || bestScore <= c.rules.Config.Taxonomy.MinScore {
		return model.Uncategorized, util.Round(1-bestScore, 4)
	}
	return best, util.Round(bestScore, 4)
}

// MissingClauses returns the required categories with no clause, in required order
func MissingClauses(required []string, counts map[string]int) []string {
	missing := []string{}
	for _, name := range required {
		if counts[name] == 0 {
			missing = append(missing, name)
		}
	}
	return missing
}

// checkCompliance compares the closest clause of each templated category
// against the reference wording
func (c *ClauseClassifier) checkCompliance(set model.ClauseSet) []model.ComplianceDeviation {
	floor := c.rules.Config.Taxonomy.ComplianceFloor
	var deviations []model.ComplianceDeviation
	for _, cat := range c.rules.Categories {
		if cat.Template == "" || set.Counts[cat.Name] == 0 {
			continue
		}
		best := 0.0
		for _, cl := range set.ByCategory(cat.Name) {
			best = math.Max(best, util.TokenSimilarity(cl.Text, cat.Template))
		}
		if best < floor {
			deviations = append(deviations, model.ComplianceDeviation{
				Category:   cat.Name,
				Similarity: util.Round(best, 4),
				Floor:      floor,
			})
		}
	}
	return deviations
}
