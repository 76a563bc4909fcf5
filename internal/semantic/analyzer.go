package semantic

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cptntrps/contract-v2-sub001/internal/model"
	"github.com/cptntrps/contract-v2-sub001/internal/rules"
	"github.com/cptntrps/contract-v2-sub001/internal/util"
)

const evidenceWidth = 160

// Analyzer compares the leaf outputs of two document versions
type Analyzer struct {
	rules *rules.Set
}

// NewAnalyzer creates a semantic analyzer over a compiled rule set
func NewAnalyzer(set *rules.Set) *Analyzer {
	if set == nil {
		set = rules.Default()
	}
	return &Analyzer{rules: set}
}

// Input is everything the analyzer joins on
type Input struct {
	BeforeText string
	AfterText  string
	Before     model.DocumentAnalysis
	After      model.DocumentAnalysis
}

// Components are the three similarity terms before weighting
type Components struct {
	Entity float64 `json:"entity"`
	Clause float64 `json:"clause"`
	Text   float64 `json:"text"`
}

// Result is the semantic comparison of two versions
type Result struct {
	Similarity  float64
	Impact      float64
	Multiplier  float64
	Components  Components
	Insights    []model.Insight
	Diagnostics []string
}

// Degraded reports whether the comparison ran on incomplete data
func (r Result) Degraded() bool {
	return len(r.Diagnostics) > 0
}

// Analyze diffs entities and clauses, scores similarity and impact,
// and returns insights ordered by confidence
func (a *Analyzer) Analyze(in Input) Result {
	var res Result
	if len(in.Before.Clauses.Clauses) == 0 {
		res.Diagnostics = append(res.Diagnostics, "semantic: before version has no clauses")
	}
	if len(in.After.Clauses.Clauses) == 0 {
		res.Diagnostics = append(res.Diagnostics, "semantic: after version has no clauses")
	}

	insights := []model.Insight{}

	// 1. Entity diff
	insights = append(insights, a.diffEntities(in.Before.Entities, in.After.Entities)...)

	// 2. Clause diff
	insights = append(insights, a.diffClauses(in.Before.Clauses, in.After.Clauses)...)

	// 3. Similarity
	res.Components = Components{
		Entity: entitySimilarity(in.Before.Entities, in.After.Entities),
		Clause: util.MultisetIoU(in.Before.Clauses.Counts, in.After.Clauses.Counts),
		Text:   util.TokenSimilarity(in.BeforeText, in.AfterText),
	}
	res.Similarity = a.similarity(res.Components)

	// 4. Whole-text shift
	if res.Components.Text < a.rules.Config.Similarity.ShiftFloor {
		insights = append(insights, a.shiftInsight(in.BeforeText, in.AfterText, res.Components.Text))
	}

	// 5. Impact
	res.Multiplier = a.multiplier(insights)
	res.Impact = util.Round(util.Clamp01((1-res.Similarity)*res.Multiplier), 4)

	SortInsights(insights)
	res.Insights = insights
	return res
}

// similarity weights the components. Identical versions score exactly 1.
func (a *Analyzer) similarity(c Components) float64 {
	if c.Entity == 1 && c.Clause == 1 && c.Text == 1 {
		return 1
	}
	w := a.rules.Config.Similarity
	sim := w.EntityWeight*c.Entity + w.ClauseWeight*c.Clause + w.TextWeight*c.Text
	return util.Round(util.Clamp01(sim), 4)
}

// multiplier grows with the severity of what changed, capped by configuration
func (a *Analyzer) multiplier(insights []model.Insight) float64 {
	cfg := a.rules.Config.Impact
	m := 1.0
	for _, in := range insights {
		switch {
		case in.Entity != nil && in.Entity.EntityType == model.EntityMoney:
			m += cfg.MoneyBoost
		case in.Entity != nil && in.Entity.EntityType == model.EntityObligation:
			m += cfg.ObligationBoost
		case in.Clause != nil && in.Clause.Kind != model.ClauseRemoved:
			m += cfg.HighRiskClauseBoost * float64(in.Clause.HighRisk)
		}
	}
	return min(m, cfg.MaxMultiplier)
}

// SortInsights orders by confidence desc, then insight type, then description
func SortInsights(insights []model.Insight) {
	sort.SliceStable(insights, func(i, j int) bool {
		a, b := insights[i], insights[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Description < b.Description
	})
}

var entityTemplates = map[model.EntityType]string{
	model.EntityMoney:        "Monetary amounts changed: %d added, %d removed",
	model.EntityDate:         "Dates changed: %d added, %d removed",
	model.EntityOrganization: "Parties changed: %d added, %d removed",
	model.EntityObligation:   "Obligations changed: %d added, %d removed",
}

// diffEntities matches entities by normalized value within each type.
// Unmatched after-entities are additions, unmatched before-entities removals.
func (a *Analyzer) diffEntities(before, after model.EntitySet) []model.Insight {
	var insights []model.Insight
	for _, t := range model.EntityTypes {
		pool := make(map[string][]model.Entity)
		for _, e := range before.OfType(t) {
			pool[e.Normalized] = append(pool[e.Normalized], e)
		}

		var added, removed []model.Entity
		for _, e := range after.OfType(t) {
			if matches := pool[e.Normalized]; len(matches) > 0 {
				pool[e.Normalized] = matches[1:]
				continue
			}
			added = append(added, e)
		}
		for _, e := range before.OfType(t) {
			if matches := pool[e.Normalized]; len(matches) > 0 && matches[0].Span == e.Span {
				pool[e.Normalized] = matches[1:]
				removed = append(removed, e)
			}
		}
		if len(added) == 0 && len(removed) == 0 {
			continue
		}

		change := model.EntityChange{EntityType: t, Added: []string{}, Removed: []string{}}
		var evidence []string
		total := 0.0
		for _, e := range added {
			change.Added = append(change.Added, e.RawText)
			evidence = append(evidence, e.RawText)
			total += e.Confidence
		}
		for _, e := range removed {
			change.Removed = append(change.Removed, e.RawText)
			evidence = append(evidence, e.RawText)
			total += e.Confidence
		}

		template, ok := entityTemplates[t]
		if !ok {
			template = string(t) + " entities changed: %d added, %d removed"
		}
		confidence := util.Round(total/float64(len(added)+len(removed)), 4)
		insights = append(insights, model.NewEntityChangeInsight(
			confidence,
			fmt.Sprintf(template, len(added), len(removed)),
			evidence,
			change,
		))
	}
	return insights
}

// entitySimilarity is the mean per-type IoU of normalized values,
// over the types present in either version
func entitySimilarity(before, after model.EntitySet) float64 {
	sum, types := 0.0, 0
	for _, t := range model.EntityTypes {
		b := normalizedValues(before.OfType(t))
		a := normalizedValues(after.OfType(t))
		if len(a) == 0 && len(b) == 0 {
			continue
		}
		sum += util.MultisetIoU(util.Multiset(b), util.Multiset(a))
		types++
	}
	if types == 0 {
		return 1
	}
	return sum / float64(types)
}

func normalizedValues(entities []model.Entity) []string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.Normalized
	}
	return out
}

// diffClauses reports categories added, removed, or reworded between versions.
// UNCATEGORIZED clauses carry no category to compare and are skipped.
func (a *Analyzer) diffClauses(before, after model.ClauseSet) []model.Insight {
	floor := a.rules.Config.Similarity.ClauseChangeFloor

	var insights []model.Insight
	for _, name := range a.categoryOrder(before, after) {
		b := before.ByCategory(name)
		af := after.ByCategory(name)

		switch {
		case len(b) == 0:
			insights = append(insights, clauseInsight(name, model.ClauseAdded, af, af, 0,
				fmt.Sprintf("Clause added: %s", name)))
		case len(af) == 0:
			insights = append(insights, clauseInsight(name, model.ClauseRemoved, b, nil, 0,
				fmt.Sprintf("Clause removed: %s", name)))
		default:
			changedAfter, simA := unmatched(af, b, floor)
			changedBefore, simB := unmatched(b, af, floor)
			if len(changedAfter) == 0 && len(changedBefore) == 0 {
				continue
			}
			sim := min(simA, simB)
			involved := append(append([]model.Clause{}, changedAfter...), changedBefore...)
			insights = append(insights, clauseInsight(name, model.ClauseChanged, involved, changedAfter, sim,
				fmt.Sprintf("Clause changed: %s (%.0f%% similar)", name, sim*100)))
		}
	}
	return insights
}

// categoryOrder lists the categories of both versions in taxonomy order
func (a *Analyzer) categoryOrder(before, after model.ClauseSet) []string {
	present := make(map[string]bool)
	for _, set := range []model.ClauseSet{before, after} {
		for _, c := range set.Clauses {
			if c.Category != model.Uncategorized {
				present[c.Category] = true
			}
		}
	}

	var order []string
	for _, cat := range a.rules.Categories {
		if present[cat.Name] {
			order = append(order, cat.Name)
			delete(present, cat.Name)
		}
	}
	var rest []string
	for name := range present {
		rest = append(rest, name)
	}
	sort.Strings(rest)
	return append(order, rest...)
}

// unmatched returns the clauses in from whose closest counterpart in to is
// below floor, and the lowest best-match similarity seen
func unmatched(from, to []model.Clause, floor float64) ([]model.Clause, float64) {
	var out []model.Clause
	lowest := 1.0
	for _, c := range from {
		best := 0.0
		for _, other := range to {
			best = max(best, util.TokenSimilarity(c.Text, other.Text))
		}
		lowest = min(lowest, best)
		if best < floor {
			out = append(out, c)
		}
	}
	return out, lowest
}

// clauseInsight builds a clause_change insight. involved supplies evidence,
// confidence and risk level; afterClauses are counted for HIGH risk.
func clauseInsight(category string, kind model.ClauseChangeKind, involved, afterClauses []model.Clause, sim float64, description string) model.Insight {
	change := model.ClauseChange{
		Category:   category,
		Kind:       kind,
		RiskLevel:  model.RiskLow,
		Clauses:    len(involved),
		Similarity: util.Round(sim, 4),
	}

	evidence := []string{}
	total := 0.0
	for _, c := range involved {
		change.RiskLevel = model.MaxRisk(change.RiskLevel, c.RiskLevel)
		total += c.Confidence
		evidence = append(evidence, util.Truncate(strings.Join(strings.Fields(c.Text), " "), evidenceWidth))
	}
	for _, c := range afterClauses {
		if c.RiskLevel == model.RiskHigh {
			change.HighRisk++
		}
	}

	confidence := 0.0
	if len(involved) > 0 {
		confidence = util.Round(total/float64(len(involved)), 4)
	}
	if change.HighRisk > 0 {
		description += fmt.Sprintf(", %d high-risk", change.HighRisk)
	}
	return model.NewClauseChangeInsight(confidence, description, evidence, change)
}

// shiftInsight summarizes a large whole-text divergence with the vocabulary that moved
func (a *Analyzer) shiftInsight(beforeText, afterText string, textSim float64) model.Insight {
	limit := a.rules.Config.Similarity.MaxShiftTerms
	beforeTokens := util.Tokens(beforeText)
	afterTokens := util.Tokens(afterText)

	added := termsMissingFrom(afterTokens, util.Multiset(beforeTokens), limit)
	removed := termsMissingFrom(beforeTokens, util.Multiset(afterTokens), limit)

	evidence := []string{}
	for _, t := range added {
		evidence = append(evidence, "+"+t)
	}
	for _, t := range removed {
		evidence = append(evidence, "-"+t)
	}

	return model.NewSemanticShiftInsight(
		util.Round(1-textSim, 4),
		fmt.Sprintf("Document text diverged: %.0f%% token overlap", textSim*100),
		evidence,
		model.SemanticShift{
			TextSimilarity: util.Round(textSim, 4),
			AddedTerms:     added,
			RemovedTerms:   removed,
		},
	)
}

// termsMissingFrom lists distinct tokens absent from other, in first-seen order
func termsMissingFrom(tokens []string, other map[string]int, limit int) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, t := range tokens {
		if len(out) >= limit {
			break
		}
		if other[t] > 0 || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
