package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/cptntrps/contract-v2-sub001/internal/model"
	"gopkg.in/yaml.v3"
)

// Set is the compiled, immutable form of a model.Config.
// It is safe for concurrent use by any number of analyses.
type Set struct {
	Config      model.Config
	Patterns    []Pattern
	Categories  []Category
	Required    []string // Required category names in taxonomy order
	Fingerprint string   // Stable hash of the analysis-relevant configuration

	byName map[string]int
}

// Pattern is a compiled entity matcher rule
type Pattern struct {
	Type       model.EntityType
	Name       string
	Regexp     *regexp.Regexp
	Confidence float64
}

// Category is a compiled taxonomy category
type Category struct {
	Name      string
	Keywords  []*regexp.Regexp
	Required  bool
	Template  string
	RiskRules []RiskRule
}

// RiskRule is a compiled per-clause risk check
type RiskRule struct {
	Kind      string
	Regexp    *regexp.Regexp // nil for max_days
	Level     model.RiskLevel
	Threshold int
	Reason    string
}

// Category returns the compiled category with the given name
func (s *Set) Category(name string) (Category, bool) {
	idx, ok := s.byName[name]
	if !ok {
		return Category{}, false
	}
	return s.Categories[idx], true
}

// Default compiles model.DefaultConfig. The built-in tables always compile.
func Default() *Set {
	set, err := Compile(model.DefaultConfig())
	if err != nil {
		panic(fmt.Sprintf("default rules do not compile: %v", err))
	}
	return set
}

// Compile validates cfg and compiles every pattern and table.
// All problems are reported together; each wraps model.ErrInvalidConfig.
func Compile(cfg *model.Config) (*Set, error) {
	if cfg == nil {
		return nil, model.NewValidationError(model.ErrInvalidConfig, "", "configuration is nil")
	}

	c := &compiler{}
	set := &Set{
		Config: *cfg,
		byName: make(map[string]int),
	}

	if cfg.Limits.MaxDocumentBytes <= 0 {
		c.fail("limits.max_document_bytes", "must be positive, got %d", cfg.Limits.MaxDocumentBytes)
	}

	set.Patterns = c.patterns(cfg.Entities)
	set.Categories = c.categories(cfg.Taxonomy)
	for i, cat := range set.Categories {
		set.byName[cat.Name] = i
		if cat.Required {
			set.Required = append(set.Required, cat.Name)
		}
	}

	c.similarity(cfg.Similarity)
	c.impact(cfg.Impact)
	c.risk(cfg.Risk)

	if len(c.errs) > 0 {
		return nil, errors.Join(c.errs...)
	}

	fp, err := Fingerprint(cfg)
	if err != nil {
		return nil, model.NewValidationError(model.ErrInvalidConfig, "", "fingerprint: %v", err)
	}
	set.Fingerprint = fp

	return set, nil
}

// Fingerprint hashes the sections of cfg that influence analysis output.
// Operational sections (cache, concurrency, output) are excluded.
func Fingerprint(cfg *model.Config) (string, error) {
	analysis := struct {
		Limits     model.LimitsConfig     `yaml:"limits"`
		Entities   model.EntityConfig     `yaml:"entities"`
		Taxonomy   model.TaxonomyConfig   `yaml:"taxonomy"`
		Similarity model.SimilarityConfig `yaml:"similarity"`
		Impact     model.ImpactConfig     `yaml:"impact"`
		Risk       model.RiskConfig       `yaml:"risk"`
	}{cfg.Limits, cfg.Entities, cfg.Taxonomy, cfg.Similarity, cfg.Impact, cfg.Risk}

	data, err := yaml.Marshal(analysis)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8]), nil
}

// compiler accumulates validation errors while compiling
type compiler struct {
	errs []error
}

func (c *compiler) fail(field, format string, args ...interface{}) {
	c.errs = append(c.errs, model.NewValidationError(model.ErrInvalidConfig, field, format, args...))
}

func (c *compiler) unit(field string, v float64) {
	if math.IsNaN(v) || v < 0 || v > 1 {
		c.fail(field, "must be within [0,1], got %v", v)
	}
}

func (c *compiler) nonNegative(field string, v float64) {
	if math.IsNaN(v) || v < 0 {
		c.fail(field, "must not be negative, got %v", v)
	}
}

func (c *compiler) compile(field, pattern string) *regexp.Regexp {
	re, err := regexp.Compile(pattern)
	if err != nil {
		c.fail(field, "invalid pattern: %v", err)
		return nil
	}
	return re
}

func (c *compiler) patterns(cfg model.EntityConfig) []Pattern {
	c.unit("entities.min_confidence", cfg.MinConfidence)
	if len(cfg.Patterns) == 0 {
		c.fail("entities.patterns", "at least one pattern is required")
	}

	compiled := make([]Pattern, 0, len(cfg.Patterns))
	for i, p := range cfg.Patterns {
		field := fmt.Sprintf("entities.patterns[%d]", i)
		if !model.IsEntityType(p.Type) {
			c.fail(field+".type", "unknown entity type %q", p.Type)
		}
		if p.Name == "" {
			c.fail(field+".name", "name is required")
		}
		c.unit(field+".confidence", p.Confidence)

		re := c.compile(field+".pattern", p.Pattern)
		if re == nil {
			continue
		}
		if re.MatchString("") {
			c.fail(field+".pattern", "pattern matches the empty string")
			continue
		}
		compiled = append(compiled, Pattern{
			Type:       p.Type,
			Name:       p.Name,
			Regexp:     re,
			Confidence: p.Confidence,
		})
	}
	return compiled
}

func (c *compiler) categories(cfg model.TaxonomyConfig) []Category {
	if math.IsNaN(cfg.MinScore) || cfg.MinScore < 0 || cfg.MinScore >= 1 {
		c.fail("taxonomy.min_score", "must be within [0,1), got %v", cfg.MinScore)
	}
	c.unit("taxonomy.compliance_floor", cfg.ComplianceFloor)
	if len(cfg.Categories) == 0 {
		c.fail("taxonomy.categories", "at least one category is required")
	}

	seen := make(map[string]bool)
	compiled := make([]Category, 0, len(cfg.Categories))
	for i, cat := range cfg.Categories {
		field := fmt.Sprintf("taxonomy.categories[%d]", i)
		switch {
		case cat.Name == "":
			c.fail(field+".name", "name is required")
			continue
		case cat.Name == model.Uncategorized:
			c.fail(field+".name", "%s is reserved", model.Uncategorized)
			continue
		case seen[cat.Name]:
			c.fail(field+".name", "duplicate category %q", cat.Name)
			continue
		}
		seen[cat.Name] = true

		if len(cat.Keywords) == 0 {
			c.fail(field+".keywords", "category %q has no keywords", cat.Name)
		}
		out := Category{
			Name:     cat.Name,
			Required: cat.Required,
			Template: cat.Template,
		}
		for j, kw := range cat.Keywords {
			re := c.compile(fmt.Sprintf("%s.keywords[%d]", field, j), keywordPattern(kw))
			if re != nil {
				out.Keywords = append(out.Keywords, re)
			}
		}
		for j, rule := range cat.RiskRules {
			if compiledRule, ok := c.riskRule(fmt.Sprintf("%s.risk_rules[%d]", field, j), rule); ok {
				out.RiskRules = append(out.RiskRules, compiledRule)
			}
		}
		compiled = append(compiled, out)
	}
	return compiled
}

// keywordPattern turns a keyword phrase into a case-insensitive whole-word matcher
func keywordPattern(keyword string) string {
	words := strings.Fields(keyword)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return `(?i)\b` + strings.Join(words, `\s+`) + `\b`
}

func (c *compiler) riskRule(field string, rule model.RiskRuleConfig) (RiskRule, bool) {
	level, ok := model.ParseRiskLevel(string(rule.Level))
	if !ok {
		c.fail(field+".level", "unknown risk level %q", rule.Level)
		return RiskRule{}, false
	}

	out := RiskRule{
		Kind:      rule.Kind,
		Level:     level,
		Threshold: rule.Threshold,
		Reason:    rule.Reason,
	}
	if out.Reason == "" {
		out.Reason = rule.Kind
	}

	switch rule.Kind {
	case model.RuleAbsent, model.RulePresent:
		if rule.Pattern == "" {
			c.fail(field+".pattern", "%s rule requires a pattern", rule.Kind)
			return RiskRule{}, false
		}
		out.Regexp = c.compile(field+".pattern", rule.Pattern)
		if out.Regexp == nil {
			return RiskRule{}, false
		}
	case model.RuleMaxDays:
		if rule.Threshold <= 0 {
			c.fail(field+".threshold", "max_days rule requires a positive threshold")
			return RiskRule{}, false
		}
	default:
		c.fail(field+".kind", "unknown rule kind %q", rule.Kind)
		return RiskRule{}, false
	}
	return out, true
}

func (c *compiler) similarity(cfg model.SimilarityConfig) {
	c.unit("similarity.entity_weight", cfg.EntityWeight)
	c.unit("similarity.clause_weight", cfg.ClauseWeight)
	c.unit("similarity.text_weight", cfg.TextWeight)
	sum := cfg.EntityWeight + cfg.ClauseWeight + cfg.TextWeight
	if math.Abs(sum-1) > 1e-6 {
		c.fail("similarity", "weights must sum to 1, got %v", sum)
	}
	c.unit("similarity.clause_change_floor", cfg.ClauseChangeFloor)
	c.unit("similarity.shift_floor", cfg.ShiftFloor)
	if cfg.MaxShiftTerms < 0 {
		c.fail("similarity.max_shift_terms", "must not be negative")
	}
}

func (c *compiler) impact(cfg model.ImpactConfig) {
	c.nonNegative("impact.money_boost", cfg.MoneyBoost)
	c.nonNegative("impact.obligation_boost", cfg.ObligationBoost)
	c.nonNegative("impact.high_risk_clause_boost", cfg.HighRiskClauseBoost)
	if math.IsNaN(cfg.MaxMultiplier) || cfg.MaxMultiplier < 1 {
		c.fail("impact.max_multiplier", "must be at least 1, got %v", cfg.MaxMultiplier)
	}
}

func (c *compiler) risk(cfg model.RiskConfig) {
	c.nonNegative("risk.clause_weight", cfg.ClauseWeight)
	c.nonNegative("risk.insight_weight", cfg.InsightWeight)
	c.unit("risk.high_score", cfg.HighScore)
	c.unit("risk.medium_score", cfg.MediumScore)
	c.unit("risk.single_medium_score", cfg.SingleMediumScore)
	c.unit("risk.missing_score", cfg.MissingScore)
	c.unit("risk.trigger", cfg.Trigger)

	targets := func(field string, cats []model.RiskCategory) {
		for _, rc := range cats {
			if !model.IsRiskCategory(rc) {
				c.fail(field, "unknown risk category %q", rc)
			}
		}
	}
	for name, cats := range cfg.CategoryMap {
		targets("risk.category_map."+name, cats)
	}
	for et, cats := range cfg.EntityMap {
		if !model.IsEntityType(et) {
			c.fail("risk.entity_map", "unknown entity type %q", et)
		}
		targets("risk.entity_map."+string(et), cats)
	}
	targets("risk.shift_targets", cfg.ShiftTargets)
	targets("risk.missing_targets", cfg.MissingTargets)

	for et, v := range cfg.Severity.Entity {
		c.unit("risk.severity.entity."+string(et), v)
	}
	c.unit("risk.severity.entity_default", cfg.Severity.EntityDefault)
	c.unit("risk.severity.clause_removed", cfg.Severity.ClauseRemoved)
	c.unit("risk.severity.shift", cfg.Severity.Shift)
	for level, v := range cfg.Severity.ClauseLevels {
		if _, ok := model.ParseRiskLevel(string(level)); !ok {
			c.fail("risk.severity.clause_levels", "unknown risk level %q", level)
		}
		c.unit("risk.severity.clause_levels."+string(level), v)
	}

	for i, rec := range cfg.Recommendations {
		field := fmt.Sprintf("risk.recommendations[%d]", i)
		if !model.IsRiskCategory(rec.Category) {
			c.fail(field+".category", "unknown risk category %q", rec.Category)
		}
		if rec.Trigger == "" {
			c.fail(field+".trigger", "trigger is required")
		}
		if strings.TrimSpace(rec.Text) == "" {
			c.fail(field+".text", "text is required")
		}
	}
}

// CheckText rejects empty and oversize document bodies before any analysis runs
func (s *Set) CheckText(field, text string) error {
	if strings.TrimSpace(text) == "" {
		return model.NewValidationError(model.ErrEmptyInput, field, "document is empty")
	}
	if limit := s.Config.Limits.MaxDocumentBytes; len(text) > limit {
		return model.NewValidationError(model.ErrInputTooLarge, field, "%d bytes exceeds the %d byte limit", len(text), limit)
	}
	return nil
}
