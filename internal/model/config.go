package model

import "time"

// Config holds the complete analyzer configuration: the entity pattern library,
// the clause taxonomy, the similarity/impact/risk tables and operational settings.
// It is plain data; rules.Compile turns it into an immutable compiled set.
type Config struct {
	Limits      LimitsConfig      `yaml:"limits"`
	Entities    EntityConfig      `yaml:"entities"`
	Taxonomy    TaxonomyConfig    `yaml:"taxonomy"`
	Similarity  SimilarityConfig  `yaml:"similarity"`
	Impact      ImpactConfig      `yaml:"impact"`
	Risk        RiskConfig        `yaml:"risk"`
	Cache       CacheConfig       `yaml:"cache"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Fetch       FetchConfig       `yaml:"fetch"`
	Output      OutputConfig      `yaml:"output"`
}

// LimitsConfig bounds document size at the pipeline boundary
type LimitsConfig struct {
	MaxDocumentBytes int `yaml:"max_document_bytes"`
}

// EntityConfig is the entity pattern library
type EntityConfig struct {
	MinConfidence float64         `yaml:"min_confidence"` // Candidates below this after adjustment are dropped
	Patterns      []EntityPattern `yaml:"patterns"`       // Evaluated in order
}

// EntityPattern is one matcher rule. Named groups feed the type normalizer:
// MONEY uses symbol/code/amount/scale, DATE uses year/month/day,
// OBLIGATION uses modal/neg/action.
type EntityPattern struct {
	Type       EntityType `yaml:"type"`
	Name       string     `yaml:"name"`
	Pattern    string     `yaml:"pattern"`
	Confidence float64    `yaml:"confidence"`
}

// TaxonomyConfig is the clause category taxonomy
type TaxonomyConfig struct {
	MinScore        float64          `yaml:"min_score"`
	ComplianceCheck bool             `yaml:"compliance_check"`
	ComplianceFloor float64          `yaml:"compliance_floor"`
	Categories      []CategoryConfig `yaml:"categories"`
}

// CategoryConfig defines one clause category
type CategoryConfig struct {
	Name      string           `yaml:"name"`
	Keywords  []string         `yaml:"keywords"`
	Required  bool             `yaml:"required"`
	Template  string           `yaml:"template,omitempty"` // Reference wording for the compliance check
	RiskRules []RiskRuleConfig `yaml:"risk_rules,omitempty"`
}

// Risk rule kinds
const (
	RuleAbsent  = "absent"   // Level applies when the pattern is NOT found
	RulePresent = "present"  // Level applies when the pattern is found
	RuleMaxDays = "max_days" // Level applies when any "N days" period is below Threshold
)

// RiskRuleConfig is one per-clause risk check
type RiskRuleConfig struct {
	Kind      string    `yaml:"kind"`
	Pattern   string    `yaml:"pattern,omitempty"`
	Level     RiskLevel `yaml:"level"`
	Threshold int       `yaml:"threshold,omitempty"`
	Reason    string    `yaml:"reason"`
}

// SimilarityConfig weights the similarity score; the three weights must sum to 1
type SimilarityConfig struct {
	EntityWeight      float64 `yaml:"entity_weight"`
	ClauseWeight      float64 `yaml:"clause_weight"`
	TextWeight        float64 `yaml:"text_weight"`
	ClauseChangeFloor float64 `yaml:"clause_change_floor"` // Clause text similarity below this is a change
	ShiftFloor        float64 `yaml:"shift_floor"`         // Whole-text similarity below this is a semantic shift
	MaxShiftTerms     int     `yaml:"max_shift_terms"`
}

// ImpactConfig builds the severity multiplier
type ImpactConfig struct {
	MoneyBoost          float64 `yaml:"money_boost"`
	ObligationBoost     float64 `yaml:"obligation_boost"`
	HighRiskClauseBoost float64 `yaml:"high_risk_clause_boost"` // Per changed or added HIGH clause
	MaxMultiplier       float64 `yaml:"max_multiplier"`
}

// RiskConfig holds the risk weights and mapping tables
type RiskConfig struct {
	ClauseWeight      float64 `yaml:"clause_weight"`
	InsightWeight     float64 `yaml:"insight_weight"`
	HighScore         float64 `yaml:"high_score"`          // Clause component when any mapped clause is HIGH
	MediumScore       float64 `yaml:"medium_score"`        // ... when two or more are MEDIUM
	SingleMediumScore float64 `yaml:"single_medium_score"` // ... when exactly one is MEDIUM
	MissingScore      float64 `yaml:"missing_score"`       // Per missing required clause, reported in signals only
	Trigger           float64 `yaml:"trigger"`             // Recommendations fire above this score

	CategoryMap    map[string][]RiskCategory     `yaml:"category_map"`
	EntityMap      map[EntityType][]RiskCategory `yaml:"entity_map"`
	ShiftTargets   []RiskCategory                `yaml:"shift_targets"`
	MissingTargets []RiskCategory                `yaml:"missing_targets"`

	Severity        SeverityConfig         `yaml:"severity"`
	Recommendations []RecommendationConfig `yaml:"recommendations"`
}

// SeverityConfig converts insights into per-category severities
type SeverityConfig struct {
	Entity        map[EntityType]float64 `yaml:"entity"`
	EntityDefault float64                `yaml:"entity_default"`
	ClauseRemoved float64                `yaml:"clause_removed"`
	ClauseLevels  map[RiskLevel]float64  `yaml:"clause_levels"`
	Shift         float64                `yaml:"shift"`
}

// RecommendationConfig is one catalog entry keyed by (risk category, trigger).
// Trigger is a clause category, "entity:TYPE", "semantic_shift", "missing" or "*".
type RecommendationConfig struct {
	Category RiskCategory `yaml:"category"`
	Trigger  string       `yaml:"trigger"`
	Text     string       `yaml:"text"`
}

// CacheConfig controls the per-document analysis cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Dir       string        `yaml:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl"`
}

// ConcurrencyConfig sizes the batch worker pool
type ConcurrencyConfig struct {
	Workers int `yaml:"workers"`
}

// FetchConfig controls loading drafts from http(s) URLs
type FetchConfig struct {
	Timeout           time.Duration `yaml:"timeout"`
	UserAgent         string        `yaml:"user_agent"`
	Retries           int           `yaml:"retries"`             // Total attempts for transient failures
	RequestsPerSecond float64       `yaml:"requests_per_second"` // Per host
	Burst             int           `yaml:"burst"`
	RespectRobots     bool          `yaml:"respect_robots"`
	HTTPProxy         string        `yaml:"http_proxy,omitempty"`
	HTTPSProxy        string        `yaml:"https_proxy,omitempty"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Verbose     bool `yaml:"verbose"`
	Color       bool `yaml:"color"`
	MaxEvidence int  `yaml:"max_evidence"` // Evidence items shown per insight in Markdown
}

// Shared regex fragments for the default pattern library
const (
	amountPattern = `(?P<amount>\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?)`
	scalePattern  = `(?:\s?(?P<scale>million|billion|thousand))?`
	monthPattern  = `(?P<month>January|February|March|April|May|June|July|August|September|October|November|December)`
	isoCodes      = `USD|EUR|GBP|JPY|CHF|CAD|AUD|CNY|INR|SGD`
)

// DefaultConfig returns the built-in policy. All weights are tunable through YAML.
func DefaultConfig() *Config {
	return &Config{
		Limits: LimitsConfig{
			MaxDocumentBytes: 1 << 20,
		},
		Entities: EntityConfig{
			MinConfidence: 0.3,
			Patterns:      defaultEntityPatterns(),
		},
		Taxonomy: TaxonomyConfig{
			MinScore:        0.4,
			ComplianceCheck: true,
			ComplianceFloor: 0.2,
			Categories:      defaultCategories(),
		},
		Similarity: SimilarityConfig{
			EntityWeight:      0.3,
			ClauseWeight:      0.3,
			TextWeight:        0.4,
			ClauseChangeFloor: 0.8,
			ShiftFloor:        0.6,
			MaxShiftTerms:     10,
		},
		Impact: ImpactConfig{
			MoneyBoost:          0.5,
			ObligationBoost:     0.25,
			HighRiskClauseBoost: 0.25,
			MaxMultiplier:       3.0,
		},
		Risk: defaultRisk(),
		Cache: CacheConfig{
			Enabled:   false,
			Dir:       ".contractdiff/cache",
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Fetch: FetchConfig{
			Timeout:           30 * time.Second,
			UserAgent:         "contractdiff/1.0",
			Retries:           3,
			RequestsPerSecond: 1,
			Burst:             2,
		},
		Output: OutputConfig{
			Color:       true,
			MaxEvidence: 5,
		},
	}
}

func defaultEntityPatterns() []EntityPattern {
	return []EntityPattern{
		{Type: EntityMoney, Name: "money_symbol", Confidence: 0.9,
			Pattern: `(?P<symbol>[$€£¥])\s?` + amountPattern + scalePattern},
		{Type: EntityMoney, Name: "money_code_prefix", Confidence: 0.85,
			Pattern: `\b(?P<code>` + isoCodes + `)\s?` + amountPattern + scalePattern},
		{Type: EntityMoney, Name: "money_code_suffix", Confidence: 0.75,
			Pattern: amountPattern + scalePattern + `\s?(?P<code>` + isoCodes + `|dollars|euros|pounds)\b`},

		{Type: EntityDate, Name: "date_iso", Confidence: 0.95,
			Pattern: `\b(?P<year>\d{4})-(?P<month>\d{2})-(?P<day>\d{2})\b`},
		{Type: EntityDate, Name: "date_month_first", Confidence: 0.9,
			Pattern: `\b` + monthPattern + `\s+(?P<day>\d{1,2})(?:st|nd|rd|th)?,?\s+(?P<year>\d{4})\b`},
		{Type: EntityDate, Name: "date_day_first", Confidence: 0.9,
			Pattern: `\b(?P<day>\d{1,2})(?:st|nd|rd|th)?\s+(?:day\s+of\s+)?` + monthPattern + `,?\s+(?P<year>\d{4})\b`},
		{Type: EntityDate, Name: "date_numeric", Confidence: 0.7,
			Pattern: `\b(?P<month>\d{1,2})/(?P<day>\d{1,2})/(?P<year>\d{2}|\d{4})\b`},

		{Type: EntityOrganization, Name: "org_suffix", Confidence: 0.85,
			Pattern: `\b(?P<name>(?:[A-Z][\w&'-]*\s+){0,4}?[A-Z][\w&'-]*),?\s+(?P<suffix>Inc|Incorporated|Corp|Corporation|LLC|L\.L\.C|Ltd|Limited|LLP|GmbH|PLC|plc|Co|Company|AG|S\.A|N\.V|B\.V)\b`},
		{Type: EntityOrganization, Name: "org_capitalized", Confidence: 0.45,
			Pattern: `\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+){1,3}\b`},

		{Type: EntityObligation, Name: "obligation_modal", Confidence: 0.8,
			Pattern: `(?i)\b(?P<modal>shall|must|agrees?\s+to|is\s+required\s+to|undertakes?\s+to)(?P<neg>\s+not)?\s+(?P<action>[a-z][^.;:\n]{2,80})`},
		{Type: EntityObligation, Name: "obligation_will", Confidence: 0.5,
			Pattern: `(?i)\bwill(?P<neg>\s+not)?\s+(?P<action>[a-z][^.;:\n]{2,80})`},
	}
}

func defaultCategories() []CategoryConfig {
	return []CategoryConfig{
		{
			Name:     "payment",
			Keywords: []string{"payment", "payments", "pay", "fee", "fees", "invoice", "invoices", "compensation", "purchase price", "remit"},
			RiskRules: []RiskRuleConfig{
				{Kind: RulePresent, Level: RiskMedium, Reason: "late payment penalties",
					Pattern: `(?i)\blate\s+(?:fee|charge|payment\s+charge)s?\b|\binterest\s+(?:at|of)\s+\d`},
				{Kind: RulePresent, Level: RiskMedium, Reason: "non-refundable payments",
					Pattern: `(?i)\bnon-?refundable\b`},
			},
		},
		{
			Name:     "liability",
			Keywords: []string{"liability", "liable", "damages", "consequential", "limitation of liability"},
			Required: true,
			Template: "In no event shall either party's aggregate liability under this Agreement exceed the total fees paid in the twelve months preceding the claim.",
			RiskRules: []RiskRuleConfig{
				{Kind: RuleAbsent, Level: RiskHigh, Reason: "no liability cap",
					Pattern: `(?i)\bcap(?:ped)?\b|\bshall\s+not\s+exceed\b|\bnot\s+to\s+exceed\b|\bin\s+no\s+event\b|\blimited\s+to\b|\b(?:maximum|aggregate)\s+liability\b`},
				{Kind: RulePresent, Level: RiskHigh, Reason: "unlimited liability",
					Pattern: `(?i)\bunlimited\s+liability\b|\bliability\s+(?:is|shall\s+be)\s+unlimited\b`},
			},
		},
		{
			Name:     "indemnification",
			Keywords: []string{"indemnify", "indemnification", "indemnities", "hold harmless", "defend"},
			RiskRules: []RiskRuleConfig{
				{Kind: RulePresent, Level: RiskHigh, Reason: "uncapped indemnity",
					Pattern: `(?i)\bunlimited\b|\bwithout\s+limit(?:ation)?\b`},
				{Kind: RulePresent, Level: RiskMedium, Reason: "broad indemnity scope",
					Pattern: `(?i)\b(?:any\s+and\s+all|all)\s+(?:claims|losses|liabilities)\b`},
			},
		},
		{
			Name:     "termination",
			Keywords: []string{"terminate", "termination", "terminated", "expiration", "term of this agreement"},
			Required: true,
			Template: "Either party may terminate this Agreement upon thirty (30) days prior written notice to the other party.",
			RiskRules: []RiskRuleConfig{
				{Kind: RuleMaxDays, Level: RiskMedium, Threshold: 30, Reason: "notice period under 30 days"},
				{Kind: RulePresent, Level: RiskMedium, Reason: "termination without cause",
					Pattern: `(?i)\bterminate\b[^.]{0,60}\b(?:at\s+any\s+time|for\s+convenience|without\s+cause|immediately)\b`},
			},
		},
		{
			Name:     "confidentiality",
			Keywords: []string{"confidential", "confidentiality", "non-disclosure", "proprietary information", "trade secret", "trade secrets"},
			Required: true,
			Template: "Each party shall keep confidential all Confidential Information of the other party and shall not disclose it to any third party for a period of five (5) years.",
			RiskRules: []RiskRuleConfig{
				{Kind: RuleAbsent, Level: RiskMedium, Reason: "no confidentiality period",
					Pattern: `(?i)\b(?:\d+|one|two|three|four|five|seven|ten)\s*(?:\(\d+\)\s*)?years?\b|\bperpetu(?:al|ity)\b|\bsurviv(?:e|es|al)\b`},
			},
		},
		{
			Name:     "governing_law",
			Keywords: []string{"governing law", "governed by", "laws of", "jurisdiction", "venue"},
			Required: true,
			Template: "This Agreement shall be governed by and construed in accordance with the laws of the State of New York.",
		},
		{
			Name:     "dispute_resolution",
			Keywords: []string{"arbitration", "arbitrator", "dispute", "disputes", "mediation", "litigation"},
			RiskRules: []RiskRuleConfig{
				{Kind: RulePresent, Level: RiskMedium, Reason: "jury trial waiver",
					Pattern: `(?i)\bwaive[sd]?\b[^.]{0,40}\bjury\b`},
			},
		},
		{
			Name:     "intellectual_property",
			Keywords: []string{"intellectual property", "copyright", "patent", "patents", "trademark", "license", "licence", "work product"},
			RiskRules: []RiskRuleConfig{
				{Kind: RulePresent, Level: RiskMedium, Reason: "assignment of IP rights",
					Pattern: `(?i)\b(?:assigns?|transfers?)\b[^.]{0,40}\b(?:all|any)\b[^.]{0,20}\b(?:right|title|interest)`},
			},
		},
		{
			Name:     "warranty",
			Keywords: []string{"warranty", "warranties", "warrants", "as is", "merchantability", "fitness for a particular purpose"},
			RiskRules: []RiskRuleConfig{
				{Kind: RulePresent, Level: RiskMedium, Reason: "warranty disclaimer",
					Pattern: `(?i)\bas[ -]is\b|\bdisclaims?\b`},
			},
		},
		{
			Name:     "force_majeure",
			Keywords: []string{"force majeure", "act of god", "acts of god", "beyond its reasonable control"},
		},
		{
			Name:     "data_protection",
			Keywords: []string{"personal data", "data protection", "privacy", "gdpr", "data breach"},
			RiskRules: []RiskRuleConfig{
				{Kind: RuleAbsent, Level: RiskMedium, Reason: "no reference to data protection law",
					Pattern: `(?i)\bgdpr\b|\bdata\s+protection\s+(?:law|laws|regulation|legislation)\b|\bapplicable\s+(?:privacy|data\s+protection)\s+laws?\b`},
			},
		},
		{
			Name:     "renewal",
			Keywords: []string{"renew", "renewal", "renews", "automatically renew"},
			RiskRules: []RiskRuleConfig{
				{Kind: RulePresent, Level: RiskMedium, Reason: "automatic renewal",
					Pattern: `(?i)\bautomatic(?:ally)?\s+renew`},
			},
		},
	}
}

func defaultRisk() RiskConfig {
	return RiskConfig{
		ClauseWeight:      1.0,
		InsightWeight:     0.6,
		HighScore:         0.85,
		MediumScore:       0.55,
		SingleMediumScore: 0.3,
		MissingScore:      0.35,
		Trigger:           0.4,
		CategoryMap: map[string][]RiskCategory{
			"payment":               {RiskFinancial, RiskLegal},
			"liability":             {RiskLegal, RiskFinancial},
			"indemnification":       {RiskLegal, RiskFinancial},
			"termination":           {RiskLegal, RiskOperational},
			"confidentiality":       {RiskLegal, RiskCompliance},
			"governing_law":         {RiskLegal},
			"dispute_resolution":    {RiskLegal},
			"intellectual_property": {RiskLegal, RiskOperational},
			"warranty":              {RiskLegal, RiskOperational},
			"force_majeure":         {RiskLegal, RiskOperational},
			"data_protection":       {RiskLegal, RiskCompliance},
			"renewal":               {RiskLegal, RiskFinancial, RiskOperational},
			Uncategorized:           {RiskLegal},
		},
		EntityMap: map[EntityType][]RiskCategory{
			EntityMoney:        {RiskFinancial},
			EntityObligation:   {RiskLegal, RiskOperational},
			EntityDate:         {RiskOperational},
			EntityOrganization: {RiskLegal},
		},
		ShiftTargets:   []RiskCategory{RiskLegal},
		MissingTargets: []RiskCategory{RiskCompliance, RiskLegal},
		Severity: SeverityConfig{
			Entity: map[EntityType]float64{
				EntityMoney:        1.0,
				EntityObligation:   0.9,
				EntityDate:         0.6,
				EntityOrganization: 0.5,
			},
			EntityDefault: 0.5,
			ClauseRemoved: 0.8,
			ClauseLevels: map[RiskLevel]float64{
				RiskHigh:   1.0,
				RiskMedium: 0.6,
				RiskLow:    0.3,
			},
			Shift: 0.5,
		},
		Recommendations: defaultRecommendations(),
	}
}

func defaultRecommendations() []RecommendationConfig {
	return []RecommendationConfig{
		{Category: RiskFinancial, Trigger: "liability", Text: "Negotiate liability caps to limit exposure."},
		{Category: RiskFinancial, Trigger: "indemnification", Text: "Limit indemnification obligations to third-party claims and cap them."},
		{Category: RiskFinancial, Trigger: "payment", Text: "Review payment terms, late fees and refund conditions with finance."},
		{Category: RiskFinancial, Trigger: "renewal", Text: "Require advance notice before any automatic renewal or price change."},
		{Category: RiskFinancial, Trigger: "entity:MONEY", Text: "Confirm the revised monetary amounts against the approved budget."},
		{Category: RiskFinancial, Trigger: "*", Text: "Review the financial exposure introduced by this draft."},

		{Category: RiskLegal, Trigger: "liability", Text: "Negotiate liability caps to limit exposure."},
		{Category: RiskLegal, Trigger: "indemnification", Text: "Narrow the indemnification scope to claims arising from the other party's breach."},
		{Category: RiskLegal, Trigger: "termination", Text: "Extend the termination notice period to at least 30 days."},
		{Category: RiskLegal, Trigger: "intellectual_property", Text: "Clarify ownership and licence-back terms for intellectual property."},
		{Category: RiskLegal, Trigger: "warranty", Text: "Seek minimum performance warranties instead of an as-is disclaimer."},
		{Category: RiskLegal, Trigger: "dispute_resolution", Text: "Review dispute resolution terms, including any jury trial waiver."},
		{Category: RiskLegal, Trigger: "entity:OBLIGATION", Text: "Review new or removed obligations with the responsible business owner."},
		{Category: RiskLegal, Trigger: "semantic_shift", Text: "Have counsel review the redrafted sections in full."},
		{Category: RiskLegal, Trigger: "missing", Text: "Add the missing required clauses before signing."},
		{Category: RiskLegal, Trigger: "*", Text: "Have counsel review the changed legal terms."},

		{Category: RiskOperational, Trigger: "termination", Text: "Plan transition arrangements for early termination."},
		{Category: RiskOperational, Trigger: "renewal", Text: "Track renewal deadlines so the contract does not roll over unnoticed."},
		{Category: RiskOperational, Trigger: "entity:DATE", Text: "Verify the revised dates against delivery and renewal schedules."},
		{Category: RiskOperational, Trigger: "entity:OBLIGATION", Text: "Confirm the team can perform the revised obligations."},
		{Category: RiskOperational, Trigger: "*", Text: "Assess the operational impact of the revised commitments."},

		{Category: RiskCompliance, Trigger: "confidentiality", Text: "Define a confidentiality period and permitted disclosures."},
		{Category: RiskCompliance, Trigger: "data_protection", Text: "Reference applicable data protection law and breach notification duties."},
		{Category: RiskCompliance, Trigger: "missing", Text: "Add the missing required clauses to meet the contract template."},
		{Category: RiskCompliance, Trigger: "*", Text: "Check the draft against the compliance template."},
	}
}
