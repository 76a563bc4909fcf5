package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cptntrps/contract-v2-sub001/internal/cache"
	"github.com/cptntrps/contract-v2-sub001/internal/classify"
	"github.com/cptntrps/contract-v2-sub001/internal/extract"
	"github.com/cptntrps/contract-v2-sub001/internal/model"
	"github.com/cptntrps/contract-v2-sub001/internal/rules"
	"github.com/cptntrps/contract-v2-sub001/internal/score"
	"github.com/cptntrps/contract-v2-sub001/internal/semantic"
	"github.com/cptntrps/contract-v2-sub001/internal/util"
)

// Analyzer runs the four analysis stages over two document versions.
// It holds only the compiled rule set and is safe for concurrent use.
type Analyzer struct {
	rules    *rules.Set
	entities *extract.EntityExtractor
	clauses  *classify.ClauseClassifier
	semantic *semantic.Analyzer
	risk     *score.RiskAnalyzer
	store    *cache.DocumentStore
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithCache reuses leaf outputs for document bodies already analysed
// under the same configuration. A nil cache is ignored.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(a *Analyzer) {
		if c != nil {
			a.store = cache.NewDocumentStore(c, a.rules.Fingerprint, ttl)
		}
	}
}

// NewAnalyzer creates an analyzer over a compiled rule set
func NewAnalyzer(set *rules.Set, opts ...Option) *Analyzer {
	if set == nil {
		set = rules.Default()
	}
	a := &Analyzer{
		rules:    set,
		entities: extract.NewEntityExtractor(set),
		clauses:  classify.NewClauseClassifier(set),
		semantic: semantic.NewAnalyzer(set),
		risk:     score.NewRiskAnalyzer(set),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Version is one document body with its leaf analysis
type Version struct {
	Text        string
	Analysis    model.DocumentAnalysis
	Diagnostics []string
}

// Compare analyses both versions and joins them into one result.
// Empty or oversize input fails before any stage runs.
func (a *Analyzer) Compare(ctx context.Context, before, after string) (*model.AnalysisResult, error) {
	// 1. Validate both bodies up front
	if err := errors.Join(a.rules.CheckText("before", before), a.rules.CheckText("after", after)); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 2. Leaf stages for both versions, concurrently
	var beforeVersion, afterVersion *Version
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := a.AnalyzeDocument(gctx, "before", before)
		beforeVersion = v
		return err
	})
	g.Go(func() error {
		v, err := a.AnalyzeDocument(gctx, "after", after)
		afterVersion = v
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// 3. Join
	return a.Join(ctx, beforeVersion, afterVersion), nil
}

// AnalyzeDocument runs entity extraction and clause classification over one body.
// field names the input in validation errors.
func (a *Analyzer) AnalyzeDocument(ctx context.Context, field, text string) (*Version, error) {
	if err := a.rules.CheckText(field, text); err != nil {
		return nil, err
	}

	log := zerolog.Ctx(ctx).With().Str("document", field).Logger()

	if a.store != nil {
		if doc, ok := a.store.Get(text); ok {
			log.Debug().Msg("Leaf analysis served from cache")
			return &Version{Text: text, Analysis: doc}, nil
		}
	}

	start := time.Now()
	var (
		entities    model.EntitySet
		clauses     model.ClauseSet
		mu          sync.Mutex
		diagnostics []string
	)
	degrade := func(err error) error {
		var se *stageError
		if !errors.As(err, &se) {
			return err
		}
		mu.Lock()
		diagnostics = append(diagnostics, fmt.Sprintf("%s: %v", field, err))
		mu.Unlock()
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		set, err := recovered("entities", func() (model.EntitySet, error) {
			return a.entities.Extract(text)
		})
		if err != nil {
			set = emptyEntitySet()
		}
		entities = set
		if err := degrade(err); err != nil {
			return fmt.Errorf("extract entities: %w", err)
		}
		return gctx.Err()
	})
	g.Go(func() error {
		set, err := recovered("clauses", func() (model.ClauseSet, error) {
			return a.clauses.Classify(text)
		})
		if err != nil {
			set = a.emptyClauseSet()
		}
		clauses = set
		if err := degrade(err); err != nil {
			return fmt.Errorf("classify clauses: %w", err)
		}
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	doc := model.DocumentAnalysis{Entities: entities, Clauses: clauses}
	log.Debug().
		Int("entities", len(entities.Entities)).
		Int("clauses", len(clauses.Clauses)).
		Dur("elapsed", time.Since(start)).
		Msg("Leaf analysis complete")

	if a.store != nil && len(diagnostics) == 0 {
		if err := a.store.Put(text, doc); err != nil {
			log.Warn().Err(err).Msg("Failed to cache leaf analysis")
		}
	}

	return &Version{Text: text, Analysis: doc, Diagnostics: diagnostics}, nil
}

// Join runs the semantic and risk stages over two analysed versions.
// Faults in either stage yield a degraded result rather than an error.
func (a *Analyzer) Join(ctx context.Context, before, after *Version) *model.AnalysisResult {
	log := zerolog.Ctx(ctx)
	diagnostics := append(append([]string{}, before.Diagnostics...), after.Diagnostics...)

	// 1. Semantic comparison
	sem, err := recovered("semantic", func() (semantic.Result, error) {
		return a.semantic.Analyze(semantic.Input{
			BeforeText: before.Text,
			AfterText:  after.Text,
			Before:     before.Analysis,
			After:      after.Analysis,
		}), nil
	})
	if err != nil {
		diagnostics = append(diagnostics, err.Error())
		sem = fallbackSemantic(before.Text, after.Text)
	}
	diagnostics = append(diagnostics, sem.Diagnostics...)

	// 2. Risk profile of the after version
	type riskOutput struct {
		profile     model.RiskProfile
		diagnostics []string
	}
	risk, err := recovered("risk", func() (riskOutput, error) {
		profile, diags := a.risk.Analyze(after.Analysis.Clauses, sem.Insights)
		return riskOutput{profile: profile, diagnostics: diags}, nil
	})
	if err != nil {
		diagnostics = append(diagnostics, err.Error())
		risk = riskOutput{profile: fallbackProfile(after.Analysis.Clauses)}
	}
	diagnostics = append(diagnostics, risk.diagnostics...)

	// 3. Assemble
	afterDoc := after.Analysis
	result := &model.AnalysisResult{
		SimilarityScore:  sem.Similarity,
		ImpactScore:      sem.Impact,
		Insights:         sem.Insights,
		EntityCounts:     afterDoc.Entities.Counts,
		ClauseCounts:     afterDoc.Clauses.Counts,
		MissingClauses:   afterDoc.Clauses.MissingClauses,
		RiskSummary:      afterDoc.Clauses.RiskSummary,
		RiskScores:       risk.profile.Scores,
		OverallRiskLevel: risk.profile.OverallLevel,
		Recommendations:  risk.profile.Recommendations,
		Degraded:         len(diagnostics) > 0,
		Diagnostics:      diagnostics,
		RiskSignals:      risk.profile.Signals,
		Before:           before.Analysis,
		After:            afterDoc,
	}
	if result.Insights == nil {
		result.Insights = []model.Insight{}
	}
	if result.ClauseCounts == nil {
		result.ClauseCounts = map[string]int{}
	}
	if result.MissingClauses == nil {
		result.MissingClauses = []string{}
	}

	if result.Degraded {
		log.Warn().Strs("diagnostics", diagnostics).Msg("Analysis degraded")
	}
	log.Debug().
		Float64("similarity", result.SimilarityScore).
		Float64("impact", result.ImpactScore).
		Int("insights", len(result.Insights)).
		Str("overall_risk", string(result.OverallRiskLevel)).
		Msg("Comparison complete")

	return result
}

// stageError is a recovered panic inside one stage
type stageError struct {
	stage string
	cause interface{}
}

func (e *stageError) Error() string {
	return fmt.Sprintf("%s: internal fault: %v", e.stage, e.cause)
}

// recovered runs fn, converting a panic into a stageError
func recovered[T any](stage string, fn func() (T, error)) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			out, err = zero, &stageError{stage: stage, cause: r}
		}
	}()
	return fn()
}

// fallbackSemantic scores on whole-text overlap alone
func fallbackSemantic(before, after string) semantic.Result {
	sim := util.Round(util.TokenSimilarity(before, after), 4)
	return semantic.Result{
		Similarity: sim,
		Impact:     util.Round(1-sim, 4),
		Multiplier: 1,
		Insights:   []model.Insight{},
	}
}

// fallbackProfile carries the clause summary level with zero category scores
func fallbackProfile(clauses model.ClauseSet) model.RiskProfile {
	profile := model.RiskProfile{
		Scores:          make(map[model.RiskCategory]float64, len(model.RiskCategories)),
		OverallLevel:    clauses.RiskSummary.OverallRisk,
		Recommendations: []string{},
	}
	for _, rc := range model.RiskCategories {
		profile.Scores[rc] = 0
	}
	if profile.OverallLevel == "" {
		profile.OverallLevel = model.RiskLow
	}
	return profile
}

func emptyEntitySet() model.EntitySet {
	set := model.EntitySet{Entities: []model.Entity{}, Counts: make(map[model.EntityType]int)}
	for _, t := range model.EntityTypes {
		set.Counts[t] = 0
	}
	return set
}

func (a *Analyzer) emptyClauseSet() model.ClauseSet {
	counts := map[string]int{}
	return model.ClauseSet{
		Clauses:        []model.Clause{},
		Counts:         counts,
		MissingClauses: classify.MissingClauses(a.rules.Required, counts),
		RiskSummary:    model.SummarizeRisk(nil),
	}
}
