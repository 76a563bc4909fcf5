package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/cptntrps/contract-v2-sub001/internal/cache"
	"github.com/cptntrps/contract-v2-sub001/internal/model"
	"github.com/cptntrps/contract-v2-sub001/internal/rules"
	"github.com/cptntrps/contract-v2-sub001/internal/util"
)

// Pipeline loads two document versions, compares them and renders the report
type Pipeline struct {
	loader   *Loader
	analyzer *Analyzer
	renderer *Renderer
	rules    *rules.Set
}

// NewPipeline wires the loader, analyzer and renderer from a compiled rule set
func NewPipeline(set *rules.Set, opts ...LoaderOption) *Pipeline {
	cfg := set.Config

	if cfg.Fetch.RespectRobots {
		opts = append(opts, WithRobots(util.NewRobotsChecker(cfg.Fetch.UserAgent, cfg.Fetch.Timeout)))
	}

	return &Pipeline{
		loader:   NewLoader(cfg.Fetch, cfg.Limits.MaxDocumentBytes, opts...),
		analyzer: NewAnalyzer(set, WithCache(cache.New(cfg.Cache), cfg.Cache.DiskTTL)),
		renderer: NewRenderer(cfg.Output.MaxEvidence, cfg.Output.Color),
		rules:    set,
	}
}

// Loader returns the document loader
func (p *Pipeline) Loader() *Loader { return p.loader }

// Analyzer returns the comparison engine
func (p *Pipeline) Analyzer() *Analyzer { return p.analyzer }

// CompareLocations loads two versions from files or URLs and compares them
func (p *Pipeline) CompareLocations(ctx context.Context, before, after string) (*model.Report, error) {
	// 1. Load both versions
	beforeDoc, err := p.loader.Load(ctx, before)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", before, err)
	}
	afterDoc, err := p.loader.Load(ctx, after)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", after, err)
	}

	// 2. Compare
	return p.CompareDocuments(ctx, beforeDoc, afterDoc)
}

// CompareDocuments compares two loaded versions and wraps the result in a report
func (p *Pipeline) CompareDocuments(ctx context.Context, before, after *Document) (*model.Report, error) {
	report := NewReport(nil, before.Meta, after.Meta, p.rules.Fingerprint)

	logger := zerolog.Ctx(ctx).With().Str("analysis_id", report.AnalysisID).Logger()
	ctx = logger.WithContext(ctx)

	result, err := p.analyzer.Compare(ctx, before.Text, after.Text)
	if err != nil {
		return nil, fmt.Errorf("compare: %w", err)
	}
	report.Result = result

	logger.Info().
		Str("before", before.Meta.Location).
		Str("after", after.Meta.Location).
		Float64("similarity", result.SimilarityScore).
		Str("overall_risk", string(result.OverallRiskLevel)).
		Msg("Comparison finished")

	return report, nil
}

// Baseline is a loaded and analysed reference version shared by many comparisons
type Baseline struct {
	Document *Document
	Version  *Version
}

// PrepareBaseline loads and analyses the reference version once
func (p *Pipeline) PrepareBaseline(ctx context.Context, location string) (*Baseline, error) {
	doc, err := p.loader.Load(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", location, err)
	}
	v, err := p.analyzer.AnalyzeDocument(ctx, "before", doc.Text)
	if err != nil {
		return nil, fmt.Errorf("analyze baseline: %w", err)
	}
	return &Baseline{Document: doc, Version: v}, nil
}

// CompareToBaseline loads one draft and compares it against a prepared baseline
func (p *Pipeline) CompareToBaseline(ctx context.Context, base *Baseline, location string) (*model.Report, error) {
	doc, err := p.loader.Load(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", location, err)
	}

	report := NewReport(nil, base.Document.Meta, doc.Meta, p.rules.Fingerprint)
	logger := zerolog.Ctx(ctx).With().Str("analysis_id", report.AnalysisID).Logger()
	ctx = logger.WithContext(ctx)

	v, err := p.analyzer.AnalyzeDocument(ctx, "after", doc.Text)
	if err != nil {
		return nil, fmt.Errorf("compare: %w", err)
	}
	report.Result = p.analyzer.Join(ctx, base.Version, v)
	return report, nil
}

// RenderReport writes the requested outputs and prints the summary to w
func (p *Pipeline) RenderReport(w io.Writer, report *model.Report, jsonPath, mdPath string, verbose bool) error {
	if jsonPath != "" {
		if err := p.renderer.RenderJSON(report, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			fmt.Fprintf(w, "✓ Wrote JSON: %s\n", jsonPath)
		}
	}

	if mdPath != "" {
		if err := p.renderer.RenderMarkdown(report, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			fmt.Fprintf(w, "✓ Wrote Markdown: %s\n", mdPath)
		}
	}

	p.renderer.RenderSummary(w, report)
	return nil
}
