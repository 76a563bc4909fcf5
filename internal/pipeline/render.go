package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/cptntrps/contract-v2-sub001/internal/model"
	"github.com/cptntrps/contract-v2-sub001/internal/score"
)

// NewReport wraps a result in a report envelope with a fresh analysis ID
func NewReport(result *model.AnalysisResult, before, after model.SourceMeta, fingerprint string) *model.Report {
	return &model.Report{
		AnalysisID:        uuid.NewString(),
		GeneratedAt:       time.Now().UTC(),
		ConfigFingerprint: fingerprint,
		Before:            before,
		After:             after,
		Result:            result,
	}
}

// Renderer writes reports as JSON, Markdown and a terminal summary
type Renderer struct {
	maxEvidence int
	color       bool
}

// NewRenderer creates a renderer; maxEvidence bounds evidence lines per insight in Markdown
func NewRenderer(maxEvidence int, useColor bool) *Renderer {
	return &Renderer{maxEvidence: maxEvidence, color: useColor}
}

// RenderJSON writes the report envelope as indented JSON to path
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// RenderMarkdown writes a human-readable report to path
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	var b strings.Builder
	r.WriteMarkdown(&b, report)
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// WriteMarkdown renders the Markdown report into w
func (r *Renderer) WriteMarkdown(w io.Writer, report *model.Report) {
	res := report.Result

	fmt.Fprintf(w, "# Contract comparison: %s → %s\n\n", report.Before.Subject(), report.After.Subject())
	fmt.Fprintf(w, "- Analysis ID: `%s`\n", report.AnalysisID)
	fmt.Fprintf(w, "- Generated: %s\n", report.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "- Similarity: **%.2f**\n", res.SimilarityScore)
	fmt.Fprintf(w, "- Impact: **%.2f**\n", res.ImpactScore)
	fmt.Fprintf(w, "- Overall risk: **%s**\n", res.OverallRiskLevel)
	if res.Degraded {
		fmt.Fprintf(w, "- ⚠️ Analysis degraded: %s\n", strings.Join(res.Diagnostics, "; "))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "## Risk profile")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "| Category | Score | Level |")
	fmt.Fprintln(w, "|---|---|---|")
	for _, rc := range model.RiskCategories {
		s := res.RiskScores[rc]
		fmt.Fprintf(w, "| %s | %.2f | %s |\n", rc, s, model.LevelForScore(s))
	}
	fmt.Fprintln(w)

	if len(res.Recommendations) > 0 {
		fmt.Fprintln(w, "## Recommendations")
		fmt.Fprintln(w)
		for _, rec := range res.Recommendations {
			fmt.Fprintf(w, "- %s\n", rec)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "## Changes (%d)\n\n", len(res.Insights))
	if len(res.Insights) == 0 {
		fmt.Fprintln(w, "No changes detected.")
		fmt.Fprintln(w)
	}
	for _, in := range res.Insights {
		fmt.Fprintf(w, "### %s\n\n", in.Description)
		fmt.Fprintf(w, "_%s, confidence %.2f_\n\n", in.Type, in.Confidence)
		for i, ev := range in.Evidence {
			if r.maxEvidence > 0 && i >= r.maxEvidence {
				fmt.Fprintf(w, "- … %d more\n", len(in.Evidence)-i)
				break
			}
			fmt.Fprintf(w, "- `%s`\n", strings.ReplaceAll(ev, "`", "'"))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "## After version")
	fmt.Fprintln(w)
	if len(res.MissingClauses) > 0 {
		fmt.Fprintf(w, "Missing required clauses: %s\n\n", strings.Join(res.MissingClauses, ", "))
	}
	fmt.Fprintln(w, "| Clause category | Count |")
	fmt.Fprintln(w, "|---|---|")
	for _, name := range sortedKeys(res.ClauseCounts) {
		fmt.Fprintf(w, "| %s | %d |\n", name, res.ClauseCounts[name])
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "| Entity type | Count |")
	fmt.Fprintln(w, "|---|---|")
	for _, t := range model.EntityTypes {
		fmt.Fprintf(w, "| %s | %d |\n", t, res.EntityCounts[t])
	}
	fmt.Fprintln(w)

	if len(res.RiskSignals) > 0 {
		fmt.Fprintln(w, "<details><summary>Scoring breakdown</summary>")
		fmt.Fprintln(w)
		for _, sig := range res.RiskSignals {
			fmt.Fprintf(w, "- %s\n", score.Describe(sig))
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, "</details>")
	}
}

// RenderSummary prints a short coloured summary
func (r *Renderer) RenderSummary(w io.Writer, report *model.Report) {
	res := report.Result
	level := levelColor(res.OverallRiskLevel)
	if !r.color {
		level.DisableColor()
	}

	fmt.Fprintf(w, "\n%s → %s\n", report.Before.Subject(), report.After.Subject())
	fmt.Fprintf(w, "  Similarity: %.2f  Impact: %.2f  Risk: %s\n",
		res.SimilarityScore, res.ImpactScore, level.Sprint(res.OverallRiskLevel))

	for _, rc := range model.RiskCategories {
		s := res.RiskScores[rc]
		c := levelColor(model.LevelForScore(s))
		if !r.color {
			c.DisableColor()
		}
		fmt.Fprintf(w, "    %-12s %s\n", rc, c.Sprintf("%.2f", s))
	}

	if len(res.MissingClauses) > 0 {
		fmt.Fprintf(w, "  Missing clauses: %s\n", strings.Join(res.MissingClauses, ", "))
	}
	fmt.Fprintf(w, "  Changes: %d\n", len(res.Insights))
	for _, rec := range res.Recommendations {
		fmt.Fprintf(w, "  • %s\n", rec)
	}
	if res.Degraded {
		warn := color.New(color.FgYellow)
		if !r.color {
			warn.DisableColor()
		}
		fmt.Fprintf(w, "  %s\n", warn.Sprintf("Degraded: %s", strings.Join(res.Diagnostics, "; ")))
	}
}

func levelColor(level model.RiskLevel) *color.Color {
	switch level {
	case model.RiskHigh:
		return color.New(color.FgRed, color.Bold)
	case model.RiskMedium:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
