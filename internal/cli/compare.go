package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/cptntrps/contract-v2-sub001/internal/model"
	"github.com/cptntrps/contract-v2-sub001/internal/pipeline"
	"github.com/cptntrps/contract-v2-sub001/internal/rules"
	"github.com/cptntrps/contract-v2-sub001/internal/worker"
)

var (
	outJSON string
	outMD   string
	timeout time.Duration
	noCache bool
	noColor bool
)

// compareCmd represents the compare command
var compareCmd = &cobra.Command{
	Use:   "compare <before> <after>",
	Short: "Compare two versions of a contract",
	Long: `Compare loads two versions of a document (plain text, Markdown or HTML files,
or http(s) URLs) and reports:
- Entity changes (amounts, dates, organizations, obligations)
- Clause additions, removals and rewording
- Missing required clauses
- Risk scores per category with recommendations

Example:
  contractdiff compare msa-v1.txt msa-v2.txt
  contractdiff compare msa-v1.txt msa-v2.html --json diff.json --md diff.md
  contractdiff compare https://example.com/terms-2024 https://example.com/terms-2025`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().StringVar(&outJSON, "json", "", "output JSON report path (optional)")
	compareCmd.Flags().StringVar(&outMD, "md", "", "output Markdown report path (optional)")
	compareCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall comparison timeout")
	compareCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the analysis cache")
	compareCmd.Flags().BoolVar(&noColor, "no-color", false, "disable coloured output")
}

func runCompare(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlags(cfg)

	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}

	report, err := p.CompareLocations(ctx, args[0], args[1])
	if err != nil {
		return err
	}

	return p.RenderReport(cmd.OutOrStdout(), report, outJSON, outMD, cfg.Output.Verbose)
}

// applyFlags lets command-line flags win over file and environment settings
func applyFlags(cfg *model.Config) {
	if noCache {
		cfg.Cache.Enabled = false
	}
	if noColor {
		cfg.Output.Color = false
	}
}

// newPipeline compiles the configuration and wires the per-host fetch limiter
func newPipeline(cfg *model.Config) (*pipeline.Pipeline, error) {
	set, err := rules.Compile(cfg)
	if err != nil {
		return nil, err
	}
	limiter := worker.NewLimiter(cfg.Fetch.RequestsPerSecond, cfg.Fetch.Burst)
	return pipeline.NewPipeline(set, pipeline.WithThrottle(limiter)), nil
}
