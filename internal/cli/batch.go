package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cptntrps/contract-v2-sub001/internal/pipeline"
	"github.com/cptntrps/contract-v2-sub001/internal/worker"
)

var (
	baselinePath string
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch --baseline <file> <list>",
	Short: "Compare many drafts against one baseline in parallel",
	Long: `Batch compares every draft listed in a file against a single baseline:
- Read draft paths or URLs from the list file (one per line, # for comments)
- Analyse the baseline once and share it across workers
- Compare drafts in parallel with a configurable worker count
- Write a JSON and Markdown report per draft

Example:
  contractdiff batch --baseline msa-template.txt drafts.txt
  contractdiff batch --baseline msa-template.txt drafts.txt --concurrency 8 --output-dir ./reports`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVar(&baselinePath, "baseline", "", "baseline document path or URL (required)")
	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default from config)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./contractdiff-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the analysis cache")
	_ = batchCmd.MarkFlagRequired("baseline")
}

func runBatch(cmd *cobra.Command, args []string) error {
	listFile := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlags(cfg)
	if concurrency > 0 {
		cfg.Concurrency.Workers = concurrency
	}

	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "  contractdiff batch comparison\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "  Baseline:     %s\n", baselinePath)
	fmt.Fprintf(stderr, "  Draft list:   %s\n", listFile)
	fmt.Fprintf(stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(stderr, "\n")

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}

	base, err := p.PrepareBaseline(ctx, baselinePath)
	if err != nil {
		return fmt.Errorf("baseline: %w", err)
	}

	processor := worker.NewBatchProcessor(p, cfg.Concurrency.Workers)
	results, err := processor.ProcessFile(ctx, base, listFile)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	renderer := pipeline.NewRenderer(cfg.Output.MaxEvidence, false)
	used := make(map[string]int)
	successCount := 0
	failureCount := 0

	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(stderr, "✗ %s: %v\n", result.Location, result.Error)
			continue
		}

		slug := uniqueSlug(used, sanitizeFilename(result.Report.After.Subject()))
		jsonPath := filepath.Join(outputDir, slug+".json")
		mdPath := filepath.Join(outputDir, slug+".md")

		if err := renderer.RenderJSON(result.Report, jsonPath); err != nil {
			failureCount++
			fmt.Fprintf(stderr, "✗ %s: failed to write JSON: %v\n", result.Location, err)
			continue
		}
		if err := renderer.RenderMarkdown(result.Report, mdPath); err != nil {
			failureCount++
			fmt.Fprintf(stderr, "✗ %s: failed to write Markdown: %v\n", result.Location, err)
			continue
		}

		successCount++
		res := result.Report.Result
		fmt.Fprintf(stderr, "✓ %s (similarity %.2f, risk %s, %d changes)\n",
			result.Location, res.SimilarityScore, res.OverallRiskLevel, len(res.Insights))
	}

	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "  Batch Complete\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "  Total:     %d drafts\n", len(results))
	fmt.Fprintf(stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(stderr, "\n")

	return nil
}

// sanitizeFilename turns a document subject into a safe report file name
func sanitizeFilename(s string) string {
	s = strings.TrimSuffix(s, filepath.Ext(s))

	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "-",
	)
	s = replacer.Replace(s)

	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" || s == "." || s == ".." {
		s = "draft"
	}
	return s
}

// uniqueSlug suffixes repeated names so drafts never overwrite each other
func uniqueSlug(used map[string]int, slug string) string {
	used[slug]++
	if n := used[slug]; n > 1 {
		return fmt.Sprintf("%s-%d", slug, n)
	}
	return slug
}
