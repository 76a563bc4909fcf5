package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cptntrps/contract-v2-sub001/internal/model"
	"github.com/cptntrps/contract-v2-sub001/internal/pipeline"
)

// Comparer compares one draft against a prepared baseline
type Comparer interface {
	CompareToBaseline(ctx context.Context, base *pipeline.Baseline, location string) (*model.Report, error)
}

// CompareJob compares one draft location against the shared baseline
type CompareJob struct {
	Location string
	Baseline *pipeline.Baseline
	Comparer Comparer
}

// Execute executes the comparison
func (j *CompareJob) Execute(ctx context.Context) Result {
	start := time.Now()
	report, err := j.Comparer.CompareToBaseline(ctx, j.Baseline, j.Location)
	return &CompareResult{
		Location: j.Location,
		Report:   report,
		Error:    err,
		Elapsed:  time.Since(start),
	}
}

// CompareResult is the outcome of one draft comparison
type CompareResult struct {
	Location string
	Report   *model.Report
	Error    error
	Elapsed  time.Duration
}

// GetError returns the error from the comparison
func (r *CompareResult) GetError() error {
	return r.Error
}

// BatchProcessor compares many drafts against one baseline concurrently
type BatchProcessor struct {
	comparer    Comparer
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(comparer Comparer, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		comparer:    comparer,
		concurrency: concurrency,
	}
}

// Process compares each location against base. Results follow the input order.
func (b *BatchProcessor) Process(ctx context.Context, base *pipeline.Baseline, locations []string) []*CompareResult {
	if len(locations) == 0 {
		return []*CompareResult{}
	}

	log := zerolog.Ctx(ctx)
	log.Info().Int("drafts", len(locations)).Int("workers", b.concurrency).Msg("Starting batch comparison")

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, loc := range locations {
		if !pool.Submit(&CompareJob{Location: loc, Baseline: base, Comparer: b.comparer}) {
			break
		}
	}

	results := pool.Wait()

	out := make([]*CompareResult, len(results))
	failed := 0
	for i, r := range results {
		out[i] = r.(*CompareResult)
		if out[i].Error != nil {
			failed++
			log.Warn().Err(out[i].Error).Str("draft", out[i].Location).Msg("Comparison failed")
		}
	}
	log.Info().Int("completed", len(out)-failed).Int("failed", failed).Msg("Batch comparison finished")

	return out
}

// ProcessFile reads draft locations from a file and compares them against base
func (b *BatchProcessor) ProcessFile(ctx context.Context, base *pipeline.Baseline, filePath string) ([]*CompareResult, error) {
	locations, err := ReadPathsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read draft list: %w", err)
	}

	return b.Process(ctx, base, locations), nil
}

// ReadPathsFromFile reads draft paths or URLs, one per line.
// Blank lines and # comments are skipped; duplicates keep their first position.
func ReadPathsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return paths, nil
}
