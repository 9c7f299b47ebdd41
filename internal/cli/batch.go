package cli

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/genera/compass/internal/export"
	"github.com/genera/compass/internal/model"
	"github.com/genera/compass/internal/pipeline"
	"github.com/genera/compass/internal/worker"
)

var (
	concurrency  int
	batchOut     string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <pattern>...",
	Short: "Re-score exported CSV rows in parallel",
	Long: `Batch reads CSV files in the export layout (profile columns followed by
one answer per item in canonical order), scores every row and prints one
line per row plus a summary. Patterns support ** globs. Nothing is
exported again.

Example:
  compass batch compass-responses.csv
  compass batch 'exports/**/*.csv' --concurrency 8 --out results.csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&batchOut, "out", "", "write per-row results as CSV to this path")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	// Re-scoring must never append rows again
	p, err := pipeline.NewPipeline(ctx, cfg, pipeline.WithLogger(logger), pipeline.WithExporter(export.Nop{}))
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Compass Batch Scoring\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Catalog:      %s\n", p.Catalog().Name())
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	processor := worker.NewBatchProcessor(p, concurrency)
	results, err := processor.ProcessFiles(ctx, args)
	if err != nil {
		return fmt.Errorf("process files: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, r := range results {
		if r.Error != nil {
			fmt.Fprintf(out, "✗ %s:%d: %v\n", r.File, r.Line, r.Error)
			continue
		}
		cls := r.Result.Classification
		fmt.Fprintf(out, "✓ %s:%d %s → %s (spread %.2f)\n", r.File, r.Line, displayName(r.Profile), cls.Dominant, cls.Spread)
	}

	if batchOut != "" {
		if err := writeBatchCSV(batchOut, results); err != nil {
			return fmt.Errorf("write results: %w", err)
		}
	}

	summary := worker.Summarize(results)
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Rows:      %d\n", summary.Rows)
	fmt.Fprintf(os.Stderr, "  Scored:    %d\n", summary.Rows-summary.Failed)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", summary.Failed)
	for _, tag := range sortedCategories(summary.Dominant) {
		fmt.Fprintf(os.Stderr, "  %-10s %d\n", string(tag)+":", summary.Dominant[tag])
	}
	fmt.Fprintf(os.Stderr, "\n")

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("batch stopped before every row was scored: %w", err)
	}
	return nil
}

func displayName(p model.Profile) string {
	if p.Nickname == "" {
		return "(anonymous)"
	}
	return p.Nickname
}

func sortedCategories(m map[model.Category]int) []model.Category {
	tags := make([]model.Category, 0, len(m))
	for tag := range m {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// writeBatchCSV writes one line per row: source, profile, classification
func writeBatchCSV(path string, results []*worker.RowResult) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return encodeBatchCSV(f, results)
}

func encodeBatchCSV(w io.Writer, results []*worker.RowResult) error {
	cw := csv.NewWriter(w)
	header := []string{"file", "line"}
	header = append(header, model.ProfileColumns...)
	header = append(header, "dominant", "spread", "error")
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range results {
		row := []string{r.File, strconv.Itoa(r.Line)}
		row = append(row, r.Profile.Fields()...)
		if r.Error != nil {
			row = append(row, "", "", r.Error.Error())
		} else {
			cls := r.Result.Classification
			row = append(row, string(cls.Dominant), strconv.FormatFloat(cls.Spread, 'f', 4, 64), "")
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
