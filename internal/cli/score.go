package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/genera/compass/internal/pipeline"
)

var (
	outJSON      string
	outMD        string
	outSVG       string
	scoreTimeout time.Duration
	maxBytes     int64
)

// scoreCmd represents the score command
var scoreCmd = &cobra.Command{
	Use:   "score <file|url|->",
	Short: "Score a completed questionnaire document",
	Long: `Score reads a YAML or JSON document with the profile and one answer per
catalog item, prints the classification and writes the requested reports.

  catalog: compass
  profile:
    nickname: ada
  responses:
    q1: 5
    q2: 6
    ...

Incomplete, unknown or out-of-scale answers are rejected without a result.

Example:
  compass score answers.yaml
  compass score answers.yaml --json report.json --md report.md --svg chart.svg
  cat answers.json | compass score -`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path")
	scoreCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path")
	scoreCmd.Flags().StringVar(&outSVG, "svg", "", "output SVG chart path")
	scoreCmd.Flags().DurationVar(&scoreTimeout, "timeout", 2*time.Minute, "overall timeout, including export and narrative")
	scoreCmd.Flags().Int64Var(&maxBytes, "max-bytes", 1_000_000, "max bytes to read from a URL or stdin")
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), scoreTimeout)
	defer cancel()

	sub, err := pipeline.NewLoader(scoreTimeout, maxBytes).Load(ctx, args[0])
	if err != nil {
		return fmt.Errorf("load answers: %w", err)
	}

	p, err := pipeline.NewPipeline(ctx, cfg, pipeline.WithLogger(logger))
	if err != nil {
		return err
	}
	p.Renderer().SetOutput(cmd.OutOrStdout())

	if verbose {
		answered := len(sub.Responses)
		fmt.Fprintf(os.Stderr, "Scoring %d answers against catalog %s (export: %s)\n\n", answered, p.Catalog().Name(), p.ExportBackend())
	}

	report, err := p.Assess(ctx, *sub)
	if err != nil {
		return fmt.Errorf("score failed: %w", err)
	}

	if err := p.RenderReport(report, outJSON, outMD, outSVG); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	return nil
}
