package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/genera/compass/internal/catalog"
	"github.com/genera/compass/internal/chart"
	"github.com/genera/compass/internal/export"
	"github.com/genera/compass/internal/llm"
	"github.com/genera/compass/internal/logging"
	"github.com/genera/compass/internal/model"
	"github.com/genera/compass/internal/score"
)

// Pipeline runs one submission through validate, score, chart, export and
// narrative, and assembles the report
type Pipeline struct {
	catalog  *catalog.Catalog
	scorer   *score.Scorer
	exporter *export.BestEffort
	narrator *llm.Narrator // Optional (nil or disabled)
	renderer *Renderer
	logger   *logging.Logger
	config   *model.Config
	now      func() time.Time
}

// Option customizes a Pipeline
type Option func(*options)

type options struct {
	catalog  *catalog.Catalog
	exporter export.Exporter
	narrator *llm.Narrator
	logger   *logging.Logger
	now      func() time.Time
}

// WithCatalog uses c instead of loading cfg.Catalog
func WithCatalog(c *catalog.Catalog) Option {
	return func(o *options) { o.catalog = c }
}

// WithExporter uses exp instead of the backend named in the configuration
func WithExporter(exp export.Exporter) Option {
	return func(o *options) { o.exporter = exp }
}

// WithNarrator uses n instead of the configured LLM provider
func WithNarrator(n *llm.Narrator) Option {
	return func(o *options) { o.narrator = n }
}

// WithLogger sets the logger
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock sets the time source of Report.CreatedAt
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// NewPipeline validates cfg and wires every stage. Any failure here is a
// configuration error and must stop the program before a session starts.
func NewPipeline(ctx context.Context, cfg *model.Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.Nop()
	}
	if o.now == nil {
		o.now = time.Now
	}

	c := o.catalog
	if c == nil {
		loaded, err := catalog.Load(cfg.Catalog)
		if err != nil {
			return nil, err
		}
		c = loaded
	}
	c, err := c.WithScaleMax(cfg.Scoring.ScaleMax)
	if err != nil {
		return nil, err
	}

	exp := o.exporter
	if exp == nil {
		exp, err = export.New(ctx, cfg.Export, c)
		if err != nil {
			return nil, err
		}
	}

	narrator := o.narrator
	if narrator == nil && cfg.LLM.Provider != "" {
		narrator, err = llm.NewNarrator(llm.ConfigFromModel(cfg.LLM))
		if err != nil {
			// The narrative is optional; run without it
			o.logger.Warn("narrative disabled", "provider", cfg.LLM.Provider, "error", err)
			narrator = nil
		}
	}

	return &Pipeline{
		catalog:  c,
		scorer:   score.NewScorer(score.OptionsFromConfig(cfg.Scoring)),
		exporter: export.NewBestEffort(exp, cfg.Export, o.logger),
		narrator: narrator,
		renderer: NewRenderer(cfg.Output.Verbose),
		logger:   o.logger.With("component", "pipeline", "catalog", c.Name()),
		config:   cfg,
		now:      o.now,
	}, nil
}

// Catalog returns the catalog the pipeline scores against
func (p *Pipeline) Catalog() *catalog.Catalog {
	return p.catalog
}

// Renderer returns the report renderer
func (p *Pipeline) Renderer() *Renderer {
	return p.renderer
}

// ExportBackend names the export backend in use
func (p *Pipeline) ExportBackend() string {
	return p.exporter.Backend()
}

// Score validates and scores responses without exporting anything
func (p *Pipeline) Score(responses model.ResponseSet) (model.Result, error) {
	return p.scorer.Score(responses, p.catalog)
}

// Assess scores the submission and runs the best-effort stages. Only a
// validation failure is returned as an error; export and narrative
// problems end up in Report.Warnings.
func (p *Pipeline) Assess(ctx context.Context, sub Submission) (*model.Report, error) {
	if sub.Catalog != "" && sub.Catalog != p.catalog.Name() {
		return nil, fmt.Errorf("%w: submission targets catalog %q, scoring uses %q", model.ErrValidation, sub.Catalog, p.catalog.Name())
	}
	if sub.SessionID != "" {
		ctx = logging.ContextWithSessionID(ctx, sub.SessionID)
	}

	// 1. Validate and score
	result, err := p.scorer.Score(sub.Responses, p.catalog)
	if err != nil {
		p.logger.InfoContext(ctx, "submission rejected", "error", err)
		return nil, err
	}

	// 2. Report with the raw answers in canonical order
	report := &model.Report{
		SessionID: sub.SessionID,
		Catalog:   p.catalog.Name(),
		Scale:     p.catalog.Scale(),
		CreatedAt: p.now().UTC(),
		Profile:   sub.Profile,
		Responses: make([]model.Answer, 0, p.catalog.Len()),
		Result:    result,
		Chart:     chart.Build(result, p.catalog),
	}
	for _, id := range p.catalog.ItemIDs() {
		report.Responses = append(report.Responses, model.Answer{ItemID: id, Value: sub.Responses[id]})
	}
	p.logger.InfoContext(ctx, "submission scored",
		"dominant", string(result.Classification.Dominant),
		"spread", result.Classification.Spread,
		"tied", result.Classification.Tied)

	// 3. Best-effort export of the raw row; never changes the result
	report.Export = p.exporter.Export(ctx, export.NewRecord(sub.Profile, sub.Responses, p.catalog))
	if report.Export.Error != "" {
		report.Warnings = append(report.Warnings, "Export failed: "+report.Export.Error)
	}

	// 4. Optional narrative, AFTER scoring
	if p.narrator.IsEnabled() {
		narrative, err := p.narrator.Generate(ctx, *report)
		if err != nil {
			report.Warnings = append(report.Warnings, fmt.Sprintf("Narrative failed: %v", err))
		} else if narrative != nil {
			report.Narrative = narrative
			for _, w := range narrative.Warnings {
				if strings.Contains(w, "failed") || strings.Contains(w, "not available") {
					report.Warnings = append(report.Warnings, w)
				}
			}
		}
	}

	return report, nil
}

// RenderReport writes the requested files and prints the console summary
func (p *Pipeline) RenderReport(report *model.Report, jsonPath, mdPath, svgPath string) error {
	if jsonPath != "" {
		if err := p.renderer.RenderJSON(report, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		p.logger.Debug("wrote JSON report", "path", jsonPath)
	}

	if mdPath != "" {
		if err := p.renderer.RenderMarkdown(report, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		p.logger.Debug("wrote Markdown report", "path", mdPath)

		// The narrative lives in its own file next to the report
		if report.Narrative != nil && report.Narrative.Enabled {
			narrativePath := strings.TrimSuffix(mdPath, ".md") + ".narrative.md"
			if err := p.renderer.RenderText(llm.RenderSeparateMarkdown(report.Narrative), narrativePath); err != nil {
				p.logger.Warn("failed to write narrative", "path", narrativePath, "error", err)
			}
		}
	}

	if svgPath != "" {
		if err := p.renderer.RenderText(chart.RenderSVG(report.Chart), svgPath); err != nil {
			return fmt.Errorf("render SVG: %w", err)
		}
	}

	p.renderer.RenderSummary(p.renderer.out, report)
	return nil
}
