package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/genera/compass/internal/chart"
	"github.com/genera/compass/internal/model"
)

var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	styleLabel   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	styleMuted   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleWarning = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	styleBox     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Renderer writes reports as JSON, Markdown and console text
type Renderer struct {
	verbose bool
	out     io.Writer
}

// NewRenderer creates a renderer printing summaries to stdout
func NewRenderer(verbose bool) *Renderer {
	return &Renderer{verbose: verbose, out: os.Stdout}
}

// SetOutput redirects the console summary
func (r *Renderer) SetOutput(w io.Writer) {
	r.out = w
}

// RenderJSON writes the full report, signals included
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// RenderMarkdown writes the Markdown report
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return r.RenderText(r.Markdown(report), path)
}

// RenderText writes pre-rendered content
func (r *Renderer) RenderText(content, path string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

// Markdown renders the report as a Markdown document
func (r *Renderer) Markdown(report *model.Report) string {
	var b strings.Builder
	cls := report.Result.Classification

	b.WriteString("# Motivational Compass\n\n")
	if report.Profile.Nickname != "" {
		fmt.Fprintf(&b, "**Respondent:** %s  \n", report.Profile.Nickname)
	}
	fmt.Fprintf(&b, "**Catalog:** %s (scale %d-%d)  \n", report.Catalog, report.Scale.Min, report.Scale.Max)
	fmt.Fprintf(&b, "**Date:** %s\n\n", report.CreatedAt.Format("2006-01-02 15:04 MST"))

	fmt.Fprintf(&b, "## %s\n\n", cls.Label)
	if cls.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", cls.Description)
	}

	b.WriteString("## Averages\n\n")
	b.WriteString("| Category | Average | Items |\n")
	b.WriteString("|---|---:|---:|\n")
	for _, s := range report.Result.Scores {
		name := string(s.Category)
		if s.Category == cls.Dominant {
			name = "**" + name + "**"
		}
		fmt.Fprintf(&b, "| %s | %.2f | %d |\n", name, s.Aggregate, s.Count)
	}
	fmt.Fprintf(&b, "\nSpread: %.2f", cls.Spread)
	if cls.Tied {
		fmt.Fprintf(&b, " (tie resolved by rule `%s`)", cls.Rule)
	}
	b.WriteString("\n")

	if n := report.Chart.Needle; n != nil {
		fmt.Fprintf(&b, "\nCompass needle: %.0f° (%s), strength %.2f\n", n.Bearing, chart.Direction(n.Bearing), n.Magnitude)
	}

	if r.verbose {
		b.WriteString("\n## Scoring Signals\n\n")
		for _, sig := range report.Result.Signals {
			fmt.Fprintf(&b, "- **%s** (%s): %s\n", sig.Type, sig.Severity, sig.Description)
			if formula, ok := sig.Data["formula"].(string); ok {
				fmt.Fprintf(&b, "  - `%s`\n", formula)
			}
		}

		b.WriteString("\n## Answers\n\n")
		for _, a := range report.Responses {
			fmt.Fprintf(&b, "- %s: %d\n", a.ItemID, a.Value)
		}
	}

	if len(report.Warnings) > 0 {
		b.WriteString("\n## Warnings\n\n")
		for _, w := range report.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	return b.String()
}

// RenderSummary prints the console view: headline, chart and warnings
func (r *Renderer) RenderSummary(w io.Writer, report *model.Report) {
	cls := report.Result.Classification

	var head strings.Builder
	head.WriteString(styleTitle.Render("Motivational Compass"))
	if report.Profile.Nickname != "" {
		head.WriteString(styleMuted.Render(" · " + report.Profile.Nickname))
	}
	head.WriteString("\n\n")
	head.WriteString(styleLabel.Render(cls.Label))
	if cls.Description != "" {
		head.WriteString("\n")
		head.WriteString(lipgloss.NewStyle().Width(72).Render(cls.Description))
	}

	fmt.Fprintln(w, styleBox.Render(head.String()))
	fmt.Fprintln(w)
	fmt.Fprint(w, chart.RenderConsole(report.Chart, cls.Dominant))

	if r.verbose {
		fmt.Fprintln(w)
		fmt.Fprintln(w, styleMuted.Render(fmt.Sprintf("spread %.2f · export %s · catalog %s",
			cls.Spread, exportSummary(report.Export), report.Catalog)))
	}

	for _, warning := range report.Warnings {
		fmt.Fprintln(w, styleWarning.Render("! "+warning))
	}
}

func exportSummary(s model.ExportStatus) string {
	switch {
	case s.Backend == "" || s.Backend == model.ExportNone:
		return "off"
	case s.Exported:
		return s.Backend + " ok"
	default:
		return s.Backend + " failed"
	}
}
