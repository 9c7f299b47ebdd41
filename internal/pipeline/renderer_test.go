package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genera/compass/internal/model"
)

func scoredReport(t *testing.T) (*Pipeline, *model.Report) {
	t.Helper()
	p := newTestPipeline(t, &recordingExporter{}, nil)
	report, err := p.Assess(context.Background(), westSubmission(p.Catalog()))
	require.NoError(t, err)
	return p, report
}

func TestRenderer_Markdown(t *testing.T) {
	p, report := scoredReport(t)
	report.Warnings = []string{"Export failed: quota"}

	md := p.Renderer().Markdown(report)
	assert.Contains(t, md, "# Motivational Compass")
	assert.Contains(t, md, "**Respondent:** ada")
	assert.Contains(t, md, "## "+report.Result.Classification.Label)
	assert.Contains(t, md, "| **west** | 3.50 | 4 |")
	assert.Contains(t, md, "Compass needle: 270° (W)")
	assert.Contains(t, md, "Export failed: quota")
	assert.NotContains(t, md, "## Scoring Signals")

	verbose := NewRenderer(true).Markdown(report)
	assert.Contains(t, verbose, "## Scoring Signals")
	assert.Contains(t, verbose, "- q1: 6")
}

func TestRenderReport_Files(t *testing.T) {
	p, report := scoredReport(t)
	report.Narrative = &model.Narrative{Enabled: true, Provider: "fake", Text: "Bravo."}

	var out bytes.Buffer
	p.Renderer().SetOutput(&out)

	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "r.json")
	mdPath := filepath.Join(dir, "r.md")
	svgPath := filepath.Join(dir, "r.svg")
	require.NoError(t, p.RenderReport(report, jsonPath, mdPath, svgPath))

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var decoded model.Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, report.Result.Classification, decoded.Result.Classification)

	narrative, err := os.ReadFile(filepath.Join(dir, "r.narrative.md"))
	require.NoError(t, err)
	assert.Contains(t, string(narrative), "Bravo.")

	svg, err := os.ReadFile(svgPath)
	require.NoError(t, err)
	assert.Contains(t, string(svg), "<svg")

	assert.Contains(t, out.String(), report.Result.Classification.Label)
	assert.Contains(t, out.String(), "Needle")
}
