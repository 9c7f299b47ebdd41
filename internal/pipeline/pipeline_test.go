package pipeline

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genera/compass/internal/catalog"
	"github.com/genera/compass/internal/export"
	"github.com/genera/compass/internal/llm"
	"github.com/genera/compass/internal/model"
	"github.com/genera/compass/internal/score"
)

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

// recordingExporter keeps every appended record and can be told to fail or stall
type recordingExporter struct {
	mu      sync.Mutex
	records []export.Record
	err     error
	delay   time.Duration
}

func (e *recordingExporter) Name() string        { return "recording" }
func (e *recordingExporter) Destination() string { return "memory" }

func (e *recordingExporter) Append(ctx context.Context, rec export.Record) error {
	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.records = append(e.records, rec)
	return nil
}

func (e *recordingExporter) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.records)
}

type fakeProvider struct {
	text string
	err  error
}

func (f *fakeProvider) Name() string                     { return "fake" }
func (f *fakeProvider) IsAvailable(context.Context) bool { return true }

func (f *fakeProvider) Narrate(ctx context.Context, req llm.NarrateRequest) (*llm.NarrateResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llm.NarrateResponse{Text: f.text, Model: "fake-1", TokensUsed: 42}, nil
}

func newTestPipeline(t *testing.T, exp export.Exporter, mutate func(*model.Config), opts ...Option) *Pipeline {
	t.Helper()
	cfg := model.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	opts = append([]Option{WithExporter(exp), WithClock(func() time.Time { return fixedNow })}, opts...)
	p, err := NewPipeline(context.Background(), cfg, opts...)
	require.NoError(t, err)
	p.Renderer().SetOutput(&bytes.Buffer{})
	return p
}

func westSubmission(c *catalog.Catalog) Submission {
	rs := model.ResponseSet{}
	for _, id := range c.ItemIDs() {
		rs[id] = 1
	}
	rs["q1"], rs["q2"] = 6, 6
	return Submission{
		SessionID: "s-1",
		Profile:   model.Profile{Nickname: "ada", Gender: "femminile"},
		Responses: rs,
	}
}

func TestAssess_Success(t *testing.T) {
	exp := &recordingExporter{}
	p := newTestPipeline(t, exp, nil)

	report, err := p.Assess(context.Background(), westSubmission(p.Catalog()))
	require.NoError(t, err)

	assert.Equal(t, "s-1", report.SessionID)
	assert.Equal(t, "compass", report.Catalog)
	assert.Equal(t, fixedNow, report.CreatedAt)
	assert.Equal(t, model.Category("west"), report.Result.Classification.Dominant)
	assert.Equal(t, p.Catalog().Label("west").Label, report.Result.Classification.Label)

	require.Len(t, report.Responses, 14)
	assert.Equal(t, model.Answer{ItemID: "q1", Value: 6}, report.Responses[0])
	assert.Equal(t, "q14", report.Responses[13].ItemID)

	require.NotNil(t, report.Chart.Needle)
	assert.InDelta(t, 270, report.Chart.Needle.Bearing, 1e-9)

	assert.True(t, report.Export.Exported)
	assert.Empty(t, report.Warnings)
	require.Equal(t, 1, exp.count())
	assert.Equal(t, "ada", exp.records[0].Profile.Nickname)
	assert.Equal(t, 6, exp.records[0].Values[0])
	assert.Nil(t, report.Narrative)
}

func TestAssess_ExportFailureDoesNotChangeResult(t *testing.T) {
	ok := newTestPipeline(t, &recordingExporter{}, nil)
	failing := newTestPipeline(t, &recordingExporter{err: errors.New("quota exceeded")}, nil)

	sub := westSubmission(ok.Catalog())
	want, err := ok.Assess(context.Background(), sub)
	require.NoError(t, err)
	got, err := failing.Assess(context.Background(), sub)
	require.NoError(t, err, "export failure must not surface as an error")

	assert.Equal(t, want.Result, got.Result)
	assert.Equal(t, want.Chart, got.Chart)
	assert.False(t, got.Export.Exported)
	assert.Equal(t, 2, got.Export.Attempts)
	require.Len(t, got.Warnings, 1)
	assert.Contains(t, got.Warnings[0], "quota exceeded")
}

func TestAssess_StalledExportTimesOut(t *testing.T) {
	exp := &recordingExporter{delay: time.Second}
	p := newTestPipeline(t, exp, func(cfg *model.Config) {
		cfg.Export.Timeout = 20 * time.Millisecond
		cfg.Export.Retries = 0
	})

	start := time.Now()
	report, err := p.Assess(context.Background(), westSubmission(p.Catalog()))
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.False(t, report.Export.Exported)
	assert.Equal(t, model.Category("west"), report.Result.Classification.Dominant)
}

func TestAssess_IncompleteIsRejectedBeforeExport(t *testing.T) {
	exp := &recordingExporter{}
	p := newTestPipeline(t, exp, nil)

	sub := westSubmission(p.Catalog())
	delete(sub.Responses, "q9")

	report, err := p.Assess(context.Background(), sub)
	assert.Nil(t, report)
	assert.True(t, errors.Is(err, model.ErrValidation))

	var incomplete *score.IncompleteResponseError
	require.True(t, errors.As(err, &incomplete))
	assert.Equal(t, []string{"q9"}, incomplete.Missing)
	assert.Zero(t, exp.count(), "nothing is exported for a rejected submission")
}

func TestAssess_CatalogMismatch(t *testing.T) {
	p := newTestPipeline(t, &recordingExporter{}, nil)
	sub := westSubmission(p.Catalog())
	sub.Catalog = "areas"

	_, err := p.Assess(context.Background(), sub)
	assert.True(t, errors.Is(err, model.ErrValidation))
}

func TestAssess_Narrative(t *testing.T) {
	narrator := llm.NewNarratorWithProvider(&fakeProvider{text: "Ti piace la chiarezza."}, llm.Config{})
	p := newTestPipeline(t, &recordingExporter{}, nil, WithNarrator(narrator))

	report, err := p.Assess(context.Background(), westSubmission(p.Catalog()))
	require.NoError(t, err)
	require.NotNil(t, report.Narrative)
	assert.Equal(t, "Ti piace la chiarezza.", report.Narrative.Text)
	assert.Empty(t, report.Warnings)
}

func TestAssess_NarrativeFailureIsAWarning(t *testing.T) {
	narrator := llm.NewNarratorWithProvider(&fakeProvider{err: errors.New("model overloaded")}, llm.Config{})
	p := newTestPipeline(t, &recordingExporter{}, nil, WithNarrator(narrator))

	report, err := p.Assess(context.Background(), westSubmission(p.Catalog()))
	require.NoError(t, err)
	assert.Equal(t, model.Category("west"), report.Result.Classification.Dominant)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "model overloaded")
}

func TestNewPipeline_ConfigurationErrors(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Catalog = "no-such-catalog"
	_, err := NewPipeline(context.Background(), cfg)
	assert.True(t, errors.Is(err, model.ErrConfiguration))

	cfg = model.DefaultConfig()
	cfg.Scoring.TieBreak = "coin"
	_, err = NewPipeline(context.Background(), cfg)
	assert.True(t, errors.Is(err, model.ErrConfiguration))
}

func TestNewPipeline_ScaleOverride(t *testing.T) {
	p := newTestPipeline(t, &recordingExporter{}, func(cfg *model.Config) {
		cfg.Scoring.ScaleMax = 5
	})
	assert.Equal(t, model.Scale{Min: 1, Max: 5}, p.Catalog().Scale())

	_, err := p.Assess(context.Background(), westSubmission(p.Catalog()))
	var oos *score.OutOfScaleError
	assert.True(t, errors.As(err, &oos), "6 is out of a 1-5 scale")
}

func TestNewPipeline_NarratorErrorIsNotFatal(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.LLM.Provider = "openai" // no API key: the narrative is dropped
	p, err := NewPipeline(context.Background(), cfg, WithExporter(export.Nop{}))
	require.NoError(t, err)
	assert.Equal(t, model.ExportNone, p.ExportBackend())
}

func TestScore(t *testing.T) {
	p := newTestPipeline(t, export.Nop{}, func(cfg *model.Config) { cfg.Catalog = "factors" })
	sub := westSubmission(p.Catalog())

	result, err := p.Score(sub.Responses)
	require.NoError(t, err)
	assert.Equal(t, model.Category("rewards"), result.Classification.Dominant)
}
