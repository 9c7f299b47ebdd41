package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/genera/compass/internal/model"
)

// MockProvider implements the Provider interface for testing
type MockProvider struct {
	name      string
	available bool
	response  *NarrateResponse
	err       error
	calls     int
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) Narrate(ctx context.Context, req NarrateRequest) (*NarrateResponse, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func (m *MockProvider) IsAvailable(ctx context.Context) bool {
	return m.available
}

func TestNewNarrator_Disabled(t *testing.T) {
	narrator, err := NewNarrator(Config{Provider: ""})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if narrator.IsEnabled() {
		t.Error("Expected narrator to be disabled")
	}
	if narrator.ProviderName() != "" {
		t.Error("Expected empty provider name when disabled")
	}

	n, err := narrator.Generate(context.Background(), sampleReport())
	if err != nil || n != nil {
		t.Errorf("disabled narrator should return nil, nil; got %v, %v", n, err)
	}
}

func TestNewNarrator_UnknownProvider(t *testing.T) {
	if _, err := NewNarrator(Config{Provider: "bogus"}); err == nil {
		t.Fatal("Expected error for unknown provider")
	}
}

func TestNarrator_ProviderUnavailable(t *testing.T) {
	mock := &MockProvider{name: "test-provider"}
	narrator := NewNarratorWithProvider(mock, Config{})

	n, err := narrator.Generate(context.Background(), sampleReport())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if n == nil || n.Enabled {
		t.Fatalf("Expected a disabled narrative with warnings, got %+v", n)
	}
	if len(n.Warnings) == 0 || !strings.Contains(n.Warnings[0], "not available") {
		t.Errorf("Expected unavailability warning, got %v", n.Warnings)
	}
	if mock.calls != 0 {
		t.Error("Narrate must not be called when the provider is unavailable")
	}
}

func TestNarrator_Success(t *testing.T) {
	mock := &MockProvider{
		name:      "test-provider",
		available: true,
		response:  &NarrateResponse{Text: "Ottimo lavoro.", Model: "test-model", TokensUsed: 80},
	}
	narrator := NewNarratorWithProvider(mock, Config{Model: "test-model"})

	report := sampleReport()
	before := report.Result

	n, err := narrator.Generate(context.Background(), report)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !n.Enabled || n.Text != "Ottimo lavoro." || n.Provider != "test-provider" || n.Model != "test-model" {
		t.Errorf("Unexpected narrative: %+v", n)
	}
	if n.TokensUsed != 80 {
		t.Errorf("Expected 80 tokens, got %d", n.TokensUsed)
	}
	if report.Result.Classification != before.Classification {
		t.Error("narrative generation must not touch the classification")
	}
}

func TestNarrator_ProviderError(t *testing.T) {
	mock := &MockProvider{name: "test-provider", available: true, err: errors.New("rate limit exceeded")}
	narrator := NewNarratorWithProvider(mock, Config{Model: "m"})

	n, err := narrator.Generate(context.Background(), sampleReport())
	if err != nil {
		t.Errorf("Expected graceful degradation, got %v", err)
	}
	if n == nil || !n.Enabled || n.Text != "" {
		t.Fatalf("Expected enabled narrative without text, got %+v", n)
	}

	found := false
	for _, w := range n.Warnings {
		if strings.Contains(w, "failed") && strings.Contains(w, "rate limit") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected warning to mention the error: %v", n.Warnings)
	}
}

func TestRenderSeparateMarkdown(t *testing.T) {
	if RenderSeparateMarkdown(nil) != "" {
		t.Error("Expected empty markdown when nil")
	}
	if RenderSeparateMarkdown(&model.Narrative{Enabled: false}) != "" {
		t.Error("Expected empty markdown when disabled")
	}

	md := RenderSeparateMarkdown(&model.Narrative{
		Enabled:  true,
		Provider: "openai",
		Model:    "gpt-4o-mini",
		Text:     "Ti piace la struttura.",
		Warnings: []string{"Tokens used: 80"},
	})
	for _, want := range []string{
		"# Coaching Narrative",
		"GENERATED CONTENT",
		"determined independently",
		"**Provider:** openai",
		"**Model:** gpt-4o-mini",
		"Ti piace la struttura.",
		"## Notes",
		"Tokens used: 80",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("Expected markdown to contain %q", want)
		}
	}

	empty := RenderSeparateMarkdown(&model.Narrative{Enabled: true, Provider: "x"})
	if !strings.Contains(empty, "No narrative generated") {
		t.Error("Expected message about missing narrative")
	}
}
