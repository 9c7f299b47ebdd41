package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/genera/compass/internal/model"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Narrate writes a short coaching paragraph about an already scored report
	Narrate(ctx context.Context, req NarrateRequest) (*NarrateResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// NarrateRequest contains the input for narrative generation
type NarrateRequest struct {
	// Report is the scored assessment; the classification in it is final
	Report model.Report

	// Prompt is an optional custom prompt (if empty, use default)
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// NarrateResponse contains the generated paragraph
type NarrateResponse struct {
	Text       string
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI; Ollama needs none
	APIKey string

	// BaseURL for custom endpoints (Ollama, proxies)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "", // Disabled by default
		Timeout:   30,
		MaxTokens: 400,
	}
}

// BuildPrompt constructs the default prompt for a report
func BuildPrompt(report model.Report) string {
	var b strings.Builder

	cls := report.Result.Classification
	fmt.Fprintf(&b, `You are writing a short, encouraging coaching note for someone who just completed a motivational self-assessment.

RULES:
1. The classification below is FINAL. Do not question it, recompute it or name a different orientation.
2. Describe tendencies, never diagnose. Avoid clinical or judgemental language.
3. Do not include links or cite external sources.
4. Write in the same language as the orientation label.

Assessment:
- Catalog: %s (answers on a %d-%d scale)
- Orientation: %s
- Description: %s
- Spread between strongest and weakest area: %.2f

Category averages:
`, report.Catalog, report.Scale.Min, report.Scale.Max, cls.Label, cls.Description, cls.Spread)

	for _, s := range report.Result.Scores {
		fmt.Fprintf(&b, "- %s: %.2f (%d items)\n", s.Category, s.Aggregate, s.Count)
	}

	if cls.Tied {
		fmt.Fprintf(&b, "\nSeveral areas shared the top average; the %s rule applied.\n", cls.Rule)
	}

	b.WriteString("\nWrite 3-4 sentences: what this orientation tends to value, and one concrete suggestion for growth.")
	return b.String()
}
