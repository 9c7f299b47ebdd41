package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/genera/compass/internal/model"
)

// Narrator produces the optional narrative of a report.
// The narrative is generated after scoring and never feeds back into it.
type Narrator struct {
	provider Provider
	config   Config
}

// NewNarrator creates a narrator; an empty provider yields a disabled narrator
func NewNarrator(config Config) (*Narrator, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}
	return &Narrator{provider: provider, config: config}, nil
}

// NewNarratorWithProvider wraps an existing provider
func NewNarratorWithProvider(provider Provider, config Config) *Narrator {
	return &Narrator{provider: provider, config: config}
}

// IsEnabled reports whether a provider is configured
func (n *Narrator) IsEnabled() bool {
	return n != nil && n.provider != nil
}

// ProviderName returns the configured provider, or "" when disabled
func (n *Narrator) ProviderName() string {
	if !n.IsEnabled() {
		return ""
	}
	return n.provider.Name()
}

// Generate writes the narrative for report. Provider failures are folded
// into the returned Narrative as warnings; a nil narrative means disabled.
func (n *Narrator) Generate(ctx context.Context, report model.Report) (*model.Narrative, error) {
	if !n.IsEnabled() {
		return nil, nil
	}

	if !n.provider.IsAvailable(ctx) {
		return &model.Narrative{
			Enabled:  false,
			Provider: n.provider.Name(),
			Warnings: []string{fmt.Sprintf("LLM provider %s is not available", n.provider.Name())},
		}, nil
	}

	resp, err := n.provider.Narrate(ctx, NarrateRequest{
		Report:    report,
		Model:     n.config.Model,
		MaxTokens: n.config.MaxTokens,
	})
	if err != nil {
		return &model.Narrative{
			Enabled:  true,
			Provider: n.provider.Name(),
			Model:    n.config.Model,
			Warnings: []string{fmt.Sprintf("Narrative generation failed: %v", err)},
		}, nil
	}

	return &model.Narrative{
		Enabled:    true,
		Provider:   n.provider.Name(),
		Model:      resp.Model,
		Text:       resp.Text,
		TokensUsed: resp.TokensUsed,
		Warnings:   []string{fmt.Sprintf("Tokens used: %d", resp.TokensUsed)},
	}, nil
}

// RenderSeparateMarkdown renders the narrative as its own document, kept
// apart from the scored report
func RenderSeparateMarkdown(n *model.Narrative) string {
	if n == nil || !n.Enabled {
		return ""
	}

	var b strings.Builder
	b.WriteString("# Coaching Narrative\n\n")
	b.WriteString("> **GENERATED CONTENT** - written by a language model after scoring.\n")
	b.WriteString("> Your orientation and averages were determined independently and are not affected by this text.\n\n")

	fmt.Fprintf(&b, "**Provider:** %s  \n", n.Provider)
	if n.Model != "" {
		fmt.Fprintf(&b, "**Model:** %s  \n", n.Model)
	}
	b.WriteString("\n---\n\n")

	if n.Text != "" {
		b.WriteString(n.Text)
		b.WriteString("\n")
	} else {
		b.WriteString("_No narrative generated._\n")
	}

	if len(n.Warnings) > 0 {
		b.WriteString("\n## Notes\n\n")
		for _, w := range n.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	return b.String()
}
