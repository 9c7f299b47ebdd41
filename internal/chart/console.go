package chart

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/genera/compass/internal/model"
)

const barWidth = 24

var (
	styleLabel    = lipgloss.NewStyle().Width(24)
	styleBar      = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	styleLeader   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	styleEmpty    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleNeedle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	styleHeadline = lipgloss.NewStyle().Bold(true)
)

// RenderConsole draws one bar per spoke, highlighting the dominant category,
// followed by the needle when the chart has one
func RenderConsole(ch model.Chart, dominant model.Category) string {
	var b strings.Builder

	b.WriteString(styleHeadline.Render("Orientation profile"))
	b.WriteString("\n")

	for _, spoke := range ch.Spokes {
		name := spoke.Label
		if name == "" {
			name = string(spoke.Category)
		}
		bar := styleBar
		if spoke.Category == dominant {
			bar = styleLeader
		}
		filled := fill(spoke.Value, ch.Max)
		fmt.Fprintf(&b, "  %s %s%s %.2f\n",
			styleLabel.Render(name),
			bar.Render(strings.Repeat("█", filled)),
			styleEmpty.Render(strings.Repeat("░", barWidth-filled)),
			spoke.Value)
	}

	if ch.Needle != nil {
		b.WriteString("\n")
		fmt.Fprintf(&b, "  %s %s %.0f° (%s), strength %.2f\n",
			styleNeedle.Render("Needle"),
			arrow(ch.Needle.Bearing),
			ch.Needle.Bearing,
			Direction(ch.Needle.Bearing),
			ch.Needle.Magnitude)
	}

	return b.String()
}

func fill(value, limit float64) int {
	if limit <= 0 || value <= 0 {
		return 0
	}
	n := int(value/limit*barWidth + 0.5)
	if n > barWidth {
		n = barWidth
	}
	return n
}

func arrow(bearing float64) string {
	arrows := map[string]string{
		"N": "↑", "NE": "↗", "E": "→", "SE": "↘",
		"S": "↓", "SW": "↙", "W": "←", "NW": "↖",
	}
	return arrows[Direction(bearing)]
}
