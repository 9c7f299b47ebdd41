package chart

import (
	"fmt"
	"html"
	"strings"

	"github.com/genera/compass/internal/model"
)

// SVG geometry
const (
	svgSize   = 360.0
	svgRadius = 130.0
)

// RenderSVG draws the chart as a standalone SVG document: one ring per scale
// step, the spokes, the filled value polygon and the needle if present
func RenderSVG(ch model.Chart) string {
	cx, cy := svgSize/2, svgSize/2
	var b strings.Builder

	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.0f %.0f" width="%.0f" height="%.0f" class="compass-chart">`+"\n",
		svgSize, svgSize, svgSize, svgSize)

	steps := int(ch.Max)
	for i := 1; i <= steps; i++ {
		fmt.Fprintf(&b, `  <circle cx="%.1f" cy="%.1f" r="%.1f" fill="none" stroke="#d0d0d0"/>`+"\n",
			cx, cy, svgRadius*float64(i)/ch.Max)
	}

	points := make([]string, 0, len(ch.Spokes))
	for _, spoke := range ch.Spokes {
		x, y := Point(cx, cy, spoke.Bearing, svgRadius)
		fmt.Fprintf(&b, `  <line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#a0a0a0"/>`+"\n", cx, cy, x, y)

		lx, ly := Point(cx, cy, spoke.Bearing, svgRadius+18)
		fmt.Fprintf(&b, `  <text x="%.1f" y="%.1f" text-anchor="middle" font-size="11">%s</text>`+"\n",
			lx, ly+4, html.EscapeString(spokeName(spoke)))

		px, py := Point(cx, cy, spoke.Bearing, radiusFor(spoke.Value, ch.Max))
		points = append(points, fmt.Sprintf("%.1f,%.1f", px, py))
	}
	if len(points) > 0 {
		fmt.Fprintf(&b, `  <polygon points="%s" fill="#3b82f6" fill-opacity="0.35" stroke="#1d4ed8" stroke-width="2"/>`+"\n",
			strings.Join(points, " "))
	}

	if ch.Needle != nil && ch.Needle.Magnitude > 0 {
		nx, ny := Point(cx, cy, ch.Needle.Bearing, radiusFor(ch.Needle.Magnitude, ch.Max))
		fmt.Fprintf(&b, `  <line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#dc2626" stroke-width="4" stroke-linecap="round" class="needle"/>`+"\n",
			cx, cy, nx, ny)
	}
	fmt.Fprintf(&b, `  <circle cx="%.1f" cy="%.1f" r="4" fill="#111827"/>`+"\n", cx, cy)

	b.WriteString("</svg>\n")
	return b.String()
}

func radiusFor(value, limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	if value > limit {
		value = limit
	}
	return svgRadius * value / limit
}

func spokeName(s model.Spoke) string {
	if s.Label != "" {
		return s.Label
	}
	return string(s.Category)
}
