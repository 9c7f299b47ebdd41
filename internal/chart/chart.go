// Package chart turns a scoring result into a compass/radar description and
// renders it for the terminal and for the browser.
package chart

import (
	"math"

	"github.com/genera/compass/internal/catalog"
	"github.com/genera/compass/internal/model"
)

// Cardinal categories of the four-axis catalog and their bearings
var cardinal = map[model.Category]float64{
	"north": 0,
	"east":  90,
	"south": 180,
	"west":  270,
}

// Build lays out one spoke per category. Four-axis catalogs get their spokes
// on the cardinal bearings and a needle; any other catalog spaces the spokes
// evenly clockwise from north in catalog order.
func Build(result model.Result, c *catalog.Catalog) model.Chart {
	categories := c.Categories()
	ch := model.Chart{
		Max:    float64(c.Scale().Max),
		Spokes: make([]model.Spoke, 0, len(categories)),
	}

	compass := IsCompass(categories)
	for i, tag := range categories {
		bearing := 360 * float64(i) / float64(len(categories))
		if compass {
			bearing = cardinal[tag]
		}
		var value float64
		if s, ok := result.Score(tag); ok {
			value = s.Aggregate
		}
		ch.Spokes = append(ch.Spokes, model.Spoke{
			Category: tag,
			Label:    c.Label(tag).Label,
			Bearing:  bearing,
			Value:    value,
		})
	}

	if compass {
		ch.Needle = needle(result, ch.Max)
	}
	return ch
}

// IsCompass reports whether the categories are exactly the four cardinal axes
func IsCompass(categories []model.Category) bool {
	if len(categories) != len(cardinal) {
		return false
	}
	for _, tag := range categories {
		if _, ok := cardinal[tag]; !ok {
			return false
		}
	}
	return true
}

// needle points from the opposing-axis differences
func needle(result model.Result, limit float64) *model.Needle {
	agg := func(tag model.Category) float64 {
		s, _ := result.Score(tag)
		return s.Aggregate
	}

	x := agg("east") - agg("west")
	y := agg("north") - agg("south")

	return &model.Needle{
		X:         x,
		Y:         y,
		Bearing:   Bearing(x, y),
		Magnitude: math.Min(math.Hypot(x, y), limit),
	}
}

// Bearing converts an (east, north) offset into degrees clockwise from north in [0, 360)
func Bearing(x, y float64) float64 {
	if x == 0 && y == 0 {
		return 0
	}
	deg := math.Atan2(x, y) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}

// Point projects a bearing and a radius onto screen coordinates around (cx, cy).
// Screen y grows downwards.
func Point(cx, cy, bearing, radius float64) (float64, float64) {
	rad := bearing * math.Pi / 180
	return cx + radius*math.Sin(rad), cy - radius*math.Cos(rad)
}

// Direction names the nearest of the eight compass points
func Direction(bearing float64) string {
	points := []string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}
	idx := int(math.Floor(math.Mod(bearing+22.5, 360)/45)) % len(points)
	return points[idx]
}
