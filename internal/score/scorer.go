package score

import (
	"fmt"
	"math"
	"sort"

	"github.com/genera/compass/internal/catalog"
	"github.com/genera/compass/internal/model"
)

// tieEpsilon absorbs float noise when comparing aggregates to the maximum
const tieEpsilon = 1e-9

// Options tunes the classification step
type Options struct {
	BalanceThreshold float64 // Minimum spread for a dominant category
	TieBreak         string  // model.TieBreakLowestTag or model.TieBreakBalanced
}

// DefaultOptions returns the documented defaults
func DefaultOptions() Options {
	return Options{
		BalanceThreshold: 0.5,
		TieBreak:         model.TieBreakLowestTag,
	}
}

// OptionsFromConfig converts the scoring section of the configuration
func OptionsFromConfig(cfg model.ScoringConfig) Options {
	opts := Options{
		BalanceThreshold: cfg.BalanceThreshold,
		TieBreak:         cfg.TieBreak,
	}
	if opts.TieBreak == "" {
		opts.TieBreak = model.TieBreakLowestTag
	}
	return opts
}

// Scorer turns a complete response set into category aggregates and a classification
type Scorer struct {
	opts Options
}

// NewScorer creates a new scorer
func NewScorer(opts Options) *Scorer {
	return &Scorer{opts: opts}
}

// Options returns the options the scorer was built with
func (s *Scorer) Options() Options {
	return s.opts
}

// Score validates the response set against the catalog, then aggregates and
// classifies it. It is pure: no randomness, no I/O, and the same input always
// produces the same result. Validation failures return no partial result.
func (s *Scorer) Score(responses model.ResponseSet, c *catalog.Catalog) (model.Result, error) {
	if c == nil {
		return model.Result{}, &catalog.MalformedCatalogError{Problems: []string{"no catalog supplied"}}
	}
	if err := Validate(responses, c); err != nil {
		return model.Result{}, err
	}

	var signals []model.Signal

	// 1. Per-category means, each with its own denominator
	scores := make([]model.CategoryScore, 0, len(c.Categories()))
	for _, tag := range c.Categories() {
		score, signal := s.aggregate(tag, responses, c)
		scores = append(scores, score)
		signals = append(signals, signal)
	}

	// 2-5. Balance test, dominant category, tie-break, label lookup
	classification, classSignals := s.classify(scores, c)
	signals = append(signals, classSignals...)

	return model.Result{
		Scores:         scores,
		Classification: classification,
		Signals:        signals,
	}, nil
}

// Validate checks that responses cover exactly the catalog items with
// in-scale values. Unknown ids are reported before missing ones.
func Validate(responses model.ResponseSet, c *catalog.Catalog) error {
	var unknown []string
	for _, id := range responses.IDs() {
		if _, ok := c.Item(id); !ok {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		return &UnknownItemError{Unknown: unknown}
	}

	var missing []string
	for _, id := range c.ItemIDs() {
		if _, ok := responses[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return &IncompleteResponseError{Missing: missing}
	}

	scale := c.Scale()
	for _, id := range c.ItemIDs() {
		if v := responses[id]; !scale.Contains(v) {
			return &OutOfScaleError{ItemID: id, Value: v, Scale: scale}
		}
	}

	return nil
}

// aggregate computes the mean of every answer whose item maps to tag.
// A bridge item counts once in each category it bridges.
func (s *Scorer) aggregate(tag model.Category, responses model.ResponseSet, c *catalog.Catalog) (model.CategoryScore, model.Signal) {
	items := c.ItemsForCategory(tag)

	sum := 0
	ids := make([]string, 0, len(items))
	bridges := 0
	for _, item := range items {
		sum += responses[item.ID]
		ids = append(ids, item.ID)
		if item.IsBridge() {
			bridges++
		}
	}

	count := len(items)
	mean := float64(sum) / float64(count)

	score := model.CategoryScore{
		Category:  tag,
		Aggregate: mean,
		Sum:       sum,
		Count:     count,
	}

	return score, model.Signal{
		Type:        model.SignalCategoryAggregate,
		Severity:    model.SeverityInfo,
		Description: fmt.Sprintf("%s: %.2f over %d item(s)", tag, mean, count),
		Data: map[string]interface{}{
			"category":  string(tag),
			"sum":       sum,
			"count":     count,
			"bridges":   bridges,
			"items":     ids,
			"aggregate": mean,
			"formula":   "sum(values of items mapped to category) / count(items mapped to category)",
		},
	}
}

// classify applies the balance test and resolves the dominant category
func (s *Scorer) classify(scores []model.CategoryScore, c *catalog.Catalog) (model.Classification, []model.Signal) {
	maxAgg := math.Inf(-1)
	minAgg := math.Inf(1)
	for _, sc := range scores {
		maxAgg = math.Max(maxAgg, sc.Aggregate)
		minAgg = math.Min(minAgg, sc.Aggregate)
	}
	spread := maxAgg - minAgg

	var leaders []model.Category
	for _, sc := range scores {
		if sc.Aggregate >= maxAgg-tieEpsilon {
			leaders = append(leaders, sc.Category)
		}
	}

	result := model.Classification{Spread: spread}
	var signals []model.Signal

	// A spread of zero is a full tie: nothing dominates whatever the threshold
	balanced := spread <= tieEpsilon || spread < s.opts.BalanceThreshold
	decision := "dominant"
	switch {
	case balanced:
		result.Dominant = model.Balanced
		decision = "balanced"
	case len(leaders) == 1:
		result.Dominant = leaders[0]
	default:
		sort.Slice(leaders, func(i, j int) bool { return leaders[i] < leaders[j] })
		result.Tied = true
		result.Rule = s.opts.TieBreak
		if s.opts.TieBreak == model.TieBreakBalanced {
			result.Dominant = model.Balanced
			decision = "balanced"
		} else {
			result.Dominant = leaders[0]
		}

		names := make([]string, len(leaders))
		for i, l := range leaders {
			names[i] = string(l)
		}
		signals = append(signals, model.Signal{
			Type:        model.SignalTieBreak,
			Severity:    model.SeverityWarning,
			Description: fmt.Sprintf("%d categories share the maximum %.2f; rule %s chose %s", len(leaders), maxAgg, result.Rule, result.Dominant),
			Data: map[string]interface{}{
				"tied":   names,
				"max":    maxAgg,
				"rule":   result.Rule,
				"chosen": string(result.Dominant),
			},
		})
	}

	label := c.Label(result.Dominant)
	result.Label = label.Label
	result.Description = label.Description

	balanceSignal := model.Signal{
		Type:        model.SignalBalance,
		Severity:    model.SeverityInfo,
		Description: fmt.Sprintf("Spread %.2f against threshold %.2f: %s", spread, s.opts.BalanceThreshold, decision),
		Data: map[string]interface{}{
			"max":       maxAgg,
			"min":       minAgg,
			"spread":    spread,
			"threshold": s.opts.BalanceThreshold,
			"decision":  decision,
			"formula":   "max(aggregate) - min(aggregate) < threshold => balanced",
		},
	}

	return result, append([]model.Signal{balanceSignal}, signals...)
}
