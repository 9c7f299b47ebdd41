package model

import "time"

// Report represents the complete outcome of one assessment session
type Report struct {
	SessionID string    `json:"session_id"` // Session that produced the answers
	Catalog   string    `json:"catalog"`    // Catalog name used for scoring
	Scale     Scale     `json:"scale"`      // Answer scale of the catalog
	CreatedAt time.Time `json:"created_at"` // When the result was computed
	Profile   Profile   `json:"profile"`    // Demographic fields, never scored
	Responses []Answer  `json:"responses"`  // Raw answers in canonical item order

	Result Result `json:"result"` // Aggregates, classification and signals
	Chart  Chart  `json:"chart"`  // Data handed to the chart renderers

	Export    ExportStatus `json:"export"`              // Outcome of the best-effort export
	Narrative *Narrative   `json:"narrative,omitempty"` // Optional LLM narrative (separate, never affects score)
	Warnings  []string     `json:"warnings,omitempty"`  // Non-fatal problems surfaced to the user
}

// Answer is one recorded response joined with its item
type Answer struct {
	ItemID string `json:"item_id"`
	Value  int    `json:"value"`
}

// Result is what the scoring engine returns
type Result struct {
	Scores         []CategoryScore `json:"scores"`         // One per category, catalog order
	Classification Classification  `json:"classification"` // Dominant category or balanced
	Signals        []Signal        `json:"signals"`        // Transparent scoring data
}

// Score returns the aggregate for a category and whether it exists
func (r Result) Score(c Category) (CategoryScore, bool) {
	for _, s := range r.Scores {
		if s.Category == c {
			return s, true
		}
	}
	return CategoryScore{}, false
}

// CategoryScore is the mean of the answers contributing to one category
type CategoryScore struct {
	Category  Category `json:"category"`
	Aggregate float64  `json:"aggregate"` // Sum / Count
	Sum       int      `json:"sum"`
	Count     int      `json:"count"` // Pure plus bridge items referencing the category
}

// Classification names the dominant orientation
type Classification struct {
	Dominant    Category `json:"dominant"`       // A catalog category or Balanced
	Label       string   `json:"label"`          // Short name of the orientation
	Description string   `json:"description"`    // Descriptive text
	Spread      float64  `json:"spread"`         // max(aggregate) - min(aggregate)
	Tied        bool     `json:"tied,omitempty"` // Several categories shared the maximum
	Rule        string   `json:"rule,omitempty"` // Tie-break rule applied when Tied
}

// IsBalanced reports whether no category dominated
func (c Classification) IsBalanced() bool {
	return c.Dominant == Balanced
}

// Signal represents a diagnostic signal with transparent scoring data
type Signal struct {
	Type        SignalType             `json:"type"`           // Signal classification
	Severity    SignalSeverity         `json:"severity"`       // info, warning, critical
	Description string                 `json:"description"`    // Human-readable description
	Data        map[string]interface{} `json:"data,omitempty"` // Transparent scoring data (formulas, inputs)
}

// SignalType classifies the type of diagnostic signal
type SignalType string

const (
	SignalCategoryAggregate SignalType = "category_aggregate" // Mean of one category
	SignalBalance           SignalType = "balance"            // Spread versus balance threshold
	SignalTieBreak          SignalType = "tie_break"          // Several categories at the maximum
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)

// Chart is the renderer-independent compass/radar description
type Chart struct {
	Max    float64 `json:"max"`              // Radius of the outer ring (scale max)
	Spokes []Spoke `json:"spokes"`           // One spoke per category
	Needle *Needle `json:"needle,omitempty"` // Only for four-axis catalogs
}

// Spoke is one radial axis of the chart
type Spoke struct {
	Category Category `json:"category"`
	Label    string   `json:"label"`
	Bearing  float64  `json:"bearing"` // Degrees clockwise from north
	Value    float64  `json:"value"`   // Aggregate of the category
}

// Needle is the compass pointer derived from opposing axes
type Needle struct {
	X         float64 `json:"x"`         // east - west
	Y         float64 `json:"y"`         // north - south
	Bearing   float64 `json:"bearing"`   // Degrees clockwise from north
	Magnitude float64 `json:"magnitude"` // Clamped to Chart.Max
}

// ExportStatus records what happened to the raw row
type ExportStatus struct {
	Backend  string `json:"backend"`            // none, sheets, csv
	Exported bool   `json:"exported"`           // Row appended successfully
	Attempts int    `json:"attempts,omitempty"` // Calls made, including the retry
	Error    string `json:"error,omitempty"`    // Last failure, if any
}

// Narrative contains an optional LLM-generated coaching paragraph
// CRITICAL: This never affects scoring and is clearly separated
type Narrative struct {
	Enabled    bool     `json:"enabled"`
	Provider   string   `json:"provider,omitempty"` // openai, ollama
	Model      string   `json:"model,omitempty"`
	Text       string   `json:"text,omitempty"`
	TokensUsed int      `json:"tokens_used,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}
