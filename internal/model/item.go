package model

// Category is a named motivational dimension (axis, area or factor)
type Category string

// Balanced is the classification used when no category dominates.
// It is reserved and can never be declared as a catalog category.
const Balanced Category = "balanced"

func (c Category) String() string {
	return string(c)
}

// Scale is the inclusive integer range of a Likert item
type Scale struct {
	Min int `json:"min" yaml:"min"`
	Max int `json:"max" yaml:"max"`
}

// Contains reports whether v is a legal answer on the scale
func (s Scale) Contains(v int) bool {
	return v >= s.Min && v <= s.Max
}

// Points returns the number of answer options on the scale
func (s Scale) Points() int {
	return s.Max - s.Min + 1
}

// Values lists every answer option in ascending order
func (s Scale) Values() []int {
	if s.Points() <= 0 {
		return nil
	}
	values := make([]int, 0, s.Points())
	for v := s.Min; v <= s.Max; v++ {
		values = append(values, v)
	}
	return values
}

// Item is one questionnaire statement
type Item struct {
	ID         string     `json:"id" yaml:"id"`
	Text       string     `json:"text" yaml:"text"`
	Categories []Category `json:"categories" yaml:"categories"` // One tag (pure) or two adjacent tags (bridge)
	Factor     string     `json:"factor,omitempty" yaml:"factor,omitempty"`
}

// IsBridge reports whether the item contributes to two categories
func (i Item) IsBridge() bool {
	return len(i.Categories) > 1
}

// HasCategory reports whether the item contributes to tag
func (i Item) HasCategory(tag Category) bool {
	for _, c := range i.Categories {
		if c == tag {
			return true
		}
	}
	return false
}

// Label is the descriptive text attached to a classification outcome
type Label struct {
	Label       string `json:"label" yaml:"label"`
	Description string `json:"description" yaml:"description"`
}
