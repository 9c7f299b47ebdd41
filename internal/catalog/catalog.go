// Package catalog holds the fixed, ordered questionnaire and its label table.
//
// A Catalog is built once from a Definition and never mutated afterwards.
// Item ids are the join key between what was presented and what was answered,
// so AllItems always returns the authoring (canonical) order regardless of
// how a session shuffles the presentation.
package catalog

import (
	"fmt"
	"sort"

	"github.com/genera/compass/internal/model"
)

// Definition is the serialized form of a catalog
type Definition struct {
	Name       string                         `yaml:"name" json:"name"`
	Scale      model.Scale                    `yaml:"scale" json:"scale"`
	Categories []model.Category               `yaml:"categories" json:"categories"`
	Items      []model.Item                   `yaml:"items" json:"items"`
	Labels     map[model.Category]model.Label `yaml:"labels" json:"labels"`
}

// Catalog is the validated, immutable questionnaire
type Catalog struct {
	name       string
	scale      model.Scale
	categories []model.Category
	items      []model.Item
	byID       map[string]int
	labels     map[model.Category]model.Label
}

// New validates def and builds a catalog from it
func New(def Definition) (*Catalog, error) {
	if problems := validateDefinition(def); len(problems) > 0 {
		return nil, &MalformedCatalogError{Catalog: def.Name, Problems: problems}
	}

	c := &Catalog{
		name:       def.Name,
		scale:      def.Scale,
		categories: append([]model.Category(nil), def.Categories...),
		items:      make([]model.Item, len(def.Items)),
		byID:       make(map[string]int, len(def.Items)),
		labels:     make(map[model.Category]model.Label, len(def.Labels)),
	}
	for i, item := range def.Items {
		item.Categories = append([]model.Category(nil), item.Categories...)
		c.items[i] = item
		c.byID[item.ID] = i
	}
	for tag, label := range def.Labels {
		c.labels[tag] = label
	}

	return c, nil
}

// WithScaleMax returns a copy of the catalog answered on [min, max]
func (c *Catalog) WithScaleMax(scaleMax int) (*Catalog, error) {
	if scaleMax == 0 || scaleMax == c.scale.Max {
		return c, nil
	}
	def := c.Definition()
	def.Scale.Max = scaleMax
	return New(def)
}

// Definition returns the serializable form of the catalog
func (c *Catalog) Definition() Definition {
	def := Definition{
		Name:       c.name,
		Scale:      c.scale,
		Categories: c.Categories(),
		Items:      c.AllItems(),
		Labels:     make(map[model.Category]model.Label, len(c.labels)),
	}
	for tag, label := range c.labels {
		def.Labels[tag] = label
	}
	return def
}

// Name returns the catalog name
func (c *Catalog) Name() string {
	return c.name
}

// Scale returns the answer scale shared by every item
func (c *Catalog) Scale() model.Scale {
	return c.scale
}

// Categories returns the category tags in declaration order
func (c *Catalog) Categories() []model.Category {
	return append([]model.Category(nil), c.categories...)
}

// AllItems returns every item in canonical order
func (c *Catalog) AllItems() []model.Item {
	out := make([]model.Item, len(c.items))
	for i, item := range c.items {
		item.Categories = append([]model.Category(nil), item.Categories...)
		out[i] = item
	}
	return out
}

// ItemIDs returns the item ids in canonical order
func (c *Catalog) ItemIDs() []string {
	ids := make([]string, len(c.items))
	for i, item := range c.items {
		ids[i] = item.ID
	}
	return ids
}

// Len returns the number of items
func (c *Catalog) Len() int {
	return len(c.items)
}

// Item looks up an item by id
func (c *Catalog) Item(id string) (model.Item, bool) {
	i, ok := c.byID[id]
	if !ok {
		return model.Item{}, false
	}
	item := c.items[i]
	item.Categories = append([]model.Category(nil), item.Categories...)
	return item, true
}

// ItemsForCategory returns the pure and bridge items contributing to tag
func (c *Catalog) ItemsForCategory(tag model.Category) []model.Item {
	var out []model.Item
	for _, item := range c.items {
		if item.HasCategory(tag) {
			item.Categories = append([]model.Category(nil), item.Categories...)
			out = append(out, item)
		}
	}
	return out
}

// Label returns the label for a category or for model.Balanced
func (c *Catalog) Label(tag model.Category) model.Label {
	return c.labels[tag]
}

// validateDefinition returns every semantic problem in def
func validateDefinition(def Definition) []string {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if def.Name == "" {
		add("name is empty")
	}
	if def.Scale.Points() < 2 {
		add("scale %d-%d must offer at least 2 values", def.Scale.Min, def.Scale.Max)
	}

	declared := make(map[model.Category]bool, len(def.Categories))
	if len(def.Categories) == 0 {
		add("no categories declared")
	}
	for _, tag := range def.Categories {
		switch {
		case tag == "":
			add("empty category tag")
		case tag == model.Balanced:
			add("category %q is reserved", tag)
		case declared[tag]:
			add("category %q declared twice", tag)
		}
		declared[tag] = true
	}

	if len(def.Items) == 0 {
		add("no items declared")
	}
	seen := make(map[string]bool, len(def.Items))
	used := make(map[model.Category]bool, len(def.Categories))
	for i, item := range def.Items {
		ref := item.ID
		if ref == "" {
			ref = fmt.Sprintf("#%d", i+1)
			add("item %s has an empty id", ref)
		} else if seen[item.ID] {
			add("duplicate item id %q", item.ID)
		}
		seen[item.ID] = true

		if item.Text == "" {
			add("item %s has no text", ref)
		}

		switch n := len(item.Categories); {
		case n == 0:
			add("item %s has an empty category set", ref)
		case n > 2:
			add("item %s maps to %d categories (a bridge item maps to exactly two)", ref, n)
		case n == 2 && item.Categories[0] == item.Categories[1]:
			add("item %s lists category %q twice", ref, item.Categories[0])
		}

		for _, tag := range item.Categories {
			if !declared[tag] {
				add("item %s references undefined category %q", ref, tag)
				continue
			}
			used[tag] = true
		}
	}

	for _, tag := range def.Categories {
		if tag != model.Balanced && !used[tag] {
			add("category %q is referenced by no item", tag)
		}
	}

	labelled := make([]model.Category, 0, len(def.Categories)+1)
	labelled = append(labelled, def.Categories...)
	labelled = append(labelled, model.Balanced)
	for _, tag := range labelled {
		if tag == "" {
			continue
		}
		label, ok := def.Labels[tag]
		if !ok {
			add("label table has no entry for %q", tag)
			continue
		}
		if label.Label == "" {
			add("label for %q is empty", tag)
		}
	}
	var extra []string
	for tag := range def.Labels {
		if tag != model.Balanced && !declared[tag] {
			extra = append(extra, string(tag))
		}
	}
	sort.Strings(extra)
	for _, tag := range extra {
		add("label table references undefined category %q", tag)
	}

	return problems
}
