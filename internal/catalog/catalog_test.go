package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genera/compass/internal/model"
)

func validDefinition() Definition {
	return Definition{
		Name:       "mini",
		Scale:      model.Scale{Min: 1, Max: 5},
		Categories: []model.Category{"a", "b"},
		Items: []model.Item{
			{ID: "i1", Text: "first", Categories: []model.Category{"a"}},
			{ID: "i2", Text: "second", Categories: []model.Category{"a", "b"}},
			{ID: "i3", Text: "third", Categories: []model.Category{"b"}},
		},
		Labels: map[model.Category]model.Label{
			"a":            {Label: "A", Description: "about a"},
			"b":            {Label: "B", Description: "about b"},
			model.Balanced: {Label: "Even", Description: "no winner"},
		},
	}
}

func mustNew(t *testing.T, def Definition) *Catalog {
	t.Helper()
	c, err := New(def)
	require.NoError(t, err)
	return c
}

func TestBuiltins(t *testing.T) {
	assert.Equal(t, []string{"areas", "compass", "factors"}, Builtins())

	for _, name := range Builtins() {
		t.Run(name, func(t *testing.T) {
			c, err := Load(name)
			require.NoError(t, err)
			assert.Equal(t, name, c.Name())
			assert.Equal(t, 14, c.Len())

			ids := c.ItemIDs()
			for i, id := range ids {
				assert.Equal(t, "q"+strconv.Itoa(i+1), id, "canonical order must follow authoring order")
			}
			for _, tag := range c.Categories() {
				assert.NotEmpty(t, c.ItemsForCategory(tag), "category %s has items", tag)
				assert.NotEmpty(t, c.Label(tag).Label)
			}
			assert.NotEmpty(t, c.Label(model.Balanced).Label)
		})
	}
}

func TestLoad_DefaultIsCompass(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultName, c.Name())
	assert.Equal(t, model.Scale{Min: 1, Max: 6}, c.Scale())
	assert.Equal(t, []model.Category{"north", "east", "south", "west"}, c.Categories())

	counts := map[model.Category]int{}
	for _, tag := range c.Categories() {
		counts[tag] = len(c.ItemsForCategory(tag))
	}
	assert.Equal(t, map[model.Category]int{"north": 3, "east": 4, "south": 3, "west": 4}, counts)
}

func TestAreas_BridgeItems(t *testing.T) {
	c, err := Load("areas")
	require.NoError(t, err)
	assert.Equal(t, 5, c.Scale().Max)

	q10, ok := c.Item("q10")
	require.True(t, ok)
	assert.True(t, q10.IsBridge())
	assert.Equal(t, []model.Category{"intrinsic", "climate"}, q10.Categories)

	assert.Len(t, c.ItemsForCategory("extrinsic"), 5)
	assert.Len(t, c.ItemsForCategory("intrinsic"), 7)
	assert.Len(t, c.ItemsForCategory("climate"), 5)
}

func TestItemsForCategory_UnknownTag(t *testing.T) {
	c := mustNew(t, validDefinition())
	assert.Empty(t, c.ItemsForCategory("zzz"))

	items := c.ItemsForCategory("b")
	require.Len(t, items, 2)
	assert.Equal(t, "i2", items[0].ID)
	assert.Equal(t, "i3", items[1].ID)
}

func TestCatalog_IsImmutable(t *testing.T) {
	c := mustNew(t, validDefinition())

	items := c.AllItems()
	items[0].ID = "changed"
	items[1].Categories[0] = "changed"

	assert.Equal(t, "i1", c.AllItems()[0].ID)
	assert.Equal(t, model.Category("a"), c.AllItems()[1].Categories[0])
}

func TestNew_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(d *Definition)
		problem string
	}{
		{
			name:    "duplicate id",
			mutate:  func(d *Definition) { d.Items[1].ID = "i1" },
			problem: `duplicate item id "i1"`,
		},
		{
			name:    "empty category set",
			mutate:  func(d *Definition) { d.Items[0].Categories = nil },
			problem: "empty category set",
		},
		{
			name:    "three categories",
			mutate:  func(d *Definition) { d.Items[1].Categories = []model.Category{"a", "b", "a"} },
			problem: "maps to 3 categories",
		},
		{
			name:    "single point scale",
			mutate:  func(d *Definition) { d.Scale = model.Scale{Min: 3, Max: 3} },
			problem: "at least 2 values",
		},
		{
			name:    "undefined category",
			mutate:  func(d *Definition) { d.Items[0].Categories = []model.Category{"c"} },
			problem: `undefined category "c"`,
		},
		{
			name: "category without items",
			mutate: func(d *Definition) {
				d.Categories = append(d.Categories, "c")
				d.Labels["c"] = model.Label{Label: "C"}
			},
			problem: `category "c" is referenced by no item`,
		},
		{
			name:    "missing balanced label",
			mutate:  func(d *Definition) { delete(d.Labels, model.Balanced) },
			problem: `no entry for "balanced"`,
		},
		{
			name:    "reserved category",
			mutate:  func(d *Definition) { d.Categories = append(d.Categories, model.Balanced) },
			problem: "reserved",
		},
		{
			name:    "label for unknown category",
			mutate:  func(d *Definition) { d.Labels["ghost"] = model.Label{Label: "Ghost"} },
			problem: `label table references undefined category "ghost"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := validDefinition()
			tt.mutate(&def)

			c, err := New(def)
			require.Error(t, err)
			assert.Nil(t, c)
			assert.True(t, errors.Is(err, model.ErrConfiguration))

			var malformed *MalformedCatalogError
			require.True(t, errors.As(err, &malformed))
			assert.Contains(t, strings.Join(malformed.Problems, "\n"), tt.problem)
		})
	}
}

func TestNew_ReportsEveryProblem(t *testing.T) {
	def := validDefinition()
	def.Items[1].ID = "i1"
	delete(def.Labels, "a")

	_, err := New(def)
	var malformed *MalformedCatalogError
	require.True(t, errors.As(err, &malformed))
	assert.Len(t, malformed.Problems, 2)
}

func TestParse_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "unknown field",
			doc: `
name: x
scale: {min: 1, max: 5}
categories: [a]
items: [{id: i1, text: t, categories: [a]}]
lables: {}
`,
		},
		{
			name: "wrong type",
			doc: `
name: x
scale: {min: one, max: 5}
categories: [a]
items: [{id: i1, text: t, categories: [a]}]
labels: {a: {label: A, description: d}, balanced: {label: B, description: d}}
`,
		},
		{
			name: "missing name",
			doc: `
scale: {min: 1, max: 5}
categories: [a]
items: [{id: i1, text: t, categories: [a]}]
labels: {a: {label: A, description: d}, balanced: {label: B, description: d}}
`,
		},
		{
			name: "bad tag",
			doc: `
name: x
scale: {min: 1, max: 5}
categories: [Not A Tag]
items: [{id: i1, text: t, categories: [a]}]
labels: {balanced: {label: B, description: d}}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), tt.name)
			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrConfiguration))
		})
	}
}

func TestParse_Valid(t *testing.T) {
	doc := `
name: tiny
scale: {min: 1, max: 5}
categories: [a, b]
items:
  - {id: i1, text: first, categories: [a]}
  - {id: i2, text: second, categories: [a, b]}
labels:
  a: {label: A, description: about a}
  b: {label: B, description: about b}
  balanced: {label: Even, description: no winner}
`
	c, err := Parse([]byte(doc), "tiny")
	require.NoError(t, err)
	assert.Equal(t, []string{"i1", "i2"}, c.ItemIDs())
	assert.Len(t, c.ItemsForCategory("b"), 1)
}

func TestMarshal_RoundTrip(t *testing.T) {
	orig, err := Load("areas")
	require.NoError(t, err)

	data, err := Marshal(orig)
	require.NoError(t, err)

	back, err := Parse(data, "roundtrip")
	require.NoError(t, err)
	assert.Equal(t, orig.Definition(), back.Definition())
}

func TestLoad_File(t *testing.T) {
	orig := mustNew(t, validDefinition())
	data, err := Marshal(orig)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "mini.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mini", c.Name())
}

func TestLoad_Unknown(t *testing.T) {
	_, err := Load("does-not-exist")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrConfiguration))
}

func TestWithScaleMax(t *testing.T) {
	c, err := Load("compass")
	require.NoError(t, err)

	same, err := c.WithScaleMax(0)
	require.NoError(t, err)
	assert.Same(t, c, same)

	five, err := c.WithScaleMax(5)
	require.NoError(t, err)
	assert.Equal(t, model.Scale{Min: 1, Max: 5}, five.Scale())
	assert.Equal(t, 6, c.Scale().Max, "receiver is untouched")

	_, err = c.WithScaleMax(1)
	assert.True(t, errors.Is(err, model.ErrConfiguration))
}
