package catalog

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalogs/*.yaml
var builtinFS embed.FS

// DefaultName is the catalog used when none is configured
const DefaultName = "compass"

// Builtins returns the names of the embedded catalogs
func Builtins() []string {
	entries, err := builtinFS.ReadDir("catalogs")
	if err != nil {
		return nil
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && path.Ext(entry.Name()) == ".yaml" {
			names = append(names, strings.TrimSuffix(entry.Name(), ".yaml"))
		}
	}
	sort.Strings(names)
	return names
}

// Load resolves a built-in catalog by name, otherwise reads the file at ref
func Load(ref string) (*Catalog, error) {
	if ref == "" {
		ref = DefaultName
	}

	if data, err := builtinFS.ReadFile("catalogs/" + ref + ".yaml"); err == nil {
		return Parse(data, ref)
	}

	data, err := os.ReadFile(ref)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &MalformedCatalogError{
				Catalog:  ref,
				Problems: []string{fmt.Sprintf("not a built-in catalog (%s) and no such file", strings.Join(Builtins(), ", "))},
			}
		}
		return nil, fmt.Errorf("read catalog %s: %w", ref, err)
	}
	return Parse(data, ref)
}

// Parse decodes a YAML (or JSON) catalog document, checks it against the
// schema and then against the semantic rules
func Parse(data []byte, source string) (*Catalog, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &MalformedCatalogError{Catalog: source, Problems: []string{fmt.Sprintf("decode: %v", err)}}
	}
	if doc == nil {
		return nil, &MalformedCatalogError{Catalog: source, Problems: []string{"document is empty"}}
	}

	validator, err := NewSchemaValidator()
	if err != nil {
		return nil, err
	}
	if problems := validator.Validate(doc); len(problems) > 0 {
		return nil, &MalformedCatalogError{Catalog: source, Problems: problems}
	}

	var def Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, &MalformedCatalogError{Catalog: source, Problems: []string{fmt.Sprintf("decode: %v", err)}}
	}

	return New(def)
}

// Marshal renders the catalog as a YAML document accepted by Parse
func Marshal(c *Catalog) ([]byte, error) {
	data, err := yaml.Marshal(c.Definition())
	if err != nil {
		return nil, fmt.Errorf("marshal catalog: %w", err)
	}
	return data, nil
}
