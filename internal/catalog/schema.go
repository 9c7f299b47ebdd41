package catalog

import (
	"embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schemas/catalog.cue
var schemaFS embed.FS

// SchemaValidator checks decoded catalog documents against the embedded CUE schema
type SchemaValidator struct {
	ctx    *cue.Context
	schema cue.Value
}

// NewSchemaValidator compiles the embedded schema
func NewSchemaValidator() (*SchemaValidator, error) {
	content, err := schemaFS.ReadFile("schemas/catalog.cue")
	if err != nil {
		return nil, fmt.Errorf("read catalog schema: %w", err)
	}

	ctx := cuecontext.New()
	inst := ctx.CompileBytes(content, cue.Filename("catalog.cue"))
	if err := inst.Err(); err != nil {
		return nil, fmt.Errorf("compile catalog schema: %w", err)
	}

	def := inst.LookupPath(cue.ParsePath("#Catalog"))
	if !def.Exists() {
		return nil, fmt.Errorf("catalog schema has no #Catalog definition")
	}

	return &SchemaValidator{ctx: ctx, schema: def}, nil
}

// Validate returns one problem string per schema violation
func (v *SchemaValidator) Validate(doc map[string]any) []string {
	data := v.ctx.Encode(doc)
	if err := data.Err(); err != nil {
		return []string{fmt.Sprintf("encode document: %v", err)}
	}

	unified := v.schema.Unify(data)
	if err := unified.Err(); err != nil {
		return flatten(err)
	}

	// Concreteness catches required fields that are absent
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return flatten(err)
	}

	return nil
}

func flatten(err error) []string {
	var problems []string
	for _, e := range cueerrors.Errors(err) {
		problems = append(problems, "schema: "+e.Error())
	}
	if len(problems) == 0 {
		problems = append(problems, "schema: "+err.Error())
	}
	return problems
}
