package harness

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
)

//go:embed schema.cue
var schemaCUE string

var (
	schemaOnce  sync.Once
	schemaValue cue.Value
	schemaErr   error
)

// scenarioSchema compiles the embedded schema once and returns the #Scenario
// definition.
func scenarioSchema() (cue.Value, error) {
	schemaOnce.Do(func() {
		ctx := cuecontext.New()
		v := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("failed to compile scenario schema: %w", err)
			return
		}
		def := v.LookupPath(cue.ParsePath("#Scenario"))
		if err := def.Err(); err != nil {
			schemaErr = fmt.Errorf("schema has no #Scenario definition: %w", err)
			return
		}
		schemaValue = def
	})
	return schemaValue, schemaErr
}

// validateWithSchema checks raw scenario YAML against the embedded CUE
// schema. This catches structural mistakes (wrong types, bad assertion
// names) with positions before the strict YAML decode runs.
func validateWithSchema(data []byte) error {
	schema, err := scenarioSchema()
	if err != nil {
		return err
	}
	return cueyaml.Validate(data, schema)
}
