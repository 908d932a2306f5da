package manifest

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaSource string

// validate checks decoded manifest data against the embedded schema. A
// cue.Context is not safe for concurrent use, so each call builds its own.
func validate(raw map[string]interface{}) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("manifest schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Manifest"))
	v := ctx.Encode(raw)
	if err := v.Err(); err != nil {
		return fmt.Errorf("invalid manifest: %w", err)
	}
	if err := def.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid manifest: %s", cueerrors.Details(err, nil))
	}
	return nil
}
