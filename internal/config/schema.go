package config

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
)

//go:embed schema.cue
var schemaCUE string

// ValidateSchema checks raw YAML against the embedded document schema.
// name is used in error positions (typically the file name). Returns a
// *Error with the CUE path of the first violation.
func ValidateSchema(name string, data []byte) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("internal: document schema does not compile: %w", err)
	}

	file, err := cueyaml.Extract(name, data)
	if err != nil {
		return &Error{Code: ErrCodeParse, Message: fmt.Sprintf("unparseable document %s: %v", name, err), Err: err}
	}
	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return &Error{Code: ErrCodeParse, Message: fmt.Sprintf("building document %s: %v", name, err), Err: err}
	}

	unified := schema.Unify(doc)
	if err := unified.Validate(); err != nil {
		detail := errors.Details(err, nil)
		return &Error{Code: ErrCodeSchema, Key: name, Message: detail, Err: err}
	}
	return nil
}
