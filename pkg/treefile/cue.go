package treefile

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

// nodeSchema constrains CUE tree documents. A document either is a #Node
// or holds one under a top-level "tree" field.
const nodeSchema = `
#Node: {
	// kind names a schema kind; path separators are reserved
	kind: string & =~"^[^/@#%]+$"

	// key is the optional explicit sibling key
	key?: string & !=""

	// params is the parameter record of the kind
	params?: {...}

	children?: [...#Node]
}
`

type cueDecoder struct {
	ctx    *cue.Context
	schema cue.Value
}

func newCUEDecoder() *cueDecoder {
	ctx := cuecontext.New()
	schema := ctx.CompileString(nodeSchema, cue.Filename("node.cue"))
	return &cueDecoder{
		ctx:    ctx,
		schema: schema.LookupPath(cue.ParsePath("#Node")),
	}
}

func (d *cueDecoder) decode(filename string, data []byte) (Document, error) {
	var doc Document
	if err := d.schema.Err(); err != nil {
		return doc, fmt.Errorf("compile node schema: %w", err)
	}

	val := d.ctx.CompileBytes(data, cue.Filename(filename))
	if err := val.Err(); err != nil {
		return doc, convertCUEErrors(err)
	}
	if tree := val.LookupPath(cue.ParsePath("tree")); tree.Exists() {
		val = tree
	}

	unified := d.schema.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return doc, convertCUEErrors(err)
	}
	if err := unified.Decode(&doc); err != nil {
		return doc, fmt.Errorf("decode tree: %w", err)
	}
	return doc, nil
}

// convertCUEErrors flattens a CUE error list into located validation errors.
func convertCUEErrors(err error) error {
	var errs []error
	for _, e := range cueerrors.Errors(err) {
		ve := ValidationError{Message: cueerrors.Details(e, nil)}
		if pos := cueerrors.Positions(e); len(pos) > 0 {
			ve.File = pos[0].Filename()
			ve.Line = pos[0].Line()
			ve.Column = pos[0].Column()
		}
		errs = append(errs, ve)
	}
	if len(errs) == 0 {
		return err
	}
	return errors.Join(errs...)
}
