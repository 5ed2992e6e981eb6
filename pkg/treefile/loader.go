package treefile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/openfroyo/vtree/pkg/vtree"
)

// Loader turns documents into schema-checked snapshots.
type Loader struct {
	schema    *vtree.Schema
	validator *validator.Validate
	cue       *cueDecoder
}

// NewLoader creates a loader for schema.
func NewLoader(schema *vtree.Schema) *Loader {
	return &Loader{
		schema:    schema,
		validator: validator.New(),
		cue:       newCUEDecoder(),
	}
}

// Schema returns the schema snapshots are checked against.
func (l *Loader) Schema() *vtree.Schema {
	return l.schema
}

// FormatOf picks the document format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".cue":
		return FormatCUE, nil
	}
	return "", vtree.NewInputError(fmt.Sprintf("unsupported tree file extension %q", filepath.Ext(path)), nil).
		WithCode(vtree.ErrCodeDecodeFailed)
}

// LoadFile reads and builds the snapshot stored at path.
func (l *Loader) LoadFile(path string) (*vtree.Node, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, vtree.NewInputError("tree file not found", err).
				WithCode(vtree.ErrCodeDecodeFailed).
				WithDetail("file", path)
		}
		return nil, vtree.NewTransientError("failed to read tree file", err).
			WithCode(vtree.ErrCodeDecodeFailed).
			WithDetail("file", path)
	}
	return l.Decode(format, path, data)
}

// Decode parses data in format and builds the snapshot. filename is only
// used in error messages.
func (l *Loader) Decode(format Format, filename string, data []byte) (*vtree.Node, error) {
	doc, err := l.parse(format, filename, data)
	if err != nil {
		return nil, vtree.NewInputError(fmt.Sprintf("failed to decode %s document", format), err).
			WithCode(vtree.ErrCodeDecodeFailed).
			WithDetail("file", filename)
	}
	return l.Build(doc)
}

func (l *Loader) parse(format Format, filename string, data []byte) (Document, error) {
	var doc Document
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				return doc, errors.New("empty document")
			}
			return doc, err
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return doc, err
		}
	case FormatCUE:
		return l.cue.decode(filename, data)
	default:
		return doc, fmt.Errorf("unsupported format %q", format)
	}
	return doc, nil
}

// FromMap builds a snapshot from a generic map, as produced by scripts.
func (l *Loader) FromMap(m map[string]any) (*vtree.Node, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, vtree.NewInputError("tree is not JSON encodable", err).WithCode(vtree.ErrCodeDecodeFailed)
	}
	return l.Decode(FormatJSON, "<map>", data)
}

// Build converts a document into a node tree and checks it against the
// schema. All problems are reported together.
func (l *Loader) Build(doc Document) (*vtree.Node, error) {
	if err := l.validator.Struct(doc); err != nil {
		return nil, vtree.NewInputError("malformed tree document", err).WithCode(vtree.ErrCodeDecodeFailed)
	}

	var errs []error
	root := l.toNode(vtree.Root(), doc, &errs)
	if len(errs) > 0 {
		return nil, vtree.NewInputError("invalid node params", errors.Join(errs...)).
			WithCode(vtree.ErrCodeSchemaViolation).
			WithDetail("violations", len(errs))
	}
	if err := l.schema.Validate(root); err != nil {
		return nil, err
	}
	return root, nil
}

func (l *Loader) toNode(p vtree.Path, doc Document, errs *[]error) *vtree.Node {
	n := &vtree.Node{Kind: vtree.Kind(doc.Kind), Key: doc.Key}
	params, err := l.decodeParams(n.Kind, doc.Params)
	if err != nil {
		*errs = append(*errs, ValidationError{Path: p.String(), Message: err.Error()})
	}
	n.Params = params

	for i, cd := range doc.Children {
		// Child paths in messages use the document index; real keys are
		// only known once every sibling is decoded.
		cp := p.Child(vtree.Kind(cd.Kind), vtree.Positional(i))
		if cd.Key != "" {
			cp = p.Child(vtree.Kind(cd.Kind), vtree.Named(cd.Key))
		}
		n.Children = append(n.Children, l.toNode(cp, cd, errs))
	}
	return n
}

func (l *Loader) decodeParams(kind vtree.Kind, raw map[string]any) (any, error) {
	if err := vtree.ValidateKind(kind); err != nil {
		return nil, err
	}
	if _, ok := l.schema.Spec(kind); !ok {
		// Reported by schema validation.
		return nil, nil
	}
	target := l.schema.NewParams(kind)
	if target == nil {
		if len(raw) > 0 {
			return nil, fmt.Errorf("kind %s takes no params", kind)
		}
		return nil, nil
	}
	if len(raw) > 0 {
		data, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("encode params: %w", err)
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(target); err != nil {
			return nil, fmt.Errorf("decode %s params: %w", kind, err)
		}
	}
	value := reflect.ValueOf(target).Elem()
	if value.Kind() == reflect.Struct {
		if err := l.validator.Struct(target); err != nil {
			return nil, fmt.Errorf("%s params: %w", kind, err)
		}
	}
	return value.Interface(), nil
}

func toMap(params any) (map[string]any, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("params %T do not encode as an object: %w", params, err)
	}
	return m, nil
}
