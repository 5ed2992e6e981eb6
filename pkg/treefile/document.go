// Package treefile loads tree snapshots from YAML, JSON and CUE documents.
//
// A document is a nested node description:
//
//	kind: Root
//	children:
//	  - kind: Window
//	    key: main
//	    params: {title: Hello}
//	    children:
//	      - kind: Button
//
// Params are decoded into the parameter record the schema declares for the
// kind, validated with go-playground/validator struct tags, and the whole
// tree is checked against the schema before it is returned.
package treefile

import (
	"strconv"

	"github.com/openfroyo/vtree/pkg/vtree"
)

// Document is the serialized form of a node.
type Document struct {
	Kind     string         `json:"kind" yaml:"kind" validate:"required"`
	Key      string         `json:"key,omitempty" yaml:"key,omitempty"`
	Params   map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
	Children []Document     `json:"children,omitempty" yaml:"children,omitempty" validate:"dive"`
}

// Format is a document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatCUE  Format = "cue"
)

// ValidationError locates one problem in a source document.
type ValidationError struct {
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	loc := e.File
	if e.Line > 0 {
		if loc == "" {
			loc = "<input>"
		}
		loc = loc + ":" + strconv.Itoa(e.Line) + ":" + strconv.Itoa(e.Column)
	}
	msg := e.Message
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if loc != "" {
		msg = loc + ": " + msg
	}
	return msg
}

// FromNode converts a node tree back into a document. Params are encoded
// through their JSON form.
func FromNode(n *vtree.Node) (Document, error) {
	doc := Document{Kind: string(n.Kind), Key: n.Key}
	if n.Params != nil {
		params, err := toMap(n.Params)
		if err != nil {
			return Document{}, err
		}
		doc.Params = params
	}
	for _, c := range n.Children {
		cd, err := FromNode(c)
		if err != nil {
			return Document{}, err
		}
		doc.Children = append(doc.Children, cd)
	}
	return doc, nil
}
