package vtree

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Kind identifies a node kind. Kinds are declared by a Schema.
type Kind string

// ValidateKind reports whether k can be used inside a Path.
func ValidateKind(k Kind) error {
	if k == "" {
		return NewInputError("empty node kind", nil).WithCode(ErrCodeSchemaViolation)
	}
	if strings.ContainsAny(string(k), "/@#%") {
		return NewInputError(fmt.Sprintf("node kind %q contains a reserved character", k), nil).
			WithCode(ErrCodeSchemaViolation)
	}
	return nil
}

// Key distinguishes siblings of the same kind. A key is either explicit
// (Name != "") or positional (Index among unkeyed siblings of that kind).
type Key struct {
	Name  string
	Index int
}

// Named returns an explicit key.
func Named(name string) Key {
	return Key{Name: name}
}

// Positional returns a positional key.
func Positional(index int) Key {
	return Key{Index: index}
}

// IsExplicit reports whether the key was supplied by the tree author.
func (k Key) IsExplicit() bool {
	return k.Name != ""
}

// String renders "@name" for explicit keys and "#index" for positional ones.
func (k Key) String() string {
	if k.IsExplicit() {
		return "@" + url.PathEscape(k.Name)
	}
	return "#" + strconv.Itoa(k.Index)
}

// Compare orders positional keys before explicit keys, positional keys
// numerically and explicit keys lexicographically.
func (k Key) Compare(o Key) int {
	switch {
	case !k.IsExplicit() && o.IsExplicit():
		return -1
	case k.IsExplicit() && !o.IsExplicit():
		return 1
	case k.IsExplicit():
		return strings.Compare(k.Name, o.Name)
	case k.Index < o.Index:
		return -1
	case k.Index > o.Index:
		return 1
	}
	return 0
}

// Step is one (kind, key) pair of a Path.
type Step struct {
	Kind Kind
	Key  Key
}

// String renders the step as "Kind@name" or "Kind#index".
func (s Step) String() string {
	return string(s.Kind) + s.Key.String()
}

// Compare orders steps by kind, then key.
func (s Step) Compare(o Step) int {
	if c := strings.Compare(string(s.Kind), string(o.Kind)); c != 0 {
		return c
	}
	return s.Key.Compare(o.Key)
}

// Path is the identity of a node: the (kind, key) steps from the root.
// The zero value is the root path. Paths are comparable and may be used
// directly as map keys.
type Path struct {
	enc string
}

// Root returns the empty path.
func Root() Path {
	return Path{}
}

// Append returns p extended by s.
func (p Path) Append(s Step) Path {
	return Path{enc: p.enc + "/" + s.String()}
}

// Child returns p extended by the step (kind, key).
func (p Path) Child(kind Kind, key Key) Path {
	return p.Append(Step{Kind: kind, Key: key})
}

// IsRoot reports whether p is the empty path.
func (p Path) IsRoot() bool {
	return p.enc == ""
}

// Parent returns p without its last step. The root has no parent.
func (p Path) Parent() (Path, error) {
	if p.IsRoot() {
		return Path{}, NewFatalError("root path has no parent", nil).
			WithCode(ErrCodeInvalidOperation).
			WithOperation("parent")
	}
	return Path{enc: p.enc[:strings.LastIndexByte(p.enc, '/')]}, nil
}

// Len returns the number of steps.
func (p Path) Len() int {
	return strings.Count(p.enc, "/")
}

// Steps decodes the step sequence.
func (p Path) Steps() []Step {
	if p.IsRoot() {
		return nil
	}
	parts := strings.Split(p.enc[1:], "/")
	steps := make([]Step, len(parts))
	for i, part := range parts {
		// The encoding is produced by Append, so it always parses.
		steps[i], _ = parseStep(part)
	}
	return steps
}

// Last returns the final step. ok is false for the root.
func (p Path) Last() (s Step, ok bool) {
	if p.IsRoot() {
		return Step{}, false
	}
	s, err := parseStep(p.enc[strings.LastIndexByte(p.enc, '/')+1:])
	return s, err == nil
}

// HasPrefix reports whether prefix is p or one of its ancestors.
func (p Path) HasPrefix(prefix Path) bool {
	if prefix.IsRoot() || p == prefix {
		return true
	}
	return strings.HasPrefix(p.enc, prefix.enc+"/")
}

// Compare orders paths lexicographically by step; a proper prefix sorts first.
func (p Path) Compare(o Path) int {
	if p == o {
		return 0
	}
	a, b := p.Steps(), o.Steps()
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := a[i].Compare(b[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

// Less reports whether p sorts before o.
func (p Path) Less(o Path) bool {
	return p.Compare(o) < 0
}

// String renders the path, "/" for the root.
func (p Path) String() string {
	if p.IsRoot() {
		return "/"
	}
	return p.enc
}

// MarshalText implements encoding.TextMarshaler.
func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Path) UnmarshalText(b []byte) error {
	parsed, err := ParsePath(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePath parses the form produced by Path.String.
func ParsePath(s string) (Path, error) {
	if s == "/" || s == "" {
		return Root(), nil
	}
	if !strings.HasPrefix(s, "/") {
		return Path{}, NewInputError(fmt.Sprintf("path %q must start with /", s), nil).
			WithCode(ErrCodeDecodeFailed)
	}
	p := Root()
	for _, part := range strings.Split(s[1:], "/") {
		step, err := parseStep(part)
		if err != nil {
			return Path{}, NewInputError(fmt.Sprintf("invalid path %q", s), err).
				WithCode(ErrCodeDecodeFailed)
		}
		p = p.Append(step)
	}
	return p, nil
}

func parseStep(s string) (Step, error) {
	i := strings.IndexAny(s, "@#")
	if i <= 0 {
		return Step{}, fmt.Errorf("step %q has no key", s)
	}
	step := Step{Kind: Kind(s[:i])}
	rest := s[i+1:]
	if s[i] == '#' {
		n, err := strconv.Atoi(rest)
		if err != nil || n < 0 {
			return Step{}, fmt.Errorf("step %q has an invalid index", s)
		}
		step.Key = Positional(n)
		return step, nil
	}
	name, err := url.PathUnescape(rest)
	if err != nil || name == "" {
		return Step{}, fmt.Errorf("step %q has an invalid name", s)
	}
	step.Key = Named(name)
	return step, nil
}
