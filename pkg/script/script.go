// Package script authors tree snapshots with Starlark.
//
// A script defines view(tick) returning the root node built with the
// node() builtin:
//
//	def view(tick):
//	    return node("Root",
//	        node("Window",
//	            node("Label", node("Text", value = "tick %d" % tick)),
//	            key = "main", title = "Counter"))
//
// node(kind, *children, key=None, **params) accepts nested lists of
// children and skips None, so conditional children read naturally.
package script

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/openfroyo/vtree/pkg/treefile"
	"github.com/openfroyo/vtree/pkg/vtree"
)

// DefaultTimeout bounds one view evaluation.
const DefaultTimeout = 5 * time.Second

// Script is a compiled view script.
type Script struct {
	filename string
	view     *starlark.Function
	loader   *treefile.Loader
	logger   zerolog.Logger
	timeout  time.Duration
	vars     map[string]any
}

// Option configures a Script.
type Option func(*Script)

// WithLogger routes script print() output to logger at debug level.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Script) { s.logger = logger }
}

// WithTimeout bounds each view evaluation.
func WithTimeout(d time.Duration) Option {
	return func(s *Script) { s.timeout = d }
}

// WithVars predeclares vars as script globals.
func WithVars(vars map[string]any) Option {
	return func(s *Script) { s.vars = vars }
}

// LoadFile compiles the script at path.
func LoadFile(path string, loader *treefile.Loader, opts ...Option) (*Script, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, vtree.NewInputError("failed to read script", err).
			WithCode(vtree.ErrCodeDecodeFailed).
			WithDetail("file", path)
	}
	return Load(path, src, loader, opts...)
}

// Load executes the top level of src and looks up its view function.
func Load(filename string, src []byte, loader *treefile.Loader, opts ...Option) (*Script, error) {
	s := &Script{
		filename: filename,
		loader:   loader,
		logger:   zerolog.Nop(),
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	env := predeclared()
	for name, v := range s.vars {
		sv, err := toStarlarkValue(v)
		if err != nil {
			return nil, vtree.NewInputError(fmt.Sprintf("failed to convert script variable %s", name), err).
				WithCode(vtree.ErrCodeDecodeFailed)
		}
		env[name] = sv
	}

	thread := s.newThread()
	globals, err := starlark.ExecFile(thread, filename, src, env)
	if err != nil {
		return nil, vtree.NewInputError("starlark execution failed", err).
			WithCode(vtree.ErrCodeDecodeFailed).
			WithDetail("file", filename)
	}
	fn, ok := globals["view"].(*starlark.Function)
	if !ok {
		return nil, vtree.NewInputError("script does not define view(tick)", nil).
			WithCode(vtree.ErrCodeDecodeFailed).
			WithDetail("file", filename)
	}
	if fn.NumParams() != 1 {
		return nil, vtree.NewInputError(fmt.Sprintf("view must take exactly one parameter, takes %d", fn.NumParams()), nil).
			WithCode(vtree.ErrCodeDecodeFailed).
			WithDetail("file", filename)
	}
	s.view = fn
	return s, nil
}

// View evaluates view(tick) and builds the returned tree.
func (s *Script) View(ctx context.Context, tick int) (*vtree.Node, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	thread := s.newThread()
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel(ctx.Err().Error())
		case <-done:
		}
	}()

	result, err := starlark.Call(thread, s.view, starlark.Tuple{starlark.MakeInt(tick)}, nil)
	if err != nil {
		return nil, vtree.NewInputError("view evaluation failed", err).
			WithCode(vtree.ErrCodeDecodeFailed).
			WithDetail("file", s.filename).
			WithDetail("tick", tick)
	}
	value, err := fromStarlarkValue(result)
	if err != nil {
		return nil, vtree.NewInputError("view returned an unsupported value", err).
			WithCode(vtree.ErrCodeDecodeFailed)
	}
	m, ok := value.(map[string]any)
	if !ok {
		return nil, vtree.NewInputError(fmt.Sprintf("view must return a node, got %s", result.Type()), nil).
			WithCode(vtree.ErrCodeDecodeFailed)
	}
	return s.loader.FromMap(m)
}

func (s *Script) newThread() *starlark.Thread {
	return &starlark.Thread{
		Name: "view",
		Print: func(_ *starlark.Thread, msg string) {
			s.logger.Debug().Str("script", s.filename).Msg(msg)
		},
	}
}

func predeclared() starlark.StringDict {
	return starlark.StringDict{
		"struct": starlarkstruct.Default,
		"node":   starlark.NewBuiltin("node", builtinNode),
	}
}

// builtinNode implements node(kind, *children, key=None, **params).
func builtinNode(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%s: missing kind", b.Name())
	}
	kind, ok := starlark.AsString(args[0])
	if !ok {
		return nil, fmt.Errorf("%s: kind must be a string, got %s", b.Name(), args[0].Type())
	}

	out := starlark.NewDict(4)
	if err := out.SetKey(starlark.String("kind"), starlark.String(kind)); err != nil {
		return nil, err
	}

	params := starlark.NewDict(len(kwargs))
	for _, kv := range kwargs {
		name := string(kv[0].(starlark.String))
		if name == "key" {
			if kv[1] == starlark.None {
				continue
			}
			key, ok := starlark.AsString(kv[1])
			if !ok {
				return nil, fmt.Errorf("%s: key must be a string, got %s", b.Name(), kv[1].Type())
			}
			if err := out.SetKey(starlark.String("key"), starlark.String(key)); err != nil {
				return nil, err
			}
			continue
		}
		if err := params.SetKey(kv[0], kv[1]); err != nil {
			return nil, err
		}
	}
	if params.Len() > 0 {
		if err := out.SetKey(starlark.String("params"), params); err != nil {
			return nil, err
		}
	}

	var children []starlark.Value
	if err := collectChildren(b.Name(), args[1:], &children); err != nil {
		return nil, err
	}
	if len(children) > 0 {
		if err := out.SetKey(starlark.String("children"), starlark.NewList(children)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func collectChildren(fn string, args []starlark.Value, out *[]starlark.Value) error {
	for _, a := range args {
		switch v := a.(type) {
		case starlark.NoneType:
		case *starlark.Dict:
			*out = append(*out, v)
		case *starlark.List:
			items := make([]starlark.Value, v.Len())
			for i := range items {
				items[i] = v.Index(i)
			}
			if err := collectChildren(fn, items, out); err != nil {
				return err
			}
		case starlark.Tuple:
			if err := collectChildren(fn, v, out); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%s: child must be a node, got %s", fn, a.Type())
		}
	}
	return nil
}
