package script

import (
	"fmt"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/bracket"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/export"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/geom"
)

// env collects what the builtins record during one run.
type env struct {
	defaults   bracket.Params
	known      map[string]bool
	overrides  map[string]float64
	called     bool
	bracketPos syntax.Position
	sections   []export.Section
}

func newEnv(p bracket.Params) *env {
	known := make(map[string]bool)
	for _, name := range bracket.Names() {
		known[name] = true
	}
	return &env{defaults: p, known: known, overrides: make(map[string]float64)}
}

// predeclared returns the globals of a script.
func (e *env) predeclared(profile string) starlark.StringDict {
	if profile == "" {
		profile = "default"
	}
	return starlark.StringDict{
		"params":  paramsDict(e.defaults),
		"profile": starlark.String(profile),
		"bracket": starlark.NewBuiltin("bracket", e.bracket),
		"section": starlark.NewBuiltin("section", e.section),
	}
}

// bracket(**kwargs) overrides bracket parameters.
func (e *env) bracket(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(args) > 0 {
		return nil, fmt.Errorf("%s: unexpected positional arguments, use name = value", fn.Name())
	}
	if e.called {
		return nil, fmt.Errorf("%s: may only be called once", fn.Name())
	}
	e.called = true
	if thread.CallStackDepth() > 1 {
		e.bracketPos = thread.CallFrame(1).Pos
	}

	for _, kv := range kwargs {
		name := string(kv[0].(starlark.String))
		if !e.known[name] {
			return nil, fmt.Errorf("%s: unknown parameter %q", fn.Name(), name)
		}
		v, ok := number(kv[1])
		if !ok {
			return nil, fmt.Errorf("%s: %s must be a number, got %s", fn.Name(), name, kv[1].Type())
		}
		e.overrides[name] = v
	}
	return starlark.None, nil
}

// section(plane, height, name=None) requests an extra section export.
func (e *env) section(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		plane  string
		height starlark.Value
		name   starlark.Value = starlark.None
	)
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "plane", &plane, "height", &height, "name?", &name); err != nil {
		return nil, err
	}

	plane = strings.ToUpper(plane)
	if _, err := geom.NamedPlane(plane, 0); err != nil {
		return nil, fmt.Errorf("%s: %w", fn.Name(), err)
	}
	h, ok := number(height)
	if !ok {
		return nil, fmt.Errorf("%s: height must be a number, got %s", fn.Name(), height.Type())
	}

	var label string
	switch v := name.(type) {
	case starlark.NoneType:
		label = export.SectionName(plane, h)
	case starlark.String:
		label = string(v)
	default:
		return nil, fmt.Errorf("%s: name must be a string, got %s", fn.Name(), name.Type())
	}
	if label == "" || strings.ContainsAny(label, `/\`) {
		return nil, fmt.Errorf("%s: invalid name %q", fn.Name(), label)
	}
	for _, s := range e.sections {
		if s.Name == label {
			return nil, fmt.Errorf("%s: duplicate section name %q", fn.Name(), label)
		}
	}

	e.sections = append(e.sections, export.Section{Name: label, Plane: plane, Height: h})
	return starlark.None, nil
}

// number accepts ints and floats, not bools.
func number(v starlark.Value) (float64, bool) {
	switch v.(type) {
	case starlark.Int, starlark.Float:
		return starlark.AsFloat(v)
	}
	return 0, false
}
