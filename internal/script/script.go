// Package script runs Starlark design scripts. A script sees the default
// bracket parameters and the active profile, and may override parameters
// and request extra section exports:
//
//	if profile == "thin":
//	    bracket(thickness = 1.6)
//	section("XZ", -24, name = "camera")
package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/bracket"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/export"
)

// fileOptions allow design scripts to branch and loop at top level and to
// rebind globals, as profile-dependent scripts do.
var fileOptions = &syntax.FileOptions{
	TopLevelControl: true,
	GlobalReassign:  true,
	While:           true,
}

// Options configure a script run.
type Options struct {
	// Params are the defaults exposed as the params global.
	Params bracket.Params
	// Profile is exposed as the profile global.
	Profile string
	Logger  *slog.Logger
}

// Result is what a script asked for.
type Result struct {
	// Params are the defaults with the bracket() overrides applied.
	Params    bracket.Params
	Overrides map[string]float64
	Sections  []export.Section
}

// Error is a script failure with its location.
type Error struct {
	File string
	Line int
	Col  int
	Msg  string
}

func (e *Error) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("%s: %s", e.File, e.Msg)
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Col, e.Msg)
}

// RunFile reads and runs the script at path.
func RunFile(ctx context.Context, path string, opts Options) (*Result, error) {
	src, err := os.ReadFile(path) //nolint:gosec // G304: path is the user's script
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return Run(ctx, path, src, opts)
}

// Run executes src as the script named filename.
func Run(ctx context.Context, filename string, src []byte, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	env := newEnv(opts.Params)
	thread := &starlark.Thread{
		Name: filename,
		Print: func(_ *starlark.Thread, msg string) {
			logger.Info(msg, slog.String("script", filename))
		},
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel(ctx.Err().Error())
		case <-done:
		}
	}()

	predeclared := env.predeclared(opts.Profile)
	if _, err := starlark.ExecFileOptions(fileOptions, thread, filename, src, predeclared); err != nil {
		return nil, locate(filename, err)
	}

	p := opts.Params
	if err := p.Apply(env.overrides); err != nil {
		return nil, &Error{File: filename, Msg: err.Error()}
	}
	if err := p.Validate(); err != nil {
		return nil, &Error{File: filename, Line: int(env.bracketPos.Line), Col: int(env.bracketPos.Col),
			Msg: fmt.Sprintf("invalid bracket parameters: %v", err)}
	}

	logger.Debug("script finished", slog.String("script", filename),
		slog.Int("overrides", len(env.overrides)), slog.Int("sections", len(env.sections)))

	return &Result{Params: p, Overrides: env.overrides, Sections: env.sections}, nil
}

// locate turns a Starlark error into an Error carrying the innermost
// position inside the script.
func locate(filename string, err error) error {
	var syntaxErr syntax.Error
	if errors.As(err, &syntaxErr) {
		return &Error{File: filename, Line: int(syntaxErr.Pos.Line), Col: int(syntaxErr.Pos.Col), Msg: syntaxErr.Msg}
	}
	var resolveErrs resolve.ErrorList
	if errors.As(err, &resolveErrs) && len(resolveErrs) > 0 {
		first := resolveErrs[0]
		return &Error{File: filename, Line: int(first.Pos.Line), Col: int(first.Pos.Col), Msg: first.Msg}
	}
	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		e := &Error{File: filename, Msg: evalErr.Msg}
		for i := range evalErr.CallStack {
			pos := evalErr.CallStack.At(i).Pos
			if pos.IsValid() && pos.Filename() == filename {
				e.Line, e.Col = int(pos.Line), int(pos.Col)
				break
			}
		}
		return e
	}
	return &Error{File: filename, Msg: err.Error()}
}

// paramsDict returns the parameters as a frozen dict in declaration order.
func paramsDict(p bracket.Params) *starlark.Dict {
	values := p.Map()
	dict := starlark.NewDict(len(values))
	for _, name := range bracket.Names() {
		_ = dict.SetKey(starlark.String(name), starlark.Float(values[name]))
	}
	dict.Freeze()
	return dict
}
