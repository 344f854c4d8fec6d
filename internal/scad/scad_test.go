package scad

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/testutil"
)

func TestImportSource(t *testing.T) {
	src := ImportSource("l_bracket.stl")
	assert.Equal(t, "model", src.Name)
	assert.Contains(t, src.Code, "import(\"l_bracket.stl\");\n")

	src = ImportSource(`out\part.stl`)
	assert.Contains(t, src.Code, `import("out/part.stl");`)
}

func TestProjections(t *testing.T) {
	srcs := Projections("l_bracket.stl")
	require.Len(t, srcs, 3)

	names := make([]string, 0, len(srcs))
	for _, s := range srcs {
		names = append(names, s.Name)
		assert.Contains(t, s.Code, "projection(cut=false)")
	}
	assert.Equal(t, []string{"top", "front", "side"}, names)
	assert.Contains(t, srcs[1].Code, "rotate([90,0,0]) import(\"l_bracket.stl\");")
	assert.Contains(t, srcs[2].Code, "rotate([90,0,90])")
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "model.scad")
	require.NoError(t, WriteFile(path, ImportSource("model.stl")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `import("model.stl");`)
}

func TestViews(t *testing.T) {
	views := DefaultViews()
	require.Len(t, views, 4)
	assert.Equal(t, "0,-150,50,60,0,0,250", views[0].CameraArg())

	iso, ok := FindView("iso")
	require.True(t, ok)
	assert.Equal(t, "100,-100,100,55,0,45,300", iso.CameraArg())

	_, ok = FindView("bottom")
	assert.False(t, ok)
}

// fakeRunner records calls. Run writes the image named by -o unless fail or
// block is set.
type fakeRunner struct {
	mu      sync.Mutex
	calls   [][]string
	missing map[string]bool
	fail    map[string]bool
	block   bool
	stopped bool
}

func (f *fakeRunner) Run(ctx context.Context, env []string, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	out := args[1]
	for view := range f.fail {
		if strings.Contains(out, view) {
			return []byte("CGAL error\n"), errors.New("exit status 1")
		}
	}
	if !contains(env, "DISPLAY=:42") {
		return nil, errors.New("DISPLAY not set")
	}
	return nil, os.WriteFile(out, []byte("png"), 0o644)
}

func (f *fakeRunner) Start(_ []string, name string, args ...string) (func() error, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string{name}, args...))
	return func() error {
		f.stopped = true
		return nil
	}, nil
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	if f.missing[name] {
		return "", exec.ErrNotFound
	}
	return "/usr/bin/" + name, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func newTestRenderer(t *testing.T, runner *fakeRunner) *Renderer {
	t.Helper()
	return NewRenderer(RenderOptions{
		Display:   42,
		SocketDir: t.TempDir(),
		Runner:    runner,
		Logger:    testutil.NewTestLogger(t),
		Timeout:   time.Second,
	})
}

func writeScad(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.scad")
	require.NoError(t, WriteFile(path, ImportSource("model.stl")))
	return path
}

func TestRenderer_StartAndClose(t *testing.T) {
	runner := &fakeRunner{}
	r := newTestRenderer(t, runner)

	require.NoError(t, r.Start(context.Background()))
	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"Xvfb", ":42", "-screen", "0", "1920x1080x24", "-ac", "+extension", "GLX", "+render", "-noreset"}, runner.calls[0])

	require.NoError(t, r.Close())
	assert.True(t, runner.stopped)
	require.NoError(t, r.Close())
}

func TestNewRenderer_Display(t *testing.T) {
	tests := []struct {
		display int
		want    string
	}{
		{0, ":0"},
		{7, ":7"},
		{-1, ":99"},
	}
	for _, tt := range tests {
		r := NewRenderer(RenderOptions{Display: tt.display})
		assert.Equal(t, tt.want, r.DisplayName(), "display %d", tt.display)
	}
	assert.Equal(t, ":99", NewRenderer(DefaultRenderOptions()).DisplayName())
}

func TestRenderer_ReusesRunningDisplay(t *testing.T) {
	runner := &fakeRunner{}
	r := newTestRenderer(t, runner)
	require.NoError(t, os.WriteFile(filepath.Join(r.opts.SocketDir, "X42"), nil, 0o644))

	require.NoError(t, r.Start(context.Background()))
	assert.Empty(t, runner.calls)
	require.NoError(t, r.Close())
	assert.False(t, runner.stopped)
}

func TestRenderer_StartWithoutXvfb(t *testing.T) {
	r := newTestRenderer(t, &fakeRunner{missing: map[string]bool{"Xvfb": true}})
	err := r.Start(context.Background())
	assert.ErrorIs(t, err, ErrNotInstalled)
}

func TestRenderer_Render(t *testing.T) {
	runner := &fakeRunner{}
	r := newTestRenderer(t, runner)
	scadPath := writeScad(t)
	png := filepath.Join(t.TempDir(), "images", "model.png")

	view, _ := FindView("front")
	require.NoError(t, r.Render(context.Background(), scadPath, png, &view))
	assert.FileExists(t, png)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{
		"openscad", "-o", png,
		"--imgsize", "1920,1080",
		"--colorscheme", "Tomorrow",
		"--projection=p",
		"--render",
		"--camera", "0,-150,50,60,0,0,250",
		"--autocenter", "--viewall",
		scadPath,
	}, runner.calls[0])
}

func TestRenderer_RenderFailures(t *testing.T) {
	scadPath := writeScad(t)
	png := filepath.Join(t.TempDir(), "model.png")

	t.Run("missing openscad", func(t *testing.T) {
		r := newTestRenderer(t, &fakeRunner{missing: map[string]bool{"openscad": true}})
		err := r.Render(context.Background(), scadPath, png, nil)
		assert.ErrorIs(t, err, ErrNotInstalled)
	})

	t.Run("missing source", func(t *testing.T) {
		r := newTestRenderer(t, &fakeRunner{})
		err := r.Render(context.Background(), filepath.Join(t.TempDir(), "none.scad"), png, nil)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("timeout", func(t *testing.T) {
		r := newTestRenderer(t, &fakeRunner{block: true})
		r.opts.Timeout = 20 * time.Millisecond
		err := r.Render(context.Background(), scadPath, png, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timed out after 20ms")
	})

	t.Run("openscad error", func(t *testing.T) {
		r := newTestRenderer(t, &fakeRunner{fail: map[string]bool{"model": true}})
		err := r.Render(context.Background(), scadPath, png, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "CGAL error")
	})
}

func TestRenderer_RenderViewsContinuesAfterFailure(t *testing.T) {
	runner := &fakeRunner{fail: map[string]bool{"_top": true}}
	r := newTestRenderer(t, runner)
	scadPath := writeScad(t)
	prefix := filepath.Join(t.TempDir(), "l_bracket")

	results := r.RenderViews(context.Background(), scadPath, prefix, DefaultViews())
	require.Len(t, results, 4)
	for _, res := range results {
		if res.View == "top" {
			assert.Error(t, res.Err)
			continue
		}
		assert.NoError(t, res.Err, res.View)
		assert.FileExists(t, res.Path)
	}
	assert.Equal(t, prefix+"_iso.png", results[3].Path)
}
