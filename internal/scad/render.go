package scad

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Render defaults.
const (
	DefaultDisplay      = 99
	DefaultWidth        = 1920
	DefaultHeight       = 1080
	DefaultColorScheme  = "Tomorrow"
	DefaultProjection   = "p"
	DefaultTimeout      = 60 * time.Second
	DefaultStartupDelay = 2 * time.Second
)

// ErrNotInstalled is returned when a required program is not on PATH.
var ErrNotInstalled = errors.New("program not installed")

// View is a named camera: translate x, y, z, rotate x, y, z, distance.
type View struct {
	Name   string     `koanf:"name" json:"name"`
	Camera [7]float64 `koanf:"camera" json:"camera"`
}

// CameraArg formats the camera for --camera.
func (v View) CameraArg() string {
	parts := make([]string, len(v.Camera))
	for i, c := range v.Camera {
		parts[i] = strconv.FormatFloat(c, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}

// DefaultViews returns the front, top, side and iso cameras.
func DefaultViews() []View {
	return []View{
		{Name: "front", Camera: [7]float64{0, -150, 50, 60, 0, 0, 250}},
		{Name: "top", Camera: [7]float64{0, 0, 200, 0, 0, 0, 250}},
		{Name: "side", Camera: [7]float64{150, 0, 50, 60, 0, 90, 250}},
		{Name: "iso", Camera: [7]float64{100, -100, 100, 55, 0, 45, 300}},
	}
}

// FindView returns the default view with the given name.
func FindView(name string) (View, bool) {
	for _, v := range DefaultViews() {
		if v.Name == name {
			return v, true
		}
	}
	return View{}, false
}

// Runner starts and runs external programs.
type Runner interface {
	// Run runs a program to completion and returns its standard error.
	Run(ctx context.Context, env []string, name string, args ...string) ([]byte, error)
	// Start starts a long-lived program. The returned function stops it.
	Start(env []string, name string, args ...string) (func() error, error)
	// LookPath resolves a program name.
	LookPath(name string) (string, error)
}

// ExecRunner runs programs with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = env
	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.Bytes(), err
}

// Start implements Runner. Stopping interrupts the process and kills it if
// it has not exited after five seconds.
func (ExecRunner) Start(env []string, name string, args ...string) (func() error, error) {
	cmd := exec.Command(name, args...) //nolint:noctx // lives until stop is called
	cmd.Env = env
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	return func() error {
		_ = cmd.Process.Signal(os.Interrupt)
		select {
		case <-done:
			return nil
		case <-time.After(5 * time.Second):
			if err := cmd.Process.Kill(); err != nil {
				return err
			}
			<-done
			return nil
		}
	}, nil
}

// LookPath implements Runner.
func (ExecRunner) LookPath(name string) (string, error) { return exec.LookPath(name) }

// RenderOptions configure a Renderer.
type RenderOptions struct {
	// Display is the X display number. Negative selects DefaultDisplay;
	// zero is the display ":0".
	Display      int
	Width        int
	Height       int
	ColorScheme  string
	Projection   string
	Timeout      time.Duration
	StartupDelay time.Duration
	// SocketDir holds the X server sockets used to detect a running display.
	SocketDir string
	Runner    Runner
	Logger    *slog.Logger
}

// DefaultRenderOptions returns the options used by the render command.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		Display:      DefaultDisplay,
		Width:        DefaultWidth,
		Height:       DefaultHeight,
		ColorScheme:  DefaultColorScheme,
		Projection:   DefaultProjection,
		Timeout:      DefaultTimeout,
		StartupDelay: DefaultStartupDelay,
		SocketDir:    "/tmp/.X11-unix",
	}
}

// Renderer renders OpenSCAD files on a virtual display.
type Renderer struct {
	opts   RenderOptions
	logger *slog.Logger
	stop   func() error
}

// NewRenderer creates a renderer. Zero options take their defaults, except
// Display and StartupDelay, where zero is a real value.
func NewRenderer(opts RenderOptions) *Renderer {
	def := DefaultRenderOptions()
	if opts.Display < 0 {
		opts.Display = def.Display
	}
	if opts.Width == 0 || opts.Height == 0 {
		opts.Width, opts.Height = def.Width, def.Height
	}
	if opts.ColorScheme == "" {
		opts.ColorScheme = def.ColorScheme
	}
	if opts.Projection == "" {
		opts.Projection = def.Projection
	}
	if opts.Timeout == 0 {
		opts.Timeout = def.Timeout
	}
	if opts.SocketDir == "" {
		opts.SocketDir = def.SocketDir
	}
	if opts.Runner == nil {
		opts.Runner = ExecRunner{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Renderer{opts: opts, logger: logger}
}

// DisplayName returns the X display, such as ":99".
func (r *Renderer) DisplayName() string { return ":" + strconv.Itoa(r.opts.Display) }

func (r *Renderer) socket() string {
	return filepath.Join(r.opts.SocketDir, "X"+strconv.Itoa(r.opts.Display))
}

func (r *Renderer) displayReady() bool {
	_, err := os.Stat(r.socket())
	return err == nil
}

func (r *Renderer) env() []string {
	env := make([]string, 0, len(os.Environ())+1)
	for _, kv := range os.Environ() {
		if !strings.HasPrefix(kv, "DISPLAY=") {
			env = append(env, kv)
		}
	}
	return append(env, "DISPLAY="+r.DisplayName())
}

// Start starts Xvfb unless the display is already reachable, then waits for
// its socket up to the startup delay.
func (r *Renderer) Start(ctx context.Context) error {
	if r.displayReady() {
		r.logger.Debug("display already running", "display", r.DisplayName())
		return nil
	}
	if _, err := r.opts.Runner.LookPath("Xvfb"); err != nil {
		return fmt.Errorf("failed to start Xvfb: %w: %w", ErrNotInstalled, err)
	}

	screen := fmt.Sprintf("%dx%dx24", DefaultWidth, DefaultHeight)
	stop, err := r.opts.Runner.Start(r.env(), "Xvfb", r.DisplayName(),
		"-screen", "0", screen, "-ac", "+extension", "GLX", "+render", "-noreset")
	if err != nil {
		return fmt.Errorf("failed to start Xvfb: %w", err)
	}
	r.stop = stop
	r.logger.Info("started Xvfb", "display", r.DisplayName())

	deadline := time.NewTimer(r.opts.StartupDelay)
	defer deadline.Stop()
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for !r.displayReady() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			r.logger.Warn("display socket did not appear", "socket", r.socket())
			return nil
		case <-tick.C:
		}
	}
	return nil
}

// Close stops the Xvfb started by Start.
func (r *Renderer) Close() error {
	if r.stop == nil {
		return nil
	}
	stop := r.stop
	r.stop = nil
	if err := stop(); err != nil {
		return fmt.Errorf("failed to stop Xvfb: %w", err)
	}
	r.logger.Info("stopped Xvfb", "display", r.DisplayName())
	return nil
}

// Args returns the openscad arguments for one image.
func (r *Renderer) Args(scadPath, pngPath string, view *View) []string {
	args := []string{
		"-o", pngPath,
		"--imgsize", fmt.Sprintf("%d,%d", r.opts.Width, r.opts.Height),
		"--colorscheme", r.opts.ColorScheme,
		"--projection=" + r.opts.Projection,
		"--render",
	}
	if view != nil {
		args = append(args, "--camera", view.CameraArg())
	}
	return append(args, "--autocenter", "--viewall", scadPath)
}

// Render renders one image. A nil view lets openscad place the camera.
func (r *Renderer) Render(ctx context.Context, scadPath, pngPath string, view *View) error {
	if _, err := os.Stat(scadPath); err != nil {
		return fmt.Errorf("failed to render: %w", err)
	}
	if _, err := r.opts.Runner.LookPath("openscad"); err != nil {
		return fmt.Errorf("failed to render: %w: %w", ErrNotInstalled, err)
	}
	if err := os.MkdirAll(filepath.Dir(pngPath), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	start := time.Now()
	stderr, err := r.opts.Runner.Run(ctx, r.env(), "openscad", r.Args(scadPath, pngPath, view)...)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("rendering %s timed out after %s", filepath.Base(scadPath), r.opts.Timeout)
	}
	if err != nil {
		msg := strings.TrimSpace(string(stderr))
		if msg == "" {
			return fmt.Errorf("rendering %s failed: %w", filepath.Base(scadPath), err)
		}
		return fmt.Errorf("rendering %s failed: %w: %s", filepath.Base(scadPath), err, msg)
	}
	info, err := os.Stat(pngPath)
	if err != nil {
		return fmt.Errorf("rendering %s produced no image: %w", filepath.Base(scadPath), err)
	}

	r.logger.Info("rendered image",
		"path", pngPath,
		"size_kb", float64(info.Size())/1024,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// Result is the outcome of rendering one view.
type Result struct {
	View string
	Path string
	Err  error
}

// RenderViews renders each view to <prefix>_<view>.png. A failing view is
// logged and the remaining views still run.
func (r *Renderer) RenderViews(ctx context.Context, scadPath, prefix string, views []View) []Result {
	results := make([]Result, 0, len(views))
	for _, v := range views {
		path := fmt.Sprintf("%s_%s.png", prefix, v.Name)
		err := r.Render(ctx, scadPath, path, &v)
		if err != nil {
			r.logger.Warn("view failed", "view", v.Name, "error", err)
		}
		results = append(results, Result{View: v.Name, Path: path, Err: err})
	}
	return results
}
