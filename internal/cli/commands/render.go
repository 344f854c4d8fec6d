package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/cli/output"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/export"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/scad"
)

// RenderOptions holds options for the render command.
type RenderOptions struct {
	Views   []string
	Display int
	Timeout time.Duration
	// Scad renders an existing program instead of the built bracket.
	Scad string
}

// NewRenderCommand creates the render command.
func NewRenderCommand() *cobra.Command {
	opts := &RenderOptions{}
	cmd := &cobra.Command{
		Use:   "render [script.star]",
		Short: "Render PNG views of the bracket with OpenSCAD",
		Long: `Write the bracket as STL plus an OpenSCAD import program and render one
PNG per camera view with a headless openscad on an Xvfb display.

Xvfb is started on the configured display unless one is already running and
stopped afterwards. A missing program or a timed-out view is reported as a
failed view; the remaining views still run.

Views: front, top, side, iso.`,
		Example: `  # Render every view
  cadsandbox render

  # Only the iso view, on display :42 with a longer timeout
  cadsandbox render --view iso --display 42 --timeout 2m

  # Render an existing program
  cadsandbox render --scad output/l_bracket.scad`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script := ""
			if len(args) > 0 {
				script = args[0]
			}
			return runRender(cmd, script, opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Views, "view", nil, "Views to render (default: all)")
	cmd.Flags().IntVar(&opts.Display, "display", -1, "X display number for Xvfb (default: render.display)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "Timeout per view")
	cmd.Flags().StringVar(&opts.Scad, "scad", "", "Render this OpenSCAD file instead of the built bracket")

	_ = cmd.RegisterFlagCompletionFunc("view", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		views := scad.DefaultViews()
		names := make([]string, 0, len(views))
		for _, v := range views {
			names = append(names, v.Name)
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// RenderOutput is the JSON output for the render command.
type RenderOutput struct {
	RunID  string             `json:"run_id,omitempty"`
	Scad   string             `json:"scad"`
	Views  []RenderViewOutput `json:"views"`
	Failed int                `json:"failed"`
}

// RenderViewOutput is one rendered view.
type RenderViewOutput struct {
	View  string `json:"view"`
	Path  string `json:"path"`
	Error string `json:"error,omitempty"`
}

func runRender(cmd *cobra.Command, scriptPath string, opts *RenderOptions) (err error) {
	cmdCtx, cleanup := NewCommandContext(cmd)
	defer cleanup()
	ctx := commandCtx(cmd)
	cfg := cmdCtx.Cfg
	r := cmdCtx.Renderer

	views, err := cfg.Views(opts.Views)
	if err != nil {
		return err
	}

	scadPath := opts.Scad
	var params any = map[string]string{"scad": scadPath}
	if scadPath == "" {
		d, err := loadDesign(ctx, cmdCtx, scriptPath)
		if err != nil {
			return err
		}
		written, err := writeScad(cmdCtx, d, false)
		if err != nil {
			return err
		}
		scadPath = written[0].Path
		params = d
	} else if _, err := os.Stat(scadPath); err != nil {
		return fmt.Errorf("failed to read OpenSCAD file: %w", err)
	}

	rec := startRun(ctx, cmdCtx, "render", params)
	defer func() { rec.finish(ctx, err) }()

	renderOpts := cfg.RenderOptions(cmdCtx.Logger)
	if opts.Display >= 0 {
		renderOpts.Display = opts.Display
	}
	if opts.Timeout > 0 {
		renderOpts.Timeout = opts.Timeout
	}
	renderer := scad.NewRenderer(renderOpts)
	if err := renderer.Start(ctx); err != nil {
		cmdCtx.Logger.Warn("virtual display unavailable", "display", renderer.DisplayName(), "error", err)
	}
	defer func() {
		if cerr := renderer.Close(); cerr != nil {
			cmdCtx.Logger.Warn("failed to stop display", "error", cerr)
		}
	}()

	prefix := strings.TrimSuffix(scadPath, ".scad")
	results := renderer.RenderViews(ctx, scadPath, prefix, views)

	artifacts := make([]export.Artifact, 0, len(results))
	for _, res := range results {
		a := export.Artifact{Format: export.FormatPNG, Name: res.View, Path: res.Path, Err: res.Err}
		if info, serr := os.Stat(res.Path); serr == nil && res.Err == nil {
			a.Bytes = info.Size()
		}
		artifacts = append(artifacts, a)
	}
	rec.artifacts(ctx, artifacts)

	failed := export.Failed(artifacts)
	if err := renderRenderResults(r, cfg.OutputDir, rec.RunID(), scadPath, artifacts); err != nil {
		return err
	}
	if len(failed) > 0 {
		return fmt.Errorf("render failed: %d of %d views failed", len(failed), len(artifacts))
	}
	return nil
}

func renderRenderResults(r *output.Renderer, dir, runID, scadPath string, artifacts []export.Artifact) error {
	if r.EffectiveMode() == output.ModeJSON {
		out := RenderOutput{
			RunID:  runID,
			Scad:   scadPath,
			Views:  make([]RenderViewOutput, 0, len(artifacts)),
			Failed: len(export.Failed(artifacts)),
		}
		for _, a := range artifacts {
			out.Views = append(out.Views, RenderViewOutput{View: a.Name, Path: a.Path, Error: a.Error()})
		}
		return r.JSON(out)
	}

	r.Header(1, "Render: "+relPath(dir, scadPath))
	for _, a := range artifacts {
		if a.OK() {
			r.StatusLine(a.Name, output.StatusSuccess, relPath(dir, a.Path))
		} else {
			r.StatusLine(a.Name, output.StatusFailed, a.Error())
		}
	}
	return nil
}
