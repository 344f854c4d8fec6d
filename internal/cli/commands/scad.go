package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/cli/output"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/export"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/scad"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/stl"
)

// ScadOptions holds options for the scad command.
type ScadOptions struct {
	Projections bool
}

// NewScadCommand creates the scad command.
func NewScadCommand() *cobra.Command {
	opts := &ScadOptions{}
	cmd := &cobra.Command{
		Use:   "scad [script.star]",
		Short: "Write OpenSCAD sources for the bracket",
		Long: `Write the bracket mesh as STL and an OpenSCAD program that imports it.

With --projections three 2D programs are written as well, projecting the
model onto the top, front and side planes.`,
		Example: `  # Import source only
  cadsandbox scad

  # With orthographic projections
  cadsandbox scad --projections`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script := ""
			if len(args) > 0 {
				script = args[0]
			}
			return runScad(cmd, script, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Projections, "projections", false, "Also write top/front/side projection sources")

	return cmd
}

func runScad(cmd *cobra.Command, scriptPath string, opts *ScadOptions) error {
	cmdCtx := NewCommandContextWithoutHistory(cmd)
	ctx := commandCtx(cmd)
	r := cmdCtx.Renderer

	d, err := loadDesign(ctx, cmdCtx, scriptPath)
	if err != nil {
		return err
	}

	artifacts, err := writeScad(cmdCtx, d, opts.Projections)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		files := make([]ArtifactOutput, 0, len(artifacts))
		for _, a := range artifacts {
			files = append(files, ArtifactOutput{Format: a.Format, Path: a.Path})
		}
		return r.JSON(files)
	}

	r.Header(1, "OpenSCAD")
	for _, a := range artifacts {
		r.StatusLine(relPath(cmdCtx.Cfg.OutputDir, a.Path), output.StatusSuccess, a.Name)
	}
	return nil
}

// writeScad writes the STL mesh and the OpenSCAD sources importing it. The
// first returned artifact is the main import program.
func writeScad(cmdCtx *CommandContext, d *design, projections bool) ([]export.Artifact, error) {
	opts := cmdCtx.Cfg.ExportOptions(d.Params, nil, cmdCtx.Logger)
	base := filepath.Join(opts.Dir, opts.Prefix)
	stlPath := base + ".stl"

	mesh, err := d.Solid.Tessellate(opts.Segments)
	if err != nil {
		return nil, fmt.Errorf("failed to tessellate bracket: %w", err)
	}
	if err := stl.WriteFile(stlPath, mesh, stl.Options{Binary: opts.BinarySTL, Name: opts.Prefix}); err != nil {
		return nil, err
	}

	main := scad.ImportSource(filepath.Base(stlPath))
	artifacts := []export.Artifact{{Format: export.FormatSCAD, Name: main.Name, Path: base + ".scad"}}
	if err := scad.WriteFile(artifacts[0].Path, main); err != nil {
		return nil, err
	}

	if projections {
		for _, src := range scad.Projections(filepath.Base(stlPath)) {
			p := base + "_2d_" + src.Name + ".scad"
			if err := scad.WriteFile(p, src); err != nil {
				return nil, err
			}
			artifacts = append(artifacts, export.Artifact{Format: export.FormatSCAD, Name: src.Name, Path: p})
		}
	}
	artifacts = append(artifacts, export.Artifact{Format: export.FormatSTL, Name: opts.Prefix, Path: stlPath})
	cmdCtx.Logger.Debug("OpenSCAD sources written", "count", len(artifacts))
	return artifacts, nil
}
