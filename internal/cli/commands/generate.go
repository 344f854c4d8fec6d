package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/bracket"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/cli/output"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/export"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/report"
)

// GenerateOptions holds options for the generate command.
type GenerateOptions struct {
	BinarySTL   bool
	Projections bool
	Previews    bool
	Jobs        int
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	opts := &GenerateOptions{}

	cmd := &cobra.Command{
		Use:   "generate [script.star]",
		Short: "Build the bracket and export every format",
		Long: `Build the L-bracket from the effective parameters and write STEP, STL,
DXF, SVG and OpenSCAD files to the output directory.

Parameters come from the defaults, the config file, the selected profile and
finally the design script, if one is given or design.star exists.

A failing format does not stop the others; the command exits 1 when any
file could not be written.`,
		Example: `  # Export with the defaults
  cadsandbox generate

  # Run a design script with binary STL and PNG previews
  cadsandbox generate design.star --binary-stl --previews

  # Export a profile to another directory
  cadsandbox generate --profile thin --output-dir build`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script := ""
			if len(args) > 0 {
				script = args[0]
			}
			return runGenerate(cmd, script, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.BinarySTL, "binary-stl", false, "Write binary STL instead of ASCII")
	cmd.Flags().BoolVar(&opts.Projections, "projections", false, "Also write top/front/side OpenSCAD projections")
	cmd.Flags().BoolVar(&opts.Previews, "previews", false, "Rasterize section SVGs to PNG")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", 0, "Maximum concurrent writers (0 = no limit)")

	return cmd
}

// GenerateOutput is the JSON output for the generate command.
type GenerateOutput struct {
	RunID     string           `json:"run_id,omitempty"`
	Script    string           `json:"script,omitempty"`
	Profile   string           `json:"profile,omitempty"`
	Params    bracket.Params   `json:"params"`
	Artifacts []ArtifactOutput `json:"artifacts"`
	Failed    int              `json:"failed"`
}

// ArtifactOutput is one written file.
type ArtifactOutput struct {
	Format string `json:"format"`
	Path   string `json:"path"`
	Bytes  int64  `json:"bytes"`
	Error  string `json:"error,omitempty"`
}

func runGenerate(cmd *cobra.Command, scriptPath string, opts *GenerateOptions) (err error) {
	cmdCtx, cleanup := NewCommandContext(cmd)
	defer cleanup()
	ctx := commandCtx(cmd)
	r := cmdCtx.Renderer

	d, err := loadDesign(ctx, cmdCtx, scriptPath)
	if err != nil {
		return err
	}

	rec := startRun(ctx, cmdCtx, "generate", d)
	defer func() { rec.finish(ctx, err) }()

	exportOpts := cmdCtx.Cfg.ExportOptions(d.Params, d.Sections, cmdCtx.Logger)
	flags := cmd.Flags()
	if flags.Changed("binary-stl") {
		exportOpts.BinarySTL = opts.BinarySTL
	}
	if flags.Changed("projections") {
		exportOpts.Projections = opts.Projections
	}
	if flags.Changed("previews") {
		exportOpts.Previews = opts.Previews
	}
	if flags.Changed("jobs") {
		exportOpts.Jobs = opts.Jobs
	}

	artifacts, err := export.Run(ctx, d.Solid, exportOpts)
	if err != nil {
		return err
	}
	rec.artifacts(ctx, artifacts)

	failed := export.Failed(artifacts)
	if err := renderGenerate(r, cmdCtx.Cfg.OutputDir, rec.RunID(), d, artifacts); err != nil {
		return err
	}
	if len(failed) > 0 {
		return fmt.Errorf("export failed: %d of %d files failed", len(failed), len(artifacts))
	}
	return nil
}

func renderGenerate(r *output.Renderer, dir, runID string, d *design, artifacts []export.Artifact) error {
	if r.EffectiveMode() == output.ModeJSON {
		out := GenerateOutput{
			RunID:     runID,
			Script:    d.Script,
			Profile:   d.Profile,
			Params:    d.Params,
			Artifacts: make([]ArtifactOutput, 0, len(artifacts)),
			Failed:    len(export.Failed(artifacts)),
		}
		for _, a := range artifacts {
			out.Artifacts = append(out.Artifacts, ArtifactOutput{
				Format: a.Format,
				Path:   a.Path,
				Bytes:  a.Bytes,
				Error:  a.Error(),
			})
		}
		return r.JSON(out)
	}

	r.Header(1, "Export")
	if d.Script != "" {
		r.Muted("Script: " + d.Script)
	}
	if d.Profile != "" {
		r.Muted("Profile: " + d.Profile)
	}
	for _, a := range artifacts {
		name := relPath(dir, a.Path)
		if a.OK() {
			r.StatusLine(name, output.StatusSuccess, report.SizeKB(a.Bytes))
		} else {
			r.StatusLine(name, output.StatusFailed, a.Error())
		}
	}

	failed := len(export.Failed(artifacts))
	if failed == 0 {
		r.Success(fmt.Sprintf("Wrote %d files to %s", len(artifacts), dir))
	}
	if runID != "" {
		r.Muted("Run: " + runID)
	}
	return nil
}

// relPath shortens path relative to dir for display.
func relPath(dir, path string) string {
	if rel, err := filepath.Rel(dir, path); err == nil && !filepath.IsAbs(rel) && rel != "" && rel[0] != '.' {
		return rel
	}
	return path
}
