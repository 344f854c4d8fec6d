package commands

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/cli/output"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/dxf"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/export"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/geom"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/svg"
)

// SectionOptions holds options for the section command.
type SectionOptions struct {
	Plane  string
	Height float64
	Name   string
	DXF    string
	SVG    string
}

// NewSectionCommand creates the section command.
func NewSectionCommand() *cobra.Command {
	opts := &SectionOptions{}

	cmd := &cobra.Command{
		Use:   "section [script.star]",
		Short: "Cut the bracket with a plane and write DXF/SVG",
		Long: `Cut the built bracket with an axis-aligned plane offset along its normal
and write the section as DXF and SVG.

Without --dxf or --svg both files go to the output directory as
<prefix>_<name>.dxf and .svg.`,
		Example: `  # Tripod hole section through the base plate
  cadsandbox section --plane XY --height 1

  # Camera hole section written to explicit files
  cadsandbox section --plane XZ --height -24 --dxf rear.dxf --svg rear.svg`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script := ""
			if len(args) > 0 {
				script = args[0]
			}
			return runSection(cmd, script, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Plane, "plane", geom.PlaneXY, "Section plane: "+strings.Join(geom.PlaneNames, ", "))
	cmd.Flags().Float64Var(&opts.Height, "height", 0, "Offset of the plane along its normal (mm)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "Section name used in file names (default from plane and height)")
	cmd.Flags().StringVar(&opts.DXF, "dxf", "", "DXF output file")
	cmd.Flags().StringVar(&opts.SVG, "svg", "", "SVG output file")

	_ = cmd.RegisterFlagCompletionFunc("plane", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return geom.PlaneNames, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// SectionOutput is the JSON output for the section command.
type SectionOutput struct {
	Plane    string         `json:"plane"`
	Height   float64        `json:"height"`
	Entities map[string]int `json:"entities"`
	Files    []string       `json:"files"`
}

func runSection(cmd *cobra.Command, scriptPath string, opts *SectionOptions) error {
	cmdCtx := NewCommandContextWithoutHistory(cmd)
	ctx := commandCtx(cmd)
	cfg := cmdCtx.Cfg
	r := cmdCtx.Renderer

	plane, err := geom.NamedPlane(opts.Plane, opts.Height)
	if err != nil {
		return err
	}

	d, err := loadDesign(ctx, cmdCtx, scriptPath)
	if err != nil {
		return err
	}

	drw, err := d.Solid.Section(plane)
	if err != nil {
		return fmt.Errorf("failed to cut section: %w", err)
	}

	exportOpts := cfg.ExportOptions(d.Params, nil, cmdCtx.Logger)
	dxfPath, svgPath := opts.DXF, opts.SVG
	if dxfPath == "" && svgPath == "" {
		name := opts.Name
		if name == "" {
			name = export.SectionName(plane.Name, opts.Height)
		}
		base := filepath.Join(cfg.OutputDir, exportOpts.Prefix+"_"+strings.ToLower(name))
		dxfPath, svgPath = base+".dxf", base+".svg"
	}

	var files []string
	if dxfPath != "" {
		if err := dxf.WriteFile(dxfPath, drw, dxf.DefaultWriteOptions()); err != nil {
			return err
		}
		files = append(files, dxfPath)
	}
	if svgPath != "" {
		if err := svg.WriteFile(svgPath, drw, exportOpts.SVG); err != nil {
			return err
		}
		files = append(files, svgPath)
	}
	cmdCtx.Logger.Debug("section written", "plane", plane.Name, "height", opts.Height, "entities", drw.Len())

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(SectionOutput{
			Plane:    plane.Name,
			Height:   opts.Height,
			Entities: drw.Counts(),
			Files:    files,
		})
	}

	r.Header(1, fmt.Sprintf("Section %s @ %g", plane.Name, opts.Height))
	counts := drw.Counts()
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	rows := make([][]string, 0, len(kinds))
	for _, k := range kinds {
		rows = append(rows, []string{k, strconv.Itoa(counts[k])})
	}
	r.Table([]string{"Entity", "Count"}, rows)
	for _, f := range files {
		r.Success("Saved " + f)
	}
	return nil
}
