package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/cli/output"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/raster"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/report"
)

// PreviewOptions holds options for the preview command.
type PreviewOptions struct {
	Width  int
	Height int
}

// NewPreviewCommand creates the preview command.
func NewPreviewCommand() *cobra.Command {
	opts := &PreviewOptions{}
	cmd := &cobra.Command{
		Use:   "preview <svg> [png]",
		Short: "Rasterize an SVG drawing to PNG",
		Long: `Rasterize an SVG file, such as an exported section, to a PNG image on a
white background. The PNG defaults to the SVG path with a .png extension.

When only one of --width and --height is set the other follows the SVG
viewBox aspect ratio.`,
		Example: `  # Preview the top view
  cadsandbox preview output/l_bracket_top.svg

  # 1200 px wide preview at an explicit path
  cadsandbox preview output/l_bracket_top.svg top.png --width 1200`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			png := ""
			if len(args) > 1 {
				png = args[1]
			}
			return runPreview(cmd, args[0], png, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Width, "width", 0, "Image width in pixels (default: export.preview_width)")
	cmd.Flags().IntVar(&opts.Height, "height", 0, "Image height in pixels")

	return cmd
}

func runPreview(cmd *cobra.Command, svgPath, pngPath string, opts *PreviewOptions) error {
	cmdCtx := NewCommandContextWithoutHistory(cmd)
	r := cmdCtx.Renderer

	if pngPath == "" {
		pngPath = strings.TrimSuffix(svgPath, ".svg") + ".png"
	}
	width, height := opts.Width, opts.Height
	if width == 0 && height == 0 {
		width = cmdCtx.Cfg.Export.PreviewWidth
	}

	if err := raster.RenderFile(svgPath, pngPath, width, height); err != nil {
		return err
	}
	info, err := os.Stat(pngPath)
	if err != nil {
		return fmt.Errorf("failed to read PNG file: %w", err)
	}
	cmdCtx.Logger.Debug("preview written", "svg", svgPath, "png", pngPath)

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(ArtifactOutput{Format: "png", Path: pngPath, Bytes: info.Size()})
	}
	r.Success(fmt.Sprintf("Saved %s (%s)", pngPath, report.SizeKB(info.Size())))
	return nil
}
