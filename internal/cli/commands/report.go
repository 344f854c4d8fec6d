package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/cli/output"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/dxf"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/report"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/stl"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/svg"
)

// layouter is implemented by the dxf, svg and stl reports.
type layouter interface {
	Layout() *report.Document
}

type reportKind struct {
	name    string
	title   string
	analyze func(path string) (layouter, error)
}

var reportKinds = []reportKind{
	{name: "dxf", title: "DXF", analyze: analyzeWith(dxf.Analyze)},
	{name: "svg", title: "SVG", analyze: analyzeWith(svg.Analyze)},
	{name: "stl", title: "STL", analyze: analyzeWith(stl.Analyze)},
}

func analyzeWith[R layouter](fn func(string) (R, error)) func(string) (layouter, error) {
	return func(path string) (layouter, error) {
		rep, err := fn(path)
		if err != nil {
			return nil, err
		}
		return rep, nil
	}
}

// NewReportCommand creates the report command with one subcommand per file
// format.
func NewReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Analyze DXF, SVG and STL files",
		Long: `Parse an exported file and print its structure: entity counts, layers,
bounding box and the coordinates of every primitive.

The report is printed to stdout and, when an output file is given, saved
there as well. Output files ending in .md are written as markdown.`,
		Example: `  # Inspect the top view
  cadsandbox report dxf output/l_bracket_top.dxf

  # Save a markdown report
  cadsandbox report svg output/l_bracket_top.svg top_svg.md

  # Machine-readable mesh summary
  cadsandbox report stl output/l_bracket.stl -o json`,
	}

	for _, k := range reportKinds {
		cmd.AddCommand(newReportKindCommand(k))
	}
	return cmd
}

func newReportKindCommand(k reportKind) *cobra.Command {
	return &cobra.Command{
		Use:   k.name + " <input> [output]",
		Short: fmt.Sprintf("Analyze a %s file", k.title),
		Args:  cobra.RangeArgs(1, 2),
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return []string{k.name}, cobra.ShellCompDirectiveFilterFileExt
			}
			return nil, cobra.ShellCompDirectiveDefault
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := ""
			if len(args) > 1 {
				out = args[1]
			}
			return runReport(cmd, k, args[0], out)
		},
	}
}

func runReport(cmd *cobra.Command, k reportKind, input, out string) error {
	cmdCtx := NewCommandContextWithoutHistory(cmd)
	r := cmdCtx.Renderer

	rep, err := k.analyze(input)
	if err != nil {
		return err
	}
	cmdCtx.Logger.Debug("report built", "kind", k.name, "input", input)

	if out != "" {
		if err := saveReport(out, rep.Layout()); err != nil {
			return err
		}
	}
	return renderReport(r, rep, out)
}

// renderReport prints rep in the renderer's mode and notes where it was
// saved, if anywhere.
func renderReport(r *output.Renderer, rep layouter, out string) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(rep); err != nil {
			return err
		}
	case output.ModeMarkdown:
		if err := report.Write(r.Writer(), rep.Layout(), report.FormatMarkdown); err != nil {
			return err
		}
	default:
		if err := report.Write(r.Writer(), rep.Layout(), report.FormatText); err != nil {
			return err
		}
	}

	if out != "" && r.EffectiveMode() != output.ModeJSON {
		r.Println("")
		r.Success("Report saved to " + out)
	}
	return nil
}

// saveReport writes the report to path, as markdown for .md files.
func saveReport(path string, doc *report.Document) error {
	format := report.FormatText
	if strings.EqualFold(filepath.Ext(path), ".md") {
		format = report.FormatMarkdown
	}
	var buf bytes.Buffer
	if err := report.Write(&buf, doc, format); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
