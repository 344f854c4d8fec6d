package commands

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/bracket"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/cli/output"
)

// NewParamsCommand creates the params command.
func NewParamsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "params [script.star]",
		Short: "Print the effective bracket parameters",
		Long: `Resolve the bracket parameters from the defaults, the config file, the
selected profile and the design script, and print them as YAML.

The YAML output can be saved and used as params_file in cadsandbox.yaml.`,
		Example: `  # Defaults plus config
  cadsandbox params

  # A profile, saved for later
  cadsandbox params --profile thin > thin.yaml

  # Include the overrides of a script
  cadsandbox params design.star -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script := ""
			if len(args) > 0 {
				script = args[0]
			}
			return runParams(cmd, script)
		},
	}

	cmd.AddCommand(newParamsListCommand())
	return cmd
}

func runParams(cmd *cobra.Command, scriptPath string) error {
	cmdCtx := NewCommandContextWithoutHistory(cmd)
	r := cmdCtx.Renderer

	d, err := loadDesign(commandCtx(cmd), cmdCtx, scriptPath)
	if err != nil {
		return err
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(d)
	case output.ModeMarkdown:
		data, err := d.Params.YAML()
		if err != nil {
			return err
		}
		r.Println(output.FormatHeader(1, "Bracket parameters"))
		r.Println("")
		r.Println(output.FormatCodeBlock("yaml", strings.TrimRight(string(data), "\n")))
		return nil
	default:
		data, err := d.Params.YAML()
		if err != nil {
			return err
		}
		_, err = r.Writer().Write(data)
		return err
	}
}

func newParamsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List parameter names, defaults and the configured profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContextWithoutHistory(cmd)
			r := cmdCtx.Renderer

			defaults := bracket.DefaultParams().Map()
			names := bracket.Names()
			profiles := cmdCtx.Cfg.ProfileNames()

			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(map[string]any{
					"params":   defaults,
					"profiles": profiles,
				})
			}

			rows := make([][]string, 0, len(names))
			for _, name := range names {
				rows = append(rows, []string{name, formatFloat(defaults[name])})
			}
			r.Header(1, "Parameters")
			r.Table([]string{"Name", "Default"}, rows)
			if len(profiles) > 0 {
				r.Println("")
				r.Header(2, "Profiles")
				for _, p := range profiles {
					desc := cmdCtx.Cfg.Profiles[p].Description
					r.StatusLine(p, output.StatusSkipped, desc)
				}
			}
			return nil
		},
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
