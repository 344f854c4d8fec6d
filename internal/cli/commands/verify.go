package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/bracket"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/cli/output"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/verify"
	_ "github.com/yuki-inaho/openscad-cadquery-sandbox/internal/verify/rules" // register regression rules
)

// VerifyOptions holds options for the verify command.
type VerifyOptions struct {
	// KeepSections writes the section DXF files to the output directory
	// instead of a temporary one.
	KeepSections bool
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand() *cobra.Command {
	opts := &VerifyOptions{}
	cmd := &cobra.Command{
		Use:   "verify [script.star]",
		Short: "Run the regression checks on the built bracket",
		Long: `Build the bracket and check it against the expected geometry.

Checks:
  BB01  bounding box within 0.5 mm of the expected envelope
  HL01  one tripod hole in the base plate section
  HL02  four camera holes in the rear plate section
  TP01  the solid is one connected body
  FL01  fillet and bend radii within their limits

Hole checks cut the solid, write the section to DXF and parse it back.
The command exits 1 when any check fails.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Verify the default design
  cadsandbox verify

  # Verify a profile and keep the section files
  cadsandbox verify --profile thin --keep-sections

  # Output as JSON
  cadsandbox verify -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script := ""
			if len(args) > 0 {
				script = args[0]
			}
			return runVerify(cmd, script, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.KeepSections, "keep-sections", false, "Write section DXF files to the output directory")

	return cmd
}

// VerifyOutput is the JSON output for the verify command.
type VerifyOutput struct {
	RunID           string               `json:"run_id,omitempty"`
	Params          bracket.Params       `json:"params"`
	HealthChecks    []verify.HealthCheck `json:"health_checks"`
	Score           int                  `json:"score"`
	Recommendations []string             `json:"recommendations"`
	IssueCount      int                  `json:"issue_count"`
	Passed          bool                 `json:"passed"`
}

func runVerify(cmd *cobra.Command, scriptPath string, opts *VerifyOptions) (err error) {
	cmdCtx, cleanup := NewCommandContext(cmd)
	defer cleanup()
	ctx := commandCtx(cmd)
	r := cmdCtx.Renderer

	d, err := loadDesign(ctx, cmdCtx, scriptPath)
	if err != nil {
		return err
	}

	rec := startRun(ctx, cmdCtx, "verify", d)
	defer func() { rec.finish(ctx, err) }()

	dir := ""
	if opts.KeepSections {
		dir = cmdCtx.Cfg.OutputDir
	}
	vctx, err := verify.NewContext(d.Params, d.Solid, dir, cmdCtx.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = vctx.Close() }()

	analyzer := verify.NewAnalyzer(cmdCtx.Cfg.AnalyzerConfig())
	diags := analyzer.Analyze(vctx)
	checks := verify.HealthChecks(analyzer.Rules(), diags)
	rec.checks(ctx, checks)

	out := &VerifyOutput{
		RunID:           rec.RunID(),
		Params:          d.Params,
		HealthChecks:    checks,
		Score:           verify.Score(checks),
		Recommendations: verify.Recommendations(checks),
		IssueCount:      len(diags),
		Passed:          !verify.HasErrors(diags),
	}

	if err := renderVerify(r, out); err != nil {
		return err
	}

	if !out.Passed {
		return fmt.Errorf("verification failed: %d checks failed", failedChecks(checks))
	}
	return nil
}

func renderVerify(r *output.Renderer, out *VerifyOutput) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		return renderVerifyMarkdown(r, out)
	default:
		return renderVerifyText(r, out)
	}
}

func failedChecks(checks []verify.HealthCheck) int {
	n := 0
	for _, c := range checks {
		if c.Status == verify.StatusError {
			n++
		}
	}
	return n
}

func renderVerifyText(r *output.Renderer, out *VerifyOutput) error {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header1.Render("L-Bracket Verification Report"))
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	r.Println("")

	r.Println(styles.Header2.Render("Parameters"))
	p := out.Params
	r.Printf("   Base: %g x %g | Rear: %g x %g | Thickness: %g\n",
		p.HorizontalWidth, p.HorizontalDepth, p.VerticalWidth, p.VerticalHeight, p.Thickness)
	r.Printf("   Tripod hole: Ø%g | Camera holes: Ø%g | Fillet: %g | Bend: %g\n",
		p.TripodHoleDiameter, p.CameraHoleDiameter, p.EdgeFillet, p.BendRadius)
	r.Println("")

	r.Println(styles.Header2.Render("Checks"))
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println(styles.Bold.Render("   " + titleCaser.String(currentGroup)))
			r.Println(styles.Muted.Render("   " + strings.Repeat("-", 40)))
		}

		icon := styles.StatusSuccess.String()
		switch check.Status {
		case verify.StatusWarn:
			icon = styles.Warning.Render("!")
		case verify.StatusError:
			icon = styles.StatusFailed.String()
		}

		status := fmt.Sprintf("%s %s: %s", icon, check.RuleID, check.Name)
		if check.IssueCount > 0 {
			status += fmt.Sprintf(" (%d issues)", check.IssueCount)
		}
		r.Println("   " + status)

		for i, detail := range check.Details {
			if i >= 3 {
				r.Println(styles.Muted.Render(fmt.Sprintf("       ... and %d more", len(check.Details)-3)))
				break
			}
			r.Println(styles.Muted.Render("       - " + detail))
		}
	}
	r.Println("")

	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	scoreStyle := styles.Success
	if out.Score < 70 {
		scoreStyle = styles.Warning
	}
	if out.Score < 50 {
		scoreStyle = styles.Error
	}
	r.Printf("   Score: %s\n", scoreStyle.Render(fmt.Sprintf("%d/100", out.Score)))
	r.Println("")

	if len(out.Recommendations) > 0 {
		r.Println(styles.Header2.Render("Recommendations"))
		for i, rec := range out.Recommendations {
			r.Printf("   %d. %s\n", i+1, rec)
		}
		r.Println("")
	}

	if out.RunID != "" {
		r.Println(styles.Muted.Render("   Run: " + out.RunID))
	}
	return nil
}

func renderVerifyMarkdown(r *output.Renderer, out *VerifyOutput) error {
	r.Println("# L-Bracket Verification Report")
	r.Println("")

	p := out.Params
	r.Println("## Parameters")
	r.Println("")
	r.Println(output.FormatKeyValue("Base", fmt.Sprintf("%g x %g", p.HorizontalWidth, p.HorizontalDepth)))
	r.Println(output.FormatKeyValue("Rear", fmt.Sprintf("%g x %g", p.VerticalWidth, p.VerticalHeight)))
	r.Println(output.FormatKeyValue("Thickness", fmt.Sprintf("%g", p.Thickness)))
	r.Println(output.FormatKeyValue("Tripod hole", fmt.Sprintf("Ø%g", p.TripodHoleDiameter)))
	r.Println(output.FormatKeyValue("Camera holes", fmt.Sprintf("Ø%g", p.CameraHoleDiameter)))
	r.Println("")

	r.Println("## Checks")
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println("### " + titleCaser.String(currentGroup))
			r.Println("")
		}

		status := "PASS"
		switch check.Status {
		case verify.StatusWarn:
			status = "WARN"
		case verify.StatusError:
			status = "ERROR"
		}

		r.Printf("- **[%s]** %s: %s", status, check.RuleID, check.Name)
		if check.IssueCount > 0 {
			r.Printf(" (%d issues)", check.IssueCount)
		}
		r.Println("")

		for _, detail := range check.Details {
			r.Printf("  - %s\n", detail)
		}
	}
	r.Println("")

	r.Println("## Score")
	r.Println("")
	r.Printf("**%d/100**\n", out.Score)
	r.Println("")

	if len(out.Recommendations) > 0 {
		r.Println("## Recommendations")
		r.Println("")
		for i, rec := range out.Recommendations {
			r.Printf("%d. %s\n", i+1, rec)
		}
		r.Println("")
	}

	return nil
}
