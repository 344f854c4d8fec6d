package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/cli/output"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/history"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/report"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded runs",
		Long: `Every generate, verify and render run is recorded in a SQLite database
(history.path, default .cadsandbox/history.db) with its parameters, the files
it wrote and the check results.`,
		Example: `  # Recent runs
  cadsandbox history list

  # One run by ID or unique prefix
  cadsandbox history show 3f2a`,
	}

	cmd.AddCommand(newHistoryListCommand())
	cmd.AddCommand(newHistoryShowCommand())
	return cmd
}

func newHistoryListCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistoryList(cmd, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	return cmd
}

func newHistoryShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a run with its artifacts and checks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryShow(cmd, args[0])
		},
	}
}

func openHistoryStore(cmd *cobra.Command) (*CommandContext, *history.Store, func(), error) {
	cmdCtx := NewCommandContextWithoutHistory(cmd)
	store, err := cmdCtx.OpenHistory(commandCtx(cmd))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open run history: %w", err)
	}
	return cmdCtx, store, func() { _ = store.Close() }, nil
}

func runHistoryList(cmd *cobra.Command, limit int) error {
	cmdCtx, store, cleanup, err := openHistoryStore(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	r := cmdCtx.Renderer

	runs, err := store.ListRuns(commandCtx(cmd), limit)
	if err != nil {
		return err
	}
	return renderHistoryList(r, runs)
}

func renderHistoryList(r *output.Renderer, runs []*history.Run) error {
	if r.EffectiveMode() == output.ModeJSON {
		if runs == nil {
			runs = []*history.Run{}
		}
		return r.JSON(runs)
	}

	if len(runs) == 0 {
		r.Muted("No runs recorded")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			run.Command,
			string(run.Status),
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			formatDuration(run.Duration()),
		})
	}
	r.Table([]string{"ID", "Command", "Status", "Started", "Duration"}, rows)
	return nil
}

// HistoryShowOutput is the JSON output for history show.
type HistoryShowOutput struct {
	*history.Run
	Artifacts []history.Artifact `json:"artifacts"`
	Checks    []history.Check    `json:"checks"`
}

func runHistoryShow(cmd *cobra.Command, id string) error {
	cmdCtx, store, cleanup, err := openHistoryStore(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	ctx := commandCtx(cmd)
	r := cmdCtx.Renderer

	run, err := store.GetRun(ctx, id)
	if err != nil {
		return err
	}
	artifacts, err := store.ListArtifacts(ctx, run.ID)
	if err != nil {
		return err
	}
	checks, err := store.ListChecks(ctx, run.ID)
	if err != nil {
		return err
	}

	return renderHistoryShow(r, HistoryShowOutput{Run: run, Artifacts: artifacts, Checks: checks})
}

func renderHistoryShow(r *output.Renderer, out HistoryShowOutput) error {
	if r.EffectiveMode() == output.ModeJSON {
		if out.Artifacts == nil {
			out.Artifacts = []history.Artifact{}
		}
		if out.Checks == nil {
			out.Checks = []history.Check{}
		}
		return r.JSON(out)
	}
	run, artifacts, checks := out.Run, out.Artifacts, out.Checks

	r.Header(1, fmt.Sprintf("Run %s", run.ID))
	r.Println(output.FormatKeyValue("Command", run.Command))
	r.Println(output.FormatKeyValue("Status", string(run.Status)))
	r.Println(output.FormatKeyValue("Started", run.StartedAt.Local().Format(time.RFC3339)))
	if run.CompletedAt != nil {
		r.Println(output.FormatKeyValue("Duration", formatDuration(run.Duration())))
	}
	if run.Error != "" {
		r.Println(output.FormatKeyValue("Error", run.Error))
	}
	r.Println("")

	if len(artifacts) > 0 {
		r.Header(2, "Artifacts")
		rows := make([][]string, 0, len(artifacts))
		for _, a := range artifacts {
			rows = append(rows, []string{a.Format, a.Path, report.SizeKB(a.Bytes), a.Status, a.Error})
		}
		r.Table([]string{"Format", "Path", "Size", "Status", "Error"}, rows)
		r.Println("")
	}

	if len(checks) > 0 {
		r.Header(2, "Checks")
		for _, c := range checks {
			r.StatusLine(c.RuleID, c.Status, c.Message)
		}
		r.Println("")
	}

	if len(run.Params) > 0 {
		r.Header(2, "Parameters")
		r.Println(output.FormatCodeBlock("json", string(run.Params)))
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Second {
		return strconv.FormatInt(d.Milliseconds(), 10) + "ms"
	}
	return d.Round(10 * time.Millisecond).String()
}
