package commands

import (
	"context"
	"log/slog"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/export"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/history"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/verify"
)

// recorder writes one command run to the history store. Every method is a
// no-op without a store, and store errors are logged, not returned.
type recorder struct {
	store  *history.Store
	logger *slog.Logger
	run    *history.Run
}

func startRun(ctx context.Context, cmdCtx *CommandContext, command string, params any) *recorder {
	rec := &recorder{store: cmdCtx.History, logger: cmdCtx.Logger}
	if rec.store == nil {
		return rec
	}
	run, err := rec.store.CreateRun(ctx, command, params)
	if err != nil {
		rec.logger.Warn("failed to record run", "command", command, "error", err)
		rec.store = nil
		return rec
	}
	rec.run = run
	return rec
}

// RunID returns the recorded run ID, or an empty string.
func (r *recorder) RunID() string {
	if r.run == nil {
		return ""
	}
	return r.run.ID
}

func (r *recorder) artifacts(ctx context.Context, artifacts []export.Artifact) {
	if r.run == nil {
		return
	}
	for _, a := range artifacts {
		err := r.store.RecordArtifact(ctx, history.Artifact{
			RunID:  r.run.ID,
			Format: a.Format,
			Path:   a.Path,
			Bytes:  a.Bytes,
			Error:  a.Error(),
		})
		if err != nil {
			r.logger.Warn("failed to record artifact", "path", a.Path, "error", err)
		}
	}
}

func (r *recorder) checks(ctx context.Context, checks []verify.HealthCheck) {
	if r.run == nil {
		return
	}
	for _, c := range checks {
		msg := ""
		if len(c.Details) > 0 {
			msg = c.Details[0]
		}
		err := r.store.RecordCheck(ctx, history.Check{
			RunID:   r.run.ID,
			RuleID:  c.RuleID,
			Status:  c.Status,
			Message: msg,
		})
		if err != nil {
			r.logger.Warn("failed to record check", "rule", c.RuleID, "error", err)
		}
	}
}

// finish marks the run completed, or failed when err is set.
func (r *recorder) finish(ctx context.Context, err error) {
	if r.run == nil {
		return
	}
	status, msg := history.RunStatusCompleted, ""
	if err != nil {
		status, msg = history.RunStatusFailed, err.Error()
	}
	if cerr := r.store.CompleteRun(ctx, r.run.ID, status, msg); cerr != nil {
		r.logger.Warn("failed to complete run", "run", r.run.ID, "error", cerr)
	}
}
