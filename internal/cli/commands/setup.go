package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/cli/config"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/cli/output"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/history"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	// History is nil when recording is disabled or the store could not be
	// opened.
	History *history.Store
}

// NewCommandContext creates a CommandContext with the run history opened.
// Returns the context and a cleanup function that must be called (typically via defer).
// A history store that fails to open is logged and skipped.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func()) {
	cmdCtx := NewCommandContextWithoutHistory(cmd)
	if cmdCtx.Cfg.History.Disabled {
		return cmdCtx, func() {}
	}

	store, err := history.Open(commandCtx(cmd), cmdCtx.Cfg.History.Path, cmdCtx.Logger)
	if err != nil {
		cmdCtx.Logger.Warn("run history unavailable", "path", cmdCtx.Cfg.History.Path, "error", err)
		return cmdCtx, func() {}
	}
	cmdCtx.History = store

	cleanup := func() {
		_ = store.Close()
	}
	return cmdCtx, cleanup
}

// NewCommandContextWithoutHistory creates a CommandContext without the run
// history. Useful for commands that only read files.
func NewCommandContextWithoutHistory(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// OpenHistory opens the history store even when recording is disabled, for
// commands that read it.
func (c *CommandContext) OpenHistory(ctx context.Context) (*history.Store, error) {
	if c.History != nil {
		return c.History, nil
	}
	return history.Open(ctx, c.Cfg.History.Path, c.Logger)
}

// Helper functions shared across commands

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise falls back to environment variables.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	return &config.Config{
		OutputDir:    getEnvOrDefault(config.EnvPrefix+"OUTPUT_DIR", config.DefaultOutputDir),
		Script:       getEnvOrDefault(config.EnvPrefix+"SCRIPT", config.DefaultScript),
		OutputFormat: os.Getenv(config.EnvPrefix + "OUTPUT"),
		Verbose:      os.Getenv(config.EnvPrefix+"VERBOSE") == "true",
		History: config.HistoryConfig{
			Path:     getEnvOrDefault(config.EnvPrefix+"HISTORY_PATH", config.DefaultHistoryFile),
			Disabled: os.Getenv(config.EnvPrefix+"HISTORY_DISABLED") == "true",
		},
		// negative selects the renderer's default display
		Render: config.RenderConfig{Display: -1},
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// commandCtx returns the command's context, or a background context for
// commands executed without one.
func commandCtx(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
