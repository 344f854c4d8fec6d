package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/cli/config"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/export"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/preview"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Host  string
	Port  int
	Watch bool
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}
	cmd := &cobra.Command{
		Use:   "serve [script.star]",
		Short: "Serve the exported files with live reload",
		Long: `Export the bracket, then serve the output directory over HTTP.

Routes:
  /                    artifact index with inline SVG previews
  /files/<name>        artifact download
  /api/artifacts       JSON artifact list
  /api/report/<name>   JSON report of a DXF, SVG or STL artifact
  /events              server-sent reload events

With --watch the design script, the config file and the parameter file are
watched; a change regenerates every artifact and reloads open pages.`,
		Example: `  # Serve on the default port
  cadsandbox serve

  # Custom port without watching
  cadsandbox serve --port 9000 --watch=false`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script := ""
			if len(args) > 0 {
				script = args[0]
			}
			return runServe(cmd, script, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Host, "host", "", "Address to bind (default: 127.0.0.1)")
	cmd.Flags().IntVar(&opts.Port, "port", 0, "Port to serve on (default: 8765)")
	cmd.Flags().BoolVar(&opts.Watch, "watch", true, "Regenerate when the script or config changes")

	return cmd
}

func runServe(cmd *cobra.Command, scriptPath string, opts *ServeOptions) error {
	cmdCtx, cleanup := NewCommandContext(cmd)
	defer cleanup()
	cfg := cmdCtx.Cfg
	r := cmdCtx.Renderer

	host := cfg.Preview.Host
	if opts.Host != "" {
		host = opts.Host
	}
	port := cfg.Preview.Port
	if opts.Port != 0 {
		port = opts.Port
	}
	watch := cfg.Preview.Watch
	if cmd.Flags().Changed("watch") {
		watch = opts.Watch
	}

	if scriptPath == "" {
		if _, err := os.Stat(cfg.Script); err == nil {
			scriptPath = cfg.Script
		}
	}

	var watched []string
	if watch {
		for _, f := range []string{scriptPath, config.GetConfigFileUsed(), cfg.ParamsFile} {
			if f != "" {
				watched = append(watched, f)
			}
		}
	}

	server := preview.NewServer(preview.Config{
		Dir:     cfg.OutputDir,
		Host:    host,
		Port:    port,
		Watch:   watched,
		Rebuild: rebuildFunc(cmdCtx, cmd.Root().PersistentFlags(), scriptPath),
		Logger:  cmdCtx.Logger,
	})

	ctx, stop := signal.NotifyContext(commandCtx(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Regenerate(ctx); err != nil {
		r.Warning("initial export failed: " + err.Error())
	}

	r.Println(fmt.Sprintf("Serving %s on http://%s:%d", cfg.OutputDir, host, port))
	if len(watched) > 0 {
		r.Muted(fmt.Sprintf("Watching %d files", len(watched)))
	}
	r.Println("Press Ctrl+C to stop")

	return server.Serve(ctx)
}

// rebuildFunc reloads the config and the script, then exports every
// artifact. Each rebuild is recorded as a generate run.
func rebuildFunc(base *CommandContext, flags *pflag.FlagSet, scriptPath string) preview.RebuildFunc {
	return func(ctx context.Context) (err error) {
		cfg, err := config.LoadConfig(config.GetConfigFileUsed(), flags)
		if err != nil {
			return err
		}
		cmdCtx := *base
		cmdCtx.Cfg = cfg

		d, err := loadDesign(ctx, &cmdCtx, scriptPath)
		if err != nil {
			return err
		}

		rec := startRun(ctx, &cmdCtx, "generate", d)
		defer func() { rec.finish(ctx, err) }()

		artifacts, err := export.Run(ctx, d.Solid, cfg.ExportOptions(d.Params, d.Sections, cmdCtx.Logger))
		if err != nil {
			return err
		}
		rec.artifacts(ctx, artifacts)
		if failed := export.Failed(artifacts); len(failed) > 0 {
			return fmt.Errorf("export failed: %d of %d files failed", len(failed), len(artifacts))
		}
		return nil
	}
}
