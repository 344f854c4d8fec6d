package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/bracket"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/export"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/scad"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/svg"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/verify"
)

// Params returns the effective bracket parameters: defaults, then the
// parameter file, then the bracket overrides, then the selected profile.
func (c *Config) Params() (bracket.Params, error) {
	p := bracket.DefaultParams()
	if c.ParamsFile != "" {
		loaded, err := bracket.Load(c.ParamsFile)
		if err != nil {
			return bracket.Params{}, err
		}
		p = loaded
	}
	if err := p.Apply(c.Bracket); err != nil {
		return bracket.Params{}, fmt.Errorf("bracket: %w", err)
	}
	if prof, ok := c.activeProfile(); ok {
		if err := p.Apply(prof.Bracket); err != nil {
			return bracket.Params{}, fmt.Errorf("profile %s: %w", c.Profile, err)
		}
	}
	if err := p.Validate(); err != nil {
		return bracket.Params{}, fmt.Errorf("invalid bracket parameters: %w", err)
	}
	return p, nil
}

func (c *Config) activeProfile() (ProfileConfig, bool) {
	if c.Profile == "" {
		return ProfileConfig{}, false
	}
	prof, ok := c.Profiles[c.Profile]
	return prof, ok
}

// Sections returns the extra sections from the export settings and the
// selected profile, with upper-case plane names.
func (c *Config) Sections() []export.Section {
	var out []export.Section
	add := func(list []export.Section) {
		for _, s := range list {
			s.Plane = strings.ToUpper(s.Plane)
			out = append(out, s)
		}
	}
	add(c.Export.Sections)
	if prof, ok := c.activeProfile(); ok {
		add(prof.Sections)
	}
	return out
}

// ExportOptions returns the export options for a bracket built from p, with
// extra sections appended after the top view.
func (c *Config) ExportOptions(p bracket.Params, extra []export.Section, logger *slog.Logger) export.Options {
	opts := export.DefaultOptions(c.OutputDir, p)
	if c.Prefix != "" {
		opts.Prefix = c.Prefix
	}
	opts.Sections = append(opts.Sections, c.Sections()...)
	opts.Sections = append(opts.Sections, extra...)
	if c.Export.Segments > 0 {
		opts.Segments = c.Export.Segments
	}
	opts.BinarySTL = c.Export.BinarySTL
	opts.Author = c.Export.Author
	opts.Projections = c.Export.Projections
	opts.Previews = c.Export.Previews
	if c.Export.PreviewWidth > 0 {
		opts.PreviewWidth = c.Export.PreviewWidth
	}
	opts.Jobs = c.Export.Jobs

	def := svg.DefaultOptions()
	opts.SVG = svg.Options{
		Width:       orDefault(c.Export.SVG.Width, def.Width),
		Height:      orDefault(c.Export.SVG.Height, def.Height),
		Margin:      orDefault(c.Export.SVG.Margin, def.Margin),
		StrokeWidth: orDefault(c.Export.SVG.StrokeWidth, def.StrokeWidth),
		ShowHidden:  c.Export.SVG.ShowHidden,
	}
	opts.Logger = logger
	return opts
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

// RenderOptions returns the OpenSCAD renderer options.
func (c *Config) RenderOptions(logger *slog.Logger) scad.RenderOptions {
	opts := scad.DefaultRenderOptions()
	opts.Display = c.Render.Display
	if c.Render.Width > 0 && c.Render.Height > 0 {
		opts.Width, opts.Height = c.Render.Width, c.Render.Height
	}
	if c.Render.ColorScheme != "" {
		opts.ColorScheme = c.Render.ColorScheme
	}
	if c.Render.Projection != "" {
		opts.Projection = c.Render.Projection
	}
	if c.Render.Timeout > 0 {
		opts.Timeout = c.Render.Timeout
	}
	opts.StartupDelay = c.Render.StartupDelay
	opts.Logger = logger
	return opts
}

// Views returns the configured camera views, or every default view.
func (c *Config) Views(names []string) ([]scad.View, error) {
	if len(names) == 0 {
		names = c.Render.Views
	}
	if len(names) == 0 {
		return scad.DefaultViews(), nil
	}
	views := make([]scad.View, 0, len(names))
	for _, name := range names {
		v, ok := scad.FindView(strings.ToLower(strings.TrimSpace(name)))
		if !ok {
			return nil, fmt.Errorf("unknown view %q", name)
		}
		views = append(views, v)
	}
	return views, nil
}

// AnalyzerConfig returns the regression rule settings.
func (c *Config) AnalyzerConfig() *verify.AnalyzerConfig {
	cfg := verify.NewAnalyzerConfig()
	for _, id := range c.Verify.Disabled {
		cfg.DisabledRules[strings.ToUpper(strings.TrimSpace(id))] = true
	}
	for id, s := range c.Verify.Severity {
		if sev, ok := verify.ParseSeverity(s); ok {
			cfg.SeverityOverrides[strings.ToUpper(id)] = sev
		}
	}
	return cfg
}
