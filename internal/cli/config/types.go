// Package config provides configuration management for the cadsandbox CLI.
//
// Values are layered with koanf: built-in defaults, then cadsandbox.yaml
// (searched upward from the working directory), then CADSANDBOX_ environment
// variables, then flags set on the command line.
package config

import (
	"time"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/bracket"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/export"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/history"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/scad"
)

// Config holds all CLI configuration options.
type Config struct {
	OutputDir    string `koanf:"output_dir"`
	Prefix       string `koanf:"prefix"`
	Script       string `koanf:"script"`
	ParamsFile   string `koanf:"params_file"`
	Profile      string `koanf:"profile"`
	Verbose      bool   `koanf:"verbose"`
	OutputFormat string `koanf:"output"`

	// Bracket overrides individual parameters by YAML name.
	Bracket  map[string]float64       `koanf:"bracket"`
	Profiles map[string]ProfileConfig `koanf:"profiles"`

	Export  ExportConfig  `koanf:"export"`
	Render  RenderConfig  `koanf:"render"`
	Preview PreviewConfig `koanf:"preview"`
	History HistoryConfig `koanf:"history"`
	Verify  VerifyConfig  `koanf:"verify"`

	// ProjectRoot is the directory of the config file, or the working
	// directory when there is none. Relative paths resolve against it.
	ProjectRoot string `koanf:"-"`
}

// ProfileConfig is a named set of parameter overrides selected with
// --profile.
type ProfileConfig struct {
	Description string             `koanf:"description"`
	Bracket     map[string]float64 `koanf:"bracket"`
	Sections    []export.Section   `koanf:"sections"`
}

// ExportConfig controls the generate command.
type ExportConfig struct {
	// Sections are exported in addition to the top view.
	Sections     []export.Section `koanf:"sections"`
	Segments     int              `koanf:"segments"`
	BinarySTL    bool             `koanf:"binary_stl"`
	Projections  bool             `koanf:"projections"`
	Previews     bool             `koanf:"previews"`
	PreviewWidth int              `koanf:"preview_width"`
	Jobs         int              `koanf:"jobs"`
	Author       string           `koanf:"author"`
	SVG          SVGConfig        `koanf:"svg"`
}

// SVGConfig sets the viewport of exported SVG sections.
type SVGConfig struct {
	Width       float64 `koanf:"width"`
	Height      float64 `koanf:"height"`
	Margin      float64 `koanf:"margin"`
	StrokeWidth float64 `koanf:"stroke_width"`
	ShowHidden  bool    `koanf:"show_hidden"`
}

// RenderConfig controls headless OpenSCAD rendering.
type RenderConfig struct {
	Display      int           `koanf:"display"`
	Width        int           `koanf:"width"`
	Height       int           `koanf:"height"`
	ColorScheme  string        `koanf:"color_scheme"`
	Projection   string        `koanf:"projection"`
	Timeout      time.Duration `koanf:"timeout"`
	StartupDelay time.Duration `koanf:"startup_delay"`
	// Views names the cameras to render; empty renders every default view.
	Views []string `koanf:"views"`
}

// PreviewConfig controls the serve command.
type PreviewConfig struct {
	Host  string `koanf:"host"`
	Port  int    `koanf:"port"`
	Watch bool   `koanf:"watch"`
}

// HistoryConfig controls run history recording.
type HistoryConfig struct {
	Path     string `koanf:"path"`
	Disabled bool   `koanf:"disabled"`
}

// VerifyConfig tunes the regression rules.
type VerifyConfig struct {
	Disabled []string `koanf:"disabled"`
	// Severity maps rule IDs to error, warning or info.
	Severity map[string]string `koanf:"severity"`
}

// Default configuration values.
const (
	DefaultOutputDir   = "output"
	DefaultScript      = "design.star"
	DefaultProfile     = ""
	DefaultOutput      = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultPreviewHost = "127.0.0.1"
	DefaultPreviewPort = 8765
	DefaultHistoryFile = history.DefaultPath
)

// defaults returns the confmap layer.
func defaults() map[string]any {
	svgDefaults := export.DefaultOptions("", bracket.DefaultParams()).SVG
	render := scad.DefaultRenderOptions()
	return map[string]any{
		"output_dir": DefaultOutputDir,
		"prefix":     bracket.SolidName,
		"script":     DefaultScript,
		"profile":    DefaultProfile,
		"verbose":    false,
		"output":     DefaultOutput,

		"export.segments":         export.DefaultSegments,
		"export.binary_stl":       false,
		"export.projections":      false,
		"export.previews":         false,
		"export.preview_width":    600,
		"export.jobs":             0,
		"export.svg.width":        svgDefaults.Width,
		"export.svg.height":       svgDefaults.Height,
		"export.svg.margin":       svgDefaults.Margin,
		"export.svg.stroke_width": svgDefaults.StrokeWidth,

		"render.display":       render.Display,
		"render.width":         render.Width,
		"render.height":        render.Height,
		"render.color_scheme":  render.ColorScheme,
		"render.projection":    render.Projection,
		"render.timeout":       render.Timeout.String(),
		"render.startup_delay": render.StartupDelay.String(),

		"preview.host":  DefaultPreviewHost,
		"preview.port":  DefaultPreviewPort,
		"preview.watch": true,

		"history.path":     DefaultHistoryFile,
		"history.disabled": false,
	}
}
