package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/bracket"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/export"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/verify"
)

// chdir switches to dir for the rest of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		_ = os.Chdir(old)
		ResetConfig()
	})
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "cadsandbox.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// testFlags mirrors the root command's persistent flags.
func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("config", "", "")
	fs.String("profile", "", "")
	fs.String("output-dir", "", "")
	fs.String("history", "", "")
	fs.Bool("no-history", false, "")
	fs.BoolP("verbose", "v", false, "")
	fs.StringP("output", "o", "", "")
	return fs
}

func TestLoadConfig_Defaults(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	root, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, root, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(root, DefaultOutputDir), cfg.OutputDir)
	assert.Equal(t, filepath.Join(root, DefaultHistoryFile), cfg.History.Path)
	assert.Equal(t, filepath.Join(root, DefaultScript), cfg.Script)
	assert.Equal(t, bracket.SolidName, cfg.Prefix)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Equal(t, 99, cfg.Render.Display)
	assert.Equal(t, 60*time.Second, cfg.Render.Timeout)
	assert.Equal(t, DefaultPreviewPort, cfg.Preview.Port)
	assert.True(t, cfg.Preview.Watch)
	assert.False(t, cfg.History.Disabled)
	assert.Empty(t, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_FileFoundUpward(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
output_dir: build
prefix: mount
render:
  display: 42
  timeout: 90s
export:
  binary_stl: true
  sections:
    - name: mid
      plane: xz
      height: 0
bracket:
  thickness: 2.5
`)
	sub := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0o750))
	chdir(t, sub)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	realRoot, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	gotRoot, err := filepath.EvalSymlinks(cfg.ProjectRoot)
	require.NoError(t, err)
	assert.Equal(t, realRoot, gotRoot)
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, "build"), cfg.OutputDir)
	assert.Equal(t, "mount", cfg.Prefix)
	assert.Equal(t, 42, cfg.Render.Display)
	assert.Equal(t, 90*time.Second, cfg.Render.Timeout)
	assert.True(t, cfg.Export.BinarySTL)
	assert.Equal(t, []export.Section{{Name: "mid", Plane: "XZ", Height: 0}}, cfg.Sections())
	assert.Contains(t, GetConfigFileUsed(), "cadsandbox.yaml")

	p, err := cfg.Params()
	require.NoError(t, err)
	assert.InDelta(t, 2.5, p.Thickness, 1e-12)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "render:\n  display: 42\n")
	chdir(t, dir)

	t.Setenv("CADSANDBOX_RENDER_DISPLAY", "7")
	t.Setenv("CADSANDBOX_OUTPUT_DIR", "env-out")
	t.Setenv("CADSANDBOX_EXPORT_SVG_MARGIN", "4")
	t.Setenv("CADSANDBOX_VERIFY_DISABLED", "FL01,TP01")
	t.Setenv("CADSANDBOX_BRACKET_BEND_RADIUS", "3.5")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Render.Display)
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, "env-out"), cfg.OutputDir)
	assert.InDelta(t, 4, cfg.Export.SVG.Margin, 1e-12)
	assert.Equal(t, []string{"FL01", "TP01"}, cfg.Verify.Disabled)

	p, err := cfg.Params()
	require.NoError(t, err)
	assert.InDelta(t, 3.5, p.BendRadius, 1e-12)

	ac := cfg.AnalyzerConfig()
	assert.True(t, ac.DisabledRules["FL01"])
	assert.True(t, ac.DisabledRules["TP01"])
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("CADSANDBOX_OUTPUT", "json")

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{
		"--output", "markdown",
		"--output-dir", "flag-out",
		"--history", ":memory:",
		"--no-history",
		"-v",
	}))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	cwd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, "markdown", cfg.OutputFormat)
	assert.Equal(t, filepath.Join(cwd, "flag-out"), cfg.OutputDir)
	assert.Equal(t, ":memory:", cfg.History.Path)
	assert.True(t, cfg.History.Disabled)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_ExplicitFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	other := t.TempDir()
	path := writeConfig(t, other, "output_dir: elsewhere\n")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(other, "elsewhere"), cfg.OutputDir)
	assert.Equal(t, path, GetConfigFileUsed())

	_, err = LoadConfig(filepath.Join(other, "missing.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"bad yaml", "output_dir: [\n", "error reading config file"},
		{"bad output", "output: yaml\n", `invalid output format "yaml"`},
		{"unknown profile", "profile: thick\n", `unknown profile "thick"`},
		{"bad severity", "verify:\n  severity:\n    BB01: fatal\n", `invalid severity "fatal"`},
		{"bad section plane", "export:\n  sections:\n    - {name: a, plane: AB, height: 1}\n", "section a"},
		{"bad section name", "export:\n  sections:\n    - {name: a/b, plane: XY, height: 1}\n", `section name "a/b" is invalid`},
		{"bad port", "preview:\n  port: 70000\n", "out of range"},
		{"bad duration", "render:\n  timeout: soon\n", "unable to decode config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, tt.content)
			chdir(t, dir)

			cfg, err := LoadConfig("", nil)
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestConfig_ParamsWithProfile(t *testing.T) {
	dir := t.TempDir()
	paramsFile := filepath.Join(dir, "params.yaml")
	require.NoError(t, os.WriteFile(paramsFile, []byte("thickness: 3\nedge_fillet: 1\n"), 0o600))

	cfg := &Config{
		ParamsFile: paramsFile,
		Bracket:    map[string]float64{"thickness": 2.5},
		Profile:    "soft",
		Profiles: map[string]ProfileConfig{
			"soft": {
				Bracket:  map[string]float64{"bend_radius": 4},
				Sections: []export.Section{{Name: "side", Plane: "yz", Height: 10}},
			},
		},
		Export: ExportConfig{Sections: []export.Section{{Name: "mid", Plane: "XZ"}}},
	}

	p, err := cfg.Params()
	require.NoError(t, err)
	assert.InDelta(t, 2.5, p.Thickness, 1e-12)
	assert.InDelta(t, 1, p.EdgeFillet, 1e-12)
	assert.InDelta(t, 4, p.BendRadius, 1e-12)

	assert.Equal(t, []export.Section{
		{Name: "mid", Plane: "XZ"},
		{Name: "side", Plane: "YZ", Height: 10},
	}, cfg.Sections())

	opts := cfg.ExportOptions(p, []export.Section{{Name: "extra", Plane: "XY", Height: 1}}, nil)
	require.Len(t, opts.Sections, 4)
	assert.Equal(t, "top", opts.Sections[0].Name)
	assert.Equal(t, "extra", opts.Sections[3].Name)
}

func TestConfig_ParamsErrors(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		errMsg string
	}{
		{
			name:   "unknown override",
			cfg:    Config{Bracket: map[string]float64{"thikness": 1}},
			errMsg: `unknown bracket parameter "thikness"`,
		},
		{
			name:   "invalid result",
			cfg:    Config{Bracket: map[string]float64{"thickness": 0}},
			errMsg: "invalid bracket parameters",
		},
		{
			name: "unknown profile override",
			cfg: Config{Profile: "p", Profiles: map[string]ProfileConfig{
				"p": {Bracket: map[string]float64{"width": 1}},
			}},
			errMsg: "profile p",
		},
		{
			name:   "missing params file",
			cfg:    Config{ParamsFile: "/nonexistent/params.yaml"},
			errMsg: "failed to read parameter file",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cfg.Params()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestConfig_Views(t *testing.T) {
	cfg := &Config{}
	views, err := cfg.Views(nil)
	require.NoError(t, err)
	assert.Len(t, views, 4)

	cfg.Render.Views = []string{"top"}
	views, err = cfg.Views(nil)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "top", views[0].Name)

	views, err = cfg.Views([]string{"Front", "iso"})
	require.NoError(t, err)
	assert.Len(t, views, 2)

	_, err = cfg.Views([]string{"back"})
	assert.EqualError(t, err, `unknown view "back"`)
}

func TestConfig_RenderOptions(t *testing.T) {
	cfg := &Config{Render: RenderConfig{Display: 5, Width: 800, Height: 600, Timeout: time.Second}}
	opts := cfg.RenderOptions(nil)
	assert.Equal(t, 5, opts.Display)
	assert.Equal(t, 800, opts.Width)
	assert.Equal(t, 600, opts.Height)
	assert.Equal(t, time.Second, opts.Timeout)
	assert.Equal(t, "Tomorrow", opts.ColorScheme)
}

func TestConfig_RenderDisplayZero(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Cleanup(ResetConfig)
	writeConfig(t, dir, "render:\n  display: 0\n")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.RenderOptions(nil).Display)

	cfg.Render.Display = -2
	assert.ErrorContains(t, cfg.Validate(), "render.display -2 must not be negative")
}

func TestConfig_AnalyzerConfigSeverity(t *testing.T) {
	cfg := &Config{Verify: VerifyConfig{Severity: map[string]string{"fl01": "warning"}}}
	ac := cfg.AnalyzerConfig()
	assert.Equal(t, verify.SeverityWarning, ac.SeverityOverrides["FL01"])
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"CADSANDBOX_RENDER_DISPLAY":      "render.display",
		"CADSANDBOX_RENDER_COLOR_SCHEME": "render.color_scheme",
		"CADSANDBOX_EXPORT_SVG_WIDTH":    "export.svg.width",
		"CADSANDBOX_EXPORT_BINARY_STL":   "export.binary_stl",
		"CADSANDBOX_OUTPUT_DIR":          "output_dir",
		"CADSANDBOX_OUTPUT":              "output",
		"CADSANDBOX_HISTORY_DISABLED":    "history.disabled",
	}
	for in, want := range tests {
		assert.Equal(t, want, envKey(in), in)
	}
}
