// Package main provides tests for the cadsandbox CLI.
package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/cli"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/cli/config"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/cli/testutil"
)

// run executes the root command in dir and returns stdout and stderr.
func run(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()
	testutil.Chdir(t, dir)
	t.Cleanup(config.ResetConfig)

	cmd := cli.NewRootCmd()
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, _, err := run(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "cadsandbox v")
}

func TestHelpCommand(t *testing.T) {
	out, _, err := run(t, t.TempDir(), "--help")
	require.NoError(t, err)

	for _, want := range []string{"generate", "section", "report", "verify", "scad", "render", "preview", "serve", "params", "history"} {
		assert.Contains(t, out, want)
	}
}

func TestGenerateCommand(t *testing.T) {
	dir := t.TempDir()
	out, _, err := run(t, dir, "generate", "--output-dir", "out", "--no-history", "-o", "json")
	require.NoError(t, err)

	var result struct {
		Artifacts []struct {
			Format string `json:"format"`
			Path   string `json:"path"`
			Bytes  int64  `json:"bytes"`
			Error  string `json:"error"`
		} `json:"artifacts"`
		Failed int `json:"failed"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Zero(t, result.Failed)

	for _, name := range []string{"l_bracket.step", "l_bracket.stl", "l_bracket_top.dxf", "l_bracket_top.svg", "l_bracket.scad"} {
		info, err := os.Stat(filepath.Join(dir, "out", name))
		require.NoError(t, err, name)
		assert.Positive(t, info.Size(), name)
	}
	for _, a := range result.Artifacts {
		assert.Empty(t, a.Error, a.Path)
		assert.Positive(t, a.Bytes, a.Path)
	}
}

func TestGenerateWithScriptAndHistory(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	out, _, err := run(t, dir, "generate", "-o", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "# Export")
	assert.Contains(t, out, "l_bracket_base.dxf")
	assert.FileExists(t, filepath.Join(dir, "out", "l_bracket_base.svg"))

	out, _, err = run(t, dir, "history", "list", "-o", "json")
	require.NoError(t, err)
	var runs []struct {
		ID      string `json:"id"`
		Command string `json:"command"`
		Status  string `json:"status"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "generate", runs[0].Command)
	assert.Equal(t, "completed", runs[0].Status)

	out, _, err = run(t, dir, "history", "show", runs[0].ID[:8], "-o", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "Artifacts")
	assert.Contains(t, out, "l_bracket.step")
}

func TestVerifyCommand(t *testing.T) {
	dir := t.TempDir()
	out, _, err := run(t, dir, "verify", "--no-history", "-o", "markdown")
	require.NoError(t, err)

	for _, id := range []string{"BB01", "HL01", "HL02", "TP01", "FL01"} {
		assert.Contains(t, out, "**[PASS]** "+id)
	}
	assert.Contains(t, out, "**100/100**")
	testutil.AssertNoANSI(t, out)
}

func TestVerifyCommandFails(t *testing.T) {
	dir := t.TempDir()
	cfg := `profiles:
  round:
    bracket:
      edge_fillet: 2.0
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cadsandbox.yaml"), []byte(cfg), 0o600))

	out, _, err := run(t, dir, "verify", "--profile", "round", "--no-history", "-o", "markdown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verification failed: 1 checks failed")
	assert.Contains(t, out, "**[ERROR]** FL01")
}

func TestVerifyCommandOffSpecProfile(t *testing.T) {
	dir := t.TempDir()
	cfg := `profiles:
  wide:
    bracket:
      horizontal_width: 120
      vertical_width: 120
      camera_hole_x: 20
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cadsandbox.yaml"), []byte(cfg), 0o600))

	out, _, err := run(t, dir, "verify", "--profile", "wide", "--no-history", "-o", "markdown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verification failed: 2 checks failed")
	assert.Contains(t, out, "**[ERROR]** BB01")
	assert.Contains(t, out, "**[ERROR]** HL02")
	assert.Contains(t, out, "**[PASS]** HL01")
}

func TestSectionAndReport(t *testing.T) {
	dir := t.TempDir()
	dxfPath := filepath.Join(dir, "tripod.dxf")
	_, _, err := run(t, dir, "section", "--plane", "XY", "--height", "1", "--dxf", dxfPath, "-o", "json")
	require.NoError(t, err)
	require.FileExists(t, dxfPath)

	out, _, err := run(t, dir, "report", "dxf", dxfPath, "-o", "json")
	require.NoError(t, err)
	var rep struct {
		Circles []struct {
			Radius float64 `json:"radius"`
		} `json:"circles"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	require.Len(t, rep.Circles, 1)
	assert.InDelta(t, 3.25, rep.Circles[0].Radius, 0.05)

	mdPath := filepath.Join(dir, "tripod.md")
	out, _, err = run(t, dir, "report", "dxf", dxfPath, mdPath, "-o", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "Report saved to")
	data, err := os.ReadFile(mdPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# "))
}

func TestReportMissingFile(t *testing.T) {
	dir := t.TempDir()
	_, _, err := run(t, dir, "report", "svg", filepath.Join(dir, "missing.svg"))
	require.Error(t, err)
}

func TestParamsCommand(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	out, _, err := run(t, dir, "params", "--profile", "thin", "-o", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "thickness: 1.8")
	assert.Contains(t, out, "edge_fillet: 1\n")
}

func TestUnknownProfile(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	_, _, err := run(t, dir, "params", "--profile", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}
