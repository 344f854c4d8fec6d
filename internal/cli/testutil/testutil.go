// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/cli/output"
)

// DefaultConfig is the cadsandbox.yaml written by SetupTestProject.
const DefaultConfig = `output_dir: out
history:
  path: .cadsandbox/history.db
profiles:
  thin:
    description: thinner plates
    bracket:
      thickness: 1.8
`

// DefaultScript is the design.star written by SetupTestProject.
const DefaultScript = `bracket(edge_fillet = 1.0)
section("XY", 1, name = "base")
`

// SetupTestProject creates a temporary project with a config file and a
// design script, and returns its directory.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	files := map[string]string{
		"cadsandbox.yaml": DefaultConfig,
		"design.star":     DefaultScript,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}
	return dir
}

// Chdir changes the working directory for the duration of the test.
func Chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
}

// TestRenderer is a renderer whose output is kept in memory.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer returns a renderer in mode that believes it writes to a
// terminal when isTTY is set.
func NewTestRenderer(mode output.OutputMode, isTTY bool) *TestRenderer {
	tr := &TestRenderer{Out: new(bytes.Buffer), ErrOut: new(bytes.Buffer)}
	tr.Renderer = output.NewRendererWithTTY(tr.Out, tr.ErrOut, isTTY, mode)
	return tr
}

// Output returns what was written to stdout.
func (tr *TestRenderer) Output() string { return tr.Out.String() }

// ErrorOutput returns what was written to stderr.
func (tr *TestRenderer) ErrorOutput() string { return tr.ErrOut.String() }

// Reset empties both buffers so the renderer can be reused.
func (tr *TestRenderer) Reset() {
	tr.Out.Reset()
	tr.ErrOut.Reset()
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// StripANSI removes terminal escape sequences, leaving the visible text.
func StripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

// AssertNoANSI fails the test if s carries escape sequences.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("output contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown checks that code fences are balanced and that no
// header is empty.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()
	if n := strings.Count(md, "```"); n%2 != 0 {
		t.Errorf("unbalanced code fences: %d", n)
	}
	for i, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}

// AssertOutputMode checks what the captured stdout must look like in the
// renderer's effective mode: a single JSON document, or plain markdown.
// Text output may be styled and is not checked.
func AssertOutputMode(t *testing.T, tr *TestRenderer) {
	t.Helper()
	out := tr.Output()
	switch tr.EffectiveMode() {
	case output.ModeJSON:
		AssertNoANSI(t, out)
		if !json.Valid([]byte(out)) {
			t.Errorf("output is not valid JSON: %q", out)
		}
	case output.ModeMarkdown:
		AssertNoANSI(t, out+tr.ErrorOutput())
		AssertValidMarkdown(t, out)
	}
}
