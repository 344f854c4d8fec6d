package output

import (
	"bytes"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func newTest(mode OutputMode, isTTY bool) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return NewRendererWithTTY(out, errOut, isTTY, mode), out, errOut
}

func TestMode(t *testing.T) {
	assert.Equal(t, ModeAuto, Mode(""))
	assert.Equal(t, ModeJSON, Mode(" JSON "))
	assert.True(t, Mode("markdown").Valid())
	assert.False(t, Mode("yaml").Valid())
	assert.Equal(t, []string{"auto", "text", "markdown", "json"}, Modes())
}

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		mode  OutputMode
		isTTY bool
		want  OutputMode
	}{
		{ModeAuto, true, ModeText},
		{ModeAuto, false, ModeMarkdown},
		{ModeText, false, ModeText},
		{ModeJSON, true, ModeJSON},
		{OutputMode("bogus"), false, ModeMarkdown},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			r, _, _ := newTest(tt.mode, tt.isTTY)
			assert.Equal(t, tt.want, r.EffectiveMode())
		})
	}
}

func TestRenderer_MarkdownHasNoANSI(t *testing.T) {
	r, out, errOut := newTest(ModeAuto, false)

	r.Header(1, "Report")
	r.StatusLine("l_bracket.step", StatusSuccess, "12.3 KB")
	r.Success("done")
	r.Warning("careful")
	r.Muted("aside")
	r.Error("broken")

	assert.False(t, ansi.MatchString(out.String()+errOut.String()))
	assert.Equal(t, strings.Join([]string{
		"# Report",
		"- **[SUCCESS]** l_bracket.step: 12.3 KB",
		"done",
		"**Warning:** careful",
		"aside",
		"",
	}, "\n"), out.String())
	assert.Equal(t, "Error: broken\n", errOut.String())
}

func TestRenderer_TextStatusIcons(t *testing.T) {
	r, out, _ := newTest(ModeText, false)

	r.StatusLine("a", StatusSuccess, "")
	r.StatusLine("b", StatusFailed, "why")
	r.StatusLine("c", "warn", "")

	lines := strings.Split(strings.TrimSpace(ansi.ReplaceAllString(out.String(), "")), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "✓ a", strings.TrimSpace(lines[0]))
	assert.Equal(t, "✗ b why", strings.TrimSpace(lines[1]))
	assert.Equal(t, "! c", strings.TrimSpace(lines[2]))
}

func TestRenderer_JSON(t *testing.T) {
	r, out, _ := newTest(ModeJSON, false)
	require.NoError(t, r.JSON(map[string]int{"score": 100}))
	assert.Equal(t, "{\n  \"score\": 100\n}\n", out.String())

	err := r.JSON(map[string]any{"bad": make(chan int)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to encode JSON")
}

func TestRenderer_Table(t *testing.T) {
	r, out, _ := newTest(ModeMarkdown, false)
	r.Table([]string{"ID", "Status"}, [][]string{{"abc", "completed"}})

	md := out.String()
	assert.Contains(t, md, "| ID | Status |")
	assert.Contains(t, md, "| abc | completed |")

	r, out, _ = newTest(ModeText, true)
	r.Table([]string{"ID"}, [][]string{{"abc"}})
	assert.Contains(t, out.String(), "abc")
	assert.NotContains(t, out.String(), "| --- |")
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "## Checks", FormatHeader(2, "Checks"))
	assert.Equal(t, "# X", FormatHeader(0, "X"))
	assert.Equal(t, "- **Score**: 100", FormatKeyValue("Score", "100"))
	assert.Equal(t, "```yaml\na: 1\n```", FormatCodeBlock("yaml", "a: 1\n"))
}
