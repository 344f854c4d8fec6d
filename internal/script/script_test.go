package script

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/bracket"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/export"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/testutil"
)

func run(t *testing.T, src, profile string) (*Result, error) {
	t.Helper()
	return Run(context.Background(), "design.star", []byte(src), Options{
		Params:  bracket.DefaultParams(),
		Profile: profile,
		Logger:  testutil.NewTestLogger(t),
	})
}

func TestRun_OverridesAndSections(t *testing.T) {
	src := `
t = params["thickness"]
if profile == "thin":
    bracket(thickness = t - 0.5, bend_radius = 3)
section("xz", -24, name = "camera")
section("YZ", 0)
section("XY", 1.5)
print("done")
`
	res, err := run(t, src, "thin")
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{"thickness": 1.5, "bend_radius": 3}, res.Overrides)
	assert.InDelta(t, 1.5, res.Params.Thickness, 1e-12)
	assert.InDelta(t, 3, res.Params.BendRadius, 1e-12)
	assert.InDelta(t, bracket.DefaultHorizontalWidth, res.Params.HorizontalWidth, 1e-12)

	assert.Equal(t, []export.Section{
		{Name: "camera", Plane: "XZ", Height: -24},
		{Name: "yz_0", Plane: "YZ", Height: 0},
		{Name: "xy_1p5", Plane: "XY", Height: 1.5},
	}, res.Sections)
}

func TestRun_DefaultProfile(t *testing.T) {
	res, err := run(t, `
if profile != "default":
    fail("unexpected profile " + profile)
`, "")
	require.NoError(t, err)
	assert.Empty(t, res.Overrides)
	assert.Equal(t, bracket.DefaultParams(), res.Params)
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "unknown parameter",
			src:  "x = 1\nbracket(thikness = 2)\n",
			want: `design.star:2:8: bracket: unknown parameter "thikness"`,
		},
		{
			name: "wrong type",
			src:  "bracket(thickness = \"2\")\n",
			want: "design.star:1:8: bracket: thickness must be a number, got string",
		},
		{
			name: "bool is not a number",
			src:  "bracket(thickness = True)\n",
			want: "thickness must be a number, got bool",
		},
		{
			name: "called twice",
			src:  "bracket(thickness = 2)\nbracket(bend_radius = 3)\n",
			want: "design.star:2:8: bracket: may only be called once",
		},
		{
			name: "positional",
			src:  "bracket(2)\n",
			want: "unexpected positional arguments",
		},
		{
			name: "params are frozen",
			src:  "params[\"thickness\"] = 3\n",
			want: "design.star:1:",
		},
		{
			name: "bad plane",
			src:  "section(\"AB\", 0)\n",
			want: "design.star:1:8: section:",
		},
		{
			name: "missing height",
			src:  "section(\"XY\")\n",
			want: "missing argument for height",
		},
		{
			name: "duplicate section",
			src:  "section(\"XY\", 1, name = \"a\")\nsection(\"XZ\", 1, name = \"a\")\n",
			want: `design.star:2:8: section: duplicate section name "a"`,
		},
		{
			name: "syntax error",
			src:  "bracket(\n",
			want: "design.star:",
		},
		{
			name: "undefined name",
			src:  "x = 1\ny = bogus\n",
			want: "design.star:2:5: undefined: bogus",
		},
		{
			name: "invalid result",
			src:  "\nbracket(thickness = 0)\n",
			want: "design.star:2:8: invalid bracket parameters",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := run(t, tt.src, "")
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Contains(t, err.Error(), tt.want)

			var scriptErr *Error
			assert.ErrorAs(t, err, &scriptErr)
		})
	}
}

func TestRun_TopLevelLoopAndReassign(t *testing.T) {
	src := `
height = 1
for plane in ["XY", "XZ"]:
    section(plane, height)
height = 2
while height < 4:
    height += 1
section("YZ", height)
`
	res, err := run(t, src, "")
	require.NoError(t, err)
	assert.Equal(t, []export.Section{
		{Name: "xy_1", Plane: "XY", Height: 1},
		{Name: "xz_1", Plane: "XZ", Height: 1},
		{Name: "yz_4", Plane: "YZ", Height: 4},
	}, res.Sections)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, "loop.star", []byte(`
def spin():
    n = 0
    for i in range(100000000):
        n += i
    return n
spin()
`), Options{Params: bracket.DefaultParams()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context canceled")
}

func TestRunFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "design.star")
	require.NoError(t, os.WriteFile(path, []byte("bracket(edge_fillet = 1)\n"), 0o600))

	res, err := RunFile(context.Background(), path, Options{Params: bracket.DefaultParams()})
	require.NoError(t, err)
	assert.InDelta(t, 1, res.Params.EdgeFillet, 1e-12)

	_, err = RunFile(context.Background(), filepath.Join(t.TempDir(), "missing.star"), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read script")
}
