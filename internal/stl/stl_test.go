package stl

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/bracket"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/geom"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/report"
)

func tetrahedron() *geom.Mesh {
	o, x, y, z := geom.V3(0, 0, 0), geom.V3(1, 0, 0), geom.V3(0, 1, 0), geom.V3(0, 0, 1)
	return &geom.Mesh{Name: "tetra", Triangles: []geom.Triangle{
		{A: o, B: y, C: x},
		{A: o, B: x, C: z},
		{A: o, B: z, C: y},
		{A: x, B: y, C: z},
	}}
}

func TestWriteParse_RoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		binary   bool
		encoding string
	}{
		{"ascii", false, EncodingASCII},
		{"binary", true, EncodingBinary},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Write(&buf, tetrahedron(), Options{Binary: tt.binary}))
			if tt.binary {
				assert.Equal(t, 80+4+4*50, buf.Len())
			}

			doc, err := Parse(&buf)
			require.NoError(t, err)
			assert.Equal(t, tt.encoding, doc.Encoding)
			assert.Equal(t, "tetra", doc.Name)
			require.Len(t, doc.Mesh.Triangles, 4)
			assert.True(t, doc.Mesh.Triangles[3].C.Equal(geom.V3(0, 0, 1), 1e-6))
			assert.InDelta(t, 1.0/6, doc.Mesh.Volume(), 1e-6)
		})
	}
}

func TestWrite_ASCIILayout(t *testing.T) {
	var buf bytes.Buffer
	m := &geom.Mesh{Triangles: tetrahedron().Triangles[:1]}
	require.NoError(t, Write(&buf, m, Options{Name: "my part"}))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "solid my_part\n"))
	assert.Contains(t, out, "  facet normal 0.000000e+00 0.000000e+00 -1.000000e+00\n")
	assert.Contains(t, out, "      vertex 0.000000e+00 1.000000e+00 0.000000e+00\n")
	assert.True(t, strings.HasSuffix(out, "endsolid my_part\n"))
}

func TestParse_BinaryWithSolidHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, tetrahedron(), Options{Binary: true, Name: "solid exported"}))

	doc, err := Parse(&buf)
	require.NoError(t, err)
	assert.Equal(t, EncodingBinary, doc.Encoding)
	assert.Equal(t, "solid exported", doc.Name)
	assert.Len(t, doc.Mesh.Triangles, 4)
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"empty", "", "not an STL file"},
		{"garbage", "hello world", "not an STL file"},
		{"bad coordinate", "solid x\nfacet normal 0 0 1\nouter loop\nvertex 0 0 a\n", "line 4"},
		{"short vertex", "solid x\nvertex 0 0\n", "line 2"},
		{"two vertices", "solid x\nouter loop\nvertex 0 0 0\nvertex 1 0 0\nendloop\n", "2 vertices"},
		{"unknown keyword", "solid x\nbogus\nendsolid x\n", "unexpected \"bogus\""},
		{"no endsolid", "solid x\n", "missing endsolid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Nil(t, doc)
		})
	}
}

func TestAnalyze_Bracket(t *testing.T) {
	s, err := bracket.Build(bracket.DefaultParams())
	require.NoError(t, err)
	m, err := s.Tessellate(64)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out", "l_bracket.stl")
	require.NoError(t, WriteFile(path, m, Options{Binary: true}))

	r, err := Analyze(path)
	require.NoError(t, err)
	assert.Equal(t, EncodingBinary, r.Encoding)
	assert.Equal(t, bracket.SolidName, r.Name)
	assert.Equal(t, len(m.Triangles), r.Triangles)
	assert.InDelta(t, 80, r.Size.X, 0.5)
	assert.InDelta(t, 50, r.Size.Y, 0.5)
	assert.InDelta(t, 42, r.Size.Z, 0.5)
	assert.InEpsilon(t, m.Volume(), r.Volume, 1e-3)

	var buf bytes.Buffer
	require.NoError(t, report.WriteText(&buf, r.Layout()))
	out := buf.String()
	assert.Contains(t, out, "STL report: l_bracket.stl")
	assert.Contains(t, out, "- Encoding: binary")
	assert.Contains(t, out, "[DONE] STL analysis complete")
}

func TestAnalyze_Failures(t *testing.T) {
	dir := t.TempDir()
	r, err := Analyze(filepath.Join(dir, "missing.stl"))
	assert.Error(t, err)
	assert.Nil(t, r)

	bad := filepath.Join(dir, "bad.stl")
	require.NoError(t, os.WriteFile(bad, []byte("solid broken\nvertex 1 2\n"), 0o644))
	r, err = Analyze(bad)
	assert.Error(t, err)
	assert.Nil(t, r)
}
