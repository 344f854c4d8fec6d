package bracket

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/geom"
)

func TestBuild_BoundingBox(t *testing.T) {
	solid, err := Build(DefaultParams())
	require.NoError(t, err)

	bb := solid.BoundingBox()
	want := geom.Box3{Min: geom.V3(-40, -25, 0), Max: geom.V3(40, 25, 42)}
	assert.True(t, bb.Within(want, ToleranceDimension), "bounding box %s", bb)
}

func TestBuild_SingleBody(t *testing.T) {
	solid, err := Build(DefaultParams())
	require.NoError(t, err)

	bodies := solid.Bodies()
	require.Len(t, bodies, ExpectedBodies)
	assert.ElementsMatch(t, []string{PartBase, PartRear, PartBend}, bodies[0])
}

func TestBuild_WithoutBendStillConnected(t *testing.T) {
	p := DefaultParams()
	p.BendRadius = 0
	p.CameraHoleLow = 8

	solid, err := Build(p)
	require.NoError(t, err)
	assert.Len(t, solid.Parts, 2)
	assert.Len(t, solid.Bodies(), 1)
}

func TestBuild_TripodSection(t *testing.T) {
	solid, err := Build(DefaultParams())
	require.NoError(t, err)

	plane, err := geom.NamedPlane(geom.PlaneXY, 1)
	require.NoError(t, err)
	d, err := solid.Section(plane)
	require.NoError(t, err)

	circles := d.Circles()
	require.Len(t, circles, 1)
	assert.InDelta(t, 6.5, circles[0].Diameter(), 0.1)
	assert.InDelta(t, 0, circles[0].Center.X, 1e-9)
	assert.InDelta(t, -5, circles[0].Center.Y, 1e-9)

	// two rounded front corners show up as arcs
	assert.Len(t, d.Arcs(), 2)
}

func TestBuild_CameraSection(t *testing.T) {
	solid, err := Build(DefaultParams())
	require.NoError(t, err)

	plane, err := geom.NamedPlane(geom.PlaneXZ, -24)
	require.NoError(t, err)
	d, err := solid.Section(plane)
	require.NoError(t, err)

	circles := d.Circles()
	require.Len(t, circles, 4)

	type xz struct{ x, z float64 }
	var got []xz
	for _, c := range circles {
		assert.InDelta(t, 3.2, c.Diameter(), 0.1)
		p := plane.Lift(geom.V2(c.Center.X, c.Center.Y))
		assert.InDelta(t, -24, p.Y, 1e-9)
		got = append(got, xz{math.Round(p.X*10) / 10, math.Round(p.Z*10) / 10})
		// the drawing Y axis points down in model Z
		assert.InDelta(t, -p.Z, c.Center.Y, 1e-9)
	}
	assert.ElementsMatch(t, []xz{{-31.5, 10}, {-31.5, 18}, {31.5, 10}, {31.5, 18}}, got)
}

func TestBuild_CrossSectionThroughBasePlate(t *testing.T) {
	solid, err := Build(DefaultParams())
	require.NoError(t, err)

	// Y=-24 cuts across the base plate, leaving a 80 x 2 rectangle
	plane, err := geom.NamedPlane(geom.PlaneXZ, -24)
	require.NoError(t, err)
	d, err := solid.Section(plane)
	require.NoError(t, err)

	var baseLines int
	for _, l := range d.Lines() {
		if l.Layer == PartBase {
			baseLines++
		}
	}
	assert.Equal(t, 4, baseLines)
}

func TestBuild_InvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *Params)
	}{
		{"zero thickness", func(p *Params) { p.Thickness = 0 }},
		{"tripod hole off plate", func(p *Params) { p.TripodX = 39 }},
		{"camera hole off plate", func(p *Params) { p.CameraHoleX = 40 }},
		{"overlapping camera rows", func(p *Params) { p.CameraHoleHigh = p.CameraHoleLow + 1 }},
		{"camera hole in bend", func(p *Params) { p.BendRadius = 7 }},
		{"negative fillet", func(p *Params) { p.EdgeFillet = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.modify(&p)
			_, err := Build(p)
			assert.Error(t, err)
		})
	}
}

func TestTessellate_ClosedMesh(t *testing.T) {
	solid, err := Build(DefaultParams())
	require.NoError(t, err)

	mesh, err := solid.Tessellate(geom.DefaultSegments)
	require.NoError(t, err)
	require.NotEmpty(t, mesh.Triangles)

	bb := mesh.BoundingBox()
	assert.True(t, bb.Within(solid.BoundingBox(), 1e-6), "mesh box %s", bb)

	// the three parts are closed shells, so the signed volume matches the
	// plate volumes minus the holes, plus the fillet
	p := DefaultParams()
	base := 80*50*2 - 2*(1.5*1.5-math.Pi*1.5*1.5/4)*2 - math.Pi*3.25*3.25*2
	rear := 80*40*2 - 4*math.Pi*1.6*1.6*2
	bend := (3*3 - math.Pi*3*3/4) * p.VerticalWidth
	assert.InEpsilon(t, base+rear+bend, mesh.Volume(), 0.01)
}

func TestParams_LoadAndYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "params.yaml")
	require.NoError(t, os.WriteFile(path, []byte("thickness: 3\nbend_radius: 3.5\n"), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3.0, p.Thickness)
	assert.Equal(t, 3.5, p.BendRadius)
	assert.Equal(t, DefaultHorizontalWidth, p.HorizontalWidth)

	out, err := p.YAML()
	require.NoError(t, err)
	assert.Contains(t, string(out), "thickness: 3")
}

func TestParams_LoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	require.NoError(t, os.WriteFile(path, []byte("thicknes: 3\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestParams_Apply(t *testing.T) {
	p := DefaultParams()
	require.NoError(t, p.Apply(map[string]float64{"tripod_y": -4}))
	assert.Equal(t, -4.0, p.TripodY)

	err := p.Apply(map[string]float64{"nope": 1})
	assert.Error(t, err)

	assert.Len(t, p.Map(), len(Names()))
}

func TestLBracketRequirements(t *testing.T) {
	req := LBracketRequirements()
	assert.Equal(t, SectionSpec{Plane: geom.PlaneXY, Height: 1}, req.TripodSection)
	assert.Equal(t, SectionSpec{Plane: geom.PlaneXZ, Height: -24}, req.CameraSection)
	assert.Len(t, req.CameraPositions, ExpectedCameraHoles)

	// The default design meets the envelope; the requirements do not move
	// with the parameters.
	s, err := Build(DefaultParams())
	require.NoError(t, err)
	assert.True(t, s.BoundingBox().Within(req.BoundingBox, ToleranceDimension), s.BoundingBox().String())

	req.CameraPositions[0].X = 0
	assert.Equal(t, -31.5, LBracketRequirements().CameraPositions[0].X)
}
