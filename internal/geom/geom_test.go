package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plate(name string, frame Frame, depth float64, holes ...Hole) Part {
	p := Part{
		Name:    name,
		Frame:   frame,
		Depth:   depth,
		Profile: RoundedRect(V2(-10, -5), V2(10, 5), [4]float64{}),
	}
	p.Profile.Holes = holes
	return p
}

func TestNamedPlane(t *testing.T) {
	tests := []struct {
		name   string
		height float64
		point  Vec3
		want2  Vec2
	}{
		{PlaneXY, 1, V3(3, 4, 1), V2(3, 4)},
		{PlaneXZ, -24, V3(31.5, -24, 10), V2(31.5, -10)},
		{PlaneYZ, 0, V3(0, 2, 7), V2(2, 7)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pl, err := NamedPlane(tt.name, tt.height)
			require.NoError(t, err)
			got := pl.Project(tt.point)
			assert.InDelta(t, tt.want2.X, got.X, 1e-12)
			assert.InDelta(t, tt.want2.Y, got.Y, 1e-12)
			assert.InDelta(t, tt.height, pl.Height(), 1e-12)
			assert.True(t, pl.Lift(got).Equal(tt.point, 1e-12))
		})
	}

	_, err := NamedPlane("AB", 0)
	assert.Error(t, err)
}

func TestRoundedRect(t *testing.T) {
	p := RoundedRect(V2(-40, -25), V2(40, 25), [4]float64{0, 0, 1.5, 1.5})
	require.NoError(t, p.Validate())

	var arcs int
	for _, e := range p.Outer {
		if e.Kind == EdgeArc {
			arcs++
		}
	}
	assert.Equal(t, 2, arcs)
	assert.Len(t, p.Outer, 6)

	b := p.Bounds()
	assert.InDelta(t, -40, b.Min.X, 1e-12)
	assert.InDelta(t, 25, b.Max.Y, 1e-12)
}

func TestProfileValidate_HoleOutside(t *testing.T) {
	p := RoundedRect(V2(0, 0), V2(10, 10), [4]float64{})
	p.Holes = []Hole{{Center: V2(9.5, 5), Radius: 1}}
	assert.Error(t, p.Validate())
}

func TestEdgeBounds_Arc(t *testing.T) {
	// quarter arc from 0 to 90 degrees
	e := ArcEdge(V2(0, 0), 2, 0, math.Pi/2)
	b := e.Bounds()
	assert.InDelta(t, 0, b.Min.X, 1e-12)
	assert.InDelta(t, 2, b.Max.X, 1e-12)
	assert.InDelta(t, 2, b.Max.Y, 1e-12)
}

func TestBox3Joins(t *testing.T) {
	a := Box3{Min: V3(0, 0, 0), Max: V3(10, 10, 2)}
	touching := Box3{Min: V3(0, 0, 2), Max: V3(10, 2, 20)}
	edgeOnly := Box3{Min: V3(10, 10, 2), Max: V3(12, 12, 4)}
	apart := Box3{Min: V3(0, 0, 3), Max: V3(10, 10, 4)}

	assert.True(t, a.Joins(touching, 1e-6))
	assert.False(t, a.Joins(edgeOnly, 1e-6))
	assert.False(t, a.Joins(apart, 1e-6))
}

func TestSolidBodies(t *testing.T) {
	xy := Frame{Origin: V3(0, 0, 0), U: AxisX, V: AxisY}
	a := plate("a", xy, 2)
	b := plate("b", Frame{Origin: V3(0, 0, 2), U: AxisX, V: AxisY}, 2)
	c := plate("c", Frame{Origin: V3(0, 0, 10), U: AxisX, V: AxisY}, 2)

	s, err := NewSolid("stack", a, b, c)
	require.NoError(t, err)
	bodies := s.Bodies()
	require.Len(t, bodies, 2)
	assert.ElementsMatch(t, []string{"a", "b"}, bodies[0])
	assert.Equal(t, []string{"c"}, bodies[1])
}

func TestNewSolid_Errors(t *testing.T) {
	_, err := NewSolid("empty")
	assert.Error(t, err)

	bad := plate("bad", Frame{Origin: V3(0, 0, 0), U: AxisX, V: AxisY}, 0)
	_, err = NewSolid("bad", bad)
	assert.Error(t, err)
}

func TestSection_ParallelPart(t *testing.T) {
	xy := Frame{Origin: V3(0, 0, 0), U: AxisX, V: AxisY}
	s, err := NewSolid("one", plate("p", xy, 2, Hole{Center: V2(1, 1), Radius: 0.5}))
	require.NoError(t, err)

	pl, err := NamedPlane(PlaneXY, 1)
	require.NoError(t, err)
	d, err := s.Section(pl)
	require.NoError(t, err)
	assert.Len(t, d.Lines(), 4)
	require.Len(t, d.Circles(), 1)
	assert.InDelta(t, 1.0, d.Circles()[0].Diameter(), 1e-12)

	// above the plate nothing is cut
	pl, err = NamedPlane(PlaneXY, 3)
	require.NoError(t, err)
	d, err = s.Section(pl)
	require.NoError(t, err)
	assert.Zero(t, d.Len())
}

func TestSection_CrossingPartWithHole(t *testing.T) {
	xy := Frame{Origin: V3(0, 0, 0), U: AxisX, V: AxisY}
	s, err := NewSolid("one", plate("p", xy, 2, Hole{Center: V2(0, 0), Radius: 1}))
	require.NoError(t, err)

	// the XZ plane through the hole splits the plate into two slabs
	pl, err := NamedPlane(PlaneXZ, 0)
	require.NoError(t, err)
	d, err := s.Section(pl)
	require.NoError(t, err)
	assert.Len(t, d.Lines(), 8)

	bb := d.Bounds()
	assert.InDelta(t, -10, bb.Min.X, 1e-9)
	assert.InDelta(t, 10, bb.Max.X, 1e-9)
	assert.InDelta(t, -2, bb.Min.Y, 1e-9)
	assert.InDelta(t, 0, bb.Max.Y, 1e-9)
}

func TestSection_Oblique(t *testing.T) {
	tilted := Frame{Origin: V3(0, 0, 0), U: AxisX, V: V3(0, 1, 1).Unit()}
	s, err := NewSolid("tilted", plate("p", tilted, 1))
	require.NoError(t, err)

	pl, err := NamedPlane(PlaneXY, 0.1)
	require.NoError(t, err)
	_, err = s.Section(pl)
	assert.Error(t, err)
}

func TestTessellate_BoxVolume(t *testing.T) {
	xy := Frame{Origin: V3(0, 0, 0), U: AxisX, V: AxisY}
	s, err := NewSolid("box", plate("p", xy, 3))
	require.NoError(t, err)

	m, err := s.Tessellate(DefaultSegments)
	require.NoError(t, err)
	assert.Len(t, m.Triangles, 12)
	assert.InDelta(t, 20*10*3, m.Volume(), 1e-9)
	assert.InDelta(t, 2*(20*10+20*3+10*3), m.Area(), 1e-9)
}

func TestTessellate_HoleReducesVolume(t *testing.T) {
	xy := Frame{Origin: V3(0, 0, 0), U: AxisX, V: AxisY}
	s, err := NewSolid("box", plate("p", xy, 1, Hole{Center: V2(-5, 0), Radius: 2}, Hole{Center: V2(5, 0), Radius: 2}))
	require.NoError(t, err)

	m, err := s.Tessellate(64)
	require.NoError(t, err)
	want := 200 - 2*math.Pi*4
	assert.InEpsilon(t, want, m.Volume(), 0.005)
	for _, tri := range m.Triangles {
		assert.Greater(t, tri.Area(), 0.0)
	}
}

func TestTriangulate_Square(t *testing.T) {
	sq := []Vec2{V2(0, 0), V2(1, 0), V2(1, 1), V2(0, 1)}
	tris, err := triangulate(sq, nil)
	require.NoError(t, err)
	require.Len(t, tris, 2)

	var area float64
	for _, tr := range tris {
		area += tr[1].Sub(tr[0]).Cross(tr[2].Sub(tr[0])) / 2
	}
	assert.InDelta(t, 1.0, area, 1e-12)
}
