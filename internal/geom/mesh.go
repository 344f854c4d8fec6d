package geom

import "fmt"

// Triangle is a mesh facet with counter-clockwise winding seen from outside.
type Triangle struct {
	A, B, C Vec3
}

// Normal returns the unit facet normal.
func (t Triangle) Normal() Vec3 {
	return t.B.Sub(t.A).Cross(t.C.Sub(t.A)).Unit()
}

// Area returns the facet area.
func (t Triangle) Area() float64 {
	return t.B.Sub(t.A).Cross(t.C.Sub(t.A)).Len() / 2
}

// Mesh is a triangle soup.
type Mesh struct {
	Name      string
	Triangles []Triangle
}

// BoundingBox returns the box around every vertex.
func (m *Mesh) BoundingBox() Box3 {
	b := EmptyBox3()
	for _, t := range m.Triangles {
		b = b.Extend(t.A).Extend(t.B).Extend(t.C)
	}
	return b
}

// Area returns the total surface area.
func (m *Mesh) Area() float64 {
	var a float64
	for _, t := range m.Triangles {
		a += t.Area()
	}
	return a
}

// Volume returns the enclosed volume by the divergence theorem. It is only
// meaningful for closed, consistently wound meshes.
func (m *Mesh) Volume() float64 {
	var v float64
	for _, t := range m.Triangles {
		v += t.A.Dot(t.B.Cross(t.C))
	}
	return v / 6
}

// Tessellate converts every part of the solid into triangles. segments is
// the number of chords per full turn of a curve.
func (s *Solid) Tessellate(segments int) (*Mesh, error) {
	m := &Mesh{Name: s.Name}
	for _, p := range s.Parts {
		tris, err := tessellatePart(p, segments)
		if err != nil {
			return nil, fmt.Errorf("failed to tessellate part %q: %w", p.Name, err)
		}
		m.Triangles = append(m.Triangles, tris...)
	}
	return m, nil
}

func tessellatePart(p Part, segments int) ([]Triangle, error) {
	outer := p.Profile.OuterPoints(segments)
	holes := make([][]Vec2, 0, len(p.Profile.Holes))
	for _, h := range p.Profile.Holes {
		holes = append(holes, h.Points(segments))
	}

	capTris, err := triangulate(outer, holes)
	if err != nil {
		return nil, err
	}

	f := p.Frame
	var tris []Triangle
	for _, t := range capTris {
		// top cap faces +N, bottom cap faces -N
		tris = append(tris,
			Triangle{f.Point(t[0], p.Depth), f.Point(t[1], p.Depth), f.Point(t[2], p.Depth)},
			Triangle{f.Point(t[0], 0), f.Point(t[2], 0), f.Point(t[1], 0)},
		)
	}

	// outer loop is counter-clockwise and holes clockwise, so the same
	// winding gives outward walls for both
	loops := append([][]Vec2{outer}, holes...)
	for _, loop := range loops {
		for i := range loop {
			a, b := loop[i], loop[(i+1)%len(loop)]
			a0, b0 := f.Point(a, 0), f.Point(b, 0)
			a1, b1 := f.Point(a, p.Depth), f.Point(b, p.Depth)
			tris = append(tris, Triangle{a0, b0, b1}, Triangle{a0, b1, a1})
		}
	}
	return tris, nil
}
