package geom

import (
	"fmt"
	"math"
	"sort"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/drawing"
)

// Section cuts the solid with the plane and returns the cut as a drawing in
// the plane's 2D frame. Parts lying in the plane contribute their outline and
// holes; parts crossing it contribute one rectangle per material interval.
func (s *Solid) Section(plane Plane) (*drawing.Drawing, error) {
	d := drawing.New()
	for _, p := range s.Parts {
		n := p.Frame.N()
		switch {
		case parallel(n, plane.Normal):
			w := plane.Origin.Sub(p.Frame.Origin).Dot(n)
			if w < -1e-9 || w > p.Depth+1e-9 {
				continue
			}
			outlineSection(d, p, plane, w)
		case perpendicular(n, plane.Normal):
			crossSection(d, p, plane)
		default:
			return nil, fmt.Errorf("plane %s is oblique to part %q", plane.Name, p.Name)
		}
	}
	return d, nil
}

func toPoint(v Vec2) drawing.Point { return drawing.Point{X: v.X, Y: v.Y} }

func degrees(v Vec2) float64 {
	a := math.Atan2(v.Y, v.X) * 180 / math.Pi
	if a < 0 {
		a += 360
	}
	return a
}

func outlineSection(d *drawing.Drawing, p Part, plane Plane, w float64) {
	sameSide := p.Frame.N().Dot(plane.Normal) > 0
	for _, e := range p.Profile.Outer {
		a := plane.Project(p.Frame.Point(e.From, w))
		b := plane.Project(p.Frame.Point(e.To, w))
		if e.Kind == EdgeLine {
			d.Add(drawing.Line{Start: toPoint(a), End: toPoint(b), Layer: p.Name})
			continue
		}
		c := plane.Project(p.Frame.Point(e.Center, w))
		start, end := degrees(a.Sub(c)), degrees(b.Sub(c))
		if (e.Sweep > 0) != sameSide {
			start, end = end, start
		}
		d.Add(drawing.Arc{Center: toPoint(c), Radius: e.Radius, StartAngle: start, EndAngle: end, Layer: p.Name})
	}
	for _, h := range p.Profile.Holes {
		c := plane.Project(p.Frame.Point(h.Center, w))
		d.Add(drawing.Circle{Center: toPoint(c), Radius: h.Radius, Layer: p.Name})
	}
}

func crossSection(d *drawing.Drawing, p Part, plane Plane) {
	n := plane.Normal.Unit()
	a, b := p.Frame.U.Dot(n), p.Frame.V.Dot(n)
	c := plane.Origin.Sub(p.Frame.Origin).Dot(n)
	cut := newCutLine(a, b, c)

	ts := cut.crossings(p.Profile)
	sort.Float64s(ts)
	for i := 0; i+1 < len(ts); i += 2 {
		if ts[i+1]-ts[i] < 1e-9 {
			continue
		}
		qa, qb := cut.at(ts[i]), cut.at(ts[i+1])
		corners := [4]Vec2{
			plane.Project(p.Frame.Point(qa, 0)),
			plane.Project(p.Frame.Point(qb, 0)),
			plane.Project(p.Frame.Point(qb, p.Depth)),
			plane.Project(p.Frame.Point(qa, p.Depth)),
		}
		for k := range corners {
			d.Add(drawing.Line{Start: toPoint(corners[k]), End: toPoint(corners[(k+1)%4]), Layer: p.Name})
		}
	}
}

// cutLine is the line a*u + b*v = c in a profile's 2D frame, parametrised
// as q0 + t*dir with a unit direction.
type cutLine struct {
	a, b, c float64
	q0, dir Vec2
}

func newCutLine(a, b, c float64) cutLine {
	l := math.Hypot(a, b)
	a, b, c = a/l, b/l, c/l
	return cutLine{a: a, b: b, c: c, q0: Vec2{a * c, b * c}, dir: Vec2{-b, a}}
}

func (l cutLine) side(q Vec2) float64 { return l.a*q.X + l.b*q.Y - l.c }
func (l cutLine) at(t float64) Vec2   { return l.q0.Add(l.dir.Scale(t)) }
func (l cutLine) param(q Vec2) float64 {
	return q.Sub(l.q0).Dot(l.dir)
}

// circleRoots returns the line parameters where the line meets a circle.
func (l cutLine) circleRoots(center Vec2, r float64) []float64 {
	m := l.q0.Sub(center)
	bm := m.Dot(l.dir)
	disc := bm*bm - (m.Dot(m) - r*r)
	if disc <= 0 {
		return nil
	}
	sq := math.Sqrt(disc)
	return []float64{-bm - sq, -bm + sq}
}

// crossings returns the parameters where the line crosses the profile
// boundary. A point exactly on the line counts as lying on the positive
// side, which keeps the parity right when the line passes through vertices.
func (l cutLine) crossings(p Profile) []float64 {
	var ts []float64
	for _, e := range p.Outer {
		f0, f1 := l.side(e.From), l.side(e.To)
		signChange := (f0 >= 0) != (f1 >= 0)
		if e.Kind == EdgeLine {
			if signChange {
				q := e.From.Add(e.To.Sub(e.From).Scale(f0 / (f0 - f1)))
				ts = append(ts, l.param(q))
			}
			continue
		}
		var hits []float64
		for _, t := range l.circleRoots(e.Center, e.Radius) {
			q := l.at(t)
			if e.containsAngle(math.Atan2(q.Y-e.Center.Y, q.X-e.Center.X)) {
				hits = append(hits, t)
			}
		}
		if (len(hits)%2 == 1) != signChange {
			end := e.From
			if math.Abs(f1) < math.Abs(f0) {
				end = e.To
			}
			hits = append(hits, l.param(end))
		}
		ts = append(ts, hits...)
	}
	for _, h := range p.Holes {
		ts = append(ts, l.circleRoots(h.Center, h.Radius)...)
	}
	return ts
}
