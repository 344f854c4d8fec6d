package geom

import (
	"errors"
	"fmt"
	"math"
)

// DefaultSegments is the number of chords used for a full turn when curves
// are flattened.
const DefaultSegments = 48

// EdgeKind distinguishes straight and circular profile edges.
type EdgeKind int

const (
	EdgeLine EdgeKind = iota
	EdgeArc
)

// Edge is one boundary element of a profile loop. Arcs are described by
// centre, radius, start angle and a signed sweep; a positive sweep runs
// counter-clockwise.
type Edge struct {
	Kind   EdgeKind
	From   Vec2
	To     Vec2
	Center Vec2
	Radius float64
	Start  float64
	Sweep  float64
}

// LineEdge returns a straight edge from a to b.
func LineEdge(a, b Vec2) Edge {
	return Edge{Kind: EdgeLine, From: a, To: b}
}

// ArcEdge returns a circular edge around c starting at angle start and
// turning through sweep.
func ArcEdge(c Vec2, r, start, sweep float64) Edge {
	return Edge{
		Kind:   EdgeArc,
		From:   Polar(c, r, start),
		To:     Polar(c, r, start+sweep),
		Center: c,
		Radius: r,
		Start:  start,
		Sweep:  sweep,
	}
}

// Points flattens the edge into a chain starting at From and stopping before
// To, using segments chords per full turn for arcs.
func (e Edge) Points(segments int) []Vec2 {
	if e.Kind == EdgeLine {
		return []Vec2{e.From}
	}
	n := chordCount(e.Sweep, segments)
	pts := make([]Vec2, 0, n)
	for i := 0; i < n; i++ {
		pts = append(pts, Polar(e.Center, e.Radius, e.Start+e.Sweep*float64(i)/float64(n)))
	}
	return pts
}

// Bounds returns the exact bounding rectangle of the edge.
func (e Edge) Bounds() Box2 {
	b := EmptyBox2().Extend(e.From).Extend(e.To)
	if e.Kind == EdgeLine {
		return b
	}
	for k := -4; k <= 4; k++ {
		a := float64(k) * math.Pi / 2
		if e.containsAngle(a) {
			b = b.Extend(Polar(e.Center, e.Radius, a))
		}
	}
	return b
}

// containsAngle reports whether angle a lies strictly inside the sweep.
func (e Edge) containsAngle(a float64) bool {
	lo, hi := e.Start, e.Start+e.Sweep
	if hi < lo {
		lo, hi = hi, lo
	}
	// bring a into [lo, lo+2π)
	a = lo + math.Mod(math.Mod(a-lo, 2*math.Pi)+2*math.Pi, 2*math.Pi)
	return a > lo+Eps && a < hi-Eps
}

func chordCount(sweep float64, segments int) int {
	if segments <= 0 {
		segments = DefaultSegments
	}
	n := int(math.Ceil(math.Abs(sweep) / (2 * math.Pi) * float64(segments)))
	if n < 1 {
		n = 1
	}
	return n
}

// Hole is a circular cut-out in a profile.
type Hole struct {
	Center Vec2
	Radius float64
}

// Diameter returns twice the radius.
func (h Hole) Diameter() float64 { return 2 * h.Radius }

// Points flattens the hole clockwise, the orientation inner loops need.
func (h Hole) Points(segments int) []Vec2 {
	n := chordCount(2*math.Pi, segments)
	pts := make([]Vec2, 0, n)
	for i := 0; i < n; i++ {
		pts = append(pts, Polar(h.Center, h.Radius, -2*math.Pi*float64(i)/float64(n)))
	}
	return pts
}

// Profile is a closed counter-clockwise outer loop with circular holes.
type Profile struct {
	Outer []Edge
	Holes []Hole
}

// Validate checks that the outer loop is closed, counter-clockwise and that
// every hole lies inside the outer bounds.
func (p Profile) Validate() error {
	if len(p.Outer) < 2 {
		return errors.New("profile needs at least two edges")
	}
	for i, e := range p.Outer {
		next := p.Outer[(i+1)%len(p.Outer)]
		if !e.To.Equal(next.From, 1e-6) {
			return fmt.Errorf("profile loop is open between edge %d and %d", i, (i+1)%len(p.Outer))
		}
		if e.Kind == EdgeArc && e.Radius <= 0 {
			return fmt.Errorf("edge %d has non-positive radius %g", i, e.Radius)
		}
	}
	if polygonArea(p.OuterPoints(DefaultSegments)) <= 0 {
		return errors.New("profile outer loop must be counter-clockwise")
	}
	b := p.Bounds()
	for i, h := range p.Holes {
		if h.Radius <= 0 {
			return fmt.Errorf("hole %d has non-positive radius %g", i, h.Radius)
		}
		if h.Center.X-h.Radius < b.Min.X || h.Center.X+h.Radius > b.Max.X ||
			h.Center.Y-h.Radius < b.Min.Y || h.Center.Y+h.Radius > b.Max.Y {
			return fmt.Errorf("hole %d at (%.2f, %.2f) extends past the profile", i, h.Center.X, h.Center.Y)
		}
	}
	return nil
}

// OuterPoints flattens the outer loop.
func (p Profile) OuterPoints(segments int) []Vec2 {
	var pts []Vec2
	for _, e := range p.Outer {
		pts = append(pts, e.Points(segments)...)
	}
	return pts
}

// Bounds returns the bounding rectangle of the outer loop.
func (p Profile) Bounds() Box2 {
	b := EmptyBox2()
	for _, e := range p.Outer {
		b = b.Union(e.Bounds())
	}
	return b
}

// RoundedRect builds a counter-clockwise rectangle profile. radii gives the
// corner radius for the lower-left, lower-right, upper-right and upper-left
// corners; zero keeps the corner sharp.
func RoundedRect(min, max Vec2, radii [4]float64) Profile {
	corners := [4]Vec2{min, {max.X, min.Y}, max, {min.X, max.Y}}
	// direction of the incoming side at each corner, and the angle of the
	// fillet start measured from its centre
	inward := [4]Vec2{{1, 1}, {-1, 1}, {-1, -1}, {1, -1}}
	startAngle := [4]float64{math.Pi, -math.Pi / 2, 0, math.Pi / 2}

	var edges []Edge
	var prev Vec2
	first := true
	var firstPt Vec2
	for i, c := range corners {
		r := radii[i]
		var in, out Vec2
		var arc *Edge
		if r > 0 {
			center := c.Add(inward[i].Scale(r))
			a := ArcEdge(center, r, startAngle[i], math.Pi/2)
			arc = &a
			in, out = a.From, a.To
		} else {
			in, out = c, c
		}
		if first {
			firstPt = in
			first = false
		} else if !prev.Equal(in, Eps) {
			edges = append(edges, LineEdge(prev, in))
		}
		if arc != nil {
			edges = append(edges, *arc)
		}
		prev = out
	}
	if !prev.Equal(firstPt, Eps) {
		edges = append(edges, LineEdge(prev, firstPt))
	}
	return Profile{Outer: edges}
}

// polygonArea returns the signed shoelace area; positive is counter-clockwise.
func polygonArea(pts []Vec2) float64 {
	var a float64
	for i := range pts {
		j := (i + 1) % len(pts)
		a += pts[i].Cross(pts[j])
	}
	return a / 2
}
