package geom

import (
	"errors"
	"math"
	"sort"
)

// triangulate splits a counter-clockwise polygon with clockwise holes into
// counter-clockwise triangles. Holes are first bridged into the outer loop,
// then ears are clipped.
func triangulate(outer []Vec2, holes [][]Vec2) ([][3]Vec2, error) {
	if len(outer) < 3 {
		return nil, errors.New("polygon needs at least three vertices")
	}
	poly := append([]Vec2(nil), outer...)

	// bridge holes in order of decreasing rightmost x
	order := make([]int, len(holes))
	for i := range order {
		order[i] = i
	}
	rightmost := func(h []Vec2) int {
		best := 0
		for i, p := range h {
			if p.X > h[best].X || (p.X == h[best].X && p.Y < h[best].Y) {
				best = i
			}
		}
		return best
	}
	sort.Slice(order, func(i, j int) bool {
		hi, hj := holes[order[i]], holes[order[j]]
		return hi[rightmost(hi)].X > hj[rightmost(hj)].X
	})
	for _, idx := range order {
		h := holes[idx]
		if len(h) < 3 {
			continue
		}
		var err error
		poly, err = bridgeHole(poly, h, rightmost(h))
		if err != nil {
			return nil, err
		}
	}
	return earClip(poly), nil
}

// bridgeHole splices hole into poly through a mutually visible vertex pair.
func bridgeHole(poly, hole []Vec2, mi int) ([]Vec2, error) {
	m := hole[mi]

	// cast a ray towards +x and find the closest edge it hits
	best := math.Inf(1)
	bestEdge := -1
	for i := range poly {
		a, b := poly[i], poly[(i+1)%len(poly)]
		if (a.Y > m.Y) == (b.Y > m.Y) {
			continue
		}
		x := a.X + (m.Y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
		if x >= m.X-Eps && x < best {
			best = x
			bestEdge = i
		}
	}
	if bestEdge < 0 {
		return nil, errors.New("hole lies outside the outer loop")
	}

	hit := Vec2{best, m.Y}
	a, b := poly[bestEdge], poly[(bestEdge+1)%len(poly)]
	pi := bestEdge
	if b.X > a.X {
		pi = (bestEdge + 1) % len(poly)
	}
	p := poly[pi]

	// a reflex vertex inside triangle (m, hit, p) would block the bridge;
	// take the one closest in angle to the ray instead
	if !p.Equal(hit, Eps) {
		bestAngle := math.Inf(1)
		for i, q := range poly {
			if i == pi || q.Equal(p, Eps) {
				continue
			}
			if !pointInTriangle(q, m, hit, p) && !pointInTriangle(q, m, p, hit) {
				continue
			}
			d := q.Sub(m)
			angle := math.Atan2(math.Abs(d.Y), d.X)
			if angle < bestAngle || (angle == bestAngle && d.Len() < p.Sub(m).Len()) {
				bestAngle = angle
				pi = i
			}
		}
		p = poly[pi]
	}

	out := make([]Vec2, 0, len(poly)+len(hole)+2)
	out = append(out, poly[:pi+1]...)
	for k := 0; k <= len(hole); k++ {
		out = append(out, hole[(mi+k)%len(hole)])
	}
	out = append(out, p)
	out = append(out, poly[pi+1:]...)
	return out, nil
}

func earClip(poly []Vec2) [][3]Vec2 {
	idx := make([]int, len(poly))
	for i := range idx {
		idx[i] = i
	}
	var tris [][3]Vec2
	guard := 0
	for len(idx) > 3 && guard < len(poly)*len(poly) {
		guard++
		clipped := false
		for i := range idx {
			ia, ib, ic := idx[(i+len(idx)-1)%len(idx)], idx[i], idx[(i+1)%len(idx)]
			a, b, c := poly[ia], poly[ib], poly[ic]
			if b.Sub(a).Cross(c.Sub(b)) <= Eps {
				continue
			}
			if earBlocked(poly, idx, a, b, c) {
				continue
			}
			tris = append(tris, [3]Vec2{a, b, c})
			idx = append(idx[:i], idx[i+1:]...)
			clipped = true
			break
		}
		if !clipped {
			// only degenerate (collinear or duplicated) vertices remain
			// convex; drop one to make progress
			idx = append(idx[:0], idx[1:]...)
		}
	}
	if len(idx) == 3 {
		a, b, c := poly[idx[0]], poly[idx[1]], poly[idx[2]]
		if b.Sub(a).Cross(c.Sub(a)) > Eps {
			tris = append(tris, [3]Vec2{a, b, c})
		}
	}
	return tris
}

func earBlocked(poly []Vec2, idx []int, a, b, c Vec2) bool {
	for _, j := range idx {
		q := poly[j]
		if q.Equal(a, Eps) || q.Equal(b, Eps) || q.Equal(c, Eps) {
			continue
		}
		if pointInTriangle(q, a, b, c) {
			return true
		}
	}
	return false
}

// pointInTriangle reports whether p lies inside or on the counter-clockwise
// triangle abc.
func pointInTriangle(p, a, b, c Vec2) bool {
	return b.Sub(a).Cross(p.Sub(a)) >= -Eps &&
		c.Sub(b).Cross(p.Sub(b)) >= -Eps &&
		a.Sub(c).Cross(p.Sub(c)) >= -Eps
}
