package geom

import (
	"errors"
	"fmt"
)

// Part is a profile extruded from its frame's UV plane along the frame
// normal over [0, Depth].
type Part struct {
	Name    string
	Frame   Frame
	Profile Profile
	Depth   float64
}

// Validate checks the part's profile and depth.
func (p Part) Validate() error {
	if p.Depth <= 0 {
		return fmt.Errorf("part %q: depth must be positive, got %g", p.Name, p.Depth)
	}
	if !perpendicular(p.Frame.U, p.Frame.V) {
		return fmt.Errorf("part %q: frame axes are not perpendicular", p.Name)
	}
	if err := p.Profile.Validate(); err != nil {
		return fmt.Errorf("part %q: %w", p.Name, err)
	}
	return nil
}

// BoundingBox returns the part's model-space bounding box. Frames are
// expected to be axis aligned, which makes the box exact.
func (p Part) BoundingBox() Box3 {
	pb := p.Profile.Bounds()
	b := EmptyBox3()
	for _, q := range []Vec2{pb.Min, {pb.Max.X, pb.Min.Y}, pb.Max, {pb.Min.X, pb.Max.Y}} {
		b = b.Extend(p.Frame.Point(q, 0)).Extend(p.Frame.Point(q, p.Depth))
	}
	return b
}

// Solid is a union of parts.
type Solid struct {
	Name  string
	Parts []Part
}

// NewSolid validates the parts and returns their union.
func NewSolid(name string, parts ...Part) (*Solid, error) {
	if len(parts) == 0 {
		return nil, errors.New("solid needs at least one part")
	}
	for _, p := range parts {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}
	return &Solid{Name: name, Parts: parts}, nil
}

// BoundingBox returns the union of the part boxes.
func (s *Solid) BoundingBox() Box3 {
	b := EmptyBox3()
	for _, p := range s.Parts {
		b = b.Union(p.BoundingBox())
	}
	return b
}

// Bodies groups parts into connected bodies. Two parts are connected when
// their boxes share a face patch.
func (s *Solid) Bodies() [][]string {
	uf := newUnionFind(len(s.Parts))
	boxes := make([]Box3, len(s.Parts))
	for i, p := range s.Parts {
		boxes[i] = p.BoundingBox()
	}
	for i := range boxes {
		for j := i + 1; j < len(boxes); j++ {
			if boxes[i].Joins(boxes[j], 1e-6) {
				uf.union(i, j)
			}
		}
	}

	groups := map[int][]string{}
	var order []int
	for i, p := range s.Parts {
		root := uf.find(i)
		if _, ok := groups[root]; !ok {
			order = append(order, root)
		}
		groups[root] = append(groups[root], p.Name)
	}
	bodies := make([][]string, 0, len(order))
	for _, root := range order {
		bodies = append(bodies, groups[root])
	}
	return bodies
}

type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	switch {
	case u.rank[ra] < u.rank[rb]:
		u.parent[ra] = rb
	case u.rank[ra] > u.rank[rb]:
		u.parent[rb] = ra
	default:
		u.parent[rb] = ra
		u.rank[ra]++
	}
}
