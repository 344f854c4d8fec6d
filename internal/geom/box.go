package geom

import (
	"fmt"
	"math"
)

// Box3 is an axis-aligned bounding box. The zero value is not empty; use
// EmptyBox3 to start an accumulation.
type Box3 struct {
	Min, Max Vec3
}

// EmptyBox3 returns a box that contains nothing and grows with Extend.
func EmptyBox3() Box3 {
	inf := math.Inf(1)
	return Box3{
		Min: Vec3{inf, inf, inf},
		Max: Vec3{-inf, -inf, -inf},
	}
}

// IsEmpty reports whether no point has been added to the box.
func (b Box3) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Extend grows the box to include p.
func (b Box3) Extend(p Vec3) Box3 {
	return Box3{
		Min: Vec3{math.Min(b.Min.X, p.X), math.Min(b.Min.Y, p.Y), math.Min(b.Min.Z, p.Z)},
		Max: Vec3{math.Max(b.Max.X, p.X), math.Max(b.Max.Y, p.Y), math.Max(b.Max.Z, p.Z)},
	}
}

// Union returns the smallest box containing both boxes.
func (b Box3) Union(o Box3) Box3 {
	if o.IsEmpty() {
		return b
	}
	return b.Extend(o.Min).Extend(o.Max)
}

// Size returns the extent along each axis.
func (b Box3) Size() Vec3 {
	if b.IsEmpty() {
		return Vec3{}
	}
	return b.Max.Sub(b.Min)
}

// Center returns the midpoint of the box.
func (b Box3) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Within reports whether every bound of b is within tol of the matching
// bound of want.
func (b Box3) Within(want Box3, tol float64) bool {
	return b.Min.Equal(want.Min, tol) && b.Max.Equal(want.Max, tol)
}

// overlaps returns the signed overlap along each axis. Negative values are
// gaps between the boxes.
func (b Box3) overlaps(o Box3) [3]float64 {
	return [3]float64{
		math.Min(b.Max.X, o.Max.X) - math.Max(b.Min.X, o.Min.X),
		math.Min(b.Max.Y, o.Max.Y) - math.Max(b.Min.Y, o.Min.Y),
		math.Min(b.Max.Z, o.Max.Z) - math.Max(b.Min.Z, o.Min.Z),
	}
}

// Joins reports whether two boxes share a face patch: no gap along any axis
// and a positive overlap along at least two axes. Boxes that only meet along
// an edge or at a corner do not join.
func (b Box3) Joins(o Box3, tol float64) bool {
	ov := b.overlaps(o)
	positive := 0
	for _, v := range ov {
		if v < -tol {
			return false
		}
		if v > tol {
			positive++
		}
	}
	return positive >= 2
}

func (b Box3) String() string {
	return fmt.Sprintf("X[%.2f, %.2f] Y[%.2f, %.2f] Z[%.2f, %.2f]",
		b.Min.X, b.Max.X, b.Min.Y, b.Max.Y, b.Min.Z, b.Max.Z)
}

// Box2 is an axis-aligned rectangle in a 2D frame.
type Box2 struct {
	Min, Max Vec2
}

// EmptyBox2 returns a rectangle that contains nothing.
func EmptyBox2() Box2 {
	inf := math.Inf(1)
	return Box2{Min: Vec2{inf, inf}, Max: Vec2{-inf, -inf}}
}

func (b Box2) IsEmpty() bool { return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y }

func (b Box2) Extend(p Vec2) Box2 {
	return Box2{
		Min: Vec2{math.Min(b.Min.X, p.X), math.Min(b.Min.Y, p.Y)},
		Max: Vec2{math.Max(b.Max.X, p.X), math.Max(b.Max.Y, p.Y)},
	}
}

func (b Box2) Union(o Box2) Box2 {
	if o.IsEmpty() {
		return b
	}
	return b.Extend(o.Min).Extend(o.Max)
}
