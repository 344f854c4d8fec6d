// Package geom provides the small solid modelling kernel used to build
// sheet-metal parts: planar profiles with line and arc edges, extruded parts,
// unions of parts, plane sections and tessellation.
//
// All lengths are millimetres. Angles are radians unless a name says degrees.
package geom

import "math"

// Eps is the absolute tolerance used for geometric comparisons.
const Eps = 1e-9

// Vec2 is a point or direction in a 2D frame.
type Vec2 struct {
	X, Y float64
}

// V2 is shorthand for Vec2{x, y}.
func V2(x, y float64) Vec2 { return Vec2{X: x, Y: y} }

func (a Vec2) Add(b Vec2) Vec2          { return Vec2{a.X + b.X, a.Y + b.Y} }
func (a Vec2) Sub(b Vec2) Vec2          { return Vec2{a.X - b.X, a.Y - b.Y} }
func (a Vec2) Scale(s float64) Vec2     { return Vec2{a.X * s, a.Y * s} }
func (a Vec2) Dot(b Vec2) float64       { return a.X*b.X + a.Y*b.Y }
func (a Vec2) Cross(b Vec2) float64     { return a.X*b.Y - a.Y*b.X }
func (a Vec2) Len() float64             { return math.Hypot(a.X, a.Y) }
func (a Vec2) Dist(b Vec2) float64      { return a.Sub(b).Len() }
func (a Vec2) Equal(b Vec2, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol
}

// Polar returns the point at the given angle and radius around c.
func Polar(c Vec2, r, angle float64) Vec2 {
	return Vec2{c.X + r*math.Cos(angle), c.Y + r*math.Sin(angle)}
}

// Vec3 is a point or direction in model space.
type Vec3 struct {
	X, Y, Z float64
}

// V3 is shorthand for Vec3{x, y, z}.
func V3(x, y, z float64) Vec3 { return Vec3{X: x, Y: y, Z: z} }

var (
	AxisX = Vec3{1, 0, 0}
	AxisY = Vec3{0, 1, 0}
	AxisZ = Vec3{0, 0, 1}
)

func (a Vec3) Add(b Vec3) Vec3      { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func (a Vec3) Sub(b Vec3) Vec3      { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func (a Vec3) Scale(s float64) Vec3 { return Vec3{a.X * s, a.Y * s, a.Z * s} }
func (a Vec3) Neg() Vec3            { return Vec3{-a.X, -a.Y, -a.Z} }
func (a Vec3) Dot(b Vec3) float64   { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }
func (a Vec3) Len() float64         { return math.Sqrt(a.Dot(a)) }
func (a Vec3) Dist(b Vec3) float64  { return a.Sub(b).Len() }

func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		a.Y*b.Z - a.Z*b.Y,
		a.Z*b.X - a.X*b.Z,
		a.X*b.Y - a.Y*b.X,
	}
}

// Unit returns a scaled to length 1. The zero vector is returned unchanged.
func (a Vec3) Unit() Vec3 {
	l := a.Len()
	if l < Eps {
		return a
	}
	return a.Scale(1 / l)
}

func (a Vec3) Equal(b Vec3, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol && math.Abs(a.Z-b.Z) <= tol
}
