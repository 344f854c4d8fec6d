package geom

import (
	"fmt"
	"math"
	"strings"
)

// Names of the section planes.
const (
	PlaneXY = "XY"
	PlaneXZ = "XZ"
	PlaneYZ = "YZ"
)

// PlaneNames lists the supported section plane names.
var PlaneNames = []string{PlaneXY, PlaneXZ, PlaneYZ}

// Plane is an oriented plane with an orthonormal in-plane frame. Points on
// the plane map to 2D drawing coordinates through XDir and YDir.
type Plane struct {
	Name   string
	Origin Vec3
	XDir   Vec3
	YDir   Vec3
	Normal Vec3
}

// NamedPlane returns one of the standard section planes offset by height
// along its normal.
//
//	XY: x=+X, y=+Y, normal +Z
//	XZ: x=+X, y=-Z, normal +Y
//	YZ: x=+Y, y=+Z, normal +X
func NamedPlane(name string, height float64) (Plane, error) {
	var x, n Vec3
	switch strings.ToUpper(name) {
	case PlaneXY:
		x, n = AxisX, AxisZ
	case PlaneXZ:
		x, n = AxisX, AxisY
	case PlaneYZ:
		x, n = AxisY, AxisX
	default:
		return Plane{}, fmt.Errorf("unknown section plane %q (want one of %s)", name, strings.Join(PlaneNames, ", "))
	}
	return Plane{
		Name:   strings.ToUpper(name),
		Origin: n.Scale(height),
		XDir:   x,
		YDir:   n.Cross(x),
		Normal: n,
	}, nil
}

// Project maps a model-space point onto the plane's 2D frame.
func (p Plane) Project(v Vec3) Vec2 {
	d := v.Sub(p.Origin)
	return Vec2{d.Dot(p.XDir), d.Dot(p.YDir)}
}

// Lift maps a 2D drawing point back into model space.
func (p Plane) Lift(q Vec2) Vec3 {
	return p.Origin.Add(p.XDir.Scale(q.X)).Add(p.YDir.Scale(q.Y))
}

// Height returns the signed distance of the plane from the model origin.
func (p Plane) Height() float64 {
	return p.Origin.Dot(p.Normal)
}

// Frame is a right-handed local frame: N = U × V.
type Frame struct {
	Origin Vec3
	U, V   Vec3
}

// N returns the frame normal.
func (f Frame) N() Vec3 { return f.U.Cross(f.V) }

// Point maps local (u, v, w) coordinates into model space.
func (f Frame) Point(q Vec2, w float64) Vec3 {
	return f.Origin.Add(f.U.Scale(q.X)).Add(f.V.Scale(q.Y)).Add(f.N().Scale(w))
}

func parallel(a, b Vec3) bool {
	return math.Abs(math.Abs(a.Unit().Dot(b.Unit()))-1) < 1e-9
}

func perpendicular(a, b Vec3) bool {
	return math.Abs(a.Unit().Dot(b.Unit())) < 1e-9
}
