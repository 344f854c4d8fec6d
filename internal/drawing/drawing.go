// Package drawing holds the 2D entity model shared by the DXF and SVG
// readers and writers. Coordinates are millimetres, angles are degrees
// measured counter-clockwise from +X.
package drawing

import (
	"math"
)

// Entity type names, matching the DXF entity names.
const (
	KindLine      = "LINE"
	KindCircle    = "CIRCLE"
	KindArc       = "ARC"
	KindPolyline  = "LWPOLYLINE"
	KindDimension = "DIMENSION"
	KindText      = "TEXT"
)

// DefaultLayer is used for entities written without a layer.
const DefaultLayer = "0"

// Point is a 2D coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{x, y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

// Dist returns the distance between two points.
func (p Point) Dist(q Point) float64 { return math.Hypot(q.X-p.X, q.Y-p.Y) }

// Entity is any drawable element.
type Entity interface {
	Kind() string
	LayerName() string
	Bounds() Box
}

// Line is a straight segment.
type Line struct {
	Start Point
	End   Point
	Layer string
}

func (l Line) Kind() string      { return KindLine }
func (l Line) LayerName() string { return layerOrDefault(l.Layer) }
func (l Line) Length() float64   { return l.Start.Dist(l.End) }
func (l Line) Bounds() Box       { return EmptyBox().Extend(l.Start).Extend(l.End) }

// Circle is a full circle.
type Circle struct {
	Center Point
	Radius float64
	Layer  string
}

func (c Circle) Kind() string      { return KindCircle }
func (c Circle) LayerName() string { return layerOrDefault(c.Layer) }
func (c Circle) Diameter() float64 { return 2 * c.Radius }

func (c Circle) Bounds() Box {
	return Box{
		Min: Point{c.Center.X - c.Radius, c.Center.Y - c.Radius},
		Max: Point{c.Center.X + c.Radius, c.Center.Y + c.Radius},
	}
}

// Arc runs counter-clockwise from StartAngle to EndAngle.
type Arc struct {
	Center     Point
	Radius     float64
	StartAngle float64
	EndAngle   float64
	Layer      string
}

func (a Arc) Kind() string      { return KindArc }
func (a Arc) LayerName() string { return layerOrDefault(a.Layer) }

// Span returns the counter-clockwise sweep in degrees, in (0, 360].
func (a Arc) Span() float64 {
	s := math.Mod(a.EndAngle-a.StartAngle, 360)
	if s <= 0 {
		s += 360
	}
	return s
}

// PointAt returns the point at angle deg on the arc's circle.
func (a Arc) PointAt(deg float64) Point {
	r := deg * math.Pi / 180
	return Point{a.Center.X + a.Radius*math.Cos(r), a.Center.Y + a.Radius*math.Sin(r)}
}

// StartPoint and EndPoint return the arc end points.
func (a Arc) StartPoint() Point { return a.PointAt(a.StartAngle) }
func (a Arc) EndPoint() Point   { return a.PointAt(a.EndAngle) }

func (a Arc) Bounds() Box {
	b := EmptyBox().Extend(a.StartPoint()).Extend(a.EndPoint())
	span := a.Span()
	for q := 0; q < 4; q++ {
		deg := float64(q) * 90
		off := math.Mod(deg-a.StartAngle, 360)
		if off < 0 {
			off += 360
		}
		if off < span {
			b = b.Extend(a.PointAt(deg))
		}
	}
	return b
}

// Polyline is an ordered point chain, optionally closed.
type Polyline struct {
	Points []Point
	Closed bool
	Layer  string
}

func (p Polyline) Kind() string      { return KindPolyline }
func (p Polyline) LayerName() string { return layerOrDefault(p.Layer) }

func (p Polyline) Bounds() Box {
	b := EmptyBox()
	for _, pt := range p.Points {
		b = b.Extend(pt)
	}
	return b
}

// Dimension type codes stored in the low bits of DXF group 70.
const (
	DimLinear = iota
	DimAligned
	DimAngular
	DimDiameter
	DimRadius
	DimAngular3P
	DimOrdinate
)

// Dimension is a measurement annotation.
type Dimension struct {
	DimType     int
	Measurement float64
	Text        string
	DefPoint    Point
	// First and Second are the measured points for linear and aligned
	// dimensions.
	First  Point
	Second Point
	Layer  string
}

func (d Dimension) Kind() string      { return KindDimension }
func (d Dimension) LayerName() string { return layerOrDefault(d.Layer) }
func (d Dimension) Bounds() Box       { return EmptyBox().Extend(d.DefPoint) }

// TypeName returns a readable name for the dimension type.
func (d Dimension) TypeName() string {
	switch d.DimType & 0x0F {
	case DimLinear:
		return "linear"
	case DimAligned:
		return "aligned"
	case DimAngular:
		return "angular"
	case DimDiameter:
		return "diameter"
	case DimRadius:
		return "radius"
	case DimAngular3P:
		return "angular3p"
	case DimOrdinate:
		return "ordinate"
	}
	return "unknown"
}

// Text is a single-line label.
type Text struct {
	Insert Point
	Height float64
	Value  string
	Layer  string
}

func (t Text) Kind() string      { return KindText }
func (t Text) LayerName() string { return layerOrDefault(t.Layer) }
func (t Text) Bounds() Box       { return EmptyBox().Extend(t.Insert) }

func layerOrDefault(l string) string {
	if l == "" {
		return DefaultLayer
	}
	return l
}

// Drawing is an ordered list of entities.
type Drawing struct {
	Entities []Entity
}

// New returns an empty drawing.
func New() *Drawing { return &Drawing{} }

// Add appends entities to the drawing.
func (d *Drawing) Add(e ...Entity) { d.Entities = append(d.Entities, e...) }

// Len returns the number of entities.
func (d *Drawing) Len() int { return len(d.Entities) }

// Bounds returns the bounding box of all entities.
func (d *Drawing) Bounds() Box {
	b := EmptyBox()
	for _, e := range d.Entities {
		b = b.Union(e.Bounds())
	}
	return b
}

// Layers returns the distinct layer names in first-use order.
func (d *Drawing) Layers() []string {
	seen := map[string]bool{}
	var layers []string
	for _, e := range d.Entities {
		l := e.LayerName()
		if !seen[l] {
			seen[l] = true
			layers = append(layers, l)
		}
	}
	return layers
}

// Counts returns the number of entities per kind.
func (d *Drawing) Counts() map[string]int {
	counts := make(map[string]int)
	for _, e := range d.Entities {
		counts[e.Kind()]++
	}
	return counts
}

func (d *Drawing) Lines() []Line           { return collect[Line](d) }
func (d *Drawing) Circles() []Circle       { return collect[Circle](d) }
func (d *Drawing) Arcs() []Arc             { return collect[Arc](d) }
func (d *Drawing) Polylines() []Polyline   { return collect[Polyline](d) }
func (d *Drawing) Dimensions() []Dimension { return collect[Dimension](d) }
func (d *Drawing) Texts() []Text           { return collect[Text](d) }

func collect[T Entity](d *Drawing) []T {
	var out []T
	for _, e := range d.Entities {
		if v, ok := e.(T); ok {
			out = append(out, v)
		}
	}
	return out
}
