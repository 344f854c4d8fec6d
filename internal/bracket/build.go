package bracket

import (
	"fmt"
	"math"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/geom"
)

// Part names, also used as drawing layers in sections.
const (
	PartBase = "base"
	PartRear = "rear"
	PartBend = "bend"
)

// SolidName is the name given to the built solid and its exports.
const SolidName = "l_bracket"

// Build constructs the bracket solid.
//
// The base plate is centred on the origin with its underside at Z=0. The rear
// plate stands on the base plate's back edge, so its outer face is flush with
// Y=-depth/2 and it spans Z from the plate thickness to the total height. The
// bend fillet fills the inner corner between the two plates.
func Build(p Params) (*geom.Solid, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid bracket parameters: %w", err)
	}

	t := p.Thickness
	hw, hd := p.HorizontalWidth/2, p.HorizontalDepth/2
	vw := p.VerticalWidth / 2

	base := geom.Part{
		Name:  PartBase,
		Frame: geom.Frame{Origin: geom.V3(0, 0, 0), U: geom.AxisX, V: geom.AxisY},
		Depth: t,
		Profile: geom.RoundedRect(geom.V2(-hw, -hd), geom.V2(hw, hd),
			[4]float64{0, 0, p.EdgeFillet, p.EdgeFillet}),
	}
	base.Profile.Holes = []geom.Hole{{
		Center: geom.V2(p.TripodX, p.TripodY),
		Radius: p.TripodHoleDiameter / 2,
	}}

	// U=X and V=Z give a -Y normal: the plate grows from its inner face
	// towards the back of the bracket.
	low, high := p.CameraHoleZ()
	rc := p.CameraHoleDiameter / 2
	rear := geom.Part{
		Name:    PartRear,
		Frame:   geom.Frame{Origin: geom.V3(0, -hd+t, 0), U: geom.AxisX, V: geom.AxisZ},
		Depth:   t,
		Profile: geom.RoundedRect(geom.V2(-vw, t), geom.V2(vw, p.TotalHeight()), [4]float64{}),
	}
	for _, x := range []float64{-p.CameraHoleX, p.CameraHoleX} {
		for _, z := range []float64{low, high} {
			rear.Profile.Holes = append(rear.Profile.Holes, geom.Hole{Center: geom.V2(x, z), Radius: rc})
		}
	}

	parts := []geom.Part{base, rear}
	if p.BendRadius > 0 {
		parts = append(parts, bendFillet(p))
	}
	return geom.NewSolid(SolidName, parts...)
}

// bendFillet is the concave fillet in the inner corner, extruded along X
// over the rear plate's width. Its profile lives in the YZ plane.
func bendFillet(p Params) geom.Part {
	t, r := p.Thickness, p.BendRadius
	y0, z0 := -p.HorizontalDepth/2+t, t
	corner := geom.V2(y0, z0)
	return geom.Part{
		Name:  PartBend,
		Frame: geom.Frame{Origin: geom.V3(-p.VerticalWidth/2, 0, 0), U: geom.AxisY, V: geom.AxisZ},
		Depth: p.VerticalWidth,
		Profile: geom.Profile{Outer: []geom.Edge{
			geom.LineEdge(corner, geom.V2(y0+r, z0)),
			geom.ArcEdge(geom.V2(y0+r, z0+r), r, -math.Pi/2, -math.Pi/2),
			geom.LineEdge(geom.V2(y0, z0+r), corner),
		}},
	}
}
