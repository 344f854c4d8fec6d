package bracket

import "github.com/yuki-inaho/openscad-cadquery-sandbox/internal/geom"

// Tolerances used by the regression checks, in millimetres.
const (
	ToleranceDimension    = 0.5
	ToleranceHoleDiameter = 0.1
	ToleranceHolePosition = 1.0
	MaxEdgeFillet         = 1.5
	MinBendRadius         = 3.0
	MaxBendRadius         = 4.0
	ExpectedBodies        = 1
	ExpectedTripodHoles   = 1
	ExpectedCameraHoles   = 4
)

// SectionSpec names a section plane and where to cut it.
type SectionSpec struct {
	Plane  string  `json:"plane"`
	Height float64 `json:"height"`
}

// Requirements are the expected properties of a built bracket.
type Requirements struct {
	BoundingBox     geom.Box3
	TripodSection   SectionSpec
	TripodDiameter  float64
	TripodCenter    geom.Vec3
	CameraSection   SectionSpec
	CameraDiameter  float64
	CameraPositions []geom.Vec3
}

// LBracketRequirements returns the fixed properties every design must meet:
// the 80x50x42 envelope, the tripod hole cut at Z=1 and the four camera
// holes cut at Y=-24. They do not follow the parameters, so a profile or
// script that moves a hole or resizes a plate fails the checks.
func LBracketRequirements() Requirements {
	return Requirements{
		BoundingBox: geom.Box3{
			Min: geom.V3(-40, -25, 0),
			Max: geom.V3(40, 25, 42),
		},
		TripodSection:  SectionSpec{Plane: geom.PlaneXY, Height: 1},
		TripodDiameter: 6.5,
		TripodCenter:   geom.V3(0, -5, 1),
		CameraSection:  SectionSpec{Plane: geom.PlaneXZ, Height: -24},
		CameraDiameter: 3.2,
		CameraPositions: []geom.Vec3{
			geom.V3(-31.5, -24, 10),
			geom.V3(-31.5, -24, 18),
			geom.V3(31.5, -24, 10),
			geom.V3(31.5, -24, 18),
		},
	}
}
