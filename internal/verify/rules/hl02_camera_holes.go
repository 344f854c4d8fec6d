package rules

import (
	"fmt"
	"math"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/bracket"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/geom"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/verify"
)

func init() {
	verify.Register(verify.RuleDef{
		ID:             "HL02",
		Name:           "camera-holes",
		Group:          "holes",
		Description:    "Rear plate section has four M3 camera holes at the mounting positions",
		Severity:       verify.SeverityError,
		Check:          checkCameraHoles,
		Recommendation: "Place the four camera holes at the mounting pattern of the camera body",
	})
}

// checkCameraHoles cuts the rear plate and matches each expected hole with a
// circle of the cut. The cut drawing's Y axis is -Z, so circle centres are
// lifted back through the plane frame before comparing heights.
func checkCameraHoles(ctx *verify.Context) []verify.Diagnostic {
	req := ctx.Requirements
	sec := ctx.Section(req.CameraSection)
	if sec.Err != nil {
		return []verify.Diagnostic{{
			Severity: verify.SeverityError,
			Message:  fmt.Sprintf("section %s at %.2f failed: %v", req.CameraSection.Plane, req.CameraSection.Height, sec.Err),
		}}
	}

	circles := sec.Doc.Drawing.Circles()
	var diags []verify.Diagnostic
	if len(circles) != bracket.ExpectedCameraHoles {
		diags = append(diags, verify.Diagnostic{
			Severity: verify.SeverityError,
			Message: fmt.Sprintf("section %s at %.2f has %d circles, want %d",
				req.CameraSection.Plane, req.CameraSection.Height, len(circles), bracket.ExpectedCameraHoles),
		})
	}

	centers := make([]geom.Vec3, len(circles))
	for i, c := range circles {
		centers[i] = sec.Lift(c.Center.X, c.Center.Y)
		if d := c.Diameter(); math.Abs(d-req.CameraDiameter) > bracket.ToleranceHoleDiameter {
			diags = append(diags, verify.Diagnostic{
				Severity: verify.SeverityError,
				Message: fmt.Sprintf("camera hole at X=%.2f Z=%.2f is Ø%.2f, want Ø%.2f ±%.1f",
					centers[i].X, centers[i].Z, d, req.CameraDiameter, bracket.ToleranceHoleDiameter),
			})
		}
	}

	used := make([]bool, len(centers))
	for _, want := range req.CameraPositions {
		found := false
		for i, got := range centers {
			if used[i] {
				continue
			}
			if math.Abs(got.X-want.X) <= bracket.ToleranceHolePosition && math.Abs(got.Z-want.Z) <= bracket.ToleranceHolePosition {
				used[i], found = true, true
				break
			}
		}
		if !found {
			diags = append(diags, verify.Diagnostic{
				Severity: verify.SeverityError,
				Message: fmt.Sprintf("no camera hole at X=%.2f Z=%.2f ±%.1f",
					want.X, want.Z, bracket.ToleranceHolePosition),
			})
		}
	}
	return diags
}
