package rules

import (
	"fmt"
	"math"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/bracket"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/verify"
)

func init() {
	verify.Register(verify.RuleDef{
		ID:             "HL01",
		Name:           "tripod-hole",
		Group:          "holes",
		Description:    "Base plate section has exactly one tripod hole of the right size and place",
		Severity:       verify.SeverityError,
		Check:          checkTripodHole,
		Recommendation: "Keep a single 1/4\" tripod hole through the base plate",
	})
}

// checkTripodHole cuts the base plate, reads the cut back from DXF and checks
// the one circle it must contain.
func checkTripodHole(ctx *verify.Context) []verify.Diagnostic {
	req := ctx.Requirements
	sec := ctx.Section(req.TripodSection)
	if sec.Err != nil {
		return []verify.Diagnostic{{
			Severity: verify.SeverityError,
			Message:  fmt.Sprintf("section %s at %.2f failed: %v", req.TripodSection.Plane, req.TripodSection.Height, sec.Err),
		}}
	}

	circles := sec.Doc.Drawing.Circles()
	if len(circles) != bracket.ExpectedTripodHoles {
		return []verify.Diagnostic{{
			Severity: verify.SeverityError,
			Message: fmt.Sprintf("section %s at %.2f has %d circles, want %d",
				req.TripodSection.Plane, req.TripodSection.Height, len(circles), bracket.ExpectedTripodHoles),
		}}
	}

	var diags []verify.Diagnostic
	c := circles[0]
	if d := c.Diameter(); math.Abs(d-req.TripodDiameter) > bracket.ToleranceHoleDiameter {
		diags = append(diags, verify.Diagnostic{
			Severity: verify.SeverityError,
			Message:  fmt.Sprintf("tripod hole Ø%.2f, want Ø%.2f ±%.1f", d, req.TripodDiameter, bracket.ToleranceHoleDiameter),
		})
	}
	center := sec.Lift(c.Center.X, c.Center.Y)
	want := req.TripodCenter
	if math.Abs(center.X-want.X) > bracket.ToleranceHolePosition || math.Abs(center.Y-want.Y) > bracket.ToleranceHolePosition {
		diags = append(diags, verify.Diagnostic{
			Severity: verify.SeverityError,
			Message: fmt.Sprintf("tripod hole at (%.2f, %.2f), want (%.2f, %.2f) ±%.1f",
				center.X, center.Y, want.X, want.Y, bracket.ToleranceHolePosition),
		})
	}
	return diags
}
