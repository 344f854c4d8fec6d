package rules

import (
	"fmt"
	"math"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/bracket"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/verify"
)

func init() {
	verify.Register(verify.RuleDef{
		ID:             "BB01",
		Name:           "bounding-box",
		Group:          "dimensions",
		Description:    "Overall extent is 80 x 50 x 42 mm",
		Severity:       verify.SeverityError,
		Check:          checkBoundingBox,
		Recommendation: "Check the plate widths, depth, height and thickness against the mounting envelope",
	})
}

// checkBoundingBox compares every bound of the solid with the required
// envelope.
func checkBoundingBox(ctx *verify.Context) []verify.Diagnostic {
	got := ctx.Solid.BoundingBox()
	want := ctx.Requirements.BoundingBox
	tol := bracket.ToleranceDimension

	axes := []struct {
		name             string
		gotMin, gotMax   float64
		wantMin, wantMax float64
	}{
		{"X", got.Min.X, got.Max.X, want.Min.X, want.Max.X},
		{"Y", got.Min.Y, got.Max.Y, want.Min.Y, want.Max.Y},
		{"Z", got.Min.Z, got.Max.Z, want.Min.Z, want.Max.Z},
	}

	var diags []verify.Diagnostic
	for _, a := range axes {
		if math.Abs(a.gotMin-a.wantMin) <= tol && math.Abs(a.gotMax-a.wantMax) <= tol {
			continue
		}
		diags = append(diags, verify.Diagnostic{
			Severity: verify.SeverityError,
			Message: fmt.Sprintf("%s extent [%.2f, %.2f], want [%.2f, %.2f] ±%.1f",
				a.name, a.gotMin, a.gotMax, a.wantMin, a.wantMax, tol),
		})
	}
	return diags
}
