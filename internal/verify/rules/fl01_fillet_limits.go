package rules

import (
	"fmt"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/bracket"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/verify"
)

func init() {
	verify.Register(verify.RuleDef{
		ID:             "FL01",
		Name:           "fillet-limits",
		Group:          "fillets",
		Description:    "Edge fillet and bend radius stay within the sheet metal limits",
		Severity:       verify.SeverityError,
		Check:          checkFilletLimits,
		Recommendation: "Keep the edge fillet at most 1.5 mm and the bend radius between 3 and 4 mm",
	})
}

func checkFilletLimits(ctx *verify.Context) []verify.Diagnostic {
	p := ctx.Params
	var diags []verify.Diagnostic
	if p.EdgeFillet > bracket.MaxEdgeFillet {
		diags = append(diags, verify.Diagnostic{
			Severity: verify.SeverityError,
			Message:  fmt.Sprintf("edge fillet %.2f exceeds %.1f", p.EdgeFillet, bracket.MaxEdgeFillet),
		})
	}
	if p.BendRadius < bracket.MinBendRadius || p.BendRadius > bracket.MaxBendRadius {
		diags = append(diags, verify.Diagnostic{
			Severity: verify.SeverityError,
			Message: fmt.Sprintf("bend radius %.2f outside [%.1f, %.1f]",
				p.BendRadius, bracket.MinBendRadius, bracket.MaxBendRadius),
		})
	}
	return diags
}
