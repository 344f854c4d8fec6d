package rules

import (
	"fmt"
	"strings"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/bracket"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/verify"
)

func init() {
	verify.Register(verify.RuleDef{
		ID:             "TP01",
		Name:           "single-body",
		Group:          "topology",
		Description:    "All parts form one connected solid",
		Severity:       verify.SeverityError,
		Check:          checkSingleBody,
		Recommendation: "Make sure the rear plate and the bend touch the base plate",
	})
}

func checkSingleBody(ctx *verify.Context) []verify.Diagnostic {
	bodies := ctx.Solid.Bodies()
	if len(bodies) == bracket.ExpectedBodies {
		return nil
	}
	groups := make([]string, len(bodies))
	for i, b := range bodies {
		groups[i] = "[" + strings.Join(b, ", ") + "]"
	}
	return []verify.Diagnostic{{
		Severity: verify.SeverityError,
		Message:  fmt.Sprintf("solid has %d bodies, want %d: %s", len(bodies), bracket.ExpectedBodies, strings.Join(groups, " ")),
	}}
}
