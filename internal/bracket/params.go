// Package bracket builds the parametric L-shaped camera mount: a horizontal
// base plate with a tripod hole, a vertical rear plate with four camera
// screw holes, a bend fillet between them and rounded front corners.
package bracket

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Default parameter values, in millimetres.
const (
	DefaultThickness          = 2.0
	DefaultHorizontalWidth    = 80.0
	DefaultHorizontalDepth    = 50.0
	DefaultVerticalWidth      = 80.0
	DefaultVerticalHeight     = 40.0
	DefaultTripodHoleDiameter = 6.5
	DefaultTripodX            = 0.0
	DefaultTripodY            = -5.0
	DefaultCameraHoleDiameter = 3.2
	DefaultCameraHoleX        = 31.5
	DefaultCameraHoleLow      = 8.0
	DefaultCameraHoleHigh     = 16.0
	DefaultEdgeFillet         = 1.5
	DefaultBendRadius         = 3.0
)

// Params is the flat parameter set of the bracket. Camera hole heights are
// measured from the top of the base plate.
type Params struct {
	Thickness          float64 `yaml:"thickness" json:"thickness"`
	HorizontalWidth    float64 `yaml:"horizontal_width" json:"horizontal_width"`
	HorizontalDepth    float64 `yaml:"horizontal_depth" json:"horizontal_depth"`
	VerticalWidth      float64 `yaml:"vertical_width" json:"vertical_width"`
	VerticalHeight     float64 `yaml:"vertical_height" json:"vertical_height"`
	TripodHoleDiameter float64 `yaml:"tripod_hole_diameter" json:"tripod_hole_diameter"`
	TripodX            float64 `yaml:"tripod_x" json:"tripod_x"`
	TripodY            float64 `yaml:"tripod_y" json:"tripod_y"`
	CameraHoleDiameter float64 `yaml:"camera_hole_diameter" json:"camera_hole_diameter"`
	CameraHoleX        float64 `yaml:"camera_hole_x" json:"camera_hole_x"`
	CameraHoleLow      float64 `yaml:"camera_hole_low" json:"camera_hole_low"`
	CameraHoleHigh     float64 `yaml:"camera_hole_high" json:"camera_hole_high"`
	EdgeFillet         float64 `yaml:"edge_fillet" json:"edge_fillet"`
	BendRadius         float64 `yaml:"bend_radius" json:"bend_radius"`
}

// DefaultParams returns the camera mount as designed.
func DefaultParams() Params {
	return Params{
		Thickness:          DefaultThickness,
		HorizontalWidth:    DefaultHorizontalWidth,
		HorizontalDepth:    DefaultHorizontalDepth,
		VerticalWidth:      DefaultVerticalWidth,
		VerticalHeight:     DefaultVerticalHeight,
		TripodHoleDiameter: DefaultTripodHoleDiameter,
		TripodX:            DefaultTripodX,
		TripodY:            DefaultTripodY,
		CameraHoleDiameter: DefaultCameraHoleDiameter,
		CameraHoleX:        DefaultCameraHoleX,
		CameraHoleLow:      DefaultCameraHoleLow,
		CameraHoleHigh:     DefaultCameraHoleHigh,
		EdgeFillet:         DefaultEdgeFillet,
		BendRadius:         DefaultBendRadius,
	}
}

// CameraHoleZ returns the absolute Z of the lower and upper camera hole rows.
func (p Params) CameraHoleZ() (low, high float64) {
	return p.Thickness + p.CameraHoleLow, p.Thickness + p.CameraHoleHigh
}

// TotalHeight is the overall Z extent of the bracket.
func (p Params) TotalHeight() float64 {
	return p.Thickness + p.VerticalHeight
}

// Validate rejects parameter sets that cannot be built.
func (p Params) Validate() error {
	var errs []error
	positive := []struct {
		name  string
		value float64
	}{
		{"thickness", p.Thickness},
		{"horizontal_width", p.HorizontalWidth},
		{"horizontal_depth", p.HorizontalDepth},
		{"vertical_width", p.VerticalWidth},
		{"vertical_height", p.VerticalHeight},
		{"tripod_hole_diameter", p.TripodHoleDiameter},
		{"camera_hole_diameter", p.CameraHoleDiameter},
	}
	for _, f := range positive {
		if !(f.value > 0) {
			errs = append(errs, fmt.Errorf("%s must be positive, got %g", f.name, f.value))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	if p.EdgeFillet < 0 {
		errs = append(errs, fmt.Errorf("edge_fillet must not be negative, got %g", p.EdgeFillet))
	}
	if p.EdgeFillet > math.Min(p.HorizontalWidth, p.HorizontalDepth)/2 {
		errs = append(errs, fmt.Errorf("edge_fillet %g is larger than half the base plate", p.EdgeFillet))
	}
	if p.BendRadius < 0 {
		errs = append(errs, fmt.Errorf("bend_radius must not be negative, got %g", p.BendRadius))
	}
	if p.BendRadius > p.VerticalHeight || p.BendRadius > p.HorizontalDepth-p.Thickness {
		errs = append(errs, fmt.Errorf("bend_radius %g does not fit between the plates", p.BendRadius))
	}
	if p.VerticalWidth > p.HorizontalWidth {
		errs = append(errs, fmt.Errorf("vertical_width %g exceeds horizontal_width %g", p.VerticalWidth, p.HorizontalWidth))
	}

	margin := p.Thickness / 2
	r := p.TripodHoleDiameter / 2
	if math.Abs(p.TripodX)+r+margin > p.HorizontalWidth/2 ||
		p.TripodY-r-margin < -p.HorizontalDepth/2+p.Thickness ||
		p.TripodY+r+margin > p.HorizontalDepth/2 {
		errs = append(errs, fmt.Errorf("tripod hole at (%g, %g) does not fit in the base plate", p.TripodX, p.TripodY))
	}

	rc := p.CameraHoleDiameter / 2
	if math.Abs(p.CameraHoleX)+rc+margin > p.VerticalWidth/2 {
		errs = append(errs, fmt.Errorf("camera holes at x=±%g do not fit in the rear plate", p.CameraHoleX))
	}
	if p.CameraHoleLow-rc-margin < 0 || p.CameraHoleHigh+rc+margin > p.VerticalHeight {
		errs = append(errs, fmt.Errorf("camera hole rows %g and %g do not fit in the rear plate", p.CameraHoleLow, p.CameraHoleHigh))
	}
	if p.CameraHoleLow-rc < p.BendRadius {
		errs = append(errs, fmt.Errorf("lower camera holes at %g run into the bend fillet", p.CameraHoleLow))
	}
	if p.CameraHoleHigh-p.CameraHoleLow < 2*rc {
		errs = append(errs, errors.New("camera hole rows overlap"))
	}
	return errors.Join(errs...)
}

// Load reads a YAML parameter file. Missing keys keep their defaults.
func Load(path string) (Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Params{}, fmt.Errorf("failed to read parameter file: %w", err)
	}
	p := DefaultParams()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return Params{}, fmt.Errorf("failed to parse parameter file %s: %w", path, err)
	}
	return p, nil
}

// YAML encodes the parameters with two-space indentation.
func (p Params) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Apply sets parameters from a map keyed by YAML names. Unknown keys are an
// error.
func (p *Params) Apply(values map[string]float64) error {
	fields := p.fields()
	for k, v := range values {
		f, ok := fields[k]
		if !ok {
			return fmt.Errorf("unknown bracket parameter %q", k)
		}
		*f = v
	}
	return nil
}

// Map returns the parameters keyed by YAML names.
func (p Params) Map() map[string]float64 {
	out := make(map[string]float64)
	for k, f := range p.fields() {
		out[k] = *f
	}
	return out
}

// Names returns the YAML parameter names in declaration order.
func Names() []string {
	return []string{
		"thickness", "horizontal_width", "horizontal_depth", "vertical_width",
		"vertical_height", "tripod_hole_diameter", "tripod_x", "tripod_y",
		"camera_hole_diameter", "camera_hole_x", "camera_hole_low",
		"camera_hole_high", "edge_fillet", "bend_radius",
	}
}

func (p *Params) fields() map[string]*float64 {
	return map[string]*float64{
		"thickness":            &p.Thickness,
		"horizontal_width":     &p.HorizontalWidth,
		"horizontal_depth":     &p.HorizontalDepth,
		"vertical_width":       &p.VerticalWidth,
		"vertical_height":      &p.VerticalHeight,
		"tripod_hole_diameter": &p.TripodHoleDiameter,
		"tripod_x":             &p.TripodX,
		"tripod_y":             &p.TripodY,
		"camera_hole_diameter": &p.CameraHoleDiameter,
		"camera_hole_x":        &p.CameraHoleX,
		"camera_hole_low":      &p.CameraHoleLow,
		"camera_hole_high":     &p.CameraHoleHigh,
		"edge_fillet":          &p.EdgeFillet,
		"bend_radius":          &p.BendRadius,
	}
}
