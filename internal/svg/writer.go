// Package svg writes drawings as SVG section views and parses SVG files back
// into element records for reports.
package svg

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/drawing"
)

// Namespace is the SVG XML namespace.
const Namespace = "http://www.w3.org/2000/svg"

// Options control the viewport of a written SVG.
type Options struct {
	Width       float64
	Height      float64
	Margin      float64
	StrokeWidth float64
	// ShowHidden draws hole outlines dashed, the way hidden edges are shown
	// in projections.
	ShowHidden bool
}

// DefaultOptions returns a 300 x 300 viewport with a 10 unit margin.
func DefaultOptions() Options {
	return Options{Width: 300, Height: 300, Margin: 10, StrokeWidth: 0.25}
}

// transform maps drawing coordinates into the viewport: uniform scale,
// centred, with Y pointing up.
type transform struct {
	scale  float64
	dx, dy float64
	height float64
}

func newTransform(b drawing.Box, opts Options) transform {
	availW := opts.Width - 2*opts.Margin
	availH := opts.Height - 2*opts.Margin
	bw, bh := b.Width(), b.Height()

	scale := 1.0
	switch {
	case bw > 0 && bh > 0:
		scale = math.Min(availW/bw, availH/bh)
	case bw > 0:
		scale = availW / bw
	case bh > 0:
		scale = availH / bh
	}

	t := transform{scale: scale, height: opts.Height}
	t.dx = opts.Margin + (availW-bw*scale)/2 - b.Min.X*scale
	t.dy = opts.Margin + (availH-bh*scale)/2 - b.Min.Y*scale
	return t
}

func (t transform) pt(p drawing.Point) (float64, float64) {
	return p.X*t.scale + t.dx, t.height - (p.Y*t.scale + t.dy)
}

func num(v float64) string {
	if math.Abs(v) < 5e-5 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func fixed(v float64) string {
	return num(math.Round(v*1e4) / 1e4)
}

// WriteFile writes the drawing to path, creating parent directories.
func WriteFile(path string, d *drawing.Drawing, opts Options) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create SVG file: %w", err)
	}
	if err := Write(f, d, opts); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Write encodes the drawing as an SVG document. Entities are grouped per
// layer.
func Write(w io.Writer, d *drawing.Drawing, opts Options) error {
	if opts.Width <= 0 || opts.Height <= 0 {
		return fmt.Errorf("invalid SVG size %gx%g", opts.Width, opts.Height)
	}
	if 2*opts.Margin >= math.Min(opts.Width, opts.Height) {
		return fmt.Errorf("margin %g leaves no room in a %gx%g viewport", opts.Margin, opts.Width, opts.Height)
	}

	b := d.Bounds()
	if b.IsEmpty() {
		b = drawing.Box{}
	}
	t := newTransform(b, opts)

	bw := bufio.NewWriter(w)
	_, _ = fmt.Fprintf(bw, "<?xml version=\"1.0\" encoding=\"UTF-8\" standalone=\"no\"?>\n")
	_, _ = fmt.Fprintf(bw, "<svg xmlns=\"%s\" width=\"%s\" height=\"%s\" viewBox=\"0 0 %s %s\">\n",
		Namespace, num(opts.Width), num(opts.Height), num(opts.Width), num(opts.Height))

	for _, layer := range d.Layers() {
		_, _ = fmt.Fprintf(bw, "  <g id=\"%s\" class=\"layer\" stroke=\"black\" fill=\"none\" stroke-width=\"%s\">\n",
			escape("layer-"+layer), num(opts.StrokeWidth))
		for _, e := range d.Entities {
			if e.LayerName() != layer {
				continue
			}
			el, err := element(e, t, opts)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(bw, "    %s\n", el)
		}
		_, _ = fmt.Fprintln(bw, "  </g>")
	}
	_, _ = fmt.Fprintln(bw, "</svg>")

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write SVG: %w", err)
	}
	return nil
}

func element(e drawing.Entity, t transform, opts Options) (string, error) {
	switch v := e.(type) {
	case drawing.Line:
		x1, y1 := t.pt(v.Start)
		x2, y2 := t.pt(v.End)
		return fmt.Sprintf(`<line x1="%s" y1="%s" x2="%s" y2="%s"/>`, fixed(x1), fixed(y1), fixed(x2), fixed(y2)), nil
	case drawing.Circle:
		cx, cy := t.pt(v.Center)
		dash := ""
		if opts.ShowHidden {
			dash = ` stroke-dasharray="1,1"`
		}
		return fmt.Sprintf(`<circle cx="%s" cy="%s" r="%s"%s/>`, fixed(cx), fixed(cy), fixed(v.Radius*t.scale), dash), nil
	case drawing.Arc:
		return fmt.Sprintf(`<path d="%s"/>`, arcPath(v, t)), nil
	case drawing.Polyline:
		if len(v.Points) == 0 {
			return "", fmt.Errorf("cannot write an empty polyline")
		}
		var sb strings.Builder
		for i, p := range v.Points {
			x, y := t.pt(p)
			cmd := "L"
			if i == 0 {
				cmd = "M"
			}
			fmt.Fprintf(&sb, "%s %s %s ", cmd, fixed(x), fixed(y))
		}
		if v.Closed {
			sb.WriteString("Z")
		}
		return fmt.Sprintf(`<path d="%s"/>`, strings.TrimSpace(sb.String())), nil
	case drawing.Text:
		x, y := t.pt(v.Insert)
		return fmt.Sprintf(`<text x="%s" y="%s" font-size="%s" fill="black" stroke="none">%s</text>`,
			fixed(x), fixed(y), fixed(v.Height*t.scale), escape(v.Value)), nil
	case drawing.Dimension:
		x, y := t.pt(v.DefPoint)
		label := v.Text
		if label == "" || label == "<>" {
			label = strconv.FormatFloat(v.Measurement, 'f', 2, 64)
		}
		return fmt.Sprintf(`<text x="%s" y="%s" class="dimension" fill="black" stroke="none">%s</text>`,
			fixed(x), fixed(y), escape(label)), nil
	}
	return "", fmt.Errorf("cannot write %s entity to SVG", e.Kind())
}

// arcPath draws a counter-clockwise drawing arc. With Y flipped it becomes
// a counter-clockwise screen arc, which is SVG sweep flag 0. Full circles
// are split into two halves.
func arcPath(a drawing.Arc, t transform) string {
	span := a.Span()
	r := fixed(a.Radius * t.scale)
	sx, sy := t.pt(a.StartPoint())

	if span >= 360-1e-9 {
		mx, my := t.pt(a.PointAt(a.StartAngle + 180))
		return fmt.Sprintf("M %s %s A %s %s 0 1 0 %s %s A %s %s 0 1 0 %s %s",
			fixed(sx), fixed(sy), r, r, fixed(mx), fixed(my), r, r, fixed(sx), fixed(sy))
	}
	ex, ey := t.pt(a.EndPoint())
	large := 0
	if span > 180 {
		large = 1
	}
	return fmt.Sprintf("M %s %s A %s %s 0 %d 0 %s %s", fixed(sx), fixed(sy), r, r, large, fixed(ex), fixed(ey))
}

func escape(s string) string {
	var sb strings.Builder
	_ = xml.EscapeText(&sb, []byte(s))
	return sb.String()
}
