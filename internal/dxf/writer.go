package dxf

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/drawing"
)

// DXF versions written by Write.
const (
	VersionR12   = "AC1009"
	VersionR2000 = "AC1015"
)

// UnitsMillimetres is the $INSUNITS code for millimetres.
const UnitsMillimetres = 4

// WriteOptions control the header of a written file.
type WriteOptions struct {
	// Version is the $ACADVER value. Empty selects R12, or R2000 when the
	// drawing holds polylines, since LWPOLYLINE does not exist in R12.
	Version string
	Units   int
}

// DefaultWriteOptions returns millimetre units with automatic versioning.
func DefaultWriteOptions() WriteOptions {
	return WriteOptions{Units: UnitsMillimetres}
}

// WriteFile writes the drawing to path, creating parent directories.
func WriteFile(path string, d *drawing.Drawing, opts WriteOptions) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create DXF file: %w", err)
	}
	if err := Write(f, d, opts); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Write encodes the drawing as an ASCII DXF stream.
func Write(w io.Writer, d *drawing.Drawing, opts WriteOptions) error {
	version := opts.Version
	if version == "" {
		version = VersionR12
		if len(d.Polylines()) > 0 {
			version = VersionR2000
		}
	}

	pw := NewWriter(w)
	writeHeader(pw, d, version, opts.Units)
	writeLayers(pw, d)

	pw.Pair(0, "SECTION")
	pw.Pair(2, "ENTITIES")
	for _, e := range d.Entities {
		if err := writeEntity(pw, e); err != nil {
			return err
		}
	}
	pw.Pair(0, "ENDSEC")
	pw.Pair(0, "EOF")

	if err := pw.Flush(); err != nil {
		return fmt.Errorf("failed to write DXF: %w", err)
	}
	return nil
}

func writeHeader(pw *Writer, d *drawing.Drawing, version string, units int) {
	pw.Pair(0, "SECTION")
	pw.Pair(2, "HEADER")
	pw.Pair(9, "$ACADVER")
	pw.Pair(1, version)
	pw.Pair(9, "$INSUNITS")
	pw.Int(70, units)

	b := d.Bounds()
	if !b.IsEmpty() {
		pw.Pair(9, "$EXTMIN")
		pw.Point(10, b.Min.X, b.Min.Y, 0)
		pw.Pair(9, "$EXTMAX")
		pw.Point(10, b.Max.X, b.Max.Y, 0)
	}
	pw.Pair(0, "ENDSEC")
}

func writeLayers(pw *Writer, d *drawing.Drawing) {
	layers := []string{drawing.DefaultLayer}
	for _, l := range d.Layers() {
		if l != drawing.DefaultLayer {
			layers = append(layers, l)
		}
	}

	pw.Pair(0, "SECTION")
	pw.Pair(2, "TABLES")
	pw.Pair(0, "TABLE")
	pw.Pair(2, "LAYER")
	pw.Int(70, len(layers))
	for i, l := range layers {
		pw.Pair(0, "LAYER")
		pw.Pair(2, l)
		pw.Int(70, 0)
		pw.Int(62, layerColor(i))
		pw.Pair(6, "CONTINUOUS")
	}
	pw.Pair(0, "ENDTAB")
	pw.Pair(0, "ENDSEC")
}

// layerColor cycles through the ACI colours 7, 1 (red), 3 (green), 5 (blue)
// and 2 (yellow).
func layerColor(i int) int {
	palette := []int{7, 1, 3, 5, 2}
	return palette[i%len(palette)]
}

func writeEntity(pw *Writer, e drawing.Entity) error {
	pw.Pair(0, e.Kind())
	pw.Pair(8, e.LayerName())

	switch v := e.(type) {
	case drawing.Line:
		pw.Point(10, v.Start.X, v.Start.Y, 0)
		pw.Point(11, v.End.X, v.End.Y, 0)
	case drawing.Circle:
		pw.Point(10, v.Center.X, v.Center.Y, 0)
		pw.Float(40, v.Radius)
	case drawing.Arc:
		pw.Point(10, v.Center.X, v.Center.Y, 0)
		pw.Float(40, v.Radius)
		pw.Float(50, v.StartAngle)
		pw.Float(51, v.EndAngle)
	case drawing.Polyline:
		pw.Int(90, len(v.Points))
		flags := 0
		if v.Closed {
			flags = 1
		}
		pw.Int(70, flags)
		for _, p := range v.Points {
			pw.Float(10, p.X)
			pw.Float(20, p.Y)
		}
	case drawing.Dimension:
		pw.Point(10, v.DefPoint.X, v.DefPoint.Y, 0)
		pw.Pair(1, v.Text)
		pw.Int(70, v.DimType)
		pw.Float(42, v.Measurement)
		pw.Point(13, v.First.X, v.First.Y, 0)
		pw.Point(14, v.Second.X, v.Second.Y, 0)
	case drawing.Text:
		pw.Point(10, v.Insert.X, v.Insert.Y, 0)
		pw.Float(40, v.Height)
		pw.Pair(1, v.Value)
	default:
		return fmt.Errorf("cannot write %s entity to DXF", e.Kind())
	}
	return nil
}
