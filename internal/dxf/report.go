package dxf

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/drawing"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/report"
)

// BBox is the extent of a drawing.
type BBox struct {
	Min    drawing.Point `json:"min"`
	Max    drawing.Point `json:"max"`
	Width  float64       `json:"width"`
	Height float64       `json:"height"`
}

// LineRecord describes a LINE entity.
type LineRecord struct {
	Start  drawing.Point `json:"start"`
	End    drawing.Point `json:"end"`
	Length float64       `json:"length"`
	Layer  string        `json:"layer"`
}

// CircleRecord describes a CIRCLE entity.
type CircleRecord struct {
	Center   drawing.Point `json:"center"`
	Radius   float64       `json:"radius"`
	Diameter float64       `json:"diameter"`
	Layer    string        `json:"layer"`
}

// ArcRecord describes an ARC entity. Angles are degrees.
type ArcRecord struct {
	Center     drawing.Point `json:"center"`
	Radius     float64       `json:"radius"`
	StartAngle float64       `json:"start_angle"`
	EndAngle   float64       `json:"end_angle"`
	Layer      string        `json:"layer"`
}

// PolylineRecord describes an LWPOLYLINE entity.
type PolylineRecord struct {
	Points      []drawing.Point `json:"points"`
	Closed      bool            `json:"is_closed"`
	VertexCount int             `json:"vertex_count"`
	Layer       string          `json:"layer"`
}

// DimensionRecord describes a DIMENSION entity.
type DimensionRecord struct {
	Type        string        `json:"type"`
	Measurement float64       `json:"measurement"`
	Text        string        `json:"text"`
	DefPoint    drawing.Point `json:"defpoint"`
	Layer       string        `json:"layer"`
}

// TextRecord describes a TEXT entity.
type TextRecord struct {
	Insert drawing.Point `json:"insert"`
	Height float64       `json:"height"`
	Text   string        `json:"text"`
	Layer  string        `json:"layer"`
}

// Report is the analysis of one DXF file.
type Report struct {
	Path       string            `json:"path"`
	SizeBytes  int64             `json:"size_bytes"`
	Version    string            `json:"version"`
	Units      int               `json:"units"`
	Total      int               `json:"total_entities"`
	Counts     map[string]int    `json:"entity_types"`
	Layers     []string          `json:"layers"`
	BBox       *BBox             `json:"bbox,omitempty"`
	Lines      []LineRecord      `json:"lines"`
	Circles    []CircleRecord    `json:"circles"`
	Arcs       []ArcRecord       `json:"arcs"`
	Polylines  []PolylineRecord  `json:"polylines"`
	Dimensions []DimensionRecord `json:"dimensions"`
	Texts      []TextRecord      `json:"texts"`
}

// Analyze parses the file at path and builds its report. A missing or
// malformed file returns an error and no report.
func Analyze(path string) (*Report, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read DXF file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("failed to read DXF file: %s is a directory", path)
	}
	doc, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	return NewReport(path, info.Size(), doc), nil
}

// NewReport builds the report for a parsed document.
func NewReport(path string, size int64, doc *Document) *Report {
	d := doc.Drawing
	r := &Report{
		Path:      path,
		SizeBytes: size,
		Version:   doc.Version,
		Units:     doc.Units,
		Total:     doc.Total(),
		Counts:    doc.Counts,
		Layers:    d.Layers(),
	}
	if b := d.Bounds(); !b.IsEmpty() {
		r.BBox = &BBox{Min: b.Min, Max: b.Max, Width: b.Width(), Height: b.Height()}
	}

	for _, l := range d.Lines() {
		r.Lines = append(r.Lines, LineRecord{Start: l.Start, End: l.End, Length: l.Length(), Layer: l.LayerName()})
	}
	for _, c := range d.Circles() {
		r.Circles = append(r.Circles, CircleRecord{Center: c.Center, Radius: c.Radius, Diameter: c.Diameter(), Layer: c.LayerName()})
	}
	for _, a := range d.Arcs() {
		r.Arcs = append(r.Arcs, ArcRecord{Center: a.Center, Radius: a.Radius, StartAngle: a.StartAngle, EndAngle: a.EndAngle, Layer: a.LayerName()})
	}
	for _, p := range d.Polylines() {
		r.Polylines = append(r.Polylines, PolylineRecord{Points: p.Points, Closed: p.Closed, VertexCount: len(p.Points), Layer: p.LayerName()})
	}
	for _, dim := range d.Dimensions() {
		r.Dimensions = append(r.Dimensions, DimensionRecord{
			Type:        dim.TypeName(),
			Measurement: dim.Measurement,
			Text:        dim.Text,
			DefPoint:    dim.DefPoint,
			Layer:       dim.LayerName(),
		})
	}
	for _, t := range d.Texts() {
		r.Texts = append(r.Texts, TextRecord{Insert: t.Insert, Height: t.Height, Text: t.Value, Layer: t.LayerName()})
	}
	return r
}

func pt(p drawing.Point) string { return fmt.Sprintf("(%.2f, %.2f)", p.X, p.Y) }

// Layout lays the report out for printing.
func (r *Report) Layout() *report.Document {
	doc := report.New("DXF report: "+filepath.Base(r.Path), "[DONE] DXF analysis complete")

	doc.Add("File information").
		Field("Path", "%s", r.Path).
		Field("Size", "%s", report.SizeKB(r.SizeBytes)).
		Field("DXF version", "%s", r.Version)

	stats := doc.Add("Entity statistics").Field("Total entities", "%d", r.Total)
	stats.Table = report.CountTable("Type", r.Counts)

	if r.BBox != nil {
		doc.Add("Bounding box").
			Field("Min (X, Y)", "%s", pt(r.BBox.Min)).
			Field("Max (X, Y)", "%s", pt(r.BBox.Max)).
			Field("Width x height", "%.2f x %.2f", r.BBox.Width, r.BBox.Height)
	}

	details := doc.Add("Entity details")
	details.Detail("LINE", mapItems(r.Lines, func(l LineRecord) string {
		return fmt.Sprintf("start %s, end %s, length %.2f", pt(l.Start), pt(l.End), l.Length)
	}))
	details.Detail("CIRCLE", mapItems(r.Circles, func(c CircleRecord) string {
		return fmt.Sprintf("center %s, radius %.2f, diameter %.2f", pt(c.Center), c.Radius, c.Diameter)
	}))
	details.Detail("ARC", mapItems(r.Arcs, func(a ArcRecord) string {
		return fmt.Sprintf("center %s, radius %.2f, angle %.1f°-%.1f°", pt(a.Center), a.Radius, a.StartAngle, a.EndAngle)
	}))
	details.Detail("LWPOLYLINE", mapItems(r.Polylines, func(p PolylineRecord) string {
		state := "open"
		if p.Closed {
			state = "closed"
		}
		return fmt.Sprintf("vertices %d, %s", p.VertexCount, state)
	}))
	details.Detail("DIMENSION", mapItems(r.Dimensions, func(d DimensionRecord) string {
		return fmt.Sprintf("type %s, measurement %.2f, text '%s'", d.Type, d.Measurement, d.Text)
	}))
	details.Detail("TEXT", mapItems(r.Texts, func(t TextRecord) string {
		return fmt.Sprintf("at %s, height %.2f, '%s'", pt(t.Insert), t.Height, t.Text)
	}))
	return doc
}

func mapItems[T any](records []T, format func(T) string) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, format(r))
	}
	return out
}
