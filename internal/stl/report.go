package stl

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/geom"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/report"
)

// Report is the analysis of one STL file.
type Report struct {
	Path      string    `json:"path"`
	SizeBytes int64     `json:"size_bytes"`
	Name      string    `json:"name"`
	Encoding  string    `json:"encoding"`
	Triangles int       `json:"triangles"`
	Min       geom.Vec3 `json:"min"`
	Max       geom.Vec3 `json:"max"`
	Size      geom.Vec3 `json:"size"`
	Area      float64   `json:"surface_area"`
	Volume    float64   `json:"volume"`
}

// Analyze parses the file at path and builds its report.
func Analyze(path string) (*Report, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read STL file: %w", err)
	}
	doc, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	m := doc.Mesh
	bb := m.BoundingBox()
	r := &Report{
		Path:      path,
		SizeBytes: info.Size(),
		Name:      doc.Name,
		Encoding:  doc.Encoding,
		Triangles: len(m.Triangles),
		Area:      m.Area(),
		Volume:    m.Volume(),
	}
	if !bb.IsEmpty() {
		r.Min, r.Max, r.Size = bb.Min, bb.Max, bb.Size()
	}
	return r, nil
}

// Layout lays the report out for printing.
func (r *Report) Layout() *report.Document {
	doc := report.New("STL report: "+filepath.Base(r.Path), "[DONE] STL analysis complete")
	doc.Add("File information").
		Field("Path", "%s", r.Path).
		Field("Size", "%s", report.SizeKB(r.SizeBytes)).
		Field("Encoding", "%s", r.Encoding).
		Field("Solid name", "%s", r.Name)
	doc.Add("Mesh").
		Field("Triangles", "%d", r.Triangles).
		Field("Surface area", "%.2f mm²", r.Area).
		Field("Volume", "%.2f mm³", r.Volume)
	doc.Add("Bounding box").
		Field("Min (X, Y, Z)", "(%.2f, %.2f, %.2f)", r.Min.X, r.Min.Y, r.Min.Z).
		Field("Max (X, Y, Z)", "(%.2f, %.2f, %.2f)", r.Max.X, r.Max.Y, r.Max.Z).
		Field("Size", "%.2f x %.2f x %.2f", r.Size.X, r.Size.Y, r.Size.Z)
	return doc
}
