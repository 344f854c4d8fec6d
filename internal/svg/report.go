package svg

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/report"
)

// Report is the analysis of one SVG file.
type Report struct {
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
	Total     int    `json:"total_elements"`
	*Document
}

// Analyze parses the file at path and builds its report. A missing or
// malformed file returns an error and no report.
func Analyze(path string) (*Report, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read SVG file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("failed to read SVG file: %s is a directory", path)
	}
	doc, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	return &Report{Path: path, SizeBytes: info.Size(), Total: doc.Total(), Document: doc}, nil
}

func short(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// Layout lays the report out for printing.
func (r *Report) Layout() *report.Document {
	doc := report.New("SVG report: "+filepath.Base(r.Path), "[DONE] SVG analysis complete")

	info := doc.Add("File information").
		Field("Path", "%s", r.Path).
		Field("Size", "%s", report.SizeKB(r.SizeBytes))
	if r.Width != nil && r.Height != nil {
		info.Field("Width x height", "%s x %s", short(*r.Width), short(*r.Height))
	}

	if vb := r.ViewBox; vb != nil {
		doc.Add("viewBox").
			Field("Min (X, Y)", "(%.2f, %.2f)", vb.MinX, vb.MinY).
			Field("Width x height", "%.2f x %.2f", vb.Width, vb.Height)
	}

	stats := doc.Add("Element statistics").Field("Total elements", "%d", r.Total)
	stats.Table = report.CountTable("Element", r.Counts)

	details := doc.Add("Element details")
	details.Detail("path", mapItems(r.Paths, func(p PathRecord) string {
		s := fmt.Sprintf("commands %d", p.CommandCount)
		if p.ID != "" {
			s += fmt.Sprintf(", id='%s'", p.ID)
		}
		return s
	}))
	details.Detail("circle", mapItems(r.Circles, func(c CircleRecord) string {
		return fmt.Sprintf("center (%.2f, %.2f), radius %.2f, diameter %.2f", c.CX, c.CY, c.R, c.Diameter)
	}))
	details.Detail("rect", mapItems(r.Rects, func(rc RectRecord) string {
		return fmt.Sprintf("at (%.2f, %.2f), size %.2f x %.2f", rc.X, rc.Y, rc.Width, rc.Height)
	}))
	details.Detail("line", mapItems(r.Lines, func(l LineRecord) string {
		return fmt.Sprintf("(%.2f, %.2f) → (%.2f, %.2f), length %.2f", l.X1, l.Y1, l.X2, l.Y2, l.Length)
	}))
	details.Detail("text", mapItems(r.Texts, func(t TextRecord) string {
		return fmt.Sprintf("at (%.2f, %.2f), text '%s'", t.X, t.Y, t.Text)
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
