// Package export writes every output format of a solid concurrently.
package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/bracket"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/drawing"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/dxf"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/geom"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/raster"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/scad"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/step"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/stl"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/svg"
)

// Artifact formats.
const (
	FormatSTEP = "step"
	FormatSTL  = "stl"
	FormatDXF  = "dxf"
	FormatSVG  = "svg"
	FormatSCAD = "scad"
	FormatPNG  = "png"
)

// DefaultSegments is the number of chords per full turn used for meshes.
const DefaultSegments = 48

// Section is a named cut exported as a DXF/SVG pair.
type Section struct {
	Name   string  `json:"name" koanf:"name"`
	Plane  string  `json:"plane" koanf:"plane"`
	Height float64 `json:"height" koanf:"height"`
}

// SectionName gives the default name of a cut, such as "xz_m24" or
// "xy_1p5".
func SectionName(plane string, height float64) string {
	h := strconv.FormatFloat(height, 'f', -1, 64)
	h = strings.NewReplacer("-", "m", ".", "p").Replace(h)
	return strings.ToLower(plane) + "_" + h
}

// Options control an export run.
type Options struct {
	Dir    string
	Prefix string
	// Sections are exported as {prefix}_{name}.dxf and .svg. The first one
	// is normally the top view.
	Sections    []Section
	Segments    int
	BinarySTL   bool
	Author      string
	SVG         svg.Options
	Projections bool
	// Previews rasterizes every section SVG to PNG.
	Previews     bool
	PreviewWidth int
	// Jobs limits concurrent writers. Zero means no limit.
	Jobs   int
	Logger *slog.Logger
}

// DefaultOptions returns the options for a bracket built from p: a top
// section through the middle of the base plate.
func DefaultOptions(dir string, p bracket.Params) Options {
	return Options{
		Dir:    dir,
		Prefix: bracket.SolidName,
		Sections: []Section{{
			Name:   "top",
			Plane:  geom.PlaneXY,
			Height: p.Thickness / 2,
		}},
		Segments:     DefaultSegments,
		SVG:          svg.DefaultOptions(),
		PreviewWidth: 600,
	}
}

// Artifact is the outcome of writing one file.
type Artifact struct {
	Format string `json:"format"`
	Name   string `json:"name"`
	Path   string `json:"path"`
	Bytes  int64  `json:"bytes"`
	Err    error  `json:"-"`
}

// OK reports whether the file was written.
func (a Artifact) OK() bool { return a.Err == nil }

// Error returns the failure message or an empty string.
func (a Artifact) Error() string {
	if a.Err == nil {
		return ""
	}
	return a.Err.Error()
}

// Failed returns the artifacts that were not written.
func Failed(artifacts []Artifact) []Artifact {
	var out []Artifact
	for _, a := range artifacts {
		if !a.OK() {
			out = append(out, a)
		}
	}
	return out
}

type job struct {
	format string
	name   string
	path   string
	write  func() error
	// after runs on success, in the same goroutine, for outputs derived
	// from this one.
	after *job
}

// Run writes the solid in every format. A failing format is logged and
// reported in its artifact; the other formats still complete. The returned
// error is only for failures that prevent any export.
func Run(ctx context.Context, s *geom.Solid, opts Options) ([]Artifact, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Prefix == "" {
		opts.Prefix = s.Name
	}
	if opts.Segments == 0 {
		opts.Segments = DefaultSegments
	}
	if opts.SVG.Width == 0 {
		opts.SVG = svg.DefaultOptions()
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	jobs := plan(s, opts)
	artifacts := make([]Artifact, 0, len(jobs)*2)
	slots := make([][]Artifact, len(jobs))

	eg, egctx := errgroup.WithContext(ctx)
	if opts.Jobs > 0 {
		eg.SetLimit(opts.Jobs)
	}
	for i, j := range jobs {
		eg.Go(func() error {
			for cur := j; cur != nil; cur = cur.after {
				a := execute(egctx, cur, logger)
				slots[i] = append(slots[i], a)
				if !a.OK() {
					for skipped := cur.after; skipped != nil; skipped = skipped.after {
						slots[i] = append(slots[i], Artifact{
							Format: skipped.format, Name: skipped.name, Path: skipped.path,
							Err: fmt.Errorf("skipped: %s %s failed", cur.name, cur.format),
						})
					}
					break
				}
			}
			return nil
		})
	}
	_ = eg.Wait()

	for _, slot := range slots {
		artifacts = append(artifacts, slot...)
	}
	return artifacts, nil
}

func execute(ctx context.Context, j *job, logger *slog.Logger) Artifact {
	a := Artifact{Format: j.format, Name: j.name, Path: j.path}
	if err := ctx.Err(); err != nil {
		a.Err = err
		return a
	}
	if err := j.write(); err != nil {
		a.Err = err
		logger.Warn("export failed", "format", j.format, "path", j.path, "error", err)
		return a
	}
	if info, err := os.Stat(j.path); err == nil {
		a.Bytes = info.Size()
	}
	logger.Info("exported", "format", j.format, "path", j.path, "bytes", a.Bytes)
	return a
}

func plan(s *geom.Solid, opts Options) []*job {
	path := func(suffix string) string { return filepath.Join(opts.Dir, opts.Prefix+suffix) }

	mesh, meshErr := s.Tessellate(opts.Segments)
	needMesh := func(write func(*geom.Mesh) error) func() error {
		return func() error {
			if meshErr != nil {
				return meshErr
			}
			return write(mesh)
		}
	}

	stlPath := path(".stl")
	jobs := []*job{
		{
			format: FormatSTEP, name: opts.Prefix, path: path(".step"),
			write: needMesh(func(m *geom.Mesh) error {
				return step.WriteFile(path(".step"), m, step.Options{Name: opts.Prefix, Author: opts.Author})
			}),
		},
		{
			format: FormatSTL, name: opts.Prefix, path: stlPath,
			write: needMesh(func(m *geom.Mesh) error {
				return stl.WriteFile(stlPath, m, stl.Options{Binary: opts.BinarySTL, Name: opts.Prefix})
			}),
		},
		{
			format: FormatSCAD, name: opts.Prefix, path: path(".scad"),
			write: func() error {
				return scad.WriteFile(path(".scad"), scad.ImportSource(filepath.Base(stlPath)))
			},
		},
	}

	if opts.Projections {
		for _, src := range scad.Projections(filepath.Base(stlPath)) {
			p := path("_2d_" + src.Name + ".scad")
			jobs = append(jobs, &job{
				format: FormatSCAD, name: src.Name, path: p,
				write: func() error { return scad.WriteFile(p, src) },
			})
		}
	}

	for _, sec := range opts.Sections {
		jobs = append(jobs, sectionJobs(s, sec, path, opts)...)
	}
	return jobs
}

// sectionJobs returns the DXF job and the SVG job, the latter chained to its
// PNG preview. Both cut the solid themselves so they run independently.
func sectionJobs(s *geom.Solid, sec Section, path func(string) string, opts Options) []*job {
	cut := func() (*drawing.Drawing, error) {
		plane, err := geom.NamedPlane(sec.Plane, sec.Height)
		if err != nil {
			return nil, err
		}
		d, err := s.Section(plane)
		if err != nil {
			return nil, fmt.Errorf("failed to cut %s section: %w", sec.Name, err)
		}
		return d, nil
	}

	suffix := "_" + strings.ToLower(sec.Name)
	dxfPath, svgPath := path(suffix+".dxf"), path(suffix+".svg")

	svgJob := &job{
		format: FormatSVG, name: sec.Name, path: svgPath,
		write: func() error {
			d, err := cut()
			if err != nil {
				return err
			}
			return svg.WriteFile(svgPath, d, opts.SVG)
		},
	}
	if opts.Previews {
		pngPath := path(suffix + ".png")
		svgJob.after = &job{
			format: FormatPNG, name: sec.Name, path: pngPath,
			write: func() error { return raster.RenderFile(svgPath, pngPath, opts.PreviewWidth, 0) },
		}
	}

	return []*job{
		{
			format: FormatDXF, name: sec.Name, path: dxfPath,
			write: func() error {
				d, err := cut()
				if err != nil {
					return err
				}
				return dxf.WriteFile(dxfPath, d, dxf.DefaultWriteOptions())
			},
		},
		svgJob,
	}
}
