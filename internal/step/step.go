// Package step writes triangle meshes as ISO 10303-21 (STEP AP214) faceted
// boundary representations and reads enough of them back to check what was
// written.
package step

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/geom"
)

// Schema is the AP214 schema identifier written to FILE_SCHEMA.
const Schema = "AUTOMOTIVE_DESIGN { 1 0 10303 214 1 1 1 1 }"

// mergeGrid is the spacing vertices are snapped to before merging.
const mergeGrid = 1e-6

// Options control the STEP header.
type Options struct {
	Name   string
	Author string
	// Time stamps FILE_NAME. Zero means now.
	Time time.Time
}

// WriteFile writes the mesh to path, creating parent directories.
func WriteFile(path string, m *geom.Mesh, opts Options) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create STEP file: %w", err)
	}
	if opts.Name == "" {
		opts.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := Write(f, m, opts); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Write encodes the mesh as a FACETED_BREP with one POLY_LOOP face per
// triangle. Vertices shared between triangles are written once; triangles
// that collapse after merging are dropped.
func Write(w io.Writer, m *geom.Mesh, opts Options) error {
	name := opts.Name
	if name == "" {
		name = m.Name
	}
	stamp := opts.Time
	if stamp.IsZero() {
		stamp = time.Now()
	}

	e := &encoder{w: bufio.NewWriter(w)}
	e.header(name, opts.Author, stamp)
	e.data(name, m)
	if e.err == nil {
		e.err = e.w.Flush()
	}
	if e.err != nil {
		return fmt.Errorf("failed to write STEP: %w", e.err)
	}
	return nil
}

type encoder struct {
	w    *bufio.Writer
	next int
	err  error
}

func (e *encoder) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

// entity writes one instance and returns its reference.
func (e *encoder) entity(format string, args ...any) string {
	e.next++
	ref := "#" + strconv.Itoa(e.next)
	e.printf("%s=%s;\n", ref, fmt.Sprintf(format, args...))
	return ref
}

func (e *encoder) header(name, author string, stamp time.Time) {
	e.printf("ISO-10303-21;\nHEADER;\n")
	e.printf("FILE_DESCRIPTION(('faceted solid model'),'2;1');\n")
	e.printf("FILE_NAME(%s,%s,(%s),(''),'cadsandbox','cadsandbox','');\n",
		str(name+".step"), str(stamp.UTC().Format("2006-01-02T15:04:05")), str(author))
	e.printf("FILE_SCHEMA((%s));\nENDSEC;\n", str(Schema))
}

func (e *encoder) data(name string, m *geom.Mesh) {
	e.printf("DATA;\n")

	app := e.entity("APPLICATION_CONTEXT('automotive design')")
	e.entity("APPLICATION_PROTOCOL_DEFINITION('international standard','automotive_design',2000,%s)", app)
	pctx := e.entity("PRODUCT_CONTEXT('',%s,'mechanical')", app)
	prod := e.entity("PRODUCT(%s,%s,'',(%s))", str(name), str(name), pctx)
	form := e.entity("PRODUCT_DEFINITION_FORMATION('','',%s)", prod)
	dctx := e.entity("PRODUCT_DEFINITION_CONTEXT('part definition',%s,'design')", app)
	pdef := e.entity("PRODUCT_DEFINITION('design','',%s,%s)", form, dctx)
	shape := e.entity("PRODUCT_DEFINITION_SHAPE('','',%s)", pdef)

	length := e.entity("(LENGTH_UNIT()NAMED_UNIT(*)SI_UNIT(.MILLI.,.METRE.))")
	angle := e.entity("(NAMED_UNIT(*)PLANE_ANGLE_UNIT()SI_UNIT($,.RADIAN.))")
	solid := e.entity("(NAMED_UNIT(*)SI_UNIT($,.STERADIAN.)SOLID_ANGLE_UNIT())")
	unc := e.entity("UNCERTAINTY_MEASURE_WITH_UNIT(LENGTH_MEASURE(1.E-06),%s,'distance_accuracy_value','confusion accuracy')", length)
	ctx := e.entity("(GEOMETRIC_REPRESENTATION_CONTEXT(3)GLOBAL_UNCERTAINTY_ASSIGNED_CONTEXT((%s))"+
		"GLOBAL_UNIT_ASSIGNED_CONTEXT((%s,%s,%s))REPRESENTATION_CONTEXT('',''))", unc, length, angle, solid)

	origin := e.entity("CARTESIAN_POINT('',(0.,0.,0.))")
	axis := e.entity("DIRECTION('',(0.,0.,1.))")
	ref := e.entity("DIRECTION('',(1.,0.,0.))")
	placement := e.entity("AXIS2_PLACEMENT_3D('',%s,%s,%s)", origin, axis, ref)

	verts, tris := Merge(m)
	points := make([]string, len(verts))
	for i, v := range verts {
		points[i] = e.entity("CARTESIAN_POINT('',(%s,%s,%s))", num(v.X), num(v.Y), num(v.Z))
	}
	faces := make([]string, 0, len(tris))
	for _, t := range tris {
		loop := e.entity("POLY_LOOP('',(%s,%s,%s))", points[t[0]], points[t[1]], points[t[2]])
		bound := e.entity("FACE_OUTER_BOUND('',%s,.T.)", loop)
		faces = append(faces, e.entity("FACE('',(%s))", bound))
	}
	shell := e.entity("CLOSED_SHELL('',(%s))", strings.Join(faces, ","))
	brep := e.entity("FACETED_BREP(%s,%s)", str(name), shell)
	rep := e.entity("FACETED_BREP_SHAPE_REPRESENTATION(%s,(%s,%s),%s)", str(name), placement, brep, ctx)
	e.entity("SHAPE_DEFINITION_REPRESENTATION(%s,%s)", shape, rep)

	e.printf("ENDSEC;\nEND-ISO-10303-21;\n")
}

// Merge returns the distinct vertices of the mesh and its triangles as
// vertex indices. Vertices closer than the merge grid share an index.
func Merge(m *geom.Mesh) ([]geom.Vec3, [][3]int) {
	index := make(map[[3]int64]int)
	var verts []geom.Vec3
	lookup := func(v geom.Vec3) int {
		key := [3]int64{snap(v.X), snap(v.Y), snap(v.Z)}
		if i, ok := index[key]; ok {
			return i
		}
		index[key] = len(verts)
		verts = append(verts, v)
		return len(verts) - 1
	}

	tris := make([][3]int, 0, len(m.Triangles))
	for _, t := range m.Triangles {
		a, b, c := lookup(t.A), lookup(t.B), lookup(t.C)
		if a == b || b == c || a == c {
			continue
		}
		tris = append(tris, [3]int{a, b, c})
	}
	return verts, tris
}

func snap(v float64) int64 { return int64(math.Round(v / mergeGrid)) }

// num formats a REAL with the decimal point STEP requires.
func num(v float64) string {
	s := strconv.FormatFloat(v, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	if s == "-0." {
		s = "0."
	}
	return s
}

// str quotes a STRING, doubling embedded apostrophes.
func str(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
