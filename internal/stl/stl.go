// Package stl writes and reads triangle meshes in the ASCII and binary STL
// encodings.
package stl

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/geom"
)

// Encodings.
const (
	EncodingASCII  = "ascii"
	EncodingBinary = "binary"
)

const (
	headerSize = 80
	recordSize = 50
)

// Options control how a mesh is written.
type Options struct {
	Binary bool
	// Name is the solid name for ASCII output and the header text for
	// binary output. It defaults to the mesh name.
	Name string
}

// WriteFile writes the mesh to path, creating parent directories.
func WriteFile(path string, m *geom.Mesh, opts Options) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create STL file: %w", err)
	}
	if err := Write(f, m, opts); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Write encodes the mesh.
func Write(w io.Writer, m *geom.Mesh, opts Options) error {
	name := opts.Name
	if name == "" {
		name = m.Name
	}
	bw := bufio.NewWriter(w)
	var err error
	if opts.Binary {
		err = writeBinary(bw, m, name)
	} else {
		err = writeASCII(bw, m, name)
	}
	if err == nil {
		err = bw.Flush()
	}
	if err != nil {
		return fmt.Errorf("failed to write STL: %w", err)
	}
	return nil
}

func writeASCII(w io.Writer, m *geom.Mesh, name string) error {
	name = strings.Join(strings.Fields(name), "_")
	if _, err := fmt.Fprintf(w, "solid %s\n", name); err != nil {
		return err
	}
	for _, t := range m.Triangles {
		n := t.Normal()
		_, err := fmt.Fprintf(w, "  facet normal %s %s %s\n    outer loop\n", e(n.X), e(n.Y), e(n.Z))
		if err != nil {
			return err
		}
		for _, v := range []geom.Vec3{t.A, t.B, t.C} {
			if _, err := fmt.Fprintf(w, "      vertex %s %s %s\n", e(v.X), e(v.Y), e(v.Z)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprint(w, "    endloop\n  endfacet\n"); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "endsolid %s\n", name)
	return err
}

func e(v float64) string {
	if v == 0 || math.IsNaN(v) {
		v = 0
	}
	return strconv.FormatFloat(v, 'e', 6, 64)
}

func writeBinary(w io.Writer, m *geom.Mesh, name string) error {
	var header [headerSize]byte
	copy(header[:], name)
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	if uint64(len(m.Triangles)) > math.MaxUint32 {
		return errors.New("too many triangles for binary STL")
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(m.Triangles))); err != nil {
		return err
	}
	var rec [recordSize]byte
	for _, t := range m.Triangles {
		n := t.Normal()
		vals := [12]float64{n.X, n.Y, n.Z, t.A.X, t.A.Y, t.A.Z, t.B.X, t.B.Y, t.B.Z, t.C.X, t.C.Y, t.C.Z}
		for i, v := range vals {
			if math.IsNaN(v) {
				v = 0
			}
			binary.LittleEndian.PutUint32(rec[i*4:], math.Float32bits(float32(v)))
		}
		// attribute byte count stays zero
		if _, err := w.Write(rec[:]); err != nil {
			return err
		}
	}
	return nil
}

// Document is a parsed STL file.
type Document struct {
	Name     string
	Encoding string
	Mesh     *geom.Mesh
}

// ParseFile reads and parses the STL file at path.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read STL file: %w", err)
	}
	doc, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse STL file %s: %w", path, err)
	}
	return doc, nil
}

// Parse reads an STL stream. A stream whose length matches the binary
// layout is read as binary even when its header starts with "solid", which
// some exporters write.
func Parse(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) >= headerSize+4 {
		count := binary.LittleEndian.Uint32(data[headerSize:])
		if int64(len(data)) == int64(headerSize+4)+int64(count)*recordSize {
			return parseBinary(data, count), nil
		}
	}
	if bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("solid")) {
		return parseASCII(data)
	}
	return nil, errors.New("not an STL file: neither a binary layout nor an ASCII solid")
}

func parseBinary(data []byte, count uint32) *Document {
	name := strings.TrimRight(string(data[:headerSize]), "\x00 ")
	m := &geom.Mesh{Name: name, Triangles: make([]geom.Triangle, 0, count)}
	off := headerSize + 4
	f := func(i int) float64 {
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(data[off+i*4:])))
	}
	for i := uint32(0); i < count; i++ {
		// skip the stored normal; it is recomputed from the winding
		m.Triangles = append(m.Triangles, geom.Triangle{
			A: geom.V3(f(3), f(4), f(5)),
			B: geom.V3(f(6), f(7), f(8)),
			C: geom.V3(f(9), f(10), f(11)),
		})
		off += recordSize
	}
	return &Document{Name: name, Encoding: EncodingBinary, Mesh: m}
}

func parseASCII(data []byte) (*Document, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	doc := &Document{Encoding: EncodingASCII, Mesh: &geom.Mesh{}}
	var verts []geom.Vec3
	line := 0
	ended := false
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch strings.ToLower(fields[0]) {
		case "solid":
			doc.Name = strings.Join(fields[1:], " ")
			doc.Mesh.Name = doc.Name
		case "vertex":
			if len(fields) != 4 {
				return nil, fmt.Errorf("line %d: vertex needs three coordinates", line)
			}
			var v [3]float64
			for i := range v {
				x, err := strconv.ParseFloat(fields[i+1], 64)
				if err != nil {
					return nil, fmt.Errorf("line %d: invalid coordinate %q", line, fields[i+1])
				}
				v[i] = x
			}
			verts = append(verts, geom.V3(v[0], v[1], v[2]))
		case "endloop":
			if len(verts) != 3 {
				return nil, fmt.Errorf("line %d: facet has %d vertices, want 3", line, len(verts))
			}
			doc.Mesh.Triangles = append(doc.Mesh.Triangles, geom.Triangle{A: verts[0], B: verts[1], C: verts[2]})
			verts = verts[:0]
		case "endsolid":
			ended = true
		case "facet", "outer", "endfacet":
		default:
			return nil, fmt.Errorf("line %d: unexpected %q", line, fields[0])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !ended {
		return nil, errors.New("missing endsolid")
	}
	return doc, nil
}
