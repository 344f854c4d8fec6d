package step

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/geom"
)

// Document is the part of a STEP file the reader understands: header
// strings, instance counts by entity type, cartesian points and the points
// used by poly loops.
type Document struct {
	Schema string
	Name   string
	Counts map[string]int
	Points map[int]geom.Vec3

	loopRefs []int
}

// BoundingBox returns the box around every point used by a poly loop, or
// around every cartesian point when the file has no loops.
func (d *Document) BoundingBox() geom.Box3 {
	b := geom.EmptyBox3()
	if len(d.loopRefs) == 0 {
		for _, p := range d.Points {
			b = b.Extend(p)
		}
		return b
	}
	for _, id := range d.loopRefs {
		if p, ok := d.Points[id]; ok {
			b = b.Extend(p)
		}
	}
	return b
}

// Faces returns the number of faceted faces.
func (d *Document) Faces() int { return d.Counts["POLY_LOOP"] }

var (
	instanceRe = regexp.MustCompile(`^#(\d+)\s*=\s*([A-Z0-9_]*)\s*\(`)
	stringRe   = regexp.MustCompile(`'((?:[^']|'')*)'`)
	refRe      = regexp.MustCompile(`#(\d+)`)
	tupleRe    = regexp.MustCompile(`\(\s*([-+0-9.Ee]+)\s*,\s*([-+0-9.Ee]+)\s*,\s*([-+0-9.Ee]+)\s*\)`)
)

// ParseFile reads and parses the STEP file at path.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read STEP file: %w", err)
	}
	defer func() { _ = f.Close() }()

	doc, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse STEP file %s: %w", path, err)
	}
	return doc, nil
}

// Parse reads an ISO 10303-21 exchange structure.
func Parse(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	records := splitRecords(string(data))
	if len(records) == 0 || records[0] != "ISO-10303-21" {
		return nil, errors.New("missing ISO-10303-21 marker")
	}

	doc := &Document{Counts: make(map[string]int), Points: make(map[int]geom.Vec3)}
	section := ""
	ended := false
	for _, rec := range records[1:] {
		switch {
		case rec == "HEADER" || rec == "DATA":
			section = rec
		case rec == "ENDSEC":
			section = ""
		case rec == "END-ISO-10303-21":
			ended = true
		case section == "HEADER":
			doc.header(rec)
		case section == "DATA":
			if err := doc.instance(rec); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("unexpected record outside a section: %.40s", rec)
		}
	}
	if !ended {
		return nil, errors.New("missing END-ISO-10303-21 marker")
	}
	return doc, nil
}

func (d *Document) header(rec string) {
	strs := stringRe.FindAllStringSubmatch(rec, -1)
	if len(strs) == 0 {
		return
	}
	first := strings.ReplaceAll(strs[0][1], "''", "'")
	switch {
	case strings.HasPrefix(rec, "FILE_NAME"):
		d.Name = first
	case strings.HasPrefix(rec, "FILE_SCHEMA"):
		d.Schema = first
	}
}

func (d *Document) instance(rec string) error {
	m := instanceRe.FindStringSubmatch(rec)
	if m == nil {
		return fmt.Errorf("malformed instance: %.40s", rec)
	}
	typ := m[2]
	if typ == "" {
		typ = "COMPLEX"
	}
	id, _ := strconv.Atoi(m[1])
	d.Counts[typ]++
	if typ == "POLY_LOOP" {
		for _, ref := range refRe.FindAllStringSubmatch(rec[len(m[0]):], -1) {
			n, _ := strconv.Atoi(ref[1])
			d.loopRefs = append(d.loopRefs, n)
		}
		return nil
	}
	if typ != "CARTESIAN_POINT" {
		return nil
	}

	t := tupleRe.FindStringSubmatch(rec)
	if t == nil {
		return fmt.Errorf("instance #%s: CARTESIAN_POINT needs three coordinates", m[1])
	}
	var v [3]float64
	for i := range v {
		x, err := strconv.ParseFloat(t[i+1], 64)
		if err != nil {
			return fmt.Errorf("instance #%s: invalid coordinate %q", m[1], t[i+1])
		}
		v[i] = x
	}
	d.Points[id] = geom.V3(v[0], v[1], v[2])
	return nil
}

// splitRecords splits the exchange structure on semicolons outside string
// literals and trims whitespace and comments.
func splitRecords(src string) []string {
	var (
		records []string
		cur     strings.Builder
		quoted  bool
	)
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case quoted:
			cur.WriteByte(c)
			if c == '\'' {
				quoted = false
			}
		case c == '\'':
			quoted = true
			cur.WriteByte(c)
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				i = len(src)
			} else {
				i += end + 3
			}
		case c == ';':
			if rec := strings.TrimSpace(cur.String()); rec != "" {
				records = append(records, rec)
			}
			cur.Reset()
		case c == '\n' || c == '\r':
			// records may span lines
		default:
			cur.WriteByte(c)
		}
	}
	return records
}
