package dxf

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/drawing"
)

// Document is a parsed DXF file.
type Document struct {
	Version string
	// Units is the $INSUNITS header value; 4 means millimetres.
	Units   int
	Drawing *drawing.Drawing
	// Counts holds every entity type seen in the ENTITIES section, including
	// the types the reader does not decode.
	Counts map[string]int
}

// Total returns the number of entities in the ENTITIES section.
func (d *Document) Total() int {
	n := 0
	for _, c := range d.Counts {
		n += c
	}
	return n
}

// ParseFile reads and parses the DXF file at path.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open DXF file: %w", err)
	}
	defer f.Close()

	doc, err := Parse(f)
	if err != nil {
		var se *SyntaxError
		if errors.As(err, &se) && se.File == "" {
			se.File = path
		}
		return nil, fmt.Errorf("failed to parse DXF file: %w", err)
	}
	return doc, nil
}

// Parse reads a DXF stream. Input without sections or without the closing
// EOF marker is rejected.
func Parse(r io.Reader) (*Document, error) {
	p := &parser{
		rd:  NewReader(r),
		doc: &Document{Drawing: drawing.New(), Counts: map[string]int{}},
	}
	if err := p.run(); err != nil {
		return nil, err
	}
	return p.doc, nil
}

type parser struct {
	rd     *Reader
	doc    *Document
	peeked *Pair
}

func (p *parser) next() (Pair, error) {
	if p.peeked != nil {
		pr := *p.peeked
		p.peeked = nil
		return pr, nil
	}
	return p.rd.Next()
}

func (p *parser) unread(pr Pair) { p.peeked = &pr }

func (p *parser) run() error {
	sections := 0
	for {
		pr, err := p.next()
		if errors.Is(err, io.EOF) {
			if sections == 0 {
				return &SyntaxError{Message: "no DXF sections found"}
			}
			return &SyntaxError{Line: p.rd.line, Message: "missing EOF marker"}
		}
		if err != nil {
			return err
		}
		if pr.Code == 999 {
			continue
		}
		if pr.Code != 0 {
			return &SyntaxError{Line: pr.Line, Message: fmt.Sprintf("expected group 0, got %d", pr.Code)}
		}
		switch pr.Value {
		case "EOF":
			return nil
		case "SECTION":
			name, err := p.next()
			if err != nil {
				return eofAsSyntax(err, pr.Line)
			}
			if name.Code != 2 {
				return &SyntaxError{Line: name.Line, Message: "SECTION without a name"}
			}
			sections++
			if err := p.section(name.Value); err != nil {
				return err
			}
		default:
			return &SyntaxError{Line: pr.Line, Message: fmt.Sprintf("unexpected %q outside a section", pr.Value)}
		}
	}
}

// section consumes pairs up to and including ENDSEC.
func (p *parser) section(name string) error {
	switch name {
	case "HEADER":
		return p.header()
	case "ENTITIES":
		return p.entities()
	default:
		for {
			pr, err := p.next()
			if err != nil {
				return eofAsSyntax(err, p.rd.line)
			}
			if pr.Code == 0 && pr.Value == "ENDSEC" {
				return nil
			}
		}
	}
}

func (p *parser) header() error {
	var variable string
	for {
		pr, err := p.next()
		if err != nil {
			return eofAsSyntax(err, p.rd.line)
		}
		switch {
		case pr.Code == 0 && pr.Value == "ENDSEC":
			return nil
		case pr.Code == 9:
			variable = pr.Value
		case variable == "$ACADVER" && pr.Code == 1:
			p.doc.Version = pr.Value
		case variable == "$INSUNITS" && pr.Code == 70:
			n, err := pr.Int()
			if err != nil {
				return err
			}
			p.doc.Units = n
		}
	}
}

func (p *parser) entities() error {
	for {
		pr, err := p.next()
		if err != nil {
			return eofAsSyntax(err, p.rd.line)
		}
		if pr.Code != 0 {
			return &SyntaxError{Line: pr.Line, Message: fmt.Sprintf("expected entity, got group %d", pr.Code)}
		}
		if pr.Value == "ENDSEC" {
			return nil
		}

		kind := pr.Value
		var body []Pair
		for {
			q, err := p.next()
			if err != nil {
				return eofAsSyntax(err, p.rd.line)
			}
			if q.Code == 0 {
				p.unread(q)
				break
			}
			body = append(body, q)
		}

		// VERTEX and SEQEND belong to the preceding POLYLINE
		if kind == "VERTEX" || kind == "SEQEND" {
			continue
		}
		p.doc.Counts[kind]++
		e, err := decodeEntity(kind, body)
		if err != nil {
			return err
		}
		if e != nil {
			p.doc.Drawing.Add(e)
		}
	}
}

func eofAsSyntax(err error, line int) error {
	if errors.Is(err, io.EOF) {
		return &SyntaxError{Line: line, Message: "unexpected end of file"}
	}
	return err
}

// fields collects the numeric groups of an entity body.
type fields struct {
	pairs []Pair
	err   error
}

func (f *fields) float(code int) float64 {
	for _, pr := range f.pairs {
		if pr.Code == code {
			v, err := pr.Float()
			if err != nil && f.err == nil {
				f.err = err
			}
			return v
		}
	}
	return 0
}

func (f *fields) integer(code int) int {
	for _, pr := range f.pairs {
		if pr.Code == code {
			v, err := pr.Int()
			if err != nil && f.err == nil {
				f.err = err
			}
			return v
		}
	}
	return 0
}

func (f *fields) str(code int) string {
	for _, pr := range f.pairs {
		if pr.Code == code {
			return pr.Value
		}
	}
	return ""
}

func (f *fields) point(base int) drawing.Point {
	return drawing.Point{X: f.float(base), Y: f.float(base + 10)}
}

func decodeEntity(kind string, body []Pair) (drawing.Entity, error) {
	f := &fields{pairs: body}
	layer := f.str(8)

	var e drawing.Entity
	switch kind {
	case drawing.KindLine:
		e = drawing.Line{Start: f.point(10), End: f.point(11), Layer: layer}
	case drawing.KindCircle:
		e = drawing.Circle{Center: f.point(10), Radius: f.float(40), Layer: layer}
	case drawing.KindArc:
		e = drawing.Arc{
			Center:     f.point(10),
			Radius:     f.float(40),
			StartAngle: f.float(50),
			EndAngle:   f.float(51),
			Layer:      layer,
		}
	case drawing.KindPolyline:
		pl, err := decodePolyline(body, layer)
		if err != nil {
			return nil, err
		}
		e = pl
	case drawing.KindDimension:
		e = drawing.Dimension{
			DimType:     f.integer(70),
			Measurement: f.float(42),
			Text:        f.str(1),
			DefPoint:    f.point(10),
			First:       f.point(13),
			Second:      f.point(14),
			Layer:       layer,
		}
	case drawing.KindText:
		e = drawing.Text{Insert: f.point(10), Height: f.float(40), Value: f.str(1), Layer: layer}
	default:
		return nil, nil
	}
	if f.err != nil {
		return nil, f.err
	}
	return e, nil
}

// decodePolyline reads the repeated 10/20 vertex groups of an LWPOLYLINE.
func decodePolyline(body []Pair, layer string) (drawing.Polyline, error) {
	pl := drawing.Polyline{Layer: layer}
	declared := -1
	for _, pr := range body {
		switch pr.Code {
		case 70:
			flags, err := pr.Int()
			if err != nil {
				return pl, err
			}
			pl.Closed = flags&1 == 1
		case 90:
			n, err := pr.Int()
			if err != nil {
				return pl, err
			}
			declared = n
		case 10:
			x, err := pr.Float()
			if err != nil {
				return pl, err
			}
			pl.Points = append(pl.Points, drawing.Point{X: x})
		case 20:
			y, err := pr.Float()
			if err != nil {
				return pl, err
			}
			if len(pl.Points) == 0 {
				return pl, &SyntaxError{Line: pr.Line, Message: "LWPOLYLINE vertex y without x"}
			}
			pl.Points[len(pl.Points)-1].Y = y
		}
	}
	if declared >= 0 && declared != len(pl.Points) {
		return pl, &SyntaxError{
			Line:    body[0].Line,
			Message: fmt.Sprintf("LWPOLYLINE declares %d vertices, found %d", declared, len(pl.Points)),
		}
	}
	return pl, nil
}
