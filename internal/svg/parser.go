package svg

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"
)

// ViewBox is the parsed viewBox attribute of the root element.
type ViewBox struct {
	MinX   float64 `json:"min_x"`
	MinY   float64 `json:"min_y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PathRecord describes a <path> element.
type PathRecord struct {
	D            string `json:"d"`
	ID           string `json:"id"`
	Class        string `json:"class"`
	CommandCount int    `json:"command_count"`
}

// CircleRecord describes a <circle> element.
type CircleRecord struct {
	CX       float64 `json:"cx"`
	CY       float64 `json:"cy"`
	R        float64 `json:"r"`
	Diameter float64 `json:"diameter"`
}

// RectRecord describes a <rect> element.
type RectRecord struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// LineRecord describes a <line> element.
type LineRecord struct {
	X1     float64 `json:"x1"`
	Y1     float64 `json:"y1"`
	X2     float64 `json:"x2"`
	Y2     float64 `json:"y2"`
	Length float64 `json:"length"`
}

// TextRecord describes a <text> element.
type TextRecord struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Text string  `json:"text"`
}

// Document is a parsed SVG file. Element names are counted without their
// namespace, so documents with and without the SVG namespace read the same.
type Document struct {
	Root    string         `json:"root"`
	ViewBox *ViewBox       `json:"viewbox,omitempty"`
	Width   *float64       `json:"width,omitempty"`
	Height  *float64       `json:"height,omitempty"`
	Counts  map[string]int `json:"element_types"`
	Paths   []PathRecord   `json:"paths"`
	Circles []CircleRecord `json:"circles"`
	Rects   []RectRecord   `json:"rects"`
	Lines   []LineRecord   `json:"lines"`
	Texts   []TextRecord   `json:"texts"`
}

// Total returns the number of elements in the document.
func (d *Document) Total() int {
	n := 0
	for _, c := range d.Counts {
		n += c
	}
	return n
}

// ParseFile reads and parses the SVG file at path.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SVG file: %w", err)
	}
	defer f.Close()

	doc, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SVG file %s: %w", path, err)
	}
	return doc, nil
}

type elementFunc func(d *Document, attrs []xml.Attr) error

var elementFuncs = map[string]elementFunc{
	"path":   pathF,
	"circle": circleF,
	"rect":   rectF,
	"line":   lineF,
	"text":   textF,
}

// Parse reads an SVG stream. Non-UTF-8 encodings declared in the XML prolog
// are decoded through a charset reader.
func Parse(r io.Reader) (*Document, error) {
	doc := &Document{Counts: map[string]int{}}
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charset.NewReaderLabel

	var stack []string
	for {
		t, err := decoder.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		switch se := t.(type) {
		case xml.StartElement:
			name := se.Name.Local
			if doc.Root == "" {
				if name != "svg" {
					return nil, fmt.Errorf("root element is <%s>, want <svg>", name)
				}
				doc.Root = name
				if err := rootF(doc, se.Attr); err != nil {
					return nil, err
				}
			}
			doc.Counts[name]++
			if f, ok := elementFuncs[name]; ok {
				if err := f(doc, se.Attr); err != nil {
					line, _ := decoder.InputPos()
					return nil, fmt.Errorf("line %d: <%s>: %w", line, name, err)
				}
			}
			stack = append(stack, name)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			// only the text directly inside <text>, not its children
			if len(stack) > 0 && stack[len(stack)-1] == "text" && len(doc.Texts) > 0 {
				last := &doc.Texts[len(doc.Texts)-1]
				last.Text += string(se)
			}
		}
	}
	if doc.Root == "" {
		return nil, errors.New("no SVG elements found")
	}
	for i := range doc.Texts {
		doc.Texts[i].Text = strings.TrimSpace(doc.Texts[i].Text)
	}
	return doc, nil
}

var (
	leadingNumber = regexp.MustCompile(`^[\d.]+`)
	numberPrefix  = regexp.MustCompile(`^\s*[-+]?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?`)
	pathCommand   = regexp.MustCompile(`(?i)[MLHVCSQTAZ]`)
)

func rootF(d *Document, attrs []xml.Attr) error {
	for _, attr := range attrs {
		switch attr.Name.Local {
		case "viewBox":
			d.ViewBox = parseViewBox(attr.Value)
		case "width":
			d.Width = parseSize(attr.Value)
		case "height":
			d.Height = parseSize(attr.Value)
		}
	}
	return nil
}

// parseViewBox returns nil unless the value holds exactly four numbers.
func parseViewBox(v string) *ViewBox {
	fields := strings.FieldsFunc(v, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if len(fields) != 4 {
		return nil
	}
	var n [4]float64
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil
		}
		n[i] = x
	}
	return &ViewBox{MinX: n[0], MinY: n[1], Width: n[2], Height: n[3]}
}

// parseSize reads the leading number of a width or height, dropping units
// such as "mm" or "px".
func parseSize(v string) *float64 {
	m := leadingNumber.FindString(strings.TrimSpace(v))
	if m == "" {
		return nil
	}
	x, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil
	}
	return &x
}

// number parses a numeric attribute. Trailing units are ignored; a value
// with no leading number is an error.
func number(attr xml.Attr) (float64, error) {
	m := numberPrefix.FindString(attr.Value)
	if m == "" {
		return 0, fmt.Errorf("attribute %s: invalid number %q", attr.Name.Local, attr.Value)
	}
	return strconv.ParseFloat(strings.TrimSpace(m), 64)
}

// numbers reads the named numeric attributes; missing ones are zero.
func numbers(attrs []xml.Attr, names ...string) (map[string]float64, error) {
	out := make(map[string]float64, len(names))
	for _, attr := range attrs {
		for _, n := range names {
			if attr.Name.Local != n {
				continue
			}
			v, err := number(attr)
			if err != nil {
				return nil, err
			}
			out[n] = v
		}
	}
	return out, nil
}

func attrValue(attrs []xml.Attr, name string) string {
	for _, attr := range attrs {
		if attr.Name.Local == name {
			return attr.Value
		}
	}
	return ""
}

func pathF(d *Document, attrs []xml.Attr) error {
	data := attrValue(attrs, "d")
	d.Paths = append(d.Paths, PathRecord{
		D:            data,
		ID:           attrValue(attrs, "id"),
		Class:        attrValue(attrs, "class"),
		CommandCount: len(pathCommand.FindAllString(data, -1)),
	})
	return nil
}

func circleF(d *Document, attrs []xml.Attr) error {
	n, err := numbers(attrs, "cx", "cy", "r")
	if err != nil {
		return err
	}
	d.Circles = append(d.Circles, CircleRecord{CX: n["cx"], CY: n["cy"], R: n["r"], Diameter: 2 * n["r"]})
	return nil
}

func rectF(d *Document, attrs []xml.Attr) error {
	n, err := numbers(attrs, "x", "y", "width", "height")
	if err != nil {
		return err
	}
	d.Rects = append(d.Rects, RectRecord{X: n["x"], Y: n["y"], Width: n["width"], Height: n["height"]})
	return nil
}

func lineF(d *Document, attrs []xml.Attr) error {
	n, err := numbers(attrs, "x1", "y1", "x2", "y2")
	if err != nil {
		return err
	}
	d.Lines = append(d.Lines, LineRecord{
		X1: n["x1"], Y1: n["y1"], X2: n["x2"], Y2: n["y2"],
		Length: math.Hypot(n["x2"]-n["x1"], n["y2"]-n["y1"]),
	})
	return nil
}

func textF(d *Document, attrs []xml.Attr) error {
	n, err := numbers(attrs, "x", "y")
	if err != nil {
		return err
	}
	d.Texts = append(d.Texts, TextRecord{X: n["x"], Y: n["y"]})
	return nil
}
