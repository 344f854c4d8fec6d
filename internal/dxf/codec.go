// Package dxf reads and writes ASCII DXF drawings: the HEADER, TABLES and
// ENTITIES sections with LINE, CIRCLE, ARC, LWPOLYLINE, DIMENSION and TEXT
// entities.
package dxf

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Pair is one group code and its value.
type Pair struct {
	Code  int
	Value string
	Line  int // line of the group code, 1-based
}

// Float parses the value as a real number.
func (p Pair) Float() (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(p.Value), 64)
	if err != nil {
		return 0, &SyntaxError{Line: p.Line + 1, Message: fmt.Sprintf("group %d: invalid number %q", p.Code, p.Value)}
	}
	return v, nil
}

// Int parses the value as an integer.
func (p Pair) Int() (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(p.Value))
	if err != nil {
		return 0, &SyntaxError{Line: p.Line + 1, Message: fmt.Sprintf("group %d: invalid integer %q", p.Code, p.Value)}
	}
	return v, nil
}

// SyntaxError reports malformed DXF input.
type SyntaxError struct {
	File    string
	Line    int
	Message string
}

func (e *SyntaxError) Error() string {
	if e.File != "" {
		if e.Line > 0 {
			return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
		}
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Reader splits a DXF stream into group code pairs.
type Reader struct {
	sc   *bufio.Scanner
	line int
}

// NewReader returns a pair reader over r.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	return &Reader{sc: sc}
}

// Next returns the next pair, or io.EOF at a clean end of input.
func (r *Reader) Next() (Pair, error) {
	code, ok := r.scan()
	if !ok {
		if err := r.sc.Err(); err != nil {
			return Pair{}, err
		}
		return Pair{}, io.EOF
	}
	codeLine := r.line
	c, err := strconv.Atoi(strings.TrimSpace(code))
	if err != nil {
		return Pair{}, &SyntaxError{Line: codeLine, Message: fmt.Sprintf("invalid group code %q", strings.TrimSpace(code))}
	}
	value, ok := r.scan()
	if !ok {
		if err := r.sc.Err(); err != nil {
			return Pair{}, err
		}
		return Pair{}, &SyntaxError{Line: codeLine, Message: fmt.Sprintf("group %d has no value", c)}
	}
	return Pair{Code: c, Value: strings.TrimRight(value, " \r"), Line: codeLine}, nil
}

func (r *Reader) scan() (string, bool) {
	if !r.sc.Scan() {
		return "", false
	}
	r.line++
	text := r.sc.Text()
	if r.line == 1 {
		text = strings.TrimPrefix(text, "\ufeff")
	}
	return text, true
}

// Writer emits group code pairs.
type Writer struct {
	w   *bufio.Writer
	err error
}

// NewWriter returns a pair writer over w. Call Flush when done.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Pair writes a group code and a string value.
func (w *Writer) Pair(code int, value string) {
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.w, "%3d\n%s\n", code, value)
}

// Float writes a real value.
func (w *Writer) Float(code int, v float64) {
	w.Pair(code, FormatFloat(v))
}

// Int writes an integer value.
func (w *Writer) Int(code int, v int) {
	w.Pair(code, strconv.Itoa(v))
}

// Point writes a 3D point on codes base, base+10 and base+20.
func (w *Writer) Point(base int, x, y, z float64) {
	w.Float(base, x)
	w.Float(base+10, y)
	w.Float(base+20, z)
}

// Flush writes buffered output and returns the first error seen.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	return w.w.Flush()
}

// FormatFloat formats a real for DXF output: fixed notation, no trailing
// zeros, and never "-0".
func FormatFloat(v float64) string {
	if math.Abs(v) < 1e-12 {
		return "0.0"
	}
	s := strconv.FormatFloat(v, 'f', 10, 64)
	s = strings.TrimRight(s, "0")
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	return s
}
