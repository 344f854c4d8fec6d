// Package report lays out the analysis reports printed for DXF, SVG and STL
// files. A Document is format neutral; WriteText and WriteMarkdown render it.
package report

import (
	"fmt"
	"sort"
)

// DetailLimit is the number of records listed per detail group.
const DetailLimit = 5

// BannerWidth is the width of the "=" rules framing a text report.
const BannerWidth = 80

// Document is a titled report made of sections.
type Document struct {
	Title    string    `json:"title"`
	Footer   string    `json:"footer,omitempty"`
	Sections []Section `json:"sections"`
}

// Section is one "##" block of a report. Any of its parts may be empty.
type Section struct {
	Heading string   `json:"heading"`
	Fields  []Field  `json:"fields,omitempty"`
	Table   *Table   `json:"table,omitempty"`
	Details []Detail `json:"details,omitempty"`
}

// Field is a labelled value.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Table is a small grid rendered with go-pretty.
type Table struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// Detail lists the first records of one kind. Total counts every record,
// including the ones left out.
type Detail struct {
	Heading string   `json:"heading"`
	Total   int      `json:"total"`
	Items   []string `json:"items"`
}

// More returns how many records were left out of the listing.
func (d Detail) More() int { return d.Total - len(d.Items) }

// New creates an empty document.
func New(title, footer string) *Document {
	return &Document{Title: title, Footer: footer}
}

// Add appends a section and returns it for further filling.
func (d *Document) Add(heading string) *Section {
	d.Sections = append(d.Sections, Section{Heading: heading})
	return &d.Sections[len(d.Sections)-1]
}

// Field appends a formatted field.
func (s *Section) Field(name, format string, args ...any) *Section {
	s.Fields = append(s.Fields, Field{Name: name, Value: fmt.Sprintf(format, args...)})
	return s
}

// Detail appends a detail group holding at most DetailLimit of items. Empty
// groups are skipped.
func (s *Section) Detail(heading string, items []string) *Section {
	if len(items) == 0 {
		return s
	}
	shown := items
	if len(shown) > DetailLimit {
		shown = shown[:DetailLimit]
	}
	s.Details = append(s.Details, Detail{Heading: heading, Total: len(items), Items: shown})
	return s
}

// CountTable builds a two column table from counts, sorted by name.
func CountTable(nameHeader string, counts map[string]int) *Table {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	t := &Table{Header: []string{nameHeader, "Count"}}
	for _, name := range names {
		t.Rows = append(t.Rows, []string{name, fmt.Sprintf("%d", counts[name])})
	}
	return t
}

// SizeKB formats a byte count in kilobytes with one decimal.
func SizeKB(n int64) string {
	return fmt.Sprintf("%.1f KB", float64(n)/1024)
}
