package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Formats accepted by Write.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
)

// Write renders the document in the named format.
func Write(w io.Writer, doc *Document, format string) error {
	switch format {
	case FormatText, "":
		return WriteText(w, doc)
	case FormatMarkdown, "md":
		return WriteMarkdown(w, doc)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// WriteText renders the document as plain text framed by "=" rules.
func WriteText(w io.Writer, doc *Document) error {
	bw := bufio.NewWriter(w)
	rule := strings.Repeat("=", BannerWidth)

	_, _ = fmt.Fprintln(bw, rule)
	_, _ = fmt.Fprintln(bw, doc.Title)
	_, _ = fmt.Fprintln(bw, rule)
	_, _ = fmt.Fprintln(bw)

	for _, s := range doc.Sections {
		_, _ = fmt.Fprintf(bw, "## %s\n", s.Heading)
		for _, f := range s.Fields {
			_, _ = fmt.Fprintf(bw, "- %s: %s\n", f.Name, f.Value)
		}
		if s.Table != nil && len(s.Table.Rows) > 0 {
			t := newTable(bw, s.Table)
			t.SetStyle(table.StyleLight)
			t.Render()
		}
		for _, d := range s.Details {
			writeDetail(bw, d)
		}
		_, _ = fmt.Fprintln(bw)
	}

	if doc.Footer != "" {
		_, _ = fmt.Fprintln(bw, rule)
		_, _ = fmt.Fprintln(bw, doc.Footer)
		_, _ = fmt.Fprintln(bw, rule)
	}
	return bw.Flush()
}

// WriteMarkdown renders the document as markdown with pipe tables.
func WriteMarkdown(w io.Writer, doc *Document) error {
	bw := bufio.NewWriter(w)

	_, _ = fmt.Fprintf(bw, "# %s\n\n", doc.Title)
	for _, s := range doc.Sections {
		_, _ = fmt.Fprintf(bw, "## %s\n\n", s.Heading)
		for _, f := range s.Fields {
			_, _ = fmt.Fprintf(bw, "- **%s:** %s\n", f.Name, f.Value)
		}
		if len(s.Fields) > 0 {
			_, _ = fmt.Fprintln(bw)
		}
		if s.Table != nil && len(s.Table.Rows) > 0 {
			newTable(bw, s.Table).RenderMarkdown()
			_, _ = fmt.Fprintln(bw)
		}
		for _, d := range s.Details {
			_, _ = fmt.Fprintf(bw, "### %s: %d\n\n", d.Heading, d.Total)
			for i, item := range d.Items {
				_, _ = fmt.Fprintf(bw, "%d. %s\n", i+1, item)
			}
			if more := d.More(); more > 0 {
				_, _ = fmt.Fprintf(bw, "\n_... %d more_\n", more)
			}
			_, _ = fmt.Fprintln(bw)
		}
	}
	if doc.Footer != "" {
		_, _ = fmt.Fprintf(bw, "---\n\n%s\n", doc.Footer)
	}
	return bw.Flush()
}

func writeDetail(w io.Writer, d Detail) {
	_, _ = fmt.Fprintf(w, "\n### %s: %d\n", d.Heading, d.Total)
	for i, item := range d.Items {
		_, _ = fmt.Fprintf(w, "  %d. %s\n", i+1, item)
	}
	if more := d.More(); more > 0 {
		_, _ = fmt.Fprintf(w, "  ... %d more\n", more)
	}
}

func newTable(w io.Writer, src *Table) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)

	header := make(table.Row, len(src.Header))
	for i, h := range src.Header {
		header[i] = h
	}
	t.AppendHeader(header)
	for _, r := range src.Rows {
		row := make(table.Row, len(r))
		for i, v := range r {
			row[i] = v
		}
		t.AppendRow(row)
	}
	return t
}
