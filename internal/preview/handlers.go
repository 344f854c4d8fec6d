package preview

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/dxf"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/report"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/stl"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/svg"
)

// Artifact describes a file in the artifact directory.
type Artifact struct {
	Name     string    `json:"name"`
	Format   string    `json:"format"`
	Bytes    int64     `json:"bytes"`
	Modified time.Time `json:"modified"`
	URL      string    `json:"url"`
	// Report is set when /api/report can analyze the file.
	Report string `json:"report,omitempty"`
}

var reportable = map[string]bool{"dxf": true, "svg": true, "stl": true}

var known = map[string]bool{
	"step": true, "stl": true, "dxf": true, "svg": true, "scad": true, "png": true,
}

// ListArtifacts returns the known artifact files in dir, sorted by name.
func ListArtifacts(dir string) ([]Artifact, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}

	artifacts := make([]Artifact, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		format := strings.TrimPrefix(strings.ToLower(filepath.Ext(e.Name())), ".")
		if !known[format] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		a := Artifact{
			Name:     e.Name(),
			Format:   format,
			Bytes:    info.Size(),
			Modified: info.ModTime().UTC(),
			URL:      "/files/" + e.Name(),
		}
		if reportable[format] {
			a.Report = "/api/report/" + e.Name()
		}
		artifacts = append(artifacts, a)
	}
	sort.Slice(artifacts, func(i, j int) bool { return artifacts[i].Name < artifacts[j].Name })
	return artifacts, nil
}

type handlers struct {
	dir    string
	server *Server
}

var indexTemplate = template.Must(template.New("index").Funcs(template.FuncMap{
	"kb": report.SizeKB,
}).Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>cadsandbox preview</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
td, th { padding: 0.3em 1em; text-align: left; }
.previews img { max-width: 480px; border: 1px solid #ccc; margin: 0.5em; }
.error { color: #b00; }
</style>
</head>
<body>
<h1>cadsandbox preview</h1>
{{if .Error}}<p class="error">Last rebuild failed: {{.Error}}</p>{{end}}
<table>
<tr><th>File</th><th>Format</th><th>Size</th><th>Report</th></tr>
{{range .Artifacts}}<tr><td><a href="{{.URL}}">{{.Name}}</a></td><td>{{.Format}}</td><td>{{kb .Bytes}}</td><td>{{if .Report}}<a href="{{.Report}}?format=text">report</a>{{end}}</td></tr>
{{else}}<tr><td colspan="4">No artifacts yet.</td></tr>
{{end}}</table>
<div class="previews">
{{range .Artifacts}}{{if or (eq .Format "svg") (eq .Format "png")}}<img src="{{.URL}}" alt="{{.Name}}">{{end}}{{end}}
</div>
<script>
const events = new EventSource("/events");
events.addEventListener("reload", () => window.location.reload());
</script>
</body>
</html>
`))

func (h *handlers) index(w http.ResponseWriter, _ *http.Request) {
	artifacts, err := ListArtifacts(h.dir)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data := struct {
		Artifacts []Artifact
		Error     string
	}{Artifacts: artifacts}
	if _, lastErr := h.server.Status(); lastErr != nil {
		data.Error = lastErr.Error()
	}

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (h *handlers) artifacts(w http.ResponseWriter, _ *http.Request) {
	artifacts, err := ListArtifacts(h.dir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, artifacts)
}

// layouter is implemented by the dxf, svg and stl reports.
type layouter interface {
	Layout() *report.Document
}

func (h *handlers) report(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid artifact name %q", name))
		return
	}
	path := filepath.Join(h.dir, name)

	var (
		rep layouter
		err error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".dxf":
		rep, err = analyze(dxf.Analyze, path)
	case ".svg":
		rep, err = analyze(svg.Analyze, path)
	case ".stl":
		rep, err = analyze(stl.Analyze, path)
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("no report for %s", name))
		return
	}
	if errors.Is(err, fs.ErrNotExist) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "text", "markdown":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_ = report.Write(w, rep.Layout(), format)
	default:
		writeJSON(w, http.StatusOK, rep)
	}
}

// analyze adapts the typed Analyze functions.
func analyze[R layouter](fn func(string) (R, error), path string) (layouter, error) {
	rep, err := fn(path)
	if err != nil {
		return nil, err
	}
	return rep, nil
}

// events streams server-sent events until the client goes away.
func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := h.server.notifier.Subscribe()
	defer h.server.notifier.Unsubscribe(ch)

	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, strings.ReplaceAll(ev.Data, "\n", " "))
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
