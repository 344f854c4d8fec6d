package verify

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/bracket"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/dxf"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/geom"
)

// Context is what rules check: the parameters, the built solid and the
// fixed L-bracket requirements. Section checks read the solid
// through a DXF file written to Dir and parsed back.
type Context struct {
	Params       bracket.Params
	Solid        *geom.Solid
	Requirements bracket.Requirements
	Logger       *slog.Logger

	dir     string
	tempDir bool

	mu       sync.Mutex
	sections map[string]*Section
}

// Section is a section cut written to DXF and parsed back.
type Section struct {
	Plane geom.Plane
	Path  string
	Doc   *dxf.Document
	Err   error
}

// NewContext creates a context. Section files go to dir; an empty dir uses a
// temporary directory removed by Close.
func NewContext(p bracket.Params, s *geom.Solid, dir string, logger *slog.Logger) (*Context, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c := &Context{
		Params:       p,
		Solid:        s,
		Requirements: bracket.LBracketRequirements(),
		Logger:       logger,
		dir:          dir,
		sections:     make(map[string]*Section),
	}
	if dir == "" {
		tmp, err := os.MkdirTemp("", "cadsandbox-verify-")
		if err != nil {
			return nil, fmt.Errorf("failed to create section directory: %w", err)
		}
		c.dir, c.tempDir = tmp, true
	}
	return c, nil
}

// Close removes the temporary section directory, if any.
func (c *Context) Close() error {
	if !c.tempDir {
		return nil
	}
	return os.RemoveAll(c.dir)
}

// Section cuts the solid, writes the cut as DXF and parses it back. Results
// are cached per plane and height.
func (c *Context) Section(spec bracket.SectionSpec) *Section {
	key := spec.Plane + "@" + strconv.FormatFloat(spec.Height, 'f', -1, 64)

	c.mu.Lock()
	defer c.mu.Unlock()
	if sec, ok := c.sections[key]; ok {
		return sec
	}

	sec := &Section{}
	c.sections[key] = sec

	plane, err := geom.NamedPlane(spec.Plane, spec.Height)
	if err != nil {
		sec.Err = err
		return sec
	}
	sec.Plane = plane

	d, err := c.Solid.Section(plane)
	if err != nil {
		sec.Err = fmt.Errorf("failed to cut section: %w", err)
		return sec
	}

	name := fmt.Sprintf("section_%s_%s.dxf", strings.ToLower(plane.Name), strings.ReplaceAll(strconv.FormatFloat(spec.Height, 'f', -1, 64), "-", "m"))
	sec.Path = filepath.Join(c.dir, name)
	if err := dxf.WriteFile(sec.Path, d, dxf.DefaultWriteOptions()); err != nil {
		sec.Err = err
		return sec
	}
	sec.Doc, sec.Err = dxf.ParseFile(sec.Path)
	if sec.Err == nil {
		c.Logger.Debug("section written", "plane", plane.Name, "height", spec.Height, "path", sec.Path,
			"entities", sec.Doc.Total())
	}
	return sec
}

// Lift maps a point of the section drawing back into model space.
func (s *Section) Lift(x, y float64) geom.Vec3 {
	return s.Plane.Lift(geom.V2(x, y))
}
