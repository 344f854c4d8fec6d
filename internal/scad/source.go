// Package scad writes OpenSCAD sources around exported meshes and renders
// them to images with a headless openscad.
package scad

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Source is one OpenSCAD program.
type Source struct {
	Name string
	Code string
}

// ImportSource returns a program that imports the STL file at stlPath.
// Relative paths resolve against the directory of the .scad file.
func ImportSource(stlPath string) Source {
	return Source{
		Name: "model",
		Code: fmt.Sprintf("// generated by cadsandbox\nimport(%s);\n", quote(stlPath)),
	}
}

// Projections returns the three orthographic outline views of the STL.
func Projections(stlPath string) []Source {
	imp := fmt.Sprintf("import(%s)", quote(stlPath))
	return []Source{
		{Name: "top", Code: fmt.Sprintf("// top view\nprojection(cut=false) %s;\n", imp)},
		{Name: "front", Code: fmt.Sprintf("// front view\nprojection(cut=false) rotate([90,0,0]) %s;\n", imp)},
		{Name: "side", Code: fmt.Sprintf("// side view\nprojection(cut=false) rotate([90,0,90]) %s;\n", imp)},
	}
}

// WriteFile writes the source to path, creating parent directories.
func WriteFile(path string, src Source) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(src.Code), 0o644); err != nil {
		return fmt.Errorf("failed to write OpenSCAD file: %w", err)
	}
	return nil
}

// quote writes an OpenSCAD string literal. Paths use forward slashes so
// Windows separators are not read as escapes.
func quote(path string) string {
	return strconv.Quote(strings.ReplaceAll(path, `\`, "/"))
}
