package raster

import (
	"bytes"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/drawing"
	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/svg"
)

const square = `<svg xmlns="http://www.w3.org/2000/svg" width="100" height="50" viewBox="0 0 100 50">
  <rect x="10" y="10" width="30" height="30" fill="black"/>
</svg>`

func TestRender_FillsAndBackground(t *testing.T) {
	img, err := Render(strings.NewReader(square), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 50, img.Bounds().Dy())

	r, g, b, _ := img.At(25, 25).RGBA()
	assert.Equal(t, [3]uint32{0, 0, 0}, [3]uint32{r, g, b})
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, img.RGBAAt(80, 40))
}

func TestRender_Sizes(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		wantW, wantH  int
	}{
		{"explicit", 40, 30, 40, 30},
		{"width only", 200, 0, 200, 100},
		{"height only", 0, 25, 50, 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := Render(strings.NewReader(square), tt.width, tt.height)
			require.NoError(t, err)
			assert.Equal(t, tt.wantW, img.Bounds().Dx())
			assert.Equal(t, tt.wantH, img.Bounds().Dy())
		})
	}
}

func TestRender_Errors(t *testing.T) {
	_, err := Render(strings.NewReader(square), -1, 10)
	assert.Error(t, err)

	_, err = Render(strings.NewReader(square), MaxSide+1, 10)
	assert.Error(t, err)

	_, err = Render(strings.NewReader(`<svg xmlns="http://www.w3.org/2000/svg"></svg>`), 0, 0)
	assert.Error(t, err)
}

func TestRenderFile_Section(t *testing.T) {
	d := drawing.New()
	d.Add(
		drawing.Line{Start: drawing.Pt(-40, -25), End: drawing.Pt(40, -25), Layer: "base"},
		drawing.Circle{Center: drawing.Pt(0, -5), Radius: 3.25, Layer: "base"},
	)
	dir := t.TempDir()
	svgPath := filepath.Join(dir, "section.svg")
	require.NoError(t, svg.WriteFile(svgPath, d, svg.DefaultOptions()))

	pngPath := filepath.Join(dir, "png", "section.png")
	require.NoError(t, RenderFile(svgPath, pngPath, 150, 0))

	f, err := os.Open(pngPath)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 150, img.Bounds().Dx())
	assert.Equal(t, 150, img.Bounds().Dy())
}

func TestRenderFile_Missing(t *testing.T) {
	err := RenderFile(filepath.Join(t.TempDir(), "none.svg"), filepath.Join(t.TempDir(), "x.png"), 10, 10)
	assert.Error(t, err)
}

func TestRenderPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderPNG(strings.NewReader(square), &buf, 20, 10))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
}
