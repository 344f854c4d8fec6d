// Package raster turns SVG section views into PNG previews.
package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// MaxSide bounds each side of a rendered image.
const MaxSide = 8192

// RenderPNG rasterizes the SVG read from r onto a white background and
// encodes it as PNG. A zero width or height is taken from the SVG viewBox;
// when both are zero the viewBox size is used as is.
func RenderPNG(r io.Reader, w io.Writer, width, height int) error {
	img, err := Render(r, width, height)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return nil
}

// Render rasterizes the SVG read from r into an RGBA image.
func Render(r io.Reader, width, height int) (*image.RGBA, error) {
	icon, err := oksvg.ReadIconStream(r, oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("failed to read SVG: %w", err)
	}
	w, h, err := size(icon.ViewBox.W, icon.ViewBox.H, width, height)
	if err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	icon.SetTarget(0, 0, float64(w), float64(h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1)
	return img, nil
}

// size resolves the output size, keeping the viewBox aspect ratio when only
// one side is given.
func size(vbW, vbH float64, width, height int) (int, int, error) {
	if width < 0 || height < 0 {
		return 0, 0, fmt.Errorf("invalid image size %dx%d", width, height)
	}
	if width == 0 || height == 0 {
		if vbW <= 0 || vbH <= 0 {
			return 0, 0, errors.New("SVG has no viewBox to size the image from")
		}
		switch {
		case width == 0 && height == 0:
			width, height = int(math.Ceil(vbW)), int(math.Ceil(vbH))
		case width == 0:
			width = int(math.Round(float64(height) * vbW / vbH))
		default:
			height = int(math.Round(float64(width) * vbH / vbW))
		}
	}
	if width < 1 || height < 1 || width > MaxSide || height > MaxSide {
		return 0, 0, fmt.Errorf("image size %dx%d out of range", width, height)
	}
	return width, height, nil
}

// RenderFile rasterizes the SVG file at svgPath into pngPath.
func RenderFile(svgPath, pngPath string, width, height int) error {
	data, err := os.ReadFile(svgPath)
	if err != nil {
		return fmt.Errorf("failed to read SVG file: %w", err)
	}
	var buf bytes.Buffer
	if err := RenderPNG(bytes.NewReader(data), &buf, width, height); err != nil {
		return fmt.Errorf("failed to render %s: %w", filepath.Base(svgPath), err)
	}
	if err := os.MkdirAll(filepath.Dir(pngPath), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(pngPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write PNG file: %w", err)
	}
	return nil
}
