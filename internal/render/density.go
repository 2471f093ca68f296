package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"

	"github.com/nvandessel/gazeviz/internal/fixation"
)

// RenderDensityOverlay estimates the fixation density, color-maps it as a
// translucent overlay on base, and writes the opaque result to outputPath.
// base is not modified.
func RenderDensityOverlay(ctx context.Context, seq fixation.Sequence, base image.Image, outputPath string, style Style) error {
	if len(seq) == 0 {
		return ErrEmptyInput
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	img, err := ComposeDensity(seq, base, style.Density)
	if err != nil {
		return &RenderError{Op: "density", Path: outputPath, Err: err}
	}
	return SavePNG(img, outputPath)
}

// ComposeDensity returns base with the density overlay composited on top.
// The result has the same pixel dimensions as base and is fully opaque.
func ComposeDensity(seq fixation.Sequence, base image.Image, style DensityStyle) (*image.RGBA, error) {
	if len(seq) == 0 {
		return nil, ErrEmptyInput
	}
	b := base.Bounds()
	w, h := b.Dx(), b.Dy()

	grid, err := EstimateDensity(seq.PixelPoints(w, h), w, h, style)
	if err != nil {
		return nil, err
	}
	layer, err := DensityLayer(grid, style)
	if err != nil {
		return nil, err
	}

	out := workingCopy(base)
	scaled := image.NewNRGBA(out.Bounds())
	draw.BiLinear.Scale(scaled, scaled.Bounds(), layer, layer.Bounds(), draw.Src, nil)

	// out = overlay*alpha*opacity + base*(1 - alpha*opacity)
	opacity := image.NewUniform(color.Alpha{A: uint8(math.Round(clamp01(style.Opacity) * 255))})
	draw.DrawMask(out, out.Bounds(), scaled, image.Point{}, opacity, image.Point{}, draw.Over)

	return out, nil
}

// DensityLayer rasterizes grid at grid resolution into a color-mapped image.
// Density is normalized to the peak and quantized into style.Levels filled
// bands; cells below style.Threshold of the peak are fully transparent.
func DensityLayer(grid *DensityGrid, style DensityStyle) (*image.NRGBA, error) {
	cmap, ok := LookupColorMap(style.ColorMap)
	if !ok {
		return nil, fmt.Errorf("unknown color map: %s", style.ColorMap)
	}
	levels := max(style.Levels, 1)

	layer := image.NewNRGBA(image.Rect(0, 0, grid.Cols, grid.Rows))
	for row := 0; row < grid.Rows; row++ {
		for col := 0; col < grid.Cols; col++ {
			t := grid.At(col, row) / grid.Max
			if t < style.Threshold {
				continue
			}
			layer.SetNRGBA(col, row, cmap(Band(t, style.Threshold, levels)))
		}
	}
	return layer, nil
}

// Band quantizes a normalized density t in [threshold,1] to the lower edge of
// its filled band, rescaled to [0,1] for color mapping.
func Band(t, threshold float64, levels int) float64 {
	if threshold >= 1 {
		return 1
	}
	u := clamp01((t - threshold) / (1 - threshold))
	if levels <= 1 {
		return u
	}
	band := math.Floor(u * float64(levels))
	if band >= float64(levels) {
		band = float64(levels) - 1
	}
	return band / float64(levels-1)
}
