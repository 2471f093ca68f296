// Package render synthesizes fixation visualizations: density heatmaps
// composited over a stimulus image, and ordered scanpaths drawn onto it.
//
// Every render call is a pure function of its fixation sequence, base image
// and Style. The base image is never mutated; each call works on its own copy
// and writes to its own output path, so calls may run concurrently.
package render

import (
	"fmt"
	"image/color"
)

// Bandwidth selection rules for kernel density estimation.
const (
	BandwidthScott     = "scott"
	BandwidthSilverman = "silverman"
)

// DensityStyle configures the density overlay.
type DensityStyle struct {
	// Opacity applied to the color-mapped overlay, in [0,1].
	Opacity float64
	// ColorMap names the palette: "jet" (default) or "hot".
	ColorMap string
	// Levels is the number of filled bands the normalized density is
	// quantized into.
	Levels int
	// Threshold is the fraction of peak density below which the overlay is
	// fully transparent.
	Threshold float64
	// Bandwidth is the automatic bandwidth rule: "scott" or "silverman".
	Bandwidth string
	// BandwidthScale multiplies the rule's bandwidth.
	BandwidthScale float64
	// GridSize is the number of evaluation cells along the image's longer
	// edge. The grid is scaled proportionally and resized to the image.
	GridSize int
}

// PathStyle configures the scanpath.
type PathStyle struct {
	MarkerRadius  float64
	LineColor     color.NRGBA
	LineWidth     float64
	StartColor    color.NRGBA
	InteriorColor color.NRGBA
	EndColor      color.NRGBA
	OutlineColor  color.NRGBA
	OutlineWidth  float64
	LabelColor    color.NRGBA
	// FontName is the preferred label font, resolved with ResolveFont.
	FontName string
	// FontDirs are searched before the system font directories.
	FontDirs []string
	// FontScale sets the label size relative to MarkerRadius.
	FontScale float64
}

// Style is the complete visual configuration for both renderers.
// It is passed by value; renderers never modify it.
type Style struct {
	Density DensityStyle
	Path    PathStyle
}

// DefaultStyle returns the reference visual constants.
func DefaultStyle() Style {
	return Style{
		Density: DensityStyle{
			Opacity:        0.6,
			ColorMap:       "jet",
			Levels:         100,
			Threshold:      0.05,
			Bandwidth:      BandwidthScott,
			BandwidthScale: 1.0,
			GridSize:       256,
		},
		Path: PathStyle{
			MarkerRadius:  15,
			LineColor:     color.NRGBA{66, 135, 245, 200},
			LineWidth:     3,
			StartColor:    color.NRGBA{46, 204, 113, 255},
			InteriorColor: color.NRGBA{52, 152, 219, 255},
			EndColor:      color.NRGBA{231, 76, 60, 255},
			OutlineColor:  color.NRGBA{255, 255, 255, 255},
			OutlineWidth:  2,
			LabelColor:    color.NRGBA{255, 255, 255, 255},
			FontName:      "arial",
			FontScale:     1.0,
		},
	}
}

// WithMarkerRadius returns a copy of s with the scanpath marker radius set.
func (s Style) WithMarkerRadius(r float64) Style {
	s.Path.MarkerRadius = r
	return s
}

// Validate reports the first out-of-range value.
func (s Style) Validate() error {
	d := s.Density
	if d.Opacity < 0 || d.Opacity > 1 {
		return fmt.Errorf("density opacity must be between 0 and 1, got %v", d.Opacity)
	}
	if d.Levels < 1 {
		return fmt.Errorf("density levels must be positive, got %d", d.Levels)
	}
	if d.Threshold < 0 || d.Threshold >= 1 {
		return fmt.Errorf("density threshold must be in [0,1), got %v", d.Threshold)
	}
	if d.Bandwidth != BandwidthScott && d.Bandwidth != BandwidthSilverman {
		return fmt.Errorf("invalid bandwidth rule: %s (valid: scott, silverman)", d.Bandwidth)
	}
	if d.BandwidthScale <= 0 {
		return fmt.Errorf("bandwidth scale must be positive, got %v", d.BandwidthScale)
	}
	if d.GridSize < 8 {
		return fmt.Errorf("density grid size must be at least 8, got %d", d.GridSize)
	}
	if _, ok := colorMaps[d.ColorMap]; !ok {
		return fmt.Errorf("unknown color map: %s", d.ColorMap)
	}

	p := s.Path
	if p.MarkerRadius <= 0 {
		return fmt.Errorf("marker radius must be positive, got %v", p.MarkerRadius)
	}
	if p.LineWidth < 0 || p.OutlineWidth < 0 {
		return fmt.Errorf("line widths must be non-negative")
	}
	if p.FontScale <= 0 {
		return fmt.Errorf("font scale must be positive, got %v", p.FontScale)
	}
	return nil
}
