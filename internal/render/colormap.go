package render

import (
	"image/color"
	"math"
)

// ColorMap maps t in [0,1] to an opaque color.
type ColorMap func(t float64) color.NRGBA

var colorMaps = map[string]ColorMap{
	"jet": Jet,
	"hot": Hot,
}

// LookupColorMap returns the named color map.
func LookupColorMap(name string) (ColorMap, bool) {
	cm, ok := colorMaps[name]
	return cm, ok
}

type stop struct{ at, v float64 }

// Segment tables of the classic "jet" map: blue → cyan → yellow → red.
var (
	jetRed   = []stop{{0, 0}, {0.35, 0}, {0.66, 1}, {0.89, 1}, {1, 0.5}}
	jetGreen = []stop{{0, 0}, {0.125, 0}, {0.375, 1}, {0.64, 1}, {0.91, 0}, {1, 0}}
	jetBlue  = []stop{{0, 0.5}, {0.11, 1}, {0.34, 1}, {0.65, 0}, {1, 0}}
)

// Jet is the rainbow-style "jet" palette.
func Jet(t float64) color.NRGBA {
	t = clamp01(t)
	return color.NRGBA{
		R: unit8(interp(jetRed, t)),
		G: unit8(interp(jetGreen, t)),
		B: unit8(interp(jetBlue, t)),
		A: 255,
	}
}

var (
	hotRed   = []stop{{0, 0.0416}, {0.365, 1}, {1, 1}}
	hotGreen = []stop{{0, 0}, {0.365, 0}, {0.746, 1}, {1, 1}}
	hotBlue  = []stop{{0, 0}, {0.746, 0}, {1, 1}}
)

// Hot is a black → red → yellow → white palette.
func Hot(t float64) color.NRGBA {
	t = clamp01(t)
	return color.NRGBA{
		R: unit8(interp(hotRed, t)),
		G: unit8(interp(hotGreen, t)),
		B: unit8(interp(hotBlue, t)),
		A: 255,
	}
}

func interp(stops []stop, t float64) float64 {
	for i := 1; i < len(stops); i++ {
		if t <= stops[i].at {
			a, b := stops[i-1], stops[i]
			if b.at == a.at {
				return b.v
			}
			return a.v + (b.v-a.v)*(t-a.at)/(b.at-a.at)
		}
	}
	return stops[len(stops)-1].v
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func unit8(v float64) uint8 {
	return uint8(math.Round(clamp01(v) * 255))
}
