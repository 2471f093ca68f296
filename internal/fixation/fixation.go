// Package fixation models eye-tracker fixation logs and the ordered fixation
// sequences that the renderers consume.
package fixation

import (
	"cmp"
	"slices"
)

// Fixation is a single recorded gaze fixation.
// X and Y are normalized to [0,1] relative to the stimulus, origin top-left,
// y increasing downward.
type Fixation struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	StartTime  float64 `json:"start_time"` // seconds since trial start
	Duration   float64 `json:"duration"`   // seconds
	SequenceID int     `json:"sequence_id"`
}

// Sequence is an ordered list of fixations. Order is temporal order.
type Sequence []Fixation

// Point is a position in pixel space.
type Point struct {
	X, Y float64
}

// PixelPoints maps every fixation to pixel coordinates on a w×h image,
// preserving temporal order.
func (s Sequence) PixelPoints(w, h int) []Point {
	pts := make([]Point, len(s))
	for i, f := range s {
		pts[i] = ToPixel(f.X, f.Y, w, h)
	}
	return pts
}

// ToPixel maps a normalized coordinate to pixel space: px = x*W, py = y*H.
func ToPixel(x, y float64, w, h int) Point {
	return Point{X: x * float64(w), Y: y * float64(h)}
}

// Sorted returns a copy of the sequence ordered by sequence ID, then start
// time. Ties keep their original relative order.
func (s Sequence) Sorted() Sequence {
	out := slices.Clone(s)
	slices.SortStableFunc(out, func(a, b Fixation) int {
		if c := cmp.Compare(a.SequenceID, b.SequenceID); c != 0 {
			return c
		}
		return cmp.Compare(a.StartTime, b.StartTime)
	})
	return out
}

// Summary holds aggregate statistics over a sequence.
type Summary struct {
	Count         int
	TotalDuration float64
	MeanDuration  float64
}

// Summarize computes count and duration statistics for a sequence.
func Summarize(s Sequence) Summary {
	sum := Summary{Count: len(s)}
	if len(s) == 0 {
		return sum
	}
	for _, f := range s {
		sum.TotalDuration += f.Duration
	}
	sum.MeanDuration = sum.TotalDuration / float64(len(s))
	return sum
}
