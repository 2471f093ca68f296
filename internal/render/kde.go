package render

import (
	"errors"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/nvandessel/gazeviz/internal/fixation"
)

// minBandwidthFraction is the bandwidth floor as a fraction of the image
// dimension. A zero-variance axis (one fixation, or all fixations on a line)
// would otherwise collapse the kernel.
const minBandwidthFraction = 0.01

// Bandwidth holds the Gaussian kernel standard deviation per axis, in pixels.
type Bandwidth struct {
	X, Y float64
}

// EstimateBandwidth chooses a per-axis kernel bandwidth for the points.
//
// Scott's rule in two dimensions uses sigma * n^(-1/6). Silverman's rule is
// applied per axis as 0.9 * min(sigma, IQR/1.34) * n^(-1/5). The result is
// multiplied by scale and clamped below by 1% of the image dimension.
func EstimateBandwidth(pts []fixation.Point, rule string, scale float64, w, h int) Bandwidth {
	xs := make([]float64, len(pts))
	ys := make([]float64, len(pts))
	for i, p := range pts {
		xs[i], ys[i] = p.X, p.Y
	}

	var bx, by float64
	switch rule {
	case BandwidthSilverman:
		bx, by = silverman(xs), silverman(ys)
	default:
		f := math.Pow(float64(len(pts)), -1.0/6.0)
		bx, by = stddev(xs)*f, stddev(ys)*f
	}

	return Bandwidth{
		X: math.Max(bx*scale, minBandwidthFraction*float64(w)),
		Y: math.Max(by*scale, minBandwidthFraction*float64(h)),
	}
}

func silverman(v []float64) float64 {
	sd := stddev(v)
	spread := sd
	sorted := slices.Clone(v)
	slices.Sort(sorted)
	q1 := stat.Quantile(0.25, stat.LinInterp, sorted, nil)
	q3 := stat.Quantile(0.75, stat.LinInterp, sorted, nil)
	if iqr := q3 - q1; iqr > 0 && iqr/1.34 < sd {
		spread = iqr / 1.34
	}
	return 0.9 * spread * math.Pow(float64(len(v)), -0.2)
}

// stddev is the sample standard deviation (n-1). It is 0 for n < 2.
func stddev(v []float64) float64 {
	if len(v) < 2 {
		return 0
	}
	return stat.StdDev(v, nil)
}

// DensityGrid is a density surface sampled at cell centers over the full
// [0,W]×[0,H] image plane. Row 0 is the top of the image.
type DensityGrid struct {
	Cols, Rows int
	// ImageW and ImageH are the pixel dimensions the grid spans.
	ImageW, ImageH int
	Values         []float64 // row-major, len Cols*Rows
	Max            float64
	Bandwidth      Bandwidth
}

// At returns the density of cell (col, row).
func (g *DensityGrid) At(col, row int) float64 {
	return g.Values[row*g.Cols+col]
}

// CellCenter returns the pixel-space center of cell (col, row).
func (g *DensityGrid) CellCenter(col, row int) fixation.Point {
	return fixation.Point{
		X: (float64(col) + 0.5) * float64(g.ImageW) / float64(g.Cols),
		Y: (float64(row) + 0.5) * float64(g.ImageH) / float64(g.Rows),
	}
}

var errDegenerate = errors.New("density surface is degenerate")

// EstimateDensity evaluates a Gaussian kernel density estimate of pts on a
// grid covering the whole w×h image. The grid's longer edge has at most
// gridSize cells; the shorter edge is scaled proportionally.
func EstimateDensity(pts []fixation.Point, w, h int, style DensityStyle) (*DensityGrid, error) {
	if len(pts) == 0 {
		return nil, ErrEmptyInput
	}
	if w <= 0 || h <= 0 {
		return nil, errors.New("image has no pixels")
	}
	for _, p := range pts {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return nil, errors.New("fixation coordinate is not finite")
		}
	}

	cols, rows := gridDims(w, h, style.GridSize)
	bw := EstimateBandwidth(pts, style.Bandwidth, style.BandwidthScale, w, h)

	// The Gaussian kernel is separable, so each point contributes
	// kx[col] * ky[row]. Precomputing both factors keeps evaluation at
	// O(n * cols * rows) multiplications without exp calls in the inner loop.
	kx := make([]float64, cols)
	ky := make([]float64, rows)
	values := make([]float64, cols*rows)
	cellW := float64(w) / float64(cols)
	cellH := float64(h) / float64(rows)

	for _, p := range pts {
		for c := range kx {
			d := ((float64(c)+0.5)*cellW - p.X) / bw.X
			kx[c] = math.Exp(-0.5 * d * d)
		}
		for r := range ky {
			d := ((float64(r)+0.5)*cellH - p.Y) / bw.Y
			ky[r] = math.Exp(-0.5 * d * d)
		}
		for r, yv := range ky {
			if yv < 1e-12 {
				continue
			}
			row := values[r*cols : (r+1)*cols]
			for c, xv := range kx {
				row[c] += xv * yv
			}
		}
	}

	norm := 1 / (2 * math.Pi * bw.X * bw.Y * float64(len(pts)))
	var peak float64
	for i := range values {
		values[i] *= norm
		peak = math.Max(peak, values[i])
	}
	if peak <= 0 || math.IsNaN(peak) || math.IsInf(peak, 0) {
		return nil, errDegenerate
	}

	return &DensityGrid{
		Cols:      cols,
		Rows:      rows,
		ImageW:    w,
		ImageH:    h,
		Values:    values,
		Max:       peak,
		Bandwidth: bw,
	}, nil
}

func gridDims(w, h, gridSize int) (cols, rows int) {
	long := max(w, h)
	n := min(gridSize, long)
	cols = max(1, int(math.Round(float64(w)*float64(n)/float64(long))))
	rows = max(1, int(math.Round(float64(h)*float64(n)/float64(long))))
	return cols, rows
}
