package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"strconv"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/draw"

	"github.com/nvandessel/gazeviz/internal/fixation"
)

// Role is a marker's position in the sequence.
type Role int

const (
	RoleStart Role = iota
	RoleInterior
	RoleEnd
)

func (r Role) String() string {
	switch r {
	case RoleStart:
		return "start"
	case RoleEnd:
		return "end"
	default:
		return "interior"
	}
}

// MarkerRole returns the role of marker i in a sequence of n fixations.
// The start role wins for a single-fixation sequence.
func MarkerRole(i, n int) Role {
	switch {
	case i == 0:
		return RoleStart
	case i == n-1:
		return RoleEnd
	default:
		return RoleInterior
	}
}

// Color returns the marker fill for role r.
func (p PathStyle) Color(r Role) color.NRGBA {
	switch r {
	case RoleStart:
		return p.StartColor
	case RoleEnd:
		return p.EndColor
	default:
		return p.InteriorColor
	}
}

// RenderScanpath draws the ordered scanpath onto a copy of base and writes
// the opaque result to outputPath.
func RenderScanpath(ctx context.Context, seq fixation.Sequence, base image.Image, outputPath string, style Style) error {
	if len(seq) == 0 {
		return ErrEmptyInput
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	img, err := DrawScanpath(seq, base, style.Path)
	if err != nil {
		return &RenderError{Op: "scanpath", Path: outputPath, Err: err}
	}
	return SavePNG(img, outputPath)
}

// DrawScanpath returns base with the polyline, markers and ordinal labels
// drawn on top. The result has the same dimensions as base and is opaque.
func DrawScanpath(seq fixation.Sequence, base image.Image, style PathStyle) (*image.RGBA, error) {
	if len(seq) == 0 {
		return nil, ErrEmptyInput
	}

	work := workingCopy(base)
	w, h := work.Bounds().Dx(), work.Bounds().Dy()
	pts := seq.PixelPoints(w, h)

	dc := gg.NewContextForImage(work)
	defer dc.Close()

	if len(pts) > 1 {
		setColor(dc, style.LineColor)
		dc.SetLineWidth(style.LineWidth)
		dc.SetLineJoin(gg.LineJoinRound)
		dc.SetLineCap(gg.LineCapRound)
		dc.MoveTo(pts[0].X, pts[0].Y)
		for _, p := range pts[1:] {
			dc.LineTo(p.X, p.Y)
		}
		if err := dc.Stroke(); err != nil {
			return nil, fmt.Errorf("stroking polyline: %w", err)
		}
	}

	r := style.MarkerRadius
	font := ResolveFont(style.FontName, r*style.FontScale, style.FontDirs...)
	if font.Face != nil {
		dc.SetFont(font.Face)
	}

	for i, p := range pts {
		dc.DrawCircle(p.X, p.Y, r)
		setColor(dc, style.Color(MarkerRole(i, len(pts))))
		if err := dc.FillPreserve(); err != nil {
			return nil, fmt.Errorf("filling marker %d: %w", i+1, err)
		}
		if style.OutlineWidth > 0 {
			setColor(dc, style.OutlineColor)
			dc.SetLineWidth(style.OutlineWidth)
			if err := dc.Stroke(); err != nil {
				return nil, fmt.Errorf("outlining marker %d: %w", i+1, err)
			}
		} else {
			dc.ClearPath()
		}

		if font.Face != nil {
			setColor(dc, style.LabelColor)
			x, y := LabelOrigin(font.Face, strconv.Itoa(i+1), p)
			dc.DrawString(strconv.Itoa(i+1), x, y)
		}
	}

	if err := dc.FlushGPU(); err != nil {
		return nil, fmt.Errorf("flushing canvas: %w", err)
	}
	out := image.NewRGBA(work.Bounds())
	draw.Draw(out, out.Bounds(), dc.Image(), image.Point{}, draw.Src)
	return out, nil
}

// LabelOrigin returns the baseline origin that centers label on center:
// horizontally by advance width, vertically by cap height.
func LabelOrigin(face text.Face, label string, center fixation.Point) (x, y float64) {
	m := face.Metrics()
	capHeight := m.CapHeight
	if capHeight <= 0 {
		capHeight = m.Ascent * 0.7
	}
	return center.X - face.Advance(label)/2, center.Y + capHeight/2
}

// setColor sets a straight-alpha color on dc.
func setColor(dc *gg.Context, c color.NRGBA) {
	dc.SetRGBA(float64(c.R)/255, float64(c.G)/255, float64(c.B)/255, float64(c.A)/255)
}
