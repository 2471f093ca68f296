package render

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/document"
	"seehuhn.de/go/pdf/graphics"
	pdfcolor "seehuhn.de/go/pdf/graphics/color"

	"github.com/nvandessel/gazeviz/internal/fixation"
)

// circleKappa places cubic Bézier control points for a quarter circle.
const circleKappa = 0.5522847498307936

// ExportScanpathPDF writes the scanpath as a single-page vector PDF of w×h
// points. Markers are drawn in gray levels matching the luminance of the
// style colors. Ordinal labels are not included.
func ExportScanpathPDF(seq fixation.Sequence, w, h int, outputPath string, style PathStyle) error {
	if len(seq) == 0 {
		return ErrEmptyInput
	}

	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &PersistenceError{Path: outputPath, Err: err}
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(outputPath)+".*.tmp")
	if err != nil {
		return &PersistenceError{Path: outputPath, Err: err}
	}
	tmpName := tmp.Name()

	if err := writeScanpathPDF(tmp, seq.PixelPoints(w, h), w, h, style); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &PersistenceError{Path: outputPath, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &PersistenceError{Path: outputPath, Err: err}
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return &PersistenceError{Path: outputPath, Err: err}
	}
	if err := os.Rename(tmpName, outputPath); err != nil {
		os.Remove(tmpName)
		return &PersistenceError{Path: outputPath, Err: err}
	}
	return nil
}

func writeScanpathPDF(out io.Writer, pts []fixation.Point, w, h int, style PathStyle) error {
	paper := &pdf.Rectangle{URx: float64(w), URy: float64(h)}
	page, err := document.WriteSinglePage(out, paper, pdf.V1_7, nil)
	if err != nil {
		return fmt.Errorf("creating pdf: %w", err)
	}

	// PDF origin is bottom-left; fixations use top-left.
	page.Transform(matrix.Matrix{1, 0, 0, -1, 0, float64(h)})

	if len(pts) > 1 {
		page.SetLineWidth(style.LineWidth)
		page.SetLineCap(graphics.LineCapRound)
		page.SetLineJoin(graphics.LineJoinRound)
		page.SetStrokeColor(pdfcolor.DeviceGray(luminance(style.LineColor)))
		page.MoveTo(pts[0].X, pts[0].Y)
		for _, p := range pts[1:] {
			page.LineTo(p.X, p.Y)
		}
		page.Stroke()
	}

	r := style.MarkerRadius
	k := r * circleKappa
	circle := func(p fixation.Point) {
		page.MoveTo(p.X+r, p.Y)
		page.CurveTo(p.X+r, p.Y+k, p.X+k, p.Y+r, p.X, p.Y+r)
		page.CurveTo(p.X-k, p.Y+r, p.X-r, p.Y+k, p.X-r, p.Y)
		page.CurveTo(p.X-r, p.Y-k, p.X-k, p.Y-r, p.X, p.Y-r)
		page.CurveTo(p.X+k, p.Y-r, p.X+r, p.Y-k, p.X+r, p.Y)
		page.ClosePath()
	}

	page.SetLineWidth(style.OutlineWidth)
	page.SetStrokeColor(pdfcolor.DeviceGray(luminance(style.OutlineColor)))
	for i, p := range pts {
		page.SetFillColor(pdfcolor.DeviceGray(luminance(style.Color(MarkerRole(i, len(pts))))))
		circle(p)
		page.Fill()
		if style.OutlineWidth > 0 {
			circle(p)
			page.Stroke()
		}
	}

	return page.Close()
}

// luminance returns the Rec. 601 luma of c in [0,1].
func luminance(c color.NRGBA) float64 {
	return (0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)) / 255
}
