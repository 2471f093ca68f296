package report

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/document"
	"seehuhn.de/go/pdf/font"
	"seehuhn.de/go/pdf/font/standard"
	pdfimage "seehuhn.de/go/pdf/graphics/image"

	"github.com/nvandessel/gazeviz/internal/dataset"
)

const (
	pdfMargin    = 50.0
	bodyFontSize = 11.0
	bodyLeading  = 14.0
	// wrapColumns fits 11pt Helvetica inside the A4 text width.
	wrapColumns = 90
)

// PDFPath returns where the PDF report for u is written.
func PDFPath(dir string, u dataset.Unit) string {
	return filepath.Join(dir, "report_"+u.OutputName()+".pdf")
}

// WritePDF writes the per-unit report: a portrait A4 header naming the
// media, participant and category, followed by the model response. When
// galleryPath is set the gallery is placed on a final landscape page. Long
// responses continue on further portrait pages. The file is replaced
// atomically.
func WritePDF(result Result, galleryPath, outputPath string) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(outputPath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := writePDF(tmp, result, galleryPath); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpName, outputPath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming pdf report: %w", err)
	}
	return nil
}

func writePDF(f *os.File, result Result, galleryPath string) error {
	doc, err := document.WriteMultiPage(f, document.A4, pdf.V1_7, nil)
	if err != nil {
		return fmt.Errorf("creating pdf: %w", err)
	}

	w := &textWriter{
		doc:     doc,
		regular: standard.Helvetica.New(),
		bold:    standard.HelveticaBold.New(),
	}
	w.newPage()
	w.line(w.bold, 16, "Eye-tracking analysis")
	w.skip(10)
	w.line(w.bold, 12, "Media: "+result.Media)
	w.line(w.regular, 12, fmt.Sprintf("Participant: %s | Category: %s", result.Participant, result.Category))
	w.skip(16)
	w.line(w.bold, 14, "Model report")
	w.skip(4)
	for _, para := range strings.Split(result.Response, "\n") {
		for _, l := range wrapText(para, wrapColumns) {
			w.line(w.regular, bodyFontSize, l)
		}
	}
	if err := w.closePage(); err != nil {
		return err
	}

	if galleryPath != "" {
		if err := addGalleryPage(doc, w.bold, galleryPath); err != nil {
			return err
		}
	}

	if err := doc.Close(); err != nil {
		return fmt.Errorf("writing pdf: %w", err)
	}
	return nil
}

// textWriter flows lines of text down portrait pages, starting a new page
// when the bottom margin is reached.
type textWriter struct {
	doc     *document.MultiPage
	page    *document.Page
	regular font.Instance
	bold    font.Instance
	y       float64
	err     error
}

func (w *textWriter) newPage() {
	w.page = w.doc.AddPage()
	w.y = document.A4.URy - pdfMargin
}

func (w *textWriter) closePage() error {
	if w.page == nil {
		return w.err
	}
	if err := w.page.Close(); err != nil && w.err == nil {
		w.err = fmt.Errorf("writing pdf page: %w", err)
	}
	w.page = nil
	return w.err
}

func (w *textWriter) skip(dy float64) {
	w.y -= dy
}

func (w *textWriter) line(f font.Instance, size float64, s string) {
	leading := size * bodyLeading / bodyFontSize
	if w.y-leading < pdfMargin {
		if w.closePage() != nil {
			return
		}
		w.newPage()
	}
	w.y -= leading
	if s == "" {
		return
	}
	p := w.page
	p.TextBegin()
	p.TextSetFont(f, size)
	p.TextFirstLine(pdfMargin, w.y)
	p.TextShow(latin1(s))
	p.TextEnd()
}

func addGalleryPage(doc *document.MultiPage, titleFont font.Instance, galleryPath string) error {
	gf, err := os.Open(galleryPath)
	if err != nil {
		return fmt.Errorf("opening gallery: %w", err)
	}
	img, err := png.Decode(gf)
	gf.Close()
	if err != nil {
		return fmt.Errorf("decoding gallery %s: %w", galleryPath, err)
	}
	pdfImg, err := pdfimage.JPEG(img, nil)
	if err != nil {
		return fmt.Errorf("embedding gallery: %w", err)
	}

	paper := document.A4r
	page := doc.AddPage()
	page.SetPageSize(paper)

	top := paper.URy - pdfMargin
	page.TextBegin()
	page.TextSetFont(titleFont, 14)
	page.TextFirstLine(pdfMargin, top-14)
	page.TextShow("Analysis gallery")
	page.TextEnd()

	b := img.Bounds()
	maxW := paper.URx - 2*pdfMargin
	maxH := top - 30 - pdfMargin
	scale := min(maxW/float64(b.Dx()), maxH/float64(b.Dy()))
	w, h := float64(b.Dx())*scale, float64(b.Dy())*scale

	page.PushGraphicsState()
	page.Transform(matrix.Matrix{w, 0, 0, h, pdfMargin, top - 30 - h})
	page.DrawXObject(pdfImg)
	page.PopGraphicsState()

	if err := page.Close(); err != nil {
		return fmt.Errorf("writing gallery page: %w", err)
	}
	return nil
}

// wrapText breaks s on spaces into lines of at most width runes. Words
// longer than width are split.
func wrapText(s string, width int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{""}
	}
	var lines []string
	var cur strings.Builder
	n := 0
	for _, word := range words {
		for utf8.RuneCountInString(word) > width {
			if n > 0 {
				lines = append(lines, cur.String())
				cur.Reset()
				n = 0
			}
			r := []rune(word)
			lines = append(lines, string(r[:width]))
			word = string(r[width:])
		}
		wl := utf8.RuneCountInString(word)
		if n > 0 && n+1+wl > width {
			lines = append(lines, cur.String())
			cur.Reset()
			n = 0
		}
		if n > 0 {
			cur.WriteByte(' ')
			n++
		}
		cur.WriteString(word)
		n += wl
	}
	if n > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}

// latin1 replaces runes the standard fonts cannot show with '?'.
func latin1(s string) string {
	return strings.Map(func(r rune) rune {
		if r > 0xFF {
			return '?'
		}
		return r
	}, s)
}
