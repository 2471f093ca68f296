package report

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/pagetree"

	"github.com/nvandessel/gazeviz/internal/dataset"
	"github.com/nvandessel/gazeviz/internal/render"
)

func pdfPageCount(t *testing.T, path string) int {
	t.Helper()
	r, err := pdf.Open(path, nil)
	if err != nil {
		t.Fatalf("opening %s: %v", path, err)
	}
	defer r.Close()
	n, err := pagetree.NumPages(r)
	if err != nil {
		t.Fatalf("counting pages: %v", err)
	}
	return n
}

func TestWritePDF(t *testing.T) {
	dir := t.TempDir()
	gallery := filepath.Join(dir, "gallery.png")
	img := image.NewRGBA(image.Rect(0, 0, 300, 120))
	for x := 0; x < 300; x++ {
		for y := 0; y < 120; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: 200, B: 40, A: 255})
		}
	}
	if err := render.SavePNG(img, gallery); err != nil {
		t.Fatal(err)
	}

	result := Result{
		Participant: "01",
		Media:       "café.jpg",
		Category:    "Scenes",
		Response:    "First paragraph about the fixations.\n\nSecond paragraph → with a rune outside Latin-1.",
	}

	tests := []struct {
		name     string
		gallery  string
		response string
		minPages int
		maxPages int
	}{
		{"text and gallery", gallery, result.Response, 2, 2},
		{"text only", "", result.Response, 1, 1},
		{"long response flows onto more pages", "", strings.Repeat("word ", 6000), 2, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(dir, "out", strings.ReplaceAll(tt.name, " ", "_")+".pdf")
			r := result
			r.Response = tt.response
			if err := WritePDF(r, tt.gallery, out); err != nil {
				t.Fatalf("WritePDF() error = %v", err)
			}
			if got := pdfPageCount(t, out); got < tt.minPages || got > tt.maxPages {
				t.Errorf("pages = %d, want %d..%d", got, tt.minPages, tt.maxPages)
			}
		})
	}

	entries, err := os.ReadDir(filepath.Join(dir, "out"))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestWritePDF_MissingGallery(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "report.pdf")
	err := WritePDF(Result{Media: "a.png", Response: "ok"}, filepath.Join(dir, "nope.png"), out)
	if err == nil {
		t.Fatal("WritePDF() succeeded with a missing gallery")
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Error("failed WritePDF left an output file")
	}
}

func TestPDFPath(t *testing.T) {
	u := dataset.Unit{Participant: "3", Media: "photo.v2.jpg"}
	if got := PDFPath("reports", u); got != filepath.Join("reports", "report_photo_P03.pdf") {
		t.Errorf("PDFPath = %q", got)
	}
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  []string
	}{
		{"", 10, []string{""}},
		{"one two three", 7, []string{"one two", "three"}},
		{"abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"olá   mundo", 20, []string{"olá mundo"}},
	}
	for _, tt := range tests {
		got := wrapText(tt.in, tt.width)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") {
			t.Errorf("wrapText(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
