package report

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"path/filepath"
	"strings"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/draw"

	"github.com/nvandessel/gazeviz/internal/dataset"
	"github.com/nvandessel/gazeviz/internal/render"
)

// GalleryItem is one titled cell of a gallery.
type GalleryItem struct {
	Title string
	Path  string
}

// GalleryLayout controls the gallery grid geometry.
type GalleryLayout struct {
	Cols        int
	ThumbWidth  int
	ThumbHeight int
	Padding     int
	Spacing     int
	TitleHeight int
	FontSize    float64
	FontName    string
	FontDirs    []string
}

// DefaultGalleryLayout returns a three-column grid of 800×600 cells.
func DefaultGalleryLayout() GalleryLayout {
	return GalleryLayout{
		Cols:        3,
		ThumbWidth:  800,
		ThumbHeight: 600,
		Padding:     40,
		Spacing:     30,
		TitleHeight: 40,
		FontSize:    32,
		FontName:    "arial",
	}
}

var placeholderGray = color.RGBA{230, 230, 230, 255}

// Size returns the canvas size for n items.
func (l GalleryLayout) Size(n int) image.Point {
	cols := max(l.Cols, 1)
	rows := max((n+cols-1)/cols, 1)
	return image.Point{
		X: l.ThumbWidth*cols + l.Spacing*(cols-1) + l.Padding*2,
		Y: (l.ThumbHeight+l.TitleHeight)*rows + l.Spacing*(rows-1) + l.Padding*2,
	}
}

// cell returns the top-left corner of item i's title.
func (l GalleryLayout) cell(i int) image.Point {
	cols := max(l.Cols, 1)
	col, row := i%cols, i/cols
	return image.Point{
		X: l.Padding + col*(l.ThumbWidth+l.Spacing),
		Y: l.Padding + row*(l.ThumbHeight+l.TitleHeight+l.Spacing),
	}
}

// UnitGallery lists the standard gallery cells for a unit: the stimulus,
// the precomputed saliency artifacts and the freshly rendered maps.
func UnitGallery(u dataset.Unit, duration, renderedHeatmap, renderedScanpath string) []GalleryItem {
	items := []GalleryItem{
		{"Base image", u.ImagePath},
		{fmt.Sprintf("Heatmap (%s)", duration), u.HeatmapPath},
		{fmt.Sprintf("Overlay heatmap (%s)", duration), u.OverlayHeatmapPath},
		{fmt.Sprintf("Scanpath (%s)", duration), u.ScanpathPath},
		{fmt.Sprintf("Fixation map (%s)", duration), u.FixmapPath},
	}
	if renderedHeatmap != "" {
		items = append(items, GalleryItem{"Heatmap (rendered)", renderedHeatmap})
	}
	if renderedScanpath != "" {
		items = append(items, GalleryItem{"Scanpath (rendered)", renderedScanpath})
	}
	return items
}

// GalleryPath returns where the gallery for u is written.
func GalleryPath(dir string, u dataset.Unit) string {
	return filepath.Join(dir, "gallery_"+u.OutputName()+".png")
}

// ComposeGallery lays items out on a white grid with a title above each
// thumbnail and writes the result as PNG. Thumbnails keep their aspect ratio
// and are never enlarged. Items that cannot be loaded become gray
// placeholders naming the missing file. It returns the number of
// placeholders drawn.
func ComposeGallery(items []GalleryItem, outputPath string, layout GalleryLayout) (int, error) {
	size := layout.Size(len(items))
	canvas := image.NewRGBA(image.Rectangle{Max: size})
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)

	type note struct {
		at    image.Point
		lines []string
	}
	var notes []note

	for i, item := range items {
		origin := layout.cell(i)
		thumbAt := origin.Add(image.Point{Y: layout.TitleHeight})

		img, err := render.LoadBaseImage(item.Path)
		if err != nil {
			r := image.Rectangle{Min: thumbAt, Max: thumbAt.Add(image.Point{layout.ThumbWidth, layout.ThumbHeight})}
			draw.Draw(canvas, r, &image.Uniform{placeholderGray}, image.Point{}, draw.Src)
			msg := "Image not found:"
			if render.Kind(err) != render.KindInputNotFound {
				msg = "Unreadable image:"
			}
			notes = append(notes, note{
				at:    thumbAt.Add(image.Point{50, layout.ThumbHeight/2 - 20}),
				lines: []string{msg, filepath.Base(item.Path)},
			})
			continue
		}

		tw, th := fitWithin(img.Bounds().Dx(), img.Bounds().Dy(), layout.ThumbWidth, layout.ThumbHeight)
		dst := image.Rectangle{Min: thumbAt, Max: thumbAt.Add(image.Point{tw, th})}
		draw.CatmullRom.Scale(canvas, dst, img, img.Bounds(), draw.Over, nil)
	}

	dc := gg.NewContextForImage(canvas)
	defer dc.Close()
	dc.SetRGB(0, 0, 0)

	title := render.ResolveFont(layout.FontName, layout.FontSize, layout.FontDirs...)
	if title.Face != nil {
		dc.SetFont(title.Face)
		ascent := title.Face.Metrics().Ascent
		for i, item := range items {
			at := layout.cell(i)
			dc.DrawString(item.Title, float64(at.X), float64(at.Y)+ascent)
		}
	}

	small := render.ResolveFont(layout.FontName, layout.FontSize*0.6, layout.FontDirs...)
	if small.Face != nil && len(notes) > 0 {
		dc.SetFont(small.Face)
		m := small.Face.Metrics()
		for _, n := range notes {
			y := float64(n.at.Y) + m.Ascent
			for _, line := range n.lines {
				dc.DrawString(truncate(small.Face, line, float64(layout.ThumbWidth-100)), float64(n.at.X), y)
				y += m.LineHeight()
			}
		}
	}

	if err := dc.FlushGPU(); err != nil {
		return len(notes), fmt.Errorf("flushing gallery canvas: %w", err)
	}
	return len(notes), render.SavePNG(dc.Image(), outputPath)
}

// fitWithin scales w×h down to fit inside maxW×maxH, keeping the aspect
// ratio. Images that already fit are returned unchanged.
func fitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	scale := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	return max(int(math.Round(float64(w)*scale)), 1), max(int(math.Round(float64(h)*scale)), 1)
}

// truncate shortens s with an ellipsis until it fits in width pixels.
func truncate(face text.Face, s string, width float64) string {
	if face.Advance(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 1 {
		r = r[:len(r)-1]
		if t := string(r) + "…"; face.Advance(t) <= width {
			return t
		}
	}
	return strings.TrimSpace(string(r))
}
