// Package visualization presents an analysis report in the browser, either
// as a static HTML page or through a local server that also streams the
// rendered images.
package visualization

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nvandessel/gazeviz/internal/report"
)

var pageTemplate = template.Must(template.ParseFS(templates, "templates/report.html.tmpl"))

// Artifact is one image referenced by a result.
type Artifact struct {
	ID    string
	Label string
	Path  string
}

// Artifacts lists the non-empty image paths of the i-th result. IDs are
// stable for a given report and unique across it.
func Artifacts(i int, r report.Result) []Artifact {
	candidates := []struct{ kind, label, path string }{
		{"gallery", "Gallery", r.GalleryPath},
		{"heatmap", "Heatmap", r.RenderedHeatmap},
		{"scanpath", "Scanpath", r.RenderedScanpath},
		{"image", "Original", r.ImagePath},
		{"saliency", "Saliency map", r.HeatmapPath},
		{"fixmap", "Fixation map", r.FixmapPath},
		{"overlay", "Saliency overlay", r.OverlayHeatmapPath},
		{"ref-scanpath", "Reference scanpath", r.ScanpathPath},
	}
	var out []Artifact
	for _, c := range candidates {
		if c.path == "" {
			continue
		}
		out = append(out, Artifact{ID: fmt.Sprintf("%d-%s", i, c.kind), Label: c.label, Path: c.path})
	}
	return out
}

// Image is an artifact as linked from the page.
type Image struct {
	Label string
	URL   string
}

// Entry is one result as shown on the page.
type Entry struct {
	Participant  string
	Media        string
	Category     string
	Block        string
	Response     string
	ModelError   bool
	Images       []Image
	RenderErrors []string
}

// Page is the data behind the HTML report.
type Page struct {
	Title       string
	Generated   time.Time
	Filter      string
	Total       int
	ModelErrors int
	Entries     []Entry
}

// LinkFunc maps an artifact to the URL the page should load it from.
type LinkFunc func(a Artifact) string

// Filter returns the results whose category contains the query,
// case-insensitively. An empty query returns every result.
func Filter(results []report.Result, category string) []int {
	q := strings.ToLower(strings.TrimSpace(category))
	var idx []int
	for i, r := range results {
		if q == "" || strings.Contains(strings.ToLower(r.Category), q) {
			idx = append(idx, i)
		}
	}
	return idx
}

// BuildPage assembles the page for results, keeping those matching the
// category filter.
func BuildPage(title string, results []report.Result, category string, link LinkFunc) Page {
	p := Page{
		Title:     title,
		Generated: time.Now(),
		Filter:    category,
		Total:     len(results),
	}
	for _, i := range Filter(results, category) {
		r := results[i]
		e := Entry{
			Participant: r.Participant,
			Media:       r.Media,
			Category:    r.Category,
			Block:       r.Block,
			Response:    r.Response,
			ModelError:  strings.HasPrefix(r.Response, "ERROR"),
		}
		if e.ModelError {
			p.ModelErrors++
		}
		for _, a := range Artifacts(i, r) {
			e.Images = append(e.Images, Image{Label: a.Label, URL: link(a)})
		}
		kinds := make([]string, 0, len(r.RenderErrors))
		for k := range r.RenderErrors {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			e.RenderErrors = append(e.RenderErrors, k+": "+r.RenderErrors[k])
		}
		p.Entries = append(p.Entries, e)
	}
	return p
}

// RenderHTML executes the report template.
func RenderHTML(p Page) ([]byte, error) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, p); err != nil {
		return nil, fmt.Errorf("executing template: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteHTML writes a static page for results to path. Images are linked
// relative to the page so the directory can be moved as a whole.
func WriteHTML(path, title string, results []report.Result, category string) error {
	base, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return err
	}
	link := func(a Artifact) string {
		target := a.Path
		if abs, err := filepath.Abs(target); err == nil {
			target = abs
		}
		if rel, err := filepath.Rel(base, target); err == nil {
			target = rel
		}
		return filepath.ToSlash(target)
	}

	html, err := RenderHTML(BuildPage(title, results, category, link))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(base, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	return os.WriteFile(path, html, 0644)
}
