package visualization

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/gazeviz/internal/report"
)

func TestArtifacts(t *testing.T) {
	r := report.Result{
		ImagePath:       "images/cat.png",
		RenderedHeatmap: "renders/h.png",
		GalleryPath:     "reports/g.png",
	}
	got := Artifacts(3, r)
	var ids []string
	for _, a := range got {
		ids = append(ids, a.ID)
	}
	if strings.Join(ids, ",") != "3-gallery,3-heatmap,3-image" {
		t.Errorf("ids = %v", ids)
	}
}

func TestFilter(t *testing.T) {
	results := []report.Result{{Category: "Animals"}, {Category: "Urban landscape"}, {Category: ""}}
	tests := []struct {
		query string
		want  int
	}{
		{"", 3},
		{"  ", 3},
		{"ANIMAL", 1},
		{"land", 1},
		{"water", 0},
	}
	for _, tt := range tests {
		if got := len(Filter(results, tt.query)); got != tt.want {
			t.Errorf("Filter(%q) = %d results, want %d", tt.query, got, tt.want)
		}
	}
}

func TestBuildPage(t *testing.T) {
	results := []report.Result{
		{Participant: "01", Media: "a.png", Response: "ok", RenderErrors: map[string]string{"scanpath": "x", "heatmap": "y"}},
		{Participant: "02", Media: "b.png", Response: "ERROR: timeout"},
	}
	p := BuildPage("T", results, "", func(a Artifact) string { return a.ID })
	if p.Total != 2 || len(p.Entries) != 2 || p.ModelErrors != 1 {
		t.Fatalf("page = %+v", p)
	}
	if got := strings.Join(p.Entries[0].RenderErrors, ";"); got != "heatmap: y;scanpath: x" {
		t.Errorf("RenderErrors = %q", got)
	}
	if !p.Entries[1].ModelError {
		t.Error("second entry should be flagged as a model error")
	}
}

func TestWriteHTML_RelativeLinks(t *testing.T) {
	dir := t.TempDir()
	results := []report.Result{{
		Participant:     "01",
		Media:           "cat.png",
		RenderedHeatmap: filepath.Join(dir, "renders", "P01_cat_heatmap.png"),
		Response:        "Olhou para o gato",
	}}

	out := filepath.Join(dir, "view", "report.html")
	if err := WriteHTML(out, "Gaze report", results, ""); err != nil {
		t.Fatalf("WriteHTML() error = %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	html := string(data)
	if !strings.Contains(html, `src="../renders/P01_cat_heatmap.png"`) {
		t.Errorf("expected a relative image link, got:\n%s", html)
	}
	if !strings.Contains(html, "Olhou para o gato") || !strings.Contains(html, "<title>Gaze report</title>") {
		t.Error("page is missing the title or response")
	}
}
