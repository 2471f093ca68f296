package batch

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nvandessel/gazeviz/internal/dataset"
	"github.com/nvandessel/gazeviz/internal/fixation"
	"github.com/nvandessel/gazeviz/internal/render"
)

func writeBase(t *testing.T, path string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.SetNRGBA(x, y, color.NRGBA{200, 200, 200, 255})
		}
	}
	if err := render.SavePNG(img, path); err != nil {
		t.Fatal(err)
	}
}

func unit(participant, media, imagePath string, seq fixation.Sequence) dataset.Unit {
	return dataset.Unit{Participant: participant, Media: media, ImagePath: imagePath, Fixations: seq}
}

var threePoints = fixation.Sequence{
	{X: 0.1, Y: 0.1, SequenceID: 1},
	{X: 0.5, Y: 0.5, SequenceID: 2},
	{X: 0.9, Y: 0.9, SequenceID: 3},
}

func TestArtifactPath(t *testing.T) {
	u := dataset.Unit{Participant: "1", Media: "cat.jpg"}
	tests := map[string]string{
		KindHeatmap:     filepath.Join("out", "heatmap_cat_P01.png"),
		KindScanpath:    filepath.Join("out", "scanpath_cat_P01.png"),
		KindScanpathPDF: filepath.Join("out", "scanpath_cat_P01.pdf"),
	}
	for kind, want := range tests {
		if got := ArtifactPath("out", u, kind); got != want {
			t.Errorf("ArtifactPath(%s) = %q, want %q", kind, got, want)
		}
	}
}

func TestRun_IsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "images", "cat.png")
	writeBase(t, img)
	out := filepath.Join(dir, "out")

	units := []dataset.Unit{
		unit("01", "cat.png", img, threePoints),
		unit("02", "missing.png", filepath.Join(dir, "images", "missing.png"), threePoints),
		unit("03", "cat.png", img, nil),
		unit("04", "cat.png", img, threePoints[:1]),
	}

	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := &Runner{
		Workers:   2,
		Style:     render.DefaultStyle(),
		OutputDir: out,
		PDF:       true,
		now:       func() time.Time { return clock },
	}
	summary := r.Run(context.Background(), units)

	if len(summary.Items) != 4 {
		t.Fatalf("items = %d, want 4", len(summary.Items))
	}
	if summary.Succeeded != 2 || summary.Failed != 2 {
		t.Errorf("succeeded/failed = %d/%d, want 2/2", summary.Succeeded, summary.Failed)
	}
	if !summary.StartedAt.Equal(clock) || !summary.FinishedAt.Equal(clock) {
		t.Errorf("timestamps = %v/%v, want injected clock", summary.StartedAt, summary.FinishedAt)
	}

	for i, item := range summary.Items {
		if item.Unit.Participant != units[i].Participant {
			t.Errorf("item %d participant = %s, want input order", i, item.Unit.Participant)
		}
		if len(item.Artifacts) != 3 {
			t.Errorf("item %d artifacts = %d, want 3", i, len(item.Artifacts))
		}
	}

	ok := summary.Items[0]
	for _, a := range ok.Artifacts {
		if !a.OK() {
			t.Errorf("artifact %s failed: %v", a.Kind, a.Err)
			continue
		}
		if _, err := os.Stat(a.Path); err != nil {
			t.Errorf("artifact %s not written: %v", a.Kind, err)
		}
	}
	if got := ok.Path(KindHeatmap); got != filepath.Join(out, "heatmap_cat_P01.png") {
		t.Errorf("heatmap path = %q", got)
	}

	missing := summary.Items[1]
	for _, a := range missing.Artifacts {
		if a.ErrorKind() != render.KindInputNotFound {
			t.Errorf("missing-image artifact %s kind = %q, want input_not_found", a.Kind, a.ErrorKind())
		}
	}

	empty := summary.Items[2]
	for _, a := range empty.Artifacts {
		if !errors.Is(a.Err, render.ErrEmptyInput) {
			t.Errorf("empty artifact %s error = %v, want ErrEmptyInput", a.Kind, a.Err)
		}
		if _, err := os.Stat(a.Path); !os.IsNotExist(err) {
			t.Errorf("empty input wrote %s", a.Path)
		}
	}

	if !summary.Items[3].OK() {
		t.Errorf("single-fixation unit failed: %+v", summary.Items[3].Artifacts)
	}

	failures := summary.Failures()
	if len(failures) != 2 || failures[0].Unit.Participant != "02" || failures[1].Unit.Participant != "03" {
		t.Errorf("Failures() = %+v", failures)
	}
}

func TestRun_Cancelled(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "cat.png")
	writeBase(t, img)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &Runner{Workers: 1, Style: render.DefaultStyle(), OutputDir: dir}
	summary := r.Run(ctx, []dataset.Unit{unit("01", "cat.png", img, threePoints)})

	if summary.Failed != 1 {
		t.Fatalf("failed = %d, want 1", summary.Failed)
	}
	for _, a := range summary.Items[0].Artifacts {
		if !errors.Is(a.Err, context.Canceled) {
			t.Errorf("artifact %s error = %v, want context.Canceled", a.Kind, a.Err)
		}
	}
}

func TestRun_Empty(t *testing.T) {
	r := &Runner{Style: render.DefaultStyle(), OutputDir: t.TempDir()}
	summary := r.Run(context.Background(), nil)
	if len(summary.Items) != 0 || summary.Succeeded != 0 || summary.Failed != 0 {
		t.Errorf("summary = %+v, want empty", summary)
	}
}
