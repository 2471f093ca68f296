// Package batch renders visualizations for many units concurrently.
package batch

import (
	"context"
	"log/slog"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nvandessel/gazeviz/internal/dataset"
	"github.com/nvandessel/gazeviz/internal/render"
)

// Artifact kinds.
const (
	KindHeatmap     = "heatmap"
	KindScanpath    = "scanpath"
	KindScanpathPDF = "scanpath_pdf"
)

// Artifact is one rendered output file.
type Artifact struct {
	Kind string `json:"kind"`
	Path string `json:"path"`
	Err  error  `json:"-"`
}

// OK reports whether the artifact was written.
func (a Artifact) OK() bool { return a.Err == nil }

// ErrorKind classifies the artifact error, or "" on success.
func (a Artifact) ErrorKind() string { return render.Kind(a.Err) }

// ItemResult is the outcome of rendering one unit. Each artifact carries its
// own error so a failed heatmap does not hide a successful scanpath.
type ItemResult struct {
	Unit      dataset.Unit `json:"unit"`
	Artifacts []Artifact   `json:"artifacts"`
}

// OK reports whether every artifact of the item was written.
func (r ItemResult) OK() bool {
	for _, a := range r.Artifacts {
		if !a.OK() {
			return false
		}
	}
	return true
}

// Path returns the output path of the artifact of the given kind, or "" if
// it was not produced.
func (r ItemResult) Path(kind string) string {
	for _, a := range r.Artifacts {
		if a.Kind == kind && a.OK() {
			return a.Path
		}
	}
	return ""
}

// Summary aggregates a batch run.
type Summary struct {
	Items      []ItemResult `json:"items"`
	Succeeded  int          `json:"succeeded"`
	Failed     int          `json:"failed"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

// Failures returns the items with at least one failed artifact.
func (s Summary) Failures() []ItemResult {
	var out []ItemResult
	for _, item := range s.Items {
		if !item.OK() {
			out = append(out, item)
		}
	}
	return out
}

// Runner renders units with a bounded number of concurrent workers.
type Runner struct {
	// Workers bounds concurrency. Zero or negative means GOMAXPROCS.
	Workers   int
	Style     render.Style
	OutputDir string
	// PDF additionally exports each scanpath as a vector PDF.
	PDF    bool
	Logger *slog.Logger

	now func() time.Time
}

// ArtifactPath returns where the artifact of kind for u is written.
func ArtifactPath(dir string, u dataset.Unit, kind string) string {
	switch kind {
	case KindScanpathPDF:
		return filepath.Join(dir, "scanpath_"+u.OutputName()+".pdf")
	default:
		return filepath.Join(dir, kind+"_"+u.OutputName()+".png")
	}
}

// Run renders every unit and returns one ItemResult per unit, in input
// order. Per-unit failures are recorded in the summary and never stop other
// units. Run returns early only when ctx is cancelled; units not started by
// then are reported with the context error.
func (r *Runner) Run(ctx context.Context, units []dataset.Unit) Summary {
	now := r.now
	if now == nil {
		now = time.Now
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	summary := Summary{StartedAt: now(), Items: make([]ItemResult, len(units))}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, u := range units {
		g.Go(func() error {
			summary.Items[i] = r.renderUnit(gctx, u, logger)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	for _, item := range summary.Items {
		if item.OK() {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}
	summary.FinishedAt = now()

	logger.Info("batch finished",
		"units", len(units),
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"duration", summary.FinishedAt.Sub(summary.StartedAt))
	return summary
}

func (r *Runner) renderUnit(ctx context.Context, u dataset.Unit, logger *slog.Logger) ItemResult {
	kinds := []string{KindHeatmap, KindScanpath}
	if r.PDF {
		kinds = append(kinds, KindScanpathPDF)
	}
	item := ItemResult{Unit: u}
	for _, k := range kinds {
		item.Artifacts = append(item.Artifacts, Artifact{Kind: k, Path: ArtifactPath(r.OutputDir, u, k)})
	}

	fail := func(err error) ItemResult {
		for i := range item.Artifacts {
			item.Artifacts[i].Err = err
		}
		logger.Warn("unit failed",
			"participant", u.Participant,
			"media", u.Media,
			"path", u.ImagePath,
			"kind", render.Kind(err),
			"error", err)
		return item
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	base, err := render.LoadBaseImage(u.ImagePath)
	if err != nil {
		return fail(err)
	}

	for i := range item.Artifacts {
		a := &item.Artifacts[i]
		switch a.Kind {
		case KindHeatmap:
			a.Err = render.RenderDensityOverlay(ctx, u.Fixations, base, a.Path, r.Style)
		case KindScanpath:
			a.Err = render.RenderScanpath(ctx, u.Fixations, base, a.Path, r.Style)
		case KindScanpathPDF:
			b := base.Bounds()
			a.Err = render.ExportScanpathPDF(u.Fixations, b.Dx(), b.Dy(), a.Path, r.Style.Path)
		}
		if a.Err != nil {
			logger.Warn("render failed",
				"artifact", a.Kind,
				"participant", u.Participant,
				"media", u.Media,
				"path", a.Path,
				"kind", a.ErrorKind(),
				"error", a.Err)
			continue
		}
		logger.Debug("rendered", "artifact", a.Kind, "path", a.Path)
	}
	return item
}
