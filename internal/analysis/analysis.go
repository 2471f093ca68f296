// Package analysis runs the full per-unit pipeline: render the
// visualizations, build the prompt, ask the model, compose a gallery and a
// PDF report, and collect a report.Result for each participant/image pair.
package analysis

import (
	"context"
	"log/slog"
	"time"

	"github.com/nvandessel/gazeviz/internal/batch"
	"github.com/nvandessel/gazeviz/internal/dataset"
	"github.com/nvandessel/gazeviz/internal/llm"
	"github.com/nvandessel/gazeviz/internal/logging"
	"github.com/nvandessel/gazeviz/internal/prompt"
	"github.com/nvandessel/gazeviz/internal/ratelimit"
	"github.com/nvandessel/gazeviz/internal/report"
)

// Pipeline holds the collaborators of one analysis run.
type Pipeline struct {
	Runner *batch.Runner
	Client llm.Client
	// Pacer spaces model calls. Nil means no pacing.
	Pacer *ratelimit.Pacer
	// CallLog records each model call. Nil disables it.
	CallLog *logging.CallLog

	// ReportsDir receives one gallery and one PDF report per unit. Empty
	// disables both.
	ReportsDir string
	Gallery    report.GalleryLayout
	// Duration labels the precomputed saliency maps in galleries.
	Duration string

	Logger *slog.Logger
}

// Outcome is the result of Run.
type Outcome struct {
	Results []report.Result
	Summary batch.Summary
	// ModelErrors counts units whose model call failed.
	ModelErrors int
}

// Run renders every unit, then analyzes them one at a time in input order.
// Render and model failures are recorded per unit and never stop the run.
// Run stops early only when ctx is cancelled, returning what was collected.
func (p *Pipeline) Run(ctx context.Context, units []dataset.Unit) (Outcome, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	out := Outcome{Summary: p.Runner.Run(ctx, units)}

	for _, item := range out.Summary.Items {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		result, modelErr := p.analyze(ctx, item, logger)
		if modelErr {
			out.ModelErrors++
		}
		out.Results = append(out.Results, result)
	}
	return out, nil
}

func (p *Pipeline) analyze(ctx context.Context, item batch.ItemResult, logger *slog.Logger) (report.Result, bool) {
	u := item.Unit
	log := logger.With("participant", u.Participant, "media", u.Media)

	result := report.Result{
		Participant:        u.Participant,
		Media:              u.Media,
		Category:           u.Category,
		Block:              u.Block,
		ImagePath:          u.ImagePath,
		ScanpathPath:       u.ScanpathPath,
		HeatmapPath:        u.HeatmapPath,
		FixmapPath:         u.FixmapPath,
		OverlayHeatmapPath: u.OverlayHeatmapPath,
		RenderedHeatmap:    item.Path(batch.KindHeatmap),
		RenderedScanpath:   item.Path(batch.KindScanpath),
	}
	for _, a := range item.Artifacts {
		if a.Err != nil {
			if result.RenderErrors == nil {
				result.RenderErrors = make(map[string]string)
			}
			result.RenderErrors[a.Kind] = a.Err.Error()
		}
	}

	if p.ReportsDir != "" {
		path := report.GalleryPath(p.ReportsDir, u)
		items := report.UnitGallery(u, p.Duration, result.RenderedHeatmap, result.RenderedScanpath)
		if missing, err := report.ComposeGallery(items, path, p.Gallery); err != nil {
			log.Warn("gallery failed", "path", path, "error", err)
		} else {
			result.GalleryPath = path
			if missing > 0 {
				log.Debug("gallery has placeholders", "missing", missing)
			}
		}
	}

	result.Prompt = prompt.Build(u)

	if err := p.Pacer.Wait(ctx); err != nil {
		result.Response = llm.ResponseText("", err)
		return result, true
	}

	log.Info("analyzing")
	log.Log(ctx, logging.LevelTrace, "prompt", "text", result.Prompt)
	start := time.Now()
	resp, err := p.Client.Analyze(ctx, result.Prompt, u.ImagePath)
	elapsed := time.Since(start)
	result.Response = llm.ResponseText(resp, err)

	event := map[string]any{
		"participant": u.Participant,
		"media":       u.Media,
		"elapsed_ms":  elapsed.Milliseconds(),
		"prompt":      result.Prompt,
		"response":    result.Response,
	}
	if err != nil {
		log.Warn("model call failed", "error", err, "elapsed", elapsed)
		event["error"] = err.Error()
	} else {
		log.Log(ctx, logging.LevelTrace, "response", "text", resp)
	}
	p.CallLog.Log(event)

	if p.ReportsDir != "" {
		path := report.PDFPath(p.ReportsDir, u)
		if pdfErr := report.WritePDF(result, result.GalleryPath, path); pdfErr != nil {
			log.Warn("pdf report failed", "path", path, "error", pdfErr)
		} else {
			result.PDFPath = path
		}
	}

	return result, err != nil
}
