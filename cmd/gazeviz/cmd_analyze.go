package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nvandessel/gazeviz/internal/analysis"
	"github.com/nvandessel/gazeviz/internal/backup"
	"github.com/nvandessel/gazeviz/internal/batch"
	"github.com/nvandessel/gazeviz/internal/dataset"
	"github.com/nvandessel/gazeviz/internal/llm"
	"github.com/nvandessel/gazeviz/internal/logging"
	"github.com/nvandessel/gazeviz/internal/ratelimit"
	"github.com/nvandessel/gazeviz/internal/report"
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Render and analyze every matching participant/image pair",
		Long: `Run the full analysis pipeline over the dataset.

For every catalog image with fixation data, gazeviz renders the heatmap and
scanpath, composes a gallery with the precomputed saliency maps, sends the
image and fixation data to the configured model, and appends the response
to the JSONL report.

Model failures are recorded as "ERROR: ..." responses and do not stop the
run. Use --offline to skip the model and store a placeholder response.

Examples:
  gazeviz analyze                         # Everything in the catalog
  gazeviz analyze --participant 3         # One participant
  gazeviz analyze --category animals      # Category substring match
  gazeviz analyze --offline --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			participant, _ := cmd.Flags().GetString("participant")
			media, _ := cmd.Flags().GetString("media")
			category, _ := cmd.Flags().GetString("category")
			offline, _ := cmd.Flags().GetBool("offline")
			workers, _ := cmd.Flags().GetInt("workers")
			noGallery, _ := cmd.Flags().GetBool("no-gallery")

			a, err := newApp(cmd)
			if err != nil {
				return err
			}

			var client llm.Client
			if offline {
				client = llm.NewPlaceholderClient()
			} else {
				client, err = llm.NewClient(a.cfg.LLM.ClientConfig)
				if err != nil {
					return err
				}
				if !client.Available() {
					return fmt.Errorf("llm provider %q is not available: set llm.api_key or use --offline", a.cfg.LLM.Provider)
				}
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			found, err := dataset.Discover(ctx, a.datasetPaths(), dataset.Query{
				Participant: participant,
				Media:       media,
				Category:    category,
			})
			if err != nil {
				return fmt.Errorf("failed to discover units: %w", err)
			}
			for _, skipped := range found.Skipped {
				a.logger.Warn("skipped", "error", skipped)
			}
			if len(found.Units) == 0 {
				if a.jsonOut {
					return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
						"units":   0,
						"skipped": len(found.Skipped),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), "No matching fixation data found.")
				return nil
			}

			if workers == 0 {
				workers = a.cfg.Batch.Workers
			}
			reportsDir := a.resolve(a.cfg.Reports.Dir)

			gallery := report.DefaultGalleryLayout()
			if a.cfg.Render.FontName != "" {
				gallery.FontName = a.cfg.Render.FontName
			}
			gallery.FontDirs = a.cfg.Render.FontDirs

			callLog := logging.NewCallLog(a.dataDir, a.cfg.Logging.Level)
			defer callLog.Close()

			pipeline := &analysis.Pipeline{
				Runner: &batch.Runner{
					Workers:   workers,
					Style:     a.cfg.Render.Style(),
					OutputDir: a.resolve(a.cfg.Batch.OutputDir),
					PDF:       a.cfg.Batch.PDF,
					Logger:    a.logger,
				},
				Client:   client,
				Pacer:    ratelimit.NewPacer(a.cfg.LLM.Interval, 1),
				CallLog:  callLog,
				Gallery:  gallery,
				Duration: a.cfg.Dataset.Duration,
				Logger:   a.logger,
			}
			if !noGallery {
				pipeline.ReportsDir = reportsDir
			}

			a.logger.Info("analysis started", "units", len(found.Units), "skipped", len(found.Skipped))
			outcome, runErr := pipeline.Run(ctx, found.Units)

			// Partial results are still written when the run is interrupted.
			reportPath := filepath.Join(reportsDir, a.cfg.Reports.File)
			var archived string
			if a.cfg.Reports.Archive.Enabled && len(outcome.Results) > 0 {
				archived = a.archiveReport(reportPath, reportsDir)
			}
			if err := report.WriteJSONL(reportPath, outcome.Results); err != nil {
				if !errors.Is(err, report.ErrNoResults) {
					return fmt.Errorf("failed to write report: %w", err)
				}
				reportPath = ""
			}

			var runID int64
			history, err := a.openStore()
			if err != nil {
				a.logger.Warn("run not recorded", "error", err)
			} else {
				defer history.Close()
				if runID, err = history.RecordRun(ctx, "analyze", outcome.Summary); err != nil {
					a.logger.Warn("run not recorded", "error", err)
				}
			}

			if runErr != nil {
				return fmt.Errorf("analysis interrupted after %d of %d units: %w", len(outcome.Results), len(found.Units), runErr)
			}

			out := cmd.OutOrStdout()
			if a.jsonOut {
				return json.NewEncoder(out).Encode(map[string]any{
					"run_id":       runID,
					"units":        len(found.Units),
					"skipped":      len(found.Skipped),
					"succeeded":    outcome.Summary.Succeeded,
					"failed":       outcome.Summary.Failed,
					"model_errors": outcome.ModelErrors,
					"report":       reportPath,
					"archived":     archived,
				})
			}

			for _, item := range outcome.Summary.Failures() {
				for _, art := range item.Artifacts {
					if !art.OK() {
						fmt.Fprintf(out, "  FAILED  %s %s: %v\n", item.Unit.Key(), art.Kind, art.Err)
					}
				}
			}
			fmt.Fprintf(out, "Analyzed %d units (%d skipped)\n", len(found.Units), len(found.Skipped))
			fmt.Fprintf(out, "  renders: %d succeeded, %d failed\n", outcome.Summary.Succeeded, outcome.Summary.Failed)
			fmt.Fprintf(out, "  model errors: %d\n", outcome.ModelErrors)
			if reportPath != "" {
				fmt.Fprintf(out, "  report: %s\n", reportPath)
			}
			if archived != "" {
				fmt.Fprintf(out, "  previous report archived: %s\n", archived)
			}
			return nil
		},
	}

	cmd.Flags().String("participant", "", "Only this participant ID")
	cmd.Flags().String("media", "", "Only this image file name")
	cmd.Flags().String("category", "", "Only categories containing this text (case-insensitive)")
	cmd.Flags().Bool("offline", false, "Skip the model and store a placeholder response")
	cmd.Flags().Int("workers", 0, "Concurrent render workers (default from config, 0 = all CPUs)")
	cmd.Flags().Bool("no-gallery", false, "Do not compose per-unit galleries")

	return cmd
}

// archiveReport keeps a copy of the report about to be replaced and prunes
// old copies. Failures are logged; they never block writing the new report.
func (a *app) archiveReport(reportPath, reportsDir string) string {
	dir := backup.DefaultDir(reportsDir)
	path, header, err := backup.ArchiveReport(reportPath, dir)
	if err != nil {
		a.logger.Warn("previous report not archived", "error", err)
		return ""
	}
	if path != "" {
		a.logger.Info("previous report archived", "path", path, "results", header.ResultCount)
	}

	policy, err := a.cfg.Reports.Archive.Policy()
	if err != nil {
		a.logger.Warn("archive retention skipped", "error", err)
		return path
	}
	deleted, err := backup.ApplyRetention(dir, policy)
	if err != nil {
		a.logger.Warn("archive retention failed", "error", err)
	}
	for _, d := range deleted {
		a.logger.Debug("archive pruned", "path", d)
	}
	return path
}
