package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nvandessel/gazeviz/internal/batch"
	"github.com/nvandessel/gazeviz/internal/dataset"
)

func newRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the heatmap and scanpath of one participant viewing one image",
		Long: `Render the fixation heatmap and numbered scanpath for a single
participant/image pair.

The participant's fixation log is located under the eye-tracker log
directory and the image under the images directory. Rendering failures are
reported per artifact and do not change the exit status.

Examples:
  gazeviz render -p 1 -m cat.png
  gazeviz render -p 01 -m cat.png --pdf --output-dir out/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			participant, _ := cmd.Flags().GetString("participant")
			media, _ := cmd.Flags().GetString("media")
			pdf, _ := cmd.Flags().GetBool("pdf")
			workers, _ := cmd.Flags().GetInt("workers")
			outputDir, _ := cmd.Flags().GetString("output-dir")

			a, err := newApp(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			unit, err := dataset.FindUnit(ctx, a.datasetPaths(), participant, media)
			if err != nil {
				return fmt.Errorf("failed to locate P%s/%s: %w", dataset.PadID(participant), media, err)
			}

			if outputDir == "" {
				outputDir = a.cfg.Batch.OutputDir
			}
			if workers == 0 {
				workers = a.cfg.Batch.Workers
			}
			runner := &batch.Runner{
				Workers:   workers,
				Style:     a.cfg.Render.Style(),
				OutputDir: a.resolve(outputDir),
				PDF:       pdf || a.cfg.Batch.PDF,
				Logger:    a.logger,
			}
			summary := runner.Run(ctx, []dataset.Unit{*unit})

			var runID int64
			history, err := a.openStore()
			if err != nil {
				a.logger.Warn("run not recorded", "error", err)
			} else {
				defer history.Close()
				if runID, err = history.RecordRun(ctx, "render", summary); err != nil {
					a.logger.Warn("run not recorded", "error", err)
				}
			}

			if a.jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(summaryJSON(runID, summary))
			}
			printSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}

	cmd.Flags().StringP("participant", "p", "", "Participant ID (e.g. 1 or 01)")
	cmd.Flags().StringP("media", "m", "", "Image file name (e.g. cat.png)")
	cmd.Flags().Bool("pdf", false, "Also export the scanpath as a vector PDF")
	cmd.Flags().Int("workers", 0, "Concurrent render workers (default from config, 0 = all CPUs)")
	cmd.Flags().String("output-dir", "", "Directory for rendered files (default from config)")
	cmd.MarkFlagRequired("participant")
	cmd.MarkFlagRequired("media")

	return cmd
}

type artifactJSON struct {
	Kind      string `json:"kind"`
	Path      string `json:"path"`
	OK        bool   `json:"ok"`
	ErrorKind string `json:"error_kind,omitempty"`
	Error     string `json:"error,omitempty"`
}

type itemJSON struct {
	Participant string         `json:"participant"`
	Media       string         `json:"media"`
	Artifacts   []artifactJSON `json:"artifacts"`
}

func summaryJSON(runID int64, s batch.Summary) map[string]any {
	items := make([]itemJSON, 0, len(s.Items))
	for _, item := range s.Items {
		out := itemJSON{Participant: item.Unit.Participant, Media: item.Unit.Media}
		for _, a := range item.Artifacts {
			aj := artifactJSON{Kind: a.Kind, Path: a.Path, OK: a.OK()}
			if a.Err != nil {
				aj.ErrorKind = a.ErrorKind()
				aj.Error = a.Err.Error()
			}
			out.Artifacts = append(out.Artifacts, aj)
		}
		items = append(items, out)
	}
	return map[string]any{
		"run_id":    runID,
		"succeeded": s.Succeeded,
		"failed":    s.Failed,
		"items":     items,
	}
}

func printSummary(w io.Writer, s batch.Summary) {
	for _, item := range s.Items {
		for _, a := range item.Artifacts {
			if a.OK() {
				fmt.Fprintf(w, "  ok      %s %s -> %s\n", item.Unit.Key(), a.Kind, a.Path)
			} else {
				fmt.Fprintf(w, "  FAILED  %s %s: %v\n", item.Unit.Key(), a.Kind, a.Err)
			}
		}
	}
	fmt.Fprintf(w, "\n%d succeeded, %d failed\n", s.Succeeded, s.Failed)
}
