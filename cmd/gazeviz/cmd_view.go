package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/gazeviz/internal/backup"
	"github.com/nvandessel/gazeviz/internal/report"
	"github.com/nvandessel/gazeviz/internal/visualization"
)

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Browse an analysis report",
		Long: `Show the analysis report with its rendered images and model responses.

By default a static HTML page is written next to the report and opened in the
browser. --serve starts a local server instead, which also offers the
results as JSON at /api/results.

Examples:
  gazeviz view                               # Current report as HTML
  gazeviz view --category animals --no-open
  gazeviz view --archive relatorio-20260102-150405.jsonl.bak
  gazeviz view --serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reportFlag, _ := cmd.Flags().GetString("report")
			archive, _ := cmd.Flags().GetString("archive")
			output, _ := cmd.Flags().GetString("output")
			category, _ := cmd.Flags().GetString("category")
			noOpen, _ := cmd.Flags().GetBool("no-open")
			serve, _ := cmd.Flags().GetBool("serve")

			a, err := newApp(cmd)
			if err != nil {
				return err
			}

			reportsDir := a.resolve(a.cfg.Reports.Dir)
			source := filepath.Join(reportsDir, a.cfg.Reports.File)
			var results []report.Result
			switch {
			case archive != "":
				source = a.archivePath(archive)
				_, results, err = backup.Read(source)
			default:
				if reportFlag != "" {
					source = a.resolve(reportFlag)
				}
				results, err = report.ReadJSONL(source)
			}
			if err != nil {
				return fmt.Errorf("failed to read report %s: %w", source, err)
			}
			for i := range results {
				resolveResultPaths(a, &results[i])
			}

			title := "gazeviz: " + filepath.Base(source)
			if serve {
				return runReportServer(cmd, title, results, noOpen)
			}

			if output == "" {
				output = filepath.Join(reportsDir, "report.html")
			} else {
				output = a.resolve(output)
			}
			if err := visualization.WriteHTML(output, title, results, category); err != nil {
				return fmt.Errorf("failed to write HTML: %w", err)
			}

			if a.jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"report":  source,
					"html":    output,
					"results": len(results),
					"shown":   len(visualization.Filter(results, category)),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", output)

			if !noOpen {
				if err := visualization.OpenBrowser(output); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Could not open browser: %v\nOpen %s manually.\n", err, output)
				}
			}
			return nil
		},
	}

	cmd.Flags().String("report", "", "Report file (default <reports.dir>/<reports.file>)")
	cmd.Flags().String("archive", "", "Show an archived report instead")
	cmd.Flags().StringP("output", "o", "", "HTML output path (default <reports.dir>/report.html)")
	cmd.Flags().String("category", "", "Only categories containing this text (case-insensitive)")
	cmd.Flags().Bool("no-open", false, "Don't open the browser")
	cmd.Flags().Bool("serve", false, "Serve the report from a local HTTP server until Ctrl-C")
	cmd.MarkFlagsMutuallyExclusive("report", "archive")

	return cmd
}

// resolveResultPaths makes the artifact paths of a result absolute against
// the project root.
func resolveResultPaths(a *app, r *report.Result) {
	for _, p := range []*string{
		&r.ImagePath, &r.ScanpathPath, &r.HeatmapPath, &r.FixmapPath, &r.OverlayHeatmapPath,
		&r.RenderedHeatmap, &r.RenderedScanpath, &r.GalleryPath,
	} {
		if *p != "" {
			*p = a.resolve(*p)
		}
	}
}

// runReportServer starts a local HTTP server and blocks until Ctrl-C.
func runReportServer(cmd *cobra.Command, title string, results []report.Result, noOpen bool) error {
	srv := visualization.NewServer(title, results)

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx) }()

	// Wait for server to start
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && srv.Addr() == "" {
		select {
		case err := <-errCh:
			return fmt.Errorf("server error: %w", err)
		case <-time.After(10 * time.Millisecond):
		}
	}

	addr := srv.Addr()
	if addr == "" {
		return fmt.Errorf("server failed to start")
	}

	url := "http://" + addr
	fmt.Fprintf(cmd.OutOrStdout(), "Report server running at %s\n", url)
	fmt.Fprintf(cmd.OutOrStdout(), "Press Ctrl-C to stop.\n")

	if !noOpen {
		if err := visualization.OpenBrowser(url); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Could not open browser: %v\nOpen %s manually.\n", err, url)
		}
	}

	if err := <-errCh; err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
