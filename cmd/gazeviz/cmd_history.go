package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded render and analysis runs",
		Long: `List the most recent runs, newest first, or the per-artifact outcomes
of a single run.

Examples:
  gazeviz history
  gazeviz history --limit 5
  gazeviz history --run 12`,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			runID, _ := cmd.Flags().GetInt64("run")

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			history, err := a.openStore()
			if err != nil {
				return err
			}
			defer history.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if runID > 0 {
				items, err := history.ItemsForRun(ctx, runID)
				if err != nil {
					return err
				}
				if a.jsonOut {
					return json.NewEncoder(out).Encode(map[string]any{"run_id": runID, "items": items})
				}
				if len(items) == 0 {
					fmt.Fprintf(out, "No items recorded for run %d.\n", runID)
					return nil
				}
				for _, it := range items {
					status := it.Status
					if it.ErrorKind != "" {
						status += " (" + it.ErrorKind + ")"
					}
					fmt.Fprintf(out, "P%s/%s %-12s %-20s %s\n", it.Participant, it.Media, it.Artifact, status, it.Path)
				}
				return nil
			}

			runs, err := history.ListRuns(ctx, limit)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return json.NewEncoder(out).Encode(map[string]any{"runs": runs, "count": len(runs)})
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet.")
				return nil
			}
			for _, r := range runs {
				fmt.Fprintf(out, "#%-4d %-8s %s  %d succeeded, %d failed (%s)\n",
					r.ID, r.Command, r.StartedAt.Local().Format("2006-01-02 15:04:05"),
					r.Succeeded, r.Failed, r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
			}
			return nil
		},
	}

	cmd.Flags().Int("limit", 20, "Maximum number of runs to list")
	cmd.Flags().Int64("run", 0, "Show the artifacts of this run")

	return cmd
}
