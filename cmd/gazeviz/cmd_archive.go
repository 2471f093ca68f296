package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/gazeviz/internal/backup"
)

func newArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Manage archived analysis reports",
		Long: `Inspect, verify and restore report archives.

Before each analyze run the previous report is archived to
<reports.dir>/archive as a compressed file with a checksum. Retention is
controlled by reports.archive.keep, max_age and max_size.`,
	}

	cmd.AddCommand(newArchiveListCmd())
	cmd.AddCommand(newArchiveVerifyCmd())
	cmd.AddCommand(newArchiveRestoreCmd())
	cmd.AddCommand(newArchivePruneCmd())

	return cmd
}

func (a *app) archiveDir() string {
	return backup.DefaultDir(a.resolve(a.cfg.Reports.Dir))
}

// archivePath resolves a bare archive file name inside the archive
// directory; anything with a directory part is resolved against the root.
func (a *app) archivePath(name string) string {
	if filepath.IsAbs(name) || filepath.Dir(name) != "." {
		return a.resolve(name)
	}
	return filepath.Join(a.archiveDir(), name)
}

func newArchiveListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List report archives, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			archives, err := backup.List(a.archiveDir())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.jsonOut {
				if archives == nil {
					archives = []backup.ArchiveInfo{}
				}
				return json.NewEncoder(out).Encode(map[string]any{
					"archives": archives,
					"count":    len(archives),
				})
			}

			if len(archives) == 0 {
				fmt.Fprintln(out, "No archived reports.")
				return nil
			}
			for _, ar := range archives {
				fmt.Fprintf(out, "%-48s %s  %4d results  %s\n",
					filepath.Base(ar.Path),
					ar.CreatedAt.Local().Format(time.DateTime),
					ar.ResultCount,
					formatBytes(ar.Size))
			}
			return nil
		},
	}
}

func newArchiveVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <archive>",
		Short: "Check an archive's checksum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			path := a.archivePath(args[0])
			if err := backup.Verify(path); err != nil {
				return fmt.Errorf("archive %s is corrupt: %w", filepath.Base(path), err)
			}

			if a.jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"path": path,
					"ok":   true,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: OK\n", filepath.Base(path))
			return nil
		},
	}
}

func newArchiveRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <archive>",
		Short: "Restore an archived report",
		Long: `Restore an archived report as JSON Lines.

By default the current report is archived first and then replaced. Use --to
to write the restored report somewhere else instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, _ := cmd.Flags().GetString("to")

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			path := a.archivePath(args[0])

			reportsDir := a.resolve(a.cfg.Reports.Dir)
			dest := filepath.Join(reportsDir, a.cfg.Reports.File)
			if to != "" {
				dest = a.resolve(to)
			} else if _, err := backup.ReadHeader(path); err == nil {
				a.archiveReport(dest, reportsDir)
			}

			header, err := backup.Restore(path, dest)
			if err != nil {
				return fmt.Errorf("failed to restore %s: %w", filepath.Base(path), err)
			}

			if a.jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"archive": path,
					"report":  dest,
					"results": header.ResultCount,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %d results to %s\n", header.ResultCount, dest)
			return nil
		},
	}

	cmd.Flags().String("to", "", "Write the restored report to this path")
	return cmd
}

func newArchivePruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete archives outside the retention policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			policy, err := a.cfg.Reports.Archive.Policy()
			if err != nil {
				return err
			}
			deleted, err := backup.ApplyRetention(a.archiveDir(), policy)
			if err != nil {
				return err
			}

			if a.jsonOut {
				if deleted == nil {
					deleted = []string{}
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"deleted": deleted,
					"count":   len(deleted),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d archives\n", len(deleted))
			return nil
		},
	}
}

// formatBytes renders n as a short human-readable size.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
