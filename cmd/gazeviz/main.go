package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set via ldflags at build time.
var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gazeviz",
		Short: "Eye-tracking visualization and analysis",
		Long: `gazeviz renders fixation heatmaps and scanpaths from eye-tracker logs
and asks a multimodal model to interpret them.

It reads a catalog of stimulus images, pairs each image with the fixation
logs of every participant who viewed it, and writes PNG (and optionally PDF)
visualizations alongside a JSONL analysis report.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("root", ".", "Dataset root directory")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.gazeviz/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: error, warn, info, debug, trace")
	rootCmd.PersistentFlags().String("data-dir", "", "Run history directory (default ~/.gazeviz)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRenderCmd(),
		newAnalyzeCmd(),
		newHistoryCmd(),
		newArchiveCmd(),
		newViewCmd(),
		newConfigCmd(),
		newMCPServerCmd(),
		newMCPInstallCmd(),
	)

	return rootCmd
}
