package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nvandessel/gazeviz/internal/config"
	"github.com/nvandessel/gazeviz/internal/dataset"
	"github.com/nvandessel/gazeviz/internal/logging"
	"github.com/nvandessel/gazeviz/internal/render"
	"github.com/nvandessel/gazeviz/internal/store"
)

// app is the state shared by commands that touch the dataset.
type app struct {
	cfg     *config.GazevizConfig
	root    string
	dataDir string
	jsonOut bool
	logger  *slog.Logger
}

// newApp loads configuration, applies the global flags and sets up logging.
func newApp(cmd *cobra.Command) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	root, _ := cmd.Flags().GetString("root")
	root, err = filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}

	dataDir, _ := cmd.Flags().GetString("data-dir")
	if dataDir == "" {
		dataDir, err = store.GlobalDir()
		if err != nil {
			return nil, fmt.Errorf("failed to locate data directory: %w", err)
		}
	}

	jsonOut, _ := cmd.Flags().GetBool("json")
	var logger *slog.Logger
	if jsonOut {
		logger = logging.NewJSONLogger(cfg.Logging.Level, cmd.ErrOrStderr())
	} else {
		logger = logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
	}
	render.SetLogger(logger)

	return &app{
		cfg:     cfg,
		root:    root,
		dataDir: dataDir,
		jsonOut: jsonOut,
		logger:  logger,
	}, nil
}

// resolve makes p absolute against the dataset root.
func (a *app) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(a.root, p)
}

func (a *app) datasetPaths() dataset.Paths {
	p := a.cfg.Dataset
	p.Catalog = a.resolve(p.Catalog)
	p.Images = a.resolve(p.Images)
	p.Logs = a.resolve(p.Logs)
	p.SaliencyMaps = a.resolve(p.SaliencyMaps)
	p.Scanpaths = a.resolve(p.Scanpaths)
	return p
}

func (a *app) openStore() (*store.Store, error) {
	s, err := store.Open(a.dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open run history: %w", err)
	}
	return s, nil
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
