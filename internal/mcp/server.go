package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/gazeviz/internal/config"
	"github.com/nvandessel/gazeviz/internal/ratelimit"
	"github.com/nvandessel/gazeviz/internal/store"
)

// Server wraps the MCP SDK server and exposes gazeviz rendering as tools.
type Server struct {
	server       *sdk.Server
	settings     *config.GazevizConfig
	store        *store.Store
	root         string
	toolLimiters ratelimit.ToolLimiters
	auditLogger  *AuditLogger
	logger       *slog.Logger
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "gazeviz")
	Version string // Server version
	Root    string // Working directory relative paths resolve against
	// DataDir holds the run history and audit log. Defaults to ~/.gazeviz.
	DataDir  string
	Settings *config.GazevizConfig
	Logger   *slog.Logger
}

// NewServer creates a new MCP server with gazeviz tools.
func NewServer(cfg *Config) (*Server, error) {
	settings := cfg.Settings
	if settings == nil {
		settings = config.Default()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dataDir := cfg.DataDir
	if dataDir == "" {
		dir, err := store.GlobalDir()
		if err != nil {
			return nil, err
		}
		dataDir = dir
	}

	history, err := store.Open(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open run history: %w", err)
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	s := &Server{
		server:       mcpServer,
		settings:     settings,
		store:        history,
		root:         cfg.Root,
		toolLimiters: ratelimit.NewToolLimiters(),
		auditLogger:  NewAuditLogger(dataDir),
		logger:       logger.With("component", "mcp"),
	}

	s.registerTools()
	s.registerResources()
	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.logger.Info("mcp server started", "root", s.root)
	return s.server.Run(ctx, &sdk.StdioTransport{})
}

// Close releases the history database and audit log.
func (s *Server) Close() error {
	err := s.store.Close()
	if aerr := s.auditLogger.Close(); err == nil {
		err = aerr
	}
	return err
}
