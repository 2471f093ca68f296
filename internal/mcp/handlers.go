package mcp

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/gazeviz/internal/batch"
	"github.com/nvandessel/gazeviz/internal/dataset"
	"github.com/nvandessel/gazeviz/internal/pathutil"
	"github.com/nvandessel/gazeviz/internal/ratelimit"
	"github.com/nvandessel/gazeviz/internal/sanitize"
)

// Tool names.
const (
	ToolRender   = "gazeviz_render"
	ToolDiscover = "gazeviz_discover"
	ToolHistory  = "gazeviz_history"
)

const latestRunURI = "gazeviz://runs/latest"

const defaultHistoryLimit = 10

// registerTools registers all gazeviz MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ToolRender,
		Description: "Render the fixation heatmap and scanpath of one participant viewing one image",
	}, s.handleRender)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ToolDiscover,
		Description: "List participant/image pairs that have fixation data, optionally filtered",
	}, s.handleDiscover)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ToolHistory,
		Description: "List recent render runs, or the per-artifact outcomes of one run",
	}, s.handleHistory)
}

// registerResources registers MCP resources for auto-loading into context.
func (s *Server) registerResources() {
	s.server.AddResource(&sdk.Resource{
		URI:         latestRunURI,
		Name:        "gazeviz-latest-run",
		Description: "Outcome of the most recent render run, one line per artifact.",
		MIMEType:    "text/markdown",
	}, s.handleLatestRunResource)
}

// resolve makes p absolute against the server root.
func (s *Server) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || s.root == "" {
		return p
	}
	return filepath.Join(s.root, p)
}

func (s *Server) datasetPaths() dataset.Paths {
	p := s.settings.Dataset
	p.Catalog = s.resolve(p.Catalog)
	p.Images = s.resolve(p.Images)
	p.Logs = s.resolve(p.Logs)
	p.SaliencyMaps = s.resolve(p.SaliencyMaps)
	p.Scanpaths = s.resolve(p.Scanpaths)
	return p
}

// outputDir picks and validates where a render writes. Requested
// directories must lie under the server root, the configured output
// directory or ~/.gazeviz/renders.
func (s *Server) outputDir(requested string) (string, error) {
	configured := s.resolve(s.settings.Batch.OutputDir)
	if requested == "" {
		return configured, nil
	}
	dir := s.resolve(requested)
	allowed, err := pathutil.DefaultAllowedOutputDirs(s.root, configured)
	if err != nil {
		return "", err
	}
	if err := pathutil.ValidatePath(dir, allowed); err != nil {
		return "", fmt.Errorf("invalid output_dir: %w", err)
	}
	return dir, nil
}

func (s *Server) handleRender(ctx context.Context, req *sdk.CallToolRequest, args RenderInput) (_ *sdk.CallToolResult, _ RenderOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ToolRender, start, retErr, sanitizeToolParams(map[string]any{
			"participant": args.Participant, "media": args.Media,
			"output_dir": args.OutputDir, "pdf": args.PDF,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ToolRender); err != nil {
		return nil, RenderOutput{}, err
	}
	if args.Participant == "" || args.Media == "" {
		return nil, RenderOutput{}, fmt.Errorf("participant and media are required")
	}

	outDir, err := s.outputDir(args.OutputDir)
	if err != nil {
		return nil, RenderOutput{}, err
	}

	unit, err := dataset.FindUnit(ctx, s.datasetPaths(), args.Participant, args.Media)
	if err != nil {
		return nil, RenderOutput{}, fmt.Errorf("failed to locate P%s/%s: %w", dataset.PadID(args.Participant), args.Media, err)
	}

	runner := batch.Runner{
		Workers:   1,
		Style:     s.settings.Render.Style(),
		OutputDir: outDir,
		PDF:       args.PDF,
		Logger:    s.logger,
	}
	summary := runner.Run(ctx, []dataset.Unit{*unit})

	out := RenderOutput{
		Participant: unit.Participant,
		Media:       unit.Media,
		Fixations:   len(unit.Fixations),
	}
	if runID, err := s.store.RecordRun(ctx, "mcp", summary); err != nil {
		s.logger.Warn("failed to record run", "error", err)
	} else {
		out.RunID = runID
	}

	written := 0
	for _, a := range summary.Items[0].Artifacts {
		ao := ArtifactOutput{Kind: a.Kind, Path: a.Path, OK: a.OK()}
		if a.Err != nil {
			ao.ErrorKind = a.ErrorKind()
			ao.Error = a.Err.Error()
		} else {
			written++
		}
		out.Artifacts = append(out.Artifacts, ao)
	}
	out.Message = fmt.Sprintf("Rendered %d of %d artifacts for %s", written, len(out.Artifacts), unit.Key())
	return nil, out, nil
}

func (s *Server) handleDiscover(ctx context.Context, req *sdk.CallToolRequest, args DiscoverInput) (_ *sdk.CallToolResult, _ DiscoverOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ToolDiscover, start, retErr, sanitizeToolParams(map[string]any{
			"participant": args.Participant, "media": args.Media, "category": args.Category,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ToolDiscover); err != nil {
		return nil, DiscoverOutput{}, err
	}

	found, err := dataset.Discover(ctx, s.datasetPaths(), dataset.Query{
		Participant: args.Participant,
		Media:       args.Media,
		Category:    args.Category,
	})
	if err != nil {
		return nil, DiscoverOutput{}, fmt.Errorf("discovery failed: %w", err)
	}

	out := DiscoverOutput{Units: make([]UnitSummary, 0, len(found.Units))}
	for _, u := range found.Units {
		out.Units = append(out.Units, UnitSummary{
			Participant: u.Participant,
			Media:       u.Media,
			Category:    u.Category,
			Block:       u.Block,
			Fixations:   len(u.Fixations),
		})
	}
	for _, e := range found.Skipped {
		out.Skipped = append(out.Skipped, e.Error())
	}
	out.Count = len(out.Units)
	return nil, out, nil
}

func (s *Server) handleHistory(ctx context.Context, req *sdk.CallToolRequest, args HistoryInput) (_ *sdk.CallToolResult, _ HistoryOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ToolHistory, start, retErr, sanitizeToolParams(map[string]any{
			"limit": args.Limit, "run_id": args.RunID,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ToolHistory); err != nil {
		return nil, HistoryOutput{}, err
	}

	if args.RunID > 0 {
		items, err := s.store.ItemsForRun(ctx, args.RunID)
		if err != nil {
			return nil, HistoryOutput{}, err
		}
		return nil, HistoryOutput{Items: items, Count: len(items)}, nil
	}

	limit := args.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	runs, err := s.store.ListRuns(ctx, limit)
	if err != nil {
		return nil, HistoryOutput{}, err
	}
	return nil, HistoryOutput{Runs: runs, Count: len(runs)}, nil
}

// handleLatestRunResource summarizes the newest run as markdown.
func (s *Server) handleLatestRunResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	runs, err := s.store.ListRuns(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("# Latest render run\n\n")
	if len(runs) == 0 {
		sb.WriteString("No runs recorded yet. Render something with `gazeviz_render`.\n")
	} else {
		r := runs[0]
		fmt.Fprintf(&sb, "Run %d (%s) at %s: %d succeeded, %d failed.\n\n",
			r.ID, r.Command, r.StartedAt.Format(time.RFC3339), r.Succeeded, r.Failed)

		items, err := s.store.ItemsForRun(ctx, r.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to query run items: %w", err)
		}
		// Names and errors come from disk; they are sanitized before
		// reaching the agent's context.
		for _, it := range items {
			fmt.Fprintf(&sb, "- P%s/%s %s: %s", sanitize.Label(it.Participant), sanitize.Label(it.Media), it.Artifact, it.Status)
			if it.ErrorKind != "" {
				fmt.Fprintf(&sb, " (%s)", it.ErrorKind)
			}
			if msg := sanitize.Line(it.Error); msg != "" {
				fmt.Fprintf(&sb, ": %s", msg)
			}
			sb.WriteString("\n")
		}
	}

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      latestRunURI,
				MIMEType: "text/markdown",
				Text:     sb.String(),
			},
		},
	}, nil
}
