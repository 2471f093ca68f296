// Package mcp provides an MCP (Model Context Protocol) server for gazeviz.
package mcp

import (
	"github.com/nvandessel/gazeviz/internal/store"
)

// RenderInput defines the input for the gazeviz_render tool.
type RenderInput struct {
	Participant string `json:"participant" jsonschema:"Participant identifier, e.g. '1' or '01'"`
	Media       string `json:"media" jsonschema:"Stimulus image file name, e.g. 'cat.jpg'"`
	OutputDir   string `json:"output_dir,omitempty" jsonschema:"Directory for rendered files (default: configured batch output dir)"`
	PDF         bool   `json:"pdf,omitempty" jsonschema:"Also export the scanpath as a vector PDF"`
}

// ArtifactOutput is one rendered file.
type ArtifactOutput struct {
	Kind      string `json:"kind" jsonschema:"Artifact kind: heatmap, scanpath or scanpath_pdf"`
	Path      string `json:"path" jsonschema:"Output file path"`
	OK        bool   `json:"ok"`
	ErrorKind string `json:"error_kind,omitempty" jsonschema:"Failure class when not ok"`
	Error     string `json:"error,omitempty"`
}

// RenderOutput defines the output for the gazeviz_render tool.
type RenderOutput struct {
	Participant string           `json:"participant"`
	Media       string           `json:"media"`
	Fixations   int              `json:"fixations" jsonschema:"Number of fixations rendered"`
	Artifacts   []ArtifactOutput `json:"artifacts"`
	RunID       int64            `json:"run_id,omitempty" jsonschema:"Run history ID, when history is enabled"`
	Message     string           `json:"message" jsonschema:"Human-readable result message"`
}

// DiscoverInput defines the input for the gazeviz_discover tool.
type DiscoverInput struct {
	Participant string `json:"participant,omitempty" jsonschema:"Only units for this participant"`
	Media       string `json:"media,omitempty" jsonschema:"Only units for this exact image name"`
	Category    string `json:"category,omitempty" jsonschema:"Only images whose category contains this text (case-insensitive)"`
}

// UnitSummary is one discovered participant/image pair.
type UnitSummary struct {
	Participant string `json:"participant"`
	Media       string `json:"media"`
	Category    string `json:"category"`
	Block       string `json:"block"`
	Fixations   int    `json:"fixations"`
}

// DiscoverOutput defines the output for the gazeviz_discover tool.
type DiscoverOutput struct {
	Units   []UnitSummary `json:"units"`
	Skipped []string      `json:"skipped,omitempty" jsonschema:"Problems that skipped individual images or logs"`
	Count   int           `json:"count"`
}

// HistoryInput defines the input for the gazeviz_history tool.
type HistoryInput struct {
	Limit int   `json:"limit,omitempty" jsonschema:"Maximum runs to list (default: 10)"`
	RunID int64 `json:"run_id,omitempty" jsonschema:"Return the artifact outcomes of this run instead"`
}

// HistoryOutput defines the output for the gazeviz_history tool.
type HistoryOutput struct {
	Runs  []store.Run  `json:"runs,omitempty"`
	Items []store.Item `json:"items,omitempty"`
	Count int          `json:"count"`
}
