// Package report persists analysis results as JSON Lines and composes
// per-unit image galleries and PDF reports.
package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrNoResults is returned by WriteJSONL when there is nothing to write.
var ErrNoResults = errors.New("no results to write")

// DefaultFileName is the result log name inside the reports directory.
const DefaultFileName = "relatorio_analise_modelos.jsonl"

// Result is one analysed participant/media pair. Field names follow the
// established result log format consumed by downstream notebooks.
type Result struct {
	Participant        string `json:"participante"`
	Media              string `json:"media_name"`
	Category           string `json:"categoria"`
	Block              string `json:"bloco"`
	Prompt             string `json:"prompt"`
	ImagePath          string `json:"image_path"`
	ScanpathPath       string `json:"scanpath_path"`
	HeatmapPath        string `json:"heatmap_path"`
	FixmapPath         string `json:"fixmap_path"`
	OverlayHeatmapPath string `json:"overlay_heatmap_path"`

	RenderedHeatmap  string            `json:"rendered_heatmap_path,omitempty"`
	RenderedScanpath string            `json:"rendered_scanpath_path,omitempty"`
	GalleryPath      string            `json:"gallery_path,omitempty"`
	PDFPath          string            `json:"pdf_path,omitempty"`
	RenderErrors     map[string]string `json:"render_errors,omitempty"`

	Response string `json:"Resposta"`
}

// WriteJSONL writes one JSON object per line to path, replacing any existing
// file atomically. Non-ASCII text is written as UTF-8, not escaped.
func WriteJSONL(path string, results []Result) error {
	if len(results) == 0 {
		return ErrNoResults
	}

	var buf bytes.Buffer
	if err := Encode(&buf, results); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}

	// Write atomically via temp file + rename.
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing results: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming results file: %w", err)
	}
	return nil
}

// ReadJSONL reads a result log written by WriteJSONL.
func ReadJSONL(path string) ([]Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Encode writes results as JSON Lines. HTML characters are not escaped.
func Encode(w io.Writer, results []Result) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i := range results {
		if err := enc.Encode(&results[i]); err != nil {
			return fmt.Errorf("encoding result %d: %w", i+1, err)
		}
	}
	return nil
}

// Decode reads JSON Lines results until EOF.
func Decode(r io.Reader) ([]Result, error) {
	var out []Result
	dec := json.NewDecoder(r)
	for dec.More() {
		var res Result
		if err := dec.Decode(&res); err != nil {
			return nil, fmt.Errorf("decoding result %d: %w", len(out)+1, err)
		}
		out = append(out, res)
	}
	return out, nil
}
