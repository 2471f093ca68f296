package dataset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/nvandessel/gazeviz/internal/fixation"
	"github.com/nvandessel/gazeviz/internal/render"
)

// DefaultDuration is the recording window used in saliency artifact names.
const DefaultDuration = "7s"

// Paths locates the experiment data on disk.
type Paths struct {
	Catalog      string `json:"catalog" yaml:"catalog"`
	Images       string `json:"images" yaml:"images"`
	Logs         string `json:"logs" yaml:"logs"`
	SaliencyMaps string `json:"saliency_maps" yaml:"saliency_maps"`
	Scanpaths    string `json:"scanpaths" yaml:"scanpaths"`
	Duration     string `json:"duration" yaml:"duration"`
}

// DefaultPaths returns the standard layout under root.
func DefaultPaths(root string) Paths {
	return Paths{
		Catalog:      filepath.Join(root, "info.csv"),
		Images:       filepath.Join(root, "images"),
		Logs:         filepath.Join(root, "eyetracker_logs"),
		SaliencyMaps: filepath.Join(root, "saliency_maps"),
		Scanpaths:    filepath.Join(root, "scanpaths"),
		Duration:     DefaultDuration,
	}
}

// Query selects units. Empty fields match everything.
type Query struct {
	Participant string `json:"participant,omitempty"`
	Media       string `json:"media,omitempty"`
	Category    string `json:"category,omitempty"`
}

// Unit is one participant viewing one image: the fixations to render and
// every artifact path associated with the pair.
type Unit struct {
	Participant string            `json:"participante"`
	Media       string            `json:"media_name"`
	Category    string            `json:"categoria"`
	Block       string            `json:"bloco"`
	ImagePath   string            `json:"image_path"`
	LogPath     string            `json:"log_path"`
	Fixations   fixation.Sequence `json:"-"`

	// Precomputed saliency artifacts produced by the eye-tracker software.
	ScanpathPath       string `json:"scanpath_path"`
	HeatmapPath        string `json:"heatmap_path"`
	FixmapPath         string `json:"fixmap_path"`
	OverlayHeatmapPath string `json:"overlay_heatmap_path"`
}

// Stem returns the media name up to its first dot.
func (u Unit) Stem() string {
	stem, _, _ := strings.Cut(u.Media, ".")
	return stem
}

// OutputName is the base name shared by every artifact rendered for u.
func (u Unit) OutputName() string {
	return fmt.Sprintf("%s_P%s", u.Stem(), PadID(u.Participant))
}

// Key identifies u in logs and run history.
func (u Unit) Key() string {
	return "P" + PadID(u.Participant) + "/" + u.Media
}

// Discovery is the outcome of Discover. Skipped holds per-item problems
// that did not stop discovery of other units.
type Discovery struct {
	Units   []Unit
	Skipped []error
}

// Discover pairs catalog images with the fixation logs that reference them.
// A missing catalog is fatal. A missing image or log, or a log that fails to
// parse, is recorded in Skipped and the remaining units are still returned.
func Discover(ctx context.Context, paths Paths, q Query) (*Discovery, error) {
	catalog, err := LoadCatalog(paths.Catalog)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &render.InputNotFoundError{Path: paths.Catalog, Err: err}
		}
		return nil, err
	}

	duration := paths.Duration
	if duration == "" {
		duration = DefaultDuration
	}

	d := &Discovery{}
	logs := make(map[string][]fixation.Record)
	failed := make(map[string]bool)

	for _, entry := range catalog.Filter(q.Media, q.Category) {
		if err := ctx.Err(); err != nil {
			return d, err
		}

		imagePath := filepath.Join(paths.Images, entry.Media)
		if _, err := os.Stat(imagePath); err != nil {
			d.Skipped = append(d.Skipped, &render.InputNotFoundError{Path: imagePath, Err: err})
			continue
		}

		candidates, err := logCandidates(paths.Logs, entry.Block, q.Participant)
		if err != nil {
			d.Skipped = append(d.Skipped, err)
			continue
		}

		for _, logPath := range candidates {
			if failed[logPath] {
				continue
			}
			records, ok := logs[logPath]
			if !ok {
				records, err = fixation.LoadLog(logPath)
				if err != nil {
					failed[logPath] = true
					if errors.Is(err, fs.ErrNotExist) {
						err = &render.InputNotFoundError{Path: logPath, Err: err}
					}
					d.Skipped = append(d.Skipped, err)
					continue
				}
				logs[logPath] = records
			}

			seq := fixation.ForMedia(records, entry.Media)
			if len(seq) == 0 {
				continue
			}

			participant := ParticipantFromLog(logPath)
			d.Units = append(d.Units, Unit{
				Participant:        participant,
				Media:              entry.Media,
				Category:           entry.Category,
				Block:              entry.Block,
				ImagePath:          imagePath,
				LogPath:            logPath,
				Fixations:          seq,
				ScanpathPath:       filepath.Join(paths.Scanpaths, "paths_"+duration, stemOf(entry.Media), participant+".png"),
				HeatmapPath:        filepath.Join(paths.SaliencyMaps, "heatmaps_"+duration, entry.Media),
				FixmapPath:         filepath.Join(paths.SaliencyMaps, "fixmaps_"+duration, entry.Media),
				OverlayHeatmapPath: filepath.Join(paths.SaliencyMaps, "overlay_heatmaps_"+duration, "overlay_"+entry.Media),
			})
		}
	}
	return d, nil
}

// LogName returns the log file name for a block and participant.
func LogName(block, participant string) string {
	return fmt.Sprintf("%s_kh0%s_fixations.csv", PadID(block), PadID(participant))
}

// ParticipantFromLog extracts the participant id from a log file name of the
// form <block>_kh0<pp>_fixations.csv.
func ParticipantFromLog(path string) string {
	parts := strings.Split(filepath.Base(path), "_")
	if len(parts) < 2 {
		return ""
	}
	return strings.Replace(parts[1], "kh0", "", 1)
}

func logCandidates(dir, block, participant string) ([]string, error) {
	if participant != "" {
		return []string{filepath.Join(dir, LogName(block, participant))}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &render.InputNotFoundError{Path: dir, Err: err}
		}
		return nil, fmt.Errorf("listing logs: %w", err)
	}

	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, block+"_") || !strings.HasSuffix(name, "_fixations.csv") {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

func stemOf(media string) string {
	return Unit{Media: media}.Stem()
}

// FindUnit locates a single participant/media pair by scanning the log
// directory directly, without consulting the catalog. The first log that
// contains rows for media wins. A participant without any log is an
// InputNotFoundError; logs without rows for media yield ErrEmptyInput.
func FindUnit(ctx context.Context, paths Paths, participant, media string) (*Unit, error) {
	imagePath := filepath.Join(paths.Images, media)

	entries, err := os.ReadDir(paths.Logs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &render.InputNotFoundError{Path: paths.Logs, Err: err}
		}
		return nil, fmt.Errorf("listing logs: %w", err)
	}

	marker := "_kh0" + PadID(participant) + "_"
	var loadErr error
	logs := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() || !strings.Contains(e.Name(), marker) {
			continue
		}
		logs++
		logPath := filepath.Join(paths.Logs, e.Name())
		records, err := fixation.LoadLog(logPath)
		if err != nil {
			loadErr = err
			continue
		}
		seq := fixation.ForMedia(records, media)
		if len(seq) == 0 {
			continue
		}
		if _, err := os.Stat(imagePath); err != nil {
			return nil, &render.InputNotFoundError{Path: imagePath, Err: err}
		}
		block, _, _ := strings.Cut(e.Name(), "_")
		return &Unit{
			Participant: PadID(participant),
			Media:       media,
			Block:       block,
			ImagePath:   imagePath,
			LogPath:     logPath,
			Fixations:   seq,
		}, nil
	}
	if logs == 0 {
		return nil, &render.InputNotFoundError{
			Path: filepath.Join(paths.Logs, "*"+marker+"fixations.csv"),
			Err:  fs.ErrNotExist,
		}
	}
	if loadErr != nil {
		return nil, loadErr
	}
	return nil, fmt.Errorf("participant %s, media %s: %w", PadID(participant), media, render.ErrEmptyInput)
}
