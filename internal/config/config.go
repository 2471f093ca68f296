// Package config provides unified configuration loading for gazeviz.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/gazeviz/internal/backup"
	"github.com/nvandessel/gazeviz/internal/dataset"
	"github.com/nvandessel/gazeviz/internal/llm"
	"github.com/nvandessel/gazeviz/internal/render"
)

// GazevizConfig contains all gazeviz configuration settings.
type GazevizConfig struct {
	// Dataset locates the catalog, images, logs and precomputed maps.
	Dataset dataset.Paths `json:"dataset" yaml:"dataset"`

	// Render overrides the default visual style.
	Render RenderConfig `json:"render" yaml:"render"`

	// Batch controls the render worker pool.
	Batch BatchConfig `json:"batch" yaml:"batch"`

	// LLM contains settings for the multimodal analysis model.
	LLM LLMConfig `json:"llm" yaml:"llm"`

	// Reports is where the JSONL report and galleries are written.
	Reports ReportsConfig `json:"reports" yaml:"reports"`

	// Logging contains settings for operational logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// RenderConfig holds the user-tunable subset of render.Style.
// Unset keys keep the defaults; numeric keys are pointers so an explicit
// zero is applied rather than ignored.
type RenderConfig struct {
	Opacity        *float64 `json:"opacity,omitempty" yaml:"opacity,omitempty"`
	ColorMap       string   `json:"color_map,omitempty" yaml:"color_map,omitempty"`
	Levels         *int     `json:"levels,omitempty" yaml:"levels,omitempty"`
	Threshold      *float64 `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Bandwidth      string   `json:"bandwidth,omitempty" yaml:"bandwidth,omitempty"`
	BandwidthScale *float64 `json:"bandwidth_scale,omitempty" yaml:"bandwidth_scale,omitempty"`
	GridSize       *int     `json:"grid_size,omitempty" yaml:"grid_size,omitempty"`
	MarkerRadius   *float64 `json:"marker_radius,omitempty" yaml:"marker_radius,omitempty"`
	LineWidth      *float64 `json:"line_width,omitempty" yaml:"line_width,omitempty"`
	FontName       string   `json:"font_name,omitempty" yaml:"font_name,omitempty"`
	FontDirs       []string `json:"font_dirs,omitempty" yaml:"font_dirs,omitempty"`
}

// Style applies the overrides to render.DefaultStyle. Out-of-range values
// are carried through for render.Style.Validate to reject.
func (r RenderConfig) Style() render.Style {
	s := render.DefaultStyle()
	setFloat(&s.Density.Opacity, r.Opacity)
	if r.ColorMap != "" {
		s.Density.ColorMap = r.ColorMap
	}
	setInt(&s.Density.Levels, r.Levels)
	setFloat(&s.Density.Threshold, r.Threshold)
	if r.Bandwidth != "" {
		s.Density.Bandwidth = r.Bandwidth
	}
	setFloat(&s.Density.BandwidthScale, r.BandwidthScale)
	setInt(&s.Density.GridSize, r.GridSize)
	setFloat(&s.Path.MarkerRadius, r.MarkerRadius)
	setFloat(&s.Path.LineWidth, r.LineWidth)
	if r.FontName != "" {
		s.Path.FontName = r.FontName
	}
	if len(r.FontDirs) > 0 {
		s.Path.FontDirs = append([]string(nil), r.FontDirs...)
	}
	return s
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

// BatchConfig configures batch rendering.
type BatchConfig struct {
	// Workers bounds concurrent units. Zero uses GOMAXPROCS.
	Workers int `json:"workers" yaml:"workers"`

	// OutputDir receives rendered artifacts.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// PDF additionally exports each scanpath as a vector PDF.
	PDF bool `json:"pdf" yaml:"pdf"`
}

// LLMConfig configures the analysis model.
type LLMConfig struct {
	llm.ClientConfig `yaml:",inline"`

	// Interval is the minimum spacing between consecutive model calls.
	Interval time.Duration `json:"interval" yaml:"interval"`
}

// RedactedAPIKey returns the API key with most characters masked.
// Shows first 4 and last 4 characters, e.g., "AIza...xyz9".
// Returns "" for empty keys and "(set)" for keys shorter than 12 chars.
func (c LLMConfig) RedactedAPIKey() string {
	if c.APIKey == "" {
		return ""
	}
	if len(c.APIKey) < 12 {
		return "(set)"
	}
	return c.APIKey[:4] + "..." + c.APIKey[len(c.APIKey)-4:]
}

// String implements fmt.Stringer to prevent accidental API key logging.
func (c LLMConfig) String() string {
	return fmt.Sprintf("LLMConfig{Provider:%s, Model:%s, APIKey:%s, Interval:%s}",
		c.Provider, c.Model, c.RedactedAPIKey(), c.Interval)
}

// ReportsConfig configures analysis outputs.
type ReportsConfig struct {
	Dir  string `json:"dir" yaml:"dir"`
	File string `json:"file" yaml:"file"`

	// Archive controls how previous reports are kept before being replaced.
	Archive ArchiveConfig `json:"archive" yaml:"archive"`
}

// ArchiveConfig configures report archiving and retention.
type ArchiveConfig struct {
	// Enabled archives the existing report before each analyze run.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Keep retains the N most recent archives. Zero disables the limit.
	Keep int `json:"keep" yaml:"keep"`

	// MaxAge retains archives younger than this, e.g. "30d" or "2w".
	MaxAge string `json:"max_age,omitempty" yaml:"max_age,omitempty"`

	// MaxSize retains archives until their total size exceeds this, e.g. "100MB".
	MaxSize string `json:"max_size,omitempty" yaml:"max_size,omitempty"`
}

// Policy builds the retention policy for the configured limits. It returns
// nil when no limit is set.
func (a ArchiveConfig) Policy() (backup.RetentionPolicy, error) {
	var maxAge time.Duration
	if a.MaxAge != "" {
		d, err := backup.ParseDuration(a.MaxAge)
		if err != nil {
			return nil, fmt.Errorf("archive max_age: %w", err)
		}
		maxAge = d
	}
	var maxSize int64
	if a.MaxSize != "" {
		n, err := backup.ParseSize(a.MaxSize)
		if err != nil {
			return nil, fmt.Errorf("archive max_size: %w", err)
		}
		maxSize = n
	}
	return backup.PolicyFor(a.Keep, maxAge, maxSize), nil
}

// LoggingConfig configures gazeviz's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "trace" additionally logs full prompts and model responses.
	Level string `json:"level" yaml:"level"`
}

// Default returns a GazevizConfig with sensible defaults.
func Default() *GazevizConfig {
	return &GazevizConfig{
		Dataset: dataset.DefaultPaths("."),
		Batch: BatchConfig{
			OutputDir: "renders",
		},
		LLM: LLMConfig{
			ClientConfig: llm.DefaultConfig(),
			Interval:     2 * time.Second,
		},
		Reports: ReportsConfig{
			Dir:  "reports",
			File: "relatorio_analise_modelos.jsonl",
			Archive: ArchiveConfig{
				Enabled: true,
				Keep:    10,
			},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns ~/.gazeviz/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".gazeviz", "config.yaml"), nil
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.gazeviz/config.yaml -> environment variables
func Load() (*GazevizConfig, error) {
	config := Default()

	if configPath, err := DefaultPath(); err == nil {
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)
	return config, nil
}

// LoadFile loads path, or the default locations when path is empty, and
// applies environment overrides either way.
func LoadFile(path string) (*GazevizConfig, error) {
	if path == "" {
		return Load()
	}
	config, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(config)
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*GazevizConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.LLM.APIKey = expandEnvVars(config.LLM.APIKey)
	config.Dataset = expandPaths(config.Dataset)
	return config, nil
}

// Validate checks that the configuration is valid.
func (c *GazevizConfig) Validate() error {
	if err := c.Render.Style().Validate(); err != nil {
		return fmt.Errorf("render: %w", err)
	}

	if c.Batch.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Batch.Workers)
	}

	if _, err := time.ParseDuration(c.Dataset.Duration); err != nil {
		return fmt.Errorf("invalid dataset duration %q: %w", c.Dataset.Duration, err)
	}

	if c.LLM.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative, got %v", c.LLM.Timeout)
	}
	if c.LLM.Interval < 0 {
		return fmt.Errorf("interval must be non-negative, got %v", c.LLM.Interval)
	}

	validProviders := map[string]bool{
		"": true, llm.ProviderGemini: true, llm.ProviderOpenAI: true,
		llm.ProviderAnthropic: true, llm.ProviderPlaceholder: true,
	}
	if !validProviders[c.LLM.Provider] {
		return fmt.Errorf("invalid provider: %s (valid: gemini, openai, anthropic, placeholder)", c.LLM.Provider)
	}

	if c.Reports.Archive.Keep < 0 {
		return fmt.Errorf("archive keep must be non-negative, got %d", c.Reports.Archive.Keep)
	}
	if _, err := c.Reports.Archive.Policy(); err != nil {
		return err
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true, "warn": true, "error": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: error, warn, info, debug, trace)", c.Logging.Level)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *GazevizConfig) {
	if v := os.Getenv("GAZEVIZ_DATA_ROOT"); v != "" {
		duration := config.Dataset.Duration
		config.Dataset = dataset.DefaultPaths(v)
		config.Dataset.Duration = duration
	}

	if v := os.Getenv("GAZEVIZ_OUTPUT_DIR"); v != "" {
		config.Batch.OutputDir = v
	}

	if v := os.Getenv("GAZEVIZ_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Batch.Workers = n
		}
	}

	if v := os.Getenv("GAZEVIZ_LLM_PROVIDER"); v != "" {
		config.LLM.Provider = v
	}

	if v := os.Getenv("GAZEVIZ_LLM_MODEL"); v != "" {
		config.LLM.Model = v
	}

	if config.LLM.APIKey == "" {
		var key string
		switch config.LLM.Provider {
		case llm.ProviderGemini, "":
			key = os.Getenv("GOOGLE_API_KEY")
		case llm.ProviderOpenAI:
			key = os.Getenv("OPENAI_API_KEY")
		case llm.ProviderAnthropic:
			key = os.Getenv("ANTHROPIC_API_KEY")
		}
		config.LLM.APIKey = key
	}

	if v := os.Getenv("GAZEVIZ_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}

func expandPaths(p dataset.Paths) dataset.Paths {
	p.Catalog = expandEnvVars(p.Catalog)
	p.Images = expandEnvVars(p.Images)
	p.Logs = expandEnvVars(p.Logs)
	p.SaliencyMaps = expandEnvVars(p.SaliencyMaps)
	p.Scanpaths = expandEnvVars(p.Scanpaths)
	return p
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}

// Get returns the value of a dotted config key as a display string.
func (c *GazevizConfig) Get(key string) (string, bool) {
	for _, kv := range c.Entries() {
		if kv[0] == key {
			return kv[1], true
		}
	}
	return "", false
}

// Entries lists every displayable key/value pair, API key redacted.
func (c *GazevizConfig) Entries() [][2]string {
	style := c.Render.Style()
	return [][2]string{
		{"dataset.catalog", c.Dataset.Catalog},
		{"dataset.images", c.Dataset.Images},
		{"dataset.logs", c.Dataset.Logs},
		{"dataset.saliency_maps", c.Dataset.SaliencyMaps},
		{"dataset.scanpaths", c.Dataset.Scanpaths},
		{"dataset.duration", c.Dataset.Duration},
		{"render.color_map", style.Density.ColorMap},
		{"render.opacity", strconv.FormatFloat(style.Density.Opacity, 'g', -1, 64)},
		{"render.threshold", strconv.FormatFloat(style.Density.Threshold, 'g', -1, 64)},
		{"batch.workers", strconv.Itoa(c.Batch.Workers)},
		{"batch.output_dir", c.Batch.OutputDir},
		{"batch.pdf", strconv.FormatBool(c.Batch.PDF)},
		{"llm.provider", c.LLM.Provider},
		{"llm.model", c.LLM.Model},
		{"llm.api_key", c.LLM.RedactedAPIKey()},
		{"llm.base_url", c.LLM.BaseURL},
		{"llm.timeout", c.LLM.Timeout.String()},
		{"llm.interval", c.LLM.Interval.String()},
		{"reports.dir", c.Reports.Dir},
		{"reports.file", c.Reports.File},
		{"reports.archive.enabled", strconv.FormatBool(c.Reports.Archive.Enabled)},
		{"reports.archive.keep", strconv.Itoa(c.Reports.Archive.Keep)},
		{"reports.archive.max_age", c.Reports.Archive.MaxAge},
		{"reports.archive.max_size", c.Reports.Archive.MaxSize},
		{"logging.level", c.Logging.Level},
	}
}
