package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"video-processing-pipeline/internal/algorithms"
)

const (
	DefaultOutputName = "processed_video.mp4"
	DefaultLogFile    = "video_processing.log"
	DefaultCodec      = "mp4v"

	// RootStage names the decoded (and optionally resized) source frame
	RootStage = "original"
)

// ErrorPolicy decides what happens to the run when a single frame fails
type ErrorPolicy string

const (
	SkipFrame ErrorPolicy = "skip"
	AbortRun  ErrorPolicy = "abort"
)

// Stage is one configured transform of the chain
type Stage struct {
	Name      string                 `yaml:"name"`
	Algorithm string                 `yaml:"algorithm"`
	Input     string                 `yaml:"input,omitempty"` // previous stage when empty
	Title     string                 `yaml:"title,omitempty"`
	Display   bool                   `yaml:"display"`
	Params    map[string]interface{} `yaml:"params,omitempty"`
}

type Config struct {
	Source string `yaml:"source"`
	Output string `yaml:"output"`

	LogFile   string `yaml:"log_file"`
	LogFormat string `yaml:"log_format"` // text or json
	LogLevel  string `yaml:"log_level"`
	LogAppend bool   `yaml:"log_append"`
	Verbose   bool   `yaml:"verbose"`

	Codec       string  `yaml:"codec"`
	FallbackFPS float64 `yaml:"fallback_fps"`

	// Width and Height resize the source frame before the chain; zero keeps the source size
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	OutputStage     string `yaml:"output_stage"`
	OriginalTitle   string `yaml:"original_title"`
	DisplayOriginal bool   `yaml:"display_original"`

	Display        bool        `yaml:"display"`
	DisplayDelayMs int         `yaml:"display_delay_ms"`
	CancelKey      string      `yaml:"cancel_key"`
	ErrorPolicy    ErrorPolicy `yaml:"error_policy"`
	Overlay        bool        `yaml:"overlay"`
	ProgressEvery  int         `yaml:"progress_every"`
	MaxFrames      int         `yaml:"max_frames"`

	SnapshotDir   string `yaml:"snapshot_dir"`
	SnapshotEvery int    `yaml:"snapshot_every"`

	// QualityEvery compares the output stage with the original every N frames; 0 disables it
	QualityEvery int `yaml:"quality_every"`

	Stages []Stage `yaml:"stages"`
}

// DefaultStages is the classic chain: three color views of the frame and
// four gray-derived views
func DefaultStages() []Stage {
	return []Stage{
		{Name: "gray", Algorithm: "grayscale", Input: RootStage, Title: "Grayscale", Display: true},
		{Name: "hls", Algorithm: "hls", Input: RootStage, Title: "HLS Color Space", Display: true},
		{Name: "hsv", Algorithm: "hsv", Input: RootStage, Title: "HSV Color Space", Display: true},
		{
			Name: "thresh", Algorithm: "adaptive_threshold", Input: "gray", Title: "Adaptive Threshold", Display: true,
			Params: map[string]interface{}{"method": "mean", "type": "binary_inv", "block_size": 11, "C": 2},
		},
		{Name: "laplacian", Algorithm: "laplacian", Input: "gray", Title: "Laplacian Edge", Display: true},
		{
			Name: "blur", Algorithm: "gaussian_blur", Input: "gray", Title: "Gaussian Blur", Display: true,
			Params: map[string]interface{}{"kernel_size": 5, "sigma_x": 0},
		},
		{Name: "equalized", Algorithm: "equalize_hist", Input: "gray", Title: "Histogram Equalized", Display: true},
	}
}

func Default() *Config {
	return &Config{
		LogFile:         DefaultLogFile,
		LogFormat:       "text",
		LogLevel:        "info",
		Codec:           DefaultCodec,
		FallbackFPS:     30,
		OutputStage:     RootStage,
		OriginalTitle:   "Original Frame",
		DisplayOriginal: true,
		Display:         true,
		DisplayDelayMs:  25,
		CancelKey:       "q",
		ErrorPolicy:     SkipFrame,
		Overlay:         true,
		ProgressEvery:   1,
		SnapshotEvery:   100,
		Stages:          DefaultStages(),
	}
}

// Load reads a YAML file over the defaults. Keys absent from the file keep
// their default value; a present stages list replaces the default chain.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// WriteFile dumps the configuration as YAML
func (c *Config) WriteFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ResolveOutput returns the sink path, placing the default name next to the source
func (c *Config) ResolveOutput() string {
	if c.Output != "" {
		return c.Output
	}
	return filepath.Join(filepath.Dir(c.Source), DefaultOutputName)
}

// CancelKeyCode returns the key code polled for cancellation, -1 when disabled
func (c *Config) CancelKeyCode() int {
	if c.CancelKey == "" {
		return -1
	}
	return int(c.CancelKey[0])
}

// Validate checks the configuration before any resource is opened
func (c *Config) Validate() error {
	if c.Source == "" {
		return fmt.Errorf("source video path is required")
	}
	if len(c.Codec) != 4 {
		return fmt.Errorf("codec must be a four character code, got %q", c.Codec)
	}
	if c.FallbackFPS <= 0 {
		return fmt.Errorf("fallback_fps must be positive")
	}
	if c.Width < 0 || c.Height < 0 || (c.Width == 0) != (c.Height == 0) {
		return fmt.Errorf("width and height must both be zero or both be positive, got %dx%d", c.Width, c.Height)
	}
	switch c.ErrorPolicy {
	case SkipFrame, AbortRun:
	default:
		return fmt.Errorf("error_policy must be %q or %q, got %q", SkipFrame, AbortRun, c.ErrorPolicy)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	if c.ProgressEvery < 1 {
		return fmt.Errorf("progress_every must be at least 1")
	}
	if c.MaxFrames < 0 {
		return fmt.Errorf("max_frames must not be negative")
	}
	if c.DisplayDelayMs < 1 {
		return fmt.Errorf("display_delay_ms must be at least 1")
	}
	if len(c.CancelKey) > 1 {
		return fmt.Errorf("cancel_key must be a single character")
	}
	if c.QualityEvery < 0 {
		return fmt.Errorf("quality_every must not be negative")
	}
	if c.SnapshotDir != "" && c.SnapshotEvery < 1 {
		return fmt.Errorf("snapshot_every must be at least 1")
	}
	if c.ResolveOutput() == c.Source {
		return fmt.Errorf("output path must differ from the source")
	}

	return c.validateStages()
}

func (c *Config) validateStages() error {
	seen := map[string]bool{RootStage: true}

	for i, stage := range c.Stages {
		if stage.Name == "" {
			return fmt.Errorf("stage %d: name is required", i)
		}
		if seen[stage.Name] {
			return fmt.Errorf("stage %q: duplicate name", stage.Name)
		}
		if stage.Input != "" && !seen[stage.Input] {
			return fmt.Errorf("stage %q: input %q must name the original frame or an earlier stage", stage.Name, stage.Input)
		}
		if err := algorithms.ValidateParameters(stage.Algorithm, stage.Params); err != nil {
			return fmt.Errorf("stage %q: %w", stage.Name, err)
		}
		seen[stage.Name] = true
	}

	if !seen[c.OutputStage] {
		return fmt.Errorf("output_stage %q does not name a stage", c.OutputStage)
	}

	return nil
}
