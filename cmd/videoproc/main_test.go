package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-processing-pipeline/internal/config"
)

func TestParseArgsPositionalSource(t *testing.T) {
	cfg, opts, err := parseArgs([]string{"--headless", "--error-policy", "abort", "--max-frames", "12", "videos/Demo.mp4"}, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, "videos/Demo.mp4", cfg.Source)
	assert.Equal(t, config.AbortRun, cfg.ErrorPolicy)
	assert.Equal(t, 12, cfg.MaxFrames)
	assert.True(t, opts.headless)
	assert.Equal(t, filepath.Join("videos", config.DefaultOutputName), cfg.ResolveOutput())
}

func TestParseArgsFlagsOverrideConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte("source: a.mp4\ncodec: XVID\nlog_format: json\n"), 0644))

	cfg, _, err := parseArgs([]string{"-c", path, "--input", "b.mp4", "--log-format", "text"}, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, "b.mp4", cfg.Source)
	assert.Equal(t, "XVID", cfg.Codec, "unset flags keep the file value")
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestParseArgsErrors(t *testing.T) {
	_, _, err := parseArgs([]string{"--no-such-flag"}, &bytes.Buffer{})
	assert.Error(t, err)

	_, _, err = parseArgs([]string{"a.mp4", "b.mp4"}, &bytes.Buffer{})
	assert.Error(t, err)

	_, _, err = parseArgs([]string{"-c", filepath.Join(t.TempDir(), "missing.yaml")}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRunExitCodes(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "video_processing.log")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"version", []string{"--version"}, exitOK},
		{"help", []string{"--help"}, exitOK},
		{"list algorithms", []string{"--list-algorithms"}, exitOK},
		{"no source", []string{"--log-file", logPath}, exitUsage},
		{"bad policy", []string{"--error-policy", "retry", "a.mp4"}, exitUsage},
		{"bad output stage", []string{"--output-stage", "sepia", "a.mp4"}, exitUsage},
		{"missing source", []string{"--headless", "--log-file", logPath, filepath.Join(dir, "Demo.mp4")}, exitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Equal(t, tt.want, run(tt.args, &stdout, &stderr), stderr.String())
		})
	}
}

func TestRunMissingSourceIsLogged(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "video_processing.log")
	source := filepath.Join(dir, "Demo.mp4")

	var stdout, stderr bytes.Buffer
	code := run([]string{"--headless", "--log-format", "json", "--log-file", logPath, source}, &stdout, &stderr)
	require.Equal(t, exitFailure, code)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Failed to open video file "+source)
	assert.Contains(t, string(data), `"run_id"`)
	assert.NoFileExists(t, filepath.Join(dir, config.DefaultOutputName))
}

func TestDumpConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "effective.yaml")

	var stdout, stderr bytes.Buffer
	require.Equal(t, exitOK, run([]string{"--dump-config", path, "--width", "540", "--height", "380"}, &stdout, &stderr))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 540, cfg.Width)
	assert.Equal(t, 380, cfg.Height)
}

func TestPrintAlgorithms(t *testing.T) {
	var out bytes.Buffer
	printAlgorithms(&out)
	assert.Contains(t, out.String(), "adaptive_threshold")
	assert.Contains(t, out.String(), "block_size")
}
