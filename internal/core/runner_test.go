package core

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-processing-pipeline/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Source = "Demo.mp4"
	cfg.Output = filepath.Join(t.TempDir(), "processed_video.mp4")
	require.NoError(t, cfg.Validate())
	return cfg
}

func messages(hook *test.Hook, prefix string) []string {
	var found []string
	for _, entry := range hook.AllEntries() {
		if strings.HasPrefix(entry.Message, prefix) {
			found = append(found, entry.Message)
		}
	}
	return found
}

func TestRunProcessesEveryFrame(t *testing.T) {
	logger, hook := test.NewNullLogger()
	cfg := testConfig(t)
	src := newFakeSource(640, 480, 30, 10)
	sinks := &sinkRecorder{}

	runner, err := NewRunner(cfg, logger, src.opener(), sinks.factory())
	require.NoError(t, err)

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, summary.Status)
	assert.Equal(t, 10, summary.FramesRead)
	assert.Equal(t, 10, summary.FramesWritten)
	assert.Zero(t, summary.FramesSkipped)

	require.Equal(t, 1, sinks.calls)
	assert.Len(t, sinks.sink.frames, 10)
	assert.Equal(t, image.Pt(640, 480), sinks.sink.size)
	assert.Equal(t, 30.0, sinks.sink.fps)
	assert.Equal(t, cfg.Output, sinks.sink.path)
	assert.True(t, sinks.sink.closed)
	assert.True(t, src.closed)

	processed := messages(hook, "Processed frame ")
	require.Len(t, processed, 10)
	for i, msg := range processed {
		assert.Equal(t, fmt.Sprintf("Processed frame %d", i+1), msg)
	}
	assert.Len(t, messages(hook, "Video loaded: 640x480, 30.00 FPS, 10 frames"), 1)
	assert.Len(t, messages(hook, "End of video reached"), 1)
	assert.Equal(t, "Video processing completed", hook.LastEntry().Message)
}

func TestRunMissingSource(t *testing.T) {
	logger, hook := test.NewNullLogger()
	cfg := testConfig(t)
	sinks := &sinkRecorder{}

	missing := func(path string) (Source, error) {
		return nil, fmt.Errorf("%w: video file %s does not exist", ErrSourceUnavailable, path)
	}

	runner, err := NewRunner(cfg, logger, missing, sinks.factory())
	require.NoError(t, err)

	summary, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
	assert.Equal(t, StatusFailed, summary.Status)
	assert.Zero(t, sinks.calls, "no output file may be created")

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Contains(t, entry.Message, "Demo.mp4")
}

func TestRunZeroSizeSource(t *testing.T) {
	logger, _ := test.NewNullLogger()
	src := newFakeSource(0, 0, 30, 3)
	sinks := &sinkRecorder{}

	runner, err := NewRunner(testConfig(t), logger, src.opener(), sinks.factory())
	require.NoError(t, err)

	_, err = runner.Run(context.Background())
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
	assert.Zero(t, sinks.calls)
	assert.True(t, src.closed)
}

func TestRunInterruptedByCanceller(t *testing.T) {
	logger, hook := test.NewNullLogger()
	src := newFakeSource(64, 48, 25, 10)
	sinks := &sinkRecorder{}

	runner, err := NewRunner(testConfig(t), logger, src.opener(), sinks.factory(), WithCanceller(AfterFrames(4)))
	require.NoError(t, err)

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusInterrupted, summary.Status)
	assert.Len(t, sinks.sink.frames, 4)
	assert.True(t, sinks.sink.closed)
	assert.Len(t, messages(hook, "User interrupted video processing"), 1)
	assert.Empty(t, messages(hook, "End of video reached"))
}

func TestRunInterruptedByKey(t *testing.T) {
	logger, _ := test.NewNullLogger()
	src := newFakeSource(64, 48, 25, 10)
	sinks := &sinkRecorder{}
	display := newFakeDisplay(-1, -1, 'q')

	runner, err := NewRunner(testConfig(t), logger, src.opener(), sinks.factory(), WithDisplay(display))
	require.NoError(t, err)

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusInterrupted, summary.Status)
	assert.Len(t, sinks.sink.frames, 3)
	assert.True(t, display.closed)
	assert.Equal(t, 3, display.shown["Original Frame"])
	assert.Equal(t, 3, display.shown["Adaptive Threshold"])
	assert.Len(t, display.shown, 8)
}

func TestRunInterruptedByContext(t *testing.T) {
	logger, _ := test.NewNullLogger()
	src := newFakeSource(64, 48, 25, 10)
	sinks := &sinkRecorder{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner, err := NewRunner(testConfig(t), logger, src.opener(), sinks.factory())
	require.NoError(t, err)

	summary, err := runner.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusInterrupted, summary.Status)
	assert.Len(t, sinks.sink.frames, 1)
}

func TestRunErrorPolicy(t *testing.T) {
	t.Run("skip", func(t *testing.T) {
		logger, hook := test.NewNullLogger()
		src := newFakeSource(64, 48, 25, 10)
		src.broken[3] = true
		sinks := &sinkRecorder{}

		runner, err := NewRunner(testConfig(t), logger, src.opener(), sinks.factory())
		require.NoError(t, err)

		summary, err := runner.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, summary.Status)
		assert.Equal(t, 10, summary.FramesRead)
		assert.Equal(t, 9, summary.FramesWritten)
		assert.Equal(t, 1, summary.FramesSkipped)
		assert.Len(t, sinks.sink.frames, 9)
		assert.Len(t, messages(hook, "Failed to process frame"), 1)
	})

	t.Run("abort", func(t *testing.T) {
		logger, hook := test.NewNullLogger()
		cfg := testConfig(t)
		cfg.ErrorPolicy = config.AbortRun
		src := newFakeSource(64, 48, 25, 10)
		src.broken[2] = true
		sinks := &sinkRecorder{}

		runner, err := NewRunner(cfg, logger, src.opener(), sinks.factory())
		require.NoError(t, err)

		summary, err := runner.Run(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrFrameDecode))
		assert.Equal(t, StatusFailed, summary.Status)
		assert.Len(t, sinks.sink.frames, 2)
		assert.True(t, sinks.sink.closed, "sink is finalized on abort")
		assert.Equal(t, "Video processing failed", hook.LastEntry().Message)
	})
}

func TestRunSinkWriteFailure(t *testing.T) {
	logger, _ := test.NewNullLogger()
	src := newFakeSource(64, 48, 25, 10)
	sinks := &sinkRecorder{failAt: 5}

	runner, err := NewRunner(testConfig(t), logger, src.opener(), sinks.factory())
	require.NoError(t, err)

	summary, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSinkWrite))
	assert.Equal(t, StatusFailed, summary.Status)
	assert.Len(t, sinks.sink.frames, 4)
	assert.True(t, src.closed)
}

func TestRunFrameLimit(t *testing.T) {
	logger, hook := test.NewNullLogger()
	cfg := testConfig(t)
	cfg.MaxFrames = 5
	src := newFakeSource(64, 48, 25, 10)
	sinks := &sinkRecorder{}

	runner, err := NewRunner(cfg, logger, src.opener(), sinks.factory())
	require.NoError(t, err)

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, summary.Status)
	assert.Len(t, sinks.sink.frames, 5)
	assert.Len(t, messages(hook, "Frame limit reached"), 1)
}

func TestRunFallbackFPS(t *testing.T) {
	logger, hook := test.NewNullLogger()
	src := newFakeSource(64, 48, 0, 2)
	sinks := &sinkRecorder{}

	runner, err := NewRunner(testConfig(t), logger, src.opener(), sinks.factory())
	require.NoError(t, err)

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 30.0, sinks.sink.fps)
	assert.Equal(t, 30.0, summary.OutputFPS)
	assert.Len(t, messages(hook, "Source does not declare a frame rate"), 1)
}

func TestRunOutputSize(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Config)
		want   image.Point
	}{
		{"source size", func(c *config.Config) {}, image.Pt(64, 48)},
		{"gray stage", func(c *config.Config) { c.OutputStage = "gray" }, image.Pt(64, 48)},
		{"target size", func(c *config.Config) { c.Width, c.Height = 54, 38 }, image.Pt(54, 38)},
		{"resize stage", func(c *config.Config) {
			c.Stages = append(c.Stages, config.Stage{
				Name: "small", Algorithm: "resize", Input: "thresh",
				Params: map[string]interface{}{"width": 20, "height": 10},
			})
			c.OutputStage = "small"
		}, image.Pt(20, 10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := test.NewNullLogger()
			cfg := testConfig(t)
			tt.modify(cfg)
			src := newFakeSource(64, 48, 25, 3)
			sinks := &sinkRecorder{}

			runner, err := NewRunner(cfg, logger, src.opener(), sinks.factory())
			require.NoError(t, err)

			summary, err := runner.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, sinks.sink.size)
			assert.Equal(t, tt.want, summary.OutputSize)
			assert.Len(t, sinks.sink.frames, 3)
			for _, channels := range sinks.sink.channels {
				assert.Equal(t, 3, channels)
			}
		})
	}
}

func TestRunHeadlessMatchesDisplay(t *testing.T) {
	run := func(opts ...Option) [][]byte {
		logger, _ := test.NewNullLogger()
		cfg := testConfig(t)
		cfg.Overlay = false
		cfg.OutputStage = "thresh"
		src := newFakeSource(64, 48, 25, 5)
		sinks := &sinkRecorder{}

		runner, err := NewRunner(cfg, logger, src.opener(), sinks.factory(), opts...)
		require.NoError(t, err)
		_, err = runner.Run(context.Background())
		require.NoError(t, err)
		return sinks.sink.frames
	}

	headless := run()
	again := run()
	displayed := run(WithDisplay(newFakeDisplay()))

	assert.Equal(t, headless, again, "output must be deterministic")
	assert.Equal(t, headless, displayed, "display must not change the output")
}

func TestRunSnapshots(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cfg := testConfig(t)
	cfg.SnapshotEvery = 2
	src := newFakeSource(64, 48, 25, 5)
	sinks := &sinkRecorder{}
	snaps := &fakeSnapshotter{}

	runner, err := NewRunner(cfg, logger, src.opener(), sinks.factory(), WithSnapshotter(snaps))
	require.NoError(t, err)

	_, err = runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4}, snaps.frames)
	assert.Equal(t, 8, snaps.stages)
}

func TestNewRunnerRejectsUnknownOutputStage(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cfg := testConfig(t)
	cfg.OutputStage = "sepia"

	_, err := NewRunner(cfg, logger, newFakeSource(8, 8, 25, 1).opener(), (&sinkRecorder{}).factory())
	assert.Error(t, err)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "completed", StatusCompleted.String())
	assert.Equal(t, "interrupted", StatusInterrupted.String())
	assert.Equal(t, "failed", StatusFailed.String())
	assert.Equal(t, "Status(9)", Status(9).String())
}

func TestRunQualitySampling(t *testing.T) {
	logger, hook := test.NewNullLogger()
	cfg := testConfig(t)
	cfg.Overlay = false
	cfg.QualityEvery = 2
	src := newFakeSource(64, 48, 25, 6)
	sinks := &sinkRecorder{}

	runner, err := NewRunner(cfg, logger, src.opener(), sinks.factory())
	require.NoError(t, err)

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.QualitySamples)
	assert.Equal(t, 0.0, summary.Quality["mse"], "output stage is the original frame")
	assert.Equal(t, 100.0, summary.Quality["psnr"])
	assert.Equal(t, "100.000", hook.LastEntry().Data["quality_psnr"])
}
