// Frame pipeline runner: source -> transform chain -> display and sink
package core

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"video-processing-pipeline/internal/config"
	"video-processing-pipeline/internal/metrics"
)

// Status is the outcome of a run
type Status int

const (
	StatusCompleted Status = iota
	StatusInterrupted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusInterrupted:
		return "interrupted"
	case StatusFailed:
		return "failed"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Summary describes a finished run
type Summary struct {
	metrics.Stats

	Status     Status
	Source     Properties
	OutputPath string
	OutputSize image.Point
	OutputFPS  float64

	// Quality holds mean output quality metrics when sampling is enabled
	Quality        map[string]float64
	QualitySamples int
}

// Runner drives one video through the chain. It owns the source, the sink
// and the display for the duration of Run and releases them on every exit path.
type Runner struct {
	cfg        *config.Config
	chain      *Chain
	logger     logrus.FieldLogger
	openSource SourceOpener
	newSink    SinkFactory
	display    Display
	canceller  Canceller
	snapshots  Snapshotter
	progress   *metrics.Progress
	quality    *metrics.QualityTracker
}

type Option func(*Runner)

// WithDisplay shows displayable stages; the default is headless
func WithDisplay(display Display) Option {
	return func(r *Runner) {
		r.display = display
	}
}

// WithCanceller replaces the default key canceller
func WithCanceller(canceller Canceller) Option {
	return func(r *Runner) {
		r.canceller = canceller
	}
}

func WithSnapshotter(snapshots Snapshotter) Option {
	return func(r *Runner) {
		r.snapshots = snapshots
	}
}

func NewRunner(cfg *config.Config, logger logrus.FieldLogger, openSource SourceOpener, newSink SinkFactory, opts ...Option) (*Runner, error) {
	chain, err := NewChain(cfg.Stages)
	if err != nil {
		return nil, fmt.Errorf("build transform chain: %w", err)
	}
	if !chain.Has(cfg.OutputStage) {
		return nil, fmt.Errorf("output stage %q is not part of the chain", cfg.OutputStage)
	}

	r := &Runner{
		cfg:        cfg,
		chain:      chain,
		logger:     logger,
		openSource: openSource,
		newSink:    newSink,
		display:    headless{},
		canceller:  KeyCanceller(cfg.CancelKeyCode()),
		progress:   metrics.NewProgress(),
	}
	if cfg.QualityEvery > 0 {
		r.quality = metrics.NewQualityTracker(metrics.NewEvaluator())
	}
	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Chain returns the resolved transform chain
func (r *Runner) Chain() *Chain {
	return r.chain
}

// Run processes the source until it is exhausted, cancelled or a fatal error
// occurs. Cancellation through ctx is checked once per frame and ends the run
// with StatusInterrupted, not an error.
func (r *Runner) Run(ctx context.Context) (summary Summary, err error) {
	cfg := r.cfg
	summary.Status = StatusFailed
	summary.OutputPath = cfg.ResolveOutput()
	log := r.logger.WithField("source", cfg.Source)
	defer func() {
		if cerr := r.display.Close(); cerr != nil {
			log.WithError(cerr).Warn("Failed to close display windows")
		}
	}()

	src, err := r.openSource(cfg.Source)
	if err != nil {
		log.WithError(err).Errorf("Failed to open video file %s", cfg.Source)
		return summary, err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			log.WithError(cerr).Warn("Failed to release video source")
		}
	}()

	props := src.Properties()
	summary.Source = props
	log.WithFields(logrus.Fields{
		"width":  props.Width,
		"height": props.Height,
		"fps":    props.FPS,
		"frames": props.FrameCount,
	}).Infof("Video loaded: %dx%d, %.2f FPS, %d frames", props.Width, props.Height, props.FPS, props.FrameCount)

	if props.Width <= 0 || props.Height <= 0 {
		err = fmt.Errorf("%w: %s reports no frame size", ErrSourceUnavailable, cfg.Source)
		log.WithError(err).Errorf("Failed to open video file %s", cfg.Source)
		return summary, err
	}

	rootSize := props.Size()
	if cfg.Width > 0 && cfg.Height > 0 {
		rootSize = image.Pt(cfg.Width, cfg.Height)
	}

	outputSize, err := r.chain.OutputSize(rootSize, cfg.OutputStage)
	if err != nil {
		log.WithError(err).Error("Failed to determine output frame size")
		return summary, fmt.Errorf("determine output size: %w", err)
	}

	fps := props.FPS
	if fps <= 0 {
		fps = cfg.FallbackFPS
		log.WithField("fps", fps).Warn("Source does not declare a frame rate, using fallback")
	}

	sink, err := r.newSink(summary.OutputPath, outputSize, fps)
	if err != nil {
		log.WithError(err).WithField("output", summary.OutputPath).Error("Failed to create output video")
		return summary, err
	}
	summary.OutputSize = sink.Size()
	summary.OutputFPS = sink.FPS()
	log.WithFields(logrus.Fields{
		"output": sink.Path(),
		"width":  summary.OutputSize.X,
		"height": summary.OutputSize.Y,
		"fps":    summary.OutputFPS,
		"codec":  cfg.Codec,
		"stage":  cfg.OutputStage,
	}).Info("Output video created")

	sinkClosed := false
	defer func() {
		if !sinkClosed {
			sink.Close()
		}
	}()

	r.progress.Start()
	summary.Status, err = r.loop(ctx, src, sink, props, rootSize, log)

	sinkClosed = true
	if cerr := sink.Close(); cerr != nil {
		log.WithError(cerr).Error("Failed to finalize output video")
		if err == nil {
			summary.Status = StatusFailed
			err = fmt.Errorf("%w: finalize %s: %v", ErrSinkWrite, sink.Path(), cerr)
		}
	}

	summary.Stats = r.progress.Stats()
	if r.quality != nil {
		summary.Quality = r.quality.Means()
		summary.QualitySamples = r.quality.Samples()
	}
	r.logSummary(log, summary)

	return summary, err
}

func (r *Runner) loop(ctx context.Context, src Source, sink Sink, props Properties, rootSize image.Point, log logrus.FieldLogger) (Status, error) {
	cancel := AnyCanceller(r.canceller, ContextCanceller(ctx))

	frame := gocv.NewMat()
	defer frame.Close()

	for {
		if r.cfg.MaxFrames > 0 && r.progress.Stats().FramesRead >= r.cfg.MaxFrames {
			log.WithField("max_frames", r.cfg.MaxFrames).Info("Frame limit reached")
			return StatusCompleted, nil
		}

		if !src.Read(&frame) {
			read := r.progress.Stats().FramesRead
			if props.FrameCount > 0 && read < props.FrameCount {
				log.WithFields(logrus.Fields{
					"read":     read,
					"declared": props.FrameCount,
				}).Warn("Source ended before its declared frame count")
			}
			log.Info("End of video reached")
			return StatusCompleted, nil
		}

		number := r.progress.FrameRead()
		err := r.processFrame(number, frame, rootSize, sink, props.FrameCount)
		switch {
		case err == nil:
			r.progress.FrameWritten()
			if r.cfg.ProgressEvery <= 1 || number%r.cfg.ProgressEvery == 0 {
				log.WithField("frame", number).Infof("Processed frame %d", number)
			}
		case errors.Is(err, ErrFrameDecode):
			r.progress.FrameSkipped()
			log.WithError(err).WithFields(logrus.Fields{
				"frame":  number,
				"policy": r.cfg.ErrorPolicy,
			}).Error("Failed to process frame")
			if r.cfg.ErrorPolicy == config.AbortRun {
				return StatusFailed, fmt.Errorf("frame %d: %w", number, err)
			}
		default:
			log.WithError(err).WithField("frame", number).Error("Failed to write frame")
			return StatusFailed, err
		}

		key := r.display.PollKey()
		if cancel.Cancelled(number, key) {
			log.WithField("frame", number).Info("User interrupted video processing")
			return StatusInterrupted, nil
		}
	}
}

// processFrame runs the chain on one decoded frame, shows the displayable
// stages and writes the output stage. Chain failures wrap ErrFrameDecode,
// sink failures wrap ErrSinkWrite.
func (r *Runner) processFrame(number int, frame gocv.Mat, rootSize image.Point, sink Sink, total int) error {
	if err := ValidateFrame(frame); err != nil {
		return fmt.Errorf("%w: %v", ErrFrameDecode, err)
	}

	root := frame
	if frame.Cols() != rootSize.X || frame.Rows() != rootSize.Y {
		resized := gocv.NewMat()
		defer resized.Close()
		if err := gocv.Resize(frame, &resized, rootSize, 0, 0, gocv.InterpolationCubic); err != nil {
			return fmt.Errorf("%w: resize to %dx%d: %v", ErrFrameDecode, rootSize.X, rootSize.Y, err)
		}
		root = resized
	}

	set, err := r.chain.Process(root)
	if err != nil {
		return err
	}
	defer set.Close()

	output, _ := set.Get(r.cfg.OutputStage)
	if r.quality != nil && number%r.cfg.QualityEvery == 0 {
		original, _ := set.Get(config.RootStage)
		values := r.quality.Sample(original, output)
		r.logger.WithFields(qualityFields(values)).WithField("frame", number).Debug("Output quality sampled")
	}
	if r.cfg.Overlay {
		if err := DrawOverlay(&output, number, total, r.progress.FPS()); err != nil {
			r.logger.WithError(err).WithField("frame", number).Warn("Failed to draw overlay")
		}
	}

	r.show(set)

	if r.snapshots != nil && r.cfg.SnapshotEvery > 0 && number%r.cfg.SnapshotEvery == 0 {
		if err := r.snapshots.Save(number, set); err != nil {
			r.logger.WithError(err).WithField("frame", number).Warn("Failed to save snapshot")
		}
	}

	conformed, err := ConformFrame(output, sink.Size())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFrameDecode, err)
	}
	defer conformed.Close()

	if err := sink.Write(conformed); err != nil {
		if errors.Is(err, ErrSinkWrite) {
			return err
		}
		return fmt.Errorf("%w: frame %d: %v", ErrSinkWrite, number, err)
	}

	return nil
}

func (r *Runner) show(set *FrameSet) {
	if r.cfg.DisplayOriginal {
		if root, ok := set.Get(config.RootStage); ok {
			r.display.Show(r.cfg.OriginalTitle, root)
		}
	}

	for _, step := range r.chain.steps {
		if !step.Display {
			continue
		}
		if mat, ok := set.Get(step.Name); ok {
			r.display.Show(step.Title, mat)
		}
	}
}

func (r *Runner) logSummary(log logrus.FieldLogger, summary Summary) {
	fields := logrus.Fields{
		"status":         summary.Status.String(),
		"frames_read":    summary.FramesRead,
		"frames_written": summary.FramesWritten,
		"frames_skipped": summary.FramesSkipped,
		"elapsed":        summary.Elapsed.Round(time.Millisecond).String(),
		"fps":            fmt.Sprintf("%.2f", summary.FPS),
		"output":         summary.OutputPath,
	}

	if info, err := os.Stat(summary.OutputPath); err == nil {
		fields["output_size"] = humanize.Bytes(uint64(info.Size()))
	}
	if usage, err := metrics.ReadMemoryUsage(); err == nil {
		fields["rss"] = humanize.Bytes(usage.RSS)
		fields["heap"] = humanize.Bytes(usage.HeapAlloc)
	} else {
		log.WithError(err).Debug("Memory usage unavailable")
	}

	if summary.QualitySamples > 0 {
		for k, v := range qualityFields(summary.Quality) {
			fields[k] = v
		}
		fields["quality_samples"] = summary.QualitySamples
	}

	for _, timing := range r.chain.Timings().Timings() {
		log.WithFields(logrus.Fields{
			"stage":   timing.Name,
			"calls":   timing.Calls,
			"average": timing.Average().String(),
			"slowest": timing.Slowest.String(),
		}).Debug("Stage timing")
	}

	if summary.Status == StatusFailed {
		log.WithFields(fields).Error("Video processing failed")
		return
	}
	log.WithFields(fields).Info("Video processing completed")
}

func qualityFields(values map[string]float64) logrus.Fields {
	fields := make(logrus.Fields, len(values))
	for name, value := range values {
		fields["quality_"+name] = fmt.Sprintf("%.3f", value)
	}
	return fields
}

// headless is the Display used when no windows are requested
type headless struct{}

func (headless) Show(string, gocv.Mat) {}

func (headless) PollKey() int { return -1 }

func (headless) Close() error { return nil }
