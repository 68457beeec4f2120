// Video Processing Pipeline
// Reads a video, runs every frame through the transform chain, previews the
// stage outputs and writes the selected stage to a new video file.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"video-processing-pipeline/internal/algorithms"
	"video-processing-pipeline/internal/config"
	"video-processing-pipeline/internal/core"
	"video-processing-pipeline/internal/gui"
	vio "video-processing-pipeline/internal/io"
)

const (
	AppName    = "Video Processing Pipeline"
	AppVersion = "1.0.0"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	configPath     string
	dumpConfig     string
	debug          bool
	headless       bool
	listAlgorithms bool
	version        bool
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, opts, err := parseArgs(args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", AppName, err)
		return exitUsage
	}

	switch {
	case opts.version:
		fmt.Fprintf(stdout, "%s %s\n", AppName, AppVersion)
		return exitOK
	case opts.listAlgorithms:
		printAlgorithms(stdout)
		return exitOK
	case opts.dumpConfig != "":
		if err := cfg.WriteFile(opts.dumpConfig); err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", AppName, err)
			return exitFailure
		}
		fmt.Fprintf(stdout, "Configuration written to %s\n", opts.dumpConfig)
		return exitOK
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "%s: invalid configuration: %v\n", AppName, err)
		return exitUsage
	}

	logger, logFile, err := initLogger(cfg, opts.debug, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", AppName, err)
		return exitUsage
	}
	defer logFile.Close()

	log := logger.WithField("run_id", uuid.NewString())
	log.WithFields(logrus.Fields{
		"version":    AppVersion,
		"debug_mode": opts.debug,
		"headless":   opts.headless,
		"stages":     len(cfg.Stages),
	}).Info("Starting video processing")

	runnerOpts := []core.Option{}
	if !opts.headless {
		runnerOpts = append(runnerOpts, core.WithDisplay(gui.NewWindows(cfg.DisplayDelayMs, log)))
	}
	if cfg.SnapshotDir != "" {
		snapshots, err := vio.NewSnapshotWriter(cfg.SnapshotDir, log)
		if err != nil {
			log.WithError(err).Error("Failed to prepare snapshot directory")
			return exitUsage
		}
		runnerOpts = append(runnerOpts, core.WithSnapshotter(snapshots))
	}

	runner, err := core.NewRunner(cfg, log, vio.SourceOpener(), vio.SinkFactory(cfg.Codec), runnerOpts...)
	if err != nil {
		log.WithError(err).Error("Invalid transform chain")
		fmt.Fprintf(stderr, "%s: %v\n", AppName, err)
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := runner.Run(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", AppName, err)
		return exitFailure
	}

	if summary.Status == core.StatusInterrupted {
		fmt.Fprintf(stdout, "Processing interrupted after %d frames\n", summary.FramesWritten)
	}
	fmt.Fprintf(stdout, "Processed video saved as %s\n", summary.OutputPath)

	return exitOK
}

// parseArgs loads the optional config file and applies the flags that were set
// on the command line over it
func parseArgs(args []string, stderr io.Writer) (*config.Config, options, error) {
	var opts options

	flags := pflag.NewFlagSet("videoproc", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: videoproc [flags] [video]\n\n")
		flags.PrintDefaults()
	}

	flags.StringVarP(&opts.configPath, "config", "c", "", "YAML pipeline configuration")
	flags.StringVar(&opts.dumpConfig, "dump-config", "", "write the effective configuration to this path and exit")
	flags.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	flags.BoolVar(&opts.headless, "headless", false, "do not open preview windows")
	flags.BoolVar(&opts.listAlgorithms, "list-algorithms", false, "list the available transforms and exit")
	flags.BoolVar(&opts.version, "version", false, "print the version and exit")

	input := flags.StringP("input", "i", "", "source video (or the first argument)")
	output := flags.StringP("output", "o", "", "output video (default processed_video.mp4 next to the source)")
	logFile := flags.String("log-file", config.DefaultLogFile, "log file path")
	logFormat := flags.String("log-format", "text", "log format: text or json")
	logAppend := flags.Bool("log-append", false, "append to the log file instead of truncating it")
	verbose := flags.BoolP("verbose", "v", false, "also log to stdout")
	codec := flags.String("codec", config.DefaultCodec, "output FourCC codec")
	errorPolicy := flags.String("error-policy", string(config.SkipFrame), "on a failed frame: skip or abort")
	maxFrames := flags.Int("max-frames", 0, "stop after this many frames (0 processes all)")
	width := flags.Int("width", 0, "resize frames to this width before the chain")
	height := flags.Int("height", 0, "resize frames to this height before the chain")
	outputStage := flags.String("output-stage", config.RootStage, "stage written to the output video")
	overlay := flags.Bool("overlay", true, "draw frame counter and FPS on the output")
	progressEvery := flags.Int("progress-every", 1, "log progress every N frames")
	snapshotDir := flags.String("snapshot-dir", "", "save stage outputs as PNG into this directory")
	snapshotEvery := flags.Int("snapshot-every", 100, "snapshot interval in frames")
	qualityEvery := flags.Int("quality-every", 0, "sample output quality against the original every N frames (0 disables)")

	if err := flags.Parse(args); err != nil {
		return nil, opts, err
	}

	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, opts, err
		}
		cfg = loaded
	}

	if flags.Changed("input") {
		cfg.Source = *input
	} else if flags.NArg() > 0 {
		cfg.Source = flags.Arg(0)
	}
	if flags.NArg() > 1 {
		return nil, opts, fmt.Errorf("unexpected arguments: %s", strings.Join(flags.Args()[1:], " "))
	}

	if flags.Changed("output") {
		cfg.Output = *output
	}
	if flags.Changed("log-file") {
		cfg.LogFile = *logFile
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = *logFormat
	}
	if flags.Changed("log-append") {
		cfg.LogAppend = *logAppend
	}
	if flags.Changed("verbose") {
		cfg.Verbose = *verbose
	}
	if flags.Changed("codec") {
		cfg.Codec = *codec
	}
	if flags.Changed("error-policy") {
		cfg.ErrorPolicy = config.ErrorPolicy(*errorPolicy)
	}
	if flags.Changed("max-frames") {
		cfg.MaxFrames = *maxFrames
	}
	if flags.Changed("width") {
		cfg.Width = *width
	}
	if flags.Changed("height") {
		cfg.Height = *height
	}
	if flags.Changed("output-stage") {
		cfg.OutputStage = *outputStage
	}
	if flags.Changed("overlay") {
		cfg.Overlay = *overlay
	}
	if flags.Changed("progress-every") {
		cfg.ProgressEvery = *progressEvery
	}
	if flags.Changed("snapshot-dir") {
		cfg.SnapshotDir = *snapshotDir
	}
	if flags.Changed("snapshot-every") {
		cfg.SnapshotEvery = *snapshotEvery
	}
	if flags.Changed("quality-every") {
		cfg.QualityEvery = *qualityEvery
	}
	if !cfg.Display {
		opts.headless = true
	}

	return cfg, opts, nil
}

// initLogger initializes the logger with appropriate level, format and outputs
func initLogger(cfg *config.Config, debugMode bool, stdout io.Writer) (*logrus.Logger, io.Closer, error) {
	flag := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if cfg.LogAppend {
		flag = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	file, err := os.OpenFile(cfg.LogFile, flag, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file %s: %w", cfg.LogFile, err)
	}

	logger := logrus.New()
	if cfg.Verbose {
		logger.SetOutput(io.MultiWriter(file, stdout))
	} else {
		logger.SetOutput(file)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	if debugMode {
		level = logrus.DebugLevel
	}
	logger.SetLevel(level)

	if strings.EqualFold(cfg.LogFormat, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			DisableColors:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	logger.Debug("Debug logging enabled")
	return logger, file, nil
}

func printAlgorithms(w io.Writer) {
	categories := algorithms.GetAlgorithmsByCategory()
	names := make([]string, 0, len(categories))
	for category := range categories {
		names = append(names, category)
	}
	sort.Strings(names)

	for _, category := range names {
		fmt.Fprintf(w, "%s:\n", category)
		for _, name := range categories[category] {
			algorithm, _ := algorithms.Get(name)
			fmt.Fprintf(w, "  %-20s %s\n", name, algorithm.GetDescription())
			for _, param := range algorithm.GetParameterInfo() {
				fmt.Fprintf(w, "      %-16s %-6s default %v\n", param.Name, param.Type, param.Default)
			}
		}
	}
}
