package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/hemalab/hemascan/internal/counter"
	"github.com/hemalab/hemascan/internal/infer"
	"github.com/hemalab/hemascan/internal/label"
	"github.com/hemalab/hemascan/internal/slide"
	"github.com/hemalab/hemascan/internal/viz"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("hemascan %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		}
	}

	save := flag.Bool("save", false, "write the text report next to the slide file")
	debugDir := flag.String("debug-dir", "", "save per-inference overlay PNGs into this directory")
	readLabel := flag.Bool("label", false, "OCR the specimen label corner and tag the report")
	modelDir := flag.String("models", envOr("HEMASCAN_MODEL_DIR", "models"), "directory containing the model files")
	wbcModel := flag.String("wbc-model", "wbc-detect.onnx", "white-cell detection model (relative to -models)")
	wbcClsModel := flag.String("wbc-class-model", "wbc-classify.onnx", "white-cell subtype model (relative to -models)")
	rbcModel := flag.String("rbc-model", "rbc-detect.onnx", "red-cell detection model (relative to -models)")
	densModel := flag.String("density-model", "blood-density.onnx", "slide density model (relative to -models)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}
	slidePath := flag.Arg(0)

	log := newLogger()

	paths := infer.ModelPaths{
		WBCDetect:     filepath.Join(*modelDir, *wbcModel),
		WBCClassify:   filepath.Join(*modelDir, *wbcClsModel),
		RBCDetect:     filepath.Join(*modelDir, *rbcModel),
		Density:       filepath.Join(*modelDir, *densModel),
		WBCLabels:     optionalFile(*modelDir, "wbc-detect.names"),
		SubtypeLabels: optionalFile(*modelDir, "wbc-classify.names"),
		DensityLabels: optionalFile(*modelDir, "blood-density.names"),
	}

	registry, err := infer.NewRegistry(paths)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load models")
	}
	defer registry.Close()

	c := counter.New(counter.DefaultConfig(),
		registry.WBCDetector, registry.WBCClassifier, registry.RBCDetector, log)
	if *debugDir != "" {
		if err := os.MkdirAll(*debugDir, 0o755); err != nil {
			log.Fatal().Err(err).Msg("failed to create debug directory")
		}
		c.Annotate = viz.Saver(*debugDir)
	}

	agg := slide.NewAggregator(c, counter.NewDensityGate(registry.Density), log)
	if *readLabel {
		agg.Labels = label.NewReader()
	}

	result, err := agg.ProcessFile(slidePath, *save)
	if err != nil {
		log.Fatal().Err(err).Str("slide", slidePath).Msg("slide processing failed")
	}

	fmt.Println(result)
}

func usage() {
	fmt.Fprintln(os.Stderr, "hemascan - count blood cells on a whole-slide scan")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Usage: hemascan [options] <slide-file>")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Options:")
	flag.PrintDefaults()
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Environment variables:")
	fmt.Fprintln(os.Stderr, "  HEMASCAN_LOG_LEVEL    debug, info (default), warn, error")
	fmt.Fprintln(os.Stderr, "  HEMASCAN_MODEL_DIR    default model directory")
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(os.Getenv("HEMASCAN_LOG_LEVEL")); err == nil && parsed != zerolog.NoLevel {
		level = parsed
	}
	// Keep stdout clean for the final summary.
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// optionalFile returns the path if the file exists, otherwise "" so the
// registry falls back to numeric class labels.
func optionalFile(dir, name string) string {
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
