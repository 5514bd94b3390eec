package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	smartcropper "github.com/menta2k/smart-cropper"
	"github.com/menta2k/smart-cropper/internal/config"
	"github.com/menta2k/smart-cropper/internal/logging"
	"github.com/menta2k/smart-cropper/internal/metrics"
	"github.com/menta2k/smart-cropper/internal/utils"
	"github.com/menta2k/smart-cropper/pkg/cropper"
	"github.com/menta2k/smart-cropper/pkg/detection"
	"github.com/menta2k/smart-cropper/pkg/options"
	"github.com/menta2k/smart-cropper/pkg/processing"
	"github.com/menta2k/smart-cropper/pkg/types"
)

type flags struct {
	in          string
	configFile  string
	envFile     string
	outDir      string
	backend     string
	url         string
	model       string
	cropType    int
	format      int
	quality     float64
	orientation int
	cpuOnly     bool
	background  bool
	debug       bool
	testVision  bool
	logLevel    string
}

func parseFlags() flags {
	var f flags
	flag.StringVar(&f.in, "in", "", "input image or directory of images")
	flag.StringVar(&f.configFile, "config", "", "config file (json or yaml)")
	flag.StringVar(&f.envFile, "env", ".env", "dotenv file with SMARTCROP_* overrides")
	flag.StringVar(&f.outDir, "out", "", "output directory (overrides config)")
	flag.StringVar(&f.backend, "backend", "", "detector backend: local, ollama or llamacpp (overrides config)")
	flag.StringVar(&f.url, "url", "", "vision server URL (overrides config)")
	flag.StringVar(&f.model, "model", "", "vision model name (overrides config)")
	flag.IntVar(&f.cropType, "crop", int(options.DefaultCropType), "crop type: 1=attention 2=objectness 3=face")
	flag.IntVar(&f.format, "format", int(options.DefaultSaveFormat), "output format: 1=jpeg 2=png")
	flag.Float64Var(&f.quality, "quality", options.DefaultQuality, "jpeg quality in [0,1]")
	flag.IntVar(&f.orientation, "orientation", int(options.DefaultOrientation), "orientation hint passed to the detector (1-8)")
	flag.BoolVar(&f.cpuOnly, "cpu", false, "ask the detector to avoid the GPU")
	flag.BoolVar(&f.background, "background", false, "ask the detector for background priority processing")
	flag.BoolVar(&f.debug, "debug", false, "write a debug overlay next to the crops")
	flag.BoolVar(&f.testVision, "test-vision", false, "only check that the vision model can see the input")
	flag.StringVar(&f.logLevel, "log-level", "", "log level (overrides config)")
	flag.Parse()
	return f
}

func main() {
	f := parseFlags()
	if f.in == "" {
		fmt.Fprintf(os.Stderr, "usage: %s -in image.jpg|dir [-crop 1|2|3] [-format 1|2] [-backend local|ollama|llamacpp] [-out dir]\n",
			filepath.Base(os.Args[0]))
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, f); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, f flags) error {
	cfg, err := config.Load(f.configFile, f.envFile)
	if err != nil {
		return err
	}
	applyFlags(cfg, f)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	detector, remote, err := buildDetector(cfg, logger)
	if err != nil {
		return err
	}

	if f.testVision {
		return testVision(ctx, remote, f.in, cfg.Detector.SendQuality)
	}

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		return err
	}
	defer logMetrics(logger, reg)

	client, err := smartcropper.New(detector,
		cropper.WithLogger(logger),
		cropper.WithMetrics(m),
		cropper.WithOutputDir(cfg.Pipeline.OutputDir),
		cropper.WithConcurrency(cfg.Pipeline.Concurrency),
	)
	if err != nil {
		return err
	}

	inputs, err := collectInputs(f.in)
	if err != nil {
		return err
	}

	out := make(map[string][]types.CropResult, len(inputs))
	var failed []error
	for _, path := range inputs {
		results, err := client.Request(ctx, options.Options{
			Path:                       path,
			CropType:                   options.Int(f.cropType),
			SaveFormat:                 options.Int(f.format),
			Quality:                    options.Float(f.quality),
			PreferBackgroundProcessing: options.Bool(f.background),
			UsesCPUOnly:                options.Bool(f.cpuOnly),
			Orientation:                options.Int(f.orientation),
		})
		if err != nil {
			logger.Error("crop request failed", zap.String("path", path), zap.Error(err))
			failed = append(failed, fmt.Errorf("%s: %w", path, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		out[path] = results
		logCrops(logger, results)

		if f.debug {
			if err := writeDebugOverlay(path, client.OutputDir(), results); err != nil {
				logger.Warn("debug overlay failed", zap.String("path", path), zap.Error(err))
			}
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if len(inputs) == 1 {
		if results, ok := out[inputs[0]]; ok {
			if err := enc.Encode(results); err != nil {
				return err
			}
		}
	} else if err := enc.Encode(out); err != nil {
		return err
	}

	return errors.Join(failed...)
}

// applyFlags lets explicit command line values win over the config
func applyFlags(cfg *config.Config, f flags) {
	if f.backend != "" {
		cfg.Detector.Backend = f.backend
	}
	if f.url != "" {
		cfg.Detector.URL = f.url
	}
	if f.model != "" {
		cfg.Detector.Model = f.model
	}
	if f.outDir != "" {
		cfg.Pipeline.OutputDir = f.outDir
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
}

func collectInputs(in string) ([]string, error) {
	if utils.DirExists(in) {
		files, err := utils.ListImageFiles(in)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", in, err)
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("no images found in %s", in)
		}
		return files, nil
	}
	return []string{in}, nil
}

func writeDebugOverlay(path, outDir string, results []types.CropResult) error {
	p := processing.NewProcessor()
	src, err := p.Decode(path)
	if err != nil {
		return err
	}
	src = p.Orient(src)

	boxes := make([]types.BoundingBox, len(results))
	for i, r := range results {
		boxes[i] = r.BoundingBox
	}

	overlay := p.CreateDebugOverlay(src.Image, boxes)
	dst := utils.GenerateOutputFilename(path, outDir, "", "_debug", types.FormatPNG.Extension())
	return p.SaveImage(overlay, dst, types.FormatPNG, 1)
}

func testVision(ctx context.Context, remote *detection.Remote, path string, quality int) error {
	if remote == nil {
		return errors.New("-test-vision needs the ollama or llamacpp backend")
	}

	p := processing.NewProcessor()
	src, err := p.Decode(path)
	if err != nil {
		return err
	}
	b64, err := p.PrepareImageForModel(p.Orient(src).Image, "jpg", 512, quality)
	if err != nil {
		return err
	}

	answer, err := remote.TestVision(ctx, b64)
	if err != nil {
		return err
	}
	fmt.Println(answer)
	return nil
}
