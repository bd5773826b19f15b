// Команда cardgrade оценивает карточку по готовым снимкам из каталога:
//
//	cardgrade [flags] <model file> <images dir> <output image path>
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/pflag"

	"card-grader/config"
	app "card-grader/internal/application"
	"card-grader/internal/container"
	"card-grader/internal/domain/entity"
	"card-grader/internal/domain/port"
	"card-grader/internal/infrastructure/imagefile"
	"card-grader/internal/infrastructure/model"
	"card-grader/internal/infrastructure/report"
	"card-grader/internal/infrastructure/storage"
)

const usageLine = "Usage: cardgrade [flags] <model file> <images dir> <output image path>"

type options struct {
	mode       string
	overlayOut string
	ortLib     string
	threshold  float32
	boost      uint8
	resizer    string
	logLevel   string
	quiet      bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("cardgrade", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVarP(&opts.mode, "mode", "m", string(entity.CompositeOverlay), "composite mode: overlay, normal or average")
	fs.StringVar(&opts.overlayOut, "overlay-out", "", "also write the composite image to this path")
	fs.StringVar(&opts.ortLib, "onnxruntime-lib", os.Getenv("ONNXRUNTIME_LIB"), "path to the onnxruntime shared library")
	fs.Float32Var(&opts.threshold, "threshold", 0.5, "detection score and mask threshold")
	fs.Uint8Var(&opts.boost, "boost", 100, "red channel boost under defect masks")
	fs.StringVar(&opts.resizer, "resizer", config.ResizerLanczos, "resize filter: lanczos or gocv")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	fs.BoolVarP(&opts.quiet, "quiet", "q", false, "do not print the report summary")
	fs.Usage = func() {
		fmt.Fprintln(stderr, usageLine)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 3 {
		fmt.Fprintln(stderr, usageLine)
		return 2
	}

	if err := grade(opts, fs.Arg(0), fs.Arg(1), fs.Arg(2), stdout); err != nil {
		log.New(stderr, "", 0).Printf("Error: %v", err)
		return 1
	}
	return 0
}

func grade(opts options, modelPath, imagesDir, outputPath string, stdout io.Writer) error {
	mode, err := entity.ParseCompositeMode(opts.mode)
	if err != nil {
		return err
	}
	if info, err := os.Stat(imagesDir); err != nil || !info.IsDir() {
		return fmt.Errorf("directory %q does not exist", imagesDir)
	}

	set, err := imagefile.LoadDir(imagesDir)
	if err != nil {
		return err
	}

	logger := container.NewLogger(opts.logLevel)
	cfg := &config.Config{
		ModelWidth:     800,
		ModelHeight:    1120,
		ScoreThreshold: opts.threshold,
		MaskBoost:      opts.boost,
		Resizer:        opts.resizer,
	}

	// модель не загрузилась: на выходе будет эталон без разметки
	var segmentation port.SegmentationModel
	m, err := model.NewONNXModel(modelPath, opts.ortLib, logger)
	if err != nil {
		logger.Warn("segmentation model unavailable", "path", modelPath, "err", err)
	} else {
		defer m.Close()
		segmentation = m
	}

	annotator := container.NewAnnotator(cfg, segmentation, logger)
	grading := app.NewGradingService(nil, annotator, report.NewTextDescriber(), storage.NewMemoryReportRepository(1), mode, logger)

	out, err := grading.Process(context.Background(), set)
	if err != nil {
		return err
	}

	if err := imagefile.Save(outputPath, out.Report.Annotated); err != nil {
		return err
	}
	if opts.overlayOut != "" {
		if err := imagefile.Save(opts.overlayOut, out.Report.Overlay); err != nil {
			return err
		}
	}

	if !opts.quiet && out.Description != nil {
		fmt.Fprintln(stdout, out.Description.Text)
	}
	if out.Report.Degraded {
		fmt.Fprintln(stdout, "warning: model inference failed, output is the unannotated reference image")
	}
	return nil
}
