package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"card-grader/config"
	app "card-grader/internal/application"
	"card-grader/internal/domain/port"
	"card-grader/internal/infrastructure/lighting"
	"card-grader/internal/infrastructure/model"
	"card-grader/internal/infrastructure/report"
	"card-grader/internal/infrastructure/storage"
	"card-grader/internal/infrastructure/vision"
)

type Container struct {
	Config  *config.Config
	Logger  *slog.Logger
	Capture *app.CaptureOrchestrator
	Grading *app.GradingService
	Reports port.ReportRepository

	closers []func() error
}

// New собирает станцию оценки: подсветка, камера, модель, хранилище отчётов.
// Отсутствие модели не фатально: отчёты будут помечены как Degraded.
func New(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = NewLogger(cfg.LogLevel)
	}
	c := &Container{Config: cfg, Logger: logger}

	peripheral, err := newPeripheral(cfg, logger)
	if err != nil {
		return nil, err
	}

	camera := vision.NewGoCVCamera(cfg.CameraDevice)
	c.closers = append(c.closers, camera.Close)

	annotator, err := c.newAnnotator(cfg, logger)
	if err != nil {
		c.Close()
		return nil, err
	}

	gate := vision.NewQualityGate()
	c.Capture = app.NewCaptureOrchestrator(peripheral, camera, app.CaptureConfig{
		AckTimeout:     cfg.AckTimeout,
		CaptureTimeout: cfg.CaptureTimeout,
		SettleDelay:    cfg.SettleDelay,
		PulseCommands:  cfg.PulseCommands,
		Rotate:         cfg.RotateCaptures,
		QualityGate:    gate,
	}, logger.With("component", "capture"))
	c.closers = append(c.closers, func() error {
		return c.Capture.Disconnect(context.Background())
	})

	if err := c.newReports(cfg, logger); err != nil {
		c.Close()
		return nil, err
	}
	c.Grading = app.NewGradingService(c.Capture, annotator, report.NewTextDescriber(), c.Reports,
		cfg.CompositeMode, logger.With("component", "grading"))
	return c, nil
}

// NewAnnotator собирает разметчик по конфигурации. Используется и офлайн-утилитой.
func NewAnnotator(cfg *config.Config, model port.SegmentationModel, logger *slog.Logger) *vision.Annotator {
	var resizer vision.Resizer = vision.LanczosResizer{}
	if cfg.Resizer == config.ResizerGoCV {
		resizer = vision.NewGoCVResizer()
	}
	return vision.NewAnnotator(model, resizer, vision.AnnotatorConfig{
		Width:          cfg.ModelWidth,
		Height:         cfg.ModelHeight,
		ScoreThreshold: cfg.ScoreThreshold,
		Boost:          cfg.MaskBoost,
	}, logger.With("component", "annotator"))
}

func (c *Container) newAnnotator(cfg *config.Config, logger *slog.Logger) (*vision.Annotator, error) {
	m, err := model.NewONNXModel(cfg.ModelPath, cfg.OnnxRuntimeLib, logger.With("component", "model"))
	if err != nil {
		logger.Warn("segmentation model unavailable, reports will be unannotated", "path", cfg.ModelPath, "err", err)
		return NewAnnotator(cfg, nil, logger), nil
	}
	c.closers = append(c.closers, func() error {
		m.Close()
		return nil
	})
	return NewAnnotator(cfg, m, logger), nil
}

func (c *Container) newReports(cfg *config.Config, logger *slog.Logger) error {
	if cfg.ReportDB == "" {
		c.Reports = storage.NewMemoryReportRepository(cfg.ReportHistory)
		return nil
	}
	repo, err := storage.NewSQLiteReportRepository(cfg.ReportDB, cfg.ReportHistory)
	if err != nil {
		return fmt.Errorf("open report database: %w", err)
	}
	logger.Info("reports are persisted", "path", cfg.ReportDB, "history", cfg.ReportHistory)
	c.Reports = repo
	c.closers = append(c.closers, repo.Close)
	return nil
}

func newPeripheral(cfg *config.Config, logger *slog.Logger) (port.LightingPeripheral, error) {
	logger = logger.With("component", "lighting")
	switch cfg.LightingTransport {
	case config.TransportBLE:
		p, err := lighting.NewBLEPeripheral(lighting.BLEConfig{ScanTimeout: cfg.BLEScanTimeout}, logger)
		if err != nil {
			return nil, fmt.Errorf("ble transport: %w", err)
		}
		return p, nil
	case config.TransportSerial:
		return lighting.NewSerialPeripheral(lighting.SerialConfig{
			Path:     cfg.SerialPort,
			BaudRate: cfg.SerialBaud,
		}, logger), nil
	}
	return nil, fmt.Errorf("unknown lighting transport %q", cfg.LightingTransport)
}

// Close освобождает ресурсы в обратном порядке.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// NewLogger создаёт текстовый slog-логгер с заданным уровнем.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
