package app

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"card-grader/internal/domain/entity"
	"card-grader/internal/domain/port"
	"card-grader/internal/infrastructure/vision"
)

// GradingOutput содержит отчёт и его текстовое описание.
type GradingOutput struct {
	Report      *entity.GradingReport
	Description *entity.ReportDescription
}

// GradingService связывает съёмку, сведение кадров и разметку дефектов.
type GradingService struct {
	capture   *CaptureOrchestrator
	annotator *vision.Annotator
	describer port.ReportDescriber
	reports   port.ReportRepository
	logger    *slog.Logger

	mu   sync.RWMutex
	mode entity.CompositeMode
}

// NewGradingService создаёт сервис оценки. capture может быть nil для офлайн-режима.
func NewGradingService(capture *CaptureOrchestrator, annotator *vision.Annotator, describer port.ReportDescriber, reports port.ReportRepository, mode entity.CompositeMode, logger *slog.Logger) *GradingService {
	if logger == nil {
		logger = slog.Default()
	}
	if mode == "" {
		mode = entity.CompositeOverlay
	}
	return &GradingService{
		capture:   capture,
		annotator: annotator,
		describer: describer,
		reports:   reports,
		logger:    logger,
		mode:      mode,
	}
}

// Mode возвращает текущий режим сведения кадров.
func (s *GradingService) Mode() entity.CompositeMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// SetMode меняет режим сведения кадров для следующих прогонов.
func (s *GradingService) SetMode(mode entity.CompositeMode) {
	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()
}

// Grade снимает карточку и оценивает её.
func (s *GradingService) Grade(ctx context.Context) (*GradingOutput, error) {
	if s.capture == nil {
		return nil, errors.New("capture is not configured")
	}
	set, err := s.capture.Capture(ctx)
	if err != nil {
		return nil, err
	}
	defer s.capture.FinishProcessing()

	return s.Process(ctx, set)
}

// Process сводит кадры, размечает дефекты и сохраняет отчёт.
// Сбой модели не считается ошибкой: отчёт помечается как Degraded.
func (s *GradingService) Process(ctx context.Context, set *entity.DirectionalImageSet) (*GradingOutput, error) {
	if s.annotator == nil {
		return nil, errors.New("annotator is not configured")
	}
	runID := uuid.New()
	mode := s.Mode()
	logger := s.logger.With("run_id", runID, "mode", mode)

	overlay, err := vision.NewCompositor(mode).Compose(set)
	if err != nil {
		return nil, err
	}
	reference := referenceImage(set)
	if reference == nil {
		return nil, &entity.ValidationError{Reason: "reference image is missing"}
	}

	started := time.Now()
	annotation := s.annotator.Annotate(ctx, reference, overlay)
	if annotation.Err != nil {
		logger.Warn("grading degraded to unannotated reference", "err", annotation.Err)
	}

	b := reference.Bounds()
	report := &entity.GradingReport{
		RunID:       runID,
		CreatedAt:   time.Now(),
		Mode:        mode,
		ImageWidth:  b.Dx(),
		ImageHeight: b.Dy(),
		Defects:     annotation.Defects,
		HasDefects:  len(annotation.Defects) > 0,
		Degraded:    annotation.Degraded(),
		Annotated:   annotation.Image,
		Overlay:     overlay,
	}
	logger.Info("card graded", "defects", len(report.Defects), "elapsed", time.Since(started))

	if s.reports != nil {
		if err := s.reports.Save(ctx, report); err != nil {
			return nil, err
		}
	}

	out := &GradingOutput{Report: report}
	if s.describer != nil {
		desc, err := s.describer.Describe(ctx, report)
		if err != nil {
			logger.Warn("describe report failed", "err", err)
		} else {
			out.Description = desc
		}
	}
	return out, nil
}

// Latest возвращает последний сохранённый отчёт.
func (s *GradingService) Latest(ctx context.Context) (*entity.GradingReport, error) {
	if s.reports == nil {
		return nil, errors.New("report repository is not configured")
	}
	return s.reports.Latest(ctx)
}

// referenceImage выбирает цветной эталон, затем полутоновый AllLit, затем верхний кадр.
func referenceImage(set *entity.DirectionalImageSet) image.Image {
	switch {
	case set.Reference != nil:
		return set.Reference
	case set.AllLit != nil:
		return set.AllLit
	case set.Top != nil:
		return set.Top
	}
	return nil
}
