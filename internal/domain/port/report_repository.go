package port

import (
	"context"

	"github.com/google/uuid"

	"card-grader/internal/domain/entity"
)

// ReportRepository интерфейс хранилища отчётов
type ReportRepository interface {
	// Get возвращает отчёт по идентификатору прогона
	Get(ctx context.Context, runID uuid.UUID) (*entity.GradingReport, error)

	// Save сохраняет отчёт
	Save(ctx context.Context, report *entity.GradingReport) error

	// Latest возвращает последний сохранённый отчёт
	Latest(ctx context.Context) (*entity.GradingReport, error)
}
