package port

import (
	"context"

	"card-grader/internal/domain/entity"
)

// ReportDescriber интерфейс описателя итогов оценки
type ReportDescriber interface {
	// Describe генерирует текстовое описание найденных дефектов
	Describe(ctx context.Context, report *entity.GradingReport) (*entity.ReportDescription, error)
}
