package port

import (
	"context"

	"card-grader/internal/domain/entity"
)

// SegmentationModel интерфейс модели сегментации дефектов
type SegmentationModel interface {
	// Detect запускает модель на нормализованном тензоре [1,3,H,W]
	Detect(ctx context.Context, input *entity.InputTensor) (*entity.DetectionResult, error)
}
