package entity

import (
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CompositeMode способ сведения направленных кадров в цветной оверлей.
type CompositeMode string

const (
	CompositeOverlay   CompositeMode = "overlay" // смешивание 50/50
	CompositeNormalMap CompositeMode = "normal"  // карта нормалей с перераспределением уровней
	CompositeAverage   CompositeMode = "average" // среднее оверлея и карты нормалей
)

// ParseCompositeMode разбирает имя режима, пустая строка даёт overlay.
func ParseCompositeMode(value string) (CompositeMode, error) {
	switch CompositeMode(strings.ToLower(strings.TrimSpace(value))) {
	case "", CompositeOverlay:
		return CompositeOverlay, nil
	case CompositeNormalMap, "normalmap", "normal-map":
		return CompositeNormalMap, nil
	case CompositeAverage:
		return CompositeAverage, nil
	}
	return "", fmt.Errorf("unknown composite mode %q", value)
}

// GradingReport хранит итог одного прогона оценки.
type GradingReport struct {
	RunID       uuid.UUID
	CreatedAt   time.Time
	Mode        CompositeMode
	ImageWidth  int          // ширина исходного кадра
	ImageHeight int          // высота исходного кадра
	Defects     []DefectArea // найденные дефекты
	HasDefects  bool         // флаг наличия дефектов
	Degraded    bool         // модель не отработала, подсветки нет
	Annotated   *image.RGBA
	Overlay     *image.RGBA
}

// ReportDescription текстовое описание итогов оценки.
type ReportDescription struct {
	Text string
}
