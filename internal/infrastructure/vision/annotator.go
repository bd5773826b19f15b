package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"card-grader/internal/domain/entity"
	"card-grader/internal/domain/port"
)

// AnnotatorConfig задаёт разрешение модели и параметры подсветки масок.
type AnnotatorConfig struct {
	Width          int
	Height         int
	ScoreThreshold float32
	Boost          uint8
}

// DefaultAnnotatorConfig возвращает параметры обученной модели.
func DefaultAnnotatorConfig() AnnotatorConfig {
	return AnnotatorConfig{
		Width:          800,
		Height:         1120,
		ScoreThreshold: 0.5,
		Boost:          100,
	}
}

// Annotation результат разметки эталонного кадра.
// Err заполнен, если модель не отработала: тогда Image содержит нетронутый эталон.
type Annotation struct {
	Image   *image.RGBA
	Defects []entity.DefectArea
	Err     error
}

// Degraded сообщает, что разметка не выполнена.
func (a *Annotation) Degraded() bool {
	return a.Err != nil
}

// Annotator размечает дефекты на эталонном кадре по выходу модели сегментации.
type Annotator struct {
	model   port.SegmentationModel
	resizer Resizer
	cfg     AnnotatorConfig
	logger  *slog.Logger
}

// NewAnnotator создаёт разметчик. resizer == nil означает Lanczos.
func NewAnnotator(model port.SegmentationModel, resizer Resizer, cfg AnnotatorConfig, logger *slog.Logger) *Annotator {
	if resizer == nil {
		resizer = LanczosResizer{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Annotator{model: model, resizer: resizer, cfg: cfg, logger: logger}
}

// Annotate прогоняет оверлей через модель и усиливает красный канал эталона
// под масками дефектов. Ошибки модели не пробрасываются: возвращается
// исходный эталон с заполненным Err.
func (a *Annotator) Annotate(ctx context.Context, reference, overlay image.Image) (out *Annotation) {
	if reference == nil {
		return &Annotation{Err: &entity.ValidationError{Reason: "reference image is nil"}}
	}
	original := ToRGBA(reference)

	defer func() {
		if r := recover(); r != nil {
			err := &entity.InferenceError{Err: fmt.Errorf("panic: %v", r)}
			a.logger.Error("annotation panicked", "err", err)
			out = &Annotation{Image: original, Err: err}
		}
	}()

	annotated, defects, err := a.annotate(ctx, original, overlay)
	if err != nil {
		var inferr *entity.InferenceError
		if !errors.As(err, &inferr) {
			err = &entity.InferenceError{Err: err}
		}
		a.logger.Warn("annotation skipped, returning reference image", "err", err)
		return &Annotation{Image: original, Err: err}
	}
	return &Annotation{Image: annotated, Defects: defects}
}

func (a *Annotator) annotate(ctx context.Context, original *image.RGBA, overlay image.Image) (*image.RGBA, []entity.DefectArea, error) {
	if a.model == nil {
		return nil, nil, errors.New("segmentation model is not configured")
	}
	if overlay == nil {
		return nil, nil, errors.New("overlay image is nil")
	}
	origW, origH := original.Bounds().Dx(), original.Bounds().Dy()

	resizedRef, err := a.resizer.Resize(original, a.cfg.Width, a.cfg.Height)
	if err != nil {
		return nil, nil, fmt.Errorf("resize reference: %w", err)
	}
	resizedOverlay, err := a.resizer.Resize(overlay, a.cfg.Width, a.cfg.Height)
	if err != nil {
		return nil, nil, fmt.Errorf("resize overlay: %w", err)
	}

	input := PackTensor(resizedOverlay)
	result, err := a.model.Detect(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	if result == nil {
		return nil, nil, errors.New("model returned no result")
	}
	if result.Width != a.cfg.Width || result.Height != a.cfg.Height {
		return nil, nil, fmt.Errorf("mask resolution %dx%d does not match model input %dx%d",
			result.Width, result.Height, a.cfg.Width, a.cfg.Height)
	}

	if err := PaintMasks(resizedRef, result, a.cfg.ScoreThreshold, a.cfg.Boost); err != nil {
		return nil, nil, err
	}

	final, err := a.resizer.Resize(resizedRef, origW, origH)
	if err != nil {
		return nil, nil, fmt.Errorf("resize back: %w", err)
	}

	defects := ExtractDefects(result, a.cfg.ScoreThreshold,
		float64(origW)/float64(a.cfg.Width), float64(origH)/float64(a.cfg.Height))
	a.logger.Debug("annotation finished", "candidates", result.Count(), "defects", len(defects))
	return final, defects, nil
}

// PaintMasks усиливает красный канал на boost в пикселях, где маска кандидата
// со score > threshold превышает threshold. Перекрывающиеся маски
// складываются по порядку кандидатов, значение ограничено 255.
func PaintMasks(img *image.RGBA, result *entity.DetectionResult, threshold float32, boost uint8) error {
	if err := result.Validate(); err != nil {
		return err
	}
	b := img.Bounds()
	if b.Dx() != result.Width || b.Dy() != result.Height {
		return fmt.Errorf("image is %dx%d, masks are %dx%d", b.Dx(), b.Dy(), result.Width, result.Height)
	}

	accepted := make([]int, 0, result.Count())
	for i, score := range result.Scores {
		if score > threshold {
			accepted = append(accepted, i)
		}
	}
	if len(accepted) == 0 || boost == 0 {
		return nil
	}

	w := result.Width
	parallelRows(result.Height, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
			for _, idx := range accepted {
				mask := result.Mask(idx)[y*w : (y+1)*w]
				for x, m := range mask {
					if m <= threshold {
						continue
					}
					row[x*4] = addClamped(row[x*4], boost)
				}
			}
		}
	})
	return nil
}

func addClamped(v, boost uint8) uint8 {
	sum := uint16(v) + uint16(boost)
	if sum > 255 {
		return 255
	}
	return uint8(sum)
}

// ExtractDefects переводит принятых кандидатов в области на исходном кадре.
func ExtractDefects(result *entity.DetectionResult, threshold float32, scaleX, scaleY float64) []entity.DefectArea {
	if result.Validate() != nil {
		return nil
	}
	maxW := int(float64(result.Width)*scaleX + 0.5)
	maxH := int(float64(result.Height)*scaleY + 0.5)

	defects := make([]entity.DefectArea, 0, result.Count())
	for i, score := range result.Scores {
		if score <= threshold {
			continue
		}
		box := result.Box(i)
		x1 := clampInt(int(float64(box[0])*scaleX), 0, maxW)
		y1 := clampInt(int(float64(box[1])*scaleY), 0, maxH)
		x2 := clampInt(int(float64(box[2])*scaleX+0.5), 0, maxW)
		y2 := clampInt(int(float64(box[3])*scaleY+0.5), 0, maxH)
		if x2 < x1 {
			x1, x2 = x2, x1
		}
		if y2 < y1 {
			y1, y2 = y2, y1
		}

		var hits int
		for _, m := range result.Mask(i) {
			if m > threshold {
				hits++
			}
		}

		defects = append(defects, entity.DefectArea{
			X:        x1,
			Y:        y1,
			Width:    x2 - x1,
			Height:   y2 - y1,
			Area:     (x2 - x1) * (y2 - y1),
			Label:    entity.LabelName(result.Labels[i]),
			Score:    score,
			Coverage: float64(hits) / float64(result.Width*result.Height),
		})
	}
	return defects
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
