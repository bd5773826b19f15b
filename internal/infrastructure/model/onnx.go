package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	ort "github.com/yalue/onnxruntime_go"

	"card-grader/internal/domain/entity"
	"card-grader/internal/domain/port"
)

// Имена входа и выходов экспортированной Mask R-CNN.
const (
	InputName   = "input"
	OutputBoxes = "boxes"
	OutputLabel = "labels"
	OutputScore = "scores"
	OutputMasks = "masks"
)

var outputNames = []string{OutputBoxes, OutputLabel, OutputScore, OutputMasks}

var (
	envMu    sync.Mutex
	envUsers int
)

// acquireEnvironment инициализирует общее окружение ONNX Runtime.
func acquireEnvironment(libraryPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if envUsers == 0 && !ort.IsInitialized() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	}
	envUsers++
	return nil
}

func releaseEnvironment() {
	envMu.Lock()
	defer envMu.Unlock()

	if envUsers == 0 {
		return
	}
	envUsers--
	if envUsers == 0 && ort.IsInitialized() {
		_ = ort.DestroyEnvironment()
	}
}

// ONNXModel модель сегментации дефектов на ONNX Runtime.
// Сессия создаётся на каждый запуск и уничтожается после него,
// поэтому модель можно вызывать из нескольких горутин.
type ONNXModel struct {
	path   string
	logger *slog.Logger
	closed bool
	mu     sync.Mutex
}

// NewONNXModel проверяет файл модели и поднимает окружение ONNX Runtime.
// libraryPath путь к onnxruntime.so; пустая строка оставляет путь по умолчанию.
func NewONNXModel(modelPath, libraryPath string, logger *slog.Logger) (*ONNXModel, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, &entity.InferenceError{Err: fmt.Errorf("model file: %w", err)}
	}
	if err := acquireEnvironment(libraryPath); err != nil {
		return nil, &entity.InferenceError{Err: err}
	}
	return &ONNXModel{path: modelPath, logger: logger}, nil
}

// Detect прогоняет тензор через модель.
func (m *ONNXModel) Detect(ctx context.Context, input *entity.InputTensor) (*entity.DetectionResult, error) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return nil, &entity.InferenceError{Err: errors.New("model is closed")}
	}
	if input == nil {
		return nil, &entity.InferenceError{Err: errors.New("input tensor is nil")}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	started := time.Now()
	result, err := m.run(input)
	if err != nil {
		return nil, &entity.InferenceError{Err: err}
	}
	m.logger.Debug("inference finished", "candidates", result.Count(), "elapsed", time.Since(started))
	return result, nil
}

func (m *ONNXModel) run(input *entity.InputTensor) (*entity.DetectionResult, error) {
	inputTensor, err := ort.NewTensor(ort.NewShape(input.Shape[:]...), input.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	session, err := ort.NewDynamicAdvancedSession(m.path, []string{InputName}, outputNames, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	defer session.Destroy()

	// nil-выходы размещает сам рантайм: число кандидатов заранее неизвестно
	outputs := make([]ort.Value, len(outputNames))
	if err := session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	defer func() {
		for _, v := range outputs {
			if v != nil {
				v.Destroy()
			}
		}
	}()

	boxes, err := floatOutput(outputs[0], OutputBoxes)
	if err != nil {
		return nil, err
	}
	labels, ok := outputs[1].(*ort.Tensor[int64])
	if !ok {
		return nil, fmt.Errorf("output %q has unexpected type %T", OutputLabel, outputs[1])
	}
	scores, err := floatOutput(outputs[2], OutputScore)
	if err != nil {
		return nil, err
	}
	masks, err := floatOutput(outputs[3], OutputMasks)
	if err != nil {
		return nil, err
	}

	return assembleResult(
		boxes.GetData(),
		labels.GetData(),
		scores.GetData(),
		masks.GetShape(), masks.GetData(),
	)
}

func floatOutput(v ort.Value, name string) (*ort.Tensor[float32], error) {
	t, ok := v.(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("output %q has unexpected type %T", name, v)
	}
	return t, nil
}

// assembleResult копирует выходы модели в DetectionResult.
// Маски приходят в форме [N,1,H,W] или [N,H,W].
func assembleResult(boxes []float32, labels []int64, scores []float32, maskShape []int64, masks []float32) (*entity.DetectionResult, error) {
	var h, w int64
	switch len(maskShape) {
	case 4:
		if maskShape[1] != 1 {
			return nil, fmt.Errorf("masks: expected one channel, got shape %v", maskShape)
		}
		h, w = maskShape[2], maskShape[3]
	case 3:
		h, w = maskShape[1], maskShape[2]
	default:
		return nil, fmt.Errorf("masks: unexpected shape %v", maskShape)
	}

	result := &entity.DetectionResult{
		Boxes:  append([]float32(nil), boxes...),
		Labels: append([]int64(nil), labels...),
		Scores: append([]float32(nil), scores...),
		Masks:  append([]float32(nil), masks...),
		Height: int(h),
		Width:  int(w),
	}
	if err := result.Validate(); err != nil {
		return nil, err
	}
	return result, nil
}

// Close освобождает окружение ONNX Runtime.
func (m *ONNXModel) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	releaseEnvironment()
}

var _ port.SegmentationModel = (*ONNXModel)(nil)
