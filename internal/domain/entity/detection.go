package entity

import "fmt"

// InputTensor вход модели в раскладке [batch, channels, height, width].
type InputTensor struct {
	Shape [4]int64
	Data  []float32
}

// DetectionResult выход модели за один запуск.
// Boxes хранит N×4 (x1, y1, x2, y2), Masks хранит N×H×W.
type DetectionResult struct {
	Boxes  []float32
	Labels []int64
	Scores []float32
	Masks  []float32
	Height int
	Width  int
}

// Count возвращает число кандидатов.
func (r *DetectionResult) Count() int {
	return len(r.Scores)
}

// Validate проверяет согласованность размеров параллельных массивов.
func (r *DetectionResult) Validate() error {
	n := len(r.Scores)
	if r.Height <= 0 || r.Width <= 0 {
		return fmt.Errorf("mask resolution %dx%d is invalid", r.Width, r.Height)
	}
	if len(r.Labels) != n {
		return fmt.Errorf("labels: got %d, want %d", len(r.Labels), n)
	}
	if len(r.Boxes) != n*4 {
		return fmt.Errorf("boxes: got %d values, want %d", len(r.Boxes), n*4)
	}
	if len(r.Masks) != n*r.Height*r.Width {
		return fmt.Errorf("masks: got %d values, want %d", len(r.Masks), n*r.Height*r.Width)
	}
	return nil
}

// Mask возвращает плоскую маску i-го кандидата.
func (r *DetectionResult) Mask(i int) []float32 {
	size := r.Height * r.Width
	return r.Masks[i*size : (i+1)*size]
}

// Box возвращает рамку i-го кандидата.
func (r *DetectionResult) Box(i int) [4]float32 {
	return [4]float32{r.Boxes[i*4], r.Boxes[i*4+1], r.Boxes[i*4+2], r.Boxes[i*4+3]}
}
