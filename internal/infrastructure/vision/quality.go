package vision

import (
	"fmt"
	"image"

	"gonum.org/v1/gonum/stat"
)

// QualityGate отсекает кадры, на которых подсветка явно не сработала.
type QualityGate struct {
	MinImageSide         int
	MaxOverexposedRatio  float64
	MaxUnderexposedRatio float64
	// MinContrast задаёт нижнюю границу стандартного отклонения яркости, 0 отключает проверку
	MinContrast float64
}

var levels = func() []float64 {
	l := make([]float64, 256)
	for i := range l {
		l[i] = float64(i)
	}
	return l
}()

// NewQualityGate создаёт проверку с порогами по умолчанию.
func NewQualityGate() *QualityGate {
	return &QualityGate{
		MinImageSide:         400,
		MaxOverexposedRatio:  0.35,
		MaxUnderexposedRatio: 0.45,
		MinContrast:          4,
	}
}

// Check проверяет размер и экспозицию полутонового кадра.
func (q *QualityGate) Check(img *image.Gray, label string) error {
	b := img.Bounds()
	if b.Empty() {
		return fmt.Errorf("quality gate failed for %s: empty image", label)
	}
	if b.Dx() < q.MinImageSide || b.Dy() < q.MinImageSide {
		return fmt.Errorf("quality gate failed for %s: image is too small (%dx%d)", label, b.Dx(), b.Dy())
	}

	hist := Histogram(img)
	var bright, dark float64
	for v, n := range hist {
		switch {
		case v > 250:
			bright += n
		case v <= 20:
			dark += n
		}
	}

	total := float64(b.Dx() * b.Dy())
	if ratio := bright / total; ratio > q.MaxOverexposedRatio {
		return fmt.Errorf("quality gate failed for %s: overexposed image (ratio=%.4f)", label, ratio)
	}
	if ratio := dark / total; ratio > q.MaxUnderexposedRatio {
		return fmt.Errorf("quality gate failed for %s: underexposed image (ratio=%.4f)", label, ratio)
	}
	if q.MinContrast > 0 {
		if _, std := stat.MeanStdDev(levels, hist); std < q.MinContrast {
			return fmt.Errorf("quality gate failed for %s: flat image (stddev=%.2f)", label, std)
		}
	}
	return nil
}

// Histogram считает число пикселей каждого уровня яркости.
func Histogram(img *image.Gray) []float64 {
	hist := make([]float64, 256)
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		for _, v := range img.Pix[off : off+b.Dx()] {
			hist[v]++
		}
	}
	return hist
}
