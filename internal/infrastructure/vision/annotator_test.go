package vision

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"

	"card-grader/internal/domain/entity"
)

type stubModel struct {
	result *entity.DetectionResult
	err    error
	panics bool
	input  *entity.InputTensor
}

func (m *stubModel) Detect(ctx context.Context, input *entity.InputTensor) (*entity.DetectionResult, error) {
	m.input = input
	if m.panics {
		panic("session exploded")
	}
	return m.result, m.err
}

func uniformRGBA(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func fullMaskResult(w, h int, scores ...float32) *entity.DetectionResult {
	n := len(scores)
	r := &entity.DetectionResult{
		Boxes:  make([]float32, 0, n*4),
		Labels: make([]int64, n),
		Scores: scores,
		Masks:  make([]float32, n*w*h),
		Height: h,
		Width:  w,
	}
	for i := 0; i < n; i++ {
		r.Boxes = append(r.Boxes, 0, 0, float32(w), float32(h))
		r.Labels[i] = 1
	}
	for i := range r.Masks {
		r.Masks[i] = 1
	}
	return r
}

func testAnnotatorConfig() AnnotatorConfig {
	return AnnotatorConfig{Width: 8, Height: 6, ScoreThreshold: 0.5, Boost: 100}
}

func TestAnnotate_FullMaskBoostsRed(t *testing.T) {
	ref := uniformRGBA(16, 12, color.RGBA{R: 200, G: 10, B: 20, A: 255})
	overlay := uniformRGBA(16, 12, color.RGBA{R: 100, G: 150, A: 255})
	model := &stubModel{result: fullMaskResult(8, 6, 0.9)}

	a := NewAnnotator(model, nil, testAnnotatorConfig(), nil)
	out := a.Annotate(context.Background(), ref, overlay)

	require.NoError(t, out.Err)
	require.False(t, out.Degraded())
	require.Equal(t, image.Rect(0, 0, 16, 12), out.Image.Bounds())
	requireUniform(t, out.Image, 255, 10, 20)

	require.Len(t, out.Defects, 1)
	require.Equal(t, "scratch", out.Defects[0].Label)
	require.Equal(t, 16, out.Defects[0].Width)
	require.Equal(t, 12, out.Defects[0].Height)
	require.InDelta(t, 1.0, out.Defects[0].Coverage, 1e-9)

	require.Equal(t, [4]int64{1, 3, 6, 8}, model.input.Shape)
	require.InDelta(t, 100.0/255, model.input.Data[0], 1e-6)
	require.InDelta(t, 150.0/255, model.input.Data[48], 1e-6)
	require.InDelta(t, 0, model.input.Data[96], 1e-6)
}

func TestAnnotate_LowScoreLeavesImageUntouched(t *testing.T) {
	ref := uniformRGBA(16, 12, color.RGBA{R: 40, G: 50, B: 60, A: 255})
	model := &stubModel{result: fullMaskResult(8, 6, 0.5, 0.1)}

	out := NewAnnotator(model, nil, testAnnotatorConfig(), nil).Annotate(context.Background(), ref, ref)

	require.NoError(t, out.Err)
	require.Empty(t, out.Defects)
	require.Equal(t, ref.Pix, out.Image.Pix)
}

func TestAnnotate_ModelErrorReturnsReference(t *testing.T) {
	ref := uniformRGBA(16, 12, color.RGBA{R: 1, G: 2, B: 3, A: 255})
	ref.Pix[0] = 77
	model := &stubModel{err: errors.New("bad model")}

	out := NewAnnotator(model, nil, testAnnotatorConfig(), nil).Annotate(context.Background(), ref, ref)

	var inferr *entity.InferenceError
	require.True(t, errors.As(out.Err, &inferr))
	require.True(t, out.Degraded())
	require.Equal(t, ref.Pix, out.Image.Pix)
	require.NotSame(t, ref, out.Image)
}

func TestAnnotate_ModelPanicReturnsReference(t *testing.T) {
	ref := uniformRGBA(16, 12, color.RGBA{R: 9, G: 8, B: 7, A: 255})
	model := &stubModel{panics: true}

	out := NewAnnotator(model, nil, testAnnotatorConfig(), nil).Annotate(context.Background(), ref, ref)

	var inferr *entity.InferenceError
	require.True(t, errors.As(out.Err, &inferr))
	require.Equal(t, ref.Pix, out.Image.Pix)
}

func TestAnnotate_MalformedResultReturnsReference(t *testing.T) {
	ref := uniformRGBA(16, 12, color.RGBA{R: 9, G: 8, B: 7, A: 255})
	result := fullMaskResult(8, 6, 0.9)
	result.Masks = result.Masks[:10]

	out := NewAnnotator(&stubModel{result: result}, nil, testAnnotatorConfig(), nil).Annotate(context.Background(), ref, ref)

	require.Error(t, out.Err)
	require.Equal(t, ref.Pix, out.Image.Pix)
}

func TestAnnotate_WrongMaskResolution(t *testing.T) {
	ref := uniformRGBA(16, 12, color.RGBA{R: 9, G: 8, B: 7, A: 255})

	out := NewAnnotator(&stubModel{result: fullMaskResult(4, 3, 0.9)}, nil, testAnnotatorConfig(), nil).
		Annotate(context.Background(), ref, ref)

	require.Error(t, out.Err)
	require.Equal(t, ref.Pix, out.Image.Pix)
}

func TestAnnotate_NoModel(t *testing.T) {
	ref := uniformRGBA(4, 4, color.RGBA{R: 9, A: 255})

	out := NewAnnotator(nil, nil, testAnnotatorConfig(), nil).Annotate(context.Background(), ref, ref)

	require.True(t, out.Degraded())
	require.Equal(t, ref.Pix, out.Image.Pix)
}

func TestPaintMasks_ThresholdsAndClamp(t *testing.T) {
	img := uniformRGBA(4, 2, color.RGBA{R: 250, G: 5, B: 6, A: 255})
	img.Pix[img.PixOffset(1, 0)] = 100

	result := &entity.DetectionResult{
		Boxes:  make([]float32, 8),
		Labels: []int64{1, 2},
		Scores: []float32{0.4, 0.9},
		Masks: []float32{
			// кандидат 0: маска полная, но score ниже порога
			1, 1, 1, 1,
			1, 1, 1, 1,
			// кандидат 1
			0.9, 0.9, 0.5, 0.2,
			0, 0, 0, 0.51,
		},
		Height: 2,
		Width:  4,
	}

	require.NoError(t, PaintMasks(img, result, 0.5, 100))

	red := func(x, y int) uint8 { return img.Pix[img.PixOffset(x, y)] }
	require.Equal(t, uint8(255), red(0, 0))
	require.Equal(t, uint8(200), red(1, 0))
	require.Equal(t, uint8(250), red(2, 0))
	require.Equal(t, uint8(250), red(3, 0))
	require.Equal(t, uint8(250), red(0, 1))
	require.Equal(t, uint8(255), red(3, 1))

	for i := 0; i < len(img.Pix); i += 4 {
		require.Equal(t, uint8(5), img.Pix[i+1])
		require.Equal(t, uint8(6), img.Pix[i+2])
		require.Equal(t, uint8(255), img.Pix[i+3])
	}
}

func TestPaintMasks_OverlappingDetectionsAccumulate(t *testing.T) {
	img := uniformRGBA(2, 2, color.RGBA{R: 100, A: 255})
	result := fullMaskResult(2, 2, 0.8, 0.7)

	require.NoError(t, PaintMasks(img, result, 0.5, 30))
	requireUniform(t, img, 160, 0, 0)
}

func TestPaintMasks_SizeMismatch(t *testing.T) {
	img := uniformRGBA(3, 2, color.RGBA{A: 255})
	require.Error(t, PaintMasks(img, fullMaskResult(2, 2, 0.9), 0.5, 10))
}

func TestExtractDefects_ScalesBoxes(t *testing.T) {
	result := fullMaskResult(10, 10, 0.9, 0.3)
	result.Boxes = []float32{2, 3, 6, 8, 0, 0, 10, 10}
	result.Labels = []int64{3, 1}

	defects := ExtractDefects(result, 0.5, 2, 0.5)
	require.Len(t, defects, 1)
	d := defects[0]
	require.Equal(t, "surface_damage", d.Label)
	require.Equal(t, 4, d.X)
	require.Equal(t, 1, d.Y)
	require.Equal(t, 8, d.Width)
	require.Equal(t, 3, d.Height)
	require.Equal(t, 24, d.Area)
}
