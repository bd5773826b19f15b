package vision

import (
	"image"

	"card-grader/internal/domain/entity"
)

const maxIntensity = 255.0

// PackTensor раскладывает RGB кадр в тензор [1,3,H,W] со значениями в [0,1].
func PackTensor(img *image.RGBA) *entity.InputTensor {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	plane := w * h
	data := make([]float32, 3*plane)

	parallelRows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			src := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
			for x := 0; x < w; x++ {
				i := y*w + x
				p := src[x*4 : x*4+3]
				data[i] = float32(p[0]) / maxIntensity
				data[plane+i] = float32(p[1]) / maxIntensity
				data[2*plane+i] = float32(p[2]) / maxIntensity
			}
		}
	})

	return &entity.InputTensor{
		Shape: [4]int64{1, 3, int64(h), int64(w)},
		Data:  data,
	}
}
