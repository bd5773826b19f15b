package vision

import (
	"image"
	"image/draw"
	"math"
)

// ToGray переводит кадр в полутон методом светимости
// round(0.299R + 0.587G + 0.114B). Результат всегда начинается в (0, 0).
func ToGray(img image.Image) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))

	if src, ok := img.(*image.Gray); ok {
		for y := 0; y < b.Dy(); y++ {
			copy(out.Pix[y*out.Stride:y*out.Stride+b.Dx()], src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):])
		}
		return out
	}

	if src, ok := img.(*image.RGBA); ok {
		parallelRows(b.Dy(), func(y0, y1 int) {
			for y := y0; y < y1; y++ {
				row := out.Pix[y*out.Stride:]
				px := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
				for x := 0; x < b.Dx(); x++ {
					row[x] = luminosity(px[x*4], px[x*4+1], px[x*4+2])
				}
			}
		})
		return out
	}

	parallelRows(b.Dy(), func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := out.Pix[y*out.Stride:]
			for x := 0; x < b.Dx(); x++ {
				r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				row[x] = luminosity(uint8(r>>8), uint8(g>>8), uint8(bl>>8))
			}
		}
	})
	return out
}

func luminosity(r, g, b uint8) uint8 {
	v := math.Round(0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b))
	return clampByte(v)
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// ToRGBA возвращает копию кадра в RGBA с началом в (0, 0).
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// RotateClockwise поворачивает кадр на 90° по часовой стрелке.
func RotateClockwise(img image.Image) *image.RGBA {
	src := ToRGBA(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	out := image.NewRGBA(image.Rect(0, 0, h, w))
	parallelRows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				si := src.PixOffset(x, y)
				di := out.PixOffset(h-1-y, x)
				copy(out.Pix[di:di+4], src.Pix[si:si+4])
			}
		}
	})
	return out
}
