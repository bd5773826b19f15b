package vision

import (
	"fmt"
	"image"

	"github.com/nfnt/resize"
)

// Resizer масштабирует кадр до заданного размера.
type Resizer interface {
	Resize(img image.Image, width, height int) (*image.RGBA, error)
}

// LanczosResizer масштабирует фильтром Lanczos3.
type LanczosResizer struct{}

// Resize масштабирует кадр, при совпадении размеров возвращает копию.
func (LanczosResizer) Resize(img image.Image, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", width, height)
	}
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return ToRGBA(img), nil
	}
	resized := resize.Resize(uint(width), uint(height), img, resize.Lanczos3)
	if rgba, ok := resized.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba, nil
	}
	return ToRGBA(resized), nil
}
