package vision

import (
	"fmt"
	"image"
	"math"

	"card-grader/internal/domain/entity"
)

// outputLevels линейно переводит [0,255] в [from,to]. from > to инвертирует шкалу.
type outputLevels struct {
	from, to int
}

var (
	levelsIdentity    = outputLevels{from: 0, to: 255}
	levelsAboveLeft   = outputLevels{from: 127, to: 0}
	levelsBottomRight = outputLevels{from: 128, to: 255}
)

func (l outputLevels) table() [256]uint8 {
	var lut [256]uint8
	scale := float64(l.to-l.from) / 255
	for v := range lut {
		lut[v] = clampByte(math.Round(float64(l.from) + float64(v)*scale))
	}
	return lut
}

// Compositor сводит четыре направленных кадра в цветной оверлей.
// R кодирует пару левый/правый, G пару верх/низ.
type Compositor struct {
	Mode entity.CompositeMode
}

// NewCompositor создаёт компоновщик в заданном режиме.
func NewCompositor(mode entity.CompositeMode) *Compositor {
	return &Compositor{Mode: mode}
}

// Compose строит оверлей из набора кадров. Кадр AllLit не используется.
func (c *Compositor) Compose(set *entity.DirectionalImageSet) (*image.RGBA, error) {
	if err := set.ValidateDirectional(); err != nil {
		return nil, err
	}
	switch c.Mode {
	case "", entity.CompositeOverlay:
		return composeBlend(set, levelsIdentity, levelsIdentity, 0), nil
	case entity.CompositeNormalMap:
		return composeBlend(set, levelsAboveLeft, levelsBottomRight, 255), nil
	case entity.CompositeAverage:
		overlay := composeBlend(set, levelsIdentity, levelsIdentity, 0)
		normal := composeBlend(set, levelsAboveLeft, levelsBottomRight, 255)
		return blendImages(overlay, normal), nil
	}
	return nil, fmt.Errorf("unknown composite mode %q", c.Mode)
}

// ComposeOverlay строит оверлей 50/50: R = blend(Left, Right), G = blend(Top, Bottom), B = 0.
func ComposeOverlay(set *entity.DirectionalImageSet) (*image.RGBA, error) {
	return NewCompositor(entity.CompositeOverlay).Compose(set)
}

// ComposeNormalMap строит карту нормалей: уровни верх/лево в 127→0, низ/право в 128→255, B = 255.
func ComposeNormalMap(set *entity.DirectionalImageSet) (*image.RGBA, error) {
	return NewCompositor(entity.CompositeNormalMap).Compose(set)
}

func composeBlend(set *entity.DirectionalImageSet, aboveLeft, bottomRight outputLevels, blue uint8) *image.RGBA {
	w, h := set.Size()
	alLUT := aboveLeft.table()
	brLUT := bottomRight.table()
	out := image.NewRGBA(image.Rect(0, 0, w, h))

	top, right, bottom, left := set.Top, set.Right, set.Bottom, set.Left
	parallelRows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			tRow := grayRow(top, y, w)
			rRow := grayRow(right, y, w)
			bRow := grayRow(bottom, y, w)
			lRow := grayRow(left, y, w)
			dst := out.Pix[y*out.Stride : y*out.Stride+w*4]
			for x := 0; x < w; x++ {
				i := x * 4
				dst[i] = blendHalf(alLUT[lRow[x]], brLUT[rRow[x]])
				dst[i+1] = blendHalf(alLUT[tRow[x]], brLUT[bRow[x]])
				dst[i+2] = blue
				dst[i+3] = 255
			}
		}
	})
	return out
}

func blendImages(a, b *image.RGBA) *image.RGBA {
	out := image.NewRGBA(a.Bounds())
	parallelRows(a.Bounds().Dy(), func(y0, y1 int) {
		for i := y0 * a.Stride; i < y1*a.Stride; i++ {
			out.Pix[i] = blendHalf(a.Pix[i], b.Pix[i])
		}
	})
	return out
}

// blendHalf выполняет альфа-смешивание с непрозрачностью 50% и округлением к ближайшему.
func blendHalf(a, b uint8) uint8 {
	return uint8((uint16(a) + uint16(b) + 1) >> 1)
}

func grayRow(img *image.Gray, y, w int) []uint8 {
	off := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
	return img.Pix[off : off+w]
}
