package vision

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToGray_Luminosity(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 1))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	img.Set(1, 0, color.RGBA{G: 255, A: 255})
	img.Set(2, 0, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	gray := ToGray(img)
	require.Equal(t, []uint8{76, 150, 18}, gray.Pix)
}

func TestToGray_CopiesGraySubImage(t *testing.T) {
	base := image.NewGray(image.Rect(0, 0, 4, 4))
	base.SetGray(2, 2, color.Gray{Y: 9})
	sub := base.SubImage(image.Rect(2, 2, 4, 4)).(*image.Gray)

	gray := ToGray(sub)
	require.Equal(t, image.Rect(0, 0, 2, 2), gray.Bounds())
	require.Equal(t, uint8(9), gray.GrayAt(0, 0).Y)

	gray.Pix[0] = 1
	require.Equal(t, uint8(9), base.GrayAt(2, 2).Y)
}

func TestRotateClockwise(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(0, 0, color.RGBA{R: 1, A: 255})
	img.Set(2, 1, color.RGBA{R: 2, A: 255})

	rotated := RotateClockwise(img)
	require.Equal(t, image.Rect(0, 0, 2, 3), rotated.Bounds())
	require.Equal(t, uint8(1), rotated.RGBAAt(1, 0).R)
	require.Equal(t, uint8(2), rotated.RGBAAt(0, 2).R)
}

func TestPackTensor_ChannelFirst(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{R: 255, G: 0, B: 51, A: 255})
	img.Set(1, 0, color.RGBA{R: 0, G: 102, B: 255, A: 255})

	tensor := PackTensor(img)
	require.Equal(t, [4]int64{1, 3, 1, 2}, tensor.Shape)
	require.InDeltaSlice(t, []float32{1, 0, 0, 0.4, 0.2, 1}, tensor.Data, 1e-6)
}

func TestQualityGate(t *testing.T) {
	gate := &QualityGate{MinImageSide: 4, MaxOverexposedRatio: 0.3, MaxUnderexposedRatio: 0.3}

	require.NoError(t, gate.Check(uniformGray(8, 8, 128), "all"))
	require.ErrorContains(t, gate.Check(uniformGray(3, 8, 128), "all"), "too small")
	require.ErrorContains(t, gate.Check(uniformGray(8, 8, 255), "all"), "overexposed")
	require.ErrorContains(t, gate.Check(uniformGray(8, 8, 5), "all"), "underexposed")
}

func TestQualityGate_Contrast(t *testing.T) {
	gate := &QualityGate{MinImageSide: 4, MaxOverexposedRatio: 1, MaxUnderexposedRatio: 1, MinContrast: 10}
	require.ErrorContains(t, gate.Check(uniformGray(8, 8, 128), "all"), "flat image")

	// половина кадра 100, половина 140: stddev около 20
	img := uniformGray(8, 8, 100)
	for i := 32; i < 64; i++ {
		img.Pix[i] = 140
	}
	require.NoError(t, gate.Check(img, "all"))

	hist := Histogram(img)
	require.Equal(t, float64(32), hist[100])
	require.Equal(t, float64(32), hist[140])
}

func TestLanczosResizer(t *testing.T) {
	src := uniformRGBA(10, 20, color.RGBA{R: 30, G: 60, B: 90, A: 255})

	out, err := LanczosResizer{}.Resize(src, 5, 7)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 5, 7), out.Bounds())
	requireUniform(t, out, 30, 60, 90)

	_, err = LanczosResizer{}.Resize(src, 0, 7)
	require.Error(t, err)
}
