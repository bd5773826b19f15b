//go:build gocv
// +build gocv

package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// GoCVCamera снимает кадры с устройства видеозахвата через OpenCV.
type GoCVCamera struct {
	DeviceID int

	mu      sync.Mutex
	capture *gocv.VideoCapture
}

// NewGoCVCamera создаёт камеру для устройства с заданным номером.
func NewGoCVCamera(deviceID int) *GoCVCamera {
	return &GoCVCamera{DeviceID: deviceID}
}

// Capture читает один кадр. Устройство открывается при первом вызове.
func (c *GoCVCamera) Capture(ctx context.Context) (image.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.capture == nil {
		capture, err := gocv.OpenVideoCapture(c.DeviceID)
		if err != nil {
			return nil, fmt.Errorf("open camera %d: %w", c.DeviceID, err)
		}
		c.capture = capture
	}

	mat := gocv.NewMat()
	defer mat.Close()

	if ok := c.capture.Read(&mat); !ok || mat.Empty() {
		return nil, errors.New("camera returned an empty frame")
	}

	img, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	return img, nil
}

// Close освобождает устройство.
func (c *GoCVCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.capture == nil {
		return nil
	}
	err := c.capture.Close()
	c.capture = nil
	return err
}

// GoCVResizer масштабирует кадры средствами OpenCV.
type GoCVResizer struct {
	Interpolation gocv.InterpolationFlags
}

// NewGoCVResizer создаёт масштабирование с интерполяцией по площади.
func NewGoCVResizer() *GoCVResizer {
	return &GoCVResizer{Interpolation: gocv.InterpolationArea}
}

// Resize масштабирует кадр до width×height.
func (r *GoCVResizer) Resize(img image.Image, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", width, height)
	}
	src, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("decode to mat: %w", err)
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()

	interpolation := r.Interpolation
	// Для увеличения интерполяция по площади вырождается в ближайшего соседа.
	if width > src.Cols() || height > src.Rows() {
		interpolation = gocv.InterpolationCubic
	}
	gocv.Resize(src, &dst, image.Pt(width, height), 0, 0, interpolation)

	out, err := dst.ToImage()
	if err != nil {
		return nil, err
	}
	return ToRGBA(out), nil
}
