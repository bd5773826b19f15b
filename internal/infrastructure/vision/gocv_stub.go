//go:build !gocv
// +build !gocv

package vision

import (
	"context"
	"errors"
	"image"
)

var errNoGoCV = errors.New("gocv build tag is not enabled")

type GoCVCamera struct {
	DeviceID int
}

// NewGoCVCamera создаёт камеру-заглушку (без OpenCV).
func NewGoCVCamera(deviceID int) *GoCVCamera {
	return &GoCVCamera{DeviceID: deviceID}
}

// Capture возвращает ошибку, если сборка без тега gocv.
func (c *GoCVCamera) Capture(ctx context.Context) (image.Image, error) {
	_ = ctx
	return nil, errNoGoCV
}

// Close ничего не делает.
func (c *GoCVCamera) Close() error {
	return nil
}

type GoCVResizer struct{}

// NewGoCVResizer создаёт масштабирование-заглушку.
func NewGoCVResizer() *GoCVResizer {
	return &GoCVResizer{}
}

// Resize возвращает ошибку, если сборка без тега gocv.
func (r *GoCVResizer) Resize(img image.Image, width, height int) (*image.RGBA, error) {
	_ = img
	_, _ = width, height
	return nil, errNoGoCV
}
