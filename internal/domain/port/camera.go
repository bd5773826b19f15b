package port

import (
	"context"
	"image"
)

// Camera интерфейс камеры
type Camera interface {
	// Capture делает снимок и возвращает кадр
	Capture(ctx context.Context) (image.Image, error)
}
