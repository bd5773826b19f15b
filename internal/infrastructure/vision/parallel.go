package vision

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// parallelRows делит [0, height) на полосы строк и обрабатывает их параллельно.
// fn должна писать только в свои строки.
func parallelRows(height int, fn func(y0, y1 int)) {
	if height <= 0 {
		return
	}
	workers := runtime.GOMAXPROCS(0)
	if workers > height {
		workers = height
	}
	if workers <= 1 {
		fn(0, height)
		return
	}

	band := (height + workers - 1) / workers
	var g errgroup.Group
	for y0 := 0; y0 < height; y0 += band {
		y0 := y0
		y1 := min(y0+band, height)
		g.Go(func() error {
			fn(y0, y1)
			return nil
		})
	}
	_ = g.Wait()
}
