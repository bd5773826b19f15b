package main

import (
	"bytes"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"card-grader/internal/infrastructure/imagefile"
)

func TestRun_WrongArgumentCount(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"model.onnx", "dir"}, &stdout, &stderr)

	require.Equal(t, 2, code)
	require.Contains(t, stderr.String(), usageLine)
}

func TestRun_UnknownFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.Equal(t, 2, run([]string{"--bogus", "a", "b", "c"}, &stdout, &stderr))
}

func TestRun_MissingDirectory(t *testing.T) {
	var stdout, stderr bytes.Buffer
	dir := t.TempDir()
	code := run([]string{"model.onnx", filepath.Join(dir, "absent"), filepath.Join(dir, "out.png")}, &stdout, &stderr)

	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "does not exist")
}

func TestRun_MissingImages(t *testing.T) {
	var stdout, stderr bytes.Buffer
	dir := t.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.RGBA{R: 1, A: 255})
	require.NoError(t, imagefile.Save(filepath.Join(dir, "top.png"), img))

	code := run([]string{"model.onnx", dir, filepath.Join(dir, "out.png")}, &stdout, &stderr)
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "could not find")
}

func TestRun_BadMode(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"--mode", "sepia", "model.onnx", t.TempDir(), "out.png"}, &stdout, &stderr)
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "sepia")
}

func TestRun_MissingModelWritesReference(t *testing.T) {
	dir := t.TempDir()
	for name, v := range map[string]uint8{"top.png": 200, "right.png": 150, "bottom.png": 100, "left.png": 50} {
		img := image.NewRGBA(image.Rect(0, 0, 8, 6))
		for i := 0; i < len(img.Pix); i += 4 {
			img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = v, v, v, 255
		}
		require.NoError(t, imagefile.Save(filepath.Join(dir, name), img))
	}
	out := filepath.Join(dir, "result", "graded.png")
	overlay := filepath.Join(dir, "overlay.png")

	var stdout, stderr bytes.Buffer
	code := run([]string{"--overlay-out", overlay, filepath.Join(dir, "absent.onnx"), dir, out}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	require.Contains(t, stdout.String(), "unannotated")

	graded, err := imagefile.Load(out)
	require.NoError(t, err)
	r, _, _, _ := graded.At(3, 3).RGBA()
	require.Equal(t, uint32(200), r>>8)

	composite, err := imagefile.Load(overlay)
	require.NoError(t, err)
	r, g, b, _ := composite.At(0, 0).RGBA()
	require.Equal(t, []uint32{100, 150, 0}, []uint32{r >> 8, g >> 8, b >> 8})
}
