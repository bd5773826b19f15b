package container

import (
	"context"
	"image"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"card-grader/config"
	"card-grader/internal/domain/entity"
	"card-grader/internal/infrastructure/storage"
	"card-grader/internal/infrastructure/vision"
)

func testConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	cfg, err := config.FromLookup(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})
	require.NoError(t, err)
	return cfg
}

func TestNew_WithoutModelDegrades(t *testing.T) {
	cfg := testConfig(t, map[string]string{
		"MODEL_PATH":  filepath.Join(t.TempDir(), "missing.onnx"),
		"SERIAL_PORT": "/dev/null-lighting",
	})

	c, err := New(cfg, slog.Default())
	require.NoError(t, err)
	defer c.Close()

	require.NotNil(t, c.Grading)
	require.Equal(t, entity.StateDisconnected, c.Capture.State())
	require.Equal(t, entity.CompositeOverlay, c.Grading.Mode())
}

func TestNew_PersistentReports(t *testing.T) {
	cfg := testConfig(t, map[string]string{
		"MODEL_PATH": filepath.Join(t.TempDir(), "missing.onnx"),
		"REPORT_DB":  filepath.Join(t.TempDir(), "reports.db"),
	})

	c, err := New(cfg, slog.Default())
	require.NoError(t, err)
	require.IsType(t, &storage.SQLiteReportRepository{}, c.Reports)
	require.NoError(t, c.Close())
}

func TestNewAnnotator_UsesConfiguredSize(t *testing.T) {
	cfg := testConfig(t, map[string]string{"MODEL_WIDTH": "8", "MODEL_HEIGHT": "6"})
	a := NewAnnotator(cfg, nil, slog.Default())

	ann := a.Annotate(context.Background(), vision.ToRGBA(uniform(4, 4)), uniform(4, 4))
	require.True(t, ann.Degraded())
	require.Equal(t, 4, ann.Image.Bounds().Dx())
}

func TestNewLogger_FallsBackToInfo(t *testing.T) {
	require.NotNil(t, NewLogger("verbose"))
	require.NotNil(t, NewLogger("debug"))
}

func uniform(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	return img
}
