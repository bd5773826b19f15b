package imagefile

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"card-grader/internal/domain/entity"
	"card-grader/internal/infrastructure/vision"
)

// JPEGQuality качество сохранения JPEG.
const JPEGQuality = 95

// Load читает и декодирует изображение.
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// LoadSet собирает набор кадров из найденных файлов.
// Без кадра all эталоном служит цветной верхний кадр.
func LoadSet(found Discovered) (*entity.DirectionalImageSet, error) {
	set := &entity.DirectionalImageSet{}
	for _, p := range entity.DirectionalOrder {
		path, ok := found[p]
		if !ok {
			return nil, &entity.ValidationError{Reason: fmt.Sprintf("%s image is missing", p)}
		}
		img, err := Load(path)
		if err != nil {
			return nil, err
		}
		set.Set(p, vision.ToGray(img))
		if p == entity.PositionTop {
			set.Reference = vision.ToRGBA(img)
		}
	}

	if path, ok := found[entity.PositionAllLit]; ok {
		img, err := Load(path)
		if err != nil {
			return nil, err
		}
		set.AllLit = vision.ToGray(img)
		set.Reference = vision.ToRGBA(img)
	}

	if err := set.ValidateDirectional(); err != nil {
		return nil, err
	}
	if set.AllLit != nil {
		if err := set.Validate(); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// LoadDir ищет кадры в каталоге и загружает их.
func LoadDir(dir string) (*entity.DirectionalImageSet, error) {
	found, err := Discover(dir)
	if err != nil {
		return nil, err
	}
	return LoadSet(found)
}

// Save кодирует изображение по расширению пути: png, jpg/jpeg, tif/tiff, bmp.
func Save(path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, formatOf(path), img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// Encode пишет изображение в заданном формате.
func Encode(w io.Writer, format string, img image.Image) error {
	switch format {
	case "png":
		return png.Encode(w, img)
	case "jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: JPEGQuality})
	case "tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case "bmp":
		return bmp.Encode(w, img)
	}
	return fmt.Errorf("unsupported output format %q", format)
}

// EncodePNG возвращает изображение в PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".tif", ".tiff":
		return "tiff"
	case ".bmp":
		return "bmp"
	case ".png", "":
		return "png"
	}
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}
